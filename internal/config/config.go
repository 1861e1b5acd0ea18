// Package config provides functionality for managing configuration options
// for the application using command-line flags and environment variables.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"strconv"
)

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string

	// Config is the path to the Config file.
	Config string

	// RecoveryThreshold is the number of distinct guardian concurrences
	// required to execute a recovery.
	RecoveryThreshold int

	// TimelockSeconds is the mandatory delay between initiating and
	// executing a recovery.
	TimelockSeconds int64

	// MaxRequestAgeSeconds is the absolute age ceiling after which a
	// pending recovery request expires regardless of approvals.
	MaxRequestAgeSeconds int64

	// MinFee is the minimum payment, in integer base units, accepted by
	// the fee-gated endpoint.
	MinFee int64
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.Port, "a", "localhost:8080", "run on ip:port server")
	flag.StringVar(&options.DatabaseDSN, "d", "", "db address")
	flag.StringVar(&options.Config, "config", "config.json", "path to config file")
	flag.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
	flag.IntVar(&options.RecoveryThreshold, "t", 1, "guardian concurrence threshold")
	flag.Int64Var(&options.TimelockSeconds, "timelock", 86400, "recovery timelock in seconds")
	flag.Int64Var(&options.MaxRequestAgeSeconds, "max-age", 604800, "absolute recovery request age ceiling in seconds")
	flag.Int64Var(&options.MinFee, "min-fee", 1000, "minimum accepted fee in base units")
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It returns a pointer to the Options struct containing
// the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Port = serverAddress
	}

	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		options.DatabaseDSN = dsn
	}

	if threshold := os.Getenv("RECOVERY_THRESHOLD"); threshold != "" {
		if v, err := strconv.Atoi(threshold); err == nil {
			options.RecoveryThreshold = v
		}
	}

	if timelock := os.Getenv("TIMELOCK_SECONDS"); timelock != "" {
		if v, err := strconv.ParseInt(timelock, 10, 64); err == nil {
			options.TimelockSeconds = v
		}
	}

	return options
}
