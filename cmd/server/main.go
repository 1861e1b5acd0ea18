// Package main initializes and starts the recovery module HTTPS server,
// setting up configuration, logging, database connections, repositories,
// services, handlers, and TLS.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	nethttp "net/http"

	"github.com/custodix/recoveryd/internal/config"
	"github.com/custodix/recoveryd/internal/db"
	"github.com/custodix/recoveryd/internal/logger"
	"github.com/custodix/recoveryd/internal/repository"
	"github.com/custodix/recoveryd/internal/server/handler/http"
	"github.com/custodix/recoveryd/internal/service"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

// orDefault returns s if non-empty, otherwise def (cmp.Or equivalent;
// cmp.Or requires Go 1.22 and this module builds with Go 1.21).
func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()
	addr := options.Port

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", orDefault(version, "N/A"))
	fmt.Printf("Build date: %s\n", orDefault(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init("Info"); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	// Initialize PostgreSQL connection.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}

	// Purge terminal recovery requests in the background.
	db.StartTerminalRequestCleaner(context.Background(), postgresDB,
		time.Hour,       // interval
		30*24*time.Hour, // retention: 30 days
		zapLogger,
	)

	// Initialize repositories.
	principalRepo := repository.NewPostgresPrincipalRepository(postgresDB)
	accountRepo := repository.NewPostgresAccountRepository(postgresDB)
	recoveryRepo := repository.NewPostgresRecoveryRepository(postgresDB)

	// Initialize business-logic services.
	principalService := service.NewPrincipalService(principalRepo)
	accountService := service.NewAccountService(accountRepo, zapLogger)
	credentialService := service.NewCredentialService(accountRepo, zapLogger)
	guardianService := service.NewGuardianService(accountRepo, zapLogger)
	recoveryService := service.NewRecoveryService(recoveryRepo, service.RecoveryConfig{
		Threshold:     options.RecoveryThreshold,
		Timelock:      time.Duration(options.TimelockSeconds) * time.Second,
		MaxRequestAge: time.Duration(options.MaxRequestAgeSeconds) * time.Second,
	}, zapLogger)
	feeService := service.NewFeeService(accountRepo, options.MinFee, zapLogger)
	notificationService := service.NewNotificationService(accountRepo, zapLogger)

	// Create HTTP handlers.
	registerHandler := &http.RegisterHandler{PrincipalService: principalService}
	accountHandler := &http.AccountHandler{
		AccountService:    accountService,
		CredentialService: credentialService,
		GuardianService:   guardianService,
	}
	recoveryHandler := &http.RecoveryHandler{RecoveryService: recoveryService}
	feeHandler := &http.FeeHandler{FeeService: feeService}
	notificationHandler := &http.NotificationHandler{NotificationService: notificationService}

	// Build the router with middleware and routes.
	router := http.NewRouter(registerHandler, accountHandler, recoveryHandler, feeHandler, notificationHandler, zapLogger)

	// Load server TLS certificate and key.
	cert, err := tls.LoadX509KeyPair("certs/server.crt", "certs/server.key")
	if err != nil {
		zapLogger.Fatal("failed to load server TLS cert/key", zap.Error(err))
	}

	// Load and append CA certificate for client cert verification.
	caCert, err := os.ReadFile("certs/ca.crt")
	if err != nil {
		zapLogger.Fatal("failed to read CA cert", zap.Error(err))
	}
	caCertPool := x509.NewCertPool()
	if ok := caCertPool.AppendCertsFromPEM(caCert); !ok {
		zapLogger.Fatal("failed to append CA cert to pool")
	}

	// Configure TLS to require or verify client certificates.
	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.VerifyClientCertIfGiven,
		ClientCAs:    caCertPool,
		MinVersion:   tls.VersionTLS12,
	}

	// Create and start the HTTPS server.
	server := &nethttp.Server{
		Addr:      addr,
		Handler:   router,
		TLSConfig: tlsConfig,
	}

	zapLogger.Info("starting HTTPS server", zap.String("addr", addr))
	if err := server.ListenAndServeTLS("", ""); err != nil {
		zapLogger.Fatal("failed to start HTTPS server", zap.Error(err))
	}
}
