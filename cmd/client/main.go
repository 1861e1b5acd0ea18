package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"

	"github.com/custodix/recoveryd/internal/client"
)

const apiRegister = "/api/register"

var (
	version   string
	buildDate string
)

// main parses command-line flags and dispatches to the selected API call.
func main() {
	var (
		cmd      string
		baseURL  string
		certFile string
		keyFile  string
		caFile   string

		address     string
		account     string
		hash        string
		guardian    string
		handle      string
		newOwner    string
		unreachable bool
		amount      int64
		message     string
		showVer     bool
	)

	flag.StringVar(&cmd, "cmd", "", "command: register | account-create | account-get | set-biometric | verify-biometric | guardian-add | guardian-remove | guardians | checkin | initiate | approve | execute | cancel | status | fee | notify")
	flag.StringVar(&baseURL, "url", "https://localhost:8080", "server base URL")
	flag.StringVar(&certFile, "cert", "client.crt", "path to client cert")
	flag.StringVar(&keyFile, "key", "client.key", "path to client key")
	flag.StringVar(&caFile, "ca", "certs/ca.crt", "path to CA cert")
	flag.StringVar(&address, "address", "", "principal address for registration")
	flag.StringVar(&account, "account", "", "account id")
	flag.StringVar(&hash, "hash", "", "hex-encoded biometric commitment")
	flag.StringVar(&guardian, "guardian", "", "guardian address")
	flag.StringVar(&handle, "handle", "", "guardian social handle")
	flag.StringVar(&newOwner, "new-owner", "", "proposed new owner address")
	flag.BoolVar(&unreachable, "owner-unreachable", false, "assert the owner could not be reached or verified")
	flag.Int64Var(&amount, "amount", 0, "fee amount in base units")
	flag.StringVar(&message, "message", "", "notification message")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("Recoveryd Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	if cmd == "register" {
		if address == "" {
			log.Fatal("please provide -address")
		}
		if err := client.Register(baseURL+apiRegister, address, caFile); err != nil {
			log.Fatal(err)
		}
		return
	}

	httpClient, err := client.LoadClientCertificate(certFile, keyFile, caFile)
	if err != nil {
		log.Fatal(err)
	}
	api := &client.API{HTTP: httpClient, BaseURL: baseURL}

	if account == "" {
		log.Fatal("please provide -account")
	}

	switch cmd {
	case "account-create":
		if err := api.CreateAccount(account); err != nil {
			log.Fatal(err)
		}
		fmt.Println("Account created")
	case "account-get":
		acc, err := api.GetAccount(account)
		if err != nil {
			log.Fatal(err)
		}
		printJSON(acc)
	case "set-biometric":
		if hash == "" {
			log.Fatal("please provide -hash")
		}
		if err := api.SetBiometric(account, hash); err != nil {
			log.Fatal(err)
		}
		fmt.Println("Commitment stored")
	case "verify-biometric":
		if hash == "" {
			log.Fatal("please provide -hash")
		}
		match, err := api.VerifyBiometric(account, hash)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("match:", match)
	case "guardian-add":
		if guardian == "" {
			log.Fatal("please provide -guardian")
		}
		if err := api.AddGuardian(account, guardian, handle); err != nil {
			log.Fatal(err)
		}
		fmt.Println("Guardian added")
	case "guardian-remove":
		if guardian == "" {
			log.Fatal("please provide -guardian")
		}
		if err := api.RemoveGuardian(account, guardian); err != nil {
			log.Fatal(err)
		}
		fmt.Println("Guardian removed")
	case "guardians":
		guardians, err := api.Guardians(account)
		if err != nil {
			log.Fatal(err)
		}
		printJSON(guardians)
	case "checkin":
		if err := api.CheckIn(account); err != nil {
			log.Fatal(err)
		}
		fmt.Println("Checked in")
	case "initiate":
		if newOwner == "" {
			log.Fatal("please provide -new-owner")
		}
		req, err := api.InitiateRecovery(account, newOwner, unreachable)
		if err != nil {
			log.Fatal(err)
		}
		printJSON(req)
	case "approve":
		if newOwner == "" {
			log.Fatal("please provide -new-owner")
		}
		if err := api.ApproveRecovery(account, newOwner); err != nil {
			log.Fatal(err)
		}
		fmt.Println("Concurrence recorded")
	case "execute":
		if newOwner == "" {
			log.Fatal("please provide -new-owner")
		}
		if err := api.ExecuteRecovery(account, newOwner); err != nil {
			log.Fatal(err)
		}
		fmt.Println("Recovery executed")
	case "cancel":
		if err := api.CancelRecovery(account); err != nil {
			log.Fatal(err)
		}
		fmt.Println("Recovery cancelled")
	case "status":
		req, err := api.RecoveryStatus(account)
		if err != nil {
			log.Fatal(err)
		}
		printJSON(req)
	case "fee":
		payment, err := api.PayFee(account, amount)
		if err != nil {
			log.Fatal(err)
		}
		printJSON(payment)
	case "notify":
		if message == "" {
			log.Fatal("please provide -message")
		}
		id, err := api.RequestNotification(account, message)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("request id:", id)
	default:
		log.Fatalf("unknown command: %s", cmd)
	}
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}
