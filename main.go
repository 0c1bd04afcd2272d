// ABOUTME: Entry point for the dealview CLI
// ABOUTME: Routes auth, deals, tui and proxy subcommands
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/avoronin/dealview/cli"
	"github.com/avoronin/dealview/config"
)

const version = "0.2.0"

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("dealview version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	switch args[0] {
	case "auth":
		if err := cli.AuthCommand(cfg); err != nil {
			log.Fatalf("Error: %v", err)
		}
	case "deals":
		if err := cli.ListDealsCommand(cfg); err != nil {
			log.Fatalf("Error: %v", err)
		}
	case "tui":
		if err := cli.TuiCommand(cfg); err != nil {
			log.Fatalf("Error: %v", err)
		}
	case "proxy":
		if err := cli.ProxyCommand(cfg); err != nil {
			log.Fatalf("Error: %v", err)
		}
	default:
		fmt.Printf("Unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`dealview v%s - amoCRM deal viewer

USAGE:
  dealview [global flags] <command>

GLOBAL FLAGS:
  --version              Show version and exit

COMMANDS:
  auth                   Authenticate against amoCRM and save tokens
  deals                  Load and print the deal table
  tui                    Interactive deal browser
  proxy                  Local /api reverse proxy with web dashboard

CONFIGURATION (environment or .env):
  AMO_SUBDOMAIN          Account subdomain (required)
  AMO_CLIENT_ID          Integration id (required)
  AMO_CLIENT_SECRET      Integration secret key (required)
  AMO_REDIRECT_URI       Redirect URI registered with the integration
  AMO_AUTH_CODE          One-time authorization code (first auth only)
  AMO_REQUEST_DELAY_MS   Minimum spacing between API calls (default 1000)
  AMO_BASE_URL           API base override (e.g. a local proxy)
  AMO_LISTEN_ADDR        Proxy listen address (default :8080)

EXAMPLES:
  # First-time authentication with a fresh authorization code
  AMO_AUTH_CODE=def502... dealview auth

  # Print the deal table
  dealview deals

  # Browse deals interactively
  dealview tui

  # Run the proxy + dashboard on :8080
  dealview proxy

`, version)
}
