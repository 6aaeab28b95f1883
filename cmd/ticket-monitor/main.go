// Package main is the entry point for the ticket monitor.
package main

import (
	"os"

	"github.com/donaldgifford/ticket-monitor/cmd/ticket-monitor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
