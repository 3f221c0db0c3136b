// Command efemctl is a command-line tester for EFEM controllers: it sends
// single commands, runs command scripts, and drives the automated
// wafer-transfer recipe and its recovery procedure over the TCP protocol.
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// local .env overrides nothing, it only fills unset variables
	_ = godotenv.Load()

	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
