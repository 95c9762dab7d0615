// Package main implements the entry point for the docsight CLI, which turns
// photos of documents into corrected text and explanations.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/docsight/docsight/cmd/docsight/commands"
)

func main() {
	// A .env file is a development convenience; deployments set real
	// environment variables and no file is present.
	_ = godotenv.Load()

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
