package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/voxscribe/voxscribe/internal/cli"
)

func main() {
	// Optional .env for local development.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
