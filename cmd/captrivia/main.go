package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	log.SetFlags(0)

	if os.Getenv("APP_ENV") != "production" {
		if _, err := os.Stat(".env"); err == nil {
			if err := godotenv.Load(); err != nil {
				log.Printf("Warning: could not load .env file: %v", err)
			}
		}
	}

	cobra.CheckErr(newRootCmd().Execute())
}
