package main

import (
	"log"

	"github.com/TremiDkhar/sitelink/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ sitelink failed: %v", err)
	}
}
