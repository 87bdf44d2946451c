package main

import (
	"flag"
	"log"

	"pollboard/internal/config"
	"pollboard/internal/database"
	"pollboard/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	users := flag.Int("users", 10, "number of users to create")
	polls := flag.Int("polls", 25, "number of polls to create")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Run(db, *users, *polls); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Println("Seeding completed")
}
