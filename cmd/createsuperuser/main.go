package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/mhmdrz22/enginner/internal/infra/app"
	"github.com/mhmdrz22/enginner/internal/infra/config"
	"github.com/mhmdrz22/enginner/internal/usecase"
)

func main() {
	email := flag.String("email", "", "superuser email")
	username := flag.String("username", "", "superuser username")
	flag.Parse()

	if *email == "" || *username == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	password := os.Getenv("SUPERUSER_PASSWORD")
	if password == "" {
		log.Fatal("SUPERUSER_PASSWORD must be set")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Storage.Driver == config.StorageDriverMemory {
		log.Fatal("createsuperuser needs persistent storage, set STORAGE_DRIVER=postgres")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	user, err := app.CreateSuperuser(ctx, cfg, usecase.SuperuserInput{
		Email:    *email,
		Username: *username,
		Password: password,
	})
	if err != nil {
		log.Fatalf("create superuser: %v", err)
	}
	fmt.Printf("superuser %s created (id %s)\n", user.Username, user.ID)
}
