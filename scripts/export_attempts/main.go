package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/mroshb/lid_lottery/internal/config"
	"github.com/mroshb/lid_lottery/internal/database"
	"github.com/mroshb/lid_lottery/internal/report"
	"github.com/mroshb/lid_lottery/internal/repositories"
)

func main() {
	out := flag.String("out", "play_attempts.xlsx", "output workbook")
	since := flag.Duration("since", 30*24*time.Hour, "export attempts newer than this")
	flag.Parse()

	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("failed to connect database:", err)
	}

	ctx := context.Background()
	attempts := repositories.NewAttemptRepository(db)

	rows, err := attempts.ListSince(ctx, time.Now().UTC().Add(-*since))
	if err != nil {
		log.Fatal(err)
	}
	counts, err := attempts.CountByResult(ctx)
	if err != nil {
		log.Fatal(err)
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	if err := report.WriteAttempts(f, rows, counts); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Exported %d attempts to %s\n", len(rows), *out)
}
