package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/mroshb/lid_lottery/internal/config"
	"github.com/mroshb/lid_lottery/internal/database"
	"github.com/mroshb/lid_lottery/internal/repositories"
	"github.com/mroshb/lid_lottery/internal/security"
	"github.com/mroshb/lid_lottery/internal/services"
)

// Deletes every code that is no longer listed in LOTTERY_CODES, with its
// coupon and attempts, then seeds the listed ones.
func main() {
	confirm := flag.Bool("confirm", false, "actually delete unlisted codes")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}
	if !*confirm {
		fmt.Printf("Would keep %v and delete every other code. Re-run with -confirm.\n", cfg.LotteryCodes)
		return
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("failed to connect database:", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal(err)
	}

	purged, err := database.PurgeUnlisted(db, cfg.LotteryCodes)
	if err != nil {
		log.Fatal(err)
	}
	if err := database.SeedCodes(db, cfg.LotteryCodes); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Purged %d codes, kept %v\n", purged, cfg.LotteryCodes)

	validator, err := security.NewCodeValidator(cfg.CodePattern, cfg.LotteryCodes)
	if err != nil {
		log.Fatal(err)
	}
	inventory, err := services.Inventory(repositories.NewCodeRepository(db), validator)
	if err != nil {
		log.Fatal(err)
	}
	for _, c := range inventory {
		fmt.Printf("  %s\t%s\t%s\n", c.Code, c.Status, c.Outcome)
	}
}
