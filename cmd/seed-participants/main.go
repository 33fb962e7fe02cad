package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/mavericks-edu/mavericks-backend/internal/config"
	"github.com/mavericks-edu/mavericks-backend/internal/database"
	"github.com/mavericks-edu/mavericks-backend/internal/logger"
	"github.com/mavericks-edu/mavericks-backend/internal/model"
	"github.com/mavericks-edu/mavericks-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	var count, cohortID int
	var password string
	flag.IntVar(&count, "count", 50, "Number of participants to seed")
	flag.IntVar(&cohortID, "cohort", 1, "Cohort ID to assign")
	flag.StringVar(&password, "password", "mavericks", "Initial password for all seeded accounts")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	participantRepo := repository.NewParticipantRepository(pool)

	fmt.Printf("=== Seeding %d Participants (cohort %d) ===\n", count, cohortID)

	// One hash shared across the batch; hashing 50 passwords at cost 12 is slow.
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	participants := make([]model.Participant, count)
	for i := range participants {
		participants[i] = model.Participant{
			Email:        fmt.Sprintf("participant%03d@mavericks.test", i+1),
			Name:         fmt.Sprintf("Participant %03d", i+1),
			PasswordHash: string(hash),
			CohortID:     cohortID,
		}
	}

	inserted, err := participantRepo.CreateBatch(ctx, participants)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed participants")
	}

	fmt.Printf("\nSeed completed! Successfully added %d/%d participants.\n", inserted, count)
}
