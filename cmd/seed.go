/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/leadhub/apiserver/config"
	"github.com/leadhub/apiserver/internal/db"
	"github.com/leadhub/apiserver/internal/store"
	"github.com/leadhub/apiserver/types"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var (
	seedEmail    string
	seedPassword string
	seedCount    int
)

// seedCmd represents the seed command.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed a demo user with randomized leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		ctx := cmd.Context()

		dbConn, err := db.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer dbConn.Close()

		userRepo := store.NewUserRepository(dbConn)
		leadRepo := store.NewLeadRepository(dbConn)

		user, err := upsertSeedUser(ctx, userRepo, seedEmail, seedPassword)
		if err != nil {
			return err
		}

		if err := leadRepo.DeleteByOwner(ctx, user.ID); err != nil {
			return fmt.Errorf("clear existing leads: %w", err)
		}

		fmt.Printf("Seeding %d leads for user %s (%d)\n", seedCount, user.Email, user.ID)
		for i := 0; i < seedCount; i++ {
			if _, err := leadRepo.Create(ctx, randomLead(user.ID, i)); err != nil {
				return fmt.Errorf("insert lead %d: %w", i+1, err)
			}
		}

		fmt.Println("Seeding completed.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVar(&seedEmail, "email", "test@example.com", "seed user email")
	seedCmd.Flags().StringVar(&seedPassword, "password", "Password123!", "seed user password")
	seedCmd.Flags().IntVar(&seedCount, "count", 120, "number of leads to create")
}

func upsertSeedUser(ctx context.Context, repo *store.UserRepository, email, password string) (types.User, error) {
	user, err := repo.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, fmt.Errorf("look up seed user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}
	return repo.Create(ctx, types.User{Email: email, PasswordHash: string(hashed)})
}

var (
	seedLastNames = []string{"Alpha", "Beta", "Gamma", "Delta", "Epsilon", "Zeta"}
	seedCompanies = []string{"Acme Inc", "Globex", "Initech", "Umbrella", "Hooli", "Stark Industries"}
	seedCities    = []string{"San Francisco", "New York", "Austin", "Seattle", "Chicago", "Boston"}
	seedStates    = []string{"CA", "NY", "TX", "WA", "IL", "MA"}
)

func randomLead(ownerID, i int) types.Lead {
	createdAt := time.Now().AddDate(0, 0, -rand.Intn(91))

	var lastActivity *time.Time
	if rand.Float64() < 0.7 {
		t := createdAt.AddDate(0, 0, rand.Intn(61))
		lastActivity = &t
	}

	return types.Lead{
		OwnerID:        ownerID,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
		FirstName:      fmt.Sprintf("Lead%d", i+1),
		LastName:       seedLastNames[rand.Intn(len(seedLastNames))],
		Email:          fmt.Sprintf("lead%d@example.com", i+1),
		Phone:          fmt.Sprintf("+1-555-01%02d", i%100),
		Company:        seedCompanies[rand.Intn(len(seedCompanies))],
		City:           seedCities[rand.Intn(len(seedCities))],
		State:          seedStates[rand.Intn(len(seedStates))],
		Source:         types.LeadSources[rand.Intn(len(types.LeadSources))],
		Status:         types.LeadStatuses[rand.Intn(len(types.LeadStatuses))],
		Score:          rand.Intn(101),
		LeadValue:      float64(100 + rand.Intn(4901)),
		LastActivityAt: lastActivity,
		IsQualified:    rand.Float64() < 0.5,
	}
}
