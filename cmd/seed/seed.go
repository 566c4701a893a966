package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"boardgame-rental-backend/internal/domain"
	"boardgame-rental-backend/internal/service"
)

type Admin struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type User struct {
	Email         string `yaml:"email"`
	Password      string `yaml:"password"`
	Name          string `yaml:"name"`
	BorrowerIndex string `yaml:"borrower_index"`
	Role          string `yaml:"role"`
}

type Game struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	ImageURL    string `yaml:"image_url"`
	Amount      int32  `yaml:"amount"`
}

type SetupData struct {
	ConfigFile string `yaml:"config_file"`
	Admin      Admin  `yaml:"admin"`
	Users      []User `yaml:"users"`
	Games      []Game `yaml:"games"`
}

type seeder struct {
	auth      service.AuthService
	inventory service.InventoryService
}

func readSetupFile(filename string) (*SetupData, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var setupData SetupData
	if err := yaml.Unmarshal(data, &setupData); err != nil {
		return nil, err
	}
	if setupData.ConfigFile == "" {
		setupData.ConfigFile = "config/config.dev.yaml"
	}

	return &setupData, nil
}

func resolvePath(path string) string {
	// Try the path as-is first
	if _, err := os.Stat(path); err == nil {
		return path
	}

	// Try from project root
	fullPath := filepath.Join(findProjectRoot(), path)
	if _, err := os.Stat(fullPath); err == nil {
		return fullPath
	}

	// Return original path and let it fail with a clear error
	return path
}

func findProjectRoot() string {
	// Look for go.mod to identify project root
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "."
}

// populate goes through the services so seed data obeys the same rules as
// API input. Records that already exist are skipped, so re-running is safe.
func (s *seeder) populate(ctx context.Context, data *SetupData) error {
	log.Printf("Ensuring administrator: %s", data.Admin.Email)
	admin, err := s.auth.EnsureAdmin(ctx, data.Admin.Email, data.Admin.Password)
	if err != nil {
		return fmt.Errorf("failed to ensure administrator: %w", err)
	}
	caller := domain.Caller{UserID: admin.ID, Role: admin.Role}

	for i, u := range data.Users {
		log.Printf("Creating user %d/%d: %s (%s)", i+1, len(data.Users), u.Name, u.Email)
		user, err := s.auth.CreateUser(ctx, caller, service.NewUser{
			Email:         u.Email,
			Name:          u.Name,
			BorrowerIndex: u.BorrowerIndex,
			Role:          u.Role,
			Password:      u.Password,
		})
		if errors.Is(err, domain.ErrDuplicateEmail) {
			log.Printf("  - User %s already exists, skipping", u.Email)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create user %s: %w", u.Email, err)
		}
		log.Printf("  ✓ User created with ID: %d, Role: %s", user.ID, user.Role)
	}

	for i, g := range data.Games {
		log.Printf("Creating game %d/%d: %s", i+1, len(data.Games), g.Title)
		game, err := s.inventory.CreateGame(ctx, caller, domain.GameSpec{
			Title:       g.Title,
			Description: g.Description,
			Category:    g.Category,
			ImageURL:    g.ImageURL,
			Amount:      g.Amount,
		})
		if errors.Is(err, domain.ErrDuplicateTitle) {
			log.Printf("  - Game %q already exists, skipping", g.Title)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create game %s: %w", g.Title, err)
		}
		log.Printf("  ✓ Game created with ID: %d, copies: %d", game.ID, game.Amount)
	}

	return nil
}
