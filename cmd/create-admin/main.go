package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/config"
	"github.com/hobbyist/hobbyist-api/internal/database"
	"github.com/hobbyist/hobbyist-api/internal/logger"
	"github.com/hobbyist/hobbyist-api/internal/model"
	"github.com/hobbyist/hobbyist-api/internal/repository"
	"github.com/hobbyist/hobbyist-api/internal/rules"
)

const minPasswordLength = 8

// create-admin creates an admin account, or promotes an existing account
// with the same email to admin.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	users := repository.NewUserRepository(pool)
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create Admin User ===")

	email := prompt(reader, "Email: ")
	if !rules.ValidEmail(email) {
		fmt.Println("Error: a valid email is required")
		os.Exit(1)
	}

	existing, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == model.RoleAdmin {
			fmt.Printf("%s is already an admin\n", email)
			return
		}
		if strings.ToLower(prompt(reader, fmt.Sprintf("%s exists as %s. Promote to admin? [y/N]: ", email, existing.Role))) != "y" {
			return
		}
		if err := users.SetRole(ctx, existing.ID, model.RoleAdmin); err != nil {
			log.Fatal().Err(err).Msg("Failed to promote user")
		}
		fmt.Printf("\nSuccess! %s is now an admin\n", email)
		return
	case !errors.Is(err, apperror.ErrNotFound):
		log.Fatal().Err(err).Msg("Failed to look up user")
	}

	firstName := prompt(reader, "First name: ")
	lastName := prompt(reader, "Last name: ")
	if firstName == "" || lastName == "" {
		fmt.Println("Error: first and last name are required")
		os.Exit(1)
	}

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read password")
	}
	if len(password) < minPasswordLength {
		fmt.Printf("Error: password must be at least %d characters\n", minPasswordLength)
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword(password, cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	admin := &model.UserProfile{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    firstName,
		LastName:     lastName,
		Role:         model.RoleAdmin,
	}
	if err := users.Create(ctx, admin); err != nil {
		log.Fatal().Err(err).Msg("Failed to create admin")
	}

	fmt.Printf("\nSuccess! Admin %s created with ID: %s\n", admin.Email, admin.ID)
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
