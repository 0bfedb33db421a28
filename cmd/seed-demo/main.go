package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/config"
	"github.com/hobbyist/hobbyist-api/internal/database"
	"github.com/hobbyist/hobbyist-api/internal/logger"
	"github.com/hobbyist/hobbyist-api/internal/model"
	"github.com/hobbyist/hobbyist-api/internal/repository"
)

type demoClass struct {
	title    string
	category string
	price    int64
	minutes  int
	capacity int
	location model.LocationType
	inDays   int
}

var demoClasses = []demoClass{
	{"Wheel Throwing for Beginners", "pottery", 4500, 120, 8, model.LocationInPerson, 3},
	{"Watercolour Landscapes", "painting", 3000, 90, 12, model.LocationOnline, 5},
	{"Sourdough Basics", "cooking", 5500, 180, 6, model.LocationHybrid, 7},
}

// seed-demo creates a verified instructor with an active payout account and
// a handful of published classes for local development.
func main() {
	var (
		email    string
		password string
	)
	flag.StringVar(&email, "email", "demo.instructor@hobbyist.local", "Instructor email")
	flag.StringVar(&password, "password", "password123", "Instructor password")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	users := repository.NewUserRepository(pool)
	instructors := repository.NewInstructorRepository(pool)
	classes := repository.NewClassRepository(pool)

	user, err := ensureUser(ctx, users, email, password, cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare instructor account")
	}

	profile, err := ensureInstructor(ctx, instructors, user.ID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare instructor profile")
	}

	start := time.Now().Truncate(time.Hour)
	created := 0
	for _, d := range demoClasses {
		if err := seedClass(ctx, classes, profile.ID, d, start); err != nil {
			log.Error().Err(err).Str("title", d.title).Msg("Failed to seed class")
			continue
		}
		created++
	}

	log.Info().
		Str("email", email).
		Str("instructor_id", profile.ID.String()).
		Int("classes", created).
		Msg("Demo data seeded")
	fmt.Printf("Login as %s / %s\n", email, password)
}

func ensureUser(ctx context.Context, users *repository.UserRepository, email, password string, cost int) (*model.UserProfile, error) {
	existing, err := users.GetByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &model.UserProfile{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    "Demo",
		LastName:     "Instructor",
		Role:         model.RoleStudent,
	}
	if err := users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func ensureInstructor(ctx context.Context, instructors *repository.InstructorRepository, userID uuid.UUID) (*model.InstructorProfile, error) {
	profile, err := instructors.GetByUserID(ctx, userID)
	if apperror.IsNotFound(err) {
		profile = &model.InstructorProfile{
			UserID:      userID,
			Bio:         "Maker, baker and weekend painter.",
			Specialties: []string{"pottery", "painting", "cooking"},
		}
		err = instructors.Create(ctx, profile)
	}
	if err != nil {
		return nil, err
	}

	if err := instructors.SetVerified(ctx, profile.ID, true); err != nil {
		return nil, err
	}
	if err := instructors.UpdatePayout(ctx, profile.ID, "acct_demo_"+profile.ID.String()[:8], model.PayoutActive); err != nil {
		return nil, err
	}
	return profile, nil
}

func seedClass(ctx context.Context, classes *repository.ClassRepository, instructorID uuid.UUID, d demoClass, start time.Time) error {
	c := &model.Class{
		InstructorID:    instructorID,
		Title:           d.title,
		Description:     fmt.Sprintf("A relaxed %d minute %s session.", d.minutes, d.category),
		Category:        d.category,
		Price:           d.price,
		DurationMinutes: d.minutes,
		MaxParticipants: d.capacity,
		LocationType:    d.location,
		StartsAt:        start.AddDate(0, 0, d.inDays).Add(18 * time.Hour),
		Status:          model.ClassDraft,
	}
	if err := classes.Create(ctx, c); err != nil {
		return err
	}
	return classes.TransitionStatus(ctx, c.ID, model.ClassDraft, model.ClassPublished)
}
