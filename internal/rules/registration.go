package rules

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	minimumAge = 16
	adultAge   = 18
)

func registrationRules(store Store) []Rule {
	return []Rule{
		{
			Name:        "email_uniqueness",
			Description: "Email addresses must be unique across all users",
			Priority:    100,
			Enabled:     true,
			Check: func(ctx context.Context, data any, _ RuleContext) (Result, error) {
				in, err := input[RegistrationInput](data)
				if err != nil {
					return Result{}, err
				}
				email := strings.ToLower(strings.TrimSpace(in.Email))
				if email == "" {
					return Pass(), nil
				}
				exists, err := store.EmailExists(ctx, email)
				if err != nil {
					return Result{}, fmt.Errorf("check email: %w", err)
				}
				var c collector
				if exists {
					c.fail("email", CodeEmailAlreadyExists, "An account with this email address already exists", nil)
				}
				return c.result(), nil
			},
		},
		{
			Name:        "age_verification",
			Description: "Users must be at least 16 years old",
			Priority:    90,
			Enabled:     true,
			Check: func(_ context.Context, data any, rc RuleContext) (Result, error) {
				in, err := input[RegistrationInput](data)
				if err != nil {
					return Result{}, err
				}
				if in.DateOfBirth == "" {
					return Pass(), nil
				}

				var c collector
				dob, err := time.Parse(time.DateOnly, in.DateOfBirth)
				if err != nil || dob.After(rc.Now) {
					c.fail("date_of_birth", CodeInvalidDateOfBirth, "Date of birth must be a past date in YYYY-MM-DD format", nil)
					return c.result(), nil
				}

				age := Age(dob, rc.Now)
				switch {
				case age < minimumAge:
					c.critical("date_of_birth", CodeMinimumAge,
						fmt.Sprintf("Users must be at least %d years old to create an account", minimumAge),
						map[string]any{"required_age": minimumAge, "user_age": age})
				case age < adultAge:
					c.warn("date_of_birth", CodeMinorUser,
						"Users under 18 may have limited access to certain features",
						"Consider requiring parental consent for minors", nil)
				}
				return c.result(), nil
			},
		},
		{
			Name:        "profile_completeness",
			Description: "User profiles must have minimum required information",
			Priority:    80,
			Enabled:     true,
			Check: func(_ context.Context, data any, _ RuleContext) (Result, error) {
				in, err := input[RegistrationInput](data)
				if err != nil {
					return Result{}, err
				}

				var c collector
				required := []struct{ field, value string }{
					{"first_name", in.FirstName},
					{"last_name", in.LastName},
					{"email", in.Email},
				}
				for _, f := range required {
					if strings.TrimSpace(f.value) == "" {
						c.fail(f.field, CodeRequiredFieldMissing, humanize(f.field)+" is required", nil)
					}
				}

				recommended := []struct{ field, value string }{
					{"phone", in.Phone},
					{"date_of_birth", in.DateOfBirth},
				}
				for _, f := range recommended {
					if f.value == "" {
						c.warn(f.field, CodeRecommendedFieldMissing,
							humanize(f.field)+" is recommended for a complete profile",
							"Consider adding "+humanize(f.field)+" to improve user experience", nil)
					}
				}
				return c.result(), nil
			},
		},
	}
}

// Age returns the number of full years between dob and now.
func Age(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

func humanize(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}
