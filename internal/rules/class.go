package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/model"
)

const (
	minimumPrice          int64 = 500   // $5.00
	maximumPrice          int64 = 50000 // $500.00
	maximumPricePerMinute       = 1000  // $10.00
	defaultCapacityLimit        = 30
)

var capacityLimits = map[model.LocationType]int{
	model.LocationOnline:   50,
	model.LocationInPerson: 30,
	model.LocationHybrid:   25,
}

func classRules(store Store) []Rule {
	return []Rule{
		{
			Name:        "instructor_verification",
			Description: "Only verified instructors can create classes",
			Priority:    100,
			Enabled:     true,
			Check: func(ctx context.Context, _ any, rc RuleContext) (Result, error) {
				var c collector
				if rc.InstructorID == uuid.Nil {
					c.critical("", CodeInstructorIDRequired, "Instructor ID is required for class creation", nil)
					return c.result(), nil
				}

				inst, err := store.InstructorByID(ctx, rc.InstructorID)
				if apperror.IsNotFound(err) {
					c.critical("", CodeInstructorNotFound, "Instructor profile not found", nil)
					return c.result(), nil
				}
				if err != nil {
					return Result{}, fmt.Errorf("load instructor: %w", err)
				}

				if !inst.Verified {
					c.fail("", CodeInstructorNotVerified, "Instructor must be verified before creating classes", nil)
				}
				if inst.PayoutAccountStatus != model.PayoutActive {
					c.fail("", CodePaymentAccountRequired, "Instructor must have an active payment account to receive payments", nil)
				}
				if len(inst.Specialties) == 0 {
					c.warn("", CodeMissingSpecialties, "Instructor should specify their specialties",
						"Add specialties to help students find your classes", nil)
				}
				return c.result(), nil
			},
		},
		{
			Name:        "schedule_conflict",
			Description: "Classes cannot overlap with existing instructor commitments",
			Priority:    90,
			Enabled:     true,
			Check: func(ctx context.Context, data any, rc RuleContext) (Result, error) {
				in, err := input[ClassInput](data)
				if err != nil {
					return Result{}, err
				}
				if in.StartsAt.IsZero() || rc.InstructorID == uuid.Nil {
					return Pass(), nil
				}

				existing, err := store.InstructorClasses(ctx, rc.InstructorID, rc.ClassID)
				if err != nil {
					return Result{}, fmt.Errorf("load instructor classes: %w", err)
				}

				end := in.StartsAt.Add(time.Duration(in.DurationMinutes) * time.Minute)
				var c collector
				for _, other := range existing {
					if Overlaps(in.StartsAt, end, other.StartsAt, other.EndsAt()) {
						at := other.StartsAt.UTC().Format(time.RFC3339)
						c.fail("starts_at", CodeScheduleConflict,
							fmt.Sprintf("Class conflicts with existing class %q at %s", other.Title, at),
							map[string]any{"conflicting_class": other.Title, "conflicting_class_id": other.ID, "conflict_time": at})
					}
				}
				return c.result(), nil
			},
		},
		{
			Name:        "pricing_validation",
			Description: "Class pricing must be within acceptable ranges",
			Priority:    80,
			Enabled:     true,
			Check: func(_ context.Context, data any, _ RuleContext) (Result, error) {
				in, err := input[ClassInput](data)
				if err != nil {
					return Result{}, err
				}

				var c collector
				if in.Price < minimumPrice {
					c.fail("price", CodePriceTooLow,
						fmt.Sprintf("Class price must be at least %s", dollars(minimumPrice)),
						map[string]any{"minimum_price": minimumPrice, "provided_price": in.Price})
				}
				if in.Price > maximumPrice {
					c.fail("price", CodePriceTooHigh,
						fmt.Sprintf("Class price cannot exceed %s", dollars(maximumPrice)),
						map[string]any{"maximum_price": maximumPrice, "provided_price": in.Price})
				}
				if in.DurationMinutes > 0 {
					perMinute := float64(in.Price) / float64(in.DurationMinutes)
					if perMinute > maximumPricePerMinute {
						c.warn("price", CodeHighPricePerMinute,
							fmt.Sprintf("Price per minute ($%.2f) is unusually high", perMinute/100),
							"Consider if the pricing is appropriate for the class duration", nil)
					}
				}
				return c.result(), nil
			},
		},
		{
			Name:        "capacity_limits",
			Description: "Class capacity must be reasonable for the venue type",
			Priority:    70,
			Enabled:     true,
			Check: func(_ context.Context, data any, _ RuleContext) (Result, error) {
				in, err := input[ClassInput](data)
				if err != nil {
					return Result{}, err
				}

				var c collector
				if in.MaxParticipants < 1 {
					c.fail("max_participants", CodeMinimumCapacity, "Classes must allow at least 1 participant", nil)
				}

				limit, ok := capacityLimits[in.LocationType]
				if !ok {
					limit = defaultCapacityLimit
				}
				if in.MaxParticipants > limit {
					location := string(in.LocationType)
					if location == "" {
						location = string(model.LocationInPerson)
					}
					c.warn("max_participants", CodeHighCapacity,
						fmt.Sprintf("Class capacity (%d) is high for %s classes", in.MaxParticipants, location),
						fmt.Sprintf("Consider if you can effectively manage %d participants", in.MaxParticipants),
						map[string]any{"recommended_max": limit})
				}
				return c.result(), nil
			},
		},
	}
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func dollars(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
