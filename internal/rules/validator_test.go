package rules

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticRule(name string, priority int, res Result, trace *[]string) Rule {
	return Rule{
		Name:     name,
		Priority: priority,
		Enabled:  true,
		Check: func(context.Context, any, RuleContext) (Result, error) {
			*trace = append(*trace, name)
			return res, nil
		},
	}
}

func TestValidate_RunsRulesInDescendingPriority(t *testing.T) {
	v := New(zerolog.Nop())
	var trace []string

	require.NoError(t, v.Register("demo", staticRule("low", 10, Pass(), &trace)))
	require.NoError(t, v.Register("demo", staticRule("high", 100, Pass(), &trace)))
	require.NoError(t, v.Register("demo", staticRule("mid-a", 50, Pass(), &trace)))
	require.NoError(t, v.Register("demo", staticRule("mid-b", 50, Pass(), &trace)))

	res := v.Validate(context.Background(), "demo", nil, RuleContext{})

	assert.True(t, res.Valid)
	assert.Equal(t, []string{"high", "mid-a", "mid-b", "low"}, trace)

	names := []string{}
	for _, r := range v.Rules("demo") {
		names = append(names, r.Name)
	}
	assert.Equal(t, trace, names)
}

func TestValidate_CriticalErrorHalts(t *testing.T) {
	v := New(zerolog.Nop())
	var trace []string

	critical := Result{Errors: []Issue{{Code: "STOP", Severity: SeverityCritical}}}
	plain := Result{Errors: []Issue{{Code: "PLAIN", Severity: SeverityError}}, Warnings: []Warning{{Code: "W"}}}

	require.NoError(t, v.Register("demo", staticRule("first", 100, plain, &trace)))
	require.NoError(t, v.Register("demo", staticRule("second", 90, critical, &trace)))
	require.NoError(t, v.Register("demo", staticRule("third", 80, plain, &trace)))

	res := v.Validate(context.Background(), "demo", nil, RuleContext{})

	assert.False(t, res.Valid)
	assert.Equal(t, []string{"first", "second"}, trace)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, "PLAIN", res.Errors[0].Code)
	assert.Equal(t, "STOP", res.Errors[1].Code)
	assert.Len(t, res.Warnings, 1)
}

func TestValidate_RuleFailuresBecomeRuleErrors(t *testing.T) {
	v := New(zerolog.Nop())
	var trace []string

	require.NoError(t, v.Register("demo", Rule{
		Name: "erroring", Priority: 100, Enabled: true,
		Check: func(context.Context, any, RuleContext) (Result, error) {
			return Result{}, errors.New("store unavailable")
		},
	}))
	require.NoError(t, v.Register("demo", Rule{
		Name: "panicking", Priority: 90, Enabled: true,
		Check: func(context.Context, any, RuleContext) (Result, error) {
			var m map[string]int
			m["boom"]++
			return Pass(), nil
		},
	}))
	require.NoError(t, v.Register("demo", staticRule("after", 80, Pass(), &trace)))

	res := v.Validate(context.Background(), "demo", nil, RuleContext{})

	assert.False(t, res.Valid)
	assert.Equal(t, []string{"after"}, trace)
	require.Len(t, res.Errors, 2)
	for i, name := range []string{"erroring", "panicking"} {
		assert.Equal(t, CodeRuleError, res.Errors[i].Code)
		assert.Equal(t, SeverityError, res.Errors[i].Severity)
		assert.Equal(t, name, res.Errors[i].Context["rule"])
		assert.NotEmpty(t, res.Errors[i].Context["error"])
	}
}

func TestValidate_SkipsDisabledRules(t *testing.T) {
	v := New(zerolog.Nop())
	var trace []string

	fail := Result{Errors: []Issue{{Code: "X", Severity: SeverityError}}}
	require.NoError(t, v.Register("demo", staticRule("a", 100, fail, &trace)))
	require.NoError(t, v.Register("demo", staticRule("b", 90, Pass(), &trace)))

	require.NoError(t, v.SetEnabled("demo", "a", false))
	res := v.Validate(context.Background(), "demo", nil, RuleContext{})
	assert.True(t, res.Valid)
	assert.Equal(t, []string{"b"}, trace)

	assert.ErrorIs(t, v.SetEnabled("demo", "missing", true), ErrRuleNotFound)
	assert.False(t, v.Rules("demo")[0].Enabled)
}

func TestValidate_UnknownCategoryIsValid(t *testing.T) {
	v := New(zerolog.Nop())
	res := v.Validate(context.Background(), "nope", map[string]any{}, RuleContext{})
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
	assert.False(t, v.HasCategory("nope"))
}

func TestValidate_FillsClock(t *testing.T) {
	fixed := time.Date(2025, 9, 25, 10, 0, 0, 0, time.UTC)
	v := New(zerolog.Nop(), WithClock(func() time.Time { return fixed }))

	var seen time.Time
	require.NoError(t, v.Register("demo", Rule{
		Name: "clock", Priority: 1, Enabled: true,
		Check: func(_ context.Context, _ any, rc RuleContext) (Result, error) {
			seen = rc.Now
			return Pass(), nil
		},
	}))
	v.Validate(context.Background(), "demo", nil, RuleContext{})
	assert.Equal(t, fixed, seen)
}

func TestRegister_RejectsInvalidRules(t *testing.T) {
	v := New(zerolog.Nop())
	assert.ErrorIs(t, v.Register("demo", Rule{Name: "no-check"}), ErrInvalidRule)

	var trace []string
	require.NoError(t, v.Register("demo", staticRule("dup", 1, Pass(), &trace)))
	assert.ErrorIs(t, v.Register("demo", staticRule("dup", 2, Pass(), &trace)), ErrInvalidRule)
}

func TestNewDefault_RegistersAllCategories(t *testing.T) {
	v, err := NewDefault(newStubStore(), zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, []Category{
		CategoryBookingCancellation,
		CategoryBookingCreation,
		CategoryClassCreation,
		CategoryPaymentProcessing,
		CategoryUserRegistration,
	}, v.Categories())

	booking := v.Rules(CategoryBookingCreation)
	require.Len(t, booking, 5)
	assert.Equal(t, "class_availability", booking[0].Name)
	assert.Equal(t, "payment_method", booking[4].Name)
}

func TestValidate_WrongInputTypeIsRuleError(t *testing.T) {
	v, err := NewDefault(newStubStore(), zerolog.Nop())
	require.NoError(t, err)

	res := v.Validate(context.Background(), CategoryUserRegistration, "not an input", RuleContext{})
	assert.False(t, res.Valid)
	for _, e := range res.Errors {
		assert.Equal(t, CodeRuleError, e.Code)
	}
}

func TestDecodeInput(t *testing.T) {
	in, err := DecodeInput(CategoryBookingCreation, []byte(`{"class_id":"6f1c1f5e-8a61-4d2c-9a55-0b6d3f3a9c11","attendees":[{"name":"A","email":"a@b.co"}]}`))
	require.NoError(t, err)
	booking, ok := in.(*BookingInput)
	require.True(t, ok)
	assert.Len(t, booking.Attendees, 1)

	_, err = DecodeInput(CategoryPaymentProcessing, nil)
	assert.NoError(t, err)

	_, err = DecodeInput("unknown", []byte(`{}`))
	assert.Error(t, err)

	_, err = DecodeInput(CategoryClassCreation, []byte(`{"price":"free"}`))
	assert.Error(t, err)
}
