package rules

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hobbyist/hobbyist-api/internal/model"
)

var testNow = time.Date(2025, 9, 25, 12, 0, 0, 0, time.UTC)

func newTestValidator(t *testing.T, store Store) *Validator {
	t.Helper()
	v, err := NewDefault(store, zerolog.Nop(), WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	return v
}

func codes(res Result) []string {
	out := []string{}
	for _, e := range res.Errors {
		out = append(out, e.Code)
	}
	return out
}

func warningCodes(res Result) []string {
	out := []string{}
	for _, w := range res.Warnings {
		out = append(out, w.Code)
	}
	return out
}

func ptr[T any](v T) *T { return &v }

// ── user_registration ────────────────────────────────────────────────────────

func TestRegistration_CompleteProfile(t *testing.T) {
	v := newTestValidator(t, newStubStore())

	res := v.Validate(context.Background(), CategoryUserRegistration, RegistrationInput{
		Email:       "ana@example.com",
		FirstName:   "Ana",
		LastName:    "Lee",
		Phone:       "+14155550100",
		DateOfBirth: "1990-04-01",
	}, RuleContext{})

	assert.True(t, res.Valid)
	assert.Empty(t, res.Warnings)
}

func TestRegistration_DuplicateEmailIsCaseInsensitive(t *testing.T) {
	store := newStubStore()
	store.emails["ana@example.com"] = true
	v := newTestValidator(t, store)

	res := v.Validate(context.Background(), CategoryUserRegistration, RegistrationInput{
		Email: "Ana@Example.com", FirstName: "Ana", LastName: "Lee",
	}, RuleContext{})

	assert.False(t, res.Valid)
	assert.Equal(t, []string{CodeEmailAlreadyExists}, codes(res))
}

func TestRegistration_UnderageHaltsRemainingRules(t *testing.T) {
	v := newTestValidator(t, newStubStore())

	res := v.Validate(context.Background(), CategoryUserRegistration, RegistrationInput{
		Email:       "kid@example.com",
		DateOfBirth: "2012-01-01",
	}, RuleContext{})

	assert.False(t, res.Valid)
	// profile_completeness would have flagged the missing names.
	assert.Equal(t, []string{CodeMinimumAge}, codes(res))
	assert.Equal(t, 13, res.Errors[0].Context["user_age"])
}

func TestRegistration_MinorWarning(t *testing.T) {
	v := newTestValidator(t, newStubStore())

	res := v.Validate(context.Background(), CategoryUserRegistration, RegistrationInput{
		Email: "teen@example.com", FirstName: "T", LastName: "Een", Phone: "+14155550100",
		DateOfBirth: "2008-09-26",
	}, RuleContext{})

	assert.True(t, res.Valid)
	assert.Equal(t, []string{CodeMinorUser}, warningCodes(res))
}

func TestRegistration_InvalidDateOfBirth(t *testing.T) {
	v := newTestValidator(t, newStubStore())

	for _, dob := range []string{"01/02/1990", "2030-01-01"} {
		res := v.Validate(context.Background(), CategoryUserRegistration, RegistrationInput{
			Email: "a@example.com", FirstName: "A", LastName: "B", DateOfBirth: dob,
		}, RuleContext{})
		assert.Equal(t, []string{CodeInvalidDateOfBirth}, codes(res), dob)
	}
}

func TestRegistration_MissingFields(t *testing.T) {
	v := newTestValidator(t, newStubStore())

	res := v.Validate(context.Background(), CategoryUserRegistration, RegistrationInput{
		FirstName: "  ",
	}, RuleContext{})

	assert.False(t, res.Valid)
	fields := []string{}
	for _, e := range res.Errors {
		assert.Equal(t, CodeRequiredFieldMissing, e.Code)
		fields = append(fields, e.Field)
	}
	assert.Equal(t, []string{"first_name", "last_name", "email"}, fields)
	assert.Equal(t, []string{CodeRecommendedFieldMissing, CodeRecommendedFieldMissing}, warningCodes(res))
}

func TestAge(t *testing.T) {
	dob := time.Date(2000, 9, 26, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 24, Age(dob, testNow))
	assert.Equal(t, 25, Age(dob, testNow.AddDate(0, 0, 1)))
}

// ── class_creation ───────────────────────────────────────────────────────────

func seedInstructor(store *stubStore, verified bool, status model.PayoutAccountStatus) uuid.UUID {
	id := uuid.New()
	store.instructors[id] = &model.InstructorProfile{
		ID:                  id,
		Verified:            verified,
		PayoutAccountID:     ptr("acct_123"),
		PayoutAccountStatus: status,
		Specialties:         []string{"pottery"},
	}
	return id
}

func validClass() ClassInput {
	return ClassInput{
		Title:           "Wheel throwing",
		Price:           4500,
		DurationMinutes: 90,
		MaxParticipants: 8,
		LocationType:    model.LocationInPerson,
		StartsAt:        testNow.Add(72 * time.Hour),
	}
}

func TestClassCreation_Valid(t *testing.T) {
	store := newStubStore()
	inst := seedInstructor(store, true, model.PayoutActive)
	v := newTestValidator(t, store)

	res := v.Validate(context.Background(), CategoryClassCreation, validClass(), RuleContext{InstructorID: inst})
	assert.True(t, res.Valid, "%+v", res.Errors)
	assert.Empty(t, res.Warnings)
}

func TestClassCreation_InstructorChecks(t *testing.T) {
	store := newStubStore()
	v := newTestValidator(t, store)

	res := v.Validate(context.Background(), CategoryClassCreation, validClass(), RuleContext{})
	assert.Equal(t, []string{CodeInstructorIDRequired}, codes(res))

	res = v.Validate(context.Background(), CategoryClassCreation, validClass(), RuleContext{InstructorID: uuid.New()})
	assert.Equal(t, []string{CodeInstructorNotFound}, codes(res))

	inst := seedInstructor(store, false, model.PayoutPending)
	store.instructors[inst].Specialties = nil
	res = v.Validate(context.Background(), CategoryClassCreation, validClass(), RuleContext{InstructorID: inst})
	assert.Equal(t, []string{CodeInstructorNotVerified, CodePaymentAccountRequired}, codes(res))
	assert.Equal(t, []string{CodeMissingSpecialties}, warningCodes(res))
}

func TestClassCreation_ScheduleConflict(t *testing.T) {
	store := newStubStore()
	inst := seedInstructor(store, true, model.PayoutActive)
	in := validClass()

	existing := uuid.New()
	store.classes[existing] = &model.Class{
		ID: existing, InstructorID: inst, Title: "Glazing",
		StartsAt: in.StartsAt.Add(60 * time.Minute), DurationMinutes: 60, Status: model.ClassPublished,
	}
	cancelled := uuid.New()
	store.classes[cancelled] = &model.Class{
		ID: cancelled, InstructorID: inst, Title: "Old",
		StartsAt: in.StartsAt, DurationMinutes: 60, Status: model.ClassCancelled,
	}
	v := newTestValidator(t, store)

	res := v.Validate(context.Background(), CategoryClassCreation, in, RuleContext{InstructorID: inst})
	require.Equal(t, []string{CodeScheduleConflict}, codes(res))
	assert.Equal(t, "Glazing", res.Errors[0].Context["conflicting_class"])

	// Editing the conflicting class itself is not a conflict.
	res = v.Validate(context.Background(), CategoryClassCreation, in, RuleContext{InstructorID: inst, ClassID: existing})
	assert.True(t, res.Valid)

	// Back-to-back classes do not overlap.
	in.StartsAt = store.classes[existing].EndsAt()
	res = v.Validate(context.Background(), CategoryClassCreation, in, RuleContext{InstructorID: inst})
	assert.True(t, res.Valid)
}

func TestClassCreation_Pricing(t *testing.T) {
	store := newStubStore()
	inst := seedInstructor(store, true, model.PayoutActive)
	v := newTestValidator(t, store)
	rc := RuleContext{InstructorID: inst}

	in := validClass()
	in.Price = 499
	assert.Equal(t, []string{CodePriceTooLow}, codes(v.Validate(context.Background(), CategoryClassCreation, in, rc)))

	in.Price = 50001
	in.DurationMinutes = 120
	assert.Equal(t, []string{CodePriceTooHigh}, codes(v.Validate(context.Background(), CategoryClassCreation, in, rc)))

	in.Price = 40000
	in.DurationMinutes = 30
	res := v.Validate(context.Background(), CategoryClassCreation, in, rc)
	assert.True(t, res.Valid)
	assert.Equal(t, []string{CodeHighPricePerMinute}, warningCodes(res))
}

func TestClassCreation_Capacity(t *testing.T) {
	store := newStubStore()
	inst := seedInstructor(store, true, model.PayoutActive)
	v := newTestValidator(t, store)
	rc := RuleContext{InstructorID: inst}

	in := validClass()
	in.MaxParticipants = 0
	assert.Equal(t, []string{CodeMinimumCapacity}, codes(v.Validate(context.Background(), CategoryClassCreation, in, rc)))

	cases := []struct {
		location model.LocationType
		limit    int
	}{
		{model.LocationOnline, 50},
		{model.LocationInPerson, 30},
		{model.LocationHybrid, 25},
		{"", 30},
	}
	for _, tc := range cases {
		in.LocationType = tc.location
		in.MaxParticipants = tc.limit
		assert.Empty(t, v.Validate(context.Background(), CategoryClassCreation, in, rc).Warnings, tc.location)

		in.MaxParticipants = tc.limit + 1
		res := v.Validate(context.Background(), CategoryClassCreation, in, rc)
		assert.Equal(t, []string{CodeHighCapacity}, warningCodes(res), tc.location)
	}
}

// ── booking_creation ─────────────────────────────────────────────────────────

func seedClass(store *stubStore, startsIn time.Duration) *model.Class {
	c := &model.Class{
		ID:              uuid.New(),
		InstructorID:    uuid.New(),
		Title:           "Life drawing",
		Price:           2500,
		DurationMinutes: 60,
		MaxParticipants: 12,
		StartsAt:        testNow.Add(startsIn),
		Status:          model.ClassPublished,
	}
	store.classes[c.ID] = c
	return c
}

func attendees(n int) []model.Attendee {
	out := make([]model.Attendee, n)
	for i := range out {
		out[i] = model.Attendee{Name: "Guest", Email: "guest@example.com"}
	}
	return out
}

func TestBookingCreation_Valid(t *testing.T) {
	store := newStubStore()
	class := seedClass(store, 48*time.Hour)
	v := newTestValidator(t, store)

	res := v.Validate(context.Background(), CategoryBookingCreation, BookingInput{
		ClassID: class.ID, Attendees: attendees(2), PaymentMethodID: "pm_1",
	}, RuleContext{UserID: uuid.New()})

	assert.True(t, res.Valid, "%+v", res.Errors)
	assert.Empty(t, res.Warnings)
}

func TestBookingCreation_TooManyAttendees(t *testing.T) {
	store := newStubStore()
	class := seedClass(store, 48*time.Hour)
	class.MaxParticipants = 30
	v := newTestValidator(t, store)

	res := v.Validate(context.Background(), CategoryBookingCreation, BookingInput{
		ClassID: class.ID, Attendees: attendees(11), PaymentMethodID: "pm_1",
	}, RuleContext{UserID: uuid.New()})

	assert.False(t, res.Valid)
	assert.Equal(t, []string{CodeTooManyAttendees}, codes(res))
	assert.Equal(t, 11, res.Errors[0].Context["provided_attendees"])
}

func TestBookingCreation_MissingClassHalts(t *testing.T) {
	v := newTestValidator(t, newStubStore())

	res := v.Validate(context.Background(), CategoryBookingCreation, BookingInput{
		ClassID: uuid.New(),
	}, RuleContext{UserID: uuid.New()})

	assert.Equal(t, []string{CodeClassNotFound}, codes(res))
	assert.Empty(t, res.Warnings)
}

func TestBookingCreation_Availability(t *testing.T) {
	store := newStubStore()
	class := seedClass(store, -time.Hour)
	class.Status = model.ClassDraft
	class.CurrentParticipants = 11
	v := newTestValidator(t, store)

	res := v.Validate(context.Background(), CategoryBookingCreation, BookingInput{
		ClassID: class.ID, Attendees: attendees(2), PaymentMethodID: "pm_1",
	}, RuleContext{UserID: uuid.New()})

	assert.Equal(t, []string{
		CodeClassNotAvailable, CodeInsufficientCapacity, CodeClassInPast, CodeBookingWindowClosed,
	}, codes(res))
}

func TestBookingCreation_EmptyAttendeesCountAsOneSpot(t *testing.T) {
	store := newStubStore()
	class := seedClass(store, 48*time.Hour)
	class.CurrentParticipants = class.MaxParticipants
	v := newTestValidator(t, store)

	res := v.Validate(context.Background(), CategoryBookingCreation, BookingInput{ClassID: class.ID}, RuleContext{})
	assert.Equal(t, []string{CodeInsufficientCapacity, CodeAttendeesRequired}, codes(res))
	assert.Equal(t, 1, res.Errors[0].Context["spots_requested"])
}

func TestBookingCreation_Window(t *testing.T) {
	store := newStubStore()
	closing := seedClass(store, 150*time.Minute)
	custom := seedClass(store, 5*time.Hour)
	custom.BookingCutoffHours = ptr(6)
	v := newTestValidator(t, store)
	rc := RuleContext{UserID: uuid.New()}

	res := v.Validate(context.Background(), CategoryBookingCreation, BookingInput{
		ClassID: closing.ID, Attendees: attendees(1), PaymentMethodID: "pm_1",
	}, rc)
	assert.True(t, res.Valid)
	assert.Equal(t, []string{CodeBookingWindowClosing}, warningCodes(res))

	res = v.Validate(context.Background(), CategoryBookingCreation, BookingInput{
		ClassID: custom.ID, Attendees: attendees(1), PaymentMethodID: "pm_1",
	}, rc)
	assert.Equal(t, []string{CodeBookingWindowClosed}, codes(res))
	assert.Equal(t, 6, res.Errors[0].Context["cutoff_hours"])
}

func TestBookingCreation_Duplicate(t *testing.T) {
	store := newStubStore()
	class := seedClass(store, 48*time.Hour)
	user := uuid.New()
	existing := &model.Booking{ID: uuid.New(), UserID: user, ClassID: class.ID, Status: model.BookingPending}
	store.bookings[existing.ID] = existing
	v := newTestValidator(t, store)

	in := BookingInput{ClassID: class.ID, Attendees: attendees(1), PaymentMethodID: "pm_1"}
	res := v.Validate(context.Background(), CategoryBookingCreation, in, RuleContext{UserID: user})
	require.Equal(t, []string{CodeDuplicateBooking}, codes(res))
	assert.Equal(t, existing.ID, res.Errors[0].Context["existing_booking_id"])

	existing.Status = model.BookingCancelled
	res = v.Validate(context.Background(), CategoryBookingCreation, in, RuleContext{UserID: user})
	assert.True(t, res.Valid)
}

func TestBookingCreation_AttendeeDetails(t *testing.T) {
	store := newStubStore()
	class := seedClass(store, 48*time.Hour)
	v := newTestValidator(t, store)

	res := v.Validate(context.Background(), CategoryBookingCreation, BookingInput{
		ClassID: class.ID,
		Attendees: []model.Attendee{
			{Name: "Ok", Email: "ok@example.com", Phone: "+44 20 7946 0958"},
			{Name: " ", Email: "not-an-email", Phone: "call me"},
		},
	}, RuleContext{UserID: uuid.New()})

	assert.Equal(t, []string{CodeAttendeeNameRequired, CodeAttendeeEmailInvalid}, codes(res))
	assert.Equal(t, "attendees[1].name", res.Errors[0].Field)
	assert.Equal(t, []string{CodeAttendeePhoneInvalid, CodePaymentMethodMissing}, warningCodes(res))
}

func TestBookingCreation_StoreFailureIsRuleError(t *testing.T) {
	store := newStubStore()
	store.err = errors.New("connection reset")
	v := newTestValidator(t, store)

	res := v.Validate(context.Background(), CategoryBookingCreation, BookingInput{
		ClassID: uuid.New(), Attendees: attendees(1), PaymentMethodID: "pm_1",
	}, RuleContext{UserID: uuid.New()})

	assert.Equal(t, []string{CodeRuleError, CodeRuleError, CodeRuleError}, codes(res))
}

func TestValidEmailAndPhone(t *testing.T) {
	assert.True(t, ValidEmail("a@b.co"))
	assert.False(t, ValidEmail("a b@c.d"))
	assert.False(t, ValidEmail("a@b"))

	assert.True(t, ValidPhone("+14155550100"))
	assert.True(t, ValidPhone("415 555 0100"))
	assert.False(t, ValidPhone("+0123"))
	assert.False(t, ValidPhone("+1234567890123456"))
}

// ── payment_processing ───────────────────────────────────────────────────────

func TestPaymentProcessing(t *testing.T) {
	store := newStubStore()
	inst := seedInstructor(store, true, model.PayoutActive)
	booking := &model.Booking{ID: uuid.New(), Amount: 5000, Status: model.BookingPending}
	store.bookings[booking.ID] = booking
	v := newTestValidator(t, store)
	rc := RuleContext{InstructorID: inst}

	res := v.Validate(context.Background(), CategoryPaymentProcessing, PaymentInput{BookingID: booking.ID, Amount: 5000}, rc)
	assert.True(t, res.Valid)

	res = v.Validate(context.Background(), CategoryPaymentProcessing, PaymentInput{BookingID: booking.ID, Amount: 4999}, rc)
	require.Equal(t, []string{CodeAmountMismatch}, codes(res))
	assert.Equal(t, SeverityCritical, res.Errors[0].Severity)
	assert.Equal(t, int64(5000), res.Errors[0].Context["expected_amount"])

	res = v.Validate(context.Background(), CategoryPaymentProcessing, PaymentInput{BookingID: uuid.New(), Amount: 5000}, rc)
	assert.Equal(t, []string{CodeBookingNotFound}, codes(res))
}

func TestPaymentProcessing_PayoutAccount(t *testing.T) {
	store := newStubStore()
	booking := &model.Booking{ID: uuid.New(), Amount: 5000}
	store.bookings[booking.ID] = booking
	v := newTestValidator(t, store)
	in := PaymentInput{BookingID: booking.ID, Amount: 5000}

	restricted := seedInstructor(store, true, model.PayoutRestricted)
	res := v.Validate(context.Background(), CategoryPaymentProcessing, in, RuleContext{InstructorID: restricted})
	require.Equal(t, []string{CodePayoutAccountInactive}, codes(res))
	assert.Equal(t, model.PayoutRestricted, res.Errors[0].Context["account_status"])

	missing := seedInstructor(store, true, model.PayoutPending)
	store.instructors[missing].PayoutAccountID = nil
	res = v.Validate(context.Background(), CategoryPaymentProcessing, in, RuleContext{InstructorID: missing})
	assert.Equal(t, []string{CodePayoutAccountMissing}, codes(res))

	res = v.Validate(context.Background(), CategoryPaymentProcessing, in, RuleContext{InstructorID: uuid.New()})
	assert.Equal(t, []string{CodeInstructorNotFound}, codes(res))
}

// ── booking_cancellation ─────────────────────────────────────────────────────

func seedBooking(store *stubStore, startsIn time.Duration) *model.Booking {
	class := seedClass(store, startsIn)
	b := &model.Booking{ID: uuid.New(), ClassID: class.ID, Amount: 10000, Status: model.BookingConfirmed}
	store.bookings[b.ID] = b
	return b
}

func TestCancellation_OutsidePolicyWindowHasNoWarning(t *testing.T) {
	store := newStubStore()
	b := seedBooking(store, 30*time.Hour)
	v := newTestValidator(t, store)

	res := v.Validate(context.Background(), CategoryBookingCancellation, CancellationInput{BookingID: b.ID}, RuleContext{})
	assert.True(t, res.Valid)
	assert.Empty(t, res.Warnings)
}

func TestCancellation_InsidePolicyWindowReducesRefund(t *testing.T) {
	store := newStubStore()
	b := seedBooking(store, 12*time.Hour)
	v := newTestValidator(t, store)

	res := v.Validate(context.Background(), CategoryBookingCancellation, CancellationInput{BookingID: b.ID}, RuleContext{})
	assert.True(t, res.Valid)
	require.Equal(t, []string{CodeReducedRefund}, warningCodes(res))
	assert.InDelta(t, 50.0, res.Warnings[0].Context["refund_percentage"], 0.001)
	assert.Contains(t, res.Warnings[0].Message, "50%")
}

func TestCancellation_StatusAndTiming(t *testing.T) {
	store := newStubStore()
	cancelled := seedBooking(store, 48*time.Hour)
	cancelled.Status = model.BookingCancelled
	completed := seedBooking(store, -2*time.Hour)
	completed.Status = model.BookingCompleted
	v := newTestValidator(t, store)

	res := v.Validate(context.Background(), CategoryBookingCancellation, CancellationInput{BookingID: cancelled.ID}, RuleContext{})
	assert.Equal(t, []string{CodeBookingAlreadyCancelled}, codes(res))

	res = v.Validate(context.Background(), CategoryBookingCancellation, CancellationInput{BookingID: completed.ID}, RuleContext{})
	assert.Equal(t, []string{CodeBookingCompleted, CodeClassAlreadyOccurred}, codes(res))

	res = v.Validate(context.Background(), CategoryBookingCancellation, CancellationInput{BookingID: uuid.New()}, RuleContext{})
	assert.Equal(t, []string{CodeBookingNotFound}, codes(res))
}

func TestCancellation_RefundTolerance(t *testing.T) {
	store := newStubStore()
	b := seedBooking(store, 12*time.Hour) // 50% of 10000
	v := newTestValidator(t, store)

	cases := []struct {
		refund int64
		ok     bool
	}{
		{5000, true},
		{5100, true},
		{4900, true},
		{5101, false},
		{10000, false},
	}
	for _, tc := range cases {
		res := v.Validate(context.Background(), CategoryBookingCancellation, CancellationInput{
			BookingID: b.ID, RefundAmount: ptr(tc.refund),
		}, RuleContext{})
		assert.Equal(t, tc.ok, res.Valid, "refund %d", tc.refund)
		if !tc.ok {
			require.Equal(t, []string{CodeRefundCalculationError}, codes(res))
			assert.Equal(t, int64(5000), res.Errors[0].Context["expected_refund"])
		}
	}
}

func TestRefundPercentage(t *testing.T) {
	policy := model.CancellationPolicy{HoursBeforeClass: 24, RefundPercentage: 80}

	assert.Equal(t, 80.0, RefundPercentage(policy, 24))
	assert.Equal(t, 80.0, RefundPercentage(policy, 100))
	assert.InDelta(t, 40.0, RefundPercentage(policy, 12), 1e-9)
	assert.Equal(t, 0.0, RefundPercentage(policy, 0))
	assert.Equal(t, 0.0, RefundPercentage(policy, -1))

	assert.Equal(t, int64(3333), ExpectedRefund(10000, 33.33))
	assert.Equal(t, int64(1), ExpectedRefund(1, 50))
}

func TestCancellationRefund_UsesDefaultPolicy(t *testing.T) {
	class := &model.Class{StartsAt: testNow.Add(6 * time.Hour)}
	refund, pct := CancellationRefund(&model.Booking{Amount: 2000}, class, testNow)
	assert.InDelta(t, 25.0, pct, 1e-9)
	assert.Equal(t, int64(500), refund)
}
