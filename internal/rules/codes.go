package rules

// Error and warning codes reported by the built-in rules.
const (
	CodeRuleError = "VALIDATION_RULE_ERROR"

	// user_registration
	CodeEmailAlreadyExists      = "EMAIL_ALREADY_EXISTS"
	CodeMinimumAge              = "MINIMUM_AGE_REQUIREMENT"
	CodeInvalidDateOfBirth      = "INVALID_DATE_OF_BIRTH"
	CodeMinorUser               = "MINOR_USER"
	CodeRequiredFieldMissing    = "REQUIRED_FIELD_MISSING"
	CodeRecommendedFieldMissing = "RECOMMENDED_FIELD_MISSING"

	// class_creation
	CodeInstructorIDRequired   = "INSTRUCTOR_ID_REQUIRED"
	CodeInstructorNotFound     = "INSTRUCTOR_NOT_FOUND"
	CodeInstructorNotVerified  = "INSTRUCTOR_NOT_VERIFIED"
	CodePaymentAccountRequired = "PAYMENT_ACCOUNT_REQUIRED"
	CodeMissingSpecialties     = "MISSING_SPECIALTIES"
	CodeScheduleConflict       = "SCHEDULE_CONFLICT"
	CodePriceTooLow            = "PRICE_TOO_LOW"
	CodePriceTooHigh           = "PRICE_TOO_HIGH"
	CodeHighPricePerMinute     = "HIGH_PRICE_PER_MINUTE"
	CodeMinimumCapacity        = "MINIMUM_CAPACITY"
	CodeHighCapacity           = "HIGH_CAPACITY"

	// booking_creation
	CodeClassNotFound        = "CLASS_NOT_FOUND"
	CodeClassNotAvailable    = "CLASS_NOT_AVAILABLE"
	CodeInsufficientCapacity = "INSUFFICIENT_CAPACITY"
	CodeClassInPast          = "CLASS_IN_PAST"
	CodeBookingWindowClosed  = "BOOKING_WINDOW_CLOSED"
	CodeBookingWindowClosing = "BOOKING_WINDOW_CLOSING"
	CodeDuplicateBooking     = "DUPLICATE_BOOKING"
	CodeAttendeesRequired    = "ATTENDEES_REQUIRED"
	CodeTooManyAttendees     = "TOO_MANY_ATTENDEES"
	CodeAttendeeNameRequired = "ATTENDEE_NAME_REQUIRED"
	CodeAttendeeEmailInvalid = "ATTENDEE_EMAIL_INVALID"
	CodeAttendeePhoneInvalid = "ATTENDEE_PHONE_INVALID"
	CodePaymentMethodMissing = "PAYMENT_METHOD_MISSING"

	// payment_processing
	CodeBookingNotFound       = "BOOKING_NOT_FOUND"
	CodeAmountMismatch        = "AMOUNT_MISMATCH"
	CodePayoutAccountMissing  = "PAYOUT_ACCOUNT_MISSING"
	CodePayoutAccountInactive = "PAYOUT_ACCOUNT_INACTIVE"

	// booking_cancellation
	CodeBookingAlreadyCancelled = "BOOKING_ALREADY_CANCELLED"
	CodeBookingCompleted        = "BOOKING_COMPLETED"
	CodeClassAlreadyOccurred    = "CLASS_ALREADY_OCCURRED"
	CodeReducedRefund           = "REDUCED_REFUND"
	CodeRefundCalculationError  = "REFUND_CALCULATION_ERROR"
)
