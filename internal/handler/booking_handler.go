package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hobbyist/hobbyist-api/internal/middleware"
	"github.com/hobbyist/hobbyist-api/internal/model"
	"github.com/hobbyist/hobbyist-api/internal/response"
	"github.com/hobbyist/hobbyist-api/internal/service"
	"github.com/hobbyist/hobbyist-api/internal/validator"
)

// BookingHandler handles the booking lifecycle endpoints.
type BookingHandler struct {
	bookingService *service.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookingService *service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// ListBookings godoc
// GET /api/v1/bookings
func (h *BookingHandler) ListBookings(c *gin.Context) {
	cl, err := claims(c)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	bookings, err := h.bookingService.ListMine(c.Request.Context(), cl.UserID)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"bookings": bookings})
}

// GetBooking godoc
// GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	cl, err := claims(c)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	booking, err := h.bookingService.Get(c.Request.Context(), cl.UserID, cl.Role, id)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"booking": booking})
}

// CreateBooking godoc
// POST /api/v1/bookings
// Runs the booking rules and reserves spots in a pending booking.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	cl, err := claims(c)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	var req model.CreateBookingRequest
	if err := validator.Bind(c, &req); err != nil {
		middleware.Abort(c, err)
		return
	}

	booking, warnings, err := h.bookingService.Create(c.Request.Context(), cl.UserID, &req)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	response.Success(c, http.StatusCreated, withWarnings("booking", booking, warnings))
}

// ConfirmBooking godoc
// POST /api/v1/bookings/:id/confirm
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	cl, err := claims(c)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	var req model.ConfirmBookingRequest
	if err := validator.Bind(c, &req); err != nil {
		middleware.Abort(c, err)
		return
	}

	booking, warnings, err := h.bookingService.Confirm(c.Request.Context(), cl.UserID, id, &req)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	response.Success(c, http.StatusOK, withWarnings("booking", booking, warnings))
}

// CancelBooking godoc
// POST /api/v1/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	cl, err := claims(c)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	var req model.CancelBookingRequest
	if c.Request.ContentLength != 0 {
		if err := validator.Bind(c, &req); err != nil {
			middleware.Abort(c, err)
			return
		}
	}

	booking, warnings, err := h.bookingService.Cancel(c.Request.Context(), cl.UserID, cl.Role, id, &req)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	response.Success(c, http.StatusOK, withWarnings("booking", booking, warnings))
}
