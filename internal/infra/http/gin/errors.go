package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"eventbook/internal/app/services/auth"
	"eventbook/internal/domain/availability"
	domainbooking "eventbook/internal/domain/booking"
	"eventbook/internal/domain/catalog"
	"eventbook/internal/domain/reviews"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type errorMapping struct {
	target error
	status int
	code   string
}

// errorMappings is checked in order; the first match wins.
var errorMappings = []errorMapping{
	{auth.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{auth.ErrInvalidToken, http.StatusUnauthorized, "unauthorized"},
	{auth.ErrTokenRequired, http.StatusUnauthorized, "unauthorized"},
	{domainbooking.ErrPermissionDenied, http.StatusForbidden, "permission_denied"},
	{domainbooking.ErrValidation, http.StatusBadRequest, "validation_error"},
	{reviews.ErrInvalidRating, http.StatusBadRequest, "validation_error"},
	{availability.ErrInvalidCapacity, http.StatusBadRequest, "validation_error"},
	{availability.ErrCapacityBelowBooked, http.StatusBadRequest, "validation_error"},
	{availability.ErrInvalidSlotKey, http.StatusBadRequest, "validation_error"},
	{domainbooking.ErrDateConflict, http.StatusConflict, "date_conflict"},
	{domainbooking.ErrStorageConflict, http.StatusConflict, "storage_conflict"},
	{domainbooking.ErrBookingExists, http.StatusConflict, "booking_exists"},
	{reviews.ErrAlreadyReviewed, http.StatusConflict, "already_reviewed"},
	{domainbooking.ErrInvalidTransition, http.StatusUnprocessableEntity, "invalid_transition"},
	{reviews.ErrNotReviewable, http.StatusUnprocessableEntity, "invalid_transition"},
	{domainbooking.ErrBookingNotFound, http.StatusNotFound, "not_found"},
	{reviews.ErrNotFound, http.StatusNotFound, "not_found"},
	{catalog.ErrPackageNotFound, http.StatusNotFound, "not_found"},
}

func statusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

// writeError renders err and records it on the gin context for the request log.
func writeError(c *gin.Context, err error) {
	status, code := statusFor(err)
	_ = c.Error(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, errorBody{Error: msg, Code: code})
}
