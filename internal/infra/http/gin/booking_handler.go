package ginserver

import (
	"fmt"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"eventbook/internal/app/commands"
	"eventbook/internal/app/dto"
	bookingapp "eventbook/internal/app/handlers/booking"
	"eventbook/internal/app/queries"
	domainbooking "eventbook/internal/domain/booking"
)

const idempotencyHeader = "Idempotency-Key"

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type createBookingRequest struct {
	BookingID      string   `json:"booking_id"`
	SupplierID     string   `json:"supplier_id"`
	PackageID      string   `json:"package_id"`
	EventName      string   `json:"event_name"`
	EventLocation  string   `json:"event_location"`
	EventDate      string   `json:"event_date"`
	EventTime      string   `json:"event_time"`
	GuestCount     int      `json:"guest_count"`
	Customizations []string `json:"customizations"`
	TotalPrice     int64    `json:"total_price"`
	Currency       string   `json:"currency"`
}

type transitionRequest struct {
	TargetStatus string `json:"target_status"`
	Reason       string `json:"reason"`
	RefundAmount *int64 `json:"refund_amount"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type paymentRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type reviewRequest struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

func (h BookingHandler) Create(c *gin.Context) {
	var req createBookingRequest
	if err := bindStrict(c, &req); err != nil {
		writeError(c, err)
		return
	}
	cmd := bookingapp.CreateBookingCommand{
		BookingID:       req.BookingID,
		SupplierID:      req.SupplierID,
		PackageID:       req.PackageID,
		EventName:       req.EventName,
		EventLocation:   req.EventLocation,
		EventDate:       req.EventDate,
		EventTime:       req.EventTime,
		GuestCount:      req.GuestCount,
		Customizations:  req.Customizations,
		TotalPrice:      req.TotalPrice,
		Currency:        req.Currency,
		IdempotencyKeyV: c.GetHeader(idempotencyHeader),
	}
	result, err := commands.Dispatch[bookingapp.CreateBookingCommand, *bookingapp.CreateBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	q := bookingapp.GetBookingQuery{BookingID: c.Param("id")}
	result, err := queries.Ask[bookingapp.GetBookingQuery, dto.Booking](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) ListMine(c *gin.Context) {
	q := bookingapp.ListClientBookingsQuery{Status: c.Query("status")}
	result, err := queries.Ask[bookingapp.ListClientBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) ListSupplier(c *gin.Context) {
	q := bookingapp.ListSupplierBookingsQuery{Status: c.Query("status")}
	result, err := queries.Ask[bookingapp.ListSupplierBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Transition(c *gin.Context) {
	var req transitionRequest
	if err := bindStrict(c, &req); err != nil {
		writeError(c, err)
		return
	}
	cmd := bookingapp.TransitionBookingCommand{
		BookingID:    c.Param("id"),
		TargetStatus: req.TargetStatus,
		Reason:       req.Reason,
		RefundAmount: req.RefundAmount,
	}
	result, err := commands.Dispatch[bookingapp.TransitionBookingCommand, *bookingapp.TransitionResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) PreviewCancellation(c *gin.Context) {
	q := bookingapp.PreviewCancellationQuery{BookingID: c.Param("id")}
	result, err := queries.Ask[bookingapp.PreviewCancellationQuery, dto.Settlement](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	var req cancelRequest
	if c.Request.ContentLength != 0 {
		if err := bindStrict(c, &req); err != nil {
			writeError(c, err)
			return
		}
	}
	cmd := bookingapp.CancelBookingCommand{
		BookingID:       c.Param("id"),
		Reason:          req.Reason,
		IdempotencyKeyV: c.GetHeader(idempotencyHeader),
	}
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, *bookingapp.CancelBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) RecordPayment(c *gin.Context) {
	var req paymentRequest
	if err := bindStrict(c, &req); err != nil {
		writeError(c, err)
		return
	}
	cmd := bookingapp.RecordPaymentCommand{BookingID: c.Param("id"), Amount: req.Amount, Currency: req.Currency}
	result, err := commands.Dispatch[bookingapp.RecordPaymentCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) SubmitReview(c *gin.Context) {
	var req reviewRequest
	if err := bindStrict(c, &req); err != nil {
		writeError(c, err)
		return
	}
	cmd := bookingapp.SubmitReviewCommand{BookingID: c.Param("id"), Rating: req.Rating, Text: req.Text}
	result, err := commands.Dispatch[bookingapp.SubmitReviewCommand, *dto.Review](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) SupplierReviews(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		writeError(c, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		writeError(c, err)
		return
	}
	q := bookingapp.ListSupplierReviewsQuery{SupplierID: c.Param("id"), Limit: limit, Offset: offset}
	result, err := queries.Ask[bookingapp.ListSupplierReviewsQuery, dto.ReviewCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domainbooking.ErrValidation, name)
	}
	return n, nil
}

var _ BookingHTTP = BookingHandler{}
