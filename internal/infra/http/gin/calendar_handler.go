package ginserver

import (
	"fmt"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"eventbook/internal/app/commands"
	"eventbook/internal/app/dto"
	availabilityapp "eventbook/internal/app/handlers/availability"
	"eventbook/internal/app/queries"
	domainbooking "eventbook/internal/domain/booking"
)

type CalendarHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type blockedRequest struct {
	Blocked *bool `json:"blocked"`
}

type capacityRequest struct {
	Capacity int `json:"capacity"`
}

func (h CalendarHandler) Slot(c *gin.Context) {
	q := availabilityapp.GetSlotQuery{SupplierID: c.Param("id"), Date: c.Param("date")}
	result, err := queries.Ask[availabilityapp.GetSlotQuery, dto.Slot](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CalendarHandler) BlockedDates(c *gin.Context) {
	q := availabilityapp.ListBlockedDatesQuery{SupplierID: c.Param("id"), From: c.Query("from"), To: c.Query("to")}
	result, err := queries.Ask[availabilityapp.ListBlockedDatesQuery, dto.BlockedDates](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CalendarHandler) SetBlocked(c *gin.Context) {
	var req blockedRequest
	if err := bindStrict(c, &req); err != nil {
		writeError(c, err)
		return
	}
	if req.Blocked == nil {
		writeError(c, fmt.Errorf("%w: blocked is required", domainbooking.ErrValidation))
		return
	}
	cmd := availabilityapp.SetBlockedCommand{SupplierID: c.Param("id"), Date: c.Param("date"), Blocked: *req.Blocked}
	result, err := commands.Dispatch[availabilityapp.SetBlockedCommand, *dto.Slot](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CalendarHandler) SetCapacity(c *gin.Context) {
	var req capacityRequest
	if err := bindStrict(c, &req); err != nil {
		writeError(c, err)
		return
	}
	cmd := availabilityapp.SetCapacityCommand{SupplierID: c.Param("id"), Date: c.Param("date"), Capacity: req.Capacity}
	result, err := commands.Dispatch[availabilityapp.SetCapacityCommand, *dto.Slot](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ CalendarHTTP = CalendarHandler{}
