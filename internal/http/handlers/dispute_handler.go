package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/lawncare-backend/internal/dto"
	"github.com/ignatzorin/lawncare-backend/internal/http/handlers/common"
	"github.com/ignatzorin/lawncare-backend/internal/models"
	"github.com/ignatzorin/lawncare-backend/internal/pkg/apperror"
	"github.com/ignatzorin/lawncare-backend/internal/service"
)

// DisputeHandler обслуживает споры по бронированиям.
type DisputeHandler struct {
	disputes *service.DisputeService
	bookings *service.BookingService
}

// NewDisputeHandler создаёт хэндлер.
func NewDisputeHandler(disputes *service.DisputeService, bookings *service.BookingService) *DisputeHandler {
	return &DisputeHandler{disputes: disputes, bookings: bookings}
}

// OpenDispute обрабатывает POST /bookings/:id/disputes.
func (h *DisputeHandler) OpenDispute(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	bookingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.OpenDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.OpenDispute(c.Request.Context(), bookingID, userID, service.OpenDisputeInput{
		Reason:                req.Reason,
		Description:           req.Description,
		SuggestedRefundAmount: req.SuggestedRefundAmount,
	})
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dispute)
}

// GetDispute обрабатывает GET /disputes/:id.
func (h *DisputeHandler) GetDispute(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, err := common.CurrentUserRole(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.GetDispute(c.Request.Context(), disputeID, userID, role)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}

// ListBookingDisputes обрабатывает GET /bookings/:id/disputes. Видимость
// совпадает с видимостью самого бронирования.
func (h *DisputeHandler) ListBookingDisputes(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, err := common.CurrentUserRole(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	bookingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	booking, err := h.bookings.GetBooking(c.Request.Context(), bookingID, userID, role)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}
	if role != models.RoleAdmin && booking.CustomerID != userID &&
		(booking.ContractorID == nil || *booking.ContractorID != userID) {
		common.RespondServiceError(c, apperror.ErrForbidden)
		return
	}

	disputes, err := h.disputes.ListBookingDisputes(c.Request.Context(), bookingID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, disputes)
}
