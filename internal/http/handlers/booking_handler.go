package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/lawncare-backend/internal/dto"
	"github.com/ignatzorin/lawncare-backend/internal/http/handlers/common"
	"github.com/ignatzorin/lawncare-backend/internal/service"
)

const dateLayout = "2006-01-02"

// BookingHandler обслуживает маршруты бронирований со стороны заказчика.
type BookingHandler struct {
	bookings    *service.BookingService
	suggestions *service.SuggestionService
}

// NewBookingHandler создаёт хэндлер.
func NewBookingHandler(bookings *service.BookingService, suggestions *service.SuggestionService) *BookingHandler {
	return &BookingHandler{bookings: bookings, suggestions: suggestions}
}

// CreateBooking обрабатывает POST /bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	addressID, err := uuid.Parse(req.AddressID)
	if err != nil {
		common.RespondBadRequest(c, "неверный идентификатор адреса")
		return
	}

	var preferred *uuid.UUID
	if req.PreferredContractorID != nil {
		id, err := uuid.Parse(*req.PreferredContractorID)
		if err != nil {
			common.RespondBadRequest(c, "неверный идентификатор подрядчика")
			return
		}
		preferred = &id
	}

	date, err := time.Parse(dateLayout, req.ScheduledDate)
	if err != nil {
		common.RespondBadRequest(c, "дата должна быть в формате YYYY-MM-DD")
		return
	}

	booking, err := h.bookings.CreateBooking(c.Request.Context(), userID, service.CreateBookingInput{
		AddressID:             addressID,
		PreferredContractorID: preferred,
		ScheduledDate:         date,
		TimeSlot:              req.TimeSlot,
		GrassLength:           req.GrassLength,
		ClippingsRemoval:      req.ClippingsRemoval,
		PaymentMethod:         req.PaymentMethod,
	})
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewBookingResponse(booking, time.Now()))
}

// GetBooking обрабатывает GET /bookings/:id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
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

	c.JSON(http.StatusOK, dto.NewBookingResponse(booking, time.Now()))
}

// ListMyBookings обрабатывает GET /bookings/my.
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	bookings, err := h.bookings.ListCustomerBookings(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewBookingListResponse(bookings, time.Now()))
}

// CancelBooking обрабатывает POST /bookings/:id/cancel.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
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

	if err := h.bookings.CancelBooking(c.Request.Context(), bookingID, userID); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "бронирование отменено"})
}

// SetPaymentMethod обрабатывает PUT /bookings/:id/payment-method.
func (h *BookingHandler) SetPaymentMethod(c *gin.Context) {
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

	var req dto.SetPaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.bookings.SetPaymentMethod(c.Request.Context(), bookingID, userID, req.PaymentMethod); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "оплата зарезервирована"})
}

// ApprovePriceChange обрабатывает POST /bookings/:id/price/approve.
func (h *BookingHandler) ApprovePriceChange(c *gin.Context) {
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

	if err := h.bookings.ApprovePriceChange(c.Request.Context(), bookingID, userID); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "новая цена принята, зарезервируйте оплату заново"})
}

// RejectPriceChange обрабатывает POST /bookings/:id/price/reject.
func (h *BookingHandler) RejectPriceChange(c *gin.Context) {
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

	if err := h.bookings.RejectPriceChange(c.Request.Context(), bookingID, userID); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "новая цена отклонена, бронирование отменено"})
}

// ApproveCompletion обрабатывает POST /bookings/:id/approve-completion.
func (h *BookingHandler) ApproveCompletion(c *gin.Context) {
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

	if err := h.bookings.ApproveCompletion(c.Request.Context(), bookingID, userID); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "работы подтверждены, выплата освобождена"})
}

// RateBooking обрабатывает POST /bookings/:id/rating.
func (h *BookingHandler) RateBooking(c *gin.Context) {
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

	var req dto.RateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.bookings.RateBooking(c.Request.Context(), bookingID, userID, req.Rating); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "оценка сохранена"})
}

// ListSuggestions обрабатывает GET /bookings/:id/suggestions.
func (h *BookingHandler) ListSuggestions(c *gin.Context) {
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

	suggestions, err := h.suggestions.ListSuggestions(c.Request.Context(), bookingID, userID, role)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, suggestions)
}

// AcceptSuggestion обрабатывает POST /suggestions/:id/accept.
func (h *BookingHandler) AcceptSuggestion(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	suggestionID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	booking, err := h.suggestions.AcceptSuggestion(c.Request.Context(), suggestionID, userID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewBookingResponse(booking, time.Now()))
}

// RejectSuggestion обрабатывает POST /suggestions/:id/reject.
func (h *BookingHandler) RejectSuggestion(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	suggestionID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.suggestions.RejectSuggestion(c.Request.Context(), suggestionID, userID); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "предложение отклонено"})
}
