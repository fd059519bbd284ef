package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/lawncare-backend/internal/dto"
	"github.com/ignatzorin/lawncare-backend/internal/http/handlers/common"
	"github.com/ignatzorin/lawncare-backend/internal/service"
)

// ContractorHandler обслуживает маршруты подрядчика: анкета, лента доступных
// бронирований, работа и деньги.
type ContractorHandler struct {
	auth        *service.AuthService
	bookings    *service.BookingService
	suggestions *service.SuggestionService
	ledger      *service.LedgerService
}

// NewContractorHandler создаёт хэндлер.
func NewContractorHandler(
	auth *service.AuthService,
	bookings *service.BookingService,
	suggestions *service.SuggestionService,
	ledger *service.LedgerService,
) *ContractorHandler {
	return &ContractorHandler{
		auth:        auth,
		bookings:    bookings,
		suggestions: suggestions,
		ledger:      ledger,
	}
}

// UpsertProfile обрабатывает PUT /contractor/profile.
func (h *ContractorHandler) UpsertProfile(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.UpsertContractorProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	profile, err := h.auth.UpsertContractorProfile(c.Request.Context(), userID, req.DisplayName, req.ServiceArea)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// GetProfile обрабатывает GET /contractor/profile.
func (h *ContractorHandler) GetProfile(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	profile, err := h.auth.GetContractorProfile(c.Request.Context(), userID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// ListAvailableBookings обрабатывает GET /contractor/bookings/available.
func (h *ContractorHandler) ListAvailableBookings(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	bookings, err := h.bookings.ListAvailableBookings(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewBookingListResponse(bookings, time.Now()))
}

// ListMyBookings обрабатывает GET /contractor/bookings.
func (h *ContractorHandler) ListMyBookings(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	bookings, err := h.bookings.ListContractorBookings(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewBookingListResponse(bookings, time.Now()))
}

// AcceptBooking обрабатывает POST /bookings/:id/accept.
func (h *ContractorHandler) AcceptBooking(c *gin.Context) {
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

	booking, err := h.bookings.AcceptBooking(c.Request.Context(), bookingID, userID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewBookingResponse(booking, time.Now()))
}

// CompleteBooking обрабатывает POST /bookings/:id/complete.
func (h *ContractorHandler) CompleteBooking(c *gin.Context) {
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

	if err := h.bookings.CompleteBooking(c.Request.Context(), bookingID, userID); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "работы завершены, ожидается подтверждение заказчика"})
}

// SuggestAlternative обрабатывает POST /bookings/:id/suggestions.
func (h *ContractorHandler) SuggestAlternative(c *gin.Context) {
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

	var req dto.SuggestAlternativeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		common.RespondBadRequest(c, "дата должна быть в формате YYYY-MM-DD")
		return
	}

	suggestion, err := h.suggestions.SuggestAlternative(c.Request.Context(), bookingID, userID, date, req.TimeSlot)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, suggestion)
}

// GetBalance обрабатывает GET /contractor/balance.
func (h *ContractorHandler) GetBalance(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	balance, err := h.ledger.GetContractorBalance(c.Request.Context(), userID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, balance)
}

// Withdraw обрабатывает POST /contractor/withdrawals.
func (h *ContractorHandler) Withdraw(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	withdrawal, err := h.ledger.Withdraw(c.Request.Context(), userID, req.Amount)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, withdrawal)
}

// ListWithdrawals обрабатывает GET /contractor/withdrawals.
func (h *ContractorHandler) ListWithdrawals(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	withdrawals, err := h.ledger.ListWithdrawals(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, withdrawals)
}

// ListTransactions обрабатывает GET /transactions — история проводок
// пользователя любой роли.
func (h *ContractorHandler) ListTransactions(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	transactions, err := h.ledger.ListTransactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, transactions)
}
