package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/lawncare-backend/internal/dto"
	"github.com/ignatzorin/lawncare-backend/internal/http/handlers/common"
	"github.com/ignatzorin/lawncare-backend/internal/service"
)

// AdminHandler обслуживает административные операции: проверку адресов,
// допуск подрядчиков, разбор споров и счёт платформы.
type AdminHandler struct {
	addresses *service.AddressService
	auth      *service.AuthService
	disputes  *service.DisputeService
	ledger    *service.LedgerService
}

// NewAdminHandler создаёт хэндлер.
func NewAdminHandler(
	addresses *service.AddressService,
	auth *service.AuthService,
	disputes *service.DisputeService,
	ledger *service.LedgerService,
) *AdminHandler {
	return &AdminHandler{
		addresses: addresses,
		auth:      auth,
		disputes:  disputes,
		ledger:    ledger,
	}
}

// ListPendingAddresses обрабатывает GET /admin/addresses/pending.
func (h *AdminHandler) ListPendingAddresses(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	addresses, err := h.addresses.ListPendingAddresses(c.Request.Context(), limit, offset)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, addresses)
}

// VerifyAddress обрабатывает POST /admin/addresses/:id/verify.
func (h *AdminHandler) VerifyAddress(c *gin.Context) {
	addressID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.VerifyAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.addresses.VerifyAddress(c.Request.Context(), addressID, req.SquareMeters); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "адрес проверен, ждавшие бронирования сверены по цене"})
}

// RejectAddress обрабатывает POST /admin/addresses/:id/reject.
func (h *AdminHandler) RejectAddress(c *gin.Context) {
	addressID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.addresses.RejectAddress(c.Request.Context(), addressID); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "адрес отклонён, ждавшие бронирования отменены"})
}

// ApproveContractor обрабатывает PUT /admin/contractors/:id/approval.
func (h *AdminHandler) ApproveContractor(c *gin.Context) {
	contractorID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ApproveContractorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.auth.ApproveContractor(c.Request.Context(), contractorID, req.Status, req.Probationary); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "статус допуска обновлён"})
}

// ListOpenDisputes обрабатывает GET /admin/disputes.
func (h *AdminHandler) ListOpenDisputes(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	disputes, err := h.disputes.ListOpenDisputes(c.Request.Context(), limit, offset)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, disputes)
}

// ResolveDispute обрабатывает POST /admin/disputes/:id/resolve.
func (h *AdminHandler) ResolveDispute(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.disputes.ResolveDispute(c.Request.Context(), disputeID, adminID, req.Resolution, req.RefundPercentage); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "спор разрешён"})
}

// GetPlatformAccount обрабатывает GET /admin/platform-account.
func (h *AdminHandler) GetPlatformAccount(c *gin.Context) {
	account, err := h.ledger.GetPlatformAccount(c.Request.Context())
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}
