package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/lawncare-backend/internal/dto"
	"github.com/ignatzorin/lawncare-backend/internal/http/handlers/common"
	"github.com/ignatzorin/lawncare-backend/internal/service"
)

// AddressHandler обслуживает адреса заказчика.
type AddressHandler struct {
	addresses *service.AddressService
}

// NewAddressHandler создаёт хэндлер.
func NewAddressHandler(addresses *service.AddressService) *AddressHandler {
	return &AddressHandler{addresses: addresses}
}

// CreateAddress обрабатывает POST /addresses.
func (h *AddressHandler) CreateAddress(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	address, err := h.addresses.CreateAddress(c.Request.Context(), userID, service.CreateAddressInput{
		Line:                 req.Line,
		City:                 req.City,
		ServiceArea:          req.ServiceArea,
		DeclaredSquareMeters: req.DeclaredSquareMeters,
	})
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, address)
}

// ListAddresses обрабатывает GET /addresses.
func (h *AddressHandler) ListAddresses(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	addresses, err := h.addresses.ListAddresses(c.Request.Context(), userID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, addresses)
}
