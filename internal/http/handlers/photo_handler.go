package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/lawncare-backend/internal/http/handlers/common"
	"github.com/ignatzorin/lawncare-backend/internal/service"
	"github.com/ignatzorin/lawncare-backend/internal/storage"
)

// PhotoHandler принимает и отдаёт фотографии выполнения работ.
type PhotoHandler struct {
	photos *service.PhotoService
	store  *storage.PhotoStorage
}

// NewPhotoHandler создаёт хэндлер.
func NewPhotoHandler(photos *service.PhotoService, store *storage.PhotoStorage) *PhotoHandler {
	return &PhotoHandler{photos: photos, store: store}
}

// UploadPhoto обрабатывает POST /bookings/:id/photos. Тип фотографии (before
// или after) передаётся полем формы type.
func (h *PhotoHandler) UploadPhoto(c *gin.Context) {
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

	photoType := c.PostForm("type")
	if photoType == "" {
		common.RespondBadRequest(c, "поле type обязательно: before или after")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		common.RespondBadRequest(c, "поле file обязательно")
		return
	}
	if file.Size == 0 {
		common.RespondBadRequest(c, "файл не может быть пустым")
		return
	}
	if file.Size > h.store.MaxUploadBytes() {
		common.RespondBadRequest(c, "файл превышает допустимый размер")
		return
	}

	src, err := file.Open()
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}
	defer src.Close()

	photo, err := h.photos.UploadPhoto(c.Request.Context(), bookingID, userID, photoType, file.Filename, src)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, photo)
}

// ListPhotos обрабатывает GET /bookings/:id/photos.
func (h *PhotoHandler) ListPhotos(c *gin.Context) {
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

	photos, err := h.photos.ListPhotos(c.Request.Context(), bookingID, userID, role)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, photos)
}
