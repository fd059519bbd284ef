package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/lawncare-backend/internal/logger"
	"github.com/ignatzorin/lawncare-backend/internal/pkg/apperror"
	"github.com/ignatzorin/lawncare-backend/internal/repository"
)

// ErrorHandler обрабатывает ошибки централизованно: известные доменные ошибки
// превращаются в понятный клиенту ответ, остальное маскируется как внутренняя
// ошибка и уходит только в лог.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"error":  err.Error(),
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Error("request error")
		}

		statusCode, body := errorResponse(err)
		c.JSON(statusCode, body)
	}
}

// errorResponse подбирает статус и тело ответа по типу ошибки.
func errorResponse(err error) (int, gin.H) {
	var photosErr *apperror.PhotosInsufficientError
	if errors.As(err, &photosErr) {
		return photosErr.HTTPStatus(), gin.H{
			"error":           photosErr.Error(),
			"code":            string(apperror.ErrCodePhotosInsufficient),
			"required_before": photosErr.RequiredBefore,
			"required_after":  photosErr.RequiredAfter,
			"got_before":      photosErr.GotBefore,
			"got_after":       photosErr.GotAfter,
		}
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus, gin.H{
			"error": appErr.Message,
			"code":  string(appErr.Code),
		}
	}

	// Сырые ошибки хранилища не должны доходить досюда, но на всякий случай
	// переводим самые частые в осмысленный ответ.
	switch {
	case errors.Is(err, repository.ErrBookingNotFound):
		return http.StatusNotFound, gin.H{"error": "бронирование не найдено"}
	case errors.Is(err, repository.ErrAddressNotFound):
		return http.StatusNotFound, gin.H{"error": "адрес не найден"}
	case errors.Is(err, repository.ErrUserNotFound):
		return http.StatusNotFound, gin.H{"error": "пользователь не найден"}
	case errors.Is(err, repository.ErrDisputeNotFound):
		return http.StatusNotFound, gin.H{"error": "спор не найден"}
	}

	return http.StatusInternalServerError, gin.H{"error": "внутренняя ошибка сервера"}
}
