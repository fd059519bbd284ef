package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/ignatzorin/lawncare-backend/internal/logger"
)

// Пакет goroutine запускает фоновые горутины с перехватом panic. Побочные
// эффекты переходов (уведомления, письма) выполняются вне блокировки
// бронирования и не должны ронять процесс.

// SafeGo запускает горутину с обработкой panic.
func SafeGo(fn func()) {
	go func() {
		defer recoverPanic()
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом и обработкой panic.
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	go func() {
		defer recoverPanic()
		fn(ctx)
	}()
}

func recoverPanic() {
	if r := recover(); r != nil {
		if logger.Log != nil {
			logger.Log.Errorf("panic в горутине: %v\nstack:\n%s", r, debug.Stack())
		}
	}
}
