package pricing

import (
	"fmt"
	"math"
	"time"

	"github.com/ignatzorin/lawncare-backend/internal/models"
)

// Пакет pricing — детерминированный калькулятор стоимости покоса.
// Чистая функция без побочных эффектов: одинаковые входные данные всегда
// дают одинаковую смету. Машина состояний обращается сюда дважды — при
// создании бронирования (заявленная площадь) и при сверке цены после
// проверки адреса (авторитетная площадь).

// Тарифные константы.
const (
	basePrice         = 30.0 // выезд и базовая работа
	ratePerSqm        = 0.45 // за квадратный метр
	clippingsFee      = 15.0 // вывоз скошенной травы
	longGrassPct      = 0.25 // надбавка за высокую траву
	overgrownGrassPct = 0.50 // надбавка за запущенный участок
	weekendPct        = 0.10 // надбавка за выходной день
)

// QuoteInput содержит входные данные для расчёта.
type QuoteInput struct {
	SquareMeters     float64
	Date             time.Time
	GrassLength      string
	ClippingsRemoval bool
}

// PriceBreakdown содержит постатейную смету. Для машины состояний структура
// непрозрачна и сохраняется в бронировании как есть.
type PriceBreakdown struct {
	Base             float64 `json:"base"`
	Area             float64 `json:"area"`
	GrassSurcharge   float64 `json:"grass_surcharge"`
	ClippingsFee     float64 `json:"clippings_fee"`
	WeekendSurcharge float64 `json:"weekend_surcharge"`
	Total            float64 `json:"total"`
}

// Quote рассчитывает смету для заданных параметров участка и даты.
func Quote(in QuoteInput) (*PriceBreakdown, error) {
	if in.SquareMeters <= 0 {
		return nil, fmt.Errorf("pricing: площадь должна быть положительной")
	}
	if _, ok := models.ValidGrassLengths[in.GrassLength]; !ok {
		return nil, fmt.Errorf("pricing: неизвестная высота травы %q", in.GrassLength)
	}

	b := &PriceBreakdown{
		Base: basePrice,
		Area: round2(in.SquareMeters * ratePerSqm),
	}

	workCost := b.Base + b.Area

	switch in.GrassLength {
	case models.GrassLengthLong:
		b.GrassSurcharge = round2(workCost * longGrassPct)
	case models.GrassLengthOvergrown:
		b.GrassSurcharge = round2(workCost * overgrownGrassPct)
	}

	if in.ClippingsRemoval {
		b.ClippingsFee = clippingsFee
	}

	if wd := in.Date.Weekday(); wd == time.Saturday || wd == time.Sunday {
		b.WeekendSurcharge = round2(workCost * weekendPct)
	}

	b.Total = round2(b.Base + b.Area + b.GrassSurcharge + b.ClippingsFee + b.WeekendSurcharge)
	return b, nil
}

// round2 округляет до копеек.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
