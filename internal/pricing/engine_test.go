package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/lawncare-backend/internal/models"
)

// Понедельник, чтобы не попадать под надбавку за выходные.
var monday = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func TestQuote_Basic(t *testing.T) {
	b, err := Quote(QuoteInput{
		SquareMeters: 100,
		Date:         monday,
		GrassLength:  models.GrassLengthShort,
	})
	require.NoError(t, err)

	assert.Equal(t, 30.0, b.Base)
	assert.Equal(t, 45.0, b.Area)
	assert.Equal(t, 0.0, b.GrassSurcharge)
	assert.Equal(t, 0.0, b.ClippingsFee)
	assert.Equal(t, 0.0, b.WeekendSurcharge)
	assert.Equal(t, 75.0, b.Total)
}

func TestQuote_AllSurcharges(t *testing.T) {
	saturday := time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC)

	b, err := Quote(QuoteInput{
		SquareMeters:     100,
		Date:             saturday,
		GrassLength:      models.GrassLengthOvergrown,
		ClippingsRemoval: true,
	})
	require.NoError(t, err)

	// workCost = 75; +50% трава, +15 вывоз, +10% выходной.
	assert.Equal(t, 37.5, b.GrassSurcharge)
	assert.Equal(t, 15.0, b.ClippingsFee)
	assert.Equal(t, 7.5, b.WeekendSurcharge)
	assert.Equal(t, 135.0, b.Total)
}

func TestQuote_Deterministic(t *testing.T) {
	in := QuoteInput{
		SquareMeters:     137.5,
		Date:             monday,
		GrassLength:      models.GrassLengthLong,
		ClippingsRemoval: true,
	}

	first, err := Quote(in)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := Quote(in)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestQuote_InvalidInput(t *testing.T) {
	_, err := Quote(QuoteInput{SquareMeters: 0, Date: monday, GrassLength: models.GrassLengthShort})
	assert.Error(t, err)

	_, err = Quote(QuoteInput{SquareMeters: 50, Date: monday, GrassLength: "jungle"})
	assert.Error(t, err)
}
