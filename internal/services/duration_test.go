package services

import (
	"testing"

	"orders-dashboard/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"hours and minutes", "1ч 20мин", 80},
		{"hours and minutes without space", "2ч5мин", 125},
		{"minutes only", "45мин", 45},
		{"hours only", "2ч", 120},
		{"hours with dangling minute marker", "1ч мин", 60},
		{"bare number", "15", 15},
		{"two numbers", "1 30", 90},
		{"extra numbers ignored", "1:30:45", 90},
		{"no digits", "долго", 0},
		{"latin letters", "abc", 0},
		{"overflow saturates", "99999999999999999999мин", maxMinutes},
		{"overflow hours saturate", "99999999999ч", maxMinutes},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseDuration(tc.in))
		})
	}
}

func TestParseDuration_NeverNegative(t *testing.T) {
	for _, in := range []string{"-5мин", "-1ч -20мин", "минус 3"} {
		assert.GreaterOrEqual(t, ParseDuration(in), 0, in)
	}
}

func TestProcessingMinutes_Nil(t *testing.T) {
	assert.Equal(t, 0, ProcessingMinutes(models.Order{}))

	text := "35мин"
	assert.Equal(t, 35, ProcessingMinutes(models.Order{TimeBetweenMessages: &text}))
}

func TestHighlight(t *testing.T) {
	th := DefaultThresholds()

	assert.Equal(t, models.HighlightNone, Highlight("45мин", false, th))
	assert.Equal(t, models.HighlightCritical, Highlight("31мин", true, th))
	assert.Equal(t, models.HighlightWarning, Highlight("30мин", true, th))
	assert.Equal(t, models.HighlightWarning, Highlight("21мин", true, th))
	assert.Equal(t, models.HighlightNone, Highlight("20мин", true, th))
	assert.Equal(t, models.HighlightNone, Highlight("", true, th))
}

func TestThresholdsFromConfig(t *testing.T) {
	assert.Equal(t, DefaultThresholds(), ThresholdsFromConfig(nil))
}
