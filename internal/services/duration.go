package services

import (
	"math"
	"regexp"
	"strconv"

	"orders-dashboard/internal/config"
	"orders-dashboard/internal/models"
)

const (
	DefaultWarningMinutes  = 20
	DefaultCriticalMinutes = 30

	maxMinutes = math.MaxInt32
)

var (
	// "1ч 20мин", "1ч20мин", а также "1ч ми" без числа минут
	hoursMinutesPattern = regexp.MustCompile(`(\d+)ч\s*(\d+)?мин?`)
	minutesPattern      = regexp.MustCompile(`(\d+)мин`)
	hoursPattern        = regexp.MustCompile(`(\d+)ч`)
	numberPattern       = regexp.MustCompile(`\d+`)
)

// Thresholds задает пороги выделения заказов по времени обработки
type Thresholds struct {
	Warning  int
	Critical int
}

// DefaultThresholds возвращает пороги по умолчанию (20 и 30 минут)
func DefaultThresholds() Thresholds {
	return Thresholds{Warning: DefaultWarningMinutes, Critical: DefaultCriticalMinutes}
}

// ThresholdsFromConfig берет пороги из конфигурации, подставляя значения по умолчанию
func ThresholdsFromConfig(cfg *config.DashboardConfig) Thresholds {
	th := DefaultThresholds()
	if cfg == nil {
		return th
	}
	if cfg.WarningMinutes > 0 {
		th.Warning = cfg.WarningMinutes
	}
	if cfg.CriticalMinutes > 0 {
		th.Critical = cfg.CriticalMinutes
	}
	return th
}

// ParseDuration переводит строку времени обработки в минуты.
// Неразобранный текст дает 0, ошибки не возвращаются.
func ParseDuration(text string) int {
	if text == "" {
		return 0
	}

	if m := hoursMinutesPattern.FindStringSubmatch(text); m != nil {
		minutes := 0
		if m[2] != "" {
			minutes = atoiSaturated(m[2])
		}
		return addMinutes(hoursToMinutes(atoiSaturated(m[1])), minutes)
	}

	if m := minutesPattern.FindStringSubmatch(text); m != nil {
		return atoiSaturated(m[1])
	}

	if m := hoursPattern.FindStringSubmatch(text); m != nil {
		return hoursToMinutes(atoiSaturated(m[1]))
	}

	numbers := numberPattern.FindAllString(text, 2)
	switch len(numbers) {
	case 0:
		return 0
	case 1:
		return atoiSaturated(numbers[0])
	default:
		return addMinutes(hoursToMinutes(atoiSaturated(numbers[0])), atoiSaturated(numbers[1]))
	}
}

// ProcessingMinutes возвращает время обработки заказа в минутах
func ProcessingMinutes(order models.Order) int {
	if order.TimeBetweenMessages == nil {
		return 0
	}
	return ParseDuration(*order.TimeBetweenMessages)
}

// Highlight определяет выделение строки по времени обработки
func Highlight(text string, enabled bool, th Thresholds) models.Highlight {
	if !enabled {
		return models.HighlightNone
	}

	minutes := ParseDuration(text)
	switch {
	case minutes > th.Critical:
		return models.HighlightCritical
	case minutes > th.Warning:
		return models.HighlightWarning
	default:
		return models.HighlightNone
	}
}

func atoiSaturated(s string) int {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n > maxMinutes {
		// в s только цифры, поэтому ошибка означает переполнение
		return maxMinutes
	}
	return int(n)
}

func hoursToMinutes(hours int) int {
	if hours > maxMinutes/60 {
		return maxMinutes
	}
	return hours * 60
}

func addMinutes(a, b int) int {
	if a > maxMinutes-b {
		return maxMinutes
	}
	return a + b
}
