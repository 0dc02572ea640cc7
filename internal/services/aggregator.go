package services

import (
	"sort"
	"strings"

	"orders-dashboard/internal/models"

	"github.com/shopspring/decimal"
)

const (
	cancelledMarker = "отменен"
	completedMarker = "выполнен"
)

// BucketFor возвращает корзину для времени обработки в минутах
func BucketFor(minutes int) models.DurationBucket {
	switch {
	case minutes < 10:
		return models.BucketUnder10
	case minutes < 20:
		return models.Bucket10To20
	case minutes < 30:
		return models.Bucket20To30
	default:
		return models.BucketOver30
	}
}

// AggregateByDepartment группирует заказы по подразделениям.
// Результат отсортирован по убыванию количества, равные группы сохраняют порядок появления.
func AggregateByDepartment(orders []models.Order) []models.DepartmentStats {
	index := make(map[string]int)
	stats := make([]models.DepartmentStats, 0)

	for _, order := range orders {
		key := DepartmentKey(order)
		i, ok := index[key]
		if !ok {
			i = len(stats)
			index[key] = i
			stats = append(stats, models.DepartmentStats{Department: key})
		}

		stats[i].Total++
		stats[i].Buckets.Add(BucketFor(ProcessingMinutes(order)))
		if IsCancelled(order) {
			stats[i].CancelledCount++
		}
	}

	sort.SliceStable(stats, func(a, b int) bool {
		return stats[a].Total > stats[b].Total
	})
	return stats
}

// AggregateBuckets считает распределение всех заказов по корзинам
func AggregateBuckets(orders []models.Order) models.BucketCounts {
	var counts models.BucketCounts
	for _, order := range orders {
		counts.Add(BucketFor(ProcessingMinutes(order)))
	}
	return counts
}

// AggregateAmounts суммирует выполненные и отмененные заказы.
// Заказ с обоими маркерами учитывается как выполненный.
func AggregateAmounts(orders []models.Order) models.Amounts {
	amounts := models.Amounts{Completed: decimal.Zero, Cancelled: decimal.Zero}
	for _, order := range orders {
		if order.OrderAmount == nil {
			continue
		}
		amount := decimal.NewFromFloat(*order.OrderAmount)
		switch {
		case IsCompleted(order):
			amounts.Completed = amounts.Completed.Add(amount)
		case IsCancelled(order):
			amounts.Cancelled = amounts.Cancelled.Add(amount)
		}
	}
	return amounts
}

// Summarize собирает итоговые показатели для панели аналитики
func Summarize(orders []models.Order, primaryDepartment string) models.Summary {
	summary := models.Summary{
		TotalOrders:       len(orders),
		PrimaryDepartment: primaryDepartment,
		Amounts:           AggregateAmounts(orders),
	}

	for _, order := range orders {
		if order.Department != nil && *order.Department == primaryDepartment {
			summary.PrimaryOrders++
		}
		if IsCancelled(order) {
			summary.CancelledOrders++
		}
	}
	summary.OtherOrders = summary.TotalOrders - summary.PrimaryOrders

	return summary
}

// DepartmentKey возвращает ключ группировки подразделения
func DepartmentKey(order models.Order) string {
	if order.Department == nil || *order.Department == "" {
		return models.UnspecifiedDepartment
	}
	return *order.Department
}

// IsCancelled сообщает, что в истории есть статус отмены
func IsCancelled(order models.Order) bool {
	return hasStatusMarker(order, cancelledMarker)
}

// IsCompleted сообщает, что в истории есть статус выполнения
func IsCompleted(order models.Order) bool {
	return hasStatusMarker(order, completedMarker)
}

func hasStatusMarker(order models.Order, marker string) bool {
	for _, status := range order.CurrentOrderStatus {
		if strings.Contains(strings.ToLower(status), marker) {
			return true
		}
	}
	return false
}
