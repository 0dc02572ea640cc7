package services

import (
	"time"

	"orders-dashboard/internal/config"
	"orders-dashboard/internal/models"
)

// orderTimeLayouts перечисляет форматы поля order_first_time
var orderTimeLayouts = []string{
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"02.01.2006",
}

// ViewFilter применяет фильтры представления к нормализованным заказам
type ViewFilter struct {
	location         *time.Location
	warningThreshold int
}

// NewViewFilter создает фильтр с часовым поясом и порогом из конфигурации
func NewViewFilter(cfg *config.DashboardConfig) *ViewFilter {
	return &ViewFilter{
		location:         LoadLocation(cfg),
		warningThreshold: ThresholdsFromConfig(cfg).Warning,
	}
}

// LoadLocation возвращает часовой пояс дашборда; при ошибке используется UTC
func LoadLocation(cfg *config.DashboardConfig) *time.Location {
	if cfg == nil || cfg.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Location возвращает часовой пояс фильтра
func (f *ViewFilter) Location() *time.Location {
	return f.location
}

// Apply применяет фильтры в порядке: даты, подразделение, проблемные заказы
func (f *ViewFilter) Apply(orders []models.Order, params models.ViewParams) []models.Order {
	result := FilterByDateRange(orders, params.DateRange, f.location)
	result = FilterByDepartment(result, params.Department)
	return FilterProblem(result, params.ProblemOnly, f.warningThreshold)
}

// FilterByDateRange оставляет заказы, время которых попадает в диапазон дней включительно.
// Заказы без распознаваемого времени исключаются, если задана хотя бы одна граница.
func FilterByDateRange(orders []models.Order, r models.DateRange, loc *time.Location) []models.Order {
	if r.IsZero() {
		return cloneOrders(orders)
	}
	if loc == nil {
		loc = time.UTC
	}

	var from, to time.Time
	if r.StartDate != nil {
		from = startOfDay(*r.StartDate, loc)
	}
	if r.EndDate != nil {
		to = endOfDay(*r.EndDate, loc)
	}

	result := make([]models.Order, 0, len(orders))
	for _, order := range orders {
		ts, ok := OrderTime(order, loc)
		if !ok {
			continue
		}
		if r.StartDate != nil && ts.Before(from) {
			continue
		}
		if r.EndDate != nil && ts.After(to) {
			continue
		}
		result = append(result, order)
	}
	return result
}

// FilterByDepartment оставляет заказы выбранного подразделения; nil не фильтрует
func FilterByDepartment(orders []models.Order, department *string) []models.Order {
	if department == nil {
		return cloneOrders(orders)
	}

	result := make([]models.Order, 0, len(orders))
	for _, order := range orders {
		if order.Department != nil && *order.Department == *department {
			result = append(result, order)
		}
	}
	return result
}

// FilterProblem оставляет заказы, время обработки которых не меньше порога
func FilterProblem(orders []models.Order, enabled bool, threshold int) []models.Order {
	if !enabled {
		return cloneOrders(orders)
	}

	result := make([]models.Order, 0, len(orders))
	for _, order := range orders {
		if ProcessingMinutes(order) >= threshold {
			result = append(result, order)
		}
	}
	return result
}

// OrderTime возвращает момент первого сообщения заказа
func OrderTime(order models.Order, loc *time.Location) (time.Time, bool) {
	if order.FirstOrderTimestamp != nil {
		return time.UnixMilli(*order.FirstOrderTimestamp).In(loc), true
	}
	if order.OrderFirstTime == nil {
		return time.Time{}, false
	}
	for _, layout := range orderTimeLayouts {
		if ts, err := time.ParseInLocation(layout, *order.OrderFirstTime, loc); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func cloneOrders(orders []models.Order) []models.Order {
	return append(make([]models.Order, 0, len(orders)), orders...)
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func endOfDay(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Millisecond*999), loc)
}
