package services

import "orders-dashboard/internal/models"

// StatusOptionsFor возвращает текущий статус и варианты выпадающего списка.
// Варианты берутся из all_statuses, а при их отсутствии из истории статусов.
// Дубликаты удаляются по точному совпадению, текущий статус идет первым.
func StatusOptionsFor(order models.Order) models.StatusOptions {
	current := order.CurrentStatus()

	source := order.AllStatuses
	if len(source) == 0 {
		source = order.CurrentOrderStatus
	}

	options := make([]string, 0, len(source)+1)
	seen := make(map[string]struct{}, len(source)+1)
	if current != "" {
		options = append(options, current)
		seen[current] = struct{}{}
	}
	for _, status := range source {
		if isBlank(status) {
			continue
		}
		if _, ok := seen[status]; ok {
			continue
		}
		seen[status] = struct{}{}
		options = append(options, status)
	}

	return models.StatusOptions{Current: current, Options: options}
}
