package services

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"orders-dashboard/internal/models"
)

// Normalize приводит сырую запись заказа к каноническому виду.
// Функция тотальная: некорректные значения деградируют до nil или пустых списков.
func Normalize(raw models.RawOrder) models.Order {
	order := models.Order{
		ID:                  normalizeID(raw["id"]),
		OrderID:             toInt64Ptr(raw["order_id"]),
		OrderFirstTime:      toStringPtr(raw["order_first_time"]),
		OrderSecondTime:     toStringPtr(raw["order_second_time"]),
		TimeBetweenMessages: toStringPtr(raw["time_between_messages"]),
		Department:          toStringPtr(raw["department"]),
		FirstOrderTimestamp: toInt64Ptr(raw["first_order_timestamp"]),
		OrderStatus:         raw["order_status"],
		OrderAmount:         toAmount(raw["order_amount"]),
	}

	// уже нормализованная запись несет историю в current_order_status; пустая история не перекрывает order_status
	order.CurrentOrderStatus = decodeStatuses(raw["current_order_status"])
	if len(order.CurrentOrderStatus) == 0 {
		order.CurrentOrderStatus = decodeStatuses(raw["order_status"])
	}

	if all, ok := raw["all_statuses"]; ok && all != nil {
		order.AllStatuses = decodeStatuses(all)
	} else {
		order.AllStatuses = append([]string{}, order.CurrentOrderStatus...)
	}

	return order
}

// NormalizeAll нормализует список записей, сохраняя порядок
func NormalizeAll(raws []models.RawOrder) []models.Order {
	orders := make([]models.Order, 0, len(raws))
	for _, raw := range raws {
		orders = append(orders, Normalize(raw))
	}
	return orders
}

// decodeStatuses разбирает статусы из массива, JSON-строки или строки через запятую
func decodeStatuses(value interface{}) []string {
	switch v := value.(type) {
	case nil:
		return []string{}
	case []string:
		result := make([]string, 0, len(v))
		for _, s := range v {
			if !isBlank(s) {
				result = append(result, s)
			}
		}
		return result
	case []interface{}:
		return statusesFromList(v)
	case string:
		return statusesFromString(v)
	case map[string]interface{}:
		return []string{}
	default:
		if s, ok := scalarString(v); ok {
			return statusesFromString(s)
		}
		return []string{}
	}
}

func statusesFromString(s string) []string {
	if isBlank(s) {
		return []string{}
	}

	if trimmed := strings.TrimSpace(s); strings.HasPrefix(trimmed, "[") {
		decoder := json.NewDecoder(strings.NewReader(trimmed))
		decoder.UseNumber()
		var list []interface{}
		if err := decoder.Decode(&list); err == nil && !decoder.More() {
			return statusesFromList(list)
		}
	}

	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

func statusesFromList(list []interface{}) []string {
	result := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			if !isBlank(s) {
				result = append(result, s)
			}
			continue
		}
		if s, ok := scalarString(item); ok {
			result = append(result, s)
		}
	}
	return result
}

// scalarString превращает непустое скалярное значение в строку; false и 0 считаются пустыми
func scalarString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case bool:
		if !v {
			return "", false
		}
		return "true", true
	case json.Number:
		if f, err := v.Float64(); err == nil && f == 0 {
			return "", false
		}
		return v.String(), true
	case float64:
		if v == 0 || math.IsNaN(v) {
			return "", false
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case float32:
		return scalarString(float64(v))
	case int:
		return scalarString(float64(v))
	case int64:
		if v == 0 {
			return "", false
		}
		return strconv.FormatInt(v, 10), true
	case int32:
		return scalarString(int64(v))
	}
	return "", false
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// normalizeID принимает только числовые значения, остальное дает 0
func normalizeID(value interface{}) int64 {
	switch value.(type) {
	case string, nil:
		return 0
	}
	if id, ok := toInt64(value); ok {
		return id
	}
	return 0
}

func toInt64Ptr(value interface{}) *int64 {
	if s, ok := value.(string); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil
		}
		return &n
	}
	if n, ok := toInt64(value); ok {
		return &n
	}
	return nil
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
		if f, err := v.Float64(); err == nil {
			return floatToInt64(f)
		}
	case float64:
		return floatToInt64(v)
	case float32:
		return floatToInt64(float64(v))
	case int:
		return int64(v), true
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case uint32:
		return int64(v), true
	}
	return 0, false
}

func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// toStringPtr хранит текстовые поля строкой: число записывается десятичной строкой,
// чтобы "15" и 15 в time_between_messages давали одинаковую длительность. Прочие типы дают nil.
func toStringPtr(value interface{}) *string {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case json.Number:
		s = v.String()
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	default:
		return nil
	}
	return &s
}

// toAmount возвращает неотрицательную сумму или nil
func toAmount(value interface{}) *float64 {
	var amount float64
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil
		}
		amount = f
	case float64:
		amount = v
	case float32:
		amount = float64(v)
	case int:
		amount = float64(v)
	case int64:
		amount = float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		amount = f
	default:
		return nil
	}

	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return nil
	}
	return &amount
}
