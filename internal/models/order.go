package models

import "time"

// RawOrder представляет запись заказа в том виде, в котором ее вернуло хранилище
type RawOrder map[string]interface{}

// Order представляет нормализованный заказ
type Order struct {
	ID                  int64       `json:"id"`
	OrderID             *int64      `json:"order_id"`
	OrderFirstTime      *string     `json:"order_first_time"`
	OrderSecondTime     *string     `json:"order_second_time"`
	TimeBetweenMessages *string     `json:"time_between_messages"`
	Department          *string     `json:"department"`
	FirstOrderTimestamp *int64      `json:"first_order_timestamp"`
	OrderStatus         interface{} `json:"order_status"`
	CurrentOrderStatus  []string    `json:"current_order_status"`
	AllStatuses         []string    `json:"all_statuses"`
	OrderAmount         *float64    `json:"order_amount"`
}

// Raw возвращает заказ в виде сырой записи с теми же ключами, что и у хранилища
func (o Order) Raw() RawOrder {
	raw := RawOrder{
		"id":                   o.ID,
		"order_status":         o.OrderStatus,
		"current_order_status": append([]string{}, o.CurrentOrderStatus...),
		"all_statuses":         append([]string{}, o.AllStatuses...),
	}
	if o.OrderID != nil {
		raw["order_id"] = *o.OrderID
	}
	if o.OrderFirstTime != nil {
		raw["order_first_time"] = *o.OrderFirstTime
	}
	if o.OrderSecondTime != nil {
		raw["order_second_time"] = *o.OrderSecondTime
	}
	if o.TimeBetweenMessages != nil {
		raw["time_between_messages"] = *o.TimeBetweenMessages
	}
	if o.Department != nil {
		raw["department"] = *o.Department
	}
	if o.FirstOrderTimestamp != nil {
		raw["first_order_timestamp"] = *o.FirstOrderTimestamp
	}
	if o.OrderAmount != nil {
		raw["order_amount"] = *o.OrderAmount
	}
	return raw
}

// CurrentStatus возвращает последний статус из истории
func (o Order) CurrentStatus() string {
	if len(o.CurrentOrderStatus) == 0 {
		return ""
	}
	return o.CurrentOrderStatus[len(o.CurrentOrderStatus)-1]
}

// DateRange задает диапазон календарных дней; nil граница не ограничивает
type DateRange struct {
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

// IsZero сообщает, что ни одна граница не задана
func (r DateRange) IsZero() bool {
	return r.StartDate == nil && r.EndDate == nil
}

// ViewParams описывает параметры фильтрации одного представления
type ViewParams struct {
	DateRange   DateRange `json:"date_range"`
	Department  *string   `json:"department"`
	ProblemOnly bool      `json:"problem_only"`
}

// Snapshot представляет текущий список заказов либо ошибку последней загрузки
type Snapshot struct {
	Source    string    `json:"source"`
	Version   uint64    `json:"version"`
	Orders    []Order   `json:"orders"`
	Err       error     `json:"-"`
	Error     string    `json:"error,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Failed сообщает, что снимок содержит ошибку загрузки
func (s *Snapshot) Failed() bool {
	return s != nil && s.Err != nil
}
