package models

import "time"

// SessionState хранит состояние представления одного оператора
type SessionState struct {
	ID            string     `json:"id"`
	DateRange     DateRange  `json:"date_range"`
	Department    *string    `json:"department"`
	ProblemOnly   bool       `json:"problem_only"`
	Highlight     bool       `json:"highlight"`
	ShowAnalytics bool       `json:"show_analytics"`
	Table         TableState `json:"table"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Params возвращает параметры фильтрации текущего состояния
func (s SessionState) Params() ViewParams {
	return ViewParams{
		DateRange:   s.DateRange,
		Department:  s.Department,
		ProblemOnly: s.ProblemOnly,
	}
}

// SessionView объединяет состояние сессии и производные представления
type SessionView struct {
	Session   SessionState `json:"session"`
	Orders    *OrdersView  `json:"orders,omitempty"`
	Dashboard *Dashboard   `json:"dashboard,omitempty"`
	Error     string       `json:"error,omitempty"`
}
