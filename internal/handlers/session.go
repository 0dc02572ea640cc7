package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"orders-dashboard/internal/apperror"
	"orders-dashboard/internal/config"
	"orders-dashboard/internal/logger"
	"orders-dashboard/internal/models"
	"orders-dashboard/internal/services"

	"github.com/go-playground/validator/v10"
)

const sessionPathPrefix = "/api/session/"

// Типы намерений сессии
const (
	IntentSetDateRange     = "set_date_range"
	IntentSetDepartment    = "set_department"
	IntentToggleDepartment = "toggle_department"
	IntentSetProblemOnly   = "set_problem_only"
	IntentSetHighlight     = "set_highlight"
	IntentSetShowAnalytics = "set_show_analytics"
	IntentToggleSort       = "toggle_sort"
	IntentSetPage          = "set_page"
	IntentSetPageSize      = "set_page_size"
	IntentMoveColumn       = "move_column"
)

var validate = validator.New()

// IntentRequest описывает действие оператора над сессией
type IntentRequest struct {
	Type       string  `json:"type" validate:"required,oneof=set_date_range set_department toggle_department set_problem_only set_highlight set_show_analytics toggle_sort set_page set_page_size move_column"`
	StartDate  string  `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate    string  `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Department *string `json:"department,omitempty"`
	Enabled    *bool   `json:"enabled,omitempty"`
	Column     string  `json:"column,omitempty" validate:"omitempty,oneof=order_id order_first_time order_second_time time_between_messages department current_order_status"`
	Multi      bool    `json:"multi,omitempty"`
	Page       *int    `json:"page,omitempty" validate:"omitempty,min=0"`
	PageSize   *int    `json:"page_size,omitempty" validate:"omitempty,min=1"`
	Source     string  `json:"source,omitempty" validate:"omitempty,oneof=order_id order_first_time order_second_time time_between_messages department current_order_status"`
	Target     string  `json:"target,omitempty" validate:"omitempty,oneof=order_id order_first_time order_second_time time_between_messages department current_order_status"`
}

// SessionViews строит производные представления для состояния сессии
type SessionViews struct {
	analytics AnalyticsProvider
}

// NewSessionViews создает построитель представлений сессии
func NewSessionViews(analytics AnalyticsProvider) *SessionViews {
	return &SessionViews{analytics: analytics}
}

// Build возвращает таблицу и, если включены графики, данные дашборда
func (v *SessionViews) Build(ctx context.Context, state models.SessionState) (*models.SessionView, error) {
	view := &models.SessionView{Session: state}

	orders, err := v.analytics.View(ctx, state.Params(), state.Table, state.Highlight)
	if err != nil {
		return nil, err
	}
	view.Orders = orders

	if state.ShowAnalytics {
		dashboard, err := v.analytics.Dashboard(ctx, state.Params())
		if err != nil {
			return nil, err
		}
		view.Dashboard = dashboard
	}
	return view, nil
}

// SessionHandler обрабатывает сессии дашборда
type SessionHandler struct {
	sessions SessionProvider
	views    *SessionViews
	location *time.Location
	log      *logger.Logger
	timeout  time.Duration
}

// NewSessionHandler создает новый обработчик сессий
func NewSessionHandler(sessions SessionProvider, views *SessionViews, location *time.Location, log *logger.Logger, cfg *config.DashboardConfig) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		views:    views,
		location: location,
		log:      log,
		timeout:  requestTimeout(cfg),
	}
}

// CreateSession открывает новую сессию и возвращает ее представление
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sc, err := h.sessions.Open(ctx, "")
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create session")
		return
	}
	defer h.sessions.Release(sc)

	h.writeView(ctx, w, http.StatusCreated, sc.State())
}

// HandleSession маршрутизирует /api/session/{id} и /api/session/{id}/intents
func (h *SessionHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	id, suffix, err := extractSessionID(r.URL.Path, sessionPathPrefix)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	switch {
	case suffix == "" && r.Method == http.MethodGet:
		h.getSession(w, r, id)
	case suffix == "" && r.Method == http.MethodDelete:
		h.deleteSession(w, r, id)
	case suffix == "intents" && r.Method == http.MethodPost:
		h.applyIntent(w, r, id)
	case suffix == "" || suffix == "intents":
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	default:
		writeErrorResponse(w, http.StatusNotFound, "Not found")
	}
}

func (h *SessionHandler) getSession(w http.ResponseWriter, r *http.Request, id string) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sc, err := h.sessions.Open(ctx, id)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load session")
		return
	}
	defer h.sessions.Release(sc)

	h.writeView(ctx, w, http.StatusOK, sc.State())
}

func (h *SessionHandler) deleteSession(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.sessions.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) applyIntent(w http.ResponseWriter, r *http.Request, id string) {
	var req IntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sc, err := h.sessions.Open(ctx, id)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load session")
		return
	}
	defer h.sessions.Release(sc)

	if err := ApplyIntent(ctx, sc, &req, h.location); err != nil {
		writeServiceError(w, h.log, err, "Failed to apply intent")
		return
	}

	h.log.WithFields(map[string]interface{}{
		"session_id": id,
		"intent":     req.Type,
	}).Debug("Session intent applied")

	h.writeView(ctx, w, http.StatusOK, sc.State())
}

func (h *SessionHandler) writeView(ctx context.Context, w http.ResponseWriter, status int, state models.SessionState) {
	view, err := h.views.Build(ctx, state)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to build session view")
		return
	}
	writeJSONResponse(w, status, view)
}

// ApplyIntent проверяет намерение и применяет его к сессии
func ApplyIntent(ctx context.Context, sc *services.SessionContext, req *IntentRequest, loc *time.Location) error {
	if err := validateIntent(req); err != nil {
		return err
	}

	switch req.Type {
	case IntentSetDateRange:
		start, err := parseDate(req.StartDate, "start_date", loc)
		if err != nil {
			return apperror.Validation(err.Error(), nil)
		}
		end, err := parseDate(req.EndDate, "end_date", loc)
		if err != nil {
			return apperror.Validation(err.Error(), nil)
		}
		return sc.SetDateRange(ctx, models.DateRange{StartDate: start, EndDate: end})
	case IntentSetDepartment:
		return sc.SetDepartment(ctx, req.Department)
	case IntentToggleDepartment:
		if req.Department == nil {
			return apperror.Validation("department is required", nil)
		}
		return sc.ToggleDepartment(ctx, *req.Department)
	case IntentSetProblemOnly, IntentSetHighlight, IntentSetShowAnalytics:
		if req.Enabled == nil {
			return apperror.Validation("enabled is required", nil)
		}
		switch req.Type {
		case IntentSetProblemOnly:
			return sc.SetProblemOnly(ctx, *req.Enabled)
		case IntentSetHighlight:
			return sc.SetHighlight(ctx, *req.Enabled)
		default:
			return sc.SetShowAnalytics(ctx, *req.Enabled)
		}
	case IntentToggleSort:
		if req.Column == "" {
			return apperror.Validation("column is required", nil)
		}
		return sc.ToggleSort(ctx, req.Column, req.Multi)
	case IntentSetPage:
		if req.Page == nil {
			return apperror.Validation("page is required", nil)
		}
		return sc.SetPage(ctx, *req.Page)
	case IntentSetPageSize:
		if req.PageSize == nil {
			return apperror.Validation("page_size is required", nil)
		}
		return sc.SetPageSize(ctx, *req.PageSize)
	case IntentMoveColumn:
		if req.Source == "" || req.Target == "" {
			return apperror.Validation("source and target are required", nil)
		}
		return sc.MoveColumn(ctx, req.Source, req.Target)
	}
	return apperror.Validation(fmt.Sprintf("unknown intent %q", req.Type), nil)
}

func validateIntent(req *IntentRequest) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return apperror.Validation("invalid intent", err)
	}

	messages := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		messages = append(messages, fmt.Sprintf("field '%s' failed on '%s'", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return apperror.Validation(strings.Join(messages, "; "), err)
}
