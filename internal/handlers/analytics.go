package handlers

import (
	"context"
	"net/http"
	"time"

	"orders-dashboard/internal/config"
	"orders-dashboard/internal/logger"
)

// AnalyticsHandler обрабатывает эндпоинты графиков дашборда
type AnalyticsHandler struct {
	service  AnalyticsProvider
	location *time.Location
	log      *logger.Logger
	timeout  time.Duration
}

// NewAnalyticsHandler создает новый обработчик аналитики
func NewAnalyticsHandler(service AnalyticsProvider, location *time.Location, log *logger.Logger, cfg *config.DashboardConfig) *AnalyticsHandler {
	return &AnalyticsHandler{
		service:  service,
		location: location,
		log:      log,
		timeout:  requestTimeout(cfg),
	}
}

// GetDashboard возвращает статистику по подразделениям, корзинам времени и итоги
func (h *AnalyticsHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	params, err := parseViewParams(r, h.location)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	dashboard, err := h.service.Dashboard(ctx, params)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load analytics")
		return
	}

	writeJSONResponse(w, http.StatusOK, dashboard)
}
