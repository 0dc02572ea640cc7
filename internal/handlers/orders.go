package handlers

import (
	"context"
	"net/http"
	"time"

	"orders-dashboard/internal/config"
	"orders-dashboard/internal/logger"
	"orders-dashboard/internal/services"
)

// OrderHandler отдает таблицу заказов и ее выгрузки
type OrderHandler struct {
	analytics AnalyticsProvider
	feed      OrderFeed
	table     *services.TableView
	location  *time.Location
	log       *logger.Logger
	timeout   time.Duration
}

// NewOrderHandler создает новый обработчик заказов
func NewOrderHandler(analytics AnalyticsProvider, feed OrderFeed, table *services.TableView, location *time.Location, log *logger.Logger, cfg *config.DashboardConfig) *OrderHandler {
	return &OrderHandler{
		analytics: analytics,
		feed:      feed,
		table:     table,
		location:  location,
		log:       log,
		timeout:   requestTimeout(cfg),
	}
}

// GetOrders возвращает страницу таблицы заказов или полную выгрузку в CSV/XLSX
func (h *OrderHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	query, err := parseViewQuery(r, h.table, h.location)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if query.Format == formatJSON {
		view, err := h.analytics.View(ctx, query.Params, query.Table, query.Highlight)
		if err != nil {
			writeServiceError(w, h.log, err, "Failed to load orders")
			return
		}
		writeJSONResponse(w, http.StatusOK, view)
		return
	}

	orders, _, err := h.analytics.Filtered(ctx, query.Params)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load orders")
		return
	}
	rows := h.table.Rows(query.Table, orders, query.Highlight)
	columns := h.table.Sanitize(query.Table).ColumnOrder

	if query.Format == formatCSV {
		err = writeOrdersCSV(w, columns, rows)
	} else {
		err = writeOrdersXLSX(w, columns, rows)
	}
	if err != nil {
		h.log.WithError(err).WithField("format", query.Format).Warn("Failed to stream orders export")
	}
}

// RefreshOrders выполняет новую загрузку заказов из хранилища
func (h *OrderHandler) RefreshOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	snapshot := h.feed.Refresh(r.Context())
	if snapshot.Failed() {
		writeServiceError(w, h.log, snapshot.Err, "Failed to refresh orders")
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"version":    snapshot.Version,
		"count":      len(snapshot.Orders),
		"fetched_at": snapshot.FetchedAt,
	})
}

// GetSnapshotStatus возвращает версию и состояние текущего снимка
func (h *OrderHandler) GetSnapshotStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	snapshot := h.feed.Snapshot()
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"version":    snapshot.Version,
		"count":      len(snapshot.Orders),
		"error":      snapshot.Error,
		"fetched_at": snapshot.FetchedAt,
	})
}
