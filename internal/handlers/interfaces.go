package handlers

import (
	"context"

	"orders-dashboard/internal/models"
	"orders-dashboard/internal/services"
)

// ----- Orders -----

type AnalyticsProvider interface {
	View(ctx context.Context, params models.ViewParams, state models.TableState, highlight bool) (*models.OrdersView, error)
	Dashboard(ctx context.Context, params models.ViewParams) (*models.Dashboard, error)
	Filtered(ctx context.Context, params models.ViewParams) ([]models.Order, uint64, error)
}

type OrderFeed interface {
	Snapshot() *models.Snapshot
	Refresh(ctx context.Context) *models.Snapshot
	Subscribe(listener services.SnapshotListener) func()
}

// ----- Sessions -----

type SessionProvider interface {
	Open(ctx context.Context, id string) (*services.SessionContext, error)
	Release(sc *services.SessionContext)
	Delete(ctx context.Context, id string) error
}

// ----- Health -----

type DBHealth interface {
	Health() error
}

type RedisHealth interface {
	Health(ctx context.Context) error
}
