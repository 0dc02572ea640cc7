package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"orders-dashboard/internal/config"
	"orders-dashboard/internal/logger"
	"orders-dashboard/internal/models"

	"github.com/google/uuid"
)

// OrderStore читает сырые записи заказов из внешнего хранилища
type OrderStore interface {
	ListOrders(ctx context.Context) ([]models.RawOrder, error)
}

// FeedPublisher публикует события об обновлении снимка
type FeedPublisher interface {
	PublishOrdersRefreshed(version uint64, count int) error
	PublishOrdersFetchFailed(version uint64, message string) error
}

// SnapshotListener получает каждый примененный снимок
type SnapshotListener func(snapshot *models.Snapshot)

// OrderFeed загружает заказы и хранит текущий снимок.
// Каждая загрузка получает возрастающий номер; ответ старше примененного отбрасывается.
type OrderFeed struct {
	store     OrderStore
	publisher FeedPublisher
	log       *logger.Logger
	timeout   time.Duration
	source    string

	seq atomic.Uint64

	mu      sync.RWMutex
	current *models.Snapshot

	subsMu    sync.Mutex
	listeners map[uint64]SnapshotListener
	nextSubID uint64
}

// NewOrderFeed создает ленту заказов; publisher может быть nil
func NewOrderFeed(store OrderStore, publisher FeedPublisher, log *logger.Logger, cfg *config.DashboardConfig) *OrderFeed {
	timeout := 5 * time.Second
	if cfg != nil && cfg.RequestTimeoutSeconds > 0 {
		timeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	}

	source := uuid.NewString()
	return &OrderFeed{
		store:     store,
		publisher: publisher,
		log:       log,
		timeout:   timeout,
		source:    source,
		current:   &models.Snapshot{Source: source, Orders: []models.Order{}},
		listeners: make(map[uint64]SnapshotListener),
	}
}

// Source возвращает идентификатор ленты; версии снимков уникальны только в его пределах
func (f *OrderFeed) Source() string {
	return f.source
}

// Snapshot возвращает текущий снимок; версия 0 означает, что загрузок еще не было
func (f *OrderFeed) Snapshot() *models.Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current
}

// Refresh выполняет новую независимую загрузку и возвращает снимок, действующий после нее
func (f *OrderFeed) Refresh(ctx context.Context) *models.Snapshot {
	seq := f.seq.Add(1)

	// снимок общий для всех сессий: уход клиента не должен превращать загрузку в ошибку
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
	defer cancel()

	start := time.Now()
	raws, err := f.store.ListOrders(fetchCtx)

	snapshot := &models.Snapshot{Source: f.source, Version: seq, FetchedAt: time.Now().UTC()}
	if err != nil {
		snapshot.Err = err
		snapshot.Error = err.Error()
	} else {
		snapshot.Orders = NormalizeAll(raws)
	}

	applied, current := f.apply(snapshot)
	if !applied {
		f.log.WithFields(map[string]interface{}{
			"request": seq,
			"current": current.Version,
		}).Debug("Discarding stale orders response")
		return current
	}

	entry := f.log.WithFields(map[string]interface{}{
		"version":  seq,
		"duration": time.Since(start).String(),
	})
	if snapshot.Failed() {
		entry.WithError(err).Warn("Orders fetch failed")
	} else {
		entry.WithField("count", len(snapshot.Orders)).Info("Orders snapshot refreshed")
	}

	f.publish(snapshot)
	f.notify(snapshot)
	return snapshot
}

// Run периодически обновляет снимок до отмены контекста
func (f *OrderFeed) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.Refresh(ctx)
		}
	}
}

// Subscribe регистрирует слушателя снимков и возвращает функцию отписки
func (f *OrderFeed) Subscribe(listener SnapshotListener) func() {
	f.subsMu.Lock()
	id := f.nextSubID
	f.nextSubID++
	f.listeners[id] = listener
	f.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.subsMu.Lock()
			delete(f.listeners, id)
			f.subsMu.Unlock()
		})
	}
}

func (f *OrderFeed) apply(snapshot *models.Snapshot) (bool, *models.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if snapshot.Version <= f.current.Version {
		return false, f.current
	}
	f.current = snapshot
	return true, snapshot
}

func (f *OrderFeed) notify(snapshot *models.Snapshot) {
	f.subsMu.Lock()
	listeners := make([]SnapshotListener, 0, len(f.listeners))
	for _, l := range f.listeners {
		listeners = append(listeners, l)
	}
	f.subsMu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}

func (f *OrderFeed) publish(snapshot *models.Snapshot) {
	if f.publisher == nil {
		return
	}

	var err error
	if snapshot.Failed() {
		err = f.publisher.PublishOrdersFetchFailed(snapshot.Version, snapshot.Error)
	} else {
		err = f.publisher.PublishOrdersRefreshed(snapshot.Version, len(snapshot.Orders))
	}
	if err != nil {
		f.log.WithError(err).Warn("Failed to publish orders event")
	}
}
