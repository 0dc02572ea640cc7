package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"orders-dashboard/internal/apperror"
	"orders-dashboard/internal/config"
	"orders-dashboard/internal/logger"
	"orders-dashboard/internal/models"
	"orders-dashboard/internal/redis"

	"github.com/google/uuid"
)

const defaultSessionTTL = 24 * time.Hour

type sessionStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SessionListener получает состояние сессии после каждого изменения
type SessionListener func(models.SessionState)

// SessionService управляет контекстами сессий операторов.
// Состояние хранится в Redis, открытые контексты живут в памяти, пока на них есть ссылки.
type SessionService struct {
	store sessionStore
	table *TableView
	log   *logger.Logger
	ttl   time.Duration

	mu       sync.Mutex
	contexts map[string]*SessionContext
}

// NewSessionService создает сервис сессий; без Redis состояние хранится в памяти процесса
func NewSessionService(redisClient *redis.Client, table *TableView, log *logger.Logger, cfg *config.DashboardConfig) *SessionService {
	ttl := defaultSessionTTL
	if cfg != nil && cfg.SessionTTLHours > 0 {
		ttl = time.Duration(cfg.SessionTTLHours) * time.Hour
	}

	s := &SessionService{
		store:    newMemorySessionStore(),
		table:    table,
		log:      log,
		ttl:      ttl,
		contexts: make(map[string]*SessionContext),
	}
	if redisClient != nil {
		s.store = redisClient
	}
	return s
}

// Open возвращает контекст сессии. Пустой id создает новую сессию.
// Каждый Open должен завершаться вызовом Release.
func (s *SessionService) Open(ctx context.Context, id string) (*SessionContext, error) {
	if id == "" {
		return s.create(ctx)
	}

	s.mu.Lock()
	if sc, ok := s.contexts[id]; ok {
		sc.refs++
		s.mu.Unlock()
		return sc, nil
	}
	s.mu.Unlock()

	state, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// контекст мог быть открыт параллельно, пока шла загрузка
	if sc, ok := s.contexts[id]; ok {
		sc.refs++
		return sc, nil
	}
	sc := newSessionContext(s, state)
	s.contexts[id] = sc
	return sc, nil
}

// Release освобождает ссылку на контекст; последний Release выгружает его из памяти
func (s *SessionService) Release(sc *SessionContext) {
	if sc == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sc.refs--
	if sc.refs > 0 {
		return
	}
	if current, ok := s.contexts[sc.id]; ok && current == sc {
		delete(s.contexts, sc.id)
		s.log.WithField("session_id", sc.id).Debug("Session context released")
	}
}

// Delete удаляет сохраненную сессию
func (s *SessionService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.contexts, id)
	s.mu.Unlock()

	if err := s.store.Delete(ctx, redis.GenerateKey(redis.KeyPrefixSession, id)); err != nil {
		return apperror.Unavailable("session storage is unavailable", err)
	}
	return nil
}

// OpenCount возвращает число контекстов в памяти
func (s *SessionService) OpenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.contexts)
}

func (s *SessionService) create(ctx context.Context) (*SessionContext, error) {
	state := models.SessionState{
		ID:        uuid.New().String(),
		Table:     s.table.DefaultState(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.save(ctx, state); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sc := newSessionContext(s, state)
	s.contexts[state.ID] = sc

	s.log.WithField("session_id", state.ID).Info("Session created")
	return sc, nil
}

func (s *SessionService) load(ctx context.Context, id string) (models.SessionState, error) {
	var state models.SessionState
	if err := s.store.Get(ctx, redis.GenerateKey(redis.KeyPrefixSession, id), &state); err != nil {
		if errors.Is(err, redis.ErrNotFound) {
			return models.SessionState{}, apperror.NotFound("session not found", err)
		}
		return models.SessionState{}, apperror.Unavailable("session storage is unavailable", err)
	}

	state.ID = id
	state.Table = s.table.Sanitize(state.Table)
	return state, nil
}

func (s *SessionService) save(ctx context.Context, state models.SessionState) error {
	if err := s.store.Set(ctx, redis.GenerateKey(redis.KeyPrefixSession, state.ID), state, s.ttl); err != nil {
		return apperror.Unavailable("session storage is unavailable", err)
	}
	return nil
}

// SessionContext хранит состояние одной сессии и уведомляет подписчиков об изменениях
type SessionContext struct {
	svc  *SessionService
	id   string
	refs int

	mu    sync.Mutex
	state models.SessionState

	subsMu    sync.Mutex
	listeners map[uint64]SessionListener
	nextSubID uint64
}

func newSessionContext(svc *SessionService, state models.SessionState) *SessionContext {
	return &SessionContext{
		svc:       svc,
		id:        state.ID,
		refs:      1,
		state:     state,
		listeners: make(map[uint64]SessionListener),
	}
}

// ID возвращает идентификатор сессии
func (c *SessionContext) ID() string {
	return c.id
}

// State возвращает копию текущего состояния
func (c *SessionContext) State() models.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copySessionState(c.state)
}

// Subscribe регистрирует слушателя изменений и возвращает функцию отписки
func (c *SessionContext) Subscribe(listener SessionListener) func() {
	c.subsMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.listeners[id] = listener
	c.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subsMu.Lock()
			delete(c.listeners, id)
			c.subsMu.Unlock()
		})
	}
}

// SetDateRange задает диапазон дат; конец не может быть раньше начала
func (c *SessionContext) SetDateRange(ctx context.Context, r models.DateRange) error {
	if r.StartDate != nil && r.EndDate != nil && r.EndDate.Before(*r.StartDate) {
		return apperror.Validation("end_date must not be before start_date", nil)
	}
	return c.update(ctx, func(s *models.SessionState) error {
		s.DateRange = r
		s.Table.Pagination.PageIndex = 0
		return nil
	})
}

// SetDepartment выбирает подразделение; nil снимает фильтр
func (c *SessionContext) SetDepartment(ctx context.Context, department *string) error {
	return c.update(ctx, func(s *models.SessionState) error {
		s.Department = copyStringPtr(department)
		s.Table.Pagination.PageIndex = 0
		return nil
	})
}

// ToggleDepartment выбирает подразделение, а повторный выбор того же снимает фильтр
func (c *SessionContext) ToggleDepartment(ctx context.Context, department string) error {
	return c.update(ctx, func(s *models.SessionState) error {
		if s.Department != nil && *s.Department == department {
			s.Department = nil
		} else {
			s.Department = &department
		}
		s.Table.Pagination.PageIndex = 0
		return nil
	})
}

// SetProblemOnly включает показ только проблемных заказов
func (c *SessionContext) SetProblemOnly(ctx context.Context, enabled bool) error {
	return c.update(ctx, func(s *models.SessionState) error {
		s.ProblemOnly = enabled
		s.Table.Pagination.PageIndex = 0
		return nil
	})
}

// SetHighlight включает подсветку долгих заказов
func (c *SessionContext) SetHighlight(ctx context.Context, enabled bool) error {
	return c.update(ctx, func(s *models.SessionState) error {
		s.Highlight = enabled
		return nil
	})
}

// SetShowAnalytics переключает показ графиков
func (c *SessionContext) SetShowAnalytics(ctx context.Context, enabled bool) error {
	return c.update(ctx, func(s *models.SessionState) error {
		s.ShowAnalytics = enabled
		return nil
	})
}

// ToggleSort переключает сортировку колонки
func (c *SessionContext) ToggleSort(ctx context.Context, column string, multi bool) error {
	return c.update(ctx, func(s *models.SessionState) error {
		table, err := c.svc.table.ToggleSort(s.Table, column, multi)
		if err != nil {
			return err
		}
		s.Table = table
		return nil
	})
}

// SetPage переходит на страницу
func (c *SessionContext) SetPage(ctx context.Context, index int) error {
	return c.update(ctx, func(s *models.SessionState) error {
		s.Table = c.svc.table.SetPage(s.Table, index)
		return nil
	})
}

// SetPageSize меняет размер страницы
func (c *SessionContext) SetPageSize(ctx context.Context, size int) error {
	return c.update(ctx, func(s *models.SessionState) error {
		table, err := c.svc.table.SetPageSize(s.Table, size)
		if err != nil {
			return err
		}
		s.Table = table
		return nil
	})
}

// MoveColumn перемещает колонку source на место target
func (c *SessionContext) MoveColumn(ctx context.Context, source, target string) error {
	if !isKnownColumn(source) || !isKnownColumn(target) {
		return apperror.Validation("unknown column", nil)
	}
	return c.update(ctx, func(s *models.SessionState) error {
		s.Table = MoveColumn(s.Table, source, target)
		return nil
	})
}

// update применяет изменение к копии состояния, сохраняет ее и уведомляет подписчиков.
// При ошибке состояние не меняется.
func (c *SessionContext) update(ctx context.Context, change func(*models.SessionState) error) error {
	c.mu.Lock()
	next := copySessionState(c.state)
	if err := change(&next); err != nil {
		c.mu.Unlock()
		return err
	}
	next.UpdatedAt = time.Now().UTC()

	if err := c.svc.save(ctx, next); err != nil {
		c.mu.Unlock()
		c.svc.log.WithError(err).WithField("session_id", c.id).Warn("Failed to persist session")
		return err
	}
	c.state = next
	snapshot := copySessionState(next)
	c.mu.Unlock()

	c.notify(snapshot)
	return nil
}

func (c *SessionContext) notify(state models.SessionState) {
	c.subsMu.Lock()
	listeners := make([]SessionListener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.subsMu.Unlock()

	for _, l := range listeners {
		l(state)
	}
}

func copySessionState(s models.SessionState) models.SessionState {
	s.Department = copyStringPtr(s.Department)
	s.Table = cloneTableState(s.Table)
	return s
}

func copyStringPtr(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// memorySessionStore хранит сессии в памяти, когда Redis не настроен
type memorySessionStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{entries: make(map[string]memoryEntry)}
}

func (m *memorySessionStore) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	entry, ok := m.entries[key]
	if ok && time.Now().After(entry.expiresAt) {
		delete(m.entries, key)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("key %s: %w", key, redis.ErrNotFound)
	}
	return json.Unmarshal(entry.data, dest)
}

func (m *memorySessionStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %s: %w", key, err)
	}

	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	// брошенные сессии никто не читает, поэтому истекшие записи удаляются при каждой записи
	for k, entry := range m.entries {
		if now.After(entry.expiresAt) {
			delete(m.entries, k)
		}
	}
	m.entries[key] = memoryEntry{data: data, expiresAt: now.Add(ttl)}
	return nil
}

func (m *memorySessionStore) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *memorySessionStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
