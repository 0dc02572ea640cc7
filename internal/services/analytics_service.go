package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"orders-dashboard/internal/apperror"
	"orders-dashboard/internal/config"
	"orders-dashboard/internal/logger"
	"orders-dashboard/internal/models"
	"orders-dashboard/internal/redis"

	"golang.org/x/sync/singleflight"
)

const defaultCacheTTL = 10 * time.Minute

// SnapshotSource отдает текущий снимок заказов и умеет его обновить
type SnapshotSource interface {
	Snapshot() *models.Snapshot
	Refresh(ctx context.Context) *models.Snapshot
}

type viewCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// AnalyticsService строит производные представления заказов.
// Результаты кешируются по ключу (версия снимка, параметры), одинаковые вычисления объединяются.
type AnalyticsService struct {
	feed              SnapshotSource
	cache             viewCache
	log               *logger.Logger
	filter            *ViewFilter
	table             *TableView
	primaryDepartment string
	cacheTTL          time.Duration
	group             singleflight.Group
}

// NewAnalyticsService создает сервис аналитики; redisClient может быть nil
func NewAnalyticsService(feed SnapshotSource, redisClient *redis.Client, log *logger.Logger, cfg *config.DashboardConfig) *AnalyticsService {
	cacheTTL := defaultCacheTTL
	primary := ""
	if cfg != nil {
		if cfg.CacheTTLMinutes > 0 {
			cacheTTL = time.Duration(cfg.CacheTTLMinutes) * time.Minute
		}
		primary = cfg.PrimaryDepartment
	}

	s := &AnalyticsService{
		feed:              feed,
		log:               log,
		filter:            NewViewFilter(cfg),
		table:             NewTableView(cfg),
		primaryDepartment: primary,
		cacheTTL:          cacheTTL,
	}
	if redisClient != nil {
		s.cache = redisClient
	}
	return s
}

// Table возвращает модель таблицы сервиса
func (s *AnalyticsService) Table() *TableView {
	return s.table
}

// Filter возвращает фильтр представлений сервиса
func (s *AnalyticsService) Filter() *ViewFilter {
	return s.filter
}

// Filtered возвращает отфильтрованные заказы текущего снимка
func (s *AnalyticsService) Filtered(ctx context.Context, params models.ViewParams) ([]models.Order, uint64, error) {
	snapshot, err := s.snapshot(ctx)
	if err != nil {
		return nil, 0, err
	}
	return s.filter.Apply(snapshot.Orders, params), snapshot.Version, nil
}

// View возвращает страницу таблицы для параметров фильтрации и состояния таблицы
func (s *AnalyticsService) View(ctx context.Context, params models.ViewParams, state models.TableState, highlight bool) (*models.OrdersView, error) {
	snapshot, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	state = s.table.Sanitize(state)
	key := s.buildCacheKey("table", snapshot, params, fmt.Sprintf("%s:%t", tableStateKey(state), highlight))

	result, err := s.memoize(ctx, key, new(models.OrdersView), func() (interface{}, error) {
		filtered := s.filter.Apply(snapshot.Orders, params)
		return &models.OrdersView{
			Version: snapshot.Version,
			Table:   s.table.Apply(state, filtered, highlight),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.OrdersView), nil
}

// Dashboard возвращает данные графиков: подразделения, корзины и итоги
func (s *AnalyticsService) Dashboard(ctx context.Context, params models.ViewParams) (*models.Dashboard, error) {
	snapshot, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	key := s.buildCacheKey("dashboard", snapshot, params, "")
	result, err := s.memoize(ctx, key, new(models.Dashboard), func() (interface{}, error) {
		filtered := s.filter.Apply(snapshot.Orders, params)
		return &models.Dashboard{
			Version:     snapshot.Version,
			Departments: AggregateByDepartment(filtered),
			Buckets:     AggregateBuckets(filtered),
			Summary:     Summarize(filtered, s.primaryDepartment),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Dashboard), nil
}

// Invalidate удаляет закешированные представления прежних снимков
func (s *AnalyticsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPrefix(ctx, redis.KeyPrefixView+":"); err != nil {
		s.log.WithError(err).Warn("Failed to invalidate cached views")
	}
}

// snapshot возвращает текущий снимок, загружая его при первом обращении
func (s *AnalyticsService) snapshot(ctx context.Context) (*models.Snapshot, error) {
	snapshot := s.feed.Snapshot()
	if snapshot == nil || snapshot.Version == 0 {
		snapshot = s.feed.Refresh(ctx)
	}
	if snapshot.Failed() {
		return nil, snapshot.Err
	}
	return snapshot, nil
}

// memoize читает результат из кеша или вычисляет его один раз для всех одновременных запросов
func (s *AnalyticsService) memoize(ctx context.Context, key string, cached interface{}, compute func() (interface{}, error)) (interface{}, error) {
	v, err, shared := s.group.Do(key, func() (interface{}, error) {
		if s.tryGetFromCache(ctx, key, cached) {
			return cached, nil
		}
		result, err := compute()
		if err != nil {
			return nil, err
		}
		s.saveToCache(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.log.WithField("key", key).Debug("Derived view computation shared")
	}
	return v, nil
}

// buildCacheKey включает источник снимка: счетчик версий начинается заново в каждом процессе,
// а Redis общий для всех реплик и переживает перезапуск
func (s *AnalyticsService) buildCacheKey(kind string, snapshot *models.Snapshot, params models.ViewParams, extra string) string {
	return redis.GenerateKey(redis.KeyPrefixView, fmt.Sprintf("%s:%d:%s:%s:%s", snapshot.Source, snapshot.Version, kind, viewParamsKey(params), extra))
}

func (s *AnalyticsService) tryGetFromCache(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	if err := s.cache.Get(ctx, key, dest); err != nil {
		return false
	}
	return true
}

func (s *AnalyticsService) saveToCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Failed to cache derived view")
	}
}

func viewParamsKey(params models.ViewParams) string {
	dept := "*"
	if params.Department != nil {
		dept = fmt.Sprintf("%q", *params.Department)
	}
	return fmt.Sprintf("%s:%s:%s:%t",
		formatDay(params.DateRange.StartDate),
		formatDay(params.DateRange.EndDate),
		dept,
		params.ProblemOnly,
	)
}

func tableStateKey(state models.TableState) string {
	sorting := make([]string, 0, len(state.Sorting))
	for _, s := range state.Sorting {
		sorting = append(sorting, s.Column+"."+string(s.Direction))
	}
	return fmt.Sprintf("%s:%d:%d:%s",
		strings.Join(sorting, ","),
		state.Pagination.PageIndex,
		state.Pagination.PageSize,
		strings.Join(state.ColumnOrder, ","),
	)
}

func formatDay(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

// ValidateParams проверяет согласованность параметров фильтрации
func ValidateParams(params models.ViewParams) error {
	r := params.DateRange
	if r.StartDate != nil && r.EndDate != nil && r.EndDate.Before(*r.StartDate) {
		return apperror.Validation("end_date must not be before start_date", nil)
	}
	return nil
}
