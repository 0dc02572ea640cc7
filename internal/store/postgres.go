package store

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"regexp"

	"orders-dashboard/internal/apperror"
	"orders-dashboard/internal/config"
	"orders-dashboard/internal/database"
	"orders-dashboard/internal/logger"
	"orders-dashboard/internal/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

const defaultOrdersTable = "orders"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PostgresStore читает заказы из PostgreSQL как JSON-документы строк
type PostgresStore struct {
	db      *database.DB
	log     *logger.Logger
	table   string
	maxRows int
}

// NewPostgresStore создает хранилище заказов
func NewPostgresStore(db *database.DB, log *logger.Logger, dbCfg *config.DatabaseConfig, dashCfg *config.DashboardConfig) *PostgresStore {
	table := defaultOrdersTable
	if dbCfg != nil && dbCfg.Table != "" {
		if tableNamePattern.MatchString(dbCfg.Table) {
			table = dbCfg.Table
		} else {
			log.WithField("table", dbCfg.Table).Warn("Invalid orders table name, using default")
		}
	}

	maxRows := 0
	if dashCfg != nil && dashCfg.MaxRows > 0 {
		maxRows = dashCfg.MaxRows
	}

	return &PostgresStore{db: db, log: log, table: table, maxRows: maxRows}
}

// ListOrders возвращает сырые записи заказов, новые первыми
func (s *PostgresStore) ListOrders(ctx context.Context) ([]models.RawOrder, error) {
	query, args, err := s.listQuery().ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build orders query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapStoreError(fmt.Errorf("failed to query orders: %w", err))
	}
	defer rows.Close()

	var result []models.RawOrder
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, mapStoreError(fmt.Errorf("failed to scan order: %w", err))
		}

		raw, err := decodeRawOrder(doc)
		if err != nil {
			// одна поврежденная строка не должна ломать весь список
			s.log.WithError(err).Warn("Skipping undecodable order row")
			continue
		}
		result = append(result, raw)
	}

	if err := rows.Err(); err != nil {
		return nil, mapStoreError(fmt.Errorf("failed to iterate orders: %w", err))
	}

	s.log.WithField("count", len(result)).Debug("Orders loaded from database")
	return result, nil
}

func (s *PostgresStore) listQuery() sq.SelectBuilder {
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select("row_to_json(o)").
		From(s.table + " o").
		OrderBy("o.id DESC")
	if s.maxRows > 0 {
		builder = builder.Limit(uint64(s.maxRows))
	}
	return builder
}

func decodeRawOrder(doc []byte) (models.RawOrder, error) {
	decoder := json.NewDecoder(bytes.NewReader(doc))
	decoder.UseNumber()

	var raw models.RawOrder
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode order document: %w", err)
	}
	if raw == nil {
		return nil, errors.New("order document is null")
	}
	return raw, nil
}

// mapStoreError отделяет ошибки авторизации и недоступности от прочих ошибок хранилища
func mapStoreError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code.Class() == "28" || pqErr.Code == "42501":
			return apperror.Unauthorized("not authorized to read orders", err)
		case pqErr.Code.Class() == "08" || pqErr.Code == "57P03":
			return apperror.Unavailable("orders store is unavailable", err)
		}
		return err
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.As(err, &netErr) {
		return apperror.Unavailable("orders store is unavailable", err)
	}
	return err
}
