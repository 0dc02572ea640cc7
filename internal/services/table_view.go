package services

import (
	"fmt"
	"sort"
	"strings"

	"orders-dashboard/internal/apperror"
	"orders-dashboard/internal/config"
	"orders-dashboard/internal/models"
)

var defaultPageSizes = []int{10, 20, 30}

// TableView управляет сортировкой, пагинацией и порядком колонок таблицы заказов
type TableView struct {
	pageSizes       []int
	defaultPageSize int
	thresholds      Thresholds
}

// NewTableView создает модель таблицы с размерами страниц из конфигурации
func NewTableView(cfg *config.DashboardConfig) *TableView {
	view := &TableView{
		pageSizes:       append([]int{}, defaultPageSizes...),
		defaultPageSize: defaultPageSizes[0],
		thresholds:      ThresholdsFromConfig(cfg),
	}
	if cfg == nil {
		return view
	}

	if len(cfg.PageSizes) > 0 {
		view.pageSizes = append([]int{}, cfg.PageSizes...)
		view.defaultPageSize = view.pageSizes[0]
	}
	if view.allowedPageSize(cfg.DefaultPageSize) {
		view.defaultPageSize = cfg.DefaultPageSize
	}
	return view
}

// PageSizes возвращает допустимые размеры страницы
func (v *TableView) PageSizes() []int {
	return append([]int{}, v.pageSizes...)
}

// DefaultState возвращает начальное состояние таблицы
func (v *TableView) DefaultState() models.TableState {
	return models.TableState{
		Sorting:     []models.SortColumn{},
		Pagination:  models.Pagination{PageIndex: 0, PageSize: v.defaultPageSize},
		ColumnOrder: append([]string{}, models.DefaultColumnOrder...),
	}
}

// Sanitize приводит внешнее состояние к допустимому: неизвестные колонки отбрасываются,
// недопустимый размер страницы заменяется размером по умолчанию.
func (v *TableView) Sanitize(state models.TableState) models.TableState {
	result := v.DefaultState()

	seen := make(map[string]struct{})
	for _, s := range state.Sorting {
		if !isKnownColumn(s.Column) || (s.Direction != models.SortAsc && s.Direction != models.SortDesc) {
			continue
		}
		if _, ok := seen[s.Column]; ok {
			continue
		}
		seen[s.Column] = struct{}{}
		result.Sorting = append(result.Sorting, s)
	}

	if v.allowedPageSize(state.Pagination.PageSize) {
		result.Pagination.PageSize = state.Pagination.PageSize
	}
	if state.Pagination.PageIndex > 0 {
		result.Pagination.PageIndex = state.Pagination.PageIndex
	}

	if isPermutation(state.ColumnOrder) {
		result.ColumnOrder = append([]string{}, state.ColumnOrder...)
	}
	return result
}

// ToggleSort переключает сортировку колонки по циклу: нет, по возрастанию, по убыванию, нет.
// В одиночном режиме остальные колонки сбрасываются, в множественном сохраняются.
func (v *TableView) ToggleSort(state models.TableState, column string, multi bool) (models.TableState, error) {
	if !isKnownColumn(column) {
		return state, apperror.Validation(fmt.Sprintf("unknown column %q", column), nil)
	}

	next := cloneTableState(state)
	current := models.SortNone
	position := -1
	for i, s := range next.Sorting {
		if s.Column == column {
			current = s.Direction
			position = i
			break
		}
	}

	direction := nextDirection(current)

	if !multi {
		next.Sorting = []models.SortColumn{}
		if direction != models.SortNone {
			next.Sorting = append(next.Sorting, models.SortColumn{Column: column, Direction: direction})
		}
	} else {
		switch {
		case position < 0:
			next.Sorting = append(next.Sorting, models.SortColumn{Column: column, Direction: direction})
		case direction == models.SortNone:
			next.Sorting = append(next.Sorting[:position], next.Sorting[position+1:]...)
		default:
			next.Sorting[position].Direction = direction
		}
	}

	next.Pagination.PageIndex = 0
	return next, nil
}

// SetPageSize меняет размер страницы и сбрасывает номер страницы
func (v *TableView) SetPageSize(state models.TableState, size int) (models.TableState, error) {
	if !v.allowedPageSize(size) {
		return state, apperror.Validation(fmt.Sprintf("page size %d is not allowed", size), nil)
	}
	next := cloneTableState(state)
	next.Pagination.PageSize = size
	next.Pagination.PageIndex = 0
	return next, nil
}

// SetPage меняет номер страницы; окончательная проверка границ выполняется в Apply
func (v *TableView) SetPage(state models.TableState, index int) models.TableState {
	next := cloneTableState(state)
	if index < 0 {
		index = 0
	}
	next.Pagination.PageIndex = index
	return next
}

// MoveColumn перемещает колонку source на место target со сдвигом промежуточных.
// Если source совпадает с target или одна из колонок не найдена, состояние не меняется.
func MoveColumn(state models.TableState, source, target string) models.TableState {
	next := cloneTableState(state)
	if source == target {
		return next
	}

	from, to := -1, -1
	for i, id := range next.ColumnOrder {
		switch id {
		case source:
			from = i
		case target:
			to = i
		}
	}
	if from < 0 || to < 0 {
		return next
	}

	order := append(next.ColumnOrder[:from:from], next.ColumnOrder[from+1:]...)
	order = append(order[:to], append([]string{source}, order[to:]...)...)
	next.ColumnOrder = order
	return next
}

// Apply сортирует копию заказов и возвращает строки текущей страницы
func (v *TableView) Apply(state models.TableState, orders []models.Order, highlight bool) models.TablePage {
	state = v.Sanitize(state)
	sorted := sortOrders(orders, state.Sorting)

	size := state.Pagination.PageSize
	if size <= 0 {
		size = defaultPageSizes[0]
	}
	total := len(sorted)
	pageCount := (total + size - 1) / size

	index := state.Pagination.PageIndex
	if index > pageCount-1 {
		index = pageCount - 1
	}
	if index < 0 {
		index = 0
	}

	start := index * size
	end := start + size
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	rows := make([]models.TableRow, 0, end-start)
	for _, order := range sorted[start:end] {
		rows = append(rows, v.Row(order, highlight))
	}

	return models.TablePage{
		Rows:        rows,
		TotalRows:   total,
		PageCount:   pageCount,
		PageIndex:   index,
		PageSize:    size,
		Sorting:     state.Sorting,
		ColumnOrder: state.ColumnOrder,
	}
}

// Rows возвращает все строки в порядке сортировки состояния, без пагинации
func (v *TableView) Rows(state models.TableState, orders []models.Order, highlight bool) []models.TableRow {
	state = v.Sanitize(state)
	sorted := sortOrders(orders, state.Sorting)

	rows := make([]models.TableRow, 0, len(sorted))
	for _, order := range sorted {
		rows = append(rows, v.Row(order, highlight))
	}
	return rows
}

func sortOrders(orders []models.Order, sorting []models.SortColumn) []models.Order {
	sorted := cloneOrders(orders)
	if len(sorting) > 0 {
		sort.SliceStable(sorted, func(i, j int) bool {
			return lessBySorting(sorted[i], sorted[j], sorting)
		})
	}
	return sorted
}

// Row строит строку таблицы для заказа
func (v *TableView) Row(order models.Order, highlight bool) models.TableRow {
	text := ""
	if order.TimeBetweenMessages != nil {
		text = *order.TimeBetweenMessages
	}
	return models.TableRow{
		Order:             order,
		ProcessingMinutes: ParseDuration(text),
		Highlight:         Highlight(text, highlight, v.thresholds),
		Status:            StatusOptionsFor(order),
	}
}

func (v *TableView) allowedPageSize(size int) bool {
	for _, allowed := range v.pageSizes {
		if allowed == size {
			return true
		}
	}
	return false
}

// ParseSorting разбирает строку вида "department:asc,order_id:desc"
func ParseSorting(value string) ([]models.SortColumn, error) {
	result := []models.SortColumn{}
	if strings.TrimSpace(value) == "" {
		return result, nil
	}

	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		column, dir, found := strings.Cut(part, ":")
		direction := models.SortAsc
		if found {
			direction = models.SortDirection(strings.ToLower(strings.TrimSpace(dir)))
		}
		if !isKnownColumn(column) {
			return nil, apperror.Validation(fmt.Sprintf("unknown sort column %q", column), nil)
		}
		if direction != models.SortAsc && direction != models.SortDesc {
			return nil, apperror.Validation(fmt.Sprintf("invalid sort direction %q", dir), nil)
		}
		result = append(result, models.SortColumn{Column: column, Direction: direction})
	}
	return result, nil
}

func nextDirection(current models.SortDirection) models.SortDirection {
	switch current {
	case models.SortNone:
		return models.SortAsc
	case models.SortAsc:
		return models.SortDesc
	default:
		return models.SortNone
	}
}

func lessBySorting(a, b models.Order, sorting []models.SortColumn) bool {
	for _, s := range sorting {
		cmp, withNull := compareColumn(a, b, s.Column)
		if cmp == 0 {
			continue
		}
		// null-значения всегда в конце, независимо от направления
		if !withNull && s.Direction == models.SortDesc {
			cmp = -cmp
		}
		return cmp < 0
	}
	return false
}

// compareColumn сравнивает значения колонки; второй результат true, если одно из значений null
func compareColumn(a, b models.Order, column string) (int, bool) {
	switch column {
	case models.ColumnOrderID:
		return compareNullable(a.OrderID == nil, b.OrderID == nil, func() int {
			return compareInt64(*a.OrderID, *b.OrderID)
		})
	case models.ColumnOrderFirstTime:
		return compareStrings(a.OrderFirstTime, b.OrderFirstTime)
	case models.ColumnOrderSecondTime:
		return compareStrings(a.OrderSecondTime, b.OrderSecondTime)
	case models.ColumnTimeBetweenMessages:
		return compareNullable(a.TimeBetweenMessages == nil, b.TimeBetweenMessages == nil, func() int {
			return compareInt64(int64(ProcessingMinutes(a)), int64(ProcessingMinutes(b)))
		})
	case models.ColumnDepartment:
		return compareStrings(a.Department, b.Department)
	case models.ColumnCurrentStatus:
		sa, sb := a.CurrentStatus(), b.CurrentStatus()
		return compareNullable(sa == "", sb == "", func() int {
			return strings.Compare(sa, sb)
		})
	}
	return 0, false
}

func compareNullable(aNull, bNull bool, cmp func() int) (int, bool) {
	switch {
	case aNull && bNull:
		return 0, false
	case aNull:
		return 1, true
	case bNull:
		return -1, true
	}
	return cmp(), false
}

func compareStrings(a, b *string) (int, bool) {
	return compareNullable(a == nil, b == nil, func() int {
		return strings.Compare(*a, *b)
	})
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func isKnownColumn(column string) bool {
	for _, id := range models.DefaultColumnOrder {
		if id == column {
			return true
		}
	}
	return false
}

func isPermutation(order []string) bool {
	if len(order) != len(models.DefaultColumnOrder) {
		return false
	}
	seen := make(map[string]struct{}, len(order))
	for _, id := range order {
		if !isKnownColumn(id) {
			return false
		}
		if _, ok := seen[id]; ok {
			return false
		}
		seen[id] = struct{}{}
	}
	return true
}

func cloneTableState(state models.TableState) models.TableState {
	return models.TableState{
		Sorting:     append([]models.SortColumn{}, state.Sorting...),
		Pagination:  state.Pagination,
		ColumnOrder: append([]string{}, state.ColumnOrder...),
	}
}
