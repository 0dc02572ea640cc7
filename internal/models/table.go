package models

// Идентификаторы колонок таблицы заказов
const (
	ColumnOrderID             = "order_id"
	ColumnOrderFirstTime      = "order_first_time"
	ColumnOrderSecondTime     = "order_second_time"
	ColumnTimeBetweenMessages = "time_between_messages"
	ColumnDepartment          = "department"
	ColumnCurrentStatus       = "current_order_status"
)

// DefaultColumnOrder задает начальный порядок колонок
var DefaultColumnOrder = []string{
	ColumnOrderID,
	ColumnOrderFirstTime,
	ColumnOrderSecondTime,
	ColumnTimeBetweenMessages,
	ColumnDepartment,
	ColumnCurrentStatus,
}

// ColumnTitles содержит заголовки колонок для выгрузок
var ColumnTitles = map[string]string{
	ColumnOrderID:             "Номер заказа",
	ColumnOrderFirstTime:      "Время первого заказа",
	ColumnOrderSecondTime:     "Время изменения заказа",
	ColumnTimeBetweenMessages: "Время обработки заказа",
	ColumnDepartment:          "Подразделение",
	ColumnCurrentStatus:       "Текущий статус заказа",
}

// SortDirection задает направление сортировки колонки
type SortDirection string

const (
	SortNone SortDirection = ""
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortColumn описывает сортировку по одной колонке
type SortColumn struct {
	Column    string        `json:"column"`
	Direction SortDirection `json:"direction"`
}

// Pagination описывает текущую страницу таблицы
type Pagination struct {
	PageIndex int `json:"page_index"`
	PageSize  int `json:"page_size"`
}

// TableState хранит состояние представления таблицы
type TableState struct {
	Sorting     []SortColumn `json:"sorting"`
	Pagination  Pagination   `json:"pagination"`
	ColumnOrder []string     `json:"column_order"`
}

// Highlight описывает цветовое выделение строки
type Highlight string

const (
	HighlightNone     Highlight = "none"
	HighlightWarning  Highlight = "warning"
	HighlightCritical Highlight = "critical"
)

// StatusOptions содержит текущий статус и варианты для выпадающего списка
type StatusOptions struct {
	Current string   `json:"current"`
	Options []string `json:"options"`
}

// TableRow представляет строку таблицы
type TableRow struct {
	Order
	ProcessingMinutes int           `json:"processing_minutes"`
	Highlight         Highlight     `json:"highlight"`
	Status            StatusOptions `json:"status"`
}

// TablePage представляет страницу таблицы после сортировки и пагинации
type TablePage struct {
	Rows        []TableRow   `json:"rows"`
	TotalRows   int          `json:"total_rows"`
	PageCount   int          `json:"page_count"`
	PageIndex   int          `json:"page_index"`
	PageSize    int          `json:"page_size"`
	Sorting     []SortColumn `json:"sorting"`
	ColumnOrder []string     `json:"column_order"`
}

// OrdersView объединяет страницу таблицы и версию снимка, из которого она построена
type OrdersView struct {
	Version uint64    `json:"version"`
	Table   TablePage `json:"table"`
}
