package models

import "github.com/shopspring/decimal"

// DurationBucket описывает диапазон времени обработки в минутах
type DurationBucket string

const (
	BucketUnder10 DurationBucket = "under_10"
	Bucket10To20  DurationBucket = "10_20"
	Bucket20To30  DurationBucket = "20_30"
	BucketOver30  DurationBucket = "over_30"
)

// UnspecifiedDepartment подставляется при группировке заказов без подразделения
const UnspecifiedDepartment = "Not specified"

// DurationBuckets перечисляет корзины в порядке возрастания
var DurationBuckets = []DurationBucket{BucketUnder10, Bucket10To20, Bucket20To30, BucketOver30}

// BucketLabels содержит подписи корзин для графиков и выгрузок
var BucketLabels = map[DurationBucket]string{
	BucketUnder10: "До 10 мин",
	Bucket10To20:  "10-20 мин",
	Bucket20To30:  "20-30 мин",
	BucketOver30:  "Более 30 мин",
}

// BucketCounts хранит количество заказов по корзинам
type BucketCounts struct {
	Under10 int `json:"under_10"`
	From10  int `json:"10_20"`
	From20  int `json:"20_30"`
	Over30  int `json:"over_30"`
}

// Get возвращает счетчик корзины
func (b BucketCounts) Get(bucket DurationBucket) int {
	switch bucket {
	case BucketUnder10:
		return b.Under10
	case Bucket10To20:
		return b.From10
	case Bucket20To30:
		return b.From20
	case BucketOver30:
		return b.Over30
	}
	return 0
}

// Add увеличивает счетчик корзины
func (b *BucketCounts) Add(bucket DurationBucket) {
	switch bucket {
	case BucketUnder10:
		b.Under10++
	case Bucket10To20:
		b.From10++
	case Bucket20To30:
		b.From20++
	case BucketOver30:
		b.Over30++
	}
}

// DepartmentStats агрегирует заказы одного подразделения
type DepartmentStats struct {
	Department     string       `json:"department"`
	Buckets        BucketCounts `json:"buckets"`
	Total          int          `json:"total"`
	CancelledCount int          `json:"cancelled"`
}

// Amounts хранит суммы выполненных и отмененных заказов
type Amounts struct {
	Completed decimal.Decimal `json:"completed_amount"`
	Cancelled decimal.Decimal `json:"cancelled_amount"`
}

// Summary содержит итоговые показатели по набору заказов
type Summary struct {
	TotalOrders       int     `json:"total_orders"`
	PrimaryDepartment string  `json:"primary_department"`
	PrimaryOrders     int     `json:"primary_orders"`
	OtherOrders       int     `json:"other_orders"`
	CancelledOrders   int     `json:"cancelled_orders"`
	Amounts           Amounts `json:"amounts"`
}

// Dashboard объединяет данные для графиков аналитики
type Dashboard struct {
	Version     uint64            `json:"version"`
	Departments []DepartmentStats `json:"departments"`
	Buckets     BucketCounts      `json:"buckets"`
	Summary     Summary           `json:"summary"`
}
