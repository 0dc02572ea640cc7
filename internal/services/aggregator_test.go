package services

import (
	"testing"

	"orders-dashboard/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketFor(t *testing.T) {
	assert.Equal(t, models.BucketUnder10, BucketFor(0))
	assert.Equal(t, models.BucketUnder10, BucketFor(9))
	assert.Equal(t, models.Bucket10To20, BucketFor(10))
	assert.Equal(t, models.Bucket20To30, BucketFor(29))
	assert.Equal(t, models.BucketOver30, BucketFor(30))
	assert.Equal(t, models.BucketOver30, BucketFor(maxMinutes))
}

func TestAggregateByDepartment_OrderingByTotal(t *testing.T) {
	orders := NormalizeAll([]models.RawOrder{
		{"id": 1, "department": "A"},
		{"id": 2, "department": "A"},
		{"id": 3, "department": "B"},
	})

	stats := AggregateByDepartment(orders)
	require.Len(t, stats, 2)
	assert.Equal(t, "A", stats[0].Department)
	assert.Equal(t, 2, stats[0].Total)
	assert.Equal(t, "B", stats[1].Department)
	assert.Equal(t, 1, stats[1].Total)
	assert.Equal(t, 2, stats[0].Buckets.Under10)
}

func TestAggregateByDepartment_TiesKeepFirstAppearance(t *testing.T) {
	orders := NormalizeAll([]models.RawOrder{
		{"id": 1, "department": "C"},
		{"id": 2},
		{"id": 3, "department": "A"},
		{"id": 4, "department": "A"},
		{"id": 5, "department": ""},
	})

	stats := AggregateByDepartment(orders)
	require.Len(t, stats, 3)
	assert.Equal(t, []string{models.UnspecifiedDepartment, "A", "C"},
		[]string{stats[0].Department, stats[1].Department, stats[2].Department})
	assert.Equal(t, 2, stats[0].Total)
}

func TestAggregateByDepartment_CancelledCount(t *testing.T) {
	orders := NormalizeAll([]models.RawOrder{
		{"id": 1, "department": "A", "order_status": []interface{}{"Принят", "ОТМЕНЕН клиентом"}},
		{"id": 2, "department": "A", "order_status": "Выполнен"},
		{"id": 3, "department": "A", "order_status": "Отменен,Отменен"},
	})

	stats := AggregateByDepartment(orders)
	require.Len(t, stats, 1)
	assert.Equal(t, 2, stats[0].CancelledCount)
}

func TestAggregateAmounts_CompletedWinsOverCancelled(t *testing.T) {
	orders := NormalizeAll([]models.RawOrder{
		{"id": 1, "order_amount": 100.0, "order_status": []interface{}{"Отменен", "Выполнен"}},
		{"id": 2, "order_amount": 10.1, "order_status": "Отменен"},
		{"id": 3, "order_amount": 0.2, "order_status": "Отменен"},
		{"id": 4, "order_amount": 5.0, "order_status": "В работе"},
		{"id": 5, "order_status": "Выполнен"},
	})

	amounts := AggregateAmounts(orders)
	assert.True(t, amounts.Completed.Equal(decimal.NewFromInt(100)), amounts.Completed.String())
	assert.True(t, amounts.Cancelled.Equal(decimal.RequireFromString("10.3")), amounts.Cancelled.String())
}

func TestSummarize(t *testing.T) {
	orders := NormalizeAll([]models.RawOrder{
		{"id": 1, "department": "Возрождение", "order_status": "Отменен"},
		{"id": 2, "department": "Возрождение"},
		{"id": 3, "department": "Другое"},
		{"id": 4},
	})

	summary := Summarize(orders, "Возрождение")
	assert.Equal(t, 4, summary.TotalOrders)
	assert.Equal(t, 2, summary.PrimaryOrders)
	assert.Equal(t, 2, summary.OtherOrders)
	assert.Equal(t, 1, summary.CancelledOrders)
}

func TestPipeline_EndToEnd(t *testing.T) {
	orders := NormalizeAll([]models.RawOrder{
		{"id": 1, "order_status": "Выполнен", "order_amount": 50, "time_between_messages": "35мин"},
		{"id": 2, "order_status": []interface{}{"Отменен"}, "order_amount": 20, "time_between_messages": "5мин"},
	})

	buckets := AggregateBuckets(orders)
	assert.Equal(t, 1, buckets.Get(models.BucketOver30))
	assert.Equal(t, 1, buckets.Get(models.BucketUnder10))
	assert.Equal(t, 0, buckets.Get(models.Bucket10To20))
	assert.Equal(t, 0, buckets.Get(models.Bucket20To30))

	stats := AggregateByDepartment(orders)
	require.Len(t, stats, 1)
	assert.Equal(t, models.UnspecifiedDepartment, stats[0].Department)
	assert.Equal(t, 1, stats[0].Buckets.Over30)
	assert.Equal(t, 1, stats[0].Buckets.Under10)
	assert.Equal(t, 1, stats[0].CancelledCount)

	amounts := AggregateAmounts(orders)
	assert.True(t, amounts.Completed.Equal(decimal.NewFromInt(50)))
	assert.True(t, amounts.Cancelled.Equal(decimal.NewFromInt(20)))
}
