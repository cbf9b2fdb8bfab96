package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"retailhub/backend/internal/domain"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

var now = time.Date(2026, 5, 14, 15, 30, 0, 0, time.UTC)

func TestDashboardCountsOnlyToday(t *testing.T) {
	midnight := StartOfDay(now)
	in := Input{
		Products: []domain.Product{
			{ID: "p1", Name: "Cola", Stock: 2},
			{ID: "p2", Name: "Rice", Stock: 40},
			{ID: "p3", Name: "Oil", Stock: 9},
			{ID: "p4", Name: "Soap", Stock: 10},
		},
		Sales: []domain.Sale{
			{ID: "s1", Total: dec("4.50"), CreatedAt: midnight},
			{ID: "s2", Total: dec("10.00"), CreatedAt: now.Add(-time.Hour)},
			{ID: "s3", Total: dec("99.00"), CreatedAt: midnight.Add(-time.Nanosecond)},
		},
		Expenses: []domain.Expense{
			{ID: "e1", Amount: dec("20.00"), CreatedAt: now},
			{ID: "e2", Amount: dec("7.00"), CreatedAt: now.AddDate(0, 0, -2)},
		},
		Customers: []domain.Customer{{ID: "c1"}},
	}

	stats := Dashboard(in, now)
	assert.True(t, stats.TodaySales.Equal(dec("14.50")))
	assert.Equal(t, 2, stats.TodayOrders)
	assert.True(t, stats.TodayExpenses.Equal(dec("20.00")))
	assert.True(t, stats.TodayProfit.Equal(dec("-5.50")))
	assert.Equal(t, 4, stats.TotalProducts)
	assert.Equal(t, 1, stats.TotalCustomers)

	require.Len(t, stats.LowStock, 2)
	assert.Equal(t, "p1", stats.LowStock[0].ID)
	assert.Equal(t, "p3", stats.LowStock[1].ID)

	require.Len(t, stats.RecentSales, 3)
	assert.Equal(t, "s2", stats.RecentSales[0].ID)
}

func TestListsAreCappedAtFive(t *testing.T) {
	var in Input
	for i := range 8 {
		in.Products = append(in.Products, domain.Product{ID: string(rune('a' + i)), Stock: 50})
		in.Sales = append(in.Sales, domain.Sale{ID: string(rune('a' + i)), CreatedAt: now.Add(time.Duration(i) * time.Minute)})
	}
	stats := Dashboard(in, now)
	assert.Len(t, stats.RecentSales, ListLimit)
	assert.Equal(t, "h", stats.RecentSales[0].ID)
	assert.Len(t, stats.TopProducts, ListLimit)
	assert.Equal(t, "a", stats.TopProducts[0].ID)
	assert.Empty(t, stats.LowStock)
	assert.Len(t, in.Products, 8)
}

func TestBuildSummary(t *testing.T) {
	in := Input{
		Sales: []domain.Sale{
			{Total: dec("10.00"), PaymentMethod: "cash", Lines: []domain.SaleLine{{Quantity: 2}}},
			{Total: dec("5.00"), PaymentMethod: "card", Lines: []domain.SaleLine{{Quantity: 1}, {Quantity: 3}}},
			{Total: dec("5.00"), PaymentMethod: "cash"},
		},
		Expenses: []domain.Expense{
			{Category: "Rent", Amount: dec("6.00")},
			{Category: "Utilities", Amount: dec("1.50")},
			{Category: "Rent", Amount: dec("2.00")},
		},
	}
	sum := BuildSummary(in)
	assert.True(t, sum.Revenue.Equal(dec("20.00")))
	assert.True(t, sum.Expenses.Equal(dec("9.50")))
	assert.True(t, sum.NetProfit.Equal(dec("10.50")))
	assert.Equal(t, 3, sum.SalesCount)
	assert.Equal(t, 6, sum.ItemsSold)
	assert.True(t, sum.AverageSale.Equal(dec("6.67")))
	assert.True(t, sum.ExpensesByCategory["Rent"].Equal(dec("8.00")))
	assert.True(t, sum.RevenueByPayment["cash"].Equal(dec("15.00")))

	empty := BuildSummary(Input{})
	assert.True(t, empty.AverageSale.IsZero())
}

func TestBuildReceipt(t *testing.T) {
	settings := domain.DefaultSettings("u1")
	sale := domain.Sale{
		ID:            "9f1c2a7b-1111-2222-3333-444455556666",
		PaymentMethod: "cash",
		Discount:      dec("0.45"),
		Total:         dec("4.05"),
		CreatedAt:     now,
		Lines: []domain.SaleLine{
			{ProductName: "Cola", Quantity: 3, UnitPrice: dec("1.50"), Total: dec("4.50")},
		},
	}

	r := BuildReceipt(settings, sale)
	assert.Equal(t, "9F1C2A7B", r.Number)
	assert.Equal(t, domain.GuestCustomerLabel, r.Customer)
	assert.Equal(t, "$", r.Currency)
	assert.True(t, r.Subtotal.Equal(dec("4.50")))
	assert.True(t, r.Total.Equal(dec("4.05")))
	require.Len(t, r.Lines, 1)

	noLines := BuildReceipt(settings, domain.Sale{ID: "abc", Total: dec("1")})
	assert.NotNil(t, noLines.Lines)
	assert.Empty(t, noLines.Lines)
	assert.True(t, noLines.Subtotal.IsZero())
}

func TestReceiptFileName(t *testing.T) {
	assert.Equal(t, "FARTUN-RETAIL-HUB-9F1C2A7B.pdf", ReceiptFileName("Fartun Retail Hub", "9f1c2a7b-1111"))
	assert.Equal(t, "RECEIPT-ABC.pdf", ReceiptFileName("  ", "abc"))
}

func TestRenderReceiptPDF(t *testing.T) {
	r := BuildReceipt(domain.DefaultSettings("u1"), domain.Sale{
		ID:            "9f1c2a7b-1111",
		PaymentMethod: "mobile money",
		Total:         dec("4.50"),
		CreatedAt:     now,
		Lines:         []domain.SaleLine{{ProductName: "Café Touba", Quantity: 3, UnitPrice: dec("1.50"), Total: dec("4.50")}},
	})

	var buf bytes.Buffer
	require.NoError(t, RenderReceiptPDF(&buf, r))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	var empty bytes.Buffer
	require.NoError(t, RenderReceiptPDF(&empty, BuildReceipt(domain.DefaultSettings("u1"), domain.Sale{ID: "x"})))
	assert.NotZero(t, empty.Len())
}

func TestWriteSalesWorkbook(t *testing.T) {
	sales := []domain.Sale{
		{
			ID: "s1", CustomerName: "Amina", PaymentMethod: "cash", Total: dec("4.50"), Subtotal: dec("4.50"), CreatedAt: now,
			Lines: []domain.SaleLine{{ProductName: "Cola", Quantity: 3, UnitPrice: dec("1.50"), Total: dec("4.50")}},
		},
		{ID: "s2", CustomerName: domain.GuestCustomerLabel, PaymentMethod: "card", Total: dec("2"), CreatedAt: now},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSalesWorkbook(&buf, sales))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(salesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Sale ID", rows[0][0])
	assert.Equal(t, "Amina", rows[1][2])
	assert.Equal(t, "3", rows[1][3])

	lines, err := f.GetRows(linesSheet)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "Cola", lines[1][1])
}
