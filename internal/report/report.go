// Package report derives dashboard figures, summaries and receipts from a
// session snapshot. Nothing here reads the store or keeps state.
package report

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"retailhub/backend/internal/domain"
)

// ListLimit caps the recent sales and top products lists.
const ListLimit = 5

type Input struct {
	Products  []domain.Product
	Sales     []domain.Sale
	Customers []domain.Customer
	Expenses  []domain.Expense
}

type DashboardStats struct {
	TodaySales     decimal.Decimal  `json:"today_sales"`
	TodayOrders    int              `json:"today_orders"`
	TodayExpenses  decimal.Decimal  `json:"today_expenses"`
	TodayProfit    decimal.Decimal  `json:"today_profit"`
	TotalProducts  int              `json:"total_products"`
	TotalCustomers int              `json:"total_customers"`
	LowStock       []domain.Product `json:"low_stock"`
	RecentSales    []domain.Sale    `json:"recent_sales"`
	TopProducts    []domain.Product `json:"top_products"`
}

// StartOfDay is local midnight in now's location.
func StartOfDay(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// Dashboard computes today's figures. "Today" starts at midnight in now's
// location; the top products list is the first entries of the catalog, not
// a sales ranking.
func Dashboard(in Input, now time.Time) DashboardStats {
	midnight := StartOfDay(now)
	stats := DashboardStats{
		TotalProducts:  len(in.Products),
		TotalCustomers: len(in.Customers),
		LowStock:       LowStock(in.Products),
		RecentSales:    RecentSales(in.Sales, ListLimit),
		TopProducts:    head(in.Products, ListLimit),
	}
	for _, sale := range in.Sales {
		if !sale.CreatedAt.Before(midnight) {
			stats.TodaySales = stats.TodaySales.Add(sale.Total)
			stats.TodayOrders++
		}
	}
	for _, e := range in.Expenses {
		if !e.CreatedAt.Before(midnight) {
			stats.TodayExpenses = stats.TodayExpenses.Add(e.Amount)
		}
	}
	stats.TodayProfit = stats.TodaySales.Sub(stats.TodayExpenses)
	return stats
}

// LowStock returns products whose stock is below domain.LowStockThreshold, lowest first.
func LowStock(products []domain.Product) []domain.Product {
	out := make([]domain.Product, 0)
	for _, p := range products {
		if p.Stock < domain.LowStockThreshold {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Product) int {
		return cmp.Compare(a.Stock, b.Stock)
	})
	return out
}

// RecentSales returns up to n sales, newest first.
func RecentSales(sales []domain.Sale, n int) []domain.Sale {
	sorted := slices.Clone(sales)
	slices.SortStableFunc(sorted, func(a, b domain.Sale) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return head(sorted, n)
}

type Summary struct {
	Revenue            decimal.Decimal            `json:"revenue"`
	Expenses           decimal.Decimal            `json:"expenses"`
	NetProfit          decimal.Decimal            `json:"net_profit"`
	SalesCount         int                        `json:"sales_count"`
	AverageSale        decimal.Decimal            `json:"average_sale"`
	ItemsSold          int                        `json:"items_sold"`
	ExpensesByCategory map[string]decimal.Decimal `json:"expenses_by_category"`
	RevenueByPayment   map[string]decimal.Decimal `json:"revenue_by_payment"`
	TopProducts        []domain.Product           `json:"top_products"`
}

// BuildSummary totals every active sale and expense in the snapshot.
func BuildSummary(in Input) Summary {
	sum := Summary{
		ExpensesByCategory: make(map[string]decimal.Decimal),
		RevenueByPayment:   make(map[string]decimal.Decimal),
		TopProducts:        head(in.Products, ListLimit),
	}
	for _, sale := range in.Sales {
		sum.Revenue = sum.Revenue.Add(sale.Total)
		sum.ItemsSold += sale.ItemCount()
		sum.RevenueByPayment[sale.PaymentMethod] = sum.RevenueByPayment[sale.PaymentMethod].Add(sale.Total)
	}
	for _, e := range in.Expenses {
		sum.Expenses = sum.Expenses.Add(e.Amount)
		sum.ExpensesByCategory[e.Category] = sum.ExpensesByCategory[e.Category].Add(e.Amount)
	}
	sum.SalesCount = len(in.Sales)
	sum.NetProfit = sum.Revenue.Sub(sum.Expenses)
	if sum.SalesCount > 0 {
		sum.AverageSale = sum.Revenue.Div(decimal.NewFromInt(int64(sum.SalesCount))).Round(2)
	}
	return sum
}

func head[T any](rows []T, n int) []T {
	if len(rows) > n {
		rows = rows[:n]
	}
	return append(make([]T, 0, len(rows)), rows...)
}
