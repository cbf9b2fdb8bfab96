package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Kind names an entity collection that supports the trash lifecycle.
type Kind string

const (
	KindSales     Kind = "sales"
	KindProducts  Kind = "products"
	KindCustomers Kind = "customers"
	KindExpenses  Kind = "expenses"
	KindPurchases Kind = "purchases"
	KindSuppliers Kind = "suppliers"
)

// RecoverableKinds are the kinds that carry a deleted_at column.
var RecoverableKinds = []Kind{KindSales, KindProducts, KindCustomers, KindExpenses, KindPurchases}

func ParseKind(raw string) (Kind, bool) {
	switch k := Kind(raw); k {
	case KindSales, KindProducts, KindCustomers, KindExpenses, KindPurchases, KindSuppliers:
		return k, true
	}
	return "", false
}

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

const (
	ProductStatusActive     = "active"
	ProductStatusOutOfStock = "out_of_stock"

	PurchaseStatusPending   = "pending"
	PurchaseStatusCompleted = "completed"

	// LowStockThreshold is the stock level below which a product is flagged.
	LowStockThreshold = 10

	UncategorizedLabel = "Uncategorized"
	GuestCustomerLabel = "Guest Customer"
)

// ExpenseCategories is the fixed label set accepted for expenses.
var ExpenseCategories = []string{"Utilities", "Rent", "Transport", "Salaries", "Other"}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Product struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	SKU        string          `json:"sku"`
	CategoryID string          `json:"category_id,omitempty"`
	Category   string          `json:"category"`
	Price      decimal.Decimal `json:"price"`
	Cost       decimal.Decimal `json:"cost"`
	Stock      int             `json:"stock"`
	Unit       string          `json:"unit"`
	CreatedAt  time.Time       `json:"created_at"`
	DeletedAt  *time.Time      `json:"deleted_at,omitempty"`
}

func (p Product) Status() string {
	if p.Stock > 0 {
		return ProductStatusActive
	}
	return ProductStatusOutOfStock
}

func (p Product) MarshalJSON() ([]byte, error) {
	type plain Product
	return json.Marshal(struct {
		plain
		Status string `json:"status"`
	}{plain: plain(p), Status: p.Status()})
}

type SaleLine struct {
	ID          string          `json:"id"`
	SaleID      string          `json:"sale_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

type Sale struct {
	ID            string          `json:"id"`
	CustomerID    string          `json:"customer_id,omitempty"`
	CustomerName  string          `json:"customer"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	CreatedAt     time.Time       `json:"created_at"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"`
	Lines         []SaleLine      `json:"lines"`
}

// ItemCount is the number of units sold across all lines.
func (s Sale) ItemCount() int {
	n := 0
	for _, line := range s.Lines {
		n += line.Quantity
	}
	return n
}

type Customer struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone"`
	Email     string          `json:"email"`
	Address   string          `json:"address"`
	Credit    decimal.Decimal `json:"credit"`
	CreatedAt time.Time       `json:"created_at"`
	DeletedAt *time.Time      `json:"deleted_at,omitempty"`
}

// Supplier has no trash lifecycle; deletes are immediate.
type Supplier struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

type Expense struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedAt   time.Time       `json:"created_at"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty"`
}

type PurchaseLine struct {
	ID          string          `json:"id"`
	PurchaseID  string          `json:"purchase_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Total       decimal.Decimal `json:"total"`
}

type Purchase struct {
	ID           string          `json:"id"`
	SupplierID   string          `json:"supplier_id"`
	SupplierName string          `json:"supplier"`
	Total        decimal.Decimal `json:"total"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	DeletedAt    *time.Time      `json:"deleted_at,omitempty"`
	Lines        []PurchaseLine  `json:"lines"`
}

type StoreSettings struct {
	UserID             string `json:"-"`
	Name               string `json:"name"`
	Phone              string `json:"phone"`
	Address            string `json:"address"`
	Email              string `json:"email"`
	TaxID              string `json:"tax_id"`
	Currency           string `json:"currency"`
	Timezone           string `json:"timezone"`
	DateFormat         string `json:"date_format"`
	Language           string `json:"language"`
	LowStockAlerts     bool   `json:"low_stock_alerts"`
	DailySummary       bool   `json:"daily_summary"`
	OrderNotifications bool   `json:"order_notifications"`
	CreditReminders    bool   `json:"credit_reminders"`
}

// DefaultSettings is what a user sees before saving settings for the first time.
func DefaultSettings(userID string) StoreSettings {
	return StoreSettings{
		UserID:             userID,
		Name:               "Fartun Retail Hub",
		Currency:           "USD ($)",
		Timezone:           "East Africa Time (EAT)",
		DateFormat:         "DD/MM/YYYY",
		Language:           "English",
		LowStockAlerts:     true,
		DailySummary:       true,
		OrderNotifications: false,
		CreditReminders:    true,
	}
}

// CurrencySymbol extracts "$" from labels like "USD ($)".
func (s StoreSettings) CurrencySymbol() string {
	label := s.Currency
	open, end := -1, -1
	for i, r := range label {
		switch r {
		case '(':
			open = i
		case ')':
			end = i
		}
	}
	if open >= 0 && end > open+1 {
		return label[open+1 : end]
	}
	if label == "" {
		return "$"
	}
	return label
}

// Activity is a session-local log entry. It is never persisted.
type Activity struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	ActivitySale        = "sale"
	ActivityProductAdd  = "product_add"
	ActivityCustomerAdd = "customer_add"
	ActivitySupplierAdd = "supplier_add"
	ActivityExpenseAdd  = "expense_add"
	ActivityPurchaseAdd = "purchase_add"
	ActivityStockLow    = "stock_low"
	ActivityOther       = "other"
)

// TrashEntry is one soft-deleted record as shown in the recovery view.
type TrashEntry struct {
	Kind      Kind            `json:"kind"`
	ID        string          `json:"id"`
	Label     string          `json:"label"`
	Amount    decimal.Decimal `json:"amount"`
	DeletedAt time.Time       `json:"deleted_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type UserPublic struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}
