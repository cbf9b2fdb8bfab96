package domain

import "github.com/shopspring/decimal"

type ProductCreateRequest struct {
	Name     string          `json:"name" validate:"required,max=200"`
	SKU      string          `json:"sku" validate:"max=64"`
	Category string          `json:"category" validate:"max=100"`
	Price    decimal.Decimal `json:"price" validate:"gte=0"`
	Cost     decimal.Decimal `json:"cost" validate:"gte=0"`
	Stock    int             `json:"stock"`
	Unit     string          `json:"unit" validate:"max=32"`
}

type ProductUpdateRequest struct {
	Name     *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	SKU      *string          `json:"sku,omitempty" validate:"omitempty,max=64"`
	Category *string          `json:"category,omitempty" validate:"omitempty,max=100"`
	Price    *decimal.Decimal `json:"price,omitempty" validate:"omitempty,gte=0"`
	Cost     *decimal.Decimal `json:"cost,omitempty" validate:"omitempty,gte=0"`
	Stock    *int             `json:"stock,omitempty"`
	Unit     *string          `json:"unit,omitempty" validate:"omitempty,max=32"`
}

type CustomerCreateRequest struct {
	Name    string          `json:"name" validate:"required,max=200"`
	Phone   string          `json:"phone" validate:"max=40"`
	Email   string          `json:"email" validate:"omitempty,email"`
	Address string          `json:"address" validate:"max=300"`
	Credit  decimal.Decimal `json:"credit"`
}

type CustomerUpdateRequest struct {
	Name    *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Phone   *string          `json:"phone,omitempty" validate:"omitempty,max=40"`
	Email   *string          `json:"email,omitempty" validate:"omitempty,email"`
	Address *string          `json:"address,omitempty" validate:"omitempty,max=300"`
	Credit  *decimal.Decimal `json:"credit,omitempty"`
}

type SupplierCreateRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Contact string `json:"contact" validate:"max=200"`
	Phone   string `json:"phone" validate:"max=40"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address" validate:"max=300"`
}

type SupplierUpdateRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Contact *string `json:"contact,omitempty" validate:"omitempty,max=200"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=40"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=300"`
}

type ExpenseCreateRequest struct {
	Description string          `json:"description" validate:"required,max=300"`
	Category    string          `json:"category" validate:"required,expense_category"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
}

type ExpenseUpdateRequest struct {
	Description *string          `json:"description,omitempty" validate:"omitempty,min=1,max=300"`
	Category    *string          `json:"category,omitempty" validate:"omitempty,expense_category"`
	Amount      *decimal.Decimal `json:"amount,omitempty" validate:"omitempty,gt=0"`
}

type SaleLineRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

type SaleRequest struct {
	CustomerID      string            `json:"customer_id,omitempty"`
	PaymentMethod   string            `json:"payment_method" validate:"required,max=40"`
	DiscountPercent decimal.Decimal   `json:"discount_percent" validate:"gte=0,lte=100"`
	Lines           []SaleLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type PurchaseLineRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	UnitCost  decimal.Decimal `json:"unit_cost" validate:"gte=0"`
}

type PurchaseRequest struct {
	SupplierID string                `json:"supplier_id" validate:"required"`
	Status     string                `json:"status" validate:"omitempty,oneof=pending completed"`
	Lines      []PurchaseLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// SettingsUpdateRequest carries a partial settings change; nil fields keep the current value.
type SettingsUpdateRequest struct {
	Name               *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Phone              *string `json:"phone,omitempty"`
	Address            *string `json:"address,omitempty"`
	Email              *string `json:"email,omitempty" validate:"omitempty,email"`
	TaxID              *string `json:"tax_id,omitempty"`
	Currency           *string `json:"currency,omitempty"`
	Timezone           *string `json:"timezone,omitempty"`
	DateFormat         *string `json:"date_format,omitempty"`
	Language           *string `json:"language,omitempty"`
	LowStockAlerts     *bool   `json:"low_stock_alerts,omitempty"`
	DailySummary       *bool   `json:"daily_summary,omitempty"`
	OrderNotifications *bool   `json:"order_notifications,omitempty"`
	CreditReminders    *bool   `json:"credit_reminders,omitempty"`
}

// Apply merges the non-nil fields onto s.
func (r SettingsUpdateRequest) Apply(s StoreSettings) StoreSettings {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&s.Name, r.Name)
	setString(&s.Phone, r.Phone)
	setString(&s.Address, r.Address)
	setString(&s.Email, r.Email)
	setString(&s.TaxID, r.TaxID)
	setString(&s.Currency, r.Currency)
	setString(&s.Timezone, r.Timezone)
	setString(&s.DateFormat, r.DateFormat)
	setString(&s.Language, r.Language)
	setBool(&s.LowStockAlerts, r.LowStockAlerts)
	setBool(&s.DailySummary, r.DailySummary)
	setBool(&s.OrderNotifications, r.OrderNotifications)
	setBool(&s.CreditReminders, r.CreditReminders)
	return s
}

type CashierCreateRequest struct {
	Username string `json:"username" validate:"required,min=4,max=64"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// ResetRequest confirms a full system reset with the manager PIN.
type ResetRequest struct {
	ManagerPIN string `json:"manager_pin" validate:"required"`
}
