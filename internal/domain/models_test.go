package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductStatusFollowsStock(t *testing.T) {
	assert.Equal(t, ProductStatusActive, Product{Stock: 1}.Status())
	assert.Equal(t, ProductStatusOutOfStock, Product{Stock: 0}.Status())
	assert.Equal(t, ProductStatusOutOfStock, Product{Stock: -2}.Status())
}

func TestProductJSONCarriesStatus(t *testing.T) {
	raw, err := json.Marshal(Product{ID: "p1", Name: "Cola", Price: decimal.RequireFromString("1.50"), Stock: 0})
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "out_of_stock", body["status"])
	assert.Equal(t, "Cola", body["name"])
	assert.Equal(t, "1.5", body["price"])
	assert.NotContains(t, body, "deleted_at")
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("customers")
	require.True(t, ok)
	assert.Equal(t, KindCustomers, k)

	_, ok = ParseKind("sale_items")
	assert.False(t, ok)
}

func TestCurrencySymbol(t *testing.T) {
	assert.Equal(t, "$", DefaultSettings("u").CurrencySymbol())
	assert.Equal(t, "KSh", StoreSettings{Currency: "KES (KSh)"}.CurrencySymbol())
	assert.Equal(t, "EUR", StoreSettings{Currency: "EUR"}.CurrencySymbol())
	assert.Equal(t, "$", StoreSettings{}.CurrencySymbol())
}

func TestSettingsUpdateKeepsUnsetFields(t *testing.T) {
	name := "Corner Shop"
	off := false
	got := SettingsUpdateRequest{Name: &name, LowStockAlerts: &off}.Apply(DefaultSettings("u1"))

	assert.Equal(t, "Corner Shop", got.Name)
	assert.False(t, got.LowStockAlerts)
	assert.Equal(t, "USD ($)", got.Currency)
	assert.True(t, got.CreditReminders)
	assert.Equal(t, "u1", got.UserID)
}

func TestValidateRejectsBadRequests(t *testing.T) {
	err := Validate(ExpenseCreateRequest{Description: "Fuel", Category: "Snacks", Amount: decimal.NewFromInt(5)})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "category")

	err = Validate(SaleRequest{PaymentMethod: "cash", DiscountPercent: decimal.NewFromInt(150), Lines: []SaleLineRequest{{ProductID: "p1", Quantity: 1}}})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "discount_percent")

	err = Validate(SaleRequest{PaymentMethod: "cash", Lines: []SaleLineRequest{{ProductID: "p1", Quantity: 0}}})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "quantity")
}

func TestValidateAcceptsWellFormedRequests(t *testing.T) {
	require.NoError(t, Validate(ExpenseCreateRequest{Description: "Power bill", Category: "Utilities", Amount: decimal.RequireFromString("40.00")}))
	require.NoError(t, Validate(ProductCreateRequest{Name: "Cola", Price: decimal.RequireFromString("1.50"), Stock: 5}))

	price := decimal.RequireFromString("2.00")
	require.NoError(t, Validate(ProductUpdateRequest{Price: &price}))
}
