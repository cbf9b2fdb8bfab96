package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailhub/backend/internal/cache"
	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/recovery"
	"retailhub/backend/internal/session"
	"retailhub/backend/internal/store/memory"
)

// newTestAPI wires the full request path over the seeded in-memory store.
func newTestAPI(t *testing.T) *API {
	t.Helper()
	api, _ := newTestAPIWithStore(t)
	return api
}

func newTestAPIWithStore(t *testing.T) (*API, *memory.Store) {
	t.Helper()
	repo := memory.NewSeeded()
	manager := recovery.New(repo, nil, cache.NewLocalSweepGuard())
	auth := NewAuthManager("test-secret-key", time.Hour, "123456", repo)
	return New(session.NewRegistry(repo, manager), auth, "*", nil), repo
}

func jsonRequest(t *testing.T, method, path string, payload any) *http.Request {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func do(t *testing.T, api *API, method, path, token, csrf string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	req := jsonRequest(t, method, path, payload)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	return res
}

func decode[T any](t *testing.T, res *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out), res.Body.String())
	return out
}

func login(t *testing.T, api *API, username, password string) string {
	t.Helper()
	res := do(t, api, http.MethodPost, "/api/v1/auth/login", "", "", domain.LoginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	payload := decode[domain.LoginResponse](t, res)
	require.NotEmpty(t, payload.AccessToken)
	return payload.AccessToken
}

func productNamed(t *testing.T, api *API, token, name string) domain.Product {
	t.Helper()
	res := do(t, api, http.MethodGet, "/api/v1/products", token, "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	body := decode[map[string][]domain.Product](t, res)
	for _, p := range body["products"] {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("product %q not listed", name)
	return domain.Product{}
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	res := do(t, api, http.MethodGet, "/healthz", "", "", nil)

	require.Equal(t, http.StatusOK, res.Code)
	body := decode[map[string]any](t, res)
	assert.Equal(t, true, body["ok"])
}

func TestLoginStartsSession(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "admin", "admin123")

	assert.Equal(t, 1, api.sessions.Len())

	csrf := fetchCSRFToken(t, api)
	res := do(t, api, http.MethodPost, "/api/v1/auth/logout", token, csrf, nil)
	assert.Equal(t, http.StatusNoContent, res.Code)
	assert.Equal(t, 0, api.sessions.Len())

	// a valid token after logout transparently opens a new session
	res = do(t, api, http.MethodGet, "/api/v1/products", token, "", nil)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 1, api.sessions.Len())
}

func TestLoginInvalidCredentials(t *testing.T) {
	api := newTestAPI(t)
	res := do(t, api, http.MethodPost, "/api/v1/auth/login", "", "", domain.LoginRequest{Username: "admin", Password: "nope"})

	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, 0, api.sessions.Len())
}

func TestProductsRequireAuth(t *testing.T) {
	api := newTestAPI(t)
	res := do(t, api, http.MethodGet, "/api/v1/products", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = do(t, api, http.MethodGet, "/api/v1/products", "not-a-token", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestSaleReceiptFlow(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "cashier", "cashier123")
	csrf := fetchCSRFToken(t, api)
	cola := productNamed(t, api, token, "Cola 330ml")

	res := do(t, api, http.MethodPost, "/api/v1/sales", token, csrf, domain.SaleRequest{
		PaymentMethod: "cash",
		Lines:         []domain.SaleLineRequest{{ProductID: cola.ID, Quantity: 3}},
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	sale := decode[domain.Sale](t, res)
	assert.True(t, sale.Total.Equal(decimal.RequireFromString("4.50")), sale.Total.String())

	assert.Equal(t, cola.Stock-3, productNamed(t, api, token, "Cola 330ml").Stock)

	res = do(t, api, http.MethodGet, "/api/v1/sales/"+sale.ID+"/receipt", token, "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	receipt := decode[map[string]any](t, res)
	assert.Equal(t, domain.GuestCustomerLabel, receipt["customer"])

	res = do(t, api, http.MethodGet, "/api/v1/sales/"+sale.ID+"/receipt.pdf", token, "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "application/pdf", res.Header().Get("Content-Type"))
	assert.Contains(t, res.Header().Get("Content-Disposition"), ".pdf")
	assert.True(t, strings.HasPrefix(res.Body.String(), "%PDF-"))

	res = do(t, api, http.MethodGet, "/api/v1/activities", token, "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	activities := decode[map[string][]domain.Activity](t, res)["activities"]
	require.NotEmpty(t, activities)
	assert.Contains(t, activities[0].Message, "New sale: 3 items")
}

func TestSaleWithUnknownProductRejected(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "cashier", "cashier123")
	csrf := fetchCSRFToken(t, api)

	res := do(t, api, http.MethodPost, "/api/v1/sales", token, csrf, domain.SaleRequest{
		PaymentMethod: "cash",
		Lines:         []domain.SaleLineRequest{{ProductID: "missing", Quantity: 1}},
	})
	assert.Equal(t, http.StatusBadRequest, res.Code, res.Body.String())

	res = do(t, api, http.MethodPost, "/api/v1/sales", token, csrf, domain.SaleRequest{PaymentMethod: "cash"})
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestSoftDeleteTrashAndRestoreSale(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "admin", "admin123")
	csrf := fetchCSRFToken(t, api)
	cola := productNamed(t, api, token, "Cola 330ml")

	res := do(t, api, http.MethodPost, "/api/v1/sales", token, csrf, domain.SaleRequest{
		PaymentMethod: "card",
		Lines:         []domain.SaleLineRequest{{ProductID: cola.ID, Quantity: 1}},
	})
	require.Equal(t, http.StatusCreated, res.Code)
	sale := decode[domain.Sale](t, res)

	res = do(t, api, http.MethodDelete, "/api/v1/sales/"+sale.ID, token, csrf, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	outcome := decode[recovery.Outcome](t, res)
	assert.Equal(t, recovery.ModeSoft, outcome.Mode)

	res = do(t, api, http.MethodGet, "/api/v1/sales", token, "", nil)
	assert.Empty(t, decode[map[string][]domain.Sale](t, res)["sales"])

	res = do(t, api, http.MethodGet, "/api/v1/trash/sales", token, "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	trash := decode[struct {
		Items []domain.TrashEntry `json:"items"`
	}](t, res)
	require.Len(t, trash.Items, 1)
	assert.Equal(t, sale.ID, trash.Items[0].ID)

	res = do(t, api, http.MethodPost, "/api/v1/trash/sales/"+sale.ID+"/restore", token, csrf, nil)
	require.Equal(t, http.StatusOK, res.Code)

	res = do(t, api, http.MethodGet, "/api/v1/sales", token, "", nil)
	sales := decode[map[string][]domain.Sale](t, res)["sales"]
	require.Len(t, sales, 1)
	assert.Equal(t, sale.ID, sales[0].ID)
}

func TestRestoreUnknownRecord(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "admin", "admin123")
	csrf := fetchCSRFToken(t, api)

	res := do(t, api, http.MethodPost, "/api/v1/trash/customers/nope/restore", token, csrf, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = do(t, api, http.MethodGet, "/api/v1/trash/widgets", token, "", nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestDeleteSupplierIsPermanent(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "admin", "admin123")
	csrf := fetchCSRFToken(t, api)

	res := do(t, api, http.MethodPost, "/api/v1/suppliers", token, csrf, domain.SupplierCreateRequest{Name: "Acme Wholesale"})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	supplier := decode[domain.Supplier](t, res)

	res = do(t, api, http.MethodDelete, "/api/v1/suppliers/"+supplier.ID, token, csrf, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, recovery.ModeHard, decode[recovery.Outcome](t, res).Mode)

	res = do(t, api, http.MethodGet, "/api/v1/suppliers", token, "", nil)
	assert.Empty(t, decode[map[string][]domain.Supplier](t, res)["suppliers"])
}

func TestFallbackDeleteCarriesWarning(t *testing.T) {
	api, repo := newTestAPIWithStore(t)
	token := login(t, api, "admin", "admin123")
	csrf := fetchCSRFToken(t, api)

	res := do(t, api, http.MethodPost, "/api/v1/expenses", token, csrf, domain.ExpenseCreateRequest{
		Description: "Shop rent",
		Category:    "Rent",
		Amount:      decimal.RequireFromString("300"),
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	expense := decode[domain.Expense](t, res)

	repo.DisableSoftDelete(domain.KindExpenses)

	res = do(t, api, http.MethodDelete, "/api/v1/expenses/"+expense.ID, token, csrf, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	outcome := decode[recovery.Outcome](t, res)
	assert.Equal(t, recovery.ModeHard, outcome.Mode)
	assert.NotEmpty(t, outcome.Warning)
}

func TestClearKindMovesEverythingToTrash(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "admin", "admin123")
	csrf := fetchCSRFToken(t, api)

	res := do(t, api, http.MethodDelete, "/api/v1/data/products", token, csrf, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.Equal(t, 5, decode[recovery.Outcome](t, res).Affected)

	res = do(t, api, http.MethodGet, "/api/v1/products", token, "", nil)
	assert.Empty(t, decode[map[string][]domain.Product](t, res)["products"])

	res = do(t, api, http.MethodGet, "/api/v1/trash/products", token, "", nil)
	trash := decode[struct {
		Items []domain.TrashEntry `json:"items"`
	}](t, res)
	assert.Len(t, trash.Items, 5)
}

func TestSystemResetRequiresManagerPIN(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "admin", "admin123")
	csrf := fetchCSRFToken(t, api)

	res := do(t, api, http.MethodPost, "/api/v1/system/reset", token, csrf, domain.ResetRequest{ManagerPIN: "999999"})
	require.Equal(t, http.StatusForbidden, res.Code)

	res = do(t, api, http.MethodPost, "/api/v1/system/reset", token, csrf, domain.ResetRequest{ManagerPIN: "123456"})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	report := decode[recovery.ResetReport](t, res)
	assert.Equal(t, 5, report.Deleted["products"])

	res = do(t, api, http.MethodGet, "/api/v1/products", token, "", nil)
	assert.Empty(t, decode[map[string][]domain.Product](t, res)["products"])
}

func TestSettingsPatch(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "admin", "admin123")
	csrf := fetchCSRFToken(t, api)
	name := "Corner Shop"

	res := do(t, api, http.MethodPatch, "/api/v1/settings", token, csrf, domain.SettingsUpdateRequest{Name: &name})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	res = do(t, api, http.MethodGet, "/api/v1/settings", token, "", nil)
	assert.Equal(t, name, decode[domain.StoreSettings](t, res).Name)

	res = do(t, api, http.MethodPatch, "/api/v1/settings", token, csrf, map[string]any{"unknown": true})
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestDashboardAndExport(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "admin", "admin123")

	res := do(t, api, http.MethodGet, "/api/v1/dashboard", token, "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	stats := decode[map[string]any](t, res)
	assert.EqualValues(t, 5, stats["total_products"])
	assert.Len(t, stats["low_stock"], 1)

	res = do(t, api, http.MethodGet, "/api/v1/reports/summary", token, "", nil)
	assert.Equal(t, http.StatusOK, res.Code)

	res = do(t, api, http.MethodGet, "/api/v1/sales/export.xlsx", token, "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Header().Get("Content-Disposition"), "sales.xlsx")
	assert.True(t, strings.HasPrefix(res.Body.String(), "PK"))
}

func TestCashierManagement(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "admin", "admin123")
	csrf := fetchCSRFToken(t, api)

	res := do(t, api, http.MethodPost, "/api/v1/users/cashiers", token, csrf, domain.CashierCreateRequest{Username: "till02", Password: "pass1234"})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	res = do(t, api, http.MethodGet, "/api/v1/users/cashiers", token, "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	cashiers := decode[map[string][]domain.UserPublic](t, res)["cashiers"]
	assert.Len(t, cashiers, 2)

	res = do(t, api, http.MethodPost, "/api/v1/users/cashiers", token, csrf, domain.CashierCreateRequest{Username: "till02", Password: "pass1234"})
	assert.Equal(t, http.StatusConflict, res.Code)

	login(t, api, "till02", "pass1234")
}
