package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/recovery"
	"retailhub/backend/internal/store"
	"retailhub/backend/internal/store/memory"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func startSession(t *testing.T, repo store.Repository) *Session {
	t.Helper()
	sess := New("user-1", repo, recovery.New(repo, nil, nil))
	require.NoError(t, sess.Start(context.Background()))
	return sess
}

func addCola(t *testing.T, sess *Session, stock int) domain.Product {
	t.Helper()
	p, err := sess.AddProduct(context.Background(), domain.ProductCreateRequest{
		Name:     "Cola",
		Category: "Drinks",
		Price:    dec("1.50"),
		Cost:     dec("0.90"),
		Stock:    stock,
	})
	require.NoError(t, err)
	return p
}

func TestStartLoadsCollectionsAndDefaults(t *testing.T) {
	sess := startSession(t, memory.NewSeeded())

	snap := sess.Snapshot()
	assert.Len(t, snap.Products, 5)
	assert.NotNil(t, snap.Sales)
	assert.Equal(t, "Fartun Retail Hub", snap.Settings.Name)
	assert.False(t, snap.LoadedAt.IsZero())
}

func TestStartPurgesExpiredTrash(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	old, err := repo.CreateExpense(ctx, domain.Expense{Description: "old", Category: "Other", Amount: dec("5")})
	require.NoError(t, err)
	fresh, err := repo.CreateExpense(ctx, domain.Expense{Description: "fresh", Category: "Other", Amount: dec("5")})
	require.NoError(t, err)
	require.NoError(t, repo.SoftDelete(ctx, domain.KindExpenses, old.ID, time.Now().Add(-31*24*time.Hour)))
	require.NoError(t, repo.SoftDelete(ctx, domain.KindExpenses, fresh.ID, time.Now().Add(-24*time.Hour)))

	sess := startSession(t, repo)

	trash, err := sess.Trash(ctx, domain.KindExpenses)
	require.NoError(t, err)
	require.Len(t, trash, 1)
	assert.Equal(t, fresh.ID, trash[0].ID)
}

func TestAddProductResolvesCategory(t *testing.T) {
	sess := startSession(t, memory.New())
	addCola(t, sess, 5)

	snap := sess.Snapshot()
	require.Len(t, snap.Products, 1)
	assert.Equal(t, "Drinks", snap.Products[0].Category)
	assert.Equal(t, domain.ActivityProductAdd, snap.Activities[0].Type)

	plain, err := sess.AddProduct(context.Background(), domain.ProductCreateRequest{Name: "Soap", Price: dec("1")})
	require.NoError(t, err)
	assert.Equal(t, domain.UncategorizedLabel, plain.Category)

	categories, err := sess.Categories(context.Background())
	require.NoError(t, err)
	assert.Len(t, categories, 1)
}

func TestUpdateProductMovesCategory(t *testing.T) {
	sess := startSession(t, memory.New())
	cola := addCola(t, sess, 5)

	snacks := "Snacks"
	price := dec("1.755")
	updated, err := sess.UpdateProduct(context.Background(), cola.ID, domain.ProductUpdateRequest{Category: &snacks, Price: &price})
	require.NoError(t, err)
	assert.Equal(t, "Snacks", updated.Category)
	assert.True(t, updated.Price.Equal(dec("1.76")))
	assert.Equal(t, "Snacks", sess.Snapshot().Products[0].Category)
}

func TestRecordSaleDecrementsStockAndLogs(t *testing.T) {
	ctx := context.Background()
	sess := startSession(t, memory.New())
	cola := addCola(t, sess, 5)

	sale, err := sess.RecordSale(ctx, domain.SaleRequest{
		PaymentMethod: "cash",
		Lines:         []domain.SaleLineRequest{{ProductID: cola.ID, Quantity: 3}},
	})
	require.NoError(t, err)
	require.Len(t, sale.Lines, 1)
	assert.True(t, sale.Lines[0].Total.Equal(dec("4.50")))
	assert.True(t, sale.Total.Equal(dec("4.50")))
	assert.Equal(t, domain.GuestCustomerLabel, sale.CustomerName)

	snap := sess.Snapshot()
	assert.Equal(t, 2, snap.Products[0].Stock)
	require.Len(t, snap.Sales, 1)

	var messages []string
	for _, a := range snap.Activities {
		messages = append(messages, a.Message)
	}
	assert.Contains(t, messages, "New sale: 3 items for $4.50")
	assert.Contains(t, messages, "Low stock: Cola (2 left)")
}

func TestRecordSaleAppliesDiscount(t *testing.T) {
	sess := startSession(t, memory.New())
	cola := addCola(t, sess, 20)

	sale, err := sess.RecordSale(context.Background(), domain.SaleRequest{
		PaymentMethod:   "mobile money",
		DiscountPercent: dec("10"),
		Lines:           []domain.SaleLineRequest{{ProductID: cola.ID, Quantity: 3}},
	})
	require.NoError(t, err)
	assert.True(t, sale.Subtotal.Equal(dec("4.50")))
	assert.True(t, sale.Discount.Equal(dec("0.45")))
	assert.True(t, sale.Total.Equal(dec("4.05")))
}

func TestFailedSaleKeepsPreviousState(t *testing.T) {
	ctx := context.Background()
	sess := startSession(t, memory.New())
	cola := addCola(t, sess, 5)
	before := sess.Snapshot()

	_, err := sess.RecordSale(ctx, domain.SaleRequest{
		PaymentMethod: "cash",
		Lines: []domain.SaleLineRequest{
			{ProductID: cola.ID, Quantity: 1},
			{ProductID: "missing", Quantity: 1},
		},
	})
	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "record sale", opErr.Op)
	assert.ErrorIs(t, err, store.ErrInvalidRecord)

	after := sess.Snapshot()
	assert.Equal(t, 5, after.Products[0].Stock)
	assert.Empty(t, after.Sales)
	assert.Equal(t, len(before.Activities), len(after.Activities))
}

func TestRecordSaleRejectsInvalidRequest(t *testing.T) {
	sess := startSession(t, memory.New())
	_, err := sess.RecordSale(context.Background(), domain.SaleRequest{PaymentMethod: "cash"})
	assert.ErrorIs(t, err, store.ErrInvalidRecord)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestRecordPurchaseIncrementsStock(t *testing.T) {
	ctx := context.Background()
	sess := startSession(t, memory.New())
	cola := addCola(t, sess, 2)
	supplier, err := sess.AddSupplier(ctx, domain.SupplierCreateRequest{Name: "Acme Wholesale"})
	require.NoError(t, err)

	purchase, err := sess.RecordPurchase(ctx, domain.PurchaseRequest{
		SupplierID: supplier.ID,
		Lines:      []domain.PurchaseLineRequest{{ProductID: cola.ID, Quantity: 10, UnitCost: dec("0.90")}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseStatusCompleted, purchase.Status)
	assert.True(t, purchase.Total.Equal(dec("9.00")))

	snap := sess.Snapshot()
	assert.Equal(t, 12, snap.Products[0].Stock)
	assert.Len(t, snap.Purchases, 1)
	assert.Equal(t, "New purchase from Acme Wholesale: $9.00", snap.Activities[0].Message)
}

func TestDeleteAndRestoreCustomerKeepsCredit(t *testing.T) {
	ctx := context.Background()
	sess := startSession(t, memory.New())
	c, err := sess.AddCustomer(ctx, domain.CustomerCreateRequest{Name: "Amina", Credit: dec("25.00")})
	require.NoError(t, err)

	out, err := sess.Delete(ctx, domain.KindCustomers, c.ID)
	require.NoError(t, err)
	assert.Equal(t, recovery.ModeSoft, out.Mode)
	assert.Empty(t, sess.Snapshot().Customers)

	trash, err := sess.Trash(ctx, domain.KindCustomers)
	require.NoError(t, err)
	require.Len(t, trash, 1)
	assert.WithinDuration(t, time.Now(), trash[0].DeletedAt, 5*time.Second)

	_, err = sess.Restore(ctx, domain.KindCustomers, c.ID)
	require.NoError(t, err)
	customers := sess.Snapshot().Customers
	require.Len(t, customers, 1)
	assert.True(t, customers[0].Credit.Equal(dec("25.00")))
}

func TestDeleteSupplierIsPermanent(t *testing.T) {
	ctx := context.Background()
	sess := startSession(t, memory.New())
	sup, err := sess.AddSupplier(ctx, domain.SupplierCreateRequest{Name: "Acme"})
	require.NoError(t, err)

	out, err := sess.Delete(ctx, domain.KindSuppliers, sup.ID)
	require.NoError(t, err)
	assert.Equal(t, recovery.ModeHard, out.Mode)
	assert.Empty(t, sess.Snapshot().Suppliers)
}

func TestClearKindTwice(t *testing.T) {
	ctx := context.Background()
	sess := startSession(t, memory.NewSeeded())

	first, err := sess.ClearKind(ctx, domain.KindProducts)
	require.NoError(t, err)
	assert.Equal(t, 5, first.Affected)
	assert.Empty(t, sess.Snapshot().Products)

	second, err := sess.ClearKind(ctx, domain.KindProducts)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Affected)
	assert.Contains(t, sess.Activities()[0].Message, "recovery available for 30 days")
}

func TestResetSystemEmptiesView(t *testing.T) {
	ctx := context.Background()
	sess := startSession(t, memory.NewSeeded())
	products := sess.Snapshot().Products
	_, err := sess.RecordSale(ctx, domain.SaleRequest{
		PaymentMethod: "card",
		Lines:         []domain.SaleLineRequest{{ProductID: products[0].ID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = sess.ResetSystem(ctx)
	require.NoError(t, err)

	snap := sess.Snapshot()
	assert.Empty(t, snap.Products)
	assert.Empty(t, snap.Sales)
	assert.Empty(t, snap.Customers)
}

type settingsDown struct {
	store.Repository
}

func (settingsDown) UpsertSettings(context.Context, domain.StoreSettings) error {
	return errors.New("connection refused")
}

func TestUpdateSettings(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	sess := startSession(t, repo)

	name := "Corner Shop"
	got, err := sess.UpdateSettings(ctx, domain.SettingsUpdateRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Corner Shop", got.Name)
	assert.Equal(t, "USD ($)", got.Currency)

	stored, err := repo.GetSettings(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Corner Shop", stored.Name)

	broken := startSession(t, settingsDown{Repository: repo})
	other := "Other"
	_, err = broken.UpdateSettings(ctx, domain.SettingsUpdateRequest{Name: &other})
	require.Error(t, err)
	assert.Equal(t, "Corner Shop", broken.Settings().Name)
}

func TestUpdateUnknownCustomer(t *testing.T) {
	sess := startSession(t, memory.New())
	name := "Ghost"
	_, err := sess.UpdateCustomer(context.Background(), "missing", domain.CustomerUpdateRequest{Name: &name})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdatesReadRecordsWrittenByOtherSessions(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	sess := startSession(t, repo)

	customer, err := repo.CreateCustomer(ctx, domain.Customer{Name: "Ana", Phone: "555", Credit: dec("10")})
	require.NoError(t, err)
	customer.Phone = "777"
	_, err = repo.UpdateCustomer(ctx, *customer)
	require.NoError(t, err)

	name := "Ana B"
	gotCustomer, err := sess.UpdateCustomer(ctx, customer.ID, domain.CustomerUpdateRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ana B", gotCustomer.Name)
	assert.Equal(t, "777", gotCustomer.Phone)
	assert.True(t, gotCustomer.Credit.Equal(dec("10")))

	supplier, err := repo.CreateSupplier(ctx, domain.Supplier{Name: "Acme", Contact: "Bo"})
	require.NoError(t, err)
	phone := "123"
	gotSupplier, err := sess.UpdateSupplier(ctx, supplier.ID, domain.SupplierUpdateRequest{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Acme", gotSupplier.Name)
	assert.Equal(t, "Bo", gotSupplier.Contact)
	assert.Equal(t, "123", gotSupplier.Phone)

	expense, err := repo.CreateExpense(ctx, domain.Expense{Description: "Lease", Category: "Rent", Amount: dec("300")})
	require.NoError(t, err)
	amount := dec("320")
	gotExpense, err := sess.UpdateExpense(ctx, expense.ID, domain.ExpenseUpdateRequest{Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, "Lease", gotExpense.Description)
	assert.Equal(t, "Rent", gotExpense.Category)
	assert.True(t, gotExpense.Amount.Equal(dec("320")))

	snap := sess.Snapshot()
	require.Len(t, snap.Customers, 1)
	assert.Equal(t, "Ana B", snap.Customers[0].Name)
	require.Len(t, snap.Expenses, 1)
	assert.True(t, snap.Expenses[0].Amount.Equal(dec("320")))
}

func TestActorContextRoundTrip(t *testing.T) {
	ctx := WithActor(context.Background(), domain.Actor{Username: "admin", Role: domain.RoleAdmin})
	actor, ok := ActorFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "admin", actor.Username)

	_, ok = ActorFromContext(context.Background())
	assert.False(t, ok)
}

func TestRegistryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSeeded()
	reg := NewRegistry(repo, recovery.New(repo, nil, nil))

	first, err := reg.Start(ctx, "admin")
	require.NoError(t, err)
	again, err := reg.Start(ctx, "admin")
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, 1, reg.Len())

	got, ok := reg.Get("admin")
	require.True(t, ok)
	assert.Equal(t, "admin", got.UserID())

	reg.End("admin")
	_, ok = reg.Get("admin")
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Len())
}
