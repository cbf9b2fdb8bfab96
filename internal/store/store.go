package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"retailhub/backend/internal/domain"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidRecord = errors.New("invalid record")
	// ErrSoftDeleteUnsupported means the table has no deleted_at column.
	ErrSoftDeleteUnsupported = errors.New("soft delete unsupported")
	// ErrReferenced is a foreign-key violation: other rows still point at the record.
	ErrReferenced = errors.New("record is referenced by other rows")
)

// IsMissingDeletedAt reports whether err means the schema lacks the deleted_at
// column. Drivers map that case to ErrSoftDeleteUnsupported; untyped errors
// only count when they name deleted_at as a missing column.
func IsMissingDeletedAt(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSoftDeleteUnsupported) {
		return true
	}
	if errors.Is(err, ErrReferenced) || errors.Is(err, ErrInvalidRecord) || errors.Is(err, ErrNotFound) {
		return false
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "deleted_at") {
		return false
	}
	return strings.Contains(msg, "does not exist") || strings.Contains(msg, "could not find")
}

// PurgeResult counts one kind's retention sweep. Kept rows are expired but
// still referenced by other rows, so they stay in the trash.
type PurgeResult struct {
	Purged int
	Kept   int
}

// Descriptor is the per-kind table metadata that drives the generic lifecycle paths.
type Descriptor struct {
	Kind        domain.Kind
	Table       string
	SoftDelete  bool
	OrderColumn string
	// LabelColumn is shown in trash listings; the id is used when empty.
	LabelColumn string
	// AmountColumn is empty for kinds without a money value.
	AmountColumn string
}

var descriptors = map[domain.Kind]Descriptor{
	domain.KindSales:     {Kind: domain.KindSales, Table: "sales", SoftDelete: true, OrderColumn: "created_at", AmountColumn: "total_amount"},
	domain.KindProducts:  {Kind: domain.KindProducts, Table: "products", SoftDelete: true, OrderColumn: "name", LabelColumn: "name", AmountColumn: "price"},
	domain.KindCustomers: {Kind: domain.KindCustomers, Table: "customers", SoftDelete: true, OrderColumn: "name", LabelColumn: "name", AmountColumn: "credit"},
	domain.KindExpenses:  {Kind: domain.KindExpenses, Table: "expenses", SoftDelete: true, OrderColumn: "created_at", LabelColumn: "description", AmountColumn: "amount"},
	domain.KindPurchases: {Kind: domain.KindPurchases, Table: "purchases", SoftDelete: true, OrderColumn: "created_at", AmountColumn: "total_amount"},
	domain.KindSuppliers: {Kind: domain.KindSuppliers, Table: "suppliers", SoftDelete: false, OrderColumn: "name", LabelColumn: "name"},
}

func Describe(kind domain.Kind) (Descriptor, bool) {
	d, ok := descriptors[kind]
	return d, ok
}

// Table names accepted by DeleteAll. Line tables are not kinds of their own.
const (
	TableSaleItems     = "sale_items"
	TablePurchaseItems = "purchase_items"
	TableSales         = "sales"
	TablePurchases     = "purchases"
	TableProducts      = "products"
	TableCustomers     = "customers"
	TableSuppliers     = "suppliers"
	TableExpenses      = "expenses"
	TableCategories    = "categories"
)

// ResetOrder lists every table in foreign-key-safe deletion order: lines, then
// transactions, then dimension tables.
var ResetOrder = []string{
	TableSaleItems,
	TablePurchaseItems,
	TableSales,
	TablePurchases,
	TableProducts,
	TableCustomers,
	TableSuppliers,
	TableExpenses,
	TableCategories,
}

// Lifecycle is the kind-parameterized soft-delete surface of a store.
type Lifecycle interface {
	SoftDelete(ctx context.Context, kind domain.Kind, id string, at time.Time) error
	SoftDeleteAll(ctx context.Context, kind domain.Kind, at time.Time) (int, error)
	HardDelete(ctx context.Context, kind domain.Kind, id string) error
	ListDeleted(ctx context.Context, kind domain.Kind) ([]domain.TrashEntry, error)
	Restore(ctx context.Context, kind domain.Kind, id string) error
	// PurgeDeletedBefore removes the expired trash rows that nothing references
	// and leaves the rest in place.
	PurgeDeletedBefore(ctx context.Context, kind domain.Kind, cutoff time.Time) (PurgeResult, error)
	DeleteAll(ctx context.Context, table string) (int, error)
}

type Repository interface {
	Lifecycle

	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	// ResolveCategory returns the id of the category with exactly this name, creating it if absent.
	ResolveCategory(ctx context.Context, name string) (string, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)

	ListSales(ctx context.Context) ([]domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	// RecordSale writes the header, its lines and the stock decrements in one unit.
	RecordSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)

	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)

	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)
	GetSupplier(ctx context.Context, id string) (*domain.Supplier, error)
	CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	UpdateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)

	ListExpenses(ctx context.Context) ([]domain.Expense, error)
	GetExpense(ctx context.Context, id string) (*domain.Expense, error)
	CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	UpdateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)

	ListPurchases(ctx context.Context) ([]domain.Purchase, error)
	// RecordPurchase writes the header, its lines and the stock increments in one unit.
	RecordPurchase(ctx context.Context, purchase domain.Purchase) (*domain.Purchase, error)

	// GetSettings returns ErrNotFound when the user has never saved settings.
	GetSettings(ctx context.Context, userID string) (*domain.StoreSettings, error)
	UpsertSettings(ctx context.Context, settings domain.StoreSettings) error

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
