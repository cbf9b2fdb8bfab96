package memory

import (
	"context"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/store"
)

type Store struct {
	mu              sync.RWMutex
	categories      map[string]*domain.Category
	products        map[string]*domain.Product
	sales           map[string]*domain.Sale
	saleLines       map[string][]domain.SaleLine
	customers       map[string]*domain.Customer
	suppliers       map[string]*domain.Supplier
	expenses        map[string]*domain.Expense
	purchases       map[string]*domain.Purchase
	purchaseLines   map[string][]domain.PurchaseLine
	settingsByUser  map[string]domain.StoreSettings
	usersByUsername map[string]domain.UserAccount
	// withoutDeletedAt simulates tables created before the deleted_at migration.
	withoutDeletedAt map[domain.Kind]bool
}

// New returns an empty store with no user accounts.
func New() *Store {
	return &Store{
		categories:       make(map[string]*domain.Category),
		products:         make(map[string]*domain.Product),
		sales:            make(map[string]*domain.Sale),
		saleLines:        make(map[string][]domain.SaleLine),
		customers:        make(map[string]*domain.Customer),
		suppliers:        make(map[string]*domain.Supplier),
		expenses:         make(map[string]*domain.Expense),
		purchases:        make(map[string]*domain.Purchase),
		purchaseLines:    make(map[string][]domain.PurchaseLine),
		settingsByUser:   make(map[string]domain.StoreSettings),
		usersByUsername:  make(map[string]domain.UserAccount),
		withoutDeletedAt: make(map[domain.Kind]bool),
	}
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD.
// If unset, the dev defaults are used with a warning. These accounts only
// exist when the server runs without DATABASE_URL.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Warn().Str("component", "memory-store").Msg("using default dev credentials, set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"cashier", cashierPwd, domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal().Err(err).Str("username", u.username).Msg("failed to hash seed password")
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewSeeded returns a store with the demo accounts and a small demo catalog.
func NewSeeded() *Store {
	s := New()
	s.usersByUsername = seedUsers()

	now := time.Now().UTC()
	for _, seed := range []struct {
		name, sku, category, unit string
		price, cost               string
		stock                     int
	}{
		{"Cola 330ml", "DRK-COLA-330", "Drinks", "can", "1.50", "0.90", 48},
		{"Mineral Water 500ml", "DRK-WATER-500", "Drinks", "bottle", "0.75", "0.30", 120},
		{"Basmati Rice 5kg", "GRC-RICE-5", "Groceries", "bag", "9.50", "7.20", 20},
		{"Cooking Oil 1L", "GRC-OIL-1", "Groceries", "bottle", "3.25", "2.40", 8},
		{"Bath Soap", "HH-SOAP-01", "Household", "pc", "1.10", "0.60", 60},
	} {
		categoryID := s.resolveCategoryLocked(seed.category)
		id := uuid.NewString()
		s.products[id] = &domain.Product{
			ID:         id,
			Name:       seed.name,
			SKU:        seed.sku,
			CategoryID: categoryID,
			Price:      decimal.RequireFromString(seed.price),
			Cost:       decimal.RequireFromString(seed.cost),
			Stock:      seed.stock,
			Unit:       seed.unit,
			CreatedAt:  now,
		}
	}
	return s
}

// DisableSoftDelete makes every deleted_at operation on kind fail the way a
// database without the column does.
func (s *Store) DisableSoftDelete(kind domain.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.withoutDeletedAt[kind] = true
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidRecord
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidRecord
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidRecord
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) GetSettings(_ context.Context, userID string) (*domain.StoreSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings, ok := s.settingsByUser[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &settings, nil
}

func (s *Store) UpsertSettings(_ context.Context, settings domain.StoreSettings) error {
	if strings.TrimSpace(settings.UserID) == "" {
		return store.ErrInvalidRecord
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settingsByUser[settings.UserID] = settings
	return nil
}

func stampCreated(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

// byNewest orders rows by creation time descending with the id as tie-breaker.
func byNewest(aAt, bAt time.Time, aID, bID string) int {
	if c := bAt.Compare(aAt); c != 0 {
		return c
	}
	return strings.Compare(aID, bID)
}
