package httpapi

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"retailhub/backend/internal/domain"
)

const tokenIssuer = "retailhub"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUserExists         = errors.New("username already exists")
)

// UserStore persists accounts. Passwords are stored as bcrypt hashes.
type UserStore interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

// AuthManager signs and verifies access tokens and keeps a credential cache
// that is reloaded from the UserStore before logins and account changes.
type AuthManager struct {
	mu         sync.RWMutex
	secret     []byte
	tokenTTL   time.Duration
	managerPIN []byte
	users      UserStore
	accounts   map[string]domain.UserAccount
}

type accessClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, managerPIN string, users UserStore) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}

	a := &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		users:    users,
		accounts: make(map[string]domain.UserAccount),
	}
	// an unset PIN leaves managerPIN empty, which rejects every attempt
	if pin := strings.TrimSpace(managerPIN); pin != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
		if err != nil {
			log.Error().Err(err).Msg("could not hash manager PIN, resets are disabled")
		} else {
			a.managerPIN = hashed
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.reload(ctx)
	return a
}

func normalizeUsername(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	a.reload(ctx)

	username := normalizeUsername(req.Username)
	a.mu.RLock()
	account, ok := a.accounts[username]
	a.mu.RUnlock()
	if !ok || !verifyPassword(account.Password, req.Password) {
		return domain.LoginResponse{}, ErrInvalidCredentials
	}
	if !account.Active {
		return domain.LoginResponse{}, ErrAccountInactive
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(username, account.Role, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, fmt.Errorf("sign token: %w", err)
	}
	log.Info().Str("username", username).Str("role", account.Role).Msg("login")

	return domain.LoginResponse{
		AccessToken: token,
		Username:    username,
		Role:        account.Role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(raw string) (domain.Actor, error) {
	claims := &accessClaims{}
	token, err := jwtlib.ParseWithClaims(raw, claims, func(*jwtlib.Token) (any, error) {
		return a.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(tokenIssuer),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithLeeway(30*time.Second),
	)
	if err != nil || !token.Valid {
		return domain.Actor{}, ErrInvalidToken
	}
	if claims.Subject == "" || (claims.Role != domain.RoleAdmin && claims.Role != domain.RoleCashier) {
		return domain.Actor{}, ErrInvalidToken
	}
	return domain.Actor{Username: claims.Subject, Role: claims.Role}, nil
}

func (a *AuthManager) sign(username, role string, expiresAt time.Time) (string, error) {
	now := time.Now().UTC()
	claims := accessClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			Issuer:    tokenIssuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			NotBefore: jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
		},
		Role: role,
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(a.secret)
}

// ValidateManagerPIN reports whether pin matches the configured manager PIN.
func (a *AuthManager) ValidateManagerPIN(pin string) bool {
	pin = strings.TrimSpace(pin)
	if pin == "" || len(a.managerPIN) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.managerPIN, []byte(pin)) == nil
}

func (a *AuthManager) CreateCashier(ctx context.Context, req domain.CashierCreateRequest) (domain.UserPublic, error) {
	req.Username = normalizeUsername(req.Username)
	if err := domain.Validate(req); err != nil {
		return domain.UserPublic{}, err
	}
	if strings.ContainsAny(req.Username, " \t\r\n") {
		return domain.UserPublic{}, errors.New("username must not contain spaces")
	}

	a.reload(ctx)
	a.mu.RLock()
	_, exists := a.accounts[req.Username]
	a.mu.RUnlock()
	if exists {
		return domain.UserPublic{}, ErrUserExists
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return domain.UserPublic{}, fmt.Errorf("hash password: %w", err)
	}
	account := domain.UserAccount{
		Username:  req.Username,
		Password:  hashed,
		Role:      domain.RoleCashier,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if a.users != nil {
		if err := a.users.CreateUser(ctx, account); err != nil {
			return domain.UserPublic{}, err
		}
	}

	a.mu.Lock()
	a.accounts[account.Username] = account
	a.mu.Unlock()
	log.Info().Str("username", account.Username).Msg("cashier account created")
	return publicUser(account), nil
}

func (a *AuthManager) ListCashiers(ctx context.Context) []domain.UserPublic {
	a.reload(ctx)
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]domain.UserPublic, 0, len(a.accounts))
	for _, account := range a.accounts {
		if account.Role == domain.RoleCashier {
			out = append(out, publicUser(account))
		}
	}
	slices.SortFunc(out, func(x, y domain.UserPublic) int {
		return strings.Compare(x.Username, y.Username)
	})
	return out
}

func publicUser(account domain.UserAccount) domain.UserPublic {
	return domain.UserPublic{
		Username:  account.Username,
		Role:      account.Role,
		Active:    account.Active,
		CreatedAt: account.CreatedAt,
	}
}

// reload refreshes the credential cache from the store. Accounts still
// holding a plain-text password are rehashed and written back.
func (a *AuthManager) reload(ctx context.Context) {
	if a.users == nil {
		return
	}
	accounts, err := a.users.ListUsers(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("could not load user accounts")
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, account := range accounts {
		account.Username = normalizeUsername(account.Username)
		if account.Username == "" {
			continue
		}
		if !isPasswordHash(account.Password) {
			hashed, err := hashPassword(account.Password)
			if err != nil {
				continue
			}
			account.Password = hashed
			if err := a.users.UpdateUserPassword(ctx, account.Username, hashed); err != nil {
				log.Warn().Err(err).Str("username", account.Username).Msg("could not upgrade plain-text password")
			}
		}
		a.accounts[account.Username] = account
	}
}

func verifyPassword(stored string, input string) bool {
	if strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func isPasswordHash(value string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}
