package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Migrate applies the embedded goose migrations.
func (s *Store) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, s.db, "migrations")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidRecord
	}
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		return mapWriteErr(err)
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidRecord
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) GetSettings(ctx context.Context, userID string) (*domain.StoreSettings, error) {
	out := domain.StoreSettings{UserID: userID}
	err := s.db.QueryRowContext(ctx, `
		SELECT store_name, store_phone, store_address, store_email, tax_id, currency, timezone,
		       date_format, language, low_stock_alerts, daily_summary, order_notifications, credit_reminders
		FROM settings
		WHERE user_id = $1
	`, userID).Scan(
		&out.Name, &out.Phone, &out.Address, &out.Email, &out.TaxID, &out.Currency, &out.Timezone,
		&out.DateFormat, &out.Language, &out.LowStockAlerts, &out.DailySummary, &out.OrderNotifications, &out.CreditReminders,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (s *Store) UpsertSettings(ctx context.Context, in domain.StoreSettings) error {
	if strings.TrimSpace(in.UserID) == "" {
		return store.ErrInvalidRecord
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (
			user_id, store_name, store_phone, store_address, store_email, tax_id, currency, timezone,
			date_format, language, low_stock_alerts, daily_summary, order_notifications, credit_reminders, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,now())
		ON CONFLICT (user_id) DO UPDATE SET
			store_name = EXCLUDED.store_name,
			store_phone = EXCLUDED.store_phone,
			store_address = EXCLUDED.store_address,
			store_email = EXCLUDED.store_email,
			tax_id = EXCLUDED.tax_id,
			currency = EXCLUDED.currency,
			timezone = EXCLUDED.timezone,
			date_format = EXCLUDED.date_format,
			language = EXCLUDED.language,
			low_stock_alerts = EXCLUDED.low_stock_alerts,
			daily_summary = EXCLUDED.daily_summary,
			order_notifications = EXCLUDED.order_notifications,
			credit_reminders = EXCLUDED.credit_reminders,
			updated_at = now()
	`, in.UserID, in.Name, in.Phone, in.Address, in.Email, in.TaxID, in.Currency, in.Timezone,
		in.DateFormat, in.Language, in.LowStockAlerts, in.DailySummary, in.OrderNotifications, in.CreditReminders)
	return mapWriteErr(err)
}

// queryActive runs an active listing. format carries one %s for the
// deleted_at filter; on a schema without the column the query is retried
// unfiltered.
func (s *Store) queryActive(ctx context.Context, kind domain.Kind, format string, alias string, args ...any) (*sql.Rows, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(format, "WHERE "+alias+".deleted_at IS NULL"), args...)
	if err == nil || !isUndefinedColumn(err) {
		return rows, err
	}
	log.Warn().Str("kind", string(kind)).Err(err).Msg("deleted_at column missing, listing without trash filter")
	return s.db.QueryContext(ctx, fmt.Sprintf(format, ""), args...)
}

func isUndefinedColumn(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42703"
	}
	return false
}

// mapLifecycleErr converts driver errors on delete/update paths into store sentinels.
func mapLifecycleErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503":
			return fmt.Errorf("%w: %s", store.ErrReferenced, pgErr.Message)
		case "42703":
			return fmt.Errorf("%s: %w", pgErr.Message, store.ErrSoftDeleteUnsupported)
		}
	}
	return err
}

// mapWriteErr converts driver errors on insert paths; a dangling reference there is bad input.
func mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23503", "23502", "23514", "22P02":
			return fmt.Errorf("%w: %s", store.ErrInvalidRecord, pgErr.Message)
		}
	}
	return err
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func stampCreated(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func notFoundOr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}
