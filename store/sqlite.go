package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brunoscheufler/bankterminal/util"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteStore owns the single database connection for the lifetime of the process.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	retry  util.RetryConfig
}

var _ Store = (*SQLiteStore)(nil)

func (s *SQLiteStore) AddUser(ctx context.Context, u User) (int64, error) {
	if err := validateUser(u); err != nil {
		return 0, err
	}

	query := `INSERT INTO users (user_id, name) VALUES (?, ?) ON CONFLICT (user_id) DO NOTHING`

	var result sql.Result
	err := util.Retry(ctx, s.retry, func() error {
		var execErr error
		result, execErr = s.db.ExecContext(ctx, query, u.UserID, u.Name)
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("failed to add user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (User, error) {
	var user User
	err := util.Retry(ctx, s.retry, func() error {
		var queryErr error
		user, queryErr = getUser(ctx, s.db, userID)
		return queryErr
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *SQLiteStore) GetUserAccounts(ctx context.Context, userID string) (User, []Account, error) {
	var user User
	var accounts []Account

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		user, err = getUser(ctx, tx, userID)
		if err != nil {
			return err
		}

		accounts, err = listAccounts(ctx, tx, userID)
		return err
	})
	if err != nil {
		return User{}, nil, err
	}

	return user, accounts, nil
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]User, error) {
	query := `SELECT user_id, name FROM users ORDER BY user_id`

	var rows *sql.Rows
	err := util.Retry(ctx, s.retry, func() error {
		var queryErr error
		rows, queryErr = s.db.QueryContext(ctx, query)
		return queryErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.UserID, &user.Name); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return users, nil
}

func (s *SQLiteStore) CountUsers(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM users`, "users")
}

// CreateAccount checks the owner exists and inserts the account in one transaction.
// The foreign key on accounts.user_id backs the same rule at the engine level.
func (s *SQLiteStore) CreateAccount(ctx context.Context, u User, accountType AccountType) (Account, error) {
	encoded, err := encodeAccountType(accountType)
	if err != nil {
		return Account{}, err
	}

	account := Account{
		UserID:  u.UserID,
		Type:    accountType,
		Balance: 0,
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getUser(ctx, tx, u.UserID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (user_id, account_type, balance) VALUES (?, ?, ?)`,
			account.UserID, encoded, account.Balance,
		)
		if err != nil {
			if isForeignKeyError(err) {
				return fmt.Errorf("%w: %s", ErrUserNotFound, u.UserID)
			}
			return fmt.Errorf("failed to insert account: %w", err)
		}

		account.AccountID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read account id: %w", err)
		}
		return nil
	})
	if err != nil {
		return Account{}, fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.Debug("account created",
		"user_id", account.UserID,
		"account_id", account.AccountID,
		"account_type", account.Type,
	)
	return account, nil
}

func (s *SQLiteStore) GetAccount(ctx context.Context, userID string, accountID int64) (Account, error) {
	query := `SELECT account_id, user_id, account_type, balance FROM accounts WHERE account_id = ? AND user_id = ?`

	var account Account
	var rawType string
	err := util.Retry(ctx, s.retry, func() error {
		row := s.db.QueryRowContext(ctx, query, accountID, userID)
		return row.Scan(&account.AccountID, &account.UserID, &rawType, &account.Balance)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, fmt.Errorf("%w: %d", ErrAccountNotFound, accountID)
		}
		return Account{}, fmt.Errorf("failed to scan account: %w", err)
	}

	account.Type, err = decodeAccountType(rawType)
	if err != nil {
		return Account{}, fmt.Errorf("account %d: %w", account.AccountID, err)
	}

	return account, nil
}

func (s *SQLiteStore) CountAccounts(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM accounts`, "accounts")
}

func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	// Simple ping query to check database connectivity
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) count(ctx context.Context, query, what string) (int, error) {
	var count int
	err := util.Retry(ctx, s.retry, func() error {
		return s.db.QueryRowContext(ctx, query).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", what, err)
	}
	return count, nil
}

// withTx runs fn in a transaction, retrying the whole unit while the database is busy.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return util.Retry(ctx, s.retry, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getUser(ctx context.Context, q queryer, userID string) (User, error) {
	var user User
	err := q.QueryRowContext(ctx, `SELECT user_id, name FROM users WHERE user_id = ?`, userID).
		Scan(&user.UserID, &user.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return User{}, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}

func listAccounts(ctx context.Context, q queryer, userID string) ([]Account, error) {
	query := `SELECT account_id, user_id, account_type, balance FROM accounts WHERE user_id = ? ORDER BY account_id`

	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	accounts := []Account{}
	for rows.Next() {
		var account Account
		var rawType string
		if err := rows.Scan(&account.AccountID, &account.UserID, &rawType, &account.Balance); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}

		account.Type, err = decodeAccountType(rawType)
		if err != nil {
			return nil, fmt.Errorf("account %d: %w", account.AccountID, err)
		}

		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return accounts, nil
}

// StoreOptions configures store creation
type StoreOptions struct {
	Name     string
	BasePath string
	InMemory bool
	Config   DatabaseConfig
	Logger   *slog.Logger
}

// DefaultStoreOptions returns sensible defaults for store creation
func DefaultStoreOptions(name string) StoreOptions {
	return StoreOptions{
		Name:   name,
		Config: DefaultDatabaseConfig(),
	}
}

// InMemoryStoreOptions returns options for a private, non-persistent database.
func InMemoryStoreOptions() StoreOptions {
	opts := DefaultStoreOptions("memory")
	opts.InMemory = true
	opts.Config.EnableWAL = false
	return opts
}

func NewSQLiteStore(opts StoreOptions) (*SQLiteStore, error) {
	db, err := openDatabase(opts)
	if err != nil {
		return nil, fmt.Errorf("could not create sqlite db: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create schema: %w", err)
	}

	return newSQLiteStore(db, opts.Logger), nil
}

func newSQLiteStore(db *sql.DB, logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.Default()
	}

	retry := defaultRetryConfig
	retry.OnRetry = func(attempt int, err error) {
		logger.Warn("database busy, retrying", "attempt", attempt, "error", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger,
		retry:  retry,
	}
}

// AUTOINCREMENT keeps account ids monotonic: a deleted id is never handed out again.
const schema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS users (
	user_id TEXT PRIMARY KEY NOT NULL CHECK (user_id <> ''),
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
	account_id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL REFERENCES users (user_id),
	account_type TEXT NOT NULL,
	balance REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_accounts_user_id ON accounts (user_id);
`

func createSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

func openDatabase(opts StoreOptions) (*sql.DB, error) {
	pragmas := []string{
		"_pragma=foreign_keys(1)",
		fmt.Sprintf("_pragma=busy_timeout(%d)", opts.Config.BusyTimeout.Milliseconds()),
	}

	var dsn string
	if opts.InMemory {
		dsn = ":memory:"
	} else {
		file, err := databaseFile(opts)
		if err != nil {
			return nil, err
		}
		dsn = fmt.Sprintf("file:%s", file)

		if opts.Config.EnableWAL {
			// https://www.sqlite.org/pragma.html#pragma_journal_mode
			// https://www.sqlite.org/pragma.html#pragma_synchronous
			pragmas = append(pragmas, "_pragma=journal_mode(WAL)", "_pragma=synchronous(FULL)")
		}
	}
	dsn += "?" + strings.Join(pragmas, "&")

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open sqlite db: %w", err)
	}

	// One connection for the whole process. An in-memory database lives exactly as
	// long as its connection, so it must never be recycled.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if opts.InMemory {
		db.SetConnMaxLifetime(0)
	} else {
		db.SetConnMaxLifetime(opts.Config.ConnMaxLifetime)
	}

	return db, nil
}

func databaseFile(opts StoreOptions) (string, error) {
	var dir string
	if opts.BasePath != "" {
		dir = filepath.Join(opts.BasePath, ".data")
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("could not get working directory: %w", err)
		}
		dir = filepath.Join(wd, ".data")
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		err := os.MkdirAll(dir, 0750)
		if err != nil {
			return "", fmt.Errorf("could not create data dir: %w", err)
		}
	}

	return filepath.Join(dir, fmt.Sprintf("%s.db", opts.Name)), nil
}

func sqliteCode(err error) (int, bool) {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code(), true
	}
	return 0, false
}

// isSQLiteBusyError checks if an error is a SQLite BUSY error that should be retried
func isSQLiteBusyError(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqliteCode(err); ok {
		primary := code & 0xff
		return primary == sqlite3.SQLITE_BUSY || primary == sqlite3.SQLITE_LOCKED
	}
	errorStr := err.Error()
	return strings.Contains(errorStr, "database is locked") ||
		strings.Contains(errorStr, "SQLITE_BUSY")
}

func isForeignKeyError(err error) bool {
	if code, ok := sqliteCode(err); ok {
		if code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
			return true
		}
		if code&0xff != sqlite3.SQLITE_CONSTRAINT {
			return false
		}
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// defaultRetryConfig provides the standard retry configuration for all SQLite operations
var defaultRetryConfig = util.RetryConfig{
	MaxRetries:      5,
	BaseDelay:       10 * time.Millisecond,
	MaxDelay:        1 * time.Second,
	ShouldRetryFunc: isSQLiteBusyError,
}
