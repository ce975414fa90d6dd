package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mada-pay/mada_pay/internal/domain"
	"github.com/mada-pay/mada_pay/internal/ledger"
)

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id int64) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, name, email, phone, password_hash, subscription_plan, mobile_money_number, mobile_money_provider, created_at`

// Create inserts a new user and assigns its id.
func (r *PostgresRepository) Create(ctx context.Context, user *User) error {
	err := r.db.QueryRow(ctx, `INSERT INTO users (name, email, phone, password_hash, subscription_plan, mobile_money_number, mobile_money_provider, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		user.Name, user.Email, user.Phone, string(user.PasswordHash), string(user.Plan),
		user.MobileMoneyNumber, user.MobileMoneyProvider, user.CreatedAt.UTC()).Scan(&user.ID)
	if ledger.IsUniqueViolation(err) {
		return domain.Fail(domain.ErrConflict, "email or phone already registered")
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByID fetches a user by id.
func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row, fmt.Sprint(id))
}

// FindByEmail fetches a user by email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row, email)
}

func scanUser(row pgx.Row, key string) (User, error) {
	var (
		user      User
		hash      string
		plan      string
		createdAt time.Time
	)
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Phone, &hash, &plan,
		&user.MobileMoneyNumber, &user.MobileMoneyProvider, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, domain.Fail(domain.ErrNotFound, "user %s not found", key)
	}
	if err != nil {
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	user.PasswordHash = []byte(hash)
	user.Plan = Plan(plan)
	user.CreatedAt = createdAt.UTC()
	return user, nil
}

type memoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]User
}

// NewMemoryRepository builds an in-memory user store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[int64]User)}
}

func (r *memoryRepository) Create(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email || existing.Phone == user.Phone {
			return domain.Fail(domain.ErrConflict, "email or phone already registered")
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = *user
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id int64) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, domain.Fail(domain.ErrNotFound, "user %d not found", id)
	}
	return user, nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return User{}, domain.Fail(domain.ErrNotFound, "user %s not found", email)
}
