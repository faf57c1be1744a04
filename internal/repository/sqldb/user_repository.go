package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"inventory-keeper/internal/domain"
	"inventory-keeper/internal/repository"
)

var usersSchema = map[Dialect][]string{
	Postgres: {
		`CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
	},
	MySQL: {
		`CREATE TABLE IF NOT EXISTS users (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	username VARCHAR(191) NOT NULL UNIQUE,
	password_hash VARCHAR(255) NOT NULL,
	created_at DATETIME(6) NOT NULL,
	updated_at DATETIME(6) NOT NULL
)`,
	},
}

type UserRepository struct {
	store
}

func NewUserRepository(db *sqlx.DB, dialect Dialect) repository.UserRepository {
	return &UserRepository{store{db: db, dialect: dialect}}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if err := r.execAll(ctx, usersSchema[r.dialect]); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	const insert = `INSERT INTO users (username, password_hash, created_at, updated_at)
VALUES (:username, :password_hash, :created_at, :updated_at)`

	var id int64
	if r.dialect == Postgres {
		stmt, err := r.db.PrepareNamedContext(ctx, insert+` RETURNING id`)
		if err != nil {
			return 0, fmt.Errorf("prepare insert user: %w", err)
		}
		defer stmt.Close()
		if err := stmt.GetContext(ctx, &id, user); err != nil {
			return 0, wrapUserInsert(err, user.Username)
		}
	} else {
		res, err := r.db.NamedExecContext(ctx, insert, user)
		if err != nil {
			return 0, wrapUserInsert(err, user.Username)
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, fmt.Errorf("user last insert id: %w", err)
		}
	}

	user.ID = id
	return id, nil
}

func wrapUserInsert(err error, username string) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", repository.ErrDuplicateUser, username)
	}
	return fmt.Errorf("insert user: %w", err)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.get(ctx, `username = ?`, username)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.get(ctx, `id = ?`, id)
}

func (r *UserRepository) get(ctx context.Context, where string, arg any) (*domain.User, error) {
	var user domain.User
	query := r.db.Rebind(`SELECT id, username, password_hash, created_at, updated_at FROM users WHERE ` + where)
	if err := r.db.GetContext(ctx, &user, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}
