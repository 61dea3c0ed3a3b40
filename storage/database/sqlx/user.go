package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

const (
	userColumns     = "id, name, email, password_hash, role, phone, address, avatar, is_active, is_email_verified, last_login, created_at, updated_at"
	userEmailUnique = "users_email_key"
)

type userRow struct {
	ID              string    `db:"id"`
	Name            string    `db:"name"`
	Email           string    `db:"email"`
	PasswordHash    []byte    `db:"password_hash"`
	Role            string    `db:"role"`
	Phone           string    `db:"phone"`
	Address         string    `db:"address"`
	Avatar          string    `db:"avatar"`
	IsActive        bool      `db:"is_active"`
	IsEmailVerified bool      `db:"is_email_verified"`
	LastLogin       null.Time `db:"last_login"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

type userRepository struct {
	baseRepository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{baseRepository{db: db}}
}

func (repo userRepository) boil(usr user.User) userRow {
	return userRow{
		ID:              usr.ID,
		Name:            usr.Name,
		Email:           usr.Email,
		PasswordHash:    usr.PasswordHash,
		Role:            string(usr.Role),
		Phone:           usr.Phone,
		Address:         usr.Address,
		Avatar:          usr.Avatar,
		IsActive:        usr.IsActive,
		IsEmailVerified: usr.IsEmailVerified,
		LastLogin:       null.TimeFromPtr(usr.LastLogin),
		CreatedAt:       usr.CreatedAt.UTC(),
		UpdatedAt:       usr.UpdatedAt.UTC(),
	}
}

func (repo userRepository) unboil(row userRow) user.User {
	usr := user.User{
		ID:              row.ID,
		Name:            row.Name,
		Email:           row.Email,
		Role:            user.Role(row.Role),
		Phone:           row.Phone,
		Address:         row.Address,
		Avatar:          row.Avatar,
		IsActive:        row.IsActive,
		IsEmailVerified: row.IsEmailVerified,
		PasswordHash:    row.PasswordHash,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
	if row.LastLogin.Valid {
		lastLogin := row.LastLogin.Time.UTC()
		usr.LastLogin = &lastLogin
	}
	return usr
}

func (repo userRepository) Create(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	q := `INSERT INTO users (` + userColumns + `) VALUES (
		:id, :name, :email, :password_hash, :role, :phone, :address, :avatar,
		:is_active, :is_email_verified, :last_login, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, repo.boil(usr)); err != nil {
		return user.User{}, trapUniqueErr(err, userEmailUnique, user.ErrEmailExists, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) Get(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var w where
	switch {
	case filter.ID != "":
		w.add("id = ?", filter.ID)
	case filter.Email != "":
		w.add("email = ?", filter.Email)
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := repo.getExec(exec).GetContext(ctx, &row, "SELECT "+userColumns+" FROM users"+w.String(), w.args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "selecting user")
	}
	return repo.unboil(row), nil
}

func (repo userRepository) Query(ctx context.Context, filter user.QueryFilter, exec ...core.DBExecutor) ([]user.User, error) {
	var w where
	if filter.IDs != nil {
		w.add("id = ANY(?)", pq.Array(filter.IDs))
	}
	if filter.Role != "" {
		w.add("role = ?", string(filter.Role))
	}

	var rows []userRow
	q := "SELECT " + userColumns + " FROM users" + w.String() + " ORDER BY created_at"
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.unboil(row))
	}
	return users, nil
}

func (repo userRepository) Update(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	q := `UPDATE users SET
		name = :name, email = :email, password_hash = :password_hash, role = :role, phone = :phone,
		address = :address, avatar = :avatar, is_active = :is_active, is_email_verified = :is_email_verified,
		last_login = :last_login, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, repo.boil(usr))
	if err != nil {
		return user.User{}, trapUniqueErr(err, userEmailUnique, user.ErrEmailExists, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) Delete(ctx context.Context, id string, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	return errors.Wrap(err, "deleting user")
}
