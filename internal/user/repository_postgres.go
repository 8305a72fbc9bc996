package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/engineer-developer/marketplace/internal/database"
)

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	userColumns = `id, username, password_hash, first_name, last_name, email, phone, avatar_src, avatar_alt, available, created_at, updated_at`

	getUserByIDQuery       = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	getUserByUsernameQuery = `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	insertUserQuery = `
		INSERT INTO users (username, password_hash, first_name, last_name, email, phone)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, available, created_at, updated_at
	`
	updateUserQuery = `
		UPDATE users
		SET first_name = $1,
			last_name = $2,
			email = $3,
			phone = $4,
			avatar_src = $5,
			avatar_alt = $6,
			updated_at = now()
		WHERE id = $7
		RETURNING ` + userColumns
	setPasswordQuery = `UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`
	deactivateQuery  = `UPDATE users SET available = FALSE, updated_at = now() WHERE id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (User, error) {
	return r.one(r.db.QueryRowContext(ctx, getUserByIDQuery, id))
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (User, error) {
	return r.one(r.db.QueryRowContext(ctx, getUserByUsernameQuery, username))
}

func (r *PostgresRepository) Create(ctx context.Context, u User) (User, error) {
	err := r.db.QueryRowContext(ctx, insertUserQuery,
		u.Username,
		u.PasswordHash,
		u.FirstName,
		u.LastName,
		nullString(u.Email),
		nullString(u.Phone),
	).Scan(&u.ID, &u.Available, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, mapConstraint(err)
	}
	return u, nil
}

func (r *PostgresRepository) Update(ctx context.Context, u User) (User, error) {
	row := r.db.QueryRowContext(ctx, updateUserQuery,
		u.FirstName,
		u.LastName,
		nullString(u.Email),
		nullString(u.Phone),
		nullString(u.AvatarSrc),
		nullString(u.AvatarAlt),
		u.ID,
	)
	updated, err := r.one(row)
	if err != nil {
		return User{}, mapConstraint(err)
	}
	return updated, nil
}

func (r *PostgresRepository) SetPassword(ctx context.Context, id int, hash string) error {
	return r.exec(ctx, setPasswordQuery, hash, id)
}

func (r *PostgresRepository) Deactivate(ctx context.Context, id int) error {
	return r.exec(ctx, deactivateQuery, id)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) one(row rowScanner) (User, error) {
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func scanUser(scanner rowScanner) (User, error) {
	u := User{}
	var email, phone, avatarSrc, avatarAlt sql.NullString

	if err := scanner.Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&email,
		&phone,
		&avatarSrc,
		&avatarAlt,
		&u.Available,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return User{}, err
	}

	u.Email = email.String
	u.Phone = phone.String
	u.AvatarSrc = avatarSrc.String
	u.AvatarAlt = avatarAlt.String
	return u, nil
}

func mapConstraint(err error) error {
	name, ok := database.ConstraintOf(err)
	if !ok {
		return err
	}
	switch name {
	case "users_username_key":
		return ErrUsernameExists
	case "users_email_key":
		return ErrEmailExists
	case "users_phone_key":
		return ErrPhoneExists
	}
	return err
}

// nullString stores empty strings as NULL so unique columns allow many blanks.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
