package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"govportal/internal/account/models"
	"govportal/internal/platform/database"
	id "govportal/pkg/domain"
	"govportal/pkg/platform/sentinel"
	txcontext "govportal/pkg/platform/tx"
)

const emailConstraint = "users_email_key"

// PostgresStore persists users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateIfEmailAvailable inserts the user. The unique email constraint makes
// concurrent registrations of the same address yield one winner.
func (s *PostgresStore) CreateIfEmailAvailable(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, phone, address, city, zip, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(u.ID),
		u.Email,
		u.PasswordHash,
		u.FirstName,
		u.LastName,
		u.Phone,
		u.Address,
		u.City,
		u.Zip,
		u.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, emailConstraint) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const selectUser = `
	SELECT id, email, password_hash, first_name, last_name, phone, address, city, zip, created_at
	FROM users
`

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, selectUser+` WHERE id = $1`, uuid.UUID(userID))
	return scanUser(row)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, selectUser+` WHERE email = $1`, email)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*models.User, error) {
	var (
		u       models.User
		rawID   uuid.UUID
		address sql.NullString
		city    sql.NullString
		zip     sql.NullString
	)
	err := row.Scan(&rawID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone, &address, &city, &zip, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.ID = id.UserID(rawID)
	u.Address = nullable(address)
	u.City = nullable(city)
	u.Zip = nullable(zip)
	return &u, nil
}

func nullable(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
