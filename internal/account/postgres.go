package account

import (
	"context"
	stderrors "errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"quizdumps/internal/domain"
	"quizdumps/internal/errors"
)

// PostgresStore is the pgx-backed account store.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (domain.Account, error) {
	const stmt = `
SELECT account_id, username, password_hash, email, country, education, career
FROM accounts
WHERE username = $1;`

	var a domain.Account
	err := s.db.QueryRow(ctx, stmt, username).Scan(
		&a.AccountID, &a.Username, &a.PasswordHash,
		&a.Email, &a.Country, &a.Education, &a.Career,
	)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("account not found: username=%s", username))
	}
	if err != nil {
		return domain.Account{}, err
	}

	return a, nil
}

func (s *PostgresStore) Insert(ctx context.Context, a domain.Account) error {
	const stmt = `
INSERT INTO accounts (account_id, username, password_hash, email, country, education, career)
VALUES ($1, $2, $3, $4, $5, $6, $7);`

	_, err := s.db.Exec(ctx, stmt,
		a.AccountID, a.Username, a.PasswordHash,
		a.Email, a.Country, a.Education, a.Career,
	)

	var pgErr *pgconn.PgError
	const codeUniqueViolation = "23505"
	if stderrors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("Account already exists!"),
			errors.WithCause(err))
	}

	return err
}
