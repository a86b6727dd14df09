package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/nyaruka/phonenumbers"
	"golang.org/x/crypto/bcrypt"
)

const phoneRegion = "BR"

// Service implements the user registry operations.
type Service struct {
	repo     Repository
	lookup   AddressLookup
	validate *validator.Validate
	clock    clockwork.Clock
	logger   *slog.Logger
	hashCost int
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithHashCost overrides the bcrypt cost.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

// NewService creates a registry Service.
func NewService(repo Repository, lookup AddressLookup, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		lookup:   lookup,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		clock:    clockwork.NewRealClock(),
		logger:   logger,
		hashCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a user and the address behind its postal code.
func (s *Service) Create(ctx context.Context, in CreateInput) (User, error) {
	if err := s.validateInput(in); err != nil {
		return User{}, err
	}

	addr, err := s.resolveAddress(ctx, in.PostalCode)
	if err != nil {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now().UTC()
	u := User{
		ID:           uuid.New(),
		TaxID:        normalizeTaxID(in.TaxID),
		Name:         strings.TrimSpace(in.Name),
		Phone:        NormalizePhone(in.Phone),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: string(hash),
		Addresses:    []Address{addr},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}

	s.logger.Info("user created", "user_id", u.ID)
	return u, nil
}

// List returns every user with their addresses.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Get returns one user.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (User, error) {
	return s.repo.Get(ctx, id)
}

// Update replaces the user's fields. A non-empty postal code re-resolves the address.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (User, error) {
	if err := s.validateInput(in); err != nil {
		return User{}, err
	}

	var addr *Address
	if strings.TrimSpace(in.PostalCode) != "" {
		a, err := s.resolveAddress(ctx, in.PostalCode)
		if err != nil {
			return User{}, err
		}
		addr = &a
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	u := User{
		ID:           id,
		TaxID:        normalizeTaxID(in.TaxID),
		Name:         strings.TrimSpace(in.Name),
		Phone:        NormalizePhone(in.Phone),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: string(hash),
		UpdatedAt:    s.clock.Now().UTC(),
	}
	if err := s.repo.Update(ctx, u, addr); err != nil {
		return User{}, err
	}

	s.logger.Info("user updated", "user_id", id, "address_changed", addr != nil)
	return s.repo.Get(ctx, id)
}

// Delete removes a user and its addresses.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", "user_id", id)
	return nil
}

// NormalizePhone formats a phone number to E.164 using the Brazilian
// numbering plan. Unparsable or invalid numbers are returned trimmed.
func NormalizePhone(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, phoneRegion)
	if err != nil {
		return trimmed
	}
	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}

// normalizeTaxID strips CPF punctuation ("123.456.789-09" → "12345678909").
func normalizeTaxID(s string) string {
	return strings.NewReplacer(".", "", "-", "", "/", "", " ", "").Replace(s)
}

func (s *Service) resolveAddress(ctx context.Context, postalCode string) (Address, error) {
	addr, err := s.lookup.Lookup(ctx, strings.TrimSpace(postalCode))
	if err != nil {
		return Address{}, err
	}
	return addr, nil
}

func (s *Service) validateInput(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", jsonFieldName(fe.Field()), fe.Tag()))
		}
		return fmt.Errorf("%w: invalid fields: %s", ErrInvalidInput, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

var fieldNames = map[string]string{
	"TaxID":      "tax_id",
	"Name":       "name",
	"Phone":      "phone",
	"Email":      "email",
	"Password":   "password",
	"PostalCode": "postal_code",
}

func jsonFieldName(field string) string {
	if n, ok := fieldNames[field]; ok {
		return n
	}
	return field
}
