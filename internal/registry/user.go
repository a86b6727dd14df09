// Package registry manages portal users and their addresses. Street addresses
// are filled in from the postal code, so callers only send the code.
package registry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrConflict       = errors.New("a user with this tax id or email already exists")
	ErrInvalidAddress = errors.New("postal code is invalid or unknown")
	ErrInvalidInput   = errors.New("invalid input")
)

// User is a registered portal user. PasswordHash is never serialized.
type User struct {
	ID           uuid.UUID `json:"id"`
	TaxID        string    `json:"tax_id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Addresses    []Address `json:"addresses"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Address is a Brazilian street address.
type Address struct {
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	District   string `json:"district"`
	City       string `json:"city"`
	State      string `json:"state"`
}

// CreateInput carries the fields required to register a user.
type CreateInput struct {
	TaxID      string `json:"tax_id" validate:"required,min=11,max=14"`
	Name       string `json:"name" validate:"required,max=200"`
	Phone      string `json:"phone" validate:"required,max=32"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	PostalCode string `json:"postal_code" validate:"required"`
}

// UpdateInput replaces a user's fields. The address is re-resolved only when
// PostalCode is set.
type UpdateInput struct {
	TaxID      string `json:"tax_id" validate:"required,min=11,max=14"`
	Name       string `json:"name" validate:"required,max=200"`
	Phone      string `json:"phone" validate:"required,max=32"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	PostalCode string `json:"postal_code,omitempty"`
}

// Repository persists users. Implementations return ErrNotFound and
// ErrConflict for missing rows and uniqueness violations.
type Repository interface {
	Create(ctx context.Context, u User) error
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id uuid.UUID) (User, error)
	// Update replaces the user's fields and, when addr is non-nil, its address.
	Update(ctx context.Context, u User, addr *Address) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AddressLookup resolves a postal code to a street address. Unknown codes
// yield ErrInvalidAddress.
type AddressLookup interface {
	Lookup(ctx context.Context, postalCode string) (Address, error)
}
