package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/solar-feasibility-service/internal/registry"
)

const uniqueViolation = "23505"

// Repository implements registry.Repository. Each call borrows a pooled
// connection for its own duration.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wraps a pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CheckReadiness pings the database.
func (r *Repository) CheckReadiness(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) Create(ctx context.Context, u registry.User) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, tax_id, name, phone, email, password_hash, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, u.ID, u.TaxID, u.Name, u.Phone, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
		if err != nil {
			return mapWriteError("insert user", err)
		}
		for _, a := range u.Addresses {
			if err := insertAddress(ctx, tx, u.ID, a); err != nil {
				return err
			}
		}
		return nil
	})
}

const selectUsers = `
	SELECT u.id, u.tax_id, u.name, u.phone, u.email, u.password_hash, u.created_at, u.updated_at,
	       a.street, a.postal_code, a.district, a.city, a.state
	FROM users u
	LEFT JOIN addresses a ON a.user_id = u.id
`

func (r *Repository) List(ctx context.Context) ([]registry.User, error) {
	rows, err := r.pool.Query(ctx, selectUsers+` ORDER BY u.created_at, u.id, a.id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return collectUsers(rows)
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (registry.User, error) {
	rows, err := r.pool.Query(ctx, selectUsers+` WHERE u.id = $1 ORDER BY a.id`, id)
	if err != nil {
		return registry.User{}, fmt.Errorf("get user: %w", err)
	}
	users, err := collectUsers(rows)
	if err != nil {
		return registry.User{}, err
	}
	if len(users) == 0 {
		return registry.User{}, registry.ErrNotFound
	}
	return users[0], nil
}

func (r *Repository) Update(ctx context.Context, u registry.User, addr *registry.Address) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE users
			SET tax_id = $2, name = $3, phone = $4, email = $5, password_hash = $6, updated_at = $7
			WHERE id = $1
		`, u.ID, u.TaxID, u.Name, u.Phone, u.Email, u.PasswordHash, u.UpdatedAt)
		if err != nil {
			return mapWriteError("update user", err)
		}
		if tag.RowsAffected() == 0 {
			return registry.ErrNotFound
		}
		if addr == nil {
			return nil
		}

		tag, err = tx.Exec(ctx, `
			UPDATE addresses
			SET street = $2, postal_code = $3, district = $4, city = $5, state = $6
			WHERE user_id = $1
		`, u.ID, addr.Street, addr.PostalCode, addr.District, addr.City, addr.State)
		if err != nil {
			return fmt.Errorf("update address: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return insertAddress(ctx, tx, u.ID, *addr)
		}
		return nil
	})
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return registry.ErrNotFound
	}
	return nil
}

func insertAddress(ctx context.Context, tx pgx.Tx, userID uuid.UUID, a registry.Address) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO addresses (user_id, street, postal_code, district, city, state)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, userID, a.Street, a.PostalCode, a.District, a.City, a.State)
	if err != nil {
		return fmt.Errorf("insert address: %w", err)
	}
	return nil
}

// collectUsers folds joined user/address rows into users, preserving row order.
func collectUsers(rows pgx.Rows) ([]registry.User, error) {
	defer rows.Close()

	var users []registry.User
	index := map[uuid.UUID]int{}
	for rows.Next() {
		var (
			u                                         registry.User
			street, postalCode, district, city, state *string
		)
		if err := rows.Scan(&u.ID, &u.TaxID, &u.Name, &u.Phone, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
			&street, &postalCode, &district, &city, &state); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}

		i, ok := index[u.ID]
		if !ok {
			u.Addresses = []registry.Address{}
			users = append(users, u)
			i = len(users) - 1
			index[u.ID] = i
		}
		if street != nil {
			users[i].Addresses = append(users[i].Addresses, registry.Address{
				Street:     *street,
				PostalCode: deref(postalCode),
				District:   deref(district),
				City:       deref(city),
				State:      deref(state),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	if users == nil {
		users = []registry.User{}
	}
	return users, nil
}

func mapWriteError(op string, err error) error {
	if isUniqueViolation(err) {
		return registry.ErrConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
