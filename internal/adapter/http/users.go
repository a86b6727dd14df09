package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/couchcryptid/solar-feasibility-service/internal/registry"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// UserService manages registered users.
type UserService interface {
	Create(ctx context.Context, in registry.CreateInput) (registry.User, error)
	List(ctx context.Context) ([]registry.User, error)
	Get(ctx context.Context, id uuid.UUID) (registry.User, error)
	Update(ctx context.Context, id uuid.UUID, in registry.UpdateInput) (registry.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in registry.CreateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := s.users.Create(r.Context(), in)
	if err != nil {
		s.writeRegistryError(w, r, err)
		return
	}
	w.Header().Set("Location", "/users/"+u.ID.String())
	sharedobs.WriteJSON(w, http.StatusCreated, u)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		s.writeRegistryError(w, r, err)
		return
	}
	if users == nil {
		users = []registry.User{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, users)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	u, err := s.users.Get(r.Context(), id)
	if err != nil {
		s.writeRegistryError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, u)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var in registry.UpdateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := s.users.Update(r.Context(), id, in)
	if err != nil {
		s.writeRegistryError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, u)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	if err := s.users.Delete(r.Context(), id); err != nil {
		s.writeRegistryError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "user id must be a UUID")
		return uuid.UUID{}, false
	}
	return id, true
}
