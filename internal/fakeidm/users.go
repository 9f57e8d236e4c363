package fakeidm

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fivetwenty-io/idm-client/internal/constants"
)

type userRecord struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Metadata  json.RawMessage
	CreatedAt time.Time
	Tenants   []uuid.UUID
}

type createUserBody struct {
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	Metadata        json.RawMessage `json:"metadata"`
	SkipInviteEmail bool            `json:"skipInviteEmail"`
}

// AddUserToTenant binds an existing user to another tenant, which the
// client API has no operation for.
func (s *Service) AddUserToTenant(userID, tenantID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return false
	}

	if _, ok := s.tenants[tenantID]; !ok {
		return false
	}

	u.Tenants = append(u.Tenants, tenantID)

	return true
}

func (s *Service) renderUser(u *userRecord) map[string]interface{} {
	bindings := make([]interface{}, 0, len(u.Tenants))
	for _, id := range u.Tenants {
		bindings = append(bindings, map[string]interface{}{
			"tenantId": id.String(),
			"roles":    []interface{}{},
		})
	}

	out := s.renderCreatedUser(u)
	delete(out, "roles")
	delete(out, "permissions")
	out["tenants"] = bindings

	return out
}

func (s *Service) renderCreatedUser(u *userRecord) map[string]interface{} {
	return map[string]interface{}{
		"id":          u.ID.String(),
		"name":        u.Name,
		"email":       u.Email,
		"metadata":    s.renderMetadata(u.Metadata),
		"createdAt":   u.CreatedAt.Format(time.RFC3339Nano),
		"roles":       []interface{}{},
		"permissions": []interface{}{},
	}
}

func (s *Service) handleListUsers(w http.ResponseWriter, r *http.Request) {
	limit, page, ok := paging(w, r)
	if !ok {
		return
	}

	filter := r.Header.Get(constants.TenantIDHeader)

	var filterID uuid.UUID

	if filter != "" {
		id, err := uuid.Parse(filter)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid tenant id")

			return
		}

		filterID = id
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var items []interface{}

	for _, id := range s.userOrder {
		u := s.users[id]
		if filter != "" && !containsID(u.Tenants, filterID) {
			continue
		}

		items = append(items, s.renderUser(u))
	}

	writeJSON(w, http.StatusOK, paginate(items, limit, page))
}

func (s *Service) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(r.Header.Get(constants.TenantIDHeader))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", "frontegg-tenant-id header is required")

		return
	}

	body, ok := readJSON[createUserBody](w, r)
	if !ok {
		return
	}

	var details []string

	if body.Name == "" {
		details = append(details, "name should not be empty")
	}

	if !strings.Contains(body.Email, "@") {
		details = append(details, "email must be an email")
	}

	if len(details) > 0 {
		writeError(w, http.StatusBadRequest, "Validation failed", details...)

		return
	}

	metadata := body.Metadata
	if bytes.Equal(bytes.TrimSpace(metadata), []byte("null")) {
		metadata = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tenants[tenantID]; !exists {
		writeError(w, http.StatusNotFound, "Tenant not found")

		return
	}

	for _, u := range s.users {
		if strings.EqualFold(u.Email, body.Email) {
			writeError(w, http.StatusConflict, "User already exists")

			return
		}
	}

	u := &userRecord{
		ID:        uuid.New(),
		Name:      body.Name,
		Email:     body.Email,
		Metadata:  metadata,
		CreatedAt: s.now(),
		Tenants:   []uuid.UUID{tenantID},
	}

	s.users[u.ID] = u
	s.userOrder = append(s.userOrder, u.ID)

	writeJSON(w, http.StatusCreated, s.renderCreatedUser(u))
}

func (s *Service) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, exists := s.users[id]
	if !exists {
		writeError(w, http.StatusNotFound, "User not found")

		return
	}

	writeJSON(w, http.StatusOK, s.renderUser(u))
}

func (s *Service) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[id]; !exists {
		writeError(w, http.StatusNotFound, "User not found")

		return
	}

	delete(s.users, id)
	s.userOrder = removeID(s.userOrder, id)

	writeJSON(w, http.StatusOK, map[string]interface{}{})
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}

	return false
}
