package fakeidm

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fivetwenty-io/idm-client/internal/constants"
	"github.com/fivetwenty-io/idm-client/pkg/idm"
)

type tenantRecord struct {
	ID           uuid.UUID
	Name         string
	Metadata     json.RawMessage
	CreatorName  *string
	CreatorEmail *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type createTenantBody struct {
	TenantID     *string         `json:"tenantId"`
	Name         string          `json:"name"`
	Metadata     json.RawMessage `json:"metadata"`
	CreatorName  *string         `json:"creatorName"`
	CreatorEmail *string         `json:"creatorEmail"`
}

type metadataBody struct {
	Metadata json.RawMessage `json:"metadata"`
}

// TenantMetadata returns the stored metadata of a tenant as raw JSON.
func (s *Service) TenantMetadata(id uuid.UUID) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[id]
	if !ok {
		return nil, false
	}

	return append(json.RawMessage(nil), t.Metadata...), true
}

func (s *Service) renderTenant(t *tenantRecord) map[string]interface{} {
	return map[string]interface{}{
		"tenantId":     t.ID.String(),
		"name":         t.Name,
		"metadata":     s.renderMetadata(t.Metadata),
		"creatorName":  t.CreatorName,
		"creatorEmail": t.CreatorEmail,
		"createdAt":    t.CreatedAt.Format(time.RFC3339Nano),
		"updatedAt":    t.UpdatedAt.Format(time.RFC3339Nano),
		"deletedAt":    nil,
	}
}

// renderMetadata returns object and array metadata as JSON text when text
// metadata is enabled. Scalars are returned as is.
func (s *Service) renderMetadata(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}

	trimmed := bytes.TrimSpace(raw)
	if s.textMeta && (trimmed[0] == '{' || trimmed[0] == '[') {
		return string(trimmed)
	}

	return json.RawMessage(trimmed)
}

func (s *Service) handleListTenants(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]interface{}, 0, len(s.tenantOrder))
	for _, id := range s.tenantOrder {
		out = append(out, s.renderTenant(s.tenants[id]))
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Service) handlePageTenants(w http.ResponseWriter, r *http.Request) {
	limit, page, ok := paging(w, r)
	if !ok {
		return
	}

	filter := r.URL.Query().Get(constants.QueryTenantID)

	s.mu.Lock()
	defer s.mu.Unlock()

	var items []interface{}

	for _, id := range s.tenantOrder {
		if filter != "" && id.String() != filter {
			continue
		}

		items = append(items, s.renderTenant(s.tenants[id]))
	}

	writeJSON(w, http.StatusOK, paginate(items, limit, page))
}

func (s *Service) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSON[createTenantBody](w, r)
	if !ok {
		return
	}

	if body.TenantID == nil {
		writeError(w, http.StatusBadRequest, "Validation failed", "tenantId should not be empty")

		return
	}

	id, err := uuid.Parse(*body.TenantID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", "tenantId must be a UUID")

		return
	}

	if body.Name == "" {
		writeError(w, http.StatusBadRequest, "Validation failed", "name should not be empty")

		return
	}

	metadata := body.Metadata
	if bytes.Equal(bytes.TrimSpace(metadata), []byte("null")) {
		metadata = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tenants[id]; exists {
		writeError(w, http.StatusConflict, "Tenant already exists")

		return
	}

	now := s.now()
	t := &tenantRecord{
		ID:           id,
		Name:         body.Name,
		Metadata:     metadata,
		CreatorName:  body.CreatorName,
		CreatorEmail: body.CreatorEmail,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.tenants[id] = t
	s.tenantOrder = append(s.tenantOrder, id)

	writeJSON(w, http.StatusCreated, s.renderTenant(t))
}

// handleGetTenant answers with an array that is empty when the tenant does
// not exist, the way the vendor API does.
func (s *Service) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []interface{}{}
	if t, exists := s.tenants[id]; exists {
		out = append(out, s.renderTenant(t))
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Service) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tenants[id]; !exists {
		writeError(w, http.StatusNotFound, "Tenant not found")

		return
	}

	delete(s.tenants, id)
	s.tenantOrder = removeID(s.tenantOrder, id)

	for _, u := range s.users {
		u.Tenants = removeID(u.Tenants, id)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{})
}

func (s *Service) handleSetTenantMetadata(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	body, ok := readJSON[metadataBody](w, r)
	if !ok {
		return
	}

	patch, err := idm.ParseMetadata(body.Metadata)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid metadata", err.Error())

		return
	}

	patchObj, isObj := patch.Object()
	if !isObj {
		writeError(w, http.StatusBadRequest, "Validation failed", "metadata must be an object")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.tenants[id]
	if !exists {
		writeError(w, http.StatusNotFound, "Tenant not found")

		return
	}

	current, ok := s.currentMetadata(w, t)
	if !ok {
		return
	}

	merged, err := current.Merge(patchObj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err.Error())

		return
	}

	s.storeMetadata(t, merged)
	writeJSON(w, http.StatusOK, s.renderTenant(t))
}

func (s *Service) handleDeleteTenantMetadata(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil || key == "" {
		writeError(w, http.StatusBadRequest, "invalid metadata key")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.tenants[id]
	if !exists {
		writeError(w, http.StatusNotFound, "Tenant not found")

		return
	}

	current, ok := s.currentMetadata(w, t)
	if !ok {
		return
	}

	obj, _ := current.Object()
	if _, present := obj[key]; !present {
		if s.strictKeys {
			writeError(w, http.StatusNotFound, "Metadata key not found")

			return
		}

		writeJSON(w, http.StatusOK, s.renderTenant(t))

		return
	}

	updated, err := current.WithoutKey(key)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err.Error())

		return
	}

	s.storeMetadata(t, updated)
	writeJSON(w, http.StatusOK, s.renderTenant(t))
}

// currentMetadata returns the tenant's metadata. Only null and objects can be
// edited; any other shape is rejected with 400.
func (s *Service) currentMetadata(w http.ResponseWriter, t *tenantRecord) (idm.Metadata, bool) {
	if len(t.Metadata) == 0 {
		return idm.NullMetadata(), true
	}

	m, err := idm.ParseMetadata(t.Metadata)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "corrupt metadata")

		return idm.Metadata{}, false
	}

	switch m.Kind() {
	case idm.MetadataNull, idm.MetadataObject:
		return m, true
	default:
		writeError(w, http.StatusBadRequest, "Validation failed", "tenant metadata is not an object")

		return idm.Metadata{}, false
	}
}

func (s *Service) storeMetadata(t *tenantRecord, m idm.Metadata) {
	data, _ := json.Marshal(m)
	t.Metadata = data
	t.UpdatedAt = s.now()
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := ids[:0]

	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}

	return out
}
