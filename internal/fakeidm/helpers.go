package fakeidm

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fivetwenty-io/idm-client/internal/constants"
)

type errorResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

type pageResponse struct {
	Items    []interface{} `json:"items"`
	Metadata pageMetadata  `json:"_metadata"`
}

type pageMetadata struct {
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, details ...string) {
	if details == nil {
		details = []string{}
	}

	writeJSON(w, status, errorResponse{Message: msg, Errors: details})
}

// readBody buffers the request body so it can be recorded and decoded.
func readBody(r *http.Request) ([]byte, *http.Request) {
	if r.Body == nil {
		return nil, r
	}

	body, _ := io.ReadAll(r.Body)
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	return body, r
}

func readJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T

	err := json.NewDecoder(r.Body).Decode(&v)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())

		return v, false
	}

	return v, true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id", err.Error())

		return uuid.Nil, false
	}

	return id, true
}

// paging reads _limit and _offset, where _offset is a page index.
func paging(w http.ResponseWriter, r *http.Request) (limit, page int, ok bool) {
	limit = constants.DefaultPageSize

	if v := r.URL.Query().Get(constants.QueryLimit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid _limit")

			return 0, 0, false
		}

		limit = n
	}

	if v := r.URL.Query().Get(constants.QueryOffset); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid _offset")

			return 0, 0, false
		}

		page = n
	}

	return limit, page, true
}

func paginate(items []interface{}, limit, page int) pageResponse {
	total := len(items)
	totalPages := (total + limit - 1) / limit

	start := min(page*limit, total)
	end := min(start+limit, total)

	return pageResponse{
		Items:    append([]interface{}{}, items[start:end]...),
		Metadata: pageMetadata{TotalItems: total, TotalPages: totalPages},
	}
}
