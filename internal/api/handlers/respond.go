package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hugh/go-inspect/internal/api/dto"
	"github.com/hugh/go-inspect/internal/apperr"
	"github.com/hugh/go-inspect/internal/checklist"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps a service error onto its HTTP status. Only
// unexpected failures are logged; the rest are the caller's problem.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		resp := dto.ErrorResponse{Error: err.Error(), Details: apperr.FieldsOf(err)}
		var missing *checklist.MissingItemsError
		if errors.As(err, &missing) {
			resp.Error = "Required checklist items are not answered"
			resp.MissingItems = missing.Items
		}
		if resp.Details != nil {
			resp.Error = "Validation failed"
		}
		writeJSON(w, http.StatusBadRequest, resp)
	case apperr.KindNotFound:
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
	case apperr.KindConflict:
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	case apperr.KindExternalDependency:
		logger.Error("dependency failure", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, dto.ErrorResponse{Error: "Service temporarily unavailable"})
	default:
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error"})
	}
}

func urlID(w http.ResponseWriter, r *http.Request, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid " + what + " ID"})
		return uuid.Nil, false
	}
	return id, true
}

func pagination(r *http.Request) dto.PaginationParams {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	p := dto.PaginationParams{Page: page, PerPage: perPage}
	p.Normalize()
	return p
}

// queryFilters collects optional typed query parameters and the parse errors
// they produce.
type queryFilters struct {
	r      *http.Request
	errors map[string]string
}

func newQueryFilters(r *http.Request) *queryFilters {
	return &queryFilters{r: r, errors: make(map[string]string)}
}

func (q *queryFilters) id(name string) *uuid.UUID {
	v := q.r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		q.errors[name] = "Invalid ID"
		return nil
	}
	return &id
}

func (q *queryFilters) flag(name string) *bool {
	v := q.r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		q.errors[name] = "Must be true or false"
		return nil
	}
	return &b
}

func (q *queryFilters) date(name string) *time.Time {
	v := q.r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	d, err := dto.ParseDate(v)
	if err != nil {
		q.errors[name] = "Must be a YYYY-MM-DD date"
		return nil
	}
	return &d
}

func (q *queryFilters) number(name string, def int) int {
	v := q.r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		q.errors[name] = "Must be a whole number"
		return def
	}
	return n
}

// failed writes the collected errors, if any, and reports whether it did.
func (q *queryFilters) failed(w http.ResponseWriter) bool {
	if len(q.errors) == 0 {
		return false
	}
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid query parameters", Details: q.errors})
	return true
}
