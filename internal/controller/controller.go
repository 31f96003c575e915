// Package controller holds the JSON HTTP handlers of the dashboard API.
package controller

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/prdesk-backend/internal/errors"
	"github.com/unclebandit/prdesk-backend/internal/middleware"
	"github.com/unclebandit/prdesk-backend/internal/model"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return appErrors.PayloadTooLarge("request body exceeds " + strconv.FormatInt(tooLarge.Limit, 10) + " bytes")
		}
		return appErrors.Validation("invalid request body: " + err.Error())
	}
	return nil
}

func idParam(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id < 1 {
		return 0, appErrors.Validation("invalid " + name)
	}
	return id, nil
}

func queryInt(r *http.Request, name string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(name))
	return v
}

func parsePositive(raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, errors.New("not a positive integer")
	}
	return v, nil
}

// queryIntPtr returns nil when the parameter is absent.
func queryIntPtr(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, appErrors.Validation("invalid " + name)
	}
	return &v, nil
}

func actor(r *http.Request) model.Actor {
	return middleware.IdentityFrom(r.Context())
}

func paged(data any, pagination any) map[string]any {
	return map[string]any{"data": data, "pagination": pagination}
}
