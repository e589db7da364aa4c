package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/naplog/sleep-server-go/internal/errors"
	"github.com/naplog/sleep-server-go/internal/httputil"
)

const dateFormat = "2006-01-02"

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

// decodeJSON decodes a request body, treating an empty body as an empty
// request. Malformed JSON (including badly formatted timestamps) is an
// InvalidInput error.
func decodeJSON(r *http.Request, dest any) error {
	err := json.NewDecoder(r.Body).Decode(dest)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperrors.InvalidInput("request body", err.Error())
}

func sessionIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.InvalidInput("session id", "must be an integer")
	}
	return id, nil
}

// dateQueryParam parses an optional YYYY-MM-DD query parameter as a UTC
// midnight timestamp.
func dateQueryParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateFormat, raw, time.UTC)
	if err != nil {
		return nil, apperrors.InvalidInput(name, "must be formatted YYYY-MM-DD")
	}
	return &t, nil
}

// endOfDay turns an inclusive end date into an exclusive upper bound.
func endOfDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	next := t.AddDate(0, 0, 1)
	return &next
}
