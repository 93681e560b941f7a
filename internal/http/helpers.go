package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"moneta/internal/core"
	"moneta/internal/log"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// ownerHeader carries the authenticated caller's id, set by the upstream
// gateway.
const ownerHeader = "X-Owner-ID"

const maxBodyBytes = 1 << 20

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func extractClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func ownerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(ownerHeader))
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func decodeJSON(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps domain sentinel errors to HTTP statuses. Unknown
// errors are logged with the request id and become a generic 500 so
// internals never leak to clients.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, core.ErrEditWindowExpired):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrInsufficientBalance):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrBudgetExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDirection),
		errors.Is(err, core.ErrEmptyOwner),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrEmptyCounterparty),
		errors.Is(err, core.ErrSamePocketTransfer),
		errors.Is(err, core.ErrInvalidTimeOfDay):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Unhandled service error",
			log.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// parseDate parses a "YYYY-MM-DD" string.
func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// monthRange returns the [from, to) span for a query's month parameter,
// defaulting to the current month.
func monthRange(r *http.Request, now time.Time) (from, to time.Time, err error) {
	month := strings.TrimSpace(r.URL.Query().Get("month"))
	if month == "" {
		month = core.MonthKey(now)
	}
	from, err = time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month %q", month)
	}
	return from, from.AddDate(0, 1, 0), nil
}
