package helper

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// --- PG error mapping (pgx/libpq) ---

// PGCode returns the SQLSTATE of a pgx or lib/pq error, "" otherwise.
func PGCode(err error) string {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func IsUniqueViolation(err error) bool {
	return PGCode(err) == "23505"
}

// IsConnectionError: koneksi putus / timeout / server menolak (class 08, 53, 57).
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	code := PGCode(err)
	if len(code) < 2 {
		return false
	}
	switch code[:2] {
	case "08", "53", "57":
		return true
	}
	return false
}

func MapPGError(err error) (int, string) {
	switch PGCode(err) {
	case "23503":
		return http.StatusBadRequest, "Referensi tidak ditemukan (FK violation)."
	case "23505":
		return http.StatusConflict, "Data duplikat (unique violation)."
	}
	if IsConnectionError(err) {
		return http.StatusServiceUnavailable, "database unavailable"
	}
	return http.StatusInternalServerError, err.Error()
}
