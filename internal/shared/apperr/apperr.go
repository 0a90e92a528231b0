package apperr

import (
	"context"
	"errors"
	"net"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrWriteBlocked is returned before any I/O when the deployment does not allow writes.
	ErrWriteBlocked     = errors.New("write blocked")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
)

const sqlStateInsufficientPrivilege = "42501"

// IsPermissionDenied reports whether err is an authorization failure from any backend.
func IsPermissionDenied(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPermissionDenied) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == sqlStateInsufficientPrivilege {
		return true
	}
	return status.Code(err) == codes.PermissionDenied
}

// IsTransient reports whether err looks like a network or availability failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded:
		return true
	}
	return false
}

// HTTPStatus maps an error to the response status used by the handlers.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrWriteBlocked):
		return fiber.StatusServiceUnavailable
	case IsPermissionDenied(err):
		return fiber.StatusForbidden
	case errors.Is(err, ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// HTTPError converts err into a fiber error carrying the mapped status.
func HTTPError(err error) error {
	return fiber.NewError(HTTPStatus(err), err.Error())
}
