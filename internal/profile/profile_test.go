package profile

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"backend-urbexqueens/internal/shared/apperr"
	"backend-urbexqueens/internal/shared/writeguard"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"
)

var profileRowColumns = []string{"id", "display_name", "is_private", "followers_count", "following_count", "created_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestEnsureCreatesRowOnce(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`INSERT INTO users \(id\) VALUES \(\$1\) ON CONFLICT \(id\) DO NOTHING`).WithArgs("user-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService(mock, writeguard.Open())
	for i := 0; i < 3; i++ {
		if err := svc.Ensure(context.Background(), "user-1"); err != nil {
			t.Fatalf("ensure: %v", err)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEnsureRetriesAfterFailure(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`INSERT INTO users`).WithArgs("user-1").WillReturnError(errors.New("conn reset"))
	mock.ExpectExec(`INSERT INTO users`).WithArgs("user-1").WillReturnResult(pgxmock.NewResult("INSERT", 0))

	svc := NewService(mock, writeguard.Open())
	svc.EnsureHook(context.Background(), "user-1")
	if err := svc.Ensure(context.Background(), "user-1"); err != nil {
		t.Fatalf("ensure retry: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEnsureRespectsWriteGuard(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, writeguard.Closed(""))

	if err := svc.Ensure(context.Background(), "user-1"); !errors.Is(err, apperr.ErrWriteBlocked) {
		t.Fatalf("expected write blocked, got %v", err)
	}
	svc.EnsureHook(context.Background(), "user-1")
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected no queries: %v", err)
	}
}

func TestGetProfile(t *testing.T) {
	mock := newMock(t)
	createdAt := time.Now()
	mock.ExpectQuery(`SELECT id, display_name, is_private, followers_count, following_count, created_at FROM users WHERE id=\$1`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows(profileRowColumns).AddRow("user-1", "Ada", true, int64(3), int64(5), createdAt))
	mock.ExpectQuery(`FROM users WHERE id=\$1`).WithArgs("ghost").WillReturnRows(pgxmock.NewRows(profileRowColumns))

	svc := NewService(mock, writeguard.Open())
	p, err := svc.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !p.IsPrivate || p.FollowersCount != 3 || p.FollowingCount != 5 {
		t.Fatalf("unexpected profile %+v", p)
	}
	if _, err := svc.Get(context.Background(), "ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateUpsertsPrivacy(t *testing.T) {
	mock := newMock(t)
	createdAt := time.Now()
	mock.ExpectQuery(`INSERT INTO users \(id, display_name, is_private\)[\s\S]+ON CONFLICT \(id\) DO UPDATE SET[\s\S]+RETURNING id, display_name, is_private`).
		WithArgs("user-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(profileRowColumns).AddRow("user-1", "", true, int64(0), int64(0), createdAt))

	private := true
	svc := NewService(mock, writeguard.Open())
	p, err := svc.Update(context.Background(), "user-1", Update{IsPrivate: &private})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !p.IsPrivate {
		t.Fatalf("expected private profile")
	}
	// the row exists now, so the auth hook does not insert again
	if err := svc.Ensure(context.Background(), "user-1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateRejectsBeforeIO(t *testing.T) {
	mock := newMock(t)
	private := true

	if _, err := NewService(mock, writeguard.Open()).Update(context.Background(), "user-1", Update{}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := NewService(mock, writeguard.Closed("")).Update(context.Background(), "user-1", Update{IsPrivate: &private}); !errors.Is(err, apperr.ErrWriteBlocked) {
		t.Fatalf("expected write blocked, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected no queries: %v", err)
	}
}

func TestProfileHandlers(t *testing.T) {
	mock := newMock(t)
	createdAt := time.Now()
	mock.ExpectQuery(`INSERT INTO users \(id, display_name, is_private\)`).
		WithArgs("user-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(profileRowColumns).AddRow("user-1", "Ada", true, int64(0), int64(0), createdAt))
	mock.ExpectQuery(`FROM users WHERE id=\$1`).WithArgs("user-2").
		WillReturnRows(pgxmock.NewRows(profileRowColumns).AddRow("user-2", "Bo", false, int64(7), int64(1), createdAt))
	mock.ExpectQuery(`FROM users WHERE id=\$1`).WithArgs("ghost").WillReturnRows(pgxmock.NewRows(profileRowColumns))

	app := fiber.New()
	RegisterRoutes(app, NewService(mock, writeguard.Open()), func(c *fiber.Ctx) error {
		c.Locals("user_id", "user-1")
		return c.Next()
	})

	req := httptest.NewRequest(http.MethodPut, "/me/profile", strings.NewReader(`{"display_name":"Ada","is_private":true}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("update status: %v %v", resp.StatusCode, err)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/users/user-2", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("get status: %v %v", resp.StatusCode, err)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["followers_count"] != float64(7) || body["following_count"] != float64(1) {
		t.Fatalf("unexpected counters %v", body)
	}

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/users/ghost", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodPut, "/me/profile", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request, got %d", resp.StatusCode)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
