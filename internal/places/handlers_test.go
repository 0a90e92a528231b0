package places

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backend-urbexqueens/internal/placestate"
	"backend-urbexqueens/internal/shared/writeguard"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"
)

func asUser(userID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		return c.Next()
	}
}

func TestPlaceFlagHandlers(t *testing.T) {
	store := newFakeStore(placestate.Raw{{Key: "p1", Record: map[string]any{"saved": true}}})
	app := fiber.New()
	RegisterRoutes(app, NewService(store, nil, writeguard.Open(), nil), asUser("user-1"))

	req := httptest.NewRequest(http.MethodPut, "/me/places/p1/done", bytes.NewReader([]byte(`{"value":true}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusNoContent {
		t.Fatalf("set flag status: %v %v", resp.StatusCode, err)
	}
	if calls := store.calls(); len(calls) != 1 || calls[0] != (flagCall{"user-1", "p1", FieldDone, true}) {
		t.Fatalf("unexpected calls %+v", calls)
	}

	req = httptest.NewRequest(http.MethodPut, "/me/places/p1/visited", bytes.NewReader([]byte(`{"value":true}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request for unknown field, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodPut, "/me/places/p1/done", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request without value, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/me/places", nil)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("snapshot status: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Places) != 1 || !snap.Places[0].Saved {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestPlaceFlagHandlersWriteBlocked(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app, NewService(newFakeStore(nil), nil, writeguard.Closed(""), nil), asUser("user-1"))

	req := httptest.NewRequest(http.MethodPut, "/me/places/p1/saved", bytes.NewReader([]byte(`{"value":false}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected service unavailable, got %d", resp.StatusCode)
	}
}

func TestCatalogHandlers(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	createdAt := time.Now()
	mock.ExpectQuery(`INSERT INTO places`).
		WithArgs(pgxmock.AnyArg(), "Old Mill", "", "industrial", 9.19, 45.46, "user-1", false).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(createdAt))
	mock.ExpectQuery(`WHERE ST_DWithin`).
		WithArgs(9.19, 45.46, 2000.0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description", "type", "lat", "lng", "created_by", "is_verified", "created_at"}).
			AddRow("far", "Far", "", "", 45.47, 9.2, "user-1", false, createdAt).
			AddRow("near", "Near", "", "", 45.46, 9.19, "user-1", false, createdAt).
			AddRow("edge", "Edge", "", "", 45.6, 9.19, "user-1", false, createdAt))
	mock.ExpectQuery(`FROM places WHERE id=\$1`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description", "type", "lat", "lng", "created_by", "is_verified", "created_at"}))

	app := fiber.New()
	RegisterRoutes(app, NewService(newFakeStore(nil), NewCatalog(mock), writeguard.Open(), nil), asUser("user-1"))

	body, _ := json.Marshal(Place{Name: "Old Mill", Type: "industrial", Lat: 45.46, Lng: 9.19, IsVerified: true})
	req := httptest.NewRequest(http.MethodPost, "/places", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("create place status: %v %v", resp.StatusCode, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/places/search?lat=45.46&lng=9.19&radius_km=2", nil)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("search status: %v", err)
	}
	var results []Place
	_ = json.NewDecoder(resp.Body).Decode(&results)
	if len(results) != 2 || results[0].ID != "near" || results[1].ID != "far" {
		t.Fatalf("expected nearest first and rows past the radius dropped, got %+v", results)
	}

	req = httptest.NewRequest(http.MethodGet, "/places/missing", nil)
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/places/search?lat=abc", nil)
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request, got %d", resp.StatusCode)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPlacesWebsocketRequiresUpgrade(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app, NewService(newFakeStore(nil), nil, writeguard.Open(), nil), asUser("user-1"))

	req := httptest.NewRequest(http.MethodGet, "/me/places/ws", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.StatusCode == http.StatusOK {
		t.Fatalf("expected non-200 for non-websocket request")
	}
}
