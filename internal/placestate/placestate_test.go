package placestate

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNormalizeFlag(t *testing.T) {
	cases := []struct {
		in   any
		want bool
	}{
		{true, true},
		{false, false},
		{1, true},
		{1.0, true},
		{int64(1), true},
		{json.Number("1"), true},
		{0, false},
		{2, false},
		{" YES ", true},
		{"True", true},
		{"1", true},
		{"no", false},
		{"", false},
		{nil, false},
		{map[string]any{"x": 1}, false},
		{[]any{1}, false},
	}
	for _, tc := range cases {
		if got := NormalizeFlag(tc.in); got != tc.want {
			t.Fatalf("NormalizeFlag(%#v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestExtractTimestampPriorityAndShapes(t *testing.T) {
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		record map[string]any
		want   int64
	}{
		{"empty", map[string]any{}, 0},
		{"number", map[string]any{"updatedAt": float64(100)}, 100},
		{"priority", map[string]any{"createdAt": float64(5), "updatedAt": float64(7)}, 7},
		{"fallthrough", map[string]any{"updatedAt": "garbage", "ts": float64(9)}, 9},
		{"last seen", map[string]any{"lastSeenAt": json.Number("42")}, 42},
		{"time value", map[string]any{"createdAt": when}, when.UnixMilli()},
		{"iso string", map[string]any{"updatedAt": "2024-05-01T12:00:00Z"}, when.UnixMilli()},
		{"timestamp object", map[string]any{"updatedAt": map[string]any{"seconds": float64(10), "nanoseconds": float64(5e6)}}, 10005},
		{"underscored object", map[string]any{"ts": map[string]any{"_seconds": json.Number("2")}}, 2000},
		{"unusable", map[string]any{"updatedAt": true, "createdAt": "not a date"}, 0},
	}
	for _, tc := range cases {
		if got := ExtractTimestamp(tc.record); got != tc.want {
			t.Fatalf("%s: got %d want %d", tc.name, got, tc.want)
		}
	}
}

func TestNormalizeAndDedupeLaterTimestampWins(t *testing.T) {
	raw := Raw{
		{Key: "key1", Record: map[string]any{"placeId": "p1", "done": true, "updatedAt": float64(100)}},
		{Key: "legacyKey", Record: map[string]any{"placeId": "p1", "done": false, "updatedAt": float64(200)}},
	}

	res := NormalizeAndDedupe(raw)
	if res.ByPlaceID["p1"].Done {
		t.Fatalf("expected later timestamp to win")
	}
	if len(res.DuplicateDetails) != 1 || res.DuplicateDetails[0].PlaceID != "p1" || len(res.DuplicateDetails[0].Keys) != 2 {
		t.Fatalf("unexpected duplicates: %+v", res.DuplicateDetails)
	}

	reversed := Raw{raw[1], raw[0]}
	if NormalizeAndDedupe(reversed).ByPlaceID["p1"].Done {
		t.Fatalf("expected later timestamp to win regardless of order")
	}
}

func TestNormalizeAndDedupeEqualTimestampsLastWins(t *testing.T) {
	a := RawEntry{Key: "a", Record: map[string]any{"placeId": "p1", "saved": true, "ts": float64(50)}}
	b := RawEntry{Key: "b", Record: map[string]any{"placeId": "p1", "saved": false, "ts": float64(50)}}

	if NormalizeAndDedupe(Raw{a, b}).ByPlaceID["p1"].Saved {
		t.Fatalf("expected b to win when iterated last")
	}
	if !NormalizeAndDedupe(Raw{b, a}).ByPlaceID["p1"].Saved {
		t.Fatalf("expected a to win when iterated last")
	}
}

func TestNormalizeAndDedupeMissingTimestampLoses(t *testing.T) {
	stamped := RawEntry{Key: "p1", Record: map[string]any{"done": true, "updatedAt": float64(1)}}
	bare := RawEntry{Key: "old", Record: map[string]any{"placeId": "p1", "done": false}}

	for _, raw := range []Raw{{stamped, bare}, {bare, stamped}} {
		if !NormalizeAndDedupe(raw).ByPlaceID["p1"].Done {
			t.Fatalf("expected stamped record to win over missing timestamp")
		}
	}
}

func TestNormalizeAndDedupeKeyFallbackAndOrder(t *testing.T) {
	raw := Raw{
		{Key: "p2", Record: map[string]any{"saved": "yes"}},
		{Key: "p1", Record: map[string]any{"placeId": "", "done": 1}},
		{Key: "x", Record: "corrupt"},
	}
	res := NormalizeAndDedupe(raw)
	if len(res.List) != 3 {
		t.Fatalf("expected three entries, got %d", len(res.List))
	}
	if res.List[0].PlaceID != "p2" || res.List[1].PlaceID != "p1" || res.List[2].PlaceID != "x" {
		t.Fatalf("unexpected order: %+v", res.List)
	}
	if !res.List[0].Saved || !res.List[1].Done || res.List[2].Done {
		t.Fatalf("unexpected flags: %+v", res.List)
	}
	if len(res.DuplicateDetails) != 0 {
		t.Fatalf("expected no duplicates")
	}
}

func TestNormalizeAndDedupeEmpty(t *testing.T) {
	res := NormalizeAndDedupe(nil)
	if len(res.ByPlaceID) != 0 || len(res.List) != 0 || len(res.DuplicateDetails) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
	c := CountStates(Raw{})
	if c != (Counts{}) {
		t.Fatalf("expected zero counts, got %+v", c)
	}
}

func TestProjectIsIdempotent(t *testing.T) {
	raw := Raw{
		{Key: "k1", Record: map[string]any{"placeId": "p1", "done": true, "updatedAt": float64(10)}},
		{Key: "k2", Record: map[string]any{"placeId": "p1", "saved": true, "updatedAt": float64(20)}},
		{Key: "p3", Record: map[string]any{"done": "true", "createdAt": "2024-01-01T00:00:00Z"}},
	}
	first := NormalizeAndDedupe(raw)
	second := NormalizeAndDedupe(first.Project())

	if len(first.List) != len(second.List) {
		t.Fatalf("length changed: %d vs %d", len(first.List), len(second.List))
	}
	for i := range first.List {
		if first.List[i] != second.List[i] {
			t.Fatalf("entry %d changed: %+v vs %+v", i, first.List[i], second.List[i])
		}
	}
	if len(second.DuplicateDetails) != 0 {
		t.Fatalf("projection should not contain duplicates")
	}
}

func TestCountStatesUsesDeduplicatedList(t *testing.T) {
	raw := Raw{
		{Key: "a", Record: map[string]any{"placeId": "p1", "done": true, "updatedAt": float64(1)}},
		{Key: "b", Record: map[string]any{"placeId": "p1", "done": true, "saved": true, "updatedAt": float64(2)}},
		{Key: "p2", Record: map[string]any{"saved": true}},
	}
	c := CountStates(raw)
	if c.Done != 1 || c.Saved != 2 || c.Keys != 3 {
		t.Fatalf("unexpected counts: %+v", c)
	}
}

func TestBuildCollections(t *testing.T) {
	type place struct{ ID string }
	places := []place{{"p1"}, {"p2"}}
	raw := Raw{
		{Key: "p2", Record: map[string]any{"done": true, "saved": true}},
		{Key: "p1", Record: map[string]any{"saved": true}},
		{Key: "gone", Record: map[string]any{"done": true}},
	}

	got := BuildCollections(places, func(p place) string { return p.ID }, raw)
	if len(got.DonePlaces) != 1 || got.DonePlaces[0].ID != "p2" {
		t.Fatalf("unexpected done places: %+v", got.DonePlaces)
	}
	if len(got.SavedPlaces) != 2 || got.SavedPlaces[0].ID != "p2" || got.SavedPlaces[1].ID != "p1" {
		t.Fatalf("unexpected saved places: %+v", got.SavedPlaces)
	}
}

func TestRawJSONKeepsOrder(t *testing.T) {
	var raw Raw
	if err := json.Unmarshal([]byte(`{"z":{"done":true},"a":{"saved":1}}`), &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(raw) != 2 || raw[0].Key != "z" || raw[1].Key != "a" {
		t.Fatalf("expected document order, got %+v", raw)
	}
	if !NormalizeAndDedupe(raw).ByPlaceID["a"].Saved {
		t.Fatalf("expected json number flag to normalize")
	}

	out, err := json.Marshal(raw)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"z":{"done":true},"a":{"saved":1}}` {
		t.Fatalf("unexpected encoding %s", out)
	}

	var empty Raw
	if err := json.Unmarshal([]byte(`null`), &empty); err != nil || len(empty) != 0 {
		t.Fatalf("expected null to decode empty, got %v %v", empty, err)
	}
	if err := json.Unmarshal([]byte(`[1]`), &empty); err == nil {
		t.Fatalf("expected error for non-object")
	}
}

func TestEqualTimestampTieFollowsJSONBKeyOrder(t *testing.T) {
	// "zz" was written first, but JSONB emits shorter keys first.
	doc := `{"b": {"placeId": "p1", "saved": false, "ts": 50}, "zz": {"placeId": "p1", "saved": true, "ts": 50}}`
	var raw Raw
	if err := json.Unmarshal([]byte(doc), &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw[0].Key != "b" || raw[1].Key != "zz" {
		t.Fatalf("expected document order, got %+v", raw)
	}
	if !NormalizeAndDedupe(raw).ByPlaceID["p1"].Saved {
		t.Fatalf("expected the key emitted last to win the tie")
	}
}

func TestFromMapSortsKeys(t *testing.T) {
	raw := FromMap(map[string]any{"b": 1, "a": 2, "c": 3})
	if raw[0].Key != "a" || raw[1].Key != "b" || raw[2].Key != "c" {
		t.Fatalf("expected sorted keys, got %+v", raw)
	}
	if m := raw.Map(); len(m) != 3 || m["a"] != 2 {
		t.Fatalf("unexpected map %v", m)
	}
}
