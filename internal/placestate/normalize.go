package placestate

// Entry is the canonical state of one place for one user.
type Entry struct {
	PlaceID   string `json:"placeId"`
	Done      bool   `json:"done"`
	Saved     bool   `json:"saved"`
	Timestamp int64  `json:"timestamp"`
}

// DuplicateGroup lists every raw key that resolved to the same place.
type DuplicateGroup struct {
	PlaceID string   `json:"placeId"`
	Keys    []string `json:"keys"`
}

type Result struct {
	ByPlaceID        map[string]Entry `json:"byPlaceId"`
	List             []Entry          `json:"list"`
	DuplicateDetails []DuplicateGroup `json:"duplicateDetails"`
}

type Counts struct {
	Done  int `json:"done"`
	Saved int `json:"saved"`
	Keys  int `json:"keys"`
}

type Collections[P any] struct {
	DonePlaces  []P `json:"donePlaces"`
	SavedPlaces []P `json:"savedPlaces"`
}

// NormalizeAndDedupe keeps, per resolved place id, the record with the highest
// timestamp. Equal timestamps go to the entry seen later in iteration order.
// List is ordered by the first appearance of each place id.
func NormalizeAndDedupe(raw Raw) Result {
	res := Result{
		ByPlaceID:        map[string]Entry{},
		List:             []Entry{},
		DuplicateDetails: []DuplicateGroup{},
	}

	var order []string
	buckets := map[string][]string{}
	for _, e := range raw {
		entry := normalizeEntry(e)
		if _, seen := buckets[entry.PlaceID]; !seen {
			order = append(order, entry.PlaceID)
		}
		buckets[entry.PlaceID] = append(buckets[entry.PlaceID], e.Key)

		if existing, ok := res.ByPlaceID[entry.PlaceID]; !ok || entry.Timestamp >= existing.Timestamp {
			res.ByPlaceID[entry.PlaceID] = entry
		}
	}

	for _, id := range order {
		res.List = append(res.List, res.ByPlaceID[id])
		if keys := buckets[id]; len(keys) > 1 {
			res.DuplicateDetails = append(res.DuplicateDetails, DuplicateGroup{PlaceID: id, Keys: keys})
		}
	}
	return res
}

// Project renders the canonical view back into raw form, one key per place.
func (r Result) Project() Raw {
	out := make(Raw, 0, len(r.List))
	for _, e := range r.List {
		out = append(out, RawEntry{
			Key: e.PlaceID,
			Record: map[string]any{
				"placeId":   e.PlaceID,
				"done":      e.Done,
				"saved":     e.Saved,
				"updatedAt": e.Timestamp,
			},
		})
	}
	return out
}

// CountStates reports deduplicated done/saved totals next to the raw key count.
func CountStates(raw Raw) Counts {
	res := NormalizeAndDedupe(raw)
	c := Counts{Keys: len(raw)}
	for _, e := range res.List {
		if e.Done {
			c.Done++
		}
		if e.Saved {
			c.Saved++
		}
	}
	return c
}

// BuildCollections joins the canonical list with known places. Entries whose
// place is unknown are dropped; a place can be both done and saved.
func BuildCollections[P any](places []P, idOf func(P) string, raw Raw) Collections[P] {
	byID := make(map[string]P, len(places))
	for _, p := range places {
		byID[idOf(p)] = p
	}

	out := Collections[P]{DonePlaces: []P{}, SavedPlaces: []P{}}
	for _, e := range NormalizeAndDedupe(raw).List {
		p, ok := byID[e.PlaceID]
		if !ok {
			continue
		}
		if e.Done {
			out.DonePlaces = append(out.DonePlaces, p)
		}
		if e.Saved {
			out.SavedPlaces = append(out.SavedPlaces, p)
		}
	}
	return out
}

func normalizeEntry(e RawEntry) Entry {
	record, _ := e.Record.(map[string]any)

	placeID := e.Key
	if id, ok := record["placeId"].(string); ok && id != "" {
		placeID = id
	}
	return Entry{
		PlaceID:   placeID,
		Done:      NormalizeFlag(record["done"]),
		Saved:     NormalizeFlag(record["saved"]),
		Timestamp: ExtractTimestamp(record),
	}
}
