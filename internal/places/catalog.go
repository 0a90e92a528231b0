package places

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"backend-urbexqueens/internal/db"
	"backend-urbexqueens/internal/shared/apperr"
	"backend-urbexqueens/internal/shared/geo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Catalog struct {
	db db.Querier
}

func NewCatalog(db db.Querier) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) CreatePlace(ctx context.Context, input Place) (Place, error) {
	input.ID = uuid.NewString()
	row := c.db.QueryRow(ctx, `
		INSERT INTO places (id, name, description, type, location, created_by, is_verified)
		VALUES ($1,$2,$3,$4, ST_SetSRID(ST_MakePoint($5,$6), 4326)::geography, $7, $8)
		RETURNING created_at
	`, input.ID, input.Name, input.Description, input.Type, input.Lng, input.Lat, input.CreatedBy, input.IsVerified)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return Place{}, err
	}
	return input, nil
}

func (c *Catalog) GetPlace(ctx context.Context, id string) (Place, error) {
	row := c.db.QueryRow(ctx, `
		SELECT id, name, description, type, ST_Y(location::geometry), ST_X(location::geometry),
		       created_by, is_verified, created_at
		FROM places WHERE id=$1
	`, id)
	var p Place
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Type, &p.Lat, &p.Lng, &p.CreatedBy, &p.IsVerified, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Place{}, fmt.Errorf("place %s: %w", id, apperr.ErrNotFound)
		}
		return Place{}, err
	}
	return p, nil
}

// ListByIDs returns the known places among ids, in no particular order.
func (c *Catalog) ListByIDs(ctx context.Context, ids []string) ([]Place, error) {
	if len(ids) == 0 {
		return []Place{}, nil
	}
	rows, err := c.db.Query(ctx, `
		SELECT id, name, description, type, ST_Y(location::geometry), ST_X(location::geometry),
		       created_by, is_verified, created_at
		FROM places WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	return scanPlaces(rows)
}

// Search returns places within radiusKm, nearest first.
func (c *Catalog) Search(ctx context.Context, lat, lng, radiusKm float64) ([]Place, error) {
	rows, err := c.db.Query(ctx, `
		SELECT id, name, description, type, ST_Y(location::geometry), ST_X(location::geometry),
		       created_by, is_verified, created_at
		FROM places
		WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1,$2), 4326)::geography, $3)
	`, lng, lat, radiusKm*1000)
	if err != nil {
		return nil, err
	}
	results, err := scanPlaces(rows)
	if err != nil {
		return nil, err
	}
	// ST_DWithin measures on the spheroid; the reported distance is great-circle.
	kept := results[:0]
	for _, p := range results {
		if !geo.WithinRadius(lat, lng, p.Lat, p.Lng, radiusKm) {
			continue
		}
		p.DistanceKm = geo.HaversineKm(lat, lng, p.Lat, p.Lng)
		kept = append(kept, p)
	}
	results = kept
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DistanceKm < results[j].DistanceKm
	})
	return results, nil
}

func scanPlaces(rows pgx.Rows) ([]Place, error) {
	defer rows.Close()

	results := []Place{}
	for rows.Next() {
		var p Place
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Type, &p.Lat, &p.Lng, &p.CreatedBy, &p.IsVerified, &p.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}
