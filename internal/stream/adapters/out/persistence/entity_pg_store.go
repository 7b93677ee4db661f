package persistence

import (
	"context"
	"fmt"

	"github.com/Franelll/MaaS-sub000/internal/geo"
	"github.com/Franelll/MaaS-sub000/internal/stream/application/ports/out"
	"github.com/Franelll/MaaS-sub000/internal/stream/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EntityPgStore — снимок последнего состояния сущностей в PostgreSQL
type EntityPgStore struct {
	pool *pgxpool.Pool
}

func NewEntityPgStore(pool *pgxpool.Pool) out.EntityStore {
	return &EntityPgStore{pool: pool}
}

// UpsertBatch перезаписывает сущности батча одной pgx.Batch операцией
func (s *EntityPgStore) UpsertBatch(ctx context.Context, batch domain.Batch) error {
	if len(batch.Entities) == 0 {
		return nil
	}

	b := &pgx.Batch{}
	for _, e := range batch.Entities {
		b.Queue(`
			INSERT INTO entities (id, type, provider, lat, lon, updated_at, payload)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				type = EXCLUDED.type,
				provider = EXCLUDED.provider,
				lat = EXCLUDED.lat,
				lon = EXCLUDED.lon,
				updated_at = EXCLUDED.updated_at,
				payload = EXCLUDED.payload`,
			e.ID, string(e.Type), e.Provider,
			e.Location.Lat, e.Location.Lon, e.UpdatedAt, e.Payload,
		)
	}

	br := s.pool.SendBatch(ctx, b)
	defer br.Close()

	for range batch.Entities {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert entity batch: %w", err)
		}
	}
	return nil
}

// ListInArea — bbox-запрос по индексу lat/lon, точный предикат области
// поверх результата
func (s *EntityPgStore) ListInArea(ctx context.Context, area domain.Area) ([]domain.Entity, error) {
	box := boundsOf(area)

	rows, err := s.pool.Query(ctx, `
		SELECT id, type, provider, lat, lon, updated_at, payload
		FROM entities
		WHERE lat BETWEEN $1 AND $2 AND lon BETWEEN $3 AND $4`,
		box.South, box.North, box.West, box.East,
	)
	if err != nil {
		return nil, fmt.Errorf("query entities in area: %w", err)
	}
	defer rows.Close()

	var result []domain.Entity
	for rows.Next() {
		var e domain.Entity
		var typ string
		if err := rows.Scan(&e.ID, &typ, &e.Provider, &e.Location.Lat, &e.Location.Lon, &e.UpdatedAt, &e.Payload); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		e.Type = domain.EntityType(typ)
		if area.Contains(e.Location) {
			result = append(result, e)
		}
	}
	return result, rows.Err()
}

func boundsOf(area domain.Area) geo.BBox {
	if area.BBox != nil {
		return *area.BBox
	}
	if area.Center != nil {
		return geo.BoundingBoxAround(*area.Center, area.RadiusMeters)
	}
	return geo.BBox{}
}
