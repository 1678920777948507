// README: Position store: fix history in PostgreSQL, optional Redis GEO index of latest fixes.
package position

import (
	"context"
	"strconv"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

type Repository interface {
	Append(ctx context.Context, f *Fix) error
	// Latest returns the newest fix per rider, newest first.
	Latest(ctx context.Context) ([]Fix, error)
	// History lists fixes newest first; a nil rider means every rider.
	History(ctx context.Context, riderID *types.ID, limit int) ([]Fix, error)
}

// GeoIndex answers radius queries over the riders' latest fixes.
type GeoIndex interface {
	Set(ctx context.Context, riderID types.ID, lat, lng float64) error
	Within(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]Hit, error)
}

const fixColumns = `id, rider_id, latitude, longitude, accuracy, heading, speed, recorded_at, created_at`

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, f *Fix) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO rider_positions (rider_id, latitude, longitude, accuracy, heading, speed, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		f.RiderID, f.Lat, f.Lng, f.Accuracy, f.Heading, f.Speed, f.RecordedAt,
	).Scan(&f.ID, &f.CreatedAt)
}

func (s *Store) Latest(ctx context.Context) ([]Fix, error) {
	var out []Fix
	err := pgxscan.Select(ctx, s.db, &out, `
		SELECT * FROM (
			SELECT DISTINCT ON (rider_id) `+fixColumns+`
			FROM rider_positions
			ORDER BY rider_id, recorded_at DESC, id DESC
		) latest
		ORDER BY recorded_at DESC, id DESC`)
	return out, err
}

func (s *Store) History(ctx context.Context, riderID *types.ID, limit int) ([]Fix, error) {
	var out []Fix
	err := pgxscan.Select(ctx, s.db, &out, `
		SELECT `+fixColumns+`
		FROM rider_positions
		WHERE ($1::BIGINT IS NULL OR rider_id = $1)
		ORDER BY recorded_at DESC, id DESC
		LIMIT $2`, riderID, limit)
	return out, err
}

const geoKey = "geo:riders"

// RedisGeo keeps each rider's latest fix in a Redis GEO set.
type RedisGeo struct {
	client *redis.Client
}

func NewRedisGeo(client *redis.Client) *RedisGeo {
	return &RedisGeo{client: client}
}

func (g *RedisGeo) Set(ctx context.Context, riderID types.ID, lat, lng float64) error {
	return g.client.GeoAdd(ctx, geoKey, &redis.GeoLocation{
		Name:      riderID.String(),
		Latitude:  lat,
		Longitude: lng,
	}).Err()
}

func (g *RedisGeo) Within(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]Hit, error) {
	locs, err := g.client.GeoSearchLocation(ctx, geoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  lng,
			Latitude:   lat,
			Radius:     radiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
			Count:      limit,
		},
		WithDist: true,
	}).Result()
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(locs))
	for _, l := range locs {
		id, err := strconv.ParseInt(l.Name, 10, 64)
		if err != nil {
			continue
		}
		hits = append(hits, Hit{RiderID: types.ID(id), DistanceKm: l.Dist})
	}
	return hits, nil
}
