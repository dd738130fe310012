package cache

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"envgate-server/internal/modules/gateway/types"
)

//go:embed sql/get-location.sql
var getLocationSQL string

//go:embed sql/upsert-location.sql
var upsertLocationSQL string

//go:embed sql/delete-expired.sql
var deleteExpiredSQL string

// expiresLayout is fixed width so expires_at compares correctly as text.
const expiresLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteCache keeps entries in the location_cache table created by the
// 0001 migration.
type SQLiteCache struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteCache(db *sql.DB) *SQLiteCache {
	return &SQLiteCache{db: db, now: time.Now}
}

func (c *SQLiteCache) Get(ctx context.Context, ip string) (types.LocationInfo, bool, error) {
	var payload, expiresAt string
	err := c.db.QueryRowContext(ctx, getLocationSQL, ip).Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.LocationInfo{}, false, nil
	}
	if err != nil {
		return types.LocationInfo{}, false, fmt.Errorf("get location %q: %w", ip, err)
	}

	exp, err := time.Parse(expiresLayout, expiresAt)
	if err != nil {
		return types.LocationInfo{}, false, fmt.Errorf("parse expires_at %q: %w", expiresAt, err)
	}
	if !c.now().UTC().Before(exp) {
		return types.LocationInfo{}, false, nil
	}

	var loc types.LocationInfo
	if err := json.Unmarshal([]byte(payload), &loc); err != nil {
		return types.LocationInfo{}, false, fmt.Errorf("decode location %q: %w", ip, err)
	}
	return loc, true, nil
}

func (c *SQLiteCache) Set(ctx context.Context, ip string, loc types.LocationInfo, ttl time.Duration) error {
	payload, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("encode location: %w", err)
	}
	exp := c.now().UTC().Add(ttl).Format(expiresLayout)
	if _, err := c.db.ExecContext(ctx, upsertLocationSQL, ip, string(payload), exp); err != nil {
		return fmt.Errorf("upsert location %q: %w", ip, err)
	}
	return nil
}

// Purge removes expired rows and reports how many were deleted.
func (c *SQLiteCache) Purge(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, deleteExpiredSQL, c.now().UTC().Format(expiresLayout))
	if err != nil {
		return 0, fmt.Errorf("purge locations: %w", err)
	}
	return res.RowsAffected()
}

func (c *SQLiteCache) Ping(ctx context.Context) error {
	var ok int
	if err := c.db.QueryRowContext(ctx, `SELECT 1`).Scan(&ok); err != nil {
		return err
	}
	if ok != 1 {
		return errors.New("unexpected ping result")
	}
	return nil
}
