package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/voxpage/voxpage/internal/pkg/api"
)

// ExpiredGuestFiles provides IDs of guest uploads older than the configured duration
type ExpiredGuestFiles struct {
	pool         *pgxpool.Pool
	expiresAfter time.Duration
}

// NewExpiredGuestFiles creates the provider
func NewExpiredGuestFiles(pool *pgxpool.Pool, expiresAfter time.Duration) (*ExpiredGuestFiles, error) {
	if expiresAfter <= 0 {
		return nil, fmt.Errorf("wrong expire duration %v", expiresAfter)
	}
	res := &ExpiredGuestFiles{pool: pool, expiresAfter: expiresAfter}
	return res, nil
}

// GetExpired selects expired guest file IDs
func (db *ExpiredGuestFiles) GetExpired(ctx context.Context) ([]string, error) {
	exp := time.Now().Add(-db.expiresAfter)
	goapp.Log.Info().Time("older than", exp).Msg("selecting old guest uploads...")
	rows, err := db.pool.Query(ctx, `SELECT id FROM uploaded_files WHERE user_id = $1 AND upload_date < $2`,
		api.GuestID, exp)
	if err != nil {
		return nil, fmt.Errorf("can't select IDs: %w", err)
	}
	defer rows.Close()

	res := []string{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("can't retrieve IDs: %w", err)
		}
		res = append(res, fmt.Sprintf("%d", id))
	}
	return res, nil
}
