package metrics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolStater is satisfied by *pgxpool.Pool.
type PoolStater interface {
	Stat() *pgxpool.Stat
}

// RecordDBPool publishes a snapshot of pool statistics.
func RecordDBPool(pool PoolStater) {
	stats := pool.Stat()

	DBPoolConnections.WithLabelValues("in_use").Set(float64(stats.AcquiredConns()))
	DBPoolConnections.WithLabelValues("idle").Set(float64(stats.IdleConns()))
	DBPoolConnections.WithLabelValues("constructing").Set(float64(stats.ConstructingConns()))
	DBPoolConnections.WithLabelValues("total").Set(float64(stats.TotalConns()))
	DBPoolConnections.WithLabelValues("max").Set(float64(stats.MaxConns()))

	DBPoolAcquires.WithLabelValues("total").Set(float64(stats.AcquireCount()))
	DBPoolAcquires.WithLabelValues("empty").Set(float64(stats.EmptyAcquireCount()))
	DBPoolAcquires.WithLabelValues("canceled").Set(float64(stats.CanceledAcquireCount()))
}

// CollectDBPool records pool statistics immediately and then every interval
// until ctx is done.
func CollectDBPool(ctx context.Context, pool PoolStater, interval time.Duration) {
	RecordDBPool(pool)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			RecordDBPool(pool)
		case <-ctx.Done():
			return
		}
	}
}
