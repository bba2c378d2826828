package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Health describes the result of a database health probe.
type Health struct {
	OK        bool          `json:"ok"`
	Latency   time.Duration `json:"latency_ns"`
	TotalConns int32        `json:"total_conns"`
	IdleConns  int32        `json:"idle_conns"`
}

// CheckHealth pings the database and reports pool statistics.
func CheckHealth(ctx context.Context, pool *pgxpool.Pool) Health {
	start := time.Now()
	err := pool.Ping(ctx)
	stat := pool.Stat()
	return Health{
		OK:         err == nil,
		Latency:    time.Since(start),
		TotalConns: stat.TotalConns(),
		IdleConns:  stat.IdleConns(),
	}
}
