package database

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestPoolStatsCollector_DescribesAllMetrics(t *testing.T) {
	c := newPoolStatsCollector(func() *pgxpool.Stat { return nil }, "inventory")

	ch := make(chan *prometheus.Desc, 16)
	c.Describe(ch)
	close(ch)

	names := 0
	for desc := range ch {
		assert.Contains(t, desc.String(), "db_pool_")
		names++
	}
	assert.Equal(t, 8, names)
}
