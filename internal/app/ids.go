package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/clock"
	"github.com/rs/zerolog"
)

// CounterStore is the durable per-entity counter behind the ID generator.
type CounterStore interface {
	Next(ctx context.Context, entity string) (int64, error)
}

// IDGenerator issues monotonically increasing identifiers per entity type.
// When the durable store is unreachable it degrades to a coarse time-based
// value, so identifiers are not guaranteed globally unique across an outage.
type IDGenerator struct {
	counters CounterStore
	clock    clock.Clock
	logger   zerolog.Logger
}

func NewIDGenerator(counters CounterStore, clk clock.Clock, logger zerolog.Logger) *IDGenerator {
	return &IDGenerator{counters: counters, clock: clk, logger: logger}
}

func (g *IDGenerator) Next(ctx context.Context, entity string) int64 {
	id, err := g.counters.Next(ctx, entity)
	if err != nil {
		g.logger.Warn().Err(err).Str("entity", entity).
			Msg("id counter unavailable, degrading to time-based id")
		return g.clock.Now().UnixMilli()
	}
	return id
}

// newOrderNo builds a human-facing order number: SK + millisecond timestamp +
// a random suffix.
func newOrderNo(clk clock.Clock) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("SK%d%s", clk.Now().UnixMilli(), suffix)
}
