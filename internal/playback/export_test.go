package playback

import (
	"context"
	"time"
)

func CatchUp(elapsed, interval time.Duration, acc *float64, limit int64) int64 {
	return catchUp(elapsed, interval, acc, limit)
}

func (c *Clock) Tick(ctx context.Context) {
	c.tick(ctx)
}
