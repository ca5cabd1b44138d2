package auction

import (
	"sync/atomic"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// idGenerator issues auction IDs. Snowflakes keep IDs unique, sortable by
// creation time, and stable as JSON snapshot keys.
type idGenerator struct {
	seq atomic.Uint64
}

func (g *idGenerator) next(now time.Time) snowflake.ID {
	return snowflake.ID(uint64(snowflake.New(now)) | (g.seq.Add(1) & 0x3FFFFF))
}
