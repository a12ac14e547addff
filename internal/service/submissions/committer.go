package submissions

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/nkiryanov/greenpoints/internal/logger"
)

// Committer commits finished messages in fetch order
// A message finished out of order waits until all the earlier ones are finished too
type Committer struct {
	src    source
	wait   time.Duration
	logger logger.Logger
}

func (c *Committer) Commit(ctx context.Context, done <-chan job) <-chan struct{} {
	idleStopped := make(chan struct{})

	go func() {
		defer close(idleStopped)

		// Commits have to survive shutdown, the last finished messages are committed after ctx is done
		ctx := context.WithoutCancel(ctx)

		var next uint64
		finished := make(map[uint64]kafka.Message)

		for j := range done {
			finished[j.seq] = j.msg

			var batch []kafka.Message
			for {
				msg, ok := finished[next]
				if !ok {
					break
				}
				batch = append(batch, msg)
				delete(finished, next)
				next++
			}

			if len(batch) > 0 {
				c.commit(ctx, batch)
			}
		}

		c.logger.Debug("Committer stopped", "uncommitted", len(finished))
	}()

	return idleStopped
}

func (c *Committer) commit(ctx context.Context, batch []kafka.Message) {
	ctx, cancel := context.WithTimeout(ctx, c.wait)
	defer cancel()

	if err := c.src.CommitMessages(ctx, batch...); err != nil {
		c.logger.Error("Failed to commit submissions", "error", err, "count", len(batch))
	}
}
