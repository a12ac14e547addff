package submissions

import (
	"context"
	"time"

	"github.com/nkiryanov/greenpoints/internal/logger"
)

// Delay before the next fetch when the broker is unavailable
const fetchErrorDelay = time.Second

type Producer struct {
	src    source
	logger logger.Logger
}

func (p *Producer) Produce(ctx context.Context, out chan<- job) <-chan struct{} {
	idleStopped := make(chan struct{})
	p.logger.Debug("Starting submissions producer")

	go func() {
		defer close(idleStopped)

		var seq uint64
		for {
			msg, err := p.src.FetchMessage(ctx)
			switch {
			case err == nil:
			case ctx.Err() != nil:
				p.logger.Debug("Producer stopped by context")
				return
			default:
				p.logger.Error("Failed to fetch submission", "error", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(fetchErrorDelay):
					continue
				}
			}

			select {
			case <-ctx.Done():
				p.logger.Debug("Producer stopped by context while sending submission")
				return
			case out <- job{seq: seq, msg: msg}:
				seq++
			}
		}
	}()

	return idleStopped
}
