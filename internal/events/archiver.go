package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"solana-curve-sniper/internal/domain"
	"solana-curve-sniper/internal/storage"
)

const archiveFlushInterval = 5 * time.Second

// Archiver drains a bus subscription into the event archive in small
// batches. Archive write failures are logged and the batch retried on
// the next flush; the feed is at-least-once end to end.
type Archiver struct {
	archive  storage.EventArchive
	log      *zap.Logger
	interval time.Duration
}

func NewArchiver(archive storage.EventArchive, log *zap.Logger) *Archiver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Archiver{archive: archive, log: log, interval: archiveFlushInterval}
}

// Run consumes events until the channel closes or the context is
// cancelled, flushing any buffered tail before returning.
func (a *Archiver) Run(ctx context.Context, in <-chan domain.PipelineEvent) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	var pending []*domain.PipelineEvent
	flush := func(ctx context.Context) {
		if len(pending) == 0 {
			return
		}
		if err := a.archive.Append(ctx, pending); err != nil {
			a.log.Warn("event archive append failed",
				zap.Int("batch_size", len(pending)),
				zap.Error(err))
			return
		}
		pending = nil
	}

	// The run context may already be gone at shutdown; the tail flush
	// gets its own short deadline.
	flushTail := func() {
		fctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		flush(fctx)
	}

	for {
		select {
		case <-ctx.Done():
			flushTail()
			return
		case <-ticker.C:
			flush(ctx)
		case ev, ok := <-in:
			if !ok {
				flushTail()
				return
			}
			cp := ev
			pending = append(pending, &cp)
		}
	}
}
