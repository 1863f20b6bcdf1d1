package discovery

import (
	"context"
	"time"

	"go.uber.org/zap"

	"solana-curve-sniper/internal/domain"
	"solana-curve-sniper/internal/solana"
	"solana-curve-sniper/internal/venue/pumpfun"
)

// CurveReader loads the bonding-curve state for a mint.
type CurveReader interface {
	ReadCurve(ctx context.Context, mint string) (*pumpfun.CurveState, error)
}

// Listener subscribes to venue program logs and emits a Candidate for
// every new curve creation. Delivery is at-least-once; the queue
// downstream deduplicates.
type Listener struct {
	ws         solana.WSClient
	curves     CurveReader
	fetchLimit time.Duration
	out        chan domain.Candidate
	logger     *zap.Logger
}

// ListenerOptions configures a Listener.
type ListenerOptions struct {
	WS          solana.WSClient
	Curves      CurveReader
	FetchLimit  time.Duration // per-candidate curve fetch timeout
	Buffer      int
	Logger      *zap.Logger
}

// NewListener creates a discovery listener.
func NewListener(opts ListenerOptions) *Listener {
	fetchLimit := opts.FetchLimit
	if fetchLimit == 0 {
		fetchLimit = 5 * time.Second
	}
	buffer := opts.Buffer
	if buffer == 0 {
		buffer = 256
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Listener{
		ws:         opts.WS,
		curves:     opts.Curves,
		fetchLimit: fetchLimit,
		out:        make(chan domain.Candidate, buffer),
		logger:     logger,
	}
}

// Candidates returns the discovery output stream.
func (l *Listener) Candidates() <-chan domain.Candidate {
	return l.out
}

// Run consumes log notifications until the context is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	defer close(l.out)

	notifs, err := l.ws.SubscribeLogs(ctx, solana.LogsFilter{
		Mentions: []string{pumpfun.Program.String()},
	})
	if err != nil {
		return err
	}
	l.logger.Info("discovery listener subscribed", zap.String("program", pumpfun.Program.String()))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case notif, ok := <-notifs:
			if !ok {
				l.logger.Warn("log subscription closed")
				return nil
			}
			if notif.Err != nil {
				// Failed transactions still produce notifications.
				continue
			}
			l.handleNotification(ctx, notif)
		}
	}
}

func (l *Listener) handleNotification(ctx context.Context, notif solana.LogNotification) {
	ev := ParseCreateEvent(notif.Logs)
	if ev == nil {
		return
	}

	candidate := domain.Candidate{
		Mint:         ev.Mint,
		Name:         ev.Name,
		Symbol:       ev.Symbol,
		Source:       domain.SourceNewListing,
		DiscoveredAt: time.Now(),
	}

	// Best-effort estimates; the validator re-fetches fresh state later,
	// so a failed read here only weakens the cheap pre-filter.
	fetchCtx, cancel := context.WithTimeout(ctx, l.fetchLimit)
	state, err := l.curves.ReadCurve(fetchCtx, ev.Mint)
	cancel()
	if err == nil && state != nil {
		candidate.MarketCapEstimate = state.MarketCapSol()
		candidate.LiquidityEstimate = state.LiquiditySol()
	} else if err != nil {
		l.logger.Debug("curve estimate unavailable at discovery",
			zap.String("mint", ev.Mint), zap.Error(err))
	}

	select {
	case l.out <- candidate:
		l.logger.Info("new listing discovered",
			zap.String("mint", ev.Mint),
			zap.String("symbol", ev.Symbol),
			zap.Int64("slot", notif.Slot))
	case <-ctx.Done():
	}
}
