// Package queue holds discovered candidates through their maturation delay.
package queue

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"solana-curve-sniper/internal/domain"
	"solana-curve-sniper/internal/errs"
)

// CandidateQueue deduplicates discoveries, applies cheap synchronous
// rejection rules, and holds each candidate until its maturation
// deadline. Capacity is bounded; the oldest entry is evicted when full.
type CandidateQueue struct {
	mu sync.Mutex

	entries map[string]*domain.Candidate
	order   []string // FIFO by enqueue time

	capacity        int
	maturationDelay time.Duration
	minMarketCapSol float64
	blocklist       []*regexp.Regexp
	onEvict         func(mint string)
}

// Options configures a CandidateQueue.
type Options struct {
	Capacity        int
	MaturationDelay time.Duration
	MinMarketCapSol float64
	// NameBlocklist patterns are matched case-insensitively against
	// both name and symbol.
	NameBlocklist []string
	// OnEvict is called with the mint of each candidate pushed out of a
	// full queue.
	OnEvict func(mint string)
}

// New creates a CandidateQueue.
func New(opts Options) *CandidateQueue {
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = 256
	}

	patterns := make([]*regexp.Regexp, 0, len(opts.NameBlocklist))
	for _, p := range opts.NameBlocklist {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			// A bad pattern silently matching nothing is worse than
			// matching its literal text.
			re = regexp.MustCompile(regexp.QuoteMeta(strings.ToLower(p)))
		}
		patterns = append(patterns, re)
	}

	return &CandidateQueue{
		entries:         make(map[string]*domain.Candidate),
		capacity:        capacity,
		maturationDelay: opts.MaturationDelay,
		minMarketCapSol: opts.MinMarketCapSol,
		blocklist:       patterns,
		onEvict:         opts.OnEvict,
	}
}

// Enqueue admits a candidate into the maturation queue. Duplicates and
// candidates failing the cheap rules return a RejectionError. When the
// queue is full the oldest entry is evicted to make room.
func (q *CandidateQueue) Enqueue(c domain.Candidate) error {
	if err := q.cheapReject(&c); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.entries[c.Mint]; ok {
		return errs.Reject("dedupe", "mint %s already queued", c.Mint)
	}

	if len(q.order) >= q.capacity {
		oldest := q.order[0]
		q.order = q.order[1:]
		delete(q.entries, oldest)
		if q.onEvict != nil {
			q.onEvict(oldest)
		}
	}

	if c.MaturationDeadline.IsZero() {
		c.MaturationDeadline = c.DiscoveredAt.Add(q.maturationDelay)
	}

	q.entries[c.Mint] = &c
	q.order = append(q.order, c.Mint)
	return nil
}

// cheapReject applies the synchronous rules that need no network call.
func (q *CandidateQueue) cheapReject(c *domain.Candidate) error {
	for _, re := range q.blocklist {
		if re.MatchString(c.Name) || re.MatchString(c.Symbol) {
			return errs.Reject("blocklist", "name %q / symbol %q matches %s", c.Name, c.Symbol, re)
		}
	}
	if c.MarketCapEstimate > 0 && c.MarketCapEstimate < q.minMarketCapSol {
		return errs.Reject("min_market_cap", "estimate %.2f below floor %.2f", c.MarketCapEstimate, q.minMarketCapSol)
	}
	return nil
}

// DrainMature removes and returns all candidates whose maturation
// deadline has passed at now, oldest first.
func (q *CandidateQueue) DrainMature(now time.Time) []domain.Candidate {
	q.mu.Lock()
	defer q.mu.Unlock()

	var mature []domain.Candidate
	remaining := q.order[:0]
	for _, mint := range q.order {
		c := q.entries[mint]
		if c.Mature(now) {
			mature = append(mature, *c)
			delete(q.entries, mint)
		} else {
			remaining = append(remaining, mint)
		}
	}
	q.order = remaining
	return mature
}

// Requeue puts a candidate back with an incremented retry count, unless
// maxRetries is exhausted, in which case it is dropped and false returned.
func (q *CandidateQueue) Requeue(c domain.Candidate, maxRetries int, delay time.Duration) bool {
	if c.RetryCount >= maxRetries {
		return false
	}
	c.RetryCount++
	c.MaturationDeadline = time.Now().Add(delay)

	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.entries[c.Mint]; ok {
		return false
	}
	if len(q.order) >= q.capacity {
		return false
	}
	q.entries[c.Mint] = &c
	q.order = append(q.order, c.Mint)
	return true
}

// Len returns the number of queued candidates.
func (q *CandidateQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}
