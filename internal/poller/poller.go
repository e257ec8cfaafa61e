package poller

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/abnvle/ha-imgw-pib-monitor/internal/imgw"
)

// Fetcher is the subset of the IMGW client the poller needs.
type Fetcher interface {
	FetchRecords(ctx context.Context, ep imgw.Endpoint) ([]imgw.Record, error)
}

// Entry is one cached endpoint payload. Records holds the last successful
// fetch; Err records the most recent failure, if any, without discarding the
// stale records.
type Entry struct {
	Records   []imgw.Record
	FetchedAt time.Time
	Err       error
}

// Usable reports whether the entry carries data a consumer can read.
func (e Entry) Usable() bool {
	return !e.FetchedAt.IsZero()
}

// SharedPoller fetches all endpoints on a timer and caches the raw payloads.
// Concurrent Refresh calls are deduplicated: every caller inside one refresh
// window shares the single underlying fetch cycle.
type SharedPoller struct {
	fetcher   Fetcher
	limiter   *Limiter
	endpoints []imgw.Endpoint

	mu    sync.RWMutex
	cache map[imgw.Endpoint]Entry

	flight singleflight.Group

	tickMu     sync.Mutex
	interval   time.Duration
	reschedule chan struct{}

	runCtx context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSharedPoller creates a poller over the given endpoints. Call Start to
// begin ticking.
func NewSharedPoller(fetcher Fetcher, limiter *Limiter, endpoints []imgw.Endpoint, interval time.Duration) *SharedPoller {
	if len(endpoints) == 0 {
		endpoints = imgw.Endpoints
	}
	return &SharedPoller{
		fetcher:    fetcher,
		limiter:    limiter,
		endpoints:  endpoints,
		cache:      make(map[imgw.Endpoint]Entry, len(endpoints)),
		interval:   interval,
		reschedule: make(chan struct{}, 1),
	}
}

// Start launches the tick loop. The poller refreshes immediately, then on
// every tick until Stop is called.
func (p *SharedPoller) Start(ctx context.Context) {
	p.runCtx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)

		if err := p.Refresh(p.runCtx); err != nil {
			log.Printf("poller: initial refresh failed: %v", err)
		}

		ticker := time.NewTicker(p.Interval())
		defer ticker.Stop()

		for {
			select {
			case <-p.runCtx.Done():
				return
			case <-p.reschedule:
				ticker.Reset(p.Interval())
			case <-ticker.C:
				if err := p.Refresh(p.runCtx); err != nil {
					log.Printf("poller: refresh failed: %v", err)
				}
			}
		}
	}()
}

// Stop cancels the tick loop and waits for it to exit. An in-flight refresh
// is allowed to finish; its result is simply no longer consumed.
func (p *SharedPoller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
}

// Interval returns the current tick interval.
func (p *SharedPoller) Interval() time.Duration {
	p.tickMu.Lock()
	defer p.tickMu.Unlock()
	return p.interval
}

// SetInterval changes the tick cadence. The next tick is rescheduled; a
// refresh already in flight is unaffected.
func (p *SharedPoller) SetInterval(d time.Duration) {
	p.tickMu.Lock()
	if d == p.interval {
		p.tickMu.Unlock()
		return
	}
	p.interval = d
	p.tickMu.Unlock()

	select {
	case p.reschedule <- struct{}{}:
	default:
	}
}

// Refresh fetches every endpoint concurrently through the limiter and
// commits the results. If a refresh is already in flight, the caller shares
// its result instead of triggering another fetch. The refresh fails only
// when every endpoint fails; a partial failure keeps the previous cache for
// the failed endpoints.
func (p *SharedPoller) Refresh(ctx context.Context) error {
	ch := p.flight.DoChan("refresh", func() (any, error) {
		// The shared cycle runs on the poller's own context so one departing
		// caller cannot cancel work other consumers depend on.
		runCtx := p.runCtx
		if runCtx == nil {
			runCtx = ctx
		}
		return nil, p.refreshAll(runCtx)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *SharedPoller) refreshAll(ctx context.Context) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures int
		lastErr  error
	)

	for _, ep := range p.endpoints {
		ep := ep
		wg.Add(1)
		go func() {
			defer wg.Done()

			var records []imgw.Record
			err := p.limiter.Do(ctx, func() error {
				var fetchErr error
				records, fetchErr = p.fetcher.FetchRecords(ctx, ep)
				return fetchErr
			})

			if err != nil {
				log.Printf("poller: fetch %s failed: %v", ep, err)
				p.recordFailure(ep, err)
				mu.Lock()
				failures++
				lastErr = err
				mu.Unlock()
				return
			}
			p.commit(ep, records)
		}()
	}
	wg.Wait()

	if failures == len(p.endpoints) {
		return fmt.Errorf("all %d endpoint fetches failed: %w", failures, lastErr)
	}
	return nil
}

// commit atomically replaces the cache entry for an endpoint.
func (p *SharedPoller) commit(ep imgw.Endpoint, records []imgw.Record) {
	p.mu.Lock()
	p.cache[ep] = Entry{Records: records, FetchedAt: time.Now().UTC()}
	p.mu.Unlock()
}

// recordFailure notes the error while keeping any previously cached records.
func (p *SharedPoller) recordFailure(ep imgw.Endpoint, err error) {
	p.mu.Lock()
	entry := p.cache[ep]
	entry.Err = err
	p.cache[ep] = entry
	p.mu.Unlock()
}

// Entry returns the cached state for one endpoint. Readers observe either
// the previous or the newly committed entry, never a torn one.
func (p *SharedPoller) Entry(ep imgw.Endpoint) (Entry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.cache[ep]
	return entry, ok
}
