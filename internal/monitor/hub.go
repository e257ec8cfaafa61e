package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/abnvle/ha-imgw-pib-monitor/internal/imgw"
	"github.com/abnvle/ha-imgw-pib-monitor/internal/poller"
)

var validate = validator.New()

// ErrUnknownHandle is returned for operations on unregistered consumers.
var ErrUnknownHandle = errors.New("monitor: unknown subscription handle")

// Deps bundles the collaborators a Hub wires into its views.
type Deps struct {
	Fetcher   poller.Fetcher
	Forecast  ForecastFetcher
	Geocoder  Geocoder
	Locations LocationSource
	Limiter   *poller.Limiter
}

// Hub owns the shared poller and the per-consumer views. It keeps the shared
// poll cadence equal to the tightest live subscription, creates the poller
// lazily on first registration, and tears it down when the last consumer
// leaves.
type Hub struct {
	deps  Deps
	sched *gocron.Scheduler

	mu        sync.Mutex
	ctx       context.Context
	shared    *poller.SharedPoller
	consumers map[string]*consumer
}

type consumer struct {
	sub      Subscription
	view     *View
	forecast *ForecastView
}

// NewHub creates a Hub. Call Start before registering consumers.
func NewHub(deps Deps) *Hub {
	if deps.Limiter == nil {
		deps.Limiter = poller.NewLimiter(poller.DefaultSlots, poller.DefaultSettle)
	}
	return &Hub{
		deps:      deps,
		sched:     gocron.NewScheduler(time.UTC),
		consumers: make(map[string]*consumer),
	}
}

// Start begins running consumer refresh jobs. ctx bounds all background
// refreshes.
func (h *Hub) Start(ctx context.Context) {
	h.mu.Lock()
	h.ctx = ctx
	h.mu.Unlock()
	h.sched.StartAsync()
}

// Stop cancels all timers, including the shared poller's.
func (h *Hub) Stop() {
	h.sched.Stop()

	h.mu.Lock()
	shared := h.shared
	h.shared = nil
	h.mu.Unlock()

	if shared != nil {
		shared.Stop()
	}
}

// Register validates and adds a subscription, returning its handle. The
// consumer's first refresh runs immediately in the background.
func (h *Hub) Register(sub Subscription) (string, error) {
	if sub.UpdateInterval == 0 {
		sub.UpdateInterval = DefaultIntervalMinutes
	}
	sub.UpdateInterval = clampInterval(sub.UpdateInterval)
	if err := validate.Struct(sub); err != nil {
		return "", fmt.Errorf("invalid subscription: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx == nil {
		return "", errors.New("monitor: hub not started")
	}

	if h.shared == nil {
		h.shared = poller.NewSharedPoller(h.deps.Fetcher, h.deps.Limiter, imgw.Endpoints, sub.Interval())
		h.shared.Start(h.ctx)
	}

	id := uuid.NewString()
	c := &consumer{
		sub:  sub,
		view: NewView(h.shared, h.deps.Geocoder, h.deps.Locations, sub),
	}
	if sub.EnableForecast && h.deps.Forecast != nil {
		c.forecast = NewForecastView(h.deps.Forecast, sub.ForecastLat, sub.ForecastLon)
	}
	h.consumers[id] = c

	if err := h.scheduleLocked(id, c); err != nil {
		h.unscheduleLocked(id)
		delete(h.consumers, id)
		h.stopSharedLocked()
		return "", err
	}

	h.reconcileLocked()
	return id, nil
}

// Update replaces a subscription's configuration in place.
func (h *Hub) Update(id string, sub Subscription) error {
	if sub.UpdateInterval == 0 {
		sub.UpdateInterval = DefaultIntervalMinutes
	}
	sub.UpdateInterval = clampInterval(sub.UpdateInterval)
	if err := validate.Struct(sub); err != nil {
		return fmt.Errorf("invalid subscription: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.consumers[id]
	if !ok {
		return ErrUnknownHandle
	}

	c.sub = sub
	c.view.SetSubscription(sub)
	if sub.EnableForecast && h.deps.Forecast != nil {
		c.forecast = NewForecastView(h.deps.Forecast, sub.ForecastLat, sub.ForecastLon)
	} else {
		c.forecast = nil
	}

	h.unscheduleLocked(id)
	if err := h.scheduleLocked(id, c); err != nil {
		return err
	}

	h.reconcileLocked()
	return nil
}

// Unregister removes a subscription. Its timers are cancelled immediately;
// an in-flight shared refresh is left to complete for remaining consumers.
func (h *Hub) Unregister(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.consumers[id]; !ok {
		return ErrUnknownHandle
	}

	h.unscheduleLocked(id)
	delete(h.consumers, id)

	if len(h.consumers) == 0 {
		h.stopSharedLocked()
		return nil
	}

	h.reconcileLocked()
	return nil
}

// stopSharedLocked tears down the shared poller once no consumers remain.
func (h *Hub) stopSharedLocked() {
	if len(h.consumers) > 0 || h.shared == nil {
		return
	}
	// Stop waits for the tick loop; do it off the hub lock.
	shared := h.shared
	h.shared = nil
	go shared.Stop()
}

// Snapshot returns the latest processed snapshot for a consumer.
func (h *Hub) Snapshot(id string) (*Snapshot, error) {
	h.mu.Lock()
	c, ok := h.consumers[id]
	h.mu.Unlock()
	if !ok {
		return nil, ErrUnknownHandle
	}
	return c.view.Snapshot()
}

// ForecastSnapshot returns the latest forecast for a consumer, when enabled.
func (h *Hub) ForecastSnapshot(id string) (*ForecastSnapshot, error) {
	h.mu.Lock()
	c, ok := h.consumers[id]
	h.mu.Unlock()
	if !ok {
		return nil, ErrUnknownHandle
	}
	if c.forecast == nil {
		return nil, ErrUnknownHandle
	}
	return c.forecast.Snapshot()
}

// Subscriptions lists the live subscriptions keyed by handle.
func (h *Hub) Subscriptions() map[string]Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]Subscription, len(h.consumers))
	for id, c := range h.consumers {
		out[id] = c.sub
	}
	return out
}

// SharedInterval exposes the shared poller cadence (zero when idle).
func (h *Hub) SharedInterval() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.shared == nil {
		return 0
	}
	return h.shared.Interval()
}

// scheduleLocked creates the consumer's refresh jobs. The first view refresh
// runs immediately so a new consumer is not left waiting a full interval.
func (h *Hub) scheduleLocked(id string, c *consumer) error {
	minutes := clampInterval(c.sub.UpdateInterval)

	_, err := h.sched.Every(minutes).Minutes().Tag(id).StartImmediately().Do(func() {
		h.refreshConsumer(id)
	})
	if err != nil {
		return fmt.Errorf("scheduling refresh job: %w", err)
	}

	if c.forecast != nil {
		_, err := h.sched.Every(minutes).Minutes().Tag(id + ":forecast").StartImmediately().Do(func() {
			h.refreshForecast(id)
		})
		if err != nil {
			return fmt.Errorf("scheduling forecast job: %w", err)
		}
	}
	return nil
}

func (h *Hub) unscheduleLocked(id string) {
	if err := h.sched.RemoveByTag(id); err != nil && !errors.Is(err, gocron.ErrJobNotFoundWithTag) {
		log.Printf("hub: removing job %s: %v", id, err)
	}
	if err := h.sched.RemoveByTag(id + ":forecast"); err != nil && !errors.Is(err, gocron.ErrJobNotFoundWithTag) {
		log.Printf("hub: removing forecast job %s: %v", id, err)
	}
}

// reconcileLocked recomputes the shared interval as the minimum across live
// subscriptions.
func (h *Hub) reconcileLocked() {
	if h.shared == nil || len(h.consumers) == 0 {
		return
	}
	var tightest time.Duration
	for _, c := range h.consumers {
		if iv := c.sub.Interval(); tightest == 0 || iv < tightest {
			tightest = iv
		}
	}
	h.shared.SetInterval(tightest)
}

// refreshConsumer runs one view refresh cycle. If the shared cache is not
// usable yet (e.g. a just-registered consumer racing the first shared
// fetch), it forces a shared refresh first; single-flight makes the forced
// refresh free when one is already running.
func (h *Hub) refreshConsumer(id string) {
	h.mu.Lock()
	c, ok := h.consumers[id]
	ctx := h.ctx
	shared := h.shared
	h.mu.Unlock()
	if !ok || ctx == nil {
		return
	}

	_, err := c.view.Refresh(ctx)
	if errors.Is(err, ErrUpdateFailed) && shared != nil {
		if refreshErr := shared.Refresh(ctx); refreshErr != nil {
			log.Printf("hub: shared refresh for %s failed: %v", id, refreshErr)
			return
		}
		_, err = c.view.Refresh(ctx)
	}
	if err != nil {
		log.Printf("hub: refresh for %s failed: %v", id, err)
	}
}

func (h *Hub) refreshForecast(id string) {
	// Update may swap c.forecast concurrently; capture it under the lock.
	h.mu.Lock()
	c, ok := h.consumers[id]
	ctx := h.ctx
	var forecast *ForecastView
	if ok {
		forecast = c.forecast
	}
	h.mu.Unlock()
	if !ok || ctx == nil || forecast == nil {
		return
	}

	if _, err := forecast.Refresh(ctx); err != nil {
		log.Printf("hub: forecast refresh for %s failed: %v", id, err)
	}
}
