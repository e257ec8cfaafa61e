package monitor

import "sync"

// PointSource is a LocationSource backed by an externally settable point,
// e.g. the operator's home location. Views with dynamic tracking poll it
// once per refresh cycle.
type PointSource struct {
	mu  sync.RWMutex
	lat float64
	lon float64
	set bool
}

// Set updates the reference point.
func (p *PointSource) Set(lat, lon float64) {
	p.mu.Lock()
	p.lat, p.lon, p.set = lat, lon, true
	p.mu.Unlock()
}

// Coordinates returns the current point; ok is false until Set is called.
func (p *PointSource) Coordinates() (lat, lon float64, ok bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lat, p.lon, p.set
}
