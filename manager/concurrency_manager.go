package manager

import (
	"context"
	"sync"
	"time"

	"completion-proxy/config"
)

// InstanceMetrics holds the in-flight counters for one instance.
type InstanceMetrics struct {
	Instance        string
	QueueSize       int
	ProcessingCount int
	LastLogTime     time.Time
	dirty           bool
	mu              sync.Mutex
}

type limit struct {
	sem          chan struct{}
	queueTimeout time.Duration
	metrics      *InstanceMetrics
}

// ConcurrencyManager caps the number of in-flight backend calls per instance.
// Instances configured with max_concurrent 0 are not limited.
type ConcurrencyManager struct {
	limits      map[string]*limit
	mu          sync.Mutex
	logInterval time.Duration
	closed      chan struct{}
	closeOnce   sync.Once
	wg          sync.WaitGroup
}

// NewConcurrencyManager initializes a ConcurrencyManager from the instance configurations.
func NewConcurrencyManager(instances []config.InstanceConfig) *ConcurrencyManager {
	cm := &ConcurrencyManager{
		limits:      make(map[string]*limit),
		logInterval: time.Second,
		closed:      make(chan struct{}),
	}

	for _, cfg := range instances {
		size := cfg.Limit()
		if size <= 0 {
			continue
		}
		log.Infof("Limiting instance '%s' to %d concurrent requests", cfg.Name, size)
		cm.limits[cfg.Name] = &limit{
			sem:          make(chan struct{}, size),
			queueTimeout: cfg.QueueTimeout,
			metrics:      &InstanceMetrics{Instance: cfg.Name},
		}
	}

	for _, l := range cm.limits {
		cm.wg.Add(1)
		go cm.monitorMetrics(l.metrics)
	}

	return cm
}

// Acquire attempts to acquire a slot for the given instance.
// It waits at most the instance's queue timeout, or until ctx is done.
// The returned release func must be called once the backend call is over.
func (cm *ConcurrencyManager) Acquire(ctx context.Context, instance string) (func(), bool) {
	cm.mu.Lock()
	l, exists := cm.limits[instance]
	cm.mu.Unlock()
	if !exists {
		return func() {}, true
	}
	metrics := l.metrics

	metrics.adjust(1, 0)

	timer := time.NewTimer(l.queueTimeout)
	defer timer.Stop()

	select {
	case l.sem <- struct{}{}:
		metrics.adjust(-1, 1)

		var once sync.Once
		return func() {
			once.Do(func() {
				metrics.adjust(0, -1)
				<-l.sem
			})
		}, true
	case <-timer.C:
	case <-ctx.Done():
	}
	metrics.adjust(-1, 0)
	return nil, false
}

// Snapshot returns the queued and processing counts for an instance.
func (cm *ConcurrencyManager) Snapshot(instance string) (queued, processing int) {
	cm.mu.Lock()
	l, exists := cm.limits[instance]
	cm.mu.Unlock()
	if !exists {
		return 0, 0
	}
	l.metrics.mu.Lock()
	defer l.metrics.mu.Unlock()
	return l.metrics.QueueSize, l.metrics.ProcessingCount
}

// monitorMetrics logs the counters of one instance when they moved, at most
// once per logInterval.
func (cm *ConcurrencyManager) monitorMetrics(metrics *InstanceMetrics) {
	defer cm.wg.Done()
	ticker := time.NewTicker(cm.logInterval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-cm.closed:
			return
		case now := <-ticker.C:
			if queued, processing, ok := metrics.takeDirty(now, cm.logInterval); ok {
				log.Infof("Instance: %s | Queued: %d | Processing: %d", metrics.Instance, queued, processing)
			}
		}
	}
}

// adjust shifts the queued and processing counts; neither goes below zero.
func (m *InstanceMetrics) adjust(queued, processing int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueueSize = max(m.QueueSize+queued, 0)
	m.ProcessingCount = max(m.ProcessingCount+processing, 0)
	m.dirty = true
}

// takeDirty returns the counts if they changed since the last report and
// interval has elapsed, and clears the change marker.
func (m *InstanceMetrics) takeDirty(now time.Time, interval time.Duration) (int, int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dirty || now.Sub(m.LastLogTime) < interval {
		return 0, 0, false
	}
	m.dirty = false
	m.LastLogTime = now
	return m.QueueSize, m.ProcessingCount, true
}

// Shutdown stops the monitoring goroutines.
func (cm *ConcurrencyManager) Shutdown() {
	cm.closeOnce.Do(func() {
		close(cm.closed)
	})
	cm.wg.Wait()
}
