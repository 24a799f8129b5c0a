package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Prober is the reachability check the monitor runs each cycle.
type Prober interface {
	Ping(ctx context.Context) error
}

// OnlineSink receives connectivity transitions.
type OnlineSink interface {
	SetOnline(online bool)
}

// ConnectivityMonitor polls the remote store's health endpoint and feeds
// the result into the orchestrator's online flag. It stands in for the
// browser's online/offline events: a failed probe flips the app to
// local-only mode, a successful one restores remote pushes.
type ConnectivityMonitor struct {
	prober   Prober
	sink     OnlineSink
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewConnectivityMonitor(prober Prober, sink OnlineSink, interval time.Duration) *ConnectivityMonitor {
	return &ConnectivityMonitor{
		prober:   prober,
		sink:     sink,
		interval: interval,
	}
}

// Start begins the probe loop. Returns an error if already running.
func (m *ConnectivityMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("connectivity monitor is already running")
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.mu.Unlock()

	go m.runLoop(ctx)

	slog.InfoContext(ctx, "Connectivity monitor started", "interval", m.interval)
	return nil
}

// Stop gracefully stops the monitor and waits for completion.
func (m *ConnectivityMonitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	close(m.stopCh)

	select {
	case <-m.doneCh:
		slog.InfoContext(ctx, "Connectivity monitor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Connectivity monitor stop timed out")
		return ctx.Err()
	}

	m.mu.Lock()
	m.running = false
	m.mu.Unlock()

	return nil
}

func (m *ConnectivityMonitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *ConnectivityMonitor) runLoop(ctx context.Context) {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Probe immediately so startup doesn't wait a full interval.
	m.probe(ctx)

	for {
		select {
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

func (m *ConnectivityMonitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	err := m.prober.Ping(probeCtx)
	if err != nil {
		slog.DebugContext(ctx, "Remote probe failed", "error", err)
	}
	m.sink.SetOnline(err == nil)
}
