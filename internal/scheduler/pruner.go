package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SnapshotPruner deletes snapshots older than a cutoff.
type SnapshotPruner interface {
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type PrunerConfig struct {
	Interval  time.Duration // e.g. 1*time.Hour
	Retention time.Duration // e.g. 30*24*time.Hour
}

// Pruner enforces snapshot retention on a fixed interval.
type Pruner struct {
	repo SnapshotPruner
	cfg  PrunerConfig
	now  func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

func NewPruner(repo SnapshotPruner, cfg PrunerConfig) *Pruner {
	if cfg.Interval <= 0 {
		cfg.Interval = 1 * time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	return &Pruner{repo: repo, cfg: cfg, now: time.Now}
}

func (p *Pruner) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		fmt.Println("[PRUNER] Already running")
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.done = make(chan struct{})
	stopCh, done := p.stopCh, p.done
	p.mu.Unlock()

	go func() {
		defer close(done)

		p.runOnce()

		ticker := time.NewTicker(p.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				p.runOnce()
			}
		}
	}()

	fmt.Printf("[PRUNER] Started (every %s, retention %s)\n", p.cfg.Interval, p.cfg.Retention)
}

// Stop halts the loop and waits for an in-flight prune to finish.
func (p *Pruner) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	close(p.stopCh)
	p.running = false
	done := p.done
	p.mu.Unlock()

	<-done
	fmt.Println("[PRUNER] Stopped")
}

func (p *Pruner) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Pruner) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := p.now().Add(-p.cfg.Retention)
	n, err := p.repo.PruneOlderThan(ctx, cutoff)
	if err != nil {
		fmt.Printf("[PRUNER] Prune failed: %v\n", err)
		return
	}
	if n > 0 {
		fmt.Printf("[PRUNER] Removed %d snapshots older than %s\n", n, cutoff.UTC().Format(time.RFC3339))
	}
}
