package ptyhost

import (
	"sync"
	"time"
)

// Source is anything whose screen can be snapshotted. *Session implements it.
type Source interface {
	Snapshot() []string
	Cursor() (x, y int)
}

// Publisher coalesces dirty notifications into at most one snapshot
// broadcast per interval. The first notification in a window arms a timer;
// further notifications within the window are absorbed, and the flush fires
// once on the timer goroutine. A busy shell therefore produces a steady
// trickle of whole-screen broadcasts instead of one per write.
type Publisher struct {
	interval time.Duration
	onFlush  func(lines []string, x, y int)

	mu      sync.Mutex
	src     Source
	timer   *time.Timer
	stopped bool
}

// NewPublisher creates a publisher that flushes at most once per interval.
// A non-positive interval falls back to 50ms.
func NewPublisher(interval time.Duration, onFlush func(lines []string, x, y int)) *Publisher {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return &Publisher{interval: interval, onFlush: onFlush}
}

// Watch points the publisher at a new source. Pending notifications flush
// against the new source.
func (p *Publisher) Watch(src Source) {
	p.mu.Lock()
	p.src = src
	p.mu.Unlock()
}

// Notify marks the screen dirty and arms the flush timer if none is pending.
func (p *Publisher) Notify() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || p.src == nil || p.timer != nil {
		return
	}
	p.timer = time.AfterFunc(p.interval, p.flush)
}

// Flush broadcasts immediately, cancelling any pending timer.
func (p *Publisher) Flush() {
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.mu.Unlock()
	p.flush()
}

func (p *Publisher) flush() {
	p.mu.Lock()
	p.timer = nil
	src := p.src
	stopped := p.stopped
	p.mu.Unlock()

	if stopped || src == nil {
		return
	}
	lines := src.Snapshot()
	x, y := src.Cursor()
	p.onFlush(lines, x, y)
}

// Stop cancels any pending flush and disables future ones.
func (p *Publisher) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}
