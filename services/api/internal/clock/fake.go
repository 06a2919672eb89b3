package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a deterministic Clock whose time only moves on Advance or Set.
// Tickers follow a separate monotonic reading that only Advance moves, the
// way real tickers ignore wall-clock corrections. It is safe for concurrent use.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	mono    time.Time
	tickers []*fakeTicker
	changed *sync.Cond
}

type fakeTicker struct {
	next     time.Time
	interval time.Duration
	ch       chan time.Time
	stopped  bool
}

// NewFake returns a Fake clock set to t.
func NewFake(t time.Time) *Fake {
	f := &Fake{now: t.UTC(), mono: t.UTC()}
	f.changed = sync.NewCond(&f.mu)
	return f
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	ft := &fakeTicker{
		next:     f.mono.Add(d),
		interval: d,
		ch:       make(chan time.Time, 1),
	}
	f.tickers = append(f.tickers, ft)
	f.changed.Broadcast()

	return &Ticker{
		C: ft.ch,
		stopFunc: func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			ft.stopped = true
			f.changed.Broadcast()
		},
	}
}

// Advance moves the clock forward by d and fires every ticker whose next
// tick falls within the new time, once per elapsed interval. Sends are
// non-blocking, matching time.Ticker.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mono = f.mono.Add(d)
	due := f.collectDue(f.mono)
	fired := f.now
	f.mu.Unlock()

	for _, ft := range due {
		select {
		case ft.ch <- fired:
		default:
		}
	}
}

// Set jumps the wall clock to t without touching the ticker schedule.
// Useful for simulating wall-clock corrections.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t.UTC()
}

// WaitForTickers blocks until at least n tickers are active.
func (f *Fake) WaitForTickers(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for f.activeLocked() < n {
		f.changed.Wait()
	}
}

// ActiveTickers returns the number of tickers that have not been stopped.
func (f *Fake) ActiveTickers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activeLocked()
}

func (f *Fake) activeLocked() int {
	n := 0
	for _, ft := range f.tickers {
		if !ft.stopped {
			n++
		}
	}
	return n
}

// collectDue must be called with f.mu held.
func (f *Fake) collectDue(target time.Time) []*fakeTicker {
	var due []*fakeTicker
	remaining := f.tickers[:0]
	for _, ft := range f.tickers {
		if ft.stopped {
			continue
		}
		remaining = append(remaining, ft)
		if ft.next.After(target) {
			continue
		}
		for !ft.next.After(target) {
			ft.next = ft.next.Add(ft.interval)
		}
		due = append(due, ft)
	}
	f.tickers = remaining
	sort.SliceStable(due, func(i, j int) bool { return due[i].next.Before(due[j].next) })
	return due
}
