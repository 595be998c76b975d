package notify

import (
	"context"
	"sync"
	"sync/atomic"
)

// DispatcherConfig controls dispatcher buffering behavior.
type DispatcherConfig struct {
	Async      bool `yaml:"async"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// Dispatcher forwards notices to a [Notifier] from a single background
// goroutine so slow surfaces never stall a request.
type Dispatcher struct {
	cfg       DispatcherConfig
	sink      Notifier
	ch        chan Notice
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts a dispatcher. It returns nil when cfg.Async is false;
// a nil *Dispatcher drops everything, so callers should use the sink directly
// in that case.
func NewDispatcher(cfg DispatcherConfig, sink Notifier) *Dispatcher {
	if !cfg.Async {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOp{}
	}

	d := &Dispatcher{
		cfg:  cfg,
		sink: sink,
		ch:   make(chan Notice, cfg.BufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case notice := <-d.ch:
			d.sink.Notify(context.Background(), notice)
		case <-d.done:
			for {
				select {
				case notice := <-d.ch:
					d.sink.Notify(context.Background(), notice)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) Notify(ctx context.Context, notice Notice) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- notice:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- notice:
	case <-ctx.Done():
	case <-d.done:
	}
}

// Close drains buffered notices and stops the worker. Safe to call twice.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped reports notices discarded under backpressure.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
