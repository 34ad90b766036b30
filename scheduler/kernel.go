package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// KernelScheduler is the reference preemptive scheduler: every spawned
// logical thread gets its own goroutine, scheduled by the Go runtime the
// same way any other goroutine is. This is the default substrate when no
// scheduler has been installed.
type KernelScheduler struct {
	wg  sync.WaitGroup
	sem *semaphore.Weighted // nil: unbounded concurrency
}

// KernelSchedulerOption configures a KernelScheduler at construction.
type KernelSchedulerOption interface {
	applyKernel(*KernelScheduler)
}

type kernelOptionFunc func(*KernelScheduler)

func (f kernelOptionFunc) applyKernel(k *KernelScheduler) { f(k) }

// WithMaxConcurrentThreads bounds the number of logical threads that may
// be concurrently running OS goroutines at once; additional spawns block
// until a slot frees up. The default is unbounded.
func WithMaxConcurrentThreads(n int) KernelSchedulerOption {
	return kernelOptionFunc(func(k *KernelScheduler) {
		if n > 0 {
			k.sem = semaphore.NewWeighted(int64(n))
		}
	})
}

// NewKernelScheduler constructs a KernelScheduler.
func NewKernelScheduler(opts ...KernelSchedulerOption) *KernelScheduler {
	k := &KernelScheduler{}
	for _, opt := range opts {
		opt.applyKernel(k)
	}
	return k
}

// Start spawns body as the first logical thread and waits for it, and
// every logical thread transitively spawned under this scheduler, to
// terminate.
func (k *KernelScheduler) Start(body func()) error {
	if err := k.Spawn(body); err != nil {
		return err
	}
	k.wg.Wait()
	return nil
}

// Spawn runs op on a new goroutine.
func (k *KernelScheduler) Spawn(op func()) error {
	k.wg.Add(1)
	if k.sem != nil {
		if err := k.sem.Acquire(context.Background(), 1); err != nil {
			k.wg.Done()
			return err
		}
	}
	go func() {
		defer k.wg.Done()
		if k.sem != nil {
			defer k.sem.Release(1)
		}
		op()
	}()
	return nil
}

// YieldNow is a no-op: the Go runtime preemptively schedules goroutines
// under KernelScheduler, so there is nothing to hand off explicitly.
func (k *KernelScheduler) YieldNow() {}

// NewCondition returns a channel-generation-based Condition. Real OS
// threads/goroutines can block on a channel receive for free (the Go
// runtime parks them without consuming a thread), so there is no need for
// FiberScheduler's cooperative polling loop here.
func (k *KernelScheduler) NewCondition(mu sync.Locker) Condition {
	return newGenCondition(mu)
}

// genCondition implements Condition via a "closed channel per generation"
// idiom: each notification closes the current generation channel (waking
// every blocked receiver) and installs a fresh one. It does not
// distinguish Signal from Broadcast — a spurious extra wakeup is safe and
// tolerated by every Wait loop in this module, and the source system's own
// not_full_cv usage is itself a Broadcast in the block/crowding path (see
// spec.md §4.1), so this costs nothing in practice.
type genCondition struct {
	mu  sync.Locker
	gen atomic.Pointer[chan struct{}]
}

func newGenCondition(mu sync.Locker) *genCondition {
	ch := make(chan struct{})
	c := &genCondition{mu: mu}
	c.gen.Store(&ch)
	return c
}

func (c *genCondition) Wait() {
	ch := *c.gen.Load()
	c.mu.Unlock()
	<-ch
	c.mu.Lock()
}

func (c *genCondition) WaitTimeout(d time.Duration) bool {
	ch := *c.gen.Load()
	c.mu.Unlock()
	defer c.mu.Lock()
	if d <= 0 {
		select {
		case <-ch:
			return true
		default:
			return false
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ch:
		return true
	case <-t.C:
		return false
	}
}

func (c *genCondition) Signal()    { c.bump() }
func (c *genCondition) Broadcast() { c.bump() }

func (c *genCondition) bump() {
	newCh := make(chan struct{})
	for {
		old := c.gen.Load()
		if c.gen.CompareAndSwap(old, &newCh) {
			close(*old)
			return
		}
	}
}
