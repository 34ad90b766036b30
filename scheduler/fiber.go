package scheduler

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/goroutineid"
)

// OwnerTerminatedSignal is implemented by errors that represent an
// already-handled owner-termination outcome. FiberScheduler's dispatch
// loop absorbs a panic carrying such an error instead of treating it as a
// fatal dispatcher failure, since the death of one logical thread's owner
// must not tear down unrelated peers sharing the same scheduler (spec.md
// §7, §4.4 "dispatch").
type OwnerTerminatedSignal interface {
	error
	SchedulerAbsorbed()
}

type fiberResult struct {
	terminal bool
	err      error
}

type fiber struct {
	resume chan struct{}
	yield  chan fiberResult
}

// FiberScheduler is the reference cooperative scheduler: every logical
// thread still runs on its own goroutine, but they are serialized behind a
// single baton so only one ever executes application code at a time. This
// is the idiomatic Go translation of a stackful-coroutine runtime: Go has
// no user-mode stackful coroutine primitive other than the goroutine
// itself, so FiberScheduler uses goroutines as fibers and a baton
// hand-off, rather than blocking, to model "single OS thread, cooperative
// interleaving".
//
// Start must be called before the first Spawn: nothing hands out the
// initial baton otherwise.
type FiberScheduler struct {
	mu      sync.Mutex
	fibers  []*fiber
	pos     int
	fiberOf sync.Map // goroutine id (int64) -> *fiber
	started bool
}

// NewFiberScheduler constructs a FiberScheduler.
func NewFiberScheduler() *FiberScheduler {
	return &FiberScheduler{}
}

// Start begins the dispatch loop, running body as the first fiber.
func (s *FiberScheduler) Start(body func()) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("lthread/scheduler: FiberScheduler.Start called twice")
	}
	s.started = true
	s.mu.Unlock()
	if err := s.Spawn(body); err != nil {
		return err
	}
	return s.dispatch()
}

// Spawn appends a new fiber wrapping op to the round-robin set.
func (s *FiberScheduler) Spawn(op func()) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return errors.New("lthread/scheduler: FiberScheduler.Spawn called before Start")
	}
	f := &fiber{resume: make(chan struct{}), yield: make(chan fiberResult, 1)}
	s.fibers = append(s.fibers, f)
	s.mu.Unlock()

	go s.runFiber(f, op)

	// If spawn itself happened during a fiber's turn, yield once so the
	// spawning fiber does not dominate (spec.md §4.4 "spawn").
	if s.currentFiber() != nil {
		s.YieldNow()
	}
	return nil
}

func (s *FiberScheduler) runFiber(f *fiber, op func()) {
	gid := goroutineid.Get()
	s.fiberOf.Store(gid, f)
	defer s.fiberOf.Delete(gid)

	<-f.resume

	var result fiberResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				switch v := r.(type) {
				case OwnerTerminatedSignal:
					result = fiberResult{terminal: true}
				case error:
					result = fiberResult{terminal: true, err: v}
				default:
					result = fiberResult{terminal: true, err: fmt.Errorf("lthread/scheduler: fiber panic: %v", v)}
				}
			}
		}()
		op()
		result = fiberResult{terminal: true}
	}()
	f.yield <- result
}

// dispatch is the round-robin loop described in spec.md §4.4: while fibers
// remain, resume the one at pos and wait for it to yield or terminate.
func (s *FiberScheduler) dispatch() error {
	for {
		s.mu.Lock()
		if len(s.fibers) == 0 {
			s.mu.Unlock()
			return nil
		}
		if s.pos >= len(s.fibers) {
			s.pos = 0
		}
		f := s.fibers[s.pos]
		s.mu.Unlock()

		f.resume <- struct{}{}
		res := <-f.yield

		s.mu.Lock()
		if res.terminal {
			s.fibers = append(s.fibers[:s.pos], s.fibers[s.pos+1:]...)
			if s.pos >= len(s.fibers) {
				s.pos = 0
			}
			if res.err != nil {
				s.mu.Unlock()
				return res.err
			}
		} else {
			s.pos++
			if s.pos >= len(s.fibers) {
				s.pos = 0
			}
		}
		s.mu.Unlock()
	}
}

func (s *FiberScheduler) currentFiber() *fiber {
	v, ok := s.fiberOf.Load(goroutineid.Get())
	if !ok {
		return nil
	}
	return v.(*fiber)
}

// YieldNow hands the baton to the next fiber and blocks until this one
// receives it back. It is a no-op when called from a goroutine that is
// not a fiber of this scheduler.
func (s *FiberScheduler) YieldNow() {
	f := s.currentFiber()
	if f == nil {
		return
	}
	f.yield <- fiberResult{terminal: false}
	<-f.resume
}

func (s *FiberScheduler) yieldCurrent() {
	if f := s.currentFiber(); f != nil {
		s.YieldNow()
		return
	}
	runtime.Gosched()
}

// NewCondition returns a FiberCondition: a condition variable analog that
// loops on a notification generation counter and yields the baton between
// checks, rather than blocking the goroutine outright, per spec.md §4.4's
// "FiberCondition" description.
func (s *FiberScheduler) NewCondition(mu sync.Locker) Condition {
	return &fiberCondition{mu: mu, sched: s}
}

type fiberCondition struct {
	mu    sync.Locker
	sched *FiberScheduler
	gen   atomic.Uint64
}

func (c *fiberCondition) Wait() {
	start := c.gen.Load()
	c.mu.Unlock()
	for c.gen.Load() == start {
		c.sched.yieldCurrent()
	}
	c.mu.Lock()
}

func (c *fiberCondition) WaitTimeout(d time.Duration) bool {
	start := c.gen.Load()
	deadline := time.Now().Add(d)
	c.mu.Unlock()
	ok := true
	for c.gen.Load() == start {
		if d <= 0 || !time.Now().Before(deadline) {
			ok = false
			break
		}
		c.sched.yieldCurrent()
	}
	c.mu.Lock()
	return ok
}

func (c *fiberCondition) Signal()    { c.gen.Add(1) }
func (c *fiberCondition) Broadcast() { c.gen.Add(1) }
