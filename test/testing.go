// Package test builds small in-process federations of time-management
// engines for integration-level scenario tests, the way the teacher's own
// test package bootstraps unities and clusters around a single partition
// peer implementation.
package test

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/onox/openrti-timecore/pkg/rticore/ambassador"
	"github.com/onox/openrti-timecore/pkg/rticore/ltime"
	"github.com/onox/openrti-timecore/pkg/rticore/rtiids"
	"github.com/onox/openrti-timecore/pkg/rticore/timemgr"
)

// Federate wraps one Engine with a single owning goroutine: every inbound
// protocol message and every command the test issues against this
// federate serializes through cmds, honoring the Engine's single-goroutine
// contract while still letting a cluster's federates run concurrently with
// each other.
type Federate struct {
	Handle rtiids.FederateHandle
	Engine *timemgr.Engine
	Sink   *ambassador.Loopback

	cmds chan func(*timemgr.Engine)
	done chan struct{}
}

func newFederate(handle rtiids.FederateHandle, federation rtiids.FederationHandle, peers []rtiids.FederateHandle) *Federate {
	lb := ambassador.NewLoopback(handle, federation)
	lb.KnownPeers = append([]rtiids.FederateHandle{handle}, peers...)
	e := timemgr.New(timemgr.Config{Factory: ltime.NewInt64Factory(), Sink: lb, Source: lb})
	f := &Federate{
		Handle: handle,
		Engine: e,
		Sink:   lb,
		cmds:   make(chan func(*timemgr.Engine), 64),
		done:   make(chan struct{}),
	}
	return f
}

func (f *Federate) run() {
	defer close(f.done)
	for cmd := range f.cmds {
		cmd(f.Engine)
	}
}

// Do schedules fn to run on this federate's owning goroutine and blocks
// until it completes.
func (f *Federate) Do(fn func(*timemgr.Engine)) {
	reply := make(chan struct{})
	f.cmds <- func(e *timemgr.Engine) {
		fn(e)
		close(reply)
	}
	<-reply
}

// stop closes the command channel and waits for the owning goroutine to
// drain it.
func (f *Federate) stop() {
	close(f.cmds)
	<-f.done
}

// Cluster is a federation of Federates wired through an in-memory
// broadcast bus: every message a federate's Sink records is delivered to
// every federate's Engine, including its own sender, mirroring a
// reliable group transport without requiring a real relt broker.
type Cluster struct {
	T         *testing.T
	Federates map[rtiids.FederateHandle]*Federate
	names     []rtiids.FederateHandle
	wg        sync.WaitGroup
}

// NewCluster builds a fully cross-wired federation of size federates, each
// aware of every other federate's handle from construction.
func NewCluster(t *testing.T, federation rtiids.FederationHandle, size int) *Cluster {
	t.Helper()
	names := make([]rtiids.FederateHandle, size)
	for i := range names {
		names[i] = rtiids.FederateHandle(string(rune('a'+i)) + "-federate")
	}

	c := &Cluster{T: t, Federates: make(map[rtiids.FederateHandle]*Federate, size), names: names}
	for _, n := range names {
		var peers []rtiids.FederateHandle
		for _, m := range names {
			if m != n {
				peers = append(peers, m)
			}
		}
		f := newFederate(n, federation, peers)
		c.Federates[n] = f
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			f.run()
		}()
	}
	return c
}

// Names lists every federate handle in the cluster, in construction order.
func (c *Cluster) Names() []rtiids.FederateHandle {
	out := make([]rtiids.FederateHandle, len(c.names))
	copy(out, c.names)
	return out
}

// Pump repeatedly dispatches every federate's ready callbacks and
// rebroadcasts every message any federate's Sink recorded, until a full
// pass produces no further progress or maxRounds is exceeded.
func (c *Cluster) Pump(maxRounds int) {
	c.T.Helper()
	for round := 0; round < maxRounds; round++ {
		progressed := false
		for _, f := range c.Federates {
			f.Do(func(e *timemgr.Engine) {
				for {
					dispatched, err := e.DispatchCallback()
					if err != nil {
						c.T.Fatalf("%s: DispatchCallback: %v", f.Handle, err)
					}
					if !dispatched {
						return
					}
					progressed = true
				}
			})
		}
		for _, f := range c.Federates {
			var msgs []interface{}
			f.Do(func(*timemgr.Engine) {
				msgs = f.Sink.Sent
				f.Sink.Sent = nil
			})
			if len(msgs) == 0 {
				continue
			}
			progressed = true
			for _, m := range msgs {
				for _, target := range c.Federates {
					target.Do(func(e *timemgr.Engine) {
						e.AcceptInternalMessage(m)
					})
				}
			}
		}
		if !progressed {
			return
		}
	}
	c.T.Fatalf("cluster did not converge within %d rounds", maxRounds)
}

// Shutdown stops every federate's owning goroutine and waits for them to
// exit, so a test using goleak sees no leaked goroutines afterward.
func (c *Cluster) Shutdown() {
	for _, f := range c.Federates {
		f.stop()
	}
	c.wg.Wait()
}

// WaitFor polls cond on the calling goroutine until it reports true or
// duration elapses, returning whether it converged in time. Used for
// assertions against state mutated from a federate's own goroutine.
func WaitFor(cond func() bool, duration time.Duration) bool {
	deadline := time.Now().Add(duration)
	for {
		if cond() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}

// WaitThisOrTimeout runs cb in its own goroutine and reports whether it
// finished before duration elapsed.
func WaitThisOrTimeout(cb func(), duration time.Duration) bool {
	done := make(chan struct{})
	go func() {
		cb()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(duration):
		return false
	}
}

// PrintStackTrace dumps every goroutine's stack to t, for diagnosing a
// cluster that failed to shut down in time.
func PrintStackTrace(t *testing.T) {
	buf := make([]byte, 1<<16)
	n := runtime.Stack(buf, true)
	t.Errorf("%s", buf[:n])
}
