package fuzzy

import (
	"testing"
	"time"

	"github.com/onox/openrti-timecore/pkg/rticore/ltime"
	"github.com/onox/openrti-timecore/pkg/rticore/timemgr"
	"github.com/onox/openrti-timecore/test"
	"go.uber.org/goleak"
)

// Enabling regulation once, then a long run of advance rounds across a
// five-federate cluster must leave no goroutine running once every
// federate has shut down.
func Test_SustainedMixedActivityLeavesNoGoroutines(t *testing.T) {
	cluster := test.NewCluster(t, "fuzzy-federation", 5)
	names := cluster.Names()

	for i, n := range names {
		f := cluster.Federates[n]
		lookahead := int64(i + 1)
		f.Do(func(e *timemgr.Engine) {
			if err := e.EnableTimeRegulation(ltime.NewInt64Time(0), ltime.NewInt64Interval(lookahead)); err != nil {
				t.Fatalf("%s EnableTimeRegulation: %v", n, err)
			}
			if err := e.EnableTimeConstrained(); err != nil {
				t.Fatalf("%s EnableTimeConstrained: %v", n, err)
			}
		})
	}
	cluster.Pump(2000)

	for step := int64(1); step <= 20; step++ {
		target := step * 3
		for _, n := range names {
			f := cluster.Federates[n]
			f.Do(func(e *timemgr.Engine) {
				if e.AdvanceState() != timemgr.AdvanceGranted {
					return
				}
				if err := e.TimeAdvanceRequest(ltime.NewInt64Time(target)); err != nil {
					t.Fatalf("%s TimeAdvanceRequest(%d): %v", n, target, err)
				}
			})
		}
		cluster.Pump(2000)
	}

	if !test.WaitThisOrTimeout(cluster.Shutdown, 30*time.Second) {
		t.Error("failed shutdown cluster")
		test.PrintStackTrace(t)
	}
	goleak.VerifyNone(t)
}
