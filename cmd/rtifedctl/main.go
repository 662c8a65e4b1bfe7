// Command rtifedctl drives one federate's time-management engine from
// the command line, for manual and integration testing against a real
// relt group instead of the in-process Loopback test double.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/template"
	"github.com/alecthomas/units"
	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/onox/openrti-timecore/pkg/rticore/definition"
	"github.com/onox/openrti-timecore/pkg/rticore/ltime"
	"github.com/onox/openrti-timecore/pkg/rticore/rtiids"
	"github.com/onox/openrti-timecore/pkg/rticore/timemgr"
	"github.com/onox/openrti-timecore/pkg/rticore/transport"
	kingpin "gopkg.in/alecthomas/kingpin.v2"
)

var (
	app = kingpin.New("rtifedctl", "Drive a federate's time-management core from the command line.")

	federate          = app.Flag("federate", "this federate's own handle").Required().String()
	federation        = app.Flag("federation", "federation to join").Required().String()
	peers             = app.Flag("peer", "a known peer federate handle, repeatable").Strings()
	protocolVersion   = app.Flag("protocol-version", "protocol version stamped on outgoing messages").Default(timemgr.DefaultProtocolVersion).String()
	supportedVersions = app.Flag("supported-versions", "go-version constraint peers must satisfy, e.g. \">= 1.0.0, < 2.0.0\"").String()
	poolHighWatermark = app.Flag("pool-high-watermark", "pre-warm this many pooled message elements, e.g. 4Ki").Default("0").Bytes()
	debug             = app.Flag("debug", "enable debug logging").Bool()

	runCmd = app.Command("run", "connect to the federation and read commands from stdin").Default()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	stdout := colorable.NewColorableStdout()

	logger := definition.NewLogrusLogger()
	logger.ToggleDebug(*debug)
	flogger := logger.WithFederate(rtiids.FederateHandle(*federate))

	factory := ltime.NewInt64Factory()

	known := make([]rtiids.FederateHandle, 0, len(*peers))
	for _, p := range *peers {
		known = append(known, rtiids.FederateHandle(p))
	}

	gt, err := transport.NewGroupTransport(transport.Config{
		Federation:     rtiids.FederationHandle(*federation),
		Self:           rtiids.FederateHandle(*federate),
		Factory:        factory,
		KnownFederates: known,
		Logger:         flogger,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("failed connecting to federation %s: %v", *federation, err))
		os.Exit(1)
	}
	defer gt.Close()

	engine := timemgr.New(timemgr.Config{
		Factory:           factory,
		Sink:              gt,
		Source:            gt,
		Logger:            flogger,
		ProtocolVersion:   *protocolVersion,
		SupportedVersions: *supportedVersions,
		PoolPrewarm:       int(*poolHighWatermark) / int(units.Kibibyte),
	})
	gt.SetCallbackHandler(engineCallbacks{engine: engine, out: stdout})

	go pumpTransport(gt, engine)
	go pumpDispatch(engine)

	_ = runCmd
	repl(engine, stdout)
}

// pumpTransport forwards every decoded internal protocol message from
// the transport into the engine, the same split the teacher draws
// between Transport.Listen and Peer.poll.
func pumpTransport(gt *transport.GroupTransport, engine *timemgr.Engine) {
	for msg := range gt.Listen() {
		engine.AcceptInternalMessage(msg)
	}
}

// pumpDispatch keeps draining callbacks in the background so a grant
// that becomes available between REPL commands is still delivered
// promptly.
func pumpDispatch(engine *timemgr.Engine) {
	for {
		if _, err := engine.EvokeCallback(100 * time.Millisecond); err != nil {
			time.Sleep(100 * time.Millisecond)
		}
	}
}

// engineCallbacks renders the three engine callbacks to colored stdout.
type engineCallbacks struct {
	engine *timemgr.Engine
	out    io.Writer
}

func (c engineCallbacks) TimeRegulationEnabled(t ltime.Time) {
	fmt.Fprintln(c.out, color.GreenString("time regulation enabled at %v", t))
}

func (c engineCallbacks) TimeConstrainedEnabled(t ltime.Time) {
	fmt.Fprintln(c.out, color.GreenString("time constrained enabled at %v", t))
}

func (c engineCallbacks) TimeAdvanceGrant(t ltime.Time) {
	fmt.Fprintln(c.out, color.CyanString("time advance granted to %v", t))
}

// repl reads one command per line from stdin until EOF or "quit".
func repl(engine *timemgr.Engine, out io.Writer) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		if cmd == "quit" || cmd == "exit" {
			return
		}

		if err := dispatchCommand(engine, out, cmd, args); err != nil {
			fmt.Fprintln(out, color.RedString("%s: %v", cmd, err))
		}
	}
}

func dispatchCommand(engine *timemgr.Engine, out io.Writer, cmd string, args []string) error {
	switch cmd {
	case "enable-regulation":
		t, lookahead, err := parseTimeAndLookahead(args)
		if err != nil {
			return err
		}
		return engine.EnableTimeRegulation(t, lookahead)
	case "disable-regulation":
		return engine.DisableTimeRegulation()
	case "enable-constrained":
		return engine.EnableTimeConstrained()
	case "disable-constrained":
		return engine.DisableTimeConstrained()
	case "advance":
		t, err := parseTime(args)
		if err != nil {
			return err
		}
		return engine.TimeAdvanceRequest(t)
	case "advance-available":
		t, err := parseTime(args)
		if err != nil {
			return err
		}
		return engine.TimeAdvanceRequestAvailable(t)
	case "next-message":
		t, err := parseTime(args)
		if err != nil {
			return err
		}
		return engine.NextMessageRequest(t)
	case "next-message-available":
		t, err := parseTime(args)
		if err != nil {
			return err
		}
		return engine.NextMessageRequestAvailable(t)
	case "flush-queue":
		t, err := parseTime(args)
		if err != nil {
			return err
		}
		return engine.FlushQueueRequest(t)
	case "modify-lookahead":
		l, err := parseTime(args)
		if err != nil {
			return err
		}
		return engine.ModifyLookahead(ltime.NewInt64Interval(int64(l.(ltime.Int64Time))))
	case "status":
		return renderStatus(engine, out)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func parseTime(args []string) (ltime.Time, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("expected exactly one time argument")
	}
	v, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid time %q: %w", args[0], err)
	}
	return ltime.NewInt64Time(v), nil
}

func parseTimeAndLookahead(args []string) (ltime.Time, ltime.Interval, error) {
	if len(args) != 2 {
		return nil, nil, fmt.Errorf("expected time and lookahead arguments")
	}
	t, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid time %q: %w", args[0], err)
	}
	l, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid lookahead %q: %w", args[1], err)
	}
	return ltime.NewInt64Time(t), ltime.NewInt64Interval(l), nil
}

var statusTemplate = template.Must(template.New("status").Parse(
	`{{.RegulationLabel}} regulation | {{.ConstrainedLabel}} constrained | {{.AdvanceLabel}} advance
logical time:  {{.LogicalTime}}
lookahead:     {{.Lookahead}}
GALT:          {{.GALT}}
LITS:          {{.LITS}}
async delivery: {{.AsyncDelivery}}
pool:          {{.PoolPooled}} idle, {{.PoolLive}} live
`))

type statusView struct {
	RegulationLabel  string
	ConstrainedLabel string
	AdvanceLabel     string
	LogicalTime      ltime.Time
	Lookahead        ltime.Interval
	GALT             string
	LITS             string
	AsyncDelivery    bool
	PoolPooled       int
	PoolLive         int
}

// renderStatus prints a snapshot of the engine's current mode, logical
// time, GALT/LITS, and pool occupancy, colored by mode.
func renderStatus(engine *timemgr.Engine, out io.Writer) error {
	galt := "none"
	if t, ok := engine.QueryGALT(); ok {
		galt = fmt.Sprintf("%v", t)
	}
	lits := "none"
	if t, ok := engine.QueryLITS(); ok {
		lits = fmt.Sprintf("%v", t)
	}
	stats := engine.QueryPoolStats()

	view := statusView{
		RegulationLabel:  color.YellowString(engine.RegulationState().String()),
		ConstrainedLabel: color.YellowString(engine.ConstrainedState().String()),
		AdvanceLabel:     color.YellowString(engine.AdvanceState().String()),
		LogicalTime:      engine.QueryLogicalTime(),
		Lookahead:        engine.QueryLookahead(),
		GALT:             galt,
		LITS:             lits,
		AsyncDelivery:    engine.AsynchronousDeliveryEnabled(),
		PoolPooled:       stats.Pooled,
		PoolLive:         stats.Live,
	}
	return statusTemplate.Execute(out, view)
}
