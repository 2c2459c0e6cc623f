package resourcechart

import (
	"context"
	"io"
	"runtime/trace"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// What a client needs to call Highcharts.stockChart(target, options).
type ChartSubmission struct {
	Target  string            `json:"target"`
	Options StockChartOptions `json:"options"`
}

type StreamStatus struct {
	StreamEnded bool   `json:"streamEnded"`
	Error       string `json:"error,omitempty"`
}

// ChartBroadcaster reads resource rows, re-renders the resource chart after
// every row and pushes each submission to the live websocket clients. It is an
// Engine: RenderResourceChart submits to it like to any other engine.
type ChartBroadcaster struct {
	input     ResourceRowReader
	target    string
	seriesSet SeriesSet
	metrics   *Metrics

	mutex sync.Mutex
	wg    sync.WaitGroup

	streamEnded atomic.Bool
	err         error // Only read after streamEnded == true.

	// Channels of open websockets. See RegisterChannel.
	channelsForLiveUpdate []chan ChartSubmission

	// The most recent submission. A newer submission supersedes older ones
	// entirely, so this is all a new client needs.
	latest *ChartSubmission

	// Rows shown on the chart. Only touched by the run goroutine.
	window *ThreadUnsafeRing[ResourceRow]

	numSubmissions int

	logger logrus.FieldLogger
}

func NewChartBroadcaster(input ResourceRowReader, target string, seriesSet SeriesSet, windowSize int, metrics *Metrics) *ChartBroadcaster {
	if metrics == nil {
		metrics = NewMetrics()
	}

	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}

	return &ChartBroadcaster{
		input:     input,
		target:    target,
		seriesSet: seriesSet,
		metrics:   metrics,

		mutex:                 sync.Mutex{},
		channelsForLiveUpdate: make([]chan ChartSubmission, 0),
		window:                NewRing[ResourceRow](windowSize),
		logger:                logrus.WithField("tag", "ChartBroadcaster"),
	}
}

func (d *ChartBroadcaster) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		err := d.run(ctx)

		d.err = err

		// Releases d.err to readers of streamEnded (Golang memory model).
		d.streamEnded.Store(true)

		d.mutex.Lock()
		numSubmissions := d.numSubmissions
		d.mutex.Unlock()

		logger := d.logger.WithField("numSubmissions", numSubmissions)
		if err != nil {
			logger = logger.WithError(err)
		}
		logger.Info("chart broadcaster stream ended")
	}()
}

func (d *ChartBroadcaster) Wait() {
	d.wg.Wait()
}

func (d *ChartBroadcaster) Status() StreamStatus {
	if !d.streamEnded.Load() {
		return StreamStatus{}
	}

	status := StreamStatus{StreamEnded: true}
	if d.err != nil {
		status.Error = d.err.Error()
	}

	return status
}

// Returns the most recent submission, or false if nothing was rendered yet.
func (d *ChartBroadcaster) Latest() (ChartSubmission, bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.latest == nil {
		return ChartSubmission{}, false
	}

	return *d.latest, true
}

// Register a channel to receive submissions. Called from the HTTP server when
// a websocket connects.
//
//   - ctx: the HTTP call context.
//   - c: must be buffered. When a client falls behind, its oldest pending
//     submission is dropped in favour of the newest, so the broadcaster never
//     blocks on a slow client.
//
// The latest submission is pushed to c under the same lock that guards the
// broadcast, so the client neither misses nor repeats a submission.
func (d *ChartBroadcaster) RegisterChannel(ctx context.Context, c chan ChartSubmission) {
	traceCtx, task := trace.NewTask(ctx, "RegisterChannel")
	defer task.End()

	trace.WithRegion(traceCtx, "Lock", d.mutex.Lock)
	defer d.mutex.Unlock()

	if d.latest != nil {
		sendLatest(c, *d.latest)
	}

	d.channelsForLiveUpdate = append(d.channelsForLiveUpdate, c)

	d.metrics.WebsocketClients.Inc()
	d.logger.WithField("channels", len(d.channelsForLiveUpdate)).Info("registered channel")
}

// Deregister a channel. The channel must not be closed before this returns.
func (d *ChartBroadcaster) DeregisterChannel(ctx context.Context, c chan ChartSubmission) {
	traceCtx, task := trace.NewTask(ctx, "DeregisterChannel")
	defer task.End()

	trace.WithRegion(traceCtx, "Lock", d.mutex.Lock)
	defer d.mutex.Unlock()

	before := len(d.channelsForLiveUpdate)
	d.channelsForLiveUpdate = Filter(d.channelsForLiveUpdate, func(channel chan ChartSubmission) bool {
		return channel != c
	})

	if len(d.channelsForLiveUpdate) != before {
		d.metrics.WebsocketClients.Dec()
	}

	d.logger.WithField("channels", len(d.channelsForLiveUpdate)).Info("deregistered channel")
}

// StockChart caches the submission and broadcasts it.
func (d *ChartBroadcaster) StockChart(target string, options StockChartOptions) error {
	submission := ChartSubmission{Target: target, Options: options}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.latest = &submission
	d.numSubmissions++
	d.metrics.ChartSubmissions.Inc()

	for _, c := range d.channelsForLiveUpdate {
		sendLatest(c, submission)
	}

	return nil
}

func (d *ChartBroadcaster) run(ctx context.Context) error {
	var row ResourceRow
	var err error

	for {
		traceCtx, task := trace.NewTask(ctx, "ChartBroadcasterLoop")

		trace.WithRegion(traceCtx, "InputRead", func() {
			row, err = d.input.Read(traceCtx)
		})

		if err == errIgnoreThisRow {
			d.metrics.RowsIgnored.Inc()
			task.End()
			continue
		} else if err == io.EOF {
			// Keep the last submission around, new tabs may still open.
			task.End()
			return nil
		} else if err != nil {
			task.End()
			return err
		}

		d.metrics.RowsRead.Inc()
		d.window.Push(row)

		d.logger.WithFields(logrus.Fields{
			"timestamp": row.Timestamp,
			"cpu":       row.CPU,
			"ram":       row.RAM,
			"players":   row.Players,
		}).Debug("new resource row")

		trace.WithRegion(traceCtx, "Render", func() {
			cpu, ram, players := d.seriesSet.Build(d.window.ReadAllOrdered())
			err = RenderResourceChart(d, d.target, cpu, ram, players)
		})
		task.End()

		if err != nil {
			return err
		}
	}
}

// Only the broadcaster sends on registered channels and it holds the mutex
// while doing so, so after dropping one pending value there is room.
func sendLatest(c chan ChartSubmission, submission ChartSubmission) {
	select {
	case c <- submission:
		return
	default:
	}

	select {
	case <-c:
	default:
	}

	c <- submission
}
