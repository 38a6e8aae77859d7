package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/ecowitt-ingest/internal/dispatch"
	"github.com/couchcryptid/ecowitt-ingest/internal/domain"
	"github.com/couchcryptid/ecowitt-ingest/internal/observability"
	"github.com/couchcryptid/ecowitt-ingest/internal/registry"
)

// Transformer converts a raw station upload into a normalized record.
type Transformer interface {
	Transform(raw domain.RawRecord) domain.Result
}

// SensorObserver records the fields of a normalized record as sensors.
type SensorObserver interface {
	ObserveRecord(rec *domain.Record, wall time.Time, mono time.Duration) []registry.Sensor
}

// Dispatcher hands a finished report to subscribers.
type Dispatcher interface {
	Dispatch(ctx context.Context, r domain.Report) []dispatch.Result
}

// Pipeline orchestrates the normalize-observe-dispatch flow for each upload.
type Pipeline struct {
	transformer Transformer
	sensors     SensorObserver
	dispatcher  Dispatcher
	logger      *slog.Logger
	metrics     *observability.Metrics

	// mu serializes normalization and the registry update per report.
	mu   sync.Mutex
	last atomic.Pointer[domain.Report]

	ready     atomic.Bool
	readyCh   chan struct{}
	readyOnce sync.Once
}

// New creates a Pipeline with the given stages and observability.
func New(t Transformer, s SensorObserver, d Dispatcher, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		transformer: t,
		sensors:     s,
		dispatcher:  d,
		logger:      logger,
		metrics:     metrics,
		readyCh:     make(chan struct{}),
	}
}

// CheckReadiness returns nil once the pipeline has processed a report,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no station report received yet")
	}
	return nil
}

// Ready reports whether at least one report has been processed.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// WaitForData blocks until the first report has been processed or ctx ends.
func (p *Pipeline) WaitForData(ctx context.Context) error {
	select {
	case <-p.readyCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ingest normalizes raw, updates the sensor registry and delivers the
// report to subscribers. Normalization of concurrent uploads is serialized;
// dispatch runs after the lock is released so a slow subscriber only delays
// its own upload.
func (p *Pipeline) Ingest(ctx context.Context, raw domain.RawRecord) domain.Report {
	report := p.normalize(raw)
	p.markReady()

	results := p.dispatcher.Dispatch(ctx, report)
	p.logger.Debug("report dispatched",
		"report_id", report.ID,
		"subscribers", len(results),
	)
	return report
}

func (p *Pipeline) normalize(raw domain.RawRecord) domain.Report {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	res := p.transformer.Transform(raw)
	p.logFieldIssues(res)

	report := domain.NewReport(res.Record)
	discovered := p.sensors.ObserveRecord(report.Fields, report.ReceivedAt, report.Uptime)
	p.last.Store(&report)

	p.metrics.ReportsReceived.Inc()
	p.metrics.FieldDecodeErrors.Add(float64(len(res.Errors)))
	p.metrics.UnrecognizedFields.Add(float64(len(res.Unrecognized)))
	p.metrics.LastReportTimestamp.Set(float64(report.ReceivedAt.Unix()))
	p.metrics.NormalizeDuration.Observe(time.Since(start).Seconds())

	p.logger.Debug("report normalized",
		"report_id", report.ID,
		"station", report.Station.ID(),
		"fields_in", len(raw),
		"fields_out", report.Fields.Len(),
		"decode_errors", len(res.Errors),
		"discovered", len(discovered),
	)
	return report
}

// logFieldIssues logs decode failures. Empty values are routine for sensors
// without a reading and only logged at debug.
func (p *Pipeline) logFieldIssues(res domain.Result) {
	for _, fe := range res.Errors {
		if errors.Is(fe.Err, domain.ErrEmptyValue) {
			p.logger.Debug("field has no value, kept as text", "key", fe.Key)
			continue
		}
		p.logger.Warn("field decode failed, kept as text",
			"key", fe.Key,
			"raw", fe.Raw,
			"error", fe.Err,
		)
	}
}

func (p *Pipeline) markReady() {
	p.readyOnce.Do(func() {
		p.ready.Store(true)
		p.metrics.PipelineReady.Set(1)
		close(p.readyCh)
		p.logger.Info("first station report received")
	})
}

// LastReport returns the most recently processed report.
func (p *Pipeline) LastReport() (domain.Report, bool) {
	r := p.last.Load()
	if r == nil {
		return domain.Report{}, false
	}
	return *r, true
}

// Station returns the metadata of the most recent report.
func (p *Pipeline) Station() (domain.Station, bool) {
	r := p.last.Load()
	if r == nil {
		return domain.Station{}, false
	}
	return r.Station, true
}
