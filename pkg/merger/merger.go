// Package merger runs remote analysis requests in the background and keeps
// only the answer to the most recently issued one.
package merger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/helmcode/labs-ai/pkg/model"
	"github.com/sirupsen/logrus"
)

var (
	ErrRemoteAnalysis = errors.New("remote analysis failed")
	ErrTimeout        = errors.New("remote analysis timed out")
	ErrStaleResponse  = errors.New("stale analysis response discarded")
)

const DefaultTimeout = 30 * time.Second

// Service produces a narrative analysis for one panel.
type Service interface {
	Analyze(ctx context.Context, panel model.Panel) (*model.RemoteAnalysis, error)
}

// Outcome is delivered once per request.
type Outcome struct {
	Seq       uint64
	RequestID string
	Result    *model.RemoteAnalysis
	Err       error
	Stale     bool
}

// Failure is the dismissible notice left by the latest failed request.
type Failure struct {
	Seq       uint64    `json:"seq" yaml:"seq"`
	RequestID string    `json:"request_id" yaml:"request_id"`
	Message   string    `json:"message" yaml:"message"`
	Timeout   bool      `json:"timeout" yaml:"timeout"`
	At        time.Time `json:"at" yaml:"at"`
	err       error
}

func (f *Failure) Err() error {
	return f.err
}

// Snapshot is what a presentation layer shows at one moment.
type Snapshot struct {
	Seq       uint64                `json:"seq" yaml:"seq"`
	Pending   bool                  `json:"pending" yaml:"pending"`
	Result    *model.RemoteAnalysis `json:"result,omitempty" yaml:"result,omitempty"`
	LastError *Failure              `json:"last_error,omitempty" yaml:"last_error,omitempty"`
}

type Merger struct {
	svc     Service
	timeout time.Duration
	logger  *logrus.Logger
	now     func() time.Time

	mu      sync.Mutex
	seq     uint64
	pending bool
	cancel  context.CancelFunc
	current *model.RemoteAnalysis
	lastErr *Failure

	wg sync.WaitGroup
}

func New(svc Service, timeout time.Duration, logger *logrus.Logger) *Merger {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Merger{
		svc:     svc,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Request starts an analysis of panel and returns immediately. Issuing a new
// request supersedes and cancels the one in flight; whatever the superseded
// request eventually returns is discarded.
func (m *Merger) Request(ctx context.Context, panel model.Panel) <-chan Outcome {
	reqCtx, cancel := context.WithTimeout(ctx, m.timeout)

	m.mu.Lock()
	m.seq++
	seq := m.seq
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = cancel
	m.pending = true
	m.mu.Unlock()

	requestID := uuid.New().String()
	m.logger.WithFields(logrus.Fields{
		"seq":        seq,
		"request_id": requestID,
		"panel_date": panel.Date.Format(model.DateLayout),
	}).Debug("Requesting remote analysis")

	out := make(chan Outcome, 1)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		defer close(out)

		result, err := m.svc.Analyze(reqCtx, panel)
		out <- m.resolve(reqCtx, seq, requestID, result, err)
	}()
	return out
}

func (m *Merger) resolve(ctx context.Context, seq uint64, requestID string, result *model.RemoteAnalysis, err error) Outcome {
	timedOut := false
	switch {
	case err != nil && errors.Is(err, ErrTimeout):
		timedOut = true
	case err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		timedOut = true
		err = fmt.Errorf("%w after %s: %w", ErrTimeout, m.timeout, err)
	case err != nil && !errors.Is(err, ErrRemoteAnalysis):
		err = fmt.Errorf("%w: %w", ErrRemoteAnalysis, err)
	case err == nil && result == nil:
		err = fmt.Errorf("%w: empty result", ErrRemoteAnalysis)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	fields := logrus.Fields{"seq": seq, "request_id": requestID}
	if seq != m.seq {
		m.logger.WithFields(fields).WithField("latest_seq", m.seq).Debug(ErrStaleResponse.Error())
		return Outcome{Seq: seq, RequestID: requestID, Err: ErrStaleResponse, Stale: true}
	}

	m.pending = false
	m.cancel = nil

	if err != nil {
		m.lastErr = &Failure{
			Seq:       seq,
			RequestID: requestID,
			Message:   err.Error(),
			Timeout:   timedOut,
			At:        m.now(),
			err:       err,
		}
		m.logger.WithFields(fields).WithError(err).Warn("Remote analysis failed, keeping previous result")
		return Outcome{Seq: seq, RequestID: requestID, Err: err}
	}

	merged := result.Clone()
	merged.RequestID = requestID
	if merged.AnalyzedAt.IsZero() {
		merged.AnalyzedAt = m.now()
	}
	m.current = merged
	m.lastErr = nil

	m.logger.WithFields(fields).WithField("risks", len(merged.Risks)).Debug("Remote analysis merged")
	return Outcome{Seq: seq, RequestID: requestID, Result: merged.Clone()}
}

// Current returns a copy of the displayed analysis, or nil if none has succeeded yet.
func (m *Merger) Current() *model.RemoteAnalysis {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Clone()
}

func (m *Merger) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

func (m *Merger) LastError() *Failure {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastErr == nil {
		return nil
	}
	f := *m.lastErr
	return &f
}

// DismissError clears the failure notice without touching the displayed result.
func (m *Merger) DismissError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = nil
}

func (m *Merger) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{Seq: m.seq, Pending: m.pending, Result: m.current.Clone()}
	if m.lastErr != nil {
		f := *m.lastErr
		s.LastError = &f
	}
	return s
}

// Close cancels any request in flight and waits for background work to finish.
func (m *Merger) Close() {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}
