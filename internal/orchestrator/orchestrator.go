// Package orchestrator drives one risk analysis job end-to-end: create the
// job, observe its stages over the live channel, pause at the mode choice,
// and fetch the final result once the server signals completion. All state
// lives in the session store; all transitions go through the session
// reconciler on a single serialized timeline per orchestrator.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"

	api "github.com/riskcanvas/analysis-client/api/v1alpha1"
	"github.com/riskcanvas/analysis-client/internal/client"
	"github.com/riskcanvas/analysis-client/internal/session"
	"github.com/riskcanvas/analysis-client/internal/transport"
	"github.com/riskcanvas/analysis-client/pkg/metrics"
)

// State is the orchestrator's own lifecycle, one step ahead of the coarse
// snapshot status.
type State string

const (
	StateIdle              State = "idle"
	StateCreating          State = "creating"
	StateObservingPreorg   State = "observing-preorg"
	StateAwaitingChoice    State = "awaiting-choice"
	StateObservingAnalysis State = "observing-analysis"
	StateFinalizing        State = "finalizing"
	StateDone              State = "done"
)

const (
	// DefaultHeartbeatInterval is how often liveness is reported while a
	// job is active. The server uses it to decide whether to keep a
	// paused job warm or reap it.
	DefaultHeartbeatInterval = 30 * time.Second

	defaultHeartbeatTimeout = 5 * time.Second

	// finalizeAttempts bounds the result fetch retry. The only client-side
	// timeout in the whole lifecycle: observation itself never times out.
	finalizeAttempts = 3

	// reconnectAttempts bounds how often a broken channel is redialed
	// before the loss surfaces on the snapshot.
	reconnectAttempts = 3
)

// SleepFunc waits for d or until ctx is done. Injectable for tests.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type Option func(*Orchestrator)

func WithHeartbeatInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.heartbeatInterval = d
	}
}

func WithSleepFunc(fn SleepFunc) Option {
	return func(o *Orchestrator) {
		o.sleep = fn
	}
}

// Orchestrator owns one job's session store and at most one live channel
// handle. Construct one per job and Dispose it when done; there is no shared
// package-level state.
type Orchestrator struct {
	client   client.Analysis
	channel  transport.Channel
	store    *session.Store
	validate *validator.Validate
	log      *zap.SugaredLogger

	heartbeatInterval time.Duration
	sleep             SleepFunc

	runCtx    context.Context
	runCancel context.CancelFunc
	evCh      chan api.Event
	wg        sync.WaitGroup

	mu          sync.Mutex
	state       State
	jobID       string
	handle      transport.Handle
	hbStarted   bool
	disposed    bool
	finalizeErr error
}

func New(analysisClient client.Analysis, channel transport.Channel, opts ...Option) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		client:            analysisClient,
		channel:           channel,
		store:             session.NewStore(),
		validate:          validator.New(),
		log:               zap.S().Named("orchestrator"),
		heartbeatInterval: DefaultHeartbeatInterval,
		sleep:             defaultSleep,
		runCtx:            ctx,
		runCancel:         cancel,
		evCh:              make(chan api.Event, 64),
		state:             StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.wg.Add(1)
	go o.run()
	return o
}

// State returns the orchestrator state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// JobID returns the bound job identifier, empty before Create/Restore.
func (o *Orchestrator) JobID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.jobID
}

// Snapshot returns a copy of the current session snapshot.
func (o *Orchestrator) Snapshot() session.Snapshot {
	return o.store.Current()
}

// FinalizeErr reports why a completed job has no stored result, nil when the
// result is stored or finalize has not run. Calling Finalize resets it.
func (o *Orchestrator) FinalizeErr() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.finalizeErr
}

// Watch streams snapshot changes until ctx is done.
func (o *Orchestrator) Watch(ctx context.Context) <-chan session.Snapshot {
	return o.store.Watch(ctx)
}

type createInput struct {
	Input          string   `validate:"required_without=AttachmentRefs"`
	AttachmentRefs []string `validate:"required_without=Input"`
}

// Create registers a new job from the given input and attachment references,
// asks the server to run it up to the end of pre-organization, and begins
// live observation. Returns the new job identifier.
func (o *Orchestrator) Create(ctx context.Context, input string, attachmentRefs []string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateIdle {
		return "", &InvalidStateError{Op: "create", State: o.state}
	}
	if err := o.validate.Struct(createInput{Input: input, AttachmentRefs: attachmentRefs}); err != nil {
		return "", &ValidationError{Reason: "input and attachments are both empty"}
	}

	o.state = StateCreating
	created, err := o.client.CreateJob(ctx, api.JobCreate{Input: input, AttachmentRefs: attachmentRefs})
	if err != nil {
		o.state = StateIdle
		return "", &TransportError{Op: "create job", Err: err}
	}

	o.jobID = created.JobID
	o.store.Update(func(snap session.Snapshot) session.Snapshot {
		return session.BindJob(snap, created.JobID)
	})

	// Connect before starting so no early event is missed.
	handle, err := o.channel.Connect(o.runCtx, o.jobID, o.postEvent)
	if err != nil {
		o.rollbackCreateLocked()
		return created.JobID, &TransportError{Op: "open live channel", Err: err}
	}
	if err := o.client.StartStage(ctx, o.jobID, api.StageStart{StopAfter: api.StagePreOrganization}); err != nil {
		_ = handle.Close()
		o.rollbackCreateLocked()
		return created.JobID, &TransportError{Op: "start stage", Err: err}
	}

	o.handle = handle
	o.state = StateObservingPreorg
	o.ensureHeartbeatLocked()
	o.log.Infof("created job %s, observing pre-organization", o.jobID)
	return created.JobID, nil
}

// rollbackCreateLocked undoes a half-finished create so observers do not see
// a bound job nothing is driving anymore.
func (o *Orchestrator) rollbackCreateLocked() {
	o.jobID = ""
	o.state = StateIdle
	o.store.Reset()
}

// SelectMode resumes a job paused after pre-organization with the chosen
// analysis mode. Valid only while awaiting the choice; from any other state
// it fails without touching the snapshot.
func (o *Orchestrator) SelectMode(ctx context.Context, mode string, params json.RawMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateAwaitingChoice {
		return &InvalidStateError{Op: "select mode", State: o.state}
	}
	if err := o.client.AdvanceStage(ctx, o.jobID, api.StageAdvance{Mode: mode, Params: params}); err != nil {
		return &TransportError{Op: "advance stage", Err: err}
	}

	o.store.Update(session.BeginAnalysis)
	o.state = StateObservingAnalysis
	o.log.Infof("job %s advancing with mode %q", o.jobID, mode)
	return nil
}

// Restore rebuilds state for a known job from the server's checkpoint instead
// of replayed events, then resumes observation where the checkpoint left off.
// Returns NotFoundError when the server no longer knows the job; persisted
// references to it should then be discarded.
func (o *Orchestrator) Restore(ctx context.Context, jobID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateIdle {
		return &InvalidStateError{Op: "restore", State: o.state}
	}

	resp, err := o.client.RestoreState(ctx, jobID)
	if err != nil {
		if errors.Is(err, client.ErrJobNotFound) {
			return &NotFoundError{JobID: jobID}
		}
		return &TransportError{Op: "restore", Err: err}
	}

	o.jobID = jobID
	if resp.Stage != api.RestoreStageFailed && resp.Stage != api.RestoreStageAnalysisCompleted {
		handle, err := o.channel.Connect(o.runCtx, jobID, o.postEvent)
		if err != nil {
			o.jobID = ""
			return &TransportError{Op: "open live channel", Err: err}
		}
		o.handle = handle
	}

	if err := o.applyRestoreLocked(*resp); err != nil {
		return err
	}
	if o.state != StateDone {
		o.ensureHeartbeatLocked()
	}
	o.log.Infof("restored job %s at checkpoint %q", jobID, resp.Stage)
	return nil
}

// Finalize retries the result fetch for a completed job whose automatic
// finalize failed. A convenience over the internal path; same bounded retry.
func (o *Orchestrator) Finalize(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := o.store.Current()
	if snap.Status != session.StatusCompleted || snap.FinalResult != nil {
		return &InvalidStateError{Op: "finalize", State: o.state}
	}
	return o.finalizeLocked(ctx)
}

// Dispose stops observation: one last heartbeat with the live flag down, then
// the channel, the heartbeat loop and the event loop are torn down. It does
// not abort server-side work. Idempotent.
func (o *Orchestrator) Dispose() {
	o.mu.Lock()
	if o.disposed {
		o.mu.Unlock()
		return
	}
	o.disposed = true
	jobID := o.jobID
	state := o.state
	if o.handle != nil {
		_ = o.handle.Close()
		o.handle = nil
	}
	o.mu.Unlock()

	if jobID != "" && state != StateIdle && state != StateDone {
		ctx, cancel := context.WithTimeout(context.Background(), defaultHeartbeatTimeout)
		if err := o.client.SendHeartbeat(ctx, api.Heartbeat{JobID: jobID, LiveConnected: false}); err != nil {
			o.log.Warnf("final heartbeat for job %s failed: %v", jobID, err)
		}
		cancel()
	}

	o.runCancel()
	o.wg.Wait()
	o.log.Infof("orchestrator for job %q disposed", jobID)
}

func (o *Orchestrator) postEvent(ev api.Event) {
	select {
	case o.evCh <- ev:
	case <-o.runCtx.Done():
	}
}

func (o *Orchestrator) run() {
	defer o.wg.Done()
	for {
		select {
		case <-o.runCtx.Done():
			return
		case ev := <-o.evCh:
			o.handleEvent(ev)
		}
	}
}

func (o *Orchestrator) handleEvent(ev api.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	// late events after terminal or dispose
	if o.state == StateIdle || o.state == StateDone || o.disposed {
		return
	}
	metrics.IncreaseChannelEventsTotalMetric(string(ev.Type))

	switch ev.Type {
	case api.EventTransportError:
		o.reconnectLocked()

	case api.EventTerminalComplete:
		// Completion is trusted only from this explicit signal, never
		// inferred from progress. The result travels out-of-band.
		o.store.Update(session.MarkCompleted)
		if err := o.finalizeLocked(o.runCtx); err != nil {
			o.log.Errorf("finalize for job %s: %v", o.jobID, err)
			// publish the failure so watchers are not left waiting on
			// a snapshot that would otherwise never change again
			o.store.Update(func(snap session.Snapshot) session.Snapshot {
				return session.NoteResultMissing(snap, err.Error())
			})
		}

	case api.EventTerminalError:
		// state first: watchers seeing the failed snapshot must already
		// observe the terminal orchestrator state
		o.state = StateDone
		o.stopObservationLocked()
		o.store.Update(func(snap session.Snapshot) session.Snapshot {
			return session.Apply(snap, ev)
		})
		o.log.Warnf("job %s failed: %s", o.jobID, ev.Message)

	case api.EventStageCompleted:
		if ev.Stage == api.StagePreOrganization && o.state == StateObservingPreorg {
			o.state = StateAwaitingChoice
			o.log.Infof("job %s paused, awaiting mode choice", o.jobID)
		}
		o.store.Update(func(snap session.Snapshot) session.Snapshot {
			return session.Apply(snap, ev)
		})

	default:
		o.store.Update(func(snap session.Snapshot) session.Snapshot {
			return session.Apply(snap, ev)
		})
	}
}

// finalizeLocked fetches the final result with bounded linear backoff. Only
// the transient not-ready response is retried.
func (o *Orchestrator) finalizeLocked(ctx context.Context) error {
	o.state = StateFinalizing

	var lastErr error
	for attempt := 1; attempt <= finalizeAttempts; attempt++ {
		metrics.IncreaseFinalizeAttemptsTotalMetric()
		result, err := o.client.FetchResult(ctx, o.jobID)
		if err == nil {
			o.state = StateDone
			o.finalizeErr = nil
			o.stopObservationLocked()
			o.store.Update(func(snap session.Snapshot) session.Snapshot {
				return session.AttachResult(snap, *result)
			})
			o.log.Infof("job %s completed, result stored", o.jobID)
			return nil
		}
		if !errors.Is(err, client.ErrResultNotReady) {
			return o.failFinalizeLocked(&FinalizeError{Attempts: attempt, Err: err})
		}
		lastErr = err
		if err := o.sleep(ctx, time.Duration(attempt)*time.Second); err != nil {
			return o.failFinalizeLocked(&FinalizeError{Attempts: attempt, Err: err})
		}
	}

	return o.failFinalizeLocked(&FinalizeError{Attempts: finalizeAttempts, Err: lastErr})
}

func (o *Orchestrator) failFinalizeLocked(ferr *FinalizeError) error {
	o.state = StateDone
	o.finalizeErr = ferr
	o.stopObservationLocked()
	return ferr
}

// reconnectLocked redials a broken channel a bounded number of times. A
// reconnect is a potential event gap, so on success the snapshot is rebuilt
// from the server checkpoint rather than trusting accumulated history.
func (o *Orchestrator) reconnectLocked() {
	if o.handle != nil {
		_ = o.handle.Close()
		o.handle = nil
	}

	var lastErr error
	for attempt := 1; attempt <= reconnectAttempts; attempt++ {
		metrics.IncreaseChannelReconnectsTotalMetric()
		if err := o.sleep(o.runCtx, time.Duration(attempt)*time.Second); err != nil {
			return
		}
		handle, err := o.channel.Connect(o.runCtx, o.jobID, o.postEvent)
		if err != nil {
			lastErr = err
			o.log.Warnf("reconnect %d/%d for job %s failed: %v", attempt, reconnectAttempts, o.jobID, err)
			continue
		}

		// The gap may have invalidated everything observed before the
		// break, so the dial only counts once the checkpoint is
		// refetched. A failed resync burns the attempt.
		resp, err := o.client.RestoreState(o.runCtx, o.jobID)
		if err != nil {
			lastErr = err
			_ = handle.Close()
			o.log.Warnf("resync after reconnect %d/%d for job %s failed: %v", attempt, reconnectAttempts, o.jobID, err)
			continue
		}
		o.handle = handle
		// Reset so the restore mapping can re-enter whatever state the
		// server reports.
		o.state = StateIdle
		if err := o.applyRestoreLocked(*resp); err != nil {
			o.log.Errorf("finalize after resync for job %s: %v", o.jobID, err)
		}
		return
	}

	terr := &TransportError{Op: "reconnect", Err: lastErr}
	o.state = StateDone
	o.store.Update(func(snap session.Snapshot) session.Snapshot {
		return session.MarkFailed(snap, terr.Error())
	})
	o.log.Errorf("job %s: live channel lost for good: %v", o.jobID, lastErr)
}

// applyRestoreLocked installs the reconciler's restore mapping wholesale and
// re-enters the matching orchestrator state.
func (o *Orchestrator) applyRestoreLocked(resp api.RestoreResponse) error {
	snap := session.FromRestore(o.jobID, resp)

	switch resp.Stage {
	case api.RestoreStageInput, api.RestoreStagePreorgInProgress:
		o.state = StateObservingPreorg
	case api.RestoreStagePreorgCompleted:
		o.state = StateAwaitingChoice
	case api.RestoreStageAnalysisInProgress:
		o.state = StateObservingAnalysis
	case api.RestoreStageAnalysisCompleted:
		o.store.Update(func(session.Snapshot) session.Snapshot {
			return snap
		})
		return o.finalizeLocked(o.runCtx)
	case api.RestoreStageFailed:
		o.state = StateDone
		o.stopObservationLocked()
	}

	o.store.Update(func(session.Snapshot) session.Snapshot {
		return snap
	})
	return nil
}

func (o *Orchestrator) stopObservationLocked() {
	if o.handle != nil {
		_ = o.handle.Close()
		o.handle = nil
	}
}

func (o *Orchestrator) ensureHeartbeatLocked() {
	if o.hbStarted || o.jobID == "" {
		return
	}
	o.hbStarted = true
	o.wg.Add(1)
	go o.heartbeatLoop()
}

// heartbeatLoop reports liveness on a jittered interval for as long as the
// job is active. Failures are logged, never escalated to a state transition.
func (o *Orchestrator) heartbeatLoop() {
	defer o.wg.Done()

	ticker := jitterbug.New(o.heartbeatInterval, &jitterbug.Norm{Stdev: o.heartbeatInterval / 100, Mean: 0})
	defer ticker.Stop()

	for {
		select {
		case <-o.runCtx.Done():
			return
		case <-ticker.C:
		}

		o.mu.Lock()
		jobID := o.jobID
		state := o.state
		live := o.handle != nil
		o.mu.Unlock()

		if jobID == "" || state == StateIdle || state == StateDone {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), defaultHeartbeatTimeout)
		if err := o.client.SendHeartbeat(ctx, api.Heartbeat{JobID: jobID, LiveConnected: live}); err != nil {
			metrics.IncreaseHeartbeatFailuresTotalMetric()
			o.log.Warnf("heartbeat for job %s failed: %v", jobID, err)
		}
		cancel()
	}
}
