package orchestrator_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	api "github.com/riskcanvas/analysis-client/api/v1alpha1"
	"github.com/riskcanvas/analysis-client/internal/client"
	"github.com/riskcanvas/analysis-client/internal/orchestrator"
	"github.com/riskcanvas/analysis-client/internal/session"
)

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func happyMock() *client.AnalysisMock {
	return &client.AnalysisMock{
		CreateJobFunc: func(ctx context.Context, params api.JobCreate) (*api.JobCreated, error) {
			return &api.JobCreated{JobID: "job-1"}, nil
		},
		StartStageFunc: func(ctx context.Context, jobID string, params api.StageStart) error {
			return nil
		},
		AdvanceStageFunc: func(ctx context.Context, jobID string, params api.StageAdvance) error {
			return nil
		},
		FetchResultFunc: func(ctx context.Context, jobID string) (*api.FinalResult, error) {
			return &api.FinalResult{JobID: jobID, Report: json.RawMessage(`{"risk":"low"}`)}, nil
		},
		RestoreStateFunc: func(ctx context.Context, jobID string) (*api.RestoreResponse, error) {
			return &api.RestoreResponse{Stage: api.RestoreStageInput}, nil
		},
		SendHeartbeatFunc: func(ctx context.Context, params api.Heartbeat) error {
			return nil
		},
	}
}

var _ = Describe("Orchestrator", func() {
	var (
		ctx     context.Context
		mock    *client.AnalysisMock
		channel *fakeChannel
		sleeps  *sleepRecorder
		orch    *orchestrator.Orchestrator
	)

	newOrchestrator := func(opts ...orchestrator.Option) *orchestrator.Orchestrator {
		opts = append([]orchestrator.Option{
			orchestrator.WithHeartbeatInterval(time.Hour),
			orchestrator.WithSleepFunc(sleeps.sleep),
		}, opts...)
		return orchestrator.New(mock, channel, opts...)
	}

	startJob := func() {
		jobID, err := orch.Create(ctx, "draft a lease risk review", nil)
		Expect(err).To(BeNil())
		Expect(jobID).To(Equal("job-1"))
	}

	completePreorg := func() {
		channel.emit(api.Event{
			Type:  api.EventStageCompleted,
			Stage: api.StagePreOrganization,
			Data:  json.RawMessage(`{"clauses":["liability"]}`),
		})
		Eventually(orch.State).Should(Equal(orchestrator.StateAwaitingChoice))
	}

	BeforeEach(func() {
		ctx = context.Background()
		mock = happyMock()
		channel = newFakeChannel()
		sleeps = &sleepRecorder{}
	})

	AfterEach(func() {
		if orch != nil {
			orch.Dispose()
			orch = nil
		}
	})

	Context("create", func() {
		It("rejects empty input and attachments without calling the server", func() {
			orch = newOrchestrator()

			_, err := orch.Create(ctx, "", nil)

			var verr *orchestrator.ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(mock.CreateJobCalls()).To(BeEmpty())
			Expect(orch.State()).To(Equal(orchestrator.StateIdle))
			Expect(orch.Snapshot()).To(Equal(session.NewSnapshot()))
		})

		It("surfaces job creation failures as transport errors", func() {
			mock.CreateJobFunc = func(ctx context.Context, params api.JobCreate) (*api.JobCreated, error) {
				return nil, fmt.Errorf("boom")
			}
			orch = newOrchestrator()

			_, err := orch.Create(ctx, "anything", nil)

			var terr *orchestrator.TransportError
			Expect(errors.As(err, &terr)).To(BeTrue())
			Expect(orch.State()).To(Equal(orchestrator.StateIdle))
		})

		It("creates the job, starts pre-organization and begins observing", func() {
			orch = newOrchestrator()

			startJob()

			Expect(orch.State()).To(Equal(orchestrator.StateObservingPreorg))
			Expect(channel.connects()).To(Equal(1))

			starts := mock.StartStageCalls()
			Expect(starts).To(HaveLen(1))
			Expect(starts[0].JobID).To(Equal("job-1"))
			Expect(starts[0].Params.StopAfter).To(Equal(api.StagePreOrganization))

			snap := orch.Snapshot()
			Expect(snap.JobID).To(Equal("job-1"))
			Expect(snap.Status).To(Equal(session.StatusUploading))
			Expect(snap.Stages.PreOrganization).To(Equal(api.StageStateProcessing))
		})

		It("rolls the snapshot back when the channel cannot be opened", func() {
			channel.setConnectErr(fmt.Errorf("connection refused"))
			orch = newOrchestrator()

			_, err := orch.Create(ctx, "anything", nil)

			var terr *orchestrator.TransportError
			Expect(errors.As(err, &terr)).To(BeTrue())
			Expect(orch.State()).To(Equal(orchestrator.StateIdle))
			Expect(orch.Snapshot()).To(Equal(session.NewSnapshot()))
		})

		It("rolls the snapshot back when starting the stage fails", func() {
			mock.StartStageFunc = func(ctx context.Context, jobID string, params api.StageStart) error {
				return fmt.Errorf("bad gateway")
			}
			orch = newOrchestrator()

			_, err := orch.Create(ctx, "anything", nil)

			var terr *orchestrator.TransportError
			Expect(errors.As(err, &terr)).To(BeTrue())
			Expect(orch.State()).To(Equal(orchestrator.StateIdle))
			Expect(orch.Snapshot()).To(Equal(session.NewSnapshot()))
			Expect(channel.lastHandle().isClosed()).To(BeTrue())
		})

		It("cannot create twice", func() {
			orch = newOrchestrator()
			startJob()

			_, err := orch.Create(ctx, "again", nil)

			var serr *orchestrator.InvalidStateError
			Expect(errors.As(err, &serr)).To(BeTrue())
		})
	})

	Context("pre-organization flow", func() {
		It("tracks progress and pauses for the mode choice", func() {
			orch = newOrchestrator()
			startJob()

			channel.emit(api.Event{
				Type:     api.EventStageProgress,
				Stage:    api.StagePreOrganization,
				Fraction: 0.5,
				Status:   api.StageStateProcessing,
				Message:  "organizing",
			})
			Eventually(func() int { return orch.Snapshot().Progress }).Should(Equal(50))

			completePreorg()

			snap := orch.Snapshot()
			Expect(snap.Status).To(Equal(session.StatusIdle))
			Expect(snap.Progress).To(Equal(100))
			Expect(snap.Stages.PreOrganization).To(Equal(api.StageStateCompleted))
			Expect(snap.Stages.ModelAnalysis).To(Equal(api.StageStatePending))
			Expect(snap.Stages.ReportGeneration).To(Equal(api.StageStatePending))
		})
	})

	Context("select mode", func() {
		It("is rejected outside the choice point and leaves the snapshot unchanged", func() {
			orch = newOrchestrator()
			startJob()
			before := orch.Snapshot()

			err := orch.SelectMode(ctx, "multi", nil)

			var serr *orchestrator.InvalidStateError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(mock.AdvanceStageCalls()).To(BeEmpty())
			Expect(orch.Snapshot()).To(Equal(before))
		})

		It("keeps awaiting the choice when the advance request fails", func() {
			mock.AdvanceStageFunc = func(ctx context.Context, jobID string, params api.StageAdvance) error {
				return fmt.Errorf("gateway timeout")
			}
			orch = newOrchestrator()
			startJob()
			completePreorg()

			err := orch.SelectMode(ctx, "multi", nil)

			var terr *orchestrator.TransportError
			Expect(errors.As(err, &terr)).To(BeTrue())
			Expect(orch.State()).To(Equal(orchestrator.StateAwaitingChoice))
			Expect(orch.Snapshot().Status).To(Equal(session.StatusIdle))
		})

		It("advances into analysis and finalizes on the terminal signal", func() {
			orch = newOrchestrator()
			startJob()
			completePreorg()

			Expect(orch.SelectMode(ctx, "multi", json.RawMessage(`{"stance":"strict"}`))).To(Succeed())
			Expect(orch.State()).To(Equal(orchestrator.StateObservingAnalysis))

			advances := mock.AdvanceStageCalls()
			Expect(advances).To(HaveLen(1))
			Expect(advances[0].Params.Mode).To(Equal("multi"))

			snap := orch.Snapshot()
			Expect(snap.Status).To(Equal(session.StatusAnalyzing))
			Expect(snap.Stages.ModelAnalysis).To(Equal(api.StageStateProcessing))

			channel.emit(api.Event{
				Type:     api.EventStageProgress,
				Stage:    api.StageModelAnalysis,
				Fraction: 1.0,
				Status:   api.StageStateProcessing,
			})
			// 100% alone never completes the job
			Eventually(func() int { return orch.Snapshot().Progress }).Should(Equal(100))
			Expect(orch.Snapshot().Status).To(Equal(session.StatusAnalyzing))

			channel.emit(api.Event{Type: api.EventTerminalComplete})

			Eventually(orch.State).Should(Equal(orchestrator.StateDone))
			snap = orch.Snapshot()
			Expect(snap.Status).To(Equal(session.StatusCompleted))
			Expect(snap.FinalResult).ToNot(BeNil())
			Expect(string(snap.FinalResult.Report)).To(MatchJSON(`{"risk":"low"}`))
			Expect(mock.FetchResultCalls()).To(HaveLen(1))
			Expect(orch.FinalizeErr()).To(BeNil())
		})
	})

	Context("redelivered events", func() {
		It("ignores a duplicate pre-organization completion after advancing", func() {
			orch = newOrchestrator()
			startJob()
			completePreorg()
			Expect(orch.SelectMode(ctx, "multi", nil)).To(Succeed())

			channel.emit(api.Event{
				Type:  api.EventStageCompleted,
				Stage: api.StagePreOrganization,
				Data:  json.RawMessage(`{"clauses":["liability"]}`),
			})
			channel.emit(api.Event{
				Type:     api.EventStageProgress,
				Stage:    api.StageModelAnalysis,
				Fraction: 0.25,
				Status:   api.StageStateProcessing,
			})

			Eventually(func() int { return orch.Snapshot().Progress }).Should(Equal(25))
			Expect(orch.State()).To(Equal(orchestrator.StateObservingAnalysis))
			Expect(orch.Snapshot().Status).To(Equal(session.StatusAnalyzing))
		})
	})

	Context("terminal error", func() {
		It("fails the snapshot verbatim and refuses further operations", func() {
			orch = newOrchestrator()
			startJob()
			completePreorg()
			Expect(orch.SelectMode(ctx, "multi", nil)).To(Succeed())

			channel.emit(api.Event{
				Type:    api.EventTerminalError,
				Message: "upstream model timeout",
			})

			Eventually(func() session.Status { return orch.Snapshot().Status }).Should(Equal(session.StatusFailed))
			Expect(orch.Snapshot().Message).To(Equal("upstream model timeout"))

			err := orch.SelectMode(ctx, "single", nil)
			var serr *orchestrator.InvalidStateError
			Expect(errors.As(err, &serr)).To(BeTrue())
		})
	})

	Context("finalize", func() {
		It("retries three times with linear backoff on transient not-ready", func() {
			mock.FetchResultFunc = func(ctx context.Context, jobID string) (*api.FinalResult, error) {
				return nil, client.ErrResultNotReady
			}
			orch = newOrchestrator()
			startJob()
			completePreorg()
			Expect(orch.SelectMode(ctx, "multi", nil)).To(Succeed())

			channel.emit(api.Event{Type: api.EventTerminalComplete})

			Eventually(orch.State).Should(Equal(orchestrator.StateDone))
			Expect(mock.FetchResultCalls()).To(HaveLen(3))
			Expect(sleeps.recorded()).To(Equal([]time.Duration{
				1 * time.Second,
				2 * time.Second,
				3 * time.Second,
			}))

			// completed but without a result; the failure is published
			// and exposed, and a manual retry is allowed
			snap := orch.Snapshot()
			Expect(snap.Status).To(Equal(session.StatusCompleted))
			Expect(snap.FinalResult).To(BeNil())
			Expect(snap.Message).ToNot(BeEmpty())

			var kept *orchestrator.FinalizeError
			Expect(errors.As(orch.FinalizeErr(), &kept)).To(BeTrue())

			err := orch.Finalize(ctx)
			var ferr *orchestrator.FinalizeError
			Expect(errors.As(err, &ferr)).To(BeTrue())
			Expect(mock.FetchResultCalls()).To(HaveLen(6))
		})

		It("does not retry non-transient fetch failures", func() {
			mock.FetchResultFunc = func(ctx context.Context, jobID string) (*api.FinalResult, error) {
				return nil, fmt.Errorf("internal server error")
			}
			orch = newOrchestrator()
			startJob()
			completePreorg()
			Expect(orch.SelectMode(ctx, "multi", nil)).To(Succeed())

			channel.emit(api.Event{Type: api.EventTerminalComplete})

			Eventually(orch.State).Should(Equal(orchestrator.StateDone))
			Expect(mock.FetchResultCalls()).To(HaveLen(1))
			Expect(sleeps.recorded()).To(BeEmpty())
		})

		It("is invalid before completion", func() {
			orch = newOrchestrator()
			startJob()

			err := orch.Finalize(ctx)
			var serr *orchestrator.InvalidStateError
			Expect(errors.As(err, &serr)).To(BeTrue())
		})
	})

	Context("restore", func() {
		It("maps an unknown job to NotFoundError", func() {
			mock.RestoreStateFunc = func(ctx context.Context, jobID string) (*api.RestoreResponse, error) {
				return nil, client.ErrJobNotFound
			}
			orch = newOrchestrator()

			err := orch.Restore(ctx, "job-gone")

			var nerr *orchestrator.NotFoundError
			Expect(errors.As(err, &nerr)).To(BeTrue())
			Expect(orch.State()).To(Equal(orchestrator.StateIdle))
		})

		It("re-enters the choice point from a preorg-completed checkpoint", func() {
			mock.RestoreStateFunc = func(ctx context.Context, jobID string) (*api.RestoreResponse, error) {
				return &api.RestoreResponse{
					Stage: api.RestoreStagePreorgCompleted,
					Data:  json.RawMessage(`{"clauses":["indemnity"]}`),
				}, nil
			}
			orch = newOrchestrator()

			Expect(orch.Restore(ctx, "job-1")).To(Succeed())

			Expect(orch.State()).To(Equal(orchestrator.StateAwaitingChoice))
			Expect(channel.connects()).To(Equal(1))

			snap := orch.Snapshot()
			Expect(snap.JobID).To(Equal("job-1"))
			Expect(snap.Status).To(Equal(session.StatusIdle))
			Expect(snap.Progress).To(Equal(100))
			Expect(snap.Stages.PreOrganization).To(Equal(api.StageStateCompleted))
			Expect(string(snap.Partial.Organized)).To(MatchJSON(`{"clauses":["indemnity"]}`))
		})

		It("fetches the result directly from an analysis-completed checkpoint", func() {
			mock.RestoreStateFunc = func(ctx context.Context, jobID string) (*api.RestoreResponse, error) {
				return &api.RestoreResponse{Stage: api.RestoreStageAnalysisCompleted}, nil
			}
			orch = newOrchestrator()

			Expect(orch.Restore(ctx, "job-1")).To(Succeed())

			Expect(orch.State()).To(Equal(orchestrator.StateDone))
			Expect(channel.connects()).To(Equal(0))
			Expect(mock.FetchResultCalls()).To(HaveLen(1))
			Expect(orch.Snapshot().FinalResult).ToNot(BeNil())
		})

		It("maps a failed checkpoint to a terminal failed snapshot", func() {
			mock.RestoreStateFunc = func(ctx context.Context, jobID string) (*api.RestoreResponse, error) {
				return &api.RestoreResponse{Stage: api.RestoreStageFailed, Message: "model crashed"}, nil
			}
			orch = newOrchestrator()

			Expect(orch.Restore(ctx, "job-1")).To(Succeed())

			Expect(orch.State()).To(Equal(orchestrator.StateDone))
			Expect(channel.connects()).To(Equal(0))
			snap := orch.Snapshot()
			Expect(snap.Status).To(Equal(session.StatusFailed))
			Expect(snap.Message).To(Equal("model crashed"))
		})

		It("is only allowed while idle", func() {
			orch = newOrchestrator()
			startJob()

			err := orch.Restore(ctx, "job-2")
			var serr *orchestrator.InvalidStateError
			Expect(errors.As(err, &serr)).To(BeTrue())
		})
	})

	Context("reconnect", func() {
		It("redials the channel and resyncs from the server checkpoint", func() {
			mock.RestoreStateFunc = func(ctx context.Context, jobID string) (*api.RestoreResponse, error) {
				return &api.RestoreResponse{Stage: api.RestoreStageAnalysisInProgress}, nil
			}
			orch = newOrchestrator()
			startJob()

			channel.emit(api.Event{Type: api.EventTransportError, Message: "connection reset"})

			Eventually(channel.connects).Should(Equal(2))
			Eventually(orch.State).Should(Equal(orchestrator.StateObservingAnalysis))
			Expect(mock.RestoreStateCalls()).ToNot(BeEmpty())
			Expect(orch.Snapshot().Status).To(Equal(session.StatusAnalyzing))
		})

		It("does not resume on stale history when the resync keeps failing", func() {
			mock.RestoreStateFunc = func(ctx context.Context, jobID string) (*api.RestoreResponse, error) {
				return nil, fmt.Errorf("gateway timeout")
			}
			orch = newOrchestrator()
			startJob()

			channel.emit(api.Event{Type: api.EventTransportError, Message: "connection reset"})

			Eventually(orch.State).Should(Equal(orchestrator.StateDone))
			// every redial succeeded but burned its attempt on the resync
			Expect(channel.connects()).To(Equal(4))
			Expect(mock.RestoreStateCalls()).To(HaveLen(3))
			Expect(channel.lastHandle().isClosed()).To(BeTrue())
			Expect(orch.Snapshot().Status).To(Equal(session.StatusFailed))
		})

		It("fails the snapshot once redial attempts are exhausted", func() {
			orch = newOrchestrator()
			startJob()

			channel.setConnectErr(fmt.Errorf("connection refused"))
			channel.emit(api.Event{Type: api.EventTransportError, Message: "connection reset"})

			Eventually(orch.State).Should(Equal(orchestrator.StateDone))
			snap := orch.Snapshot()
			Expect(snap.Status).To(Equal(session.StatusFailed))
			Expect(snap.Message).ToNot(BeEmpty())
		})
	})

	Context("heartbeat", func() {
		It("reports liveness with the live flag up while connected", func() {
			orch = orchestrator.New(mock, channel,
				orchestrator.WithHeartbeatInterval(20*time.Millisecond),
				orchestrator.WithSleepFunc(sleeps.sleep),
			)
			startJob()

			Eventually(func() int { return len(mock.SendHeartbeatCalls()) }).Should(BeNumerically(">=", 2))
			beat := mock.SendHeartbeatCalls()[0]
			Expect(beat.Params.JobID).To(Equal("job-1"))
			Expect(beat.Params.LiveConnected).To(BeTrue())
		})

		It("sends one final heartbeat with the live flag down on dispose", func() {
			orch = newOrchestrator()
			startJob()
			handle := channel.lastHandle()

			orch.Dispose()

			beats := mock.SendHeartbeatCalls()
			Expect(beats).ToNot(BeEmpty())
			last := beats[len(beats)-1]
			Expect(last.Params.LiveConnected).To(BeFalse())
			Expect(handle.isClosed()).To(BeTrue())
			orch = nil
		})
	})
})
