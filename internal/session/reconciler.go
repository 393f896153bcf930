package session

import (
	"encoding/json"
	"math"

	api "github.com/riskcanvas/analysis-client/api/v1alpha1"
)

// The reconciler is the only code that produces new snapshot values. Every
// function here is pure: same inputs, same output, no I/O.

// Apply maps one inbound channel event to the next snapshot. Events against a
// failed job are ignored. terminal-complete is deliberately a no-op here: the
// result is fetched out-of-band and completion is applied by the orchestrator
// once the fetch is underway.
func Apply(snap Snapshot, ev api.Event) Snapshot {
	if snap.Status == StatusFailed {
		return snap
	}

	switch ev.Type {
	case api.EventStageProgress:
		// Wholesale replace. Progress reported by the server is trusted
		// as-is, even if it goes backwards.
		snap.Progress = int(math.Round(ev.Fraction * 100))
		snap.Message = ev.Message
		if ev.Stage != "" && ev.Status != "" {
			snap.Stages = snap.Stages.with(ev.Stage, ev.Status)
		}

	case api.EventStageCompleted:
		// The channel may redeliver. Once the job moved past the
		// upload/pre-organization phase this event changes nothing:
		// status never moves backwards except to failed.
		if ev.Stage != api.StagePreOrganization || snap.Status != StatusUploading {
			return snap
		}
		snap.Stages = snap.Stages.with(api.StagePreOrganization, api.StageStateCompleted)
		snap.Partial.Organized = append(json.RawMessage(nil), ev.Data...)
		snap.Progress = 100
		// The job is paused on the server awaiting the mode choice.
		snap.Status = StatusIdle

	case api.EventTerminalError:
		snap.Status = StatusFailed
		snap.Message = ev.Message

	case api.EventComparisonUpdate:
		snap.Partial.Comparison = append(json.RawMessage(nil), ev.Data...)

	case api.EventDiagramUpdate:
		snap.Partial.Diagrams = append(snap.Partial.Diagrams, append(json.RawMessage(nil), ev.Data...))
	}

	return snap
}

// BindJob records the identifier of a freshly created job and moves the
// snapshot into the upload/pre-organization phase.
func BindJob(snap Snapshot, jobID string) Snapshot {
	snap.JobID = jobID
	snap.Status = StatusUploading
	snap.Stages = allPending().with(api.StagePreOrganization, api.StageStateProcessing)
	return snap
}

// BeginAnalysis moves a job paused after pre-organization into the
// model-analysis phase. Requires a bound job.
func BeginAnalysis(snap Snapshot) Snapshot {
	if snap.JobID == "" {
		return snap
	}
	snap.Status = StatusAnalyzing
	snap.Progress = 0
	snap.Stages = snap.Stages.with(api.StageModelAnalysis, api.StageStateProcessing)
	return snap
}

// MarkCompleted applies an explicit terminal-complete signal. Progress alone
// never gets here; only the orchestrator calls this, on a terminal event or
// an analysis-completed restore.
func MarkCompleted(snap Snapshot) Snapshot {
	if snap.JobID == "" {
		return snap
	}
	snap.Status = StatusCompleted
	snap.Progress = 100
	snap.Stages = StageStatus{
		PreOrganization:  api.StageStateCompleted,
		ModelAnalysis:    api.StageStateCompleted,
		ReportGeneration: api.StageStateCompleted,
	}
	return snap
}

// MarkFailed moves the job to the terminal failed status with a message.
// Used for client-detected failures such as an unrecoverable channel loss.
func MarkFailed(snap Snapshot, message string) Snapshot {
	snap.Status = StatusFailed
	snap.Message = message
	if snap.Message == "" {
		snap.Message = "analysis failed"
	}
	return snap
}

// AttachResult stores the fetched final result. Set at most once and only on
// a completed snapshot.
func AttachResult(snap Snapshot, result api.FinalResult) Snapshot {
	if snap.Status != StatusCompleted || snap.FinalResult != nil {
		return snap
	}
	r := result
	r.Report = append(json.RawMessage(nil), result.Report...)
	snap.FinalResult = &r
	return snap
}

// NoteResultMissing records why a completed job still has no stored result,
// so observers are not left staring at a snapshot that will never change.
func NoteResultMissing(snap Snapshot, message string) Snapshot {
	if snap.Status != StatusCompleted || snap.FinalResult != nil {
		return snap
	}
	snap.Message = message
	return snap
}

// FromRestore maps a restore response to a complete snapshot. The mapping is
// total over the checkpoint enum and never merges with prior client state:
// restoring twice from the same response yields identical snapshots.
func FromRestore(jobID string, resp api.RestoreResponse) Snapshot {
	snap := NewSnapshot()
	snap.JobID = jobID

	progress := 0
	if resp.Progress != nil {
		progress = *resp.Progress
	}

	switch resp.Stage {
	case api.RestoreStageInput:
		// Job exists but upload never started; keep the idle shape.

	case api.RestoreStagePreorgInProgress:
		snap.Status = StatusUploading
		snap.Progress = progress
		snap.Stages = snap.Stages.with(api.StagePreOrganization, api.StageStateProcessing)

	case api.RestoreStagePreorgCompleted:
		snap.Progress = 100
		snap.Stages = snap.Stages.with(api.StagePreOrganization, api.StageStateCompleted)
		snap.Partial.Organized = append(json.RawMessage(nil), resp.Data...)

	case api.RestoreStageAnalysisInProgress:
		snap.Status = StatusAnalyzing
		snap.Progress = progress
		snap.Stages = snap.Stages.
			with(api.StagePreOrganization, api.StageStateCompleted).
			with(api.StageModelAnalysis, api.StageStateProcessing)

	case api.RestoreStageAnalysisCompleted:
		snap = MarkCompleted(snap)

	case api.RestoreStageFailed:
		snap.Status = StatusFailed
		snap.Message = resp.Message
		if snap.Message == "" {
			snap.Message = "analysis failed"
		}
	}

	return snap
}
