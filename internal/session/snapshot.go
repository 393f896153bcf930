package session

import (
	"encoding/json"

	api "github.com/riskcanvas/analysis-client/api/v1alpha1"
)

// Status is the coarse lifecycle of one analysis job as seen by the client.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusUploading Status = "uploading"
	StatusAnalyzing Status = "analyzing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// StageStatus holds the state of the three fixed stages. The keys are fixed;
// values change only through the reconciler.
type StageStatus struct {
	PreOrganization  api.StageState `json:"preOrganization"`
	ModelAnalysis    api.StageState `json:"modelAnalysis"`
	ReportGeneration api.StageState `json:"reportGeneration"`
}

func allPending() StageStatus {
	return StageStatus{
		PreOrganization:  api.StageStatePending,
		ModelAnalysis:    api.StageStatePending,
		ReportGeneration: api.StageStatePending,
	}
}

// Get returns the state of the named stage, StageStatePending for unknown
// names.
func (s StageStatus) Get(stage api.AnalysisStage) api.StageState {
	switch stage {
	case api.StagePreOrganization:
		return s.PreOrganization
	case api.StageModelAnalysis:
		return s.ModelAnalysis
	case api.StageReportGeneration:
		return s.ReportGeneration
	default:
		return api.StageStatePending
	}
}

func (s StageStatus) with(stage api.AnalysisStage, state api.StageState) StageStatus {
	switch stage {
	case api.StagePreOrganization:
		s.PreOrganization = state
	case api.StageModelAnalysis:
		s.ModelAnalysis = state
	case api.StageReportGeneration:
		s.ReportGeneration = state
	}
	return s
}

// PartialResults accumulates artifacts produced mid-flight. Organized data and
// comparison data are replaced wholesale; diagrams accumulate by append in
// arrival order. The channel may redeliver diagrams, consumers de-duplicate.
type PartialResults struct {
	Organized  json.RawMessage   `json:"organized,omitempty"`
	Comparison json.RawMessage   `json:"comparison,omitempty"`
	Diagrams   []json.RawMessage `json:"diagrams,omitempty"`
}

func (p PartialResults) clone() PartialResults {
	out := PartialResults{
		Organized:  append(json.RawMessage(nil), p.Organized...),
		Comparison: append(json.RawMessage(nil), p.Comparison...),
	}
	if p.Diagrams != nil {
		out.Diagrams = make([]json.RawMessage, len(p.Diagrams))
		for i, d := range p.Diagrams {
			out.Diagrams[i] = append(json.RawMessage(nil), d...)
		}
	}
	if len(out.Organized) == 0 {
		out.Organized = nil
	}
	if len(out.Comparison) == 0 {
		out.Comparison = nil
	}
	return out
}

// Snapshot is the full client-side state of one job. An empty JobID means no
// job has been started yet.
type Snapshot struct {
	JobID       string           `json:"jobId,omitempty"`
	Status      Status           `json:"status"`
	Progress    int              `json:"progress"`
	Message     string           `json:"message,omitempty"`
	Stages      StageStatus      `json:"stageStatus"`
	Partial     PartialResults   `json:"partialResults,omitempty"`
	FinalResult *api.FinalResult `json:"finalResult,omitempty"`
}

// NewSnapshot returns the initial idle snapshot with no job bound.
func NewSnapshot() Snapshot {
	return Snapshot{
		Status: StatusIdle,
		Stages: allPending(),
	}
}

// Clone returns a deep copy safe to hand to observers.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Partial = s.Partial.clone()
	if s.FinalResult != nil {
		fr := *s.FinalResult
		fr.Report = append(json.RawMessage(nil), s.FinalResult.Report...)
		out.FinalResult = &fr
	}
	return out
}

// Terminal reports whether no further transitions are accepted for this job.
func (s Snapshot) Terminal() bool {
	return s.Status == StatusFailed || (s.Status == StatusCompleted && s.FinalResult != nil)
}
