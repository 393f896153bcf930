package v1alpha1

import "encoding/json"

// AnalysisStage is one of the three fixed phases a job passes through, in order.
type AnalysisStage string

const (
	StagePreOrganization  AnalysisStage = "pre-organization"
	StageModelAnalysis    AnalysisStage = "model-analysis"
	StageReportGeneration AnalysisStage = "report-generation"
)

// StageState is the server-reported state of a single stage.
type StageState string

const (
	StageStatePending    StageState = "pending"
	StageStateProcessing StageState = "processing"
	StageStateCompleted  StageState = "completed"
	StageStateFailed     StageState = "failed"
)

// RestoreStage is the coarse checkpoint enum returned by the restore endpoint.
// Every value maps to exactly one client snapshot shape.
type RestoreStage string

const (
	RestoreStageInput              RestoreStage = "input"
	RestoreStagePreorgInProgress   RestoreStage = "preorganization-in-progress"
	RestoreStagePreorgCompleted    RestoreStage = "preorganization-completed"
	RestoreStageAnalysisInProgress RestoreStage = "analysis-in-progress"
	RestoreStageAnalysisCompleted  RestoreStage = "analysis-completed"
	RestoreStageFailed             RestoreStage = "failed"
)

func StringToRestoreStage(s string) RestoreStage {
	switch s {
	case string(RestoreStageInput):
		return RestoreStageInput
	case string(RestoreStagePreorgInProgress):
		return RestoreStagePreorgInProgress
	case string(RestoreStagePreorgCompleted):
		return RestoreStagePreorgCompleted
	case string(RestoreStageAnalysisInProgress):
		return RestoreStageAnalysisInProgress
	case string(RestoreStageAnalysisCompleted):
		return RestoreStageAnalysisCompleted
	case string(RestoreStageFailed):
		return RestoreStageFailed
	default:
		return RestoreStageInput
	}
}

// JobCreate is the body of the job creation request.
type JobCreate struct {
	Input          string   `json:"input"`
	AttachmentRefs []string `json:"attachmentRefs,omitempty"`
}

// JobCreated is the job creation response.
type JobCreated struct {
	JobID string `json:"jobId"`
}

// StageStart asks the server to begin executing stages, optionally pausing
// after the named one.
type StageStart struct {
	StopAfter AnalysisStage `json:"stopAfter,omitempty"`
}

// StageAdvance resumes a paused job with the chosen analysis mode.
type StageAdvance struct {
	Mode   string          `json:"mode"`
	Params json.RawMessage `json:"params,omitempty"`
}

// RestoreResponse carries the server-authoritative checkpoint for a job.
type RestoreResponse struct {
	Stage RestoreStage    `json:"stage"`
	Data  json.RawMessage `json:"data,omitempty"`
	// Message is set when Stage is "failed".
	Message string `json:"message,omitempty"`
	// Progress is the percentage the in-progress stage had reached, when known.
	Progress *int `json:"progress,omitempty"`
}

// Heartbeat is the periodic liveness report for a job.
type Heartbeat struct {
	JobID         string `json:"jobId"`
	LiveConnected bool   `json:"liveConnected"`
	RequestID     string `json:"requestId,omitempty"`
}

// FinalResult is the artifact returned by the result endpoint once a job
// completed.
type FinalResult struct {
	JobID  string          `json:"jobId"`
	Report json.RawMessage `json:"report"`
}
