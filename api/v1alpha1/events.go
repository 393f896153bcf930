package v1alpha1

import "encoding/json"

// EventType discriminates the messages delivered over a job's live channel.
type EventType string

const (
	EventStageProgress    EventType = "stage-progress"
	EventStageCompleted   EventType = "stage-completed"
	EventTerminalComplete EventType = "terminal-complete"
	EventTerminalError    EventType = "terminal-error"
	EventComparisonUpdate EventType = "comparison-update"
	EventDiagramUpdate    EventType = "diagram-update"

	// EventTransportError is synthesized client-side when the channel breaks.
	// It never arrives on the wire.
	EventTransportError EventType = "transport-error"
)

// Event is one message from the live channel. Payload fields are populated
// according to Type; unknown fields are preserved in Raw for forward
// compatibility.
type Event struct {
	Type EventType `json:"type"`

	// stage-progress
	Stage    AnalysisStage `json:"stage,omitempty"`
	Fraction float64       `json:"fraction,omitempty"`
	Status   StageState    `json:"status,omitempty"`

	// stage-progress, terminal-error, transport-error
	Message string `json:"message,omitempty"`

	// stage-completed (organized data), comparison-update, diagram-update
	Data json.RawMessage `json:"data,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// ParseEvent decodes one channel frame, keeping the raw bytes attached.
func ParseEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, err
	}
	ev.Raw = data
	return ev, nil
}

// KeepAlive is the lightweight token the client may send on the channel at a
// fixed interval.
type KeepAlive struct {
	Type string `json:"type"`
}

func NewKeepAlive() KeepAlive {
	return KeepAlive{Type: "keep-alive"}
}
