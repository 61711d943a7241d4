package log

import "time"

// Event is one audit record. CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// RunID groups the events of one validation pass or one stream (UUID).
	RunID string `cbor:"2,keyasint"`

	// Direction indicates data flow for codec events.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Source names the input: a file name, a schema root or a peer.
	Source string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame    *FrameEvent     `cbor:"7,keyasint,omitempty"`  // Codec layer
	Run      *RunEvent       `cbor:"8,keyasint,omitempty"`  // Validation boundaries
	Decision *DecisionEvent  `cbor:"9,keyasint,omitempty"`  // Validation per path
	Error    *ErrorEventData `cbor:"10,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of data flow.
type Direction uint8

const (
	// DirectionIn indicates decoding.
	DirectionIn Direction = 0
	// DirectionOut indicates encoding.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which component captured the event.
type Layer uint8

const (
	// LayerCodec is the binary, CBOR or text codec.
	LayerCodec Layer = 0
	// LayerSchema is schema construction and loading.
	LayerSchema Layer = 1
	// LayerValidation is the validation/merge engine.
	LayerValidation Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerCodec:
		return "CODEC"
	case LayerSchema:
		return "SCHEMA"
	case LayerValidation:
		return "VALIDATION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryFrame indicates an encoded or decoded frame.
	CategoryFrame Category = 0
	// CategoryRun indicates the start or end of a validation pass.
	CategoryRun Category = 1
	// CategoryDecision indicates a per-path validation decision.
	CategoryDecision Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryFrame:
		return "FRAME"
	case CategoryRun:
		return "RUN"
	case CategoryDecision:
		return "DECISION"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures one frame of a codec stream.
type FrameEvent struct {
	// Size is the frame size in bytes (including length prefix).
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`

	// Format names the encoding ("binary", "cbor").
	Format string `cbor:"4,keyasint,omitempty"`
}

// RunEvent marks the boundaries of a validation pass.
type RunEvent struct {
	Phase RunPhase `cbor:"1,keyasint"`

	// Mode is the validation mode ("initial", "reconfigure", "report").
	Mode string `cbor:"2,keyasint,omitempty"`

	// State is the lifecycle state the pass ran against.
	State string `cbor:"3,keyasint,omitempty"`

	// Errors is the number of violations found (finished runs only).
	Errors int `cbor:"4,keyasint,omitempty"`

	// Duration of the pass in nanoseconds (finished runs only).
	Duration *time.Duration `cbor:"5,keyasint,omitempty"`
}

// RunPhase distinguishes run start and end.
type RunPhase uint8

const (
	RunStarted  RunPhase = 0
	RunFinished RunPhase = 1
)

// String returns the phase name.
func (p RunPhase) String() string {
	switch p {
	case RunStarted:
		return "STARTED"
	case RunFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// DecisionEvent records what validation did with one path.
type DecisionEvent struct {
	// Path is the dotted path of the element.
	Path string `cbor:"1,keyasint"`

	Action Action `cbor:"2,keyasint"`

	// Kind is the value kind literal, e.g. "INT32".
	Kind string `cbor:"3,keyasint,omitempty"`

	// Reason explains a rejection.
	Reason string `cbor:"4,keyasint,omitempty"`
}

// Action is the outcome of validating one path.
type Action uint8

const (
	// ActionAccepted means the user value was kept.
	ActionAccepted Action = 0
	// ActionDefaulted means a default was injected.
	ActionDefaulted Action = 1
	// ActionRejected means the path produced a violation.
	ActionRejected Action = 2
	// ActionPassedThrough means an undeclared key was copied.
	ActionPassedThrough Action = 3
	// ActionCoerced means the user value was converted to the declared kind.
	ActionCoerced Action = 4
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionAccepted:
		return "ACCEPTED"
	case ActionDefaulted:
		return "DEFAULTED"
	case ActionRejected:
		return "REJECTED"
	case ActionPassedThrough:
		return "PASSED_THROUGH"
	case ActionCoerced:
		return "COERCED"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Kind is the error kind name, e.g. "CorruptData".
	Kind string `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
