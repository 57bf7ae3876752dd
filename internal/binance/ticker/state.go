package ticker

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConnectionState is the lifecycle state of the feed connection.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	ReconnectScheduled
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case ReconnectScheduled:
		return "reconnect_scheduled"
	default:
		return "unknown"
	}
}

// Severity is the coarse health shown next to the status label.
type Severity int

const (
	Info Severity = iota
	Ok
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Ok:
		return "ok"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Status labels.
const (
	LabelDisconnected = "Disconnected"
	LabelConnecting   = "Connecting…"
	LabelConnected    = "Connected"
	LabelStopped      = "Stopped"
	errorLabelPrefix  = "Error: "
)

// Value placeholders shown instead of a price.
const (
	PlaceholderLoading = "Loading…"
	PlaceholderNA      = "N/A"
)

// StatusReport is the status label and its severity as shown to observers.
type StatusReport struct {
	Label    string
	Severity Severity
}

// PriceValue is replaced as a whole; Valid is false while a placeholder is shown.
type PriceValue struct {
	Raw       decimal.Decimal
	Formatted string
	Valid     bool
}

func placeholder(text string) PriceValue {
	return PriceValue{Formatted: text}
}

// Snapshot is everything an Observer may read. It is a value; later
// publishes never modify an earlier one.
type Snapshot struct {
	State   ConnectionState
	Price   PriceValue
	Status  StatusReport
	RetryIn time.Duration // delay of the pending reconnect, 0 when none
	Session uint64        // transport session the snapshot belongs to
}

// Value is the text to display: a formatted price or a placeholder.
func (s Snapshot) Value() string {
	return s.Price.Formatted
}
