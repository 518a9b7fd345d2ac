package checklist

import (
	"fmt"
	"strings"
)

// Marking is the evaluator's verdict for one topic.
type Marking int

const (
	MarkingNone          Marking = iota // unmarked
	MarkingError                        // finding
	MarkingNotApplicable                // not applicable to this contact
)

// String returns the stable wire name of the marking.
func (m Marking) String() string {
	switch m {
	case MarkingNone:
		return "none"
	case MarkingError:
		return "error"
	case MarkingNotApplicable:
		return "not_applicable"
	default:
		return fmt.Sprintf("marking(%d)", int(m))
	}
}

// Valid reports whether m can be assigned through SetMarking.
func (m Marking) Valid() bool {
	return m == MarkingError || m == MarkingNotApplicable
}

// Prefix is the report line token for the marking.
func (m Marking) Prefix() string {
	switch m {
	case MarkingError:
		return "❌"
	case MarkingNotApplicable:
		return "🟡 N/A"
	default:
		return ""
	}
}

// ParseMarking accepts the spellings used by the CLI, answer files and the
// HTTP API. It returns ErrInvalidMarking for anything else, including
// "none": unmarking is done by clearing the checklist.
func ParseMarking(raw string) (Marking, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "error", "erro", "err":
		return MarkingError, nil
	case "n/a", "na", "not_applicable", "not-applicable", "notapplicable":
		return MarkingNotApplicable, nil
	default:
		return MarkingNone, fmt.Errorf("%w: %q", ErrInvalidMarking, raw)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Marking) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. The empty string and
// "none" decode to MarkingNone so snapshots round-trip.
func (m *Marking) UnmarshalText(text []byte) error {
	value := strings.ToLower(strings.TrimSpace(string(text)))
	if value == "" || value == "none" {
		*m = MarkingNone
		return nil
	}
	parsed, err := ParseMarking(value)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
