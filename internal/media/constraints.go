package media

import "fmt"

const (
	ViolationSizeExceeded     = "size_exceeded"
	ViolationDurationTooShort = "duration_too_short"
	ViolationDurationTooLong  = "duration_too_long"
)

// Policy bounds every stored clip, uploaded or derived.
type Policy struct {
	MaxSizeBytes       int64
	MinDurationSeconds int64
	MaxDurationSeconds int64
}

// DefaultPolicy matches the limits the service has always shipped with.
func DefaultPolicy() Policy {
	return Policy{
		MaxSizeBytes:       25 * 1024 * 1024,
		MinDurationSeconds: 1,
		MaxDurationSeconds: 25,
	}
}

func (p Policy) Validate() error {
	if p.MaxSizeBytes <= 0 {
		return fmt.Errorf("max size must be > 0, got %d", p.MaxSizeBytes)
	}
	if p.MinDurationSeconds < 0 {
		return fmt.Errorf("min duration must be >= 0, got %d", p.MinDurationSeconds)
	}
	if p.MaxDurationSeconds < p.MinDurationSeconds {
		return fmt.Errorf("max duration %d is below min duration %d", p.MaxDurationSeconds, p.MinDurationSeconds)
	}
	return nil
}

type Violation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Verdict is the outcome of Validate. Violations keep a fixed order:
// size, then too short, then too long.
type Verdict struct {
	Valid           bool        `json:"valid"`
	SizeBytes       int64       `json:"size"`
	DurationSeconds int64       `json:"duration"`
	Violations      []Violation `json:"violations,omitempty"`
}

func (v Verdict) Reasons() []string {
	out := make([]string, 0, len(v.Violations))
	for _, viol := range v.Violations {
		out = append(out, viol.Message)
	}
	return out
}

func Validate(m Metadata, p Policy) Verdict {
	v := Verdict{SizeBytes: m.SizeBytes, DurationSeconds: m.DurationSeconds}

	if m.SizeBytes > p.MaxSizeBytes {
		v.Violations = append(v.Violations, Violation{Code: ViolationSizeExceeded, Message: "File size exceeds maximum limit"})
	}
	if m.DurationSeconds < p.MinDurationSeconds {
		v.Violations = append(v.Violations, Violation{Code: ViolationDurationTooShort, Message: "Video duration is too short"})
	}
	if m.DurationSeconds > p.MaxDurationSeconds {
		v.Violations = append(v.Violations, Violation{Code: ViolationDurationTooLong, Message: "Video duration is too long"})
	}

	v.Valid = len(v.Violations) == 0
	return v
}
