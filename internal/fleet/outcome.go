package fleet

import (
	"errors"
	"fmt"
)

// OutcomeKind tags which variant an Outcome holds.
type OutcomeKind int

const (
	outcomeUnset OutcomeKind = iota
	OutcomeSuccess
	OutcomeTransportError
	OutcomeTimeout
	OutcomeParseError
)

// String returns the lower-case label used in logs and metric labels.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeTransportError:
		return "transport_error"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeParseError:
		return "parse_error"
	default:
		return "unknown"
	}
}

// ErrTimeout is the reason carried by every Timeout outcome.
var ErrTimeout = errors.New("command did not reach a terminal state")

// Outcome is the tagged result of collecting from one target. A success
// carries a sample and no error; every other kind carries an error and no
// sample. The zero value holds no variant and classifies as an error; use
// the constructors.
type Outcome struct {
	kind   OutcomeKind
	sample MetricSample
	err    error
}

// Succeeded returns a success outcome holding s.
func Succeeded(s MetricSample) Outcome {
	return Outcome{kind: OutcomeSuccess, sample: s}
}

// TransportFailed returns a transport error outcome.
func TransportFailed(err error) Outcome {
	if err == nil {
		err = errors.New("transport failure")
	}
	return Outcome{kind: OutcomeTransportError, err: err}
}

// TimedOut returns a timeout outcome after the given number of polls.
func TimedOut(polls int) Outcome {
	return Outcome{kind: OutcomeTimeout, err: fmt.Errorf("%w after %d polls", ErrTimeout, polls)}
}

// ParseFailed returns a parse error outcome.
func ParseFailed(err error) Outcome {
	if err == nil {
		err = ErrMalformedOutput
	}
	return Outcome{kind: OutcomeParseError, err: err}
}

// Kind reports which variant the outcome holds.
func (o Outcome) Kind() OutcomeKind {
	return o.kind
}

// Sample returns the metric sample and true for a success, or false otherwise.
func (o Outcome) Sample() (MetricSample, bool) {
	if o.kind != OutcomeSuccess {
		return MetricSample{}, false
	}
	return o.sample, true
}

// Err returns the failure reason, or nil for a success.
func (o Outcome) Err() error {
	switch {
	case o.kind == OutcomeSuccess:
		return nil
	case o.err == nil:
		return errors.New("no outcome recorded")
	}
	return o.err
}

// OK is shorthand for Kind() == OutcomeSuccess.
func (o Outcome) OK() bool {
	return o.kind == OutcomeSuccess
}

func (o Outcome) String() string {
	if o.kind == OutcomeSuccess {
		return fmt.Sprintf("success(disk=%d%%, mem=%d%%)", o.sample.DiskPercent, o.sample.MemPercent)
	}
	return fmt.Sprintf("%s: %v", o.kind, o.err)
}
