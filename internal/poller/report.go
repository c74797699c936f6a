package poller

import (
	"errors"
	"time"

	"github.com/jpalmerr/statusbot/internal/homework"
	"github.com/jpalmerr/statusbot/internal/notify"
	"go.uber.org/zap"
)

// Outcome tags how a cycle ended.
type Outcome string

const (
	// OutcomeNotified means a new verdict was delivered.
	OutcomeNotified Outcome = "notified"

	// OutcomeUnchanged means the newest verdict was already delivered.
	OutcomeUnchanged Outcome = "unchanged"

	// OutcomeNoWork means the "no work pending" message was delivered.
	OutcomeNoWork Outcome = "no_work"

	// OutcomeIdle means the API returned no items and nothing was sent.
	OutcomeIdle Outcome = "idle"

	// OutcomeFailed means the cycle was abandoned; see the report's Stage and Err.
	OutcomeFailed Outcome = "failed"
)

// Stage names the cycle step that failed.
type Stage string

const (
	StageFetch    Stage = "fetch"
	StageValidate Stage = "validate"
	StageResolve  Stage = "resolve"
	StageNotify   Stage = "notify"
	StagePanic    Stage = "panic"
)

// CycleReport is the result of one fetch-validate-resolve-notify cycle.
type CycleReport struct {
	// ID identifies the cycle in logs. Recovered panics use it as the
	// correlation ID.
	ID string

	// StartedAt is when the cycle began.
	StartedAt time.Time

	// Duration is how long the cycle took, excluding the sleep after it.
	Duration time.Duration

	// Cursor is the from_date value sent to the endpoint.
	Cursor int64

	// CurrentDate is the server timestamp, zero if validation did not pass.
	CurrentDate int64

	// Items is the number of work items returned.
	Items int

	// Homework is the name of the newest work item, if any.
	Homework string

	// Message is the verdict or no-work text of this cycle, whether or not
	// it was delivered.
	Message string

	// Outcome tags how the cycle ended.
	Outcome Outcome

	// Stage is the failing step when Outcome is [OutcomeFailed].
	Stage Stage

	// Err is the failure when Outcome is [OutcomeFailed].
	Err error
}

// Failed reports whether the cycle was abandoned.
func (r CycleReport) Failed() bool {
	return r.Outcome == OutcomeFailed
}

// Delivered reports whether the cycle sent a message.
func (r CycleReport) Delivered() bool {
	return r.Outcome == OutcomeNotified || r.Outcome == OutcomeNoWork
}

func (r *CycleReport) fail(stage Stage, err error) {
	r.Outcome = OutcomeFailed
	r.Stage = stage
	r.Err = err
}

// ErrorKind classifies a cycle error for logs and metrics.
func ErrorKind(err error) string {
	var (
		accessErr  *EndpointAccessError
		statusErr  *EndpointStatusError
		decodeErr  *ResponseDecodeError
		typeErr    *homework.TypeMismatchError
		keyErr     *homework.MissingKeyError
		unknownErr *homework.UnknownStatusError
		sendErr    *notify.SendMessageError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &sendErr):
		return "send_message"
	case errors.As(err, &statusErr):
		return "endpoint_status"
	case errors.As(err, &accessErr):
		return "endpoint_access"
	case errors.As(err, &decodeErr):
		return "response_decode"
	case errors.As(err, &typeErr):
		return "type_mismatch"
	case errors.As(err, &keyErr):
		return "missing_key"
	case errors.As(err, &unknownErr):
		return "unknown_status"
	default:
		return "unexpected"
	}
}

// errorFields extracts the diagnostic context carried by a typed cycle error.
func errorFields(err error) []zap.Field {
	fields := []zap.Field{zap.String("error_kind", ErrorKind(err)), zap.Error(err)}

	var (
		accessErr  *EndpointAccessError
		statusErr  *EndpointStatusError
		decodeErr  *ResponseDecodeError
		typeErr    *homework.TypeMismatchError
		keyErr     *homework.MissingKeyError
		unknownErr *homework.UnknownStatusError
		sendErr    *notify.SendMessageError
	)

	switch {
	case errors.As(err, &statusErr):
		fields = append(fields,
			zap.String("endpoint", statusErr.Endpoint),
			zap.String("params", statusErr.Params.Encode()),
			zap.Int("status_code", statusErr.StatusCode),
		)
	case errors.As(err, &accessErr):
		fields = append(fields, zap.String("endpoint", accessErr.Endpoint))
	case errors.As(err, &decodeErr):
		fields = append(fields, zap.String("endpoint", decodeErr.Endpoint))
	case errors.As(err, &typeErr):
		fields = append(fields,
			zap.String("field", typeErr.Field),
			zap.String("want", typeErr.Want),
			zap.String("got", typeErr.Got),
		)
	case errors.As(err, &keyErr):
		fields = append(fields, zap.Strings("missing_keys", keyErr.Keys))
	case errors.As(err, &unknownErr):
		fields = append(fields, zap.String("status", unknownErr.Status))
	case errors.As(err, &sendErr):
		fields = append(fields, zap.String("text", sendErr.Message))
	}

	return fields
}
