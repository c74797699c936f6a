package statusbot

import (
	"github.com/jpalmerr/statusbot/internal/homework"
	"github.com/jpalmerr/statusbot/internal/notify"
	"github.com/jpalmerr/statusbot/internal/poller"
)

// Errors reported in [CycleEvent.Error]. Match them with errors.As.
type (
	// EndpointAccessError means the status API could not be reached.
	EndpointAccessError = poller.EndpointAccessError

	// EndpointStatusError means the status API answered with a non-200 code.
	EndpointStatusError = poller.EndpointStatusError

	// ResponseDecodeError means the response body was not JSON.
	ResponseDecodeError = poller.ResponseDecodeError

	// TypeMismatchError means the response or a work item had the wrong shape.
	TypeMismatchError = homework.TypeMismatchError

	// MissingKeyError means a response key or work item field was absent.
	MissingKeyError = homework.MissingKeyError

	// UnknownStatusError means a work item carried an unrecognised status.
	UnknownStatusError = homework.UnknownStatusError

	// SendMessageError means the messenger failed to deliver a message.
	SendMessageError = notify.SendMessageError
)

// ErrorKind classifies a cycle error: "endpoint_access", "endpoint_status",
// "response_decode", "type_mismatch", "missing_key", "unknown_status",
// "send_message" or "unexpected". It returns "" for a nil error.
func ErrorKind(err error) string {
	return poller.ErrorKind(err)
}
