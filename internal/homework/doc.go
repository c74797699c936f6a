// Package homework validates status API payloads and turns work items into
// human-readable verdicts.
//
// This package is internal to statusbot. It has no network access and no
// mutable state; every function is safe to call from any goroutine.
//
// The main components are:
//
//   - [Decode]: JSON decoding that keeps integers exact
//   - [Validate]: structural checks on a decoded response, returning a [Batch]
//   - [Resolve]: maps one [WorkItem] to a [Verdict]
//
// Failures are reported as [*TypeMismatchError], [*MissingKeyError] and
// [*UnknownStatusError] so callers can match them with errors.As.
package homework
