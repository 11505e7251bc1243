package domain

import (
	"errors"
	"fmt"
)

// Stage names the pipeline phase an error originated in.
type Stage string

const (
	StageResolveConfig     Stage = "resolving_config"
	StageResolveSecret     Stage = "resolving_secret"
	StageTransformRequest  Stage = "transforming_request"
	StageDispatch          Stage = "dispatching"
	StageTransformResponse Stage = "transforming_response"
)

// Kind classifies an error independent of where it arose.
type Kind string

const (
	// Resolution.
	KindConfigNotFound    Kind = "config_not_found"
	KindNoEnabledEndpoint Kind = "no_enabled_endpoint"
	KindAmbiguousSelector Kind = "ambiguous_selector"

	// Secrets.
	KindSecretNotFound     Kind = "secret_not_found"
	KindSecretAccessDenied Kind = "secret_access_denied"

	// Transformation.
	KindUnsupportedToolFormat     Kind = "unsupported_tool_format"
	KindProviderResponseMalformed Kind = "provider_response_malformed"
	KindDanglingToolResult        Kind = "dangling_tool_result"

	// Dispatch.
	KindTimeout             Kind = "timeout"
	KindRateLimited         Kind = "rate_limited"
	KindUpstreamServerError Kind = "upstream_server_error"
	KindAuthFailed          Kind = "auth_failed"
	KindUpstreamBadRequest  Kind = "upstream_bad_request"
)

// Retryable reports whether the dispatcher may retry after this kind of
// failure. Auth and client errors never retry.
func (k Kind) Retryable() bool {
	switch k {
	case KindTimeout, KindRateLimited, KindUpstreamServerError:
		return true
	}
	return false
}

// Error is the error type flowing through the pipeline. Kind says what went
// wrong, Stage says where, Retries how many retries were spent before giving
// up.
type Error struct {
	Kind    Kind
	Stage   Stage
	Msg     string
	Retries int
	Err     error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Stage != "" {
		msg = string(e.Stage) + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind, and on Stage when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != "" && t.Kind != e.Kind {
		return false
	}
	if t.Stage != "" && t.Stage != e.Stage {
		return false
	}
	return true
}

// E builds a new error of the given kind.
func E(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds a new error of the given kind around a cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// AtStage tags err with the pipeline stage it surfaced in. Domain errors are
// copied with the stage set (an already-tagged error keeps its original
// stage); foreign errors are wrapped as upstream failures.
func AtStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var derr *Error
	if errors.As(err, &derr) {
		if derr.Stage != "" {
			return err
		}
		cp := *derr
		cp.Stage = stage
		return &cp
	}
	return &Error{Kind: KindUpstreamServerError, Stage: stage, Msg: err.Error(), Err: err}
}

// KindOf extracts the Kind from an error chain, or "".
func KindOf(err error) Kind {
	var derr *Error
	if errors.As(err, &derr) {
		return derr.Kind
	}
	return ""
}

// StageOf extracts the Stage from an error chain, or "".
func StageOf(err error) Stage {
	var derr *Error
	if errors.As(err, &derr) {
		return derr.Stage
	}
	return ""
}
