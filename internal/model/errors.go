package model

import "fmt"

// Kind categorizes an engine error per the four kinds the top-level result
// envelope distinguishes.
type Kind int

const (
	KindValidation Kind = iota
	KindFundingShortage
	KindSigningFailure
	KindInternalInvariant
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindFundingShortage:
		return "funding_shortage"
	case KindSigningFailure:
		return "signing_failure"
	case KindInternalInvariant:
		return "internal_invariant"
	default:
		return "unknown"
	}
}

// EngineError is a typed, wrapped error surfaced by the engine. All errors
// abort the whole build; there is no per-chain retry.
type EngineError struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *EngineError) Unwrap() error { return e.Err }

func newErr(kind Kind, msg string, err error) *EngineError {
	return &EngineError{Kind: kind, Msg: msg, Err: err}
}

func ValidationError(msg string, err error) *EngineError {
	return newErr(KindValidation, msg, err)
}

func FundingShortageError(msg string, err error) *EngineError {
	return newErr(KindFundingShortage, msg, err)
}

func SigningFailureError(msg string, err error) *EngineError {
	return newErr(KindSigningFailure, msg, err)
}

func InternalInvariantError(msg string, err error) *EngineError {
	return newErr(KindInternalInvariant, msg, err)
}
