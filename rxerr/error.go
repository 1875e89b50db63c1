// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package rxerr defines the typed, explicit error kinds the consensus core
// returns. Nothing in this package panics or relies on exceptions for
// consensus-critical control flow; every release-build invariant check
// returns one of these kinds instead of asserting.
package rxerr

import "fmt"

// ErrorKind identifies a class of error the chain, PoW, validation, or
// session layer can return. It satisfies the error interface directly so
// callers may compare with errors.Is against the sentinel values below
// without needing to unwrap an Error first.
type ErrorKind string

// Error satisfies the error interface.
func (k ErrorKind) Error() string {
	return string(k)
}

// The error kinds named in spec.md §7, grouped by the retryable /
// permanent-per-header / session-level / system taxonomy it defines.
const (
	// Retryable.
	ErrOrphan         = ErrorKind("header's parent is not yet known; cached as an orphan")
	ErrOrphanPoolFull = ErrorKind("orphan pool is full; header rejected")
	ErrStalled        = ErrorKind("sync peer has stalled")

	// Permanent per-header.
	ErrBadPoW             = ErrorKind("commitment proof-of-work check failed")
	ErrBadCommitment      = ErrorKind("randomx commitment hash is invalid")
	ErrBadDiffBits        = ErrorKind("bits field does not match the required next difficulty")
	ErrTimeTooOld         = ErrorKind("header time is not after the median time past")
	ErrTimeTooNew         = ErrorKind("header time is too far in the future")
	ErrBadVersion         = ErrorKind("header version is not valid at this height")
	ErrBadGenesis         = ErrorKind("genesis header does not match consensus parameters")
	ErrBadPrevBlock       = ErrorKind("header's parent is known to be invalid")
	ErrNetworkExpired     = ErrorKind("height is at or beyond the network's expiration height")
	ErrInvalidDifficulty  = ErrorKind("ASERT precondition violated while computing next difficulty")
	ErrEpochInitThrottled = ErrorKind("peer exceeded the randomx epoch-init cooldown")

	// Session-level.
	ErrLowWorkHeaders       = ErrorKind("header batch cumulative work is below the anti-DoS threshold")
	ErrNonContinuousHeaders = ErrorKind("header batch is not a continuous chain")
	ErrOversizedMessage     = ErrorKind("message exceeds its protocol size limit")
	ErrInvalidHeader        = ErrorKind("header failed validation")
	ErrTooManyUnconnecting  = ErrorKind("peer sent too many unconnecting header batches")
	ErrTooManyOrphans       = ErrorKind("peer has cached too many orphan headers")

	// Activation-specific (not named directly in §7's taxonomy but used by
	// ActivateBestChain per §4.3).
	ErrConnectFailed    = ErrorKind("failed connecting the candidate chain; rewound to the prior tip")
	ErrNoCommonAncestor = ErrorKind("candidate tip shares no common ancestor with the active chain")
	ErrSuspiciousReorg  = ErrorKind("reorg depth exceeds the configured suspicious-reorg threshold")

	// System.
	ErrIo                  = ErrorKind("i/o error")
	ErrSerialization       = ErrorKind("serialization error")
	ErrInternalConsistency = ErrorKind("internal invariant violated; caller should not retry")
)

// Error wraps an ErrorKind with a human-readable description and, when
// built by Wrap, an underlying cause. Construct with New/Wrap,
// never by composing a literal elsewhere, so every error in the codebase
// goes through one place.
type Error struct {
	Kind        ErrorKind
	Description string
	Cause       error
}

// Error satisfies the error interface.
func (e *Error) Error() string {
	if e.Description == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Description)
}

// Unwrap returns the Cause when there is one and the Kind otherwise, so
// errors.Is and errors.As can reach a wrapped cause.
func (e *Error) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return e.Kind
}

// Is reports whether target is e's Kind, so errors.Is(err, rxerr.ErrBadPoW)
// works without the caller needing to know about Error at all, whether or
// not the error carries a Cause.
func (e *Error) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}

// New constructs an Error of the given kind with a formatted description.
func New(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Description: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind that preserves the original
// cause for logging while still classifying it under one of the typed kinds.
func Wrap(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, Description: cause.Error(), Cause: cause}
}

// Is reports whether err is of the given kind, looking through any *Error
// wrapper. It is provided in addition to errors.Is support so call sites
// that don't want to import "errors" for a one-off check still have a
// direct, cheap comparison available.
func Is(err error, kind ErrorKind) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok {
		return e.Kind == kind
	}
	k, ok := err.(ErrorKind)
	return ok && k == kind
}
