package engine

import "github.com/vaultsig/vault/errors"

// Error codes 1000-1019 are taken by this package.
var (
	// ErrInvalidRoster is returned when a roster is constructed from an
	// empty, malformed or duplicated signer list.
	ErrInvalidRoster = errors.Register(1000, "invalid roster")

	// ErrInvalidThreshold is returned when the approval threshold is
	// zero or greater than the number of signers.
	ErrInvalidThreshold = errors.Register(1001, "invalid threshold")

	// ErrUnknownProposal is returned when referencing a proposal index
	// that was never assigned.
	ErrUnknownProposal = errors.Register(1002, "unknown proposal")

	// ErrNotAuthorized is returned when the caller is not a member of
	// the signer roster.
	ErrNotAuthorized = errors.Register(1003, "not authorized")

	// ErrAlreadyExecuted is returned when mutating a proposal whose
	// value was already released. Executed proposals are final.
	ErrAlreadyExecuted = errors.Register(1004, "already executed")

	// ErrAlreadyApproved is returned when a signer approves the same
	// proposal twice.
	ErrAlreadyApproved = errors.Register(1005, "already approved")

	// ErrNotApproved is returned when revoking an approval that was
	// never given, or was already revoked.
	ErrNotApproved = errors.Register(1006, "not approved")

	// ErrReleaseFailed is returned when the value sink rejected a
	// transfer or a follow-up call. The triggering approval is rolled
	// back together with the release.
	ErrReleaseFailed = errors.Register(1007, "release failed")

	// ErrReentrant is returned when a release is attempted while
	// another release is already in progress on the same engine.
	ErrReentrant = errors.Register(1008, "reentrant release")
)
