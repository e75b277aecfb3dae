package vault

// Amount is a quantity of native currency or of a fungible token,
// expressed in its smallest indivisible unit.
type Amount int64

// IsPositive returns true if the amount is greater than zero.
func (a Amount) IsPositive() bool {
	return a > 0
}

// ValueSink is the capability through which the engine moves value. The
// host decides what is behind it: real account balances, a chain client,
// or a mock. Implementations may run arbitrary code on behalf of the
// destination, including calling back into the engine. The engine is
// built to survive that (see the engine package for the reentrancy
// rules), implementations do not need to defend the engine themselves.
type ValueSink interface {
	// TransferNative moves amount of native currency to dest. A non
	// empty payload is handed to the destination along with the
	// transfer so it can react to receiving funds.
	TransferNative(dest Address, amount Amount, payload []byte) error

	// TransferToken moves amount of the given token to dest using the
	// token's own transfer rules.
	TransferToken(token Address, dest Address, amount Amount) error

	// Invoke calls the destination with an opaque payload, without
	// moving any value.
	Invoke(dest Address, payload []byte) error
}

// Transactional is implemented by value sinks that can stage the effects
// of a single release and drop them again when the release fails. The
// engine brackets every release with Begin and exactly one of Commit or
// Rollback when the sink supports it, so a failed release leaves no
// partial transfer behind.
type Transactional interface {
	Begin()
	Commit()
	Rollback()
}

// DepositedEvent is emitted when native currency is paid into the vault.
type DepositedEvent struct {
	Sender Address
	Amount Amount
}

// SubmittedEvent is emitted when a signer records a new proposal.
type SubmittedEvent struct {
	Submitter   Address
	Index       uint64
	Destination Address
	Amount      Amount
	Asset       Address
	Payload     []byte
}

// ApprovedEvent is emitted for every approval a proposal collects.
type ApprovedEvent struct {
	Signer Address
	Index  uint64
}

// RevokedEvent is emitted when a signer withdraws an earlier approval.
type RevokedEvent struct {
	Signer Address
	Index  uint64
}

// ExecutedEvent is emitted after a proposal's value has been released.
// Triggerer is the signer whose approval crossed the threshold.
type ExecutedEvent struct {
	Triggerer Address
	Index     uint64
}

// EventSink receives a notification for every state transition of the
// engine. Sinks are observers only, their return has no influence on the
// engine state, which is why none of the methods returns an error.
type EventSink interface {
	Deposited(DepositedEvent)
	Submitted(SubmittedEvent)
	Approved(ApprovedEvent)
	Revoked(RevokedEvent)
	Executed(ExecutedEvent)
}

// NopSink is an EventSink that discards every notification.
type NopSink struct{}

var _ EventSink = NopSink{}

func (NopSink) Deposited(DepositedEvent) {}
func (NopSink) Submitted(SubmittedEvent) {}
func (NopSink) Approved(ApprovedEvent)   {}
func (NopSink) Revoked(RevokedEvent)     {}
func (NopSink) Executed(ExecutedEvent)   {}
