package engine

import (
	"github.com/vaultsig/vault"
	"github.com/vaultsig/vault/errors"
)

// Engine is a single vault instance: one roster, one append-only
// proposal history, one value sink. All mutation goes through the
// methods below, there is no hidden process wide state.
//
// An Engine is not safe for concurrent use by multiple goroutines.
type Engine struct {
	roster    *Roster
	proposals arena
	sink      vault.ValueSink
	events    vault.EventSink
	balance   vault.Amount
	executing bool
}

// NewEngine validates the signer list and threshold and returns a ready
// engine. The events sink may be nil, in which case notifications are
// discarded. Construction failures never leave a partially usable
// instance behind.
func NewEngine(signers []vault.Address, required uint32, sink vault.ValueSink, events vault.EventSink) (*Engine, error) {
	roster, err := NewRoster(signers, required)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		return nil, errors.Wrap(errors.ErrEmpty, "value sink")
	}
	if events == nil {
		events = vault.NopSink{}
	}
	return &Engine{
		roster: roster,
		sink:   sink,
		events: events,
	}, nil
}

// Deposit records native currency paid into the vault and notifies the
// event sink. A zero deposit is accepted and ignored, mirroring a plain
// transfer that carries no value.
func (e *Engine) Deposit(sender vault.Address, amount vault.Amount) error {
	if amount < 0 {
		return errors.Wrapf(errors.ErrInput, "negative deposit of %d", amount)
	}
	if amount == 0 {
		return nil
	}
	e.balance += amount
	e.events.Deposited(vault.DepositedEvent{Sender: sender.Clone(), Amount: amount})
	return nil
}

// Submit records a new proposal and returns its index. Indices are
// assigned in submission order, starting at zero, and are never reused.
// Only roster signers may submit. The destination and amount are not
// validated, whether a transfer can succeed is for the value sink to
// decide at release time.
func (e *Engine) Submit(caller, asset, dest vault.Address, amount vault.Amount, payload []byte) (uint64, error) {
	if !e.roster.Member(caller) {
		return 0, errors.Wrapf(ErrNotAuthorized, "submitter %s", caller)
	}

	p := newProposal(asset, dest, amount, payload, e.roster.Size())
	index := e.proposals.append(p)

	e.events.Submitted(vault.SubmittedEvent{
		Submitter:   caller.Clone(),
		Index:       index,
		Destination: p.Destination.Clone(),
		Amount:      p.Amount,
		Asset:       p.Asset.Clone(),
		Payload:     p.Payload,
	})
	return index, nil
}

// Approve records the caller's approval on a proposal. If this approval
// reaches the threshold the proposal is released immediately, within
// this call. When the release fails, the triggering approval is rolled
// back together with it and the proposal stays open, so the caller may
// approve again once the underlying problem is resolved.
func (e *Engine) Approve(caller vault.Address, index uint64) error {
	p, err := e.proposals.get(index)
	if err != nil {
		return err
	}
	pos, ok := e.roster.Position(caller)
	if !ok {
		return errors.Wrapf(ErrNotAuthorized, "signer %s", caller)
	}
	if p.Executed {
		return errors.Wrapf(ErrAlreadyExecuted, "proposal %d", index)
	}
	if p.Approved(pos) {
		return errors.Wrapf(ErrAlreadyApproved, "proposal %d by %s", index, caller)
	}

	p.setApproval(pos)
	e.events.Approved(vault.ApprovedEvent{Signer: caller.Clone(), Index: index})

	// Quorum may overshoot the threshold, so test with >= rather than
	// equality.
	if p.ApprovalCount >= e.roster.Required() {
		if err := e.release(caller, index, p); err != nil {
			p.clearApproval(pos)
			return err
		}
	}
	return nil
}

// Revoke withdraws an earlier approval by the caller. Approvals on an
// executed proposal are permanent and can no longer be revoked.
func (e *Engine) Revoke(caller vault.Address, index uint64) error {
	p, err := e.proposals.get(index)
	if err != nil {
		return err
	}
	if p.Executed {
		return errors.Wrapf(ErrAlreadyExecuted, "proposal %d", index)
	}
	pos, ok := e.roster.Position(caller)
	if !ok {
		return errors.Wrapf(ErrNotAuthorized, "signer %s", caller)
	}
	if !p.Approved(pos) {
		return errors.Wrapf(ErrNotApproved, "proposal %d by %s", index, caller)
	}

	p.clearApproval(pos)
	e.events.Revoked(vault.RevokedEvent{Signer: caller.Clone(), Index: index})
	return nil
}

// release moves the proposal's value through the sink. It runs at most
// once per proposal, ever.
//
// The executed flag is flipped before any external call is made, so a
// callback reentering the engine observes the proposal as executed and
// is turned away by the usual guards. The flag is only rolled back, with
// any staged sink effects, when the sink reports a failure.
func (e *Engine) release(trigger vault.Address, index uint64, p *Proposal) error {
	if e.executing {
		return errors.Wrapf(ErrReentrant, "proposal %d", index)
	}
	// Defensive re-checks. Approve guarantees both already, but this is
	// the single authoritative guard against a double release.
	if p.Executed {
		return errors.Wrapf(ErrAlreadyExecuted, "proposal %d", index)
	}
	if p.ApprovalCount < e.roster.Required() {
		return errors.Wrapf(errors.ErrState, "proposal %d below quorum", index)
	}

	e.executing = true
	defer func() { e.executing = false }()

	p.Executed = true
	tx, transactional := e.sink.(vault.Transactional)
	if transactional {
		tx.Begin()
	}

	if err := e.payOut(p); err != nil {
		if transactional {
			tx.Rollback()
		}
		p.Executed = false
		return errors.Wrapf(ErrReleaseFailed, "proposal %d: %v", index, err)
	}

	if transactional {
		tx.Commit()
	}
	if p.IsNative() {
		// The sink is authoritative for balances, this counter only
		// mirrors what flowed through Deposit and successful releases.
		e.balance -= p.Amount
	}
	e.events.Executed(vault.ExecutedEvent{Triggerer: trigger.Clone(), Index: index})
	return nil
}

func (e *Engine) payOut(p *Proposal) error {
	if p.IsNative() {
		return e.sink.TransferNative(p.Destination, p.Amount, p.Payload)
	}
	if err := e.sink.TransferToken(p.Asset, p.Destination, p.Amount); err != nil {
		return err
	}
	if len(p.Payload) != 0 {
		return e.sink.Invoke(p.Destination, p.Payload)
	}
	return nil
}

// Proposal returns a copy of the proposal stored under the given index.
func (e *Engine) Proposal(index uint64) (*Proposal, error) {
	p, err := e.proposals.get(index)
	if err != nil {
		return nil, err
	}
	return p.Copy(), nil
}

// Count returns the total number of proposals ever submitted, executed
// or not.
func (e *Engine) Count() uint64 {
	return e.proposals.size()
}

// IsApproved returns whether the given signer currently has an approval
// recorded on the proposal. A non-signer never has one.
func (e *Engine) IsApproved(index uint64, signer vault.Address) (bool, error) {
	p, err := e.proposals.get(index)
	if err != nil {
		return false, err
	}
	pos, ok := e.roster.Position(signer)
	if !ok {
		return false, nil
	}
	return p.Approved(pos), nil
}

// Signers returns the roster in its original order.
func (e *Engine) Signers() []vault.Address {
	return e.roster.Signers()
}

// Required returns the approval threshold.
func (e *Engine) Required() uint32 {
	return e.roster.Required()
}

// Balance returns the engine's view of the native currency it holds:
// deposits minus successfully released native transfers.
func (e *Engine) Balance() vault.Amount {
	return e.balance
}
