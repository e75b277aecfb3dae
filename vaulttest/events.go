package vaulttest

import "github.com/vaultsig/vault"

// EventRecorder is a vault.EventSink that captures every notification,
// grouped by kind, in the order they were emitted.
type EventRecorder struct {
	Deposits    []vault.DepositedEvent
	Submissions []vault.SubmittedEvent
	Approvals   []vault.ApprovedEvent
	Revocations []vault.RevokedEvent
	Executions  []vault.ExecutedEvent
}

var _ vault.EventSink = (*EventRecorder)(nil)

func (r *EventRecorder) Deposited(e vault.DepositedEvent) {
	r.Deposits = append(r.Deposits, e)
}

func (r *EventRecorder) Submitted(e vault.SubmittedEvent) {
	r.Submissions = append(r.Submissions, e)
}

func (r *EventRecorder) Approved(e vault.ApprovedEvent) {
	r.Approvals = append(r.Approvals, e)
}

func (r *EventRecorder) Revoked(e vault.RevokedEvent) {
	r.Revocations = append(r.Revocations, e)
}

func (r *EventRecorder) Executed(e vault.ExecutedEvent) {
	r.Executions = append(r.Executions, e)
}
