/*
Package engine implements the quorum release state machine.

An Engine is constructed with a fixed roster of signers and an approval
threshold. Signers submit proposals to move native currency or token
balances out of the vault, approve or revoke approvals on them, and the
moment a proposal collects enough approvals it is released through the
host provided ValueSink, within the same Approve call.

The release path is hardened against reentrancy. The executed flag is
flipped before any external call is made, and a second release while one
is in flight is rejected with ErrReentrant, no matter which proposal it
is for. A failed release rolls everything back, including the approval
that triggered it, so the proposal is left exactly as it was and the
signer may retry.

An Engine is not safe for concurrent use by multiple goroutines. The
execution model is single threaded and cooperative: the only interleaving
it defends against is a ValueSink calling back into the engine before the
original operation returned.
*/
package engine
