package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultsig/vault"
	"github.com/vaultsig/vault/errors"
	"github.com/vaultsig/vault/vaulttest"
)

// newTestEngine wires an engine to a fresh ledger and event recorder.
func newTestEngine(t *testing.T, signers []vault.Address, required uint32) (*Engine, *vaulttest.Ledger, *vaulttest.EventRecorder) {
	t.Helper()
	ledger := vaulttest.NewLedger()
	events := &vaulttest.EventRecorder{}
	eng, err := NewEngine(signers, required, ledger, events)
	require.NoError(t, err)
	return eng, ledger, events
}

func TestNewEngineValidation(t *testing.T) {
	signers := vaulttest.NewAddresses(3)

	cases := map[string]struct {
		signers  []vault.Address
		required uint32
		sink     vault.ValueSink
		wantErr  *errors.Error
	}{
		"no signers": {
			signers:  nil,
			required: 1,
			sink:     vaulttest.NewLedger(),
			wantErr:  ErrInvalidRoster,
		},
		"zero threshold": {
			signers:  signers,
			required: 0,
			sink:     vaulttest.NewLedger(),
			wantErr:  ErrInvalidThreshold,
		},
		"threshold above roster size": {
			signers:  signers,
			required: 4,
			sink:     vaulttest.NewLedger(),
			wantErr:  ErrInvalidThreshold,
		},
		"missing sink": {
			signers:  signers,
			required: 2,
			sink:     nil,
			wantErr:  errors.ErrEmpty,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			eng, err := NewEngine(tc.signers, tc.required, tc.sink, nil)
			require.Error(t, err)
			assert.True(t, tc.wantErr.Is(err), "unexpected error: %+v", err)
			assert.Nil(t, eng)
		})
	}
}

// TestNativeRelease walks through the happy path: two of three signers
// approve a native transfer and the second approval releases it.
func TestNativeRelease(t *testing.T) {
	signers := vaulttest.NewAddresses(3)
	s1, s2 := signers[0], signers[1]
	eng, ledger, events := newTestEngine(t, signers, 2)

	require.NoError(t, eng.Deposit(vaulttest.NewAddress(), 10))
	require.Equal(t, vault.Amount(10), eng.Balance())

	dest := vaulttest.NewAddress()
	index, err := eng.Submit(s1, nil, dest, 1, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(0), index)
	require.Equal(t, uint64(1), eng.Count())

	require.NoError(t, eng.Approve(s1, index))
	p, err := eng.Proposal(index)
	require.NoError(t, err)
	assert.False(t, p.Executed)
	assert.Equal(t, uint32(1), p.ApprovalCount)
	assert.Equal(t, vault.Amount(0), ledger.NativeBalance(dest))

	require.NoError(t, eng.Approve(s2, index))
	p, err = eng.Proposal(index)
	require.NoError(t, err)
	assert.True(t, p.Executed)
	assert.Equal(t, uint32(2), p.ApprovalCount)
	assert.Equal(t, vault.Amount(1), ledger.NativeBalance(dest))
	assert.Equal(t, vault.Amount(9), eng.Balance())

	require.Len(t, events.Deposits, 1)
	require.Len(t, events.Submissions, 1)
	require.Len(t, events.Approvals, 2)
	require.Len(t, events.Executions, 1)
	assert.True(t, s2.Equals(events.Executions[0].Triggerer))
	assert.Equal(t, index, events.Executions[0].Index)
}

// TestTokenRelease covers a token transfer with a follow-up call, both
// the successful path and the rollback when the follow-up call fails.
func TestTokenRelease(t *testing.T) {
	signers := vaulttest.NewAddresses(2)
	s1, s2 := signers[0], signers[1]
	eng, ledger, _ := newTestEngine(t, signers, 2)

	token := vaulttest.NewAddress()
	dest := vaulttest.NewAddress()
	payload := []byte("claim reward")

	index, err := eng.Submit(s1, token, dest, 500, payload)
	require.NoError(t, err)
	require.NoError(t, eng.Approve(s1, index))

	// Make the secondary call fail: the whole release must roll back.
	ledger.InvokeErr = errors.ErrState.New("destination rejects the call")
	err = eng.Approve(s2, index)
	require.Error(t, err)
	assert.True(t, ErrReleaseFailed.Is(err))

	p, err := eng.Proposal(index)
	require.NoError(t, err)
	assert.False(t, p.Executed, "a failed release must leave the proposal open")
	assert.Equal(t, uint32(1), p.ApprovalCount, "the triggering approval must not be recorded")
	approved, err := eng.IsApproved(index, s2)
	require.NoError(t, err)
	assert.False(t, approved)
	assert.Equal(t, vault.Amount(0), ledger.TokenBalance(token, dest),
		"the token transfer must be rolled back with the failed follow-up call")
	assert.Empty(t, ledger.Invocations)

	// Once the destination behaves, the same signer may retry.
	ledger.InvokeErr = nil
	require.NoError(t, eng.Approve(s2, index))

	p, err = eng.Proposal(index)
	require.NoError(t, err)
	assert.True(t, p.Executed)
	assert.Equal(t, vault.Amount(500), ledger.TokenBalance(token, dest))
	require.Len(t, ledger.Invocations, 1)
	assert.Equal(t, payload, ledger.Invocations[0].Payload)
	assert.True(t, dest.Equals(ledger.Invocations[0].Dest))
}

// TestTokenReleaseWithoutPayload must not invoke the destination.
func TestTokenReleaseWithoutPayload(t *testing.T) {
	signers := vaulttest.NewAddresses(1)
	eng, ledger, _ := newTestEngine(t, signers, 1)

	token := vaulttest.NewAddress()
	dest := vaulttest.NewAddress()
	index, err := eng.Submit(signers[0], token, dest, 7, nil)
	require.NoError(t, err)
	require.NoError(t, eng.Approve(signers[0], index))

	assert.Equal(t, vault.Amount(7), ledger.TokenBalance(token, dest))
	assert.Empty(t, ledger.Invocations)
}

func TestFailedNativeReleaseRollsBack(t *testing.T) {
	signers := vaulttest.NewAddresses(1)
	eng, ledger, _ := newTestEngine(t, signers, 1)
	require.NoError(t, eng.Deposit(vaulttest.NewAddress(), 10))

	dest := vaulttest.NewAddress()
	index, err := eng.Submit(signers[0], nil, dest, 3, nil)
	require.NoError(t, err)

	ledger.NativeErr = errors.ErrState.New("destination rejects funds")
	err = eng.Approve(signers[0], index)
	require.Error(t, err)
	assert.True(t, ErrReleaseFailed.Is(err))

	p, err := eng.Proposal(index)
	require.NoError(t, err)
	assert.False(t, p.Executed)
	assert.Equal(t, uint32(0), p.ApprovalCount)
	assert.Equal(t, vault.Amount(10), eng.Balance())
	assert.Equal(t, vault.Amount(0), ledger.NativeBalance(dest))
}

func TestRevokeAndReapprove(t *testing.T) {
	signers := vaulttest.NewAddresses(3)
	s1 := signers[0]
	eng, _, events := newTestEngine(t, signers, 2)

	index, err := eng.Submit(s1, nil, vaulttest.NewAddress(), 1, nil)
	require.NoError(t, err)

	require.NoError(t, eng.Approve(s1, index))
	approved, err := eng.IsApproved(index, s1)
	require.NoError(t, err)
	require.True(t, approved)

	require.NoError(t, eng.Revoke(s1, index))
	approved, err = eng.IsApproved(index, s1)
	require.NoError(t, err)
	assert.False(t, approved)
	p, err := eng.Proposal(index)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), p.ApprovalCount)

	// A previous revocation must not block approving again.
	require.NoError(t, eng.Approve(s1, index))
	approved, err = eng.IsApproved(index, s1)
	require.NoError(t, err)
	assert.True(t, approved)

	require.Len(t, events.Approvals, 2)
	require.Len(t, events.Revocations, 1)
}

func TestNonSignerIsRejectedEverywhere(t *testing.T) {
	signers := vaulttest.NewAddresses(2)
	eng, _, _ := newTestEngine(t, signers, 2)

	index, err := eng.Submit(signers[0], nil, vaulttest.NewAddress(), 1, nil)
	require.NoError(t, err)

	outsider := vaulttest.NewAddress()

	_, err = eng.Submit(outsider, nil, vaulttest.NewAddress(), 1, nil)
	assert.True(t, ErrNotAuthorized.Is(err))

	err = eng.Approve(outsider, index)
	assert.True(t, ErrNotAuthorized.Is(err))

	err = eng.Revoke(outsider, index)
	assert.True(t, ErrNotAuthorized.Is(err))

	// Read access carries no authorization.
	approved, err := eng.IsApproved(index, outsider)
	require.NoError(t, err)
	assert.False(t, approved)
}

func TestDoubleApproveAndDoubleRevoke(t *testing.T) {
	signers := vaulttest.NewAddresses(3)
	s1 := signers[0]
	eng, _, _ := newTestEngine(t, signers, 3)

	index, err := eng.Submit(s1, nil, vaulttest.NewAddress(), 1, nil)
	require.NoError(t, err)

	require.NoError(t, eng.Approve(s1, index))
	err = eng.Approve(s1, index)
	assert.True(t, ErrAlreadyApproved.Is(err))
	p, err := eng.Proposal(index)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), p.ApprovalCount)

	require.NoError(t, eng.Revoke(s1, index))
	err = eng.Revoke(s1, index)
	assert.True(t, ErrNotApproved.Is(err))
	p, err = eng.Proposal(index)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), p.ApprovalCount)
}

func TestExecutedProposalIsFinal(t *testing.T) {
	signers := vaulttest.NewAddresses(2)
	s1, s2 := signers[0], signers[1]
	eng, _, _ := newTestEngine(t, signers, 1)
	require.NoError(t, eng.Deposit(vaulttest.NewAddress(), 5))

	index, err := eng.Submit(s1, nil, vaulttest.NewAddress(), 1, nil)
	require.NoError(t, err)
	require.NoError(t, eng.Approve(s1, index))

	before, err := eng.Proposal(index)
	require.NoError(t, err)
	require.True(t, before.Executed)

	err = eng.Approve(s2, index)
	assert.True(t, ErrAlreadyExecuted.Is(err))

	err = eng.Revoke(s1, index)
	assert.True(t, ErrAlreadyExecuted.Is(err), "approvals are permanent once released")

	after, err := eng.Proposal(index)
	require.NoError(t, err)
	assert.Equal(t, before, after, "failed calls must not change an executed proposal")
}

func TestUnknownProposal(t *testing.T) {
	signers := vaulttest.NewAddresses(2)
	eng, _, _ := newTestEngine(t, signers, 1)

	assert.True(t, ErrUnknownProposal.Is(eng.Approve(signers[0], 0)))
	assert.True(t, ErrUnknownProposal.Is(eng.Revoke(signers[0], 0)))
	_, err := eng.Proposal(42)
	assert.True(t, ErrUnknownProposal.Is(err))
	_, err = eng.IsApproved(42, signers[0])
	assert.True(t, ErrUnknownProposal.Is(err))
}

func TestDeposit(t *testing.T) {
	signers := vaulttest.NewAddresses(1)
	eng, _, events := newTestEngine(t, signers, 1)

	sender := vaulttest.NewAddress()
	require.NoError(t, eng.Deposit(sender, 100))
	require.Len(t, events.Deposits, 1)
	assert.True(t, sender.Equals(events.Deposits[0].Sender))
	assert.Equal(t, vault.Amount(100), events.Deposits[0].Amount)

	// Zero deposits are silently accepted, negative ones are not.
	require.NoError(t, eng.Deposit(sender, 0))
	require.Len(t, events.Deposits, 1)
	assert.True(t, errors.ErrInput.Is(eng.Deposit(sender, -1)))
	assert.Equal(t, vault.Amount(100), eng.Balance())
}

// TestReentrantRelease lets the destination call back into the engine
// while its release is still in flight. No path may release the same
// proposal twice, and no second release may start at all.
func TestReentrantRelease(t *testing.T) {
	signers := vaulttest.NewAddresses(2)
	s1, s2 := signers[0], signers[1]
	eng, ledger, _ := newTestEngine(t, signers, 1)
	require.NoError(t, eng.Deposit(vaulttest.NewAddress(), 10))

	dest := vaulttest.NewAddress()
	first, err := eng.Submit(s1, nil, dest, 1, nil)
	require.NoError(t, err)

	// A second proposal already at quorum distance of one approval.
	second, err := eng.Submit(s1, nil, dest, 2, nil)
	require.NoError(t, err)

	var reapprove, sibling, resubmit error
	called := false
	ledger.NativeCallback = func(vault.Address, vault.Amount, []byte) error {
		if called {
			return nil
		}
		called = true
		// Same proposal, other signer: must see it as executed.
		reapprove = eng.Approve(s2, first)
		// Different proposal at quorum: must hit the release guard.
		sibling = eng.Approve(s2, second)
		// Submitting is no release and stays possible.
		_, resubmit = eng.Submit(s2, nil, dest, 3, nil)
		return nil
	}

	require.NoError(t, eng.Approve(s1, first))

	assert.True(t, ErrAlreadyExecuted.Is(reapprove), "got %+v", reapprove)
	assert.True(t, ErrReentrant.Is(sibling), "got %+v", sibling)
	assert.NoError(t, resubmit)

	// Only the first proposal was released, exactly once.
	assert.Equal(t, vault.Amount(1), ledger.NativeBalance(dest))
	assert.Equal(t, vault.Amount(9), eng.Balance())

	p, err := eng.Proposal(second)
	require.NoError(t, err)
	assert.False(t, p.Executed)
	assert.Equal(t, uint32(0), p.ApprovalCount,
		"the reentrant approval must be rolled back with its rejected release")

	// Outside of the release window the second proposal can proceed.
	ledger.NativeCallback = nil
	require.NoError(t, eng.Approve(s2, second))
	assert.Equal(t, vault.Amount(3), ledger.NativeBalance(dest))
}

// TestRetryAfterFailedRelease exercises the retry loop: every approval
// crossing the threshold attempts a release, a failed attempt rolls the
// approval back, and any later approval may trigger again. The trigger
// condition is count >= threshold, not equality.
func TestRetryAfterFailedRelease(t *testing.T) {
	signers := vaulttest.NewAddresses(3)
	s1, s2, s3 := signers[0], signers[1], signers[2]
	eng, ledger, _ := newTestEngine(t, signers, 2)
	require.NoError(t, eng.Deposit(vaulttest.NewAddress(), 10))

	dest := vaulttest.NewAddress()
	index, err := eng.Submit(s1, nil, dest, 1, nil)
	require.NoError(t, err)

	require.NoError(t, eng.Approve(s1, index))

	ledger.NativeErr = errors.ErrState.New("destination down")
	require.Error(t, eng.Approve(s2, index))
	require.Error(t, eng.Approve(s3, index))

	p, err := eng.Proposal(index)
	require.NoError(t, err)
	assert.False(t, p.Executed)
	assert.Equal(t, uint32(1), p.ApprovalCount)

	// Any signer who is not recorded yet can trigger the retry.
	ledger.NativeErr = nil
	require.NoError(t, eng.Approve(s3, index))

	p, err = eng.Proposal(index)
	require.NoError(t, err)
	assert.True(t, p.Executed)
	assert.Equal(t, vault.Amount(1), ledger.NativeBalance(dest))
}

func TestApprovalCountAlwaysMatchesBitmap(t *testing.T) {
	signers := vaulttest.NewAddresses(5)
	eng, _, _ := newTestEngine(t, signers, 5)

	index, err := eng.Submit(signers[0], nil, vaulttest.NewAddress(), 1, nil)
	require.NoError(t, err)

	check := func() {
		t.Helper()
		p, err := eng.Proposal(index)
		require.NoError(t, err)
		require.Equal(t, p.countApprovals(), p.ApprovalCount)
	}

	check()
	for _, s := range signers[:4] {
		require.NoError(t, eng.Approve(s, index))
		check()
	}
	for _, s := range signers[:2] {
		require.NoError(t, eng.Revoke(s, index))
		check()
	}
}

func TestSignersAndRequired(t *testing.T) {
	signers := vaulttest.NewAddresses(3)
	eng, _, _ := newTestEngine(t, signers, 2)

	assert.Equal(t, uint32(2), eng.Required())
	listed := eng.Signers()
	require.Len(t, listed, 3)
	for i := range signers {
		assert.True(t, signers[i].Equals(listed[i]))
	}
}
