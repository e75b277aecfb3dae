package engine

import (
	"math/bits"

	"github.com/vaultsig/vault"
	"github.com/vaultsig/vault/errors"
)

// Proposal is a recorded intent to move value out of the vault, pending
// sufficient approvals. An empty Asset means native currency, anything
// else is a token contract reference. Once Executed is true the record
// is final and no field is ever mutated again.
type Proposal struct {
	Asset       vault.Address
	Destination vault.Address
	Amount      vault.Amount
	Payload     []byte
	Executed    bool

	// Approvals holds one bit per roster signer, at the signer's
	// roster position. ApprovalCount always equals the number of set
	// bits.
	Approvals     []byte
	ApprovalCount uint32
}

func newProposal(asset, dest vault.Address, amount vault.Amount, payload []byte, rosterSize int) *Proposal {
	return &Proposal{
		Asset:       asset.Clone(),
		Destination: dest.Clone(),
		Amount:      amount,
		Payload:     payload,
		Approvals:   make([]byte, bitmapLen(rosterSize)),
	}
}

func bitmapLen(rosterSize int) int {
	return (rosterSize + 7) / 8
}

// IsNative returns true if the proposal releases native currency rather
// than a token balance.
func (p *Proposal) IsNative() bool {
	return len(p.Asset) == 0
}

// Approved returns true if the signer at the given roster position has
// an approval recorded.
func (p *Proposal) Approved(pos int) bool {
	if pos < 0 || pos/8 >= len(p.Approvals) {
		return false
	}
	return p.Approvals[pos/8]&(1<<uint(pos%8)) != 0
}

func (p *Proposal) setApproval(pos int) {
	p.Approvals[pos/8] |= 1 << uint(pos%8)
	p.ApprovalCount++
}

func (p *Proposal) clearApproval(pos int) {
	p.Approvals[pos/8] &^= 1 << uint(pos%8)
	p.ApprovalCount--
}

func (p *Proposal) countApprovals() uint32 {
	var total int
	for _, b := range p.Approvals {
		total += bits.OnesCount8(b)
	}
	return uint32(total)
}

// Validate checks the internal consistency of a proposal record against
// the roster it belongs to. It is used when restoring persisted state,
// live records maintain these invariants by construction.
func (p *Proposal) Validate(rosterSize int) error {
	var errs error
	if len(p.Approvals) != bitmapLen(rosterSize) {
		errs = errors.AppendField(errs, "Approvals",
			errors.ErrState.Newf("bitmap holds %d bytes, want %d", len(p.Approvals), bitmapLen(rosterSize)))
	} else {
		for pos := rosterSize; pos < len(p.Approvals)*8; pos++ {
			if p.Approved(pos) {
				errs = errors.AppendField(errs, "Approvals",
					errors.ErrState.Newf("approval bit %d beyond roster", pos))
			}
		}
	}
	if got := p.countApprovals(); got != p.ApprovalCount {
		errs = errors.AppendField(errs, "ApprovalCount",
			errors.ErrState.Newf("count is %d but %d bits are set", p.ApprovalCount, got))
	}
	return errs
}

// Copy returns an independent clone of the proposal.
func (p *Proposal) Copy() *Proposal {
	approvals := make([]byte, len(p.Approvals))
	copy(approvals, p.Approvals)
	var payload []byte
	if p.Payload != nil {
		payload = make([]byte, len(p.Payload))
		copy(payload, p.Payload)
	}
	return &Proposal{
		Asset:         p.Asset.Clone(),
		Destination:   p.Destination.Clone(),
		Amount:        p.Amount,
		Payload:       payload,
		Executed:      p.Executed,
		Approvals:     approvals,
		ApprovalCount: p.ApprovalCount,
	}
}

// arena is the append-only proposal collection. A proposal's index is
// its insertion position, indices are never reused and records are never
// deleted, history is permanent.
type arena struct {
	items []*Proposal
}

func (a *arena) append(p *Proposal) uint64 {
	a.items = append(a.items, p)
	return uint64(len(a.items) - 1)
}

func (a *arena) get(index uint64) (*Proposal, error) {
	if index >= uint64(len(a.items)) {
		return nil, errors.Wrapf(ErrUnknownProposal, "index %d", index)
	}
	return a.items[index], nil
}

func (a *arena) size() uint64 {
	return uint64(len(a.items))
}
