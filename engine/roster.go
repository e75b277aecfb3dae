package engine

import (
	"github.com/vaultsig/vault"
	"github.com/vaultsig/vault/errors"
)

// To avoid burning CPU on bitmap scans, this is the maximum number of
// signers allowed on a single roster.
const maxRosterSize = 100

// Roster is the immutable set of signers authorized to act on a vault,
// together with the number of approvals needed to release a proposal.
// It is validated once at construction and never mutated afterwards.
type Roster struct {
	signers  []vault.Address
	position map[string]int
	required uint32
}

// NewRoster validates the candidate signers and threshold and returns a
// roster. The signer order is preserved, it determines each signer's
// position in the per-proposal approval bitmaps.
func NewRoster(signers []vault.Address, required uint32) (*Roster, error) {
	switch n := len(signers); {
	case n == 0:
		return nil, errors.Wrap(ErrInvalidRoster, "no signers")
	case n > maxRosterSize:
		return nil, errors.Wrapf(ErrInvalidRoster, "too many signers: %d", n)
	}

	list := make([]vault.Address, 0, len(signers))
	position := make(map[string]int, len(signers))
	for i, s := range signers {
		if err := s.Validate(); err != nil {
			return nil, errors.Wrapf(ErrInvalidRoster, "signer %d: %v", i, err)
		}
		if _, ok := position[string(s)]; ok {
			return nil, errors.Wrapf(ErrInvalidRoster, "duplicate signer %s", s)
		}
		position[string(s)] = i
		list = append(list, s.Clone())
	}

	if required == 0 {
		return nil, errors.Wrap(ErrInvalidThreshold, "threshold must be greater than zero")
	}
	if int(required) > len(list) {
		return nil, errors.Wrapf(ErrInvalidThreshold,
			"threshold %d greater than %d signers", required, len(list))
	}

	return &Roster{
		signers:  list,
		position: position,
		required: required,
	}, nil
}

// Member returns true if the given address belongs to a roster signer.
func (r *Roster) Member(a vault.Address) bool {
	_, ok := r.position[string(a)]
	return ok
}

// Position returns the bitmap position of the given signer and whether
// the signer is a roster member at all.
func (r *Roster) Position(a vault.Address) (int, bool) {
	pos, ok := r.position[string(a)]
	return pos, ok
}

// Signers returns the signers in roster order. The result is a copy,
// mutating it cannot affect the roster.
func (r *Roster) Signers() []vault.Address {
	list := make([]vault.Address, len(r.signers))
	for i, s := range r.signers {
		list[i] = s.Clone()
	}
	return list
}

// Required returns the approval threshold.
func (r *Roster) Required() uint32 {
	return r.required
}

// Size returns the number of signers.
func (r *Roster) Size() int {
	return len(r.signers)
}
