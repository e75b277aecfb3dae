package engine

import (
	"encoding/binary"
	"fmt"

	amino "github.com/tendermint/go-amino"

	"github.com/vaultsig/vault"
	"github.com/vaultsig/vault/errors"
	"github.com/vaultsig/vault/store"
)

// stateCodec serializes the snapshot records below. They are plain
// structs, so no concrete type registration is needed.
var stateCodec = amino.NewCodec()

var (
	rosterKey = []byte("roster")
	stateKey  = []byte("state")
)

const proposalPrefix = "proposal:"

func proposalKey(index uint64) []byte {
	key := make([]byte, len(proposalPrefix)+8)
	copy(key, proposalPrefix)
	binary.BigEndian.PutUint64(key[len(proposalPrefix):], index)
	return key
}

// rosterRecord is the persisted form of the roster. Signer order is
// significant, it fixes the approval bitmap positions.
type rosterRecord struct {
	Signers  [][]byte
	Required uint32
}

// engineRecord captures the scalar engine state.
type engineRecord struct {
	Balance       vault.Amount
	ProposalCount uint64
}

// SaveState writes a snapshot of the whole engine state to the given
// store: roster and threshold, balance, proposal count and one record
// per proposal including its approval bitmap. The writes go through a
// cache wrap, so a half written snapshot is never visible in the store.
//
// Saving while a release is in flight is rejected, a consistent
// snapshot does not exist at that point.
func (e *Engine) SaveState(db store.CacheableKVStore) error {
	if e.executing {
		return errors.Wrap(ErrReentrant, "release in progress")
	}

	cw := db.CacheWrap()
	if err := e.writeState(cw); err != nil {
		cw.Discard()
		return err
	}
	return cw.Write()
}

func (e *Engine) writeState(kv store.KVStore) error {
	roster := rosterRecord{
		Signers:  make([][]byte, 0, e.roster.Size()),
		Required: e.roster.Required(),
	}
	for _, s := range e.roster.signers {
		roster.Signers = append(roster.Signers, s)
	}
	raw, err := stateCodec.MarshalBinaryBare(roster)
	if err != nil {
		return errors.Wrap(err, "marshal roster")
	}
	if err := kv.Set(rosterKey, raw); err != nil {
		return errors.Wrap(err, "store roster")
	}

	raw, err = stateCodec.MarshalBinaryBare(engineRecord{
		Balance:       e.balance,
		ProposalCount: e.proposals.size(),
	})
	if err != nil {
		return errors.Wrap(err, "marshal state")
	}
	if err := kv.Set(stateKey, raw); err != nil {
		return errors.Wrap(err, "store state")
	}

	for i, p := range e.proposals.items {
		raw, err := stateCodec.MarshalBinaryBare(*p)
		if err != nil {
			return errors.Wrapf(err, "marshal proposal %d", i)
		}
		if err := kv.Set(proposalKey(uint64(i)), raw); err != nil {
			return errors.Wrapf(err, "store proposal %d", i)
		}
	}
	return nil
}

// LoadEngine restores an engine from a snapshot written by SaveState,
// wiring it to the given collaborators. The snapshot is validated on the
// way in: the roster must pass construction rules again and every
// proposal record must be internally consistent. All integrity problems
// are reported together.
func LoadEngine(db store.ReadOnlyKVStore, sink vault.ValueSink, events vault.EventSink) (*Engine, error) {
	raw, err := db.Get(rosterKey)
	if err != nil {
		return nil, errors.Wrap(err, "load roster")
	}
	if raw == nil {
		return nil, errors.Wrap(errors.ErrNotFound, "roster")
	}
	var roster rosterRecord
	if err := stateCodec.UnmarshalBinaryBare(raw, &roster); err != nil {
		return nil, errors.Wrap(err, "unmarshal roster")
	}
	signers := make([]vault.Address, len(roster.Signers))
	for i, s := range roster.Signers {
		signers[i] = vault.Address(s)
	}

	eng, err := NewEngine(signers, roster.Required, sink, events)
	if err != nil {
		return nil, err
	}

	raw, err = db.Get(stateKey)
	if err != nil {
		return nil, errors.Wrap(err, "load state")
	}
	if raw == nil {
		return nil, errors.Wrap(errors.ErrNotFound, "state")
	}
	var state engineRecord
	if err := stateCodec.UnmarshalBinaryBare(raw, &state); err != nil {
		return nil, errors.Wrap(err, "unmarshal state")
	}
	eng.balance = state.Balance

	var integrity error
	for i := uint64(0); i < state.ProposalCount; i++ {
		raw, err := db.Get(proposalKey(i))
		if err != nil {
			return nil, errors.Wrapf(err, "load proposal %d", i)
		}
		if raw == nil {
			return nil, errors.Wrapf(errors.ErrNotFound, "proposal %d", i)
		}
		var p Proposal
		if err := stateCodec.UnmarshalBinaryBare(raw, &p); err != nil {
			return nil, errors.Wrapf(err, "unmarshal proposal %d", i)
		}
		integrity = errors.AppendField(integrity,
			fmt.Sprintf("Proposals.%d", i), p.Validate(eng.roster.Size()))
		eng.proposals.append(&p)
	}
	if integrity != nil {
		return nil, integrity
	}
	return eng, nil
}
