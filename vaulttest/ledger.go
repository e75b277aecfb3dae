package vaulttest

import (
	"encoding/binary"
	"fmt"

	"github.com/vaultsig/vault"
	"github.com/vaultsig/vault/store"
)

// Invocation records a single Invoke call handled by the Ledger.
type Invocation struct {
	Dest    vault.Address
	Payload []byte
}

// Ledger is a mock vault.ValueSink keeping balances in a cache-wrapped
// in-memory store. It implements vault.Transactional, so effects staged
// during a release are dropped when the engine rolls the release back.
//
// Failures are injected through the error fields. The callback fields
// run while the sink call is in flight, before its effect is applied,
// the way a receiving contract would run code. A test can use them to
// call back into the engine.
type Ledger struct {
	NativeErr error
	TokenErr  error
	InvokeErr error

	NativeCallback func(dest vault.Address, amount vault.Amount, payload []byte) error
	InvokeCallback func(dest vault.Address, payload []byte) error

	// Invocations collects every successfully handled Invoke call.
	Invocations []Invocation

	base store.CacheableKVStore
	tx   store.KVCacheWrap
}

var _ vault.ValueSink = (*Ledger)(nil)
var _ vault.Transactional = (*Ledger)(nil)

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{base: store.MemStore()}
}

// Begin stages all following effects until Commit or Rollback.
func (l *Ledger) Begin() {
	if l.tx != nil {
		panic("ledger transaction already open")
	}
	l.tx = l.base.CacheWrap()
}

// Commit makes the staged effects permanent.
func (l *Ledger) Commit() {
	if err := l.tx.Write(); err != nil {
		panic(fmt.Sprintf("cannot commit: %s", err))
	}
	l.tx = nil
}

// Rollback drops the staged effects.
func (l *Ledger) Rollback() {
	l.tx.Discard()
	l.tx = nil
}

func (l *Ledger) TransferNative(dest vault.Address, amount vault.Amount, payload []byte) error {
	if l.NativeCallback != nil {
		if err := l.NativeCallback(dest, amount, payload); err != nil {
			return err
		}
	}
	if l.NativeErr != nil {
		return l.NativeErr
	}
	return l.credit(nativeKey(dest), amount)
}

func (l *Ledger) TransferToken(token vault.Address, dest vault.Address, amount vault.Amount) error {
	if l.TokenErr != nil {
		return l.TokenErr
	}
	return l.credit(tokenKey(token, dest), amount)
}

func (l *Ledger) Invoke(dest vault.Address, payload []byte) error {
	if l.InvokeCallback != nil {
		if err := l.InvokeCallback(dest, payload); err != nil {
			return err
		}
	}
	if l.InvokeErr != nil {
		return l.InvokeErr
	}
	l.Invocations = append(l.Invocations, Invocation{Dest: dest.Clone(), Payload: payload})
	return nil
}

// NativeBalance returns the native currency credited to dest so far.
func (l *Ledger) NativeBalance(dest vault.Address) vault.Amount {
	return l.balance(nativeKey(dest))
}

// TokenBalance returns the amount of the given token credited to dest so
// far.
func (l *Ledger) TokenBalance(token, dest vault.Address) vault.Amount {
	return l.balance(tokenKey(token, dest))
}

func (l *Ledger) kv() store.KVStore {
	if l.tx != nil {
		return l.tx
	}
	return l.base
}

func (l *Ledger) credit(key []byte, amount vault.Amount) error {
	total := l.balance(key) + amount
	value := make([]byte, 8)
	binary.BigEndian.PutUint64(value, uint64(total))
	return l.kv().Set(key, value)
}

func (l *Ledger) balance(key []byte) vault.Amount {
	raw, err := l.kv().Get(key)
	if err != nil {
		panic(fmt.Sprintf("cannot read balance: %s", err))
	}
	if raw == nil {
		return 0
	}
	return vault.Amount(binary.BigEndian.Uint64(raw))
}

func nativeKey(dest vault.Address) []byte {
	return []byte("native:" + dest.String())
}

func tokenKey(token, dest vault.Address) []byte {
	return []byte("token:" + token.String() + ":" + dest.String())
}
