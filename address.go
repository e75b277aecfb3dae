package vault

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"

	"github.com/vaultsig/vault/errors"
)

// AddressLength is the size in bytes of every identity handled by the
// engine. It must not change during the lifetime of an engine instance.
const AddressLength = 20

// Address is the binary identity of a signer, a destination account or a
// token contract. It is derived from arbitrary key material by hashing,
// so the engine never needs to understand the key scheme of its host.
type Address []byte

// NewAddress hashes the given key material into an address. A nil input
// returns a nil address.
func NewAddress(data []byte) Address {
	if data == nil {
		return nil
	}
	h := sha256.Sum256(data)
	return Address(h[:AddressLength])
}

// ParseAddress decodes a hex encoded address and validates it.
func ParseAddress(enc string) (Address, error) {
	raw, err := hex.DecodeString(enc)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "hex decode: %v", err)
	}
	addr := Address(raw)
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	return addr, nil
}

// Validate returns an error if this is not a well formed address.
func (a Address) Validate() error {
	switch {
	case len(a) == 0:
		return errors.Wrap(errors.ErrEmpty, "address")
	case len(a) != AddressLength:
		return errors.Wrapf(errors.ErrInput, "address must be %d bytes, got %d", AddressLength, len(a))
	}
	return nil
}

// Equals checks if two addresses are the same.
func (a Address) Equals(b Address) bool {
	return bytes.Equal(a, b)
}

// Clone returns an independent copy so that callers can hold on to an
// address without pinning memory shared with the engine.
func (a Address) Clone() Address {
	if a == nil {
		return nil
	}
	cpy := make(Address, len(a))
	copy(cpy, a)
	return cpy
}

func (a Address) String() string {
	if len(a) == 0 {
		return "(nil)"
	}
	return hex.EncodeToString(a)
}
