package vaulttest

import (
	"fmt"

	"golang.org/x/crypto/ed25519"

	"github.com/vaultsig/vault"
)

// NewAddress returns the address of a freshly generated ed25519 key.
// Each call returns a different address.
func NewAddress() vault.Address {
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		panic(fmt.Sprintf("cannot generate key: %s", err))
	}
	return vault.NewAddress(pub)
}

// NewAddresses returns n distinct addresses.
func NewAddresses(n int) []vault.Address {
	addrs := make([]vault.Address, n)
	for i := range addrs {
		addrs[i] = NewAddress()
	}
	return addrs
}
