/*
Package vault defines the shared types and collaborator interfaces of the
quorum release engine.

A vault holds value on behalf of a fixed group of signers. Any signer can
propose a transfer out of the vault, and once enough signers approved a
proposal it is released exactly once. The engine implementing those rules
lives in the engine package; this package only carries what the engine and
its host must agree on:

  - Address and Amount, the identity and value types,
  - ValueSink, the capability the host provides to actually move value,
  - EventSink, the notification channel for every state transition.

The engine never touches balances directly. All value movement goes
through a ValueSink so the core logic can be exercised against mocks,
including hostile ones that call back into the engine (see vaulttest).
*/
package vault
