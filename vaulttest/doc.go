/*
Package vaulttest provides mocked implementations of the engine's
collaborator interfaces for tests: generated addresses, an in-memory
value sink with failure injection and an event recorder.
*/
package vaulttest
