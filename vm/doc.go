// Package vm implements the bfi tape machine.
//
// This package contains:
//   - A fixed-length, zero-initialized byte tape with checked pointer movement
//   - A bounded loop stack of saved instruction positions
//   - The instruction dispatch loop with on-the-fly bracket matching
//   - The error taxonomy reported when a run halts early
//
// A Machine owns all of its state and is built fresh for every run, so
// independent machines may execute concurrently without locking. The only
// shared collaborator is the Sink that receives output bytes.
package vm
