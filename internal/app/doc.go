// Package app provides the application service layer.
//
// Orchestrates use cases: the subscribe/unsubscribe command contract, the
// timer-driven poll sweeps for both content kinds, and hub lease renewal.
// Sits between transports (chat commands, HTTP webhook) and the store and
// upstream clients.
package app
