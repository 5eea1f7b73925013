// Package service orchestrates the core components of the exchange:
// the order book, the trade ledger, the notification outbox, the
// market-data cache, and snapshots.
//
// It is the ONLY write entry point into the book, decoupled from network
// transports. Sinks are dispatched after the book releases its lock, so no
// I/O ever runs inside the matching path.
package service
