// Package wsrpc implements the guardian transport as JSON-RPC 2.0 over a
// WebSocket. Each request carries a fresh UUID id and the guardian envelope as
// its only positional parameter; a single reader goroutine routes responses
// back to the waiting caller.
package wsrpc
