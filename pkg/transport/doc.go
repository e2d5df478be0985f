// Package transport defines the boundary between the guardian client and the
// wire. A Dialer opens a Conn; a Conn carries request/response round trips
// whose single argument is an Envelope holding the operator credential and
// the method parameters.
//
// Two implementations ship with the module: wsrpc (JSON-RPC 2.0 over a
// WebSocket, the protocol guardians speak natively) and grpcrpc (the same
// envelope carried as protobuf Struct values over gRPC).
package transport
