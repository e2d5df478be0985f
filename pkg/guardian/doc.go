// Package guardian is a client for a federation guardian's admin API.
//
// A Client holds at most one connection, opened on first use and shared by
// concurrent callers. Every request carries the stored credential in an
// {auth, params} envelope; the server decides what it accepts based on its
// current phase, which the client observes with Status but never enforces.
//
// Setup-phase methods (SetPassword through StartConsensus) and running-phase
// methods (Version through ModuleCall) live on the same Client. Calling a
// method the current phase does not serve yields the server's error reply as
// a *transport.RPCError.
package guardian
