// Package session is the request/response face of the assistant. A session outlives the
// conversations it holds: once a purchase completes a conversation, the next message starts a
// fresh one in the same session.
//
// Chat sends one message, polls the executor until the turn is over and renders the newest
// user-facing turn as the reply.
package session
