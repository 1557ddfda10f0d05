// Package listener tracks one submitted job to its terminal state by
// watching the engine's websocket event stream.
//
// The wait is a small state machine: Connecting -> Streaming -> Completed or
// Failed. A transport drop before a terminal event re-enters Connecting
// under a bounded retry policy; reconnecting on the same client id resumes
// the stream for the still-running job and never re-submits it.
package listener
