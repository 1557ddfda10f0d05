// Package client is the HTTP/websocket wrapper around a ComfyUI-compatible
// execution engine. It submits workflow graphs, tracks a submitted job to
// its terminal state through the listener package, and exposes the engine's
// stateless collaborators (history lookup, artifact fetch and upload, prompt
// validation) at their boundary.
package client
