// Package app contains the core application logic. It wires the profile
// configuration, the engine client and the result sinks into the primary
// execution lifecycle, decoupled from any specific entrypoint like a CLI.
package app
