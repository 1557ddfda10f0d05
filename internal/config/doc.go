// Package config loads the optional HCL profile describing an engine
// connection: server address and credentials, reconnect policy, submission
// side-channel data, and an optional object-storage export sink. Flags
// override profile values; the profile overrides built-in defaults.
package config
