// Package eventstore provides the version information for the event store.
package eventstore

// Version is the current version of the event store.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
