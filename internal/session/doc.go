// Package session drives a quiz session: it turns item transitions into
// epochs, spawns a Beacon and a playback Context for each one, and forwards
// the user's controls to the current context.
package session
