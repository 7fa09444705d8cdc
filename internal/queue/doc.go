// Package queue holds the upcoming quiz items of a session. It handles
// priority jumps and lookahead preloading so the next clip is usually
// decoded before the item is shown.
package queue
