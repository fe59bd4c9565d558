// Package logging provides implementations of the hiveseed.Logger interface.
//
//   - ConsoleLogger: writes to stderr, styling step banners and errors with
//     lipgloss when stderr is a color terminal
//   - NullLogger: discards all messages (useful for testing)
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
