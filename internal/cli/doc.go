// Package cli turns command-line flags into an app.Config. It owns the usage
// text and reports bad input as an ExitError carrying the exit code.
package cli
