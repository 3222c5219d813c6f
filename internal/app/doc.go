// Package app contains the core application logic. It wires the calculator
// registry, loads templates and runs the selected mode (list, one-shot
// calculation, server or watch), decoupled from any specific entrypoint.
package app
