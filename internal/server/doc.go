// Package server exposes calculator sessions over HTTP and socket.io.
//
// The REST API (gin) opens, inspects, edits and closes sessions. Every
// session is a socket.io room named after its ID: clients that join it
// receive value_changed, validation_changed and direction_changed events,
// and may send edit and toggle events instead of using the REST API.
package server
