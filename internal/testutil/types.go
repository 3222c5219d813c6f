// Package testutil holds helpers shared by package tests: a recording
// calculator observer, a thread-safe log buffer and fixture writers.
package testutil
