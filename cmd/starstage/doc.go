// Package main hosts the starstage CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into catalog
// queries, processing-session staging operations, calibration matching, and
// configuration scaffolding. It centralizes configuration resolution and
// store wiring so subcommands can focus on user experience.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
