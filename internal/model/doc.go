// Package model defines the domain types and value objects for the
// docker-image-cp CLI.
//
// This package contains pure data structures with no external dependencies.
// Args is a transient representation of one invocation; nothing is
// persisted between runs.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
