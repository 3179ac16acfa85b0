// Package model defines the domain types for the docker-image-cp CLI.
//
// The only entity is the transient argument set for a single run. It lives
// for the duration of the process and is never persisted.
package model

import (
	"fmt"
	"path"
	"path/filepath"
)

// Args is the parsed argument set for one copy operation.
//
// Exactly one of Image and Build must be set. When Build is set the image
// is produced on the fly and is owned (and removed) by the run.
type Args struct {
	// Src is the path to copy from within the image. A relative path is
	// resolved against the image's configured working directory.
	Src string

	// Dst is the host path to copy to. Empty means "same as Src",
	// interpreted relative to the current directory.
	Dst string

	// Image is the ID (or reference) of a pre-existing image.
	Image string

	// Build is the path to a build context used to build a fresh image.
	Build string

	// BuildArgs holds extra arguments passed verbatim to the image builder,
	// placed before the context path.
	BuildArgs []string

	// Cleanup controls whether the container (and a built image) are
	// removed at the end of the run.
	Cleanup bool
}

// Validate checks the invariants of the argument set. It is called before
// any external command runs, so a failure here never leaves anything
// behind.
func (a *Args) Validate() error {
	hasImage := a.Image != ""
	hasBuild := a.Build != ""

	switch {
	case hasImage && hasBuild:
		return fmt.Errorf("argument -b/--build: not allowed with argument -i/--image")
	case !hasImage && !hasBuild:
		return fmt.Errorf("one of the arguments -i/--image -b/--build is required")
	}

	if a.Src == "" {
		return fmt.Errorf("the following arguments are required: SRC")
	}

	if IsAbsPath(a.Src) && a.Dst == "" {
		return fmt.Errorf("must specify DST if SRC is absolute")
	}

	if len(a.BuildArgs) > 0 && !hasBuild {
		return fmt.Errorf("argument -B/--build-arg: only allowed with argument -b/--build")
	}

	return nil
}

// BuildsImage reports whether the run builds (and therefore owns) its image.
// It uses the same presence test as Validate.
func (a *Args) BuildsImage() bool {
	return a.Build != ""
}

// Destination returns the host path the copy writes to.
func (a *Args) Destination() string {
	if a.Dst != "" {
		return a.Dst
	}
	return a.Src
}

// IsAbsPath reports whether p is absolute either as a container (POSIX)
// path or as a host path.
func IsAbsPath(p string) bool {
	return path.IsAbs(filepath.ToSlash(p)) || filepath.IsAbs(p)
}

// ResolveSource returns the in-image path for src. Absolute paths pass
// through unchanged; relative paths are joined onto workDir. Container paths
// are always slash-separated, regardless of the host OS.
func ResolveSource(src, workDir string) string {
	if IsAbsPath(src) {
		return filepath.ToSlash(src)
	}
	return path.Join(workDir, filepath.ToSlash(src))
}

// ExitCode defines the process exit codes used by the CLI.
// External command failures exit with the external command's own code,
// so only the codes the CLI produces by itself are listed here.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitUsage indicates an invalid combination of arguments.
	ExitUsage ExitCode = 2

	// ExitCommandNotFound indicates the container engine binary could
	// not be started at all.
	ExitCommandNotFound ExitCode = 127

	// ExitInterrupted indicates the run was cancelled by SIGINT/SIGTERM.
	ExitInterrupted ExitCode = 130
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// UsageError creates a CLIError for an invalid argument combination.
func UsageError(err error) *CLIError {
	return &CLIError{Code: ExitUsage, Message: err.Error()}
}
