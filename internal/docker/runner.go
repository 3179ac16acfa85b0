package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
)

// DefaultBinary is the container engine CLI used when none is configured.
const DefaultBinary = "docker"

// interruptGrace is how long a cancelled child process gets to exit after
// receiving an interrupt before it is killed.
const interruptGrace = 10 * time.Second

// ExitError reports an external command that ran but exited non-zero.
// The CLI exits with the same code.
type ExitError struct {
	// Args is the full argv, binary included.
	Args []string

	// ExitCode is the code reported by the child process.
	ExitCode int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command %q exited with code %d", shellquote.Join(e.Args...), e.ExitCode)
}

// StartError reports an external command that could not be started,
// typically because the binary is missing from PATH.
type StartError struct {
	Args []string
	Err  error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("failed to start %q: %v", shellquote.Join(e.Args...), e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}

// Runner invokes the container engine CLI as a child process.
//
// Every invocation is echoed to Stderr before it runs, as a single line of
// the form "+ docker cp 'abc:/my file' out", so a user can replay or debug
// exactly what was executed.
type Runner struct {
	// Binary is the engine executable (name or path).
	Binary string

	// Stdout receives the child's standard output for commands whose
	// output is not captured.
	Stdout io.Writer

	// Stderr is the diagnostic stream. It receives the echo lines and the
	// child's standard error.
	Stderr io.Writer
}

// NewRunner creates a Runner for binary writing to the process streams.
// An empty binary selects DefaultBinary.
func NewRunner(binary string) *Runner {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Runner{
		Binary: binary,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Run executes the engine with args, passing stdout through.
func (r *Runner) Run(ctx context.Context, args ...string) error {
	return r.run(ctx, r.stdout(), args)
}

// Output executes the engine with args and returns its standard output.
func (r *Runner) Output(ctx context.Context, args ...string) (string, error) {
	var stdout bytes.Buffer
	if err := r.run(ctx, &stdout, args); err != nil {
		return "", err
	}
	return stdout.String(), nil
}

func (r *Runner) run(ctx context.Context, stdout io.Writer, args []string) error {
	argv := append([]string{r.Binary}, args...)

	fmt.Fprintln(r.stderr(), "+ "+shellquote.Join(argv...))

	// #nosec G204 — argv is assembled from flags the user passed to us
	cmd := exec.CommandContext(ctx, r.Binary, args...)

	// The docker CLI cleans up after itself on SIGINT, so prefer that
	// over the default SIGKILL when the run is cancelled.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = interruptGrace

	cmd.Stdout = stdout
	cmd.Stderr = r.stderr()

	err := cmd.Run()
	if err == nil {
		return nil
	}

	// A cancelled context takes precedence: the child's exit status is
	// just a consequence of the interrupt.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s %s: %w", r.Binary, strings.Join(args, " "), ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{
			Args:     argv,
			ExitCode: exitErr.ExitCode(),
		}
	}

	return &StartError{Args: argv, Err: err}
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout == nil {
		return io.Discard
	}
	return r.Stdout
}

func (r *Runner) stderr() io.Writer {
	if r.Stderr == nil {
		return io.Discard
	}
	return r.Stderr
}
