package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/docker-image-cp/internal/docker"
	"github.com/shinji-kodama/docker-image-cp/internal/model"
)

// fakeDocker logs each invocation to $FAKE_DOCKER_LOG and fails the
// subcommand named by $FAKE_DOCKER_FAIL with exit code 42. "cp" writes
// "from <src>" to the destination.
const fakeDocker = `#!/bin/sh
echo "$@" >> "$FAKE_DOCKER_LOG"
if [ "$1" = "$FAKE_DOCKER_FAIL" ]; then
  exit 42
fi
case "$1" in
  build)
    for a in "$@"; do
      case "$a" in
        --iidfile=*) printf 'sha256:feedface' > "${a#--iidfile=}" ;;
      esac
    done
    ;;
  inspect) printf '[{"Config":{"WorkingDir":"/work"}}]' ;;
  create) echo "cid42" ;;
  cp) printf 'from %s' "$2" > "$3" ;;
esac
`

type cliHarness struct {
	bin    string
	log    string
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func newHarness(t *testing.T) *cliHarness {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake docker script requires a POSIX shell")
	}

	dir := t.TempDir()
	h := &cliHarness{
		bin: filepath.Join(dir, "docker"),
		log: filepath.Join(dir, "calls.log"),
	}
	require.NoError(t, os.WriteFile(h.bin, []byte(fakeDocker), 0o755))

	t.Setenv("FAKE_DOCKER_LOG", h.log)
	t.Setenv("FAKE_DOCKER_FAIL", "")
	t.Setenv("DOCKER_IMAGE_CP_CONFIG", "")
	t.Setenv("NO_COLOR", "1")

	return h
}

// run executes the root command with argv and returns the exit code the
// process would have exited with.
func (h *cliHarness) run(argv ...string) model.ExitCode {
	cmd := NewRootCommand()
	cmd.SetArgs(argv)
	cmd.SetOut(&h.stdout)
	cmd.SetErr(&h.stderr)

	err := cmd.ExecuteContext(context.Background())
	return ExitCode(err, false)
}

func (h *cliHarness) calls(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(h.log)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestRoot_BuildCopiesAndCleansUp(t *testing.T) {
	h := newHarness(t)
	dst := filepath.Join(t.TempDir(), "foo.txt")

	code := h.run("--docker", h.bin, "-b", "/ctx", "foo.txt", dst)
	require.Equal(t, model.ExitSuccess, code, h.stderr.String())

	calls := h.calls(t)
	require.Len(t, calls, 6)
	assert.True(t, strings.HasPrefix(calls[0], "build --iidfile="))
	assert.Equal(t, "inspect sha256:feedface", calls[1])
	assert.Equal(t, "create sha256:feedface", calls[2])
	assert.Equal(t, "cp cid42:/work/foo.txt "+dst, calls[3])
	assert.Equal(t, "rm cid42", calls[4])
	assert.Equal(t, "rmi sha256:feedface", calls[5])

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "from cid42:/work/foo.txt", string(got))
}

// TestRoot_EchoesEveryCommand verifies one "+ " line per engine invocation
// on stderr.
func TestRoot_EchoesEveryCommand(t *testing.T) {
	h := newHarness(t)
	dst := filepath.Join(t.TempDir(), "hostname")

	code := h.run("--docker", h.bin, "-i", "alpine", "/etc/hostname", dst)
	require.Equal(t, model.ExitSuccess, code, h.stderr.String())

	var echoed []string
	for _, line := range strings.Split(h.stderr.String(), "\n") {
		if strings.HasPrefix(line, "+ ") {
			echoed = append(echoed, line)
		}
	}
	assert.Equal(t, []string{
		"+ " + h.bin + " create alpine",
		"+ " + h.bin + " cp cid42:/etc/hostname " + dst,
		"+ " + h.bin + " rm cid42",
	}, echoed)
}

func TestRoot_NoCleanup(t *testing.T) {
	h := newHarness(t)
	dst := filepath.Join(t.TempDir(), "foo.txt")

	code := h.run("--docker", h.bin, "-C", "-b", "/ctx", "foo.txt", dst)
	require.Equal(t, model.ExitSuccess, code)

	for _, c := range h.calls(t) {
		assert.False(t, strings.HasPrefix(c, "rm "), "unexpected %q", c)
		assert.False(t, strings.HasPrefix(c, "rmi "), "unexpected %q", c)
	}
}

// TestRoot_UsageErrors verifies invalid argument combinations exit 2
// without running any engine command.
func TestRoot_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		argv []string
	}{
		{"neither image nor build", []string{"foo", "bar"}},
		{"both image and build", []string{"-i", "alpine", "-b", ".", "foo"}},
		{"blank image with build", []string{"-i", " ", "-b", "/ctx", "foo.txt", "out.txt"}},
		{"empty image with build", []string{"-i", "", "-b", "/ctx", "foo.txt", "out.txt"}},
		{"empty build alone", []string{"-b", "", "foo.txt"}},
		{"absolute src without dst", []string{"-i", "alpine", "/etc/hostname"}},
		{"missing src", []string{"-i", "alpine"}},
		{"too many positionals", []string{"-i", "alpine", "a", "b", "c"}},
		{"unknown flag", []string{"--nope", "-i", "alpine", "foo"}},
		{"bad log level", []string{"-l", "loud", "-i", "alpine", "foo"}},
		{"unbalanced build arg", []string{"-b", ".", "-B", "'-f", "foo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			code := h.run(append([]string{"--docker", h.bin}, tt.argv...)...)
			assert.Equal(t, model.ExitUsage, code)
			assert.Empty(t, h.calls(t), "no engine command may run on a usage error")
		})
	}
}

// TestRoot_PropagatesExitCode verifies that a failing engine command makes
// the CLI exit with the same code, while cleanup still runs.
func TestRoot_PropagatesExitCode(t *testing.T) {
	h := newHarness(t)
	t.Setenv("FAKE_DOCKER_FAIL", "cp")

	code := h.run("--docker", h.bin, "-b", "/ctx", "foo.txt", filepath.Join(t.TempDir(), "foo.txt"))
	assert.Equal(t, model.ExitCode(42), code)

	calls := h.calls(t)
	assert.Equal(t, []string{"rm cid42", "rmi sha256:feedface"}, calls[len(calls)-2:])
}

func TestRoot_BuildFailureStopsEarly(t *testing.T) {
	h := newHarness(t)
	t.Setenv("FAKE_DOCKER_FAIL", "build")

	code := h.run("--docker", h.bin, "-b", "/ctx", "foo.txt")
	assert.Equal(t, model.ExitCode(42), code)
	assert.Len(t, h.calls(t), 1)
}

func TestRoot_BuildArgsAreShellSplit(t *testing.T) {
	h := newHarness(t)
	dst := filepath.Join(t.TempDir(), "foo.txt")

	code := h.run("--docker", h.bin, "-b", "/ctx",
		"-B-f/ctx/Dockerfile.renamed", "-B", "--target 'build stage'", "foo.txt", dst)
	require.Equal(t, model.ExitSuccess, code, h.stderr.String())

	build := h.calls(t)[0]
	assert.True(t, strings.HasSuffix(build, " -f/ctx/Dockerfile.renamed --target build stage /ctx"), build)
	assert.Contains(t, h.stderr.String(), "--target 'build stage' /ctx")
}

func TestRoot_ConfigFile(t *testing.T) {
	h := newHarness(t)
	dst := filepath.Join(t.TempDir(), "foo.txt")

	cfgPath := filepath.Join(t.TempDir(), "docker-image-cp.jsonc")
	cfg := fmt.Sprintf(`{
  // engine under test
  "docker": %q,
  "cleanup": false,
  "buildArgs": ["--pull"],
}`, h.bin)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	t.Setenv("DOCKER_IMAGE_CP_CONFIG", cfgPath)

	code := h.run("-b", "/ctx", "foo.txt", dst)
	require.Equal(t, model.ExitSuccess, code, h.stderr.String())

	calls := h.calls(t)
	assert.True(t, strings.HasSuffix(calls[0], " --pull /ctx"), calls[0])
	assert.NotContains(t, calls, "rm cid42")
}

func TestRoot_MissingEngine(t *testing.T) {
	h := newHarness(t)

	code := h.run("--docker", filepath.Join(t.TempDir(), "absent"), "-i", "alpine", "foo.txt")
	assert.Equal(t, model.ExitCommandNotFound, code)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		interrupted bool
		expected    model.ExitCode
	}{
		{"success", nil, false, model.ExitSuccess},
		{"interrupted wins", &docker.ExitError{ExitCode: 1}, true, model.ExitInterrupted},
		{"external exit code", &docker.ExitError{ExitCode: 125}, false, model.ExitCode(125)},
		{"wrapped external exit code", fmt.Errorf("resolve: %w", &docker.ExitError{ExitCode: 3}), false, model.ExitCode(3)},
		{"signal killed child", &docker.ExitError{ExitCode: -1}, false, model.ExitGeneralError},
		{"start failure", &docker.StartError{Err: errors.New("not found")}, false, model.ExitCommandNotFound},
		{"usage", model.UsageError(errors.New("bad")), false, model.ExitUsage},
		{"cancelled", fmt.Errorf("docker cp: %w", context.Canceled), false, model.ExitInterrupted},
		{"other", errors.New("boom"), false, model.ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExitCode(tt.err, tt.interrupted))
		})
	}
}
