package docker

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeDockerScript mimics the docker CLI subcommands used by Engine.
// Every invocation is appended to $FAKE_DOCKER_LOG, one line per call.
// $FAKE_DOCKER_FAIL names a subcommand that should exit with code 42.
const fakeDockerScript = `#!/bin/sh
echo "$@" >> "$FAKE_DOCKER_LOG"
if [ "$1" = "$FAKE_DOCKER_FAIL" ]; then
  echo "fake failure in $1" >&2
  exit 42
fi
case "$1" in
  build)
    for a in "$@"; do
      case "$a" in
        --iidfile=*) printf 'sha256:feedface\n' > "${a#--iidfile=}" ;;
      esac
    done
    echo "building"
    ;;
  inspect)
    printf '[{"Id":"%s","Config":{"WorkingDir":"/app"}}]' "$2"
    ;;
  create)
    echo "cid0123456789"
    ;;
  cp)
    ;;
  rm|rmi)
    echo "$2"
    ;;
  *)
    echo "unknown command: $1" >&2
    exit 1
    ;;
esac
`

// setupFakeDocker writes the fake docker script to a temp dir and points
// the log env var at a file in the same dir. It returns the script path and
// a function that reads the invocation log.
//
// The script needs a POSIX shell, so the tests that use it are skipped on
// Windows.
func setupFakeDocker(t *testing.T) (string, func() []string) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake docker script requires a POSIX shell")
	}

	dir := t.TempDir()
	bin := filepath.Join(dir, "docker")
	require.NoError(t, os.WriteFile(bin, []byte(fakeDockerScript), 0o755))

	logPath := filepath.Join(dir, "calls.log")
	t.Setenv("FAKE_DOCKER_LOG", logPath)
	t.Setenv("FAKE_DOCKER_FAIL", "")

	readLog := func() []string {
		data, err := os.ReadFile(logPath)
		if os.IsNotExist(err) {
			return nil
		}
		require.NoError(t, err)
		return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	}

	return bin, readLog
}
