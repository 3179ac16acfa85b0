// Package docker wraps the container engine command-line tool for the
// docker-image-cp CLI.
//
// This package handles:
//   - Running the engine binary as a child process, echoing each
//     invocation to the diagnostic stream ("+ docker create ...")
//   - Mapping non-zero exits to ExitError so callers can propagate the
//     engine's own exit code
//   - The subcommands needed to copy out of an image: build, inspect,
//     create, cp, rm and rmi
//
// All engine work is delegated to the CLI. The package never opens a
// connection to the Docker daemon; github.com/docker/docker is used only for
// the types that describe "docker inspect" output.
package docker
