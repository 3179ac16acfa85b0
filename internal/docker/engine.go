// engine.go maps each engine subcommand the copier needs onto a Runner
// invocation: build, inspect, create, cp, rm and rmi.
//
// Nothing here talks to the Docker daemon directly. The docker API types are
// only used to decode the JSON that "docker inspect" prints.
package docker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types/image"
)

// Engine runs the docker subcommands used to copy files out of an image.
type Engine struct {
	runner *Runner
}

// NewEngine creates an Engine on top of runner.
func NewEngine(runner *Runner) *Engine {
	return &Engine{runner: runner}
}

// Build builds an image from contextDir and returns its ID.
//
// The ID is read from a file written by "docker build --iidfile" rather than
// scraped from the build output, which differs between the classic builder
// and BuildKit. extraArgs are inserted before the context path so callers
// can pass flags such as "-f Dockerfile.alt" or "--target base".
func (e *Engine) Build(ctx context.Context, contextDir string, extraArgs []string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "docker-image-cp-")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir for image id: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	iidFile := filepath.Join(tmpDir, "iid")

	args := make([]string, 0, len(extraArgs)+3)
	args = append(args, "build", "--iidfile="+iidFile)
	args = append(args, extraArgs...)
	args = append(args, contextDir)

	if err := e.runner.Run(ctx, args...); err != nil {
		return "", err
	}

	data, err := os.ReadFile(iidFile)
	if err != nil {
		return "", fmt.Errorf("failed to read image id: %w", err)
	}

	iid := strings.TrimSpace(string(data))
	if iid == "" {
		return "", fmt.Errorf("image build for %q produced an empty image id", contextDir)
	}
	return iid, nil
}

// WorkingDir returns the working directory recorded in the image config.
// An image without a WORKDIR instruction yields an empty string.
func (e *Engine) WorkingDir(ctx context.Context, imageID string) (string, error) {
	out, err := e.runner.Output(ctx, "inspect", imageID)
	if err != nil {
		return "", err
	}
	return parseWorkingDir([]byte(out))
}

// parseWorkingDir extracts [0].Config.WorkingDir from "docker inspect" output.
func parseWorkingDir(data []byte) (string, error) {
	var info []image.InspectResponse
	if err := json.Unmarshal(data, &info); err != nil {
		return "", fmt.Errorf("failed to parse inspect output: %w", err)
	}
	if len(info) == 0 {
		return "", fmt.Errorf("inspect returned no objects")
	}
	if info[0].Config == nil {
		return "", nil
	}
	return info[0].Config.WorkingDir, nil
}

// CreateContainer creates (but does not start) a container from imageID
// and returns the container ID.
func (e *Engine) CreateContainer(ctx context.Context, imageID string) (string, error) {
	out, err := e.runner.Output(ctx, "create", imageID)
	if err != nil {
		return "", err
	}

	cid := strings.TrimSpace(out)
	if cid == "" {
		return "", fmt.Errorf("create returned an empty container id for image %q", imageID)
	}
	return cid, nil
}

// Copy copies src from inside the container to dst on the host.
func (e *Engine) Copy(ctx context.Context, containerID, src, dst string) error {
	return e.runner.Run(ctx, "cp", containerID+":"+src, dst)
}

// RemoveContainer removes a container by ID.
func (e *Engine) RemoveContainer(ctx context.Context, containerID string) error {
	return e.runner.Run(ctx, "rm", containerID)
}

// RemoveImage removes an image by ID.
func (e *Engine) RemoveImage(ctx context.Context, imageID string) error {
	return e.runner.Run(ctx, "rmi", imageID)
}
