// Package copier implements the copy-out-of-an-image sequence:
//
//	(build image | use given image) → resolve source path → create container
//	→ docker cp → unwrap single-file tar → cleanup
//
// Each step blocks on one engine call. The container and, when the run
// built it, the image are released on every exit path: normal completion,
// a failing engine call, or cancellation of the run context.
package copier

import (
	"context"
	"fmt"

	"github.com/shinji-kodama/docker-image-cp/internal/logger"
	"github.com/shinji-kodama/docker-image-cp/internal/model"
)

// Engine is the subset of container engine operations the copier needs.
// *docker.Engine implements it by shelling out to the docker CLI.
type Engine interface {
	Build(ctx context.Context, contextDir string, extraArgs []string) (string, error)
	WorkingDir(ctx context.Context, imageID string) (string, error)
	CreateContainer(ctx context.Context, imageID string) (string, error)
	Copy(ctx context.Context, containerID, src, dst string) error
	RemoveContainer(ctx context.Context, containerID string) error
	RemoveImage(ctx context.Context, imageID string) error
}

// Copier copies a path out of a container image onto the host.
type Copier struct {
	engine Engine
}

// New creates a Copier backed by engine.
func New(engine Engine) *Copier {
	return &Copier{engine: engine}
}

// Run performs one copy described by args. args must already be validated.
//
// Engine errors are returned unchanged so the caller can recover the
// engine's exit code. If the copy sequence succeeds but removing the
// container fails, that removal error is returned instead. A failure to
// remove a built image is only logged.
func (c *Copier) Run(ctx context.Context, args *model.Args) (err error) {
	log := logger.From(ctx)

	var stack cleanupStack
	defer func() {
		// The run context may already be cancelled by an interrupt;
		// teardown still has to reach the engine.
		if cerr := stack.close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}()

	imageID := args.Image
	if args.BuildsImage() {
		imageID, err = c.engine.Build(ctx, args.Build, args.BuildArgs)
		if err != nil {
			return err
		}
		log.Debug("built image", "image", imageID, "context", args.Build)

		if args.Cleanup {
			builtID := imageID
			stack.pushBestEffort("image "+builtID, func(ctx context.Context) error {
				return c.engine.RemoveImage(ctx, builtID)
			})
		}
	}

	src, err := c.resolveSource(ctx, imageID, args.Src)
	if err != nil {
		return err
	}
	dst := args.Destination()

	containerID, err := c.engine.CreateContainer(ctx, imageID)
	if err != nil {
		return err
	}
	log.Debug("created container", "container", containerID, "image", imageID)

	if args.Cleanup {
		stack.push("container "+containerID, func(ctx context.Context) error {
			return c.engine.RemoveContainer(ctx, containerID)
		})
	}

	if err := c.engine.Copy(ctx, containerID, src, dst); err != nil {
		return err
	}

	if err := unwrapSingleFile(dst); err != nil {
		log.Debug("left destination as copied", "dst", dst, "reason", err)
	} else {
		log.Debug("unwrapped single-file tar", "dst", dst)
	}

	log.Debug("copied", "src", src, "dst", dst)
	return nil
}

// resolveSource turns src into an absolute-or-image-relative path inside
// the image. Only relative paths need the image's working directory, so
// absolute ones skip the inspect call entirely.
func (c *Copier) resolveSource(ctx context.Context, imageID, src string) (string, error) {
	if model.IsAbsPath(src) {
		return model.ResolveSource(src, ""), nil
	}

	workDir, err := c.engine.WorkingDir(ctx, imageID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q against image working directory: %w", src, err)
	}

	resolved := model.ResolveSource(src, workDir)
	logger.From(ctx).Debug("resolved source", "src", src, "workdir", workDir, "resolved", resolved)
	return resolved, nil
}
