// Package cli implements the cobra-based command line for docker-image-cp.
//
// The tool has a single command, so the root command does the work: it
// turns flags, positional arguments and the optional config file into a
// model.Args, validates it, and hands it to the copier.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/docker-image-cp/internal/config"
	"github.com/shinji-kodama/docker-image-cp/internal/copier"
	"github.com/shinji-kodama/docker-image-cp/internal/docker"
	"github.com/shinji-kodama/docker-image-cp/internal/logger"
	"github.com/shinji-kodama/docker-image-cp/internal/model"
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// options holds the raw flag values for one command instance.
type options struct {
	image      string
	build      string
	buildArgs  []string
	noCleanup  bool
	dockerBin  string
	configPath string
	logLevel   string
	logFormat  string
	verbose    bool
}

// NewRootCommand creates and configures the root cobra command.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "docker-image-cp [flags] SRC [DST]",
		Short: "Copy files out of a Docker image",
		Long: `docker-image-cp copies a file or directory out of a Docker image onto the
host. The image is either an existing one (--image) or built on the fly from
a build context (--build).

SRC is the path to copy from within the image. It may be relative, in which
case it is relative to the image's working directory.

DST is the path on the host to copy to. It defaults to SRC if SRC is
relative; if SRC is absolute, DST is required.

A throwaway container is created to copy from. It is always removed when
done, and an image built by this command is removed too, unless
--no-cleanup is given. Every docker command is echoed to stderr before it
runs.

Examples:
  docker-image-cp -b . dist/app.tar.gz
  docker-image-cp -i alpine:3.20 /etc/os-release os-release
  docker-image-cp -b ./ctx -B "-f ./ctx/Dockerfile.build --target out" out/ ./out`,

		Args: func(cmd *cobra.Command, args []string) error {
			// cobra checks flag groups after the args, and its error
			// carries no exit code. Check them here so a conflict is a
			// usage error like any other.
			if err := cmd.ValidateFlagGroups(); err != nil {
				return model.UsageError(err)
			}
			if len(args) < 1 {
				return model.NewCLIError(model.ExitUsage, "the following arguments are required: SRC")
			}
			if len(args) > 2 {
				return model.NewCLIError(model.ExitUsage,
					fmt.Sprintf("unrecognized arguments: %v", args[2:]))
			}
			return nil
		},

		RunE: func(cmd *cobra.Command, args []string) error {
			return runCopy(cmd, opts, args)
		},

		// SilenceUsage prevents cobra from printing usage on every error.
		// Execute prints it for usage errors only.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.image, "image", "i", "", "ID of a pre-existing image to copy from")
	flags.StringVarP(&opts.build, "build", "b", "", "Context path for building an image to copy from")
	flags.StringArrayVarP(&opts.buildArgs, "build-arg", "B", nil,
		"Extra arguments for docker build, shell-split (repeatable)")
	flags.BoolVarP(&opts.noCleanup, "no-cleanup", "C", false,
		"Don't delete image or container when done (default is to always remove the container, and attempt to remove the image if it was built by this command)")
	flags.StringVar(&opts.dockerBin, "docker", "", "Container engine binary (default \"docker\")")
	flags.StringVar(&opts.configPath, "config", "",
		"Config file (.json, .jsonc, .yaml, .yml); defaults to $"+config.EnvConfigPath)
	flags.StringVarP(&opts.logLevel, "log-level", "l", "", "Log level: debug, info, warn, error (default \"info\")")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format: console, json, dev, none (default \"console\")")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output (same as --log-level=debug)")

	// Presence, not value, decides: "-i '' -b ctx" is a conflict too.
	rootCmd.MarkFlagsMutuallyExclusive("image", "build")
	rootCmd.MarkFlagsOneRequired("image", "build")

	_ = rootCmd.MarkFlagDirname("build")
	_ = rootCmd.MarkFlagFilename("config", "json", "jsonc", "yaml", "yml")

	// Unknown flags and bad flag values are usage errors, like a missing
	// SRC.
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return model.UsageError(err)
	})

	return rootCmd
}

// runCopy is the main logic function for the root command.
func runCopy(cmd *cobra.Command, opts *options, posArgs []string) error {
	fileCfg, err := config.Load(config.ResolvePath(opts.configPath))
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to load config", err)
	}

	log, err := newLogger(cmd, opts, fileCfg)
	if err != nil {
		return model.UsageError(err)
	}
	ctx := logger.WithContext(cmd.Context(), log)

	args, err := buildArgs(cmd, opts, posArgs, fileCfg)
	if err != nil {
		return model.UsageError(err)
	}
	if err := args.Validate(); err != nil {
		return model.UsageError(err)
	}

	binary := opts.dockerBin
	if binary == "" {
		binary = fileCfg.Docker
	}

	runner := docker.NewRunner(binary)
	runner.Stdout = cmd.OutOrStdout()
	runner.Stderr = cmd.ErrOrStderr()

	log.Debug("starting copy", "src", args.Src, "dst", args.Destination(),
		"image", args.Image, "build", args.Build, "cleanup", args.Cleanup)

	return copier.New(docker.NewEngine(runner)).Run(ctx, args)
}

// buildArgs assembles model.Args from positional arguments, flags and the
// config file. Flags override the file.
func buildArgs(cmd *cobra.Command, opts *options, posArgs []string, fileCfg *config.File) (*model.Args, error) {
	args := &model.Args{
		Src:     posArgs[0],
		Image:   opts.image,
		Build:   opts.build,
		Cleanup: fileCfg.CleanupOr(true),
	}
	if len(posArgs) > 1 {
		args.Dst = posArgs[1]
	}
	if cmd.Flags().Changed("no-cleanup") {
		args.Cleanup = !opts.noCleanup
	}

	// Build args from the config file only apply to builds, so they are
	// not an error when --image is used.
	if args.Build != "" {
		args.BuildArgs = append(args.BuildArgs, fileCfg.BuildArgs...)
	}
	for _, raw := range opts.buildArgs {
		words, err := shlex.Split(raw)
		if err != nil {
			return nil, fmt.Errorf("argument -B/--build-arg: invalid value %q: %w", raw, err)
		}
		args.BuildArgs = append(args.BuildArgs, words...)
	}

	return args, nil
}

// newLogger creates the run's logger. --verbose wins over --log-level,
// which wins over the config file.
func newLogger(cmd *cobra.Command, opts *options, fileCfg *config.File) (*slog.Logger, error) {
	cfg := logger.ConfigDefault()
	cfg.Destination = cmd.ErrOrStderr()
	cfg.Color = os.Getenv("NO_COLOR") == ""

	levelStr := firstNonEmpty(opts.logLevel, fileCfg.LogLevel)
	if opts.verbose {
		levelStr = logger.Debug.String()
	}
	if levelStr != "" {
		level, err := logger.ParseLevel(levelStr)
		if err != nil {
			return nil, err
		}
		cfg.Level = level
	}

	if formatStr := firstNonEmpty(opts.logFormat, fileCfg.LogFormat); formatStr != "" {
		format, err := logger.ParseFormat(formatStr)
		if err != nil {
			return nil, err
		}
		cfg.Format = format
	}

	return logger.New(cfg)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Execute runs the root command and exits the process with the resulting
// exit code. This is the main entry point called from main.go.
//
// SIGINT and SIGTERM cancel the run. Pending cleanups still execute, and
// the process then exits with code 130.
func Execute(rootCmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	interrupted := ctx.Err() != nil

	code := ExitCode(err, interrupted)
	if code != model.ExitSuccess {
		printError(rootCmd, err, code)
	}

	stop()
	os.Exit(int(code))
}

// ExitCode maps the error returned by the root command to a process exit
// code. External command failures keep the external command's own code.
func ExitCode(err error, interrupted bool) model.ExitCode {
	if interrupted {
		return model.ExitInterrupted
	}
	if err == nil {
		return model.ExitSuccess
	}

	var exitErr *docker.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.ExitCode <= 0 {
			// Killed by a signal; there is no code to propagate.
			return model.ExitGeneralError
		}
		return model.ExitCode(exitErr.ExitCode)
	}

	var startErr *docker.StartError
	if errors.As(err, &startErr) {
		return model.ExitCommandNotFound
	}

	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}

	if errors.Is(err, context.Canceled) {
		return model.ExitInterrupted
	}

	return model.ExitGeneralError
}

// printError writes the failure to stderr. External command failures are
// not repeated: the command was echoed and its own stderr already shown.
func printError(rootCmd *cobra.Command, err error, code model.ExitCode) {
	w := rootCmd.ErrOrStderr()

	switch {
	case code == model.ExitInterrupted:
		fmt.Fprintln(w, "Interrupted")
	case err == nil:
		return
	case errors.As(err, new(*docker.ExitError)):
		return
	case code == model.ExitUsage:
		fmt.Fprintf(w, "Usage: %s\n", rootCmd.UseLine())
		fmt.Fprintf(w, "Error: %s\n", err)
	default:
		fmt.Fprintf(w, "Error: %s\n", err)
	}
}
