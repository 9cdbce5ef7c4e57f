package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/roach88/golem/internal/engine"
	"github.com/roach88/golem/internal/sandbox"
)

// AttemptView is the payload of run and watch.
type AttemptView struct {
	Result engine.Result  `json:"result"`
	Output []sandbox.Line `json:"output"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <file|->",
		Short: "Submit code as an attempt at the current chapter",
		Long: `Run a Starlark file against the current chapter's validator.
Use - to read the code from standard input.

Exit codes:
  0 - The chapter is complete
  1 - The attempt failed or the chapter could not be graded
  2 - Command error (unreadable file, interpreter unavailable, etc.)

Examples:
  golem run golem.star
  echo 'nombre = "Arcilla"' | golem run -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				src, err := readSource(cmd, args[0])
				if err != nil {
					return err
				}
				_, err = submit(ctx, a, src)
				return err
			})
		},
	}
}

func readSource(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", WrapExitError(ExitCommandError, "read source", err)
	}
	return string(data), nil
}

// submit grades src and reports the attempt. A passed attempt is
// acknowledged right away.
func submit(ctx context.Context, a *app, src string) (engine.Result, error) {
	if err := a.requireHost(); err != nil {
		return engine.Result{}, err
	}
	a.session.SetBuffer(src)
	res, err := a.session.Run(ctx)
	if err != nil {
		return res, WrapExitError(ExitCommandError, "attempt rejected", err)
	}
	if res.Passed() {
		if err := a.session.Continue(); err != nil {
			return res, err
		}
	}

	view := AttemptView{Result: res, Output: a.session.Output()}
	render := func(w io.Writer) { renderAttempt(w, a.out.Style, view) }
	switch res.Outcome {
	case engine.OutcomeSuccess:
		return res, a.out.Success(view, render)
	case engine.OutcomeFailure:
		return res, a.out.Failure(ExitFailure, CodeAttemptFailed, res.Message, view, render)
	default:
		return res, a.out.Failure(ExitFailure, CodeValidationFault, res.Message, view, render)
	}
}

func renderAttempt(w io.Writer, st *Styler, v AttemptView) {
	for _, line := range v.Output {
		fmt.Fprintln(w, st.Line(line))
	}
	switch v.Result.Outcome {
	case engine.OutcomeSuccess:
		fmt.Fprintln(w, st.OK("Chapter complete.")+" "+st.Dim("`golem next` opens the next one."))
	case engine.OutcomeEngineError:
		fmt.Fprintln(w, st.Fail("This chapter could not be graded: ")+v.Result.Message)
	}
}

// watchDebounce coalesces the burst of events an editor save produces.
const watchDebounce = 150 * time.Millisecond

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	UntilPass bool
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-run a file every time it is saved",
		Long: `Watch a Starlark file and submit it as an attempt whenever it changes.
Stops on Ctrl-C, or after the first passing attempt with --until-pass.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			cmd.SetContext(ctx)
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				return watch(ctx, cmd, a, args[0], opts.UntilPass)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.UntilPass, "until-pass", false, "stop after the first passing attempt")

	return cmd
}

func watch(ctx context.Context, cmd *cobra.Command, a *app, path string, untilPass bool) error {
	if err := a.requireHost(); err != nil {
		return err
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "resolve path", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return WrapExitError(ExitCommandError, "create watcher", err)
	}
	defer watcher.Close()

	// Watch the directory: editors often replace the file on save.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return WrapExitError(ExitCommandError, "watch directory", err)
	}

	attempt := func() (done bool, err error) {
		src, err := readSource(cmd, target)
		if err != nil {
			return false, err
		}
		res, err := submit(ctx, a, src)
		if GetExitCode(err) == ExitCommandError {
			return false, err
		}
		a.out.VerboseLog("attempt %d on %s: %s", res.Seq, res.ChapterID, res.Outcome)
		return untilPass && res.Passed(), nil
	}

	if done, err := attempt(); done || err != nil {
		return err
	}

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				fire = time.After(watchDebounce)
			}

		case <-fire:
			fire = nil
			if _, err := os.Stat(target); err != nil {
				continue
			}
			if done, err := attempt(); done || err != nil {
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watcher error", "error", err)
		}
	}
}
