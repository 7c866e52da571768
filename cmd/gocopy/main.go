// Package main implements gocopy, copying and moving files through a queue of
// progress dialogs that can be paused, resumed and canceled.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/desertwitch/gocopy/internal/configuration"
	"github.com/desertwitch/gocopy/internal/progress"
	"github.com/desertwitch/gocopy/internal/queue"
	"github.com/desertwitch/gocopy/internal/schema"
	"github.com/desertwitch/gocopy/internal/ui"
	"github.com/desertwitch/gocopy/internal/worker"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	stackTraceBufMax = 1 << 24
	uiPollInterval   = 10 * time.Millisecond
)

//nolint:gochecknoglobals
var (
	ExitCode = 0
	Version  string
)

type cliOptions struct {
	ui          bool
	configFile  string
	startOnIdle bool
	speedLimit  uint64
	cpuprofile  string
}

func setupSignalHandlers(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-sigChan
		slog.Warn("Received signal, shutting down all operations")
		cancel()
	}()

	sigChan2 := make(chan os.Signal, 1)
	signal.Notify(sigChan2, syscall.SIGUSR1)
	go func() {
		for range sigChan2 {
			buf := make([]byte, stackTraceBufMax)
			stacklen := runtime.Stack(buf, true)
			os.Stderr.Write(buf[:stacklen]) //nolint:errcheck
		}
	}()
}

func newRootCmd(opts *cliOptions, logManager *SlogManager) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "gocopy",
		Short:        "Copy and move files through a queue of progress dialogs",
		Version:      Version,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&opts.ui, "ui", true, "enable the UI")
	flags.StringVar(&opts.configFile, "config", "", "read the configuration from this file")
	flags.BoolVar(&opts.startOnIdle, "queue", false, "wait in the queue until no other operation exists")
	flags.Uint64Var(&opts.speedLimit, "speed-limit", 0, "limit the transfer speed (bytes per second)")
	flags.StringVar(&opts.cpuprofile, "cpuprofile", "", "write cpu profile to file")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "copy SRC... DST",
		Short: "Copy files and directories into a directory",
		Args:  cobra.MinimumNArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, logManager, []request{newRequest(true, args)})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "move SRC... DST",
		Short: "Move files and directories into a directory",
		Args:  cobra.MinimumNArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, logManager, []request{newRequest(false, args)})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "batch FILE",
		Short: "Start all operations of a batch file (one \"copy|move SRC... DST\" per line)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("(main) failed to open batch: %w", err)
			}
			defer f.Close()

			requests, err := parseBatch(f)
			if err != nil {
				return fmt.Errorf("(main) %w", err)
			}

			return run(cmd.Context(), opts, logManager, requests)
		},
	})

	return rootCmd
}

func run(ctx context.Context, opts *cliOptions, logManager *SlogManager, requests []request) error {
	config, err := configuration.Load(configuration.NewConfigProvider(), opts.configFile)
	if err != nil {
		return fmt.Errorf("(main) %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	memObserver := newMemoryObserver(ctx)
	defer memObserver.Stop()

	cpuProfiler := NewCPUProfiler(ctx, opts.cpuprofile)
	defer cpuProfiler.Stop()

	afs := afero.NewOsFs()
	w := worker.NewWorker(afs, &schema.Unix{}, config.WorkerOptions())

	progressOpts := config.ProgressOptions()
	if opts.speedLimit > 0 {
		progressOpts.SpeedLimit = opts.speedLimit
	}

	var handler *ui.Handler
	var renderer progress.Renderer = progress.NewLogRenderer(config.DecisionPolicy)

	if opts.ui {
		handler = ui.NewHandler(ctx, cancel, config.DecisionPolicy)
		renderer = handler.Renderer
	}

	manager := progress.NewManager(queue.NewOperationQueue(config.QueueCapacity), w, renderer, logNotifier{}, progressOpts)
	if handler != nil {
		handler.Attach(manager)
	}

	app := NewApp(afs, manager, opts.startOnIdle, opts.speedLimit)

	var g errgroup.Group

	if handler != nil {
		g.Go(func() error {
			startUI(handler, logManager)

			return nil
		})
	}

	g.Go(func() error {
		return startApp(ctx, app, handler, requests)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("(main) %w", err)
	}

	return nil
}

func startApp(ctx context.Context, app *App, handler *ui.Handler, requests []request) error {
	if handler != nil {
		defer handler.Quit()

		if !waitForUI(ctx, handler) {
			return nil
		}
	}

	return app.Launch(ctx, requests)
}

func waitForUI(ctx context.Context, handler *ui.Handler) bool {
	ticker := time.NewTicker(uiPollInterval)
	defer ticker.Stop()

	for !handler.Ready.Load() && !handler.Failed.Load() {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}

	return true
}

func startUI(handler *ui.Handler, logManager *SlogManager) {
	logToUI(logManager, handler.LogWriter)
	defer logToTerminal(logManager)

	if err := handler.Launch(); err != nil {
		slog.Error("UI failure: falling back to terminal.", "err", err)
	}
}

func main() {
	defer func() {
		os.Exit(ExitCode)
	}()

	logManager := setupLogging()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	setupSignalHandlers(cancel)

	if err := newRootCmd(&cliOptions{}, logManager).ExecuteContext(ctx); err != nil {
		ExitCode = 1
	}
}
