package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/syncpair/syncpair/internal/config"
	"github.com/syncpair/syncpair/internal/filter"
	"github.com/syncpair/syncpair/internal/logging"
	"github.com/syncpair/syncpair/internal/provideraddr"
	"github.com/syncpair/syncpair/internal/providerbuild"
	"github.com/syncpair/syncpair/internal/syncer"
)

// version is overridden at build time via -ldflags.
var version = "dev"

type flags struct {
	source      string
	destination string
	dryRun      bool
	depth       int
	depthSet    bool
	threads     int
	filterExpr  string
	stateDir    string
	logLevel    string
	configPath  string
}

func newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:     "syncpair",
		Short:   "Two-way synchronization between two storage providers",
		Version: version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.depthSet = cmd.Flags().Changed("depth")
			return runSync(cmd.Context(), f)
		},
	}

	cmd.Flags().StringVarP(&f.source, "source", "s", "", "source provider address (required)")
	cmd.Flags().StringVarP(&f.destination, "destination", "d", "", "destination provider address (required)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "plan actions without applying them")
	cmd.Flags().IntVar(&f.depth, "depth", 0, "maximum enumeration depth (N>=1; omit for unlimited)")
	cmd.Flags().IntVar(&f.threads, "threads", 0, "worker pool size (default 4)")
	cmd.Flags().StringVarP(&f.filterExpr, "filter", "f", "", "comma/semicolon-separated glob filter expression")
	cmd.Flags().StringVar(&f.stateDir, "state-dir", "", "directory holding the pair's persisted snapshot (default .state)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "disabled|error|warn|info|debug|trace (default info)")
	cmd.Flags().StringVar(&f.configPath, "config", "", "optional TOML file supplying flag defaults")

	cmd.MarkFlagRequired("source")
	cmd.MarkFlagRequired("destination")

	cmd.SetContext(withInterruptSignal(context.Background()))

	return cmd
}

// withInterruptSignal returns a context that is cancelled on SIGINT/SIGTERM,
// so the orchestrator can cooperatively wind down instead of the process
// dying mid-action.
func withInterruptSignal(parent context.Context) context.Context {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx
}

func runSync(ctx context.Context, f flags) error {
	if f.depthSet && f.depth < 1 {
		return fmt.Errorf("--depth must be >= 1 when given explicitly, got %d", f.depth)
	}

	cfgFile, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	merged := cfgFile.Merge(f.filterExpr, f.threads, f.stateDir, f.logLevel)

	log := logging.New(os.Stderr, logging.ParseLevel(merged.LogLevel))

	srcAddr, err := provideraddr.Parse(f.source)
	if err != nil {
		return err
	}
	dstAddr, err := provideraddr.Parse(f.destination)
	if err != nil {
		return err
	}

	srcProv, err := providerbuild.Build(srcAddr)
	if err != nil {
		return err
	}
	dstProv, err := providerbuild.Build(dstAddr)
	if err != nil {
		return err
	}

	compiledFilter, err := filter.Compile(merged.Filter)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(merged.StateDir, 0o755); err != nil {
		return err
	}

	pair := &syncer.Pair{
		Source:      srcProv,
		Destination: dstProv,
		Filter:      compiledFilter,
		FilterExpr:  merged.Filter,
		StateDir:    merged.StateDir,
		Depth:       f.depth,
		Threads:     merged.Threads,
		DryRun:      f.dryRun,
		Log:         log,
	}

	_, err = pair.Run(ctx)
	return err
}
