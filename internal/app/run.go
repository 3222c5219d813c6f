package app

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/vk/calcgrid/internal/calc"
	"github.com/vk/calcgrid/internal/ctxlog"
	"github.com/vk/calcgrid/internal/report"
	"github.com/vk/calcgrid/internal/server"
	"github.com/vk/calcgrid/internal/session"
	"github.com/vk/calcgrid/internal/snapshot"
	"github.com/vk/calcgrid/internal/sweep"
	"github.com/vk/calcgrid/internal/watch"
)

// editBurst is the number of edits a session may make at once before
// EditRate applies.
const editBurst = 20

// Run executes the mode selected by the configuration.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	mode := a.config.Mode()
	if a.config.HealthcheckPort > 0 && mode != ModeServe {
		a.startHealthcheckServer(ctx, a.config.HealthcheckPort)
	}

	var err error
	switch mode {
	case ModeList:
		err = a.list()
	case ModeServe:
		err = a.serve(ctx)
	case ModeWatch:
		err = watch.Watch(ctx, a.config.WatchURL, a.config.WatchSession, a.outW)
	default:
		err = a.calculate(ctx)
	}

	a.logger.Debug("App.Run method finished.")
	return err
}

func (a *App) list() error {
	w := tabwriter.NewWriter(a.outW, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTITLE\tCATEGORIES\tSOURCE")
	for _, info := range a.registry.Search(a.config.Search) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", info.Name, info.Title, strings.Join(info.Categories, ", "), info.Source)
	}
	return w.Flush()
}

// serve restores the sessions of SnapshotPath, serves until ctx is done and
// then saves the open sessions to SavePath.
func (a *App) serve(ctx context.Context) error {
	cfg := a.config
	srv := server.New(ctx, a.registry, server.WithEditRate(cfg.EditRate, editBurst))

	if cfg.SnapshotPath != "" {
		snaps, err := snapshot.Load(cfg.SnapshotPath)
		if err != nil {
			return err
		}
		opened, err := srv.Sessions().Restore(ctx, snaps)
		if err != nil {
			return fmt.Errorf("restoring sessions from %s: %w", cfg.SnapshotPath, err)
		}
		a.logger.Info("Sessions restored.", "path", cfg.SnapshotPath, "sessions", len(opened))
	}

	if err := srv.ListenAndServe(ctx, cfg.ServeAddr); err != nil {
		return err
	}

	if cfg.SavePath != "" {
		snaps := srv.Sessions().Snapshots()
		if err := snapshot.Save(cfg.SavePath, snaps...); err != nil {
			return err
		}
		a.logger.Info("Sessions saved.", "path", cfg.SavePath, "sessions", len(snaps))
	}
	return nil
}

// calculate opens the calculator, applies output selections then edits, and
// prints the resulting state.
func (a *App) calculate(ctx context.Context) error {
	cfg := a.config
	ctx = ctxlog.With(ctx, "calculator", cfg.Calc)

	var (
		snap   *calc.Snapshot
		loaded []calc.Snapshot
	)
	if cfg.SnapshotPath != "" {
		snaps, err := snapshot.Load(cfg.SnapshotPath)
		if err != nil {
			return err
		}
		loaded = snaps
		s, ok := snapshot.Find(snaps, cfg.Calc)
		if !ok {
			return fmt.Errorf("snapshot %s has no calculator %q", cfg.SnapshotPath, cfg.Calc)
		}
		snap = &s
	}

	sess, err := session.NewManager(a.registry).Open(ctx, cfg.Calc, snap)
	if err != nil {
		return err
	}

	for _, o := range cfg.Outputs {
		group, name, err := session.ParseAssignment(o)
		if err != nil {
			return err
		}
		if err := sess.SelectOutput(ctx, group, name); err != nil {
			return fmt.Errorf("output %s: %w", o, err)
		}
	}
	for _, s := range cfg.Sets {
		name, val, err := session.ParseAssignment(s)
		if err != nil {
			return err
		}
		if err := sess.Edit(ctx, name, val); err != nil {
			return fmt.Errorf("set %s: %w", s, err)
		}
	}

	st := sess.State()
	if err := printState(a.outW, st); err != nil {
		return err
	}

	if cfg.SavePath != "" {
		if err := snapshot.Save(cfg.SavePath, snapshot.Merge(loaded, sess.Snapshot())...); err != nil {
			return err
		}
		a.logger.Info("Snapshot saved.", "path", cfg.SavePath)
	}
	if cfg.ExportPath != "" {
		if err := report.Save(cfg.ExportPath, st); err != nil {
			return err
		}
		a.logger.Info("Report exported.", "path", cfg.ExportPath)
	}
	if cfg.Sweep != "" {
		return a.sweep(ctx, sess)
	}
	return nil
}

func (a *App) sweep(ctx context.Context, sess *session.Session) error {
	cfg := a.config
	rng, err := sweep.ParseRange(cfg.Sweep)
	if err != nil {
		return err
	}

	var res sweep.Result
	err = sess.Do(func(c *calc.Calculator) error {
		res, err = sweep.Run(ctx, c, rng, cfg.Sample)
		return err
	})
	if err != nil {
		return fmt.Errorf("sweep %s: %w", cfg.Sweep, err)
	}
	if err := printSweep(a.outW, res); err != nil {
		return err
	}

	if cfg.PlotPath != "" {
		if err := res.Plot(cfg.PlotPath); err != nil {
			return err
		}
		a.logger.Info("Plot saved.", "path", cfg.PlotPath)
	}
	return nil
}
