// Command erpsim runs the enterprise simulation headless: it advances the
// configured session by a number of quarters and can save, load and archive
// save slots along the way.
package main

import (
	"context"
	"errors"
	"expvar"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"erpsim/internal/blob"
	"erpsim/internal/config"
	"erpsim/internal/core"
	"erpsim/pkg/domain"
)

var exitFunc = os.Exit

type options struct {
	quarters    int
	load        string
	save        bool
	export      bool
	list        bool
	metricsAddr string
}

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("erpsim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.IntVar(&opts.quarters, "quarters", 1, "number of quarters to advance")
	fs.StringVar(&opts.load, "load", "", "save id to load before advancing")
	fs.BoolVar(&opts.save, "save", false, "write a manual save after advancing")
	fs.BoolVar(&opts.export, "export", false, "archive the manual save to the blob store (implies -save)")
	fs.BoolVar(&opts.list, "list", false, "list save slots and exit")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics and /debug/vars on this address until interrupted")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if opts.quarters < 0 {
		_, _ = fmt.Fprintln(stderr, "-quarters must not be negative")
		return 2
	}
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, opts, stdout, stderr); err != nil {
		_, _ = fmt.Fprintf(stderr, "erpsim: %v\n", err)
		return 1
	}
	return 0
}

func newLogger(cfg config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func metricsOption(cfg config.Config, reg *prometheus.Registry) (core.ServiceOption, error) {
	switch cfg.Metrics {
	case config.MetricsPrometheus:
		rec, err := core.NewPrometheusMetricsRecorder(reg)
		if err != nil {
			return nil, err
		}
		return core.WithMetricsRecorder(rec), nil
	case config.MetricsExpvar:
		return core.WithMetricsRecorder(core.NewExpvarMetricsRecorder("")), nil
	default:
		return core.WithMetricsRecorder(nil), nil
	}
}

func run(ctx context.Context, cfg config.Config, opts options, stdout, stderr io.Writer) error {
	logger, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}
	rb, err := config.LoadRulebook(cfg.RulebookPath)
	if err != nil {
		return err
	}
	saves, err := core.OpenSaveStore(ctx, cfg.SaveStore())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := saves.Close(); cerr != nil {
			logger.Warn("close save store", "error", cerr)
		}
	}()
	archive, err := blob.Open(ctx, cfg.Archive())
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	reg := prometheus.NewRegistry()
	metrics, err := metricsOption(cfg, reg)
	if err != nil {
		return err
	}

	svc := core.NewInMemoryService(core.NewDefaultRulesEngine(),
		core.WithLogger(logger),
		core.WithRulebook(rb),
		core.WithEnterpriseName(cfg.EnterpriseName),
		core.WithSaveStore(saves),
		core.WithArchive(archive),
		core.WithAutoSave(cfg.AutoSave),
		metrics,
	)
	defer svc.WaitAutoSaves()

	if opts.list {
		return listSaves(ctx, svc, stdout)
	}
	if opts.load != "" {
		if _, err := svc.LoadGame(ctx, opts.load); err != nil {
			return err
		}
	}
	for i := 0; i < opts.quarters; i++ {
		summary, _, err := svc.AdvanceQuarter(ctx)
		var rv domain.RuleViolationError
		if errors.As(err, &rv) && rv.Result.Has(domain.RejectGameOver) {
			_, _ = fmt.Fprintln(stdout, "game over")
			break
		}
		if err != nil {
			return err
		}
		printSummary(stdout, summary, svc.State())
	}
	if opts.save || opts.export {
		save, err := svc.SaveGame(ctx)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stdout, "saved %s (%s)\n", save.ID, save.Name)
		if opts.export {
			info, err := svc.ExportSave(ctx, save.ID)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "archived %s (%d bytes)\n", info.Key, info.Size)
		}
	}
	if opts.metricsAddr != "" {
		return serveMetrics(ctx, opts.metricsAddr, reg, logger)
	}
	return nil
}

func printSummary(w io.Writer, sum core.QuarterSummary, state domain.EnterpriseState) {
	_, _ = fmt.Fprintf(w, "Y%dQ%d cash=%s collected=%s costs=%s tax=%s produced=%d",
		sum.Year, sum.Quarter, state.Finance.Cash.StringFixed(2), sum.CashCollected, sum.TotalCosts(), sum.Tax, sum.UnitsProduced)
	if len(sum.CompletedRD) > 0 {
		_, _ = fmt.Fprintf(w, " rd=%v", sum.CompletedRD)
	}
	if sum.GameOver {
		_, _ = fmt.Fprint(w, " game-over")
	}
	_, _ = fmt.Fprintln(w)
}

func listSaves(ctx context.Context, svc *core.Service, w io.Writer) error {
	saves, err := svc.ListSaves(ctx)
	if err != nil {
		return err
	}
	for _, save := range saves {
		_, _ = fmt.Fprintf(w, "%s\t%s\tY%dQ%d\n", save.ID, save.Name, save.State.Operation.CurrentYear, save.State.Operation.CurrentQuarter)
	}
	return nil
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("serving metrics", "addr", addr)
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
