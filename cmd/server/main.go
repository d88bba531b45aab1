package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"

	"worldofbits.io/internal/persistence/kv"
	persistlog "worldofbits.io/internal/persistence/log"
	"worldofbits.io/internal/persistence/save"
	"worldofbits.io/internal/sim/tuning"
	"worldofbits.io/internal/transport/ws"
)

// serverEnv carries environment overrides. Flags act as defaults.
type serverEnv struct {
	Addr          string `env:"WOB_ADDR"`
	Data          string `env:"WOB_DATA"`
	Store         string `env:"WOB_STORE"`
	Tuning        string `env:"WOB_TUNING"`
	EnableJournal *bool  `env:"WOB_ENABLE_JOURNAL"`
	EnablePprof   *bool  `env:"WOB_ENABLE_PPROF"`
	LogLevel      string `env:"WOB_LOG_LEVEL"`
}

func main() {
	var (
		addr        = flag.String("addr", ":8080", "http listen address")
		dataDir     = flag.String("data", "./data", "runtime data directory")
		storeKind   = flag.String("store", "sqlite", "save backend: sqlite|file|memory")
		tuningPath  = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml (empty for defaults)")
		journal     = flag.Bool("journal", true, "write the action journal under <data>/journal")
		enablePprof = flag.Bool("pprof", false, "expose /debug/pprof")
		logLevel    = flag.String("log_level", "info", "debug|info|warn|error")
	)
	flag.Parse()

	var ev serverEnv
	if err := env.Parse(&ev); err != nil {
		fmt.Fprintf(os.Stderr, "parse env: %v\n", err)
		os.Exit(2)
	}
	ev.apply(addr, dataDir, storeKind, tuningPath, logLevel, journal, enablePprof)

	logger := log.NewWithOptions(os.Stdout, log.Options{
		Prefix:          "[server]",
		ReportTimestamp: true,
		TimeFormat:      "2006/01/02 15:04:05.000000",
	})
	if lvl, err := log.ParseLevel(*logLevel); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.Warn("unknown log level", "level", *logLevel)
	}

	tun, err := tuning.Load(*tuningPath)
	if err != nil {
		logger.Fatal("load tuning", "path", *tuningPath, "err", err)
	}

	store, err := kv.Open(*storeKind, kv.DefaultPath(*dataDir, *storeKind))
	if err != nil {
		logger.Fatal("open save store", "backend", *storeKind, "err", err)
	}
	defer store.Close()
	gw := save.New(store, logger.WithPrefix("[save]"))

	wsSrv := ws.NewServer(tun, gw, logger.WithPrefix("[ws]"))
	if *journal {
		j := persistlog.NewActionJournal(*dataDir)
		defer j.Close()
		wsSrv.SetJournal(j)
	}

	mux := newMux(wsSrv, *enablePprof)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		<-ctx.Done()
		shutdownCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
		defer c()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", *addr, "store", *storeKind, "data", *dataDir)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("listen", "err", err)
	}
}

func newMux(wsSrv *ws.Server, enablePprof bool) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		st := wsSrv.Stats()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP worldofbits_sessions_active Currently connected sessions.\n")
		fmt.Fprintf(rw, "# TYPE worldofbits_sessions_active gauge\n")
		fmt.Fprintf(rw, "worldofbits_sessions_active %d\n", st.Active)

		fmt.Fprintf(rw, "# HELP worldofbits_sessions_total Sessions accepted since start.\n")
		fmt.Fprintf(rw, "# TYPE worldofbits_sessions_total counter\n")
		fmt.Fprintf(rw, "worldofbits_sessions_total %d\n", st.Total)
	})
	mux.HandleFunc("/v1/ws", wsSrv.Handler())
	if enablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

func (ev serverEnv) apply(addr, dataDir, storeKind, tuningPath, logLevel *string, journal, enablePprof *bool) {
	override(addr, ev.Addr)
	override(dataDir, ev.Data)
	override(storeKind, ev.Store)
	override(tuningPath, ev.Tuning)
	override(logLevel, ev.LogLevel)
	if ev.EnableJournal != nil {
		*journal = *ev.EnableJournal
	}
	if ev.EnablePprof != nil {
		*enablePprof = *ev.EnablePprof
	}
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
