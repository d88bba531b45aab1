package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"worldofbits.io/internal/persistence/kv"
	persistlog "worldofbits.io/internal/persistence/log"
	"worldofbits.io/internal/persistence/save"
	"worldofbits.io/internal/render"
	"worldofbits.io/internal/render/tui"
	"worldofbits.io/internal/sim/game"
	"worldofbits.io/internal/sim/movement"
	"worldofbits.io/internal/sim/tuning"
)

func main() {
	var (
		dataDir    = flag.String("data", "./data", "runtime data directory")
		storeKind  = flag.String("store", "sqlite", "save backend: sqlite|file|memory")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml (empty for defaults)")
		mode       = flag.String("mode", "", "movement mode: buttons|geo (empty restores the saved mode)")
		trackPath  = flag.String("track", "", "JSONL track of {lat,lng} fixes replayed as the position source")
		interval   = flag.Duration("interval", time.Second, "delay between replayed fixes")
		journal    = flag.Bool("journal", false, "write the action journal under <data>/journal")
		logFile    = flag.String("log", "", "log file (default: discard)")
	)
	flag.Parse()

	var w io.Writer = io.Discard
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}
	logger := log.NewWithOptions(w, log.Options{Prefix: "[play]", ReportTimestamp: true})

	if err := run(logger, *dataDir, *storeKind, *tuningPath, *mode, *trackPath, *interval, *journal); err != nil {
		fmt.Fprintf(os.Stderr, "play: %v\n", err)
		os.Exit(1)
	}
}

func run(logger *log.Logger, dataDir, storeKind, tuningPath, mode, trackPath string, interval time.Duration, journal bool) error {
	tun, err := tuning.Load(tuningPath)
	if err != nil {
		return fmt.Errorf("load tuning: %w", err)
	}

	var track movement.Track
	if trackPath != "" {
		f, err := os.Open(trackPath)
		if err != nil {
			return fmt.Errorf("open track: %w", err)
		}
		track, err = movement.ReadTrack(f)
		f.Close()
		if err != nil {
			return err
		}
	}

	store, err := kv.Open(storeKind, kv.DefaultPath(dataDir, storeKind))
	if err != nil {
		return fmt.Errorf("open save store: %w", err)
	}
	defer store.Close()

	view := render.NewRecorder()
	sess := game.New(game.Config{
		Tuning:       tun,
		Mode:         mode,
		GeoSupported: trackPath != "",
	}, view, save.New(store, logger), logger)
	if journal {
		j := persistlog.NewActionJournal(dataDir)
		defer j.Close()
		sess.SetJournal(j)
	}
	sess.Boot()

	p := tea.NewProgram(tui.New(sess, view), tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if len(track) > 0 {
		go func() {
			err := track.Play(ctx, interval, func(f movement.Fix) { p.Send(tui.FixMsg{Fix: f}) })
			if ctx.Err() == nil {
				p.Send(tui.TrackDoneMsg{Err: err})
			}
		}()
	}

	_, err = p.Run()
	return err
}
