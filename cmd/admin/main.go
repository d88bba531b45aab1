package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"worldofbits.io/internal/persistence/kv"
	persistlog "worldofbits.io/internal/persistence/log"
	"worldofbits.io/internal/persistence/save"
	"worldofbits.io/internal/sim/cells"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	args := os.Args[2:]
	switch os.Args[1] {
	case "dump":
		dumpCmd(args)
	case "reset":
		resetCmd(args)
	case "journal":
		journalCmd(args)
	case "db":
		dbCmd(args)
	case "status":
		statusCmd(args)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: admin dump|reset|journal|db|status [flags]")
}

func openGateway(fs *flag.FlagSet, args []string) (*save.Gateway, kv.Store) {
	dataDir := fs.String("data", "./data", "runtime data directory")
	backend := fs.String("store", "sqlite", "save backend: sqlite|file")
	_ = fs.Parse(args)

	store, err := kv.Open(*backend, kv.DefaultPath(*dataDir, *backend))
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "[admin]"})
	return save.New(store, logger), store
}

func dumpCmd(args []string) {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	decoded := fs.Bool("decoded", false, "print the state as loaded instead of raw values")
	gw, store := openGateway(fs, args)
	defer store.Close()

	if *decoded {
		st := gw.Load()
		out := map[string]any{}
		if st.HasCells {
			b, err := cells.EncodeSnapshot(st.Cells)
			if err != nil {
				fmt.Fprintln(os.Stderr, "encode cells:", err)
				os.Exit(1)
			}
			out[save.KeyCells] = json.RawMessage(b)
		}
		if st.HasHeld {
			out[save.KeyHeldToken] = st.Held
		}
		if st.HasPosition {
			out[save.KeyPlayerPosition] = [2]float64{st.Position.X, st.Position.Y}
		}
		if st.HasMode {
			out[save.KeyMovementMode] = st.Mode
		}
		writeJSON(os.Stdout, out)
		return
	}

	raw, err := gw.Dump()
	if err != nil {
		fmt.Fprintln(os.Stderr, "dump:", err)
		os.Exit(1)
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s\t%s\n", k, raw[k])
	}
}

func resetCmd(args []string) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	yes := fs.Bool("yes", false, "confirm removing the saved game")
	gw, store := openGateway(fs, args)
	defer store.Close()

	if !*yes {
		fmt.Fprintln(os.Stderr, "refusing to reset without -yes")
		os.Exit(2)
	}
	if err := gw.Reset(); err != nil {
		fmt.Fprintln(os.Stderr, "reset:", err)
		os.Exit(1)
	}
	fmt.Println("save reset")
}

func journalCmd(args []string) {
	fs := flag.NewFlagSet("journal", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	action := fs.String("action", "", "only show this action (take|combine|store)")
	wonOnly := fs.Bool("won", false, "only show entries that reached the win threshold")
	_ = fs.Parse(args)

	files, err := persistlog.JournalFiles(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}
	want := strings.ToLower(strings.TrimSpace(*action))
	n := 0
	for _, f := range files {
		entries, err := persistlog.ReadJournal(f)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
		for _, e := range entries {
			if want != "" && e.Action != want {
				continue
			}
			if *wonOnly && !e.Won {
				continue
			}
			writeJSON(os.Stdout, e)
			n++
		}
	}
	fmt.Fprintf(os.Stderr, "%d entries in %d files\n", n, len(files))
}

func writeJSON(w io.Writer, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintln(os.Stderr, "encode:", err)
		os.Exit(1)
	}
	fmt.Fprintln(w, string(b))
}
