package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// statusCmd probes a running server's health and metrics endpoints.
func statusCmd(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	base := strings.TrimRight(strings.TrimSpace(*baseURL), "/")
	cl := &http.Client{Timeout: 5 * time.Second}
	failed := false
	for _, p := range []string{"/healthz", "/metrics"} {
		body, code, err := get(cl, base+p)
		if err != nil {
			fmt.Fprintln(os.Stderr, "request:", err)
			os.Exit(1)
		}
		fmt.Printf("%s %d\n%s\n", p, code, strings.TrimSpace(body))
		if code/100 != 2 {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func get(cl *http.Client, u string) (string, int, error) {
	resp, err := cl.Get(u)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, err
	}
	return string(b), resp.StatusCode, nil
}
