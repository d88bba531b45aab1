package movement

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Track is a recorded sequence of fixes, one JSON object per line.
type Track []Fix

func ReadTrack(r io.Reader) (Track, error) {
	var out Track
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		var f Fix
		if err := json.Unmarshal([]byte(s), &f); err != nil {
			return nil, fmt.Errorf("track line %d: %w", line, err)
		}
		out = append(out, f)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Play calls deliver for each fix, one per interval, until the track ends or
// ctx is cancelled.
func (t Track) Play(ctx context.Context, interval time.Duration, deliver func(Fix)) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for _, f := range t {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			deliver(f)
		}
	}
	return nil
}
