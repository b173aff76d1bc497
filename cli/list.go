package cli

// This file contains the list command for displaying measurement runs
// as a markdown table.

import (
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/sweepgo/sweepgo/rundb"
)

func (a *App) list(ctx *cli.Context) error {
	basedir, err := a.basedir(ctx)
	if err != nil {
		return err
	}
	limit := ctx.Int("limit")

	entries, err := rundb.List(basedir)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No runs found")
		return nil
	}
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}

	fmt.Println("|ID|Start time|Duration|Type|Interrupted|Param|Slow param|Fast param|")
	fmt.Println("|---:|:---:|:---:|:---:|:---:|:---:|:---:|:---:|")
	for _, e := range entries {
		fmt.Println(listLine(e))
	}
	return nil
}

func listLine(e rundb.Entry) string {
	md := e.Metadata
	cells := []string{fmt.Sprintf("%d", e.ID)}

	start, hasStart := md["start_time"].(float64)
	if hasStart {
		cells = append(cells, formatEpoch(start))
	} else {
		cells = append(cells, "")
	}
	if end, ok := md["end_time"].(float64); ok && hasStart {
		cells = append(cells, formatSeconds(end-start))
	} else {
		cells = append(cells, "")
	}

	cells = append(cells, stringOr(md["type"], ""))
	if interrupted, _ := md["interrupted"].(bool); interrupted {
		cells = append(cells, "yes")
	} else {
		cells = append(cells, "")
	}
	cells = append(cells,
		stringOr(md["param"], ""),
		stringOr(md["slow_param"], ""),
		stringOr(md["fast_param"], ""),
	)
	return "|" + strings.Join(cells, "|") + "|"
}

func formatEpoch(secs float64) string {
	t := time.Unix(0, int64(secs*float64(time.Second)))
	return t.Format("2006-Jan-02 15:04:05")
}

func formatSeconds(d float64) string {
	sec := int(d)
	return fmt.Sprintf("%dh %dm %ds", sec/3600, (sec/60)%60, sec%60)
}

// stringOr renders a metadata value that may be a string or a list of
// strings (multi-parameter sweeps store lists).
func stringOr(v any, def string) string {
	switch x := v.(type) {
	case string:
		return x
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ", ")
	default:
		return def
	}
}
