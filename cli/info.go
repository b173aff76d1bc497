package cli

// This file contains the info and verify commands for inspecting a
// single run.

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/sweepgo/sweepgo/rundb"
)

func (a *App) info(ctx *cli.Context) error {
	basedir, err := a.basedir(ctx)
	if err != nil {
		return err
	}
	id, err := runID(ctx)
	if err != nil {
		return err
	}

	r, err := rundb.OpenReader(basedir, id)
	if err != nil {
		return err
	}
	md := r.Metadata()

	fmt.Println("ID:", id)
	fmt.Println("Data path:", r.DataPath())
	if comments, ok := md["comments"].([]any); ok && len(comments) > 0 {
		fmt.Println("Comments:", stringOr(md["comments"], ""))
	}
	start, hasStart := md["start_time"].(float64)
	if hasStart {
		fmt.Println("Start time:", formatEpoch(start))
	}
	if end, ok := md["end_time"].(float64); ok && hasStart {
		fmt.Println("Duration:", formatSeconds(end-start))
	}
	fmt.Println("Type:", stringOr(md["type"], "?"))
	if interrupted, _ := md["interrupted"].(bool); interrupted {
		fmt.Println("Interrupted: yes")
	} else {
		fmt.Println("Interrupted: no")
	}
	for _, key := range []string{"param", "slow_param", "fast_param"} {
		if v := stringOr(md[key], ""); v != "" {
			fmt.Printf("%s: %s\n", titleKey(key), v)
		}
	}
	for _, key := range []string{"delay", "slow_delay", "fast_delay"} {
		if v, ok := md[key].(float64); ok {
			fmt.Printf("%s: %gs\n", titleKey(key), v)
		}
	}
	if cols, ok := md["columns"].([]any); ok {
		fmt.Println("Columns:", stringOr(cols, ""))
	}
	for _, key := range []string{"setpoints", "slow_setpoints", "fast_setpoints"} {
		if sps, ok := md[key].([]any); ok {
			fmt.Printf("%s: %s\n", titleKey(key), formatSetpoints(sps))
		}
	}
	return nil
}

func (a *App) verify(ctx *cli.Context) error {
	basedir, err := a.basedir(ctx)
	if err != nil {
		return err
	}
	id, err := runID(ctx)
	if err != nil {
		return err
	}

	n, err := rundb.Verify(basedir, id)
	if err != nil {
		return fmt.Errorf("run %d failed verification: %w", id, err)
	}
	a.logger.Info().Int("id", id).Int("rows", n).Msg("Run verified")
	return nil
}

func runID(ctx *cli.Context) (int, error) {
	if ctx.Args().Len() != 1 {
		return 0, fmt.Errorf("expected exactly one run ID argument")
	}
	id, err := strconv.Atoi(ctx.Args().First())
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid run ID %q", ctx.Args().First())
	}
	return id, nil
}

// formatSetpoints elides long setpoint lists the way a human would scan
// them: first and last few values.
func formatSetpoints(sps []any) string {
	format := func(vals []any) string {
		s := ""
		for i, v := range vals {
			if i > 0 {
				s += ", "
			}
			s += fmt.Sprint(v)
		}
		return s
	}
	if len(sps) <= 10 {
		return "[" + format(sps) + "]"
	}
	return "[" + format(sps[:3]) + ", ..., " + format(sps[len(sps)-3:]) + "]"
}

func titleKey(key string) string {
	switch key {
	case "param":
		return "Param"
	case "slow_param":
		return "Slow param"
	case "fast_param":
		return "Fast param"
	case "delay":
		return "Delay"
	case "slow_delay":
		return "Slow delay"
	case "fast_delay":
		return "Fast delay"
	case "setpoints":
		return "Setpoints"
	case "slow_setpoints":
		return "Slow setpoints"
	case "fast_setpoints":
		return "Fast setpoints"
	}
	return key
}
