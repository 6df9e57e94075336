package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/lobbytrack/lobbytrack/internal/domain"
	"github.com/lobbytrack/lobbytrack/internal/service"
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change sync schedules",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show each lane's schedule, last sync and next run",
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <azure|ramp> <off|1h|6h|12h|24h|168h>",
	Short: "Change a lane's schedule",
	Long: `Change how often a lane runs. --start anchors the schedule; a lane never
runs before its start time. Pass --start "" to clear it.

Examples:
  lobbytrack settings set azure 24h
  lobbytrack settings set ramp 168h --start 2026-01-05T06:00:00Z`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

func init() {
	settingsSetCmd.Flags().String("start", "", "Start time (RFC3339)")

	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	var lanes map[domain.Lane]service.LaneSettings
	if err := clientFromFlags(cmd).do(cmd.Context(), "GET", "/api/settings/sync", "", nil, &lanes); err != nil {
		return err
	}

	return render(cmd, lanes, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "LANE\tSCHEDULE\tSTART\tLAST SYNC\tNEXT RUN")
		for _, lane := range domain.Lanes {
			s := lanes[lane]
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", lane, s.Schedule, fmtTime(s.Start), fmtTime(s.LastSync), fmtTime(s.NextRun))
		}
	})
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	lane, err := parseLaneArg(args[0])
	if err != nil {
		return err
	}

	upd := service.ScheduleUpdate{Schedule: args[1]}
	if cmd.Flags().Changed("start") {
		start, _ := cmd.Flags().GetString("start")
		upd.Start = &start
	}

	var updated service.LaneSettings
	if err := clientFromFlags(cmd).do(cmd.Context(), "PUT", "/api/settings/sync/"+string(lane), "", upd, &updated); err != nil {
		return err
	}

	return render(cmd, updated, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "✓ %s is now %s\n", lane, updated.Schedule)
		if updated.NextRun != nil {
			fmt.Fprintf(w, "  next run: %s\n", fmtTime(updated.NextRun))
		}
	})
}

func fmtTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04 MST")
}
