package main

import (
	"fmt"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/lobbytrack/lobbytrack/internal/domain"
	"github.com/lobbytrack/lobbytrack/internal/service"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run, preview and import directory syncs",
}

var syncRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Trigger a scheduled sync run",
	Long: `Call the cron endpoint the way the external scheduler does. Lanes that
are off or not yet due are reported as not run.

The cron secret defaults to $CRON_SECRET.`,
	RunE: runSync,
}

var syncPreviewCmd = &cobra.Command{
	Use:   "preview <azure|ramp>",
	Short: "List what a provider currently returns",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

var syncImportCmd = &cobra.Command{
	Use:   "import <azure|ramp> <id>...",
	Short: "Import records picked from the last preview",
	Long: `Import the given provider ids from your most recent preview of that
lane. Run "lobbytrack sync preview" first.

Examples:
  lobbytrack sync preview azure
  lobbytrack sync import azure 3f2a... 9bc1...`,
	Args: cobra.MinimumNArgs(2),
	RunE: runImport,
}

func init() {
	syncRunCmd.Flags().String("cron-secret", os.Getenv("CRON_SECRET"), "Shared cron secret")

	syncCmd.AddCommand(syncRunCmd)
	syncCmd.AddCommand(syncPreviewCmd)
	syncCmd.AddCommand(syncImportCmd)
}

func parseLaneArg(s string) (domain.Lane, error) {
	lane, ok := domain.ParseLane(s)
	if !ok {
		return "", fmt.Errorf("unknown lane %q (want azure or ramp)", s)
	}
	return lane, nil
}

func runSync(cmd *cobra.Command, args []string) error {
	secret, _ := cmd.Flags().GetString("cron-secret")
	if secret == "" {
		return fmt.Errorf("cron secret is required (--cron-secret or CRON_SECRET)")
	}

	var report service.Report
	if err := clientFromFlags(cmd).do(cmd.Context(), "POST", "/api/cron/sync", secret, nil, &report); err != nil {
		return err
	}

	return render(cmd, report, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "LANE\tSCHEDULE\tRAN\tSYNCED\tTOTAL\tERRORS")
		for _, lane := range domain.Lanes {
			res := report.Results[lane]
			synced, total, errs := "-", "-", "-"
			if res.Result != nil {
				synced = fmt.Sprint(res.Synced)
				total = fmt.Sprint(res.Total)
				errs = fmt.Sprint(len(res.Errors))
			}
			if res.Error != "" {
				errs = res.Error
			}
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\t%s\n", lane, report.Schedules[lane], res.Ran, synced, total, errs)
		}
	})
}

func runPreview(cmd *cobra.Command, args []string) error {
	lane, err := parseLaneArg(args[0])
	if err != nil {
		return err
	}
	c := clientFromFlags(cmd)

	switch lane {
	case domain.LaneAzure:
		var out struct {
			Users []service.UserPreview `json:"users"`
			Total int                   `json:"total"`
		}
		if err := c.do(cmd.Context(), "GET", "/api/integrations/azure/users", "", nil, &out); err != nil {
			return err
		}
		return render(cmd, out, func(w *tabwriter.Writer) {
			fmt.Fprintln(w, "ID\tNAME\tEMAIL\tEXISTS")
			for _, u := range out.Users {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", u.ExternalID, u.DisplayName, u.Email, u.Exists)
			}
		})
	default:
		var out struct {
			Vendors []service.VendorPreview `json:"vendors"`
			Total   int                     `json:"total"`
		}
		if err := c.do(cmd.Context(), "GET", "/api/integrations/ramp/vendors", "", nil, &out); err != nil {
			return err
		}
		return render(cmd, out, func(w *tabwriter.Writer) {
			fmt.Fprintln(w, "ID\tNAME\tACTIVE\tEXISTS")
			for _, v := range out.Vendors {
				fmt.Fprintf(w, "%s\t%s\t%t\t%t\n", v.ExternalID, v.Name, v.IsActive, v.Exists)
			}
		})
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	lane, err := parseLaneArg(args[0])
	if err != nil {
		return err
	}
	ids := slices.Compact(slices.Sorted(slices.Values(args[1:])))

	var res service.ImportResult
	path := "/api/integrations/azure/import"
	if lane == domain.LaneRamp {
		path = "/api/integrations/ramp/import"
	}
	if err := clientFromFlags(cmd).do(cmd.Context(), "POST", path, "", map[string]any{"ids": ids}, &res); err != nil {
		return err
	}

	return render(cmd, res, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Imported %d of %d\n", res.Synced, res.TotalSelected)
		for _, warn := range res.Warnings {
			fmt.Fprintf(w, "  ! %s\n", warn)
		}
	})
}
