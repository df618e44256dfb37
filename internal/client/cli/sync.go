package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/nestwatch/internal/client/syncer"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func syncCmd(get func() *App) *cobra.Command {
	var skipRegions bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push local changes and rebuild every region from the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			ctx := cmd.Context()

			o := syncer.NewOrchestrator(a.remote, a.store, a.blobs, a.logger, syncer.Options{
				SkipRegionSync: skipRegions,
				Progress: func(p syncer.Progress) {
					a.logger.Debug(ctx, "sync progress", "phase", p.Phase, "region", p.Region, "done", p.Done, "total", p.Total)
				},
			})

			sum, err := o.Run(ctx)
			if sum != nil {
				printSummary(a.out, sum)
			}
			if err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipRegions, "skip-regions", false, "use the stored region list without asking the server")
	return cmd
}

func dedupCmd(get func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dedup",
		Short: "Ask the server to remove sites sharing the same coordinates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			n, err := a.remote.RemoveDuplicates(cmd.Context())
			if err != nil {
				return fmt.Errorf("dedup failed: %w", err)
			}
			a.printf("removed %d duplicate sites\n", n)
			return nil
		},
	}
}

func pingCmd(get func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the server is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			if err := a.remote.Ping(cmd.Context()); err != nil {
				a.printf("%s %s: %v\n", color.New(color.FgRed).Sprint("offline"), a.config.ServerURL, err)
				return err
			}
			a.printf("%s %s\n", color.New(color.FgGreen).Sprint("online"), a.config.ServerURL)
			return nil
		},
	}
}

func printSummary(w io.Writer, sum *syncer.Summary) {
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)
	warn := color.New(color.FgYellow)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REGION\tPUSHED\tSITES\tINSPECTIONS\tUPLOADED\tDOWNLOADED\tFAILED\tORPHANS")
	for _, r := range sum.Regions {
		failed := ok.Sprint(r.Failed)
		if r.Failed > 0 {
			failed = bad.Sprint(r.Failed)
		}
		orphans := fmt.Sprint(r.Orphans)
		if r.Orphans > 0 {
			orphans = warn.Sprint(r.Orphans)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%s\t%s\n",
			r.Region, r.Pushed, r.PulledSites, r.PulledInspections, r.Uploaded, r.Downloaded, failed, orphans)
	}
	_ = tw.Flush()

	t := sum.Totals()
	status := ok.Sprint("✓ sync complete")
	if t.Failed > 0 {
		status = bad.Sprintf("✗ %d items failed", t.Failed)
	}
	fmt.Fprintf(w, "%s in %s\n", status, sum.Finished.Sub(sum.Started).Round(time.Millisecond))
}
