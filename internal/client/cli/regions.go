package cli

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/nestwatch/internal/models"
	"github.com/spf13/cobra"
)

func regionsCmd(get func() *App) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "regions",
		Short: "List regions; * marks the selected one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			ctx := cmd.Context()

			regions, err := a.store.Regions(ctx)
			if err != nil {
				return err
			}
			if refresh {
				if regions, err = a.remote.SyncRegions(ctx, regions); err != nil {
					return fmt.Errorf("region sync failed: %w", err)
				}
				if err := a.store.SetRegions(ctx, regions); err != nil {
					return err
				}
			}

			selected, err := a.store.SelectedRegion(ctx)
			if err != nil {
				return err
			}
			for _, r := range regions {
				mark := " "
				if r.ShortName == selected {
					mark = "*"
				}
				a.printf("%s %-12s %s\n", mark, r.ShortName, r.DisplayName)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "sync the region list with the server first")

	cmd.AddCommand(&cobra.Command{
		Use:   "add <short-name> [display name]",
		Short: "Add a region locally; the server creates it on the next sync",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()

			r := models.Region{ShortName: args[0], DisplayName: strings.Join(args[1:], " ")}
			if r.DisplayName == "" {
				r.DisplayName = r.ShortName
			}
			if err := models.Validate(r); err != nil {
				return fmt.Errorf("invalid region: %w", err)
			}

			regions, err := a.store.Regions(ctx)
			if err != nil {
				return err
			}
			for _, existing := range regions {
				if existing.ShortName == r.ShortName {
					return fmt.Errorf("region %q already exists", r.ShortName)
				}
			}
			if err := a.store.SetRegions(ctx, append(regions, r)); err != nil {
				return err
			}
			a.printf("added region %s\n", r.ShortName)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "use <short-name>",
		Short: "Select the region new sites go to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()

			regions, err := a.store.Regions(ctx)
			if err != nil {
				return err
			}
			for _, r := range regions {
				if r.ShortName == args[0] {
					return a.store.SetSelectedRegion(ctx, r.ShortName)
				}
			}
			return fmt.Errorf("unknown region %q", args[0])
		},
	})

	return cmd
}
