package cli

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/nestwatch/internal/client/services"
	"github.com/dmitrijs2005/nestwatch/internal/models"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

func siteCmd(get func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "site",
		Short: "Manage nest-box sites",
	}

	var (
		region string
		draft  services.SiteDraft
	)
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a site at the given coordinates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()

			r, err := a.region(ctx, region)
			if err != nil {
				return err
			}
			draft.Name = args[0]
			if draft.Category == "" {
				voc, err := a.store.Vocabulary(ctx)
				if err != nil {
					return err
				}
				if len(voc.Categories) > 0 {
					draft.Category = voc.Categories[0]
				}
			}

			s, err := a.sites.AddSite(ctx, r, draft)
			if err != nil {
				return err
			}
			a.printf("%s\n", s.ID)
			return nil
		},
	}
	add.Flags().StringVarP(&region, "region", "r", "", "region (default: selected region)")
	add.Flags().StringVar(&draft.Category, "category", "", "site category")
	add.Flags().StringVar(&draft.Comment, "comment", "", "free text")
	add.Flags().Float64Var(&draft.Lat, "lat", 0, "latitude")
	add.Flags().Float64Var(&draft.Lng, "lng", 0, "longitude")

	var listRegion string
	list := &cobra.Command{
		Use:   "list",
		Short: "List live sites of a region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			ctx := cmd.Context()

			r, err := a.region(ctx, listRegion)
			if err != nil {
				return err
			}
			sites, err := a.sites.List(ctx, r)
			if err != nil {
				return err
			}
			for _, s := range sites {
				a.printf("%-24s %-20s %-16s %9.5f %10.5f  %d visits\n", s.ID, s.Name, s.Category, s.Lat, s.Lng, len(s.Visits))
			}
			return nil
		},
	}
	list.Flags().StringVarP(&listRegion, "region", "r", "", "region (default: selected region)")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a site and its inspections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			s, err := a.sites.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printSite(a, s)
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a site with its inspections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return get().sites.DeleteSite(cmd.Context(), args[0])
		},
	}

	photo := &cobra.Command{
		Use:   "photo <id> <file>",
		Short: "Attach a photo to a site",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			p, err := a.sites.AttachSitePhoto(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			a.printf("%s\n", p)
			return nil
		},
	}

	cmd.AddCommand(add, list, show, rm, photo)
	return cmd
}

func visitCmd(get func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visit",
		Short: "Record inspections of a site",
	}

	var (
		date  string
		draft services.VisitDraft
	)
	add := &cobra.Command{
		Use:   "add <site-id>",
		Short: "Record an inspection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if date != "" {
				d, err := time.Parse(dateLayout, date)
				if err != nil {
					return fmt.Errorf("invalid date %q, want YYYY-MM-DD", date)
				}
				draft.Date = d
			}
			in, err := a.sites.AddVisit(cmd.Context(), args[0], draft)
			if err != nil {
				return err
			}
			a.printf("%s\n", in.ID)
			return nil
		},
	}
	add.Flags().StringVar(&date, "date", "", "inspection date, YYYY-MM-DD (default: today)")
	add.Flags().StringVar(&draft.Species, "species", "", "occupant species")
	add.Flags().StringVar(&draft.Comment, "comment", "", "free text")
	add.Flags().BoolVar(&draft.Cleaned, "cleaned", false, "box was cleaned")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an inspection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return get().sites.DeleteVisit(cmd.Context(), args[0])
		},
	}

	photo := &cobra.Command{
		Use:   "photo <id> <file>",
		Short: "Attach a photo to an inspection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			p, err := a.sites.AttachVisitPhoto(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			a.printf("%s\n", p)
			return nil
		},
	}

	cmd.AddCommand(add, rm, photo)
	return cmd
}

func printSite(a *App, s *models.Site) {
	state := "live"
	if s.Deleted() {
		state = "deleted"
	}
	a.printf("%s  %s (%s) [%s]\n", s.ID, s.Name, s.Category, state)
	a.printf("  region %s  at %.5f,%.5f  changed %s\n", s.Region, s.Lat, s.Lng, s.LastChanged().Format(time.RFC3339))
	if s.Image != "" {
		a.printf("  photo %s\n", s.Image)
	}
	if s.Comment != "" {
		a.printf("  %s\n", s.Comment)
	}
	for _, v := range s.LiveVisits() {
		cleaned := ""
		if v.Cleaned {
			cleaned = " cleaned"
		}
		a.printf("  - %s %s %s%s %s\n", v.Date.Format(dateLayout), v.ID, v.Species, cleaned, v.Comment)
	}
}
