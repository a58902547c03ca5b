package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/metalagman/coopfunnel/internal/db"
	"github.com/spf13/cobra"
)

func leadsCmd() *cobra.Command {
	var (
		since    time.Duration
		approved bool
		limit    int
	)
	cmd := &cobra.Command{
		Use:          "leads",
		Short:        "List leads from the local journal",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, closeFn, err := openJournal(cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			f := db.LeadFilter{ApprovedOnly: approved, Limit: limit}
			if since > 0 {
				f.Since = time.Now().Add(-since)
			}
			leads, err := store.ListLeads(cmd.Context(), f)
			if err != nil {
				return err
			}
			return printLeads(cmd.OutOrStdout(), leads)
		},
	}
	cmd.Flags().DurationVar(&since, "since", 0, "only leads newer than this (e.g. 72h)")
	cmd.Flags().BoolVar(&approved, "approved", false, "only approved candidates")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows")
	return cmd
}

func printLeads(w io.Writer, leads []db.LeadRecord) error {
	if len(leads) == 0 {
		_, err := fmt.Fprintln(w, "no leads")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tNAME\tWHATSAPP\tCITY\tAPPROVED\tPOSITION\tEMPLOYER\tNOTES")
	for _, l := range leads {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\t%s\t%s\n",
			l.CreatedAt.UTC().Format(time.RFC3339), l.Name, l.Contact, l.City, l.Approved,
			l.PositionID, l.Employer, l.Notes)
	}
	return tw.Flush()
}
