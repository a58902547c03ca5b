package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/metalagman/coopfunnel/internal/db"
	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:          "history <whatsapp-id>",
		Short:        "Show the recorded turns of one candidate",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
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

			turns, err := store.ListTurns(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			return printTurns(cmd.OutOrStdout(), turns)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum turns")
	return cmd
}

func printTurns(w io.Writer, turns []db.TurnRecord) error {
	if len(turns) == 0 {
		_, err := fmt.Fprintln(w, "no turns")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tDRIVER\tOUTCOME\tMS\tPATH")
	for _, t := range turns {
		path := []string{stepName(t.StepBefore)}
		for _, tr := range t.Transitions {
			path = append(path, stepName(tr.To))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			t.StartedAt.UTC().Format(time.RFC3339), t.Driver, t.Outcome, t.Duration.Milliseconds(),
			strings.Join(path, " > "))
	}
	return tw.Flush()
}

func stepName[S ~string](s S) string {
	if s == "" {
		return "new"
	}
	return string(s)
}
