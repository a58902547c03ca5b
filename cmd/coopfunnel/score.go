package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/metalagman/coopfunnel/internal/assessment"
	"github.com/spf13/cobra"
)

func scoreCmd() *cobra.Command {
	answers := map[string]*string{}
	var asJSON bool
	cmd := &cobra.Command{
		Use:          "score",
		Short:        "Score assessment answers",
		Long:         "Score the five behavioral answers the way the funnel does. Missing or unknown answers are worth zero.",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := make(map[string]string, len(answers))
			for id, v := range answers {
				in[id] = *v
			}
			return printScore(cmd.OutOrStdout(), assessment.Score(in), asJSON)
		},
	}
	for _, q := range assessment.Questions {
		answers[q.ID] = cmd.Flags().String(q.ID, "", q.Prompt)
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func printScore(w io.Writer, res assessment.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, it := range res.Items {
		answer := it.Answer
		if answer == "" {
			answer = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\n", it.ID, answer, it.Points)
	}
	verdict := "reprovado"
	if res.Passed {
		verdict = "aprovado"
	}
	fmt.Fprintf(tw, "total\t%d/%d\t%s\n", res.Total, 2*len(res.Items), verdict)
	return tw.Flush()
}
