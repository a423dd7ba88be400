package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/use-agent/pagecrawl/robots"
)

func init() {
	rootCmd.AddCommand(robotsCmd)
}

var robotsCmd = &cobra.Command{
	Use:   "robots <url>",
	Short: "Prints whether robots.txt allows crawling a URL.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gopts, err := robots.GateOptionsFromConfig(cfg.Robots)
		if err != nil {
			return err
		}
		allowed, policy, err := robots.NewGate(newFetcher(), gopts).Check(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch {
		case !policy.Fetched():
			fmt.Fprintf(out, "%s: allowed (robots.txt unavailable)\n", args[0])
		case allowed:
			fmt.Fprintf(out, "%s: allowed\n", args[0])
		default:
			fmt.Fprintf(out, "%s: disallowed\n", args[0])
		}

		if len(policy.Disallowed()) == 0 {
			return nil
		}
		t := table.NewWriter()
		t.SetOutputMirror(out)
		t.AppendHeader(table.Row{"Disallow (" + string(gopts.Scope) + ")"})
		for _, prefix := range policy.Disallowed() {
			t.AppendRow(table.Row{prefix})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
