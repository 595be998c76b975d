// navigate.go implements "labauth navigate" and "labauth routes".
package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newNavigateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "navigate <path>",
		Short: "Resolve a location through the navigation guard",
		Long: `Resolve a front-end location against the route table and run the
navigation guard with the current session. Protected routes resolve to the
login page with a redirect parameter when no session is active.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := a.client.Router()
			m, err := r.Push(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Route: %s\n", m.Route.Name)
			fmt.Fprintf(out, "Path:  %s\n", m.FullPath)
			fmt.Fprintf(out, "Title: %s\n", r.Title())
			return nil
		},
	}
}

func newRoutesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the route table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tPATH\tAUTH\tTITLE")
			for _, d := range a.client.Router().Table().Routes() {
				auth := ""
				if d.Meta.RequiresAuth {
					auth = "yes"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Name, d.Path, auth, d.Meta.Title)
			}
			return tw.Flush()
		},
	}
}
