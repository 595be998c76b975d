// request.go implements "labauth get", an authenticated GET.
package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/labkm/labauth/transport"
)

func newGetCmd(a *app) *cobra.Command {
	var params []string
	var raw bool
	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Send an authenticated GET and print the response body",
		Example: `  labauth get /api/v1/achievements
  labauth get /api/v1/tech-summaries -q page=2 -q size=20`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := parseQuery(params)
			if err != nil {
				return err
			}

			resp, err := a.client.Transport().Get(cmd.Context(), args[0], query)
			if err != nil {
				if kind := transport.KindOf(err); kind != "" {
					return fmt.Errorf("request failed (%s): %w", kind, err)
				}
				return err
			}

			out := cmd.OutOrStdout()
			body := resp.Body
			if !raw {
				var pretty bytes.Buffer
				if json.Indent(&pretty, body, "", "  ") == nil {
					body = pretty.Bytes()
				}
			}
			_, _ = out.Write(body)
			if len(body) > 0 && body[len(body)-1] != '\n' {
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&params, "query", "q", nil, "query parameter key=value (repeatable)")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the body without JSON indentation")
	return cmd
}

func parseQuery(params []string) (url.Values, error) {
	if len(params) == 0 {
		return nil, nil
	}
	q := url.Values{}
	for _, p := range params {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid query parameter %q, want key=value", p)
		}
		q.Add(k, v)
	}
	return q, nil
}
