package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/ulule/limiter/v3"
)

type rootOptions struct {
	addr     string
	adminKey string
}

func (o *rootOptions) client() (*adminClient, error) {
	if o.adminKey == "" {
		return nil, fmt.Errorf("--admin-key (or ADMIN_API_KEY) is required")
	}
	return newAdminClient(o.addr, o.adminKey), nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "gatewayctl",
		Short:         "Admin CLI for the adaptive rate limiting gateway",
		Long:          "Inspect and change rate limit rules and trust scores through the gateway /admin routes.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	addr := os.Getenv("GATEWAY_ADDR")
	if addr == "" {
		addr = "http://localhost:8080"
	}
	cmd.PersistentFlags().StringVar(&opts.addr, "addr", addr, "Gateway base URL")
	cmd.PersistentFlags().StringVar(&opts.adminKey, "admin-key", os.Getenv("ADMIN_API_KEY"), "Admin API key")

	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newSetDefaultCmd(opts))
	cmd.AddCommand(newSetUserCmd(opts))
	cmd.AddCommand(newDeleteUserCmd(opts))
	cmd.AddCommand(newScoresCmd(opts))
	return cmd
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the current rate limit configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			var cfg json.RawMessage
			if err := c.do(cmd.Context(), http.MethodGet, "/config", nil, &cfg); err != nil {
				return err
			}
			return printJSON(cmd, cfg)
		},
	}
}

// ruleFlags são os campos opcionais de uma regra. Só os flags informados
// vão no corpo; o resto fica como está no gateway.
type ruleFlags struct {
	rate       string
	points     int
	duration   int
	block      int
	clearBlock bool
}

func (f *ruleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.rate, "rate", "", "Points and window in one value (e.g. 5-S, 100-M, 1000-H)")
	cmd.Flags().IntVar(&f.points, "points", 0, "Points per window")
	cmd.Flags().IntVar(&f.duration, "duration", 0, "Window length in seconds")
	cmd.Flags().IntVar(&f.block, "block", 0, "Block duration in seconds after the window is exceeded")
	cmd.Flags().BoolVar(&f.clearBlock, "clear-block", false, "Remove the block duration")
	cmd.MarkFlagsMutuallyExclusive("rate", "points")
	cmd.MarkFlagsMutuallyExclusive("rate", "duration")
	cmd.MarkFlagsMutuallyExclusive("block", "clear-block")
}

func (f *ruleFlags) body(cmd *cobra.Command) (map[string]any, error) {
	body := map[string]any{}
	if f.rate != "" {
		rate, err := limiter.NewRateFromFormatted(strings.TrimSpace(f.rate))
		if err != nil {
			return nil, fmt.Errorf("invalid --rate: %w", err)
		}
		if rate.Period < time.Second {
			return nil, fmt.Errorf("invalid --rate: period must be at least one second")
		}
		body["points"] = rate.Limit
		body["duration"] = int64(rate.Period / time.Second)
	}
	if cmd.Flags().Changed("points") {
		body["points"] = f.points
	}
	if cmd.Flags().Changed("duration") {
		body["duration"] = f.duration
	}
	if cmd.Flags().Changed("block") {
		body["blockDuration"] = f.block
	}
	if f.clearBlock {
		body["blockDuration"] = nil
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("nothing to change: use --rate, --points, --duration, --block or --clear-block")
	}
	return body, nil
}

type ruleReply struct {
	Message string          `json:"message"`
	Rule    json.RawMessage `json:"rule"`
}

func newSetDefaultCmd(opts *rootOptions) *cobra.Command {
	f := &ruleFlags{}
	cmd := &cobra.Command{
		Use:   "set-default",
		Short: "Update the default rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := f.body(cmd)
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			var reply ruleReply
			if err := c.do(cmd.Context(), http.MethodPost, "/config/default", body, &reply); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply.Message)
			return printJSON(cmd, reply.Rule)
		},
	}
	f.register(cmd)
	return cmd
}

func newSetUserCmd(opts *rootOptions) *cobra.Command {
	f := &ruleFlags{}
	cmd := &cobra.Command{
		Use:   "set-user <identifier>",
		Short: "Create or update the rule of one client identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := f.body(cmd)
			if err != nil {
				return err
			}
			body["identifier"] = args[0]
			c, err := opts.client()
			if err != nil {
				return err
			}
			var reply ruleReply
			if err := c.do(cmd.Context(), http.MethodPost, "/config/user", body, &reply); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply.Message)
			return printJSON(cmd, reply.Rule)
		},
	}
	f.register(cmd)
	return cmd
}

func newDeleteUserCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-user <identifier>",
		Short: "Remove the rule of one client identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			var reply ruleReply
			if err := c.do(cmd.Context(), http.MethodDelete, "/config/user/"+url.PathEscape(args[0]), nil, &reply); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply.Message)
			return nil
		},
	}
}

func newScoresCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scores",
		Short: "List trust scores, lowest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			var scores map[string]int
			if err := c.do(cmd.Context(), http.MethodGet, "/scores", nil, &scores); err != nil {
				return err
			}
			ids := make([]string, 0, len(scores))
			for id := range scores {
				ids = append(ids, id)
			}
			sort.Slice(ids, func(i, j int) bool {
				if scores[ids[i]] != scores[ids[j]] {
					return scores[ids[i]] < scores[ids[j]]
				}
				return ids[i] < ids[j]
			})
			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(out, "No trust scores recorded yet.")
				return nil
			}
			for _, id := range ids {
				fmt.Fprintf(out, "%-40s %3d\n", id, scores[id])
			}
			return nil
		},
	}
}

func printJSON(cmd *cobra.Command, raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
