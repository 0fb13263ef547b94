package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"owl-history/internal/client"
	"owl-history/internal/models"

	"github.com/relvacode/iso8601"
	"github.com/spf13/cobra"
)

// QueryOptions data / export 共用的 /api/v1/data 过滤参数
type QueryOptions struct {
	NodeID int64
	From   string
	To     string
	Limit  int
}

func (q *QueryOptions) bind(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&q.NodeID, "nodeid", 0, "only this node")
	cmd.Flags().StringVar(&q.From, "from", "", "window start (ISO 8601)")
	cmd.Flags().StringVar(&q.To, "to", "", "window end (ISO 8601)")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "limit sent to the server (1..50)")
}

func (q *QueryOptions) params(cmd *cobra.Command) (client.DataParams, error) {
	var p client.DataParams
	if cmd.Flags().Changed("nodeid") {
		id := q.NodeID
		p.NodeID = &id
	}
	var err error
	if p.From, err = parseFlagTime("from", q.From); err != nil {
		return p, err
	}
	if p.To, err = parseFlagTime("to", q.To); err != nil {
		return p, err
	}
	p.Limit = q.Limit
	return p, nil
}

func parseFlagTime(name, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := iso8601.ParseString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return &t, nil
}

func writeJSONOut(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// NewPingCommand ping 子命令
func NewPingCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "ping",
		Short:         "Check that the service is running",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rootOpts.newClient()
			if err != nil {
				return err
			}
			msg, err := c.Ping(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

// NewTagnamesCommand tagnames 子命令
func NewTagnamesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "tagnames",
		Short:         "List nodes that have recorded readings",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rootOpts.newClient()
			if err != nil {
				return err
			}
			nodes, err := c.ListTagnames(cmd.Context())
			if err != nil {
				return err
			}
			return printTagnames(cmd.OutOrStdout(), rootOpts.Format, nodes)
		},
	}
}

func printTagnames(w io.Writer, format string, nodes []models.NodeShort) error {
	if format == "json" {
		return writeJSONOut(w, nodes)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NODEID\tTAGNAME")
	for _, n := range nodes {
		fmt.Fprintf(tw, "%d\t%s\n", n.NodeID, n.TagName)
	}
	return tw.Flush()
}

// NewDataCommand data 子命令
func NewDataCommand(rootOpts *RootOptions) *cobra.Command {
	q := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "data",
		Short: "Show recent readings (newest first, at most 50 per node)",
		Long: `Show recent readings for one node or for every node with readings
in the window.

Examples:
  owl-history-cli data
  owl-history-cli data --nodeid 12 --from 2024-05-01T00:00:00Z
  owl-history-cli data --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := q.params(cmd)
			if err != nil {
				return err
			}
			c, err := rootOpts.newClient()
			if err != nil {
				return err
			}
			histories, err := c.GetData(cmd.Context(), p)
			if err != nil {
				return err
			}
			return printHistories(cmd.OutOrStdout(), rootOpts.Format, histories)
		},
	}
	q.bind(cmd)

	return cmd
}

func printHistories(w io.Writer, format string, histories []models.NodeHistory) error {
	if format == "json" {
		return writeJSONOut(w, histories)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NODEID\tTAGNAME\tTIME\tVALUE\tQUALITY")
	for _, h := range histories {
		for _, r := range h.History {
			quality := "-"
			if r.Quality != nil {
				quality = fmt.Sprintf("%d", *r.Quality)
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", h.NodeID, h.TagName, r.Time, readingValue(r), quality)
		}
	}
	return tw.Flush()
}

// readingValue 输出有值的那个 val* 字段
func readingValue(r models.ReadingItem) string {
	var parts []string
	if r.ValDouble != nil {
		parts = append(parts, fmt.Sprintf("%g", *r.ValDouble))
	}
	if r.ValInt != nil {
		parts = append(parts, fmt.Sprintf("%d", *r.ValInt))
	}
	if r.ValUint != nil {
		parts = append(parts, fmt.Sprintf("%d", *r.ValUint))
	}
	if r.ValBool != nil {
		parts = append(parts, fmt.Sprintf("%t", *r.ValBool))
	}
	if r.ValString != nil {
		parts = append(parts, *r.ValString)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}

// ExportOptions export 子命令参数
type ExportOptions struct {
	QueryOptions
	Out string
}

// NewExportCommand export 子命令
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:           "export",
		Short:         "Download readings as an xlsx workbook",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.params(cmd)
			if err != nil {
				return err
			}
			c, err := rootOpts.newClient()
			if err != nil {
				return err
			}
			data, err := c.Export(cmd.Context(), p)
			if err != nil {
				return err
			}
			if err := os.WriteFile(opts.Out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", opts.Out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(data), opts.Out)
			return nil
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output file (required)")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}
