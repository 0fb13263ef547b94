package cli

import (
	"fmt"
	"time"

	"owl-history/common/logger"
	"owl-history/internal/client"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootOptions 全局参数
type RootOptions struct {
	Addr    string
	Timeout time.Duration
	Format  string // "json" | "text"
	Verbose bool
}

// ValidFormats 支持的输出格式
var ValidFormats = []string{"text", "json"}

// NewRootCommand owl-history 运维 CLI 根命令
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "owl-history-cli",
		Short: "Query the owl-history node history API",
		Long: `Query a running owl-history service: node catalog, recent readings
and xlsx exports.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Addr, "addr", "http://localhost:8000", "owl-history base URL")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "request timeout")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewPingCommand(opts))
	cmd.AddCommand(NewTagnamesCommand(opts))
	cmd.AddCommand(NewDataCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))

	return cmd
}

// newClient 创建 API 客户端；--verbose 时 debug 日志输出到 stderr
func (o *RootOptions) newClient() (*client.HistoryClient, error) {
	log := zap.NewNop()
	if o.Verbose {
		l, err := logger.NewLogger("debug", "console", "owl-history-cli")
		if err != nil {
			return nil, fmt.Errorf("failed to init logger: %w", err)
		}
		log = l
	}
	return client.NewHistoryClient(o.Addr, o.Timeout, log), nil
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
