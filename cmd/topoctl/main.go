// topoctl строит граф вызовов по локальному файлу трассировок без запуска консоли.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xela07ax/servicemap-console/internal/infra"
)

var (
	logger   *zap.Logger
	logLevel string

	inputFile   string
	inputFormat string
)

var rootCmd = &cobra.Command{
	Use:           "topoctl",
	Short:         "Offline service topology tool",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := infra.NewLogger(infra.LoggerConfig{Level: logLevel, Format: "console"})
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "debug, info, warn, error")
	rootCmd.PersistentFlags().StringVarP(&inputFile, "file", "f", "", "CSV or JSON file with call records")
	rootCmd.PersistentFlags().StringVar(&inputFormat, "format", "", "input format (csv, json); detected from the extension if empty")
	_ = rootCmd.MarkPersistentFlagRequired("file")

	rootCmd.AddCommand(graphCmd, timeseriesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "topoctl:", err)
		os.Exit(1)
	}
}
