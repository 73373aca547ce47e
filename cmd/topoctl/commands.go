package main

import (
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xela07ax/servicemap-console/internal/domain"
	"github.com/xela07ax/servicemap-console/internal/ingest"
	"github.com/xela07ax/servicemap-console/internal/topology"
)

var (
	minQPS       float64
	maxErrorRate float64
	serviceName  string
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the topology view-model (nodes, edges, summary) as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := readRecords(inputFile, inputFormat)
		if err != nil {
			return err
		}
		view, err := topology.Recompute(records, domain.Thresholds{MinQPS: minQPS, MaxErrorRate: maxErrorRate})
		if err != nil {
			return err
		}
		logger.Info("graph built",
			zap.Int("services", view.Summary.TotalServices),
			zap.Int("anomalous", view.Summary.AnomalousServices),
			zap.Int("filtered", len(view.Filtered)))
		return printJSON(cmd.OutOrStdout(), view)
	},
}

var timeseriesCmd = &cobra.Command{
	Use:   "timeseries",
	Short: "Print the time series of one service as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := readRecords(inputFile, inputFormat)
		if err != nil {
			return err
		}
		points, err := topology.TimeSeries(records, serviceName)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]interface{}{
			"service": serviceName,
			"points":  points,
		})
	},
}

func init() {
	defaults := domain.DefaultThresholds()
	graphCmd.Flags().Float64Var(&minQPS, "min-qps", defaults.MinQPS, "minimum mean QPS of a selected service")
	graphCmd.Flags().Float64Var(&maxErrorRate, "max-error-rate", defaults.MaxErrorRate, "maximum mean error rate of a selected service")

	timeseriesCmd.Flags().StringVarP(&serviceName, "service", "s", "", "service name")
	_ = timeseriesCmd.MarkFlagRequired("service")
}

func readRecords(path, explicit string) ([]domain.CallRecord, error) {
	format, err := ingest.DetectFormat(explicit, path, "")
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := ingest.Parse(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Debug("records loaded", zap.String("file", path), zap.Int("records", len(records)))
	return records, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
