package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/paraleon-ns3/paraleon/tuner/trace"
)

var (
	exportIn  string // metric log to read
	exportOut string // Parquet file to write
)

// exportCmd converts a metric log into Parquet for offline analysis
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Convert a metric log to Parquet",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		records, err := trace.ReadMetricLog(exportIn)
		if err != nil {
			logrus.Fatalf("Failed to read metric log: %v", err)
		}
		if err := trace.ExportParquet(records, exportOut); err != nil {
			logrus.Fatalf("Failed to export: %v", err)
		}
		logrus.Infof("Exported %d rounds to %s", len(records), exportOut)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportIn, "metric-log", "mix/metric_output.tr", "Metric log to convert")
	exportCmd.Flags().StringVar(&exportOut, "out", "metric_output.parquet", "Parquet file to write")
}
