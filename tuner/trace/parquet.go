package trace

import (
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// metricRow is the Parquet schema of an exported metric log.
type metricRow struct {
	Time       float64 `parquet:"name=time, type=DOUBLE"`
	Throughput float64 `parquet:"name=avg_throughput, type=DOUBLE"`
	RTT        float64 `parquet:"name=avg_rtt, type=DOUBLE"`
	Pause      float64 `parquet:"name=avg_pfc, type=DOUBLE"`
	Utility    float64 `parquet:"name=utility, type=DOUBLE"`
}

// ExportParquet writes records to a Parquet file at path.
func ExportParquet(records []MetricRecord, path string) error {
	file, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("creating parquet file: %w", err)
	}

	pw, err := writer.NewParquetWriter(file, new(metricRow), 1)
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("creating parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, r := range records {
		row := metricRow{Time: r.Time, Throughput: r.Throughput, RTT: r.RTT, Pause: r.Pause, Utility: r.Utility}
		if err := pw.Write(row); err != nil {
			_ = file.Close()
			return fmt.Errorf("writing parquet row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = file.Close()
		return fmt.Errorf("stopping parquet writer: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing parquet file: %w", err)
	}
	return nil
}
