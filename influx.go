package wheelhouse

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/structs"
	client "github.com/influxdata/influxdb1-client/v2"

	"github.com/optionslab/wheelhouse/logger"
	"github.com/optionslab/wheelhouse/models"
)

const (
	envBacktestDBURL      = "WHEELHOUSE_BACKTEST_DB_URL"
	envBacktestDBUser     = "WHEELHOUSE_BACKTEST_DB_USER"
	envBacktestDBPassword = "WHEELHOUSE_BACKTEST_DB_PASSWORD"
)

// RecordBacktest ships a finished run to the shared InfluxDB results
// database: daily equity percent changes plus one point with the final
// metrics. Connection details come from the WHEELHOUSE_BACKTEST_DB_* env
// variables.
func RecordBacktest(result *models.BacktestResult) error {
	influxURL := os.Getenv(envBacktestDBURL)
	if influxURL == "" {
		return fmt.Errorf("record backtest: %v not set", envBacktestDBURL)
	}

	influx, err := client.NewHTTPClient(client.HTTPConfig{
		Addr:     influxURL,
		Username: os.Getenv(envBacktestDBUser),
		Password: os.Getenv(envBacktestDBPassword),
		Timeout:  10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("record backtest: %w", err)
	}
	defer influx.Close()

	bp, err := client.NewBatchPoints(client.BatchPointsConfig{
		Database:  "backtests",
		Precision: "us",
	})
	if err != nil {
		return fmt.Errorf("record backtest: %w", err)
	}

	tags := map[string]string{
		"strategy":   result.Strategy,
		"underlying": result.Underlying,
	}

	last := 0.0
	for i, pt := range result.EquityCurve {
		if i > 0 && last > 0 {
			pct := (pt.Equity - last) / last * 100
			point, err := client.NewPoint(
				"returns",
				tags,
				map[string]interface{}{"pct_change": pct},
				time.UnixMilli(pt.Timestamp).UTC(),
			)
			if err != nil {
				return fmt.Errorf("record backtest: %w", err)
			}
			bp.AddPoint(point)
		}
		last = pt.Equity
	}

	point, err := client.NewPoint("results", tags, structs.Map(result.Metrics), result.End)
	if err != nil {
		return fmt.Errorf("record backtest: %w", err)
	}
	bp.AddPoint(point)

	if err := influx.Write(bp); err != nil {
		return fmt.Errorf("record backtest: %w", err)
	}
	logger.Infof("Recorded backtest %v %v to %v", result.Strategy, result.Underlying, influxURL)
	return nil
}
