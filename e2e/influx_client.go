// Package e2e drives the full pipeline against real backing services started
// with testcontainers.
package e2e

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// InfluxClient is a small helper around the official InfluxDB v2 client used
// by the E2E tests. It hides token, org and bucket plumbing behind the few
// assertions the tests need.
type InfluxClient struct {
	client influxdb2.Client
	query  api.QueryAPI
	bucket string
}

// NewInfluxClient creates a client for the given parameters. It assumes the
// server is already running and reachable.
func NewInfluxClient(url, token, org, bucket string) *InfluxClient {
	c := influxdb2.NewClient(url, token)
	return &InfluxClient{client: c, query: c.QueryAPI(org), bucket: bucket}
}

// CountMeasurement returns how many rows the measurement produced in the
// bucket within the lookback window, e.g. "5m".
func (c *InfluxClient) CountMeasurement(ctx context.Context, measurement, lookback string) (int, error) {
	flux := fmt.Sprintf(`from(bucket:%q) |> range(start:-%s) |> filter(fn: (r) => r._measurement == %q)`,
		c.bucket, lookback, measurement)
	res, err := c.query.Query(ctx, flux)
	if err != nil {
		return 0, err
	}
	count := 0
	for res.Next() {
		count++
	}
	if err := res.Err(); err != nil {
		return 0, err
	}
	return count, res.Close()
}

// Close releases the underlying client resources.
func (c *InfluxClient) Close() { c.client.Close() }
