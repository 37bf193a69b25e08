package returner

import (
	"context"
	"fmt"
	"strconv"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/reeveops/reeve/internal/history"
)

const defaultInfluxMeasurement = "reeve_job"

// Influx posts one point per job to an InfluxDB bucket: plan and
// dry_run as tags, the counters and duration as fields, timestamped
// with the job's start time.
//
// Config namespace "returner.influxdb": url (required), token, org,
// bucket (required), measurement.
type Influx struct {
	client      influxdb2.Client
	writer      api.WriteAPIBlocking
	measurement string
}

// NewInflux wraps an existing blocking write API. An empty measurement
// selects the default.
func NewInflux(writer api.WriteAPIBlocking, measurement string) *Influx {
	if measurement == "" {
		measurement = defaultInfluxMeasurement
	}
	return &Influx{writer: writer, measurement: measurement}
}

// InfluxFromConfig connects from a secure-config namespace.
func InfluxFromConfig(ns map[string]any) (*Influx, error) {
	url := stringSetting(ns, "url", "")
	bucket := stringSetting(ns, "bucket", "")
	if url == "" || bucket == "" {
		return nil, fmt.Errorf("returner.influxdb: 'url' and 'bucket' are required")
	}

	client := influxdb2.NewClient(url, stringSetting(ns, "token", ""))
	ret := NewInflux(
		client.WriteAPIBlocking(stringSetting(ns, "org", ""), bucket),
		stringSetting(ns, "measurement", defaultInfluxMeasurement),
	)
	ret.client = client
	return ret, nil
}

func (i *Influx) Name() string {
	return "influxdb"
}

func (i *Influx) Return(ctx context.Context, rec *history.Record) error {
	point := influxdb2.NewPoint(
		i.measurement,
		map[string]string{
			"plan":    rec.Plan,
			"dry_run": strconv.FormatBool(rec.DryRun),
		},
		map[string]any{
			"jid":          rec.JID,
			"satisfied":    rec.Satisfied,
			"changed":      rec.Changed,
			"would_change": rec.WouldChange,
			"failed":       rec.Failed,
			"skipped":      rec.Skipped,
			"duration_ms":  rec.Duration.Milliseconds(),
		},
		rec.StartedAt,
	)
	if err := i.writer.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("post job %s to influxdb: %w", rec.JID, err)
	}
	return nil
}

func (i *Influx) Close() error {
	if i.client != nil {
		i.client.Close()
	}
	return nil
}
