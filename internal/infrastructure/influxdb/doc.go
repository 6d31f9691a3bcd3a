// Package influxdb writes façade timing metrics to InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched non-blocking writes and health monitoring.
//
// # Measurements
//
//	sqlfacade_statements    tags: kind, status    fields: duration_ms, sets, rows
//	sqlfacade_transactions  tags: outcome         fields: duration_ms
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.Metrics)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteTransactionMetric(influxdb.TransactionMetric{
//	    Outcome: "committed", Duration: elapsed,
//	})
//
// # Error Handling
//
// Write operations are non-blocking; batch errors are delivered to the
// callback set with SetOnError. Connection and health check errors are
// returned directly.
package influxdb
