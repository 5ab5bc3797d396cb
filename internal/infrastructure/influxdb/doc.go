// Package influxdb records automation run metrics and host samples in
// InfluxDB v2.
//
// Measurements:
//   - automation_run: one point per run that passed the guards, tagged by
//     automation_id, trigger and status, with duration_ms and action_count fields
//   - system_sample: cpu/memory/disk percentages taken by the system trigger
//
// Writes use the non-blocking batched WriteAPI; async failures reach the
// callback set with SetOnError. The integration is optional and Connect
// returns ErrDisabled when influxdb.enabled is false.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
package influxdb
