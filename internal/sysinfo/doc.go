// Package sysinfo samples host telemetry for the system channel.
//
// A Collector reads CPU temperature from sysfs, the five minute load
// average from /proc/loadavg and root filesystem usage via statfs, and
// folds in the browser's open-tab count when a counter is wired. The
// assembled snapshot serialises to the JSON payload published on the
// system channel.
//
// Probes are best effort. A kiosk without a thermal zone or with the
// browser disabled still publishes; the missing fields report zero.
//
// Usage:
//
//	collector := sysinfo.NewCollector(defaultURL)
//	collector.SetLogger(logger)
//	collector.SetTabCounter(ctrl.TabCount)
//
//	payload, err := collector.Payload()
package sysinfo
