package sysinfo

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// Default probe locations on a Raspberry Pi class host.
const (
	defaultThermalPath = "/sys/class/thermal/thermal_zone0/temp"
	defaultLoadavgPath = "/proc/loadavg"
	defaultRootPath    = "/"
)

// Logger defines the logging interface used by the collector.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Info is the system channel payload.
type Info struct {
	ChromeTabs int     `json:"chrome_tabs"`
	CPUTemp    float64 `json:"cpu_temp"`
	CPULoad    int     `json:"cpu_load"`
	DiskUsage  float64 `json:"disk_usage"`
	DefaultURL string  `json:"default_url"`
}

// Collector samples host telemetry for the system channel.
//
// Probes are independent and best effort: a failed read logs a warning
// and leaves its field at the zero value, the rest of the payload still
// reports. The collector holds no state between samples.
type Collector struct {
	thermalPath string
	loadavgPath string
	rootPath    string

	statfs func(path string, st *syscall.Statfs_t) error
	tabs   func() (int, error)

	defaultURL string
	logger     Logger
}

// NewCollector builds a collector reporting the given default URL.
func NewCollector(defaultURL string) *Collector {
	return &Collector{
		thermalPath: defaultThermalPath,
		loadavgPath: defaultLoadavgPath,
		rootPath:    defaultRootPath,
		statfs:      syscall.Statfs,
		defaultURL:  defaultURL,
		logger:      noopLogger{},
	}
}

// SetLogger sets the logger for the collector.
func (c *Collector) SetLogger(logger Logger) {
	c.logger = logger
}

// SetTabCounter wires the browser's open-tab counter. Without one the
// payload reports zero tabs.
func (c *Collector) SetTabCounter(fn func() (int, error)) {
	c.tabs = fn
}

// Snapshot samples every probe and returns the assembled payload.
func (c *Collector) Snapshot() Info {
	info := Info{DefaultURL: c.defaultURL}

	if c.tabs != nil {
		n, err := c.tabs()
		if err != nil {
			c.logger.Warn("tab count failed", "error", err)
		} else {
			info.ChromeTabs = n
		}
	}

	temp, err := c.cpuTemp()
	if err != nil {
		c.logger.Warn("cpu temperature read failed", "error", err)
	} else {
		info.CPUTemp = temp
	}

	load, err := c.cpuLoad()
	if err != nil {
		c.logger.Warn("load average read failed", "error", err)
	} else {
		info.CPULoad = load
	}

	usage, err := c.diskUsage()
	if err != nil {
		c.logger.Warn("disk usage read failed", "error", err)
	} else {
		info.DiskUsage = usage
	}

	return info
}

// Payload renders a fresh snapshot as the system channel's JSON value.
func (c *Collector) Payload() (string, error) {
	data, err := json.Marshal(c.Snapshot())
	if err != nil {
		return "", fmt.Errorf("encoding system payload: %w", err)
	}
	return string(data), nil
}

// cpuTemp reads the SoC temperature in degrees Celsius, rounded to two
// decimals. The kernel reports millidegrees.
func (c *Collector) cpuTemp() (float64, error) {
	data, err := os.ReadFile(c.thermalPath)
	if err != nil {
		return 0, fmt.Errorf("reading cpu temperature: %w", err)
	}
	raw := strings.TrimSpace(string(data))
	milli, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parsing cpu temperature %q: %w", raw, err)
	}
	return round2(float64(milli) / 1000), nil
}

// cpuLoad reads the five minute load average scaled to an integer
// percentage of one core, so 0.42 reports as 42.
func (c *Collector) cpuLoad() (int, error) {
	data, err := os.ReadFile(c.loadavgPath)
	if err != nil {
		return 0, fmt.Errorf("reading load average: %w", err)
	}
	fields := strings.Fields(string(data))
	if len(fields) < 2 {
		return 0, fmt.Errorf("parsing load average %q: too few fields", strings.TrimSpace(string(data)))
	}
	load, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, fmt.Errorf("parsing load average %q: %w", fields[1], err)
	}
	return int(load * 100), nil
}

// diskUsage reports the root filesystem usage percentage, rounded to
// two decimals. Usage counts blocks unavailable to unprivileged users,
// matching what df prints.
func (c *Collector) diskUsage() (float64, error) {
	var st syscall.Statfs_t
	if err := c.statfs(c.rootPath, &st); err != nil {
		return 0, fmt.Errorf("reading disk usage: %w", err)
	}
	if st.Blocks == 0 {
		return 0, fmt.Errorf("reading disk usage: zero block count for %s", c.rootPath)
	}
	used := 1 - float64(st.Bavail)/float64(st.Blocks)
	return round2(used * 100), nil
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
