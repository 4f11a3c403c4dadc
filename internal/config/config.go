// Package config loads the engine's and FPM's YAML configuration file:
// one schema covering both php.ini-equivalent engine directives
// (error_reporting, max_execution_time, display_errors) and FPM pool
// directives (pm, pm.max_children, listen address), replacing the
// teacher's ad hoc ini-line pool parser (pkg/fpm/config) with a single
// gopkg.in/yaml.v3-decoded document, per the engine's ambient
// configuration story.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/loomphp/loom/pkg/fpm/pool"
)

// EngineConfig holds a subset of php.ini directives: error_reporting's
// level names, a max_execution_time duration, and display_errors. They
// are decoded and defaulted only; nothing in this module reads them to
// configure a request (SetTimeLimit is not armed from here).
type EngineConfig struct {
	ErrorReporting   []string      `yaml:"error_reporting"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	DisplayErrors    bool          `yaml:"display_errors"`
}

// GlobalConfig is the FPM master process's own settings, independent of
// any pool.
type GlobalConfig struct {
	PIDFile                   string        `yaml:"pid"`
	ErrorLog                  string        `yaml:"error_log"`
	LogLevel                  string        `yaml:"log_level"`
	EmergencyRestartThreshold int           `yaml:"emergency_restart_threshold"`
	EmergencyRestartInterval  time.Duration `yaml:"emergency_restart_interval"`
}

// PoolSpec is one `[pool-name]` block's worth of FPM pool directives,
// decoded straight from YAML rather than parsed line-by-line.
type PoolSpec struct {
	Name                    string        `yaml:"name"`
	Listen                  string        `yaml:"listen"`
	ListenBacklog           int           `yaml:"listen_backlog"`
	ListenOwner             string        `yaml:"listen_owner"`
	ListenGroup             string        `yaml:"listen_group"`
	ListenMode              string        `yaml:"listen_mode"`
	ProcessManagement       string        `yaml:"pm"`
	MaxChildren             int           `yaml:"pm_max_children"`
	StartServers            int           `yaml:"pm_start_servers"`
	MinSpareServers         int           `yaml:"pm_min_spare_servers"`
	MaxSpareServers         int           `yaml:"pm_max_spare_servers"`
	MaxRequests             int           `yaml:"pm_max_requests"`
	ProcessIdleTimeout      time.Duration `yaml:"pm_process_idle_timeout"`
	RequestTerminateTimeout time.Duration `yaml:"request_terminate_timeout"`
	SlowLogFile             string        `yaml:"slowlog"`
}

// Config is the whole decoded document: engine directives, the FPM
// master's global settings, and its pool definitions.
type Config struct {
	Engine EngineConfig `yaml:"engine"`
	Global GlobalConfig `yaml:"global"`
	Pools  []PoolSpec   `yaml:"pools"`
}

// Default returns the configuration used when no file is supplied,
// matching the teacher's hard-coded fallback values.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			ErrorReporting:   []string{"error", "warning"},
			MaxExecutionTime: 30 * time.Second,
			DisplayErrors:    true,
		},
		Global: GlobalConfig{
			PIDFile:                   "/var/run/loom-fpm.pid",
			ErrorLog:                  "/var/log/loom-fpm.log",
			LogLevel:                  "notice",
			EmergencyRestartThreshold: 10,
			EmergencyRestartInterval:  time.Minute,
		},
		Pools: []PoolSpec{defaultPoolSpec("www")},
	}
}

func defaultPoolSpec(name string) PoolSpec {
	return PoolSpec{
		Name:                    name,
		Listen:                  "127.0.0.1:9000",
		ListenBacklog:           511,
		ProcessManagement:       string(pool.PMDynamic),
		MaxChildren:             50,
		StartServers:            5,
		MinSpareServers:         5,
		MaxSpareServers:         35,
		MaxRequests:             500,
		ProcessIdleTimeout:      10 * time.Second,
		RequestTerminateTimeout: 30 * time.Second,
	}
}

// Load decodes a YAML configuration document over Default(), so an
// omitted engine or global field keeps its default. A `pools` list in
// the file replaces the default pool list, and fields a listed pool
// omits stay zero here (PoolConfigs fills zero-valued pool fields).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if len(cfg.Pools) == 0 {
		cfg.Pools = []PoolSpec{defaultPoolSpec("www")}
	}
	return cfg, nil
}

// PoolConfigs converts every decoded PoolSpec into the pool package's
// runtime PoolConfig, filling any zero-valued numeric field from the
// matching default so a YAML document only needs to override what it
// cares about.
func (c *Config) PoolConfigs() []*pool.PoolConfig {
	out := make([]*pool.PoolConfig, 0, len(c.Pools))
	for _, spec := range c.Pools {
		def := defaultPoolSpec(spec.Name)
		pc := &pool.PoolConfig{
			Name:                    spec.Name,
			ProcessManagement:       pool.ProcessManagement(orDefault(spec.ProcessManagement, def.ProcessManagement)),
			MaxChildren:             orDefaultInt(spec.MaxChildren, def.MaxChildren),
			StartServers:            orDefaultInt(spec.StartServers, def.StartServers),
			MinSpareServers:         orDefaultInt(spec.MinSpareServers, def.MinSpareServers),
			MaxSpareServers:         orDefaultInt(spec.MaxSpareServers, def.MaxSpareServers),
			MaxRequests:             orDefaultInt(spec.MaxRequests, def.MaxRequests),
			ProcessIdleTimeout:      orDefaultDuration(spec.ProcessIdleTimeout, def.ProcessIdleTimeout),
			RequestTerminateTimeout: orDefaultDuration(spec.RequestTerminateTimeout, def.RequestTerminateTimeout),
		}
		out = append(out, pc)
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orDefaultDuration(v, def time.Duration) time.Duration {
	if v == 0 {
		return def
	}
	return v
}
