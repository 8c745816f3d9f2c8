package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/limaJavier/campus-timetabling/pkg/analyzer"
	"github.com/limaJavier/campus-timetabling/pkg/sat"
	"github.com/limaJavier/campus-timetabling/pkg/scheduler"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	EnvPrefix   = "TIMETABLE"
	GiniSolver  = "gini"
	FormatJson  = "json"
	FormatPlain = "console"
)

type Config struct {
	Log       LogConfig         `mapstructure:"log"`
	Scheduler SchedulerConfig   `mapstructure:"scheduler"`
	Solvers   map[string]string `mapstructure:"solvers"` // Solver name to binary path
	Analyzer  analyzer.Options  `mapstructure:"analyzer"`
	Batch     BatchConfig       `mapstructure:"batch"`
	Metrics   MetricsConfig     `mapstructure:"metrics"`
	Export    ExportConfig      `mapstructure:"export"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SchedulerConfig struct {
	Strategy       string `mapstructure:"strategy"`
	BacktrackLimit int    `mapstructure:"backtrack_limit"`
	BandMinutes    int    `mapstructure:"band_minutes"`
	Solver         string `mapstructure:"solver"`
}

type BatchConfig struct {
	Workers int `mapstructure:"workers"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"` // Written after every run when set
}

type ExportConfig struct {
	WeekStart string `mapstructure:"week_start"`
	Timezone  string `mapstructure:"timezone"`
}

// Load reads configuration with precedence: environment > config file > defaults.
// An empty path looks for config.yaml in ./config and the working directory.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("cannot read configuration: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := analyzer.DefaultOptions()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", FormatJson)

	v.SetDefault("scheduler.strategy", scheduler.StrategyGreedy)
	v.SetDefault("scheduler.backtrack_limit", scheduler.DefaultBacktrackLimit)
	v.SetDefault("scheduler.band_minutes", 60)
	v.SetDefault("scheduler.solver", GiniSolver)

	v.SetDefault("analyzer.workload_high", defaults.WorkloadHigh)
	v.SetDefault("analyzer.workload_low", defaults.WorkloadLow)
	v.SetDefault("analyzer.back_to_back_limit", defaults.BackToBackLimit)

	v.SetDefault("batch.workers", 4)
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("export.week_start", "2025-01-06")
	v.SetDefault("export.timezone", "UTC")
}

func (c *Config) Validate() error {
	if c.Log.Level != "" {
		if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("invalid configuration: log.level: %w", err)
		}
	}
	switch {
	case c.Log.Format != FormatJson && c.Log.Format != FormatPlain:
		return fmt.Errorf("invalid configuration: log.format must be %v or %v", FormatJson, FormatPlain)
	case c.Scheduler.Strategy != scheduler.StrategyGreedy && c.Scheduler.Strategy != scheduler.StrategyExact:
		return fmt.Errorf("invalid configuration: scheduler.strategy %q is unknown", c.Scheduler.Strategy)
	case c.Scheduler.BacktrackLimit <= 0:
		return fmt.Errorf("invalid configuration: scheduler.backtrack_limit must be positive")
	case c.Scheduler.BandMinutes <= 0:
		return fmt.Errorf("invalid configuration: scheduler.band_minutes must be positive")
	case c.Scheduler.Solver != GiniSolver && c.Solvers[c.Scheduler.Solver] == "":
		return fmt.Errorf("invalid configuration: solvers.%v must name the solver binary", c.Scheduler.Solver)
	case c.Analyzer.WorkloadLow < 0 || c.Analyzer.WorkloadLow > c.Analyzer.WorkloadHigh:
		return fmt.Errorf("invalid configuration: analyzer.workload_low must be between 0 and analyzer.workload_high")
	case c.Analyzer.BackToBackLimit < 0:
		return fmt.Errorf("invalid configuration: analyzer.back_to_back_limit must not be negative")
	case c.Batch.Workers <= 0:
		return fmt.Errorf("invalid configuration: batch.workers must be positive")
	}
	return nil
}

// Solver builds the configured SAT solver.
func (c *Config) Solver() sat.SATSolver {
	if c.Scheduler.Solver == GiniSolver {
		return sat.NewGiniSolver()
	}
	return sat.NewExternalSolver(c.Scheduler.Solver, c.Solvers[c.Scheduler.Solver])
}

// SchedulerOptions maps the scheduler section onto scheduler.Options.
func (c *Config) SchedulerOptions(logger *zap.Logger) scheduler.Options {
	return scheduler.Options{
		Strategy:       c.Scheduler.Strategy,
		BacktrackLimit: c.Scheduler.BacktrackLimit,
		BandMinutes:    c.Scheduler.BandMinutes,
		Solver:         c.Solver(),
		Logger:         logger,
	}
}
