// Package bootstrap wires every manager and sample plugin together at
// process start, grounded on strategy-engine/cmd/server/main.go's load ->
// construct -> start -> serve -> signal-wait -> shutdown sequence.
package bootstrap

import (
	"fmt"
	"os"
	"reflect"

	"github.com/b25/tradecore/internal/datamanager"
	"github.com/b25/tradecore/internal/logger"
	"github.com/b25/tradecore/internal/monitoring"
	"github.com/b25/tradecore/internal/ordermanager"
	"github.com/b25/tradecore/internal/pipeline"
	"github.com/b25/tradecore/internal/riskmanager"
	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config is the process-level bootstrap configuration: which ports to
// listen on, how managers are sized, and the logger's verbosity. It is
// distinct from C6's runtime ConfigSource/Manager, which governs hot-reloadable
// application config after the process is already up.
type Config struct {
	Server  ServerConfig          `mapstructure:"server"`
	Logging logger.Config         `mapstructure:"logging"`
	Metrics MetricsConfig         `mapstructure:"metrics"`

	DataManager  datamanager.Config  `mapstructure:"data_manager"`
	OrderManager ordermanager.Config `mapstructure:"order_manager"`
	RiskManager  riskmanager.Config  `mapstructure:"risk_manager"`
	Monitoring   monitoring.Config   `mapstructure:"monitoring"`
	Pipeline     pipeline.Config     `mapstructure:"pipeline"`

	PortfolioValue decimal.Decimal `mapstructure:"portfolio_value" decimal:"true"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

func defaultConfig() Config {
	return Config{
		Server:         ServerConfig{Host: "0.0.0.0", Port: 8090},
		Logging:        logger.Config{Level: "info", Format: "json"},
		Metrics:        MetricsConfig{Enabled: true, Path: "/metrics", Namespace: "tradecore"},
		DataManager:    datamanager.DefaultConfig(),
		OrderManager:   ordermanager.DefaultConfig(),
		RiskManager:    riskmanager.DefaultConfig(),
		Monitoring:     monitoring.DefaultConfig(),
		Pipeline:       pipeline.Config{MaxConcurrentStrategies: 32, MarketDataTimeout: 0, ExecutionInterval: 0, SignalQueueSize: 1000},
		PortfolioValue: decimal.NewFromInt(100000),
	}
}

// decimalDecodeHookFunc converts strings into decimal.Decimal, directly
// grounded on account-monitor/internal/config/config.go's
// stringToDecimalHookFunc.
func decimalDecodeHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != reflect.TypeOf(decimal.Decimal{}) {
			return data, nil
		}
		if f.Kind() != reflect.String {
			return data, nil
		}
		str, _ := data.(string)
		d, err := decimal.NewFromString(str)
		if err != nil {
			return nil, fmt.Errorf("failed to parse decimal from %q: %w", str, err)
		}
		return d, nil
	}
}

// LoadConfig reads the bootstrap config from the YAML file at path (main
// passes ConfigPath(): CONFIG_PATH, defaulting to config.yaml) plus
// TRADECORE_-prefixed environment overrides.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("TRADECORE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	decoderConfig := &mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			decimalDecodeHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
		),
		Result:           &cfg,
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return cfg, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func ConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "config.yaml"
}
