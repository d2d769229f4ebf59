// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// envPrefix namespaces the environment overlay: web.addr becomes
// TIMELINE_WEB_ADDR, coordinator.address becomes TIMELINE_COORDINATOR_ADDRESS.
const envPrefix = "TIMELINE"

type Config struct {
	// NodeName identifies this node in logs and coordinator reports.
	NodeName string `mapstructure:"node_name" validate:"required"`

	Web         WebConfig         `mapstructure:"web"`
	Coordinator CoordinatorConfig `mapstructure:"coordinator"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Collector   CollectorConfig   `mapstructure:"collector"`
	Log         LogConfig         `mapstructure:"log"`
}

type WebConfig struct {
	// Addr is the timeline endpoint listen address. Port 0 binds an
	// ephemeral port which is then published to the coordinator.
	Addr string `mapstructure:"addr" validate:"required"`

	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type CoordinatorConfig struct {
	Address       string        `mapstructure:"address" validate:"required,hostname_port"`
	ReportTimeout time.Duration `mapstructure:"report_timeout" validate:"gt=0"`
}

type StorageConfig struct {
	// Path is the badger data directory. Empty runs the store in memory.
	Path string `mapstructure:"path"`
}

type CollectorConfig struct {
	BufferSize    int           `mapstructure:"buffer_size" validate:"gt=0"`
	FlushTimeout  time.Duration `mapstructure:"flush_timeout" validate:"gt=0"`
	RemovalLinger time.Duration `mapstructure:"removal_linger" validate:"gte=0"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

func Default() Config {
	nodeName := os.Getenv("NODE_NAME")
	if nodeName == "" {
		nodeName, _ = os.Hostname()
	}
	return Config{
		NodeName: nodeName,
		Web: WebConfig{
			Addr:            "0.0.0.0:0",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Coordinator: CoordinatorConfig{
			Address:       "localhost:50051",
			ReportTimeout: 10 * time.Second,
		},
		Collector: CollectorConfig{
			BufferSize:    256,
			FlushTimeout:  5 * time.Second,
			RemovalLinger: 1 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load layers configuration: defaults, then the optional file at path, then
// TIMELINE_* environment variables, with later layers winning.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	decode := func(c *mapstructure.DecoderConfig) {
		c.DecodeHook = mapstructure.StringToTimeDurationHookFunc()
	}
	if err := v.Unmarshal(&cfg, decode); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key with viper. The env overlay only applies to
// keys viper knows about, so each one is declared here.
func setDefaults(v *viper.Viper, def Config) {
	v.SetDefault("node_name", def.NodeName)
	v.SetDefault("web.addr", def.Web.Addr)
	v.SetDefault("web.read_timeout", def.Web.ReadTimeout)
	v.SetDefault("web.write_timeout", def.Web.WriteTimeout)
	v.SetDefault("web.idle_timeout", def.Web.IdleTimeout)
	v.SetDefault("web.shutdown_timeout", def.Web.ShutdownTimeout)
	v.SetDefault("coordinator.address", def.Coordinator.Address)
	v.SetDefault("coordinator.report_timeout", def.Coordinator.ReportTimeout)
	v.SetDefault("storage.path", def.Storage.Path)
	v.SetDefault("collector.buffer_size", def.Collector.BufferSize)
	v.SetDefault("collector.flush_timeout", def.Collector.FlushTimeout)
	v.SetDefault("collector.removal_linger", def.Collector.RemovalLinger)
	v.SetDefault("log.level", def.Log.Level)
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
