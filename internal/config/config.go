// Package config loads the matching engine's runtime configuration with
// spf13/viper, binding environment variables and an optional config file
// over the defaults documented in spec §6's configuration table. Named
// for the pack's viper-based manifests (no full example carried concrete
// usage, so this follows viper's standard AutomaticEnv/SetDefault idiom).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully-resolved runtime configuration.
type Config struct {
	Ingress  Ingress
	Egress   Egress
	Cache    Cache
	Primary  Primary
	Recovery Recovery
}

type Ingress struct {
	Brokers        []string
	Topic          string
	DLQTopic       string
	GroupID        string
	Concurrency    int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

type Egress struct {
	Brokers        []string
	StatusTopic    string
	TradeTopic     string
	StatusDLQTopic string
	TradeDLQTopic  string
}

type Cache struct {
	Addr          string
	InitialDelay  time.Duration
	SyncPeriod    time.Duration
}

type Primary struct {
	DSN string
}

type Recovery struct {
	Enabled bool
}

// Load reads configuration from (in order of increasing precedence) the
// defaults below, a config file named matchengine.yaml on the given
// search paths, and environment variables prefixed MATCHENGINE_.
func Load(searchPaths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("matchengine")
	v.SetConfigType("yaml")
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix("MATCHENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	cfg := &Config{
		Ingress: Ingress{
			Brokers:        v.GetStringSlice("ingress.brokers"),
			Topic:          v.GetString("ingress.topic"),
			DLQTopic:       v.GetString("ingress.dlq_topic"),
			GroupID:        v.GetString("ingress.group_id"),
			Concurrency:    v.GetInt("ingress.concurrency"),
			RetryBaseDelay: v.GetDuration("ingress.retry.base_delay"),
			RetryMaxDelay:  v.GetDuration("ingress.retry.max_delay"),
		},
		Egress: Egress{
			Brokers:        v.GetStringSlice("egress.brokers"),
			StatusTopic:    v.GetString("egress.status_topic"),
			TradeTopic:     v.GetString("egress.trade_topic"),
			StatusDLQTopic: v.GetString("egress.status_dlq_topic"),
			TradeDLQTopic:  v.GetString("egress.trade_dlq_topic"),
		},
		Cache: Cache{
			Addr:         v.GetString("cache.addr"),
			InitialDelay: v.GetDuration("cache.initial_delay"),
			SyncPeriod:   v.GetDuration("cache.sync_period"),
		},
		Primary: Primary{
			DSN: v.GetString("primary.dsn"),
		},
		Recovery: Recovery{
			Enabled: v.GetBool("recovery.enabled"),
		},
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ingress.brokers", []string{"localhost:9092"})
	v.SetDefault("ingress.topic", "order-input")
	v.SetDefault("ingress.dlq_topic", "order-input-dlq")
	v.SetDefault("ingress.group_id", "matchengine-ingress")
	v.SetDefault("ingress.concurrency", 4)
	v.SetDefault("ingress.retry.base_delay", 100*time.Millisecond)
	v.SetDefault("ingress.retry.max_delay", 400*time.Millisecond)

	v.SetDefault("egress.brokers", []string{"localhost:9092"})
	v.SetDefault("egress.status_topic", "order-status-update")
	v.SetDefault("egress.trade_topic", "trade-output")
	v.SetDefault("egress.status_dlq_topic", "order-status-update-dlq")
	v.SetDefault("egress.trade_dlq_topic", "trade-output-dlq")

	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.initial_delay", 10*time.Second)
	v.SetDefault("cache.sync_period", 5*time.Second)

	v.SetDefault("primary.dsn", "postgres://localhost:5432/matchengine?sslmode=disable")

	v.SetDefault("recovery.enabled", true)
}
