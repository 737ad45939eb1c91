package config

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DEFAULT []byte

// Duration exists because yaml.v3 does not decode time.Duration on its own.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration '%s': %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

type RedisSettings struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type WebIngress struct {
	Port int `yaml:"port"`
}

type IngressConfig struct {
	Web WebIngress `yaml:"web"`
}

type ServerConfig struct {
	Redis   RedisSettings `yaml:"redis"`
	Ingress IngressConfig `yaml:"ingress"`

	// Path to the sqlite database used for the email audit log. Empty
	// disables it.
	Database string `yaml:"database"`

	// How often the relay drains the store's pub/sub channel.
	PollInterval Duration `yaml:"pollInterval"`
}

type Config struct {
	Server ServerConfig `yaml:"server"`
}

// Process reads the provided configuration files in order, each overlaying
// the last, starting from the embedded defaults. The REDISCLOUD_URL
// environment variable, when set, overrides the configured Redis address.
func Process(configPaths []string) (*Config, error) {
	var config Config
	err := yaml.Unmarshal(DEFAULT, &config)
	if err != nil {
		return nil, err
	}

	for _, path := range configPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		err = yaml.Unmarshal(data, &config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if redisUrl, ok := os.LookupEnv("REDISCLOUD_URL"); ok {
		parsed, err := url.Parse(redisUrl)
		if err != nil {
			return nil, fmt.Errorf("failed to parse REDISCLOUD_URL: %w", err)
		}

		config.Server.Redis.Address = parsed.Host
		if password, ok := parsed.User.Password(); ok {
			config.Server.Redis.Password = password
		}
	}

	return &config, nil
}
