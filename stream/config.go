package stream

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	// DefaultDelay is the pause between frames in seconds.
	DefaultDelay = 0.04
	// MaxDelay bounds client-supplied delays.
	MaxDelay = 1.0
	// DefaultColour is used for animations without a colour.
	DefaultColour = "255,215,0"
	// DefaultStreamTopic is the MQTT topic pattern; %s is the animation name.
	DefaultStreamTopic = "ansitx/%s"
)

// Config is the service configuration read from YAML.
type Config struct {
	DefaultDelay float64 `yaml:"default_delay"`
	AltScreen    bool    `yaml:"alt_screen"`
	CacheSize    int     `yaml:"cache_size"`
	HTTP         struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	SSH struct {
		Addr        string `yaml:"addr"`
		HostKeyPath string `yaml:"host_key_path"`
	} `yaml:"ssh"`
	Mqtt struct {
		URL      string `yaml:"url"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		ClientID string `yaml:"client_id"`
		QoS      byte   `yaml:"qos"`
		Topics   struct {
			Stream string `yaml:"stream"`
		} `yaml:"topics"`
	} `yaml:"mqtt"`
	Animations map[string]Animation `yaml:"animations"`
}

// LoadConfig reads, defaults and validates the YAML file at path.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return ParseConfig(f)
}

// ParseConfig decodes YAML from r, then applies defaults and validates.
func ParseConfig(r io.Reader) (Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("%w: decode config: %v", ErrInvalidConfig, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.DefaultDelay == 0 {
		c.DefaultDelay = DefaultDelay
	}
	if c.CacheSize <= 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8000"
	}
	if c.SSH.Addr != "" && c.SSH.HostKeyPath == "" {
		c.SSH.HostKeyPath = filepath.Join("state", "ssh_host_ed25519")
	}
	if c.Mqtt.ClientID == "" {
		c.Mqtt.ClientID = "ansitx"
	}
	if c.Mqtt.Topics.Stream == "" {
		c.Mqtt.Topics.Stream = DefaultStreamTopic
	}
	for name, a := range c.Animations {
		a.Frames = os.ExpandEnv(a.Frames)
		if a.Banner == "" {
			a.Banner = string(BannerBlock)
		}
		if a.Color == "" {
			a.Color = DefaultColour
		}
		c.Animations[name] = a
	}
}

// Validate checks the delay bounds and every registered animation.
func (c *Config) Validate() error {
	if c.DefaultDelay <= 0 || c.DefaultDelay > MaxDelay {
		return fmt.Errorf("%w: default_delay %v must be in (0, %v]", ErrInvalidConfig, c.DefaultDelay, MaxDelay)
	}
	if c.Mqtt.QoS > 2 {
		return fmt.Errorf("%w: mqtt.qos %d must be 0, 1 or 2", ErrInvalidConfig, c.Mqtt.QoS)
	}
	for _, name := range c.Names() {
		if err := c.Animations[name].Validate(); err != nil {
			return fmt.Errorf("animation %q: %w", name, err)
		}
	}
	return nil
}

// Names returns the registered animation names in order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Animations))
	for name := range c.Animations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Delay converts seconds into a cadence.
func Delay(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
