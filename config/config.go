package config

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/gcfg.v1"

	"github.com/opd-ai/openelp/limits"
	"github.com/opd-ai/openelp/logging"
)

// EnvPrefix is prepended to the environment variable of every key.
const EnvPrefix = "OPENELP_"

// Default values for optional keys.
const (
	DefaultPort           = 8100
	DefaultAuthTimeout    = 10
	DefaultConnectTimeout = 10
	DefaultServerPort     = 5200
	DefaultDataPort       = 5198
	DefaultControlPort    = 5199
	DefaultLogLevel       = "info"
)

// MaxTimeout caps AuthTimeout and ConnectTimeout, in seconds.
const MaxTimeout = 300

var (
	// ErrMissingPassword indicates the Password key was not set.
	ErrMissingPassword = errors.New("missing Password")

	// ErrInvalidValue indicates a key holds a value outside its range.
	ErrInvalidValue = errors.New("invalid value")

	// ErrBadAddress indicates an unparseable or unsupported IP address.
	ErrBadAddress = errors.New("invalid address")

	// ErrBadPattern indicates a callsign pattern that does not compile.
	ErrBadPattern = errors.New("invalid callsign pattern")
)

// Config holds the proxy settings. Field names match the keys of the
// configuration file case-insensitively.
type Config struct {
	Password string `env:"PASSWORD"`
	Port     int    `env:"PORT"`

	BindAddress                     string `env:"BIND_ADDRESS"`
	ExternalBindAddress             string `env:"EXTERNAL_BIND_ADDRESS"`
	AdditionalExternalBindAddresses string `env:"ADDITIONAL_EXTERNAL_BIND_ADDRESSES"`

	CallsignsAllowed string `env:"CALLSIGNS_ALLOWED"`
	CallsignsDenied  string `env:"CALLSIGNS_DENIED"`

	RegistrationName    string `env:"REGISTRATION_NAME"`
	RegistrationComment string `env:"REGISTRATION_COMMENT"`

	// Timeouts in seconds.
	AuthTimeout    int `env:"AUTH_TIMEOUT"`
	ConnectTimeout int `env:"CONNECT_TIMEOUT"`

	ServerPort  int `env:"SERVER_PORT"`
	DataPort    int `env:"DATA_PORT"`
	ControlPort int `env:"CONTROL_PORT"`

	MetricsAddress string `env:"METRICS_ADDRESS"`
	LogLevel       string `env:"LOG_LEVEL"`

	allowed   *regexp.Regexp
	denied    *regexp.Regexp
	externals []netip.Addr
	level     logging.Level
}

// fileConfig places the section-less file content under [proxy].
type fileConfig struct {
	Proxy Config
}

// Default returns a configuration with every optional key at its default.
// The result does not validate until Password is set.
func Default() *Config {
	return &Config{
		Port:           DefaultPort,
		AuthTimeout:    DefaultAuthTimeout,
		ConnectTimeout: DefaultConnectTimeout,
		ServerPort:     DefaultServerPort,
		DataPort:       DefaultDataPort,
		ControlPort:    DefaultControlPort,
		LogLevel:       DefaultLogLevel,
		level:          logging.LevelInfo,
	}
}

// Load reads the file at path, applies OPENELP_ environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := Default()
	if err := cfg.parse(string(content)); err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("environment override: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse reads configuration text and validates the result. Environment
// overrides are not applied.
func Parse(content string) (*Config, error) {
	cfg := Default()
	if err := cfg.parse(content); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) parse(content string) error {
	fc := fileConfig{Proxy: *c}
	if err := gcfg.ReadStringInto(&fc, "[proxy]\n"+content); err != nil {
		return filterGcfgError(err)
	}
	*c = fc.Proxy
	return nil
}

// filterGcfgError rewrites gcfg's messages for unknown keys.
func filterGcfgError(err error) error {
	const phrase = "can't store data at"
	if strings.Contains(err.Error(), phrase) {
		return errors.New(strings.Replace(err.Error(), phrase, "unsupported or misspelled key", 1))
	}
	return err
}

func validPort(name string, port, lowest int) error {
	if port < lowest || port > 65535 {
		return fmt.Errorf("%w: %s %d out of range", ErrInvalidValue, name, port)
	}
	return nil
}

func compilePattern(name, expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	re, err := regexp.Compile("^(?:" + expr + ")$")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadPattern, name, err)
	}
	return re, nil
}

func parseIPv4(name, value string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(value))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %s %q", ErrBadAddress, name, value)
	}
	addr = addr.Unmap()
	if !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("%w: %s %q is not IPv4", ErrBadAddress, name, value)
	}
	return addr, nil
}

// Validate checks every key and prepares the compiled callsign patterns and
// external address list used by Permits and ExternalAddresses.
func (c *Config) Validate() error {
	if c.Password == "" {
		return ErrMissingPassword
	}
	if len(c.Password) > limits.MaxPassword {
		return fmt.Errorf("%w: Password longer than %d bytes", ErrInvalidValue, limits.MaxPassword)
	}

	if err := validPort("Port", c.Port, 0); err != nil {
		return err
	}
	if err := validPort("ServerPort", c.ServerPort, 1); err != nil {
		return err
	}
	if err := validPort("DataPort", c.DataPort, 0); err != nil {
		return err
	}
	if err := validPort("ControlPort", c.ControlPort, 0); err != nil {
		return err
	}

	if err := validTimeout("AuthTimeout", c.AuthTimeout); err != nil {
		return err
	}
	if err := validTimeout("ConnectTimeout", c.ConnectTimeout); err != nil {
		return err
	}

	if c.BindAddress != "" {
		if _, err := netip.ParseAddr(c.BindAddress); err != nil {
			return fmt.Errorf("%w: BindAddress %q", ErrBadAddress, c.BindAddress)
		}
	}

	externals, err := c.parseExternals()
	if err != nil {
		return err
	}

	if c.MetricsAddress != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddress); err != nil {
			return fmt.Errorf("%w: MetricsAddress %q: %v", ErrBadAddress, c.MetricsAddress, err)
		}
	}

	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("%w: LogLevel: %v", ErrInvalidValue, err)
	}

	allowed, err := compilePattern("CallsignsAllowed", c.CallsignsAllowed)
	if err != nil {
		return err
	}
	denied, err := compilePattern("CallsignsDenied", c.CallsignsDenied)
	if err != nil {
		return err
	}

	c.allowed, c.denied = allowed, denied
	c.externals = externals
	c.level = level
	return nil
}

func (c *Config) parseExternals() ([]netip.Addr, error) {
	if c.ExternalBindAddress == "" {
		if strings.TrimSpace(c.AdditionalExternalBindAddresses) != "" {
			return nil, fmt.Errorf("%w: AdditionalExternalBindAddresses requires ExternalBindAddress", ErrBadAddress)
		}
		// One slot on whatever address the system routes from.
		return []netip.Addr{{}}, nil
	}

	primary, err := parseIPv4("ExternalBindAddress", c.ExternalBindAddress)
	if err != nil {
		return nil, err
	}

	externals := []netip.Addr{primary}
	seen := map[netip.Addr]bool{primary: true}
	for _, field := range strings.Split(c.AdditionalExternalBindAddresses, ",") {
		if strings.TrimSpace(field) == "" {
			continue
		}
		addr, err := parseIPv4("AdditionalExternalBindAddresses", field)
		if err != nil {
			return nil, err
		}
		if seen[addr] {
			return nil, fmt.Errorf("%w: duplicate external address %s", ErrBadAddress, addr)
		}
		seen[addr] = true
		externals = append(externals, addr)
	}

	return externals, nil
}

func validTimeout(name string, seconds int) error {
	if seconds < 1 || seconds > MaxTimeout {
		return fmt.Errorf("%w: %s %d outside 1..%d", ErrInvalidValue, name, seconds, MaxTimeout)
	}
	return nil
}

// Permits reports whether callsign may use the proxy. A callsign must match
// CallsignsAllowed when it is set and must not match CallsignsDenied.
// Patterns match the whole callsign. Validate must have succeeded.
func (c *Config) Permits(callsign string) bool {
	if c.allowed != nil && !c.allowed.MatchString(callsign) {
		return false
	}
	if c.denied != nil && c.denied.MatchString(callsign) {
		return false
	}
	return true
}

// ExternalAddresses returns one address per client slot. A single zero
// Addr means the slot binds without a specific source address.
func (c *Config) ExternalAddresses() []netip.Addr {
	out := make([]netip.Addr, len(c.externals))
	copy(out, c.externals)
	return out
}

// Level returns the parsed LogLevel. Validate must have succeeded.
func (c *Config) Level() logging.Level {
	return c.level
}

// AuthTimeoutDuration returns AuthTimeout as a time.Duration.
func (c *Config) AuthTimeoutDuration() time.Duration {
	return time.Duration(c.AuthTimeout) * time.Second
}

// ConnectTimeoutDuration returns ConnectTimeout as a time.Duration.
func (c *Config) ConnectTimeoutDuration() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Second
}

// ListenAddress returns the host:port the client listener binds.
func (c *Config) ListenAddress() string {
	return net.JoinHostPort(c.BindAddress, fmt.Sprint(c.Port))
}
