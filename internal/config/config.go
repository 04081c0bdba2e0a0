// Package config loads runtime settings from defaults, the environment and
// command-line flags.
package config

import (
	"net"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every setting's environment variable.
const EnvPrefix = "OUTGROWTH"

// Setting keys. Flags registered with RegisterFlags use the same names.
const (
	KeySSHHost     = "ssh-host"
	KeySSHPort     = "ssh-port"
	KeyHostKey     = "host-key"
	KeyWebHost     = "web-host"
	KeyWebPort     = "web-port"
	KeyDisplayHost = "display-host"
	KeyMetricsAddr = "metrics-addr"
	KeyLogLevel    = "log-level"
	KeyLogFormat   = "log-format"
	KeySeed        = "seed"
	KeyCorridors   = "corridors"
	KeyMaxDepth    = "max-depth"
)

// Settings are the resolved runtime options.
type Settings struct {
	SSHHost     string
	SSHPort     string
	HostKeyPath string
	WebHost     string
	WebPort     string
	DisplayHost string // Host shown on the landing page
	MetricsAddr string // Empty disables the metrics endpoint
	LogLevel    string
	LogFormat   string
	Seed        int64 // 0 picks a random seed
	Corridors   bool
	MaxDepth    int // 0 leaves branch depth unlimited
}

// SSHAddr returns the SSH listen address.
func (s Settings) SSHAddr() string {
	return net.JoinHostPort(s.SSHHost, s.SSHPort)
}

// WebAddr returns the landing page listen address.
func (s Settings) WebAddr() string {
	return net.JoinHostPort(s.WebHost, s.WebPort)
}

var defaults = map[string]any{
	KeySSHHost:     "::",
	KeySSHPort:     "2222",
	KeyHostKey:     "/app/keys/host_key",
	KeyWebHost:     "0.0.0.0",
	KeyWebPort:     "8080",
	KeyDisplayHost: "your-server.com",
	KeyMetricsAddr: "",
	KeyLogLevel:    "info",
	KeyLogFormat:   "text",
	KeySeed:        int64(0),
	KeyCorridors:   false,
	KeyMaxDepth:    0,
}

// Unprefixed variable names accepted for deployments that predate the
// prefix.
var aliases = map[string]string{
	KeySSHHost:     "SSH_HOST",
	KeySSHPort:     "SSH_PORT",
	KeyHostKey:     "SSH_HOST_KEY",
	KeyWebHost:     "WEB_HOST",
	KeyWebPort:     "WEB_PORT",
	KeyDisplayHost: "SSH_DISPLAY_HOST",
	KeyMetricsAddr: "METRICS_ADDR",
}

// RegisterFlags adds every setting as a flag on flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String(KeySSHHost, defaults[KeySSHHost].(string), "SSH listen host")
	flags.String(KeySSHPort, defaults[KeySSHPort].(string), "SSH listen port")
	flags.String(KeyHostKey, defaults[KeyHostKey].(string), "SSH host key path (empty generates one)")
	flags.String(KeyWebHost, defaults[KeyWebHost].(string), "landing page listen host")
	flags.String(KeyWebPort, defaults[KeyWebPort].(string), "landing page listen port")
	flags.String(KeyDisplayHost, defaults[KeyDisplayHost].(string), "SSH host shown on the landing page")
	flags.String(KeyMetricsAddr, "", "address for the Prometheus endpoint (empty disables it)")
	RegisterGameFlags(flags)
}

// RegisterGameFlags adds only the settings a local game uses.
func RegisterGameFlags(flags *pflag.FlagSet) {
	flags.String(KeyLogLevel, defaults[KeyLogLevel].(string), "log level: debug, info, warn, error")
	flags.String(KeyLogFormat, defaults[KeyLogFormat].(string), "log format: text, logfmt, json")
	flags.Int64(KeySeed, 0, "random seed for the starting map (0 is random)")
	flags.Bool(KeyCorridors, false, "keep branches from touching: cells next to two grown cells never become growable")
	flags.Int(KeyMaxDepth, 0, "longest branch, in cells from the base (0 is unlimited)")
}

// Load resolves settings. Precedence is flags that were set, then
// OUTGROWTH_* variables, then the unprefixed aliases, then defaults. flags
// may be nil.
func Load(flags *pflag.FlagSet) (Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	for key, val := range defaults {
		v.SetDefault(key, val)
		names := []string{key, EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))}
		if alias, ok := aliases[key]; ok {
			names = append(names, alias)
		}
		if err := v.BindEnv(names...); err != nil {
			return Settings{}, errors.Wrapf(err, "config: bind env for %s", key)
		}
	}
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Settings{}, errors.Wrap(err, "config: bind flags")
		}
	}

	s := Settings{
		SSHHost:     v.GetString(KeySSHHost),
		SSHPort:     v.GetString(KeySSHPort),
		HostKeyPath: v.GetString(KeyHostKey),
		WebHost:     v.GetString(KeyWebHost),
		WebPort:     v.GetString(KeyWebPort),
		DisplayHost: v.GetString(KeyDisplayHost),
		MetricsAddr: v.GetString(KeyMetricsAddr),
		LogLevel:    strings.ToLower(v.GetString(KeyLogLevel)),
		LogFormat:   strings.ToLower(v.GetString(KeyLogFormat)),
		Seed:        v.GetInt64(KeySeed),
		Corridors:   v.GetBool(KeyCorridors),
		MaxDepth:    v.GetInt(KeyMaxDepth),
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks ports, limits and enumerations.
func (s Settings) Validate() error {
	for name, port := range map[string]string{KeySSHPort: s.SSHPort, KeyWebPort: s.WebPort} {
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return errors.Newf("config: %s %q is not a valid port", name, port)
		}
	}
	if s.MaxDepth < 0 {
		return errors.Newf("config: %s %d is negative", KeyMaxDepth, s.MaxDepth)
	}
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.Newf("config: unknown log level %q", s.LogLevel)
	}
	switch s.LogFormat {
	case "text", "logfmt", "json":
	default:
		return errors.Newf("config: unknown log format %q", s.LogFormat)
	}
	return nil
}
