package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/Travis-Britz/cfddns"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// errInvalidConfig is returned after configuration problems were already reported to the user.
var errInvalidConfig = errors.New("invalid configuration")

// setting ties a configuration key to its environment variable and flag.
// Keys are the lower case environment variable names so that env files can use the same names.
type setting struct {
	key  string
	flag string
}

func (s setting) env() string { return strings.ToUpper(s.key) }

var (
	settingToken         = setting{"cf_api_token", "cf-api-token"}
	settingTokenFile     = setting{"cf_api_token_file", "cf-api-token-file"}
	settingZoneID        = setting{"cf_zone_id", "cf-zone-id"}
	settingRecordName    = setting{"dns_record_name", "dns-record-name"}
	settingRecordType    = setting{"dns_record_type", "dns-record-type"}
	settingProxy         = setting{"proxy", "proxy"}
	settingTTL           = setting{"ttl", "ttl"}
	settingInterval      = setting{"update_interval", "update-interval"}
	settingNetwork       = setting{"network", "network"}
	settingPlatformID    = setting{"platform_identifier", "platform-identifier"}
	settingRecordComment = setting{"record_comment", "record-comment"}
)

var settings = []setting{
	settingToken,
	settingTokenFile,
	settingZoneID,
	settingRecordName,
	settingRecordType,
	settingProxy,
	settingTTL,
	settingInterval,
	settingNetwork,
	settingPlatformID,
	settingRecordComment,
}

// addConfigFlags registers one flag per setting.
// Flag defaults are only shown in --help; the effective defaults are set on viper in loadConfig.
func addConfigFlags(flags *pflag.FlagSet) {
	flags.String(settingToken.flag, "", "Cloudflare API token")
	flags.String(settingTokenFile.flag, "", "Path to a file holding the Cloudflare API token (see the setup command)")
	flags.String(settingZoneID.flag, "", "Cloudflare zone ID")
	flags.String(settingRecordName.flag, "", "DNS record name (multiple domains separated by commas)")
	flags.String(settingRecordType.flag, "A", "DNS record type: A or AAAA")
	flags.Bool(settingProxy.flag, false, "Enable Cloudflare proxy")
	flags.Int(settingTTL.flag, cfddns.DefaultTTL, "TTL in seconds")
	flags.Int(settingInterval.flag, int(cfddns.DefaultInterval/time.Second), "Update interval in seconds")
	flags.String(settingNetwork.flag, "", "Network identifier shown in the startup summary")
	flags.String(settingPlatformID.flag, "", "Host identifier shown in the startup summary (defaults to the host name)")
	flags.String(settingRecordComment.flag, cfddns.DefaultComment, "Comment attached to records created by ddnscf")
}

// loadConfig merges, from lowest to highest precedence:
// built-in defaults, the env file, the process environment and flags.
//
// envFile is optional unless required is set.
func loadConfig(v *viper.Viper, flags *pflag.FlagSet, envFile string, required bool, hostID string) (cfddns.Config, error) {
	v.SetDefault(settingRecordType.key, string(cfddns.TypeA))
	v.SetDefault(settingProxy.key, false)
	v.SetDefault(settingTTL.key, cfddns.DefaultTTL)
	v.SetDefault(settingInterval.key, int(cfddns.DefaultInterval/time.Second))
	v.SetDefault(settingPlatformID.key, hostID)
	v.SetDefault(settingRecordComment.key, cfddns.DefaultComment)

	for _, s := range settings {
		if err := v.BindEnv(s.key, s.env()); err != nil {
			return cfddns.Config{}, err
		}
		if f := flags.Lookup(s.flag); f != nil {
			if err := v.BindPFlag(s.key, f); err != nil {
				return cfddns.Config{}, err
			}
		}
	}

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			if required || !errors.Is(err, fs.ErrNotExist) {
				return cfddns.Config{}, fmt.Errorf("error reading env file \"%s\": %w", envFile, err)
			}
		}
	}

	cfg := cfddns.Config{
		APIToken:           strings.TrimSpace(v.GetString(settingToken.key)),
		ZoneID:             strings.TrimSpace(v.GetString(settingZoneID.key)),
		Domains:            cfddns.ParseDomains(v.GetString(settingRecordName.key)),
		PlatformIdentifier: v.GetString(settingPlatformID.key),
		Network:            v.GetString(settingNetwork.key),
		Comment:            v.GetString(settingRecordComment.key),
	}

	if cfg.APIToken == "" {
		if path := v.GetString(settingTokenFile.key); path != "" {
			key, err := readKey(path)
			if err != nil {
				return cfddns.Config{}, &cfddns.ConfigError{Field: settingTokenFile.env(), Reason: err.Error()}
			}
			cfg.APIToken = key
		}
	}

	var err error
	if cfg.RecordType, err = cfddns.ParseRecordType(v.GetString(settingRecordType.key)); err != nil {
		return cfddns.Config{}, &cfddns.ConfigError{Field: settingRecordType.env(), Reason: err.Error()}
	}
	if cfg.Proxied, err = cast.ToBoolE(v.Get(settingProxy.key)); err != nil {
		return cfddns.Config{}, &cfddns.ConfigError{Field: settingProxy.env(), Reason: "must be true or false"}
	}
	if cfg.TTL, err = cast.ToIntE(v.Get(settingTTL.key)); err != nil {
		return cfddns.Config{}, &cfddns.ConfigError{Field: settingTTL.env(), Reason: "must be a whole number of seconds"}
	}
	interval, err := cast.ToIntE(v.Get(settingInterval.key))
	if err != nil || interval < 1 {
		return cfddns.Config{}, &cfddns.ConfigError{Field: settingInterval.env(), Reason: "must be a positive whole number of seconds"}
	}
	cfg.Interval = time.Duration(interval) * time.Second

	return cfg, nil
}

func printConfigHelp(w io.Writer, title string, err error) {
	fmt.Fprintf(w, "❌ %s: %s\n", title, err)
	fmt.Fprintln(w, "💡 Configuration sources (later sources win):")
	fmt.Fprintln(w, "   - .env file, or the file named by ENV_FILE / --env-file (optional)")
	fmt.Fprintln(w, "   - Environment variables")
	fmt.Fprintln(w, "   - Command line arguments")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "🔧 Required variables:")
	fmt.Fprintln(w, "   - CF_API_TOKEN: Cloudflare API token (or CF_API_TOKEN_FILE)")
	fmt.Fprintln(w, "   - CF_ZONE_ID: Cloudflare zone ID")
	fmt.Fprintln(w, "   - DNS_RECORD_NAME: Domain name(s) separated by commas")
}

// configView is the printable form of a Config. The token is never shown.
type configView struct {
	APIToken           string   `yaml:"cf_api_token"`
	ZoneID             string   `yaml:"cf_zone_id"`
	Domains            []string `yaml:"dns_record_name"`
	RecordType         string   `yaml:"dns_record_type"`
	Proxied            bool     `yaml:"proxy"`
	TTL                int      `yaml:"ttl"`
	Interval           int      `yaml:"update_interval"`
	Network            string   `yaml:"network,omitempty"`
	PlatformIdentifier string   `yaml:"platform_identifier"`
	Comment            string   `yaml:"record_comment"`
}

func writeConfig(w io.Writer, cfg cfddns.Config) error {
	view := configView{
		APIToken:           "<redacted>",
		ZoneID:             cfg.ZoneID,
		Domains:            cfg.Domains,
		RecordType:         cfg.RecordType.String(),
		Proxied:            cfg.Proxied,
		TTL:                cfg.TTL,
		Interval:           int(cfg.Interval / time.Second),
		Network:            cfg.Network,
		PlatformIdentifier: cfg.PlatformIdentifier,
		Comment:            cfg.Comment,
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(view); err != nil {
		return fmt.Errorf("error encoding configuration: %w", err)
	}
	return enc.Close()
}

// envFileFromEnvironment returns the env file to load and whether it must exist.
// Only a file named on the command line is required.
func envFileFromEnvironment(flagValue string) (path string, required bool) {
	if flagValue != "" {
		return flagValue, true
	}
	if p := os.Getenv("ENV_FILE"); p != "" {
		return p, false
	}
	return ".env", false
}
