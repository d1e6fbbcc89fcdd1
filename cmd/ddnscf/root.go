package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Travis-Britz/cfddns"
	"github.com/Travis-Britz/cfddns/internal/platform"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type options struct {
	envFile      string
	once         bool
	showPlatform bool
	showConfig   bool
	verbose      bool
	noColor      bool
	ip           string
	iface        string
	ipServices   []string
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "ddnscf",
		Short:         "Cross-platform Cloudflare DDNS client",
		Long:          "ddnscf keeps one or more Cloudflare DNS records pointed at this host's public IP address.",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd, v, opts)
		},
	}

	flags := cmd.Flags()
	addConfigFlags(flags)
	flags.StringVar(&opts.envFile, "env-file", "", "Path to an env file (default .env, or $ENV_FILE)")
	flags.BoolVar(&opts.once, "once", false, "Run a single update and exit")
	flags.BoolVar(&opts.showPlatform, "show-platform", false, "Show platform information and exit")
	flags.BoolVar(&opts.showConfig, "show-config", false, "Print the effective configuration and exit")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log diagnostics to stderr")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	flags.StringVar(&opts.ip, "ip", "", "Use this IP address instead of looking it up")
	flags.StringVar(&opts.iface, "interface", "", "Use the first global address of this network interface")
	flags.StringSliceVar(&opts.ipServices, "ip-service", nil, "IP lookup service URL, may be repeated (http, https or dns://server/name)")
	cmd.MarkFlagsMutuallyExclusive("ip", "interface", "ip-service")

	cmd.AddCommand(newSetupCmd())
	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, v *viper.Viper, opts *options) error {
	if opts.noColor {
		color.NoColor = true
	}
	out := cmd.OutOrStdout()

	if opts.showPlatform {
		printPlatform(out, platform.Current())
		return nil
	}

	envFile, required := envFileFromEnvironment(opts.envFile)
	cfg, err := loadConfig(v, cmd.Flags(), envFile, required, platform.Identifier(platform.Host, platform.Fallback))
	if err != nil {
		printConfigHelp(cmd.ErrOrStderr(), "Failed to load configuration", err)
		return errInvalidConfig
	}
	if err := cfg.Validate(); err != nil {
		printConfigHelp(cmd.ErrOrStderr(), "Configuration validation failed", err)
		return errInvalidConfig
	}

	if opts.showConfig {
		return writeConfig(out, cfg)
	}

	console := cfddns.NewConsole(out)
	printSummary(console, cfg)

	resolver, err := newResolver(opts)
	if err != nil {
		return err
	}

	logger := log.New(io.Discard, "", 0)
	if opts.verbose {
		logger = log.New(cmd.ErrOrStderr(), "ddnscf: ", log.LstdFlags)
	}

	client, err := cfddns.New(cfg,
		cfddns.UsingCloudflare(),
		cfddns.UsingResolver(resolver),
		cfddns.WithConsole(console),
		cfddns.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	err = cfddns.RunDaemon(ctx, client, cfg.Interval, opts.once, console)
	if errors.Is(err, context.Canceled) {
		console.Info("Shutting down")
		return nil
	}
	return err
}

// newResolver picks the address source from the command line.
// A nil Resolver selects the built-in web services.
func newResolver(opts *options) (cfddns.Resolver, error) {
	switch {
	case opts.ip != "":
		return cfddns.FromString(opts.ip), nil
	case opts.iface != "":
		return cfddns.InterfaceResolver(opts.iface), nil
	case len(opts.ipServices) > 0:
		r, err := cfddns.NewWebResolver(opts.ipServices, opts.ipServices)
		if err != nil {
			return nil, fmt.Errorf("invalid --ip-service: %w", err)
		}
		return r, nil
	}
	return nil, nil
}

func printPlatform(w io.Writer, info platform.Info) {
	fmt.Fprintf(w, "Platform: %s\n", info)
	fmt.Fprintf(w, "OS: %s\n", info.OS)
	fmt.Fprintf(w, "Architecture: %s\n", info.Arch)
	fmt.Fprintf(w, "Family: %s\n", info.Family)
}

func printSummary(console *cfddns.Console, cfg cfddns.Config) {
	console.Section("Configuration")
	console.Info("Platform: %s", platform.Current())
	console.Info("Zone ID: %s", cfg.ZoneID)
	console.Info("Record type: %s", cfg.RecordType)
	console.Info("Proxy enabled: %t", cfg.Proxied)
	console.Info("TTL: %d", cfg.TTL)
	console.Info("Update interval: %s", cfg.Interval.Round(time.Second))
	console.Info("Host identifier: %s", cfg.PlatformIdentifier)
	if cfg.Network != "" {
		console.Info("Network: %s", cfg.Network)
	}
	console.Info("Monitoring %d domain(s): %v", len(cfg.Domains), cfg.Domains)
}
