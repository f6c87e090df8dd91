package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/abczzz13/forwardedheaders"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// settingFlags maps persistent flags to viper keys. Keys match the
// mapstructure tags of forwardedheaders.Settings so Unmarshal picks them up.
var settingFlags = map[string]string{
	"log-level":               "log_level",
	"forwarded-headers":       "forwarded_headers",
	"forward-limit":           "forward_limit",
	"require-header-symmetry": "require_header_symmetry",
	"clear-known-proxies":     "clear_known_proxies",
	"known-proxies":           "known_proxies",
	"known-networks":          "known_networks",
	"allowed-hosts":           "allowed_hosts",
}

// headerNameDefaults registers the header-name keys so env overrides reach
// Unmarshal. They have no flags.
var headerNameDefaults = map[string]string{
	"forwarded_for_header_name":   forwardedheaders.DefaultForwardedForHeaderName,
	"forwarded_proto_header_name": forwardedheaders.DefaultForwardedProtoHeaderName,
	"forwarded_host_header_name":  forwardedheaders.DefaultForwardedHostHeaderName,
	"original_for_header_name":    forwardedheaders.DefaultOriginalForHeaderName,
	"original_proto_header_name":  forwardedheaders.DefaultOriginalProtoHeaderName,
	"original_host_header_name":   forwardedheaders.DefaultOriginalHostHeaderName,
}

// app carries the per-invocation viper instance.
type app struct {
	v *viper.Viper
}

// NewRootCmd creates the root fwdecho command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "fwdecho",
		Short:         "Echo the client identity resolved from forwarded headers",
		Long:          "fwdecho resolves X-Forwarded-For, X-Forwarded-Proto and X-Forwarded-Host through known proxies and echoes the result.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initViper(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "path to config file")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("forwarded-headers", "for,proto", "forwarded header families to honor (for, proto, host, all, none)")
	flags.Int("forward-limit", forwardedheaders.DefaultForwardLimit, "maximum hops to process, 0 for no limit")
	flags.Bool("require-header-symmetry", false, "discard all changes unless every honored header has a value per hop")
	flags.Bool("clear-known-proxies", false, "drop the loopback defaults before adding known proxies and networks")
	flags.StringSlice("known-proxies", nil, "trusted proxy addresses")
	flags.StringSlice("known-networks", nil, "trusted proxy networks in CIDR notation")
	flags.StringSlice("allowed-hosts", nil, "accepted forwarded hosts; *.example.com matches subdomains")

	root.AddCommand(
		a.newServeCmd(),
		a.newResolveCmd(),
	)

	return root
}

// initViper applies the standard precedence (flag > env > file > defaults).
func (a *app) initViper(cmd *cobra.Command) error {
	v := a.v

	v.SetEnvPrefix("FWDECHO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, name := range headerNameDefaults {
		v.SetDefault(key, name)
	}

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	}

	persistent := cmd.Root().PersistentFlags()
	for flag, key := range settingFlags {
		if err := v.BindPFlag(key, persistent.Lookup(flag)); err != nil {
			return fmt.Errorf("binding %s flag: %w", flag, err)
		}
	}

	return nil
}

// bindLocal binds command-local flags named in keys.
func (a *app) bindLocal(flags *pflag.FlagSet, keys map[string]string) error {
	for flag, key := range keys {
		if err := a.v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("binding %s flag: %w", flag, err)
		}
	}
	return nil
}

func (a *app) settings() (forwardedheaders.Settings, error) {
	var settings forwardedheaders.Settings
	if err := a.v.Unmarshal(&settings); err != nil {
		return forwardedheaders.Settings{}, fmt.Errorf("decoding settings: %w", err)
	}
	return settings, nil
}

func (a *app) logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.v.GetString("log_level"))); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// newResolver builds a resolver from the bound settings plus extra options.
func (a *app) newResolver(logger *slog.Logger, opts ...forwardedheaders.Option) (*forwardedheaders.Resolver, error) {
	settings, err := a.settings()
	if err != nil {
		return nil, err
	}

	opts = append([]forwardedheaders.Option{
		forwardedheaders.FromSettings(settings),
		forwardedheaders.WithLogger(logger),
	}, opts...)

	return forwardedheaders.New(opts...)
}
