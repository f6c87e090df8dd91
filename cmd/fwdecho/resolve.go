package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (a *app) newResolveCmd() *cobra.Command {
	var (
		remoteAddr string
		scheme     string
		host       string
		headers    []string
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a single request offline and print the result as YAML",
		Example: `  fwdecho resolve --known-networks 10.0.0.0/8 --remote-addr 10.0.0.1:4000 \
    -H "X-Forwarded-For: 203.0.113.5"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			header, err := parseHeaderFlags(headers)
			if err != nil {
				return err
			}

			logger, err := a.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			resolver, err := a.newResolver(logger)
			if err != nil {
				return err
			}

			req := &http.Request{
				Method:     http.MethodGet,
				URL:        &url.URL{Scheme: scheme, Path: "/"},
				Header:     header,
				Host:       host,
				RemoteAddr: remoteAddr,
			}
			req = req.WithContext(cmd.Context())

			result := resolver.Apply(req)

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			if err := enc.Encode(newEchoResponse(req, result, a.headerNames())); err != nil {
				return fmt.Errorf("encoding result: %w", err)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&remoteAddr, "remote-addr", "", "transport peer as ip:port")
	flags.StringVar(&scheme, "scheme", "http", "request scheme")
	flags.StringVar(&host, "host", "localhost", "request host")
	flags.StringArrayVarP(&headers, "header", "H", nil, `request header as "Name: value", repeatable`)

	return cmd
}

func parseHeaderFlags(raw []string) (http.Header, error) {
	header := make(http.Header, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q, expected \"Name: value\"", h)
		}
		header.Add(name, strings.TrimSpace(value))
	}
	return header, nil
}
