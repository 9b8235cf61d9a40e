package main

import (
	"context"
	"errors"

	"github.com/matt-g-everett/ansitx/api"
	"github.com/matt-g-everett/ansitx/sshserver"
	"github.com/spf13/cobra"
	"pkt.systems/pslog"
)

func newServeCmd(a *app) *cobra.Command {
	var httpAddr string
	var sshAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve animations over HTTP and SSH",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if httpAddr != "" {
				a.Config.HTTP.Addr = httpAddr
			}
			if sshAddr != "" {
				a.Config.SSH.Addr = sshAddr
				a.Config.ApplyDefaults()
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "HTTP listen address (overrides http.addr).")
	cmd.Flags().StringVar(&sshAddr, "ssh", "", "SSH listen address (overrides ssh.addr).")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	logger := pslog.Ctx(ctx)
	a.Controller.Warm(ctx)
	logger.Info("frame cache warmed", "animations", len(a.Controller.Names()), "cached", a.Store.Len())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	servers := []func(context.Context) error{
		func(ctx context.Context) error {
			return api.NewApi(a.Controller).Serve(ctx, a.Config.HTTP.Addr)
		},
	}
	if a.Config.SSH.Addr != "" {
		ssh := &sshserver.Server{
			Addr:        a.Config.SSH.Addr,
			HostKeyPath: a.Config.SSH.HostKeyPath,
			Opener:      a.Controller,
		}
		servers = append(servers, ssh.ListenAndServe)
	}

	errCh := make(chan error, len(servers))
	for _, serve := range servers {
		go func(serve func(context.Context) error) {
			errCh <- serve(ctx)
		}(serve)
	}

	var errs []error
	for range servers {
		if err := <-errCh; err != nil {
			errs = append(errs, err)
			cancel()
		}
	}
	logger.Info("servers stopped")
	return errors.Join(errs...)
}
