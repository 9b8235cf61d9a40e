package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/matt-g-everett/ansitx/markup"
	"github.com/matt-g-everett/ansitx/stream"
	"github.com/spf13/cobra"
	"pkt.systems/psi"
	"pkt.systems/pslog"
)

type app struct {
	Config     stream.Config
	Store      *stream.FrameStore
	Controller *stream.Controller
}

func newApp() *app {
	a := new(app)
	return a
}

func (a *app) readConfig(configPath string) error {
	cfg, err := stream.LoadConfig(configPath)
	if err != nil {
		return err
	}
	a.Config = cfg
	a.Store = stream.NewFrameStore(cfg.CacheSize)
	a.Controller = stream.NewController(cfg, a.Store, stream.Renderer{
		Colour: markup.TrueColor(),
		Plain:  markup.Plain(),
		Tint:   markup.Tint,
	})
	return nil
}

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	root := newRootCmd()
	root.SetArgs(os.Args[1:])
	if err := root.ExecuteContext(ctx); err != nil {
		pslog.Ctx(ctx).With("err", err).Error("ansitx command failed")
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var configPath string
	a := newApp()
	root := &cobra.Command{
		Use:           "ansitx",
		Short:         "Stream looping text-art animations to terminals",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.readConfig(configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "YAML config file.")

	root.AddCommand(newServeCmd(a))
	root.AddCommand(newPublishCmd(a))
	root.AddCommand(newListCmd(a))
	root.AddCommand(newCheckCmd(a))
	return root
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the registered animation names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range a.Controller.Names() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load every animation and report frame errors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Controller.Check(cmd.Context()); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%d animations ok\n", len(a.Controller.Names()))
			return err
		},
	}
}
