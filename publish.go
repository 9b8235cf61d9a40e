package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/eclipse/paho.mqtt.golang"
	"github.com/matt-g-everett/ansitx/stream"
	"github.com/spf13/cobra"
	"pkt.systems/pslog"
)

func newPublishCmd(a *app) *cobra.Command {
	var opts stream.Options
	var noColour bool
	cmd := &cobra.Command{
		Use:   "publish <name>",
		Short: "Publish an animation to MQTT until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.NoColour = noColour
			return a.publish(cmd.Context(), args[0], opts)
		},
	}
	cmd.Flags().Float64Var(&opts.Delay, "delay", 0, "Seconds between frames (0 uses default_delay).")
	cmd.Flags().StringVar(&opts.Banner, "banner", "", "Banner kind: block, big or ticker.")
	cmd.Flags().BoolVar(&noColour, "no-color", false, "Publish frames without colour escapes.")
	return cmd
}

func (a *app) mqttOptions(onConnect mqtt.OnConnectHandler) (*mqtt.ClientOptions, error) {
	if a.Config.Mqtt.URL == "" {
		return nil, errors.New("mqtt.url is required to publish")
	}
	return mqtt.NewClientOptions().
		AddBroker(a.Config.Mqtt.URL).
		SetClientID(a.Config.Mqtt.ClientID).
		SetUsername(a.Config.Mqtt.Username).
		SetPassword(a.Config.Mqtt.Password).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetOnConnectHandler(onConnect), nil
}

func (a *app) publish(ctx context.Context, name string, opts stream.Options) error {
	if opts.Delay < 0 || opts.Delay > stream.MaxDelay {
		return errors.New("delay must be in (0, 1]")
	}
	logger := pslog.Ctx(ctx).With("animation", name, "transport", "mqtt")
	mqtt.ERROR = log.New(pslog.LogLogger(logger).Writer(), "", 0)

	options, err := a.mqttOptions(func(client mqtt.Client) {
		logger.Info("mqtt connected", "broker", a.Config.Mqtt.URL)
	})
	if err != nil {
		return err
	}
	client := mqtt.NewClient(options)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)

	ctx = pslog.ContextWithLogger(ctx, logger)
	streamer, err := a.Controller.Open(ctx, name, opts)
	if err != nil {
		return err
	}
	publisher := stream.NewPublisher(client, stream.StreamTopic(a.Config.Mqtt.Topics.Stream, name), a.Config.Mqtt.QoS)
	logger.Info("publishing animation", "topic", publisher.Topic(), "session", streamer.ID)
	err = streamer.Run(ctx, publisher)
	logger.Info("publishing stopped", "cycles", streamer.Cycles())
	return err
}
