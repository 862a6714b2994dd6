package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"alexa-climate-bridge/config"
	"alexa-climate-bridge/internal/alexa"
	"alexa-climate-bridge/internal/application"
	"alexa-climate-bridge/internal/infra/homeassistant"
	"alexa-climate-bridge/internal/infra/httpapi"
	"alexa-climate-bridge/internal/infra/influxdb"
	"alexa-climate-bridge/internal/infra/mqtt"
	"alexa-climate-bridge/internal/infra/pushover"
)

func main() {
	configPath := pflag.StringP("config", "c", "config.yaml", "path to config file")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	ha := homeassistant.NewClient(
		cfg.HomeAssistant.URL,
		cfg.HomeAssistant.Token,
		config.Duration(cfg.HomeAssistant.Timeout, 15*time.Second),
	)

	var publisher application.StatePublisher = &application.NoopPublisher{}
	var broker *mqtt.Client
	if cfg.MQTT.Enabled {
		broker, err = mqtt.Connect(cfg.MQTT, logger)
		if err != nil {
			logger.Error("connecting to mqtt broker", "error", err, "broker", cfg.MQTT.Broker)
			os.Exit(1)
		}
		defer broker.Close()
		publisher = mqtt.NewStatePublisher(broker, broker.Prefix())
	}

	var observer application.DirectiveObserver = &application.NoopObserver{}
	recorder, err := influxdb.Connect(cfg.InfluxDB, logger)
	switch {
	case err == nil:
		defer recorder.Close()
		observer = recorder
	case errors.Is(err, influxdb.ErrDisabled):
	default:
		logger.Warn("influxdb unavailable, directive history disabled", "error", err)
	}

	builder := alexa.NewBuilder(alexa.DeviceInfo{
		Manufacturer: cfg.Alexa.Manufacturer,
		Description:  cfg.Alexa.Description,
	})

	dispatcher := application.NewDispatcher(
		ha,
		builder,
		application.ClimateSettings{
			Entities:              cfg.Alexa.Entities,
			DefaultModeForOn:      cfg.Alexa.DefaultModeForOn,
			Scale:                 cfg.Alexa.Scale,
			RefetchAfterCommand:   cfg.Alexa.RefetchAfterCommand,
			SetTemperatureService: cfg.Alexa.SetTemperatureService,
			SetModeService:        cfg.Alexa.SetModeService,
			ModeField:             cfg.Alexa.ModeField,
		},
		publisher,
		observer,
		logger,
	)

	var rateLimiter *httpapi.RateLimiter
	if cfg.HTTP.RateLimit > 0 {
		rateLimiter = httpapi.NewRateLimiter(cfg.HTTP.RateLimit, config.Duration(cfg.HTTP.RateWindow, time.Minute))
	}

	server := httpapi.NewServer(cfg.HTTP.Addr, dispatcher, rateLimiter, logger)
	server.AddHealthCheck("home_assistant", ha.HealthCheck)
	if broker != nil {
		server.AddHealthCheck("mqtt", broker.HealthCheck)
	}
	if recorder != nil {
		server.AddHealthCheck("influxdb", recorder.HealthCheck)
	}

	if err := startAutomations(ctx, cfg, ha, broker, logger); err != nil {
		logger.Error("starting automations", "error", err)
		os.Exit(1)
	}

	if err := server.Start(ctx); err != nil {
		logger.Error("starting http server", "error", err)
		os.Exit(1)
	}

	logger.Info("alexa climate bridge running",
		"addr", cfg.HTTP.Addr,
		"entities", len(cfg.Alexa.Entities),
		"scale", cfg.Alexa.Scale,
		"mqtt", cfg.MQTT.Enabled,
		"influxdb", recorder != nil,
	)

	<-ctx.Done()

	if err := server.Stop(); err != nil {
		logger.Error("stopping http server", "error", err)
	}
}

func startAutomations(ctx context.Context, cfg *config.Config, ha *homeassistant.Client, broker *mqtt.Client, logger *slog.Logger) error {
	autos := cfg.Automations

	if len(autos.BatteryLow) > 0 || len(autos.SensorSwitches) > 0 {
		watcher := application.NewStateWatcher(ha, logger)

		var fallback application.Notifier = &application.NoopNotifier{}
		if cfg.Pushover.Enabled {
			fallback = pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey)
		}

		for _, b := range autos.BatteryLow {
			notifier := fallback
			if b.NotifyService != "" {
				notifier = homeassistant.NewNotifier(ha, b.NotifyService)
			}
			watcher.Subscribe(&application.BatteryLowAlert{
				SensorEntity: b.SensorEntity,
				DeviceName:   b.DeviceName,
				Threshold:    b.ThresholdPercent,
				Notifier:     notifier,
			})
		}

		for _, s := range autos.SensorSwitches {
			watcher.Subscribe(&application.SensorSwitches{
				SensorEntity:      s.SensorEntity,
				SwitchEntities:    s.SwitchEntities,
				TurnOnWhenOpened:  s.TurnOnClosedToOpen,
				TurnOffWhenClosed: s.TurnOffOpenToClosed,
				Backend:           ha,
			})
		}

		watcher.Start(ctx, config.Duration(autos.PollInterval, 30*time.Second))
	}

	if broker == nil {
		return nil
	}

	var handlers []application.MessageHandler
	for _, m := range autos.MQTTServiceCalls {
		handlers = append(handlers, &application.MessageServiceCall{
			MessageTopic: m.Topic,
			Payload:      m.Payload,
			Service:      m.Service,
			Data:         m.Data,
			Backend:      ha,
		})
	}
	for _, w := range autos.WallPanels {
		handlers = append(handlers, &application.WallPanelBattery{
			SensorEntity: w.SensorEntity,
			SensorTopic:  w.SensorTopic,
			Backend:      ha,
		})
	}

	return application.SubscribeMessages(ctx, broker, byte(cfg.MQTT.QoS), handlers...)
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
