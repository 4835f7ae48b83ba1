package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	adactor "saj2mqtt/internal/adapter/actor"
	"saj2mqtt/internal/config"
	"saj2mqtt/internal/core/actor"
	"saj2mqtt/internal/server"
	"saj2mqtt/internal/util/actorutil"
	"saj2mqtt/pkg/saj_mqtt"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if !cfg.LogAsJson {
		zapCfg.Encoding = "console"
	}
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	// init inverter actor provider
	inverterProv, err := inverterActorProvider(cfg, logger)
	if err != nil {
		panic(err)
	}

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, inverterProv, mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, "master")
	if err != nil {
		return
	}

	server := server.NewServer(*cfg, ctx, pid)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => SAJ2MQTT_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("SAJ2MQTT_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("saj2mqtt")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// the serial number is required, it derives the device link topics
	serial, err := config.CheckSerialNumber(cfg.Inverter.SerialNumber)
	if err != nil {
		return nil, err
	}
	cfg.Inverter.SerialNumber = serial

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// check bounds
	if cfg.Inverter.RequestTimeoutMillis < 1000 {
		return nil, errors.New("config param inverter.request_timeout_millis should be >= 1000")
	}

	// parse and validate dataset cadences
	plan, err := cfg.Poll.Parse()
	if err != nil {
		return nil, err
	}
	cfg.PollPlan = plan

	return &cfg, nil
}

func inverterActorProvider(cfg *config.Config, logger *zap.Logger) (actor.InverterActorProvider, error) {

	brokerURL := fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Host, cfg.MQTT.Port)
	transport := saj_mqtt.CreateMQTTTransport(brokerURL, cfg.MQTT.Username, cfg.MQTT.Password, logger)

	inv, err := saj_mqtt.CreateMQTTInverterClient(transport, cfg.Inverter.SerialNumber,
		cfg.Inverter.RequestTimeout(), int(cfg.Inverter.RequestRetries), logger, nil)
	if err != nil {
		return nil, err
	}

	return func() *adactor.InverterActor {
		return adactor.NewInverterActor(inv, cfg, logger)
	}, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func() *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("inverter.request_timeout_millis", 10000)
	viper.SetDefault("inverter.request_retries", 2)
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "saj2mqtt")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("poll.realtime", "1m")
	viper.SetDefault("poll.inverter_info", "startup")
	viper.SetDefault("poll.battery_info", "startup")
	viper.SetDefault("poll.battery_controller", "1m")
	viper.SetDefault("poll.config", "5m")
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
