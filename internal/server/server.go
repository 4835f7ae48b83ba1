package server

import (
	"fmt"
	"net/http"
	"time"

	adactor "saj2mqtt/internal/adapter/actor"
	"saj2mqtt/internal/config"
	"saj2mqtt/internal/core/port"
	"saj2mqtt/internal/core/service"

	"github.com/asynkron/protoactor-go/actor"
	_ "github.com/joho/godotenv/autoload"
)

type Server struct {
	port        uint
	httpLog     bool
	rootContext *actor.RootContext
	masterActor *actor.PID
	parser      port.CommandParser
	// commandTimeout bounds the wait for a device round trip issued over HTTP
	commandTimeout time.Duration
}

func NewServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID) *http.Server {
	NewServer := &Server{
		port:           cfg.Port,
		rootContext:    rootContext,
		masterActor:    masterActor,
		httpLog:        cfg.HttpLog,
		parser:         &service.DefaultCommandParser{},
		commandTimeout: adactor.DeviceOpTimeout(&cfg.Inverter) + 5*time.Second,
	}

	// Declare Server config
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", NewServer.port),
		Handler:      NewServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}
