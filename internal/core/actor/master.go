package actor

import (
	"errors"
	"fmt"
	"log"
	"time"

	adactor "saj2mqtt/internal/adapter/actor"
	"saj2mqtt/internal/config"
	"saj2mqtt/internal/core/domain"
	"saj2mqtt/internal/core/port"
	"saj2mqtt/internal/core/service"
	. "saj2mqtt/internal/util/actorutil"
	"saj2mqtt/pkg/saj_mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

type MQTTActorProvider func() *adactor.MQTTActor

type InverterActorProvider func() *adactor.InverterActor

// MasterOfPuppetsActor supervises the actor tree and routes commands.
// MQTT commands are parsed here and requested on behalf of the bridge,
// so their responses come back to the master. HTTP commands pass
// through with the caller kept as reply target.
type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck    healthCheckResult
	inverterActor         *actor.PID
	mqttActor             *actor.PID
	pollerActor           *actor.PID
	inverterActorProvider InverterActorProvider
	mqttActorProvider     MQTTActorProvider
	commandParser         port.CommandParser
	logger                *zap.Logger
	// baseLogger is handed to children, which scope it themselves
	baseLogger *zap.Logger
}

type healthCheckResult struct {
	inverterActorHealthy bool
	mqttActorHealthy     bool
	pollerActorHealthy   bool
	checksReceived       int
	respondTo            *actor.PID
}

func NewMasterOfPuppetsActor(config config.Config, inverterActorProvider InverterActorProvider, mqttActorProvider MQTTActorProvider, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:                config,
		behavior:              actor.NewBehavior(),
		stash:                 &Stash{},
		logger:                ActorLogger(domain.ACTOR_ID_MASTER, logger),
		baseLogger:            logger,
		inverterActorProvider: inverterActorProvider,
		mqttActorProvider:     mqttActorProvider,
		commandParser:         &service.DefaultCommandParser{Logger: logger},
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		state.currentHealthCheck = healthCheckResult{}
		state.currentHealthCheck.reset()

		// start inverter child
		inverterActorPID, err := state.startInverterActor(ctx)
		if err != nil {
			panic(err)
		}
		state.inverterActor = inverterActorPID

		// start MQTT child
		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		// start poller child
		pollerActorPID, err := state.startPollerActor(ctx)
		if err != nil {
			panic(err)
		}
		state.pollerActor = pollerActorPID

		// start HA Discovery
		if state.config.MQTT.HADiscoveryEnable {
			_, err := state.startHADiscoveryActor(ctx)
			if err != nil {
				panic(err)
			}
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset()
		state.currentHealthCheck.respondTo = ctx.Sender()
		// Inverter Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.inverterActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_INVERTER,
				Healthy: false,
			}
		})
		// MQTT Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		// Poller Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.pollerActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_POLLER,
				Healthy: false,
			}
		})

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case adactor.ParsedCommand:
		// parse MQTT command and route to the owning actor
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command != nil {
			cmd, err := state.commandParser.ParseMQTTPayload(msg.Command.Command, msg.Command.Payload)
			if err != nil {
				state.logger.Warn("master: invalid MQTT command", zap.String("command", msg.Command.Command), zap.Error(err))
				return
			}
			switch pcmd := cmd.(type) {
			case *domain.ReadRegisterCommandRequest:
				ctx.Request(state.inverterActor, pcmd)
			case *domain.WriteRegisterCommandRequest:
				ctx.Request(state.inverterActor, pcmd)
			case *domain.SetAppModeCommandRequest:
				ctx.Request(state.inverterActor, pcmd)
			case *domain.RefreshDatasetCommandRequest:
				ctx.Request(state.pollerActor, pcmd)
			}
		}
	case *domain.ReadRegisterCommandRequest:
		ctx.Forward(state.inverterActor)
	case *domain.WriteRegisterCommandRequest:
		ctx.Forward(state.inverterActor)
	case *domain.SetAppModeCommandRequest:
		ctx.Forward(state.inverterActor)
	case *domain.RefreshDatasetCommandRequest:
		ctx.Forward(state.pollerActor)
	case domain.GetDatasetSnapshotRequest:
		ctx.Forward(state.pollerActor)
	case domain.RealtimeDataPushed:
		// pushed frames come up from the inverter child
		ctx.Send(state.pollerActor, msg)
	case domain.ReadRegisterCommandResponse:
		if msg.HasResponseError() {
			state.logger.Error("master: read register command failed", zap.Error(msg.GetResponseError()))
			return
		}
		payload, err := state.commandParser.FormatReadResult(msg.Format, msg.Data)
		if err != nil {
			state.logger.Error("master: could not format read result", zap.Error(err))
			return
		}
		state.logger.Info("master: read register result",
			zap.String("start", fmt.Sprintf("0x%04x", msg.Start)),
			zap.Uint16("count", msg.Count),
			zap.String("result", payload))
		ctx.Send(state.mqttActor, domain.PublishCommandResultRequest{
			Command: service.COMMAND_READ_REGISTER,
			Payload: payload,
		})
	case domain.WriteRegisterCommandResponse:
		if msg.HasResponseError() {
			state.logger.Error("master: write register command failed", zap.Error(msg.GetResponseError()))
		} else {
			state.logger.Info("master: write register acknowledged",
				zap.String("register", fmt.Sprintf("0x%04x", msg.Register)),
				zap.String("value", fmt.Sprintf("0x%04x", msg.Value)))
		}
	case domain.SetAppModeCommandResponse:
		if msg.HasResponseError() {
			state.logger.Error("master: set app mode command failed", zap.Error(msg.GetResponseError()))
		} else {
			state.logger.Info("master: app mode set", zap.String("mode", saj_mqtt.AppModeToString(msg.Mode)))
		}
	case domain.RefreshDatasetCommandResponse:
		if msg.HasResponseError() {
			state.logger.Error("master: dataset refresh failed", zap.String("dataset", string(msg.Kind)), zap.Error(msg.GetResponseError()))
		} else {
			state.logger.Debug("master: dataset refreshed", zap.String("dataset", string(msg.Kind)))
		}
	case *actor.Terminated:
		// if some actor fails on boot, terminate
		if msg.Who.Id == fmt.Sprintf("%s/%s", domain.ACTOR_ID_MASTER, domain.ACTOR_ID_INVERTER) {
			state.logger.Error("master@default inverter error")
			panic(errors.New("inverter terminated"))
		}
	default:
		state.logger.Debug("master@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		if msg.Healthy {
			if msg.Id == domain.ACTOR_ID_INVERTER {
				state.currentHealthCheck.inverterActorHealthy = true
			} else if msg.Id == domain.ACTOR_ID_MQTT {
				state.currentHealthCheck.mqttActorHealthy = true
			} else if msg.Id == domain.ACTOR_ID_POLLER {
				state.currentHealthCheck.pollerActorHealthy = true
			}
		}
		if state.currentHealthCheck.allReceived() {

			state.currentHealthCheck.respond(ctx)

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) startInverterActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	inverterProps := actor.PropsFromProducer(func() actor.Actor {
		return state.inverterActorProvider()
	}, actor.WithSupervisor(supervisor))
	inverterActorPID, err := ctx.SpawnNamed(inverterProps, domain.ACTOR_ID_INVERTER)
	if err != nil {
		return nil, err
	}

	return inverterActorPID, nil
}

func (state *MasterOfPuppetsActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider()
	}, actor.WithSupervisor(supervisor))
	mqttActorPID, err := ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
	if err != nil {
		return nil, err
	}

	return mqttActorPID, nil
}

func (state *MasterOfPuppetsActor) startPollerActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	pollerProps := actor.PropsFromProducer(func() actor.Actor {
		return NewPollerActor(&state.config, state.inverterActor, state.mqttActor, state.baseLogger)
	}, actor.WithSupervisor(supervisor))
	pollerActorPID, err := ctx.SpawnNamed(pollerProps, domain.ACTOR_ID_POLLER)
	if err != nil {
		return nil, err
	}

	return pollerActorPID, nil
}

func (state *MasterOfPuppetsActor) startHADiscoveryActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	haDiscProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&state.config, state.inverterActor, state.mqttActor, state.baseLogger)
	}, actor.WithSupervisor(supervisor))
	haDiscPID, err := ctx.SpawnNamed(haDiscProps, domain.ACTOR_ID_HA_DISCOVERY)
	if err != nil {
		return nil, err
	}

	return haDiscPID, nil
}

func (state *healthCheckResult) reset() {
	state.inverterActorHealthy = false
	state.mqttActorHealthy = false
	state.pollerActorHealthy = false
	state.checksReceived = 0
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived == 3
}

func (state *healthCheckResult) allHealthy() bool {
	return state.inverterActorHealthy && state.mqttActorHealthy && state.pollerActorHealthy
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
