package actor

import (
	"fmt"
	"time"

	"saj2mqtt/internal/config"
	"saj2mqtt/internal/core/domain"
	"saj2mqtt/internal/util/actorutil"
	"saj2mqtt/pkg/saj_mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/logger"
	"go.uber.org/zap"
)

type InverterActor struct {
	behavior  actor.Behavior
	stash     *actorutil.Stash
	inverter  saj_mqtt.InverterClient
	opTimeout time.Duration
	logger    *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewInverterActor(inverter saj_mqtt.InverterClient, cfg *config.Config, logger *zap.Logger) *InverterActor {
	act := &InverterActor{
		inverter:  inverter,
		behavior:  actor.NewBehavior(),
		stash:     &actorutil.Stash{},
		opTimeout: DeviceOpTimeout(&cfg.Inverter),
		logger:    actorutil.ActorLogger(domain.ACTOR_ID_INVERTER, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

// DeviceOpTimeout bounds a device operation from above: the slowest dataset
// read is the realtime block, split into chunks that each get the full
// retry budget. Callers waiting on the inverter actor should allow at
// least this long.
func DeviceOpTimeout(cfg *config.InverterConfig) time.Duration {
	chunks := (int(saj_mqtt.RegRealtimeCount) + saj_mqtt.MaxRegistersPerQuery - 1) / saj_mqtt.MaxRegistersPerQuery
	attempts := int(cfg.RequestRetries) + 1
	return cfg.RequestTimeout()*time.Duration(chunks*attempts) + 5*time.Second
}

func (state *InverterActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *InverterActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("inverter@starting started")
		state.inverter.SetRealtimeDataHandler(func(data *saj_mqtt.RealtimeData) {
			ctx.Send(ctx.Self(), domain.RealtimeDataPushed{Data: data})
		})
		if err := state.inverter.Open(); err != nil {
			panic(err)
		}
		if err := state.inverter.Validate(); err != nil {
			panic(err)
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.inverter.Close()
	default:
		state.logger.Debug("inverter@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *InverterActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("inverter@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_INVERTER,
			Healthy: true,
			State:   "idle",
		})
	case domain.RealtimeDataPushed:
		// pushed frames bubble up to the master, which routes them to the poller
		ctx.Send(ctx.Parent(), msg)
	case domain.GetDevicesInfoRequest:
		state.logger.Debug("inverter@default: GetDevicesInfoRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		runInverterTask(state, ctx, sender, state.getDevicesInfo, func(err error) any {
			return domain.GetDevicesInfoResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			}
		})
	case domain.GetRealtimeDataRequest:
		state.logger.Debug("inverter@default: GetRealtimeDataRequest")
		runInverterTask(state, ctx, ctx.Sender(), func() (*domain.GetRealtimeDataResponse, error) {
			data, err := state.inverter.GetRealtimeData()
			if err != nil {
				return nil, err
			}
			return &domain.GetRealtimeDataResponse{Data: data}, nil
		}, func(err error) any {
			return domain.GetRealtimeDataResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			}
		})
	case domain.GetInverterInfoRequest:
		state.logger.Debug("inverter@default: GetInverterInfoRequest")
		runInverterTask(state, ctx, ctx.Sender(), func() (*domain.GetInverterInfoResponse, error) {
			info, err := state.inverter.GetInverterInfo()
			if err != nil {
				return nil, err
			}
			return &domain.GetInverterInfoResponse{Info: info}, nil
		}, func(err error) any {
			return domain.GetInverterInfoResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			}
		})
	case domain.GetBatteryInfoRequest:
		state.logger.Debug("inverter@default: GetBatteryInfoRequest")
		runInverterTask(state, ctx, ctx.Sender(), func() (*domain.GetBatteryInfoResponse, error) {
			info, err := state.inverter.GetBatteryInfo()
			if err != nil {
				return nil, err
			}
			return &domain.GetBatteryInfoResponse{Info: info}, nil
		}, func(err error) any {
			return domain.GetBatteryInfoResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			}
		})
	case domain.GetBatteryControllerDataRequest:
		state.logger.Debug("inverter@default: GetBatteryControllerDataRequest")
		runInverterTask(state, ctx, ctx.Sender(), func() (*domain.GetBatteryControllerDataResponse, error) {
			data, err := state.inverter.GetBatteryControllerData()
			if err != nil {
				return nil, err
			}
			return &domain.GetBatteryControllerDataResponse{Data: data}, nil
		}, func(err error) any {
			return domain.GetBatteryControllerDataResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			}
		})
	case domain.GetConfigDataRequest:
		state.logger.Debug("inverter@default: GetConfigDataRequest")
		runInverterTask(state, ctx, ctx.Sender(), func() (*domain.GetConfigDataResponse, error) {
			data, err := state.inverter.GetConfigData()
			if err != nil {
				return nil, err
			}
			return &domain.GetConfigDataResponse{Config: data}, nil
		}, func(err error) any {
			return domain.GetConfigDataResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			}
		})
	case *domain.ReadRegisterCommandRequest:
		state.logger.Debug("inverter@default: ReadRegisterCommandRequest",
			zap.String("start", fmt.Sprintf("0x%04x", msg.Start)), zap.Uint16("count", msg.Count))
		req := *msg
		runInverterTask(state, ctx, ctx.Sender(), func() (*domain.ReadRegisterCommandResponse, error) {
			data, err := state.inverter.ReadRegisters(req.Start, req.Count)
			if err != nil {
				return nil, err
			}
			return &domain.ReadRegisterCommandResponse{
				Start:  req.Start,
				Count:  req.Count,
				Format: req.Format,
				Data:   data,
			}, nil
		}, func(err error) any {
			return domain.ReadRegisterCommandResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
				Start:              req.Start,
				Count:              req.Count,
				Format:             req.Format,
			}
		})
	case *domain.WriteRegisterCommandRequest:
		state.logger.Info("inverter@default: WriteRegisterCommandRequest",
			zap.String("register", fmt.Sprintf("0x%04x", msg.Register)),
			zap.String("value", fmt.Sprintf("0x%04x", msg.Value)))
		req := *msg
		runInverterTask(state, ctx, ctx.Sender(), func() (*domain.WriteRegisterCommandResponse, error) {
			if err := state.inverter.WriteRegister(req.Register, req.Value); err != nil {
				return nil, err
			}
			return &domain.WriteRegisterCommandResponse{
				Register: req.Register,
				Value:    req.Value,
			}, nil
		}, func(err error) any {
			return domain.WriteRegisterCommandResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
				Register:           req.Register,
				Value:              req.Value,
			}
		})
	case *domain.SetAppModeCommandRequest:
		state.logger.Info("inverter@default: SetAppModeCommandRequest",
			zap.String("mode", saj_mqtt.AppModeToString(msg.Mode)))
		req := *msg
		runInverterTask(state, ctx, ctx.Sender(), func() (*domain.SetAppModeCommandResponse, error) {
			if err := state.inverter.SetAppMode(req.Mode); err != nil {
				return nil, err
			}
			return &domain.SetAppModeCommandResponse{Mode: req.Mode}, nil
		}, func(err error) any {
			return domain.SetAppModeCommandResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
				Mode:               req.Mode,
			}
		})
	case *actor.Stopping:
		state.inverter.Close()
	default:
		state.logger.Debug("inverter@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// runInverterTask runs one inverter operation, pipes the typed response to
// the sender and parks the actor in WaitingInverter until the result lands.
// Requests arriving meanwhile are stashed.
func runInverterTask[T any](state *InverterActor, ctx actor.Context, sender *actor.PID,
	fn func() (*T, error), recover func(error) any) {
	actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, fn),
		mapTaskResult[T](sender)).Recover(func(err error) backgroundTaskResult {
		return backgroundTaskResult{
			message: recover(err),
			replyTo: sender,
		}
	}).WithTimeout(state.opTimeout).PipeTo(ctx.Self())
	state.behavior.BecomeStacked(state.WaitingInverter)
}

func (state *InverterActor) WaitingInverter(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("inverter@waiting backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.message)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		state.inverter.Close()
	default:
		state.logger.Debug("inverter@waiting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (a *InverterActor) getDevicesInfo() (*domain.GetDevicesInfoResponse, error) {
	inverter, err := a.inverter.GetInverterInfo()
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	battery, err := a.inverter.GetBatteryInfo()
	if err != nil {
		a.logger.Warn("inverter: battery info not available", zap.Error(err))
		return &domain.GetDevicesInfoResponse{Inverter: inverter}, nil
	}
	controller, err := a.inverter.GetBatteryControllerData()
	if err != nil {
		a.logger.Warn("inverter: battery controller data not available", zap.Error(err))
		return &domain.GetDevicesInfoResponse{Inverter: inverter, Battery: battery}, nil
	}
	return &domain.GetDevicesInfoResponse{
		Inverter:          inverter,
		Battery:           battery,
		BatteryController: controller,
	}, nil
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
