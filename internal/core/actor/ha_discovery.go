package actor

import (
	"errors"
	"fmt"
	"time"

	adactor "saj2mqtt/internal/adapter/actor"
	"saj2mqtt/internal/config"
	"saj2mqtt/internal/core/domain"
	"saj2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// HADiscoveryActor publishes the Home Assistant discovery messages once,
// after checking that the inverter and MQTT actors came up. The battery
// device and its per-pack sensors are announced only when the inverter
// reports a battery.
type HADiscoveryActor struct {
	config               *config.Config
	behavior             actor.Behavior
	stash                *actorutil.Stash
	inverterActor        *actor.PID
	mqttActor            *actor.PID
	inverterActorHealthy bool
	mqttActorHealthy     bool
	healthyRecv          int

	logger *zap.Logger
}

func NewHADiscoveryActor(config *config.Config, inverterActor *actor.PID, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:        config,
		inverterActor: inverterActor,
		mqttActor:     mqttActor,
		behavior:      actor.NewBehavior(),
		stash:         &actorutil.Stash{},
		logger:        actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		// Check inverter and MQTT actor healthy
		state.healthyRecv = 0
		state.inverterActorHealthy = false
		state.mqttActorHealthy = false
		// Inverter Actor Request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.inverterActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_INVERTER,
				Healthy: false,
			}
		})
		// MQTT Actor Request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("hadiscovery@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.healthyRecv++
		if msg.Healthy {
			switch msg.Id {
			case domain.ACTOR_ID_INVERTER:
				state.inverterActorHealthy = true
			case domain.ACTOR_ID_MQTT:
				state.mqttActorHealthy = true
			}
		}
		if state.healthyRecv == 2 {

			if state.inverterActorHealthy && state.mqttActorHealthy {
				// Ask inverter GetDevicesInfoRequest
				timeout := adactor.DeviceOpTimeout(&state.config.Inverter) + 5*time.Second
				actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.inverterActor, domain.GetDevicesInfoRequest{}, timeout), func(err error) any {
					return domain.GetDevicesInfoResponse{
						ActorResponseMixIn: domain.ActorResponseMixIn{
							ResponseError: err,
						},
					}
				})
				state.behavior.Become(state.WaitingInfoReceive)
				state.stash.UnstashAll(ctx)
			} else {
				panic(errors.New("MQTT Actor or Inverter Actor are not healthy"))
			}
		}
	default:
		state.logger.Debug("hadiscovery@healthcheck: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) Done(ctx actor.Context) {

}

func (state *HADiscoveryActor) WaitingInfoReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetDevicesInfoResponse:
		if msg.HasResponseError() {
			panic(msg.GetResponseError())
		}
		state.logger.Debug("hadiscovery@info: GetDevicesInfoResponse", zap.Any("response", msg))

		var sensors []domain.GenericSensor

		bridgeDevice := domain.BridgeDevice(state.config.MQTT.BaseTopic)
		bridgeSensors := domain.BridgeSensors(bridgeDevice)
		sensors = append(sensors, bridgeSensors...)

		inverterDevice := domain.InverterDevice(msg.Inverter)
		inverterDevice.ViaDevice = bridgeDevice.Id
		inverterSensors := domain.InverterBaseSensors(inverterDevice)
		inverterSensors = append(inverterSensors, domain.InverterEnergySensors(inverterDevice)...)
		for i := range inverterSensors {
			if i > 0 {
				inverterSensors[i].Device = domain.IdDevice(inverterDevice)
			}
			sensors = append(sensors, inverterSensors[i])
		}

		if msg.Battery != nil {
			batteryDevice := domain.BatteryDevice(msg.Battery, inverterDevice)
			batterySensors := domain.BatteryBaseSensors(batteryDevice)
			if msg.BatteryController != nil {
				batterySensors = append(batterySensors, domain.BatteryPackSensors(batteryDevice, len(msg.BatteryController.Batteries))...)
			}
			for i := range batterySensors {
				if i > 0 {
					batterySensors[i].Device = domain.IdDevice(batteryDevice)
				}
				sensors = append(sensors, batterySensors[i])
			}
		}

		ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
			Sensors: sensors,
		})
		state.behavior.Become(state.Done)

	default:
		state.logger.Debug("hadiscovery@info: default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}
