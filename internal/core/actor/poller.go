package actor

import (
	"fmt"
	"time"

	adactor "saj2mqtt/internal/adapter/actor"
	"saj2mqtt/internal/config"
	"saj2mqtt/internal/core/domain"
	"saj2mqtt/internal/core/events"
	. "saj2mqtt/internal/util/actorutil"
	"saj2mqtt/pkg/saj_mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// PollerActor drives the dataset schedules. Each dataset runs as an
// independent chain: tick, fetch through the inverter actor, snapshot,
// publish sensor updates, re-arm. On-demand refreshes join the chain
// instead of racing it.
type PollerActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	config        *config.Config
	inverterActor *actor.PID
	mqttActor     *actor.PID

	jobs         map[saj_mqtt.DatasetKind]*datasetJob
	snapshots    map[saj_mqtt.DatasetKind]datasetSnapshot
	fetchTimeout time.Duration
	hasBattery   bool

	logger *zap.Logger
}

type datasetTick struct {
	kind saj_mqtt.DatasetKind
}

type datasetJob struct {
	cadence config.Cadence
	// inFlight guards against overlapping fetches of the same dataset
	inFlight bool
	// rearm marks that the periodic timer must be re-armed when the
	// current fetch completes
	rearm   bool
	waiters []*actor.PID
}

type datasetSnapshot struct {
	data any
	at   time.Time
}

func NewPollerActor(config *config.Config, inverterActor *actor.PID, mqttActor *actor.PID, logger *zap.Logger) *PollerActor {
	jobs := map[saj_mqtt.DatasetKind]*datasetJob{
		saj_mqtt.DatasetRealtime:          {cadence: config.PollPlan.Realtime},
		saj_mqtt.DatasetInverterInfo:      {cadence: config.PollPlan.InverterInfo},
		saj_mqtt.DatasetBatteryInfo:       {cadence: config.PollPlan.BatteryInfo},
		saj_mqtt.DatasetBatteryController: {cadence: config.PollPlan.BatteryController},
		saj_mqtt.DatasetConfig:            {cadence: config.PollPlan.Config},
	}
	act := &PollerActor{
		config:        config,
		inverterActor: inverterActor,
		mqttActor:     mqttActor,
		behavior:      actor.NewBehavior(),
		stash:         &Stash{},
		jobs:          jobs,
		snapshots:     map[saj_mqtt.DatasetKind]datasetSnapshot{},
		fetchTimeout:  adactor.DeviceOpTimeout(&config.Inverter) + 5*time.Second,
		logger:        ActorLogger(domain.ACTOR_ID_POLLER, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *PollerActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *PollerActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("poller@starting started")

		state.scheduler = scheduler.NewTimerScheduler(ctx)

		// battery presence decides whether the battery datasets get polled
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.inverterActor, domain.GetDevicesInfoRequest{}, state.fetchTimeout), func(err error) any {
			return domain.GetDevicesInfoResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		state.behavior.Become(state.WaitingInfoReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("poller@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *PollerActor) WaitingInfoReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetDevicesInfoResponse:
		if msg.HasResponseError() {
			state.logger.Error("poller@waitingInfo GetDevicesInfoResponse", zap.Error(msg.GetResponseError()))
			// cannot tell whether a battery is present, keep its datasets
			// polling and let the fetch errors surface
			state.hasBattery = true
		} else {
			state.logger.Debug("poller@waitingInfo GetDevicesInfoResponse")
			state.hasBattery = msg.Battery != nil
		}
		state.startJobs(ctx)
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("poller@waitingInfo: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *PollerActor) startJobs(ctx actor.Context) {
	for _, kind := range saj_mqtt.DatasetKinds {
		job := state.jobs[kind]
		if job.cadence.Mode == config.CadenceDisabled {
			state.logger.Debug("poller: dataset disabled", zap.String("dataset", string(kind)))
			continue
		}
		if !state.hasBattery && isBatteryDataset(kind) {
			state.logger.Info("poller: dataset skipped, no battery detected", zap.String("dataset", string(kind)))
			continue
		}
		ctx.Send(ctx.Self(), datasetTick{kind: kind})
	}
}

func (state *PollerActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("poller@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_POLLER,
			Healthy: true,
			State:   "idle",
		})
	case datasetTick:
		state.logger.Debug("poller@default tick", zap.String("dataset", string(msg.kind)))
		job := state.jobs[msg.kind]
		if job.cadence.Mode == config.CadencePeriodic {
			job.rearm = true
		}
		if !job.inFlight {
			job.inFlight = true
			state.fetchDataset(ctx, msg.kind)
		}
	case *domain.RefreshDatasetCommandRequest:
		state.logger.Debug("poller@default RefreshDatasetCommandRequest", zap.String("dataset", string(msg.Kind)))
		sender := ForRequest(msg).ReplyTo(ctx)
		job := state.jobs[msg.Kind]
		if job == nil {
			if sender != nil {
				ctx.Send(sender, domain.RefreshDatasetCommandResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: fmt.Errorf("unknown dataset %q", msg.Kind),
					},
					Kind: msg.Kind,
				})
			}
			return
		}
		if sender != nil {
			job.waiters = append(job.waiters, sender)
		}
		if !job.inFlight {
			job.inFlight = true
			state.fetchDataset(ctx, msg.Kind)
		}
	case domain.RealtimeDataPushed:
		// a pushed frame refreshes the snapshot without a device round trip
		state.logger.Debug("poller@default RealtimeDataPushed")
		if msg.Data != nil {
			state.snapshots[saj_mqtt.DatasetRealtime] = datasetSnapshot{data: msg.Data, at: time.Now()}
			state.publishEvents(ctx, events.RealtimeDataToUpdateEvents(msg.Data))
		}
	case domain.GetDatasetSnapshotRequest:
		state.logger.Debug("poller@default GetDatasetSnapshotRequest", zap.String("dataset", string(msg.Kind)))
		snap, ok := state.snapshots[msg.Kind]
		if !ok {
			ctx.Respond(domain.GetDatasetSnapshotResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: fmt.Errorf("no snapshot for dataset %q yet", msg.Kind),
				},
				Kind: msg.Kind,
			})
			return
		}
		ctx.Respond(domain.GetDatasetSnapshotResponse{
			Kind:         msg.Kind,
			Snapshot:     snap.data,
			SnapshotTime: snap.at,
		})
	case domain.GetRealtimeDataResponse:
		var evs []any
		if !msg.HasResponseError() && msg.Data != nil {
			evs = events.RealtimeDataToUpdateEvents(msg.Data)
		}
		state.completeFetch(ctx, saj_mqtt.DatasetRealtime, msg.GetResponseError(), msg.Data, evs)
	case domain.GetInverterInfoResponse:
		state.completeFetch(ctx, saj_mqtt.DatasetInverterInfo, msg.GetResponseError(), msg.Info, nil)
	case domain.GetBatteryInfoResponse:
		state.completeFetch(ctx, saj_mqtt.DatasetBatteryInfo, msg.GetResponseError(), msg.Info, nil)
	case domain.GetBatteryControllerDataResponse:
		var evs []any
		if !msg.HasResponseError() && msg.Data != nil {
			evs = events.BatteryControllerDataToUpdateEvents(msg.Data)
		}
		state.completeFetch(ctx, saj_mqtt.DatasetBatteryController, msg.GetResponseError(), msg.Data, evs)
	case domain.GetConfigDataResponse:
		var evs []any
		if !msg.HasResponseError() && msg.Config != nil {
			evs = events.ConfigDataToUpdateEvents(msg.Config)
		}
		state.completeFetch(ctx, saj_mqtt.DatasetConfig, msg.GetResponseError(), msg.Config, evs)
	default:
		state.logger.Debug("poller@default: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *PollerActor) fetchDataset(ctx actor.Context, kind saj_mqtt.DatasetKind) {
	switch kind {
	case saj_mqtt.DatasetRealtime:
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.inverterActor, domain.GetRealtimeDataRequest{}, state.fetchTimeout), func(err error) any {
			return domain.GetRealtimeDataResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			}
		})
	case saj_mqtt.DatasetInverterInfo:
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.inverterActor, domain.GetInverterInfoRequest{}, state.fetchTimeout), func(err error) any {
			return domain.GetInverterInfoResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			}
		})
	case saj_mqtt.DatasetBatteryInfo:
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.inverterActor, domain.GetBatteryInfoRequest{}, state.fetchTimeout), func(err error) any {
			return domain.GetBatteryInfoResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			}
		})
	case saj_mqtt.DatasetBatteryController:
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.inverterActor, domain.GetBatteryControllerDataRequest{}, state.fetchTimeout), func(err error) any {
			return domain.GetBatteryControllerDataResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			}
		})
	case saj_mqtt.DatasetConfig:
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.inverterActor, domain.GetConfigDataRequest{}, state.fetchTimeout), func(err error) any {
			return domain.GetConfigDataResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			}
		})
	}
}

func (state *PollerActor) completeFetch(ctx actor.Context, kind saj_mqtt.DatasetKind, err error, data any, evs []any) {
	job := state.jobs[kind]
	job.inFlight = false
	if err != nil {
		state.logger.Error("poller: dataset fetch failed", zap.String("dataset", string(kind)), zap.Error(err))
	} else {
		state.logger.Debug("poller: dataset fetched", zap.String("dataset", string(kind)))
		state.snapshots[kind] = datasetSnapshot{data: data, at: time.Now()}
		state.publishEvents(ctx, evs)
	}
	for _, waiter := range job.waiters {
		ctx.Send(waiter, domain.RefreshDatasetCommandResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			Kind:               kind,
		})
	}
	job.waiters = nil
	if job.rearm && job.cadence.Mode == config.CadencePeriodic {
		state.scheduler.RequestOnce(job.cadence.Interval, ctx.Self(), datasetTick{kind: kind})
	}
	job.rearm = false
}

func (state *PollerActor) publishEvents(ctx actor.Context, evs []any) {
	for _, ev := range evs {
		if event, ok := ev.(domain.SensorUpdateEvent); ok {
			ctx.Send(state.mqttActor, domain.PublishSensorUpdateRequest{Event: event})
		}
	}
}

func isBatteryDataset(kind saj_mqtt.DatasetKind) bool {
	return kind == saj_mqtt.DatasetBatteryInfo || kind == saj_mqtt.DatasetBatteryController
}
