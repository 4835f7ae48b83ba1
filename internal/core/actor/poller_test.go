package actor

import (
	"errors"
	"testing"
	"time"

	adactor "saj2mqtt/internal/adapter/actor"
	"saj2mqtt/internal/core/domain"
	"saj2mqtt/internal/util"
	"saj2mqtt/internal/util/actorutil"
	"saj2mqtt/pkg/saj_mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestPollerActorSnapshots(t *testing.T) {

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	cfg := util.LoadTestConfig()

	inv, err := saj_mqtt.CreateTestInverterClient()
	if err != nil {
		t.Error(err)
		return
	}

	// inverter actor
	inverterProps := actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewInverterActor(inv, &cfg, logger)
	})
	inverterActorPID := context.Spawn(inverterProps)

	// mqtt actor
	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewTestMQTTActor(&cfg, logger)
	})
	mqttActorPID := context.Spawn(mqttProps)

	// poller actor
	pollerProps := actor.PropsFromProducer(func() actor.Actor {
		return NewPollerActor(&cfg, inverterActorPID, mqttActorPID, logger)
	})
	pollerActorPID := context.Spawn(pollerProps)

	time.Sleep(3 * time.Second)

	hcr, err := healthCheck(context, pollerActorPID)
	if err != nil {
		t.Error(err)
		return
	}
	assert.True(t, hcr.Healthy, "actor should be healthy")

	// every enabled dataset should have been fetched on start
	resp, err := context.RequestFuture(pollerActorPID, domain.GetDatasetSnapshotRequest{Kind: saj_mqtt.DatasetRealtime}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	snapResp := resp.(domain.GetDatasetSnapshotResponse)
	assert.False(t, snapResp.HasResponseError(), "realtime snapshot available")
	data, ok := snapResp.Snapshot.(*saj_mqtt.RealtimeData)
	assert.True(t, ok, "realtime snapshot type")
	assert.Equal(t, 76.55, data.Battery.StateOfCharge, "realtime battery state of charge")
	assert.False(t, snapResp.SnapshotTime.IsZero(), "realtime snapshot time")

	resp, err = context.RequestFuture(pollerActorPID, domain.GetDatasetSnapshotRequest{Kind: saj_mqtt.DatasetInverterInfo}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	snapResp = resp.(domain.GetDatasetSnapshotResponse)
	assert.False(t, snapResp.HasResponseError(), "inverter info snapshot available")
	info, ok := snapResp.Snapshot.(*saj_mqtt.InverterInfo)
	assert.True(t, ok, "inverter info snapshot type")
	assert.Equal(t, "H1S2602J2119E01121", info.SerialNumber, "inverter serial number")

	context.Stop(pollerActorPID)
	context.Stop(inverterActorPID)
	context.Stop(mqttActorPID)

	as.Shutdown()
}

func TestPollerActorRefresh(t *testing.T) {

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	cfg := util.LoadTestConfig()

	inv, err := saj_mqtt.CreateTestInverterClient()
	if err != nil {
		t.Error(err)
		return
	}

	inverterProps := actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewInverterActor(inv, &cfg, logger)
	})
	inverterActorPID := context.Spawn(inverterProps)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewTestMQTTActor(&cfg, logger)
	})
	mqttActorPID := context.Spawn(mqttProps)

	pollerProps := actor.PropsFromProducer(func() actor.Actor {
		return NewPollerActor(&cfg, inverterActorPID, mqttActorPID, logger)
	})
	pollerActorPID := context.Spawn(pollerProps)

	time.Sleep(2 * time.Second)

	msg := &domain.RefreshDatasetCommandRequest{Kind: saj_mqtt.DatasetConfig}
	resp, err := context.RequestFuture(pollerActorPID, msg, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	refreshResp := resp.(domain.RefreshDatasetCommandResponse)
	assert.False(t, refreshResp.HasResponseError(), "refresh error")
	assert.Equal(t, saj_mqtt.DatasetConfig, refreshResp.Kind, "refreshed dataset kind")

	// the refreshed dataset must be queryable afterwards
	snap, err := context.RequestFuture(pollerActorPID, domain.GetDatasetSnapshotRequest{Kind: saj_mqtt.DatasetConfig}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	snapResp := snap.(domain.GetDatasetSnapshotResponse)
	assert.False(t, snapResp.HasResponseError(), "config snapshot available")
	cfgData, ok := snapResp.Snapshot.(*saj_mqtt.ConfigData)
	assert.True(t, ok, "config snapshot type")
	assert.Equal(t, saj_mqtt.AppModeSelfUseStr, cfgData.AppModeStr, "app mode string")

	context.Stop(pollerActorPID)
	context.Stop(inverterActorPID)
	context.Stop(mqttActorPID)

	as.Shutdown()
}

func healthCheck(ctx *actor.RootContext, pid *actor.PID) (*domain.ActorHealthResponse, error) {
	resp, err := ctx.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	if err != nil {
		return nil, err
	}
	hcr, ok := resp.(domain.ActorHealthResponse)
	if !ok {
		return nil, errors.New("unexpected response type")
	}
	return &hcr, nil
}
