package actor

import (
	"testing"
	"time"

	"saj2mqtt/internal/core/domain"
	"saj2mqtt/internal/util"
	"saj2mqtt/internal/util/actorutil"
	"saj2mqtt/pkg/saj_mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestGetDevicesInfoInverterActor(t *testing.T) {

	assert := assert.New(t)

	inv, err := saj_mqtt.CreateTestInverterClient()
	if err != nil {
		t.Error(err)
		return
	}

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewInverterActor(inv, &cfg, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := domain.GetDevicesInfoRequest{}
	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetDevicesInfoResponse)

	assert.Equal(resp.Inverter.SerialNumber, "H1S2602J2119E01121", "Inverter serial number")
	assert.Equal(resp.Inverter.ProductCode, "H1-5K-S2", "Inverter product code")
	assert.Equal(resp.Battery.BMSSerialNumber, "B2S1602J2048E00412", "BMS serial number")
	assert.Equal(resp.BatteryController.BatteryCount, uint16(2), "Battery pack count")

	context.Stop(pid)

	as.Shutdown()
}

func TestGetRealtimeDataInverterActor(t *testing.T) {

	assert := assert.New(t)

	inv, err := saj_mqtt.CreateTestInverterClient()
	if err != nil {
		t.Error(err)
		return
	}

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewInverterActor(inv, &cfg, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := domain.GetRealtimeDataRequest{}

	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetRealtimeDataResponse)

	assert.Equal(resp.Data.WorkingMode, saj_mqtt.WorkingModeNormal, "Working mode")
	assert.True(resp.Data.Summary.Photovoltaic > 0, "Photovoltaic power bounds")
	assert.Equal(resp.Data.Battery.StateOfCharge, 76.55, "Battery state of charge")

	context.Stop(pid)

	as.Shutdown()
}

func TestReadRegisterCommandInverterActor(t *testing.T) {

	assert := assert.New(t)

	inv, err := saj_mqtt.CreateTestInverterClient()
	if err != nil {
		t.Error(err)
		return
	}

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewInverterActor(inv, &cfg, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := &domain.ReadRegisterCommandRequest{Start: 0x4000, Count: 2}

	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.ReadRegisterCommandResponse)

	assert.False(resp.HasResponseError(), "Read register error")
	assert.Equal(resp.Start, uint16(0x4000), "Read register start")
	assert.Equal(resp.Count, uint16(2), "Read register count")
	assert.Equal(resp.Data, []byte{0x00, 0x01, 0x02, 0x03}, "Read register data")

	context.Stop(pid)

	as.Shutdown()
}

func TestWriteRegisterCommandInverterActor(t *testing.T) {

	assert := assert.New(t)

	inv, err := saj_mqtt.CreateTestInverterClient()
	if err != nil {
		t.Error(err)
		return
	}

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewInverterActor(inv, &cfg, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := &domain.WriteRegisterCommandRequest{Register: 0x3247, Value: 1}

	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.WriteRegisterCommandResponse)

	assert.False(resp.HasResponseError(), "Write register error")
	assert.Equal(resp.Register, uint16(0x3247), "Write register number")
	assert.Equal(resp.Value, uint16(1), "Write register value")

	context.Stop(pid)

	as.Shutdown()
}

func TestSetAppModeCommandInverterActor(t *testing.T) {

	assert := assert.New(t)

	inv, err := saj_mqtt.CreateTestInverterClient()
	if err != nil {
		t.Error(err)
		return
	}

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewInverterActor(inv, &cfg, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := &domain.SetAppModeCommandRequest{Mode: saj_mqtt.AppModeBackup}

	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.SetAppModeCommandResponse)

	assert.False(resp.HasResponseError(), "Set app mode error")
	assert.Equal(resp.Mode, saj_mqtt.AppModeBackup, "Set app mode value")

	context.Stop(pid)

	as.Shutdown()
}
