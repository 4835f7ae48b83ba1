package domain

import (
	"time"

	"saj2mqtt/pkg/saj_mqtt"
)

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_INVERTER     = "inverter"
	ACTOR_ID_POLLER       = "poller"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

type GetDevicesInfoRequest struct {
	ActorRequestMixIn
}

type GetDevicesInfoResponse struct {
	ActorResponseMixIn
	Inverter          *saj_mqtt.InverterInfo
	Battery           *saj_mqtt.BatteryInfo
	BatteryController *saj_mqtt.BatteryControllerData
}

type GetRealtimeDataRequest struct {
	ActorRequestMixIn
}

type GetRealtimeDataResponse struct {
	ActorResponseMixIn
	Data *saj_mqtt.RealtimeData
}

type GetInverterInfoRequest struct {
	ActorRequestMixIn
}

type GetInverterInfoResponse struct {
	ActorResponseMixIn
	Info *saj_mqtt.InverterInfo
}

type GetBatteryInfoRequest struct {
	ActorRequestMixIn
}

type GetBatteryInfoResponse struct {
	ActorResponseMixIn
	Info *saj_mqtt.BatteryInfo
}

type GetBatteryControllerDataRequest struct {
	ActorRequestMixIn
}

type GetBatteryControllerDataResponse struct {
	ActorResponseMixIn
	Data *saj_mqtt.BatteryControllerData
}

type GetConfigDataRequest struct {
	ActorRequestMixIn
}

type GetConfigDataResponse struct {
	ActorResponseMixIn
	Config *saj_mqtt.ConfigData
}

// RealtimeDataPushed carries a spontaneous realtime frame decoded from the
// inverter push topic. It flows inverter actor -> master -> poller.
type RealtimeDataPushed struct {
	Data *saj_mqtt.RealtimeData
}

type GetDatasetSnapshotRequest struct {
	ActorRequestMixIn
	Kind saj_mqtt.DatasetKind
}

type GetDatasetSnapshotResponse struct {
	ActorResponseMixIn
	Kind         saj_mqtt.DatasetKind
	Snapshot     any
	SnapshotTime time.Time
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishCommandResultRequest struct {
	ActorRequestMixIn
	Command string
	Payload string
}

type PublishCommandResultResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors []GenericSensor
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
