package domain

import (
	"fmt"

	"saj2mqtt/pkg/saj_mqtt"
)

// CommandRequest

type CommandRequest interface {
	ActorRequest
	CommandName() string
}

type CommandRequestMixIn struct {
	ActorRequestMixIn
}

func (r CommandRequestMixIn) CommandName() string {
	return fmt.Sprintf("%T", r)
}

// Gateway commands

type ReadRegisterCommandRequest struct {
	CommandRequestMixIn
	Start  uint16
	Count  uint16
	Format string
}

type ReadRegisterCommandResponse struct {
	ActorResponseMixIn
	Start  uint16
	Count  uint16
	Format string
	Data   []byte
}

type WriteRegisterCommandRequest struct {
	CommandRequestMixIn
	Register uint16
	Value    uint16
}

type WriteRegisterCommandResponse struct {
	ActorResponseMixIn
	Register uint16
	Value    uint16
}

type SetAppModeCommandRequest struct {
	CommandRequestMixIn
	Mode saj_mqtt.AppMode
}

type SetAppModeCommandResponse struct {
	ActorResponseMixIn
	Mode saj_mqtt.AppMode
}

type RefreshDatasetCommandRequest struct {
	CommandRequestMixIn
	Kind saj_mqtt.DatasetKind
}

type RefreshDatasetCommandResponse struct {
	ActorResponseMixIn
	Kind saj_mqtt.DatasetKind
}

// ensure interface compliance
var _ CommandRequest = (*ReadRegisterCommandRequest)(nil)
var _ CommandRequest = (*WriteRegisterCommandRequest)(nil)
var _ CommandRequest = (*SetAppModeCommandRequest)(nil)
var _ CommandRequest = (*RefreshDatasetCommandRequest)(nil)
