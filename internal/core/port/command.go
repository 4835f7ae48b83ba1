package port

import (
	"saj2mqtt/internal/core/domain"
)

type CommandParser interface {
	ParseReadRegister(register, count, format string) (*domain.ReadRegisterCommandRequest, error)
	ParseWriteRegister(register, value string) (*domain.WriteRegisterCommandRequest, error)
	ParseSetAppMode(mode string) (*domain.SetAppModeCommandRequest, error)
	ParseRefresh(dataset string) (*domain.RefreshDatasetCommandRequest, error)
	ParseMQTTPayload(command, payload string) (domain.CommandRequest, error)
	FormatReadResult(format string, data []byte) (string, error)
}
