package service

import (
	"fmt"
	"strconv"
	"strings"

	"saj2mqtt/internal/core/domain"
	"saj2mqtt/internal/core/port"
	"saj2mqtt/pkg/saj_mqtt"

	"go.uber.org/zap"
)

const (
	COMMAND_READ_REGISTER  = "read_register"
	COMMAND_WRITE_REGISTER = "write_register"
	COMMAND_APP_MODE       = "app_mode"
	COMMAND_REFRESH        = "refresh"

	maxReadRegisterCount = 0x100
)

// DefaultCommandParser validates the textual gateway commands arriving over
// MQTT and HTTP and turns them into typed command requests.
type DefaultCommandParser struct {
	Logger *zap.Logger
}

func (p *DefaultCommandParser) ParseReadRegister(register, count, format string) (*domain.ReadRegisterCommandRequest, error) {
	start, err := parseRegisterNumber(register)
	if err != nil {
		return nil, fmt.Errorf("read_register: %w", err)
	}
	n, err := parseRegisterNumber(count)
	if err != nil {
		return nil, fmt.Errorf("read_register count: %w", err)
	}
	if n < 1 || n > maxReadRegisterCount {
		return nil, fmt.Errorf("read_register count %d out of range [1, %d]", n, maxReadRegisterCount)
	}
	format = strings.TrimSpace(format)
	if format != "" {
		width, err := saj_mqtt.FormatWidth(format)
		if err != nil {
			return nil, fmt.Errorf("read_register: %w", err)
		}
		if width > int(n)*2 {
			return nil, fmt.Errorf("read_register format %q needs %d bytes, read returns %d", format, width, int(n)*2)
		}
	}
	return &domain.ReadRegisterCommandRequest{
		Start:  start,
		Count:  n,
		Format: format,
	}, nil
}

func (p *DefaultCommandParser) ParseWriteRegister(register, value string) (*domain.WriteRegisterCommandRequest, error) {
	reg, err := parseRegisterNumber(register)
	if err != nil {
		return nil, fmt.Errorf("write_register: %w", err)
	}
	val, err := parseRegisterNumber(value)
	if err != nil {
		return nil, fmt.Errorf("write_register value: %w", err)
	}
	return &domain.WriteRegisterCommandRequest{
		Register: reg,
		Value:    val,
	}, nil
}

func (p *DefaultCommandParser) ParseSetAppMode(mode string) (*domain.SetAppModeCommandRequest, error) {
	appMode, err := saj_mqtt.ParseAppMode(mode)
	if err != nil {
		return nil, err
	}
	return &domain.SetAppModeCommandRequest{
		Mode: appMode,
	}, nil
}

func (p *DefaultCommandParser) ParseRefresh(dataset string) (*domain.RefreshDatasetCommandRequest, error) {
	kind, err := saj_mqtt.ParseDatasetKind(dataset)
	if err != nil {
		return nil, err
	}
	return &domain.RefreshDatasetCommandRequest{
		Kind: kind,
	}, nil
}

// ParseMQTTPayload parses a command received on the MQTT command topics.
// Multi-argument commands take space-separated payloads, e.g.
// "write_register" with payload "0x3247 2".
func (p *DefaultCommandParser) ParseMQTTPayload(command, payload string) (domain.CommandRequest, error) {
	args := strings.Fields(payload)
	switch command {
	case COMMAND_READ_REGISTER:
		switch len(args) {
		case 2:
			return p.ParseReadRegister(args[0], args[1], "")
		case 3:
			return p.ParseReadRegister(args[0], args[1], args[2])
		default:
			return nil, fmt.Errorf("read_register expects \"<register> <count> [format]\", got %q", payload)
		}
	case COMMAND_WRITE_REGISTER:
		if len(args) != 2 {
			return nil, fmt.Errorf("write_register expects \"<register> <value>\", got %q", payload)
		}
		return p.ParseWriteRegister(args[0], args[1])
	case COMMAND_APP_MODE:
		if len(args) != 1 {
			return nil, fmt.Errorf("app_mode expects a single mode, got %q", payload)
		}
		return p.ParseSetAppMode(args[0])
	case COMMAND_REFRESH:
		if len(args) != 1 {
			return nil, fmt.Errorf("refresh expects a single dataset, got %q", payload)
		}
		return p.ParseRefresh(args[0])
	}
	return nil, fmt.Errorf("unknown command %q", command)
}

// FormatReadResult renders register bytes for the command result topic.
// Without a format the raw bytes are hex dumped, with a format the decoded
// numeric value is printed.
func (p *DefaultCommandParser) FormatReadResult(format string, data []byte) (string, error) {
	if format == "" {
		return saj_mqtt.HexDump(data), nil
	}
	value, err := saj_mqtt.UnpackFormat(format, data)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", value), nil
}

// parseRegisterNumber accepts a register address or value either as decimal
// or as 0x-prefixed hexadecimal.
func parseRegisterNumber(s string) (uint16, error) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	var value uint64
	var err error
	if strings.HasPrefix(lower, "0x") {
		value, err = strconv.ParseUint(lower[2:], 16, 16)
	} else {
		value, err = strconv.ParseUint(s, 10, 16)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid register number %q", s)
	}
	return uint16(value), nil
}

// ensure interface compliance
var _ port.CommandParser = (*DefaultCommandParser)(nil)
