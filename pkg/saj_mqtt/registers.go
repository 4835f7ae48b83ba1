package saj_mqtt

import (
	"encoding/binary"
	"fmt"
	"slices"
	"strings"
	"time"
)

// dataset register spans
const (
	RegRealtimeStart          uint16 = 0x4000
	RegRealtimeCount          uint16 = 0x100
	RegInverterInfoStart      uint16 = 0x8F00
	RegInverterInfoCount      uint16 = 0x1E
	RegBatteryInfoStart       uint16 = 0x8E00
	RegBatteryInfoCount       uint16 = 0x50
	RegBatteryControllerStart uint16 = 0xA000
	RegBatteryControllerCount uint16 = 0x24
	RegAppMode                uint16 = 0x3247
)

// minimum payload widths the decoders require
const (
	realtimeDataSize          = 0x1FE
	inverterInfoDataSize      = 0x3A
	batteryInfoDataSize       = 0x38
	batteryControllerDataSize = 0x32
	configDataSize            = 0x02
)

// realtimePushHeaderSize is the envelope the inverter prepends to the
// spontaneous realtime_data frames: sequence(4) timestamp(4) padding
// up to the register payload.
const realtimePushHeaderSize = 0x24

func datasetSpan(kind DatasetKind) (start uint16, count uint16, err error) {
	switch kind {
	case DatasetRealtime:
		return RegRealtimeStart, RegRealtimeCount, nil
	case DatasetInverterInfo:
		return RegInverterInfoStart, RegInverterInfoCount, nil
	case DatasetBatteryInfo:
		return RegBatteryInfoStart, RegBatteryInfoCount, nil
	case DatasetBatteryController:
		return RegBatteryControllerStart, RegBatteryControllerCount, nil
	case DatasetConfig:
		return RegAppMode, 1, nil
	}
	return 0, 0, fmt.Errorf("saj: unknown dataset kind %q", kind)
}

func u16At(payload []byte, offset int) uint16 {
	return binary.BigEndian.Uint16(payload[offset:])
}

func scaledAt(payload []byte, offset int, scale float64) float64 {
	return float64(binary.BigEndian.Uint16(payload[offset:])) * scale
}

func scaledIntAt(payload []byte, offset int, scale float64) float64 {
	return float64(int16(binary.BigEndian.Uint16(payload[offset:]))) * scale
}

func scaledU32At(payload []byte, offset int, scale float64) float64 {
	return float64(binary.BigEndian.Uint32(payload[offset:])) * scale
}

func stringAt(payload []byte, offset int, size int) string {
	bytes := payload[offset : offset+size]
	f := slices.Index(bytes, 0x00)
	if f >= 0 {
		bytes = bytes[:f]
	}
	return strings.TrimSpace(string(bytes))
}

func directionString(raw int16, zero string, nonzero string) string {
	if raw == 0 {
		return zero
	}
	return nonzero
}

func energyCounterAt(payload []byte, offset int) EnergyCounter {
	return EnergyCounter{
		Daily:   scaledU32At(payload, offset, 0.01),
		Monthly: scaledU32At(payload, offset+4, 0.01),
		Yearly:  scaledU32At(payload, offset+8, 0.01),
		Total:   scaledU32At(payload, offset+12, 0.01),
	}
}

func DecodeRealtimeData(payload []byte) (*RealtimeData, error) {
	if len(payload) < realtimeDataSize {
		return nil, fmt.Errorf("%w: realtime data needs %d bytes, got %d", ErrPayloadTooShort, realtimeDataSize, len(payload))
	}
	workingMode := WorkingMode(u16At(payload, 0x08))
	return &RealtimeData{
		Time: time.Date(int(u16At(payload, 0x00)), time.Month(payload[0x02]), int(payload[0x03]),
			int(payload[0x04]), int(payload[0x05]), int(payload[0x06]), 0, time.Local),
		WorkingMode:         workingMode,
		WorkingModeStr:      WorkingModeToString(workingMode),
		HeatsinkTemperature: scaledIntAt(payload, 0x20, 0.1),
		EarthLeakageCurrent: scaledAt(payload, 0x24, 1),
		Grid: GridData{
			Voltage:       scaledAt(payload, 0x62, 0.1),
			Current:       scaledIntAt(payload, 0x64, 0.01),
			Frequency:     scaledAt(payload, 0x66, 0.01),
			DCComponent:   scaledIntAt(payload, 0x68, 0.001),
			PowerActive:   scaledIntAt(payload, 0x6A, 1),
			PowerApparent: scaledAt(payload, 0x6C, 1),
			PowerFactor:   scaledIntAt(payload, 0x6E, 0.1),
		},
		Inverter: InverterACData{
			Voltage:          scaledAt(payload, 0x8C, 0.1),
			Current:          scaledIntAt(payload, 0x8E, 0.01),
			Frequency:        scaledAt(payload, 0x90, 0.01),
			PowerActive:      scaledIntAt(payload, 0x92, 1),
			PowerApparent:    scaledIntAt(payload, 0x94, 1),
			BusMasterVoltage: scaledAt(payload, 0xCE, 0.1),
			BusSlaveVoltage:  scaledAt(payload, 0xD0, 0.1),
		},
		Output: OutputData{
			Voltage:       scaledAt(payload, 0xAA, 0.1),
			Current:       scaledIntAt(payload, 0xAC, 0.01),
			Frequency:     scaledAt(payload, 0xAE, 0.01),
			DCVoltage:     scaledIntAt(payload, 0xB0, 0.001),
			PowerActive:   scaledIntAt(payload, 0xB2, 1),
			PowerApparent: scaledIntAt(payload, 0xB4, 1),
		},
		Battery: BatteryACData{
			Voltage:         scaledAt(payload, 0xD2, 0.1),
			Current:         scaledIntAt(payload, 0xD4, 0.01),
			ControlCurrent1: scaledIntAt(payload, 0xD6, 0.01),
			ControlCurrent2: scaledIntAt(payload, 0xD8, 0.01),
			Power:           scaledIntAt(payload, 0xDA, 1),
			Temperature:     scaledIntAt(payload, 0xDC, 0.1),
			StateOfCharge:   scaledAt(payload, 0xDE, 0.01),
		},
		PV1: PVArrayData{
			Voltage: scaledAt(payload, 0xE2, 0.1),
			Current: scaledAt(payload, 0xE4, 0.01),
			Power:   scaledAt(payload, 0xE6, 1),
		},
		PV2: PVArrayData{
			Voltage: scaledAt(payload, 0xE8, 0.1),
			Current: scaledAt(payload, 0xEA, 0.01),
			Power:   scaledAt(payload, 0xEC, 1),
		},
		Directions: FlowDirections{
			Photovoltaic: directionString(int16(u16At(payload, 0x12A)), FlowIngoing, FlowOutgoing),
			Battery:      directionString(int16(u16At(payload, 0x12C)), FlowDischarging, FlowCharging),
			Grid:         directionString(int16(u16At(payload, 0x12E)), FlowFetching, FlowPutting),
			Output:       directionString(int16(u16At(payload, 0x130)), FlowIngoing, FlowOutgoing),
		},
		Summary: PowerSummary{
			SystemLoad:         scaledAt(payload, 0x140, 1),
			SmartMeterLoad:     scaledIntAt(payload, 0x142, 1),
			Photovoltaic:       scaledAt(payload, 0x14A, 1),
			Battery:            scaledIntAt(payload, 0x14C, 1),
			Grid:               scaledIntAt(payload, 0x14E, 1),
			GridApparent:       scaledIntAt(payload, 0x150, 1),
			Inverter:           scaledIntAt(payload, 0x152, 1),
			InverterApparent:   scaledIntAt(payload, 0x154, 1),
			BackupLoad:         scaledIntAt(payload, 0x156, 1),
			BackupLoadApparent: scaledAt(payload, 0x158, 1),
		},
		Energy: EnergyStats{
			Photovoltaic:      energyCounterAt(payload, 0x17E),
			BatteryCharged:    energyCounterAt(payload, 0x18E),
			BatteryDischarged: energyCounterAt(payload, 0x19E),
			SystemLoad:        energyCounterAt(payload, 0x1BE),
			BackupLoad:        energyCounterAt(payload, 0x1CE),
			GridExported:      energyCounterAt(payload, 0x1DE),
			GridImported:      energyCounterAt(payload, 0x1EE),
		},
	}, nil
}

func DecodeInverterInfo(payload []byte) (*InverterInfo, error) {
	if len(payload) < inverterInfoDataSize {
		return nil, fmt.Errorf("%w: inverter info needs %d bytes, got %d", ErrPayloadTooShort, inverterInfoDataSize, len(payload))
	}
	return &InverterInfo{
		DeviceType:          u16At(payload, 0x00),
		SubType:             u16At(payload, 0x02),
		CommProtocolVersion: scaledAt(payload, 0x04, 0.001),
		SerialNumber:        stringAt(payload, 0x06, 20),
		ProductCode:         stringAt(payload, 0x1A, 20),
		DisplaySWVersion:    scaledAt(payload, 0x2E, 0.001),
		MasterCtrlSWVersion: scaledAt(payload, 0x30, 0.001),
		SlaveCtrlSWVersion:  scaledAt(payload, 0x32, 0.001),
		DisplayHWVersion:    scaledAt(payload, 0x34, 0.001),
		CtrlHWVersion:       scaledAt(payload, 0x36, 0.001),
		PowerHWVersion:      scaledAt(payload, 0x38, 0.001),
	}, nil
}

func DecodeBatteryInfo(payload []byte) (*BatteryInfo, error) {
	if len(payload) < batteryInfoDataSize {
		return nil, fmt.Errorf("%w: battery info needs %d bytes, got %d", ErrPayloadTooShort, batteryInfoDataSize, len(payload))
	}
	return &BatteryInfo{
		BMSType:         u16At(payload, 0x00),
		BMSSerialNumber: stringAt(payload, 0x02, 20),
		BatteryType:     u16At(payload, 0x16),
		SerialNumber:    stringAt(payload, 0x18, 20),
		RatedCapacity:   scaledAt(payload, 0x2C, 0.1),
		RatedVoltage:    scaledAt(payload, 0x2E, 0.1),
		CellCount:       u16At(payload, 0x30),
		ModuleCount:     u16At(payload, 0x32),
		BMSSWVersion:    scaledAt(payload, 0x34, 0.001),
		BMSHWVersion:    scaledAt(payload, 0x36, 0.001),
	}, nil
}

// the controller block carries four pack slots, each field kind grouped
// at a 2 byte stride
const batteryControllerSlots = 4

func DecodeBatteryControllerData(payload []byte) (*BatteryControllerData, error) {
	if len(payload) < batteryControllerDataSize {
		return nil, fmt.Errorf("%w: battery controller data needs %d bytes, got %d", ErrPayloadTooShort, batteryControllerDataSize, len(payload))
	}
	count := u16At(payload, 0x00)
	slots := int(count)
	if slots > batteryControllerSlots {
		slots = batteryControllerSlots
	}
	batteries := make([]BatteryUnitData, 0, slots)
	for i := 0; i < slots; i++ {
		batteries = append(batteries, BatteryUnitData{
			StateOfCharge: scaledAt(payload, 0x02+i*2, 0.01),
			StateOfHealth: scaledAt(payload, 0x0A+i*2, 0.01),
			Voltage:       scaledAt(payload, 0x12+i*2, 0.1),
			Current:       scaledIntAt(payload, 0x1A+i*2, 0.01),
			Temperature:   scaledIntAt(payload, 0x22+i*2, 0.1),
			CycleCount:    u16At(payload, 0x2A+i*2),
		})
	}
	return &BatteryControllerData{
		BatteryCount: count,
		Batteries:    batteries,
	}, nil
}

func DecodeConfigData(payload []byte) (*ConfigData, error) {
	if len(payload) < configDataSize {
		return nil, fmt.Errorf("%w: config data needs %d bytes, got %d", ErrPayloadTooShort, configDataSize, len(payload))
	}
	mode := AppMode(u16At(payload, 0x00))
	return &ConfigData{
		AppMode:    mode,
		AppModeStr: AppModeToString(mode),
	}, nil
}

// FormatWidth returns the number of payload bytes a register value format
// consumes. Formats follow the big-endian struct convention: ">" followed by
// one of b, B, h, H, i, I, l, L, q, Q.
func FormatWidth(format string) (int, error) {
	if !strings.HasPrefix(format, ">") || len(format) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrBadFormat, format)
	}
	switch format[1] {
	case 'b', 'B':
		return 1, nil
	case 'h', 'H':
		return 2, nil
	case 'i', 'I', 'l', 'L':
		return 4, nil
	case 'q', 'Q':
		return 8, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrBadFormat, format)
	}
}

// UnpackFormat decodes the leading value of data according to the format
// string, e.g. ">H" or ">i".
func UnpackFormat(format string, data []byte) (any, error) {
	width, err := FormatWidth(format)
	if err != nil {
		return nil, err
	}
	if len(data) < width {
		return nil, fmt.Errorf("%w: format %q needs %d bytes, got %d", ErrPayloadTooShort, format, width, len(data))
	}
	switch format[1] {
	case 'B':
		return data[0], nil
	case 'b':
		return int8(data[0]), nil
	case 'H':
		return binary.BigEndian.Uint16(data), nil
	case 'h':
		return int16(binary.BigEndian.Uint16(data)), nil
	case 'I', 'L':
		return binary.BigEndian.Uint32(data), nil
	case 'i', 'l':
		return int32(binary.BigEndian.Uint32(data)), nil
	case 'Q':
		return binary.BigEndian.Uint64(data), nil
	default:
		return int64(binary.BigEndian.Uint64(data)), nil
	}
}
