package saj_mqtt

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func put16(payload []byte, offset int, v uint16) {
	binary.BigEndian.PutUint16(payload[offset:], v)
}

func put32(payload []byte, offset int, v uint32) {
	binary.BigEndian.PutUint32(payload[offset:], v)
}

func TestDecodeRealtimeData(t *testing.T) {
	assert := assert.New(t)

	payload := make([]byte, realtimeDataSize)
	put16(payload, 0x00, 2024)
	payload[0x02] = 6
	payload[0x03] = 12
	payload[0x04] = 13
	payload[0x05] = 45
	payload[0x06] = 30
	put16(payload, 0x08, 2)
	put16(payload, 0x20, 409)
	put16(payload, 0x24, 6)
	put16(payload, 0x62, 0x0064)
	put16(payload, 0x64, 0xFE0C)
	put16(payload, 0x66, 5002)
	put16(payload, 0x6A, 0xFB1E)
	put16(payload, 0x6C, 1262)
	put16(payload, 0x6E, 0xFC1A)
	put16(payload, 0xCE, 4025)
	put16(payload, 0xD2, 514)
	put16(payload, 0xDE, 7655)
	put16(payload, 0xE2, 3612)
	put16(payload, 0xE4, 431)
	put16(payload, 0xE6, 1557)
	put16(payload, 0x12A, 1)
	put16(payload, 0x12C, 1)
	put16(payload, 0x12E, 0)
	put16(payload, 0x130, 1)
	put16(payload, 0x140, 1153)
	put16(payload, 0x142, 0xFCFE)
	put32(payload, 0x17E, 1234)
	put32(payload, 0x18A, 635521)
	put32(payload, 0x18E, 431)

	data, err := DecodeRealtimeData(payload)
	assert.Nil(err)

	assert.Equal(time.Date(2024, time.June, 12, 13, 45, 30, 0, time.Local), data.Time)
	assert.Equal(WorkingModeNormal, data.WorkingMode)
	assert.Equal(WorkingModeNormalStr, data.WorkingModeStr)
	assert.InDelta(40.9, data.HeatsinkTemperature, 1e-9)
	assert.InDelta(6, data.EarthLeakageCurrent, 1e-9)

	// raw 0x0064 with a 0.1 scale reads as 10.0
	assert.InDelta(10.0, data.Grid.Voltage, 1e-9)
	assert.InDelta(-5.0, data.Grid.Current, 1e-9)
	assert.InDelta(50.02, data.Grid.Frequency, 1e-9)
	assert.InDelta(-1250, data.Grid.PowerActive, 1e-9)
	assert.InDelta(1262, data.Grid.PowerApparent, 1e-9)
	assert.InDelta(-99.8, data.Grid.PowerFactor, 1e-9)

	assert.InDelta(402.5, data.Inverter.BusMasterVoltage, 1e-9)
	assert.InDelta(51.4, data.Battery.Voltage, 1e-9)
	assert.InDelta(76.55, data.Battery.StateOfCharge, 1e-9)
	assert.InDelta(361.2, data.PV1.Voltage, 1e-9)
	assert.InDelta(4.31, data.PV1.Current, 1e-9)
	assert.InDelta(1557, data.PV1.Power, 1e-9)

	assert.Equal(FlowOutgoing, data.Directions.Photovoltaic)
	assert.Equal(FlowCharging, data.Directions.Battery)
	assert.Equal(FlowFetching, data.Directions.Grid)
	assert.Equal(FlowOutgoing, data.Directions.Output)

	assert.InDelta(1153, data.Summary.SystemLoad, 1e-9)
	assert.InDelta(-770, data.Summary.SmartMeterLoad, 1e-9)

	assert.InDelta(12.34, data.Energy.Photovoltaic.Daily, 1e-9)
	assert.InDelta(6355.21, data.Energy.Photovoltaic.Total, 1e-9)
	assert.InDelta(4.31, data.Energy.BatteryCharged.Daily, 1e-9)
}

func TestDecodeRealtimeDataTooShort(t *testing.T) {
	assert := assert.New(t)

	_, err := DecodeRealtimeData(make([]byte, realtimeDataSize-1))
	assert.ErrorIs(err, ErrPayloadTooShort)
}

func TestDecodeInverterInfo(t *testing.T) {
	assert := assert.New(t)

	payload := make([]byte, inverterInfoDataSize)
	put16(payload, 0x00, 2)
	put16(payload, 0x02, 1)
	put16(payload, 0x04, 1002)
	copy(payload[0x06:], "H1S2602J2119E01121")
	copy(payload[0x1A:], "H1-5K-S2")
	put16(payload, 0x2E, 1075)
	put16(payload, 0x30, 1062)
	put16(payload, 0x38, 1004)

	info, err := DecodeInverterInfo(payload)
	assert.Nil(err)
	assert.Equal(uint16(2), info.DeviceType)
	assert.InDelta(1.002, info.CommProtocolVersion, 1e-9)
	assert.Equal("H1S2602J2119E01121", info.SerialNumber)
	assert.Equal("H1-5K-S2", info.ProductCode)
	assert.InDelta(1.075, info.DisplaySWVersion, 1e-9)
	assert.InDelta(1.062, info.MasterCtrlSWVersion, 1e-9)
	assert.InDelta(1.004, info.PowerHWVersion, 1e-9)

	_, err = DecodeInverterInfo(payload[:0x10])
	assert.ErrorIs(err, ErrPayloadTooShort)
}

func TestDecodeBatteryInfo(t *testing.T) {
	assert := assert.New(t)

	payload := make([]byte, batteryInfoDataSize)
	put16(payload, 0x00, 1)
	copy(payload[0x02:], "B2S1602J2048E00412")
	put16(payload, 0x16, 1)
	copy(payload[0x18:], "B2S1602J2048E00413")
	put16(payload, 0x2C, 1000)
	put16(payload, 0x2E, 512)
	put16(payload, 0x30, 16)
	put16(payload, 0x32, 2)
	put16(payload, 0x34, 1011)

	info, err := DecodeBatteryInfo(payload)
	assert.Nil(err)
	assert.Equal("B2S1602J2048E00412", info.BMSSerialNumber)
	assert.Equal("B2S1602J2048E00413", info.SerialNumber)
	assert.InDelta(100, info.RatedCapacity, 1e-9)
	assert.InDelta(51.2, info.RatedVoltage, 1e-9)
	assert.Equal(uint16(16), info.CellCount)
	assert.InDelta(1.011, info.BMSSWVersion, 1e-9)
}

func TestDecodeBatteryControllerData(t *testing.T) {
	assert := assert.New(t)

	payload := make([]byte, batteryControllerDataSize)
	put16(payload, 0x00, 2)
	put16(payload, 0x02, 7655)
	put16(payload, 0x04, 7640)
	put16(payload, 0x0A, 9920)
	put16(payload, 0x12, 514)
	put16(payload, 0x14, 513)
	put16(payload, 0x1A, 603)
	put16(payload, 0x1C, 0xFDA6)
	put16(payload, 0x22, 245)
	put16(payload, 0x2A, 112)
	put16(payload, 0x2C, 117)

	ctrl, err := DecodeBatteryControllerData(payload)
	assert.Nil(err)
	assert.Equal(uint16(2), ctrl.BatteryCount)
	assert.Len(ctrl.Batteries, 2)
	assert.InDelta(76.55, ctrl.Batteries[0].StateOfCharge, 1e-9)
	assert.InDelta(99.2, ctrl.Batteries[0].StateOfHealth, 1e-9)
	assert.InDelta(51.4, ctrl.Batteries[0].Voltage, 1e-9)
	assert.InDelta(6.03, ctrl.Batteries[0].Current, 1e-9)
	assert.InDelta(24.5, ctrl.Batteries[0].Temperature, 1e-9)
	assert.Equal(uint16(112), ctrl.Batteries[0].CycleCount)
	assert.InDelta(51.3, ctrl.Batteries[1].Voltage, 1e-9)
	assert.InDelta(-6.02, ctrl.Batteries[1].Current, 1e-9)
	assert.Equal(uint16(117), ctrl.Batteries[1].CycleCount)

	// a count beyond the block capacity only yields the four slots
	put16(payload, 0x00, 9)
	ctrl, err = DecodeBatteryControllerData(payload)
	assert.Nil(err)
	assert.Equal(uint16(9), ctrl.BatteryCount)
	assert.Len(ctrl.Batteries, 4)
}

func TestDecodeConfigData(t *testing.T) {
	assert := assert.New(t)

	cfg, err := DecodeConfigData([]byte{0x00, 0x02})
	assert.Nil(err)
	assert.Equal(AppModeBackup, cfg.AppMode)
	assert.Equal(AppModeBackupStr, cfg.AppModeStr)

	_, err = DecodeConfigData([]byte{0x02})
	assert.ErrorIs(err, ErrPayloadTooShort)
}

func TestAppModeStrings(t *testing.T) {
	assert := assert.New(t)

	mode, err := ParseAppMode("BACKUP")
	assert.Nil(err)
	assert.Equal(AppModeBackup, mode)

	mode, err = ParseAppMode(" time_of_use ")
	assert.Nil(err)
	assert.Equal(AppModeTimeOfUse, mode)

	_, err = ParseAppMode("turbo")
	assert.NotNil(err)

	assert.Equal("backup", AppModeToString(AppModeBackup))
	assert.Equal("unknown(7)", AppModeToString(AppMode(7)))
}

func TestParseDatasetKind(t *testing.T) {
	assert := assert.New(t)

	kind, err := ParseDatasetKind("Battery_Controller")
	assert.Nil(err)
	assert.Equal(DatasetBatteryController, kind)

	_, err = ParseDatasetKind("weather")
	assert.NotNil(err)
}

func TestUnpackFormat(t *testing.T) {
	assert := assert.New(t)

	v, err := UnpackFormat(">H", []byte{0x12, 0x34})
	assert.Nil(err)
	assert.Equal(uint16(0x1234), v)

	v, err = UnpackFormat(">h", []byte{0xFF, 0xFE})
	assert.Nil(err)
	assert.Equal(int16(-2), v)

	v, err = UnpackFormat(">B", []byte{0xFE})
	assert.Nil(err)
	assert.Equal(byte(0xFE), v)

	v, err = UnpackFormat(">b", []byte{0xFE})
	assert.Nil(err)
	assert.Equal(int8(-2), v)

	v, err = UnpackFormat(">I", []byte{0x00, 0x01, 0x00, 0x00})
	assert.Nil(err)
	assert.Equal(uint32(0x10000), v)

	v, err = UnpackFormat(">q", []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	assert.Nil(err)
	assert.Equal(int64(-1), v)

	// extra bytes beyond the format width are allowed
	v, err = UnpackFormat(">H", []byte{0x00, 0x64, 0xAA, 0xBB})
	assert.Nil(err)
	assert.Equal(uint16(100), v)

	_, err = UnpackFormat("H", []byte{0x12, 0x34})
	assert.ErrorIs(err, ErrBadFormat)

	_, err = UnpackFormat(">Z", []byte{0x12, 0x34})
	assert.ErrorIs(err, ErrBadFormat)

	_, err = UnpackFormat(">HH", []byte{0x12, 0x34, 0x56, 0x78})
	assert.ErrorIs(err, ErrBadFormat)

	_, err = UnpackFormat(">I", []byte{0x12, 0x34})
	assert.ErrorIs(err, ErrPayloadTooShort)
}
