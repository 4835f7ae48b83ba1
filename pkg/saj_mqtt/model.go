package saj_mqtt

import (
	"fmt"
	"strings"
	"time"
)

// DatasetKind names a register group polled as a unit.
type DatasetKind string

const (
	DatasetRealtime          DatasetKind = "realtime"
	DatasetInverterInfo      DatasetKind = "inverter_info"
	DatasetBatteryInfo       DatasetKind = "battery_info"
	DatasetBatteryController DatasetKind = "battery_controller"
	DatasetConfig            DatasetKind = "config"
)

// DatasetKinds lists every dataset in canonical order.
var DatasetKinds = []DatasetKind{
	DatasetRealtime,
	DatasetInverterInfo,
	DatasetBatteryInfo,
	DatasetBatteryController,
	DatasetConfig,
}

func ParseDatasetKind(s string) (DatasetKind, error) {
	kind := DatasetKind(strings.ToLower(strings.TrimSpace(s)))
	switch kind {
	case DatasetRealtime, DatasetInverterInfo, DatasetBatteryInfo,
		DatasetBatteryController, DatasetConfig:
		return kind, nil
	}
	return "", fmt.Errorf("saj: unknown dataset kind %q", s)
}

// app modes
type AppMode uint16

const (
	AppModeSelfUse   AppMode = 0
	AppModeTimeOfUse AppMode = 1
	AppModeBackup    AppMode = 2
	AppModePassive   AppMode = 3
)

// app mode strings
const (
	AppModeSelfUseStr   = "self_use"
	AppModeTimeOfUseStr = "time_of_use"
	AppModeBackupStr    = "backup"
	AppModePassiveStr   = "passive"
	AppModeUnknownStr   = "unknown"
)

func AppModeToString(mode AppMode) string {
	switch mode {
	case AppModeSelfUse:
		return AppModeSelfUseStr
	case AppModeTimeOfUse:
		return AppModeTimeOfUseStr
	case AppModeBackup:
		return AppModeBackupStr
	case AppModePassive:
		return AppModePassiveStr
	default:
		return fmt.Sprintf("%s(%d)", AppModeUnknownStr, uint16(mode))
	}
}

func ParseAppMode(s string) (AppMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case AppModeSelfUseStr:
		return AppModeSelfUse, nil
	case AppModeTimeOfUseStr:
		return AppModeTimeOfUse, nil
	case AppModeBackupStr:
		return AppModeBackup, nil
	case AppModePassiveStr:
		return AppModePassive, nil
	}
	return 0, fmt.Errorf("saj: unknown app mode %q", s)
}

type WorkingMode uint16

const (
	WorkingModeWait   WorkingMode = 1
	WorkingModeNormal WorkingMode = 2
	WorkingModeFault  WorkingMode = 3
	WorkingModeUpdate WorkingMode = 4
)

const (
	WorkingModeWaitStr    = "wait"
	WorkingModeNormalStr  = "normal"
	WorkingModeFaultStr   = "fault"
	WorkingModeUpdateStr  = "update"
	WorkingModeUnknownStr = "unknown"
)

func WorkingModeToString(mode WorkingMode) string {
	switch mode {
	case WorkingModeWait:
		return WorkingModeWaitStr
	case WorkingModeNormal:
		return WorkingModeNormalStr
	case WorkingModeFault:
		return WorkingModeFaultStr
	case WorkingModeUpdate:
		return WorkingModeUpdateStr
	default:
		return fmt.Sprintf("%s(%d)", WorkingModeUnknownStr, uint16(mode))
	}
}

type GridData struct {
	Voltage       float64 `json:"voltage"`
	Current       float64 `json:"current"`
	Frequency     float64 `json:"frequency"`
	DCComponent   float64 `json:"dc_component"`
	PowerActive   float64 `json:"power_active"`
	PowerApparent float64 `json:"power_apparent"`
	PowerFactor   float64 `json:"power_factor"`
}

type InverterACData struct {
	Voltage          float64 `json:"voltage"`
	Current          float64 `json:"current"`
	Frequency        float64 `json:"frequency"`
	PowerActive      float64 `json:"power_active"`
	PowerApparent    float64 `json:"power_apparent"`
	BusMasterVoltage float64 `json:"bus_master_voltage"`
	BusSlaveVoltage  float64 `json:"bus_slave_voltage"`
}

type OutputData struct {
	Voltage       float64 `json:"voltage"`
	Current       float64 `json:"current"`
	Frequency     float64 `json:"frequency"`
	DCVoltage     float64 `json:"dc_voltage"`
	PowerActive   float64 `json:"power_active"`
	PowerApparent float64 `json:"power_apparent"`
}

type BatteryACData struct {
	Voltage         float64 `json:"voltage"`
	Current         float64 `json:"current"`
	ControlCurrent1 float64 `json:"control_current_1"`
	ControlCurrent2 float64 `json:"control_current_2"`
	Power           float64 `json:"power"`
	Temperature     float64 `json:"temperature"`
	StateOfCharge   float64 `json:"state_of_charge"`
}

type PVArrayData struct {
	Voltage float64 `json:"voltage"`
	Current float64 `json:"current"`
	Power   float64 `json:"power"`
}

// flow direction strings
const (
	FlowIngoing     = "ingoing"
	FlowOutgoing    = "outgoing"
	FlowCharging    = "charging"
	FlowDischarging = "discharging"
	FlowFetching    = "fetching"
	FlowPutting     = "putting"
)

// FlowDirections reports which way energy moves on each leg.
type FlowDirections struct {
	Photovoltaic string `json:"photovoltaic"`
	Battery      string `json:"battery"`
	Grid         string `json:"grid"`
	Output       string `json:"output"`
}

type PowerSummary struct {
	SystemLoad         float64 `json:"system_load"`
	SmartMeterLoad     float64 `json:"smart_meter_load"`
	Photovoltaic       float64 `json:"photovoltaic"`
	Battery            float64 `json:"battery"`
	Grid               float64 `json:"grid"`
	GridApparent       float64 `json:"grid_apparent"`
	Inverter           float64 `json:"inverter"`
	InverterApparent   float64 `json:"inverter_apparent"`
	BackupLoad         float64 `json:"backup_load"`
	BackupLoadApparent float64 `json:"backup_load_apparent"`
}

// EnergyCounter holds one accumulated energy figure over the four
// spanning periods the inverter tracks, in kWh.
type EnergyCounter struct {
	Daily   float64 `json:"daily"`
	Monthly float64 `json:"monthly"`
	Yearly  float64 `json:"yearly"`
	Total   float64 `json:"total"`
}

type EnergyStats struct {
	Photovoltaic      EnergyCounter `json:"photovoltaic"`
	BatteryCharged    EnergyCounter `json:"battery_charged"`
	BatteryDischarged EnergyCounter `json:"battery_discharged"`
	SystemLoad        EnergyCounter `json:"system_load"`
	BackupLoad        EnergyCounter `json:"backup_load"`
	GridExported      EnergyCounter `json:"grid_exported"`
	GridImported      EnergyCounter `json:"grid_imported"`
}

type RealtimeData struct {
	Time                time.Time   `json:"time"`
	WorkingMode         WorkingMode `json:"working_mode"`
	WorkingModeStr      string      `json:"working_mode_str"`
	HeatsinkTemperature float64     `json:"heatsink_temperature"`
	EarthLeakageCurrent float64     `json:"earth_leakage_current"`

	Grid     GridData       `json:"grid"`
	Inverter InverterACData `json:"inverter"`
	Output   OutputData     `json:"output"`
	Battery  BatteryACData  `json:"battery"`
	PV1      PVArrayData    `json:"pv1"`
	PV2      PVArrayData    `json:"pv2"`

	Directions FlowDirections `json:"directions"`
	Summary    PowerSummary   `json:"summary"`
	Energy     EnergyStats    `json:"energy"`
}

type InverterInfo struct {
	DeviceType          uint16  `json:"device_type"`
	SubType             uint16  `json:"sub_type"`
	CommProtocolVersion float64 `json:"comm_protocol_version"`
	SerialNumber        string  `json:"serial_number"`
	ProductCode         string  `json:"product_code"`
	DisplaySWVersion    float64 `json:"display_sw_version"`
	MasterCtrlSWVersion float64 `json:"master_ctrl_sw_version"`
	SlaveCtrlSWVersion  float64 `json:"slave_ctrl_sw_version"`
	DisplayHWVersion    float64 `json:"display_hw_version"`
	CtrlHWVersion       float64 `json:"ctrl_hw_version"`
	PowerHWVersion      float64 `json:"power_hw_version"`
}

type BatteryInfo struct {
	BMSType         uint16  `json:"bms_type"`
	BMSSerialNumber string  `json:"bms_serial_number"`
	BatteryType     uint16  `json:"battery_type"`
	SerialNumber    string  `json:"serial_number"`
	RatedCapacity   float64 `json:"rated_capacity"`
	RatedVoltage    float64 `json:"rated_voltage"`
	CellCount       uint16  `json:"cell_count"`
	ModuleCount     uint16  `json:"module_count"`
	BMSSWVersion    float64 `json:"bms_sw_version"`
	BMSHWVersion    float64 `json:"bms_hw_version"`
}

// BatteryUnitData is the controller view of one battery pack slot.
type BatteryUnitData struct {
	StateOfCharge float64 `json:"state_of_charge"`
	StateOfHealth float64 `json:"state_of_health"`
	Voltage       float64 `json:"voltage"`
	Current       float64 `json:"current"`
	Temperature   float64 `json:"temperature"`
	CycleCount    uint16  `json:"cycle_count"`
}

type BatteryControllerData struct {
	BatteryCount uint16            `json:"battery_count"`
	Batteries    []BatteryUnitData `json:"batteries"`
}

type ConfigData struct {
	AppMode    AppMode `json:"app_mode"`
	AppModeStr string  `json:"app_mode_str"`
}

// InverterClient talks to a SAJ inverter comm module over its MQTT
// register protocol.
type InverterClient interface {
	Open() error
	Close() error
	Validate() error

	GetRealtimeData() (*RealtimeData, error)
	GetInverterInfo() (*InverterInfo, error)
	GetBatteryInfo() (*BatteryInfo, error)
	GetBatteryControllerData() (*BatteryControllerData, error)
	GetConfigData() (*ConfigData, error)

	ReadRegisters(start uint16, count uint16) ([]byte, error)
	WriteRegister(register uint16, value uint16) error
	SetAppMode(mode AppMode) error

	// SetRealtimeDataHandler installs a callback for realtime frames the
	// inverter pushes on its own. Must be called before Open.
	SetRealtimeDataHandler(handler func(*RealtimeData))
}
