package saj_mqtt

import "time"

func CreateTestInverterClient() (InverterClient, error) {
	return &TestInverterClient{}, nil
}

type TestInverterClient struct {
	realtimeHandler func(*RealtimeData)
}

func (c *TestInverterClient) Open() error {
	return nil
}

func (c *TestInverterClient) Close() error {
	return nil
}

func (c *TestInverterClient) Validate() error {
	return nil
}

func (c *TestInverterClient) SetRealtimeDataHandler(handler func(*RealtimeData)) {
	c.realtimeHandler = handler
}

// PushRealtimeData simulates an unsolicited realtime frame from the
// inverter.
func (c *TestInverterClient) PushRealtimeData() {
	if c.realtimeHandler != nil {
		data, _ := c.GetRealtimeData()
		c.realtimeHandler(data)
	}
}

func (c *TestInverterClient) GetRealtimeData() (*RealtimeData, error) {
	return &RealtimeData{
		Time:                time.Date(2024, 6, 12, 13, 45, 30, 0, time.Local),
		WorkingMode:         WorkingModeNormal,
		WorkingModeStr:      WorkingModeToString(WorkingModeNormal),
		HeatsinkTemperature: 41.2,
		EarthLeakageCurrent: 6,
		Grid: GridData{
			Voltage:       233.1,
			Current:       5.41,
			Frequency:     50.02,
			DCComponent:   0.012,
			PowerActive:   -1250,
			PowerApparent: 1262,
			PowerFactor:   -99.8,
		},
		Inverter: InverterACData{
			Voltage:          233.4,
			Current:          4.52,
			Frequency:        50.02,
			PowerActive:      1043,
			PowerApparent:    1055,
			BusMasterVoltage: 402.5,
			BusSlaveVoltage:  398.1,
		},
		Output: OutputData{
			Voltage:       232.9,
			Current:       1.65,
			Frequency:     50.02,
			DCVoltage:     0.008,
			PowerActive:   382,
			PowerApparent: 384,
		},
		Battery: BatteryACData{
			Voltage:         51.4,
			Current:         12.05,
			ControlCurrent1: 12.05,
			ControlCurrent2: 0,
			Power:           620,
			Temperature:     24.5,
			StateOfCharge:   76.55,
		},
		PV1: PVArrayData{Voltage: 361.2, Current: 4.31, Power: 1557},
		PV2: PVArrayData{Voltage: 355.8, Current: 4.12, Power: 1466},
		Directions: FlowDirections{
			Photovoltaic: FlowOutgoing,
			Battery:      FlowCharging,
			Grid:         FlowPutting,
			Output:       FlowOutgoing,
		},
		Summary: PowerSummary{
			SystemLoad:         1153,
			SmartMeterLoad:     770,
			Photovoltaic:       3023,
			Battery:            -620,
			Grid:               -1250,
			GridApparent:       -1262,
			Inverter:           1043,
			InverterApparent:   1055,
			BackupLoad:         382,
			BackupLoadApparent: 384,
		},
		Energy: EnergyStats{
			Photovoltaic:      EnergyCounter{Daily: 12.34, Monthly: 231.87, Yearly: 2410.55, Total: 6355.21},
			BatteryCharged:    EnergyCounter{Daily: 4.31, Monthly: 86.12, Yearly: 910.04, Total: 2214.77},
			BatteryDischarged: EnergyCounter{Daily: 3.76, Monthly: 81.44, Yearly: 880.91, Total: 2150.34},
			SystemLoad:        EnergyCounter{Daily: 9.87, Monthly: 198.65, Yearly: 2105.12, Total: 5120.5},
			BackupLoad:        EnergyCounter{Daily: 1.22, Monthly: 30.11, Yearly: 322.09, Total: 801.63},
			GridExported:      EnergyCounter{Daily: 5.05, Monthly: 95.77, Yearly: 1002.31, Total: 2608.4},
			GridImported:      EnergyCounter{Daily: 2.11, Monthly: 55.92, Yearly: 640.18, Total: 1702.96},
		},
	}, nil
}

func (c *TestInverterClient) GetInverterInfo() (*InverterInfo, error) {
	return &InverterInfo{
		DeviceType:          2,
		SubType:             1,
		CommProtocolVersion: 1.002,
		SerialNumber:        "H1S2602J2119E01121",
		ProductCode:         "H1-5K-S2",
		DisplaySWVersion:    1.075,
		MasterCtrlSWVersion: 1.062,
		SlaveCtrlSWVersion:  1.031,
		DisplayHWVersion:    1.001,
		CtrlHWVersion:       1.002,
		PowerHWVersion:      1.004,
	}, nil
}

func (c *TestInverterClient) GetBatteryInfo() (*BatteryInfo, error) {
	return &BatteryInfo{
		BMSType:         1,
		BMSSerialNumber: "B2S1602J2048E00412",
		BatteryType:     1,
		SerialNumber:    "B2S1602J2048E00413",
		RatedCapacity:   100,
		RatedVoltage:    51.2,
		CellCount:       16,
		ModuleCount:     2,
		BMSSWVersion:    1.011,
		BMSHWVersion:    1.002,
	}, nil
}

func (c *TestInverterClient) GetBatteryControllerData() (*BatteryControllerData, error) {
	return &BatteryControllerData{
		BatteryCount: 2,
		Batteries: []BatteryUnitData{
			{StateOfCharge: 76.55, StateOfHealth: 99.2, Voltage: 51.4, Current: 6.03, Temperature: 24.5, CycleCount: 112},
			{StateOfCharge: 76.4, StateOfHealth: 98.9, Voltage: 51.3, Current: 6.02, Temperature: 24.1, CycleCount: 117},
		},
	}, nil
}

func (c *TestInverterClient) GetConfigData() (*ConfigData, error) {
	return &ConfigData{
		AppMode:    AppModeSelfUse,
		AppModeStr: AppModeToString(AppModeSelfUse),
	}, nil
}

func (c *TestInverterClient) ReadRegisters(start uint16, count uint16) ([]byte, error) {
	data := make([]byte, int(count)*2)
	for i := range data {
		data[i] = byte(i)
	}
	return data, nil
}

func (c *TestInverterClient) WriteRegister(register uint16, value uint16) error {
	return nil
}

func (c *TestInverterClient) SetAppMode(mode AppMode) error {
	return nil
}
