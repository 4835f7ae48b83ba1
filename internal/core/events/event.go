package events

import (
	. "saj2mqtt/internal/core/domain"

	"saj2mqtt/pkg/saj_mqtt"
)

func RealtimeDataToUpdateEvents(data *saj_mqtt.RealtimeData) []any {
	var events []any

	// Working mode
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_WORKING_MODE,
		},
		Value: data.WorkingModeStr,
	})
	// Heatsink temperature
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_HEATSINK_TEMPERATURE,
		},
		Value:    data.HeatsinkTemperature,
		Decimals: 1,
	})
	// Grid power
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_GRID_POWER,
		},
		Value:    data.Summary.Grid,
		Decimals: 0,
	})
	// Grid voltage
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_GRID_VOLTAGE,
		},
		Value:    data.Grid.Voltage,
		Decimals: 1,
	})
	// Grid frequency
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_GRID_FREQUENCY,
		},
		Value:    data.Grid.Frequency,
		Decimals: 2,
	})
	// Inverter power
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_INVERTER_POWER,
		},
		Value:    data.Summary.Inverter,
		Decimals: 0,
	})
	// PV power
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_PV_POWER,
		},
		Value:    data.Summary.Photovoltaic,
		Decimals: 0,
	})
	// PV1 power
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_PV1_POWER,
		},
		Value:    data.PV1.Power,
		Decimals: 0,
	})
	// PV2 power
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_PV2_POWER,
		},
		Value:    data.PV2.Power,
		Decimals: 0,
	})
	// System load power
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_SYSTEM_LOAD_POWER,
		},
		Value:    data.Summary.SystemLoad,
		Decimals: 0,
	})
	// Backup load power
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BACKUP_LOAD_POWER,
		},
		Value:    data.Summary.BackupLoad,
		Decimals: 0,
	})
	// Smart meter power
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_SMART_METER_POWER,
		},
		Value:    data.Summary.SmartMeterLoad,
		Decimals: 0,
	})
	// Battery power
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BATTERY_POWER,
		},
		Value:    data.Summary.Battery,
		Decimals: 0,
	})
	// Battery SoC
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BATTERY_SOC,
		},
		Value:    data.Battery.StateOfCharge,
		Decimals: 2,
	})
	// Battery temperature
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BATTERY_TEMPERATURE,
		},
		Value:    data.Battery.Temperature,
		Decimals: 1,
	})
	// Battery voltage
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BATTERY_VOLTAGE,
		},
		Value:    data.Battery.Voltage,
		Decimals: 1,
	})
	// Battery current
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BATTERY_CURRENT,
		},
		Value:    data.Battery.Current,
		Decimals: 2,
	})

	events = append(events, energyStatsToUpdateEvents(&data.Energy)...)

	return events
}

func energyStatsToUpdateEvents(stats *saj_mqtt.EnergyStats) []any {
	var events []any
	events = append(events, energyCounterUpdateEvents(ENERGY_ID_PHOTOVOLTAIC, stats.Photovoltaic)...)
	events = append(events, energyCounterUpdateEvents(ENERGY_ID_BATTERY_CHARGED, stats.BatteryCharged)...)
	events = append(events, energyCounterUpdateEvents(ENERGY_ID_BATTERY_DISCHARGED, stats.BatteryDischarged)...)
	events = append(events, energyCounterUpdateEvents(ENERGY_ID_SYSTEM_LOAD, stats.SystemLoad)...)
	events = append(events, energyCounterUpdateEvents(ENERGY_ID_BACKUP_LOAD, stats.BackupLoad)...)
	events = append(events, energyCounterUpdateEvents(ENERGY_ID_GRID_EXPORTED, stats.GridExported)...)
	events = append(events, energyCounterUpdateEvents(ENERGY_ID_GRID_IMPORTED, stats.GridImported)...)
	return events
}

func energyCounterUpdateEvents(idPrefix string, counter saj_mqtt.EnergyCounter) []any {
	return []any{
		FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: EnergySensorId(idPrefix, ENERGY_SCOPE_DAILY),
			},
			Value:    counter.Daily,
			Decimals: 2,
		},
		FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: EnergySensorId(idPrefix, ENERGY_SCOPE_TOTAL),
			},
			Value:    counter.Total,
			Decimals: 2,
		},
	}
}

func BatteryControllerDataToUpdateEvents(data *saj_mqtt.BatteryControllerData) []any {
	var events []any

	for i := range data.Batteries {
		pack := i + 1
		unit := data.Batteries[i]

		events = append(events, FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: BatteryPackSensorId(pack, PACK_SENSOR_SOC),
			},
			Value:    unit.StateOfCharge,
			Decimals: 2,
		})
		events = append(events, FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: BatteryPackSensorId(pack, PACK_SENSOR_SOH),
			},
			Value:    unit.StateOfHealth,
			Decimals: 2,
		})
		events = append(events, FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: BatteryPackSensorId(pack, PACK_SENSOR_TEMPERATURE),
			},
			Value:    unit.Temperature,
			Decimals: 1,
		})
		events = append(events, FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: BatteryPackSensorId(pack, PACK_SENSOR_CYCLES),
			},
			Value:    float64(unit.CycleCount),
			Decimals: 0,
		})
	}

	return events
}

func ConfigDataToUpdateEvents(config *saj_mqtt.ConfigData) []any {
	var events []any

	// App mode
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_APP_MODE,
		},
		Value: config.AppModeStr,
	})

	return events
}
