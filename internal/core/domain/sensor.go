package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"saj2mqtt/pkg/saj_mqtt"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE         = "bridge"
	SENSOR_ID_WORKING_MODE         = "working_mode"
	SENSOR_ID_APP_MODE             = "app_mode"
	SENSOR_ID_HEATSINK_TEMPERATURE = "heatsink_temperature"
	SENSOR_ID_GRID_POWER           = "grid_power"
	SENSOR_ID_GRID_VOLTAGE         = "grid_voltage"
	SENSOR_ID_GRID_FREQUENCY       = "grid_frequency"
	SENSOR_ID_INVERTER_POWER       = "inverter_power"
	SENSOR_ID_PV_POWER             = "pv_power"
	SENSOR_ID_PV1_POWER            = "pv1_power"
	SENSOR_ID_PV2_POWER            = "pv2_power"
	SENSOR_ID_SYSTEM_LOAD_POWER    = "system_load_power"
	SENSOR_ID_BACKUP_LOAD_POWER    = "backup_load_power"
	SENSOR_ID_SMART_METER_POWER    = "smart_meter_power"
	SENSOR_ID_BATTERY_POWER        = "battery_power"
	SENSOR_ID_BATTERY_SOC          = "battery_soc"
	SENSOR_ID_BATTERY_TEMPERATURE  = "battery_temperature"
	SENSOR_ID_BATTERY_VOLTAGE      = "battery_voltage"
	SENSOR_ID_BATTERY_CURRENT      = "battery_current"
	PACK_SENSOR_SOC                = "soc"
	PACK_SENSOR_SOH                = "soh"
	PACK_SENSOR_TEMPERATURE        = "temperature"
	PACK_SENSOR_CYCLES             = "cycles"
	ENERGY_ID_PHOTOVOLTAIC         = "energy_photovoltaic"
	ENERGY_ID_BATTERY_CHARGED      = "energy_battery_charged"
	ENERGY_ID_BATTERY_DISCHARGED   = "energy_battery_discharged"
	ENERGY_ID_SYSTEM_LOAD          = "energy_system_load"
	ENERGY_ID_BACKUP_LOAD          = "energy_backup_load"
	ENERGY_ID_GRID_EXPORTED        = "energy_grid_exported"
	ENERGY_ID_GRID_IMPORTED        = "energy_grid_imported"
	ENERGY_SCOPE_DAILY             = "daily"
	ENERGY_SCOPE_TOTAL             = "total"
	STATE_CLASS_MEASUREMENT        = "measurement"
	STATE_CLASS_TOTAL_INCREASING   = "total_increasing"
	DEVICE_CLASS_BATTERY           = "battery"
	DEVICE_CLASS_CURRENT           = "current"
	DEVICE_CLASS_ENERGY            = "energy"
	DEVICE_CLASS_FREQUENCY         = "frequency"
	DEVICE_CLASS_POWER             = "power"
	DEVICE_CLASS_TEMPERATURE       = "temperature"
	DEVICE_CLASS_VOLTAGE           = "voltage"
	DEVICE_CLASS_CONNECTIVITY      = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC        = "diagnostic"
	ENTITY_CLASS_CONFIG            = "config"
	SENSOR_TYPE_SENSOR             = "sensor"
	SENSOR_TYPE_BINARY             = "binary_sensor"
)

// energyCounterDescriptor describes the pair of daily/total sensors exposed
// for one accumulated energy counter.
type energyCounterDescriptor struct {
	idPrefix string
	name     string
}

var energyCounterDescriptors = []energyCounterDescriptor{
	{idPrefix: ENERGY_ID_PHOTOVOLTAIC, name: "Photovoltaic energy"},
	{idPrefix: ENERGY_ID_BATTERY_CHARGED, name: "Battery charged energy"},
	{idPrefix: ENERGY_ID_BATTERY_DISCHARGED, name: "Battery discharged energy"},
	{idPrefix: ENERGY_ID_SYSTEM_LOAD, name: "System load energy"},
	{idPrefix: ENERGY_ID_BACKUP_LOAD, name: "Backup load energy"},
	{idPrefix: ENERGY_ID_GRID_EXPORTED, name: "Grid exported energy"},
	{idPrefix: ENERGY_ID_GRID_IMPORTED, name: "Grid imported energy"},
}

func EnergySensorId(idPrefix, scope string) string {
	return fmt.Sprintf("%s_%s", idPrefix, scope)
}

func BatteryPackSensorId(pack int, field string) string {
	return fmt.Sprintf("battery_pack_%d_%s", pack, field)
}

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("saj2mqtt_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "ACasal",
		Model:        "saj2mqtt",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("saj2mqtt %s", md5HashShort(baseTopic)),
	}
}

func InverterDevice(info *saj_mqtt.InverterInfo) Device {
	return Device{
		Id:           fmt.Sprintf("saj_inverter_%s", md5HashShort(info.SerialNumber)),
		Version:      fmt.Sprintf("%.3f", info.DisplaySWVersion),
		Manufacturer: "SAJ",
		Model:        info.ProductCode,
		Name:         fmt.Sprintf("SAJ %s %s", info.ProductCode, md5HashShort(info.SerialNumber)),
	}
}

func BatteryDevice(info *saj_mqtt.BatteryInfo, inverterDevice Device) Device {
	return Device{
		Id:           fmt.Sprintf("saj_battery_%s", md5HashShort(info.SerialNumber)),
		Version:      fmt.Sprintf("%.3f", info.BMSSWVersion),
		Manufacturer: "SAJ",
		Model:        fmt.Sprintf("Battery type %d", info.BatteryType),
		Name:         fmt.Sprintf("SAJ Battery %s", md5HashShort(info.SerialNumber)),
		ViaDevice:    inverterDevice.Id,
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Bridge connection state
	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

func InverterBaseSensors(inverterDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Working mode
	sensors = append(sensors, GenericSensor{
		Device:     inverterDevice,
		Id:         SENSOR_ID_WORKING_MODE,
		SensorType: SENSOR_TYPE_SENSOR,
		Name:       "Working mode",
		UniqueId:   uniqueId(inverterDevice.Id, SENSOR_ID_WORKING_MODE),
	})

	// App mode
	sensors = append(sensors, GenericSensor{
		Device:         inverterDevice,
		Id:             SENSOR_ID_APP_MODE,
		SensorType:     SENSOR_TYPE_SENSOR,
		Name:           "App mode",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		Icon:           "mdi:cog",
		UniqueId:       uniqueId(inverterDevice.Id, SENSOR_ID_APP_MODE),
	})

	// Heatsink temperature
	sensors = append(sensors, GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_HEATSINK_TEMPERATURE,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Heatsink temperature",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_TEMPERATURE,
		UnitOfMeasurement: "°C",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_HEATSINK_TEMPERATURE),
	})

	// Grid power
	sensors = append(sensors, GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_GRID_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Grid power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		Icon:              "mdi:transmission-tower",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_GRID_POWER),
	})

	// Grid voltage
	sensors = append(sensors, GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_GRID_VOLTAGE,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Grid voltage",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_VOLTAGE,
		UnitOfMeasurement: "V",
		EnabledByDefault:  optionalBool(false),
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_GRID_VOLTAGE),
	})

	// Grid frequency
	sensors = append(sensors, GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_GRID_FREQUENCY,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Grid frequency",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_FREQUENCY,
		UnitOfMeasurement: "Hz",
		Icon:              "mdi:sine-wave",
		EnabledByDefault:  optionalBool(false),
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_GRID_FREQUENCY),
	})

	// Inverter power
	sensors = append(sensors, GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_INVERTER_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Inverter power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_INVERTER_POWER),
	})

	// PV power
	sensors = append(sensors, GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_PV_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "PV power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		Icon:              "mdi:solar-power",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_PV_POWER),
	})

	// PV1 power
	sensors = append(sensors, GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_PV1_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "PV1 power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		Icon:              "mdi:solar-panel",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_PV1_POWER),
	})

	// PV2 power
	sensors = append(sensors, GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_PV2_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "PV2 power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		Icon:              "mdi:solar-panel",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_PV2_POWER),
	})

	// System load power
	sensors = append(sensors, GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_SYSTEM_LOAD_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "System load power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		Icon:              "mdi:home-lightning-bolt",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_SYSTEM_LOAD_POWER),
	})

	// Backup load power
	sensors = append(sensors, GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_BACKUP_LOAD_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Backup load power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		EnabledByDefault:  optionalBool(false),
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_BACKUP_LOAD_POWER),
	})

	// Smart meter power
	sensors = append(sensors, GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_SMART_METER_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Smart meter power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		Icon:              "mdi:meter-electric",
		EnabledByDefault:  optionalBool(false),
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_SMART_METER_POWER),
	})

	return sensors
}

func InverterEnergySensors(inverterDevice Device) []GenericSensor {

	var sensors []GenericSensor

	for _, desc := range energyCounterDescriptors {
		dailyId := EnergySensorId(desc.idPrefix, ENERGY_SCOPE_DAILY)
		sensors = append(sensors, GenericSensor{
			Device:            inverterDevice,
			Id:                dailyId,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              fmt.Sprintf("%s today", desc.name),
			StateClass:        STATE_CLASS_TOTAL_INCREASING,
			DeviceClass:       DEVICE_CLASS_ENERGY,
			UnitOfMeasurement: "kWh",
			UniqueId:          uniqueId(inverterDevice.Id, dailyId),
		})

		totalId := EnergySensorId(desc.idPrefix, ENERGY_SCOPE_TOTAL)
		sensors = append(sensors, GenericSensor{
			Device:            inverterDevice,
			Id:                totalId,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              fmt.Sprintf("%s total", desc.name),
			StateClass:        STATE_CLASS_TOTAL_INCREASING,
			DeviceClass:       DEVICE_CLASS_ENERGY,
			UnitOfMeasurement: "kWh",
			UniqueId:          uniqueId(inverterDevice.Id, totalId),
		})
	}

	return sensors
}

func BatteryBaseSensors(batteryDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Battery power
	sensors = append(sensors, GenericSensor{
		Device:            batteryDevice,
		Id:                SENSOR_ID_BATTERY_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		UniqueId:          uniqueId(batteryDevice.Id, SENSOR_ID_BATTERY_POWER),
	})

	// Battery SoC
	sensors = append(sensors, GenericSensor{
		Device:            batteryDevice,
		Id:                SENSOR_ID_BATTERY_SOC,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery SoC",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_BATTERY,
		UnitOfMeasurement: "%",
		UniqueId:          uniqueId(batteryDevice.Id, SENSOR_ID_BATTERY_SOC),
	})

	// Battery temperature
	sensors = append(sensors, GenericSensor{
		Device:            batteryDevice,
		Id:                SENSOR_ID_BATTERY_TEMPERATURE,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery temperature",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_TEMPERATURE,
		UnitOfMeasurement: "°C",
		UniqueId:          uniqueId(batteryDevice.Id, SENSOR_ID_BATTERY_TEMPERATURE),
	})

	// Battery voltage
	sensors = append(sensors, GenericSensor{
		Device:            batteryDevice,
		Id:                SENSOR_ID_BATTERY_VOLTAGE,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery voltage",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_VOLTAGE,
		UnitOfMeasurement: "V",
		EnabledByDefault:  optionalBool(false),
		UniqueId:          uniqueId(batteryDevice.Id, SENSOR_ID_BATTERY_VOLTAGE),
	})

	// Battery current
	sensors = append(sensors, GenericSensor{
		Device:            batteryDevice,
		Id:                SENSOR_ID_BATTERY_CURRENT,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery current",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_CURRENT,
		UnitOfMeasurement: "A",
		EnabledByDefault:  optionalBool(false),
		UniqueId:          uniqueId(batteryDevice.Id, SENSOR_ID_BATTERY_CURRENT),
	})

	return sensors
}

func BatteryPackSensors(batteryDevice Device, packCount int) []GenericSensor {

	var sensors []GenericSensor

	for pack := 1; pack <= packCount; pack++ {
		socId := BatteryPackSensorId(pack, PACK_SENSOR_SOC)
		sensors = append(sensors, GenericSensor{
			Device:            batteryDevice,
			Id:                socId,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              fmt.Sprintf("Pack %d SoC", pack),
			StateClass:        STATE_CLASS_MEASUREMENT,
			DeviceClass:       DEVICE_CLASS_BATTERY,
			UnitOfMeasurement: "%",
			UniqueId:          uniqueId(batteryDevice.Id, socId),
		})

		sohId := BatteryPackSensorId(pack, PACK_SENSOR_SOH)
		sensors = append(sensors, GenericSensor{
			Device:            batteryDevice,
			Id:                sohId,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              fmt.Sprintf("Pack %d SoH", pack),
			StateClass:        STATE_CLASS_MEASUREMENT,
			UnitOfMeasurement: "%",
			Icon:              "mdi:battery-heart-variant",
			EntityCategory:    ENTITY_CLASS_DIAGNOSTIC,
			UniqueId:          uniqueId(batteryDevice.Id, sohId),
		})

		tempId := BatteryPackSensorId(pack, PACK_SENSOR_TEMPERATURE)
		sensors = append(sensors, GenericSensor{
			Device:            batteryDevice,
			Id:                tempId,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              fmt.Sprintf("Pack %d temperature", pack),
			StateClass:        STATE_CLASS_MEASUREMENT,
			DeviceClass:       DEVICE_CLASS_TEMPERATURE,
			UnitOfMeasurement: "°C",
			UniqueId:          uniqueId(batteryDevice.Id, tempId),
		})

		cyclesId := BatteryPackSensorId(pack, PACK_SENSOR_CYCLES)
		sensors = append(sensors, GenericSensor{
			Device:         batteryDevice,
			Id:             cyclesId,
			SensorType:     SENSOR_TYPE_SENSOR,
			Name:           fmt.Sprintf("Pack %d cycles", pack),
			StateClass:     STATE_CLASS_MEASUREMENT,
			Icon:           "mdi:battery-sync",
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
			UniqueId:       uniqueId(batteryDevice.Id, cyclesId),
		})
	}

	return sensors
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}

func optionalBool(value bool) *bool {
	return &value
}
