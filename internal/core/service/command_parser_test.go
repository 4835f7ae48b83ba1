package service

import (
	"testing"

	"saj2mqtt/internal/core/domain"
	"saj2mqtt/pkg/saj_mqtt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var parser = &DefaultCommandParser{
	Logger: zap.Must(zap.NewDevelopment()),
}

func TestParseReadRegisterCommand(t *testing.T) {

	require := require.New(t)

	cmd, err := parser.ParseReadRegister("0x4000", "2", "")
	require.NoError(err)
	require.EqualValues(0x4000, cmd.Start)
	require.EqualValues(2, cmd.Count)
	require.Equal("", cmd.Format)

	cmd, err = parser.ParseReadRegister("12871", "1", ">H")
	require.NoError(err)
	require.EqualValues(0x3247, cmd.Start)
	require.EqualValues(1, cmd.Count)
	require.Equal(">H", cmd.Format)

	// uppercase hex prefix and digits
	cmd, err = parser.ParseReadRegister("0X8F00", "0x1E", "")
	require.NoError(err)
	require.EqualValues(0x8F00, cmd.Start)
	require.EqualValues(0x1E, cmd.Count)
}

func TestParseReadRegisterCommandRejectsBadInput(t *testing.T) {

	require := require.New(t)

	_, err := parser.ParseReadRegister("forty", "1", "")
	require.Error(err)

	_, err = parser.ParseReadRegister("0x4000", "0", "")
	require.Error(err)

	_, err = parser.ParseReadRegister("0x4000", "0x101", "")
	require.Error(err)

	_, err = parser.ParseReadRegister("0x4000", "1", "H")
	require.ErrorIs(err, saj_mqtt.ErrBadFormat)

	_, err = parser.ParseReadRegister("0x4000", "1", ">Z")
	require.ErrorIs(err, saj_mqtt.ErrBadFormat)

	// a single register yields 2 bytes, not enough for a 4 byte format
	_, err = parser.ParseReadRegister("0x4000", "1", ">I")
	require.Error(err)
}

func TestParseWriteRegisterCommand(t *testing.T) {

	require := require.New(t)

	cmd, err := parser.ParseWriteRegister("0x3247", "2")
	require.NoError(err)
	require.EqualValues(0x3247, cmd.Register)
	require.EqualValues(2, cmd.Value)

	_, err = parser.ParseWriteRegister("0x3247", "65536")
	require.Error(err)

	_, err = parser.ParseWriteRegister("", "2")
	require.Error(err)
}

func TestParseSetAppModeCommand(t *testing.T) {

	require := require.New(t)

	cmd, err := parser.ParseSetAppMode("passive")
	require.NoError(err)
	require.Equal(saj_mqtt.AppModePassive, cmd.Mode)

	cmd, err = parser.ParseSetAppMode(" Self_Use ")
	require.NoError(err)
	require.Equal(saj_mqtt.AppModeSelfUse, cmd.Mode)

	_, err = parser.ParseSetAppMode("turbo")
	require.Error(err)
}

func TestParseRefreshCommand(t *testing.T) {

	require := require.New(t)

	cmd, err := parser.ParseRefresh("battery_info")
	require.NoError(err)
	require.Equal(saj_mqtt.DatasetBatteryInfo, cmd.Kind)

	_, err = parser.ParseRefresh("everything")
	require.Error(err)
}

func TestParseMQTTPayload(t *testing.T) {

	require := require.New(t)

	cmd, err := parser.ParseMQTTPayload(COMMAND_READ_REGISTER, "0x4000 2")
	require.NoError(err)
	read, ok := cmd.(*domain.ReadRegisterCommandRequest)
	require.True(ok)
	assert.EqualValues(t, 0x4000, read.Start)
	assert.EqualValues(t, 2, read.Count)

	cmd, err = parser.ParseMQTTPayload(COMMAND_READ_REGISTER, "0x4000 1 >h")
	require.NoError(err)
	read, ok = cmd.(*domain.ReadRegisterCommandRequest)
	require.True(ok)
	assert.Equal(t, ">h", read.Format)

	cmd, err = parser.ParseMQTTPayload(COMMAND_WRITE_REGISTER, "0x3247 3")
	require.NoError(err)
	write, ok := cmd.(*domain.WriteRegisterCommandRequest)
	require.True(ok)
	assert.EqualValues(t, 0x3247, write.Register)
	assert.EqualValues(t, 3, write.Value)

	cmd, err = parser.ParseMQTTPayload(COMMAND_APP_MODE, "backup")
	require.NoError(err)
	mode, ok := cmd.(*domain.SetAppModeCommandRequest)
	require.True(ok)
	assert.Equal(t, saj_mqtt.AppModeBackup, mode.Mode)

	cmd, err = parser.ParseMQTTPayload(COMMAND_REFRESH, "realtime")
	require.NoError(err)
	refresh, ok := cmd.(*domain.RefreshDatasetCommandRequest)
	require.True(ok)
	assert.Equal(t, saj_mqtt.DatasetRealtime, refresh.Kind)

	_, err = parser.ParseMQTTPayload(COMMAND_READ_REGISTER, "0x4000")
	require.Error(err)

	_, err = parser.ParseMQTTPayload(COMMAND_WRITE_REGISTER, "0x3247 1 2")
	require.Error(err)

	_, err = parser.ParseMQTTPayload("reboot", "")
	require.Error(err)
}

func TestFormatReadResult(t *testing.T) {

	require := require.New(t)

	value, err := parser.FormatReadResult("", []byte{0x0A, 0xFF})
	require.NoError(err)
	require.Equal("0a:ff", value)

	value, err = parser.FormatReadResult(">H", []byte{0xFF, 0xFF})
	require.NoError(err)
	require.Equal("65535", value)

	value, err = parser.FormatReadResult(">h", []byte{0xFF, 0xFF})
	require.NoError(err)
	require.Equal("-1", value)

	_, err = parser.FormatReadResult(">I", []byte{0x00, 0x01})
	require.ErrorIs(err, saj_mqtt.ErrPayloadTooShort)
}
