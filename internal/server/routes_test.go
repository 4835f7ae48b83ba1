package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	adactor "saj2mqtt/internal/adapter/actor"
	coreactor "saj2mqtt/internal/core/actor"
	"saj2mqtt/internal/core/service"
	"saj2mqtt/internal/util"
	"saj2mqtt/pkg/saj_mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestServerRoutes(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())

	props := actor.PropsFromProducer(func() actor.Actor {
		return coreactor.NewMasterOfPuppetsActor(cfg, func() *adactor.InverterActor {
			inv, err := saj_mqtt.CreateTestInverterClient()
			if err != nil {
				panic(err)
			}
			return adactor.NewInverterActor(inv, &cfg, logger)
		}, func() *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, logger)
		}, logger)
	})
	pid, err := context.SpawnNamed(props, "master")
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(2 * time.Second)

	srv := &Server{
		port:           cfg.Port,
		rootContext:    context,
		masterActor:    pid,
		parser:         &service.DefaultCommandParser{},
		commandTimeout: 15 * time.Second,
	}
	handler := srv.RegisterRoutes()

	// health
	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "health_check: OK", rec.Body.String())

	// dataset snapshot
	req = httptest.NewRequest(http.MethodGet, "/api/dataset/realtime", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var snap datasetSnapshotResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Error(err)
	}
	assert.Equal(t, "realtime", snap.Dataset)
	assert.NotNil(t, snap.Data)

	// unknown dataset kind
	req = httptest.NewRequest(http.MethodGet, "/api/dataset/nonsense", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// read register, fake client returns bytes 00:01:02:03
	body := strings.NewReader(`{"register": "0x4000", "size": "2", "format": ">I"}`)
	req = httptest.NewRequest(http.MethodPost, "/api/register/read", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var readResp readRegisterResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &readResp); err != nil {
		t.Error(err)
	}
	assert.Equal(t, "0x4000", readResp.Register)
	assert.Equal(t, uint16(2), readResp.Count)
	assert.Equal(t, "66051", readResp.Value)

	// write register echoes register and value
	body = strings.NewReader(`{"register": "0x3247", "value": "2"}`)
	req = httptest.NewRequest(http.MethodPost, "/api/register/write", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var writeResp writeRegisterResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &writeResp); err != nil {
		t.Error(err)
	}
	assert.Equal(t, "0x3247", writeResp.Register)
	assert.Equal(t, uint16(2), writeResp.Value)

	// app mode
	body = strings.NewReader(`{"mode": "backup"}`)
	req = httptest.NewRequest(http.MethodPost, "/api/app_mode", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var modeResp appModeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &modeResp); err != nil {
		t.Error(err)
	}
	assert.Equal(t, "backup", modeResp.Mode)

	// bad app mode
	body = strings.NewReader(`{"mode": "turbo"}`)
	req = httptest.NewRequest(http.MethodPost, "/api/app_mode", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	context.Stop(pid)

	as.Shutdown()
}
