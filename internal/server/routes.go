package server

import (
	"fmt"
	"net/http"
	"time"

	"saj2mqtt/internal/core/domain"
	"saj2mqtt/pkg/saj_mqtt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type errorResponse struct {
	Error string `json:"error"`
}

type datasetSnapshotResponse struct {
	Dataset   string    `json:"dataset"`
	FetchedAt time.Time `json:"fetched_at"`
	Data      any       `json:"data"`
}

type refreshResponse struct {
	Dataset string `json:"dataset"`
}

type readRegisterRequest struct {
	Register string `json:"register"`
	Size     string `json:"size"`
	Format   string `json:"format"`
}

type readRegisterResponse struct {
	Register string `json:"register"`
	Count    uint16 `json:"count"`
	Value    string `json:"value"`
}

type writeRegisterRequest struct {
	Register string `json:"register"`
	Value    string `json:"value"`
}

type writeRegisterResponse struct {
	Register string `json:"register"`
	Value    uint16 `json:"value"`
}

type appModeRequest struct {
	Mode string `json:"mode"`
}

type appModeResponse struct {
	Mode string `json:"mode"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/api/dataset/:kind", s.DatasetSnapshotHandler)
	e.POST("/api/refresh/:kind", s.RefreshDatasetHandler)
	e.POST("/api/register/read", s.ReadRegisterHandler)
	e.POST("/api/register/write", s.WriteRegisterHandler)
	e.POST("/api/app_mode", s.AppModeHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) DatasetSnapshotHandler(c echo.Context) error {
	kind, err := saj_mqtt.ParseDatasetKind(c.Param("kind"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetDatasetSnapshotRequest{Kind: kind}, 10*time.Second).Result()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	}
	response, ok := res.(domain.GetDatasetSnapshotResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "unexpected response"})
	}
	if response.HasResponseError() {
		// dataset exists but has never been fetched
		return c.JSON(http.StatusNotFound, errorResponse{Error: response.GetResponseError().Error()})
	}
	return c.JSON(http.StatusOK, datasetSnapshotResponse{
		Dataset:   string(response.Kind),
		FetchedAt: response.SnapshotTime,
		Data:      response.Snapshot,
	})
}

func (s *Server) RefreshDatasetHandler(c echo.Context) error {
	cmd, err := s.parser.ParseRefresh(c.Param("kind"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	res, err := s.rootContext.RequestFuture(s.masterActor, cmd, s.commandTimeout).Result()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	}
	response, ok := res.(domain.RefreshDatasetCommandResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "unexpected response"})
	}
	if response.HasResponseError() {
		return c.JSON(http.StatusBadGateway, errorResponse{Error: response.GetResponseError().Error()})
	}
	return c.JSON(http.StatusOK, refreshResponse{Dataset: string(response.Kind)})
}

func (s *Server) ReadRegisterHandler(c echo.Context) error {
	var body readRegisterRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	cmd, err := s.parser.ParseReadRegister(body.Register, body.Size, body.Format)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	res, err := s.rootContext.RequestFuture(s.masterActor, cmd, s.commandTimeout).Result()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	}
	response, ok := res.(domain.ReadRegisterCommandResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "unexpected response"})
	}
	if response.HasResponseError() {
		return c.JSON(http.StatusBadGateway, errorResponse{Error: response.GetResponseError().Error()})
	}
	value, err := s.parser.FormatReadResult(response.Format, response.Data)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, readRegisterResponse{
		Register: fmt.Sprintf("0x%04x", response.Start),
		Count:    response.Count,
		Value:    value,
	})
}

func (s *Server) WriteRegisterHandler(c echo.Context) error {
	var body writeRegisterRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	cmd, err := s.parser.ParseWriteRegister(body.Register, body.Value)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	res, err := s.rootContext.RequestFuture(s.masterActor, cmd, s.commandTimeout).Result()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	}
	response, ok := res.(domain.WriteRegisterCommandResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "unexpected response"})
	}
	if response.HasResponseError() {
		return c.JSON(http.StatusBadGateway, errorResponse{Error: response.GetResponseError().Error()})
	}
	return c.JSON(http.StatusOK, writeRegisterResponse{
		Register: fmt.Sprintf("0x%04x", response.Register),
		Value:    response.Value,
	})
}

func (s *Server) AppModeHandler(c echo.Context) error {
	var body appModeRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	cmd, err := s.parser.ParseSetAppMode(body.Mode)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	res, err := s.rootContext.RequestFuture(s.masterActor, cmd, s.commandTimeout).Result()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	}
	response, ok := res.(domain.SetAppModeCommandResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "unexpected response"})
	}
	if response.HasResponseError() {
		return c.JSON(http.StatusBadGateway, errorResponse{Error: response.GetResponseError().Error()})
	}
	return c.JSON(http.StatusOK, appModeResponse{Mode: saj_mqtt.AppModeToString(response.Mode)})
}
