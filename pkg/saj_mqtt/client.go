package saj_mqtt

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	topicDataTransmission    = "data_transmission"
	topicDataTransmissionRsp = "data_transmission_rsp"
	topicRealtimeData        = "realtime_data"
)

const defaultRequestTimeout = 10 * time.Second

// ClientInstrument observes protocol operation timings.
type ClientInstrument struct {
	RecordTime func(fnName string, elapsed time.Duration)
}

func RecordTimer(name string, instrument []ClientInstrument) func() {
	if instrument == nil {
		return func() {}
	}

	start := time.Now()
	return func() {
		duration := time.Since(start)
		for i := range instrument {
			instrument[i].RecordTime(name, duration)
		}
	}
}

type pendingRequest struct {
	requestID uint16
	rspType   uint16
	issuedAt  time.Time
	done      chan *responseFrame
}

type mqttInverterClient struct {
	transport    Transport
	serialNumber string
	timeout      time.Duration
	retries      int
	logger       *zap.Logger
	instrument   []ClientInstrument

	// reqMu serializes exchanges: a single request is in flight at any
	// instant, waiting callers are served in arrival order.
	reqMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[uint16]*pendingRequest

	realtimeHandler func(*RealtimeData)
}

var _ InverterClient = (*mqttInverterClient)(nil)

func traceLoggerInstrumentation(logger *zap.Logger) *ClientInstrument {
	return &ClientInstrument{
		RecordTime: func(fnName string, elapsed time.Duration) {
			logger.Debug("protocol op", zap.String("op", fnName), zap.Int64("millis", elapsed.Milliseconds()))
		},
	}
}

// CreateMQTTInverterClient builds the register protocol client for the
// inverter identified by serialNumber. requestTimeout bounds a single
// attempt; a request is retried requestRetries extra times with the
// exact same bytes before giving up.
func CreateMQTTInverterClient(transport Transport, serialNumber string, requestTimeout time.Duration,
	requestRetries int, logger *zap.Logger, instrumentation *ClientInstrument) (InverterClient, error) {
	if serialNumber == "" {
		return nil, errors.New("saj: serial number is required")
	}
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	if requestRetries < 0 {
		requestRetries = 0
	}

	// instrumentation
	var inst []ClientInstrument
	logInst := traceLoggerInstrumentation(logger.With(zap.String("target", "inverter"), zap.String("serial", serialNumber)))
	if logInst != nil {
		inst = append(inst, *logInst)
	}
	if instrumentation != nil {
		inst = append(inst, *instrumentation)
	}

	return &mqttInverterClient{
		transport:    transport,
		serialNumber: serialNumber,
		timeout:      requestTimeout,
		retries:      requestRetries,
		logger:       logger,
		instrument:   inst,
		pending:      make(map[uint16]*pendingRequest),
	}, nil
}

func (c *mqttInverterClient) Open() error {
	if err := c.transport.Open(); err != nil {
		return err
	}
	if err := c.transport.Subscribe(c.topic(topicDataTransmissionRsp), func(_ string, payload []byte) {
		c.handleResponseFrame(payload)
	}); err != nil {
		return err
	}
	if c.realtimeHandler != nil {
		if err := c.transport.Subscribe(c.topic(topicRealtimeData), func(_ string, payload []byte) {
			c.handleRealtimeFrame(payload)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (c *mqttInverterClient) Close() error {
	return c.transport.Close()
}

func (c *mqttInverterClient) Validate() error {
	// a config register read doubles as device liveness probe
	_, err := c.ReadRegisters(RegAppMode, 1)
	return err
}

func (c *mqttInverterClient) SetRealtimeDataHandler(handler func(*RealtimeData)) {
	c.realtimeHandler = handler
}

func (c *mqttInverterClient) topic(suffix string) string {
	return fmt.Sprintf("saj/%s/%s", c.serialNumber, suffix)
}

// exchange performs one correlated request/response roundtrip. Retries
// resend the exact same bytes under the same request id, so a late
// answer to an earlier attempt still completes the exchange.
func (c *mqttInverterClient) exchange(content []byte, rspType uint16) (*responseFrame, error) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	requestID := uint16(rand.Uint32())
	frame := buildRequestFrame(requestID, uint16(rand.Uint32()), content)

	pending := &pendingRequest{
		requestID: requestID,
		rspType:   rspType,
		issuedAt:  time.Now(),
		done:      make(chan *responseFrame, 1),
	}
	c.pendingMu.Lock()
	c.pending[requestID] = pending
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, requestID)
		c.pendingMu.Unlock()
	}()

	attempts := c.retries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			c.logger.Warn("retrying request", zap.String("request_id", fmt.Sprintf("0x%04x", requestID)),
				zap.Int("attempt", attempt), zap.Int("max_attempts", attempts))
		}
		if err := c.transport.Publish(c.topic(topicDataTransmission), frame); err != nil {
			return nil, err
		}
		select {
		case rsp := <-pending.done:
			return rsp, nil
		case <-time.After(c.timeout):
		}
	}
	return nil, fmt.Errorf("%w: request 0x%04x got no valid response in %d attempts", ErrRequestTimeout, requestID, attempts)
}

func (c *mqttInverterClient) handleResponseFrame(raw []byte) {
	rsp, err := parseResponseFrame(raw)
	if err != nil {
		if errors.Is(err, ErrFrameIncomplete) {
			c.logger.Debug("ignoring truncated frame", zap.Int("bytes", len(raw)))
		} else {
			c.logger.Warn("dropping corrupt frame", zap.Error(err))
		}
		return
	}
	c.pendingMu.Lock()
	pending := c.pending[rsp.requestID]
	c.pendingMu.Unlock()
	if pending == nil {
		c.logger.Debug("response matches no pending request",
			zap.String("request_id", fmt.Sprintf("0x%04x", rsp.requestID)))
		return
	}
	if rsp.rspType != pending.rspType {
		c.logger.Warn("response type mismatch",
			zap.String("request_id", fmt.Sprintf("0x%04x", rsp.requestID)),
			zap.String("rsp_type", fmt.Sprintf("0x%04x", rsp.rspType)))
		return
	}
	select {
	case pending.done <- rsp:
	default:
	}
}

// handleRealtimeFrame decodes the realtime_data frames the inverter
// pushes on its own schedule. The payload is the realtime register
// block behind a sequence/timestamp envelope.
func (c *mqttInverterClient) handleRealtimeFrame(raw []byte) {
	handler := c.realtimeHandler
	if handler == nil {
		return
	}
	if len(raw) < realtimePushHeaderSize+realtimeDataSize {
		c.logger.Debug("ignoring short realtime frame", zap.Int("bytes", len(raw)))
		return
	}
	data, err := DecodeRealtimeData(raw[realtimePushHeaderSize:])
	if err != nil {
		c.logger.Warn("could not decode realtime frame", zap.Error(err))
		return
	}
	handler(data)
}

func (c *mqttInverterClient) ReadRegisters(start uint16, count uint16) ([]byte, error) {
	defer RecordTimer("ReadRegisters", c.instrument)()
	data := make([]byte, 0, int(count)*2)
	for _, chunk := range splitReadChunks(start, count) {
		payload, err := c.readChunk(chunk.start, chunk.count)
		if err != nil {
			return nil, err
		}
		data = append(data, payload...)
	}
	return data, nil
}

func (c *mqttInverterClient) readChunk(start uint16, count uint16) ([]byte, error) {
	rsp, err := c.exchange(readRegistersContent(start, count), rspReadRegisters)
	if err != nil {
		return nil, err
	}
	payload, err := parseReadBody(rsp.body)
	if err != nil {
		return nil, err
	}
	if len(payload) != int(count)*2 {
		return nil, fmt.Errorf("%w: chunk 0x%04x returned %d bytes, expected %d",
			ErrFrameInvalid, start, len(payload), int(count)*2)
	}
	return payload, nil
}

func (c *mqttInverterClient) WriteRegister(register uint16, value uint16) error {
	defer RecordTimer("WriteRegister", c.instrument)()
	content := writeRegisterContent(register, value)
	rsp, err := c.exchange(content, rspWriteRegister)
	if err != nil {
		return err
	}
	ackValue, ackCRC, err := parseWriteBody(rsp.body)
	if err != nil {
		return err
	}
	if ackValue != value || ackCRC != crc16(content) {
		return fmt.Errorf("%w: register 0x%04x acked value 0x%04x, wrote 0x%04x",
			ErrWriteNotAcknowledged, register, ackValue, value)
	}
	return nil
}

func (c *mqttInverterClient) SetAppMode(mode AppMode) error {
	return c.WriteRegister(RegAppMode, uint16(mode))
}

func (c *mqttInverterClient) readDataset(kind DatasetKind) ([]byte, error) {
	start, count, err := datasetSpan(kind)
	if err != nil {
		return nil, err
	}
	return c.ReadRegisters(start, count)
}

func (c *mqttInverterClient) GetRealtimeData() (*RealtimeData, error) {
	payload, err := c.readDataset(DatasetRealtime)
	if err != nil {
		return nil, err
	}
	return DecodeRealtimeData(payload)
}

func (c *mqttInverterClient) GetInverterInfo() (*InverterInfo, error) {
	payload, err := c.readDataset(DatasetInverterInfo)
	if err != nil {
		return nil, err
	}
	return DecodeInverterInfo(payload)
}

func (c *mqttInverterClient) GetBatteryInfo() (*BatteryInfo, error) {
	payload, err := c.readDataset(DatasetBatteryInfo)
	if err != nil {
		return nil, err
	}
	return DecodeBatteryInfo(payload)
}

func (c *mqttInverterClient) GetBatteryControllerData() (*BatteryControllerData, error) {
	payload, err := c.readDataset(DatasetBatteryController)
	if err != nil {
		return nil, err
	}
	return DecodeBatteryControllerData(payload)
}

func (c *mqttInverterClient) GetConfigData() (*ConfigData, error) {
	payload, err := c.readDataset(DatasetConfig)
	if err != nil {
		return nil, err
	}
	return DecodeConfigData(payload)
}
