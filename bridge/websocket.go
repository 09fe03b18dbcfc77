package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/gorilla/websocket"
	"github.com/kisa-team/gonka-wallet/coding"
	"github.com/kisa-team/gonka-wallet/log"
)

const (
	jsonRPCVersion = "2.0"

	methodSessionApprove = "wc_sessionApprove"
	methodSessionReject  = "wc_sessionReject"
	methodSessionRespond = "wc_sessionRespond"

	defaultWriteTimeout = 10 * time.Second
)

var ErrTransportClosed = errors.New("relay connection closed")

// rpcFrame is a JSON-RPC 2.0 message exchanged with the relay.
type rpcFrame struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ProtocolError  `json:"error,omitempty"`
}

// eventParams is the params object of an inbound event frame.
type eventParams struct {
	ID     uint64          `json:"id"`
	Topic  string          `json:"topic"`
	Params json.RawMessage `json:"params"`
}

type approveParams struct {
	ID         uint64               `json:"id"`
	Namespaces map[string]Namespace `json:"namespaces"`
}

type rejectParams struct {
	ID     uint64         `json:"id"`
	Reason *ProtocolError `json:"reason"`
}

type respondParams struct {
	Topic    string       `json:"topic"`
	Response *rpcResponse `json:"response"`
}

type rpcResponse struct {
	ID      uint64         `json:"id"`
	JSONRPC string         `json:"jsonrpc"`
	Result  interface{}    `json:"result,omitempty"`
	Error   *ProtocolError `json:"error,omitempty"`
}

// WebsocketTransport talks to a relay over a single websocket connection. Reads happen on the caller
// of Next, writes may come from any goroutine.
type WebsocketTransport struct {
	conn      *websocket.Conn
	writeLock sync.Mutex
	nextID    atomic.Uint64
	closed    atomic.Bool

	writeTimeout time.Duration
	logger       *log.Logger
}

var (
	_ Transport   = (*WebsocketTransport)(nil)
	_ EventSource = (*WebsocketTransport)(nil)
)

// DialWebsocket connects to the relay, retrying the dial with a fixed delay.
func DialWebsocket(ctx context.Context, url string, attempts uint, delay time.Duration, logger *log.Logger) (*WebsocketTransport, error) {
	logger = logger.ApplyPrefix("🔌 [relay]").With("url", url)

	var conn *websocket.Conn
	err := retry.Do(func() error {
		var err error
		conn, _, err = websocket.DefaultDialer.DialContext(ctx, url, nil)
		return err
	},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("failed to connect to relay, will retry", "attempt", n+1, "error", err.Error())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	logger.Info("connected to relay")
	return NewWebsocketTransport(conn, logger), nil
}

// NewWebsocketTransport wraps an open connection.
func NewWebsocketTransport(conn *websocket.Conn, logger *log.Logger) *WebsocketTransport {
	return &WebsocketTransport{
		conn:         conn,
		writeTimeout: defaultWriteTimeout,
		logger:       logger,
	}
}

// Next returns the next inbound event. Frames that are not events, like acknowledgements of our own
// requests, are skipped.
func (t *WebsocketTransport) Next(ctx context.Context) (Event, error) {
	// Unblocks the read below once ctx ends.
	stop := context.AfterFunc(ctx, func() {
		_ = t.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return Event{}, ctx.Err()
			}
			if t.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return Event{}, ErrTransportClosed
			}
			return Event{}, err
		}

		// A frame that does not decode only loses itself, the connection stays usable.
		var frame rpcFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			t.logger.Warn("dropping malformed frame", "error", err.Error(), "fingerprint", coding.PayloadFingerprint(data))
			continue
		}

		if frame.Method == "" {
			if frame.Error != nil {
				t.logger.Warn("relay refused a request", "id", frame.ID, "code", frame.Error.Code, "message", frame.Error.Message)
			}
			continue
		}

		var params eventParams
		if len(frame.Params) > 0 {
			if err := json.Unmarshal(frame.Params, &params); err != nil {
				t.logger.Warn("dropping event with malformed params", "method", frame.Method, "error", err.Error())
				continue
			}
		}

		return Event{
			Type:   frame.Method,
			ID:     params.ID,
			Topic:  params.Topic,
			Params: params.Params,
		}, nil
	}
}

func (t *WebsocketTransport) Approve(ctx context.Context, proposalID uint64, namespaces map[string]Namespace) error {
	return t.send(ctx, methodSessionApprove, approveParams{ID: proposalID, Namespaces: namespaces})
}

func (t *WebsocketTransport) Reject(ctx context.Context, proposalID uint64, reason *ProtocolError) error {
	return t.send(ctx, methodSessionReject, rejectParams{ID: proposalID, Reason: reason})
}

func (t *WebsocketTransport) Respond(ctx context.Context, topic string, id uint64, result interface{}, rpcErr *ProtocolError) error {
	response := &rpcResponse{
		ID:      id,
		JSONRPC: jsonRPCVersion,
		Result:  result,
		Error:   rpcErr,
	}
	return t.send(ctx, methodSessionRespond, respondParams{Topic: topic, Response: response})
}

func (t *WebsocketTransport) send(ctx context.Context, method string, params interface{}) error {
	if t.closed.Load() {
		return ErrTransportClosed
	}

	encoded, err := json.Marshal(params)
	if err != nil {
		return err
	}
	frame := rpcFrame{
		JSONRPC: jsonRPCVersion,
		ID:      t.nextID.Add(1),
		Method:  method,
		Params:  encoded,
	}

	deadline := time.Now().Add(t.writeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	t.writeLock.Lock()
	defer t.writeLock.Unlock()

	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := t.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("write %s: %w", method, err)
	}

	t.logger.Debug("sent frame", "method", method, "id", frame.ID)
	return nil
}

// Close sends a close frame and closes the connection.
func (t *WebsocketTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	t.writeLock.Lock()
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = t.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))
	t.writeLock.Unlock()

	return t.conn.Close()
}
