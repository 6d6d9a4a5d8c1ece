package feed

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"openfront/engine/internal/intent"
	"openfront/engine/internal/logging"
)

const (
	defaultPingInterval = 30 * time.Second
	defaultReplyBuffer  = 16
	writeWait           = 10 * time.Second
)

// IntentSink accepts validated intents for the next turn. intent.Queue implements it.
type IntentSink interface {
	Submit(in intent.Intent)
}

// HubConfig tunes the websocket endpoint.
type HubConfig struct {
	IntentRate   float64
	IntentBurst  int
	PingInterval time.Duration
}

// Reply is sent to a browser as a text message when one of its intents is refused.
type Reply struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
	Intent string `json:"intent,omitempty"`
}

// Hub is the websocket endpoint: it pushes binary update frames to browsers and queues
// the intents they send back.
type Hub struct {
	stream    *Stream
	sink      IntentSink
	validator *intent.Validator
	logger    *logging.Logger
	cfg       HubConfig
	upgrader  websocket.Upgrader

	mu      sync.Mutex
	clients map[string]struct{}
}

// NewHub wires the hub to the frame stream and the intent queue.
func NewHub(stream *Stream, sink IntentSink, validator *intent.Validator, cfg HubConfig, logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.L()
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	return &Hub{
		stream:    stream,
		sink:      sink,
		validator: validator,
		logger:    logger,
		cfg:       cfg,
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		clients:   make(map[string]struct{}),
	}
}

// Clients reports the number of connected browsers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request. The client names itself with the clientID query
// parameter and may resume the feed with from.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("clientID")
	if !intent.ValidID(clientID) {
		http.Error(w, "invalid clientID", http.StatusBadRequest)
		return
	}
	var from uint64
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid from", http.StatusBadRequest)
			return
		}
		from = parsed
	}
	if !h.register(clientID) {
		http.Error(w, "client already connected", http.StatusConflict)
		return
	}
	defer h.unregister(clientID)

	sub, err := h.stream.Subscribe("ws-"+clientID, from, subscriberBuffer)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", logging.String("client", clientID), logging.Error(err))
		return
	}
	defer conn.Close()

	logger := h.logger.With(logging.String("client", clientID))
	logger.Info("websocket client connected", logging.Uint64("from", from))

	replies := make(chan Reply, defaultReplyBuffer)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writeLoop(conn, sub, replies, done, logger)
	}()

	h.readLoop(conn, clientID, replies, logger)
	close(done)
	wg.Wait()
	h.validator.Forget(clientID)
	logger.Info("websocket client disconnected")
}

func (h *Hub) register(clientID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[clientID]; ok {
		return false
	}
	h.clients[clientID] = struct{}{}
	return true
}

func (h *Hub) unregister(clientID string) {
	h.mu.Lock()
	delete(h.clients, clientID)
	h.mu.Unlock()
}

// writeLoop owns every data write to conn.
func (h *Hub) writeLoop(conn *websocket.Conn, sub *Subscription, replies <-chan Reply, done <-chan struct{}, logger *logging.Logger) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case env := <-sub.Events():
			//1.- Frames go out as binary and are acknowledged once written.
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.BinaryMessage, env.Payload); err != nil {
				logger.Warn("websocket write failed", logging.Error(err))
				conn.Close()
				return
			}
			if err := sub.Ack(env.Sequence); err != nil {
				logger.Warn("websocket client fell behind", logging.Uint64("sequence", env.Sequence), logging.Error(err))
				conn.Close()
				return
			}
		case reply := <-replies:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(reply); err != nil {
				conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
		}
	}
}

func (h *Hub) readLoop(conn *websocket.Conn, clientID string, replies chan<- Reply, logger *logging.Logger) {
	limit := rate.Inf
	if h.cfg.IntentRate > 0 {
		limit = rate.Limit(h.cfg.IntentRate)
	}
	limiter := rate.NewLimiter(limit, max(1, h.cfg.IntentBurst))
	for {
		kind, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("websocket read failed", logging.Error(err))
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		reply, disconnect := h.handleIntent(clientID, raw, limiter)
		if reply != nil {
			select {
			case replies <- *reply:
			default:
			}
		}
		if disconnect {
			logger.Warn("websocket client disconnected for repeated invalid intents")
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too many invalid intents"), time.Now().Add(writeWait))
			return
		}
	}
}

// handleIntent decodes, limits and validates one message, queueing it when accepted.
func (h *Hub) handleIntent(clientID string, raw []byte, limiter *rate.Limiter) (*Reply, bool) {
	//1.- Rate limiting runs before decoding so floods stay cheap.
	if !limiter.Allow() {
		return &Reply{Type: "error", Reason: "rate_limited"}, false
	}

	//2.- Undecodable payloads and foreign client IDs count as violations of this client.
	in, err := intent.Decode(raw)
	if err != nil {
		decision := h.validator.Validate(intent.Intent{ClientID: clientID})
		return &Reply{Type: "error", Reason: string(decision.Reason)}, decision.Disconnect
	}
	if in.ClientID == "" {
		in.ClientID = clientID
	}
	if in.ClientID != clientID {
		decision := h.validator.Validate(intent.Intent{ClientID: clientID})
		return &Reply{Type: "error", Reason: string(intent.ValidationReasonClientID), Intent: string(in.Type)}, decision.Disconnect
	}

	decision := h.validator.Validate(in)
	if !decision.Accepted {
		return &Reply{Type: "error", Reason: string(decision.Reason), Intent: string(in.Type)}, decision.Disconnect
	}
	h.sink.Submit(in)
	return nil, false
}
