// Package feed fans encoded update batches out to clients. The Stream keeps an ordered,
// acknowledged log, the gRPC UpdateFeed relays it to services, and the websocket Hub
// relays it to browsers while collecting their intents.
package feed

import (
	"errors"
	"fmt"
	"sync"
)

// Envelope carries one encoded tick together with its sequencing metadata. Sequences
// start at 1 and grow by one per published frame.
type Envelope struct {
	Sequence uint64
	Tick     uint64
	Payload  []byte
}

// Config controls the retention policy for the stream log.
type Config struct {
	Retain int
}

// Default retention keeps the last 512 frames if no explicit value is provided.
const defaultRetention = 512

// Stream coordinates ordered frame delivery with at-least-once semantics per subscriber.
type Stream struct {
	mu          sync.Mutex
	nextSeq     uint64
	retention   int
	logOrder    []uint64
	logPayloads map[uint64]Envelope
	subscribers map[string]*subscriberState
}

// subscriberState persists acknowledgement state between transient connections.
type subscriberState struct {
	id      string
	pending []uint64
	lastAck uint64
	ch      chan Envelope
	active  bool
}

// Subscription exposes the frame channel and acknowledgement helpers for a subscriber.
type Subscription struct {
	id     string
	stream *Stream
	events <-chan Envelope
	once   sync.Once
}

var (
	// ErrOutOfOrderAck signals that a subscriber attempted to acknowledge future sequences.
	ErrOutOfOrderAck = errors.New("ack sequence must match the next pending frame")
	// ErrSubscriberActive is returned when a subscriber ID is already connected.
	ErrSubscriberActive = errors.New("subscriber already connected")
)

// NewStream constructs a stream using the provided configuration.
func NewStream(cfg Config) *Stream {
	retention := cfg.Retain
	if retention <= 0 {
		retention = defaultRetention
	}
	return &Stream{
		retention:   retention,
		logPayloads: make(map[uint64]Envelope),
		subscribers: make(map[string]*subscriberState),
	}
}

// Subscribe attaches the logical subscriber and replays every retained frame it has not
// acknowledged. A non-zero from skips the frames before that sequence.
func (s *Stream) Subscribe(subscriberID string, from uint64, buffer int) (*Subscription, error) {
	if s == nil {
		return nil, errors.New("nil stream")
	}
	if subscriberID == "" {
		return nil, errors.New("subscriber id must be provided")
	}
	if buffer <= 0 {
		buffer = 32
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.ensureSubscriberLocked(subscriberID)
	if state.active {
		return nil, fmt.Errorf("%w: %s", ErrSubscriberActive, subscriberID)
	}
	if from > 0 && from-1 > state.lastAck {
		state.lastAck = from - 1
	}

	//1.- Queue the replay ahead of live frames so delivery stays in sequence order.
	replay := s.collectReplayLocked(state)
	deliveries := s.prepareDeliveriesLocked(replay)
	ch := make(chan Envelope, len(deliveries)+buffer)
	for _, env := range deliveries {
		ch <- env
	}
	state.ch = ch
	state.active = true
	state.pending = replay
	return &Subscription{id: subscriberID, stream: s, events: ch}, nil
}

// ID names the subscriber.
func (s *Subscription) ID() string { return s.id }

// Events exposes the ordered delivery channel for the subscriber. It is never closed;
// select on the subscriber's context instead.
func (s *Subscription) Events() <-chan Envelope {
	if s == nil {
		return nil
	}
	return s.events
}

// Ack informs the stream that the subscriber processed the given sequence.
func (s *Subscription) Ack(sequence uint64) error {
	if s == nil || s.stream == nil {
		return errors.New("subscription closed")
	}
	return s.stream.ack(s.id, sequence)
}

// Close marks the subscription as inactive while preserving acknowledgement state.
func (s *Subscription) Close() {
	if s == nil || s.stream == nil {
		return
	}
	s.once.Do(func() {
		s.stream.deactivateSubscriber(s.id)
	})
}

func (s *Stream) ensureSubscriberLocked(subscriberID string) *subscriberState {
	state, ok := s.subscribers[subscriberID]
	if !ok {
		state = &subscriberState{id: subscriberID}
		s.subscribers[subscriberID] = state
	}
	return state
}

func (s *Stream) collectReplayLocked(state *subscriberState) []uint64 {
	//1.- A reconnecting subscriber gets every retained sequence greater than lastAck.
	var replay []uint64
	for _, seq := range s.logOrder {
		if seq > state.lastAck {
			replay = append(replay, seq)
		}
	}
	return replay
}

func (s *Stream) prepareDeliveriesLocked(sequences []uint64) []Envelope {
	deliveries := make([]Envelope, 0, len(sequences))
	for _, seq := range sequences {
		if payload, ok := s.logPayloads[seq]; ok {
			deliveries = append(deliveries, payload)
		}
	}
	return deliveries
}

// AppendFrame publishes the encoded batch of tick. The payload must not be modified
// afterwards.
func (s *Stream) AppendFrame(tick uint64, payload []byte) error {
	if s == nil {
		return errors.New("nil stream")
	}
	if len(payload) == 0 {
		return errors.New("frame payload required")
	}
	_, err := s.publish(tick, payload)
	return err
}

func (s *Stream) publish(tick uint64, payload []byte) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	seq := s.nextSeq
	envelope := Envelope{Sequence: seq, Tick: tick, Payload: payload}
	s.logPayloads[seq] = envelope
	s.logOrder = append(s.logOrder, seq)

	for _, state := range s.subscribers {
		state.pending = append(state.pending, seq)
		if !state.active || state.ch == nil {
			continue
		}
		//1.- Never block the game loop on a slow subscriber; it catches up on reconnect.
		select {
		case state.ch <- envelope:
		default:
		}
	}
	s.enforceRetentionLocked()
	return seq, nil
}

// LastSequence reports the newest published sequence.
func (s *Stream) LastSequence() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextSeq
}

// Retained reports how many frames the log currently holds.
func (s *Stream) Retained() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logOrder)
}

func (s *Stream) enforceRetentionLocked() {
	//1.- Keep only the newest frames; subscribers that lag further resume at the window.
	if len(s.logOrder) <= s.retention {
		return
	}
	drop := len(s.logOrder) - s.retention
	pruneBefore := s.logOrder[drop-1]
	for _, seq := range s.logOrder[:drop] {
		delete(s.logPayloads, seq)
	}
	s.logOrder = append([]uint64(nil), s.logOrder[drop:]...)

	//2.- Pending sequences that fell out of the log can never be delivered.
	for _, state := range s.subscribers {
		kept := state.pending[:0]
		for _, seq := range state.pending {
			if seq > pruneBefore {
				kept = append(kept, seq)
			}
		}
		state.pending = kept
		if state.lastAck < pruneBefore {
			state.lastAck = pruneBefore
		}
	}
}

func (s *Stream) ack(subscriberID string, sequence uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.subscribers[subscriberID]
	if !ok {
		return fmt.Errorf("unknown subscriber %q", subscriberID)
	}
	if len(state.pending) == 0 {
		if sequence <= state.lastAck {
			return nil
		}
		return ErrOutOfOrderAck
	}
	if sequence < state.pending[0] {
		return nil
	}
	if sequence != state.pending[0] {
		return ErrOutOfOrderAck
	}
	state.pending = state.pending[1:]
	state.lastAck = sequence
	return nil
}

func (s *Stream) deactivateSubscriber(subscriberID string) {
	s.mu.Lock()
	state, ok := s.subscribers[subscriberID]
	if ok {
		//1.- The channel is left open; a late publish or replay must never hit a closed one.
		state.active = false
		state.ch = nil
	}
	s.mu.Unlock()
}

// Remove forgets a subscriber and its acknowledgement state.
func (s *Stream) Remove(subscriberID string) {
	s.mu.Lock()
	delete(s.subscribers, subscriberID)
	s.mu.Unlock()
}
