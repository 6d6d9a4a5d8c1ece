package simulation

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"openfront/engine/internal/game"
	"openfront/engine/internal/intent"
	"openfront/engine/internal/logging"
	"openfront/engine/internal/wire"
)

// ErrTurnOutOfOrder is returned when a turn does not match the next tick of the game.
var ErrTurnOutOfOrder = errors.New("simulation: turn out of order")

// InvariantError wraps a panic raised while executing a tick. The game is unusable after
// one is returned.
type InvariantError struct {
	Tick  game.Tick
	Value any
	Stack []byte
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("simulation: invariant violated at tick %d: %v", e.Tick, e.Value)
}

// TurnSink receives every turn before it is executed.
type TurnSink interface {
	AppendTurn(turn intent.Turn) error
}

// FrameSink receives the encoded update batch of every executed tick.
type FrameSink interface {
	AppendFrame(tick uint64, payload []byte) error
}

// TurnResult is the outcome of one executed turn.
type TurnResult struct {
	Tick     game.Tick
	Updates  *game.GameUpdates
	Frame    []byte
	Duration time.Duration
}

// RunnerOption customises a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger overrides the logger. The game logger is used otherwise.
func WithRunnerLogger(logger *logging.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTurnSinks registers sinks that record the incoming turns.
func WithTurnSinks(sinks ...TurnSink) RunnerOption {
	return func(r *Runner) { r.turnSinks = append(r.turnSinks, sinks...) }
}

// WithFrameSinks registers sinks that receive encoded frames.
func WithFrameSinks(sinks ...FrameSink) RunnerOption {
	return func(r *Runner) { r.frameSinks = append(r.frameSinks, sinks...) }
}

// WithMonitor shares a tick monitor with the runner.
func WithMonitor(monitor *TickMonitor) RunnerOption {
	return func(r *Runner) {
		if monitor != nil {
			r.monitor = monitor
		}
	}
}

// Runner executes turns against a single game. It is safe for concurrent use but turns
// are applied strictly one at a time.
type Runner struct {
	mu         sync.Mutex
	game       *game.Game
	executor   *intent.Executor
	logger     *logging.Logger
	monitor    *TickMonitor
	turnSinks  []TurnSink
	frameSinks []FrameSink
	failed     error
}

// NewRunner wraps g.
func NewRunner(g *game.Game, opts ...RunnerOption) *Runner {
	r := &Runner{game: g, logger: g.Logger(), monitor: NewTickMonitor()}
	for _, opt := range opts {
		opt(r)
	}
	r.executor = intent.NewExecutor(g, r.logger)
	return r
}

// Game exposes the wrapped game. Callers must not mutate it while turns run.
func (r *Runner) Game() *game.Game { return r.game }

// Err reports the error that halted the runner, if any.
func (r *Runner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

// Monitor exposes the tick statistics.
func (r *Runner) Monitor() *TickMonitor { return r.monitor }

// ExecuteTurn applies one turn and advances the game by exactly one tick.
func (r *Runner) ExecuteTurn(turn intent.Turn) (*TurnResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failed != nil {
		return nil, r.failed
	}
	tick := r.game.Ticks()
	if turn.TurnNumber != tick {
		return nil, fmt.Errorf("%w: got turn %d, expected %d", ErrTurnOutOfOrder, turn.TurnNumber, tick)
	}

	//1.- Record the turn first so a crash still leaves the input that caused it.
	for _, sink := range r.turnSinks {
		if err := sink.AppendTurn(turn); err != nil {
			r.logger.Warn("turn sink failed", logging.Int("turn", turn.TurnNumber), logging.Error(err))
		}
	}

	//2.- Translate and execute under a recover so invariant panics surface as errors.
	started := time.Now()
	updates, err := r.step(turn)
	if err != nil {
		r.failed = err
		r.logger.Error("game halted", logging.Int("tick", tick), logging.Error(err))
		return nil, err
	}
	elapsed := time.Since(started)

	//3.- Encode once and fan the frame out to every sink.
	frame, err := wire.Encode(updates)
	if err != nil {
		return nil, fmt.Errorf("encode tick %d: %w", tick, err)
	}
	for _, sink := range r.frameSinks {
		if err := sink.AppendFrame(uint64(tick), frame); err != nil {
			r.logger.Warn("frame sink failed", logging.Int("tick", tick), logging.Error(err))
		}
	}

	r.monitor.Observe(elapsed, updates.Len(), r.game.ExecutionCount())
	return &TurnResult{Tick: tick, Updates: updates, Frame: frame, Duration: elapsed}, nil
}

func (r *Runner) step(turn intent.Turn) (updates *game.GameUpdates, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = &InvariantError{Tick: turn.TurnNumber, Value: recovered, Stack: debug.Stack()}
		}
	}()
	r.game.AddExecution(r.executor.CreateExecutions(turn)...)
	return r.game.ExecuteNextTick(), nil
}

// Divergence describes the first tick where a re-execution disagrees with a recording.
type Divergence struct {
	Tick   game.Tick
	Reason string
	Want   uint64
	Got    uint64
}

func (d *Divergence) String() string {
	return fmt.Sprintf("tick %d: %s (want %#x, got %#x)", d.Tick, d.Reason, d.Want, d.Got)
}

// Verify re-executes turns and compares the hash records against frames, where frames[i]
// is the recorded batch of turns[i] (nil when it was not captured). It returns the first
// divergence, or nil when every recorded hash matches.
func (r *Runner) Verify(turns []intent.Turn, frames [][]byte) (*Divergence, error) {
	for i, turn := range turns {
		result, err := r.ExecuteTurn(turn)
		if err != nil {
			return nil, err
		}
		if i >= len(frames) || frames[i] == nil {
			continue
		}

		//1.- Compare the hash records of the recorded and re-executed batch.
		want, err := wire.DecodeHashes(frames[i])
		if err != nil {
			return nil, fmt.Errorf("decode recorded tick %d: %w", result.Tick, err)
		}
		got, err := wire.DecodeHashes(result.Frame)
		if err != nil {
			return nil, fmt.Errorf("decode replayed tick %d: %w", result.Tick, err)
		}
		if len(want) != len(got) {
			return &Divergence{Tick: result.Tick, Reason: "hash record count", Want: uint64(len(want)), Got: uint64(len(got))}, nil
		}
		for j := range want {
			if want[j] != got[j] {
				return &Divergence{Tick: want[j].Tick, Reason: "world hash", Want: want[j].Hash, Got: got[j].Hash}, nil
			}
		}
	}
	return nil, nil
}
