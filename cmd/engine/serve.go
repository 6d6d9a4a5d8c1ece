package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"openfront/engine/internal/bots"
	"openfront/engine/internal/config"
	"openfront/engine/internal/feed"
	"openfront/engine/internal/game"
	httpapi "openfront/engine/internal/http"
	"openfront/engine/internal/intent"
	"openfront/engine/internal/logging"
	"openfront/engine/internal/prng"
	"openfront/engine/internal/replay"
	"openfront/engine/internal/simulation"
)

const (
	shutdownTimeout = 5 * time.Second
	cleanerInterval = time.Hour
)

func runServe(args []string) int {
	if len(args) > 0 {
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 1
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		return 1
	}
	logging.ReplaceGlobals(logger)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("engine stopped", logging.Error(err))
		return 1
	}
	return 0
}

// host bundles everything one served game needs.
type host struct {
	cfg      *config.Config
	logger   *logging.Logger
	game     *game.Game
	runner   *simulation.Runner
	queue    *intent.Queue
	spawner  *bots.Spawner
	stream   *feed.Stream
	writer   *replay.Writer
	recorder *replay.Recorder
	cleaner  *replay.Cleaner
	hub      *feed.Hub

	mu     sync.Mutex
	tick   int
	winner string
}

func serve(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	//1.- Resolve the balance and push overlay log levels to the logger.
	balance := config.DefaultBalance()
	if cfg.BalancePath != "" {
		loaded, err := config.LoadBalance(cfg.BalancePath)
		if err != nil {
			return err
		}
		balance = loaded
	}
	if cfg.OverlayPath != "" {
		err := config.WatchLogLevel(cfg.OverlayPath, func(level string) {
			if err := logger.SetLevel(level); err != nil {
				logger.Warn("ignoring overlay log level", logging.String("level", level), logging.Error(err))
			}
		})
		if err != nil {
			logger.Warn("overlay disabled", logging.Error(err))
		}
	}

	header := replay.Header{
		GameID:  cfg.GameID,
		Map:     replay.MapParameters{Width: cfg.MapWidth, Height: cfg.MapHeight, Seed: cfg.MapSeed},
		Balance: balance,
	}
	h, err := newHost(ctx, cfg, header, logger)
	if err != nil {
		return err
	}

	//2.- Serve the websocket hub and the gRPC feed.
	validator := intent.NewValidator(intent.DefaultConstraints, logger)
	h.hub = feed.NewHub(h.stream, h.queue, validator, feed.HubConfig{IntentRate: cfg.IntentRate, IntentBurst: cfg.IntentBurst}, logger)
	mux := http.NewServeMux()
	mux.Handle("/ws", h.hub)
	httpapi.NewHandlerSet(h.handlerOptions(validator)).Register(mux)
	httpServer := &http.Server{Addr: cfg.Address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	serveErr := make(chan error, 2)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("http: %w", err)
		}
	}()

	var grpcServer *grpc.Server
	if cfg.GRPCAddress != "" {
		listener, err := net.Listen("tcp", cfg.GRPCAddress)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		compressor, err := feed.NewZstdCompressor()
		if err != nil {
			return err
		}
		grpcServer = grpc.NewServer(grpc.ChainStreamInterceptor(feed.StreamInterceptor(logger)))
		feed.RegisterUpdateFeedServer(grpcServer, feed.NewService(h.stream, feed.WithCompressor(compressor), feed.WithServiceLogger(logger)))
		go func() {
			if err := grpcServer.Serve(listener); err != nil {
				serveErr <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}
	logger.Info("engine listening",
		logging.String("addr", cfg.Address),
		logging.String("grpc_addr", cfg.GRPCAddress),
		logging.String("game", cfg.GameID),
		logging.Duration("turn_interval", cfg.TurnInterval),
	)

	//3.- Run turns until the game ends, a signal arrives, or a listener fails.
	loop := simulation.NewLoop(cfg.TurnInterval, h.step)
	loop.Start(ctx)
	var runErr error
	select {
	case <-ctx.Done():
	case <-loop.Done():
	case runErr = <-serveErr:
	}
	loop.Stop()

	//4.- Shut the listeners down, then seal the replay.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	runErr = errors.Join(runErr, httpServer.Shutdown(shutdownCtx))
	if grpcServer != nil {
		grpcServer.Stop()
	}
	return errors.Join(runErr, h.close())
}

func newHost(ctx context.Context, cfg *config.Config, header replay.Header, logger *logging.Logger) (*host, error) {
	g, err := newGame(header, logger)
	if err != nil {
		return nil, err
	}
	h := &host{
		cfg:    cfg,
		logger: logger,
		game:   g,
		queue:  intent.NewQueue(cfg.GameID),
		stream: feed.NewStream(feed.Config{}),
	}
	h.spawner = bots.NewSpawner(bots.SpawnerConfig{Target: cfg.Bots, Seed: prng.SeedFor(cfg.GameID, "bots"), Logger: logger}, h.queue)

	turnSinks := []simulation.TurnSink{}
	frameSinks := []simulation.FrameSink{h.stream}
	if cfg.ReplayDir != "" {
		writer, _, err := replay.NewWriter(cfg.ReplayDir, cfg.GameID, nil)
		if err != nil {
			return nil, err
		}
		writer.SetHeader(header)
		recorder, err := replay.NewRecorder(cfg.ReplayDir, nil)
		if err != nil {
			return nil, errors.Join(err, writer.Close())
		}
		recorder.Start(cfg.GameID, replay.RecordConfig{Map: header.Map, Bots: cfg.Bots, Balance: header.Balance})
		h.writer, h.recorder = writer, recorder
		turnSinks = append(turnSinks, writer, recorder)
		frameSinks = append(frameSinks, writer)

		h.cleaner = replay.NewCleaner(cfg.ReplayDir, replay.RetentionPolicy{MaxGames: cfg.ReplayMaxMatches, MaxAge: cfg.ReplayMaxAge}, logger)
		go h.cleaner.Run(ctx, cleanerInterval)
	}
	h.runner = simulation.NewRunner(g,
		simulation.WithRunnerLogger(logger),
		simulation.WithTurnSinks(turnSinks...),
		simulation.WithFrameSinks(frameSinks...),
	)
	return h, nil
}

// step runs one turn; it returns false once the game cannot continue.
func (h *host) step(time.Duration) bool {
	h.spawner.Reconcile(h.game)
	result, err := h.runner.ExecuteTurn(h.queue.NextTurn())
	if err != nil {
		h.logger.Error("turn failed", logging.Error(err))
		return false
	}
	h.mu.Lock()
	h.tick = result.Tick + 1
	h.mu.Unlock()
	if h.game.HasWinner() {
		winner := winnerID(h.game.Winner())
		h.mu.Lock()
		h.winner = winner
		h.mu.Unlock()
		h.logger.Info("game over", logging.String("winner", winner), logging.Int("ticks", result.Tick+1))
		return false
	}
	return true
}

// status is read from HTTP goroutines, so it never touches the game itself.
func (h *host) status() httpapi.GameStatus {
	h.mu.Lock()
	status := httpapi.GameStatus{GameID: h.cfg.GameID, Tick: h.tick, Winner: h.winner}
	h.mu.Unlock()
	status.PendingIntents = h.queue.Pending()
	status.Halted = h.runner.Err()
	if h.hub != nil {
		status.Clients = h.hub.Clients()
	}
	return status
}

func (h *host) handlerOptions(validator *intent.Validator) httpapi.Options {
	opts := httpapi.Options{
		Logger:     h.logger,
		Status:     h.status,
		Ticks:      h.runner.Monitor().Snapshot,
		Feed:       func() httpapi.FeedStats { return httpapi.FeedStats{LastSequence: h.stream.LastSequence(), Retained: h.stream.Retained()} },
		Validation: validator.Metrics,
	}
	if h.recorder != nil {
		opts.ReplayStats = h.recorder.Snapshot
		opts.StorageStats = h.cleaner.Stats
	}
	return opts
}

// close seals the replay bundle and rolls the game record next to it.
func (h *host) close() error {
	if h.writer == nil {
		return nil
	}
	err := h.writer.Close()
	if h.recorder.Snapshot().SeenTurns == 0 {
		return err
	}
	base := filepath.Base(h.writer.Directory())
	path, rollErr := h.recorder.Roll(base, winnerID(h.game.Winner()), h.game.Stats().All())
	if rollErr != nil {
		return errors.Join(err, rollErr)
	}
	h.logger.Info("game record written", logging.String("path", path), logging.String("bundle", h.writer.Directory()))
	return err
}

func winnerID(p *game.Player, team string) string {
	if p != nil {
		return p.ID()
	}
	return team
}
