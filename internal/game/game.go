// Package game holds the world state of one match and the orchestrator that advances it
// tick by tick. All mutation happens on the goroutine that calls ExecuteNextTick.
package game

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/fnv"
	"slices"

	"openfront/engine/internal/gamemap"
	"openfront/engine/internal/logging"
	"openfront/engine/internal/prng"
)

// ErrPlayerNotFound is returned when an ID does not name a registered player.
var ErrPlayerNotFound = errors.New("game: player not found")

// maxPlayers is bounded by the owner bits of the packed tile state.
const maxPlayers = 1<<12 - 1

const defaultHashInterval = 10

// Execution is a state machine ticked by the orchestrator. Init runs once, lazily, on
// the first tick the execution is eligible; Tick runs while IsActive is true.
type Execution interface {
	Init(g *Game, ticks Tick)
	Tick(ticks Tick)
	IsActive() bool
	ActiveDuringSpawnPhase() bool
}

type execEntry struct {
	exec        Execution
	initialized bool
}

// UnitDistance pairs a unit with its squared distance to the query tile.
type UnitDistance struct {
	Unit        *Unit
	DistSquared int
}

// structureTypes are the units that block other structures within StructureMinDist.
var structureTypes = []UnitType{City, Port, MissileSilo, DefensePost, SAMLauncher, Factory, Construction}

// Option customises a Game.
type Option func(*Game)

// WithLogger routes simulation warnings to logger.
func WithLogger(logger *logging.Logger) Option {
	return func(g *Game) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithStats replaces the in-memory stats recorder.
func WithStats(stats Stats) Option {
	return func(g *Game) {
		if stats != nil {
			g.stats = stats
		}
	}
}

// WithSeed seeds the generator used for attack IDs.
func WithSeed(seed int64) Option {
	return func(g *Game) { g.rand = prng.New(seed) }
}

// WithHashInterval sets how often a HashUpdate is emitted. Zero disables it.
func WithHashInterval(ticks int) Option {
	return func(g *Game) { g.hashInterval = max(0, ticks) }
}

// Game is the authoritative state of one match.
type Game struct {
	gm     gamemap.GameMap
	cfg    Config
	stats  Stats
	logger *logging.Logger
	rand   *prng.Random

	ticks        Tick
	hashInterval int

	players     map[string]*Player
	bySmallID   []*Player // index 0 is TerraNullius
	units       []*Unit   // ascending ID
	nextUnitID  int
	nextAllyID  int
	execs       []*execEntry
	pending     []Execution
	updates     *GameUpdates
	winnerKnown bool
	winner      *Player
	winnerTeam  string

	alliances        []*Alliance
	allianceRequests []*AllianceRequest
}

// New creates an empty game on gm.
func New(gm gamemap.GameMap, cfg Config, opts ...Option) *Game {
	g := &Game{
		gm:           gm,
		cfg:          cfg,
		stats:        NewStatsRecorder(),
		logger:       logging.L(),
		rand:         prng.New(1),
		hashInterval: defaultHashInterval,
		players:      make(map[string]*Player),
		bySmallID:    []*Player{nil},
		nextUnitID:   1,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.updates = NewGameUpdates(0)
	return g
}

func (g *Game) Map() gamemap.GameMap         { return g.gm }
func (g *Game) Config() Config               { return g.cfg }
func (g *Game) Stats() Stats                 { return g.stats }
func (g *Game) Logger() *logging.Logger      { return g.logger }
func (g *Game) Ticks() Tick                  { return g.ticks }
func (g *Game) UnitInfo(t UnitType) UnitInfo { return g.cfg.UnitInfo(t) }

// InSpawnPhase is true for the first NumSpawnPhaseTurns ticks.
func (g *Game) InSpawnPhase() bool { return g.ticks < g.cfg.NumSpawnPhaseTurns() }

// AddPlayer registers a player with the starting manpower of its type.
func (g *Game) AddPlayer(info PlayerInfo) (*Player, error) {
	if _, ok := g.players[info.ID]; ok {
		return nil, fmt.Errorf("game: player %q already exists", info.ID)
	}
	if len(g.bySmallID) > maxPlayers {
		return nil, fmt.Errorf("game: player limit %d reached", maxPlayers)
	}
	p := newPlayer(g, info, uint16(len(g.bySmallID)), g.cfg.StartManpower(info.Type))
	g.players[info.ID] = p
	g.bySmallID = append(g.bySmallID, p)
	return p, nil
}

// Player looks up a player by ID.
func (g *Game) Player(id string) (*Player, error) {
	p, ok := g.players[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPlayerNotFound, id)
	}
	return p, nil
}

func (g *Game) HasPlayer(id string) bool {
	_, ok := g.players[id]
	return ok
}

// PlayerByClientID returns the player controlled by a client, or nil.
func (g *Game) PlayerByClientID(clientID string) *Player {
	for _, p := range g.bySmallID[1:] {
		if p.info.ClientID == clientID {
			return p
		}
	}
	return nil
}

// PlayerBySmallID returns nil for 0 (TerraNullius) and unknown IDs.
func (g *Game) PlayerBySmallID(id uint16) *Player {
	if int(id) >= len(g.bySmallID) {
		return nil
	}
	return g.bySmallID[id]
}

// Players returns the living players in small ID order.
func (g *Game) Players() []*Player {
	out := make([]*Player, 0, len(g.bySmallID)-1)
	for _, p := range g.bySmallID[1:] {
		if p.IsAlive() {
			out = append(out, p)
		}
	}
	return out
}

// AllPlayers includes dead players.
func (g *Game) AllPlayers() []*Player { return slices.Clone(g.bySmallID[1:]) }

// Owner returns the owner of tile, nil for TerraNullius.
func (g *Game) Owner(tile gamemap.TileRef) *Player {
	return g.PlayerBySmallID(g.gm.OwnerID(tile))
}

func (g *Game) conquer(p *Player, tile gamemap.TileRef) {
	if !g.gm.IsLand(tile) {
		panic(fmt.Sprintf("game: %s cannot conquer water tile %d", p, tile))
	}
	prev := g.Owner(tile)
	if prev == p {
		return
	}
	if prev != nil {
		prev.tiles.Remove(tile)
		prev.border.Remove(tile)
		prev.lastTileChange = g.ticks
	}
	g.gm.SetOwnerID(tile, p.smallID)
	g.gm.SetFallout(tile, false)
	p.tiles.Add(tile)
	p.lastTileChange = g.ticks
	g.updateBorders(tile)
	g.addTileUpdate(tile)
}

func (g *Game) relinquish(tile gamemap.TileRef) {
	prev := g.Owner(tile)
	if prev == nil {
		return
	}
	prev.tiles.Remove(tile)
	prev.border.Remove(tile)
	prev.lastTileChange = g.ticks
	g.gm.SetOwnerID(tile, 0)
	g.updateBorders(tile)
	g.addTileUpdate(tile)
}

// SetFallout marks a tile irradiated and emits the change.
func (g *Game) SetFallout(tile gamemap.TileRef, value bool) {
	if g.gm.HasFallout(tile) == value {
		return
	}
	g.gm.SetFallout(tile, value)
	g.addTileUpdate(tile)
}

func (g *Game) updateBorders(tile gamemap.TileRef) {
	refresh := func(t gamemap.TileRef) {
		owner := g.Owner(t)
		if owner == nil {
			return
		}
		if g.gm.IsBorder(t) {
			owner.border.Add(t)
		} else {
			owner.border.Remove(t)
		}
	}
	refresh(tile)
	for _, n := range g.gm.Neighbors(tile) {
		refresh(n)
	}
}

func (g *Game) addTileUpdate(tile gamemap.TileRef) {
	g.AddUpdate(TileUpdate{Packed: gamemap.PackTileUpdate(tile, g.gm.TileState(tile))})
}

func (g *Game) newUnit(t UnitType, owner *Player, tile gamemap.TileRef, params UnitParams) *Unit {
	u := newUnit(g, g.nextUnitID, t, owner, tile, params)
	g.nextUnitID++
	g.units = append(g.units, u)
	return u
}

func (g *Game) removeUnit(u *Unit) {
	i, ok := slices.BinarySearchFunc(g.units, u.id, func(c *Unit, id int) int { return c.id - id })
	if ok {
		g.units = slices.Delete(g.units, i, i+1)
	}
}

// Units returns every active unit, optionally filtered by type, in ID order.
func (g *Game) Units(types ...UnitType) []*Unit {
	out := make([]*Unit, 0, len(g.units))
	for _, u := range g.units {
		if len(types) == 0 || slices.Contains(types, u.typ) {
			out = append(out, u)
		}
	}
	return out
}

// NearbyUnits returns units of the given types within searchRange (Euclidean) of tile,
// nearest first with ties broken by ID. A nil predicate accepts every unit.
func (g *Game) NearbyUnits(tile gamemap.TileRef, searchRange int, types []UnitType, pred func(*Unit) bool) []UnitDistance {
	r2 := searchRange * searchRange
	var out []UnitDistance
	for _, u := range g.units {
		if !slices.Contains(types, u.typ) {
			continue
		}
		d := g.gm.EuclideanDistSquared(tile, u.tile)
		if d > r2 || (pred != nil && !pred(u)) {
			continue
		}
		out = append(out, UnitDistance{Unit: u, DistSquared: d})
	}
	slices.SortStableFunc(out, func(a, b UnitDistance) int {
		if a.DistSquared != b.DistSquared {
			return a.DistSquared - b.DistSquared
		}
		return a.Unit.id - b.Unit.id
	})
	return out
}

// HasUnitNearby reports a unit of type t within searchRange, optionally owned by owner.
func (g *Game) HasUnitNearby(tile gamemap.TileRef, searchRange int, t UnitType, owner *Player) bool {
	var pred func(*Unit) bool
	if owner != nil {
		pred = func(u *Unit) bool { return u.owner == owner }
	}
	return len(g.NearbyUnits(tile, searchRange, []UnitType{t}, pred)) > 0
}

// NearbyCity returns owner's city closest to tile within StructureMinDist, or nil.
func (g *Game) NearbyCity(tile gamemap.TileRef, owner *Player) *Unit {
	nearby := g.NearbyUnits(tile, g.cfg.StructureMinDist(), []UnitType{City},
		func(u *Unit) bool { return u.owner == owner })
	if len(nearby) == 0 {
		return nil
	}
	return nearby[0].Unit
}

// AddExecution queues executions; they join the active list on the next tick.
func (g *Game) AddExecution(execs ...Execution) {
	g.pending = append(g.pending, execs...)
}

// ExecutionCount is the number of queued and active executions.
func (g *Game) ExecutionCount() int { return len(g.execs) + len(g.pending) }

// ExecuteNextTick advances the world by one tick and returns the updates it produced.
func (g *Game) ExecuteNextTick() *GameUpdates {
	g.updates = NewGameUpdates(g.ticks)

	//1.- Promote the executions queued since the last tick.
	for _, e := range g.pending {
		g.execs = append(g.execs, &execEntry{exec: e})
	}
	g.pending = g.pending[:0]

	//2.- Init lazily and tick in insertion order, gated by the spawn phase.
	spawnPhase := g.InSpawnPhase()
	for _, entry := range g.execs {
		if spawnPhase && !entry.exec.ActiveDuringSpawnPhase() {
			continue
		}
		if !entry.initialized {
			entry.exec.Init(g, g.ticks)
			entry.initialized = true
		}
		if entry.exec.IsActive() {
			entry.exec.Tick(g.ticks)
		}
	}

	//3.- Drop the executions that finished.
	g.execs = slices.DeleteFunc(g.execs, func(entry *execEntry) bool {
		return entry.initialized && !entry.exec.IsActive()
	})

	//4.- Snapshot every player and, on the hash cadence, the world hash.
	for _, p := range g.bySmallID[1:] {
		g.AddUpdate(p.ToUpdate())
	}
	if g.hashInterval > 0 && g.ticks%g.hashInterval == 0 {
		g.AddUpdate(HashUpdate{Tick: g.ticks, Hash: g.Hash()})
	}

	g.ticks++
	return g.updates
}

// AddUpdate appends to the batch of the tick in progress.
func (g *Game) AddUpdate(u Update) { g.updates.Add(u) }

func (g *Game) smallIDOf(playerID string) uint16 {
	if playerID == "" {
		return 0
	}
	if p, ok := g.players[playerID]; ok {
		return p.smallID
	}
	return 0
}

// DisplayMessage sends a notice to playerID, or everyone when playerID is empty.
func (g *Game) DisplayMessage(message string, t MessageType, playerID string, gold Gold) {
	g.AddUpdate(DisplayMessageUpdate{
		Message:     message,
		MessageType: t,
		GoldAmount:  gold,
		PlayerID:    g.smallIDOf(playerID),
	})
}

// DisplayIncomingUnit warns playerID about a unit heading for them.
func (g *Game) DisplayIncomingUnit(unitID int, message string, t MessageType, playerID string) {
	g.AddUpdate(UnitIncomingUpdate{
		UnitID:      unitID,
		Message:     message,
		MessageType: t,
		PlayerID:    g.smallIDOf(playerID),
	})
}

// DisplayChat delivers a quick-chat line to playerID.
func (g *Game) DisplayChat(key, category, target, playerID string, isFrom bool, recipient string) {
	g.AddUpdate(DisplayChatUpdate{
		Key:       key,
		Category:  category,
		Target:    target,
		PlayerID:  g.smallIDOf(playerID),
		IsFrom:    isFrom,
		Recipient: recipient,
	})
}

func (g *Game) createAllianceRequest(requestor, recipient *Player) *AllianceRequest {
	r := &AllianceRequest{g: g, requestor: requestor, recipient: recipient, createdAt: g.ticks}
	g.allianceRequests = append(g.allianceRequests, r)
	requestor.pastOutgoingRequests = append(requestor.pastOutgoingRequests, r)
	g.AddUpdate(r.toUpdate())
	return r
}

func (g *Game) removeRequest(r *AllianceRequest) bool {
	i := slices.Index(g.allianceRequests, r)
	if i < 0 {
		return false
	}
	g.allianceRequests = slices.Delete(g.allianceRequests, i, i+1)
	return true
}

// AcceptAllianceRequest turns a pending request into an alliance.
func (g *Game) AcceptAllianceRequest(r *AllianceRequest) {
	if !g.removeRequest(r) {
		g.logger.Warn("accepting unknown alliance request",
			logging.String("requestor", r.requestor.ID()), logging.String("recipient", r.recipient.ID()))
		return
	}
	g.nextAllyID++
	g.alliances = append(g.alliances, &Alliance{
		id:        g.nextAllyID,
		requestor: r.requestor,
		recipient: r.recipient,
		createdAt: g.ticks,
		expiresAt: g.ticks + g.cfg.AllianceDuration(),
	})
	r.requestor.EndTemporaryEmbargo(r.recipient)
	r.recipient.EndTemporaryEmbargo(r.requestor)
	g.AddUpdate(AllianceRequestReplyUpdate{Request: r.toUpdate(), Accepted: true})
}

// RejectAllianceRequest drops a pending request.
func (g *Game) RejectAllianceRequest(r *AllianceRequest) {
	if !g.removeRequest(r) {
		return
	}
	g.AddUpdate(AllianceRequestReplyUpdate{Request: r.toUpdate(), Accepted: false})
}

func (g *Game) removeAlliance(a *Alliance) bool {
	i := slices.Index(g.alliances, a)
	if i < 0 {
		return false
	}
	g.alliances = slices.Delete(g.alliances, i, i+1)
	return true
}

// breakAlliance ends a and brands breaker a traitor unless the betrayed side already is.
func (g *Game) breakAlliance(breaker *Player, a *Alliance) {
	if !g.removeAlliance(a) {
		panic(fmt.Sprintf("game: %s cannot break unknown alliance %d", breaker, a.id))
	}
	other := a.Other(breaker)
	if !other.IsTraitor() {
		breaker.MarkTraitor()
	}
	g.AddUpdate(BrokeAllianceUpdate{TraitorID: breaker.smallID, BetrayedID: other.smallID})
}

// ExpireAlliance ends a without blame.
func (g *Game) ExpireAlliance(a *Alliance) {
	if !g.removeAlliance(a) {
		return
	}
	for _, p := range []*Player{a.requestor, a.recipient} {
		g.DisplayMessage(fmt.Sprintf("Your alliance with %s expired", a.Other(p).DisplayName()),
			MsgAllianceExpired, p.ID(), 0)
	}
	g.AddUpdate(AllianceExpiredUpdate{Player1ID: a.requestor.smallID, Player2ID: a.recipient.smallID})
}

// Alliances returns every active alliance in creation order.
func (g *Game) Alliances() []*Alliance { return slices.Clone(g.alliances) }

// SetWinner announces the winner once. A non-empty team wins for its members.
func (g *Game) SetWinner(winner *Player, team string) {
	if g.winnerKnown {
		return
	}
	g.winnerKnown = true
	g.winner, g.winnerTeam = winner, team
	g.AddUpdate(WinUpdate{WinnerID: winner.SmallID(), Team: team, Stats: g.stats.All()})
}

func (g *Game) HasWinner() bool { return g.winnerKnown }

// Winner returns the winning player and team, both empty before the game is decided.
func (g *Game) Winner() (*Player, string) { return g.winner, g.winnerTeam }

// ConquerPlayer transfers the gold of an eliminated player to its conqueror.
func (g *Game) ConquerPlayer(conqueror, conquered *Player) {
	gold := conquered.RemoveGold(conquered.Gold())
	conqueror.AddGold(gold)
	g.DisplayMessage(fmt.Sprintf("Conquered %s, received %d gold", conquered.DisplayName(), gold),
		MsgConqueredPlayer, conqueror.ID(), gold)
	g.stats.GoldWar(conqueror.ID(), conquered.ID(), gold)
}

func (g *Game) nextAttackID() string { return g.rand.NextID() }

// Hash folds players and units in stable order. Replicas that agree on it agree on the
// state that matters for play.
func (g *Game) Hash() uint64 {
	h := newHasher()
	h.u64(uint64(g.ticks))
	for _, p := range g.bySmallID[1:] {
		p.hashInto(h)
	}
	for _, u := range g.units {
		h.u64(uint64(u.Hash()))
		h.u64(uint64(u.troops))
		h.u64(uint64(u.health))
	}
	return h.sum()
}

type hasher struct {
	h   hash.Hash64
	buf [8]byte
}

func newHasher() *hasher { return &hasher{h: fnv.New64a()} }

func (h *hasher) u64(v uint64) {
	binary.LittleEndian.PutUint64(h.buf[:], v)
	h.h.Write(h.buf[:])
}

func (h *hasher) bool(v bool) {
	if v {
		h.u64(1)
		return
	}
	h.u64(0)
}

func (h *hasher) sum() uint64 { return h.h.Sum64() }
