package execution

import (
	"container/heap"

	"openfront/engine/internal/game"
	"openfront/engine/internal/gamemap"
	"openfront/engine/internal/logging"
	"openfront/engine/internal/prng"
)

// attackRelationPenalty sours the defender toward the attacker when an attack starts.
const attackRelationPenalty = -80

type frontTile struct {
	tile     gamemap.TileRef
	priority float64
	seq      int
}

// frontQueue pops the lowest priority first, then the earliest insertion.
type frontQueue []frontTile

func (q frontQueue) Len() int { return len(q) }

func (q frontQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority < q[j].priority
	}
	return q[i].seq < q[j].seq
}

func (q frontQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *frontQueue) Push(x any)   { *q = append(*q, x.(frontTile)) }

func (q *frontQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// AttackExecution advances a land front against a player or unclaimed land. Each tick it
// takes the most exposed tiles first, paying troops per tile until the attack runs dry,
// runs out of reachable tiles, or is called back.
type AttackExecution struct {
	g            *game.Game
	ownerID      string
	targetID     string
	sourceTile   gamemap.TileRef
	startTroops  int64
	removeTroops bool

	attacker  *game.Player
	target    *game.Player
	attack    *game.Attack
	front     frontQueue
	seq       int
	rand      *prng.Random
	conquered bool
	active    bool
}

// NewAttackExecution attacks targetID (empty for unclaimed land). A negative troop count
// uses the configured attack amount. A boat landing passes its landing tile as source and
// removeTroops=false since the troops already left with the boat.
func NewAttackExecution(troops int64, ownerID, targetID string, sourceTile gamemap.TileRef, removeTroops bool) *AttackExecution {
	return &AttackExecution{
		ownerID:      ownerID,
		targetID:     targetID,
		sourceTile:   sourceTile,
		startTroops:  troops,
		removeTroops: removeTroops,
		active:       true,
	}
}

func (e *AttackExecution) Init(g *game.Game, ticks game.Tick) {
	e.g = g
	attacker, ok := lookupPlayer(g, "attack", e.ownerID)
	if !ok {
		e.active = false
		return
	}
	target, ok := lookupTarget(g, "attack", e.targetID)
	if !ok {
		e.active = false
		return
	}
	e.attacker, e.target = attacker, target
	if target == attacker {
		warn(g, "player cannot attack itself", logging.String("player", e.ownerID))
		e.active = false
		return
	}
	if target != nil && attacker.IsFriendly(target) {
		warn(g, "cannot attack friendly player",
			logging.String("player", e.ownerID), logging.String("target", e.targetID))
		e.active = false
		return
	}

	//1.- Commit the troops.
	troops := e.startTroops
	if troops < 0 {
		troops = g.Config().AttackAmount(attacker)
	}
	if e.removeTroops {
		troops = attacker.RemoveTroops(troops)
	}

	//2.- A second land attack on the same target reinforces the first.
	if e.sourceTile == gamemap.NoTile {
		for _, other := range attacker.OutgoingAttacks() {
			if other.Target() == target && other.SourceTile() == gamemap.NoTile && other.IsActive() {
				other.SetTroops(other.Troops() + troops)
				e.active = false
				return
			}
		}
	}

	//3.- Fronts moving against each other cancel out.
	for _, incoming := range attacker.IncomingAttacks() {
		if incoming.Attacker() != target || troops <= 0 {
			continue
		}
		if incoming.Troops() > troops {
			incoming.SetTroops(incoming.Troops() - troops)
			e.active = false
			return
		}
		troops -= incoming.Troops()
		incoming.Delete()
	}

	e.attack = attacker.CreateAttack(target, troops, e.sourceTile, nil)
	g.Stats().Attack(attacker.ID(), target.ID(), troops)
	if target != nil {
		target.UpdateRelation(attacker, attackRelationPenalty)
	}
	e.rand = prng.New(int64(ticks))
	e.refreshFront()
}

// Attack is nil until Init succeeded.
func (e *AttackExecution) Attack() *game.Attack { return e.attack }

func (e *AttackExecution) refreshFront() {
	e.front = e.front[:0]
	e.attack.ClearBorder()
	if e.sourceTile != gamemap.NoTile && e.attacker.OwnsTile(e.sourceTile) {
		e.addNeighbors(e.sourceTile)
	}
	for _, t := range e.attacker.BorderTiles() {
		e.addNeighbors(t)
	}
}

func (e *AttackExecution) addNeighbors(tile gamemap.TileRef) {
	gm := e.g.Map()
	for _, n := range gm.Neighbors(tile) {
		if !gm.IsLand(n) || e.g.Owner(n) != e.target {
			continue
		}
		owned := 0
		for _, nn := range gm.Neighbors(n) {
			if e.g.Owner(nn) == e.attacker {
				owned++
			}
		}
		e.attack.AddBorderTile(n)
		priority := float64(e.rand.NextInt(0, 7)+10)*(1-float64(owned)*0.5+0.5) + float64(e.g.Ticks())
		e.seq++
		heap.Push(&e.front, frontTile{tile: n, priority: priority, seq: e.seq})
	}
}

// reachable reports whether tile still belongs to the target and touches the attacker.
func (e *AttackExecution) reachable(tile gamemap.TileRef) bool {
	if e.g.Owner(tile) != e.target {
		return false
	}
	for _, n := range e.g.Map().Neighbors(tile) {
		if e.g.Owner(n) == e.attacker {
			return true
		}
	}
	return false
}

func (e *AttackExecution) Tick(game.Tick) {
	if !e.attack.IsActive() {
		e.active = false
		return
	}
	if e.attack.Retreating() {
		e.retreat()
		return
	}
	cfg := e.g.Config()
	tiles := cfg.AttackTilesPerTick()
	for tiles > 0 {
		if e.attack.Troops() < 1 {
			e.finish()
			return
		}
		if e.front.Len() == 0 {
			e.refreshFront()
			if e.front.Len() == 0 {
				e.attacker.AddTroops(e.attack.Troops())
				e.finish()
				return
			}
		}
		next := heap.Pop(&e.front).(frontTile)
		e.attack.RemoveBorderTile(next.tile)
		if !e.reachable(next.tile) {
			continue
		}
		tiles--

		defended := e.target != nil &&
			e.g.HasUnitNearby(next.tile, cfg.DefensePostRange(), game.DefensePost, e.target)
		attackerLoss, defenderLoss := cfg.AttackLogic(e.attack.Troops(), e.attacker, e.target, defended)
		e.attack.SetTroops(e.attack.Troops() - attackerLoss)
		if e.target != nil {
			e.target.RemoveTroops(defenderLoss)
		}
		e.attacker.Conquer(next.tile)
		e.addNeighbors(next.tile)

		if e.target != nil && !e.conquered && e.target.NumTilesOwned() == 0 {
			e.conquered = true
			e.g.ConquerPlayer(e.attacker, e.target)
		}
	}
}

// retreat returns the surviving troops home.
func (e *AttackExecution) retreat() {
	troops := e.attack.Troops()
	e.attacker.AddTroops(troops)
	e.g.Stats().AttackCancel(e.attacker.ID(), e.target.ID(), troops)
	e.g.DisplayMessage("Attack cancelled", game.MsgAttackCancelled, e.attacker.ID(), 0)
	e.attack.ExecuteRetreat()
	e.finish()
}

func (e *AttackExecution) finish() {
	e.attack.Delete()
	e.active = false
}

func (e *AttackExecution) IsActive() bool               { return e.active }
func (e *AttackExecution) ActiveDuringSpawnPhase() bool { return false }
