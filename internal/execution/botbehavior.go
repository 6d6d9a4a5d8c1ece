package execution

import (
	"openfront/engine/internal/game"
	"openfront/engine/internal/gamemap"
	"openfront/engine/internal/prng"
)

const (
	// enemyMemory is how long a chosen enemy is kept before the bot reconsiders.
	enemyMemory = 100
	assistEmoji = "👍"
	// Relation cost of answering an ally's call for help.
	assistRelation = -20
)

// BotBehavior is the decision layer shared by bots and fake humans: whom to fight, when
// to attack, and which alliances to accept.
type BotBehavior struct {
	g            *game.Game
	player       *game.Player
	rand         *prng.Random
	triggerRatio float64
	reserveRatio float64

	enemy           *game.Player
	enemyUpdated    game.Tick
	firstAttackSent bool
}

func NewBotBehavior(g *game.Game, player *game.Player, rand *prng.Random, triggerRatio, reserveRatio float64) *BotBehavior {
	return &BotBehavior{g: g, player: player, rand: rand, triggerRatio: triggerRatio, reserveRatio: reserveRatio}
}

// Enemy is the current enemy or nil.
func (b *BotBehavior) Enemy() *game.Player { return b.enemy }

// HandleAllianceRequests answers every pending request.
func (b *BotBehavior) HandleAllianceRequests() {
	for _, r := range b.player.IncomingAllianceRequests() {
		if shouldAcceptAllianceRequest(b.player, r) {
			r.Accept()
		} else {
			r.Reject()
		}
	}
}

func shouldAcceptAllianceRequest(p *game.Player, r *game.AllianceRequest) bool {
	requestor := r.Requestor()
	switch {
	case p.Relation(requestor) < game.Neutral:
		return false
	case requestor.IsTraitor():
		return false
	case requestor.NumTilesOwned() > p.NumTilesOwned()*3:
		return true
	case len(requestor.Alliances()) >= 3:
		return false
	}
	return true
}

func (b *BotBehavior) emoji(to *game.Player, emoji string) {
	if to.Type() != game.PlayerHuman {
		return
	}
	b.g.AddExecution(NewEmojiExecution(b.player.ID(), to.ID(), emoji))
}

func (b *BotBehavior) setEnemy(p *game.Player) {
	b.enemy = p
	b.enemyUpdated = b.g.Ticks()
}

// ForgetOldEnemies drops an enemy chosen more than enemyMemory ticks ago.
func (b *BotBehavior) ForgetOldEnemies() {
	if b.g.Ticks()-b.enemyUpdated > enemyMemory {
		b.enemy = nil
	}
}

func (b *BotBehavior) hasSufficientTroops() bool {
	maxPop := b.g.Config().MaxPopulation(b.player)
	if maxPop <= 0 {
		return false
	}
	return float64(b.player.Population())/float64(maxPop) >= b.triggerRatio
}

// checkIncomingAttacks switches to the sender of the largest incoming attack.
func (b *BotBehavior) checkIncomingAttacks() {
	var largest int64
	var attacker *game.Player
	for _, a := range b.player.IncomingAttacks() {
		if a.Troops() <= largest {
			continue
		}
		largest = a.Troops()
		attacker = a.Attacker()
	}
	if attacker != nil {
		b.setEnemy(attacker)
	}
}

// NeighborTraitorToAttack picks a random traitor among the neighbors.
func (b *BotBehavior) NeighborTraitorToAttack() *game.Player {
	var traitors []*game.Player
	for _, n := range b.player.Neighbors() {
		if n.IsTraitor() {
			traitors = append(traitors, n)
		}
	}
	if len(traitors) == 0 {
		return nil
	}
	return prng.Pick(b.rand, traitors)
}

// AssistAllies joins the first friendly ally's target that is not this player or one of
// its own allies.
func (b *BotBehavior) AssistAllies() {
	for _, ally := range b.player.Allies() {
		if len(ally.Targets()) == 0 || b.player.Relation(ally) < game.Friendly {
			continue
		}
		for _, target := range ally.Targets() {
			if target == b.player || b.player.IsAlliedWith(target) {
				continue
			}
			b.player.UpdateRelation(ally, assistRelation)
			b.setEnemy(target)
			b.emoji(ally, assistEmoji)
			return
		}
	}
}

// SelectEnemy is the fake-human choice: the weakest neighboring bot, else whoever hits
// hardest, else the most hated player. Nil until troops reach the trigger ratio.
func (b *BotBehavior) SelectEnemy() *game.Player {
	if b.enemy == nil {
		if !b.hasSufficientTroops() {
			return nil
		}
		var weakest *game.Player
		var weakestDensity float64
		for _, n := range b.player.Neighbors() {
			if n.Type() != game.PlayerBot {
				continue
			}
			density := float64(n.Troops()) / float64(max(1, n.NumTilesOwned()))
			if weakest == nil || density < weakestDensity {
				weakest, weakestDensity = n, density
			}
		}
		if weakest != nil {
			b.setEnemy(weakest)
		}
		if b.enemy == nil {
			b.checkIncomingAttacks()
		}
		if b.enemy == nil {
			if relations := b.player.AllRelationsSorted(); len(relations) > 0 && relations[0].Relation == game.Hostile {
				b.setEnemy(relations[0].Player)
			}
		}
	}
	return b.sanityCheck()
}

// SelectRandomEnemy is the bot choice: the last hostile neighbor of a shuffled scan,
// sparing fake humans half of the time, else whoever attacks, else a neighboring traitor.
func (b *BotBehavior) SelectRandomEnemy() *game.Player {
	if b.enemy == nil {
		if !b.hasSufficientTroops() {
			return nil
		}
		for _, n := range prng.Shuffle(b.rand, b.player.Neighbors()) {
			if b.player.IsFriendly(n) {
				continue
			}
			if n.Type() == game.PlayerFakeHuman && b.rand.Chance(2) {
				continue
			}
			//1.- Keep scanning: the last qualifying neighbor wins and every fake human
			// draws its coin, which keeps the random stream aligned across replays.
			b.setEnemy(n)
		}
		if b.enemy == nil {
			b.checkIncomingAttacks()
		}
		if b.enemy == nil {
			if traitor := b.NeighborTraitorToAttack(); traitor != nil && !b.player.IsFriendly(traitor) && b.rand.Chance(3) {
				b.setEnemy(traitor)
			}
		}
	}
	return b.sanityCheck()
}

// sanityCheck never lets the bot fight an ally or teammate.
func (b *BotBehavior) sanityCheck() *game.Player {
	if b.enemy != nil && b.player.IsFriendly(b.enemy) {
		b.enemy = nil
	}
	return b.enemy
}

// SendAttack attacks target (nil for unclaimed land). The first attack spends a fifth of
// the troops; later ones keep reserveRatio of the troop cap at home.
func (b *BotBehavior) SendAttack(target *game.Player) {
	if target != nil && b.player.IsOnSameTeam(target) {
		return
	}
	maxTroops := float64(b.g.Config().MaxPopulation(b.player)) * b.player.TargetTroopRatio()
	reserve := int64(maxTroops * b.reserveRatio)
	troops := b.player.Troops() / 5
	if b.firstAttackSent {
		troops = b.player.Troops() - reserve
	}
	if troops < 1 {
		return
	}
	b.firstAttackSent = true
	b.g.AddExecution(NewAttackExecution(troops, b.player.ID(), target.ID(), gamemap.NoTile, true))
}
