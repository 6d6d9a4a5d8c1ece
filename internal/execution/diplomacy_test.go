package execution

import (
	"testing"

	"openfront/engine/internal/config"
	"openfront/engine/internal/game"
	"openfront/engine/internal/gamemap"
)

func newDiplomacyGame(t *testing.T, tune func(*config.Balance)) (*game.Game, *game.Player, *game.Player, *game.Player) {
	t.Helper()
	g := newTestGame(t, gamemap.NewPlains(10, 10), tune)
	gm := g.Map()
	a := addTestPlayer(t, g, "alpha", game.PlayerHuman)
	b := addTestPlayer(t, g, "bravo", game.PlayerHuman)
	c := addTestPlayer(t, g, "charlie", game.PlayerHuman)
	a.Conquer(gm.Ref(1, 1))
	b.Conquer(gm.Ref(5, 5))
	c.Conquer(gm.Ref(8, 8))
	return g, a, b, c
}

func ally(g *game.Game, a, b *game.Player) {
	g.AddExecution(NewAllianceRequestExecution(a.ID(), b.ID()))
	g.ExecuteNextTick()
	g.AddExecution(NewAllianceRequestReplyExecution(a.ID(), b.ID(), true))
	g.ExecuteNextTick()
}

func TestAllianceRequestAndAccept(t *testing.T) {
	g, a, b, _ := newDiplomacyGame(t, nil)
	ally(g, a, b)

	if !a.IsAlliedWith(b) || !b.IsAlliedWith(a) {
		t.Fatalf("expected an alliance after acceptance")
	}
	if a.RelationScore(b) != 100 || b.RelationScore(a) != 100 {
		t.Fatalf("expected both relations to max out, got %d and %d", a.RelationScore(b), b.RelationScore(a))
	}
}

func TestRejectedAllianceLeavesNoRequest(t *testing.T) {
	g, a, b, _ := newDiplomacyGame(t, nil)
	g.AddExecution(NewAllianceRequestExecution(a.ID(), b.ID()))
	g.ExecuteNextTick()
	g.AddExecution(NewAllianceRequestReplyExecution(a.ID(), b.ID(), false))
	g.ExecuteNextTick()

	if a.IsAlliedWith(b) || len(b.IncomingAllianceRequests()) != 0 {
		t.Fatalf("expected the request to be dropped")
	}
}

func TestBreakAllianceMarksTraitor(t *testing.T) {
	g, a, b, c := newDiplomacyGame(t, nil)
	ally(g, a, b)

	g.AddExecution(NewBreakAllianceExecution(a.ID(), b.ID()))
	g.ExecuteNextTick()

	if a.IsAlliedWith(b) {
		t.Fatalf("expected the alliance to be gone")
	}
	if !a.IsTraitor() {
		t.Fatalf("expected the breaker to be a traitor")
	}
	if got := b.RelationScore(a); got != -100 {
		t.Fatalf("expected the betrayed relation to bottom out, got %d", got)
	}
	if got := c.RelationScore(a); got != -40 {
		t.Fatalf("expected witnesses to distrust the traitor, got %d", got)
	}
}

func TestDonateTroopsToAlly(t *testing.T) {
	g, a, b, _ := newDiplomacyGame(t, nil)
	ally(g, a, b)
	a.SetTroops(900)
	b.SetTroops(0)
	b.UpdateRelation(a, -60)

	g.AddExecution(NewDonateTroopsExecution(a.ID(), b.ID(), -1))
	g.ExecuteNextTick()

	if a.Troops() != 600 || b.Troops() != 300 {
		t.Fatalf("expected a third of the troops to move, got %d and %d", a.Troops(), b.Troops())
	}
	if got := b.RelationScore(a); got != 90 {
		t.Fatalf("expected the donation to improve relations, got %d", got)
	}
}

func TestDonateToStrangerIsRejected(t *testing.T) {
	g, a, b, _ := newDiplomacyGame(t, nil)
	a.AddGold(1000)
	g.AddExecution(NewDonateGoldExecution(a.ID(), b.ID(), 500))
	g.ExecuteNextTick()
	if a.Gold() != 1000 || b.Gold() != 0 {
		t.Fatalf("expected no gold to change hands, got %d and %d", a.Gold(), b.Gold())
	}
}

func TestTargetPlayerSoursRelation(t *testing.T) {
	g, a, b, _ := newDiplomacyGame(t, nil)
	g.AddExecution(NewTargetPlayerExecution(a.ID(), b.ID()))
	g.ExecuteNextTick()

	if targets := a.Targets(); len(targets) != 1 || targets[0] != b {
		t.Fatalf("expected bravo to be targeted, got %v", targets)
	}
	if got := b.RelationScore(a); got != -40 {
		t.Fatalf("expected the target to resent it, got %d", got)
	}
}

func TestEmojiCooldown(t *testing.T) {
	g, a, b, _ := newDiplomacyGame(t, nil)
	g.AddExecution(NewEmojiExecution(a.ID(), b.ID(), insultEmoji))
	updates := g.ExecuteNextTick()
	if n := len(updates.Of(game.UpdateEmoji)); n != 1 {
		t.Fatalf("expected one emoji update, got %d", n)
	}
	if got := b.RelationScore(a); got != -100 {
		t.Fatalf("expected the insult to hurt, got %d", got)
	}

	g.AddExecution(NewEmojiExecution(a.ID(), b.ID(), "👍"))
	updates = g.ExecuteNextTick()
	if n := len(updates.Of(game.UpdateEmoji)); n != 0 {
		t.Fatalf("expected the second emoji to be throttled, got %d", n)
	}
}

func TestEmbargoBlocksTradeUntilLifted(t *testing.T) {
	g, a, b, _ := newDiplomacyGame(t, nil)
	g.AddExecution(NewEmbargoExecution(a.ID(), b.ID(), true))
	g.ExecuteNextTick()
	if a.CanTrade(b) || b.CanTrade(a) {
		t.Fatalf("expected the embargo to stop trade both ways")
	}
	g.AddExecution(NewEmbargoExecution(a.ID(), b.ID(), false))
	g.ExecuteNextTick()
	if !a.CanTrade(b) {
		t.Fatalf("expected trade to resume")
	}
}

func TestAllianceExtendsWhenBothAsk(t *testing.T) {
	g, a, b, _ := newDiplomacyGame(t, func(b *config.Balance) {
		b.AllianceDuration = 100
		b.RelationDecayInterval = 0
	})
	g.AddExecution(NewPlayerExecution(a.ID()), NewPlayerExecution(b.ID()))
	ally(g, a, b)
	alliance := a.AllianceWith(b)

	runTicks(g, alliance.ExpiresAt()-5-g.Ticks())
	g.AddExecution(NewAllianceRequestExecution(a.ID(), b.ID()), NewAllianceRequestExecution(b.ID(), a.ID()))
	runTicks(g, 10)

	if !a.IsAlliedWith(b) {
		t.Fatalf("expected the alliance to be renewed")
	}
	if alliance.ExpiresAt() <= g.Ticks() {
		t.Fatalf("expected a later expiry, got %d at tick %d", alliance.ExpiresAt(), g.Ticks())
	}
}

func TestAllianceExpiresWithoutRenewal(t *testing.T) {
	g, a, b, _ := newDiplomacyGame(t, func(b *config.Balance) { b.AllianceDuration = 100 })
	g.AddExecution(NewPlayerExecution(a.ID()), NewPlayerExecution(b.ID()))
	ally(g, a, b)

	runTicks(g, 105)
	if a.IsAlliedWith(b) {
		t.Fatalf("expected the alliance to expire")
	}
	if a.IsTraitor() || b.IsTraitor() {
		t.Fatalf("expiry must not mark anyone a traitor")
	}
}

func TestSetTargetTroopRatio(t *testing.T) {
	g, a, _, _ := newDiplomacyGame(t, nil)
	g.AddExecution(NewSetTargetTroopRatioExecution(a.ID(), 0.3))
	g.ExecuteNextTick()
	if a.TargetTroopRatio() != 0.3 {
		t.Fatalf("expected the ratio to be stored, got %v", a.TargetTroopRatio())
	}
}
