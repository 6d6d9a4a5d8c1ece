package execution

import "openfront/engine/internal/game"

// WinCheckExecution declares a winner once a player, or a team, owns enough of the land
// that is not covered in fallout.
type WinCheckExecution struct {
	g      *game.Game
	active bool
}

const winCheckInterval = 10

func NewWinCheckExecution() *WinCheckExecution { return &WinCheckExecution{active: true} }

func (e *WinCheckExecution) Init(g *game.Game, _ game.Tick) { e.g = g }

func (e *WinCheckExecution) Tick(ticks game.Tick) {
	if ticks%winCheckInterval != 0 || e.g.HasWinner() {
		return
	}
	gm := e.g.Map()
	habitable := gm.NumLandTiles() - gm.NumTilesWithFallout()
	if habitable <= 0 {
		return
	}
	threshold := e.g.Config().PercentageTilesOwnedToWin()

	players := e.g.Players()
	teams := make(map[string]int)
	var teamOrder []string
	var best *game.Player
	for _, p := range players {
		if best == nil || p.NumTilesOwned() > best.NumTilesOwned() {
			best = p
		}
		if team := p.Team(); team != "" {
			if _, ok := teams[team]; !ok {
				teamOrder = append(teamOrder, team)
			}
			teams[team] += p.NumTilesOwned()
		}
	}

	if len(teamOrder) > 0 {
		bestTeam := teamOrder[0]
		for _, t := range teamOrder[1:] {
			if teams[t] > teams[bestTeam] {
				bestTeam = t
			}
		}
		if float64(teams[bestTeam])/float64(habitable)*100 > threshold {
			e.g.SetWinner(nil, bestTeam)
			e.active = false
		}
		return
	}
	if best != nil && float64(best.NumTilesOwned())/float64(habitable)*100 > threshold {
		e.g.SetWinner(best, "")
		e.active = false
	}
}

func (e *WinCheckExecution) IsActive() bool               { return e.active }
func (e *WinCheckExecution) ActiveDuringSpawnPhase() bool { return false }
