package game

import (
	"math"
	"time"

	"openfront/engine/internal/config"
	"openfront/engine/internal/logging"
)

// Config is the static balance surface the simulation reads. Every method is pure for a
// given game state so replays reproduce the same numbers.
type Config interface {
	TurnInterval() time.Duration
	BotNames() []string
	InstantBuild() bool
	InfiniteGold() bool
	InfiniteTroops() bool

	UnitInfo(t UnitType) UnitInfo
	NukeMagnitudes(t UnitType) config.NukeBalance
	NukeDeathFactor(humans int64, tilesOwned int) int64
	DefaultNukeSpeed() int
	MIRVWarheadCount() int
	MIRVSpread() int

	SAMCooldown() int
	SiloCooldown() int
	SAMHitChance() float64
	SAMWarheadHitChance() float64

	TradeShipGold(dist int) Gold
	TradeShipSpawnRate(numPorts int) int
	SafeFromPiratesCooldown() int

	StartManpower(t PlayerType) int64
	MaxPopulation(p *Player) int64
	PopulationIncreaseRate(p *Player) int64
	GoldAdditionRate(p *Player) Gold
	TroopAdjustmentRate(p *Player) int64

	AttackAmount(attacker *Player) int64
	BoatAttackAmount(attacker *Player) int64
	BoatMaxNumber() int
	AttackTilesPerTick() int
	AttackLogic(attackTroops int64, attacker, defender *Player, defended bool) (attackerLoss, defenderLoss int64)
	DefaultDonationAmount(sender *Player) int64

	DonateCooldown() int
	EmojiMessageCooldown() int
	TargetDuration() int
	TargetCooldown() int
	AllianceDuration() int
	AllianceRequestCooldown() int
	TraitorDuration() int
	RelationDecayInterval() int

	NumSpawnPhaseTurns() int
	SpawnRadius() int
	PercentageTilesOwnedToWin() float64
	StructureMinDist() int
	DefensePostRange() int
	WarshipPatrolRange() int
	WarshipTargetRange() int
	WarshipShellAttackRate() int

	BotTriggerRatio() float64
	BotReserveRatio() float64
	BotAttackInterval() int
}

// balanceConfig implements Config from a validated config.Balance.
type balanceConfig struct {
	b       config.Balance
	formula *config.Formula
	infos   [numUnitTypes]UnitInfo
}

// NewConfig wraps a balance. A trade gold formula that fails to compile falls back to
// the built-in curve with a warning; Balance.Validate reports it earlier in practice.
func NewConfig(b config.Balance) Config {
	c := &balanceConfig{b: b}
	if b.TradeGoldFormula != "" {
		formula, err := config.CompileFormula(b.TradeGoldFormula)
		if err != nil {
			logging.L().Warn("trade gold formula rejected", logging.Error(err))
		} else {
			c.formula = formula
		}
	}
	c.infos = c.buildUnitInfos()
	return c
}

func (c *balanceConfig) buildUnitInfos() [numUnitTypes]UnitInfo {
	ct := c.b.Construction
	var infos [numUnitTypes]UnitInfo
	infos[TransportShip] = UnitInfo{Cost: c.free()}
	infos[Warship] = UnitInfo{
		Cost:                 c.scaled(Warship, 250_000, 1_000_000, false),
		MaxHealth:            1000,
		Damage:               250,
		ConstructionDuration: c.duration(ct.Warship),
	}
	infos[Shell] = UnitInfo{Cost: c.free(), Damage: 250}
	infos[SAMMissile] = UnitInfo{Cost: c.free()}
	infos[Port] = UnitInfo{
		Cost:                 c.scaled(Port, 125_000, 1_000_000, true),
		TerritoryBound:       true,
		ConstructionDuration: c.duration(ct.Port),
		Upgradable:           true,
	}
	infos[AtomBomb] = UnitInfo{Cost: c.fixed(750_000), ConstructionDuration: c.duration(ct.AtomBomb)}
	infos[HydrogenBomb] = UnitInfo{Cost: c.fixed(5_000_000), ConstructionDuration: c.duration(ct.HydrogenBomb)}
	infos[TradeShip] = UnitInfo{Cost: c.free()}
	infos[MissileSilo] = UnitInfo{
		Cost:                 c.fixed(1_000_000),
		TerritoryBound:       true,
		ConstructionDuration: c.duration(ct.MissileSilo),
		Upgradable:           true,
	}
	infos[DefensePost] = UnitInfo{
		Cost:                 c.scaled(DefensePost, 50_000, 250_000, false),
		TerritoryBound:       true,
		ConstructionDuration: c.duration(ct.DefensePost),
	}
	infos[SAMLauncher] = UnitInfo{
		Cost:                 c.scaled(SAMLauncher, 1_500_000, 3_000_000, false),
		TerritoryBound:       true,
		ConstructionDuration: c.duration(ct.SAMLauncher),
		Upgradable:           true,
	}
	infos[City] = UnitInfo{
		Cost:                 c.scaled(City, 125_000, 1_000_000, true),
		TerritoryBound:       true,
		ConstructionDuration: c.duration(ct.City),
		Upgradable:           true,
	}
	infos[MIRV] = UnitInfo{Cost: c.fixed(35_000_000), ConstructionDuration: c.duration(ct.MIRV)}
	infos[MIRVWarhead] = UnitInfo{Cost: c.free()}
	infos[Construction] = UnitInfo{Cost: c.free(), TerritoryBound: true}
	infos[Train] = UnitInfo{Cost: c.free()}
	infos[Factory] = UnitInfo{
		Cost:                 c.scaled(Factory, 125_000, 1_000_000, true),
		TerritoryBound:       true,
		ConstructionDuration: c.duration(ct.Factory),
		Upgradable:           true,
	}
	infos[CityUpgrade] = UnitInfo{
		Cost:                 c.scaled(City, 125_000, 1_000_000, true),
		TerritoryBound:       true,
		ConstructionDuration: c.duration(ct.CityUpgrade),
	}
	return infos
}

// duration maps a tick count to a construction duration. Zero or instant build means
// the unit has no construction phase.
func (c *balanceConfig) duration(ticks int) *Tick {
	if ticks <= 0 || c.b.InstantBuild {
		return nil
	}
	d := ticks
	return &d
}

func (c *balanceConfig) free() func(*Player) Gold {
	return func(*Player) Gold { return 0 }
}

func (c *balanceConfig) fixed(amount Gold) func(*Player) Gold {
	return func(p *Player) Gold {
		if c.b.InfiniteGold && p != nil && p.Type() == PlayerHuman {
			return 0
		}
		return amount
	}
}

// scaled grows with the number already built, doubling when exponential is set and
// stepping linearly otherwise, capped at limit.
func (c *balanceConfig) scaled(t UnitType, base, limit Gold, exponential bool) func(*Player) Gold {
	return func(p *Player) Gold {
		if p == nil {
			return base
		}
		if c.b.InfiniteGold && p.Type() == PlayerHuman {
			return 0
		}
		n := Gold(p.UnitsConstructed(t))
		var cost Gold
		if exponential {
			if n >= 16 {
				return limit
			}
			cost = base << n
		} else {
			cost = base * (n + 1)
		}
		return min(cost, limit)
	}
}

func (c *balanceConfig) TurnInterval() time.Duration { return c.b.TurnInterval }
func (c *balanceConfig) BotNames() []string          { return c.b.BotNames }
func (c *balanceConfig) InstantBuild() bool          { return c.b.InstantBuild }
func (c *balanceConfig) InfiniteGold() bool          { return c.b.InfiniteGold }
func (c *balanceConfig) InfiniteTroops() bool        { return c.b.InfiniteTroops }

func (c *balanceConfig) UnitInfo(t UnitType) UnitInfo {
	if t >= numUnitTypes {
		panic("game: unit info requested for unknown type " + t.String())
	}
	return c.infos[t]
}

func (c *balanceConfig) NukeMagnitudes(t UnitType) config.NukeBalance {
	switch t {
	case AtomBomb:
		return c.b.AtomBomb
	case HydrogenBomb:
		return c.b.HydrogenBomb
	case MIRVWarhead:
		return c.b.MIRVWarhead
	}
	panic("game: no nuke magnitudes for " + t.String())
}

// NukeDeathFactor is the share of humans killed for each destroyed tile.
func (c *balanceConfig) NukeDeathFactor(humans int64, tilesOwned int) int64 {
	return c.b.NukeDeathFactor * humans / int64(max(1, tilesOwned))
}

func (c *balanceConfig) DefaultNukeSpeed() int { return c.b.NukeSpeed }
func (c *balanceConfig) MIRVWarheadCount() int { return c.b.MIRVWarheads }
func (c *balanceConfig) MIRVSpread() int       { return c.b.MIRVSpread }
func (c *balanceConfig) SAMCooldown() int      { return c.b.SAMCooldown }
func (c *balanceConfig) SiloCooldown() int     { return c.b.SiloCooldown }
func (c *balanceConfig) SAMHitChance() float64 { return c.b.SAMHitChance }
func (c *balanceConfig) SAMWarheadHitChance() float64 {
	return c.b.SAMWarheadHitChance
}

// TradeShipGold pays by route length, either from the configured formula or from
// 10000 + 150 * dist^1.1.
func (c *balanceConfig) TradeShipGold(dist int) Gold {
	if c.formula != nil {
		value, err := c.formula.Eval(float64(dist))
		if err == nil {
			return Gold(math.Floor(value))
		}
		logging.L().Warn("trade gold formula failed", logging.Error(err))
	}
	return Gold(math.Floor(10000 + float64(150*math.Pow(float64(dist), 1.1))))
}

// TradeShipSpawnRate is the odds denominator for a port launching a ship this tick.
// More ports make each one slightly less likely to fire.
func (c *balanceConfig) TradeShipSpawnRate(numPorts int) int {
	return c.b.TradeShipSpawnOdds + numPorts*5
}

func (c *balanceConfig) SafeFromPiratesCooldown() int { return c.b.SafeFromPiratesTicks }

func (c *balanceConfig) StartManpower(t PlayerType) int64 {
	switch t {
	case PlayerBot:
		return 10_000
	case PlayerFakeHuman:
		return 20_000
	}
	return 25_000
}

func (c *balanceConfig) MaxPopulation(p *Player) int64 {
	tiles := float64(p.NumTilesOwned())
	base := int64(float64(math.Pow(tiles, 0.6)*1000)) + 50_000
	cities := int64(p.UnitsOwned(City))
	total := 2*base + cities*c.b.CityPopulation
	if p.Type() == PlayerBot {
		return total / 2
	}
	return total
}

// PopulationIncreaseRate slows to zero as the population approaches its cap.
func (c *balanceConfig) PopulationIncreaseRate(p *Player) int64 {
	maxPop := c.MaxPopulation(p)
	pop := p.Population()
	if pop >= maxPop {
		return 0
	}
	toAdd := 10 + float64(math.Pow(float64(pop), 0.73))/4
	ratio := 1 - float64(pop)/float64(maxPop)
	return int64(float64(toAdd * ratio))
}

func (c *balanceConfig) GoldAdditionRate(p *Player) Gold {
	return Gold(math.Sqrt(float64(p.Workers())*float64(p.NumTilesOwned())) / 200)
}

// TroopAdjustmentRate is how many humans move between troops and workers per tick
// while the player's ratio differs from its target.
func (c *balanceConfig) TroopAdjustmentRate(p *Player) int64 {
	target := int64(float64(float64(p.Population()) * p.TargetTroopRatio()))
	diff := target - p.Troops()
	step := max(1, p.Population()/100)
	if diff > 0 {
		return min(diff, step)
	}
	return max(diff, -step)
}

func (c *balanceConfig) AttackAmount(attacker *Player) int64 {
	if attacker.Type() == PlayerBot {
		return attacker.Troops() / 20
	}
	return attacker.Troops() / 5
}

func (c *balanceConfig) BoatAttackAmount(attacker *Player) int64 {
	return attacker.Troops() / 5
}

func (c *balanceConfig) BoatMaxNumber() int      { return c.b.BoatMaxNumber }
func (c *balanceConfig) AttackTilesPerTick() int { return c.b.AttackTilesPerTick }

// AttackLogic prices one conquered tile. Unclaimed land costs a flat amount; owned land
// costs in proportion to the defender's troop density, more when a defense post covers it.
func (c *balanceConfig) AttackLogic(attackTroops int64, attacker, defender *Player, defended bool) (int64, int64) {
	if defender == nil {
		return max(1, attackTroops/500), 0
	}
	density := defender.Troops() / int64(max(1, defender.NumTilesOwned()))
	attackerLoss := max(1, density+1)
	if defended {
		attackerLoss *= c.b.DefensePostBonus
	}
	if defender.IsTraitor() {
		attackerLoss = max(1, attackerLoss*4/5)
	}
	defenderLoss := max(1, density/2)
	return attackerLoss, defenderLoss
}

func (c *balanceConfig) DefaultDonationAmount(sender *Player) int64 { return sender.Troops() / 3 }

func (c *balanceConfig) DonateCooldown() int          { return c.b.DonateCooldown }
func (c *balanceConfig) EmojiMessageCooldown() int    { return c.b.EmojiCooldown }
func (c *balanceConfig) TargetDuration() int          { return c.b.TargetDuration }
func (c *balanceConfig) TargetCooldown() int          { return c.b.TargetCooldown }
func (c *balanceConfig) AllianceDuration() int        { return c.b.AllianceDuration }
func (c *balanceConfig) AllianceRequestCooldown() int { return c.b.AllianceRequestCooldown }
func (c *balanceConfig) TraitorDuration() int         { return c.b.TraitorDuration }
func (c *balanceConfig) RelationDecayInterval() int   { return c.b.RelationDecayInterval }

func (c *balanceConfig) NumSpawnPhaseTurns() int            { return c.b.SpawnPhaseTurns }
func (c *balanceConfig) SpawnRadius() int                   { return c.b.SpawnRadius }
func (c *balanceConfig) PercentageTilesOwnedToWin() float64 { return c.b.WinPercentage }
func (c *balanceConfig) StructureMinDist() int              { return c.b.StructureMinDist }
func (c *balanceConfig) DefensePostRange() int              { return c.b.DefensePostRange }
func (c *balanceConfig) WarshipPatrolRange() int            { return c.b.WarshipPatrolRange }
func (c *balanceConfig) WarshipTargetRange() int            { return c.b.WarshipTargetRange }
func (c *balanceConfig) WarshipShellAttackRate() int        { return c.b.WarshipShellRate }

func (c *balanceConfig) BotTriggerRatio() float64 { return c.b.BotTriggerRatio }
func (c *balanceConfig) BotReserveRatio() float64 { return c.b.BotReserveRatio }
func (c *balanceConfig) BotAttackInterval() int   { return c.b.BotAttackInterval }
