package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// NukeBalance holds blast radii in tiles.
type NukeBalance struct {
	Inner int `mapstructure:"inner" yaml:"inner"`
	Outer int `mapstructure:"outer" yaml:"outer"`
}

// ConstructionTicks is how long each buildable type stays under construction.
type ConstructionTicks struct {
	City         int `mapstructure:"city" yaml:"city"`
	CityUpgrade  int `mapstructure:"city_upgrade" yaml:"city_upgrade"`
	Port         int `mapstructure:"port" yaml:"port"`
	MissileSilo  int `mapstructure:"missile_silo" yaml:"missile_silo"`
	DefensePost  int `mapstructure:"defense_post" yaml:"defense_post"`
	SAMLauncher  int `mapstructure:"sam_launcher" yaml:"sam_launcher"`
	Factory      int `mapstructure:"factory" yaml:"factory"`
	Warship      int `mapstructure:"warship" yaml:"warship"`
	AtomBomb     int `mapstructure:"atom_bomb" yaml:"atom_bomb"`
	HydrogenBomb int `mapstructure:"hydrogen_bomb" yaml:"hydrogen_bomb"`
	MIRV         int `mapstructure:"mirv" yaml:"mirv"`
}

// Balance is the static rule set of one game. Durations in ticks are plain ints.
type Balance struct {
	TurnInterval time.Duration `mapstructure:"turn_interval" yaml:"turn_interval"`
	BotNames     []string      `mapstructure:"bot_names" yaml:"bot_names"`

	InstantBuild   bool `mapstructure:"instant_build" yaml:"instant_build"`
	InfiniteGold   bool `mapstructure:"infinite_gold" yaml:"infinite_gold"`
	InfiniteTroops bool `mapstructure:"infinite_troops" yaml:"infinite_troops"`

	SpawnPhaseTurns int     `mapstructure:"spawn_phase_turns" yaml:"spawn_phase_turns"`
	SpawnRadius     int     `mapstructure:"spawn_radius" yaml:"spawn_radius"`
	WinPercentage   float64 `mapstructure:"win_percentage" yaml:"win_percentage"`

	NukeSpeed       int         `mapstructure:"nuke_speed" yaml:"nuke_speed"`
	AtomBomb        NukeBalance `mapstructure:"atom_bomb" yaml:"atom_bomb"`
	HydrogenBomb    NukeBalance `mapstructure:"hydrogen_bomb" yaml:"hydrogen_bomb"`
	MIRVWarhead     NukeBalance `mapstructure:"mirv_warhead" yaml:"mirv_warhead"`
	NukeDeathFactor int64       `mapstructure:"nuke_death_factor" yaml:"nuke_death_factor"`
	MIRVWarheads    int         `mapstructure:"mirv_warheads" yaml:"mirv_warheads"`
	MIRVSpread      int         `mapstructure:"mirv_spread" yaml:"mirv_spread"`

	SAMCooldown         int     `mapstructure:"sam_cooldown" yaml:"sam_cooldown"`
	SiloCooldown        int     `mapstructure:"silo_cooldown" yaml:"silo_cooldown"`
	SAMHitChance        float64 `mapstructure:"sam_hit_chance" yaml:"sam_hit_chance"`
	SAMWarheadHitChance float64 `mapstructure:"sam_warhead_hit_chance" yaml:"sam_warhead_hit_chance"`

	DonateCooldown          int `mapstructure:"donate_cooldown" yaml:"donate_cooldown"`
	EmojiCooldown           int `mapstructure:"emoji_cooldown" yaml:"emoji_cooldown"`
	TargetDuration          int `mapstructure:"target_duration" yaml:"target_duration"`
	TargetCooldown          int `mapstructure:"target_cooldown" yaml:"target_cooldown"`
	AllianceDuration        int `mapstructure:"alliance_duration" yaml:"alliance_duration"`
	AllianceRequestCooldown int `mapstructure:"alliance_request_cooldown" yaml:"alliance_request_cooldown"`
	TraitorDuration         int `mapstructure:"traitor_duration" yaml:"traitor_duration"`
	RelationDecayInterval   int `mapstructure:"relation_decay_interval" yaml:"relation_decay_interval"`

	TradeShipSpawnOdds   int    `mapstructure:"trade_ship_spawn_odds" yaml:"trade_ship_spawn_odds"`
	TradeGoldFormula     string `mapstructure:"trade_gold_formula" yaml:"trade_gold_formula"`
	SafeFromPiratesTicks int    `mapstructure:"safe_from_pirates_ticks" yaml:"safe_from_pirates_ticks"`

	StructureMinDist   int   `mapstructure:"structure_min_dist" yaml:"structure_min_dist"`
	DefensePostRange   int   `mapstructure:"defense_post_range" yaml:"defense_post_range"`
	DefensePostBonus   int64 `mapstructure:"defense_post_bonus" yaml:"defense_post_bonus"`
	WarshipPatrolRange int   `mapstructure:"warship_patrol_range" yaml:"warship_patrol_range"`
	WarshipTargetRange int   `mapstructure:"warship_target_range" yaml:"warship_target_range"`
	WarshipShellRate   int   `mapstructure:"warship_shell_rate" yaml:"warship_shell_rate"`
	BoatMaxNumber      int   `mapstructure:"boat_max_number" yaml:"boat_max_number"`
	AttackTilesPerTick int   `mapstructure:"attack_tiles_per_tick" yaml:"attack_tiles_per_tick"`
	CityPopulation     int64 `mapstructure:"city_population" yaml:"city_population"`

	BotTriggerRatio   float64 `mapstructure:"bot_trigger_ratio" yaml:"bot_trigger_ratio"`
	BotReserveRatio   float64 `mapstructure:"bot_reserve_ratio" yaml:"bot_reserve_ratio"`
	BotAttackInterval int     `mapstructure:"bot_attack_interval" yaml:"bot_attack_interval"`

	Construction ConstructionTicks `mapstructure:"construction" yaml:"construction"`
}

// DefaultBalance returns the stock rule set.
func DefaultBalance() Balance {
	return Balance{
		TurnInterval:            100 * time.Millisecond,
		SpawnPhaseTurns:         100,
		SpawnRadius:             4,
		WinPercentage:           80,
		NukeSpeed:               4,
		AtomBomb:                NukeBalance{Inner: 12, Outer: 30},
		HydrogenBomb:            NukeBalance{Inner: 80, Outer: 100},
		MIRVWarhead:             NukeBalance{Inner: 12, Outer: 18},
		NukeDeathFactor:         5,
		MIRVWarheads:            35,
		MIRVSpread:              15,
		SAMCooldown:             75,
		SiloCooldown:            75,
		SAMHitChance:            0.8,
		SAMWarheadHitChance:     0.5,
		DonateCooldown:          100,
		EmojiCooldown:           50,
		TargetDuration:          100,
		TargetCooldown:          150,
		AllianceDuration:        6000,
		AllianceRequestCooldown: 300,
		TraitorDuration:         300,
		RelationDecayInterval:   50,
		TradeShipSpawnOdds:      100,
		SafeFromPiratesTicks:    20,
		StructureMinDist:        15,
		DefensePostRange:        30,
		DefensePostBonus:        5,
		WarshipPatrolRange:      100,
		WarshipTargetRange:      130,
		WarshipShellRate:        20,
		BoatMaxNumber:           3,
		AttackTilesPerTick:      4,
		CityPopulation:          250000,
		BotTriggerRatio:         0.5,
		BotReserveRatio:         0.6,
		BotAttackInterval:       40,
		Construction: ConstructionTicks{
			City:         20,
			CityUpgrade:  20,
			Port:         20,
			MissileSilo:  100,
			DefensePost:  50,
			SAMLauncher:  300,
			Factory:      20,
			Warship:      20,
			AtomBomb:     0,
			HydrogenBomb: 0,
			MIRV:         0,
		},
	}
}

// LoadBalance overlays a YAML file on the defaults. An empty path returns the defaults.
func LoadBalance(path string) (Balance, error) {
	balance := DefaultBalance()
	if path == "" {
		return balance, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return Balance{}, fmt.Errorf("read balance %s: %w", path, err)
	}
	hooks := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&balance, viper.DecodeHook(hooks)); err != nil {
		return Balance{}, fmt.Errorf("decode balance %s: %w", path, err)
	}
	if err := balance.Validate(); err != nil {
		return Balance{}, err
	}
	return balance, nil
}

// Validate reports every out-of-range value.
func (b Balance) Validate() error {
	var errs []error
	positive := map[string]int{
		"nuke_speed":            b.NukeSpeed,
		"sam_cooldown":          b.SAMCooldown,
		"silo_cooldown":         b.SiloCooldown,
		"spawn_radius":          b.SpawnRadius,
		"trade_ship_spawn_odds": b.TradeShipSpawnOdds,
		"warship_shell_rate":    b.WarshipShellRate,
		"attack_tiles_per_tick": b.AttackTilesPerTick,
		"bot_attack_interval":   b.BotAttackInterval,
	}
	for _, key := range slices.Sorted(maps.Keys(positive)) {
		if positive[key] <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", key, positive[key]))
		}
	}
	for name, nuke := range map[string]NukeBalance{"atom_bomb": b.AtomBomb, "hydrogen_bomb": b.HydrogenBomb, "mirv_warhead": b.MIRVWarhead} {
		if nuke.Inner < 0 || nuke.Outer < nuke.Inner {
			errs = append(errs, fmt.Errorf("%s radii must satisfy 0 <= inner <= outer, got %d/%d", name, nuke.Inner, nuke.Outer))
		}
	}
	for name, chance := range map[string]float64{"sam_hit_chance": b.SAMHitChance, "sam_warhead_hit_chance": b.SAMWarheadHitChance} {
		if chance < 0 || chance > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0,1], got %v", name, chance))
		}
	}
	if b.WinPercentage <= 0 || b.WinPercentage > 100 {
		errs = append(errs, fmt.Errorf("win_percentage must be within (0,100], got %v", b.WinPercentage))
	}
	if b.TurnInterval <= 0 {
		errs = append(errs, fmt.Errorf("turn_interval must be positive, got %s", b.TurnInterval))
	}
	if b.TradeGoldFormula != "" {
		if _, err := CompileFormula(b.TradeGoldFormula); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
