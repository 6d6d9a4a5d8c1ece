package intent

import (
	"fmt"
	"sync"
	"time"

	"openfront/engine/internal/game"
	"openfront/engine/internal/logging"
)

// ValidationReason identifies why an intent was rejected by the validator.
type ValidationReason string

const (
	ValidationReasonNone           ValidationReason = ""
	ValidationReasonUnknownType    ValidationReason = "unknown_type"
	ValidationReasonClientID       ValidationReason = "client_id"
	ValidationReasonPlayerID       ValidationReason = "player_id"
	ValidationReasonTargetID       ValidationReason = "target_id"
	ValidationReasonTroops         ValidationReason = "troops"
	ValidationReasonGold           ValidationReason = "gold"
	ValidationReasonRatio          ValidationReason = "ratio_range"
	ValidationReasonUnit           ValidationReason = "unit_type"
	ValidationReasonCoordinates    ValidationReason = "coordinates"
	ValidationReasonName           ValidationReason = "name"
	ValidationReasonPlayerType     ValidationReason = "player_type"
	ValidationReasonEmoji          ValidationReason = "emoji"
	ValidationReasonChat           ValidationReason = "chat"
	ValidationReasonAction         ValidationReason = "embargo_action"
	ValidationReasonCooldownActive ValidationReason = "cooldown_active"
)

// idLength is the size of client, player and game identifiers.
const idLength = 8

// MaxNameLength bounds spawn names.
const MaxNameLength = 27

// AllPlayersRecipient broadcasts an emoji to everyone.
const AllPlayersRecipient = "AllPlayers"

// Buildable lists the unit types a build_unit intent may request.
var Buildable = []game.UnitType{
	game.City, game.CityUpgrade, game.DefensePost, game.Factory, game.Port, game.Warship,
	game.MissileSilo, game.SAMLauncher, game.AtomBomb, game.HydrogenBomb, game.MIRV,
}

// Clock abstracts time for deterministic testing.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Constraints configures the validator's burst and cooldown policies.
type Constraints struct {
	InvalidBurstLimit  int
	InvalidBurstWindow time.Duration
	CooldownDuration   time.Duration
	MaxCooldownStrikes int
}

// ValidationDecision summarises the result of a Validate call.
type ValidationDecision struct {
	Accepted   bool
	Reason     ValidationReason
	Warn       bool
	Disconnect bool
	Cooldown   time.Duration
}

// ValidationCounters aggregates per-client violation statistics.
type ValidationCounters struct {
	Violations  map[ValidationReason]uint64 `json:"violations,omitempty"`
	Cooldowns   uint64                      `json:"cooldowns"`
	Disconnects uint64                      `json:"disconnects"`
}

// ValidatorOption customises validator construction.
type ValidatorOption func(*Validator)

// Validator checks intent shape and puts clients that keep sending malformed intents
// into a cooldown, disconnecting them after repeated cooldowns.
type Validator struct {
	mu      sync.Mutex
	cfg     Constraints
	clock   Clock
	logger  *logging.Logger
	clients map[string]*validatorClientState
	metrics map[string]ValidationCounters
}

type validatorClientState struct {
	firstInvalid  time.Time
	invalidCount  int
	cooldownUntil time.Time
	strikes       int
}

// DefaultConstraints provides the tuned baseline for production traffic.
var DefaultConstraints = Constraints{
	InvalidBurstLimit:  5,
	InvalidBurstWindow: time.Second,
	CooldownDuration:   2 * time.Second,
	MaxCooldownStrikes: 3,
}

// WithValidatorClock overrides the clock used to determine cooldown windows.
func WithValidatorClock(clock Clock) ValidatorOption {
	return func(v *Validator) {
		if clock != nil {
			v.clock = clock
		}
	}
}

// NewValidator builds a validator with the supplied constraints and logger.
func NewValidator(cfg Constraints, logger *logging.Logger, opts ...ValidatorOption) *Validator {
	//1.- Fill unset policies from the defaults.
	if cfg.InvalidBurstLimit <= 0 {
		cfg.InvalidBurstLimit = DefaultConstraints.InvalidBurstLimit
	}
	if cfg.InvalidBurstWindow <= 0 {
		cfg.InvalidBurstWindow = DefaultConstraints.InvalidBurstWindow
	}
	if cfg.CooldownDuration <= 0 {
		cfg.CooldownDuration = DefaultConstraints.CooldownDuration
	}
	if cfg.MaxCooldownStrikes <= 0 {
		cfg.MaxCooldownStrikes = DefaultConstraints.MaxCooldownStrikes
	}
	validator := &Validator{
		cfg:     cfg,
		clock:   systemClock{},
		logger:  logger,
		clients: make(map[string]*validatorClientState),
		metrics: make(map[string]ValidationCounters),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(validator)
		}
	}
	return validator
}

// Validate checks the intent and records any violation against its client.
func (v *Validator) Validate(in Intent) ValidationDecision {
	//2.- Assume acceptance when the validator is absent to reduce call sites.
	if v == nil {
		return ValidationDecision{Accepted: true}
	}
	key := in.ClientID
	now := v.clock.Now()

	v.mu.Lock()
	defer v.mu.Unlock()

	state := v.ensureStateLocked(key)
	if !state.cooldownUntil.IsZero() && now.Before(state.cooldownUntil) {
		return ValidationDecision{Reason: ValidationReasonCooldownActive, Cooldown: state.cooldownUntil.Sub(now)}
	}
	if reason := Check(in); reason != ValidationReasonNone {
		return v.registerViolationLocked(key, state, now, reason)
	}
	//3.- A clean intent resets the burst counter but keeps the strikes.
	state.invalidCount = 0
	state.firstInvalid = time.Time{}
	return ValidationDecision{Accepted: true}
}

// Forget clears all state for the specified client.
func (v *Validator) Forget(clientID string) {
	if v == nil || clientID == "" {
		return
	}
	v.mu.Lock()
	delete(v.clients, clientID)
	delete(v.metrics, clientID)
	v.mu.Unlock()
}

// Metrics returns a snapshot of per-client counters for diagnostics.
func (v *Validator) Metrics() map[string]ValidationCounters {
	if v == nil {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.metrics) == 0 {
		return nil
	}
	snapshot := make(map[string]ValidationCounters, len(v.metrics))
	for key, counters := range v.metrics {
		clone := ValidationCounters{Cooldowns: counters.Cooldowns, Disconnects: counters.Disconnects}
		if len(counters.Violations) > 0 {
			clone.Violations = make(map[ValidationReason]uint64, len(counters.Violations))
			for reason, count := range counters.Violations {
				clone.Violations[reason] = count
			}
		}
		snapshot[key] = clone
	}
	return snapshot
}

func (v *Validator) ensureStateLocked(key string) *validatorClientState {
	state := v.clients[key]
	if state == nil {
		state = &validatorClientState{}
		v.clients[key] = state
	}
	return state
}

func (v *Validator) registerViolationLocked(key string, state *validatorClientState, now time.Time, reason ValidationReason) ValidationDecision {
	counters := v.metrics[key]
	if counters.Violations == nil {
		counters.Violations = make(map[ValidationReason]uint64)
	}
	counters.Violations[reason]++

	decision := ValidationDecision{Reason: reason}
	if state.invalidCount == 0 || now.Sub(state.firstInvalid) > v.cfg.InvalidBurstWindow {
		state.firstInvalid = now
		state.invalidCount = 1
	} else {
		state.invalidCount++
	}
	decision.Warn = v.cfg.InvalidBurstLimit-state.invalidCount == 1

	if state.invalidCount >= v.cfg.InvalidBurstLimit {
		state.cooldownUntil = now.Add(v.cfg.CooldownDuration)
		state.invalidCount = 0
		state.firstInvalid = time.Time{}
		state.strikes++
		counters.Cooldowns++
		if state.strikes >= v.cfg.MaxCooldownStrikes {
			decision.Disconnect = true
			counters.Disconnects++
		}
		decision.Cooldown = v.cfg.CooldownDuration
		v.logger.Debug("intent validator cooldown",
			logging.String("client", key),
			logging.String("reason", string(reason)),
			logging.Int("strikes", state.strikes),
		)
	}
	v.metrics[key] = counters
	return decision
}

// Check validates the shape of a single intent without touching per-client state.
func Check(in Intent) ValidationReason {
	//4.- Every intent names its client and player.
	if !in.Type.Known() {
		return ValidationReasonUnknownType
	}
	if !ValidID(in.ClientID) {
		return ValidationReasonClientID
	}
	if !ValidID(in.PlayerID) {
		return ValidationReasonPlayerID
	}

	//5.- Then the per-type payload.
	switch in.Type {
	case TypeAttack:
		if in.TargetID != "" && !ValidID(in.TargetID) {
			return ValidationReasonTargetID
		}
		return checkAmount(in.Troops, ValidationReasonTroops)
	case TypeSpawn:
		if in.Name == "" || len(in.Name) > MaxNameLength {
			return ValidationReasonName
		}
		switch game.PlayerType(in.PlayerType) {
		case game.PlayerHuman, game.PlayerBot, game.PlayerFakeHuman:
		default:
			return ValidationReasonPlayerType
		}
		return checkCoords(in)
	case TypeBoat:
		if in.TargetID != "" && !ValidID(in.TargetID) {
			return ValidationReasonTargetID
		}
		if reason := checkAmount(in.Troops, ValidationReasonTroops); reason != ValidationReasonNone {
			return reason
		}
		return checkCoords(in)
	case TypeAllianceRequest, TypeBreakAlliance:
		return checkPeer(in.Recipient)
	case TypeAllianceRequestReply:
		return checkPeer(in.Requestor)
	case TypeTargetPlayer:
		return checkPeer(in.Target)
	case TypeEmoji:
		if in.Recipient != AllPlayersRecipient && !ValidID(in.Recipient) {
			return ValidationReasonTargetID
		}
		if in.Emoji == "" {
			return ValidationReasonEmoji
		}
	case TypeChat:
		if reason := checkPeer(in.Recipient); reason != ValidationReasonNone {
			return reason
		}
		if in.QuickChatKey == "" {
			return ValidationReasonChat
		}
		if in.ChatTarget != "" && !ValidID(in.ChatTarget) {
			return ValidationReasonTargetID
		}
	case TypeDonate:
		if reason := checkPeer(in.Recipient); reason != ValidationReasonNone {
			return reason
		}
		if in.Troops != nil && in.Gold != nil {
			return ValidationReasonTroops
		}
		if reason := checkAmount(in.Troops, ValidationReasonTroops); reason != ValidationReasonNone {
			return reason
		}
		return checkAmount(in.Gold, ValidationReasonGold)
	case TypeTroopRatio:
		if in.Ratio < 0 || in.Ratio > 1 {
			return ValidationReasonRatio
		}
	case TypeBuildUnit:
		if _, err := BuildableUnit(in.Unit); err != nil {
			return ValidationReasonUnit
		}
		return checkCoords(in)
	case TypeEmbargo:
		if !ValidID(in.TargetID) {
			return ValidationReasonTargetID
		}
		if in.Action != EmbargoStart && in.Action != EmbargoStop {
			return ValidationReasonAction
		}
	case TypeCancelAttack:
		if in.AttackID == "" {
			return ValidationReasonTargetID
		}
	case TypeCancelBoat:
		if in.UnitID <= 0 {
			return ValidationReasonTargetID
		}
	}
	return ValidationReasonNone
}

// BuildableUnit resolves the unit display name of a build_unit intent.
func BuildableUnit(name string) (game.UnitType, error) {
	t, err := game.ParseUnitType(name)
	if err != nil {
		return 0, err
	}
	for _, b := range Buildable {
		if b == t {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unit type %q cannot be built", name)
}

// ValidID reports whether id is eight ASCII alphanumerics.
func ValidID(id string) bool {
	if len(id) != idLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

func checkPeer(id string) ValidationReason {
	if !ValidID(id) {
		return ValidationReasonTargetID
	}
	return ValidationReasonNone
}

func checkAmount(amount *int64, reason ValidationReason) ValidationReason {
	if amount != nil && *amount < 0 {
		return reason
	}
	return ValidationReasonNone
}

func checkCoords(in Intent) ValidationReason {
	if in.X < 0 || in.Y < 0 {
		return ValidationReasonCoordinates
	}
	return ValidationReasonNone
}
