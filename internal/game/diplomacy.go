package game

import (
	"fmt"
	"slices"
	"sort"
)

const (
	relationMin = -100
	relationMax = 100
)

func relationBucket(score int) Relation {
	switch {
	case score <= -50:
		return Hostile
	case score < 0:
		return Distrustful
	case score < 50:
		return Neutral
	}
	return Friendly
}

// Relation buckets the score this player holds toward other.
func (p *Player) Relation(other *Player) Relation {
	if other == p {
		return Friendly
	}
	return relationBucket(p.relations[other.SmallID()])
}

// RelationScore is the raw score in [-100, 100].
func (p *Player) RelationScore(other *Player) int { return p.relations[other.SmallID()] }

// UpdateRelation shifts the score toward other, clamped to [-100, 100].
func (p *Player) UpdateRelation(other *Player, delta int) {
	if other == nil || other == p {
		return
	}
	id := other.smallID
	p.relations[id] = min(max(p.relations[id]+delta, relationMin), relationMax)
}

// DecayRelations moves every score one step toward zero.
func (p *Player) DecayRelations() {
	for id, score := range p.relations {
		switch {
		case score > 0:
			p.relations[id] = score - 1
		case score < 0:
			p.relations[id] = score + 1
		}
		if p.relations[id] == 0 {
			delete(p.relations, id)
		}
	}
}

// PlayerRelation pairs a player with the bucket this player holds toward them.
type PlayerRelation struct {
	Player   *Player
	Relation Relation
	Score    int
}

// AllRelationsSorted lists known relations from most hostile to friendliest, ties by
// small ID.
func (p *Player) AllRelationsSorted() []PlayerRelation {
	out := make([]PlayerRelation, 0, len(p.relations))
	for id, score := range p.relations {
		other := p.g.PlayerBySmallID(id)
		if other == nil || !other.IsAlive() {
			continue
		}
		out = append(out, PlayerRelation{Player: other, Relation: relationBucket(score), Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		return out[i].Player.smallID < out[j].Player.smallID
	})
	return out
}

// IsOnSameTeam is false when either player has no team.
func (p *Player) IsOnSameTeam(other *Player) bool {
	if other == nil || other == p {
		return false
	}
	return p.info.Team != "" && p.info.Team == other.info.Team
}

// IsFriendly means allied or on the same team.
func (p *Player) IsFriendly(other *Player) bool {
	return p.IsOnSameTeam(other) || p.IsAlliedWith(other)
}

// Alliances returns the alliances this player is part of.
func (p *Player) Alliances() []*Alliance {
	var out []*Alliance
	for _, a := range p.g.alliances {
		if a.requestor == p || a.recipient == p {
			out = append(out, a)
		}
	}
	return out
}

// Allies returns the partners of every alliance, ordered by small ID.
func (p *Player) Allies() []*Player {
	var out []*Player
	for _, a := range p.Alliances() {
		out = append(out, a.Other(p))
	}
	slices.SortFunc(out, func(a, b *Player) int { return int(a.smallID) - int(b.smallID) })
	return out
}

func (p *Player) IsAlliedWith(other *Player) bool {
	return other != nil && p.AllianceWith(other) != nil
}

// AllianceWith returns the alliance between the two players or nil.
func (p *Player) AllianceWith(other *Player) *Alliance {
	if other == nil || other == p {
		return nil
	}
	for _, a := range p.g.alliances {
		if (a.requestor == p && a.recipient == other) || (a.requestor == other && a.recipient == p) {
			return a
		}
	}
	return nil
}

// IncomingAllianceRequests lists pending requests addressed to this player.
func (p *Player) IncomingAllianceRequests() []*AllianceRequest {
	var out []*AllianceRequest
	for _, r := range p.g.allianceRequests {
		if r.recipient == p {
			out = append(out, r)
		}
	}
	return out
}

// OutgoingAllianceRequests lists pending requests this player sent.
func (p *Player) OutgoingAllianceRequests() []*AllianceRequest {
	var out []*AllianceRequest
	for _, r := range p.g.allianceRequests {
		if r.requestor == p {
			out = append(out, r)
		}
	}
	return out
}

// CanSendAllianceRequest is false when already allied, a request is pending, or the last
// request to other is younger than AllianceRequestCooldown.
func (p *Player) CanSendAllianceRequest(other *Player) bool {
	if other == nil || other == p || p.IsAlliedWith(other) || !other.IsAlive() {
		return false
	}
	for _, r := range p.OutgoingAllianceRequests() {
		if r.recipient == other {
			return false
		}
	}
	for i := len(p.pastOutgoingRequests) - 1; i >= 0; i-- {
		r := p.pastOutgoingRequests[i]
		if r.recipient == other {
			return p.g.Ticks()-r.createdAt >= p.g.Config().AllianceRequestCooldown()
		}
	}
	return true
}

// CreateAllianceRequest files a request. A pending request in the other direction is
// accepted instead and nil is returned.
func (p *Player) CreateAllianceRequest(recipient *Player) *AllianceRequest {
	if p.IsAlliedWith(recipient) {
		return nil
	}
	for _, r := range recipient.OutgoingAllianceRequests() {
		if r.recipient == p {
			r.Accept()
			return nil
		}
	}
	return p.g.createAllianceRequest(p, recipient)
}

// BreakAlliance ends an alliance this player is part of.
func (p *Player) BreakAlliance(a *Alliance) {
	p.g.breakAlliance(p, a)
}

// CanTarget is false for allies, self, and while the last target is still cooling down.
func (p *Player) CanTarget(other *Player) bool {
	if other == nil || other == p || p.IsFriendly(other) {
		return false
	}
	for _, t := range p.targets {
		if p.g.Ticks()-t.tick < p.g.Config().TargetCooldown() && t.target == other.smallID {
			return false
		}
	}
	return true
}

// Target marks other as this player's target.
func (p *Player) Target(other *Player) {
	p.targets = append(p.targets, targetRecord{target: other.smallID, tick: p.g.Ticks()})
	p.g.AddUpdate(TargetPlayerUpdate{PlayerID: p.smallID, TargetID: other.smallID})
}

// Targets returns the players targeted within TargetDuration.
func (p *Player) Targets() []*Player {
	seen := make(map[uint16]bool)
	var out []*Player
	for _, t := range p.targets {
		if p.g.Ticks()-t.tick >= p.g.Config().TargetDuration() || seen[t.target] {
			continue
		}
		seen[t.target] = true
		out = append(out, p.g.PlayerBySmallID(t.target))
	}
	return out
}

// TransitiveTargets adds the targets of every ally.
func (p *Player) TransitiveTargets() []*Player {
	seen := make(map[uint16]bool)
	var out []*Player
	add := func(list []*Player) {
		for _, t := range list {
			if t != nil && !seen[t.smallID] {
				seen[t.smallID] = true
				out = append(out, t)
			}
		}
	}
	add(p.Targets())
	for _, ally := range p.Allies() {
		add(ally.Targets())
	}
	return out
}

// CanSendEmoji enforces EmojiMessageCooldown per recipient.
func (p *Player) CanSendEmoji(recipient uint16) bool {
	if recipient == p.smallID {
		return false
	}
	for i := len(p.outgoingEmojis) - 1; i >= 0; i-- {
		e := p.outgoingEmojis[i]
		if e.RecipientID == recipient {
			return p.g.Ticks()-e.CreatedAt >= p.g.Config().EmojiMessageCooldown()
		}
	}
	return true
}

// SendEmoji records and broadcasts an emoji.
func (p *Player) SendEmoji(recipient uint16, emoji string) {
	msg := EmojiMessage{Message: emoji, SenderID: p.smallID, RecipientID: recipient, CreatedAt: p.g.Ticks()}
	p.outgoingEmojis = append(p.outgoingEmojis, msg)
	p.g.AddUpdate(EmojiUpdate{Emoji: msg})
}

// OutgoingEmojis returns the emojis still inside their cooldown window.
func (p *Player) OutgoingEmojis() []EmojiMessage {
	var out []EmojiMessage
	for _, e := range p.outgoingEmojis {
		if p.g.Ticks()-e.CreatedAt < p.g.Config().EmojiMessageCooldown() {
			out = append(out, e)
		}
	}
	return out
}

// CanDonate requires a friendly recipient and enforces DonateCooldown per recipient.
func (p *Player) CanDonate(recipient *Player) bool {
	if recipient == nil || !p.IsFriendly(recipient) {
		return false
	}
	for i := len(p.sentDonations) - 1; i >= 0; i-- {
		d := p.sentDonations[i]
		if d.recipient == recipient.smallID {
			return p.g.Ticks()-d.tick >= p.g.Config().DonateCooldown()
		}
	}
	return true
}

// DonateTroops moves troops to a friendly player.
func (p *Player) DonateTroops(recipient *Player, troops int64) bool {
	if troops <= 0 || !p.CanDonate(recipient) {
		return false
	}
	sent := p.RemoveTroops(troops)
	recipient.AddTroops(sent)
	p.sentDonations = append(p.sentDonations, donation{recipient: recipient.smallID, tick: p.g.Ticks()})
	p.g.DisplayMessage(fmt.Sprintf("Sent %d troops to %s", sent, recipient.DisplayName()),
		MsgSentTroopsToPlayer, p.ID(), 0)
	p.g.DisplayMessage(fmt.Sprintf("Received %d troops from %s", sent, p.DisplayName()),
		MsgReceivedTroopsFromPlayer, recipient.ID(), 0)
	return true
}

// DonateGold moves gold to a friendly player.
func (p *Player) DonateGold(recipient *Player, gold Gold) bool {
	if gold <= 0 || !p.CanDonate(recipient) {
		return false
	}
	sent := p.RemoveGold(gold)
	recipient.AddGold(sent)
	p.sentDonations = append(p.sentDonations, donation{recipient: recipient.smallID, tick: p.g.Ticks()})
	p.g.DisplayMessage(fmt.Sprintf("Sent %d gold to %s", sent, recipient.DisplayName()),
		MsgSentGoldToPlayer, p.ID(), sent)
	p.g.DisplayMessage(fmt.Sprintf("Received %d gold from %s", sent, p.DisplayName()),
		MsgReceivedGoldFromPlayer, recipient.ID(), sent)
	return true
}

func (p *Player) HasEmbargoAgainst(other *Player) bool {
	_, ok := p.embargoes[other.SmallID()]
	return ok
}

// AddEmbargo stops trade with other. A permanent embargo replaces a temporary one.
func (p *Player) AddEmbargo(other *Player, temporary bool) {
	existing, ok := p.embargoes[other.smallID]
	if ok && (!existing.IsTemporary || temporary) {
		return
	}
	p.embargoes[other.smallID] = Embargo{CreatedAt: p.g.Ticks(), IsTemporary: temporary, Target: other.smallID}
}

func (p *Player) StopEmbargo(other *Player) { delete(p.embargoes, other.SmallID()) }

// EndTemporaryEmbargo lifts an embargo only if it was temporary.
func (p *Player) EndTemporaryEmbargo(other *Player) {
	if e, ok := p.embargoes[other.SmallID()]; ok && e.IsTemporary {
		delete(p.embargoes, other.smallID)
	}
}

// Embargoes lists active embargoes ordered by target.
func (p *Player) Embargoes() []Embargo {
	out := make([]Embargo, 0, len(p.embargoes))
	for _, e := range p.embargoes {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Embargo) int { return int(a.Target) - int(b.Target) })
	return out
}

// CanTrade requires no embargo in either direction.
func (p *Player) CanTrade(other *Player) bool {
	if other == nil || other == p {
		return false
	}
	return !p.HasEmbargoAgainst(other) && !other.HasEmbargoAgainst(p)
}

// TradingPartners lists living players this player can trade with, by small ID.
func (p *Player) TradingPartners() []*Player {
	var out []*Player
	for _, other := range p.g.Players() {
		if p.CanTrade(other) {
			out = append(out, other)
		}
	}
	return out
}
