package game

// Alliance binds two players until it expires or one of them breaks it.
type Alliance struct {
	id        int
	requestor *Player
	recipient *Player
	createdAt Tick
	expiresAt Tick

	extensionRequestor bool
	extensionRecipient bool
}

func (a *Alliance) ID() int            { return a.id }
func (a *Alliance) Requestor() *Player { return a.requestor }
func (a *Alliance) Recipient() *Player { return a.recipient }
func (a *Alliance) CreatedAt() Tick    { return a.createdAt }
func (a *Alliance) ExpiresAt() Tick    { return a.expiresAt }

// Other returns the partner of p.
func (a *Alliance) Other(p *Player) *Player {
	if a.requestor == p {
		return a.recipient
	}
	return a.requestor
}

// CanExtend opens once fewer than a tenth of the alliance's lifetime remain.
func (a *Alliance) CanExtend(now Tick) bool {
	window := max(1, (a.expiresAt-a.createdAt)/10)
	return a.expiresAt-now <= window
}

// AddExtensionRequest records p's wish to renew.
func (a *Alliance) AddExtensionRequest(p *Player) {
	switch p {
	case a.requestor:
		a.extensionRequestor = true
	case a.recipient:
		a.extensionRecipient = true
	}
}

// BothWantExtension reports whether both partners asked to renew.
func (a *Alliance) BothWantExtension() bool {
	return a.extensionRequestor && a.extensionRecipient
}

// Extend renews the alliance from now and resets the extension requests.
func (a *Alliance) Extend(now Tick, duration int) {
	a.expiresAt = now + duration
	a.extensionRequestor = false
	a.extensionRecipient = false
}

// AllianceRequest is a pending offer from requestor to recipient.
type AllianceRequest struct {
	g         *Game
	requestor *Player
	recipient *Player
	createdAt Tick
}

func (r *AllianceRequest) Requestor() *Player { return r.requestor }
func (r *AllianceRequest) Recipient() *Player { return r.recipient }
func (r *AllianceRequest) CreatedAt() Tick    { return r.createdAt }
func (r *AllianceRequest) Accept()            { r.g.AcceptAllianceRequest(r) }
func (r *AllianceRequest) Reject()            { r.g.RejectAllianceRequest(r) }

func (r *AllianceRequest) toUpdate() AllianceRequestUpdate {
	return AllianceRequestUpdate{
		RequestorID: r.requestor.SmallID(),
		RecipientID: r.recipient.SmallID(),
		CreatedAt:   r.createdAt,
	}
}

// Embargo stops trade with a target player.
type Embargo struct {
	CreatedAt   Tick
	IsTemporary bool
	Target      uint16
}
