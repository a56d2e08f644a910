package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlayerID uniquely identifies a player across the system
type PlayerID string

// Player is a trading account: a login credential and a cash balance
type Player struct {
	ID             PlayerID
	CredentialHash string // bcrypt hash, never returned to callers
	Balance        decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Clone returns a copy that shares no mutable state with p
func (p *Player) Clone() *Player {
	c := *p
	return &c
}
