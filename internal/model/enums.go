package model

import (
	"fmt"

	"github.com/and161185/sahaay-store/internal/errs"
)

// MessageType classifies what a distress message asks for.
type MessageType string

const (
	MessageTypeFood    MessageType = "FOOD"
	MessageTypeWater   MessageType = "WATER"
	MessageTypeShelter MessageType = "SHELTER"
	MessageTypeMedical MessageType = "MEDICAL"
	MessageTypeRescue  MessageType = "RESCUE"
	MessageTypeGeneral MessageType = "GENERAL"
)

// MessageTypes lists every known message type.
var MessageTypes = []MessageType{
	MessageTypeFood, MessageTypeWater, MessageTypeShelter,
	MessageTypeMedical, MessageTypeRescue, MessageTypeGeneral,
}

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	for _, k := range MessageTypes {
		if t == k {
			return true
		}
	}
	return false
}

// ParseMessageType converts s into a MessageType.
func ParseMessageType(s string) (MessageType, error) {
	t := MessageType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown message type %q", errs.ErrValidation, s)
	}
	return t, nil
}

// UrgencyLevel is the triage severity of a distress message.
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "LOW"
	UrgencyMedium   UrgencyLevel = "MEDIUM"
	UrgencyHigh     UrgencyLevel = "HIGH"
	UrgencyCritical UrgencyLevel = "CRITICAL"
)

// UrgencyLevels lists urgency levels from least to most severe.
var UrgencyLevels = []UrgencyLevel{UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical}

// Rank returns the severity of u (LOW=1 ... CRITICAL=4), or 0 when unknown.
func (u UrgencyLevel) Rank() int {
	for i, k := range UrgencyLevels {
		if u == k {
			return i + 1
		}
	}
	return 0
}

// Valid reports whether u is a known urgency level.
func (u UrgencyLevel) Valid() bool { return u.Rank() > 0 }

// Compare returns -1, 0 or +1 as u is less, equally or more severe than other.
func (u UrgencyLevel) Compare(other UrgencyLevel) int {
	a, b := u.Rank(), other.Rank()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// ParseUrgencyLevel converts s into an UrgencyLevel.
func ParseUrgencyLevel(s string) (UrgencyLevel, error) {
	u := UrgencyLevel(s)
	if !u.Valid() {
		return "", fmt.Errorf("%w: unknown urgency level %q", errs.ErrValidation, s)
	}
	return u, nil
}

// MessageStatus is the delivery state of a distress message.
type MessageStatus string

const (
	StatusPending      MessageStatus = "PENDING"
	StatusDelivered    MessageStatus = "DELIVERED"
	StatusAcknowledged MessageStatus = "ACKNOWLEDGED"
	StatusExpired      MessageStatus = "EXPIRED"
)

// MessageStatuses lists statuses in lifecycle order.
var MessageStatuses = []MessageStatus{StatusPending, StatusDelivered, StatusAcknowledged, StatusExpired}

// Valid reports whether s is a known status.
func (s MessageStatus) Valid() bool {
	for _, k := range MessageStatuses {
		if s == k {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s MessageStatus) Terminal() bool { return s == StatusExpired }

// CanTransitionTo reports whether moving from s to next keeps the lifecycle forward-only.
// ACKNOWLEDGED may be re-entered so later responders can append acknowledgments.
func (s MessageStatus) CanTransitionTo(next MessageStatus) bool {
	if !s.Valid() || !next.Valid() || s.Terminal() {
		return false
	}
	switch next {
	case StatusDelivered:
		return s == StatusPending
	case StatusAcknowledged:
		return true
	case StatusExpired:
		return true
	default:
		return false
	}
}

// ParseMessageStatus converts s into a MessageStatus.
func ParseMessageStatus(s string) (MessageStatus, error) {
	st := MessageStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", errs.ErrValidation, s)
	}
	return st, nil
}
