package enums

import "fmt"

// PartyMemberStatus tracks a member's application state within a party.
type PartyMemberStatus string

const (
	PartyMemberStatusApplied   PartyMemberStatus = "APPLIED"
	PartyMemberStatusAccepted  PartyMemberStatus = "ACCEPTED"
	PartyMemberStatusCancelled PartyMemberStatus = "CANCELLED"
	PartyMemberStatusRejected  PartyMemberStatus = "REJECTED"
)

var validPartyMemberStatuses = []PartyMemberStatus{
	PartyMemberStatusApplied,
	PartyMemberStatusAccepted,
	PartyMemberStatusCancelled,
	PartyMemberStatusRejected,
}

// IsValid checks whether the given status matches the canonical enum.
func (p PartyMemberStatus) IsValid() bool {
	for _, candidate := range validPartyMemberStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePartyMemberStatus converts raw strings into PartyMemberStatus.
func ParsePartyMemberStatus(value string) (PartyMemberStatus, error) {
	for _, candidate := range validPartyMemberStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid party member status %q", value)
}
