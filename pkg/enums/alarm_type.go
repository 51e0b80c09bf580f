package enums

import "fmt"

// AlarmType classifies the persisted alarm records.
type AlarmType string

const (
	AlarmTypeSystem        AlarmType = "SYSTEM"         // admin/system wide announcements
	AlarmTypeMessage       AlarmType = "MESSAGE"        // direct message received
	AlarmTypeSubscribe     AlarmType = "SUBSCRIBE"      // party apply/status updates
	AlarmTypePartyApply    AlarmType = "PARTY_APPLY"    // party application received
	AlarmTypePartyStatus   AlarmType = "PARTY_STATUS"   // party status transition
	AlarmTypeAnswerComment AlarmType = "ANSWER_COMMENT" // comment on an answered inquiry
	AlarmTypePostReply     AlarmType = "POST_REPLY"     // reply on an inquiry post
	AlarmTypeOther         AlarmType = "OTHER"
)

var validAlarmTypes = []AlarmType{
	AlarmTypeSystem,
	AlarmTypeMessage,
	AlarmTypeSubscribe,
	AlarmTypePartyApply,
	AlarmTypePartyStatus,
	AlarmTypeAnswerComment,
	AlarmTypePostReply,
	AlarmTypeOther,
}

// IsValid checks whether the given type matches the canonical enum.
func (a AlarmType) IsValid() bool {
	for _, candidate := range validAlarmTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAlarmType converts raw strings into AlarmType.
func ParseAlarmType(value string) (AlarmType, error) {
	for _, candidate := range validAlarmTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid alarm type %q", value)
}
