package events

import "fmt"

// DefaultTopicPrefix is the base for all AV bridge topics when the
// configuration does not override it.
const DefaultTopicPrefix = "graylogic/av"

// Topics provides builders for the AV bridge's MQTT topics. Using these
// helpers keeps topic naming consistent between the publishers, the command
// listener and external subscribers.
//
//	topics := events.Topics{}
//	topics.ChangeGroup("mixer-ui")  // "graylogic/av/changegroup/mixer-ui"
//	topics.CommandRequest()         // "graylogic/av/command/request"
type Topics struct {
	// Prefix overrides DefaultTopicPrefix when non-empty.
	Prefix string
}

func (t Topics) base() string {
	if t.Prefix != "" {
		return t.Prefix
	}
	return DefaultTopicPrefix
}

// ChangeGroup returns the topic change events for one group publish to.
//
// Example: graylogic/av/changegroup/mixer-ui
func (t Topics) ChangeGroup(groupID string) string {
	return fmt.Sprintf("%s/changegroup/%s", t.base(), EncodeTopicSegment(groupID))
}

// AllChangeGroups returns a pattern matching every group's change events.
//
// Pattern: graylogic/av/changegroup/+
func (t Topics) AllChangeGroups() string {
	return fmt.Sprintf("%s/changegroup/+", t.base())
}

// CommandRequest returns the inbound command topic.
//
// Example: graylogic/av/command/request
func (t Topics) CommandRequest() string {
	return fmt.Sprintf("%s/command/request", t.base())
}

// CommandResponse returns the command reply topic.
//
// Example: graylogic/av/command/response
func (t Topics) CommandResponse() string {
	return fmt.Sprintf("%s/command/response", t.base())
}

// Health returns the retained health status topic.
//
// Example: graylogic/av/health
func (t Topics) Health() string {
	return fmt.Sprintf("%s/health", t.base())
}

// EncodeTopicSegment escapes a caller-supplied identifier for use as one MQTT
// topic level. Group ids are free-form strings; slashes and wildcard
// characters would otherwise change the topic structure.
//
// Example: "front/of/house" → "front%2Fof%2Fhouse"
func EncodeTopicSegment(segment string) string {
	result := make([]byte, 0, len(segment))
	for i := 0; i < len(segment); i++ {
		switch segment[i] {
		case '/':
			result = append(result, '%', '2', 'F')
		case '+':
			result = append(result, '%', '2', 'B')
		case '#':
			result = append(result, '%', '2', '3')
		case '%':
			result = append(result, '%', '2', '5')
		default:
			result = append(result, segment[i])
		}
	}
	return string(result)
}

// DecodeTopicSegment reverses EncodeTopicSegment.
func DecodeTopicSegment(encoded string) string {
	result := make([]byte, 0, len(encoded))
	for i := 0; i < len(encoded); i++ {
		if encoded[i] == '%' && i+2 < len(encoded) {
			switch encoded[i+1 : i+3] {
			case "2F":
				result = append(result, '/')
				i += 2
				continue
			case "2B":
				result = append(result, '+')
				i += 2
				continue
			case "23":
				result = append(result, '#')
				i += 2
				continue
			case "25":
				result = append(result, '%')
				i += 2
				continue
			}
		}
		result = append(result, encoded[i])
	}
	return string(result)
}
