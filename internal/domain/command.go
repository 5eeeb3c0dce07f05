package domain

import "strconv"

// ParsedCommand is the classifier's verdict on a message body.
// An empty CommandID means free text.
type ParsedCommand struct {
	CommandID string `json:"commandId,omitempty"`
	Clean     string `json:"clean"`
	Params    Params `json:"params,omitempty"`
}

// IsCommand reports whether an explicit command token was found.
func (p ParsedCommand) IsCommand() bool {
	return p.CommandID != ""
}

// Params holds `:key=value` parameters. Values are int when the raw value
// was all digits, string otherwise.
type Params map[string]any

// String returns the parameter as text regardless of its stored type.
func (p Params) String(key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case int:
		return strconv.Itoa(val), true
	}
	return "", false
}

// Int returns the parameter when it was parsed as an integer.
func (p Params) Int(key string) (int, bool) {
	v, ok := p[key].(int)
	return v, ok
}

// Flag interprets a parameter as a boolean switch. "t", "true", "yes", "y",
// "s", "sim" and 1 are true.
func (p Params) Flag(key string) bool {
	v, ok := p[key]
	if !ok {
		return false
	}
	switch val := v.(type) {
	case int:
		return val == 1
	case string:
		switch val {
		case "t", "true", "yes", "y", "s", "sim":
			return true
		}
	}
	return false
}
