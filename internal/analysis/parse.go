package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

var responseSections = []string{"emotion", "context", "safety", "messages", "actions", "identity"}

var requiredSectionKeys = map[string][]string{
	"emotion":  {"primary_emotion", "secondary_emotion", "intensity", "explanation"},
	"context":  {"situation", "cause", "user_goal", "risk_level", "topic", "summary"},
	"safety":   {"blocked", "safe_reason", "safe_alternative", "escalation"},
	"messages": {"soft_message", "honest_message", "repair_message"},
	"identity": {"identity_shift_message", "self_growth_affirmation"},
}

var requiredActionKeys = []string{"action_type", "description"}

// StripFences removes a leading ```json or ``` and a trailing ``` from an
// oracle completion, then trims surrounding whitespace.
func StripFences(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	if strings.HasSuffix(s, "```") {
		s = s[:len(s)-len("```")]
	}
	return strings.TrimSpace(s)
}

// ParseResponse strips fences, decodes the completion and validates it against
// the response schema. Any failure is a KindParse *Error.
func ParseResponse(content string) (Response, error) {
	cleaned := []byte(StripFences(content))

	var top map[string]json.RawMessage
	if err := json.Unmarshal(cleaned, &top); err != nil {
		return Response{}, newParseError("reply is not a JSON object", err)
	}
	if err := checkPresence(top); err != nil {
		return Response{}, err
	}

	var resp Response
	if err := json.Unmarshal(cleaned, &resp); err != nil {
		return Response{}, newParseError("reply does not match the response schema", err)
	}
	if err := resp.normalize(); err != nil {
		return Response{}, err
	}
	return resp, nil
}

func checkPresence(top map[string]json.RawMessage) error {
	for _, section := range responseSections {
		raw, ok := lookup(top, section)
		if !ok {
			return newParseError(fmt.Sprintf("missing field %q", section), nil)
		}

		if section == "actions" {
			var items []map[string]json.RawMessage
			if err := json.Unmarshal(raw, &items); err != nil {
				return newParseError("actions must be an array of objects", err)
			}
			for i, item := range items {
				if err := requireKeys(item, fmt.Sprintf("actions[%d]", i), requiredActionKeys); err != nil {
					return err
				}
			}
			continue
		}

		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return newParseError(section+" must be an object", err)
		}
		if err := requireKeys(obj, section, requiredSectionKeys[section]); err != nil {
			return err
		}
	}
	return nil
}

func requireKeys(obj map[string]json.RawMessage, path string, keys []string) error {
	for _, key := range keys {
		if _, ok := lookup(obj, key); !ok {
			return newParseError(fmt.Sprintf("missing field %q", path+"."+key), nil)
		}
	}
	return nil
}

// lookup treats an explicit null like an absent key.
func lookup(obj map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := obj[key]
	if !ok {
		return nil, false
	}
	if strings.TrimSpace(string(raw)) == "null" {
		return nil, false
	}
	return raw, true
}

func (r *Response) normalize() error {
	r.Emotion.PrimaryEmotion = coerceEnum(r.Emotion.PrimaryEmotion, validPrimaryEmotions, "neutral")
	r.Context.UserGoal = coerceEnum(r.Context.UserGoal, validUserGoals, "unclear")
	r.Context.Topic = coerceEnum(r.Context.Topic, validTopics, "other")

	risk := normalizeEnum(r.Context.RiskLevel)
	if _, ok := validRiskLevels[risk]; !ok {
		return newParseError(fmt.Sprintf("context.risk_level %q is not one of low, medium, high", r.Context.RiskLevel), nil)
	}
	r.Context.RiskLevel = risk

	switch {
	case r.Emotion.Intensity < 0:
		r.Emotion.Intensity = 0
	case r.Emotion.Intensity > 1:
		r.Emotion.Intensity = 1
	}

	for i := range r.Actions {
		r.Actions[i].ActionType = coerceEnum(r.Actions[i].ActionType, validActionTypes, "small_caring_action")
	}
	return nil
}

func normalizeEnum(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(v)
}

func coerceEnum(value string, allowed map[string]struct{}, fallback string) string {
	v := normalizeEnum(value)
	if _, ok := allowed[v]; ok {
		return v
	}
	return fallback
}
