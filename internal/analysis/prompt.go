package analysis

import (
	"encoding/json"
	"strings"
)

const systemPrompt = `You are an expert AI relationship and mental health assistant. Analyze the user's message and provide a comprehensive JSON response following this exact schema:

{
  "emotion": {
    "primary_emotion": "(anger|sadness|hurt|fear|stress|jealousy|guilt|love|disappointment|neutral)",
    "secondary_emotion": "short phrase or empty string",
    "intensity": 0.0-1.0,
    "explanation": "one-sentence explanation"
  },
  "context": {
    "situation": "short label",
    "cause": "brief trigger",
    "user_goal": "(venting|reconcile|seek_advice|apology|breakup|unclear)",
    "risk_level": "(low|medium|high)",
    "topic": "(trust|communication|expectations|emotional_need|insecurity|other)",
    "summary": "one-sentence summary"
  },
  "safety": {
    "blocked": false,
    "safe_reason": "if blocked, explain briefly",
    "safe_alternative": "if blocked, provide safe alternative",
    "escalation": false
  },
  "messages": {
    "soft_message": "warm 1-2 sentence option",
    "honest_message": "calm 1-2 sentence using I-statements",
    "repair_message": "1-2 sentence repair/bond-building option"
  },
  "actions": [
    {
      "action_type": "small_caring_action",
      "description": "one-line actionable suggestion"
    },
    {
      "action_type": "romantic_idea",
      "description": "one-line low-cost romantic idea"
    },
    {
      "action_type": "healing_activity",
      "description": "one-line activity to repair connection or self-soothe"
    }
  ],
  "identity": {
    "identity_shift_message": "one-line identity-focused nudge",
    "self_growth_affirmation": "one short affirmation"
  }
}

CRITICAL SAFETY RULES:
- If harmful intent detected (manipulation, coercion, violence, self-harm), set safety.blocked=true
- For high risk or self-harm mentions, set safety.escalation=true and provide crisis resources in safe_alternative
- All messages must use first-person "I" statements
- Keep all messages ≤2 sentences
- Be non-manipulative and supportive
- Tailor tone to userMeta if provided`

const userPromptSuffix = "Analyze this message and respond with ONLY valid JSON matching the exact schema."

// Prompt is the system instruction plus the user turn sent to the oracle.
type Prompt struct {
	System string
	User   string
}

// BuildPrompt is deterministic: equal requests yield byte-identical prompts.
func BuildPrompt(req Request) Prompt {
	var user strings.Builder
	user.WriteString("USER MESSAGE: ")
	user.WriteString(strings.TrimSpace(req.Text))
	user.WriteString("\n")

	if snippets := strings.TrimSpace(req.ChatSnippets); snippets != "" {
		user.WriteString("\nCHAT CONTEXT: ")
		user.WriteString(snippets)
		user.WriteString("\n")
	}

	meta := normalizeMeta(req.Meta)
	if !meta.IsZero() {
		// UserMeta only has string fields; Marshal cannot fail.
		encoded, _ := json.Marshal(meta)
		user.WriteString("\nUSER INFO: ")
		user.Write(encoded)
		user.WriteString("\n")
	}

	user.WriteString("\n")
	user.WriteString(userPromptSuffix)

	return Prompt{
		System: systemPrompt,
		User:   user.String(),
	}
}

func normalizeMeta(meta UserMeta) UserMeta {
	return UserMeta{
		RelationshipRole: strings.TrimSpace(meta.RelationshipRole),
		PreferredTone:    strings.TrimSpace(meta.PreferredTone),
	}
}
