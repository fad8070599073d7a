package oracle

import (
	"context"
	"encoding/json"
	"strings"

	"relationshipai/apps/backend/internal/analysis"
)

var (
	escalationKeywords = []string{"hurt myself", "kill myself", "suicide", "end it all", "self-harm"}
	blockedKeywords    = []string{"make them obey", "force him", "force her", "threaten", "track their phone"}
)

// MockClient is a keyword-driven stand-in for local development (AI_PROVIDER=mock).
type MockClient struct{}

func (MockClient) Complete(_ context.Context, req analysis.Completion) (string, error) {
	lowered := strings.ToLower(req.User)

	resp := MockResponse()
	switch {
	case containsAny(lowered, blockedKeywords):
		resp.Safety = analysis.Safety{
			Blocked:         true,
			SafeReason:      "contains coercive language",
			SafeAlternative: "Try describing how you feel and what you need instead of how to control them.",
		}
	case containsAny(lowered, escalationKeywords):
		resp.Context.RiskLevel = analysis.RiskHigh
		resp.Safety = analysis.Safety{
			Escalation:      true,
			SafeReason:      "mentions of self-harm",
			SafeAlternative: "If you are in danger, call your local emergency number or a crisis line such as 988 (US).",
		}
	case strings.Contains(lowered, "scared of") || strings.Contains(lowered, "afraid of"):
		resp.Emotion.PrimaryEmotion = "fear"
		resp.Context.RiskLevel = analysis.RiskHigh
	}

	encoded, err := json.Marshal(resp)
	if err != nil {
		return "", err
	}
	return "```json\n" + string(encoded) + "\n```", nil
}

// MockResponse is the baseline low-risk analysis the mock returns.
func MockResponse() analysis.Response {
	return analysis.Response{
		Emotion: analysis.Emotion{
			PrimaryEmotion:   "hurt",
			SecondaryEmotion: "lonely",
			Intensity:        0.6,
			Explanation:      "You seem to feel overlooked by someone important to you.",
		},
		Context: analysis.Context{
			Situation: "feeling overlooked",
			Cause:     "a partner's repeated forgetfulness",
			UserGoal:  "seek_advice",
			RiskLevel: analysis.RiskLow,
			Topic:     "emotional_need",
			Summary:   "You want to feel seen and valued in your relationship.",
		},
		Messages: analysis.Messages{
			SoftMessage:   "I miss feeling close to you. Can we spend some time together this week?",
			HonestMessage: "I feel invisible when important days pass without notice.",
			RepairMessage: "I want us to reconnect. Could we plan something we both enjoy?",
		},
		Actions: []analysis.Action{
			{ActionType: "small_caring_action", Description: "Leave a short note about what you appreciate in them."},
			{ActionType: "romantic_idea", Description: "Cook a simple dinner together at home."},
			{ActionType: "healing_activity", Description: "Take a ten-minute walk to settle before talking."},
		},
		Identity: analysis.Identity{
			IdentityShiftMessage:  "I am someone who names my needs with kindness.",
			SelfGrowthAffirmation: "My feelings deserve space.",
		},
	}
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
