package analysis

// UserMeta carries optional hints about the user. Empty fields are omitted on the wire.
type UserMeta struct {
	RelationshipRole string `json:"relationship_role,omitempty" yaml:"relationship_role,omitempty"`
	PreferredTone    string `json:"preferred_tone,omitempty" yaml:"preferred_tone,omitempty"`
}

// IsZero reports whether no metadata was supplied.
func (m UserMeta) IsZero() bool {
	return m.RelationshipRole == "" && m.PreferredTone == ""
}

// Request is one analysis request. It lives for a single request/response cycle.
type Request struct {
	Text         string
	ChatSnippets string
	Meta         UserMeta
}

type Emotion struct {
	PrimaryEmotion   string  `json:"primary_emotion" yaml:"primary_emotion"`
	SecondaryEmotion string  `json:"secondary_emotion" yaml:"secondary_emotion"`
	Intensity        float64 `json:"intensity" yaml:"intensity"`
	Explanation      string  `json:"explanation" yaml:"explanation"`
}

type Context struct {
	Situation string `json:"situation" yaml:"situation"`
	Cause     string `json:"cause" yaml:"cause"`
	UserGoal  string `json:"user_goal" yaml:"user_goal"`
	RiskLevel string `json:"risk_level" yaml:"risk_level"`
	Topic     string `json:"topic" yaml:"topic"`
	Summary   string `json:"summary" yaml:"summary"`
}

type Safety struct {
	Blocked         bool   `json:"blocked" yaml:"blocked"`
	SafeReason      string `json:"safe_reason" yaml:"safe_reason"`
	SafeAlternative string `json:"safe_alternative" yaml:"safe_alternative"`
	Escalation      bool   `json:"escalation" yaml:"escalation"`
}

type Messages struct {
	SoftMessage   string `json:"soft_message" yaml:"soft_message"`
	HonestMessage string `json:"honest_message" yaml:"honest_message"`
	RepairMessage string `json:"repair_message" yaml:"repair_message"`
}

type Action struct {
	ActionType  string `json:"action_type" yaml:"action_type"`
	Description string `json:"description" yaml:"description"`
}

type Identity struct {
	IdentityShiftMessage  string `json:"identity_shift_message" yaml:"identity_shift_message"`
	SelfGrowthAffirmation string `json:"self_growth_affirmation" yaml:"self_growth_affirmation"`
}

// Response is the validated analysis returned to clients.
type Response struct {
	Emotion  Emotion  `json:"emotion" yaml:"emotion"`
	Context  Context  `json:"context" yaml:"context"`
	Safety   Safety   `json:"safety" yaml:"safety"`
	Messages Messages `json:"messages" yaml:"messages"`
	Actions  []Action `json:"actions" yaml:"actions"`
	Identity Identity `json:"identity" yaml:"identity"`
}

const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

var validPrimaryEmotions = map[string]struct{}{
	"anger":          {},
	"sadness":        {},
	"hurt":           {},
	"fear":           {},
	"stress":         {},
	"jealousy":       {},
	"guilt":          {},
	"love":           {},
	"disappointment": {},
	"neutral":        {},
}

var validUserGoals = map[string]struct{}{
	"venting":     {},
	"reconcile":   {},
	"seek_advice": {},
	"apology":     {},
	"breakup":     {},
	"unclear":     {},
}

var validRiskLevels = map[string]struct{}{
	RiskLow:    {},
	RiskMedium: {},
	RiskHigh:   {},
}

var validTopics = map[string]struct{}{
	"trust":          {},
	"communication":  {},
	"expectations":   {},
	"emotional_need": {},
	"insecurity":     {},
	"other":          {},
}

var validActionTypes = map[string]struct{}{
	"small_caring_action": {},
	"romantic_idea":       {},
	"healing_activity":    {},
}
