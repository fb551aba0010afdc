package plan

import "strings"

// ReAct tool names.
const (
	ToolAgentA      = "agent_a_query"
	ToolAgentB      = "agent_b_query"
	ToolFinalAnswer = "final_answer"
)

// ToolNames lists the valid tools in the order they are offered.
var ToolNames = []string{ToolAgentA, ToolAgentB, ToolFinalAnswer}

var toolAliases = map[string]string{
	"analytics_query": ToolAgentA,
	"seo_query":       ToolAgentB,
}

// Action is one tool call chosen by the THINK step.
type Action struct {
	Tool  string `json:"tool"`
	Input string `json:"input"`
}

// Thought is the parsed output of the THINK step.
type Thought struct {
	Thought string `json:"thought"`
	Action  Action `json:"action"`
}

const missingActionInput = "Unable to process the request."

// ParseThought extracts a thought and action. ok is false when the text is
// unparseable. A parsed object without an action yields a final_answer.
func ParseThought(raw string) (Thought, bool) {
	obj, ok := ExtractJSON(raw)
	if !ok {
		return Thought{}, false
	}
	t := Thought{Thought: str(obj, "thought")}
	act, hasAction := obj["action"].(map[string]any)
	if !hasAction {
		t.Action = Action{Tool: ToolFinalAnswer, Input: missingActionInput}
		return t, true
	}
	t.Action = Action{Tool: NormalizeTool(str(act, "tool")), Input: str(act, "input")}
	if t.Action.Tool == "" {
		t.Action.Tool = ToolFinalAnswer
	}
	return t, true
}

// NormalizeTool canonicalizes known tool names and legacy aliases. Unknown
// names are returned trimmed but otherwise unchanged.
func NormalizeTool(name string) string {
	trimmed := strings.TrimSpace(name)
	n := strings.ToLower(trimmed)
	if alias, ok := toolAliases[n]; ok {
		return alias
	}
	for _, t := range ToolNames {
		if t == n {
			return t
		}
	}
	return trimmed
}
