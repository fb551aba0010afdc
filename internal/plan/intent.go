package plan

import "strings"

// Intent selects which agent(s) answer a query.
type Intent string

const (
	IntentAgentA Intent = "single_agent_a"
	IntentAgentB Intent = "single_agent_b"
	IntentMulti  Intent = "multi_agent"
)

// IntentClassification is the router's view of a query. Reasoning is
// diagnostic only.
type IntentClassification struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// DefaultIntent is used when classification fails: analytics when a
// property id is known, SEO otherwise.
func DefaultIntent(hasContext bool) IntentClassification {
	if hasContext {
		return IntentClassification{Intent: IntentAgentA, Reasoning: "classification unavailable; property id present"}
	}
	return IntentClassification{Intent: IntentAgentB, Reasoning: "classification unavailable; no property id"}
}

// ParseIntent extracts an intent classification. ok is false when the text
// is unparseable or carries no intent. An intent outside the known set is
// returned as-is so the caller can report it.
func ParseIntent(raw string) (IntentClassification, bool) {
	obj, ok := ExtractJSON(raw)
	if !ok {
		return IntentClassification{}, false
	}
	intent := strings.ToLower(str(obj, "intent"))
	if intent == "" {
		return IntentClassification{}, false
	}
	conf, _ := floatField(obj, "confidence")
	switch {
	case conf < 0:
		conf = 0
	case conf > 1:
		conf = 1
	}
	return IntentClassification{
		Intent:     Intent(intent),
		Confidence: conf,
		Reasoning:  str(obj, "reasoning"),
	}, true
}

// Decomposition holds one self-contained sub-query per agent.
type Decomposition struct {
	SubQueryA string `json:"sub_query_a"`
	SubQueryB string `json:"sub_query_b"`
}

// ParseDecomposition extracts the two sub-queries. Any missing or
// unparseable part falls back to the original query.
func ParseDecomposition(raw, original string) Decomposition {
	d := Decomposition{SubQueryA: original, SubQueryB: original}
	obj, ok := ExtractJSON(raw)
	if !ok {
		return d
	}
	if a := str(obj, "sub_query_a"); a != "" {
		d.SubQueryA = a
	}
	if b := str(obj, "sub_query_b"); b != "" {
		d.SubQueryB = b
	}
	return d
}
