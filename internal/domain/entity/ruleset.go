package entity

import "encoding/json"

const DefaultRulesetExtends = "bpmnlint:recommended"

// Ruleset is the linter configuration descriptor written to disk at startup.
// The service never reads it back; only the linter does.
type Ruleset struct {
	Extends string            `json:"extends,omitempty"`
	Rules   map[string]string `json:"rules,omitempty"`
}

func DefaultRuleset() Ruleset {
	return Ruleset{
		Extends: DefaultRulesetExtends,
		Rules: map[string]string{
			"label-required":           "error",
			"no-implicit-split":        "error",
			"no-implicit-join":         "error",
			"single-blank-start-event": "error",
			"single-end-event":         "error",
		},
	}
}

// Render encodes the ruleset in the linter's rc-file format.
func (r Ruleset) Render() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
