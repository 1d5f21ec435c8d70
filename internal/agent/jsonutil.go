package agent

import "encoding/json"

// jsonMarshalCompact renders tool-call arguments back to the compact JSON
// string form providers expect on the assistant message's tool_calls entry.
func jsonMarshalCompact(v map[string]any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
