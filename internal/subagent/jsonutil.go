package subagent

import "encoding/json"

func jsonMarshalCompact(v map[string]any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
