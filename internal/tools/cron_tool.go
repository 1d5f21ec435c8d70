package tools

import (
	"context"
	"fmt"
)

// CronService is the narrow subset of the cron scheduler the cron tool
// needs to add/list/remove/enable/trigger jobs on the agent's behalf.
type CronService interface {
	AddJob(name string, everySeconds int64, cronExpr string, atUnixMs int64, message string, deliver bool, channel, chatID string) (string, error)
	ListJobsSummary() string
	RemoveJob(id string) error
	EnableJob(id string, enabled bool) error
	RunJobNow(id string) error
}

// CronTool exposes the cron scheduler to the LLM as a single action-keyed
// tool, grounded on the CronTool referenced in agent.hpp's
// register_default_tools.
type CronTool struct {
	Service CronService
}

func (CronTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "cron",
		Description: "Manage scheduled jobs: add, list, remove, enable, disable, or run one now.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"action":        map[string]any{"type": "string", "enum": []any{"add", "list", "remove", "enable", "disable", "run_now"}},
				"id":            map[string]any{"type": "string"},
				"name":          map[string]any{"type": "string"},
				"every_seconds": map[string]any{"type": "integer"},
				"cron_expr":     map[string]any{"type": "string"},
				"at_unix_ms":    map[string]any{"type": "integer"},
				"message":       map[string]any{"type": "string"},
				"deliver":       map[string]any{"type": "boolean"},
				"channel":       map[string]any{"type": "string"},
				"chat_id":       map[string]any{"type": "string"},
			},
			"required": []any{"action"},
		},
	}
}

func intArg(args map[string]any, key string) int64 {
	switch v := args[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

func boolArg(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}

func (t CronTool) Execute(_ context.Context, args map[string]any) (string, error) {
	switch strArg(args, "action") {
	case "add":
		return t.Service.AddJob(
			strArg(args, "name"),
			intArg(args, "every_seconds"),
			strArg(args, "cron_expr"),
			intArg(args, "at_unix_ms"),
			strArg(args, "message"),
			boolArg(args, "deliver"),
			strArg(args, "channel"),
			strArg(args, "chat_id"),
		)
	case "list":
		return t.Service.ListJobsSummary(), nil
	case "remove":
		return "Removed.", t.Service.RemoveJob(strArg(args, "id"))
	case "enable":
		return "Enabled.", t.Service.EnableJob(strArg(args, "id"), true)
	case "disable":
		return "Disabled.", t.Service.EnableJob(strArg(args, "id"), false)
	case "run_now":
		return "Ran.", t.Service.RunJobNow(strArg(args, "id"))
	default:
		return "", fmt.Errorf("unknown action %q", strArg(args, "action"))
	}
}
