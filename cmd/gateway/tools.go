package main

import (
	"github.com/attoclaw/gateway/internal/bus"
	"github.com/attoclaw/gateway/internal/cron"
	"github.com/attoclaw/gateway/internal/subagent"
	"github.com/attoclaw/gateway/internal/tools"
)

// registerDefaultToolsConfig carries what registerDefaultTools needs to
// build the primary turn loop's tool set, grounded on agent.hpp's
// register_default_tools.
type registerDefaultToolsConfig struct {
	allowedDir         *string
	execTimeoutSeconds int
	workspace          string
	restrict           bool
	bus                *bus.Bus
	cronSvc            *cron.Service
	spawner            *subagent.Manager
	visionTool         *tools.ScreenCaptureTool
}

func registerDefaultTools(registry *tools.Registry, cfg registerDefaultToolsConfig) {
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}

	must(registry.Register(&tools.ReadFileTool{AllowedDir: cfg.allowedDir}))
	must(registry.Register(&tools.WriteFileTool{AllowedDir: cfg.allowedDir}))
	must(registry.Register(&tools.EditFileTool{AllowedDir: cfg.allowedDir}))
	must(registry.Register(&tools.ListDirTool{AllowedDir: cfg.allowedDir}))
	must(registry.Register(&tools.ExecTool{TimeoutSeconds: cfg.execTimeoutSeconds, Workspace: cfg.workspace, RestrictToWorkspace: cfg.restrict}))
	must(registry.Register(&tools.WebFetchTool{}))
	must(registry.Register(cfg.visionTool))
	must(registry.Register(&tools.MessageTool{Bus: cfg.bus}))
	must(registry.Register(&tools.SpawnTool{Manager: cfg.spawner}))
	must(registry.Register(&tools.CronTool{Service: cfg.cronSvc}))
}
