package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/attoclaw/gateway/internal/agent"
	"github.com/attoclaw/gateway/internal/bus"
	"github.com/attoclaw/gateway/internal/channels"
	"github.com/attoclaw/gateway/internal/config"
	"github.com/attoclaw/gateway/internal/contextbuilder"
	"github.com/attoclaw/gateway/internal/cron"
	"github.com/attoclaw/gateway/internal/envelope"
	"github.com/attoclaw/gateway/internal/heartbeat"
	"github.com/attoclaw/gateway/internal/httpapi"
	"github.com/attoclaw/gateway/internal/llm"
	"github.com/attoclaw/gateway/internal/memory"
	"github.com/attoclaw/gateway/internal/observability"
	"github.com/attoclaw/gateway/internal/session"
	"github.com/attoclaw/gateway/internal/subagent"
	"github.com/attoclaw/gateway/internal/tools"
)

// app bundles every component one gateway instance wires together. It's
// assembled once per process invocation (run/chat/cron/sessions all share
// this bootstrap) and torn down in the shutdown order spec.md §6 names:
// agent, then heartbeat, then cron, then channel manager, then dispatcher.
type app struct {
	instanceID string
	cfg        config.Config

	log     *observability.Logger
	tracer  *observability.Tracer
	metrics *observability.Metrics

	bus       *bus.Bus
	sessions  *session.Store
	longTerm  *memory.Store
	registry  *tools.Registry
	provider  llm.Provider
	builder   *contextbuilder.Builder
	cronSvc   *cron.Service
	subagents *subagent.Manager
	heartbeat *heartbeat.Service
	channels  *channels.Registry
	httpSrv   *httpapi.Server
	loop      *agent.Loop

	agentDone chan struct{}
}

func buildApp(cfg config.Config) (*app, error) {
	instanceID := uuid.NewString()

	log := observability.NewLogger(observability.LogConfig{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.AddSource,
	}).With("instance_id", instanceID)

	tracer := observability.NewTracer("gateway")
	metrics := observability.NewMetrics()

	b := bus.New(log)

	sessions, err := session.NewStore(cfg.Workspace+"/sessions", log)
	if err != nil {
		return nil, fmt.Errorf("building session store: %w", err)
	}
	longTerm, err := memory.NewStore(cfg.Workspace)
	if err != nil {
		return nil, fmt.Errorf("building memory store: %w", err)
	}

	provider, err := buildProvider(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("building llm provider: %w", err)
	}

	registry := tools.NewRegistry()
	visionTool := &tools.ScreenCaptureTool{}

	subagents := subagent.New(subagent.Config{
		Workspace:           cfg.Workspace,
		Model:               cfg.LLM.Model,
		Temperature:         cfg.LLM.Temperature,
		TopP:                cfg.LLM.TopP,
		MaxTokens:           cfg.LLM.MaxTokens,
		ExecTimeoutSeconds:  cfg.Subagent.ExecTimeoutSeconds,
		RestrictToWorkspace: cfg.Subagent.RestrictToWorkspace,
	}, provider, b, log, metrics)

	cronSvc, err := cron.New(cfg.Workspace+"/"+cfg.CronStore, nil, log, metrics)
	if err != nil {
		return nil, fmt.Errorf("building cron service: %w", err)
	}
	cronSvc.SetOnJob(func(j cron.Job) error {
		b.PublishInbound(envelope.NewInbound(j.Payload.Channel, "cron", j.Payload.To, j.Payload.Message))
		return nil
	})

	var allowedDir *string
	if cfg.Subagent.RestrictToWorkspace {
		ws := cfg.Workspace
		allowedDir = &ws
	}
	registerDefaultTools(registry, registerDefaultToolsConfig{
		allowedDir:        allowedDir,
		execTimeoutSeconds: cfg.Subagent.ExecTimeoutSeconds,
		workspace:         cfg.Workspace,
		restrict:          cfg.Subagent.RestrictToWorkspace,
		bus:               b,
		cronSvc:           cronSvc,
		spawner:           subagents,
		visionTool:        visionTool,
	})

	builder := &contextbuilder.Builder{
		Workspace: cfg.Workspace,
		Memory:    longTerm,
		Skills:    contextbuilder.NoopSkills{},
	}

	chRegistry := channels.NewRegistry()

	httpSrv := httpapi.New(cfg.HTTP.Addr, metrics, log)

	loop := agent.New(agent.Config{
		MaxIterations: cfg.Agent.MaxIterations,
		MemoryWindow:  cfg.Agent.MemoryWindow,
		Model:         cfg.LLM.Model,
		Temperature:   cfg.LLM.Temperature,
		TopP:          cfg.LLM.TopP,
		MaxTokens:     cfg.LLM.MaxTokens,
		Workspace:     cfg.Workspace,
	}, b, sessions, registry, provider, builder, longTerm, visionTool, nil, log, metrics, tracer)

	loop.SetDeltaSink(func(channel, chatID, piece string) {
		httpSrv.Broadcast(httpapi.Delta{Channel: channel, ChatID: chatID, Piece: piece})
	})

	hb := heartbeat.New(cfg.Workspace, func(prompt string) string {
		b.PublishInbound(envelope.NewInbound(envelope.SystemChannel, "heartbeat", envelope.SystemChannel+":heartbeat", prompt))
		return ""
	}, cfg.Heartbeat.Interval, cfg.Heartbeat.Enabled, log)

	return &app{
		instanceID: instanceID,
		cfg:        cfg,
		log:        log,
		tracer:     tracer,
		metrics:    metrics,
		bus:        b,
		sessions:   sessions,
		longTerm:   longTerm,
		registry:   registry,
		provider:   provider,
		builder:    builder,
		cronSvc:    cronSvc,
		subagents:  subagents,
		heartbeat:  hb,
		channels:   chRegistry,
		httpSrv:    httpSrv,
		loop:       loop,
	}, nil
}

func buildProvider(cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return llm.NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	case "anthropic":
		return llm.NewAnthropicProvider(cfg.APIKey, cfg.Model), nil
	case "bedrock":
		return llm.NewBedrockProvider(context.Background(), cfg.Region, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// start launches every background service in the order agent worker,
// heartbeat, cron, channels, HTTP control plane, dispatcher — the same
// order shutdown stops them in (agent → heartbeat → cron → channel-manager
// → dispatcher), except that shutdown stops the HTTP server last.
func (a *app) start(ctx context.Context) {
	a.agentDone = make(chan struct{})
	go func() {
		defer close(a.agentDone)
		a.loop.Run(ctx)
	}()
	a.heartbeat.Start()
	a.cronSvc.Start()
	_ = a.channels.StartAll(a.bus.PublishInbound)
	a.httpSrv.Start()
	a.bus.StartDispatcher()
	a.bus.SubscribeOutbound("cli", func(o envelope.Outbound) { a.channels.Dispatch(o) })
}

// shutdown stops every background service in spec.md §6's mandated order.
func (a *app) shutdown(ctx context.Context) {
	a.bus.PublishInbound(envelope.Inbound{Channel: envelope.SystemChannel, Content: envelope.StopContent})
	if a.agentDone != nil {
		<-a.agentDone
	}
	a.heartbeat.Stop()
	a.cronSvc.Stop()
	_ = a.channels.StopAll()
	a.bus.StopDispatcher()
	_ = a.httpSrv.Stop(ctx)
}
