package tools

import "context"

// turnOriginKey carries the active turn's origin (channel, chat_id) through
// context.Context rather than mutable tool state — spec.md §9's
// re-architecture of "shared pointers to tools with mutable context" into a
// per-call parameter.
type turnOriginKey struct{}

// Origin identifies which session a tool invocation is running on behalf
// of.
type Origin struct {
	Channel string
	ChatID  string
}

// WithOrigin returns a context carrying o, set once per turn by the agent
// loop before dispatching tool calls.
func WithOrigin(ctx context.Context, o Origin) context.Context {
	return context.WithValue(ctx, turnOriginKey{}, o)
}

// OriginFromContext retrieves the Origin set by WithOrigin, if any.
func OriginFromContext(ctx context.Context) (Origin, bool) {
	o, ok := ctx.Value(turnOriginKey{}).(Origin)
	return o, ok
}
