package domain

import "context"

// ToolInvoker executes a tool exposed by an external tool server. Required by
// the replayer and by any node capability that calls external tools; its
// absence is a hard failure.
type ToolInvoker interface {
	InvokeTool(ctx context.Context, serverName, toolName string, params map[string]any) (any, error)
}

// ResourceChecker answers whether a resource a step targets currently exists
// in the live environment. Replay validation consults it before write-type
// and read-type steps.
type ResourceChecker interface {
	ResourceExists(ctx context.Context, serverName, path string) (bool, error)
}
