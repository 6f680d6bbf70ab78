package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hearthkit/hearth/pkg/logger"
	"github.com/hearthkit/hearth/pkg/providers"
)

const registryComponent = "tools"

// Registry is a closed set of tools fixed at construction. The model only
// ever sees the definitions of tools that were validated here.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry validates and seals the tool set. Duplicate names are a
// construction error, not a runtime surprise.
func NewRegistry(toolList ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(toolList))}
	for _, tool := range toolList {
		name := tool.Name()
		if name == "" {
			return nil, fmt.Errorf("tool with empty name")
		}
		if _, exists := r.tools[name]; exists {
			return nil, fmt.Errorf("duplicate tool name %q", name)
		}
		r.tools[name] = tool
		r.order = append(r.order, name)
	}
	return r, nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// Count returns the number of registered tools.
func (r *Registry) Count() int { return len(r.tools) }

// Names returns registered tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Definitions returns the schemas advertised to the completion model, in
// registration order.
func (r *Registry) Definitions() []providers.ToolDefinition {
	defs := make([]providers.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		tool := r.tools[name]
		defs = append(defs, providers.ToolDefinition{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		})
	}
	return defs
}

// Execute runs one tool call. Unknown tools, nil results and panics all come
// back as failure results so a bad call never takes the session down.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (result *Result) {
	logger.InfoCF(registryComponent, "tool execution started",
		map[string]any{"tool": name, "args": sanitizeArgs(args)})

	tool, ok := r.tools[name]
	if !ok {
		logger.WarnCF(registryComponent, "unknown tool requested", map[string]any{"tool": name})
		return Fail(fmt.Sprintf("unknown tool: %s", name))
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.ErrorCF(registryComponent, "tool panicked",
				map[string]any{"tool": name, "panic": fmt.Sprint(rec)})
			result = Fail(fmt.Sprintf("tool %s failed", name))
		}
	}()

	start := time.Now()
	result = tool.Execute(ctx, args)
	duration := time.Since(start)
	if result == nil {
		logger.ErrorCF(registryComponent, "tool returned nil result", map[string]any{"tool": name})
		return Fail(fmt.Sprintf("tool %s returned no result", name))
	}

	if result.Success {
		logger.InfoCF(registryComponent, "tool execution completed",
			map[string]any{"tool": name, "duration_ms": duration.Milliseconds()})
	} else {
		logger.WarnCF(registryComponent, "tool execution failed",
			map[string]any{"tool": name, "duration_ms": duration.Milliseconds(), "error": result.Error})
	}
	return result
}

var sensitiveArgKeyFragments = []string{
	"api_key",
	"apikey",
	"authorization",
	"password",
	"secret",
	"token",
}

func sanitizeArgs(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	sanitized := make(map[string]any, len(args))
	for key, value := range args {
		if isSensitiveArgKey(key) {
			sanitized[key] = "<redacted>"
			continue
		}
		if s, ok := value.(string); ok {
			sanitized[key] = truncateLogString(s)
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func isSensitiveArgKey(key string) bool {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), "-", "_"))
	for _, fragment := range sensitiveArgKeyFragments {
		if strings.Contains(normalized, fragment) {
			return true
		}
	}
	return false
}

func truncateLogString(value string) string {
	const maxLen = 256
	if len(value) <= maxLen {
		return value
	}
	return value[:maxLen] + "...(truncated)"
}

// Summaries returns "- name - description" lines sorted by name, used in
// diagnostics output.
func (r *Registry) Summaries() []string {
	out := make([]string, 0, len(r.tools))
	for name, tool := range r.tools {
		out = append(out, fmt.Sprintf("- %s - %s", name, tool.Description()))
	}
	sort.Strings(out)
	return out
}
