// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jacknavodari/super-ollama-agent/internal/conversation"
)

// ExecutorFunc is the function signature for tool implementations.
type ExecutorFunc func(ctx context.Context, args map[string]interface{}) (string, error)

// Tool represents a callable tool with validation and execution hooks.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (string, error)
	Validate(args map[string]interface{}) error
}

// ToolDefinition provides a default implementation of Tool.
type ToolDefinition struct {
	NameValue        string
	DescriptionValue string
	ParametersValue  map[string]interface{}
	ExecuteFunc      ExecutorFunc
	ValidateFunc     func(args map[string]interface{}) error
}

func (t *ToolDefinition) Name() string { return t.NameValue }

func (t *ToolDefinition) Description() string { return t.DescriptionValue }

func (t *ToolDefinition) Parameters() map[string]interface{} { return t.ParametersValue }

func (t *ToolDefinition) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	if t.ExecuteFunc == nil {
		return "", nil
	}
	return t.ExecuteFunc(ctx, args)
}

func (t *ToolDefinition) Validate(args map[string]interface{}) error {
	if t.ValidateFunc == nil {
		return nil
	}
	return t.ValidateFunc(args)
}

// ToolResult is the outcome of executing one tool call. Failures are
// carried as data: Err classifies the failure and Result holds the
// message fed back to the model.
type ToolResult struct {
	Call      conversation.ToolCallRecord
	Result    string
	Err       error
	Truncated bool
}

// Failed reports whether the execution produced an error outcome.
func (r *ToolResult) Failed() bool { return r.Err != nil }

// Permission describes the policy for a tool.
type Permission struct {
	Allowed             bool
	RequireConfirmation bool
}

// Policy configures which tools are allowed and which require confirmation.
type Policy struct {
	Allowed             map[string]bool
	RequireConfirmation map[string]bool
}

// PolicyFromLists builds a policy from allow/confirmation lists.
func PolicyFromLists(allow, confirm []string) Policy {
	allowMap := make(map[string]bool, len(allow))
	for _, name := range allow {
		allowMap[name] = true
	}
	confirmMap := make(map[string]bool, len(confirm))
	for _, name := range confirm {
		confirmMap[name] = true
	}
	return Policy{
		Allowed:             allowMap,
		RequireConfirmation: confirmMap,
	}
}

// DefaultPolicy allows every built-in tool without confirmation. The
// configuration layer can tighten this with confirm/deny lists.
func DefaultPolicy() Policy {
	return PolicyFromLists(BuiltinToolNames(), nil)
}

// ExecuteOptions controls how tool execution is handled.
type ExecuteOptions struct {
	// Force bypasses policy checks and confirmation requirements
	// (use only after explicit user consent).
	Force bool
}

// Registry holds all available tools with their implementations. Every
// filesystem tool resolves paths strictly under the registry's working
// directory.
type Registry struct {
	mu          sync.RWMutex
	workdir     string
	tools       map[string]Tool
	permissions map[string]Permission
	timeouts    TimeoutConfig
}

// NewRegistry creates a registry rooted at workdir and registers all
// built-in tools under the default policy.
func NewRegistry(workdir string) (*Registry, error) {
	return NewRegistryWithPolicy(workdir, DefaultPolicy())
}

// NewRegistryWithPolicy creates a registry with the provided policy.
func NewRegistryWithPolicy(workdir string, policy Policy) (*Registry, error) {
	resolved, err := filepath.Abs(workdir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}
	r := &Registry{
		workdir:     resolved,
		tools:       make(map[string]Tool),
		permissions: make(map[string]Permission),
		timeouts:    DefaultTimeoutConfig(),
	}

	registerBuiltInTools(r)
	r.applyPolicy(DefaultPolicy())
	r.applyPolicy(policy)

	return r, nil
}

// Workdir returns the directory all filesystem tools are confined to.
func (r *Registry) Workdir() string {
	return r.workdir
}

// RegisterTool adds a tool to the registry.
func (r *Registry) RegisterTool(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("%w: tool has no name", ErrInvalidArguments)
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = tool
	if _, ok := r.permissions[name]; !ok {
		// Unknown tools default to blocked + confirmation.
		r.permissions[name] = Permission{Allowed: false, RequireConfirmation: true}
	}
	return nil
}

// SetTimeouts replaces the per-tool timeout configuration.
func (r *Registry) SetTimeouts(config TimeoutConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeouts = config
}

// applyPolicy merges the provided policy into the registry permissions.
func (r *Registry) applyPolicy(policy Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name := range r.tools {
		perm, ok := r.permissions[name]
		if !ok {
			perm = Permission{Allowed: false, RequireConfirmation: true}
		}
		if policy.Allowed != nil {
			perm.Allowed = policy.Allowed[name]
		}
		if policy.RequireConfirmation != nil {
			perm.RequireConfirmation = policy.RequireConfirmation[name]
		}
		r.permissions[name] = perm
	}
}

// ToolNames returns all registered tool names, sorted.
func (r *Registry) ToolNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToolSummary describes one registered tool for prompt rendering.
type ToolSummary struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// Summaries returns all registered tools sorted by name.
func (r *Registry) Summaries() []ToolSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	summaries := make([]ToolSummary, 0, len(r.tools))
	for _, tool := range r.tools {
		summaries = append(summaries, ToolSummary{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries
}

// Describe returns the description of a registered tool.
func (r *Registry) Describe(name string) (string, bool) {
	tool, ok := r.getTool(name)
	if !ok {
		return "", false
	}
	return tool.Description(), true
}

// ExecuteRecord runs the tool named by a parsed tool-call record.
func (r *Registry) ExecuteRecord(ctx context.Context, call conversation.ToolCallRecord) *ToolResult {
	return r.ExecuteRecordWithOptions(ctx, call, ExecuteOptions{})
}

// ExecuteRecordWithOptions runs a tool call with execution options.
// Rejections are checked in a fixed order: unknown tool, invalid
// arguments, policy. All failures come back as a ToolResult carrying a
// model-facing message, never as a panic or a bare error.
func (r *Registry) ExecuteRecordWithOptions(ctx context.Context, call conversation.ToolCallRecord, opts ExecuteOptions) *ToolResult {
	result := &ToolResult{Call: call}

	tool, exists := r.getTool(call.Tool)
	if !exists {
		result.Err = fmt.Errorf("%w: %q", ErrUnknownTool, call.Tool)
		result.Result = fmt.Sprintf("Error: Unknown tool '%s' requested. Available tools: %s",
			call.Tool, strings.Join(r.ToolNames(), ", "))
		return result
	}

	args := call.Arguments
	if args == nil {
		args = map[string]interface{}{}
	}
	if err := tool.Validate(args); err != nil {
		result.Err = fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		result.Result = fmt.Sprintf("Error: invalid arguments for tool '%s': %v", call.Tool, err)
		return result
	}

	if !opts.Force {
		perm := r.getPermission(call.Tool)
		if !perm.Allowed {
			result.Err = fmt.Errorf("%w: %s", ErrToolDenied, call.Tool)
			result.Result = fmt.Sprintf("Error: tool '%s' is blocked by policy.", call.Tool)
			return result
		}
		if perm.RequireConfirmation {
			result.Err = fmt.Errorf("%w: %s", ErrToolRequiresApproval, call.Tool)
			result.Result = fmt.Sprintf("Error: tool '%s' requires explicit approval before running.", call.Tool)
			return result
		}
	}

	if timeout := r.timeoutFor(call.Tool); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	output, err := tool.Execute(ctx, args)
	sanitized, truncated := sanitizeToolOutput(output)
	result.Truncated = truncated
	if err != nil {
		result.Err = err
		msg := fmt.Sprintf("Error executing tool '%s': %v", call.Tool, err)
		if strings.TrimSpace(sanitized) != "" {
			msg += "\n" + sanitized
		}
		result.Result = msg
		return result
	}
	result.Result = sanitized
	return result
}

// SetAllowed toggles whether a tool is allowed.
func (r *Registry) SetAllowed(name string, allowed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	perm := r.permissions[name]
	perm.Allowed = allowed
	r.permissions[name] = perm
}

// SetRequireConfirmation toggles per-tool confirmation.
func (r *Registry) SetRequireConfirmation(name string, require bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	perm := r.permissions[name]
	perm.RequireConfirmation = require
	r.permissions[name] = perm
}

// GetPermission returns the current permission entry for a tool.
func (r *Registry) GetPermission(name string) Permission {
	return r.getPermission(name)
}

func (r *Registry) getTool(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

func (r *Registry) getPermission(name string) Permission {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if perm, ok := r.permissions[name]; ok {
		return perm
	}
	// Default for unknown tools: blocked and requires confirmation.
	return Permission{Allowed: false, RequireConfirmation: true}
}

func (r *Registry) timeoutFor(name string) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.timeouts.TimeoutForTool(name)
}
