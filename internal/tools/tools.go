// Package tools wraps the sandboxed code-execution capability as named tools
// with schema-validated arguments.
package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tidemill/llmgate/internal/observability"
)

const (
	// ToolRunCode executes a snippet in a caller-chosen language.
	ToolRunCode = "run_code"
	// ToolRunAnalysis executes a Python data-analysis snippet.
	ToolRunAnalysis = "run_analysis"
)

// ExecLogs holds the captured output streams of one execution.
type ExecLogs struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

// ExecResult is the outcome of one sandboxed execution. Error is set when the
// runtime itself failed, independent of the snippet's exit code.
type ExecResult struct {
	Logs     ExecLogs `json:"logs"`
	ExitCode int      `json:"exit_code"`
	Error    string   `json:"error,omitempty"`
}

// Runner is the code-execution capability consumed by the registry. The
// sandbox behind it is opaque.
type Runner interface {
	RunCode(ctx context.Context, code, language string) (*ExecResult, error)
}

// FunctionDef describes one callable tool in OpenAI function format.
type FunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Definition is one tool definition in OpenAI format.
type Definition struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

var supportedLanguages = map[string]bool{
	"python":     true,
	"javascript": true,
	"bash":       true,
}

const runCodeSchema = `{
  "type": "object",
  "properties": {
    "code": {"type": "string", "description": "Source code to execute."},
    "language": {"type": "string", "enum": ["python", "javascript", "bash"], "description": "Execution language. Defaults to python."}
  },
  "required": ["code"]
}`

const runAnalysisSchema = `{
  "type": "object",
  "properties": {
    "code": {"type": "string", "description": "Python analysis code to execute."}
  },
  "required": ["code"]
}`

// Registry exposes the execution capability as named tools and validates
// arguments before any sandbox invocation.
type Registry struct {
	runner Runner
	logger *observability.Logger
}

// NewRegistry creates a tool registry backed by the given runner.
func NewRegistry(runner Runner, logger *observability.Logger) *Registry {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Registry{runner: runner, logger: logger}
}

// Definitions returns the tool definitions advertised to providers.
func (r *Registry) Definitions() []Definition {
	return []Definition{
		{
			Type: "function",
			Function: FunctionDef{
				Name:        ToolRunCode,
				Description: "Execute a code snippet in a sandbox and return its output.",
				Parameters:  json.RawMessage(runCodeSchema),
			},
		},
		{
			Type: "function",
			Function: FunctionDef{
				Name:        ToolRunAnalysis,
				Description: "Execute a Python data-analysis snippet in a sandbox and return its output.",
				Parameters:  json.RawMessage(runAnalysisSchema),
			},
		},
	}
}

type toolArguments struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// Execute validates arguments for the named tool and runs it. The returned
// string is the JSON-encoded execution result, suitable for a tool-role
// message.
func (r *Registry) Execute(ctx context.Context, name string, arguments []byte) (string, error) {
	var args toolArguments
	if err := json.Unmarshal(arguments, &args); err != nil {
		return "", fmt.Errorf("tools: parse arguments for %q: %w", name, err)
	}
	if strings.TrimSpace(args.Code) == "" {
		return "", fmt.Errorf("tools: %q requires a non-empty code argument", name)
	}

	var language string
	switch name {
	case ToolRunCode:
		language = args.Language
		if language == "" {
			language = "python"
		}
		if !supportedLanguages[language] {
			return "", fmt.Errorf("tools: unsupported language %q", language)
		}
	case ToolRunAnalysis:
		// Analysis runs are always Python regardless of arguments.
		language = "python"
	default:
		return "", fmt.Errorf("tools: unknown tool %q", name)
	}

	result, err := r.runner.RunCode(ctx, args.Code, language)
	if err != nil {
		return "", fmt.Errorf("tools: %q execution failed: %w", name, err)
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("tools: encode result for %q: %w", name, err)
	}

	r.logger.Slog().Debug("tool executed",
		"tool", name,
		"language", language,
		"exit_code", result.ExitCode,
	)
	return string(encoded), nil
}
