// Package policy decides which tool calls need explicit user confirmation and
// validates call arguments before any backend activity occurs.
package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	"github.com/akeildev/basicsHalo/internal/config"
	"github.com/akeildev/basicsHalo/pkg/router"
)

// mutatingKeywords mark tool names that always need confirmation regardless
// of the sensitivity classification.
var mutatingKeywords = []string{"delete", "remove", "write", "create", "modify", "execute"}

// pathArgKeys are argument names checked against the allowed roots. Unknown
// keys pass through untouched.
var pathArgKeys = []string{"path", "file", "directory", "target", "source", "dest", "destination"}

// ValidationError is a policy rejection with a human-readable reason. It
// never reaches a backend.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Checker applies the loaded policy to tool invocations.
type Checker struct {
	policy config.PolicyConfig
}

// NewChecker creates a checker for the given policy.
func NewChecker(policy config.PolicyConfig) *Checker {
	return &Checker{policy: policy}
}

// NeedsConfirmation reports whether a tool requires explicit user approval:
// sensitive tools always do, tools whose name contains a mutating keyword do,
// and otherwise the policy default applies.
func (c *Checker) NeedsConfirmation(tool router.ToolSpec) bool {
	if tool.Sensitive {
		return true
	}

	name := strings.ToLower(tool.Name)
	for _, op := range mutatingKeywords {
		if strings.Contains(name, op) {
			return true
		}
	}

	return c.policy.RequireConfirmation
}

// ValidateArguments checks path-like arguments against the allowed roots and,
// when the tool declares an input schema, validates the arguments against it.
// Returns a *ValidationError with a human-readable reason on rejection.
func (c *Checker) ValidateArguments(tool router.ToolSpec, args map[string]interface{}) error {
	for _, key := range pathArgKeys {
		value, present := args[key]
		if !present {
			continue
		}
		path, ok := value.(string)
		if !ok {
			continue
		}
		if !c.pathAllowed(path) {
			return &ValidationError{
				Reason: fmt.Sprintf("The path '%s' is not in an allowed directory.", path),
			}
		}
	}

	if err := validateSchema(tool, args); err != nil {
		return err
	}

	return nil
}

// pathAllowed resolves a path and checks containment in some allowed root.
// An empty allow-list accepts every path.
func (c *Checker) pathAllowed(path string) bool {
	roots := c.policy.AllowedRoots
	if len(roots) == 0 {
		return true
	}

	resolved := resolvePath(path)
	for _, root := range roots {
		if contains(resolvePath(root), resolved) {
			return true
		}
	}
	return false
}

// resolvePath expands a leading ~, makes the path absolute, and follows
// symlinks best-effort.
func resolvePath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}

	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	return abs
}

// contains reports whether child is root or lives under it.
func contains(root, child string) bool {
	rel, err := filepath.Rel(root, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// validateSchema checks the arguments against the tool's declared input
// schema when one is present. Malformed schemas are ignored: the contract is
// permissive, validation only rejects when a well-formed schema says no.
func validateSchema(tool router.ToolSpec, args map[string]interface{}) error {
	if len(tool.InputSchema) == 0 {
		return nil
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(tool.InputSchema))
	if err != nil {
		log.Debug().Err(err).Str("tool", tool.Name).Msg("Skipping malformed input schema")
		return nil
	}

	if args == nil {
		args = map[string]interface{}{}
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		log.Debug().Err(err).Str("tool", tool.Name).Msg("Schema validation errored, passing arguments through")
		return nil
	}

	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			reasons = append(reasons, desc.String())
		}
		return &ValidationError{
			Reason: fmt.Sprintf("The arguments are not valid for this tool: %s.", strings.Join(reasons, "; ")),
		}
	}

	return nil
}
