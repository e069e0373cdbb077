package policy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akeildev/basicsHalo/internal/config"
	"github.com/akeildev/basicsHalo/pkg/router"
)

func TestNeedsConfirmation(t *testing.T) {
	tests := []struct {
		name    string
		tool    router.ToolSpec
		policy  config.PolicyConfig
		want    bool
	}{
		{
			name: "sensitive tool always confirms",
			tool: router.ToolSpec{Name: "get_battery", Sensitive: true},
			want: true,
		},
		{
			name: "mutating name confirms even when default is off",
			tool: router.ToolSpec{Name: "delete_file"},
			want: true,
		},
		{
			name: "write keyword anywhere in the name",
			tool: router.ToolSpec{Name: "overwrite_note"},
			want: true,
		},
		{
			name: "execute keyword",
			tool: router.ToolSpec{Name: "execute_shell"},
			want: true,
		},
		{
			name:   "benign tool follows the policy default on",
			tool:   router.ToolSpec{Name: "get_battery"},
			policy: config.PolicyConfig{RequireConfirmation: true},
			want:   true,
		},
		{
			name: "benign tool follows the policy default off",
			tool: router.ToolSpec{Name: "get_battery"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewChecker(tt.policy)
			assert.Equal(t, tt.want, checker.NeedsConfirmation(tt.tool))
		})
	}
}

func TestValidateArguments_AllowedRoots(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0755))

	checker := NewChecker(config.PolicyConfig{
		AllowedRoots: []string{root},
	})
	tool := router.ToolSpec{Name: "read_file"}

	// Inside the allowed root.
	err := checker.ValidateArguments(tool, map[string]interface{}{
		"path": filepath.Join(root, "docs", "a.txt"),
	})
	assert.NoError(t, err)

	// The root itself.
	assert.NoError(t, checker.ValidateArguments(tool, map[string]interface{}{"path": root}))

	// Outside.
	err = checker.ValidateArguments(tool, map[string]interface{}{"path": "/etc/passwd"})
	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Reason, "/etc/passwd")
	assert.Contains(t, verr.Reason, "not in an allowed directory")

	// A sibling directory sharing the root as a name prefix is still outside.
	err = checker.ValidateArguments(tool, map[string]interface{}{"path": root + "-evil/a.txt"})
	assert.Error(t, err)
}

func TestValidateArguments_PathKeys(t *testing.T) {
	root := t.TempDir()
	checker := NewChecker(config.PolicyConfig{AllowedRoots: []string{root}})
	tool := router.ToolSpec{Name: "move_file"}

	// Every recognized path key is checked.
	for _, key := range []string{"path", "file", "directory", "target", "source", "dest", "destination"} {
		err := checker.ValidateArguments(tool, map[string]interface{}{key: "/etc/passwd"})
		assert.Error(t, err, "key %q should be checked", key)
	}

	// Unknown keys and non-string values pass through.
	assert.NoError(t, checker.ValidateArguments(tool, map[string]interface{}{
		"filename_hint": "/etc/passwd",
		"path":          42,
	}))
}

func TestValidateArguments_EmptyAllowListAcceptsEverything(t *testing.T) {
	checker := NewChecker(config.PolicyConfig{})
	err := checker.ValidateArguments(router.ToolSpec{Name: "read_file"}, map[string]interface{}{
		"path": "/etc/passwd",
	})
	assert.NoError(t, err)
}

func TestValidateArguments_Schema(t *testing.T) {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{"type": "string"},
		},
		"required": []interface{}{"query"},
	}
	tool := router.ToolSpec{Name: "search", InputSchema: schema}
	checker := NewChecker(config.PolicyConfig{})

	assert.NoError(t, checker.ValidateArguments(tool, map[string]interface{}{"query": "battery"}))

	// Missing required property.
	err := checker.ValidateArguments(tool, map[string]interface{}{})
	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Reason, "not valid for this tool")

	// Wrong type.
	assert.Error(t, checker.ValidateArguments(tool, map[string]interface{}{"query": 5}))
}

func TestValidateArguments_MalformedSchemaIsIgnored(t *testing.T) {
	tool := router.ToolSpec{
		Name:        "odd",
		InputSchema: map[string]interface{}{"type": 12345},
	}
	checker := NewChecker(config.PolicyConfig{})
	assert.NoError(t, checker.ValidateArguments(tool, map[string]interface{}{"anything": true}))
}

func TestValidateArguments_NoSchemaIsPermissive(t *testing.T) {
	checker := NewChecker(config.PolicyConfig{})
	assert.NoError(t, checker.ValidateArguments(router.ToolSpec{Name: "plain"}, map[string]interface{}{
		"whatever": []interface{}{1, 2, 3},
	}))
}
