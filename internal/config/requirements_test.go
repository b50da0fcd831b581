package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequirements_ValidateRejectsDisallowedValue(t *testing.T) {
	reqs := NewRequirements()
	reqs.Require("approval.mode", []string{"untrusted", "on-request", "never"}, true)

	err := reqs.Validate(map[string]any{
		"approval": map[string]any{"mode": "yolo"},
	})
	var invalid *InvalidValue
	require.True(t, errors.As(err, &invalid))
	require.Equal(t, "approval.mode", invalid.Field)
}

func TestRequirements_ValidateRejectsMissingRequiredField(t *testing.T) {
	reqs := NewRequirements()
	reqs.Require("model.provider", nil, true)

	err := reqs.Validate(map[string]any{"model": map[string]any{}})
	var empty *EmptyField
	require.True(t, errors.As(err, &empty))
	require.Equal(t, "model.provider", empty.Field)
}

func TestRequirements_ValidatePassesWellFormedConfig(t *testing.T) {
	reqs := NewRequirements()
	reqs.Require("approval.mode", []string{"untrusted", "on-request"}, true)
	reqs.Require("model.temperature", nil, false)

	err := reqs.Validate(map[string]any{
		"approval": map[string]any{"mode": "on-request"},
		"model":    map[string]any{"temperature": 0.4},
	})
	require.NoError(t, err)
}

func TestRequirements_ValidateSkipsOptionalAbsentField(t *testing.T) {
	reqs := NewRequirements()
	reqs.Require("model.nickname", nil, false)

	err := reqs.Validate(map[string]any{"model": map[string]any{}})
	require.NoError(t, err)
}
