package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskState_String(t *testing.T) {
	tests := []struct {
		state TaskState
		want  string
	}{
		{TaskStateUnset, "unset"},
		{TaskStatePending, "pending"},
		{TaskStateReady, "ready"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

func TestTaskState_IsValid(t *testing.T) {
	tests := []struct {
		state TaskState
		want  bool
	}{
		{TaskStatePending, true},
		{TaskStateReady, true},
		{TaskStateUnset, false},
		{TaskState("arbitrary"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.IsValid(), "TaskState(%q).IsValid()", string(tt.state))
	}
}
