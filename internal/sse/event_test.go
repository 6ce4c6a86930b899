// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		data      string
		expected  string
	}{
		{
			name:      "simple message without event name",
			eventName: "",
			data:      "hello",
			expected:  "data: hello\n\n",
		},
		{
			name:      "simple message with event name",
			eventName: "update",
			data:      "hello",
			expected:  "event: update\ndata: hello\n\n",
		},
		{
			name:      "multiline data",
			eventName: "",
			data:      "line1\nline2\nline3",
			expected:  "data: line1\ndata: line2\ndata: line3\n\n",
		},
		{
			name:      "multiline data with event name",
			eventName: "update",
			data:      "line1\nline2",
			expected:  "event: update\ndata: line1\ndata: line2\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatEvent(tt.eventName, tt.data))
		})
	}
}

func TestFormatJSONEvent(t *testing.T) {
	result, err := FormatJSONEvent("notification", map[string]any{"title": "Hi"})

	require.NoError(t, err)
	assert.Equal(t, "event: notification\ndata: {\"title\":\"Hi\"}\n\n", result)
}

func TestFormatJSONEvent_Unsupported(t *testing.T) {
	_, err := FormatJSONEvent("x", make(chan int))

	assert.Error(t, err)
}

func TestHeartbeat(t *testing.T) {
	assert.Equal(t, ": heartbeat\n\n", Heartbeat)
	assert.Equal(t, ':', rune(Heartbeat[0]))
}
