package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetric_MarshalJSON(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1.23456, "1.23"},
		{0.005, "0.01"},
		{-0.125, "-0.13"},
		{2, "2"},
		{0, "0"},
		{math.NaN(), "null"},
		{math.Inf(1), "null"},
		{math.Inf(-1), "null"},
	}
	for _, tt := range tests {
		got, err := json.Marshal(Metric(tt.in))
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(got), "value %v", tt.in)
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.05, Round2(1.049))
	assert.Equal(t, 0.08, Round2(0.076))
	assert.True(t, math.IsNaN(Round2(math.NaN())))
	assert.True(t, math.IsInf(Round2(math.Inf(-1)), -1))
}

func TestErrorFrame_JSON(t *testing.T) {
	raw, err := json.Marshal(ErrorFrame{Type: "error", Code: "INVALID_ARGUMENT", Message: "data is required"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","code":"INVALID_ARGUMENT","message":"data is required"}`, string(raw))
}
