package jsonx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToDynamicJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    map[string]any
		wantErr bool
	}{
		{
			name: "tool arguments",
			input: struct {
				Origin string `json:"origin"`
				Count  int    `json:"count"`
			}{
				Origin: "LAX",
				Count:  3,
			},
			want: map[string]any{
				"origin": "LAX",
				"count":  float64(3),
			},
		},
		{
			name:    "invalid input",
			input:   make(chan int),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToDynamicJSON(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompact(t *testing.T) {
	got, err := Compact(map[string]any{"error": "could not parse dates"})
	assert.NoError(t, err)
	assert.Equal(t, `{"error":"could not parse dates"}`, got)

	_, err = Compact(make(chan int))
	assert.Error(t, err)
}
