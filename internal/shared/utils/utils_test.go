package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashFieldsOrderMatters(t *testing.T) {
	h := DefaultHasher()

	a := h.HashFields("source", "v1")
	b := h.HashFields("v1", "source")

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, h.HashFields("source", "v1"))
	assert.Len(t, a, 64)
	assert.Len(t, Short(a), 8)
}

func TestValidateSource(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantErr bool
	}{
		{name: "empty", source: "", wantErr: false},
		{name: "component", source: "export default () => <p>hi</p>;", wantErr: false},
		{name: "too large", source: strings.Repeat("a", MaxSourceSize+1), wantErr: true},
		{name: "invalid utf8", source: string([]byte{0xff, 0xfe}), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSource(tt.source)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTarget(t *testing.T) {
	assert.NoError(t, ValidateTarget("12"))
	assert.Error(t, ValidateTarget(""))
	assert.Error(t, ValidateTarget("12; drop"))
}
