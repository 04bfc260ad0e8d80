package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEnvelope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		env  *Envelope
		want string
	}{
		{
			name: "valid",
			env:  &Envelope{Type: TypePing, ID: "1", Timestamp: "2026-07-30T12:00:00Z"},
			want: "",
		},
		{
			name: "valid with fractional seconds",
			env:  &Envelope{Type: TypePing, ID: "1", Timestamp: "2026-07-30T12:00:00.123Z"},
			want: "",
		},
		{
			name: "missing type",
			env:  &Envelope{ID: "1", Timestamp: "2026-07-30T12:00:00Z"},
			want: "MISSING_REQUIRED_FIELD",
		},
		{
			name: "unknown type",
			env:  &Envelope{Type: "bogus", ID: "1", Timestamp: "2026-07-30T12:00:00Z"},
			want: "UNKNOWN_MESSAGE_TYPE",
		},
		{
			name: "missing id",
			env:  &Envelope{Type: TypePing, Timestamp: "2026-07-30T12:00:00Z"},
			want: "MISSING_REQUIRED_FIELD",
		},
		{
			name: "bad timestamp",
			env:  &Envelope{Type: TypePing, ID: "1", Timestamp: "not-a-time"},
			want: "INVALID_FIELD_VALUE",
		},
		{
			name: "nil envelope",
			env:  nil,
			want: "INVALID_MESSAGE_FORMAT",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ValidateEnvelope(tt.env))
		})
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	env, code := Decode([]byte(`{"type":"ping","id":"1","timestamp":"2026-07-30T12:00:00Z","payload":{}}`))
	assert.Empty(t, code)
	assert.Equal(t, TypePing, env.Type)

	_, code = Decode([]byte(`not json`))
	assert.Equal(t, "INVALID_MESSAGE_FORMAT", code)
}
