package backend

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeMock, false},
		{"mock", ModeMock, false},
		{" REAL ", ModeReal, false},
		{"live", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestDefaultPlane(t *testing.T) {
	for _, name := range []string{"XY", "YZ", "ZX"} {
		p, err := DefaultPlane(name)
		require.NoError(t, err)
		assert.Equal(t, name, p.String())
	}

	_, err := DefaultPlane("xy")
	assert.True(t, errors.Is(err, ErrUnknownPlane))
	assert.Contains(t, err.Error(), `"xy"`)
}

func TestOpenerFunc(t *testing.T) {
	var got Mode
	var doc string
	o := OpenerFunc(func(m Mode, d string) (Backend, error) {
		got, doc = m, d
		return nil, errors.New("boom")
	})
	_, err := o.Open(ModeReal, "Bracket")
	assert.EqualError(t, err, "boom")
	assert.Equal(t, ModeReal, got)
	assert.Equal(t, "Bracket", doc)
}
