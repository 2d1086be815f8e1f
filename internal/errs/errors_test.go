package errs

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"palette", NewPaletteFormatError("a.yaml", 2, "color", "want 3 channels"), ErrPaletteFormat},
		{"io", NewIOError("mkdir", "/tmp/x", os.ErrPermission), ErrIO},
		{"validation", NewValidationError("rows", 0, "must be positive"), ErrInvalidInput},
		{"wrapped", fmt.Errorf("generate: %w", NewIOError("write", "f.png", os.ErrClosed)), ErrIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.kind)
			assert.NotErrorIs(t, tt.err, ErrNotGenerated)
		})
	}
}

func TestIOErrorUnwrap(t *testing.T) {
	err := NewIOError("open", "missing.palette", os.ErrNotExist)
	assert.ErrorIs(t, err, os.ErrNotExist)

	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "open", ioErr.Op)
	assert.Equal(t, "missing.palette", ioErr.Path)

	assert.NoError(t, NewIOError("open", "x", nil))
}

func TestPaletteFormatErrorMessage(t *testing.T) {
	err := NewPaletteFormatError("fire.yaml", 1, "position", "%v outside [0,1]", 1.5)
	assert.Equal(t, `palette fire.yaml entry 1 field "position": 1.5 outside [0,1]`, err.Error())

	whole := NewPaletteFormatError("<upload>", -1, "", "no entries")
	assert.Equal(t, "palette <upload>: no entries", whole.Error())
}
