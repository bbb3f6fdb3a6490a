package printing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaperSize(t *testing.T) {
	tests := []struct {
		size   PaperSize
		valid  bool
		width  int
		height int
	}{
		{PaperSizeA4, true, 210, 297},
		{PaperSizeA5, true, 148, 210},
		{PaperSizeLetter, true, 216, 279},
		{PaperSize("B5"), false, 210, 297},
	}

	for _, tt := range tests {
		t.Run(string(tt.size), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.size.IsValid())
			w, h := tt.size.Dimensions()
			assert.Equal(t, tt.width, w)
			assert.Equal(t, tt.height, h)
		})
	}
}

func TestRenderError(t *testing.T) {
	t.Run("error without cause", func(t *testing.T) {
		err := NewRenderError(ErrCodeRenderTimeout, "timeout occurred", nil)

		assert.Equal(t, ErrCodeRenderTimeout, err.Code)
		assert.Equal(t, "timeout occurred", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("error with cause", func(t *testing.T) {
		err := NewRenderError(ErrCodeRenderFailed, "render failed", assert.AnError)

		assert.Contains(t, err.Error(), "render failed")
		assert.Contains(t, err.Error(), assert.AnError.Error())
		assert.ErrorIs(t, err, assert.AnError)
	})
}
