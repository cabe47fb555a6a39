package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentitySame(t *testing.T) {
	tests := []struct {
		name string
		a, b Identity
		want bool
	}{
		{"exact", Identity{"Darude", "Sandstorm"}, Identity{"Darude", "Sandstorm"}, true},
		{"case", Identity{"DARUDE", "sandstorm"}, Identity{"darude", "SandStorm"}, true},
		{"unicode fold", Identity{"Röyksopp", "Eple"}, Identity{"RÖYKSOPP", "EPLE"}, true},
		{"different title", Identity{"Darude", "Sandstorm"}, Identity{"Darude", "Feel the Beat"}, false},
		{"separator is not ambiguous", Identity{"A - B", "C"}, Identity{"A", "B - C"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Same(tt.b))
			assert.Equal(t, tt.want, tt.b.Same(tt.a))
		})
	}
}

func TestIdentityNormalized(t *testing.T) {
	id, ok := Identity{Artist: " ", Title: "Eple"}.Normalized()
	assert.False(t, ok)
	assert.Equal(t, Identity{Artist: PlaceholderName, Title: "Eple"}, id)

	id, ok = Identity{Artist: "Röyksopp", Title: "Eple"}.Normalized()
	assert.True(t, ok)
	assert.Equal(t, "Röyksopp - Eple", id.String())
}

func TestValidationErrorClassification(t *testing.T) {
	err := Wrap(ErrExtraction, "segment 00:05", Invalid(ReasonZeroDuration, "duration %.1f", 0.0))

	assert.True(t, errors.Is(err, ErrExtraction))
	assert.True(t, errors.Is(err, ErrInputValidation))

	reason, ok := ReasonOf(err)
	assert.True(t, ok)
	assert.Equal(t, ReasonZeroDuration, reason)

	_, ok = ReasonOf(errors.New("plain"))
	assert.False(t, ok)
}
