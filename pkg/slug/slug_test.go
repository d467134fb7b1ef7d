package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"punctuation stripped", "St. Mary's Clinic!", "st-marys-clinic"},
		{"already normalized", "st marys clinic", "st-marys-clinic"},
		{"whitespace collapsed", "  Kona \t Family\n\nHealth  ", "kona-family-health"},
		{"digits kept", "Clinic 24/7", "clinic-247"},
		{"non ascii dropped", "Hālau Ola", "hlau-ola"},
		{"hyphens are not whitespace", "Wai-anae Coast", "waianae-coast"},
		{"empty", "", ""},
		{"only symbols", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Make(tt.in))
		})
	}
}

func TestMakeIsIdempotent(t *testing.T) {
	for _, in := range []string{"St. Mary's Clinic!", "Dr. Leilani Kahale", "a  b  c"} {
		once := Make(in)
		assert.Equal(t, once, Make(once), in)
	}
}

func TestMakeMergesEquivalentNames(t *testing.T) {
	assert.Equal(t, Make("St. Mary's Clinic!"), Make("st marys clinic"))
}
