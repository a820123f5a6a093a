package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name         string
		template     string
		placeholders map[string]string
		want         string
	}{
		{
			name:         "no tokens",
			template:     "Merit list published",
			placeholders: map[string]string{"name": "Ayesha"},
			want:         "Merit list published",
		},
		{
			name:         "single token",
			template:     "Hi {name}",
			placeholders: map[string]string{"name": "Ayesha"},
			want:         "Hi Ayesha",
		},
		{
			name:         "multiple tokens",
			template:     "{name}, {university} closes admissions on {date}",
			placeholders: map[string]string{"name": "Bilal", "university": "NUST", "date": "Sep 1"},
			want:         "Bilal, NUST closes admissions on Sep 1",
		},
		{
			name:         "missing key left verbatim",
			template:     "Hi {name}",
			placeholders: map[string]string{},
			want:         "Hi {name}",
		},
		{
			name:         "missing key among present ones",
			template:     "Hi {name}, your {program} seat is confirmed",
			placeholders: map[string]string{"name": "Sana"},
			want:         "Hi Sana, your {program} seat is confirmed",
		},
		{
			name:         "repeated token",
			template:     "{name} {name}",
			placeholders: map[string]string{"name": "Omar"},
			want:         "Omar Omar",
		},
		{
			name:         "unclosed brace left verbatim",
			template:     "Hi {name",
			placeholders: map[string]string{"name": "Ali"},
			want:         "Hi {name",
		},
		{
			name:         "empty template",
			template:     "",
			placeholders: map[string]string{"name": "Ali"},
			want:         "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.template, tt.placeholders))
		})
	}
}

// A placeholder value containing token syntax must not be expanded again.
func TestRenderNoRecursiveExpansion(t *testing.T) {
	got := Render("Hello {name}", map[string]string{
		"name": "{evil}",
		"evil": "injected",
	})
	assert.Equal(t, "Hello {evil}", got)
}

func TestRenderPair(t *testing.T) {
	title, body := RenderPair("Hi {name}", "{university} deadline is {date}", map[string]string{
		"name":       "Zara",
		"university": "LUMS",
		"date":       "Aug 30",
	})
	assert.Equal(t, "Hi Zara", title)
	assert.Equal(t, "LUMS deadline is Aug 30", body)
}
