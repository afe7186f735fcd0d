package markdown

import (
	"strings"
	"testing"
)

func TestToHTML(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		notWant []string
	}{
		{
			name:  "paragraph",
			input: "Rest and drink fluids.",
			want:  []string{"<p>Rest and drink fluids.</p>"},
		},
		{
			name:  "list",
			input: "- fever\n- cough\n",
			want:  []string{"<ul>", "<li>fever</li>", "<li>cough</li>"},
		},
		{
			name:    "raw html is skipped",
			input:   "Fever <script>alert(1)</script> is common.",
			want:    []string{"Fever"},
			notWant: []string{"<script>"},
		},
		{
			name:    "javascript links are not rendered as links",
			input:   "[click](javascript:alert(1))",
			notWant: []string{`href="javascript:`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(ToHTML(tt.input))
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("expected %q in %q", w, got)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Errorf("did not expect %q in %q", w, got)
				}
			}
		})
	}
}

func TestToPlainText(t *testing.T) {
	got := ToPlainText("**Flu** & colds")
	if got != "Flu & colds" {
		t.Errorf("unexpected plain text %q", got)
	}
}

func TestStripHTMLTags(t *testing.T) {
	if got := StripHTMLTags("<p>a <em>b</em></p>"); got != "a b" {
		t.Errorf("unexpected result %q", got)
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		input string
		n     int
		want  string
	}{
		{"Rest and drink fluids.", 0, "Rest and drink fluids."},
		{"Rest and drink fluids.", 50, "Rest and drink fluids."},
		{"Rest and drink fluids.", 5, "Rest…"},
		{"Грип і застуда", 5, "Грип…"},
		{"- fever\n- cough", 50, "fever cough"},
	}

	for _, tt := range tests {
		if got := Preview(tt.input, tt.n); got != tt.want {
			t.Errorf("Preview(%q, %d) = %q, want %q", tt.input, tt.n, got, tt.want)
		}
	}
}
