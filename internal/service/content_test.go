package service

import (
	"strings"
	"testing"
)

func TestSanitizeText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  plain words ", "plain words"},
		{"Tom's post & <b>mine</b>", "Tom's post & mine"},
		{`say "hi" <script>alert(1)</script>`, `say "hi"`},
	}
	for _, tc := range cases {
		if got := SanitizeText(tc.in); got != tc.want {
			t.Errorf("SanitizeText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRenderContent(t *testing.T) {
	out, err := RenderContent("# Title\n\nSome *calm* text<script>alert(1)</script>")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "<h1") || !strings.Contains(out, "<em>calm</em>") {
		t.Fatalf("expected rendered markdown, got %q", out)
	}
	if strings.Contains(out, "<script") {
		t.Fatalf("expected script to be stripped, got %q", out)
	}

	empty, err := RenderContent("   ")
	if err != nil || empty != "" {
		t.Fatalf("expected empty output, got %q %v", empty, err)
	}
}
