package client

import (
	"errors"
	"testing"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"raw id", "dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"watch url extra params", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ"},
		{"short link", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"embed url", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"shorts url", "https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"surrounding whitespace", "  dQw4w9WgXcQ\n", "dQw4w9WgXcQ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractVideoID(tt.input)
			if err != nil {
				t.Fatalf("ExtractVideoID(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("ExtractVideoID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractVideoID_Invalid(t *testing.T) {
	for _, input := range []string{
		"",
		"   ",
		"tooshort",
		"https://example.com/watch",
		"https://www.youtube.com/watch?v=short",
	} {
		if _, err := ExtractVideoID(input); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("ExtractVideoID(%q) error = %v, want ErrInvalidInput", input, err)
		}
	}
}

func TestWatchURL(t *testing.T) {
	if got, want := WatchURL("dQw4w9WgXcQ"), "https://www.youtube.com/watch?v=dQw4w9WgXcQ"; got != want {
		t.Fatalf("WatchURL() = %q, want %q", got, want)
	}
}
