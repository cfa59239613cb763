package bot

import (
	"strings"
	"testing"
)

func TestEscapeMarkdownV2(t *testing.T) {
	got := EscapeMarkdownV2(`a_b*c [x](y) 1.5! C:\dir`)
	want := `a\_b\*c \[x\]\(y\) 1\.5\! C:\\dir`
	if got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestChunk(t *testing.T) {
	if got := Chunk("", 10); got != nil {
		t.Fatalf("empty input should give no chunks, got %q", got)
	}

	parts := Chunk(strings.Repeat("é", 9), 4)
	if len(parts) != 3 || parts[0] != "éééé" || parts[2] != "é" {
		t.Fatalf("unexpected chunks %q", parts)
	}
}

func TestChunkKeepsEscapesTogether(t *testing.T) {
	parts := Chunk(`abc\.def`, 4)
	if parts[0] != "abc" || parts[1] != `\.de` {
		t.Fatalf("escape split across chunks: %q", parts)
	}
	if strings.Join(parts, "") != `abc\.def` {
		t.Fatalf("chunks lost content: %q", parts)
	}
}

func TestCommandArgs(t *testing.T) {
	cases := map[string]string{
		"/start":                "",
		"/start 42":             "42",
		"/websearch  AI news  ": "AI news",
	}
	for in, want := range cases {
		if got := commandArgs(in); got != want {
			t.Fatalf("%q: want %q, got %q", in, want, got)
		}
	}
}
