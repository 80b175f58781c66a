package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestTableOutputPlainWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	tables := newTableOutput(&buf)
	if tables.terminal {
		t.Fatal("buffer should not be treated as a terminal")
	}

	rendered := tables.render([]string{"User", "Marked"}, [][]string{{"alice", "3"}, {"bob"}}, []columnAlignment{alignLeft, alignRight})
	if !strings.Contains(rendered, "+") || strings.Contains(rendered, "╭") {
		t.Fatalf("expected ASCII table, got:\n%s", rendered)
	}
	if !strings.Contains(rendered, "alice") || !strings.Contains(rendered, "bob") {
		t.Fatalf("missing rows:\n%s", rendered)
	}
	if got := tables.status("failed"); got != "failed" {
		t.Fatalf("status should not be coloured off-terminal, got %q", got)
	}
}

func TestTableOutputNoHeaders(t *testing.T) {
	if got := (tableOutput{}).render(nil, nil, nil); got != "" {
		t.Fatalf("expected empty render, got %q", got)
	}
}
