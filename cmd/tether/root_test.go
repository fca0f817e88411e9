package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	t.Parallel()

	root := newRootCmd()

	want := map[string]bool{
		"start":  false,
		"stop":   false,
		"status": false,
		"send":   false,
		"logs":   false,
	}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestRootCmd_Version(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.HasPrefix(out.String(), "tether ") {
		t.Errorf("version output = %q", out.String())
	}
}
