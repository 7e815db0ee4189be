package main

import (
	"encoding/json"
	"strings"
	"testing"
)

// captureOutput is a minimal Output that records everything written to it,
// so a command's Run method can be exercised without wiring up kingpin.
type captureOutput struct {
	lines []string
}

func (c *captureOutput) Print(text string) (int, error) {
	c.lines = append(c.lines, text)
	return len(text), nil
}

func (c *captureOutput) Println(text string) (int, error) {
	c.lines = append(c.lines, text)
	return len(text), nil
}

func (c *captureOutput) Printf(format string, args ...interface{}) (int, error) {
	c.lines = append(c.lines, format)
	return 0, nil
}

func (c *captureOutput) Printfln(format string, args ...interface{}) (int, error) {
	c.lines = append(c.lines, format)
	return 0, nil
}

func (c *captureOutput) Warnf(format string, args ...interface{}) (int, error) {
	c.lines = append(c.lines, "warning: "+format)
	return 0, nil
}

func TestHashAlgosListsBothAlgorithms(t *testing.T) {
	s := &HashAlgosSettings{}
	w := &captureOutput{}
	exitCode, err := s.Run(w, w)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if exitCode != 0 {
		t.Fatalf("exitCode = %d, want 0", exitCode)
	}
	if len(w.lines) != 2 {
		t.Fatalf("expected 2 printed algorithm names, got %v", w.lines)
	}
	if w.lines[0] != "sha512/256" || w.lines[1] != "blake2b/256" {
		t.Fatalf("unexpected algorithm names: %v", w.lines)
	}
}

func TestHashAlgosCheckSupportSucceeds(t *testing.T) {
	s := &HashAlgosSettings{CheckSupport: "blake2b/256"}
	w := &captureOutput{}
	exitCode, err := s.Run(w, w)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if exitCode != 0 {
		t.Fatalf("exitCode = %d, want 0 for a supported algorithm", exitCode)
	}
}

func TestHashAlgosCheckSupportFails(t *testing.T) {
	s := &HashAlgosSettings{CheckSupport: "md5"}
	w := &captureOutput{}
	exitCode, err := s.Run(w, w)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if exitCode != 1 {
		t.Fatalf("exitCode = %d, want 1 for an unsupported algorithm", exitCode)
	}
}

func TestHashAlgosJSONOutput(t *testing.T) {
	s := &HashAlgosSettings{JSONOutput: true, CheckSupport: "sha512/256"}
	w := &captureOutput{}
	if _, err := s.Run(w, w); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(w.lines) != 1 {
		t.Fatalf("expected exactly one JSON line, got %v", w.lines)
	}
	var result HashAlgosJSONResult
	if err := json.Unmarshal([]byte(w.lines[0]), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !result.CheckSucceeded {
		t.Fatal("expected CheckSucceeded=true for sha512/256")
	}
	if len(result.SupHashAlgos) != 2 {
		t.Fatalf("expected 2 supported algorithms, got %v", result.SupHashAlgos)
	}
	for _, name := range result.SupHashAlgos {
		if strings.Contains(name, "Name(") {
			t.Fatalf("algorithm name leaked a Go type representation: %q", name)
		}
	}
}
