package logger

import "testing"

func TestRedactKVs(t *testing.T) {
	out := redactKVs([]interface{}{"job_id", "abc", "api_key", "sk-123", "Authorization", "Bearer x", "dangling"})
	want := []interface{}{"job_id", "abc", "api_key", "[REDACTED]", "Authorization", "[REDACTED]", "dangling"}
	if len(out) != len(want) {
		t.Fatalf("len = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"dev", "prod", ""} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		l.With("component", "test").Debug("hello", "n", 1)
	}
}
