package logx

import "testing"

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"DEBUG":   LevelDebug,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"info":    LevelInfo,
		"bogus":   LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetLevelGates(t *testing.T) {
	defer SetLevel(LevelInfo)

	SetLevel(LevelError)
	if enabled(LevelDebug) {
		t.Error("debug should be gated out at error level")
	}
	if !enabled(LevelError) {
		t.Error("error should pass at error level")
	}
}
