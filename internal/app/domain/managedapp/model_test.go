package managedapp

import "testing"

func TestPushKeepsFixedLength(t *testing.T) {
	window := NormalizeWindow(nil)
	for i := 0; i < 100; i++ {
		window = Push(window, float64(i))
		if len(window) != HistoryLength {
			t.Fatalf("window length %d after %d pushes", len(window), i+1)
		}
	}
	if Last(window) != 99 || window[0] != 70 {
		t.Fatalf("unexpected window contents: first=%v last=%v", window[0], Last(window))
	}
}

func TestNormalizeWindow(t *testing.T) {
	short := NormalizeWindow([]float64{3, 4})
	if len(short) != HistoryLength || short[0] != 3 || Last(short) != 4 {
		t.Fatalf("unexpected padded window %v", short)
	}
	long := make([]float64, 40)
	for i := range long {
		long[i] = float64(i)
	}
	trimmed := NormalizeWindow(long)
	if len(trimmed) != HistoryLength || trimmed[0] != 10 {
		t.Fatalf("unexpected trimmed window %v", trimmed)
	}
}

func TestValidateEnvKey(t *testing.T) {
	for _, ok := range []string{"PORT", "DATABASE_URL", "_PRIVATE"} {
		if err := ValidateEnvKey(ok); err != nil {
			t.Fatalf("expected %s to be valid: %v", ok, err)
		}
	}
	for _, bad := range []string{"", "port", "1PORT", "MY-KEY"} {
		if err := ValidateEnvKey(bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
