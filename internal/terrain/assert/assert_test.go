package assert

import "testing"

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("%s: expected panic", name)
		}
	}()
	fn()
}

func TestThat(t *testing.T) {
	That(true, "never")
	mustPanic(t, "That(false)", func() { That(false, "x=%d", 1) })
}

func TestInRange(t *testing.T) {
	InRange(0.5, 0, 1, "w")
	InRange(-1, -1, 1, "basis")
	mustPanic(t, "above", func() { InRange(1.01, -1, 1, "basis") })
	mustPanic(t, "nan", func() { InRange(nan(), -1, 1, "basis") })
}

func TestDisabled(t *testing.T) {
	SetEnabled(false)
	defer SetEnabled(true)
	That(false, "ignored")
	InRange(5, 0, 1, "ignored")
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}
