package theme

import "testing"

func TestApply(t *testing.T) {
	t.Cleanup(func() { _ = Apply(DefaultName) })

	if err := Apply("mono"); err != nil {
		t.Fatalf("Apply(mono): %v", err)
	}
	if Active() != "mono" {
		t.Errorf("Expected mono, got %s", Active())
	}

	if err := Apply("neon"); err == nil {
		t.Error("Expected error for unknown theme, got nil")
	}
	if Active() != "mono" {
		t.Errorf("Expected unknown theme to keep mono, got %s", Active())
	}

	if err := Apply(""); err != nil || Active() != DefaultName {
		t.Errorf("Expected empty name to select %s, got %s (%v)", DefaultName, Active(), err)
	}
}

func TestNames(t *testing.T) {
	names := Names()
	want := []string{"default", "mono", "solarized"}
	if len(names) != len(want) {
		t.Fatalf("Expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, names)
		}
	}
}
