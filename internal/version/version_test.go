package version

import "testing"

func TestString(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "1.2.3"
	got := String()
	want := "viewfinder 1.2.3 (unknown, built unknown)"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if Current().Version != "1.2.3" {
		t.Errorf("expected Current to reflect Version, got %+v", Current())
	}
}
