package seed

import "testing"

func TestDecode_StrictFields(t *testing.T) {
	type fixture struct {
		Names []string `yaml:"names"`
	}

	var ok fixture
	if err := Decode([]byte("names:\n  - a\n  - b\n"), &ok); err != nil {
		t.Fatalf("Decode() err=%v", err)
	}
	if len(ok.Names) != 2 {
		t.Fatalf("len(Names)=%d, want 2", len(ok.Names))
	}

	var bad fixture
	if err := Decode([]byte("nmaes:\n  - a\n"), &bad); err == nil {
		t.Fatalf("expected unknown-field error")
	}
}

func TestEnabled_DefaultTrue(t *testing.T) {
	got, err := Enabled("seedtestsvc")
	if err != nil {
		t.Fatalf("Enabled() err=%v", err)
	}
	if !got {
		t.Fatalf("Enabled()=false, want true by default")
	}
}

func TestEnabled_EnvOverride(t *testing.T) {
	t.Setenv("SEEDTESTSVC_SEED", "false")
	got, err := Enabled("seedtestsvc")
	if err != nil {
		t.Fatalf("Enabled() err=%v", err)
	}
	if got {
		t.Fatalf("Enabled()=true, want false")
	}
}
