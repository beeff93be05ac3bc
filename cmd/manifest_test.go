package cmd

import "testing"

func TestParseEnvFlags(t *testing.T) {
	vars, err := parseEnvFlags([]string{"DATABASE_URL=postgres://x", "EMPTY=", "WITH=equals=inside"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vars["DATABASE_URL"] != "postgres://x" {
		t.Errorf("DATABASE_URL = %q", vars["DATABASE_URL"])
	}
	if v, ok := vars["EMPTY"]; !ok || v != "" {
		t.Error("empty value should be accepted")
	}
	if vars["WITH"] != "equals=inside" {
		t.Errorf("value with equals = %q", vars["WITH"])
	}
}

func TestParseEnvFlagsRejectsMalformed(t *testing.T) {
	for _, bad := range []string{"NOEQUALS", "=value", " =x"} {
		if _, err := parseEnvFlags([]string{bad}); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
