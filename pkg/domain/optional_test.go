package domain

import "testing"

func TestResolve_Precedence(t *testing.T) {
	values := map[string]any{
		"preferredName": "",
		"fullName":      "Ada Lovelace",
		"emergency": map[string]any{
			"name": "Charles",
		},
	}

	if got := ResolveString(values, "preferredName", "fullName").OrElse("N/A"); got != "Ada Lovelace" {
		t.Errorf("got %q, want fallback to fullName", got)
	}
	if got := ResolveString(values, "emergency.name").OrElse("N/A"); got != "Charles" {
		t.Errorf("nested lookup = %q", got)
	}
	if got := ResolveString(values, "emergency.phone", "phone").OrElse("N/A"); got != "N/A" {
		t.Errorf("missing paths = %q, want N/A", got)
	}
	if Resolve(values, "fullName.first").Present() {
		t.Error("path through a scalar must not resolve")
	}
}
