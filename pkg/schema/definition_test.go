package schema

import (
	"testing"

	"github.com/clubdesk/formflow/pkg/domain"
)

func TestRedact(t *testing.T) {
	def := validDefinition()
	def.Fields[1].Sensitive = true
	def.Fields[2].Sensitive = true

	state := domain.NewState("s1", def.ID, def.Defaults())
	var err error
	state.Fields, err = state.Fields.Set("email", "ada@example.com")
	if err != nil {
		t.Fatal(err)
	}
	state.Fields, err = state.Fields.Set("password", "longenough1")
	if err != nil {
		t.Fatal(err)
	}

	out := def.Redact(state)

	if got := out.Fields.Value("password"); got != "" {
		t.Errorf("password = %v, want empty", got)
	}
	if got := out.Fields.Value("email"); got != "ada@example.com" {
		t.Errorf("email = %v", got)
	}
	if got := state.Fields.Value("password"); got != "longenough1" {
		t.Errorf("input state modified: password = %v", got)
	}
}
