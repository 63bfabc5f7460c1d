package schema

import (
	"encoding/json"
	"testing"

	"github.com/clubdesk/formflow/pkg/domain"
)

func TestStringType(t *testing.T) {
	typ := String()

	if typ.Name() != "string" {
		t.Errorf("Name() = %q, want %q", typ.Name(), "string")
	}

	tests := []struct {
		value   any
		wantErr bool
	}{
		{"hello", false},
		{"", false},
		{42, true},
		{true, true},
		{nil, true},
	}

	for _, tt := range tests {
		err := typ.Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
	}
}

func TestSliceType(t *testing.T) {
	typ := Slice(String())

	if typ.Name() != "[string]" {
		t.Errorf("Name() = %q, want %q", typ.Name(), "[string]")
	}

	tests := []struct {
		value   any
		wantErr bool
	}{
		{[]string{"a", "b"}, false},
		{[]string{}, false},
		{[]any{"a", 1}, true},
		{"a,b", true},
	}

	for _, tt := range tests {
		err := typ.Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
	}
}

func TestRangeType(t *testing.T) {
	typ := Range()

	tests := []struct {
		value   any
		wantErr bool
	}{
		{map[string]any{"from": "09:00", "to": "11:00"}, false},
		{map[string]any{"from": ""}, false},
		{map[string]any{"from": 9}, true},
		{map[string]any{"at": "09:00"}, true},
		{"09:00-11:00", true},
	}

	for _, tt := range tests {
		err := typ.Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
	}
}

func TestOneOfType(t *testing.T) {
	typ := OneOf(Slice(String()), "Yoga", "Boxing")

	if err := typ.Validate([]string{"Yoga"}); err != nil {
		t.Errorf("Validate(Yoga) error = %v", err)
	}
	if err := typ.Validate([]string{"Chess"}); err == nil {
		t.Error("Validate(Chess) expected error")
	}
}

func TestTypeOf_UnknownKind(t *testing.T) {
	if _, err := TypeOf("slider"); err == nil {
		t.Error("expected error for unknown kind")
	}
	for _, k := range domain.Kinds {
		if _, err := TypeOf(k); err != nil {
			t.Errorf("TypeOf(%s) error = %v", k, err)
		}
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name    string
		kind    domain.FieldKind
		value   any
		want    any
		wantErr bool
	}{
		{"bool from yes", domain.KindBoolean, "yes", true, false},
		{"bool from empty", domain.KindBoolean, "", false, false},
		{"bool garbage", domain.KindBoolean, "maybe", nil, true},
		{"number from json", domain.KindNumber, json.Number("12"), "12", false},
		{"number from float", domain.KindNumber, 2.5, "2.5", false},
		{"number trimmed", domain.KindNumber, " 4 ", "4", false},
		{"multichoice from text", domain.KindMultiChoice, "Yoga, ,Boxing", []string{"Yoga", "Boxing"}, false},
		{"multichoice from any", domain.KindMultiChoice, []any{"Yoga"}, []string{"Yoga"}, false},
		{"text keeps spaces", domain.KindText, " Ada ", " Ada ", false},
		{"text rejects bool", domain.KindText, true, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.kind, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Coerce() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !domain.Equal(got, tt.want) {
				t.Errorf("Coerce() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestCoerceField_TrimsNumericText(t *testing.T) {
	got, err := CoerceField(Field{Name: "years", Kind: domain.KindText, Numeric: NumericInt}, " 4\n")
	if err != nil {
		t.Fatal(err)
	}
	if got != "4" {
		t.Errorf("CoerceField() = %q, want %q", got, "4")
	}

	got, err = CoerceField(Field{Name: "name", Kind: domain.KindText}, " Ada ")
	if err != nil {
		t.Fatal(err)
	}
	if got != " Ada " {
		t.Errorf("CoerceField() = %q, plain text must keep its spaces", got)
	}
}

func TestCoerce_TimeRangeFillsMissingBound(t *testing.T) {
	got, err := Coerce(domain.KindTimeRange, map[string]any{"from": "18:00"})
	if err != nil {
		t.Fatal(err)
	}
	m := got.(map[string]any)
	if m["from"] != "18:00" || m["to"] != "" {
		t.Errorf("Coerce() = %v", m)
	}
}
