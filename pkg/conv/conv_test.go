package conv

import "testing"

func TestParseScalar(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"42", 42},
		{"-7", -7},
		{"3.5", 3.5},
		{"-0.25", -0.25},
		{"true", true},
		{"False", false},
		{"hello", "hello"},
		{"u1", "u1"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ParseScalar(tt.in); got != tt.want {
			t.Errorf("ParseScalar(%q) = %v (%T), want %v (%T)", tt.in, got, got, tt.want, tt.want)
		}
	}
}

func TestFormatScalar(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{42, "42"},
		{int64(7), "7"},
		{3.5, "3.5"},
		{2.0, "2"},
		{true, "true"},
		{"abc", "abc"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := FormatScalar(tt.in); got != tt.want {
			t.Errorf("FormatScalar(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name   string
		a, b   any
		want   int
		wantOK bool
	}{
		{"int less", 1, 2, -1, true},
		{"int equal", 2, 2, 0, true},
		{"cross type int float", 2, 1.5, 1, true},
		{"cross type float int equal", 2.0, 2, 0, true},
		{"string order", "a", "b", -1, true},
		{"string equal", "x", "x", 0, true},
		{"string vs number", "1", 1, 0, false},
		{"bool not comparable", true, 1, 0, false},
		{"nil not comparable", nil, 1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Compare(tt.a, tt.b)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Compare(%v, %v) = (%d, %v), want (%d, %v)", tt.a, tt.b, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestTupleKey_TypeAware(t *testing.T) {
	// 1 (int) and "1" (string) must not collide as dedup keys.
	a := TupleKey([]any{1, "x"})
	b := TupleKey([]any{"1", "x"})
	if a == b {
		t.Errorf("TupleKey collision between int 1 and string \"1\": %q", a)
	}
	if TupleKey([]any{1, "x"}) != a {
		t.Errorf("TupleKey not deterministic")
	}
}

func TestToFloat64(t *testing.T) {
	if v, ok := ToFloat64(3); !ok || v != 3.0 {
		t.Errorf("ToFloat64(3) = (%v, %v)", v, ok)
	}
	if v, ok := ToFloat64(2.5); !ok || v != 2.5 {
		t.Errorf("ToFloat64(2.5) = (%v, %v)", v, ok)
	}
	if _, ok := ToFloat64("x"); ok {
		t.Errorf("ToFloat64(string) should fail")
	}
	if v, ok := ToFloat64(true); !ok || v != 1.0 {
		t.Errorf("ToFloat64(true) = (%v, %v)", v, ok)
	}
}
