package conv

import "testing"

func TestToFloat64(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  float64
		ok    bool
	}{
		{"float64", 1.5, 1.5, true},
		{"int", 3, 3, true},
		{"int64", int64(4), 4, true},
		{"bool true", true, 1, true},
		{"bool false", false, 0, true},
		{"string", "1.5", 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToFloat64(tt.value)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ToFloat64(%v) = (%v, %v), want (%v, %v)", tt.value, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestConfigGet(t *testing.T) {
	m := map[string]any{"root": "experiments", "count": 3}
	if got := ConfigGet[string](m, "root", "fallback"); got != "experiments" {
		t.Errorf("ConfigGet(root) = %q", got)
	}
	if got := ConfigGet[string](m, "missing", "fallback"); got != "fallback" {
		t.Errorf("ConfigGet(missing) = %q, want fallback", got)
	}
	// 类型不符时退回默认值
	if got := ConfigGet[string](m, "count", "fallback"); got != "fallback" {
		t.Errorf("ConfigGet(count as string) = %q, want fallback", got)
	}
	if got := ConfigGet[string](nil, "root", "fallback"); got != "fallback" {
		t.Errorf("ConfigGet(nil map) = %q, want fallback", got)
	}
}

func TestConfigGetFloat64_AcceptsIntegerForm(t *testing.T) {
	m := map[string]any{"train_size": 1, "rate": 0.8}
	if got := ConfigGetFloat64(m, "train_size", 0.5); got != 1 {
		t.Errorf("ConfigGetFloat64(train_size) = %v, want 1", got)
	}
	if got := ConfigGetFloat64(m, "rate", 0.5); got != 0.8 {
		t.Errorf("ConfigGetFloat64(rate) = %v, want 0.8", got)
	}
	if got := ConfigGetFloat64(m, "missing", 0.5); got != 0.5 {
		t.Errorf("ConfigGetFloat64(missing) = %v, want 0.5", got)
	}
}

func TestConfigGetInt64(t *testing.T) {
	m := map[string]any{"db": 2, "cost": 1.0, "name": "x"}
	if got := ConfigGetInt64(m, "db", 0); got != 2 {
		t.Errorf("ConfigGetInt64(db) = %v, want 2", got)
	}
	if got := ConfigGetInt64(m, "cost", 0); got != 1 {
		t.Errorf("ConfigGetInt64(cost) = %v, want 1", got)
	}
	if got := ConfigGetInt64(m, "name", 9); got != 9 {
		t.Errorf("ConfigGetInt64(name) = %v, want the default", got)
	}
}
