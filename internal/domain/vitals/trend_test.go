package vitals

import "testing"

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }

func TestComputeTrend_SimpleRange(t *testing.T) {
	cases := []struct {
		name  string
		value float64
		rng   string
		want  string
	}{
		{"inside range", 85, "70 - 100 mg/dL", TrendStable},
		{"above range", 120, "70 - 100 mg/dL", TrendUp},
		{"below range", 60, "70 - 100 mg/dL", TrendDown},
		{"at upper bound", 100, "70 - 100 mg/dL", TrendStable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := &Vital{TypeName: "Glicemie", Value: f64Ptr(tc.value), NormalRange: strPtr(tc.rng)}
			if got := ComputeTrend(v); got != tc.want {
				t.Errorf("value %v in %q: expected %s, got %s", tc.value, tc.rng, tc.want, got)
			}
		})
	}
}

func TestComputeTrend_BloodPressure(t *testing.T) {
	rng := strPtr("90/60 - 120/80 mmHg")
	cases := []struct {
		name     string
		systolic float64
		want     string
	}{
		{"normal systolic", 110, TrendStable},
		{"high systolic", 140, TrendUp},
		{"low systolic", 85, TrendDown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := &Vital{
				TypeName:       bloodPressureType,
				ValueSystolic:  f64Ptr(tc.systolic),
				ValueDiastolic: f64Ptr(75),
				NormalRange:    rng,
			}
			if got := ComputeTrend(v); got != tc.want {
				t.Errorf("systolic %v: expected %s, got %s", tc.systolic, tc.want, got)
			}
		})
	}
}

func TestComputeTrend_StaticTypes(t *testing.T) {
	for _, name := range []string{"Înălțime", "Greutate"} {
		v := &Vital{TypeName: name, Value: f64Ptr(9999), NormalRange: strPtr("1 - 2")}
		if got := ComputeTrend(v); got != TrendStable {
			t.Errorf("%s must always be stable, got %s", name, got)
		}
	}
}

func TestComputeTrend_UnparseableRange(t *testing.T) {
	v := &Vital{TypeName: "Glicemie", Value: f64Ptr(200), NormalRange: strPtr("normal")}
	if got := ComputeTrend(v); got != TrendStable {
		t.Errorf("unparseable range must be stable, got %s", got)
	}
}

func TestComputeTrend_NoRange(t *testing.T) {
	v := &Vital{TypeName: "Puls", Value: f64Ptr(100)}
	if got := ComputeTrend(v); got != TrendStable {
		t.Errorf("missing range must be stable, got %s", got)
	}
}
