package core

import "testing"

func TestAccountSpecSource(t *testing.T) {
	tests := []struct {
		name      string
		outCharge float64
		value     string
		out       string
		want      string
	}{
		{"no charge", 0, "1000.00", "500.00", "500.00"},
		{"one percent charge", 0.01, "1000.00", "500.00", "495.00"},
		{"full bonus cancels the withdrawal", -1.0, "0.00", "1500.00", "0.00"},
		{"bonus beyond the withdrawal increases the source", -1.5, "0.00", "100.00", "50.00"},
		{"overdraft", 0, "10.00", "25.00", "-15.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := AccountSpec{OutCharge: tt.outCharge}
			got := spec.Source(MustParseMoney(tt.value), MustParseMoney(tt.out))
			if !got.Equal(MustParseMoney(tt.want)) {
				t.Errorf("Source() = %v, want %s", got, tt.want)
			}
		})
	}
}

func TestAccountSpecSink(t *testing.T) {
	tests := []struct {
		name     string
		inCharge float64
		value    string
		in       string
		want     string
	}{
		{"no charge", 0, "500.00", "500.00", "1000.00"},
		{"ten percent withheld", 0.1, "100.00", "50.00", "145.00"},
		{"everything withheld", 1.0, "0.00", "500.00", "0.00"},
		{"negative charge adds a bonus", -0.5, "0.00", "10.00", "15.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := AccountSpec{InCharge: tt.inCharge}
			got := spec.Sink(MustParseMoney(tt.value), MustParseMoney(tt.in))
			if !got.Equal(MustParseMoney(tt.want)) {
				t.Errorf("Sink() = %v, want %s", got, tt.want)
			}
		})
	}
}

func TestAccountSpecUpdate(t *testing.T) {
	tests := []struct {
		name     string
		interest float64
		value    string
		want     string
	}{
		{"zero interest is a no-op", 0, "1000.00", "1000.00"},
		{"three percent annual", 0.03, "500.00", "500.04"},
		{"rounded to the penny", 0.03, "1000.04", "1000.12"},
		{"negative balance grows negative", 0.365, "-100.00", "-100.10"},
		{"decay", -0.365, "100.00", "99.90"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := AccountSpec{Interest: tt.interest}
			got := spec.Update(MustParseMoney(tt.value))
			if !got.Equal(MustParseMoney(tt.want)) {
				t.Errorf("Update() = %v, want %s", got, tt.want)
			}
		})
	}
}
