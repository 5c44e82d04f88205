package whatsapp

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"47999998888", "5547999998888"},        // 11 local digits, gains country code
		{"(47) 99999-8888", "5547999998888"},    // formatting stripped first
		{"+55 47 99999-8888", "5547999998888"},  // explicit +55 kept once
		{"554799998888", "554799998888"},        // already normalized, unchanged
		{"5504799998888", "554799998888"},       // spurious zero after country code
		{"04799998888", "554799998888"},         // trunk-dialed local input
		{"55048999998888", "5548999998888"},     // spurious zero, 9-digit mobile
		{"4799998888", "554799998888"},          // 10-digit landline
		{"", "55"},                              // degenerate, but deterministic
	}
	for _, tt := range tests {
		if got := NormalizePhone(tt.input); got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestWireAddress(t *testing.T) {
	got := WireAddress("5547999998888")
	want := "5547999998888@s.whatsapp.net"
	if got != want {
		t.Errorf("WireAddress = %q, want %q", got, want)
	}
}
