package utils

import "testing"

func TestIsAllowedIP(t *testing.T) {
	allowed, err := ParseCIDRs([]string{"10.0.0.0/8", "192.168.1.7", " ", "2a02:5180::/32"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(allowed) != 3 {
		t.Fatalf("want 3 prefixes, got %d", len(allowed))
	}

	cases := map[string]bool{
		"10.1.2.3":        true,
		"192.168.1.7":     true,
		"192.168.1.8":     false,
		"::ffff:10.0.0.1": true,
		"2a02:5180::1":    true,
		"not-an-ip":       false,
		"":                false,
		"172.16.0.1":      false,
	}
	for ip, want := range cases {
		if got := IsAllowedIP(ip, allowed); got != want {
			t.Fatalf("IsAllowedIP(%q) = %v, want %v", ip, got, want)
		}
	}
}

func TestParseCIDRsRejectsGarbage(t *testing.T) {
	if _, err := ParseCIDRs([]string{"10.0.0.0/99"}); err == nil {
		t.Fatalf("expected error for bad prefix length")
	}
	if _, err := ParseCIDRs([]string{"localhost"}); err == nil {
		t.Fatalf("expected error for hostname")
	}
}
