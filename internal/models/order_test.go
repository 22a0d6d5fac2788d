package models

import "testing"

func TestSwappedOrders(t *testing.T) {
	tests := []struct {
		name         string
		a, b         string
		oa, ob       int
		wantA, wantB int
	}{
		{"distinct orders swap", "x", "y", 1, 3, 3, 1},
		{"tie, a sorts first", "a", "b", 2, 2, 2, 1},
		{"tie, a sorts last", "b", "a", 2, 2, 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ga, gb := SwappedOrders(tt.a, tt.b, tt.oa, tt.ob)
			if ga != tt.wantA || gb != tt.wantB {
				t.Errorf("SwappedOrders = %d, %d, want %d, %d", ga, gb, tt.wantA, tt.wantB)
			}
		})
	}
}
