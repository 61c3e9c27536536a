package geo

import "testing"

func TestHaversineKm(t *testing.T) {
	// Seoul City Hall (37.5665, 126.9780) to Busan Station (35.1151, 129.0415) ~ 320-330 km
	d := HaversineKm(37.5665, 126.9780, 35.1151, 129.0415)
	if d < 310 || d > 340 {
		t.Fatalf("unexpected distance: %v", d)
	}
}

func TestHaversineSamePoint(t *testing.T) {
	if d := HaversineM(37.5, 127.0, 37.5, 127.0); d != 0 {
		t.Fatalf("expected zero distance, got %v", d)
	}
}

func TestHaversineMeters(t *testing.T) {
	// 0.0001 deg of latitude is ~11.1 m
	d := HaversineM(37.5, 127.0, 37.5001, 127.0)
	if d < 10.5 || d > 11.5 {
		t.Fatalf("unexpected distance: %v", d)
	}
}
