package directory

import (
	"context"
	"testing"
)

func TestMemoryDirectory_ReturnsFirstAvailable(t *testing.T) {
	d := NewMemoryDirectory(
		StaffMember{ID: "s1", Name: "A", Phone: "+1", Available: false},
		StaffMember{ID: "s2", Name: "B", Phone: "+2", Available: true},
		StaffMember{ID: "s3", Name: "C", Phone: "+3", Available: true},
	)
	m, ok, err := d.Available(context.Background())
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if !ok || m.ID != "s2" {
		t.Fatalf("expected s2, got %+v ok=%v", m, ok)
	}
}

func TestMemoryDirectory_EmptyReportsNone(t *testing.T) {
	d := NewMemoryDirectory()
	_, ok, err := d.Available(context.Background())
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if ok {
		t.Fatalf("expected no staff")
	}
}
