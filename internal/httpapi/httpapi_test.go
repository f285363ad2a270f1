package httpapi

import (
	"testing"

	"github.com/esacci/odpcore/internal/model"
)

func TestParseBBox_Valid(t *testing.T) {
	bb, err := parseBBox("-180,-90,180,90")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := model.BBox{MinX: -180, MinY: -90, MaxX: 180, MaxY: 90}
	if bb != want {
		t.Fatalf("got %+v want %+v", bb, want)
	}
}

func TestParseBBox_WrongFieldCount(t *testing.T) {
	_, err := parseBBox("-180,-90,180")
	if err == nil {
		t.Fatal("expected error for missing field")
	}
}

func TestParseBBox_NonNumeric(t *testing.T) {
	_, err := parseBBox("a,-90,180,90")
	if err == nil {
		t.Fatal("expected error for non-numeric value")
	}
}
