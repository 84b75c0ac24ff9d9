package compare

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPercentAt(t *testing.T) {
	tests := []struct {
		name   string
		rect   Rect
		x      float64
		want   float64
		wantOK bool
	}{
		{name: "quarter", rect: Rect{Width: 400}, x: 100, want: 25, wantOK: true},
		{name: "clamped low", rect: Rect{Width: 400}, x: -50, want: 0, wantOK: true},
		{name: "clamped high", rect: Rect{Width: 400}, x: 500, want: 100, wantOK: true},
		{name: "shifted", rect: Rect{Left: -100, Width: 200}, x: 0, want: 50, wantOK: true},
		{name: "zero width", rect: Rect{Width: 0}, x: 10, wantOK: false},
		{name: "negative width", rect: Rect{Width: -20}, x: 10, wantOK: false},
		{name: "nan", rect: Rect{Width: 400}, x: math.NaN(), wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PercentAt(tt.rect, tt.x)
			if ok != tt.wantOK {
				t.Fatalf("PercentAt(%+v, %v) ok = %v, want %v", tt.rect, tt.x, ok, tt.wantOK)
			}
			if ok && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("PercentAt(%+v, %v) = %v, want %v", tt.rect, tt.x, got, tt.want)
			}
		})
	}
}

func TestViewDerivedFromPosition(t *testing.T) {
	got := viewAt(33.6)
	want := View{OverlayPercent: 33.6, HandlePercent: 33.6, ValueNow: 34}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("viewAt mismatch (-want +got):\n%s", diff)
	}

	r := Rect{Left: 50, Width: 200}
	v := viewAt(25)
	if x := v.HandleX(r); x != 100 {
		t.Errorf("HandleX = %v, want 100", x)
	}
	if w := v.OverlayWidth(r.Width); w != 50 {
		t.Errorf("OverlayWidth = %v, want 50", w)
	}
}
