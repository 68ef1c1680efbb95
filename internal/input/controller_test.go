package input

import (
	"sync"
	"testing"
)

func TestButtonLayout(t *testing.T) {
	tests := []struct {
		button Button
		want   uint8
	}{
		{A, 0x80},
		{B, 0x40},
		{Select, 0x20},
		{Start, 0x10},
		{Up, 0x08},
		{Down, 0x04},
		{Left, 0x02},
		{Right, 0x01},
	}

	for _, tt := range tests {
		if uint8(tt.button) != tt.want {
			t.Errorf("button value = 0x%02X, want 0x%02X", uint8(tt.button), tt.want)
		}
	}
}

func TestSampleUpAndA(t *testing.T) {
	c := New()
	c.SetButton(Up, true)
	c.SetButton(A, true)

	f, ok := c.Sample()
	if !ok {
		t.Fatal("Sample() ok = false, want true for a focused controller")
	}
	if f != 0x88 {
		t.Errorf("Sample() = 0x%02X, want 0x88", uint8(f))
	}
}

func TestSampleUnfocused(t *testing.T) {
	c := New()
	c.SetButton(Start, true)
	c.SetFocused(false)

	f, ok := c.Sample()
	if ok {
		t.Error("Sample() ok = true, want false when unfocused")
	}
	if f != Frame(Start) {
		t.Errorf("Sample() = 0x%02X, want state to be kept while unfocused", uint8(f))
	}
}

func TestSetButtonRelease(t *testing.T) {
	c := New()
	c.SetButton(B, true)
	c.SetButton(Left, true)
	c.SetButton(B, false)

	f, _ := c.Sample()
	if f.Pressed(B) {
		t.Error("B still pressed after release")
	}
	if !f.Pressed(Left) {
		t.Error("Left released unexpectedly")
	}
}

func TestFrameString(t *testing.T) {
	tests := []struct {
		frame Frame
		want  string
	}{
		{0, "........"},
		{0xFF, "RLDUTSBA"},
		{0x88, "...U...A"},
		{0x01, "R......."},
	}

	for _, tt := range tests {
		if got := tt.frame.String(); got != tt.want {
			t.Errorf("Frame(0x%02X).String() = %q, want %q", uint8(tt.frame), got, tt.want)
		}
	}
}

func TestControllerConcurrentAccess(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			c.SetButton(A, i%2 == 0)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			c.Sample()
		}
	}()
	wg.Wait()
}
