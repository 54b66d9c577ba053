package gfx

import (
	"errors"
	"testing"
	"time"
)

func TestSoftwareCopyFull(t *testing.T) {
	dev := NewSoftwareDevice()
	defer dev.Close()

	src, _ := dev.CreateTexture(4, 4)
	dst, _ := dev.CreateTexture(4, 4)
	src.(*SoftwareTexture).Fill(1, 2, 3, 255)

	q, err := dev.NewQueue(PriorityHigh)
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	c, err := dev.NewCopier(q)
	if err != nil {
		t.Fatalf("NewCopier: %v", err)
	}
	defer c.Close()

	if err := c.Copy(dst, src, time.Second); err != nil {
		t.Fatalf("Copy: %v", err)
	}

	px := dst.(*SoftwareTexture).Pixels
	if px[0] != 1 || px[1] != 2 || px[2] != 3 || px[3] != 255 {
		t.Errorf("first pixel = %v, want [1 2 3 255]", px[:4])
	}
	last := len(px) - 4
	if px[last] != 1 {
		t.Errorf("last pixel not copied: %v", px[last:])
	}
}

func TestSoftwareCopyMinExtent(t *testing.T) {
	tests := []struct {
		name               string
		srcW, srcH         int
		dstW, dstH         int
		wantW, wantH       int
	}{
		{"source larger", 8, 8, 4, 4, 4, 4},
		{"dest larger", 4, 4, 8, 8, 4, 4},
		{"mixed", 8, 2, 4, 6, 4, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := NewSoftwareDevice()
			defer dev.Close()

			src, _ := dev.CreateTexture(tt.srcW, tt.srcH)
			dst, _ := dev.CreateTexture(tt.dstW, tt.dstH)
			src.(*SoftwareTexture).Fill(9, 9, 9, 9)

			q, _ := dev.NewQueue(PriorityNormal)
			c, _ := dev.NewCopier(q)
			if err := c.Copy(dst, src, time.Second); err != nil {
				t.Fatalf("Copy: %v", err)
			}

			d := dst.(*SoftwareTexture)
			for y := 0; y < tt.dstH; y++ {
				for x := 0; x < tt.dstW; x++ {
					got := d.Pixels[(y*tt.dstW+x)*4]
					inside := x < tt.wantW && y < tt.wantH
					if inside && got != 9 {
						t.Fatalf("pixel (%d,%d) = %d, want 9 (inside copy region)", x, y, got)
					}
					if !inside && got != 0 {
						t.Fatalf("pixel (%d,%d) = %d, want 0 (outside copy region)", x, y, got)
					}
				}
			}
		})
	}
}

func TestSoftwareCopyNilTexture(t *testing.T) {
	dev := NewSoftwareDevice()
	defer dev.Close()
	q, _ := dev.NewQueue(PriorityNormal)
	c, _ := dev.NewCopier(q)

	tex, _ := dev.CreateTexture(2, 2)
	if err := c.Copy(nil, tex, time.Second); !errors.Is(err, ErrNilTexture) {
		t.Errorf("Copy(nil, tex) = %v, want ErrNilTexture", err)
	}
	if err := c.Copy(tex, nil, time.Second); !errors.Is(err, ErrNilTexture) {
		t.Errorf("Copy(tex, nil) = %v, want ErrNilTexture", err)
	}
}

func TestSoftwareCopyTimeout(t *testing.T) {
	dev := NewSoftwareDevice()
	defer dev.Close()
	dev.CopyDelay = 50 * time.Millisecond

	src, _ := dev.CreateTexture(2, 2)
	dst, _ := dev.CreateTexture(2, 2)
	q, _ := dev.NewQueue(PriorityNormal)
	c, _ := dev.NewCopier(q)

	start := time.Now()
	err := c.Copy(dst, src, 5*time.Millisecond)
	if !errors.Is(err, ErrCopyTimeout) {
		t.Fatalf("Copy with delay > timeout = %v, want ErrCopyTimeout", err)
	}
	// The wait must give up at the bound, not sleep the full delay.
	if elapsed := time.Since(start); elapsed > 40*time.Millisecond {
		t.Errorf("timed-out copy blocked %v, want well under the 50ms delay", elapsed)
	}
}

func TestSoftwareSurfaceRotation(t *testing.T) {
	dev := NewSoftwareDevice()
	defer dev.Close()

	surf, err := NewSoftwareSurface(dev, 4, 4, 3)
	if err != nil {
		t.Fatalf("NewSoftwareSurface: %v", err)
	}

	seen := map[Texture]bool{}
	for i := 0; i < 3; i++ {
		bb, err := surf.CurrentBackBuffer()
		if err != nil {
			t.Fatalf("CurrentBackBuffer: %v", err)
		}
		seen[bb] = true
		surf.Rotate()
	}
	if len(seen) != 3 {
		t.Errorf("saw %d distinct back buffers over 3 presents, want 3", len(seen))
	}

	// Fourth present wraps to the first buffer.
	bb, _ := surf.CurrentBackBuffer()
	if !seen[bb] {
		t.Error("rotation did not wrap around to a previously seen buffer")
	}
}

func TestClosedDeviceRejectsCreation(t *testing.T) {
	dev := NewSoftwareDevice()
	dev.Close()

	if _, err := dev.CreateTexture(2, 2); !errors.Is(err, ErrDeviceClosed) {
		t.Errorf("CreateTexture on closed device = %v, want ErrDeviceClosed", err)
	}
	if _, err := dev.NewQueue(PriorityNormal); !errors.Is(err, ErrDeviceClosed) {
		t.Errorf("NewQueue on closed device = %v, want ErrDeviceClosed", err)
	}
}
