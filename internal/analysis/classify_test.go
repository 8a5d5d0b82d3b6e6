package analysis

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		values []complex128
		want   Class
	}{
		{"all real negative", []complex128{-1, -2, -0.5}, StableNode},
		{"complex pair negative", []complex128{complex(-1, 2), complex(-1, -2), -3}, StableFocus},
		{"all positive", []complex128{1, complex(2, 1), complex(2, -1)}, Unstable},
		{"mixed signs", []complex128{-1, -2, 0.5}, Saddle},
		{"zero real part", []complex128{complex(0, 1), complex(0, -1), -1}, Degenerate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.values); got != tt.want {
				t.Errorf("classify(%v) = %q, want %q", tt.values, got, tt.want)
			}
		})
	}
}
