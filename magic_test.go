package imagefv

import "testing"

func TestClassifyHeader(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		want   string
	}{
		{
			name:   "ELF",
			header: []byte{0x7f, 'E', 'L', 'F', 0x02},
			want:   "elf",
		},
		{
			name:   "gzip",
			header: []byte{0x1f, 0x8b, 0x08},
			want:   "gz",
		},
		{
			name:   "BMP",
			header: []byte("BM\x8a\x02"),
			want:   "bmp",
		},
		{
			name:   "PNG",
			header: []byte{0x89, 'P', 'N', 'G', 0x0d},
			want:   "png",
		},
		{
			name:   "GIF",
			header: []byte("GIF8"),
			want:   "gif",
		},
		{
			name:   "ZIP",
			header: []byte("PK\x03\x04"),
			want:   "zip",
		},
		{
			name:   "BZip2",
			header: []byte("BZh9"),
			want:   "bz2",
		},
		{
			name:   "XML declaration",
			header: []byte("<?xml"),
			want:   "xml",
		},
		{
			name:   "bare XML opening",
			header: []byte("<svg"),
			want:   "xml",
		},
		{
			name:   "JPEG JFIF",
			header: []byte{0xff, 0xd8, 0xff, 0xe0},
			want:   "jpg",
		},
		{
			name:   "JPEG Exif",
			header: []byte{0xff, 0xd8, 0xff, 0xe1},
			want:   "jpg",
		},
		{
			name:   "unknown bytes fall back to binary",
			header: []byte{0x00, 0x00, 0x00, 0x00},
			want:   "bin",
		},
		{
			name:   "JPEG with unknown marker falls back to binary",
			header: []byte{0xff, 0xd8, 0xff, 0xe2},
			want:   "bin",
		},
		{
			name:   "short header cannot match",
			header: []byte{0x7f},
			want:   "bin",
		},
		{
			name:   "empty header",
			header: nil,
			want:   "bin",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := classifyHeader(test.header); got != test.want {
				t.Errorf("classifyHeader() = %v, want %v", got, test.want)
			}
		})
	}
}

func TestIsGZip(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		want   bool
	}{
		{
			name:   "Valid GZIP header",
			header: []byte{0x1f, 0x8b, 0x08},
			want:   true,
		},
		{
			name:   "Invalid GZIP header",
			header: []byte{0x1f, 0x7b, 0x07},
			want:   false,
		},
		{
			name:   "Too short",
			header: []byte{0x1f},
			want:   false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := isGZip(test.header); got != test.want {
				t.Errorf("isGZip() = %v, want %v", got, test.want)
			}
		})
	}
}
