package imagefv_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	imagefv "github.com/uefitools/go-imagefv"
)

// fakeVolume scripts the external decomposer's per-volume behavior.
type fakeVolume struct {
	valid     bool
	size      int64
	processOK bool
	dump      func(dir string) error
}

func (v *fakeVolume) ValidHeader() bool { return v.valid }
func (v *fakeVolume) Size() int64       { return v.size }
func (v *fakeVolume) Process() bool     { return v.processOK }
func (v *fakeVolume) Dump(dir string) error {
	if v.dump == nil {
		return nil
	}
	return v.dump(dir)
}

// fakeDecomposer hands out scripted volumes in construction order.
type fakeDecomposer struct {
	volumes []*fakeVolume
	calls   int
}

func (d *fakeDecomposer) NewVolume(data []byte, name string) (imagefv.Volume, error) {
	if d.calls >= len(d.volumes) {
		d.calls++
		return &fakeVolume{}, nil
	}
	v := d.volumes[d.calls]
	d.calls++
	return v, nil
}

// dumpSection writes one per-file dump directory the way the external
// decomposer lays them out.
func dumpSection(dir, name string, raw, ui []byte) error {
	fileDir := filepath.Join(dir, "file-"+name)
	if err := os.MkdirAll(fileDir, 0750); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(fileDir, "section0.raw"), raw, 0640); err != nil {
		return err
	}
	if ui != nil {
		return os.WriteFile(filepath.Join(fileDir, "section0.ui"), ui, 0640)
	}
	return nil
}

// fvBlob builds an input image with firmware volume signatures at the given
// header offsets.
func fvBlob(size int, headerOffsets ...int) []byte {
	blob := make([]byte, size)
	for _, off := range headerOffsets {
		copy(blob[off+40:], "_FVH")
	}
	return blob
}

func writeInput(t *testing.T, blob []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "firmware.img")
	require.NoError(t, os.WriteFile(path, blob, 0640))
	return path
}

func TestExtractImage(t *testing.T) {
	logoUI := []byte{'L', 0, 'o', 0, 'g', 0, 'o', 0, 0, 0}

	var dumpDir string
	dec := &fakeDecomposer{volumes: []*fakeVolume{
		{
			valid:     true,
			size:      128,
			processOK: true,
			dump: func(dir string) error {
				dumpDir = dir
				return dumpSection(dir, "AABBCCDD", []byte("logo pixels"), logoUI)
			},
		},
	}}

	var captured *imagefv.TelemetryData
	cfg := imagefv.NewConfig(
		imagefv.WithDecomposer(dec),
		imagefv.WithTelemetryHook(func(ctx context.Context, td *imagefv.TelemetryData) {
			captured = td
		}),
	)

	outputDir := t.TempDir()
	e, err := imagefv.New(outputDir, cfg)
	require.NoError(t, err)

	input := writeInput(t, fvBlob(256, 0))
	require.NoError(t, e.ExtractImage(context.Background(), input))

	// the routed section landed under its UI-derived label
	path, ok := e.Registry().Get("Logo")
	require.True(t, ok)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte("logo pixels"), got)

	// telemetry fired once with the run's counters
	require.NotNil(t, captured)
	require.Equal(t, int64(1), captured.VolumesFound)
	require.Equal(t, int64(1), captured.VolumesProcessed)
	require.Equal(t, int64(1), captured.SectionsProcessed)
	require.Equal(t, int64(256), captured.InputSize)

	// the dump scope is removed once the image is processed
	require.NotEmpty(t, dumpDir)
	_, err = os.Stat(dumpDir)
	require.True(t, os.IsNotExist(err))
}

func TestExtractImageSkipsBadVolumes(t *testing.T) {
	dec := &fakeDecomposer{volumes: []*fakeVolume{
		{valid: false},
		{valid: true, size: 64, processOK: false},
		{
			valid:     true,
			size:      64,
			processOK: true,
			dump: func(dir string) error {
				return dumpSection(dir, "00C0FFEE", []byte("still extracted"), nil)
			},
		},
	}}

	e, err := imagefv.New(t.TempDir(), imagefv.NewConfig(imagefv.WithDecomposer(dec)))
	require.NoError(t, err)

	input := writeInput(t, fvBlob(1024, 0, 256, 512))
	require.NoError(t, e.ExtractImage(context.Background(), input))

	// invalid and unprocessable volumes are skipped, the valid one lands
	_, ok := e.Registry().Get("00c0ffee")
	require.True(t, ok)
	require.Equal(t, 1, e.Registry().Len())
}

func TestExtractImageErrors(t *testing.T) {
	dec := &fakeDecomposer{volumes: []*fakeVolume{{valid: false}}}

	tests := []struct {
		name string
		cfg  *imagefv.Config
		blob []byte
	}{
		{
			name: "no decomposer configured",
			cfg:  imagefv.NewConfig(),
			blob: fvBlob(256, 0),
		},
		{
			name: "no firmware volumes in input",
			cfg:  imagefv.NewConfig(imagefv.WithDecomposer(dec)),
			blob: make([]byte, 256),
		},
		{
			name: "volumes present but nothing extracted",
			cfg:  imagefv.NewConfig(imagefv.WithDecomposer(dec)),
			blob: fvBlob(256, 0),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			e, err := imagefv.New(t.TempDir(), test.cfg)
			require.NoError(t, err)

			input := writeInput(t, test.blob)
			require.Error(t, e.ExtractImage(context.Background(), input))
		})
	}
}

func TestExtractImageMissingInput(t *testing.T) {
	dec := &fakeDecomposer{}
	e, err := imagefv.New(t.TempDir(), imagefv.NewConfig(imagefv.WithDecomposer(dec)))
	require.NoError(t, err)

	require.Error(t, e.ExtractImage(context.Background(), filepath.Join(t.TempDir(), "nope.img")))
}

func TestExtractImageCanceledContext(t *testing.T) {
	dec := &fakeDecomposer{volumes: []*fakeVolume{{valid: true, size: 64, processOK: true}}}
	e, err := imagefv.New(t.TempDir(), imagefv.NewConfig(imagefv.WithDecomposer(dec)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := writeInput(t, fvBlob(256, 0))
	require.ErrorIs(t, e.ExtractImage(ctx, input), context.Canceled)
}

func TestExtractImageIdempotent(t *testing.T) {
	raw := []byte("stable bytes")
	newExtractor := func(t *testing.T) (*imagefv.Extractor, string) {
		dec := &fakeDecomposer{volumes: []*fakeVolume{{
			valid:     true,
			size:      64,
			processOK: true,
			dump: func(dir string) error {
				return dumpSection(dir, "CAFED00D", raw, nil)
			},
		}}}
		outputDir := t.TempDir()
		e, err := imagefv.New(outputDir, imagefv.NewConfig(imagefv.WithDecomposer(dec)))
		require.NoError(t, err)
		return e, outputDir
	}

	input := writeInput(t, fvBlob(256, 0))

	e1, out1 := newExtractor(t)
	require.NoError(t, e1.ExtractImage(context.Background(), input))
	e2, out2 := newExtractor(t)
	require.NoError(t, e2.ExtractImage(context.Background(), input))

	// same input, clean output directories: identical keys and bytes
	require.Equal(t, keysOf(e1.Registry()), keysOf(e2.Registry()))

	b1, err := os.ReadFile(filepath.Join(out1, "cafed00d"))
	require.NoError(t, err)
	b2, err := os.ReadFile(filepath.Join(out2, "cafed00d"))
	require.NoError(t, err)
	require.Equal(t, b1, b2)
}

func keysOf(r *imagefv.Registry) []string {
	keys := make([]string, 0, r.Len())
	for k := range r.Entries() {
		keys = append(keys, k)
	}
	return keys
}

func TestExtractDump(t *testing.T) {
	e, err := imagefv.New(t.TempDir(), imagefv.NewConfig())
	require.NoError(t, err)

	dump := t.TempDir()
	require.NoError(t, dumpSection(dump, "DEADBEEF", []byte("pre-dumped"), nil))

	require.NoError(t, e.ExtractDump(context.Background(), dump))
	_, ok := e.Registry().Get("deadbeef")
	require.True(t, ok)

	require.Error(t, e.ExtractDump(context.Background(), filepath.Join(dump, "missing")))
}
