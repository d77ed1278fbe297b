package source

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestManifestWriteRead(t *testing.T) {
	m := &Manifest{
		Width:    1920,
		Height:   1080,
		FPSNum:   24000,
		FPSDen:   1001,
		Language: "ja",
		OffsetMs: 120,
		Cues: []ManifestCue{
			{ID: 1, Filename: "cue_00001.png", StartMs: 0, EndMs: 1000},
			{ID: 2, Filename: "cue_00002.png", StartMs: 500, EndMs: 1500},
		},
	}

	path := filepath.Join(t.TempDir(), "cues.yaml")
	if err := WriteManifest(m, path); err != nil {
		t.Fatalf("WriteManifest failed: %v", err)
	}

	got, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest failed: %v", err)
	}

	if got.Width != m.Width || got.Height != m.Height {
		t.Errorf("resolution mismatch: %dx%d, want %dx%d", got.Width, got.Height, m.Width, m.Height)
	}
	if got.FPSNum != 24000 || got.FPSDen != 1001 {
		t.Errorf("fps mismatch: %d/%d", got.FPSNum, got.FPSDen)
	}
	if len(got.Cues) != 2 {
		t.Fatalf("cue count mismatch: %d", len(got.Cues))
	}
	if got.Cues[1].Filename != "cue_00002.png" {
		t.Errorf("cue filename mismatch: %s", got.Cues[1].Filename)
	}
}

func TestManifestValidation(t *testing.T) {
	dir := t.TempDir()

	bad := []string{
		"width: 0\nheight: 1080\nfps_num: 24\nfps_den: 1\ncues: []\n",
		"width: 1920\nheight: 1080\nfps_num: 0\nfps_den: 1\ncues: []\n",
		"width: 1920\nheight: 1080\nfps_num: 24\nfps_den: 1\ncues:\n  - {id: 1, filename: a.png, start_ms: 500, end_ms: 500}\n",
		"{not yaml",
	}

	for i, content := range bad {
		path := filepath.Join(dir, "bad.yaml")
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := ReadManifest(path); err == nil {
			t.Errorf("case %d: ожидалась ошибка валидации", i)
		}
	}
}

func TestTimelineCuesOffset(t *testing.T) {
	m := &Manifest{
		Width: 100, Height: 100, FPSNum: 25, FPSDen: 1,
		OffsetMs: 250,
		Cues:     []ManifestCue{{ID: 1, Filename: "a.png", StartMs: 100, EndMs: 600}},
	}

	cues := m.TimelineCues()
	if cues[0].StartMs != 350 || cues[0].EndMs != 850 {
		t.Errorf("offset не применен: [%v,%v), want [350,850)", cues[0].StartMs, cues[0].EndMs)
	}
}

func TestDirSourceBitmap(t *testing.T) {
	dir := t.TempDir()

	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.SetNRGBA(1, 1, color.NRGBA{255, 0, 0, 128})
	f, err := os.Create(filepath.Join(dir, "cue.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	src, err := NewDirSource(dir)
	if err != nil {
		t.Fatalf("NewDirSource failed: %v", err)
	}
	defer src.Close()

	got, err := src.Bitmap("cue.png")
	if err != nil {
		t.Fatalf("Bitmap failed: %v", err)
	}
	if got.Bounds().Dx() != 4 || got.Bounds().Dy() != 4 {
		t.Errorf("size %v, want 4x4", got.Bounds())
	}
	c := got.NRGBAAt(1, 1)
	if c.A != 128 || c.R != 255 {
		t.Errorf("пиксель (1,1) = %+v: прямая альфа не сохранилась", c)
	}

	if _, err := src.Bitmap("missing.png"); err == nil {
		t.Error("ожидалась ошибка на отсутствующем файле")
	}
}

func TestToNRGBAFromPremultiplied(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 2, 2))
	rgba.Set(0, 0, color.NRGBA{200, 100, 50, 255})

	out := ToNRGBA(rgba)
	c := out.NRGBAAt(0, 0)
	if c.R != 200 || c.G != 100 || c.B != 50 || c.A != 255 {
		t.Errorf("конверсия исказила непрозрачный пиксель: %+v", c)
	}
}
