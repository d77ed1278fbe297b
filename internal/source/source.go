package source

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
)

// Source отдает растры реплик по имени файла из манифеста.
// Рендер-слой (вне этого репозитория) оставляет после себя директорию
// PNG-файлов с корректным альфа-каналом.
type Source interface {
	Bitmap(filename string) (*image.NRGBA, error)
	Close() error
}

// DirSource читает растры из одной директории.
type DirSource struct {
	dir string
}

func NewDirSource(dir string) (*DirSource, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%s: не директория", dir)
	}
	return &DirSource{dir: dir}, nil
}

func (s *DirSource) Bitmap(filename string) (*image.NRGBA, error) {
	f, err := os.Open(filepath.Join(s.dir, filepath.Base(filename)))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return ToNRGBA(img), nil
}

func (s *DirSource) Close() error {
	return nil
}

// ToNRGBA приводит изображение к прямой (non-premultiplied) альфе.
// Квантование и композитинг работают с исходными значениями каналов,
// премультипликация image.RGBA их исказила бы.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min.X == 0 && n.Rect.Min.Y == 0 {
		return n
	}
	bounds := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Src)
	return out
}
