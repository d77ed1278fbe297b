package bdn

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document — промежуточное представление между композитингом и муксером:
// метаданные формата плюс список событий. Пишется рядом со слайсами и
// читается как человеком (отладка), так и муксером (автономный экспорт).
type Document struct {
	Version  string  `yaml:"version"`
	Name     string  `yaml:"name,omitempty"`
	Language string  `yaml:"language,omitempty"`
	Format   Format  `yaml:"format"`
	Events   []Event `yaml:"events"`
}

// Format описывает целевой видеоряд.
type Format struct {
	Resolution string `yaml:"resolution"` // "1920x1080"
	FrameRate  string `yaml:"frame_rate"` // "23.976", "25" ...
	DropFrame  bool   `yaml:"drop_frame"`
}

// Event — одна единица работы муксера: таймкоды в целевом домене,
// файл растра и его размещение на экране.
type Event struct {
	InTC     string `yaml:"in_tc"`
	OutTC    string `yaml:"out_tc"`
	Filename string `yaml:"filename"`
	X        int    `yaml:"x"`
	Y        int    `yaml:"y"`
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
}

// Write сохраняет документ тайм-линии в YAML.
func Write(doc *Document, path string) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Read загружает и валидирует документ тайм-линии.
func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("некорректный документ %s: %w", path, err)
	}

	if _, _, err := doc.Format.Size(); err != nil {
		return nil, fmt.Errorf("документ %s: %w", path, err)
	}
	if _, err := doc.Format.FPS(); err != nil {
		return nil, fmt.Errorf("документ %s: %w", path, err)
	}
	for i, ev := range doc.Events {
		if ev.InTC >= ev.OutTC {
			return nil, fmt.Errorf("документ %s: событие %d имеет InTC >= OutTC (%s >= %s)",
				path, i, ev.InTC, ev.OutTC)
		}
	}

	return &doc, nil
}

// Size разбирает строку разрешения "WxH".
func (f Format) Size() (w, h int, err error) {
	parts := strings.SplitN(f.Resolution, "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("нераспознанное разрешение %q", f.Resolution)
	}
	w, err = strconv.Atoi(parts[0])
	if err == nil {
		h, err = strconv.Atoi(parts[1])
	}
	if err != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("нераспознанное разрешение %q", f.Resolution)
	}
	return w, h, nil
}

// FPS разбирает строку частоты кадров.
func (f Format) FPS() (float64, error) {
	fps, err := strconv.ParseFloat(f.FrameRate, 64)
	if err != nil || fps <= 0 {
		return 0, fmt.Errorf("нераспознанная частота кадров %q", f.FrameRate)
	}
	return fps, nil
}

// ResolutionString форматирует разрешение в принятый документом вид.
func ResolutionString(w, h int) string {
	return fmt.Sprintf("%dx%d", w, h)
}
