package source

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/JoeDobro93/TTML2PGS/internal/timeline"
)

// Manifest — контракт с рендер-слоем: список реплик с таймингами плюс
// метаданные проекта. Лежит рядом с PNG-файлами (cues.yaml).
type Manifest struct {
	Width    int           `yaml:"width"`
	Height   int           `yaml:"height"`
	FPSNum   int64         `yaml:"fps_num"`
	FPSDen   int64         `yaml:"fps_den"`
	Language string        `yaml:"language,omitempty"`
	OffsetMs float64       `yaml:"offset_ms,omitempty"`
	Cues     []ManifestCue `yaml:"cues"`
}

type ManifestCue struct {
	ID       int     `yaml:"id"`
	Filename string  `yaml:"filename"`
	StartMs  float64 `yaml:"start_ms"`
	EndMs    float64 `yaml:"end_ms"`
}

// ReadManifest читает и валидирует манифест реплик.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("некорректный манифест %s: %w", path, err)
	}

	if m.Width <= 0 || m.Height <= 0 {
		return nil, fmt.Errorf("манифест %s: некорректное разрешение %dx%d", path, m.Width, m.Height)
	}
	if m.FPSNum <= 0 || m.FPSDen <= 0 {
		return nil, fmt.Errorf("манифест %s: некорректная частота кадров %d/%d", path, m.FPSNum, m.FPSDen)
	}
	for i, c := range m.Cues {
		if c.EndMs <= c.StartMs {
			return nil, fmt.Errorf("манифест %s: реплика %d (id=%d) имеет end <= start", path, i, c.ID)
		}
	}

	return &m, nil
}

// WriteManifest сохраняет манифест (рендер-слой пишет его тем же форматом).
func WriteManifest(m *Manifest, path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// TimelineCues переводит записи манифеста в реплики тайм-линии,
// применяя глобальное смещение.
func (m *Manifest) TimelineCues() []timeline.Cue {
	cues := make([]timeline.Cue, len(m.Cues))
	for i, c := range m.Cues {
		cues[i] = timeline.Cue{
			ID:       c.ID,
			Filename: c.Filename,
			StartMs:  c.StartMs,
			EndMs:    c.EndMs,
		}
	}
	return timeline.ApplyOffset(cues, m.OffsetMs)
}
