package config

type Config struct {
	ManifestPath string // манифест реплик (cues.yaml)
	InputDir     string // директория с PNG-растрами реплик
	WorkDir      string // куда писать слайсы и документ тайм-линии
	OutputSup    string // итоговый .sup

	Width     int     // целевое разрешение; 0 — родное разрешение проекта
	Height    int
	TargetFPS float64 // целевая частота кадров; 0 — частота источника

	Workers       int
	ExtraOffsetMs float64 // добавка к смещению из манифеста

	ShowStats    bool
	BuildVersion string
}
