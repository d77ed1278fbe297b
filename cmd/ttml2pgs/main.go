package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/JoeDobro93/TTML2PGS/internal/config"
	"github.com/JoeDobro93/TTML2PGS/internal/engine"
	"github.com/JoeDobro93/TTML2PGS/internal/pgs"
	"github.com/JoeDobro93/TTML2PGS/internal/source"
	"github.com/JoeDobro93/TTML2PGS/internal/system"
)

var buildVersion = "dev"

func main() {
	// Увеличиваем лимиты системы (для macOS/Linux)
	system.InitResourceLimits()

	// Создаем нужные директории, если их нет
	for _, d := range []string{"input", "output"} {
		os.MkdirAll(d, 0755)
	}

	manifestPtr := flag.String("manifest", "", "Путь к манифесту реплик cues.yaml (по умолчанию: самый свежий в input/)")
	docPtr := flag.String("doc", "", "Готовый документ тайм-линии (*.bdn.yaml): пропустить нарезку и сразу муксить")
	outputPtr := flag.String("output", "", "Путь к .sup (если пусто, генерируется автоматически в output/)")
	widthPtr := flag.Int("width", 0, "Целевая ширина (0 - родное разрешение проекта)")
	heightPtr := flag.Int("height", 0, "Целевая высота (0 - родное разрешение проекта)")
	fpsPtr := flag.Float64("fps", 0, "Целевая частота кадров, например 24 (0 - частота источника)")
	workersPtr := flag.Int("workers", runtime.NumCPU(), "Потоки композитинга")
	offsetPtr := flag.Float64("offset", 0, "Дополнительное смещение таймингов в миллисекундах")
	presetPtr := flag.String("preset", "", "Пресет разрешения: 1080p, 720p, 576p, 480p")
	statsPtr := flag.Bool("stats", false, "Показать отчет о производительности")

	flag.Parse()

	width, height := *widthPtr, *heightPtr
	switch *presetPtr {
	case "1080p":
		width, height = 1920, 1080
	case "720p":
		width, height = 1280, 720
	case "576p":
		width, height = 720, 576
	case "480p":
		width, height = 720, 480
	}

	// Ctrl+C останавливает конвейер на границе слайса/события
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Режим прямого экспорта: документ + слайсы уже есть
	if *docPtr != "" {
		output := *outputPtr
		if output == "" {
			output = supPathFor(*docPtr)
		}
		enc := pgs.NewEncoder()
		if err := enc.ExportFile(ctx, *docPtr, filepath.Dir(*docPtr), output); err != nil {
			log.Fatalf("[-] Ошибка экспорта: %v", err)
		}
		return
	}

	manifestPath := *manifestPtr
	if manifestPath == "" {
		latest, err := system.FindLatestManifest("input")
		if err != nil {
			log.Fatalf("[-] Ошибка: %v. Положите выгрузку рендера в input/", err)
		}
		manifestPath = latest
		fmt.Printf("[*] Выбран манифест: %s\n", manifestPath)
	}

	manifest, err := source.ReadManifest(manifestPath)
	if err != nil {
		log.Fatalf("[-] Ошибка чтения манифеста: %v", err)
	}

	inputDir := filepath.Dir(manifestPath)
	src, err := source.NewDirSource(inputDir)
	if err != nil {
		log.Fatalf("[-] Ошибка инициализации источника: %v", err)
	}
	defer src.Close()

	finalOutput := *outputPtr
	if finalOutput == "" {
		base := filepath.Base(inputDir)
		cleanName := strings.ReplaceAll(base, " ", "_")
		finalOutput = filepath.Join("output", fmt.Sprintf("%s.sup", cleanName))
	}

	cfg := &config.Config{
		ManifestPath:  manifestPath,
		InputDir:      inputDir,
		WorkDir:       filepath.Join("output", strings.TrimSuffix(filepath.Base(finalOutput), ".sup")),
		OutputSup:     finalOutput,
		Width:         width,
		Height:        height,
		TargetFPS:     *fpsPtr,
		Workers:       *workersPtr,
		ExtraOffsetMs: *offsetPtr,
		ShowStats:     *statsPtr,
		BuildVersion:  buildVersion,
	}

	project := engine.NewProject(cfg, manifest, src)
	if err := project.Run(ctx); err != nil {
		log.Fatalf("[-] Ошибка проекта: %v", err)
	}

	fmt.Printf("[+++] Успех! Результат: %s\n", cfg.OutputSup)
}

func supPathFor(docPath string) string {
	base := filepath.Base(docPath)
	base = strings.TrimSuffix(base, ".bdn.yaml")
	base = strings.TrimSuffix(base, ".yaml")
	return filepath.Join("output", base+".sup")
}
