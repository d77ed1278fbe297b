package engine

import (
	"context"
	"fmt"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JoeDobro93/TTML2PGS/internal/bdn"
	"github.com/JoeDobro93/TTML2PGS/internal/compose"
	"github.com/JoeDobro93/TTML2PGS/internal/config"
	"github.com/JoeDobro93/TTML2PGS/internal/pgs"
	"github.com/JoeDobro93/TTML2PGS/internal/source"
	"github.com/JoeDobro93/TTML2PGS/internal/system"
	"github.com/JoeDobro93/TTML2PGS/internal/timecode"
	"github.com/JoeDobro93/TTML2PGS/internal/timeline"
)

// Project связывает конвейер целиком: манифест реплик -> слайсы ->
// композиты -> документ тайм-линии -> бинарный SUP.
type Project struct {
	Config   *config.Config
	Manifest *source.Manifest
	Source   source.Source
}

func NewProject(cfg *config.Config, m *source.Manifest, src source.Source) *Project {
	return &Project{Config: cfg, Manifest: m, Source: src}
}

// composedSlice — результат композитинга одного слайса вместе с его
// таймингом; после параллельной фазы сортируется обратно в порядок времени.
type composedSlice struct {
	StartMs float64
	EndMs   float64
	Comp    *compose.Composite
	Missing int
}

func (p *Project) Run(ctx context.Context) error {
	startTime := time.Now()

	srcRate := timecode.Rate{Num: p.Manifest.FPSNum, Den: p.Manifest.FPSDen}
	tgtRate := srcRate
	if p.Config.TargetFPS > 0 {
		tgtRate = timecode.Classify(p.Config.TargetFPS)
	}

	canvasW, canvasH := p.Manifest.Width, p.Manifest.Height
	if p.Config.Width > 0 && p.Config.Height > 0 {
		canvasW, canvasH = p.Config.Width, p.Config.Height
	}

	cues := timeline.ApplyOffset(p.Manifest.TimelineCues(), p.Config.ExtraOffsetMs)
	if len(cues) == 0 {
		return fmt.Errorf("манифест не содержит реплик")
	}

	fmt.Println("--- КОМПОЗИЦИЯ ТАЙМ-ЛИНИИ ---")
	fmt.Printf("[*] Реплик: %d | Холст: %dx%d\n", len(cues), canvasW, canvasH)
	fmt.Printf("[*] Частота: %s -> %s\n", srcRate, tgtRate)

	slices := timeline.Slice(cues)
	fmt.Printf("[*] Слайсов: %d\n", len(slices))

	slicesDir := filepath.Join(p.Config.WorkDir, "slices")
	if err := os.MkdirAll(slicesDir, 0755); err != nil {
		return err
	}

	// Параллельный композитинг. Результаты складываются по индексу слайса,
	// порядок времени восстанавливается до присвоения номеров.
	composeStart := time.Now()
	composed := make([]composedSlice, len(slices))

	g, gctx := errgroup.WithContext(ctx)
	workers := p.Config.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	comp := compose.NewCompositor(canvasW, canvasH, p.Source)
	for i, sl := range slices {
		i, sl := i, sl
		g.Go(func() error {
			// Отмена атомарна на границе слайса
			if err := gctx.Err(); err != nil {
				return err
			}
			c, missing, err := comp.Render(sl)
			if err != nil {
				return fmt.Errorf("слайс %d: %w", i, err)
			}
			composed[i] = composedSlice{
				StartMs: sl.StartMs,
				EndMs:   sl.EndMs,
				Comp:    c,
				Missing: missing,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	composeTime := time.Since(composeStart)

	// Серийная фаза: номера слайсов в строгом порядке времени,
	// конформинг таймкодов, запись PNG и документа.
	ratio := timecode.ConformRatio(srcRate, tgtRate)

	doc := &bdn.Document{
		Version:  "1.0",
		Name:     "TTML2PGS Export",
		Language: p.Manifest.Language,
		Format: bdn.Format{
			Resolution: bdn.ResolutionString(canvasW, canvasH),
			FrameRate:  tgtRate.String(),
			DropFrame:  false,
		},
	}

	missingLayers := 0
	seq := 0
	for _, cs := range composed {
		missingLayers += cs.Missing
		if cs.Comp == nil {
			continue // слайс без видимого содержимого
		}

		inTC := timecode.MsToTimecode(cs.StartMs*ratio, tgtRate)
		outTC := timecode.MsToTimecode(cs.EndMs*ratio, tgtRate)
		if inTC >= outTC {
			// Слайс короче кадра схлопнулся при конформинге
			log.Printf("[!] Слайс [%v,%v)ms короче кадра, пропуск", cs.StartMs, cs.EndMs)
			continue
		}

		seq++
		filename := fmt.Sprintf("slice_%05d.png", seq)
		if err := writePNG(filepath.Join(slicesDir, filename), cs.Comp); err != nil {
			return err
		}

		doc.Events = append(doc.Events, bdn.Event{
			InTC:     inTC,
			OutTC:    outTC,
			Filename: filename,
			X:        cs.Comp.X,
			Y:        cs.Comp.Y,
			Width:    cs.Comp.W,
			Height:   cs.Comp.H,
		})

		if seq%10 == 0 {
			fmt.Printf("[>] Слайс %d готов\n", seq)
		}
	}

	if missingLayers > 0 {
		log.Printf("[!] Пропущено слоев без растра: %d", missingLayers)
	}

	docPath := filepath.Join(slicesDir, "subtitles.bdn.yaml")
	if err := bdn.Write(doc, docPath); err != nil {
		return err
	}
	fmt.Printf("[*] Документ тайм-линии: %s (%d событий)\n", docPath, len(doc.Events))

	// Муксер: документ + слайсы -> бинарный поток
	muxStart := time.Now()
	enc := pgs.NewEncoder()
	if err := enc.ExportFile(ctx, docPath, slicesDir, p.Config.OutputSup); err != nil {
		return err
	}
	muxTime := time.Since(muxStart)

	if p.Config.ShowStats {
		p.printStats(len(slices), len(doc.Events), time.Since(startTime), composeTime, muxTime)
	}

	return nil
}

func writePNG(path string, c *compose.Composite) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, c.Image); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (p *Project) printStats(slices, events int, total, composeTime, muxTime time.Duration) {
	stats, statsErr := system.CollectProcessStats()

	report := fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Compositing: %.2fs\n"+
			"Muxing: %.2fs\n"+
			"Slices: %d (events: %d)\n"+
			"Slices/sec: %.2f\n",
		p.Config.BuildVersion, total.Seconds(), composeTime.Seconds(), muxTime.Seconds(),
		slices, events, float64(slices)/total.Seconds(),
	)
	if statsErr == nil {
		report += fmt.Sprintf("RSS: %.1f MB | CPU: %.1f%%\n", float64(stats.RSSBytes)/1024/1024, stats.CPUPercent)
	}
	report += "----------------------------\n"
	fmt.Print(report)

	logEntry := fmt.Sprintf("[%s] Build: %s | Manifest: %s | Slices: %d | Total: %.2fs | Compose: %.2fs | Mux: %.2fs\n",
		time.Now().Format("2006-01-02 15:04:05"),
		p.Config.BuildVersion,
		filepath.Base(p.Config.ManifestPath),
		slices,
		total.Seconds(), composeTime.Seconds(), muxTime.Seconds(),
	)

	f, err := os.OpenFile("benchmark.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		f.WriteString(logEntry)
		f.Close()
	} else {
		fmt.Printf("[!] Не удалось записать benchmark.log: %v\n", err)
	}
}
