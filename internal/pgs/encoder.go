package pgs

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/JoeDobro93/TTML2PGS/internal/bdn"
	"github.com/JoeDobro93/TTML2PGS/internal/source"
	"github.com/JoeDobro93/TTML2PGS/internal/timecode"
)

// Encoder пишет поток PGS/SUP по документу тайм-линии.
// Счетчик композиций принадлежит экземпляру: один энкодер — один поток.
type Encoder struct {
	seq     uint16
	skipped int
}

func NewEncoder() *Encoder {
	return &Encoder{}
}

// Skipped возвращает число событий, пропущенных из-за отсутствующих растров.
func (e *Encoder) Skipped() int {
	return e.skipped
}

// Encode сериализует все события документа в выходной поток.
// На каждое событие пишутся два дисплей-сета: SHOW на входном таймкоде
// (PCS Epoch Start, WDS, PDS, ODS, END) и CLEAR на выходном (PCS без
// объектов, WDS той же геометрии, END). Поток пишется инкрементально,
// целиком в памяти он не живет. Отмена проверяется на границе событий.
func (e *Encoder) Encode(ctx context.Context, doc *bdn.Document, src source.Source, out io.Writer) error {
	videoW, videoH, err := doc.Format.Size()
	if err != nil {
		return err
	}
	fps, err := doc.Format.FPS()
	if err != nil {
		return err
	}

	rate := timecode.Classify(fps)
	code := frameRateCode(rate)
	fmt.Printf("[*] Частота кадров потока: %d/%d\n", rate.Num, rate.Den)

	for i, ev := range doc.Events {
		if err := ctx.Err(); err != nil {
			return err
		}

		startPTS, err := timecode.ToPTS(ev.InTC, rate)
		if err != nil {
			return fmt.Errorf("событие %d: %w", i, err)
		}
		endPTS, err := timecode.ToPTS(ev.OutTC, rate)
		if err != nil {
			return fmt.Errorf("событие %d: %w", i, err)
		}

		img, err := src.Bitmap(ev.Filename)
		if err != nil {
			log.Printf("[!] Растр события %d не найден (%s), пропуск", i, ev.Filename)
			e.skipped++
			continue
		}

		// Страховка: композитор уже гарантирует четные размеры,
		// но чужой документ мог прийти с нечетным растром
		img = padEven(img)
		imgW, imgH := img.Rect.Dx(), img.Rect.Dy()

		palette, indexed := Quantize(img)
		rle := rleCompress(indexed, imgW, imgH)

		// --- SHOW ---
		e.seq++
		if err := writePacket(out, startPTS, segPCS, pcsShow(videoW, videoH, code, e.seq, ev.X, ev.Y)); err != nil {
			return err
		}
		if err := writePacket(out, startPTS, segWDS, wds(ev.X, ev.Y, imgW, imgH)); err != nil {
			return err
		}
		if err := writePacket(out, startPTS, segPDS, pds(palette)); err != nil {
			return err
		}
		if err := writeODS(out, startPTS, imgW, imgH, rle); err != nil {
			return err
		}
		if err := writePacket(out, startPTS, segEND, nil); err != nil {
			return err
		}

		// --- CLEAR ---
		e.seq++
		if err := writePacket(out, endPTS, segPCS, pcsClear(videoW, videoH, code, e.seq)); err != nil {
			return err
		}
		if err := writePacket(out, endPTS, segWDS, wds(ev.X, ev.Y, imgW, imgH)); err != nil {
			return err
		}
		if err := writePacket(out, endPTS, segEND, nil); err != nil {
			return err
		}
	}

	return nil
}

// ExportFile кодирует документ и атомарно финализирует артефакт:
// пишем во временный файл рядом с целевым и переименовываем на успехе.
// Ошибки финализации фатальны и пробрасываются наверх.
func (e *Encoder) ExportFile(ctx context.Context, docPath, imagesDir, outPath string) error {
	fmt.Printf("--- ЭКСПОРТ SUP ---\n")
	fmt.Printf("[*] Документ: %s\n", docPath)
	fmt.Printf("[*] Выход: %s\n", outPath)

	doc, err := bdn.Read(docPath)
	if err != nil {
		return err
	}

	src, err := source.NewDirSource(imagesDir)
	if err != nil {
		return err
	}
	defer src.Close()

	tmpPath := filepath.Join(filepath.Dir(outPath), ".tmp_export.sup")
	f, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	encodeErr := e.Encode(ctx, doc, src, f)
	closeErr := f.Close()

	if errors.Is(encodeErr, context.Canceled) || errors.Is(encodeErr, context.DeadlineExceeded) {
		// Частично записанный артефакт остается: убирать его — забота вызывающего
		log.Printf("[!] Экспорт отменен, частичный файл: %s", tmpPath)
		return nil
	}
	if encodeErr != nil {
		os.Remove(tmpPath)
		return encodeErr
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return closeErr
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("финализация %s: %w", outPath, err)
	}

	if e.skipped > 0 {
		log.Printf("[!] Пропущено событий без растра: %d", e.skipped)
	}
	fmt.Printf("[+++] Готово: %s (%d событий)\n", outPath, len(doc.Events)-e.skipped)
	return nil
}

// padEven дополняет растр прозрачными пикселями до четных размеров.
func padEven(img *image.NRGBA) *image.NRGBA {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w%2 == 0 && h%2 == 0 {
		return img
	}

	out := image.NewNRGBA(image.Rect(0, 0, w+w%2, h+h%2))
	for y := 0; y < h; y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+w*4], img.Pix[y*img.Stride:y*img.Stride+w*4])
	}
	return out
}
