package pgs

import (
	"image"
	"log"
	"sort"
)

// PaletteEntry — цвет палитры в яркостно-цветоразностном виде плюс альфа.
type PaletteEntry struct {
	Y  uint8
	Cr uint8
	Cb uint8
	A  uint8
}

// Quantize сводит RGBA-растр к индексированному виду с палитрой до 256
// цветов. Три уровня отступления:
//
//  1. Если уникальных цветов и так <=256 — берем их как есть.
//  2. Иначе постеризация до 4 бит на канал (&0xF0): сливает соседние
//     оттенки теней и антиалиасинга, для текста на глаз незаметно.
//  3. Иначе считаем частоты всех цветов и оставляем 255 самых частых;
//     пиксели выпавших цветов уходят в индекс 0 (прозрачность) —
//     деградация вместо пустого кадра.
//
// Прозрачный цвет всегда закреплен за индексом 0.
func Quantize(img *image.NRGBA) ([]PaletteEntry, []byte) {
	w, h := img.Rect.Dx(), img.Rect.Dy()

	// Рабочая копия без межстрочных зазоров
	pix := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		copy(pix[y*w*4:(y+1)*w*4], img.Pix[y*img.Stride:y*img.Stride+w*4])
	}

	counts := countColors(pix)

	if len(counts) > 256 {
		// Уровень 2: постеризация
		for i := range pix {
			pix[i] &= 0xF0
		}
		counts = countColors(pix)
	}

	var keep []uint32
	if len(counts) <= 256 {
		keep = make([]uint32, 0, len(counts))
		for c := range counts {
			keep = append(keep, c)
		}
		// Стабильный порядок палитры между запусками
		sort.Slice(keep, func(i, j int) bool { return keep[i] < keep[j] })
	} else {
		// Уровень 3: усечение редких цветов
		keep = make([]uint32, 0, len(counts))
		for c := range counts {
			keep = append(keep, c)
		}
		sort.Slice(keep, func(i, j int) bool {
			if counts[keep[i]] != counts[keep[j]] {
				return counts[keep[i]] > counts[keep[j]]
			}
			return keep[i] < keep[j]
		})
		keep = keep[:255]
	}

	if len(keep) == 0 {
		// Недостижимо: уровень 3 всегда что-то оставляет
		log.Printf("[!] Критично: палитра пуста, изображение уйдет в прозрачность")
	}

	// Прозрачность выносится из списка и закрепляется за индексом 0
	const transparent uint32 = 0
	filtered := keep[:0]
	for _, c := range keep {
		if c != transparent {
			filtered = append(filtered, c)
		}
	}
	colors := append([]uint32{transparent}, filtered...)
	if len(colors) > 256 {
		colors = colors[:256]
	}

	index := make(map[uint32]byte, len(colors))
	for i, c := range colors {
		index[c] = byte(i)
	}

	// Пиксели: выпавший из палитры цвет отображается в 0 (прозрачный)
	indexed := make([]byte, w*h)
	for p := 0; p < w*h; p++ {
		key := packRGBA(pix[p*4], pix[p*4+1], pix[p*4+2], pix[p*4+3])
		indexed[p] = index[key]
	}

	palette := make([]PaletteEntry, len(colors))
	for i, c := range colors {
		palette[i] = toBroadcastYCrCb(c)
	}

	return palette, indexed
}

func countColors(pix []byte) map[uint32]int {
	counts := make(map[uint32]int)
	for p := 0; p+3 < len(pix); p += 4 {
		counts[packRGBA(pix[p], pix[p+1], pix[p+2], pix[p+3])]++
	}
	return counts
}

func packRGBA(r, g, b, a byte) uint32 {
	return uint32(r)<<24 | uint32(g)<<16 | uint32(b)<<8 | uint32(a)
}

// toBroadcastYCrCb переводит RGBA в вещательный диапазон BT.601:
// Y зажат в [16,235], Cb/Cr в [16,240], альфа проходит без изменений.
func toBroadcastYCrCb(c uint32) PaletteEntry {
	r := float64(c >> 24 & 0xFF)
	g := float64(c >> 16 & 0xFF)
	b := float64(c >> 8 & 0xFF)
	a := uint8(c & 0xFF)

	y := 16 + 0.257*r + 0.504*g + 0.098*b
	cb := 128 - 0.148*r - 0.291*g + 0.439*b
	cr := 128 + 0.439*r - 0.368*g - 0.071*b

	return PaletteEntry{
		Y:  clampU8(y, 16, 235),
		Cr: clampU8(cr, 16, 240),
		Cb: clampU8(cb, 16, 240),
		A:  a,
	}
}

func clampU8(v float64, lo, hi int) uint8 {
	i := int(v)
	if i < lo {
		i = lo
	}
	if i > hi {
		i = hi
	}
	return uint8(i)
}
