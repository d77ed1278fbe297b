package pgs

import "fmt"

// Максимальная длина серии в RLE-кодировании объекта.
const maxRun = 16383

// rleCompress кодирует индексированный растр построчно слева направо.
// Одиночный непрозрачный пиксель пишется литеральным байтом индекса;
// остальные серии — эскейп с нулевым байтом, флагами прозрачности и
// короткой (<=63) либо длинной формой длины. Каждая строка завершается
// явным маркером конца строки.
func rleCompress(indexed []byte, w, h int) []byte {
	rle := make([]byte, 0, w*h/4)

	for row := 0; row < h; row++ {
		line := indexed[row*w : (row+1)*w]
		i := 0
		for i < w {
			val := line[i]
			run := 1
			for i+run < w && line[i+run] == val && run < maxRun {
				run++
			}

			if val == 0 {
				if run <= 63 {
					rle = append(rle, 0x00, byte(run))
				} else {
					rle = append(rle, 0x00, 0x40|byte(run>>8), byte(run))
				}
			} else {
				if run == 1 {
					rle = append(rle, val)
				} else if run <= 63 {
					rle = append(rle, 0x00, 0x80|byte(run), val)
				} else {
					rle = append(rle, 0x00, 0xC0|byte(run>>8), byte(run), val)
				}
			}
			i += run
		}
		rle = append(rle, 0x00, 0x00) // конец строки
	}

	return rle
}

// rleDecode восстанавливает индексы пикселей из RLE-потока.
// Используется тестами и проверкой целостности: любая строка обязана
// разложиться ровно в w пикселей и закончиться маркером конца строки.
func rleDecode(rle []byte, w, h int) ([]byte, error) {
	out := make([]byte, 0, w*h)
	pos := 0
	row := 0
	col := 0

	for pos < len(rle) {
		if row >= h {
			return nil, fmt.Errorf("rle: данные за пределами последней строки")
		}

		b := rle[pos]
		pos++

		if b != 0 {
			// Литеральный одиночный пиксель
			out = append(out, b)
			col++
			continue
		}

		if pos >= len(rle) {
			return nil, fmt.Errorf("rle: обрыв после эскейпа (строка %d)", row)
		}
		flags := rle[pos]
		pos++

		if flags == 0 {
			// Конец строки
			if col != w {
				return nil, fmt.Errorf("rle: строка %d имеет %d пикселей вместо %d", row, col, w)
			}
			row++
			col = 0
			continue
		}

		run := int(flags & 0x3F)
		if flags&0x40 != 0 {
			if pos >= len(rle) {
				return nil, fmt.Errorf("rle: обрыв длинной серии (строка %d)", row)
			}
			run = run<<8 | int(rle[pos])
			pos++
		}

		val := byte(0)
		if flags&0x80 != 0 {
			if pos >= len(rle) {
				return nil, fmt.Errorf("rle: обрыв цветной серии (строка %d)", row)
			}
			val = rle[pos]
			pos++
		}

		if run == 0 || col+run > w {
			return nil, fmt.Errorf("rle: серия %d выходит за строку %d (col=%d, w=%d)", run, row, col, w)
		}
		for k := 0; k < run; k++ {
			out = append(out, val)
		}
		col += run
	}

	if row != h || col != 0 {
		return nil, fmt.Errorf("rle: декодировано %d строк вместо %d", row, h)
	}
	return out, nil
}
