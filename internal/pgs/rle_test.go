package pgs

import (
	"bytes"
	"math/rand"
	"testing"
)

func roundTrip(t *testing.T, indexed []byte, w, h int) {
	t.Helper()
	rle := rleCompress(indexed, w, h)
	back, err := rleDecode(rle, w, h)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !bytes.Equal(back, indexed) {
		t.Fatalf("round trip mismatch: %dx%d", w, h)
	}
}

func TestRLERoundTripBasic(t *testing.T) {
	// 4x2: одиночные пиксели, короткие серии, прозрачный хвост
	indexed := []byte{
		5, 5, 0, 7,
		0, 0, 0, 0,
	}
	roundTrip(t, indexed, 4, 2)
}

func TestRLERoundTripRunForms(t *testing.T) {
	// Все четыре формы серии: короткая/длинная, прозрачная/цветная
	mk := func(val byte, n int) []byte {
		row := make([]byte, n)
		for i := range row {
			row[i] = val
		}
		return row
	}

	cases := []struct {
		name string
		row  []byte
	}{
		{"short transparent", mk(0, 63)},
		{"long transparent", mk(0, 64)},
		{"short color", mk(9, 63)},
		{"long color", mk(9, 64)},
		{"single literal", mk(9, 1)},
		{"two px run", mk(9, 2)},
		{"max run", mk(3, maxRun)},
		{"over max run", mk(3, maxRun + 10)},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			roundTrip(t, c.row, len(c.row), 1)
		})
	}
}

func TestRLEEndOfLineAlways(t *testing.T) {
	// Строка, целиком заполненная одной серией, все равно получает EOL
	indexed := []byte{4, 4, 4, 4}
	rle := rleCompress(indexed, 4, 1)
	if len(rle) < 2 || rle[len(rle)-1] != 0 || rle[len(rle)-2] != 0 {
		t.Errorf("нет маркера конца строки: % x", rle)
	}
}

func TestRLELiteralSinglePixel(t *testing.T) {
	// Одиночный непрозрачный пиксель кодируется одним литеральным байтом
	indexed := []byte{0, 7, 0}
	rle := rleCompress(indexed, 3, 1)
	// 0x00 0x01 (прозрачный), 0x07 (литерал), 0x00 0x01, 0x00 0x00 (EOL)
	want := []byte{0x00, 0x01, 0x07, 0x00, 0x01, 0x00, 0x00}
	if !bytes.Equal(rle, want) {
		t.Errorf("rle = % x, want % x", rle, want)
	}
}

func TestRLERoundTripRandom(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		w := 1 + r.Intn(300)
		h := 1 + r.Intn(40)
		indexed := make([]byte, w*h)
		for i := range indexed {
			// Смещение к длинным сериям и прозрачности
			switch r.Intn(4) {
			case 0:
				indexed[i] = byte(r.Intn(256))
			default:
				if i > 0 && r.Intn(3) > 0 {
					indexed[i] = indexed[i-1]
				}
			}
		}
		roundTrip(t, indexed, w, h)
	}
}

func TestRLEDecodeRejectsGarbage(t *testing.T) {
	cases := [][]byte{
		{0x00},                   // обрыв эскейпа
		{0x05, 0x00, 0x00},       // строка короче ширины
		{0x05, 0x05, 0x05},       // нет EOL
		{0x00, 0x83},             // обрыв цветной серии
		{0x00, 0x45},             // обрыв длинной серии
		{0x05, 0x05, 0x00, 0x00, 0x05}, // данные за последней строкой (h=1)
	}
	for i, c := range cases {
		if _, err := rleDecode(c, 2, 1); err == nil {
			t.Errorf("case %d: ожидалась ошибка", i)
		}
	}
}
