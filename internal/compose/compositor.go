package compose

import (
	"image"
	"image/color"
	"log"

	xdraw "golang.org/x/image/draw"

	"github.com/JoeDobro93/TTML2PGS/internal/source"
	"github.com/JoeDobro93/TTML2PGS/internal/system"
	"github.com/JoeDobro93/TTML2PGS/internal/timeline"
)

// DefaultGuardAlpha — альфа защитных угловых пикселей.
// bdsup2sub++ пытается заново обрезать прозрачные края и ломает нашу
// четную подгонку. Наблюдаемое поведение: угол остается полностью
// прозрачным (0); задуманное значение 1/255 (невидимо глазу, непрозрачно
// для инструмента) оставлено за этой константой.
const DefaultGuardAlpha = 0

// Compositor сводит активные реплики слайса в один растр и обрезает его
// по содержимому с выравниванием на четные координаты.
type Compositor struct {
	Width      int // холст: целевое разрешение либо родное разрешение проекта
	Height     int
	GuardAlpha uint8
	Source     source.Source
}

func NewCompositor(width, height int, src source.Source) *Compositor {
	return &Compositor{
		Width:      width,
		Height:     height,
		GuardAlpha: DefaultGuardAlpha,
		Source:     src,
	}
}

// Composite — результат одного слайса: обрезанный растр и его положение
// на холсте. Ширина и высота всегда четные.
type Composite struct {
	Image *image.NRGBA
	X, Y  int
	W, H  int
}

// Render сводит реплики слайса. Возвращает nil, если после композитинга
// не осталось ни одного видимого пикселя (слайс пропускается вызывающим).
// missing — число реплик, чей растр не нашелся; такие слои пропускаются,
// остальные рисуются.
func (c *Compositor) Render(slice timeline.TimeSlice) (comp *Composite, missing int, err error) {
	canvasRect := image.Rect(0, 0, c.Width, c.Height)
	canvas := system.GetCanvas(canvasRect)
	defer system.PutCanvas(canvas)

	for _, cue := range slice.Cues {
		layer, err := c.Source.Bitmap(cue.Filename)
		if err != nil {
			log.Printf("[!] Растр реплики %d не найден (%s): %v", cue.ID, cue.Filename, err)
			missing++
			continue
		}

		if layer.Bounds() == canvasRect {
			over(canvas, layer)
		} else {
			// Рендер шел в другом разрешении: масштабируем слой под холст
			xdraw.CatmullRom.Scale(canvas, canvasRect, layer, layer.Bounds(), xdraw.Over, nil)
		}
	}

	bbox, ok := alphaBounds(canvas)
	if !ok {
		return nil, missing, nil
	}

	bbox = evenAlign(bbox, canvasRect)
	cropped := crop(canvas, bbox)
	c.guardCorners(cropped)

	return &Composite{
		Image: cropped,
		X:     bbox.Min.X,
		Y:     bbox.Min.Y,
		W:     bbox.Dx(),
		H:     bbox.Dy(),
	}, missing, nil
}

// over накладывает слой на холст того же размера по альфе (straight alpha).
// Ручной цикл вместо draw.Draw: для пары NRGBA/NRGBA у стандартной
// библиотеки нет быстрого пути, а здесь это самая горячая точка.
func over(dst, src *image.NRGBA) {
	for i := 0; i < len(dst.Pix); i += 4 {
		sa := uint32(src.Pix[i+3])
		if sa == 0 {
			continue
		}
		if sa == 255 {
			copy(dst.Pix[i:i+4], src.Pix[i:i+4])
			continue
		}

		da := uint32(dst.Pix[i+3])
		oa := sa + da*(255-sa)/255
		if oa == 0 {
			continue
		}
		for ch := 0; ch < 3; ch++ {
			sc := uint32(src.Pix[i+ch])
			dc := uint32(dst.Pix[i+ch])
			dst.Pix[i+ch] = uint8((sc*sa + dc*da*(255-sa)/255) / oa)
		}
		dst.Pix[i+3] = uint8(oa)
	}
}

// alphaBounds возвращает ограничивающий прямоугольник всех пикселей
// с ненулевой альфой.
func alphaBounds(img *image.NRGBA) (image.Rectangle, bool) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	minX, minY := w, h
	maxX, maxY := -1, -1

	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			if row[x*4+3] == 0 {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			maxY = y
		}
	}

	if maxX < 0 {
		return image.Rectangle{}, false
	}
	// Правая/нижняя границы полуоткрытые
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// evenAlign расширяет прямоугольник до четных координат (лево/верх вниз,
// право/низ вверх) и зажимает его в пределы холста. Ширина и высота
// после выравнивания гарантированно четные.
func evenAlign(r, bounds image.Rectangle) image.Rectangle {
	if r.Min.X%2 != 0 {
		r.Min.X--
	}
	if r.Min.Y%2 != 0 {
		r.Min.Y--
	}
	if r.Max.X%2 != 0 {
		r.Max.X++
	}
	if r.Max.Y%2 != 0 {
		r.Max.Y++
	}

	if r.Min.X < bounds.Min.X {
		r.Min.X = bounds.Min.X
	}
	if r.Min.Y < bounds.Min.Y {
		r.Min.Y = bounds.Min.Y
	}
	if r.Max.X > bounds.Max.X {
		r.Max.X = bounds.Max.X
	}
	if r.Max.Y > bounds.Max.Y {
		r.Max.Y = bounds.Max.Y
	}
	return r
}

// crop копирует прямоугольник холста в отдельный растр с нулевым началом.
// Холст возвращается в пул, поэтому срез Pix переиспользовать нельзя.
func crop(canvas *image.NRGBA, r image.Rectangle) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		srcOff := (r.Min.Y+y)*canvas.Stride + r.Min.X*4
		copy(out.Pix[y*out.Stride:y*out.Stride+r.Dx()*4], canvas.Pix[srcOff:srcOff+r.Dx()*4])
	}
	return out
}

// guardCorners помечает полностью прозрачные углы защитным значением,
// чтобы внешние инструменты не срезали нашу четную подгонку.
func (c *Compositor) guardCorners(img *image.NRGBA) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return
	}
	guard := color.NRGBA{0, 0, 0, c.GuardAlpha}

	corners := [][2]int{{0, 0}, {w - 1, 0}, {0, h - 1}, {w - 1, h - 1}}
	for _, p := range corners {
		if img.NRGBAAt(p[0], p[1]).A == 0 {
			img.SetNRGBA(p[0], p[1], guard)
		}
	}
}
