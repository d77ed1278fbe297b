package system

import (
	"image"
	"sync"
)

// ImagePool предоставляет механизмы повторного использования image.NRGBA
// для снижения нагрузки на Garbage Collector (GC): холст композитора
// аллоцируется на каждый слайс и при 1920x1080 весит ~8МБ.
type ImagePool struct {
	pools map[string]*sync.Pool
	mu    sync.RWMutex
}

var globalPool = &ImagePool{
	pools: make(map[string]*sync.Pool),
}

// GetCanvas возвращает экземпляр *image.NRGBA из пула или создает новый,
// если в пуле нет подходящего по размеру объекта. Буфер обнулен.
func GetCanvas(rect image.Rectangle) *image.NRGBA {
	return globalPool.Get(rect)
}

// PutCanvas возвращает экземпляр *image.NRGBA в пул для повторного использования.
func PutCanvas(img *image.NRGBA) {
	globalPool.Put(img)
}

func (p *ImagePool) Get(rect image.Rectangle) *image.NRGBA {
	key := rect.String()
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		// Double check
		pool, exists = p.pools[key]
		if !exists {
			pool = &sync.Pool{
				New: func() interface{} {
					return image.NewNRGBA(rect)
				},
			}
			p.pools[key] = pool
		}
		p.mu.Unlock()
	}

	img := pool.Get().(*image.NRGBA)
	// Полная прозрачность перед повторным использованием
	for i := range img.Pix {
		img.Pix[i] = 0
	}
	return img
}

func (p *ImagePool) Put(img *image.NRGBA) {
	if img == nil {
		return
	}
	key := img.Rect.String()
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if exists {
		pool.Put(img)
	}
}
