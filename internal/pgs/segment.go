package pgs

import (
	"encoding/binary"
	"io"

	"github.com/JoeDobro93/TTML2PGS/internal/timecode"
)

// Типы сегментов PGS.
const (
	segPDS = 0x14 // Palette Definition
	segODS = 0x15 // Object Definition
	segPCS = 0x16 // Presentation Composition
	segWDS = 0x17 // Window Definition
	segEND = 0x80 // End of Display Set
)

// Epoch Start сбрасывает состояние плеера. Каждое событие — свежая эпоха,
// поэтому все идентификаторы можно держать нулевыми и не упереться в
// лимит 255 на длинных потоках.
const stateEpochStart = 0x80

// Максимальный размер фрагмента ODS в одном пакете.
// Полезная нагрузка пакета <= 65535; заголовок ODS занимает до 11 байт,
// 60000 на данные — с запасом.
const maxODSChunk = 60000

// writePacket оборачивает полезную нагрузку сегмента в заголовок пакета:
// магия "PG", PTS, DTS (здесь всегда равен PTS), тип, длина.
func writePacket(w io.Writer, pts int64, segType byte, payload []byte) error {
	header := make([]byte, 13)
	header[0] = 'P'
	header[1] = 'G'
	binary.BigEndian.PutUint32(header[2:6], uint32(pts))
	binary.BigEndian.PutUint32(header[6:10], uint32(pts))
	header[10] = segType
	binary.BigEndian.PutUint16(header[11:13], uint16(len(payload)))

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// frameRateCode возвращает код частоты кадров для PCS.
// Нестандартные частоты кодируются нулем.
func frameRateCode(r timecode.Rate) byte {
	switch r {
	case timecode.Rate{Num: 24000, Den: 1001}:
		return 0x01
	case timecode.Rate{Num: 24, Den: 1}:
		return 0x02
	case timecode.Rate{Num: 25, Den: 1}:
		return 0x03
	case timecode.Rate{Num: 30000, Den: 1001}:
		return 0x04
	case timecode.Rate{Num: 30, Den: 1}:
		return 0x05
	case timecode.Rate{Num: 50, Den: 1}:
		return 0x06
	case timecode.Rate{Num: 60000, Den: 1001}:
		return 0x07
	default:
		return 0x00
	}
}

// pcsShow строит композицию показа: один объект в одном окне,
// все идентификаторы нулевые.
func pcsShow(videoW, videoH int, rateCode byte, compNum uint16, imgX, imgY int) []byte {
	data := make([]byte, 0, 19)
	data = be16(data, uint16(videoW))
	data = be16(data, uint16(videoH))
	data = append(data, rateCode)
	data = be16(data, compNum)
	data = append(data, stateEpochStart)
	data = append(data, 0x00) // palette update: нет
	data = append(data, 0x00) // palette id
	data = append(data, 0x01) // число объектов
	data = be16(data, 0x0000) // object id
	data = append(data, 0x00) // window id
	data = append(data, 0x00) // cropped: нет
	data = be16(data, uint16(imgX))
	data = be16(data, uint16(imgY))
	return data
}

// pcsClear строит композицию очистки: ноль объектов, экран гаснет.
func pcsClear(videoW, videoH int, rateCode byte, compNum uint16) []byte {
	data := make([]byte, 0, 11)
	data = be16(data, uint16(videoW))
	data = be16(data, uint16(videoH))
	data = append(data, rateCode)
	data = be16(data, compNum)
	data = append(data, stateEpochStart)
	data = append(data, 0x00, 0x00, 0x00) // без обновления палитры, 0 объектов
	return data
}

// wds описывает единственное окно с геометрией объекта.
func wds(x, y, w, h int) []byte {
	data := make([]byte, 0, 10)
	data = append(data, 0x01) // число окон
	data = append(data, 0x00) // window id
	data = be16(data, uint16(x))
	data = be16(data, uint16(y))
	data = be16(data, uint16(w))
	data = be16(data, uint16(h))
	return data
}

// pds сериализует палитру: id, версия, затем записи (индекс, Y, Cr, Cb, A).
func pds(palette []PaletteEntry) []byte {
	data := make([]byte, 0, 2+len(palette)*5)
	data = append(data, 0x00, 0x00)
	for i, e := range palette {
		data = append(data, byte(i), e.Y, e.Cr, e.Cb, e.A)
	}
	return data
}

// writeODS пишет объект, при необходимости разбивая RLE-данные на
// фрагменты. Полная длина объекта и размеры растра присутствуют только
// в первом фрагменте; флаги 0x80/0x40 отмечают первый и последний
// (одиночный фрагмент несет оба).
func writeODS(w io.Writer, pts int64, imgW, imgH int, rle []byte) error {
	total := len(rle)
	offset := 0

	for offset < total || offset == 0 {
		chunkLen := total - offset
		if chunkLen > maxODSChunk {
			chunkLen = maxODSChunk
		}

		var seqFlag byte
		first := offset == 0
		if first {
			seqFlag |= 0x80
		}
		if offset+chunkLen >= total {
			seqFlag |= 0x40
		}

		data := make([]byte, 0, 11+chunkLen)
		data = be16(data, 0x0000) // object id
		data = append(data, 0x00) // версия
		data = append(data, seqFlag)

		if first {
			fullLen := total + 4 // +4 на поля W/H
			data = append(data, byte(fullLen>>16), byte(fullLen>>8), byte(fullLen))
			data = be16(data, uint16(imgW))
			data = be16(data, uint16(imgH))
		}

		data = append(data, rle[offset:offset+chunkLen]...)

		if err := writePacket(w, pts, segODS, data); err != nil {
			return err
		}

		offset += chunkLen
		if total == 0 {
			break
		}
	}

	return nil
}

func be16(dst []byte, v uint16) []byte {
	return append(dst, byte(v>>8), byte(v))
}
