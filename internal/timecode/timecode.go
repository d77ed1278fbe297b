package timecode

import (
	"fmt"
	"math"
)

// Rate задает частоту кадров как точную рациональную дробь.
// Дробные NTSC-частоты (23.976, 29.97, 59.94) непредставимы в float
// без погрешности, поэтому вся арифметика времени идет через Num/Den.
type Rate struct {
	Num int64
	Den int64
}

// Стандартные частоты, допустимые в целевом потоке.
var standardRates = []Rate{
	{24000, 1001},
	{30000, 1001},
	{60000, 1001},
	{24, 1},
	{25, 1},
	{30, 1},
	{50, 1},
	{60, 1},
}

// Classify подбирает табличную рациональную пару для частоты кадров.
// Сравнение только через допуск: NTSC-значения иррациональны в двоичном
// float, точное равенство здесь не работает. Если частота не табличная,
// возвращается миллигерцовая пара (сохраняем 3 знака точности).
func Classify(fps float64) Rate {
	if fps <= 0 {
		// Некорректный вход: по умолчанию 23.976
		return Rate{24000, 1001}
	}

	for _, r := range standardRates {
		tol := 0.001
		if r.Den != 1 {
			// У дробных частот вход часто приходит уже округленным (23.976)
			tol = 0.01
		}
		if math.Abs(fps-r.Float()) < tol {
			return r
		}
	}

	return Rate{Num: int64(math.Round(fps * 1000)), Den: 1000}
}

func (r Rate) Float() float64 {
	return float64(r.Num) / float64(r.Den)
}

// Base возвращает номинальную целую частоту для счета кадров таймкода.
// Для 24000/1001 это 24: NDF-таймкод считает 0..23 независимо от того,
// что реальная скорость 23.976.
func (r Rate) Base() int64 {
	return int64(math.Round(r.Float()))
}

// String форматирует частоту так, как она пишется в документе тайм-линии:
// "23.976", "25" (без хвостовых нулей).
func (r Rate) String() string {
	if r.Den == 1 {
		return fmt.Sprintf("%d", r.Num)
	}
	s := fmt.Sprintf("%.3f", r.Float())
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}

// ConformRatio возвращает множитель для пересчета миллисекунд при
// конформинге (например, 23.976 -> 24 слегка ускоряет поток).
// Formula: Target_Time = Source_Time * (Source_FPS / Target_FPS)
func ConformRatio(src, tgt Rate) float64 {
	return src.Float() / tgt.Float()
}

// MsToTimecode переводит миллисекунды в NDF-таймкод HH:MM:SS:FF.
// Сначала реальное время округляется к ближайшему кадру реальной частоты,
// затем номер кадра раскладывается по номинальной целой базе.
func MsToTimecode(ms float64, r Rate) string {
	totalFrames := int64(math.Round(ms / 1000.0 * r.Float()))
	if totalFrames < 0 {
		totalFrames = 0
	}

	base := r.Base()
	framesPerHour := base * 3600
	framesPerMin := base * 60

	h := totalFrames / framesPerHour
	rem := totalFrames % framesPerHour
	m := rem / framesPerMin
	rem = rem % framesPerMin
	s := rem / base
	f := rem % base

	return fmt.Sprintf("%02d:%02d:%02d:%02d", h, m, s, f)
}

// Parse разбирает таймкод HH:MM:SS:FF.
func Parse(tc string) (h, m, s, f int64, err error) {
	n, err := fmt.Sscanf(tc, "%d:%d:%d:%d", &h, &m, &s, &f)
	if err != nil || n != 4 {
		return 0, 0, 0, 0, fmt.Errorf("некорректный таймкод %q", tc)
	}
	return h, m, s, f, nil
}

// ToPTS переводит NDF-таймкод в 90 кГц PTS.
// Счет кадров идет по номинальной базе, PTS считается строго в целых:
// (frames * 90000 * Den) / Num. Float здесь накапливал бы дрейф на
// длинных потоках.
func ToPTS(tc string, r Rate) (int64, error) {
	h, m, s, f, err := Parse(tc)
	if err != nil {
		return 0, err
	}

	base := r.Base()
	totalFrames := h*3600*base + m*60*base + s*base + f

	return totalFrames * 90000 * r.Den / r.Num, nil
}

// FrameDurationPTS возвращает длительность одного кадра в тиках 90 кГц.
func FrameDurationPTS(r Rate) int64 {
	return 90000 * r.Den / r.Num
}
