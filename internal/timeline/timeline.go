package timeline

import "sort"

// Cue — одна входная реплика: полупрозрачный PNG от рендера плюс интервал
// показа. Времена приходят уже со смещением (скорректированное исходное время).
type Cue struct {
	ID       int
	Filename string
	StartMs  float64
	EndMs    float64
}

// TimeSlice — максимальный интервал с постоянным набором активных реплик.
// Слайсы не пересекаются и вместе покрывают объединение интервалов реплик.
type TimeSlice struct {
	StartMs float64
	EndMs   float64
	Cues    []Cue
}

// Slice разрезает пересекающиеся интервалы реплик на атомарные слайсы.
//
// Алгоритм: собираем все границы start/end, сортируем и для каждой пары
// соседних границ (t0, t1) берем середину m. Реплика активна в интервале,
// если start <= m < end — полуоткрытый тест снимает неоднозначность на
// общих границах. Пустые интервалы отбрасываются. Активные реплики
// упорядочены по возрастанию ID: больший ID рисуется позже, то есть выше.
//
// O(N log N + N*M); для файлов субтитров этого достаточно.
func Slice(cues []Cue) []TimeSlice {
	pointSet := make(map[float64]struct{}, len(cues)*2)
	for _, c := range cues {
		pointSet[c.StartMs] = struct{}{}
		pointSet[c.EndMs] = struct{}{}
	}

	points := make([]float64, 0, len(pointSet))
	for p := range pointSet {
		points = append(points, p)
	}
	sort.Float64s(points)

	var slices []TimeSlice
	for i := 0; i+1 < len(points); i++ {
		t0, t1 := points[i], points[i+1]
		if t1-t0 <= 0 {
			continue
		}

		mid := (t0 + t1) / 2

		var active []Cue
		for _, c := range cues {
			if c.StartMs <= mid && mid < c.EndMs {
				active = append(active, c)
			}
		}

		if len(active) == 0 {
			continue
		}

		sort.Slice(active, func(a, b int) bool { return active[a].ID < active[b].ID })

		slices = append(slices, TimeSlice{StartMs: t0, EndMs: t1, Cues: active})
	}

	return slices
}

// ApplyOffset возвращает копию реплик со сдвинутыми временами.
// Смещение применяется до нарезки, чтобы вся внутренняя логика работала
// в скорректированном исходном времени.
func ApplyOffset(cues []Cue, offsetMs float64) []Cue {
	if offsetMs == 0 {
		return cues
	}
	shifted := make([]Cue, len(cues))
	for i, c := range cues {
		c.StartMs += offsetMs
		c.EndMs += offsetMs
		shifted[i] = c
	}
	return shifted
}
