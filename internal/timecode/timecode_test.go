package timecode

import (
	"math"
	"testing"
)

func TestClassifyStandardRates(t *testing.T) {
	cases := []struct {
		fps  float64
		want Rate
	}{
		{23.976, Rate{24000, 1001}},
		{23.976023976, Rate{24000, 1001}},
		{29.97, Rate{30000, 1001}},
		{59.94, Rate{60000, 1001}},
		{24.0, Rate{24, 1}},
		{25.0, Rate{25, 1}},
		{30.0, Rate{30, 1}},
		{50.0, Rate{50, 1}},
		{60.0, Rate{60, 1}},
	}

	for _, c := range cases {
		got := Classify(c.fps)
		if got != c.want {
			t.Errorf("Classify(%v) = %d/%d, want %d/%d", c.fps, got.Num, got.Den, c.want.Num, c.want.Den)
		}
	}
}

func TestClassifyCustomFallback(t *testing.T) {
	got := Classify(18.5)
	want := Rate{18500, 1000}
	if got != want {
		t.Errorf("Classify(18.5) = %d/%d, want %d/%d", got.Num, got.Den, want.Num, want.Den)
	}
}

func TestClassifyInvalid(t *testing.T) {
	got := Classify(0)
	if got != (Rate{24000, 1001}) {
		t.Errorf("Classify(0) = %d/%d, want default 24000/1001", got.Num, got.Den)
	}
}

func TestBase(t *testing.T) {
	if b := (Rate{24000, 1001}).Base(); b != 24 {
		t.Errorf("Base(24000/1001) = %d, want 24", b)
	}
	if b := (Rate{30000, 1001}).Base(); b != 30 {
		t.Errorf("Base(30000/1001) = %d, want 30", b)
	}
	if b := (Rate{25, 1}).Base(); b != 25 {
		t.Errorf("Base(25/1) = %d, want 25", b)
	}
}

func TestRateString(t *testing.T) {
	cases := []struct {
		r    Rate
		want string
	}{
		{Rate{24000, 1001}, "23.976"},
		{Rate{30000, 1001}, "29.97"},
		{Rate{25, 1}, "25"},
		{Rate{60000, 1001}, "59.94"},
	}
	for _, c := range cases {
		if got := c.r.String(); got != c.want {
			t.Errorf("String(%d/%d) = %q, want %q", c.r.Num, c.r.Den, got, c.want)
		}
	}
}

// 1001.0ms при 24000/1001: 1.001s * 23.976... = ровно 24 кадра -> 00:00:01:00
func TestMsToTimecodeNTSCGrid(t *testing.T) {
	got := MsToTimecode(1001.0, Rate{24000, 1001})
	if got != "00:00:01:00" {
		t.Errorf("MsToTimecode(1001.0, 24000/1001) = %q, want 00:00:01:00", got)
	}
}

func TestMsToTimecodeWrap(t *testing.T) {
	r := Rate{25, 1}
	cases := []struct {
		ms   float64
		want string
	}{
		{0, "00:00:00:00"},
		{40, "00:00:00:01"},
		{1000, "00:00:01:00"},
		{60000, "00:01:00:00"},
		{3600000, "01:00:00:00"},
		{3661000 + 40*3, "01:01:01:03"},
	}
	for _, c := range cases {
		if got := MsToTimecode(c.ms, r); got != c.want {
			t.Errorf("MsToTimecode(%v, 25) = %q, want %q", c.ms, got, c.want)
		}
	}
}

func TestMsToTimecodeMonotonic(t *testing.T) {
	for _, r := range standardRates {
		prev := ""
		for ms := 0.0; ms < 10000; ms += 13.7 {
			tc := MsToTimecode(ms, r)
			if tc < prev {
				t.Fatalf("rate %d/%d: таймкод не монотонен: %q после %q (ms=%v)", r.Num, r.Den, tc, prev, ms)
			}
			prev = tc
		}
	}
}

func TestToPTS(t *testing.T) {
	// 1 час NDF при 24000/1001: 86400 кадров.
	// PTS = 86400 * 90000 * 1001 / 24000 = 324 324 000
	pts, err := ToPTS("01:00:00:00", Rate{24000, 1001})
	if err != nil {
		t.Fatalf("ToPTS: %v", err)
	}
	if pts != 324324000 {
		t.Errorf("ToPTS(01:00:00:00, 24000/1001) = %d, want 324324000", pts)
	}
}

func TestToPTSInvalid(t *testing.T) {
	if _, err := ToPTS("garbage", Rate{25, 1}); err == nil {
		t.Error("ToPTS должен возвращать ошибку на мусорном таймкоде")
	}
}

// Прямое и обратное преобразование сходятся с точностью до кадра.
func TestRoundTripWithinOneFrame(t *testing.T) {
	for _, fps := range []float64{23.976, 24, 25, 29.97, 30, 50, 59.94, 60} {
		r := Classify(fps)
		frameMs := 1000.0 * float64(r.Den) / float64(r.Num)

		for _, ms := range []float64{0, 41.7, 500, 1001, 59940, 3600000, 7199123.4} {
			tc := MsToTimecode(ms, r)
			pts, err := ToPTS(tc, r)
			if err != nil {
				t.Fatalf("fps=%v ms=%v: %v", fps, ms, err)
			}
			backMs := float64(pts) / 90.0
			if math.Abs(backMs-ms) > frameMs {
				t.Errorf("fps=%v: ms=%v -> %q -> %.3fms, расхождение больше кадра (%.3fms)",
					fps, ms, tc, backMs, frameMs)
			}
		}
	}
}

func TestConformRatio(t *testing.T) {
	ratio := ConformRatio(Rate{24000, 1001}, Rate{24, 1})
	want := (24000.0 / 1001.0) / 24.0
	if math.Abs(ratio-want) > 1e-12 {
		t.Errorf("ConformRatio = %v, want %v", ratio, want)
	}
	if ConformRatio(Rate{25, 1}, Rate{25, 1}) != 1.0 {
		t.Error("ConformRatio тех же частот должен быть 1.0")
	}
}
