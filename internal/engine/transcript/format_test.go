package transcript

import "testing"

func TestFormats(t *testing.T) {
	segs := []Segment{
		{Start: 0, Duration: 1.5, Text: "Hello"},
		{Start: 3661.25, Duration: 2, Text: "world"},
		{Start: 3664, Duration: 1, Text: ""},
	}

	if got := FormatText(segs); got != "Hello world" {
		t.Errorf("FormatText() = %q", got)
	}

	wantSRT := "1\n00:00:00,000 --> 00:00:01,500\nHello\n\n" +
		"2\n01:01:01,250 --> 01:01:03,250\nworld\n\n" +
		"3\n01:01:04,000 --> 01:01:05,000"
	if got := FormatSRT(segs); got != wantSRT {
		t.Errorf("FormatSRT() =\n%s\nwant\n%s", got, wantSRT)
	}

	wantVTT := "WEBVTT\n\n00:00:00.000 --> 00:00:01.500\nHello\n\n" +
		"01:01:01.250 --> 01:01:03.250\nworld\n\n" +
		"01:01:04.000 --> 01:01:05.000"
	if got := FormatVTT(segs); got != wantVTT {
		t.Errorf("FormatVTT() =\n%s\nwant\n%s", got, wantVTT)
	}
}

func TestFormatVTTParsesBack(t *testing.T) {
	segs := []Segment{{Start: 1, Duration: 2, Text: "one"}, {Start: 4.5, Duration: 0.5, Text: "two"}}
	back := ParseVTT(FormatVTT(segs))
	if len(back) != 2 || back[0] != segs[0] || back[1] != segs[1] {
		t.Fatalf("got %+v", back)
	}
}
