package translate

import (
	"strings"
	"testing"
	"unicode/utf8"
)

const (
	englishSample = "The quick brown fox jumps over the lazy dog while the children are playing in the garden near the house"
	russianSample = "Сегодня в городе прошёл сильный дождь и многие жители остались дома смотреть новости о погоде"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"  hello ", "hello", true},
		{"x", "", false},
		{"   ", "", false},
		{"", "", false},
		{"é!", "é!", true},
		{"日本", "日本", true},
	}
	for _, tt := range tests {
		got, ok := Validate(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Validate(%q) = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestEnglishShare(t *testing.T) {
	if got := EnglishShare(englishSample, 20); got < 0.8 {
		t.Errorf("EnglishShare(english) = %v, want >= 0.8", got)
	}
	if got := EnglishShare(russianSample, 20); got != 0 {
		t.Errorf("EnglishShare(russian) = %v, want 0", got)
	}
	if got := EnglishShare("!!! ???", 20); got != 0 {
		t.Errorf("EnglishShare(no words) = %v, want 0", got)
	}
}

func TestChunk(t *testing.T) {
	text := "alpha beta gamma delta epsilon"

	chunks := Chunk(text, 11)
	for _, c := range chunks {
		if n := utf8.RuneCountInString(c); n > 11 {
			t.Errorf("chunk %q has %d runes", c, n)
		}
	}
	if got := strings.Join(chunks, " "); got != text {
		t.Errorf("rejoined = %q, want %q", got, text)
	}

	if got := Chunk(text, 100); len(got) != 1 || got[0] != text {
		t.Errorf("Chunk(short) = %q", got)
	}

	got := Chunk("ааааааа бб", 3)
	want := []string{"ааа", "ааа", "а", "бб"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Chunk(long word) = %q, want %q", got, want)
	}
}
