package utils

import "testing"

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("Take 2.5 mg daily.  Stop if rash occurs!\nCall us? ok")
	want := []string{"Take 2.5 mg daily.", "Stop if rash occurs!", "Call us?", "ok"}
	if len(got) != len(want) {
		t.Fatalf("got %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("abcdefghij klm", 10); got != "abcdefg..." {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("Blutzucker über", 8); got != "Blutz..." {
		t.Fatalf("got %q", got)
	}
}

func TestParseYMD(t *testing.T) {
	d, err := ParseYMD("2024-03-05")
	if err != nil || d.Day() != 5 || d.Hour() != 0 {
		t.Fatalf("got %v %v", d, err)
	}
	if _, err := ParseYMD("05.03.2024"); err == nil {
		t.Fatal("expected error")
	}
}
