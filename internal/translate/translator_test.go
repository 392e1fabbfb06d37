package translate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"
)

type fakeBackend struct {
	mu    sync.Mutex
	calls []string
	fn    func(text string) (string, error)
}

func (f *fakeBackend) Translate(_ context.Context, text, _, _ string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	return f.fn(text)
}

func TestTranslateSameLanguageIsIdentity(t *testing.T) {
	b := &fakeBackend{fn: func(s string) (string, error) { return "X", nil }}
	tr := NewTranslator(b, nil, nil)
	for _, lang := range []string{"en", "de", "FR", "es-MX"} {
		text := "Glucose: 150 mg/dL. Follow up in two weeks."
		out, ok := tr.Translate(context.Background(), text, lang, strings.ToLower(lang))
		if ok || out != text {
			t.Errorf("%s: got (%q, %v)", lang, out, ok)
		}
	}
	if out, ok := tr.Translate(context.Background(), "", "de", "en"); ok || out != "" {
		t.Errorf("empty input: got (%q, %v)", out, ok)
	}
	if len(b.calls) != 0 {
		t.Fatalf("backend called %d times", len(b.calls))
	}
}

func TestTranslateChunksAndJoins(t *testing.T) {
	b := &fakeBackend{fn: func(s string) (string, error) { return "[" + s + "]", nil }}
	tr := NewTranslator(b, nil, nil)
	tr.chunkSize = 30

	out, ok := tr.Translate(context.Background(), "Erster Satz hier. Zweiter Satz hier! Dritter?", "de", "en")
	if !ok {
		t.Fatal("expected translated=true")
	}
	if out != "[Erster Satz hier.] [Zweiter Satz hier! Dritter?]" {
		t.Fatalf("out = %q (calls %q)", out, b.calls)
	}
}

func TestTranslateFailureReturnsOriginal(t *testing.T) {
	calls := 0
	b := &fakeBackend{fn: func(s string) (string, error) {
		calls++
		if calls == 2 {
			return "", errors.New("quota exceeded")
		}
		return "ok", nil
	}}
	tr := NewTranslator(b, nil, nil)
	tr.chunkSize = 10
	text := "Satz eins. Satz zwei. Satz drei."
	out, ok := tr.Translate(context.Background(), text, "de", "en")
	if ok || out != text {
		t.Fatalf("got (%q, %v)", out, ok)
	}

	panicky := &fakeBackend{fn: func(string) (string, error) { panic("nil client") }}
	if out, ok := NewTranslator(panicky, nil, nil).Translate(context.Background(), text, "de", "en"); ok || out != text {
		t.Fatalf("panic: got (%q, %v)", out, ok)
	}

	if out, ok := NewTranslator(nil, nil, nil).Translate(context.Background(), text, "de", "en"); ok || out != text {
		t.Fatalf("passthrough: got (%q, %v)", out, ok)
	}
}

func TestChunkNeverSplitsSentences(t *testing.T) {
	text := "Patient presents with chest pain. BP 150/90 mmHg! Is the ECG normal? " +
		strings.Repeat("Very long sentence without any break ", 40) + "end. Short one."
	sentences := Sentences(text)
	for _, max := range []int{10, 50, 200, 1000} {
		chunks := Chunk(text, max)
		if got := strings.Join(chunks, " "); got != strings.Join(sentences, " ") {
			t.Fatalf("max %d: rejoined chunks differ from sentences", max)
		}
		for _, c := range chunks {
			if utf8.RuneCountInString(c) > max && len(Sentences(c)) != 1 {
				t.Fatalf("max %d: oversize chunk holds several sentences: %q", max, c)
			}
		}
	}
	if s := Sentences("Dose 2.5 mg daily. Next"); len(s) != 2 || s[0] != "Dose 2.5 mg daily." {
		t.Fatalf("decimal point must not split: %q", s)
	}
}

func TestChunkBreaksUnpunctuatedTextAtLines(t *testing.T) {
	lines := make([]string, 40)
	for i := range lines {
		lines[i] = "Glucose 95 mg/dL ref 70-110"
	}
	text := strings.Join(lines, "\n")
	if len(Sentences(text)) != 1 {
		t.Fatalf("expected one sentence, got %d", len(Sentences(text)))
	}

	chunks := Chunk(text, 200)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if n := utf8.RuneCountInString(c); n > 200 {
			t.Fatalf("chunk of %d runes exceeds the budget: %q", n, c)
		}
	}
	if got := strings.Join(chunks, "\n"); got != text {
		t.Fatalf("rejoined chunks lost lines:\n%s", got)
	}

	long := strings.Repeat("x", 300)
	if got := Chunk("short line\n"+long, 200); len(got) != 2 || got[1] != long {
		t.Fatalf("an oversize line must stay whole: %q", got)
	}
}

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func TestCachedBackend(t *testing.T) {
	inner := &fakeBackend{fn: func(s string) (string, error) { return strings.ToUpper(s), nil }}
	c := NewCachedBackend(inner, &memStore{data: map[string]string{}}, time.Hour, nil, nil)

	for i := 0; i < 3; i++ {
		out, err := c.Translate(context.Background(), "hallo", "de", "en")
		if err != nil || out != "HALLO" {
			t.Fatalf("got (%q, %v)", out, err)
		}
	}
	if len(inner.calls) != 1 {
		t.Fatalf("inner calls = %d, want 1", len(inner.calls))
	}
	if _, err := c.Translate(context.Background(), "hallo", "de", "fr"); err != nil {
		t.Fatal(err)
	}
	if len(inner.calls) != 2 {
		t.Fatalf("different language pair must miss, calls = %d", len(inner.calls))
	}
}
