package structure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/thywilljoshua/bookingest/internal/ai"
)

type fakeChat struct {
	id      int
	next    int
	prompts []string
	p       *fakeProvider
}

func (c *fakeChat) Send(_ context.Context, prompt string) (string, error) {
	c.prompts = append(c.prompts, prompt)
	return c.p.respond(c, prompt)
}

type fakeProvider struct {
	respond func(c *fakeChat, prompt string) (string, error)
	chats   []*fakeChat
	system  string
}

func (p *fakeProvider) NewChat(_ context.Context, system string) (ai.Chat, error) {
	p.system = system
	c := &fakeChat{id: len(p.chats) + 1, p: p}
	p.chats = append(p.chats, c)
	return c, nil
}

type fakeTimer struct{ waits []time.Duration }

func (t *fakeTimer) After(d time.Duration) <-chan time.Time {
	t.waits = append(t.waits, d)
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func chapterJSON(ch string) string {
	b, _ := json.Marshal([]Section{
		{ChapterTitle: ch, SubsectionTitle: "1", Content: ch + " part one"},
		{ChapterTitle: ch, SubsectionTitle: "2", Content: ch + " part two"},
	})
	return string(b)
}

var resumeRe = regexp.MustCompile(`last saved chapter is "([^"]*)"`)

// book answers like a well-behaved model that keeps its place per chat.
func book(chapters ...string) func(c *fakeChat, prompt string) (string, error) {
	return func(c *fakeChat, prompt string) (string, error) {
		if strings.Contains(prompt, "Return the first chapter") {
			c.next = 0
		} else if m := resumeRe.FindStringSubmatch(prompt); m != nil {
			for i, ch := range chapters {
				if ch == m[1] {
					c.next = i + 1
				}
			}
		}
		if c.next >= len(chapters) {
			return CompletionSentinel, nil
		}
		ch := chapters[c.next]
		c.next++
		return chapterJSON(ch), nil
	}
}

// failing wraps respond so that its first n calls fail with err.
func failing(n int, err error, respond func(*fakeChat, string) (string, error)) func(*fakeChat, string) (string, error) {
	calls := 0
	return func(c *fakeChat, prompt string) (string, error) {
		calls++
		if calls <= n {
			return "", err
		}
		return respond(c, prompt)
	}
}

func newAgent(p *fakeProvider, timer *fakeTimer) *Agent {
	return &Agent{Provider: p, BookTitle: "Book", Timer: timer}
}

func newLog(t *testing.T) *Log {
	return OpenLog(filepath.Join(t.TempDir(), "book.checkpoint.jsonl"))
}

const doc = "Chapter A text. IMAGE_PLACEHOLDER_1 Chapter B text. Chapter C text."

func TestAgentCompletesBook(t *testing.T) {
	p := &fakeProvider{respond: book("A", "B", "C")}
	cp := newLog(t)
	res, err := newAgent(p, &fakeTimer{}).Run(context.Background(), doc, cp)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Complete || res.Turns != 4 || res.Appended != 6 || res.Resets != 0 {
		t.Errorf("result = %+v", res)
	}
	all, _ := cp.LoadAll()
	if len(all) != 6 {
		t.Fatalf("log has %d records", len(all))
	}
	for _, r := range all {
		if r.BookTitle != "Book" {
			t.Errorf("bookTitle not filled: %+v", r)
		}
	}
	if !strings.Contains(p.system, "Book") {
		t.Error("system instruction does not name the book")
	}
	for _, prompt := range p.chats[0].prompts {
		if !strings.Contains(prompt, doc) {
			t.Fatal("prompt is missing the book text")
		}
	}
}

func TestAgentResumeIsIdempotent(t *testing.T) {
	whole := newLog(t)
	if _, err := newAgent(&fakeProvider{respond: book("A", "B", "C")}, &fakeTimer{}).Run(context.Background(), doc, whole); err != nil {
		t.Fatal(err)
	}

	interrupted := newLog(t)
	a := newAgent(&fakeProvider{respond: book("A", "B", "C")}, &fakeTimer{})
	a.MaxTurns = 2
	res, err := a.Run(context.Background(), doc, interrupted)
	if err != nil {
		t.Fatal(err)
	}
	if res.Complete {
		t.Fatal("expected the capped run to be incomplete")
	}

	p := &fakeProvider{respond: book("A", "B", "C")}
	res, err = newAgent(p, &fakeTimer{}).Run(context.Background(), doc, interrupted)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Complete || res.Appended != 2 {
		t.Errorf("resumed result = %+v", res)
	}
	if !strings.Contains(p.chats[0].prompts[0], `last saved chapter is "B"`) {
		t.Errorf("resume prompt = %q", p.chats[0].prompts[0])
	}

	want, _ := whole.LoadAll()
	got, _ := interrupted.LoadAll()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("resumed log differs:\n got %+v\nwant %+v", got, want)
	}
}

func TestAgentStopsOnRepeatedChapter(t *testing.T) {
	p := &fakeProvider{respond: func(*fakeChat, string) (string, error) { return chapterJSON("A"), nil }}
	cp := newLog(t)
	res, err := newAgent(p, &fakeTimer{}).Run(context.Background(), doc, cp)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Complete || res.Turns != 2 || res.Appended != 2 {
		t.Errorf("result = %+v", res)
	}
	all, _ := cp.LoadAll()
	if len(all) != 2 {
		t.Errorf("log has %d records", len(all))
	}
}

func TestAgentBackoff(t *testing.T) {
	tests := []struct {
		name string
		fail int
		err  error
		want []time.Duration
	}{
		{
			name: "exponential",
			fail: 3,
			err:  errors.New("connection reset"),
			want: []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second},
		},
		{
			name: "rate limited waits fixed",
			fail: 2,
			err:  fmt.Errorf("%w: quota exceeded", ai.ErrRateLimited),
			want: []time.Duration{65 * time.Second, 65 * time.Second},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timer := &fakeTimer{}
			p := &fakeProvider{respond: failing(tt.fail, tt.err, book("A"))}
			res, err := newAgent(p, timer).Run(context.Background(), doc, newLog(t))
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(timer.waits, tt.want) {
				t.Errorf("waits = %v, want %v", timer.waits, tt.want)
			}
			if !res.Complete || res.Resets != 0 {
				t.Errorf("result = %+v", res)
			}
		})
	}
}

func TestAgentFirstTurnFailureIsFatal(t *testing.T) {
	timer := &fakeTimer{}
	p := &fakeProvider{respond: func(*fakeChat, string) (string, error) { return "", errors.New("unavailable") }}
	cp := newLog(t)
	res, err := newAgent(p, timer).Run(context.Background(), doc, cp)
	if !errors.Is(err, ErrNoCheckpoint) {
		t.Fatalf("err = %v, want ErrNoCheckpoint", err)
	}
	if res.Turns != 1 || len(p.chats[0].prompts) != 4 {
		t.Errorf("turns=%d attempts=%d", res.Turns, len(p.chats[0].prompts))
	}
	if want := []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second}; !reflect.DeepEqual(timer.waits, want) {
		t.Errorf("waits = %v", timer.waits)
	}
	if cp.Exists() {
		t.Error("log created without records")
	}
}

func TestAgentFirstTurnMalformedIsFatal(t *testing.T) {
	p := &fakeProvider{respond: func(*fakeChat, string) (string, error) { return "Sure! Here is the chapter.", nil }}
	_, err := newAgent(p, &fakeTimer{}).Run(context.Background(), doc, newLog(t))
	if !errors.Is(err, ErrNoCheckpoint) || !errors.Is(err, ErrMalformedReply) {
		t.Fatalf("err = %v", err)
	}
}

func TestAgentResetsOnMalformedReply(t *testing.T) {
	cp := newLog(t)
	seed := []Section{
		{BookTitle: "Book", ChapterTitle: "A", SubsectionTitle: "1", Content: "A part one"},
		{BookTitle: "Book", ChapterTitle: "A", SubsectionTitle: "2", Content: "the closing words of A"},
	}
	if err := cp.Append(seed); err != nil {
		t.Fatal(err)
	}

	healthy := book("A", "B", "C")
	p := &fakeProvider{respond: func(c *fakeChat, prompt string) (string, error) {
		if c.id == 1 {
			return `[{"chapterTitle": "B", "content": `, nil
		}
		return healthy(c, prompt)
	}}
	res, err := newAgent(p, &fakeTimer{}).Run(context.Background(), doc, cp)
	if err != nil {
		t.Fatal(err)
	}
	if res.Resets != 1 || len(p.chats) != 2 || !res.Complete || res.Appended != 4 {
		t.Errorf("result = %+v, chats = %d", res, len(p.chats))
	}
	first := p.chats[1].prompts[0]
	if !strings.Contains(first, `last saved chapter is "A", subsection "2"`) || !strings.Contains(first, "the closing words of A") {
		t.Errorf("reset prompt = %q", first)
	}

	all, _ := cp.LoadAll()
	var chapters []string
	for _, r := range all {
		chapters = append(chapters, r.ChapterTitle)
	}
	if got := strings.Join(chapters, ""); got != "AABBCC" {
		t.Errorf("chapters = %s", got)
	}
}

func TestAgentResetsAfterPersistentSendFailure(t *testing.T) {
	cp := newLog(t)
	seed := []Section{
		{BookTitle: "Book", ChapterTitle: "A", SubsectionTitle: "1", Content: "A part one"},
		{BookTitle: "Book", ChapterTitle: "A", SubsectionTitle: "2", Content: "A part two"},
	}
	if err := cp.Append(seed); err != nil {
		t.Fatal(err)
	}

	timer := &fakeTimer{}
	p := &fakeProvider{respond: failing(4, errors.New("connection refused"), book("A", "B", "C"))}
	res, err := newAgent(p, timer).Run(context.Background(), doc, cp)
	if err != nil {
		t.Fatal(err)
	}
	if res.Resets != 1 || len(p.chats) != 2 || !res.Complete || res.Appended != 4 {
		t.Errorf("result = %+v, chats = %d", res, len(p.chats))
	}
	if n := len(p.chats[0].prompts); n != 4 {
		t.Errorf("first chat got %d attempts, want 4", n)
	}
	if want := []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second}; !reflect.DeepEqual(timer.waits, want) {
		t.Errorf("waits = %v, want %v", timer.waits, want)
	}
	if first := p.chats[1].prompts[0]; !strings.Contains(first, `last saved chapter is "A", subsection "2"`) {
		t.Errorf("reset prompt = %q", first)
	}

	all, _ := cp.LoadAll()
	var chapters []string
	for _, r := range all {
		chapters = append(chapters, r.ChapterTitle)
	}
	if got := strings.Join(chapters, ""); got != "AABBCC" {
		t.Errorf("chapters = %s", got)
	}
}

func TestAgentTurnCap(t *testing.T) {
	n := 0
	p := &fakeProvider{respond: func(*fakeChat, string) (string, error) {
		n++
		return chapterJSON(fmt.Sprintf("Chapter %d", n)), nil
	}}
	a := newAgent(p, &fakeTimer{})
	a.MaxTurns = 5
	res, err := a.Run(context.Background(), doc, newLog(t))
	if err != nil {
		t.Fatal(err)
	}
	if res.Complete || res.Turns != 5 || res.Appended != 10 {
		t.Errorf("result = %+v", res)
	}
}

func TestAgentHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &fakeProvider{respond: book("A")}
	_, err := newAgent(p, &fakeTimer{}).Run(ctx, doc, newLog(t))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}
