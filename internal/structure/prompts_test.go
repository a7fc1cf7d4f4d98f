package structure

import (
	"strings"
	"testing"
)

func TestPromptsAskForWholeChapters(t *testing.T) {
	last := Section{ChapterTitle: "A", SubsectionTitle: "2", Content: "end of A"}
	prompts := map[string]string{
		"fresh":  freshPrompt(doc),
		"next":   nextPrompt(doc),
		"resume": resumePrompt(last, doc),
	}
	for name, p := range prompts {
		if !strings.Contains(p, "Include every subsection of that chapter.") {
			t.Errorf("%s prompt does not ask for every subsection:\n%s", name, p)
		}
		if !strings.HasSuffix(p, doc) {
			t.Errorf("%s prompt does not end with the book text", name)
		}
	}
	if !strings.Contains(prompts["fresh"], "first chapter") {
		t.Errorf("fresh prompt = %q", prompts["fresh"])
	}
}
