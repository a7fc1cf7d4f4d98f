package structure

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// resumeTailChars is how much of the last saved content is quoted back to the
// model when a conversation is rebuilt from the log.
const resumeTailChars = 200

func systemInstruction(bookTitle string) string {
	title := bookTitle
	if title == "" {
		title = "(unknown)"
	}
	return `You are a book structuring assistant. You receive the full text of a book and return it one chapter at a time.

Book title: ` + title + `

Return ONLY a JSON array - no markdown code blocks, no explanations. Each element is one subsection of the current chapter:
[
  {"bookTitle": "...", "chapterTitle": "...", "subsectionTitle": "...", "content": "..."}
]

CRITICAL RULES:
- Return exactly ONE chapter per reply, in reading order
- chapterTitle: the chapter heading as printed in the book, identical for every subsection of the chapter
- subsectionTitle: the subsection heading, or an empty string if the chapter has no subsections
- content: the COMPLETE text of the subsection, copied verbatim, never summarized
- Keep every IMAGE_PLACEHOLDER_<n> token exactly where it appears in the text
- Skip front matter (copyright pages, tables of contents, indexes)
- When there are no chapters left, reply with ` + CompletionSentinel + ` and nothing else
`
}

func withSource(instruction, doc string) string {
	return instruction + "\n\n--- BOOK TEXT ---\n" + doc
}

// freshPrompt starts the book from its first chapter.
func freshPrompt(doc string) string {
	return withSource("Return the first chapter of the book. Include every subsection of that chapter.", doc)
}

// nextPrompt continues an intact conversation.
func nextPrompt(doc string) string {
	return withSource("Return the next chapter, the one immediately after the chapter you returned last. Include every subsection of that chapter. Reply "+CompletionSentinel+" if there is none.", doc)
}

// resumePrompt rebuilds the position in a fresh conversation from the last
// durable record.
func resumePrompt(last Section, doc string) string {
	instruction := fmt.Sprintf(
		"The last saved chapter is %q, subsection %q. That subsection ends with:\n\"...%s\"\n\nReturn the chapter immediately after %q. Include every subsection of that chapter. Reply %s if there is none.",
		last.ChapterTitle, last.SubsectionTitle, tail(last.Content, resumeTailChars), last.ChapterTitle, CompletionSentinel,
	)
	return withSource(instruction, doc)
}

// tail returns at most n trailing runes of s.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[len(r)-n:])
}
