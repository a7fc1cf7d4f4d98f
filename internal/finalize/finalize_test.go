package finalize

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/thywilljoshua/bookingest/internal/manifest"
	"github.com/thywilljoshua/bookingest/internal/structure"
)

var book = manifest.Entry{Filename: "b.pdf", Title: "The Book", Year: 1901, License: "public domain", Source: "archive"}

func TestFinalizeResolvesPlaceholders(t *testing.T) {
	images := []string{"/img/b/b-000.png", "/img/b/b-001.png", "/img/b/b-010.png"}
	tests := []struct {
		name       string
		content    string
		want       string
		wantImages []string
	}{
		{
			name:       "in range",
			content:    "See IMAGE_PLACEHOLDER_1 and IMAGE_PLACEHOLDER_3.",
			want:       "See ![Figure 1](/images/b/b-000.png) and ![Figure 3](/images/b/b-010.png).",
			wantImages: []string{"/images/b/b-000.png", "/images/b/b-010.png"},
		},
		{
			name:    "overflow left intact",
			content: "Missing IMAGE_PLACEHOLDER_99 here",
			want:    "Missing IMAGE_PLACEHOLDER_99 here",
		},
		{
			name:    "zero is not an image",
			content: "IMAGE_PLACEHOLDER_0",
			want:    "IMAGE_PLACEHOLDER_0",
		},
		{
			name:    "no placeholders",
			content: "plain text",
			want:    "plain text",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Finalize([]structure.Section{{ChapterTitle: "C", Content: tt.content}}, images, book, "/images/b")
			if len(got) != 1 {
				t.Fatalf("got %d sections", len(got))
			}
			if got[0].Content != tt.want {
				t.Errorf("content = %q, want %q", got[0].Content, tt.want)
			}
			if !reflect.DeepEqual(got[0].Images, tt.wantImages) {
				t.Errorf("images = %v, want %v", got[0].Images, tt.wantImages)
			}
		})
	}
}

func TestFinalizeAttachesMetadata(t *testing.T) {
	records := []structure.Section{
		{BookTitle: "model title", ChapterTitle: "One", SubsectionTitle: "a", Content: "x"},
		{ChapterTitle: "One", SubsectionTitle: "b", Content: "y"},
	}
	got := Finalize(records, nil, book, "")
	if len(got) != len(records) {
		t.Fatalf("got %d sections, want %d", len(got), len(records))
	}
	for _, s := range got {
		if s.BookTitle != "The Book" || s.Year != 1901 || s.License != "public domain" || s.Source != "archive" {
			t.Errorf("metadata not attached: %+v", s)
		}
	}
}

func TestImageRef(t *testing.T) {
	tests := []struct{ prefix, file, want string }{
		{"", "/x/a.png", "a.png"},
		{"images/b", "/x/a.png", "images/b/a.png"},
		{"https://cdn.example.com/b/", "/x/a.png", "https://cdn.example.com/b/a.png"},
	}
	for _, tt := range tests {
		if got := imageRef(tt.prefix, tt.file); got != tt.want {
			t.Errorf("imageRef(%q, %q) = %q, want %q", tt.prefix, tt.file, got, tt.want)
		}
	}
}

func TestWriteLoad(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out", "b.json")
	in := Finalize([]structure.Section{{ChapterTitle: "One", Content: "IMAGE_PLACEHOLDER_1"}}, []string{"b-000.png"}, book, "img")
	if err := Write(dst, in); err != nil {
		t.Fatal(err)
	}
	got, err := Load(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Errorf("got %+v, want %+v", got, in)
	}
	entries, _ := os.ReadDir(filepath.Dir(dst))
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestWriteEmptyIsArray(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "b.json")
	if err := Write(dst, nil); err != nil {
		t.Fatal(err)
	}
	b, _ := os.ReadFile(dst)
	if strings.TrimSpace(string(b)) != "[]" {
		t.Errorf("got %q", b)
	}
}

func TestOutline(t *testing.T) {
	sections := []Section{
		{ChapterTitle: "Chapter 1", SubsectionTitle: "Intro", Content: "abc"},
		{ChapterTitle: "Chapter 1", SubsectionTitle: "More", Content: "de", Images: []string{"a.png"}},
		{ChapterTitle: "Chapter 2", SubsectionTitle: "", Content: "f"},
	}
	got := Outline(sections)
	if len(got) != 2 {
		t.Fatalf("got %d chapters", len(got))
	}
	if got[0].Slug != "chapter-1" || len(got[0].Subsections) != 2 || got[0].Subsections[1].Index != 1 {
		t.Errorf("chapter 1 = %+v", got[0])
	}
	if got[1].Subsections[0].Index != 2 {
		t.Errorf("chapter 2 = %+v", got[1])
	}

	md := RenderOutline("The Book", got)
	for _, want := range []string{"# The Book", "- [Chapter 1](#chapter-1)", "  - [More](#more) (1 images)", "- [Chapter 2](#chapter-2)"} {
		if !strings.Contains(md, want) {
			t.Errorf("outline missing %q:\n%s", want, md)
		}
	}
}
