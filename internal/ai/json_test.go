package ai

import (
	"errors"
	"fmt"
	"testing"
)

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{
			name: "bare array",
			in:   `[{"chapterTitle":"One"}]`,
			want: `[{"chapterTitle":"One"}]`,
			ok:   true,
		},
		{
			name: "fenced json",
			in:   "Here you go:\n```json\n[{\"a\":1}]\n```\nDone.",
			want: `[{"a":1}]`,
			ok:   true,
		},
		{
			name: "array with surrounding prose",
			in:   `The chapter is [{"a":"x"}] as requested.`,
			want: `[{"a":"x"}]`,
			ok:   true,
		},
		{
			name: "brackets inside strings",
			in:   `[{"content":"see [1] and ]"}] trailing ]`,
			want: `[{"content":"see [1] and ]"}]`,
			ok:   true,
		},
		{
			name: "escaped quote inside string",
			in:   `[{"content":"say \"[hi\""}]`,
			want: `[{"content":"say \"[hi\""}]`,
			ok:   true,
		},
		{
			name: "empty array",
			in:   "```\n[]\n```",
			want: `[]`,
			ok:   true,
		},
		{
			name: "bracketed prose before the array",
			in:   "[Note] chapter follows: [{\"a\":1}]",
			want: `[{"a":1}]`,
			ok:   true,
		},
		{
			name: "array of scalars is not a section list",
			in:   `[1, 2]`,
			ok:   false,
		},
		{
			name: "no array",
			in:   `{"sections": 1}`,
			ok:   false,
		},
		{
			name: "unbalanced",
			in:   `[{"a":1}`,
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSONArray(tt.in)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsRateLimited(t *testing.T) {
	wrapped := fmt.Errorf("gemini: quota: %w", ErrRateLimited)
	if !IsRateLimited(wrapped) {
		t.Error("expected wrapped ErrRateLimited to be detected")
	}
	if IsRateLimited(errors.New("connection reset")) {
		t.Error("plain error should not be a rate limit")
	}
}

func TestMapGeminiErrorStatusText(t *testing.T) {
	err := mapGeminiError(errors.New("Error 429, Message: quota exceeded, Status: RESOURCE_EXHAUSTED"))
	if !IsRateLimited(err) {
		t.Errorf("expected rate limit, got %v", err)
	}
	err = mapGeminiError(errors.New("Error 500, Message: internal"))
	if IsRateLimited(err) {
		t.Errorf("unexpected rate limit for %v", err)
	}
}
