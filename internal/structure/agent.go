package structure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/thywilljoshua/bookingest/internal/ai"
)

// ErrNoCheckpoint is returned when a conversation fails before anything was
// logged, leaving no position to resume from.
var ErrNoCheckpoint = errors.New("no checkpoint to resume from")

const (
	DefaultMaxTurns      = 50
	DefaultMaxRetries    = 3
	DefaultBaseBackoff   = 5 * time.Second
	DefaultRateLimitWait = 65 * time.Second
)

// Agent drives one book through the chapter-by-chapter conversation.
type Agent struct {
	Provider  ai.Provider
	BookTitle string

	MaxTurns      int
	MaxRetries    int
	BaseBackoff   time.Duration
	RateLimitWait time.Duration

	// Timer replaces the wall clock between retries; nil uses real time.
	Timer  retry.Timer
	Logger *slog.Logger
}

// Result summarizes a Run.
type Result struct {
	Turns    int
	Appended int
	Resets   int
	Complete bool
	Reason   string
}

// Run structures doc into the checkpoint log. It resumes from the last logged
// record when the log is not empty. Hitting the turn cap returns a result with
// Complete unset and a nil error.
func (a *Agent) Run(ctx context.Context, doc string, cp *Log) (Result, error) {
	log := a.logger().With("checkpoint", cp.Path())
	var res Result

	last, err := cp.Last()
	if err != nil {
		return res, err
	}
	prompt := freshPrompt(doc)
	if last != nil {
		log.Info("resuming from checkpoint", "chapter", last.ChapterTitle, "subsection", last.SubsectionTitle)
		prompt = resumePrompt(*last, doc)
	}

	var chat ai.Chat
	for res.Turns < a.maxTurns() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if chat == nil {
			chat, err = a.Provider.NewChat(ctx, systemInstruction(a.BookTitle))
			if err != nil {
				return res, fmt.Errorf("failed to open chat: %w", err)
			}
		}

		res.Turns++
		reply, err := a.send(ctx, chat, prompt)
		var batch []Section
		var done bool
		if err == nil {
			batch, done, err = ParseReply(reply)
		}
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			log.Warn("resetting conversation", "turn", res.Turns, "error", err)
			prompt, err = a.resetPrompt(cp, doc, err)
			if err != nil {
				return res, err
			}
			chat = nil
			res.Resets++
			continue
		}

		if len(batch) > 0 {
			last, err := cp.Last()
			if err != nil {
				return res, err
			}
			if last != nil && sameChapter(batch[0].ChapterTitle, last.ChapterTitle) {
				log.Info("model repeated the last saved chapter, stopping", "chapter", last.ChapterTitle)
				res.Complete = true
				res.Reason = "repeated chapter"
				return res, nil
			}
			for i := range batch {
				if batch[i].BookTitle == "" {
					batch[i].BookTitle = a.BookTitle
				}
			}
			if err := cp.Append(batch); err != nil {
				return res, err
			}
			res.Appended += len(batch)
			log.Info("chapter saved", "turn", res.Turns, "chapter", batch[0].ChapterTitle, "subsections", len(batch))
		}

		if done {
			res.Complete = true
			res.Reason = "completion signal"
			return res, nil
		}
		prompt = nextPrompt(doc)
	}

	res.Reason = "turn limit reached"
	log.Warn("turn limit reached before completion", "turns", res.Turns)
	return res, nil
}

// resetPrompt derives the next prompt from the durable log alone.
func (a *Agent) resetPrompt(cp *Log, doc string, cause error) (string, error) {
	last, err := cp.Last()
	if err != nil {
		return "", err
	}
	if last == nil {
		return "", fmt.Errorf("%w: %w", ErrNoCheckpoint, cause)
	}
	return resumePrompt(*last, doc), nil
}

// send delivers one prompt, retrying transient failures.
func (a *Agent) send(ctx context.Context, chat ai.Chat, prompt string) (string, error) {
	log := a.logger()
	var reply string
	failures := 0
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(a.maxRetries() + 1)),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(error) bool { return ctx.Err() == nil }),
		retry.DelayType(func(_ uint, err error, _ *retry.Config) time.Duration {
			return a.backoff(failures, err)
		}),
		retry.OnRetry(func(_ uint, err error) {
			log.Warn("chat request failed", "attempt", failures, "rate_limited", ai.IsRateLimited(err), "error", err)
		}),
	}
	if a.Timer != nil {
		opts = append(opts, retry.WithTimer(a.Timer))
	}

	err := retry.Do(func() error {
		out, err := chat.Send(ctx, prompt)
		if err != nil {
			failures++
			return err
		}
		reply = out
		return nil
	}, opts...)
	return reply, err
}

// backoff is the wait after the n-th consecutive failure (1-based).
func (a *Agent) backoff(n int, err error) time.Duration {
	if ai.IsRateLimited(err) {
		return a.rateLimitWait()
	}
	if n < 1 {
		n = 1
	}
	return a.baseBackoff() << (n - 1)
}

func (a *Agent) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

func (a *Agent) maxTurns() int {
	if a.MaxTurns > 0 {
		return a.MaxTurns
	}
	return DefaultMaxTurns
}

func (a *Agent) maxRetries() int {
	if a.MaxRetries > 0 {
		return a.MaxRetries
	}
	return DefaultMaxRetries
}

func (a *Agent) baseBackoff() time.Duration {
	if a.BaseBackoff > 0 {
		return a.BaseBackoff
	}
	return DefaultBaseBackoff
}

func (a *Agent) rateLimitWait() time.Duration {
	if a.RateLimitWait > 0 {
		return a.RateLimitWait
	}
	return DefaultRateLimitWait
}
