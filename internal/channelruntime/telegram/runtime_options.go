package telegram

import (
	"strings"
	"time"
)

// RunOptions is the caller-facing configuration for the bot runtime loop.
type RunOptions struct {
	BotToken       string
	BaseURL        string
	AdminIDs       []int64
	OwnerID        int64
	AllowedChatIDs []int64
	PollTimeout    time.Duration
	StaleAfter     time.Duration
	DebounceDelay  time.Duration
	HealthListen   string
}

type runtimeLoopOptions struct {
	BotToken       string
	BaseURL        string
	AdminIDs       []int64
	OwnerID        int64
	AllowedChatIDs []int64
	PollTimeout    time.Duration
	StaleAfter     time.Duration
	DebounceDelay  time.Duration
	HealthListen   string
}

func resolveRuntimeLoopOptions(opts RunOptions) runtimeLoopOptions {
	out := runtimeLoopOptions{
		BotToken:       strings.TrimSpace(opts.BotToken),
		BaseURL:        strings.TrimSpace(opts.BaseURL),
		AdminIDs:       normalizeIDs(opts.AdminIDs),
		OwnerID:        opts.OwnerID,
		AllowedChatIDs: normalizeIDs(opts.AllowedChatIDs),
		PollTimeout:    opts.PollTimeout,
		StaleAfter:     opts.StaleAfter,
		DebounceDelay:  opts.DebounceDelay,
		HealthListen:   strings.TrimSpace(opts.HealthListen),
	}
	return normalizeRuntimeLoopOptions(out)
}

func normalizeRuntimeLoopOptions(opts runtimeLoopOptions) runtimeLoopOptions {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.telegram.org"
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30 * time.Second
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 30 * time.Second
	}
	if opts.DebounceDelay <= 0 {
		opts.DebounceDelay = 800 * time.Millisecond
	}
	return opts
}

// normalizeIDs drops zero entries and duplicates, preserving order.
func normalizeIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
