package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
)

// Keys used by the tutorial. Values are always strings.
const (
	KeyCurrentChapter    = "golem_current_chapter"
	KeyCompletedChapters = "golem_completed_chapters"
	KeyAvatarSeed        = "golem_dna"
	KeyLocale            = "golem_language"
	KeyIntroSeen         = "golem_intro_seen"
)

// DefaultLocale is the locale used when none is stored.
const DefaultLocale = "es"

// CoreKeys lists every key Preferences manages.
var CoreKeys = []string{
	KeyCurrentChapter,
	KeyCompletedChapters,
	KeyAvatarSeed,
	KeyLocale,
	KeyIntroSeen,
}

// Preferences gives typed access to the tutorial's keys.
//
// Reads never fail: a missing, unreadable or corrupt value yields the key's
// default and the underlying ReadError is logged at debug level.
// Writes return errors; callers decide whether to surface them.
type Preferences struct {
	kv     KV
	logger *slog.Logger
}

// NewPreferences wraps kv. A nil logger uses slog.Default().
func NewPreferences(kv KV, logger *slog.Logger) *Preferences {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preferences{kv: kv, logger: logger}
}

// KV returns the underlying store.
func (p *Preferences) KV() KV {
	return p.kv
}

// ChapterIndex returns the stored chapter index (default 0).
// Negative values are treated as corrupt. Range checks against the
// curriculum belong to the caller.
func (p *Preferences) ChapterIndex(ctx context.Context) int {
	raw, ok := p.read(ctx, KeyCurrentChapter)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err == nil && n < 0 {
		err = fmt.Errorf("negative index")
	}
	if err != nil {
		p.absorb(&ReadError{Key: KeyCurrentChapter, Value: raw, Err: err})
		return 0
	}
	return n
}

// SetChapterIndex stores the current chapter index.
func (p *Preferences) SetChapterIndex(ctx context.Context, index int) error {
	return p.kv.Set(ctx, KeyCurrentChapter, strconv.Itoa(index))
}

// Completed returns the stored completed chapter ids (default empty).
// Duplicates in the stored array are dropped, first occurrence wins.
func (p *Preferences) Completed(ctx context.Context) []string {
	raw, ok := p.read(ctx, KeyCompletedChapters)
	if !ok {
		return []string{}
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		p.absorb(&ReadError{Key: KeyCompletedChapters, Value: raw, Err: err})
		return []string{}
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// SetCompleted stores the completed chapter ids as a JSON array.
func (p *Preferences) SetCompleted(ctx context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode completed chapters: %w", err)
	}
	return p.kv.Set(ctx, KeyCompletedChapters, string(data))
}

// AvatarSeed returns the stored avatar seed and whether one exists.
func (p *Preferences) AvatarSeed(ctx context.Context) (string, bool) {
	raw, ok := p.read(ctx, KeyAvatarSeed)
	if !ok || raw == "" {
		return "", false
	}
	return raw, true
}

// SetAvatarSeed stores the avatar seed.
func (p *Preferences) SetAvatarSeed(ctx context.Context, seed string) error {
	return p.kv.Set(ctx, KeyAvatarSeed, seed)
}

// RemoveAvatarSeed forgets the avatar seed.
func (p *Preferences) RemoveAvatarSeed(ctx context.Context) error {
	return p.kv.Remove(ctx, KeyAvatarSeed)
}

// Locale returns the stored locale tag (default DefaultLocale).
func (p *Preferences) Locale(ctx context.Context) string {
	raw, ok := p.read(ctx, KeyLocale)
	if !ok || raw == "" {
		return DefaultLocale
	}
	return raw
}

// SetLocale stores the locale tag.
func (p *Preferences) SetLocale(ctx context.Context, locale string) error {
	return p.kv.Set(ctx, KeyLocale, locale)
}

// IntroSeen reports whether the onboarding screen was acknowledged.
func (p *Preferences) IntroSeen(ctx context.Context) bool {
	raw, ok := p.read(ctx, KeyIntroSeen)
	return ok && raw == "true"
}

// SetIntroSeen records that onboarding was acknowledged.
func (p *Preferences) SetIntroSeen(ctx context.Context) error {
	return p.kv.Set(ctx, KeyIntroSeen, "true")
}

// Reset clears the whole backend.
func (p *Preferences) Reset(ctx context.Context) error {
	if err := p.kv.Clear(ctx); err != nil {
		return fmt.Errorf("reset preferences: %w", err)
	}
	return nil
}

func (p *Preferences) read(ctx context.Context, key string) (string, bool) {
	raw, ok, err := p.kv.Get(ctx, key)
	if err != nil {
		p.absorb(&ReadError{Key: key, Err: err})
		return "", false
	}
	return raw, ok
}

func (p *Preferences) absorb(err *ReadError) {
	p.logger.Debug("stored value replaced by default", "key", err.Key, "error", err)
}
