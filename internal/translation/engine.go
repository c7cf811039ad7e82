package translation

import (
	"LingoChat/internal/detect"
	"LingoChat/internal/repo"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Engine routes translation requests to lazily loaded translators, one per
// model size. Translate never fails: on any error the original text is
// returned.
type Engine struct {
	loader      Loader
	memory      Memory
	defaultSize ModelSize
	logger      *zap.Logger

	group     singleflight.Group
	mu        sync.RWMutex
	instances map[ModelSize]Translator
}

type EngineOption func(*Engine)

// WithDefaultModel sets the size used when a request names none or an
// unknown one.
func WithDefaultModel(size string) EngineOption {
	return func(e *Engine) {
		e.defaultSize = ParseModelSize(size)
	}
}

// WithMemory enables the translation memory.
func WithMemory(m Memory) EngineOption {
	return func(e *Engine) {
		e.memory = m
	}
}

func NewEngine(loader Loader, logger *zap.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		loader:      loader,
		defaultSize: DefaultModelSize,
		logger:      logger,
		instances:   make(map[ModelSize]Translator),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Translate(ctx context.Context, text, sourceLang, targetLang, modelSize string) Result {
	size := parseModelSize(modelSize, e.defaultSize)
	res := Result{
		Translated: text,
		SourceLang: sourceLang,
		TargetLang: targetLang,
		ModelSize:  size,
	}
	if strings.TrimSpace(text) == "" {
		return res
	}

	srcTag := detect.ToModelTag(sourceLang)
	tgtTag := detect.ToModelTag(targetLang)
	if srcTag == tgtTag {
		return res
	}

	memSrc, memTgt := detect.Normalize(sourceLang), detect.Normalize(targetLang)
	if cached, ok := e.lookupMemory(ctx, text, memSrc, memTgt); ok {
		res.Translated = cached
		return res
	}

	t, err := e.translator(ctx, size)
	if err != nil {
		e.logger.Error("translator unavailable, returning original text",
			zap.String("model_size", string(size)),
			zap.Error(err),
		)
		return res
	}

	out, err := t.Translate(ctx, text, srcTag, tgtTag)
	if err != nil {
		e.logger.Error("translation failed, returning original text",
			zap.String("model_size", string(size)),
			zap.String("source_lang", srcTag),
			zap.String("target_lang", tgtTag),
			zap.Error(err),
		)
		return res
	}
	if strings.TrimSpace(out) == "" {
		e.logger.Warn("translator returned empty output",
			zap.String("source_lang", srcTag),
			zap.String("target_lang", tgtTag),
		)
		return res
	}

	res.Translated = out
	e.recordMemory(ctx, text, out, memSrc, memTgt)
	return res
}

// translator returns the live instance for size, loading it at most once
// across concurrent callers. Failed loads are not cached.
func (e *Engine) translator(ctx context.Context, size ModelSize) (Translator, error) {
	e.mu.RLock()
	t, ok := e.instances[size]
	e.mu.RUnlock()
	if ok {
		return t, nil
	}

	v, err, _ := e.group.Do(string(size), func() (interface{}, error) {
		e.mu.RLock()
		t, ok := e.instances[size]
		e.mu.RUnlock()
		if ok {
			return t, nil
		}

		e.logger.Info("loading translation model",
			zap.String("model_size", string(size)),
			zap.String("model", size.ModelName()),
		)
		// the load is shared by every waiter, so it must outlive the first caller
		loaded, err := e.loader.Load(context.WithoutCancel(ctx), size)
		if err != nil {
			return nil, fmt.Errorf("load model %s: %w", size, err)
		}
		if loaded == nil {
			return nil, errors.New("loader returned no translator")
		}

		e.mu.Lock()
		e.instances[size] = loaded
		e.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Translator), nil
}

// Loaded lists the model sizes with a live translator.
func (e *Engine) Loaded() []ModelSize {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]ModelSize, 0, len(e.instances))
	for size := range e.instances {
		out = append(out, size)
	}
	return out
}

func (e *Engine) lookupMemory(ctx context.Context, text, sourceLang, targetLang string) (string, bool) {
	if e.memory == nil {
		return "", false
	}
	entry, err := e.memory.Lookup(ctx, text, sourceLang, targetLang)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			e.logger.Warn("translation memory lookup failed", zap.Error(err))
		}
		return "", false
	}
	if entry == nil || entry.Translated == "" {
		return "", false
	}
	return entry.Translated, true
}

func (e *Engine) recordMemory(ctx context.Context, text, translated, sourceLang, targetLang string) {
	if e.memory == nil {
		return
	}
	if err := e.memory.Record(ctx, text, translated, sourceLang, targetLang); err != nil {
		e.logger.Warn("translation memory record failed", zap.Error(err))
	}
}
