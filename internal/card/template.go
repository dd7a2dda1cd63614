package card

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/kazz187/deadlinebot/internal/config"
	"github.com/kazz187/deadlinebot/pkg/cerr"
)

// Payload is a decoded Adaptive Card document. The builder only fills named
// bindings and row containers; the layout itself comes from the template
// files and is never restructured in code.
type Payload = map[string]any

// Templates loads the static card JSON documents from a directory and hands
// out deep copies so builders can never corrupt the loaded originals.
type Templates struct {
	dir string

	mu    sync.RWMutex
	cards map[string]Payload
}

func NewTemplates(env *config.CardEnv) (*Templates, error) {
	t := &Templates{
		dir:   env.TemplateDir,
		cards: make(map[string]Payload),
	}
	if err := t.loadAll(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Templates) loadAll() error {
	entries, err := os.ReadDir(t.dir)
	if err != nil {
		return cerr.NewError(cerr.Internal, "failed to read card template directory", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := t.loadFile(entry.Name()); err != nil {
			return err
		}
	}
	return nil
}

func (t *Templates) loadFile(name string) error {
	data, err := os.ReadFile(filepath.Join(t.dir, name))
	if err != nil {
		return cerr.NewError(cerr.Internal, fmt.Sprintf("failed to read card template %s", name), err)
	}
	var card Payload
	if err := json.Unmarshal(data, &card); err != nil {
		return cerr.NewError(cerr.Internal, fmt.Sprintf("card template %s is not valid JSON", name), err)
	}
	key := strings.TrimSuffix(name, ".json")
	t.mu.Lock()
	t.cards[key] = card
	t.mu.Unlock()
	slog.Info("loaded card template", "name", key)
	return nil
}

// Get returns a deep copy of the named template.
func (t *Templates) Get(name string) (Payload, error) {
	t.mu.RLock()
	card, ok := t.cards[name]
	t.mu.RUnlock()
	if !ok {
		return nil, cerr.NewError(cerr.NotFound, fmt.Sprintf("card template %s not found", name), nil)
	}
	return deepCopy(card), nil
}

// Watch reloads templates when files in the template directory change.
// It blocks until ctx is cancelled.
func (t *Templates) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create template watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(t.dir); err != nil {
		return fmt.Errorf("failed to watch template directory: %w", err)
	}

	slog.Info("card template watcher started", "dir", t.dir)
	for {
		select {
		case <-ctx.Done():
			slog.Info("card template watcher stopped")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			name := filepath.Base(event.Name)
			if !strings.HasSuffix(name, ".json") {
				continue
			}
			if err := t.loadFile(name); err != nil {
				slog.Warn("failed to reload card template", "name", name, "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("card template watcher error", "error", err)
		}
	}
}

func deepCopy(v Payload) Payload {
	return copyValue(v).(Payload)
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = copyValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return val
	}
}

var placeholderPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// populatePlaceholders replaces {{name}} markers throughout the structure
// with values from data. Unresolved markers are left intact and logged so a
// broken binding shows up in the rendered card rather than vanishing.
func populatePlaceholders(v any, data map[string]string) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = populatePlaceholders(item, data)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = populatePlaceholders(item, data)
		}
		return val
	case string:
		return placeholderPattern.ReplaceAllStringFunc(val, func(match string) string {
			key := placeholderPattern.FindStringSubmatch(match)[1]
			if replacement, ok := data[key]; ok {
				return replacement
			}
			slog.Warn("card placeholder not found in data", "placeholder", key)
			return match
		})
	default:
		return val
	}
}
