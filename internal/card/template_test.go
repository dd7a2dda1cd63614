package card

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/deadlinebot/internal/config"
)

func writeTemplate(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".json"), []byte(body), 0o644))
}

func TestTemplatesLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "greeting", `{"type": "AdaptiveCard", "body": []}`)
	writeTemplate(t, dir, "notes", `this is not json`)

	_, err := NewTemplates(&config.CardEnv{TemplateDir: dir})
	require.Error(t, err, "invalid template JSON must fail the load")

	require.NoError(t, os.Remove(filepath.Join(dir, "notes.json")))
	templates, err := NewTemplates(&config.CardEnv{TemplateDir: dir})
	require.NoError(t, err)

	card, err := templates.Get("greeting")
	require.NoError(t, err)
	assert.Equal(t, "AdaptiveCard", card["type"])
}

func TestTemplatesGetReturnsCopy(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "greeting", `{"type": "AdaptiveCard", "body": [{"type": "TextBlock", "text": "hi"}]}`)

	templates, err := NewTemplates(&config.CardEnv{TemplateDir: dir})
	require.NoError(t, err)

	first, err := templates.Get("greeting")
	require.NoError(t, err)
	first["type"] = "mutated"
	first["body"].([]any)[0].(map[string]any)["text"] = "mutated"

	second, err := templates.Get("greeting")
	require.NoError(t, err)
	assert.Equal(t, "AdaptiveCard", second["type"])
	assert.Equal(t, "hi", second["body"].([]any)[0].(map[string]any)["text"])
}

func TestTemplatesWatchReload(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "greeting", `{"version": "1"}`)

	templates, err := NewTemplates(&config.CardEnv{TemplateDir: dir})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = templates.Watch(ctx)
	}()

	// Give the watcher a moment to register before rewriting the file.
	time.Sleep(100 * time.Millisecond)
	writeTemplate(t, dir, "greeting", `{"version": "2"}`)

	assert.Eventually(t, func() bool {
		card, err := templates.Get("greeting")
		return err == nil && card["version"] == "2"
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop on context cancel")
	}
}
