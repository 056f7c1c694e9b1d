package advisory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mensajemagico/internal/domain"
)

func mustDefaultEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Default()
	require.NoError(t, err)
	return e
}

func TestWarning(t *testing.T) {
	e := mustDefaultEngine(t)

	msg, ok := e.Warning("ex", domain.ToneRomantic)
	assert.True(t, ok)
	assert.NotEmpty(t, msg)

	_, ok = e.Warning("friend", domain.ToneFormal)
	assert.False(t, ok, "friend/formal has no entry")

	msg, ok = e.Warning("family", domain.ToneSarcastic)
	assert.True(t, ok)
	assert.NotEmpty(t, msg)

	_, ok = e.Warning("stranger", domain.ToneRomantic)
	assert.False(t, ok, "unknown relationship")
}

func TestWarningNormalizesRelationship(t *testing.T) {
	e := mustDefaultEngine(t)

	_, ok := e.Warning("  EX ", domain.ToneRomantic)
	assert.True(t, ok)

	_, ok = e.Warning("Jefe", domain.ToneFlirty)
	assert.True(t, ok, "spanish alias resolves to boss")
}

func TestFallback(t *testing.T) {
	e := mustDefaultEngine(t)

	fb, ok := e.Fallback("boss")
	require.True(t, ok)
	assert.True(t, fb.Contains(domain.ToneFormal))
	assert.NotEmpty(t, fb.Message)

	fb, ok = e.Fallback("parents")
	require.True(t, ok)
	assert.NotEmpty(t, fb.Tones)

	_, ok = e.Fallback("friend")
	assert.False(t, ok)
}

func TestFallbackReturnsCopy(t *testing.T) {
	e := mustDefaultEngine(t)

	fb, ok := e.Fallback("boss")
	require.True(t, ok)
	fb.Tones[0] = domain.ToneSarcastic

	again, _ := e.Fallback("boss")
	assert.Equal(t, domain.ToneFormal, again.Tones[0])
}

func TestAdvise(t *testing.T) {
	e := mustDefaultEngine(t)

	adv := e.Advise("boss", domain.ToneFlirty)
	assert.True(t, adv.HasWarning())
	require.NotNil(t, adv.Fallback)
	assert.True(t, adv.Fallback.Contains(domain.ToneFormal))

	adv = e.Advise("boss", domain.ToneFormal)
	assert.False(t, adv.HasWarning())
	assert.Nil(t, adv.Fallback, "fallback only accompanies a warning")

	adv = e.Advise("friend", domain.ToneRomantic)
	assert.True(t, adv.HasWarning())
	assert.Nil(t, adv.Fallback)
}

func TestRelationships(t *testing.T) {
	rels := mustDefaultEngine(t).Relationships()
	assert.Contains(t, rels, "boss")
	assert.Contains(t, rels, "ex")
	assert.IsIncreasing(t, rels)
}

func TestParseRejectsUnknownTone(t *testing.T) {
	_, err := Parse([]byte("warnings:\n  ex:\n    épico: nope\n"))
	assert.ErrorIs(t, err, domain.ErrUnknownTone)

	_, err = Parse([]byte("fallbacks:\n  boss:\n    tones: [épico]\n"))
	assert.ErrorIs(t, err, domain.ErrUnknownTone)
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("warnings: [unterminated"))
	assert.Error(t, err)
}

func TestLoadEngine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
warnings:
  Vecino:
    sarcástico: "Cuidado con el sarcasmo."
fallbacks:
  vecino:
    tones: [neutral]
    message: "Mejor neutral."
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	e, err := LoadEngine(path)
	require.NoError(t, err)

	msg, ok := e.Warning("vecino", domain.ToneSarcastic)
	assert.True(t, ok)
	assert.Equal(t, "Cuidado con el sarcasmo.", msg)

	_, ok = e.Warning("ex", domain.ToneRomantic)
	assert.False(t, ok, "override replaces the embedded rules")
}

func TestLoadEngineEmptyPathUsesDefault(t *testing.T) {
	e, err := LoadEngine("")
	require.NoError(t, err)
	assert.Same(t, mustDefaultEngine(t), e)
}

func TestLoadEngineMissingFile(t *testing.T) {
	_, err := LoadEngine(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
