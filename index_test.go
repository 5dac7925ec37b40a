package esmodel

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newShirtIndex(t *testing.T, backend Backend) *Index {
	t.Helper()
	index, err := NewIndex(backend, shirtMapping(), nil)
	require.NoError(t, err)
	return index
}

func TestIndexNaming(t *testing.T) {
	index := newShirtIndex(t, newFakeBackend())
	assert.Equal(t, "shirts", index.Alias())
	assert.Equal(t, "shirts-*", index.Pattern())
}

func TestIndexTemplateDerivation(t *testing.T) {
	index := newShirtIndex(t, newFakeBackend())

	template := index.Template()
	assert.Equal(t, "shirts", template.Name)
	assert.Equal(t, []string{"shirts-*"}, template.IndexPatterns)
	assert.Equal(t, []string{}, template.ComposedOf)
	assert.Equal(t, 1, template.Priority)
	assert.Equal(t, 1, template.Version)

	properties, ok := template.Template.Mappings["properties"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, properties, 4)
	assert.Equal(t, map[string]any{"type": "date"}, properties["timestamp"])
	assert.Equal(t, map[string]any{"type": "keyword"}, properties["brand"])

	source, ok := template.Template.Mappings["_source"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, source["enabled"])

	settings, ok := template.Template.Settings["index"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1, settings["number_of_shards"])
	assert.Equal(t, 1, settings["number_of_replicas"])
}

func TestIndexTemplateOmitsUnsetSettings(t *testing.T) {
	mapping := shirtMapping()
	mapping.NumberOfShards = 0
	mapping.NumberOfReplicas = 0
	mapping.SourceEnabled = nil

	index, err := NewIndex(newFakeBackend(), mapping, nil)
	require.NoError(t, err)

	template := index.Template()
	assert.Nil(t, template.Template.Settings)
	assert.NotContains(t, template.Template.Mappings, "_source")
}

func TestSetupFreshIndex(t *testing.T) {
	backend := newFakeBackend()
	index := newShirtIndex(t, backend)

	exists, err := index.Exist(context.Background())
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, index.Setup(context.Background()))

	// Template registered and alias resolving to exactly one physical index.
	assert.Contains(t, backend.templates, "shirts")
	physical, err := backend.GetAlias(context.Background(), "shirts")
	require.NoError(t, err)
	require.Len(t, physical, 1)
	assert.True(t, strings.HasPrefix(physical[0], "shirts-"))

	exists, err = index.Exist(context.Background())
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSetupIsIdempotent(t *testing.T) {
	backend := newFakeBackend()
	index := newShirtIndex(t, backend)

	require.NoError(t, index.Setup(context.Background()))
	first, err := backend.GetAlias(context.Background(), "shirts")
	require.NoError(t, err)

	require.NoError(t, index.Setup(context.Background()))
	second, err := backend.GetAlias(context.Background(), "shirts")
	require.NoError(t, err)

	assert.Equal(t, first, second, "a healthy index is left alone")
	assert.Equal(t, 1, backend.putTemplates, "an existing template is not overwritten")
}

func TestForcedMigrateRepointsAlias(t *testing.T) {
	backend := newFakeBackend()
	index := newShirtIndex(t, backend)

	require.NoError(t, index.Setup(context.Background()))
	before, err := backend.GetAlias(context.Background(), "shirts")
	require.NoError(t, err)
	require.Len(t, before, 1)

	// Physical index names carry a microsecond stamp.
	time.Sleep(2 * time.Millisecond)

	require.NoError(t, index.Setup(context.Background(), ForceMigrate()))
	after, err := backend.GetAlias(context.Background(), "shirts")
	require.NoError(t, err)
	require.Len(t, after, 1, "the alias always resolves to exactly one index")
	assert.NotEqual(t, before[0], after[0])
}

func TestMigrateMovesDataForward(t *testing.T) {
	backend := newFakeBackend()
	mapper := newShirtMapper(t, backend)
	index := newShirtIndex(t, backend)

	require.NoError(t, index.Setup(context.Background()))

	doc := &shirt{Timestamp: time.Now(), Brand: "gucci", Color: "red"}
	id, err := mapper.Save(context.Background(), doc)
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)

	next, err := index.Migrate(context.Background(), true, true)
	require.NoError(t, err)

	assert.Contains(t, backend.docs[next], id)
	assert.Contains(t, backend.refreshed, next, "moved data is made searchable before cutover")
}

func TestMigrateSkipAliasUpdate(t *testing.T) {
	backend := newFakeBackend()
	index := newShirtIndex(t, backend)

	require.NoError(t, index.Setup(context.Background()))
	before, err := backend.GetAlias(context.Background(), "shirts")
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)

	next, err := index.Migrate(context.Background(), false, false)
	require.NoError(t, err)
	assert.True(t, backend.indices[next])

	after, err := backend.GetAlias(context.Background(), "shirts")
	require.NoError(t, err)
	assert.Equal(t, before, after, "the alias still points at the old index")
}

func TestIndexDelete(t *testing.T) {
	backend := newFakeBackend()
	index := newShirtIndex(t, backend)

	require.NoError(t, index.Setup(context.Background()))
	time.Sleep(2 * time.Millisecond)
	// A second physical index from a migration that skipped the cutover,
	// attached to the alias by hand.
	next, err := index.Migrate(context.Background(), false, false)
	require.NoError(t, err)
	require.NoError(t, backend.UpdateAliases(context.Background(), []AliasAction{
		{Add: &AliasTarget{Alias: index.Alias(), Index: next}},
	}))

	require.NoError(t, index.Delete(context.Background()))
	assert.Empty(t, backend.indices)

	exists, err := index.Exist(context.Background())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIndexDeleteUnknownAliasIsSuccess(t *testing.T) {
	index := newShirtIndex(t, newFakeBackend())
	assert.NoError(t, index.Delete(context.Background()))
}
