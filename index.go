package esmodel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Index manages the physical-index / alias indirection for one logical
// index: template upload, versioned physical-index creation, store-side data
// migration, and atomic alias cutover. The alias always resolves to at most
// one physical index; readers see either the old index or the new one, never
// neither.
type Index struct {
	backend Backend
	mapping Mapping
	logger  *zap.Logger
}

// NewIndex creates a lifecycle manager for the mapping's logical index.
func NewIndex(backend Backend, mapping Mapping, logger *zap.Logger) (*Index, error) {
	if err := mapping.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{
		backend: backend,
		mapping: mapping,
		logger:  logger.With(zap.String("index", mapping.Index)),
	}, nil
}

// Alias returns the caller-facing stable name.
func (ix *Index) Alias() string {
	return ix.mapping.Index
}

// Pattern returns the glob all physical indices of the logical index match.
func (ix *Index) Pattern() string {
	return ix.mapping.Index + "-*"
}

// Template derives the index template from the mapping.
func (ix *Index) Template() *IndexTemplate {
	return &IndexTemplate{
		Name:          ix.mapping.Index,
		IndexPatterns: []string{ix.Pattern()},
		Template: TemplateBody{
			Mappings: ix.mappings(),
			Settings: ix.settings(),
		},
		ComposedOf: []string{},
		Priority:   1,
		Version:    ix.mapping.Version,
	}
}

func (ix *Index) mappings() map[string]any {
	mappings := map[string]any{
		"properties": ix.mapping.Schema.Properties(),
	}
	if ix.mapping.SourceEnabled != nil {
		mappings["_source"] = map[string]any{"enabled": *ix.mapping.SourceEnabled}
	}
	return mappings
}

func (ix *Index) settings() map[string]any {
	index := make(map[string]any)
	if ix.mapping.NumberOfShards > 0 {
		index["number_of_shards"] = ix.mapping.NumberOfShards
	}
	if ix.mapping.NumberOfReplicas > 0 {
		index["number_of_replicas"] = ix.mapping.NumberOfReplicas
	}
	if len(index) == 0 {
		return nil
	}
	return map[string]any{"index": index}
}

// Exist reports whether the alias currently resolves to a physical index.
func (ix *Index) Exist(ctx context.Context) (bool, error) {
	return ix.backend.IndexExists(ctx, ix.Alias())
}

type setupOptions struct {
	moveData     bool
	updateAlias  bool
	forceMigrate bool
}

// SetupOption adjusts a Setup run.
type SetupOption func(*setupOptions)

// ForceMigrate migrates even when a physical index already exists.
func ForceMigrate() SetupOption {
	return func(o *setupOptions) { o.forceMigrate = true }
}

// SkipDataMove leaves existing documents in the previous physical index.
func SkipDataMove() SetupOption {
	return func(o *setupOptions) { o.moveData = false }
}

// SkipAliasUpdate creates the new physical index without repointing the alias.
func SkipAliasUpdate() SetupOption {
	return func(o *setupOptions) { o.updateAlias = false }
}

// Setup brings the logical index into a usable state: it registers the
// derived template when none exists (an existing template is never
// overwritten here), and migrates when no physical index exists yet or when
// forced.
func (ix *Index) Setup(ctx context.Context, opts ...SetupOption) error {
	o := setupOptions{moveData: true, updateAlias: true}
	for _, opt := range opts {
		opt(&o)
	}

	exists, err := ix.backend.TemplateExists(ctx, ix.mapping.Index)
	if err != nil {
		return fmt.Errorf("failed to check index template: %w", err)
	}
	if !exists {
		if err := ix.backend.PutIndexTemplate(ctx, ix.Template()); err != nil {
			return fmt.Errorf("failed to register index template: %w", err)
		}
		ix.logger.Info("index template registered", zap.String("pattern", ix.Pattern()))
	}

	migrate := o.forceMigrate
	if !migrate {
		aliasExists, err := ix.Exist(ctx)
		if err != nil {
			return err
		}
		migrate = !aliasExists
	}
	if migrate {
		if _, err := ix.Migrate(ctx, o.moveData, o.updateAlias); err != nil {
			return err
		}
	}
	return nil
}

// Migrate creates a fresh timestamped physical index from the template,
// optionally copies the current data forward, and optionally repoints the
// alias. The alias cutover is a single atomic request: the remove and add
// actions are applied together, so the alias never resolves to zero or to
// two indices. Returns the new physical index name.
func (ix *Index) Migrate(ctx context.Context, moveData, updateAlias bool) (string, error) {
	now := time.Now().UTC()
	stamp := now.Format("20060102-150405") + fmt.Sprintf("%06d", now.Nanosecond()/1000)
	next := strings.Replace(ix.Pattern(), "*", stamp, 1)

	created, err := ix.backend.CreateIndex(ctx, next)
	if err != nil {
		return "", fmt.Errorf("failed to create physical index: %w", err)
	}

	if moveData {
		if err := ix.backend.Reindex(ctx, ix.Alias(), next); err != nil {
			return "", fmt.Errorf("failed to move data: %w", err)
		}
		if err := ix.backend.RefreshIndex(ctx, next); err != nil {
			return "", fmt.Errorf("failed to refresh new index: %w", err)
		}
	}

	if updateAlias {
		actions := []AliasAction{
			{Remove: &AliasTarget{Alias: ix.Alias(), Index: ix.Pattern()}},
			{Add: &AliasTarget{Alias: ix.Alias(), Index: next}},
		}
		if err := ix.backend.UpdateAliases(ctx, actions); err != nil {
			return "", fmt.Errorf("failed to repoint alias: %w", err)
		}
	}

	ix.logger.Info("index migrated",
		zap.String("physical", created),
		zap.Bool("data_moved", moveData),
		zap.Bool("alias_updated", updateAlias),
	)
	return created, nil
}

// Delete resolves the alias and removes all physical indices concurrently.
// An unresolvable alias means there is nothing to delete, which is success.
func (ix *Index) Delete(ctx context.Context) error {
	physical, err := ix.backend.GetAlias(ctx, ix.Alias())
	if err != nil {
		return fmt.Errorf("failed to resolve alias: %w", err)
	}
	if len(physical) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, name := range physical {
		name := name
		g.Go(func() error {
			return ix.backend.DeleteIndex(ctx, name)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to delete physical indices: %w", err)
	}
	ix.logger.Info("physical indices deleted", zap.Strings("indices", physical))
	return nil
}
