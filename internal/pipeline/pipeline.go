package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codeatlas/codeatlas/internal/embedding"
	"github.com/codeatlas/codeatlas/internal/enrich"
	"github.com/codeatlas/codeatlas/internal/graph"
	"github.com/codeatlas/codeatlas/internal/manifest"
	"github.com/codeatlas/codeatlas/internal/models"
	"github.com/codeatlas/codeatlas/internal/storage"
)

// Config holds pipeline execution settings
type Config struct {
	Workers int           // concurrent extraction workers
	Timeout time.Duration // per-file extraction timeout
	Filter  FilterConfig
}

// DefaultConfig returns default pipeline settings
func DefaultConfig() *Config {
	return &Config{
		Workers: 8,
		Timeout: 30 * time.Second,
		Filter:  DefaultFilterConfig(),
	}
}

// Pipeline runs the enrichment stages over a workspace:
// extract, filter, dedup, enrich, discover, persist.
// Graph store, scan store, and embedder are all optional; a missing
// collaborator degrades that stage instead of failing the run.
type Pipeline struct {
	config    *Config
	extractor Extractor
	filter    *RelevanceFilter
	dedup     *Deduplicator
	manifests *manifest.Resolver
	enricher  *enrich.Enricher
	discovery *Discovery
	embedder  embedding.Service
	backend   graph.Backend
	store     storage.Store
	logger    *slog.Logger
}

// Option configures optional pipeline collaborators
type Option func(*Pipeline)

// WithGraph attaches a graph store for persistence and discovery linking
func WithGraph(backend graph.Backend) Option {
	return func(p *Pipeline) { p.backend = backend }
}

// WithStore attaches scan run bookkeeping
func WithStore(store storage.Store) Option {
	return func(p *Pipeline) { p.store = store }
}

// WithEmbedder attaches an embedding service. Embedding failures are
// logged and the entity is kept without a vector.
func WithEmbedder(svc embedding.Service) Option {
	return func(p *Pipeline) { p.embedder = svc }
}

// New creates a pipeline around an extractor
func New(config *Config, extractor Extractor, opts ...Option) *Pipeline {
	if config == nil {
		config = DefaultConfig()
	}
	p := &Pipeline{
		config:    config,
		extractor: extractor,
		filter:    NewRelevanceFilter(config.Filter),
		dedup:     NewDeduplicator(),
		manifests: manifest.NewResolver(),
		enricher:  enrich.NewEnricher(),
		logger:    slog.Default().With("component", "pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.discovery = NewDiscovery(p.backend)
	return p
}

// Result holds the outcome of one pipeline run
type Result struct {
	Run      *models.ScanRun
	Entities []models.EnrichedEntity
	Errors   []error
}

// fileResult is one file's extraction output
type fileResult struct {
	path     string
	entities []models.RawEntity
}

// Run executes the full pipeline over the given source files. chunks are
// content fragments used for documentation attachment; pass nil when no
// document store is available.
func (p *Pipeline) Run(ctx context.Context, workspace string, files []string, chunks []models.Chunk) (*Result, error) {
	startTime := time.Now()

	p.logger.Info("starting scan",
		"workspace", workspace,
		"files", len(files),
		"workers", p.config.Workers,
	)

	run := &models.ScanRun{
		ID:        uuid.NewString(),
		Workspace: workspace,
		StartedAt: startTime,
	}

	// Stage 1: extraction, concurrent across files
	extracted, extractErrors := p.extractParallel(ctx, files)

	// Worker completion order is not deterministic; sort by path so the
	// rest of the pipeline sees a stable entity order.
	sort.Slice(extracted, func(i, j int) bool {
		return extracted[i].path < extracted[j].path
	})

	var raw []models.RawEntity
	for _, fr := range extracted {
		raw = append(raw, fr.entities...)
	}

	run.FilesTotal = len(files)
	run.FilesFailed = len(extractErrors)
	run.EntitiesRaw = len(raw)

	p.logger.Info("extraction complete",
		"files", len(extracted),
		"failed", len(extractErrors),
		"entities", len(raw),
	)

	// Stage 2: relevance filtering
	normalized := p.filter.Filter(raw)

	// Stage 3: dedup merge on (kind, name, source)
	merged := p.dedup.Merge(normalized)

	// Stage 4: manifest resolution for external imports
	p.resolvePackages(merged)

	run.EntitiesKept = len(merged)

	// Stage 5: classification, relationship inference, confidence scoring
	enriched := p.enricher.Enrich(merged)

	// Stage 6: discovery linking and documentation attachment
	p.discovery.Link(ctx, enriched, chunks)

	for _, e := range enriched {
		run.Relationships += len(e.Relationships)
	}

	// Stage 7: embeddings, best effort
	p.embedEntities(ctx, enriched)

	// Stage 8: persistence
	if p.backend != nil {
		if err := p.persistGraph(ctx, enriched); err != nil {
			return nil, err
		}
	}

	run.FinishedAt = time.Now()

	if p.store != nil {
		if err := p.store.SaveScanRun(ctx, run); err != nil {
			return nil, err
		}
		if err := p.store.SaveFileStats(ctx, fileStats(run.ID, extracted, normalized)); err != nil {
			return nil, err
		}
	}

	p.logger.Info("scan complete",
		"duration", time.Since(startTime),
		"kept", run.EntitiesKept,
		"relationships", run.Relationships,
	)

	return &Result{Run: run, Entities: enriched, Errors: extractErrors}, nil
}

// extractParallel runs extraction through a worker pool
func (p *Pipeline) extractParallel(ctx context.Context, files []string) ([]fileResult, []error) {
	paths := make(chan string, len(files))
	for _, f := range files {
		paths <- f
	}
	close(paths)

	results := make(chan fileResult, p.config.Workers)
	errors := make(chan error, p.config.Workers)

	var wg sync.WaitGroup

	for w := 0; w < p.config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for path := range paths {
				extractCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
				entities, err := p.extractor.ExtractFile(extractCtx, path)
				cancel()

				if err != nil {
					errors <- fmt.Errorf("%s: %w", path, err)
				} else {
					results <- fileResult{path: path, entities: entities}
				}

				select {
				case <-ctx.Done():
					return
				default:
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
		close(errors)
	}()

	var extracted []fileResult
	var extractErrors []error

	for results != nil || errors != nil {
		select {
		case fr, ok := <-results:
			if !ok {
				results = nil
			} else {
				extracted = append(extracted, fr)
			}
		case err, ok := <-errors:
			if !ok {
				errors = nil
			} else {
				extractErrors = append(extractErrors, err)
			}
		}
	}

	return extracted, extractErrors
}

// resolvePackages attaches manifest metadata to external imports
func (p *Pipeline) resolvePackages(entities []models.NormalizedEntity) {
	for i := range entities {
		e := &entities[i]
		if e.Kind != models.KindImport || e.Source == "" || e.FilePath == "" {
			continue
		}

		m, err := p.manifests.Resolve(e.FilePath)
		if err != nil {
			p.logger.Debug("manifest resolution failed",
				"file", e.FilePath, "error", err)
			continue
		}
		if info := m.Lookup(e.Source); info != nil {
			e.PackageInfo = info
		}
	}
}

// embedEntities computes embeddings for enriched entities. Any failure
// is logged and that entity continues without a vector.
func (p *Pipeline) embedEntities(ctx context.Context, entities []models.EnrichedEntity) {
	if p.embedder == nil {
		return
	}

	for i := range entities {
		e := &entities[i]
		vector, err := p.embedder.Embed(ctx, embeddingText(e))
		if err != nil {
			p.logger.Warn("embedding failed",
				"entity", e.Name, "error", err)
			continue
		}
		e.Embedding = vector
	}
}

// embeddingText picks the richest available text for an entity
func embeddingText(e *models.EnrichedEntity) string {
	if e.Documentation != "" {
		return e.Name + "\n" + e.Documentation
	}
	if e.Text != "" {
		return e.Text
	}
	return e.Name
}

// persistGraph writes entities and their relationships to the graph
// store. Relationship targets that are not scanned entities become
// module nodes so the edge has both endpoints.
func (p *Pipeline) persistGraph(ctx context.Context, entities []models.EnrichedEntity) error {
	byKey := make(map[string]bool, len(entities))
	nodes := make([]graph.GraphNode, 0, len(entities))

	for _, e := range entities {
		id := entityNodeID(e)
		byKey[id] = true
		nodes = append(nodes, graph.GraphNode{
			ID:    id,
			Label: string(e.Kind),
			Name:  e.Name,
			Properties: map[string]any{
				"kind":          string(e.Kind),
				"name":          e.Name,
				"category":      string(e.Category),
				"semantic_type": e.SemanticType,
				"confidence":    e.Confidence,
				"occurrences":   e.Occurrences,
			},
		})
	}

	var edges []graph.GraphEdge
	seen := make(map[string]bool)

	moduleNode := func(target string) string {
		id := "module:" + target
		if !seen["node:"+id] {
			seen["node:"+id] = true
			nodes = append(nodes, graph.GraphNode{
				ID:    id,
				Label: "module",
				Name:  target,
				Properties: map[string]any{
					"kind": "module",
					"name": target,
				},
			})
		}
		return id
	}

	// Relationship targets carry only a name. Resolution tries kinds in
	// a fixed order so a class and a typeRef sharing a name cannot steal
	// each other's edges.
	resolveTarget := func(name string) (string, bool) {
		for _, kind := range targetKinds {
			id := fmt.Sprintf("%s:%s", kind, name)
			if byKey[id] {
				return id, true
			}
		}
		return "", false
	}

	for _, e := range entities {
		from := entityNodeID(e)
		for _, rel := range e.Relationships {
			var to string
			switch rel.Type {
			case models.RelImports, models.RelDependsOn:
				// Targets are module specifiers, not scanned entities.
				to = moduleNode(rel.Target)
			case models.RelReferences:
				// Discovery links already carry a node id.
				to = rel.Target
			default:
				var ok bool
				if to, ok = resolveTarget(rel.Target); !ok {
					to = moduleNode(rel.Target)
				}
			}
			if to == from {
				continue
			}

			key := string(rel.Type) + "|" + from + "|" + to
			if seen[key] {
				continue
			}
			seen[key] = true

			edges = append(edges, graph.GraphEdge{
				Label: string(rel.Type),
				From:  from,
				To:    to,
				Properties: map[string]any{
					"confidence": rel.Confidence,
				},
			})
		}
	}

	if err := p.backend.UpsertEntities(ctx, nodes); err != nil {
		return err
	}
	if len(edges) > 0 {
		if err := p.backend.CreateRelationships(ctx, edges); err != nil {
			return err
		}
	}

	p.logger.Info("graph persisted", "nodes", len(nodes), "edges", len(edges))
	return nil
}

// entityNodeID builds the stable graph identifier for an entity
func entityNodeID(e models.EnrichedEntity) string {
	return fmt.Sprintf("%s:%s", e.Kind, e.Name)
}

// targetKinds orders candidate kinds when a relationship target is
// resolved by name alone. Structural entities win over usage records.
var targetKinds = []models.EntityKind{
	models.KindClass,
	models.KindFunction,
	models.KindExport,
	models.KindVariable,
	models.KindTypeRef,
	models.KindImport,
}

// fileStats builds per-file raw and kept entity counts for a run
func fileStats(runID string, extracted []fileResult, normalized []models.NormalizedEntity) []*models.FileStat {
	keptByFile := make(map[string]int)
	for _, e := range normalized {
		keptByFile[e.FilePath]++
	}

	stats := make([]*models.FileStat, 0, len(extracted))
	for _, fr := range extracted {
		kept := keptByFile[fr.path]
		if kept == 0 && len(fr.entities) > 0 && fr.entities[0].FilePath != "" {
			kept = keptByFile[fr.entities[0].FilePath]
		}
		stats = append(stats, &models.FileStat{
			RunID:        runID,
			FilePath:     fr.path,
			EntitiesRaw:  len(fr.entities),
			EntitiesKept: kept,
		})
	}
	return stats
}
