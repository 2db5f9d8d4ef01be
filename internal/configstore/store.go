package configstore

import (
	"context"
	"fmt"
	"time"

	"github.com/hypertrace/config-service-go/internal/configdoc"
	"github.com/hypertrace/config-service-go/internal/docstore"
	"github.com/hypertrace/config-service-go/internal/filter"
)

// Clock abstracts time.Now for deterministic tests.
type Clock func() time.Time

// Store is the versioned configuration store. It holds no mutable state
// beyond its adapter and clock references.
type Store struct {
	adapter docstore.Adapter
	clock   Clock
}

// New constructs a Store. A nil clock defaults to time.Now.
func New(adapter docstore.Adapter, clock Clock) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{adapter: adapter, clock: clock}
}

// WriteRequest carries the inputs to WriteConfig.
type WriteRequest struct {
	Config          configdoc.Value
	UpsertCondition filter.Expr
}

// WriteConfig creates or updates the config for rc, enforcing the
// conditional-upsert CAS path when req.UpsertCondition is set: a
// condition on a not-yet-existing document is rejected, since there is
// nothing for it to match against.
func (s *Store) WriteConfig(ctx context.Context, rc configdoc.ConfigResourceContext, userID, userEmail string, req WriteRequest) (configdoc.UpsertedConfig, error) {
	prevDoc, err := s.latestDoc(ctx, rc)
	if err != nil {
		return configdoc.UpsertedConfig{}, err
	}

	if prevDoc == nil && req.UpsertCondition != nil {
		return configdoc.UpsertedConfig{}, newError(FailedPrecondition, "No upsert condition required for creating config")
	}

	newDoc := buildConfigDocument(rc, req.Config, userID, userEmail, prevDoc, s.clock())
	key := docstore.Key(configdoc.DocumentKey(rc))

	if req.UpsertCondition != nil {
		pred, err := filter.Compile(req.UpsertCondition)
		if err != nil {
			return configdoc.UpsertedConfig{}, wrapError(InvalidArgument, "invalid upsert condition", err)
		}
		n, err := s.adapter.Update(ctx, key, newDoc, pred)
		if err != nil {
			return configdoc.UpsertedConfig{}, wrapError(Internal, "update failed", err)
		}
		if n <= 0 {
			return configdoc.UpsertedConfig{}, newError(FailedPrecondition, "Update failed because upsert condition did not match given record")
		}
	} else {
		if err := s.adapter.Upsert(ctx, key, newDoc); err != nil {
			return configdoc.UpsertedConfig{}, wrapError(Internal, "upsert failed", err)
		}
	}

	return buildUpsertResult(newDoc, prevDoc), nil
}

// WriteAllInput is one element of a WriteAllConfigs call.
type WriteAllInput struct {
	ResourceContext configdoc.ConfigResourceContext
	Config          configdoc.Value
}

// WriteAllConfigs is a bulk all-or-nothing write preserving input
// ordering.
func (s *Store) WriteAllConfigs(ctx context.Context, inputs []WriteAllInput, userID, userEmail string) ([]configdoc.UpsertedConfig, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	rcs := make([]configdoc.ConfigResourceContext, len(inputs))
	for i, in := range inputs {
		rcs[i] = in.ResourceContext
	}
	prevDocs, err := s.latestDocsByKey(ctx, rcs)
	if err != nil {
		return nil, err
	}

	keys := make([]docstore.Key, len(inputs))
	docs := make([]*configdoc.Document, len(inputs))
	prevs := make([]*configdoc.Document, len(inputs))
	for i, in := range inputs {
		prev := prevDocs[configdoc.DocumentKey(in.ResourceContext)]
		prevs[i] = prev
		keys[i] = docstore.Key(configdoc.DocumentKey(in.ResourceContext))
		docs[i] = buildConfigDocument(in.ResourceContext, in.Config, userID, userEmail, prev, s.clock())
	}

	ok, err := s.adapter.BulkUpsert(ctx, keys, docs)
	if err != nil {
		return nil, wrapError(Internal, "bulk upsert failed", err)
	}
	if !ok {
		return []configdoc.UpsertedConfig{}, nil
	}

	results := make([]configdoc.UpsertedConfig, len(inputs))
	for i := range inputs {
		results[i] = buildUpsertResult(docs[i], prevs[i])
	}
	return results, nil
}

// GetConfig returns the latest non-null config for rc, or (zero, false)
// if absent.
func (s *Store) GetConfig(ctx context.Context, rc configdoc.ConfigResourceContext) (configdoc.ContextSpecificConfig, bool, error) {
	doc, err := s.latestDoc(ctx, rc)
	if err != nil {
		return configdoc.ContextSpecificConfig{}, false, err
	}
	if doc == nil || doc.IsConfigNull() {
		return configdoc.ContextSpecificConfig{}, false, nil
	}
	return toContextSpecificConfig(doc), true, nil
}

// GetContextConfigs is a batched latest-config read. Contexts with no
// latest non-null config are omitted from the result.
func (s *Store) GetContextConfigs(ctx context.Context, rcs []configdoc.ConfigResourceContext) (map[configdoc.ConfigResourceContext]configdoc.ContextSpecificConfig, error) {
	docsByKey, err := s.latestDocsByKey(ctx, rcs)
	if err != nil {
		return nil, err
	}
	result := make(map[configdoc.ConfigResourceContext]configdoc.ContextSpecificConfig)
	for _, rc := range rcs {
		doc := docsByKey[configdoc.DocumentKey(rc)]
		if doc == nil || doc.IsConfigNull() {
			continue
		}
		result[rc] = toContextSpecificConfig(doc)
	}
	return result, nil
}

// GetAllConfigs returns the latest-per-context config across an entire
// resource, sorted by creationTimestamp descending.
func (s *Store) GetAllConfigs(ctx context.Context, r configdoc.ConfigResource) ([]configdoc.ContextSpecificConfig, error) {
	q := docstore.Query{
		Filter: resourceFilter(r),
		Sorts:  []docstore.Sort{{Field: "version", Dir: docstore.Desc}},
	}

	var out []configdoc.ContextSpecificConfig
	seen := make(map[string]bool)
	err := docstore.Each(ctx, s.adapter, q, func(doc *configdoc.Document) error {
		if seen[doc.Context] {
			return nil
		}
		seen[doc.Context] = true
		if doc.IsConfigNull() {
			return nil
		}
		out = append(out, toContextSpecificConfig(doc))
		return nil
	})
	if err != nil {
		return nil, wrapError(Internal, "query failed", err)
	}

	stableSortByCreationDesc(out)
	return out, nil
}

// DeleteConfigs is a no-op on empty input, otherwise it deletes every
// document matching any rc.
func (s *Store) DeleteConfigs(ctx context.Context, rcs []configdoc.ConfigResourceContext) error {
	if len(rcs) == 0 {
		return nil
	}
	pred, err := buildResourceContextsFilter(rcs)
	if err != nil {
		return err
	}
	if err := s.adapter.Delete(ctx, pred); err != nil {
		return wrapError(Internal, "delete failed", err)
	}
	return nil
}

// HealthCheck delegates to the adapter.
func (s *Store) HealthCheck(ctx context.Context) bool {
	return s.adapter.HealthCheck(ctx)
}

func (s *Store) latestDoc(ctx context.Context, rc configdoc.ConfigResourceContext) (*configdoc.Document, error) {
	q := docstore.Query{
		Filter: resourceContextFilter(rc),
		Sorts:  []docstore.Sort{{Field: "version", Dir: docstore.Desc}},
		Page:   docstore.Page{Limit: 1},
	}
	cur, err := s.adapter.Query(ctx, q)
	if err != nil {
		return nil, wrapError(Internal, "query failed", err)
	}
	defer cur.Close()

	if !cur.Next() {
		if err := cur.Err(); err != nil {
			return nil, wrapError(Internal, "query failed", err)
		}
		return nil, nil
	}
	return cur.Document(), nil
}

// latestDocsByKey is the latest-version batch read. All rcs must share a
// tenantId; mixed-tenant input is a programming error (Internal).
// Documents are read version-descending and the first one seen per key is
// kept, so every key maps to its highest version.
func (s *Store) latestDocsByKey(ctx context.Context, rcs []configdoc.ConfigResourceContext) (map[string]*configdoc.Document, error) {
	result := make(map[string]*configdoc.Document)
	if len(rcs) == 0 {
		return result, nil
	}

	tenantID := rcs[0].TenantID
	for _, rc := range rcs {
		if rc.TenantID != tenantID {
			return nil, newError(Internal, "mixed-tenant input to batch read")
		}
	}

	pred, err := buildResourceContextsFilter(rcs)
	if err != nil {
		return nil, err
	}
	q := docstore.Query{Filter: pred, Sorts: []docstore.Sort{{Field: "version", Dir: docstore.Desc}}}

	err = docstore.Each(ctx, s.adapter, q, func(doc *configdoc.Document) error {
		key := configdoc.DocumentKey(doc.ResourceContext())
		if _, seen := result[key]; !seen {
			result[key] = doc
		}
		return nil
	})
	if err != nil {
		return nil, wrapError(Internal, "query failed", err)
	}
	return result, nil
}

func buildConfigDocument(rc configdoc.ConfigResourceContext, config configdoc.Value, userID, userEmail string, prev *configdoc.Document, now time.Time) *configdoc.Document {
	nowMillis := now.UnixMilli()

	creationTimestamp := nowMillis
	version := int64(1)
	if prev != nil {
		if !prev.IsConfigNull() {
			creationTimestamp = prev.CreationTimestamp
		}
		version = prev.Version + 1
	}

	return &configdoc.Document{
		ResourceName:         rc.ResourceName,
		ResourceNamespace:    rc.ResourceNamespace,
		TenantID:             rc.TenantID,
		Context:              rc.Context,
		Version:              version,
		LastUpdatedUserID:    userID,
		LastUpdatedUserEmail: userEmail,
		Config:               config,
		CreationTimestamp:    creationTimestamp,
		UpdateTimestamp:      nowMillis,
	}
}

func buildUpsertResult(doc *configdoc.Document, prev *configdoc.Document) configdoc.UpsertedConfig {
	result := configdoc.UpsertedConfig{
		Config:            doc.Config,
		Context:           doc.Context,
		CreationTimestamp: doc.CreationTimestamp,
		UpdateTimestamp:   doc.UpdateTimestamp,
	}
	if prev != nil && !prev.IsConfigNull() {
		result.PrevConfig = prev.Config
		result.HasPrevConfig = true
	}
	return result
}

func toContextSpecificConfig(doc *configdoc.Document) configdoc.ContextSpecificConfig {
	return configdoc.ContextSpecificConfig{
		Config:            doc.Config,
		Context:           doc.Context,
		CreationTimestamp: doc.CreationTimestamp,
		UpdateTimestamp:   doc.UpdateTimestamp,
	}
}

func resourceContextFilter(rc configdoc.ConfigResourceContext) docstore.Expr {
	return docstore.And(
		docstore.Eq("resourceName", rc.ResourceName),
		docstore.Eq("resourceNamespace", rc.ResourceNamespace),
		docstore.Eq("tenantId", rc.TenantID),
		docstore.Eq("context", rc.Context),
	)
}

func resourceFilter(r configdoc.ConfigResource) docstore.Expr {
	return docstore.And(
		docstore.Eq("resourceName", r.ResourceName),
		docstore.Eq("resourceNamespace", r.ResourceNamespace),
		docstore.Eq("tenantId", r.TenantID),
	)
}

// buildResourceContextsFilter builds tenantId == T AND
// OR_over_ctxs(resource && namespace && context). Empty input is a
// programming bug (InvalidArgument).
func buildResourceContextsFilter(rcs []configdoc.ConfigResourceContext) (docstore.Expr, error) {
	if len(rcs) == 0 {
		return nil, newError(InvalidArgument, "config resource contexts cannot be empty")
	}
	tenantID := rcs[0].TenantID
	children := make([]docstore.Expr, len(rcs))
	for i, rc := range rcs {
		if rc.TenantID != tenantID {
			return nil, newError(Internal, fmt.Sprintf("mixed-tenant input to batch read: %q vs %q", tenantID, rc.TenantID))
		}
		children[i] = docstore.And(
			docstore.Eq("resourceName", rc.ResourceName),
			docstore.Eq("resourceNamespace", rc.ResourceNamespace),
			docstore.Eq("context", rc.Context),
		)
	}
	return docstore.And(docstore.Eq("tenantId", tenantID), docstore.Or(children...)), nil
}

// stableSortByCreationDesc sorts by creationTimestamp descending, breaking
// ties by preserving the order of first appearance (stable).
func stableSortByCreationDesc(configs []configdoc.ContextSpecificConfig) {
	for i := 1; i < len(configs); i++ {
		for j := i; j > 0 && configs[j-1].CreationTimestamp < configs[j].CreationTimestamp; j-- {
			configs[j-1], configs[j] = configs[j], configs[j-1]
		}
	}
}
