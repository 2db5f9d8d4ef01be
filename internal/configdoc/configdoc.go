// Package configdoc defines the persisted record and request/response
// shapes for the versioned configuration store. It has no behavior of its
// own, only the data model.
package configdoc

import "fmt"

// Value is the opaque, self-describing structured payload a configuration
// document carries: a tree of null/bool/number/string/list/map, the same
// shape JSON already gives us. We represent it with the types
// encoding/json decodes into by default, so round-tripping through Encode
// and Decode is lossless without a bespoke tree type.
type Value = any

// ConfigResource identifies a logical configuration family.
type ConfigResource struct {
	TenantID          string
	ResourceNamespace string
	ResourceName      string
}

// ConfigResourceContext is a ConfigResource plus the context sub-key that
// distinguishes sibling configurations under the same resource. The empty
// context denotes a singleton configuration.
type ConfigResourceContext struct {
	ConfigResource
	Context string
}

// Document is the persisted record. Field names are part of the storage
// contract and are round-tripped through the document store adapter as-is.
type Document struct {
	ResourceName         string `json:"resourceName"`
	ResourceNamespace    string `json:"resourceNamespace"`
	TenantID             string `json:"tenantId"`
	Context              string `json:"context"`
	Version              int64  `json:"version"`
	LastUpdatedUserID    string `json:"lastUpdatedUserId"`
	LastUpdatedUserEmail string `json:"lastUpdatedUserEmail"`
	Config               Value  `json:"config"`
	CreationTimestamp    int64  `json:"creationTimestamp"`
	UpdateTimestamp      int64  `json:"updateTimestamp"`
}

// Resource returns the ConfigResource identifying this document's family.
func (d *Document) Resource() ConfigResource {
	return ConfigResource{
		TenantID:          d.TenantID,
		ResourceNamespace: d.ResourceNamespace,
		ResourceName:      d.ResourceName,
	}
}

// ResourceContext returns the ConfigResourceContext identifying this
// document's key (ignoring version).
func (d *Document) ResourceContext() ConfigResourceContext {
	return ConfigResourceContext{ConfigResource: d.Resource(), Context: d.Context}
}

// IsConfigNull reports whether the document's config value is null, which
// readers treat as "absent" even though the document row exists.
func (d *Document) IsConfigNull() bool {
	return d.Config == nil
}

// ContextSpecificConfig is the typed, non-null view of a document's latest
// config value returned by read operations.
type ContextSpecificConfig struct {
	Config            Value
	Context           string
	CreationTimestamp int64
	UpdateTimestamp   int64
}

// UpsertedConfig is the result of a single writeConfig/writeAllConfigs
// element.
type UpsertedConfig struct {
	Config            Value
	Context           string
	CreationTimestamp int64
	UpdateTimestamp   int64
	PrevConfig        Value // nil unless a previous non-null config existed
	HasPrevConfig     bool
}

// DocumentKey deterministically encodes (tenantId, namespace, resource,
// context) into the identity used for keyed upsert/update. Only the latest
// version of a document ever occupies this key; history is retained by the
// adapter via the (key, version) uniqueness constraint instead of by
// mutating this key in place.
func DocumentKey(r ConfigResourceContext) string {
	return fmt.Sprintf("%s/%s/%s/%s", r.TenantID, r.ResourceNamespace, r.ResourceName, r.Context)
}
