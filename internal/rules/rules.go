// Package rules implements the label application rule plug-in, a typed
// object store overlay scoped to the label-application-rule-config
// resource.
package rules

import (
	"github.com/hypertrace/config-service-go/internal/configdoc"
	"github.com/hypertrace/config-service-go/internal/configstore"
	"github.com/hypertrace/config-service-go/internal/events"
	"github.com/hypertrace/config-service-go/internal/objectstore"
)

const (
	resourceName      = "label-application-rule-config"
	resourceNamespace = "labels"
)

// LabelApplicationRule is the typed object this plug-in stores. Fields
// mirror the condition/action shape a label-application rule needs:
// which labels a matching entity should receive.
type LabelApplicationRule struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Condition    map[string]any `json:"condition"`
	LabelActions []LabelAction  `json:"labelActions"`
	Disabled     bool           `json:"disabled"`
}

// LabelAction names a label to apply (or remove) when Condition matches.
type LabelAction struct {
	LabelName string `json:"labelName"`
	Operation string `json:"operation"` // "ADD" or "DELETE"
}

// GetLabelApplicationRuleFilter is the typed post-filter for getAll: an
// empty Ids list matches every rule.
type GetLabelApplicationRuleFilter struct {
	Ids []string
}

// Resource identifies this plug-in's configuration family.
func Resource(tenantID string) configdoc.ConfigResource {
	return configdoc.ConfigResource{
		TenantID:          tenantID,
		ResourceNamespace: resourceNamespace,
		ResourceName:      resourceName,
	}
}

// NewStore returns the label application rule overlay scoped to tenantID,
// composed over an existing versioned store and event sink.
func NewStore(inner *configstore.Store, sink events.Sink, tenantID string) *objectstore.Store[LabelApplicationRule, GetLabelApplicationRuleFilter] {
	return objectstore.New(inner, sink, Resource(tenantID), Capabilities())
}

// Capabilities is the decode/encode/idOf/filter bundle for
// LabelApplicationRule, grounded on buildDataFromValue/buildValueFromData/
// getContextFromData/filterConfigData.
func Capabilities() objectstore.Capabilities[LabelApplicationRule, GetLabelApplicationRuleFilter] {
	return objectstore.Capabilities[LabelApplicationRule, GetLabelApplicationRuleFilter]{
		Decode: decode,
		Encode: encode,
		IDOf:   func(r LabelApplicationRule) string { return r.ID },
		Filter: filterRule,
	}
}

// filterRule implements filterConfigData: an empty Ids filter matches
// everything, otherwise the rule's id must appear in the list.
func filterRule(r LabelApplicationRule, f GetLabelApplicationRuleFilter) bool {
	if len(f.Ids) == 0 {
		return true
	}
	for _, id := range f.Ids {
		if id == r.ID {
			return true
		}
	}
	return false
}
