package rules

import "encoding/json"

// decode converts a stored config value back into a LabelApplicationRule
// by round-tripping through JSON, since configdoc.Value already carries
// the shapes encoding/json decodes into (maps, slices, scalars).
func decode(v any) (LabelApplicationRule, bool) {
	data, err := json.Marshal(v)
	if err != nil {
		return LabelApplicationRule{}, false
	}
	var r LabelApplicationRule
	if err := json.Unmarshal(data, &r); err != nil {
		return LabelApplicationRule{}, false
	}
	return r, true
}

// encode converts a LabelApplicationRule into the opaque value the
// versioned store persists.
func encode(r LabelApplicationRule) (any, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
