package postgres

import (
	"encoding/json"

	"github.com/hypertrace/config-service-go/internal/configdoc"
)

// configColumns is the column list used for SELECT statements against the
// configurations table, in the order scanRow expects.
const configColumns = `tenant_id, resource_namespace, resource_name, context, version,
	last_updated_user_id, last_updated_user_email, config,
	creation_timestamp, update_timestamp`

// scannable is satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanRow(row scannable) (*configdoc.Document, error) {
	var (
		d          configdoc.Document
		configJSON []byte
	)
	err := row.Scan(
		&d.TenantID,
		&d.ResourceNamespace,
		&d.ResourceName,
		&d.Context,
		&d.Version,
		&d.LastUpdatedUserID,
		&d.LastUpdatedUserEmail,
		&configJSON,
		&d.CreationTimestamp,
		&d.UpdateTimestamp,
	)
	if err != nil {
		return nil, err
	}
	if len(configJSON) == 0 || string(configJSON) == "null" {
		d.Config = nil
	} else if err := json.Unmarshal(configJSON, &d.Config); err != nil {
		return nil, err
	}
	return &d, nil
}

func configJSONBytes(v configdoc.Value) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}
