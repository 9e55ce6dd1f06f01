package schema

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Ramsey-B/trellis/pkg/database"
	"github.com/Ramsey-B/trellis/pkg/models"
)

const (
	// document is a json column, not jsonb, so property order is kept
	schemaTable = "schemas"
)

type SchemaRow struct {
	ID        sql.NullString                  `db:"id"`
	TenantID  sql.NullString                  `db:"tenant_id"`
	Name      sql.NullString                  `db:"name"`
	Document  database.JSONB[json.RawMessage] `db:"document"`
	IsDeleted sql.NullBool                    `db:"is_deleted"`
	CreatedTS sql.NullTime                    `db:"created_at"`
	UpdatedTS sql.NullTime                    `db:"updated_at"`
}

var schemaStruct = database.NewStruct(new(SchemaRow))

func FromStoredSchema(s models.StoredSchema) *SchemaRow {
	return &SchemaRow{
		ID:        sql.NullString{String: s.ID, Valid: s.ID != ""},
		TenantID:  sql.NullString{String: s.TenantID, Valid: s.TenantID != ""},
		Name:      sql.NullString{String: s.Name, Valid: s.Name != ""},
		Document:  database.JSONB[json.RawMessage]{Data: s.Document},
		IsDeleted: sql.NullBool{Bool: false, Valid: true},
		CreatedTS: sql.NullTime{Time: s.CreatedAt, Valid: s.CreatedAt != time.Time{}},
		UpdatedTS: sql.NullTime{Time: s.UpdatedAt, Valid: s.UpdatedAt != time.Time{}},
	}
}

func ToStoredSchema(row *SchemaRow) models.StoredSchema {
	return models.StoredSchema{
		ID:        row.ID.String,
		TenantID:  row.TenantID.String,
		Name:      row.Name.String,
		Document:  row.Document.Data,
		CreatedAt: row.CreatedTS.Time,
		UpdatedAt: row.UpdatedTS.Time,
	}
}
