package mapping

import (
	"database/sql"
	"time"

	"github.com/Ramsey-B/trellis/pkg/database"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/lib/pq"
)

const (
	mappingTable = "mappings"
)

type MappingRow struct {
	ID             sql.NullString                  `db:"id"`
	TenantID       sql.NullString                  `db:"tenant_id"`
	Name           sql.NullString                  `db:"name"`
	Description    sql.NullString                  `db:"description"`
	SourceSchemaID sql.NullString                  `db:"source_schema_id"`
	TargetSchemaID sql.NullString                  `db:"target_schema_id"`
	Tags           pq.StringArray                  `db:"tags"`
	Document       database.JSONB[models.Document] `db:"document"`
	Version        sql.NullInt64                   `db:"version"`
	IsDeleted      sql.NullBool                    `db:"is_deleted"`
	CreatedTS      sql.NullTime                    `db:"created_at"`
	UpdatedTS      sql.NullTime                    `db:"updated_at"`
}

var mappingStruct = database.NewStruct(new(MappingRow))

func FromStoredMapping(m models.StoredMapping) *MappingRow {
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	return &MappingRow{
		ID:             sql.NullString{String: m.ID, Valid: m.ID != ""},
		TenantID:       sql.NullString{String: m.TenantID, Valid: m.TenantID != ""},
		Name:           sql.NullString{String: m.Name, Valid: m.Name != ""},
		Description:    sql.NullString{String: m.Description, Valid: true},
		SourceSchemaID: sql.NullString{String: m.SourceSchemaID, Valid: m.SourceSchemaID != ""},
		TargetSchemaID: sql.NullString{String: m.TargetSchemaID, Valid: m.TargetSchemaID != ""},
		Tags:           pq.StringArray(tags),
		Document:       database.JSONB[models.Document]{Data: m.Document},
		Version:        sql.NullInt64{Int64: int64(m.Version), Valid: m.Version != 0},
		IsDeleted:      sql.NullBool{Bool: false, Valid: true},
		CreatedTS:      sql.NullTime{Time: m.CreatedAt, Valid: m.CreatedAt != time.Time{}},
		UpdatedTS:      sql.NullTime{Time: m.UpdatedAt, Valid: m.UpdatedAt != time.Time{}},
	}
}

func ToStoredMapping(row *MappingRow) models.StoredMapping {
	return models.StoredMapping{
		ID:             row.ID.String,
		TenantID:       row.TenantID.String,
		Name:           row.Name.String,
		Description:    row.Description.String,
		SourceSchemaID: row.SourceSchemaID.String,
		TargetSchemaID: row.TargetSchemaID.String,
		Tags:           []string(row.Tags),
		Document:       row.Document.Data,
		Version:        int(row.Version.Int64),
		CreatedAt:      row.CreatedTS.Time,
		UpdatedAt:      row.UpdatedTS.Time,
	}
}
