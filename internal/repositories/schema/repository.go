package schema

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/trellis/pkg/database"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/tracing"
)

type SchemaRepository interface {
	Upsert(ctx context.Context, schema models.StoredSchema) error
	Get(ctx context.Context, tenantID, id string) (models.StoredSchema, error)
	List(ctx context.Context, tenantID string) ([]models.StoredSchema, error)
	Delete(ctx context.Context, tenantID, id string) error
}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) Upsert(ctx context.Context, schema models.StoredSchema) error {
	ctx, span := tracing.StartSpan(ctx, "SchemaRepository.Upsert")
	defer span.End()

	ib := schemaStruct.InsertInto(schemaTable, FromStoredSchema(schema))
	ub := ib.OnConflict("tenant_id", "id")
	ub.Set(
		ub.Assign("name", database.Excluded("name")),
		ub.Assign("document", database.Excluded("document")),
		ub.Assign("is_deleted", database.Excluded("is_deleted")),
		ub.Assign("updated_at", database.Excluded("updated_at")),
	)

	sql, args := ib.Build()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":        schema.ID,
		"tenant_id": schema.TenantID,
		"name":      schema.Name,
	}).Info("Upserting schema")
	if _, err = tx.ExecContext(ctx, sql, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        schema.ID,
			"tenant_id": schema.TenantID,
		}).Error("error upserting schema")
		return httperror.NewHTTPError(http.StatusInternalServerError, "error upserting schema")
	}

	return tx.Commit(ctx)
}

func (r *Repository) Get(ctx context.Context, tenantID, id string) (models.StoredSchema, error) {
	ctx, span := tracing.StartSpan(ctx, "SchemaRepository.Get")
	defer span.End()

	sb := schemaStruct.SelectFrom(schemaTable)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.Equal("is_deleted", false),
	)
	sb.Limit(1)

	sql, args := sb.Build()

	var row SchemaRow
	if err := r.db.GetContext(ctx, &row, sql, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return models.StoredSchema{}, httperror.NewHTTPError(http.StatusNotFound, "schema not found")
		}

		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        id,
			"tenant_id": tenantID,
		}).Error("error getting schema")
		return models.StoredSchema{}, httperror.NewHTTPError(http.StatusInternalServerError, "error getting schema")
	}

	return ToStoredSchema(&row), nil
}

func (r *Repository) List(ctx context.Context, tenantID string) ([]models.StoredSchema, error) {
	ctx, span := tracing.StartSpan(ctx, "SchemaRepository.List")
	defer span.End()

	sb := schemaStruct.SelectFrom(schemaTable)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("is_deleted", false),
	)
	sb.OrderBy("name").Asc()

	sql, args := sb.Build()

	var rows []SchemaRow
	if err := r.db.SelectContext(ctx, &rows, sql, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("tenant_id", tenantID).Error("error listing schemas")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "error listing schemas")
	}

	result := make([]models.StoredSchema, len(rows))
	for i := range rows {
		result[i] = ToStoredSchema(&rows[i])
	}
	return result, nil
}

func (r *Repository) Delete(ctx context.Context, tenantID, id string) error {
	ctx, span := tracing.StartSpan(ctx, "SchemaRepository.Delete")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(schemaTable)
	ub.Set(ub.Assign("is_deleted", true))
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("tenant_id", tenantID),
		ub.Equal("is_deleted", false),
	)
	sql, args := ub.Build()

	result, err := r.db.ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        id,
			"tenant_id": tenantID,
		}).Error("error deleting schema")
		return httperror.NewHTTPError(http.StatusInternalServerError, "error deleting schema")
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "schema not found")
	}
	return nil
}
