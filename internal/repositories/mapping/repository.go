package mapping

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/trellis/pkg/database"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/tracing"
)

type MappingRepository interface {
	Create(ctx context.Context, mapping models.StoredMapping) error
	Update(ctx context.Context, mapping models.StoredMapping, expectedVersion int) error
	Get(ctx context.Context, tenantID, id string) (models.StoredMapping, error)
	List(ctx context.Context, tenantID string) ([]models.StoredMapping, error)
	Delete(ctx context.Context, tenantID, id string) error
}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new stored mapping repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) Create(ctx context.Context, mapping models.StoredMapping) error {
	ctx, span := tracing.StartSpan(ctx, "MappingRepository.Create")
	defer span.End()

	ib := mappingStruct.InsertInto(mappingTable, FromStoredMapping(mapping))
	sql, args := ib.Build()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":        mapping.ID,
		"tenant_id": mapping.TenantID,
		"version":   mapping.Version,
	}).Info("Creating mapping")
	if _, err = tx.ExecContext(ctx, sql, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        mapping.ID,
			"tenant_id": mapping.TenantID,
		}).Error("error creating mapping")
		return httperror.NewHTTPError(http.StatusInternalServerError, "error creating mapping")
	}

	return tx.Commit(ctx)
}

// Update writes mapping only if the stored row is still at expectedVersion.
// A concurrent update that got there first is a 409.
func (r *Repository) Update(ctx context.Context, mapping models.StoredMapping, expectedVersion int) error {
	ctx, span := tracing.StartSpan(ctx, "MappingRepository.Update")
	defer span.End()

	row := FromStoredMapping(mapping)
	ub := database.NewUpdateBuilder()
	ub.Update(mappingTable)
	ub.Set(
		ub.Assign("name", row.Name),
		ub.Assign("description", row.Description),
		ub.Assign("source_schema_id", row.SourceSchemaID),
		ub.Assign("target_schema_id", row.TargetSchemaID),
		ub.Assign("tags", row.Tags),
		ub.Assign("document", row.Document),
		ub.Assign("version", row.Version),
		ub.Assign("updated_at", row.UpdatedTS),
	)
	ub.Where(
		ub.Equal("id", mapping.ID),
		ub.Equal("tenant_id", mapping.TenantID),
		ub.Equal("version", expectedVersion),
		ub.Equal("is_deleted", false),
	)
	sql, args := ub.Build()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	fields := map[string]any{
		"id":               mapping.ID,
		"tenant_id":        mapping.TenantID,
		"version":          mapping.Version,
		"expected_version": expectedVersion,
	}

	r.logger.WithContext(ctx).WithFields(fields).Info("Updating mapping")
	result, err := tx.ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(fields).Error("error updating mapping")
		return httperror.NewHTTPError(http.StatusInternalServerError, "error updating mapping")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "error updating mapping")
	}
	if affected == 0 {
		r.logger.WithContext(ctx).WithFields(fields).Warn("Mapping version conflict")
		return httperror.NewHTTPError(http.StatusConflict, "mapping was modified by another request")
	}

	return tx.Commit(ctx)
}

func (r *Repository) Get(ctx context.Context, tenantID, id string) (models.StoredMapping, error) {
	ctx, span := tracing.StartSpan(ctx, "MappingRepository.Get")
	defer span.End()

	sb := mappingStruct.SelectFrom(mappingTable)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.Equal("is_deleted", false),
	)
	sb.Limit(1)

	sql, args := sb.Build()

	var row MappingRow
	err := r.db.GetContext(ctx, &row, sql, args...)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			r.logger.WithContext(ctx).WithFields(map[string]any{
				"id":        id,
				"tenant_id": tenantID,
			}).Warn("Mapping not found")
			return models.StoredMapping{}, httperror.NewHTTPError(http.StatusNotFound, "mapping not found")
		}

		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        id,
			"tenant_id": tenantID,
		}).Error("error getting mapping")
		return models.StoredMapping{}, httperror.NewHTTPError(http.StatusInternalServerError, "error getting mapping")
	}

	return ToStoredMapping(&row), nil
}

func (r *Repository) List(ctx context.Context, tenantID string) ([]models.StoredMapping, error) {
	ctx, span := tracing.StartSpan(ctx, "MappingRepository.List")
	defer span.End()

	sb := mappingStruct.SelectFrom(mappingTable)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("is_deleted", false),
	)
	sb.OrderBy("updated_at").Desc()

	sql, args := sb.Build()

	var rows []MappingRow
	if err := r.db.SelectContext(ctx, &rows, sql, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("tenant_id", tenantID).Error("error listing mappings")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "error listing mappings")
	}

	result := make([]models.StoredMapping, len(rows))
	for i := range rows {
		result[i] = ToStoredMapping(&rows[i])
	}
	return result, nil
}

// Delete soft-deletes a mapping.
func (r *Repository) Delete(ctx context.Context, tenantID, id string) error {
	ctx, span := tracing.StartSpan(ctx, "MappingRepository.Delete")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(mappingTable)
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
		}).Error("error deleting mapping")
		return httperror.NewHTTPError(http.StatusInternalServerError, "error deleting mapping")
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "mapping not found")
	}
	return nil
}
