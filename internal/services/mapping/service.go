package mapping

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	mappingrepo "github.com/Ramsey-B/trellis/internal/repositories/mapping"
	engine "github.com/Ramsey-B/trellis/pkg/mapping"
	"github.com/Ramsey-B/trellis/pkg/metrics"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/registry"
	"github.com/Ramsey-B/trellis/pkg/tracing"
	"github.com/google/uuid"
)

const (
	executionSourceHTTP = "http"
	executionSourceTest = "test"
)

// Invalidator drops a cached copy of a stored mapping after a write.
type Invalidator interface {
	InvalidateMapping(ctx context.Context, tenantID, mappingID string) error
}

type Service struct {
	logger   ectologger.Logger
	repo     mappingrepo.MappingRepository
	executor *engine.Executor
	cache    Invalidator
}

func NewService(logger ectologger.Logger, repo mappingrepo.MappingRepository, executor *engine.Executor, cache Invalidator) *Service {
	return &Service{
		logger:   logger,
		repo:     repo,
		executor: executor,
		cache:    cache,
	}
}

// ImportResult is returned by Import. Imported is false when the payload
// could not be decoded, in which case Mapping is the unchanged stored copy.
type ImportResult struct {
	Imported bool                 `json:"imported"`
	Mapping  models.StoredMapping `json:"mapping"`
}

func (s *Service) Create(ctx context.Context, stored models.StoredMapping) (models.StoredMapping, error) {
	ctx, span := tracing.StartSpan(ctx, "mapping.Create")
	defer span.End()

	if stored.TenantID == "" {
		return models.StoredMapping{}, httperror.NewHTTPError(http.StatusBadRequest, "tenant_id is required")
	}

	if stored.Name == "" {
		return models.StoredMapping{}, httperror.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	doc, err := s.normalize(stored.Document)
	if err != nil {
		return models.StoredMapping{}, err
	}

	now := time.Now().UTC()
	stored.ID = uuid.New().String()
	stored.Document = doc
	stored.Version = 1
	stored.CreatedAt = now
	stored.UpdatedAt = now
	if stored.Tags == nil {
		stored.Tags = []string{}
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"id":        stored.ID,
		"name":      stored.Name,
		"tenant_id": stored.TenantID,
	}).Info("creating mapping")
	if err := s.repo.Create(ctx, stored); err != nil {
		return models.StoredMapping{}, err
	}

	metrics.RecordWrite("mapping", "create")
	return stored, nil
}

// Update replaces a stored mapping. stored.Version must be the version the
// caller last read; the saved copy carries the next version.
func (s *Service) Update(ctx context.Context, stored models.StoredMapping) (models.StoredMapping, error) {
	ctx, span := tracing.StartSpan(ctx, "mapping.Update")
	defer span.End()

	if stored.ID == "" {
		return models.StoredMapping{}, httperror.NewHTTPError(http.StatusBadRequest, "id is required")
	}

	if stored.TenantID == "" {
		return models.StoredMapping{}, httperror.NewHTTPError(http.StatusBadRequest, "tenant_id is required")
	}

	if stored.Version < 1 {
		return models.StoredMapping{}, httperror.NewHTTPError(http.StatusBadRequest, "version is required")
	}

	existing, err := s.repo.Get(ctx, stored.TenantID, stored.ID)
	if err != nil {
		return models.StoredMapping{}, err
	}

	if existing.Version != stored.Version {
		return models.StoredMapping{}, httperror.NewHTTPError(http.StatusConflict, "mapping was modified by another request")
	}

	doc, err := s.normalize(stored.Document)
	if err != nil {
		return models.StoredMapping{}, err
	}

	if stored.Name == "" {
		stored.Name = existing.Name
	}
	if stored.Tags == nil {
		stored.Tags = existing.Tags
	}

	stored.Document = doc
	stored.CreatedAt = existing.CreatedAt
	return s.save(ctx, stored, existing.Version)
}

func (s *Service) Get(ctx context.Context, tenantID, id string) (models.StoredMapping, error) {
	ctx, span := tracing.StartSpan(ctx, "mapping.Get")
	defer span.End()

	if tenantID == "" {
		return models.StoredMapping{}, httperror.NewHTTPError(http.StatusBadRequest, "tenant_id is required")
	}

	if id == "" {
		return models.StoredMapping{}, httperror.NewHTTPError(http.StatusBadRequest, "id is required")
	}

	return s.repo.Get(ctx, tenantID, id)
}

func (s *Service) List(ctx context.Context, tenantID string) ([]models.StoredMapping, error) {
	ctx, span := tracing.StartSpan(ctx, "mapping.List")
	defer span.End()

	if tenantID == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "tenant_id is required")
	}

	return s.repo.List(ctx, tenantID)
}

func (s *Service) Delete(ctx context.Context, tenantID, id string) error {
	ctx, span := tracing.StartSpan(ctx, "mapping.Delete")
	defer span.End()

	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "tenant_id is required")
	}

	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		return err
	}

	metrics.RecordWrite("mapping", "delete")
	s.invalidate(ctx, tenantID, id)
	return nil
}

// Export renders the stored document in the portable export format.
func (s *Service) Export(ctx context.Context, tenantID, id string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "mapping.Export")
	defer span.End()

	stored, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return "", err
	}

	reg, err := registry.LoadRegistry(s.logger, stored.Document)
	if err != nil {
		return "", httperror.WrapError(http.StatusUnprocessableEntity, err)
	}

	return reg.ExportMappings(stored.Document.Name, stored.Document.Description)
}

// Import replaces the stored document from an export string. A payload that
// does not decode leaves the mapping untouched and is not an error. A
// legacy mapping array only replaces the field mappings.
func (s *Service) Import(ctx context.Context, tenantID, id, data string) (ImportResult, error) {
	ctx, span := tracing.StartSpan(ctx, "mapping.Import")
	defer span.End()

	stored, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return ImportResult{}, err
	}

	reg, err := registry.LoadRegistry(s.logger, stored.Document)
	if err != nil {
		return ImportResult{}, httperror.WrapError(http.StatusUnprocessableEntity, err)
	}

	if !reg.ImportMappings(data) {
		s.logger.WithContext(ctx).WithFields(map[string]any{
			"id":        id,
			"tenant_id": tenantID,
		}).Warn("mapping import payload was not a mapping document")
		return ImportResult{Imported: false, Mapping: stored}, nil
	}

	doc := reg.ExportDocument(stored.Document.Name, stored.Document.Description)
	if err := s.executor.Validate(doc); err != nil {
		return ImportResult{}, err
	}

	stored.Document = doc
	saved, err := s.save(ctx, stored, stored.Version)
	if err != nil {
		return ImportResult{}, err
	}

	return ImportResult{Imported: true, Mapping: saved}, nil
}

// Execute runs a stored mapping against source.
func (s *Service) Execute(ctx context.Context, tenantID, id string, source any) (map[string]any, error) {
	ctx, span := tracing.StartSpan(ctx, "mapping.Execute")
	defer span.End()

	stored, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	return s.execute(ctx, tenantID, executionSourceHTTP, stored.Document, source)
}

// Test runs an inline document without storing it.
func (s *Service) Test(ctx context.Context, tenantID string, doc models.Document, source any) (map[string]any, error) {
	ctx, span := tracing.StartSpan(ctx, "mapping.Test")
	defer span.End()

	normalized, err := s.normalize(doc)
	if err != nil {
		return nil, err
	}

	return s.execute(ctx, tenantID, executionSourceTest, normalized, source)
}

func (s *Service) execute(ctx context.Context, tenantID, source string, doc models.Document, data any) (map[string]any, error) {
	start := time.Now()
	result, err := s.executor.ExecuteDocument(ctx, doc, data)
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}
	metrics.RecordExecution(tenantID, source, status, time.Since(start).Seconds())
	return result, err
}

// normalize round trips doc through a registry so item mappings and legacy
// pipelines are in canonical form, then validates it strictly.
func (s *Service) normalize(doc models.Document) (models.Document, error) {
	reg, err := registry.LoadRegistry(s.logger, doc)
	if err != nil {
		return models.Document{}, httperror.WrapError(http.StatusBadRequest, err)
	}

	normalized := reg.ExportDocument(doc.Name, doc.Description)
	if err := s.executor.Validate(normalized); err != nil {
		return models.Document{}, err
	}

	return normalized, nil
}

func (s *Service) save(ctx context.Context, stored models.StoredMapping, expectedVersion int) (models.StoredMapping, error) {
	stored.Version = expectedVersion + 1
	stored.UpdatedAt = time.Now().UTC()

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"id":        stored.ID,
		"name":      stored.Name,
		"version":   stored.Version,
		"tenant_id": stored.TenantID,
	}).Info("updating mapping")
	if err := s.repo.Update(ctx, stored, expectedVersion); err != nil {
		return models.StoredMapping{}, err
	}

	metrics.RecordWrite("mapping", "update")
	s.invalidate(ctx, stored.TenantID, stored.ID)
	return stored, nil
}

func (s *Service) invalidate(ctx context.Context, tenantID, id string) {
	if s.cache == nil {
		return
	}

	// a stale entry expires on its own, so a failed invalidation is not fatal
	if err := s.cache.InvalidateMapping(ctx, tenantID, id); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        id,
			"tenant_id": tenantID,
		}).Warn("failed to invalidate cached mapping")
	}
}
