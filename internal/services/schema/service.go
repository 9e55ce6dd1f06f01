package schema

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	schemarepo "github.com/Ramsey-B/trellis/internal/repositories/schema"
	"github.com/Ramsey-B/trellis/pkg/metrics"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/schema"
	"github.com/Ramsey-B/trellis/pkg/tracing"
	"github.com/google/uuid"
)

type Service struct {
	logger ectologger.Logger
	repo   schemarepo.SchemaRepository
}

func NewService(logger ectologger.Logger, repo schemarepo.SchemaRepository) *Service {
	return &Service{
		logger: logger,
		repo:   repo,
	}
}

// Parse turns a raw JSON or YAML schema document into a field tree.
func (s *Service) Parse(ctx context.Context, document []byte, name string) (models.Schema, error) {
	_, span := tracing.StartSpan(ctx, "schema.Parse")
	defer span.End()

	if len(document) == 0 {
		return models.Schema{}, httperror.NewHTTPError(http.StatusBadRequest, "schema document is required")
	}

	return schema.NewParser().Parse(document, name)
}

// ParseStored parses a stored schema. The tenant's other schemas are
// registered as models so references to them by name resolve.
func (s *Service) ParseStored(ctx context.Context, tenantID, id string) (models.Schema, error) {
	ctx, span := tracing.StartSpan(ctx, "schema.ParseStored")
	defer span.End()

	stored, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return models.Schema{}, err
	}

	all, err := s.repo.List(ctx, tenantID)
	if err != nil {
		return models.Schema{}, err
	}

	parser := schema.NewParser()
	for _, other := range all {
		if other.ID == stored.ID {
			continue
		}
		if err := parser.RegisterModel(other.Name, other.Document); err != nil {
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"id":        other.ID,
				"tenant_id": tenantID,
			}).Warn("skipping unparseable schema model")
		}
	}

	return parser.Parse(stored.Document, stored.Name)
}

func (s *Service) Create(ctx context.Context, stored models.StoredSchema) (models.StoredSchema, error) {
	ctx, span := tracing.StartSpan(ctx, "schema.Create")
	defer span.End()

	stored.ID = uuid.New().String()
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt

	if err := s.validate(stored); err != nil {
		return models.StoredSchema{}, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"id":        stored.ID,
		"name":      stored.Name,
		"tenant_id": stored.TenantID,
	}).Info("creating schema")
	if err := s.repo.Upsert(ctx, stored); err != nil {
		return models.StoredSchema{}, err
	}

	metrics.RecordWrite("schema", "create")
	return stored, nil
}

func (s *Service) Update(ctx context.Context, stored models.StoredSchema) (models.StoredSchema, error) {
	ctx, span := tracing.StartSpan(ctx, "schema.Update")
	defer span.End()

	if stored.ID == "" {
		return models.StoredSchema{}, httperror.NewHTTPError(http.StatusBadRequest, "id is required")
	}

	if err := s.validate(stored); err != nil {
		return models.StoredSchema{}, err
	}

	existing, err := s.repo.Get(ctx, stored.TenantID, stored.ID)
	if err != nil {
		return models.StoredSchema{}, err
	}

	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now().UTC()

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"id":        stored.ID,
		"name":      stored.Name,
		"tenant_id": stored.TenantID,
	}).Info("updating schema")
	if err := s.repo.Upsert(ctx, stored); err != nil {
		return models.StoredSchema{}, err
	}

	metrics.RecordWrite("schema", "update")
	return stored, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id string) (models.StoredSchema, error) {
	ctx, span := tracing.StartSpan(ctx, "schema.Get")
	defer span.End()

	if tenantID == "" {
		return models.StoredSchema{}, httperror.NewHTTPError(http.StatusBadRequest, "tenant_id is required")
	}

	if id == "" {
		return models.StoredSchema{}, httperror.NewHTTPError(http.StatusBadRequest, "id is required")
	}

	return s.repo.Get(ctx, tenantID, id)
}

func (s *Service) List(ctx context.Context, tenantID string) ([]models.StoredSchema, error) {
	ctx, span := tracing.StartSpan(ctx, "schema.List")
	defer span.End()

	if tenantID == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "tenant_id is required")
	}

	return s.repo.List(ctx, tenantID)
}

func (s *Service) Delete(ctx context.Context, tenantID, id string) error {
	ctx, span := tracing.StartSpan(ctx, "schema.Delete")
	defer span.End()

	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "tenant_id is required")
	}

	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		return err
	}

	metrics.RecordWrite("schema", "delete")
	return nil
}

// validate rejects documents that are not JSON objects. References are not
// resolved here since they may point at schemas stored later.
func (s *Service) validate(stored models.StoredSchema) error {
	if stored.TenantID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "tenant_id is required")
	}

	if stored.Name == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(stored.Document, &doc); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "document must be a JSON object")
	}

	return nil
}
