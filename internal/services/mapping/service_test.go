package mapping

import (
	"context"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	engine "github.com/Ramsey-B/trellis/pkg/mapping"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	srcFirst = models.FieldNode{ID: "s1", Name: "firstName", Type: models.FieldTypeString, Path: "firstName"}
	srcEmail = models.FieldNode{ID: "s2", Name: "email", Type: models.FieldTypeString, Path: "email"}
	tgtName  = models.FieldNode{ID: "t1", Name: "name", Type: models.FieldTypeString, Path: "name"}
	tgtEmail = models.FieldNode{ID: "t2", Name: "email", Type: models.FieldTypeString, Path: "contact.email"}
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func customerDocument() models.Document {
	return models.Document{
		Version: models.DocumentVersion,
		Name:    "Customer",
		Mappings: []models.FieldMapping{
			{
				ID:              "mapping-1",
				SourceFields:    []models.FieldNode{srcFirst},
				TargetField:     tgtName,
				Transformations: []models.TransformationStep{{Type: models.TransformationUppercase}},
			},
		},
	}
}

type fakeRepository struct {
	mappings map[string]models.StoredMapping
	updates  int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{mappings: map[string]models.StoredMapping{}}
}

func (f *fakeRepository) key(tenantID, id string) string {
	return tenantID + "/" + id
}

func (f *fakeRepository) Create(_ context.Context, m models.StoredMapping) error {
	f.mappings[f.key(m.TenantID, m.ID)] = m
	return nil
}

func (f *fakeRepository) Update(_ context.Context, m models.StoredMapping, expectedVersion int) error {
	existing, ok := f.mappings[f.key(m.TenantID, m.ID)]
	if !ok || existing.Version != expectedVersion {
		return httperror.NewHTTPError(http.StatusConflict, "mapping was modified by another request")
	}
	f.updates++
	f.mappings[f.key(m.TenantID, m.ID)] = m
	return nil
}

func (f *fakeRepository) Get(_ context.Context, tenantID, id string) (models.StoredMapping, error) {
	m, ok := f.mappings[f.key(tenantID, id)]
	if !ok {
		return models.StoredMapping{}, httperror.NewHTTPError(http.StatusNotFound, "mapping not found")
	}
	return m, nil
}

func (f *fakeRepository) List(_ context.Context, tenantID string) ([]models.StoredMapping, error) {
	var result []models.StoredMapping
	for _, m := range f.mappings {
		if m.TenantID == tenantID {
			result = append(result, m)
		}
	}
	return result, nil
}

func (f *fakeRepository) Delete(_ context.Context, tenantID, id string) error {
	if _, ok := f.mappings[f.key(tenantID, id)]; !ok {
		return httperror.NewHTTPError(http.StatusNotFound, "mapping not found")
	}
	delete(f.mappings, f.key(tenantID, id))
	return nil
}

type fakeInvalidator struct {
	keys []string
}

func (f *fakeInvalidator) InvalidateMapping(_ context.Context, tenantID, mappingID string) error {
	f.keys = append(f.keys, tenantID+"/"+mappingID)
	return nil
}

func newTestService() (*Service, *fakeRepository, *fakeInvalidator) {
	repo := newFakeRepository()
	cache := &fakeInvalidator{}
	return NewService(testLogger(), repo, engine.NewExecutor(testLogger(), nil), cache), repo, cache
}

func statusCode(t *testing.T, err error) int {
	t.Helper()
	require.Error(t, err)
	require.True(t, httperror.IsHTTPError(err), "expected an http error, got %v", err)
	return httperror.GetStatusCode(err)
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name    string
		stored  models.StoredMapping
		status  int
		wantErr bool
	}{
		{
			name:   "should store a valid mapping at version 1",
			stored: models.StoredMapping{TenantID: "tenant-a", Name: "customers", Document: customerDocument()},
		},
		{
			name:    "should require a tenant",
			stored:  models.StoredMapping{Name: "customers", Document: customerDocument()},
			status:  http.StatusBadRequest,
			wantErr: true,
		},
		{
			name:    "should require a name",
			stored:  models.StoredMapping{TenantID: "tenant-a", Document: customerDocument()},
			status:  http.StatusBadRequest,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newTestService()

			created, err := svc.Create(context.Background(), tt.stored)
			if tt.wantErr {
				assert.Equal(t, tt.status, statusCode(t, err))
				assert.Empty(t, repo.mappings)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, created.ID)
			assert.Equal(t, 1, created.Version)
			assert.Equal(t, []string{}, created.Tags)
			assert.Equal(t, models.DocumentVersion, created.Document.Version)
			assert.Contains(t, repo.mappings, "tenant-a/"+created.ID)
		})
	}

	t.Run("should reject an item mapping whose array mapping is missing", func(t *testing.T) {
		svc, repo, _ := newTestService()
		doc := customerDocument()
		doc.Mappings = append(doc.Mappings, models.FieldMapping{
			ID:              "mapping-2",
			SourceFields:    []models.FieldNode{srcEmail},
			TargetField:     tgtEmail,
			Transformations: []models.TransformationStep{models.DirectStep()},
			ArrayMappingID:  "array-mapping-missing",
		})

		_, err := svc.Create(context.Background(), models.StoredMapping{TenantID: "tenant-a", Name: "customers", Document: doc})
		require.Error(t, err)
		assert.Empty(t, repo.mappings)
	})
}

func TestUpdate(t *testing.T) {
	t.Run("should bump the version and invalidate the cache", func(t *testing.T) {
		svc, _, cache := newTestService()
		created, err := svc.Create(context.Background(), models.StoredMapping{TenantID: "tenant-a", Name: "customers", Document: customerDocument()})
		require.NoError(t, err)

		created.Description = "v2"
		updated, err := svc.Update(context.Background(), created)
		require.NoError(t, err)
		assert.Equal(t, 2, updated.Version)
		assert.Equal(t, "v2", updated.Description)
		assert.Equal(t, created.CreatedAt, updated.CreatedAt)
		assert.Equal(t, []string{"tenant-a/" + created.ID}, cache.keys)
	})

	t.Run("should conflict on a stale version", func(t *testing.T) {
		svc, _, _ := newTestService()
		created, err := svc.Create(context.Background(), models.StoredMapping{TenantID: "tenant-a", Name: "customers", Document: customerDocument()})
		require.NoError(t, err)

		_, err = svc.Update(context.Background(), created)
		require.NoError(t, err)

		_, err = svc.Update(context.Background(), created)
		assert.Equal(t, http.StatusConflict, statusCode(t, err))
	})

	t.Run("should require a version", func(t *testing.T) {
		svc, _, _ := newTestService()
		_, err := svc.Update(context.Background(), models.StoredMapping{ID: "x", TenantID: "tenant-a"})
		assert.Equal(t, http.StatusBadRequest, statusCode(t, err))
	})
}

func TestGetIsTenantScoped(t *testing.T) {
	svc, _, _ := newTestService()
	created, err := svc.Create(context.Background(), models.StoredMapping{TenantID: "tenant-a", Name: "customers", Document: customerDocument()})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "tenant-b", created.ID)
	assert.Equal(t, http.StatusNotFound, statusCode(t, err))
}

func TestDelete(t *testing.T) {
	svc, repo, cache := newTestService()
	created, err := svc.Create(context.Background(), models.StoredMapping{TenantID: "tenant-a", Name: "customers", Document: customerDocument()})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "tenant-a", created.ID))
	assert.Empty(t, repo.mappings)
	assert.Equal(t, []string{"tenant-a/" + created.ID}, cache.keys)
}

func TestExportImport(t *testing.T) {
	t.Run("should round trip through export and import", func(t *testing.T) {
		svc, _, _ := newTestService()
		created, err := svc.Create(context.Background(), models.StoredMapping{TenantID: "tenant-a", Name: "customers", Document: customerDocument()})
		require.NoError(t, err)

		exported, err := svc.Export(context.Background(), "tenant-a", created.ID)
		require.NoError(t, err)
		assert.Contains(t, exported, `"version": "1.0"`)

		result, err := svc.Import(context.Background(), "tenant-a", created.ID, exported)
		require.NoError(t, err)
		assert.True(t, result.Imported)
		assert.Equal(t, 2, result.Mapping.Version)
		assert.Equal(t, created.Document.Mappings, result.Mapping.Document.Mappings)
	})

	t.Run("should leave the mapping untouched on an undecodable payload", func(t *testing.T) {
		svc, repo, _ := newTestService()
		created, err := svc.Create(context.Background(), models.StoredMapping{TenantID: "tenant-a", Name: "customers", Document: customerDocument()})
		require.NoError(t, err)

		result, err := svc.Import(context.Background(), "tenant-a", created.ID, "not json")
		require.NoError(t, err)
		assert.False(t, result.Imported)
		assert.Equal(t, 1, result.Mapping.Version)
		assert.Zero(t, repo.updates)
	})
}

func TestExecute(t *testing.T) {
	svc, _, _ := newTestService()
	created, err := svc.Create(context.Background(), models.StoredMapping{TenantID: "tenant-a", Name: "customers", Document: customerDocument()})
	require.NoError(t, err)

	t.Run("should execute a stored mapping", func(t *testing.T) {
		result, err := svc.Execute(context.Background(), "tenant-a", created.ID, map[string]any{"firstName": "ada"})
		require.NoError(t, err)
		assert.Equal(t, "ADA", result["name"])
	})

	t.Run("should execute an inline document", func(t *testing.T) {
		result, err := svc.Test(context.Background(), "tenant-a", customerDocument(), map[string]any{"firstName": "grace"})
		require.NoError(t, err)
		assert.Equal(t, "GRACE", result["name"])
	})
}
