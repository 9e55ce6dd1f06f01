package mapping

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	mappingsvc "github.com/Ramsey-B/trellis/internal/services/mapping"
	"github.com/Ramsey-B/trellis/pkg/container"
	engine "github.com/Ramsey-B/trellis/pkg/mapping"
	"github.com/Ramsey-B/trellis/pkg/middleware"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type memoryRepository struct {
	mu       sync.Mutex
	mappings map[string]models.StoredMapping
}

func (r *memoryRepository) Create(_ context.Context, m models.StoredMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappings[m.TenantID+"/"+m.ID] = m
	return nil
}

func (r *memoryRepository) Update(_ context.Context, m models.StoredMapping, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.mappings[m.TenantID+"/"+m.ID]; !ok || existing.Version != expectedVersion {
		return httperror.NewHTTPError(http.StatusConflict, "mapping was modified by another request")
	}
	r.mappings[m.TenantID+"/"+m.ID] = m
	return nil
}

func (r *memoryRepository) Get(_ context.Context, tenantID, id string) (models.StoredMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.mappings[tenantID+"/"+id]
	if !ok {
		return models.StoredMapping{}, httperror.NewHTTPError(http.StatusNotFound, "mapping not found")
	}
	return m, nil
}

func (r *memoryRepository) List(_ context.Context, tenantID string) ([]models.StoredMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []models.StoredMapping{}
	for _, m := range r.mappings {
		if m.TenantID == tenantID {
			result = append(result, m)
		}
	}
	return result, nil
}

func (r *memoryRepository) Delete(_ context.Context, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.mappings, tenantID+"/"+id)
	return nil
}

func TestMain(m *testing.M) {
	repo := &memoryRepository{mappings: map[string]models.StoredMapping{}}
	service := mappingsvc.NewService(testLogger(), repo, engine.NewExecutor(testLogger(), nil), nil)
	if err := container.Register(container.Services{Mappings: service}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newServer() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(testLogger())
	e.Use(middleware.Context(), middleware.TestAuth(), middleware.RequireTenant())
	Register(e.Group("/mappings"))
	return e
}

const documentJSON = `{
	"version": "1.0",
	"name": "Customer",
	"mappings": [{
		"id": "mapping-1",
		"sourceFields": [{"id": "s1", "name": "email", "type": "string", "path": "email"}],
		"targetField": {"id": "t1", "name": "contact", "type": "string", "path": "contact.email"},
		"transformations": [{"type": "lowercase"}]
	}],
	"defaultValues": [{
		"id": "default-1",
		"targetField": {"id": "t2", "name": "country", "type": "string", "path": "country"},
		"value": "US"
	}]
}`

func do(t *testing.T, e *echo.Echo, method, path, tenantID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if tenantID != "" {
		req.Header.Set(middleware.HeaderTenantID, tenantID)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func createMapping(t *testing.T, e *echo.Echo, tenantID string) models.StoredMapping {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/mappings", tenantID, `{"name":"customers","document":`+documentJSON+`}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.StoredMapping
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	return created
}

func TestCreateAndGet(t *testing.T) {
	e := newServer()
	created := createMapping(t, e, "tenant-a")
	assert.Equal(t, 1, created.Version)
	assert.Equal(t, "tenant-a", created.TenantID)

	t.Run("should read the mapping back", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/mappings/"+created.ID, "tenant-a", "")
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("should hide the mapping from other tenants", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/mappings/"+created.ID, "tenant-b", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("should require a tenant", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/mappings", "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("should require a name", func(t *testing.T) {
		rec := do(t, e, http.MethodPost, "/mappings", "tenant-a", `{"document":`+documentJSON+`}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUpdateConflict(t *testing.T) {
	e := newServer()
	created := createMapping(t, e, "tenant-a")

	body := `{"name":"customers v2","version":1,"document":` + documentJSON + `}`
	rec := do(t, e, http.MethodPut, "/mappings/"+created.ID, "tenant-a", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, e, http.MethodPut, "/mappings/"+created.ID, "tenant-a", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestExecute(t *testing.T) {
	e := newServer()
	created := createMapping(t, e, "tenant-a")

	tests := []struct {
		name string
		path string
		body string
	}{
		{
			name: "should execute a stored mapping",
			path: "/mappings/" + created.ID + "/execute",
			body: `{"data":{"email":"ADA@EXAMPLE.COM"}}`,
		},
		{
			name: "should execute an inline document",
			path: "/mappings/test",
			body: `{"document":` + documentJSON + `,"data":{"email":"ADA@EXAMPLE.COM"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, e, http.MethodPost, tt.path, "tenant-a", tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var resp ExecuteResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, map[string]any{"email": "ada@example.com"}, resp.Data["contact"])
			assert.Equal(t, "US", resp.Data["country"])
		})
	}
}

func TestExportImport(t *testing.T) {
	e := newServer()
	created := createMapping(t, e, "tenant-a")

	rec := do(t, e, http.MethodGet, "/mappings/"+created.ID+"/export", "tenant-a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	exported := rec.Body.String()
	assert.Contains(t, exported, `"name": "Customer"`)

	t.Run("should accept its own export", func(t *testing.T) {
		rec := do(t, e, http.MethodPost, "/mappings/"+created.ID+"/import", "tenant-a", exported)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var result mappingsvc.ImportResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.True(t, result.Imported)
		assert.Equal(t, 2, result.Mapping.Version)
	})

	t.Run("should soft fail on garbage", func(t *testing.T) {
		rec := do(t, e, http.MethodPost, "/mappings/"+created.ID+"/import", "tenant-a", "{{{")
		require.Equal(t, http.StatusOK, rec.Code)

		var result mappingsvc.ImportResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.False(t, result.Imported)
	})
}
