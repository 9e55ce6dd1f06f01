package schema

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/trellis/pkg/errors"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type fakeRepository struct {
	schemas []models.StoredSchema
}

func (f *fakeRepository) Upsert(_ context.Context, s models.StoredSchema) error {
	for i, existing := range f.schemas {
		if existing.TenantID == s.TenantID && existing.ID == s.ID {
			f.schemas[i] = s
			return nil
		}
	}
	f.schemas = append(f.schemas, s)
	return nil
}

func (f *fakeRepository) Get(_ context.Context, tenantID, id string) (models.StoredSchema, error) {
	for _, s := range f.schemas {
		if s.TenantID == tenantID && s.ID == id {
			return s, nil
		}
	}
	return models.StoredSchema{}, httperror.NewHTTPError(http.StatusNotFound, "schema not found")
}

func (f *fakeRepository) List(_ context.Context, tenantID string) ([]models.StoredSchema, error) {
	var result []models.StoredSchema
	for _, s := range f.schemas {
		if s.TenantID == tenantID {
			result = append(result, s)
		}
	}
	return result, nil
}

func (f *fakeRepository) Delete(_ context.Context, tenantID, id string) error {
	for i, s := range f.schemas {
		if s.TenantID == tenantID && s.ID == id {
			f.schemas = append(f.schemas[:i], f.schemas[i+1:]...)
			return nil
		}
	}
	return httperror.NewHTTPError(http.StatusNotFound, "schema not found")
}

const customerSchema = `{
	"title": "Customer",
	"type": "object",
	"properties": {
		"name": {"type": "string"},
		"address": {"$ref": "Address"}
	}
}`

const addressSchema = `{
	"type": "object",
	"properties": {
		"city": {"type": "string"}
	}
}`

func TestCreate(t *testing.T) {
	tests := []struct {
		name    string
		stored  models.StoredSchema
		wantErr bool
	}{
		{
			name:   "should store a schema document",
			stored: models.StoredSchema{TenantID: "tenant-a", Name: "Customer", Document: json.RawMessage(customerSchema)},
		},
		{
			name:    "should reject a document that is not an object",
			stored:  models.StoredSchema{TenantID: "tenant-a", Name: "Customer", Document: json.RawMessage(`[1,2]`)},
			wantErr: true,
		},
		{
			name:    "should require a name",
			stored:  models.StoredSchema{TenantID: "tenant-a", Document: json.RawMessage(customerSchema)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepository{}
			svc := NewService(testLogger(), repo)

			created, err := svc.Create(context.Background(), tt.stored)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
				assert.Empty(t, repo.schemas)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, created.ID)
			assert.JSONEq(t, customerSchema, string(repo.schemas[0].Document))
		})
	}
}

func TestParseStored(t *testing.T) {
	repo := &fakeRepository{}
	svc := NewService(testLogger(), repo)

	customer, err := svc.Create(context.Background(), models.StoredSchema{TenantID: "tenant-a", Name: "Customer", Document: json.RawMessage(customerSchema)})
	require.NoError(t, err)

	t.Run("should fail while the referenced schema is missing", func(t *testing.T) {
		_, err := svc.ParseStored(context.Background(), "tenant-a", customer.ID)
		require.Error(t, err)
		assert.True(t, errors.IsSchemaError(err))
	})

	t.Run("should resolve references to other stored schemas by name", func(t *testing.T) {
		_, err := svc.Create(context.Background(), models.StoredSchema{TenantID: "tenant-a", Name: "Address", Document: json.RawMessage(addressSchema)})
		require.NoError(t, err)

		parsed, err := svc.ParseStored(context.Background(), "tenant-a", customer.ID)
		require.NoError(t, err)
		require.Len(t, parsed.Fields, 2)
		assert.Equal(t, "address", parsed.Fields[1].Name)
		require.Len(t, parsed.Fields[1].Children, 1)
		assert.Equal(t, "address.city", parsed.Fields[1].Children[0].Path)
	})
}

func TestUpdateKeepsCreatedAt(t *testing.T) {
	repo := &fakeRepository{}
	svc := NewService(testLogger(), repo)

	created, err := svc.Create(context.Background(), models.StoredSchema{TenantID: "tenant-a", Name: "Customer", Document: json.RawMessage(customerSchema)})
	require.NoError(t, err)

	created.Name = "Client"
	updated, err := svc.Update(context.Background(), models.StoredSchema{ID: created.ID, TenantID: "tenant-a", Name: "Client", Document: created.Document})
	require.NoError(t, err)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	require.Len(t, repo.schemas, 1)
	assert.Equal(t, "Client", repo.schemas[0].Name)
}
