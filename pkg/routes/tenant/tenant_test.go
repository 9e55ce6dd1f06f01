package tenant

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/trellis/pkg/container"
	"github.com/Ramsey-B/trellis/pkg/database"
	"github.com/Ramsey-B/trellis/pkg/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rowsResult int64

func (r rowsResult) LastInsertId() (int64, error) { return 0, nil }
func (r rowsResult) RowsAffected() (int64, error) { return int64(r), nil }

type fakeTx struct {
	queries   []string
	committed bool
}

func (t *fakeTx) IsOpen() bool { return !t.committed }

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error { return nil }

func (t *fakeTx) ExecContext(_ context.Context, query string, _ ...any) (sql.Result, error) {
	t.queries = append(t.queries, query)
	return rowsResult(len(t.queries)), nil
}

func (t *fakeTx) GetContext(context.Context, any, string, ...any) error    { return nil }
func (t *fakeTx) SelectContext(context.Context, any, string, ...any) error { return nil }

type fakeDB struct {
	tx *fakeTx
}

func (d *fakeDB) BeginTxx(context.Context, *sql.TxOptions) (*sqlx.Tx, error) { return nil, nil }
func (d *fakeDB) Close() error                                              { return nil }
func (d *fakeDB) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return rowsResult(0), nil
}
func (d *fakeDB) GetContext(context.Context, any, string, ...any) error    { return nil }
func (d *fakeDB) PingContext(context.Context) error                        { return nil }
func (d *fakeDB) SelectContext(context.Context, any, string, ...any) error { return nil }
func (d *fakeDB) Unwrap() *sqlx.DB                                         { return nil }

func (d *fakeDB) GetTx(ctx context.Context, _ *sql.TxOptions) (context.Context, database.Tx, error) {
	d.tx = &fakeTx{}
	return ctx, d.tx, nil
}

var db = &fakeDB{}

func TestMain(m *testing.M) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	if err := container.Register(container.Services{Logger: logger, DB: db}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestDeleteTenantData(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
	e.Use(middleware.Context())
	Register(e.Group("/test"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/test/tenant/tenant-a", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body DeleteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	t.Run("should delete mappings and schemas in one transaction", func(t *testing.T) {
		require.NotNil(t, db.tx)
		assert.True(t, db.tx.committed)
		assert.Equal(t, []string{
			"DELETE FROM mappings WHERE tenant_id = $1",
			"DELETE FROM schemas WHERE tenant_id = $1",
		}, db.tx.queries)
	})

	t.Run("should report the deleted counts", func(t *testing.T) {
		assert.Equal(t, DeleteResponse{Message: "tenant data deleted", TenantID: "tenant-a", Mappings: 1, Schemas: 2}, body)
	})
}
