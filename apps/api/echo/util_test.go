package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/alama/apps/api/echo"
	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/billing"
	"github.com/trezcool/alama/core/finance"
	"github.com/trezcool/alama/core/report"
	"github.com/trezcool/alama/core/school"
	"github.com/trezcool/alama/core/user"
	inmemdb "github.com/trezcool/alama/storage/database/inmem"
	"github.com/trezcool/alama/tests"
)

const branch = "b1"

var now = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

type env struct {
	t   *testing.T
	ctx context.Context
	db  *inmemdb.DB
	app echoapi.Server
}

func setup(t *testing.T) *env {
	db := inmemdb.Open()

	validate, translator := testutil.NewValidator()

	logger := core.NopLogger{}
	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:           &core.Config{AppName: "Alama", TestMode: true},
		Logger:         logger,
		SchoolSvc:      school.NewService(db, logger, clock),
		ReportSvc:      report.NewService(db, logger),
		BillingSvc:     billing.NewService(db, logger, clock),
		FinanceSvc:     finance.NewService(db, logger, clock),
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	return &env{t: t, ctx: context.Background(), db: db, app: app}
}

func (e *env) user(kind user.Kind, uname string, active bool) user.User {
	return testutil.CreateUser(e.t, e.db, branch, kind, uname, "", active)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Branch-ID", branch)
	return req, httptest.NewRecorder()
}

// do serves the request and decodes the JSON response into dst, if any.
func (e *env) do(method, path string, body interface{}, wantCode int, dst interface{}) {
	e.t.Helper()
	var data []byte
	if body != nil {
		data = marshalObj(e.t, body)
	}
	req, rec := newRequest(method, path, data)
	e.app.ServeHTTP(rec, req)
	require.Equal(e.t, wantCode, rec.Code, rec.Body.String())
	if dst != nil {
		require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), dst))
	}
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	return data
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code)
	if tt.wantData != nil {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}
