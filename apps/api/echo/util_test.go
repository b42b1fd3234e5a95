package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/trezcool/curricula/apps/api/echo"
	"github.com/trezcool/curricula/core/competency"
	"github.com/trezcool/curricula/core/content"
	"github.com/trezcool/curricula/core/coverage"
	"github.com/trezcool/curricula/core/mapping"
	dummydb "github.com/trezcool/curricula/storage/database/dummy"
	"github.com/trezcool/curricula/tests"
)

type testEnv struct {
	app         *Server
	catalog     *competency.Service
	coverageSvc *coverage.Service
	mappingSvc  *mapping.Service
	items       content.Repository
}

func setup(t *testing.T, seed bool, wrap ...func(coverage.Repository) coverage.Repository) testEnv {
	db := dummydb.Open()
	conf := testutil.Config()
	logger := testutil.NewLogger(t)
	validate, translator := testutil.NewValidator()

	catalog := competency.NewService(dummydb.NewAreaRepository(db), logger)
	if seed {
		_, err := catalog.Seed(context.Background())
		require.NoError(t, err)
	}

	var statRepo coverage.Repository = dummydb.NewStatRepository(db)
	for _, w := range wrap {
		statRepo = w(statRepo)
	}
	items := dummydb.NewItemRepository(db)
	contentSvc := content.NewService(items, validate)
	coverageSvc := coverage.NewService(statRepo, catalog, dummydb.NewJobStore(db), logger, conf)
	t.Cleanup(coverageSvc.Wait)
	mappingSvc := mapping.NewService(dummydb.NewMappingRepository(db), catalog, contentSvc, coverageSvc, validate, logger)

	app := NewServer(conf, logger, &Deps{
		CompetencySvc: catalog,
		ContentSvc:    contentSvc,
		MappingSvc:    mappingSvc,
		CoverageSvc:   coverageSvc,
		Validate:      validate,
		Translator:    translator,
	})
	return testEnv{
		app:         app,
		catalog:     catalog,
		coverageSvc: coverageSvc,
		mappingSvc:  mappingSvc,
		items:       items,
	}
}

// failingStats fails every upsert.
type failingStats struct {
	coverage.Repository
}

func (failingStats) UpsertStat(context.Context, coverage.Stat) error {
	return errors.New("stats storage unavailable")
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
	rec := httptest.NewRecorder()
	return req, rec
}

func (env testEnv) do(method, path string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newRequest(method, path, data...)
	env.app.ServeHTTP(rec, req)
	return rec
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj(): %v", err)
	}
	return data
}

func unmarshalBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshalBody(): %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHttpTests(t *testing.T, env testEnv, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.path, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}
