package echoapi_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/curricula/apps/api/echo"
	"github.com/trezcool/curricula/core/competency"
	"github.com/trezcool/curricula/core/coverage"
	"github.com/trezcool/curricula/core/mapping"
	"github.com/trezcool/curricula/tests"
)

const staleWarning = `199 - "mapping saved but coverage statistics could not be refreshed"`

func Test_inbdeApi_initialize(t *testing.T) {
	env := setup(t, false)

	runHttpTests(t, env, []httpTest{
		{
			name:     "not initialized",
			method:   http.MethodGet,
			path:     "/v1/inbde/foundation-knowledge",
			wantCode: http.StatusOK,
			wantData: []byte(`[]`),
		},
		{
			name:     "first run",
			method:   http.MethodPost,
			path:     "/v1/inbde/initialize",
			wantCode: http.StatusOK,
			wantData: marshalObj(t, InitializeResponse{Message: "INBDE competency catalog initialized", Inserted: 66}),
		},
		{
			name:     "second run",
			method:   http.MethodPost,
			path:     "/v1/inbde/initialize",
			wantCode: http.StatusOK,
			wantData: marshalObj(t, InitializeResponse{Message: "INBDE competency catalog initialized", Inserted: 0}),
		},
	})
}

func Test_inbdeApi_listAreas(t *testing.T) {
	env := setup(t, true)
	ctx := context.Background()

	fks, err := env.catalog.ListFoundationKnowledge(ctx)
	require.NoError(t, err)
	require.Len(t, fks, competency.FoundationKnowledgeCount)
	ccs, err := env.catalog.ListClinicalContent(ctx)
	require.NoError(t, err)
	require.Len(t, ccs, competency.ClinicalContentCount)

	runHttpTests(t, env, []httpTest{
		{
			name:     "foundation knowledge",
			method:   http.MethodGet,
			path:     "/v1/inbde/foundation-knowledge",
			wantCode: http.StatusOK,
			wantData: marshalObj(t, fks),
		},
		{
			name:     "clinical content",
			method:   http.MethodGet,
			path:     "/v1/inbde/clinical-content/", // trailing slash
			wantCode: http.StatusOK,
			wantData: marshalObj(t, ccs),
		},
	})
}

func Test_inbdeApi_matrix(t *testing.T) {
	t.Run("not initialized", func(t *testing.T) {
		env := setup(t, false)
		runHttpTests(t, env, []httpTest{{
			name:     "empty grid",
			method:   http.MethodGet,
			path:     "/v1/inbde/mapping-matrix/t1",
			wantCode: http.StatusOK,
			wantData: []byte(`{"initialized": false, "foundation_knowledge": [], "clinical_content": [], "matrix": []}`),
		}})
	})

	env := setup(t, true)
	a := testutil.CreateContent(t, env.items, "t1", "c1", "Anatomy")
	testutil.CreateContent(t, env.items, "t1", "c2", "Biochemistry")

	rec := env.do(http.MethodPost, "/v1/inbde/content-mapping",
		[]byte(fmt.Sprintf(`{"tenant_id": "t1", "content_id": %q, "fk_id": "FK1", "cc_id": "CC1"}`, a.ID)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	cell := func(m coverage.Matrix, fkID, ccID string) coverage.CellStat {
		t.Helper()
		for _, row := range m.Matrix {
			for _, c := range row.CCMappings {
				if row.FK.ID == fkID && c.CC.ID == ccID {
					return c
				}
			}
		}
		t.Fatalf("cell %s/%s not found", fkID, ccID)
		return coverage.CellStat{}
	}

	tests := []struct {
		name           string
		path           string
		wantCount      int
		wantTotal      int
		wantPercent    string
		wantCalculated bool
	}{
		{name: "tenant", path: "/v1/inbde/mapping-matrix/t1", wantCount: 1, wantTotal: 2, wantPercent: "50.00", wantCalculated: true},
		{name: "course", path: "/v1/inbde/mapping-matrix/t1?course_id=c1", wantCount: 1, wantTotal: 1, wantPercent: "100.00", wantCalculated: true},
		// not touched by the mapping
		{name: "other course", path: "/v1/inbde/mapping-matrix/t1?course_id=c2", wantCount: 0, wantTotal: 0, wantPercent: "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodGet, tt.path)
			require.Equal(t, http.StatusOK, rec.Code)

			var m coverage.Matrix
			unmarshalBody(t, rec, &m)
			assert.True(t, m.Initialized)
			assert.Len(t, m.FoundationKnowledge, competency.FoundationKnowledgeCount)
			assert.Len(t, m.ClinicalContent, competency.ClinicalContentCount)
			require.Len(t, m.Matrix, competency.FoundationKnowledgeCount)
			for _, row := range m.Matrix {
				assert.Len(t, row.CCMappings, competency.ClinicalContentCount)
			}

			c := cell(m, "FK1", "CC1")
			assert.Equal(t, tt.wantCount, c.ContentCount)
			assert.Equal(t, tt.wantTotal, c.TotalContentCount)
			assert.Equal(t, tt.wantPercent, c.CoveragePercentage.String())
			assert.Equal(t, tt.wantCalculated, c.LastCalculatedAt != nil)

			untouched := cell(m, "FK10", "CC56")
			assert.Zero(t, untouched.ContentCount)
			assert.Nil(t, untouched.LastCalculatedAt)
		})
	}
}

func Test_inbdeApi_contentMapping(t *testing.T) {
	env := setup(t, true)
	ctx := context.Background()

	a := testutil.CreateContent(t, env.items, "t1", "", "Anatomy")
	foreign := testutil.CreateContent(t, env.items, "t2", "", "Other tenant")
	body := func(contentID, fkID, ccID string) []byte {
		return []byte(fmt.Sprintf(`{"tenant_id": "t1", "content_id": %q, "fk_id": %q, "cc_id": %q, "alignment_strength": 0.8}`,
			contentID, fkID, ccID))
	}

	// create
	rec := env.do(http.MethodPost, "/v1/inbde/content-mapping", body(a.ID, "FK1", "CC1"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Empty(t, rec.Header().Get("Warning"))

	var m mapping.Mapping
	unmarshalBody(t, rec, &m)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, 0.8, m.AlignmentStrength)
	assert.False(t, m.IsAIGenerated)
	assert.Nil(t, m.ReviewedAt)

	mcs, err := env.mappingSvc.ListForCell(ctx, "t1", "FK1", "CC1")
	require.NoError(t, err)
	require.Len(t, mcs, 1)

	runHttpTests(t, env, []httpTest{
		{
			name:     "create missing fields",
			method:   http.MethodPost,
			path:     "/v1/inbde/content-mapping",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{
				"tenant_id": "this field is required",
				"content_id": "this field is required",
				"fk_id": "this field is required",
				"cc_id": "this field is required"
			}`),
		},
		{
			name:     "create unknown area",
			method:   http.MethodPost,
			path:     "/v1/inbde/content-mapping",
			body:     body(a.ID, "FK11", "CC1"),
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: "competency area not found"}),
		},
		{
			name:     "create swapped areas",
			method:   http.MethodPost,
			path:     "/v1/inbde/content-mapping",
			body:     body(a.ID, "CC1", "FK1"),
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: "competency area not found"}),
		},
		{
			name:     "create other tenant's content",
			method:   http.MethodPost,
			path:     "/v1/inbde/content-mapping",
			body:     body(foreign.ID, "FK1", "CC2"),
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: "content item not found"}),
		},
		{
			name:     "create duplicate",
			method:   http.MethodPost,
			path:     "/v1/inbde/content-mapping",
			body:     body(a.ID, "FK1", "CC1"),
			wantCode: http.StatusConflict,
			wantData: marshalObj(t, httpErr{Error: "this content is already mapped to this cell"}),
		},
		{
			name:     "retrieve",
			method:   http.MethodGet,
			path:     "/v1/inbde/content-mapping/" + m.ID,
			wantCode: http.StatusOK,
			wantData: marshalObj(t, m),
		},
		{
			name:     "retrieve missing",
			method:   http.MethodGet,
			path:     "/v1/inbde/content-mapping/missing",
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: "content mapping not found"}),
		},
		{
			name:     "cell mappings",
			method:   http.MethodGet,
			path:     "/v1/inbde/mapping-matrix/t1/cells/FK1/CC1",
			wantCode: http.StatusOK,
			wantData: marshalObj(t, mcs),
		},
		{
			name:     "empty cell",
			method:   http.MethodGet,
			path:     "/v1/inbde/mapping-matrix/t1/cells/FK2/CC1",
			wantCode: http.StatusOK,
			wantData: []byte(`[]`),
		},
		{
			name:     "update invalid strength",
			method:   http.MethodPatch,
			path:     "/v1/inbde/content-mapping/" + m.ID,
			body:     []byte(`{"alignment_strength": 1.5}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"alignment_strength": "alignment_strength must be 1 or less"}`),
		},
		{
			name:     "update missing",
			method:   http.MethodPatch,
			path:     "/v1/inbde/content-mapping/missing",
			body:     []byte(`{"reviewed_by": "dr.who"}`),
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: "content mapping not found"}),
		},
	})

	// update
	rec = env.do(http.MethodPatch, "/v1/inbde/content-mapping/"+m.ID, []byte(`{"alignment_strength": 0.4, "reviewed_by": " dr.who "}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated mapping.Mapping
	unmarshalBody(t, rec, &updated)
	assert.Equal(t, m.ID, updated.ID)
	assert.Equal(t, 0.4, updated.AlignmentStrength)
	assert.Equal(t, "dr.who", updated.ReviewedBy)
	require.NotNil(t, updated.ReviewedAt)
	assert.False(t, updated.UpdatedAt.Before(m.UpdatedAt))

	// delete
	runHttpTests(t, env, []httpTest{
		{
			name:     "delete",
			method:   http.MethodDelete,
			path:     "/v1/inbde/content-mapping/" + m.ID,
			wantCode: http.StatusOK,
			wantData: marshalObj(t, MessageResponse{Message: "Mapping deleted"}),
		},
		{
			name:     "delete again",
			method:   http.MethodDelete,
			path:     "/v1/inbde/content-mapping/" + m.ID,
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: "content mapping not found"}),
		},
	})

	matrix, err := env.coverageSvc.GetMatrix(ctx, coverage.TenantScope("t1"))
	require.NoError(t, err)
	assert.Zero(t, matrix.Matrix[0].CCMappings[0].ContentCount)
	assert.NotNil(t, matrix.Matrix[0].CCMappings[0].LastCalculatedAt)
}

func Test_inbdeApi_staleStatistics(t *testing.T) {
	env := setup(t, true, func(repo coverage.Repository) coverage.Repository {
		return failingStats{Repository: repo}
	})
	a := testutil.CreateContent(t, env.items, "t1", "", "Anatomy")

	rec := env.do(http.MethodPost, "/v1/inbde/content-mapping",
		[]byte(fmt.Sprintf(`{"tenant_id": "t1", "content_id": %q, "fk_id": "FK1", "cc_id": "CC1"}`, a.ID)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, staleWarning, rec.Header().Get("Warning"))

	var m mapping.Mapping
	unmarshalBody(t, rec, &m)
	_, err := env.mappingSvc.Get(context.Background(), m.ID)
	assert.NoError(t, err, "the mapping must survive a failed refresh")

	rec = env.do(http.MethodPatch, "/v1/inbde/content-mapping/"+m.ID, []byte(`{"reviewed_by": "dr.who"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, staleWarning, rec.Header().Get("Warning"))

	rec = env.do(http.MethodDelete, "/v1/inbde/content-mapping/"+m.ID)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, staleWarning, rec.Header().Get("Warning"))
}

func Test_inbdeApi_bulkMapping(t *testing.T) {
	env := setup(t, true)
	a := testutil.CreateContent(t, env.items, "t1", "", "Anatomy")
	b := testutil.CreateContent(t, env.items, "t1", "", "Biochemistry")

	suggestions := fmt.Sprintf(`[
		{"tenant_id": "t1", "content_id": %[1]q, "fk_id": "FK1", "cc_id": "CC1", "confidence": 0.9},
		{"tenant_id": "t1", "content_id": %[2]q, "fk_id": "FK1", "cc_id": "CC1", "confidence": 0.5},
		{"tenant_id": "t1", "content_id": %[1]q, "fk_id": "FK1", "cc_id": "CC1", "confidence": 0.95},
		{"tenant_id": "t1", "content_id": "missing", "fk_id": "FK2", "cc_id": "CC2", "confidence": 0.99}
	]`, a.ID, b.ID)

	rec := env.do(http.MethodPost, "/v1/inbde/content-mapping/bulk", []byte(`{"suggestions": `+suggestions+`}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, rec.Header().Get("Warning"))

	var res mapping.BatchResult
	unmarshalBody(t, rec, &res)
	require.Len(t, res.Created, 1)
	assert.Equal(t, a.ID, res.Created[0].ContentID)
	assert.True(t, res.Created[0].IsAIGenerated)
	assert.Equal(t, 0.9, res.Created[0].AlignmentStrength)
	assert.Equal(t, 1, res.BelowThreshold)
	assert.Equal(t, 1, res.Duplicates)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, 3, res.Rejected[0].Index)

	// explicit threshold
	rec = env.do(http.MethodPost, "/v1/inbde/content-mapping/bulk", []byte(`{"threshold": 0.4, "suggestions": `+suggestions+`}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res = mapping.BatchResult{}
	unmarshalBody(t, rec, &res)
	require.Len(t, res.Created, 1)
	assert.Equal(t, b.ID, res.Created[0].ContentID)
	assert.Zero(t, res.BelowThreshold)
	assert.Equal(t, 2, res.Duplicates)

	matrix, err := env.coverageSvc.GetMatrix(context.Background(), coverage.TenantScope("t1"))
	require.NoError(t, err)
	assert.Equal(t, 2, matrix.Matrix[0].CCMappings[0].ContentCount)
	assert.Equal(t, "100.00", matrix.Matrix[0].CCMappings[0].CoveragePercentage.String())

	runHttpTests(t, env, []httpTest{{
		name:     "invalid threshold",
		method:   http.MethodPost,
		path:     "/v1/inbde/content-mapping/bulk",
		body:     []byte(`{"threshold": 2, "suggestions": []}`),
		wantCode: http.StatusBadRequest,
		wantData: []byte(`{"threshold": "must be between 0 and 1"}`),
	}})
}

func Test_inbdeApi_recalculate(t *testing.T) {
	env := setup(t, true)
	testutil.CreateContent(t, env.items, "t1", "c1", "Anatomy")
	cells := competency.FoundationKnowledgeCount * competency.ClinicalContentCount

	t.Run("sync", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/inbde/recalculate-stats/t1", []byte(`{"course_id": "c1"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res RecalculateResponse
		unmarshalBody(t, rec, &res)
		assert.Equal(t, "Statistics recalculated", res.Message)
		assert.Equal(t, coverage.CourseScope("t1", "c1"), res.Report.Scope)
		assert.Equal(t, cells, res.Report.Cells)
		assert.Zero(t, res.Report.Failed)
	})

	t.Run("sync without body", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/inbde/recalculate-stats/t1")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res RecalculateResponse
		unmarshalBody(t, rec, &res)
		assert.Equal(t, coverage.TenantScope("t1"), res.Report.Scope)
	})

	t.Run("async", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/inbde/recalculate-stats/t1", []byte(`{"async": true}`))
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

		var job coverage.Job
		unmarshalBody(t, rec, &job)
		assert.NotEmpty(t, job.ID)
		assert.Equal(t, "t1", job.TenantID)
		assert.Equal(t, coverage.JobPending, job.Status)

		env.coverageSvc.Wait()

		rec = env.do(http.MethodGet, "/v1/inbde/recalculate-stats/jobs/"+job.ID)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var done coverage.Job
		unmarshalBody(t, rec, &done)
		assert.Equal(t, coverage.JobSucceeded, done.Status)
		assert.Equal(t, cells, done.Cells)
		assert.Zero(t, done.FailedCells)
		require.NotNil(t, done.FinishedAt)
		assert.WithinDuration(t, time.Now(), *done.FinishedAt, time.Minute)
	})

	runHttpTests(t, env, []httpTest{{
		name:     "unknown job",
		method:   http.MethodGet,
		path:     "/v1/inbde/recalculate-stats/jobs/missing",
		wantCode: http.StatusNotFound,
		wantData: marshalObj(t, httpErr{Error: "recalculation job not found"}),
	}})
}
