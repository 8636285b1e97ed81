package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/homefront-realty/admin-backoffice/internal/model"
	"github.com/homefront-realty/admin-backoffice/internal/query"
	"github.com/homefront-realty/admin-backoffice/internal/source"
	"github.com/homefront-realty/admin-backoffice/internal/store"
)

var now = time.Date(2026, 7, 4, 15, 30, 0, 0, time.UTC)

func sparse() model.Conversation {
	return model.Conversation{
		ID:           "c1",
		CustomerName: "Nora Quinn",
		Status:       model.StatusNew,
		LeadQuality:  model.LeadWarm,
		LeadScore:    64,
		Tags:         []string{"first-time", "condo"},
		StartTime:    time.Date(2026, 7, 1, 9, 5, 0, 0, time.UTC),
	}
}

func column(t *testing.T, header string) int {
	for i, h := range Headers() {
		if h == header {
			return i
		}
	}
	t.Fatalf("no column %q", header)
	return -1
}

func TestSchema(t *testing.T) {
	assert.Len(t, Columns, 19)
	assert.Equal(t, "Customer Name", Headers()[0])
	assert.Equal(t, "Conversion Value", Headers()[18])
}

func TestRecord_MissingFieldDefaults(t *testing.T) {
	c := sparse()
	rec := Record(&c)

	assert.Equal(t, "N/A", rec[column(t, "Email")])
	assert.Equal(t, "N/A", rec[column(t, "Budget")])
	assert.Equal(t, "0", rec[column(t, "Conversion Value")])
	assert.Equal(t, "N/A", rec[column(t, "Follow-up Date")])
	assert.Equal(t, "N/A", rec[column(t, "Agent")])
	assert.Equal(t, "0", rec[column(t, "Duration (min)")])
	assert.Equal(t, "64", rec[column(t, "Lead Score")])
	assert.Equal(t, "first-time, condo", rec[column(t, "Tags")])
	assert.Equal(t, "2026-07-01 09:05", rec[column(t, "Start Time")])

	for i, v := range rec {
		assert.NotEmpty(t, v, "column %s", Headers()[i])
	}
}

func TestRecord_AgentPrefersName(t *testing.T) {
	c := sparse()
	c.AssignedAgentID = "agent-7"
	assert.Equal(t, "agent-7", Record(&c)[column(t, "Agent")])

	c.Agent = &model.Agent{ID: "agent-7", Name: "Sam Reyes"}
	assert.Equal(t, "Sam Reyes", Record(&c)[column(t, "Agent")])
}

func TestCSV(t *testing.T) {
	c := sparse()
	c.Notes = "said \"call after 5\", prefers email"
	out, err := Render(FormatCSV, []model.Conversation{c}, now)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, Headers(), records[0])
	assert.Equal(t, c.Notes, records[1][column(t, "Notes")])
	assert.Equal(t, "N/A", records[1][column(t, "Email")])
}

func TestXLSX(t *testing.T) {
	c := sparse()
	c.ConversionValue = 350000
	out, err := Render(FormatXLSX, []model.Conversation{c, sparse()}, now)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Headers(), rows[0])
	assert.Equal(t, "Nora Quinn", rows[1][0])
	assert.Equal(t, "350000", rows[1][column(t, "Conversion Value")])
	assert.Equal(t, "0", rows[2][column(t, "Conversion Value")])
	assert.Equal(t, "N/A", rows[2][column(t, "Budget")])
}

func TestPDF(t *testing.T) {
	rows := make([]model.Conversation, 120)
	for i := range rows {
		rows[i] = sparse()
		rows[i].Notes = strings.Repeat("long note ", 30)
	}
	out, err := Render(FormatPDF, rows, now)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestHTML(t *testing.T) {
	c := sparse()
	c.Notes = "<script>alert(1)</script>"
	out, err := Render(FormatHTML, []model.Conversation{c}, now)
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, "<style>")
	assert.Contains(t, html, "<th>Customer Name</th>")
	assert.Contains(t, html, "<td>N/A</td>")
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "1 rows")
}

func TestRenderUnsupported(t *testing.T) {
	out, err := Render("docx", nil, now)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Nil(t, out)

	_, err = ParseFormat("docx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	f, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "conversations-1783179000.csv", Filename(FormatCSV, now))
	assert.Equal(t, "conversations-1783179000.xlsx", Filename(FormatXLSX, now))
}

type repoFetcher struct {
	repo  store.Repository
	calls atomic.Int32
	fail  int
}

func (f *repoFetcher) Fetch(ctx context.Context, req source.Request) (*source.Result, error) {
	f.calls.Add(1)
	if f.fail > 0 && req.Page == f.fail {
		return nil, errors.New("page unavailable")
	}
	data, total, err := f.repo.ListConversations(ctx, query.Build(req.Filters), req.PageSize, query.Offset(req.Page, req.PageSize))
	if err != nil {
		return nil, err
	}
	return &source.Result{Data: data, Total: total, Source: source.SourceDatabase}, nil
}

func seededRepo(n int) *store.Memory {
	m := store.NewMemory(store.Capabilities{})
	for i := 0; i < n; i++ {
		q := model.LeadCold
		if i%2 == 0 {
			q = model.LeadHot
		}
		m.Put(model.Conversation{
			ID:          fmt.Sprintf("c%04d", i),
			LeadQuality: q,
			CreatedAt:   now.Add(-time.Duration(i) * time.Minute),
		})
	}
	return m
}

func TestCollect_AllPagesInOrder(t *testing.T) {
	f := &repoFetcher{repo: seededRepo(650)}
	rows, err := Collect(context.Background(), f, model.SearchFilters{LeadQuality: []model.LeadQuality{model.LeadHot}}, 0)
	require.NoError(t, err)

	require.Len(t, rows, 325)
	assert.Equal(t, int32(4), f.calls.Load())
	for i, c := range rows {
		assert.Equal(t, fmt.Sprintf("c%04d", i*2), c.ID)
	}
}

func TestCollect_RespectsMaxRows(t *testing.T) {
	f := &repoFetcher{repo: seededRepo(650)}
	rows, err := Collect(context.Background(), f, model.SearchFilters{}, 250)
	require.NoError(t, err)
	assert.Len(t, rows, 250)
	assert.Equal(t, int32(3), f.calls.Load())
	assert.Equal(t, "c0249", rows[249].ID)
}

func TestCollect_SinglePage(t *testing.T) {
	rows, err := Collect(context.Background(), &repoFetcher{repo: seededRepo(7)}, model.SearchFilters{}, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 7)
}

func TestCollect_PageFailureFailsExport(t *testing.T) {
	rows, err := Collect(context.Background(), &repoFetcher{repo: seededRepo(650), fail: 3}, model.SearchFilters{}, 0)
	assert.Error(t, err)
	assert.Nil(t, rows)
}

func TestBuild(t *testing.T) {
	a, err := Build(context.Background(), &repoFetcher{repo: seededRepo(30)}, model.SearchFilters{}, FormatCSV, 0, now)
	require.NoError(t, err)
	assert.Equal(t, "conversations-1783179000.csv", a.Filename)
	assert.Equal(t, 30, a.Rows)

	records, err := csv.NewReader(bytes.NewReader(a.Data)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 31)

	_, err = Build(context.Background(), &repoFetcher{repo: seededRepo(30)}, model.SearchFilters{}, "docx", 0, now)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
