package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golovatskygroup/mcp-atlas/internal/atlassian"
)

func testClient(srv *httptest.Server) *Client {
	return New(atlassian.Credentials{BaseURL: srv.URL, AuthHeader: "Bearer token"})
}

func TestSearchIssuesWalksPagination(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/api/2/search", r.URL.Path)
		assert.Equal(t, `project = "OPS" ORDER BY created DESC`, r.URL.Query().Get("jql"))
		assert.Contains(t, r.URL.Query().Get("fields"), "attachment")
		calls++

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("startAt") == "0" {
			fmt.Fprint(w, `{"startAt":0,"maxResults":2,"total":3,"issues":[{"id":"1","key":"OPS-1","fields":{"summary":"first"}},{"id":"2","key":"OPS-2","fields":{"summary":"second"}}]}`)
			return
		}
		fmt.Fprint(w, `{"startAt":2,"maxResults":2,"total":3,"issues":[{"id":"3","key":"OPS-3","fields":{"summary":"third"}}]}`)
	}))
	defer srv.Close()

	// Page size is min(pageSize, remaining); with limit 3 both pages fit.
	issues, err := testClient(srv).SearchIssues(context.Background(),
		`project = "OPS" ORDER BY created DESC`, 3)
	require.NoError(t, err)
	require.Len(t, issues, 3)
	assert.Equal(t, "OPS-3", issues[2].Key)
	assert.Equal(t, 2, calls)
}

func TestSearchIssuesRejectsEmptyJQL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer srv.Close()

	_, err := testClient(srv).SearchIssues(context.Background(), "", 10)
	require.Error(t, err)
	assert.True(t, atlassian.IsKind(err, atlassian.KindValidation))
}

func TestGetIssueBuildsAttachmentRefs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/api/2/issue/OPS-7", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"7","key":"OPS-7","fields":{"summary":"Printer on fire","attachment":[{"id":"900","filename":"incident.pdf","mimeType":"application/pdf","size":4096,"content":"https://jira.example.com/secure/attachment/900/incident.pdf","author":{"displayName":"Robin"},"created":"2024-04-02T08:00:00.000+0000"}]}}`)
	}))
	defer srv.Close()

	issue, err := testClient(srv).GetIssue(context.Background(), "OPS-7")
	require.NoError(t, err)

	refs := Refs(*issue)
	require.Len(t, refs, 1)
	assert.Equal(t, "incident.pdf", refs[0].Filename)
	assert.Equal(t, "OPS-7", refs[0].ContentID)
	assert.Equal(t, "Printer on fire", refs[0].ContentTitle)
	assert.Equal(t, "OPS", refs[0].Key)
	assert.Equal(t, "Robin", refs[0].Author)
	assert.True(t, refs[0].IsPDF())
}

func TestProjectKeyFallsBackToIssueKeyPrefix(t *testing.T) {
	i := Issue{Key: "TEAM-42"}
	assert.Equal(t, "TEAM", i.ProjectKey())

	i.Fields.Project = &Project{Key: "OTHER"}
	assert.Equal(t, "OTHER", i.ProjectKey())
}

func TestCreateIssueDefaultsToTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/rest/api/2/issue", r.URL.Path)

		var payload struct {
			Fields map[string]any `json:"fields"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Fix the build", payload.Fields["summary"])
		issuetype := payload.Fields["issuetype"].(map[string]any)
		assert.Equal(t, "Task", issuetype["name"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"10001","key":"OPS-101"}`)
	}))
	defer srv.Close()

	issue, err := testClient(srv).CreateIssue(context.Background(), "OPS", "Fix the build", "", "")
	require.NoError(t, err)
	assert.Equal(t, "OPS-101", issue.Key)
}

func TestUploadAttachmentRejectsOversizedFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an oversized upload")
	}))
	defer srv.Close()

	_, err := testClient(srv).UploadAttachment(context.Background(), "OPS-1", "huge.bin",
		strings.NewReader("x"), maxUploadBytes+1)
	require.Error(t, err)
	assert.True(t, atlassian.IsKind(err, atlassian.KindValidation))
	assert.Contains(t, err.Error(), "upload limit")
}

func TestUploadAttachmentSendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/api/2/issue/OPS-1/attachments", r.URL.Path)
		require.Equal(t, "no-check", r.Header.Get("X-Atlassian-Token"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "log.txt", hdr.Filename)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"id":"901","filename":"log.txt","size":5}]`)
	}))
	defer srv.Close()

	att, err := testClient(srv).UploadAttachment(context.Background(), "OPS-1", "log.txt",
		strings.NewReader("hello"), 5)
	require.NoError(t, err)
	assert.Equal(t, "901", att.ID)
}

func TestRateLimitSurfacesRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(srv).ListProjects(context.Background())
	require.Error(t, err)
	var apiErr *atlassian.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, atlassian.KindRateLimit, apiErr.Kind)
	assert.Equal(t, 30*time.Second, apiErr.RetryAfter)
}
