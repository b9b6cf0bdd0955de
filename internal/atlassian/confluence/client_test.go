package confluence

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golovatskygroup/mcp-atlas/internal/atlassian"
)

func testClient(srv *httptest.Server) *Client {
	return New(atlassian.Credentials{BaseURL: srv.URL, AuthHeader: "Bearer token"})
}

func TestListSpacesWalksPagination(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/api/space", r.URL.Path)
		require.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		calls++

		w.Header().Set("Content-Type", "application/json")
		start := r.URL.Query().Get("start")
		if start == "" || start == "0" {
			fmt.Fprint(w, `{"results":[{"key":"ENG","name":"Engineering"},{"key":"OPS","name":"Operations"}],"size":2,"_links":{"next":"/rest/api/space?start=2"}}`)
			return
		}
		fmt.Fprint(w, `{"results":[{"key":"HR","name":"People"}],"size":1,"_links":{}}`)
	}))
	defer srv.Close()

	spaces, err := testClient(srv).ListSpaces(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, spaces, 3)
	assert.Equal(t, "ENG", spaces[0].Key)
	assert.Equal(t, "HR", spaces[2].Key)
	assert.Equal(t, 2, calls)
}

func TestListSpacesHonorsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results":[{"key":"A"},{"key":"B"},{"key":"C"}],"size":3,"_links":{"next":"/rest/api/space?start=3"}}`)
	}))
	defer srv.Close()

	spaces, err := testClient(srv).ListSpaces(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, spaces, 2)
}

func TestSearchCQLForwardsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/api/content/search", r.URL.Path)
		assert.Equal(t, `space = "ENG" AND type = "page" ORDER BY created DESC`, r.URL.Query().Get("cql"))
		assert.Contains(t, r.URL.Query().Get("expand"), "space")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results":[{"id":"100","title":"Runbook","space":{"key":"ENG"}}],"size":1,"_links":{}}`)
	}))
	defer srv.Close()

	got, err := testClient(srv).SearchCQL(context.Background(),
		`space = "ENG" AND type = "page" ORDER BY created DESC`, 25)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Runbook", got[0].Title)
	assert.Equal(t, "ENG", got[0].Space.Key)
}

func TestSearchCQLRejectsEmptyQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer srv.Close()

	_, err := testClient(srv).SearchCQL(context.Background(), "  ", 10)
	require.Error(t, err)
	assert.True(t, atlassian.IsKind(err, atlassian.KindValidation))
}

func TestGetContentExpandsBodyOnDemand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/api/content/100", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("expand"), "body.storage")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"100","title":"Runbook","body":{"storage":{"value":"<p>hi</p>","representation":"storage"}}}`)
	}))
	defer srv.Close()

	content, err := testClient(srv).GetContent(context.Background(), "100", true)
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", content.BodyValue())
}

func TestGetContentByTitleNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results":[],"size":0}`)
	}))
	defer srv.Close()

	_, err := testClient(srv).GetContentByTitle(context.Background(), "ENG", "Missing", "page", false)
	require.Error(t, err)
	assert.True(t, atlassian.IsKind(err, atlassian.KindNotFound))
}

func TestListAttachmentsBuildsRefs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/api/content/100/child/attachment", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results":[{"id":"att1","title":"report.pdf","extensions":{"mediaType":"application/pdf","fileSize":2048},"version":{"when":"2024-03-01T10:00:00.000Z","by":{"displayName":"Dana"}},"_links":{"download":"/download/attachments/100/report.pdf"}}],"size":1,"_links":{}}`)
	}))
	defer srv.Close()

	atts, err := testClient(srv).ListAttachments(context.Background(), "100", 25)
	require.NoError(t, err)
	require.Len(t, atts, 1)

	content := Content{ID: "100", Title: "Runbook", Space: &Space{Key: "ENG"}}
	refs := Refs(content, atts)
	require.Len(t, refs, 1)
	assert.Equal(t, "report.pdf", refs[0].Filename)
	assert.Equal(t, "ENG", refs[0].Key)
	assert.Equal(t, "Runbook", refs[0].ContentTitle)
	assert.Equal(t, int64(2048), refs[0].Size)
	assert.Equal(t, "Dana", refs[0].Author)
	assert.True(t, refs[0].IsPDF())
}

func TestCreatePagePostsStorageBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/rest/api/content", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "page", payload["type"])
		assert.Equal(t, "New Page", payload["title"])
		space := payload["space"].(map[string]any)
		assert.Equal(t, "ENG", space["key"])
		ancestors := payload["ancestors"].([]any)
		require.Len(t, ancestors, 1)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"200","title":"New Page","_links":{"webui":"/spaces/ENG/pages/200"}}`)
	}))
	defer srv.Close()

	created, err := testClient(srv).CreatePage(context.Background(), "ENG", "New Page", "<p>body</p>", "100")
	require.NoError(t, err)
	assert.Equal(t, "200", created.ID)
}

func TestUploadAttachmentSendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/rest/api/content/100/child/attachment", r.URL.Path)
		require.Equal(t, "no-check", r.Header.Get("X-Atlassian-Token"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "report.pdf", hdr.Filename)
		assert.Equal(t, "quarterly numbers", r.FormValue("comment"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results":[{"id":"att9","title":"report.pdf"}],"size":1}`)
	}))
	defer srv.Close()

	att, err := testClient(srv).UploadAttachment(context.Background(), "100", "report.pdf",
		strings.NewReader("%PDF-1.4 fake"), "quarterly numbers")
	require.NoError(t, err)
	assert.Equal(t, "att9", att.ID)
}

func TestAuthErrorOnLoginRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login.action", http.StatusFound)
	}))
	defer srv.Close()

	_, err := testClient(srv).GetSpace(context.Background(), "ENG")
	require.Error(t, err)
	assert.True(t, atlassian.IsKind(err, atlassian.KindAuth))
}

func TestNormalizeBaseAppendsWikiForCloud(t *testing.T) {
	assert.Equal(t, "https://acme.atlassian.net/wiki", normalizeBase("https://acme.atlassian.net"))
	assert.Equal(t, "https://acme.atlassian.net/wiki", normalizeBase("https://acme.atlassian.net/wiki"))
	assert.Equal(t, "https://confluence.corp.example.com", normalizeBase("https://confluence.corp.example.com"))
}
