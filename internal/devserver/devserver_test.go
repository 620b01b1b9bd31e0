// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package devserver

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-form-keeper/internal/adapter"
	"github.com/MKhiriev/go-form-keeper/internal/config"
	"github.com/MKhiriev/go-form-keeper/internal/logger"
	"github.com/MKhiriev/go-form-keeper/models"
)

const (
	testID    = "abc123"
	testForm  = `<form class="or"><img src="jr://images/logo.png" alt="logo"><audio src="jr://audio/intro.mp3"></audio></form>`
	testModel = `<model><instance><data id="household"><name/><meta><instanceID/></meta></data></instance></model>`
)

var (
	logoPNG  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	introMP3 = []byte("ID3 audio")
)

func writeForm(t *testing.T, dir, id string, media map[string][]byte) {
	t.Helper()

	formDir := filepath.Join(dir, id)
	require.NoError(t, os.MkdirAll(formDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(formDir, formFile), []byte(testForm), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(formDir, modelFile), []byte(testModel), 0o644))
	for name, data := range media {
		require.NoError(t, os.WriteFile(filepath.Join(formDir, name), data, 0o644))
	}
}

type testServer struct {
	handler *Handler
	server  *httptest.Server
	adapter adapter.ServerAdapter
	dir     string
}

func newTestServer(t *testing.T, maxSize int64) testServer {
	t.Helper()

	dir := t.TempDir()
	writeForm(t, dir, testID, map[string][]byte{"logo.png": logoPNG, "intro.mp3": introMP3})

	h, err := NewHandler(config.ServerConfig{
		Address:        "127.0.0.1:0",
		FormsDir:       dir,
		MaxSize:        maxSize,
		RequestTimeout: 5 * time.Second,
	}, logger.Nop())
	require.NoError(t, err)

	srv := httptest.NewServer(h.Init())
	t.Cleanup(srv.Close)

	a, err := adapter.NewHTTPServerAdapter(config.ClientAdapter{
		ServerURL:         srv.URL,
		RequestTimeout:    2 * time.Second,
		SubmissionTimeout: 2 * time.Second,
		ProbeTimeout:      time.Second,
		MaxSizeTimeout:    time.Second,
	}, logger.Nop())
	require.NoError(t, err)

	return testServer{handler: h, server: srv, adapter: a, dir: dir}
}

func testInstance(instanceID string) string {
	return `<data id="household"><name>Ann</name><photo>cat.jpg</photo><meta><instanceID>` + instanceID + `</instanceID></meta></data>`
}

// ── FormStore ────────────────────────────────────────────────────────────────

func TestFormStore_Parts(t *testing.T) {
	dir := t.TempDir()
	writeForm(t, dir, testID, map[string][]byte{"logo.png": logoPNG})
	s := NewFormStore(dir)

	parts, err := s.Parts(testID)
	require.NoError(t, err)

	assert.Contains(t, parts.Form, `src="/media/abc123/logo.png"`)
	assert.Contains(t, parts.Form, `src="/media/abc123/intro.mp3"`)
	assert.NotContains(t, parts.Form, "jr://")
	assert.Equal(t, testModel, parts.Model)
	assert.NotEmpty(t, parts.Hash)

	again, err := s.Parts(testID)
	require.NoError(t, err)
	assert.Equal(t, parts.Hash, again.Hash, "hash is stable")

	require.NoError(t, os.WriteFile(filepath.Join(dir, testID, "logo.png"), []byte("new logo"), 0o644))
	changed, err := s.Parts(testID)
	require.NoError(t, err)
	assert.NotEqual(t, parts.Hash, changed.Hash, "media changes the hash")
}

func TestFormStore_Errors(t *testing.T) {
	dir := t.TempDir()
	writeForm(t, dir, testID, nil)
	s := NewFormStore(dir)

	tests := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{
			name:    "unknown form",
			call:    func() error { _, err := s.Parts("nope"); return err },
			wantErr: ErrFormNotFound,
		},
		{
			name:    "path traversal",
			call:    func() error { _, err := s.Parts("../etc"); return err },
			wantErr: ErrInvalidFormID,
		},
		{
			name:    "empty id",
			call:    func() error { _, err := s.Parts(""); return err },
			wantErr: ErrInvalidFormID,
		},
		{
			name:    "missing media",
			call:    func() error { _, err := s.Media(testID, "logo.png"); return err },
			wantErr: ErrMediaNotFound,
		},
		{
			name:    "model is not media",
			call:    func() error { _, err := s.Media(testID, modelFile); return err },
			wantErr: ErrMediaNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), tt.wantErr)
		})
	}

	assert.True(t, s.Exists(testID))
	assert.False(t, s.Exists("nope"))
}

// ── client contract ──────────────────────────────────────────────────────────

func TestHandler_FormParts(t *testing.T) {
	ts := newTestServer(t, 1<<20)
	ctx := context.Background()
	ref := models.SurveyRef{ID: testID}

	parts, err := ts.adapter.GetFormParts(ctx, ref)
	require.NoError(t, err)

	hash, err := ts.adapter.GetFormPartsHash(ctx, ref)
	require.NoError(t, err)

	assert.Equal(t, parts.Hash, hash)
	assert.Contains(t, parts.Form, "/media/abc123/logo.png")

	_, err = ts.adapter.GetFormParts(ctx, models.SurveyRef{ID: "missing"})
	assert.True(t, adapter.IsNotFound(err))

	_, err = ts.adapter.GetFormPartsHash(ctx, models.SurveyRef{ID: "missing"})
	assert.True(t, adapter.IsNotFound(err))
}

func TestHandler_Media(t *testing.T) {
	ts := newTestServer(t, 1<<20)
	ctx := context.Background()

	item, err := ts.adapter.GetFile(ctx, "/media/abc123/logo.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", item.MIMEType)
	assert.Equal(t, logoPNG, item.Data)

	_, err = ts.adapter.GetFile(ctx, "/media/abc123/missing.png")
	assert.True(t, adapter.IsNotFound(err))
}

func TestHandler_MaxSizeAndProbe(t *testing.T) {
	ts := newTestServer(t, 3<<20)
	ctx := context.Background()

	size, err := ts.adapter.GetMaximumSubmissionSize(ctx, models.SurveyRef{ID: testID})
	require.NoError(t, err)
	assert.Equal(t, int64(3<<20), size)

	online, err := ts.adapter.CheckConnection(ctx)
	require.NoError(t, err)
	assert.True(t, online)
}

func TestHandler_Submit_MergesBatches(t *testing.T) {
	ts := newTestServer(t, 1<<20)
	ctx := context.Background()

	batch := models.Batch{
		Name:       "visit 1",
		SurveyID:   testID,
		InstanceID: "uuid:1",
		XML:        testInstance("uuid:1"),
		BatchCount: 2,
		BatchIndex: 0,
		Files: []models.BatchFile{
			{FieldName: "photo", FileName: "cat.jpg", Item: models.Blob{MIMEType: "image/jpeg", Data: []byte("jpeg")}},
		},
	}

	status, err := ts.adapter.Submit(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)

	batch.BatchIndex = 1
	batch.Files = []models.BatchFile{
		{FieldName: "voice", FileName: "note.ogg", Item: models.Blob{MIMEType: "audio/ogg", Data: []byte("ogg data")}},
	}
	status, err = ts.adapter.Submit(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)

	got := ts.handler.Submissions()
	require.Len(t, got, 1)
	assert.Equal(t, "uuid:1", got[0].InstanceID)
	assert.Equal(t, testID, got[0].SurveyID)
	assert.Equal(t, 2, got[0].Batches)
	assert.Equal(t, map[string]int64{"cat.jpg": 4, "note.ogg": 8}, got[0].Files)
	require.Len(t, got[0].TraceIDs, 2, "each batch request is traced")
	assert.NotEqual(t, got[0].TraceIDs[0], got[0].TraceIDs[1])
}

func TestHandler_Submit_Statuses(t *testing.T) {
	ctx := context.Background()
	valid := models.Batch{
		Name:       "visit 1",
		SurveyID:   testID,
		InstanceID: "uuid:1",
		XML:        testInstance("uuid:1"),
		BatchCount: 1,
	}

	tests := []struct {
		name   string
		setup  func(ts testServer)
		batch  func() models.Batch
		want   int
		stored int
	}{
		{
			name:  "unknown survey",
			batch: func() models.Batch { b := valid; b.SurveyID = "missing"; return b },
			want:  http.StatusNotFound,
		},
		{
			name: "instance without id",
			batch: func() models.Batch {
				b := valid
				b.XML = `<data id="household"><name>Ann</name></data>`
				return b
			},
			want: http.StatusBadRequest,
		},
		{
			name: "too large",
			batch: func() models.Batch {
				b := valid
				b.Files = []models.BatchFile{{FieldName: "photo", FileName: "big.jpg", Item: models.Blob{Data: make([]byte, 8<<10)}}}
				return b
			},
			want: http.StatusRequestEntityTooLarge,
		},
		{
			name:  "rejected on request",
			setup: func(ts testServer) { ts.handler.RejectSubmissions(http.StatusUnauthorized) },
			batch: func() models.Batch { return valid },
			want:  http.StatusUnauthorized,
		},
		{
			name:   "accepted",
			batch:  func() models.Batch { return valid },
			want:   http.StatusCreated,
			stored: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, 4<<10)
			if tt.setup != nil {
				tt.setup(ts)
			}

			status, err := ts.adapter.Submit(ctx, tt.batch())

			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
			assert.Len(t, ts.handler.Submissions(), tt.stored)
		})
	}
}

func TestHandler_Submit_RequiresOpenRosaHeader(t *testing.T) {
	ts := newTestServer(t, 1<<20)

	resp, err := http.Post(ts.server.URL+"/submission/"+testID, "text/plain", strings.NewReader("x"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// ── middleware ───────────────────────────────────────────────────────────────

func TestHandler_TraceID(t *testing.T) {
	ts := newTestServer(t, 1<<20)

	req, err := http.NewRequest(http.MethodGet, ts.server.URL+"/connection", nil)
	require.NoError(t, err)
	req.Header.Set(traceIDHeader, "trace-1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "trace-1", resp.Header.Get(traceIDHeader))

	resp2, err := http.Get(ts.server.URL + "/connection")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.NotEmpty(t, resp2.Header.Get(traceIDHeader), "a trace id is generated")
}

func TestHandler_Submit_RecordsTraceID(t *testing.T) {
	ts := newTestServer(t, 1<<20)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(adapter.SubmissionFileField, "xml_submission_file")
	require.NoError(t, err)
	_, err = part.Write([]byte(testInstance("uuid:7")))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, ts.server.URL+"/submission/"+testID, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(openRosaVersionHeader, "1.0")
	req.Header.Set(traceIDHeader, "trace-7")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	got := ts.handler.Submissions()
	require.Len(t, got, 1)
	assert.Equal(t, []string{"trace-7"}, got[0].TraceIDs)
}

func TestWithGZip(t *testing.T) {
	h := withGZip(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "13")
		_, _ = w.Write([]byte("Hello, World!"))
	}))

	tests := []struct {
		name           string
		acceptEncoding string
		wantGzip       bool
	}{
		{name: "gzip accepted", acceptEncoding: "gzip", wantGzip: true},
		{name: "gzip among others", acceptEncoding: "deflate, gzip;q=1.0, br", wantGzip: true},
		{name: "no gzip", acceptEncoding: "", wantGzip: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			var body []byte
			if tt.wantGzip {
				assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
				assert.Empty(t, rec.Header().Get("Content-Length"))
				zr, err := gzip.NewReader(rec.Body)
				require.NoError(t, err)
				body, err = io.ReadAll(zr)
				require.NoError(t, err)
			} else {
				assert.Empty(t, rec.Header().Get("Content-Encoding"))
				body = rec.Body.Bytes()
			}
			assert.Equal(t, "Hello, World!", string(body))
		})
	}
}

func TestHandler_Metrics(t *testing.T) {
	ts := newTestServer(t, 1<<20)

	_, err := ts.adapter.CheckConnection(context.Background())
	require.NoError(t, err)

	resp, err := http.Get(ts.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `formkeeper_http_requests_total{method="GET",route="/connection",status="200"} 1`)
}
