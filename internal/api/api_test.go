package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"iter"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/yegors/maintlog/internal/config"
	"github.com/yegors/maintlog/internal/maintenance"
	"github.com/yegors/maintlog/internal/storage/sqlite"
	"github.com/yegors/maintlog/internal/workflow"
	"github.com/yegors/maintlog/pkg/logger"
)

type fakeRunner struct {
	mu    sync.Mutex
	lines []workflow.TranscriptLine
	err   error
	got   []workflow.Request
}

func (f *fakeRunner) Run(ctx context.Context, req workflow.Request) iter.Seq2[workflow.TranscriptLine, error] {
	f.mu.Lock()
	f.got = append(f.got, req)
	f.mu.Unlock()
	return func(yield func(workflow.TranscriptLine, error) bool) {
		for _, line := range f.lines {
			if !yield(line, nil) {
				return
			}
		}
		if f.err != nil {
			yield(workflow.TranscriptLine{}, &workflow.AnalysisError{Stage: workflow.StagePipeline, RunID: req.RunID, Err: f.err})
		}
	}
}

func (f *fakeRunner) requests() []workflow.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]workflow.Request(nil), f.got...)
}

func sampleLines() []workflow.TranscriptLine {
	at := time.Date(2024, 3, 5, 9, 4, 1, 0, time.UTC)
	return []workflow.TranscriptLine{
		{Time: at, Agent: "AIRCRAFT_ANALYZER", Message: "Hydraulic leak found."},
		{Time: at.Add(time.Second), Agent: "RISK_ASSESSOR", Message: "Priority CRITICAL."},
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func newTestServer(t *testing.T, runner AnalysisRunner, records RecordQuerier) *httptest.Server {
	t.Helper()
	cfg := config.Default()
	srv := httptest.NewServer(NewRouter(runner, records, cfg, logger.NewNop()).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func uploadRequest(t *testing.T, url string, image []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if image != nil {
		part, err := mw.CreateFormFile("image", "log.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, url, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func readFrames(t *testing.T, resp *http.Response) []Frame {
	t.Helper()
	var frames []Frame
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var f Frame
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &f))
		frames = append(frames, f)
	}
	require.NoError(t, scanner.Err())
	return frames
}

func TestStreamAnalysisNDJSON(t *testing.T) {
	runner := &fakeRunner{lines: sampleLines()}
	srv := newTestServer(t, runner, nil)

	req := uploadRequest(t, srv.URL+"/api/v1/analyses", pngBytes(t), map[string]string{
		"aircraft_id":       "N123AB",
		"priority_override": "HIGH",
	})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-ndjson", resp.Header.Get("Content-Type"))

	frames := readFrames(t, resp)
	require.Len(t, frames, 4)
	assert.Equal(t, FrameStart, frames[0].Type)
	assert.NotEmpty(t, frames[0].RunID)

	assert.Equal(t, FrameLine, frames[1].Type)
	assert.Equal(t, "AIRCRAFT_ANALYZER", frames[1].Agent)
	assert.Equal(t, "09:04:01", frames[1].Timestamp)
	assert.Equal(t, "Priority CRITICAL.", frames[2].Message)

	assert.Equal(t, FrameComplete, frames[3].Type)
	require.NotNil(t, frames[3].Lines)
	assert.Equal(t, 2, *frames[3].Lines)

	got := runner.requests()
	require.Len(t, got, 1)
	assert.Equal(t, "N123AB", got[0].AircraftID)
	assert.Equal(t, "HIGH", got[0].PriorityOverride)
	assert.Equal(t, frames[0].RunID, got[0].RunID)
}

func TestStreamAnalysisReportsFailureInline(t *testing.T) {
	runner := &fakeRunner{lines: sampleLines()[:1], err: errors.New("model unavailable")}
	srv := newTestServer(t, runner, nil)

	resp, err := http.DefaultClient.Do(uploadRequest(t, srv.URL+"/api/v1/analyses", pngBytes(t), nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	frames := readFrames(t, resp)
	require.Len(t, frames, 3)
	assert.Equal(t, FrameLine, frames[1].Type)
	assert.Equal(t, FrameError, frames[2].Type)
	assert.Equal(t, "Analysis failed: model unavailable", frames[2].Error)
}

func TestStreamAnalysisRejectsBadUploads(t *testing.T) {
	runner := &fakeRunner{}
	srv := newTestServer(t, runner, nil)

	resp, err := http.DefaultClient.Do(uploadRequest(t, srv.URL+"/api/v1/analyses", nil, map[string]string{"aircraft_id": "N1"}))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.DefaultClient.Do(uploadRequest(t, srv.URL+"/api/v1/analyses", []byte("GIF89a not really"), nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "unsupported image format")

	assert.Empty(t, runner.requests())
}

func TestStreamAnalysisRejectsOversizedImage(t *testing.T) {
	cfg := config.Default()
	cfg.Server.MaxUploadMB = 1
	runner := &fakeRunner{}
	srv := httptest.NewServer(NewRouter(runner, nil, cfg, logger.NewNop()).Routes())
	t.Cleanup(srv.Close)

	oversized := make([]byte, 1<<20+512<<10)
	resp, err := http.DefaultClient.Do(uploadRequest(t, srv.URL+"/api/v1/analyses", oversized, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	assert.Empty(t, runner.requests())
}

func TestAnalysisWebSocket(t *testing.T) {
	runner := &fakeRunner{lines: sampleLines()}
	srv := newTestServer(t, runner, nil)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/analyses/ws"
	conn, err := websocket.Dial(wsURL, "", srv.URL)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, websocket.JSON.Send(conn, wsRequest{
		Image:      base64.StdEncoding.EncodeToString(pngBytes(t)),
		AircraftID: "C-GABC",
	}))

	var frames []Frame
	for {
		var f Frame
		if err := websocket.JSON.Receive(conn, &f); err != nil {
			break
		}
		frames = append(frames, f)
		if f.Type == FrameComplete || f.Type == FrameError {
			break
		}
	}

	require.Len(t, frames, 4)
	assert.Equal(t, FrameStart, frames[0].Type)
	assert.Equal(t, "RISK_ASSESSOR", frames[2].Agent)
	assert.Equal(t, FrameComplete, frames[3].Type)
	assert.Equal(t, "C-GABC", runner.requests()[0].AircraftID)
}

func TestAnalysisWebSocketRejectsBadImageEncoding(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{}, nil)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/analyses/ws"
	conn, err := websocket.Dial(wsURL, "", srv.URL)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, websocket.JSON.Send(conn, wsRequest{Image: "%%%"}))

	var f Frame
	require.NoError(t, websocket.JSON.Receive(conn, &f))
	assert.Equal(t, FrameError, f.Type)
	assert.Contains(t, f.Error, "base64")
}

func TestRecordsEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{}, nil)
	resp, err := http.Get(srv.URL + "/api/v1/records")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "storage disabled")

	db, err := sqlite.Open(":memory:", logger.NewNop())
	require.NoError(t, err)
	defer db.Close()
	storage, err := sqlite.NewRecordStorage(db, logger.NewNop())
	require.NoError(t, err)

	audit := maintenance.NewAuditLogger("AutoGen_System", logger.NewNop())
	for _, id := range []string{"N1", "N2", "N1"} {
		rec := audit.LogAnalysis(id, "worn brake pads", maintenance.PriorityHigh)
		_, err := storage.StoreRecord(context.Background(), &rec)
		require.NoError(t, err)
	}
	low := audit.LogAnalysis("N3", "routine inspection", maintenance.PriorityLow)
	_, err = storage.StoreRecord(context.Background(), &low)
	require.NoError(t, err)

	srv = newTestServer(t, &fakeRunner{}, storage)

	resp, err = http.Get(srv.URL + "/api/v1/records?aircraft_id=N1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Records []map[string]any `json:"records"`
		Count   int              `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "N1", body.Records[0]["aircraft_id"])
	assert.Equal(t, "HIGH", body.Records[0]["priority"])

	resp2, err := http.Get(srv.URL + "/api/v1/records?limit=zero")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)

	resp3, err := http.Get(srv.URL + "/api/v1/records?priority=low")
	require.NoError(t, err)
	defer resp3.Body.Close()
	require.Equal(t, http.StatusOK, resp3.StatusCode)
	var byPriority struct {
		Records []map[string]any `json:"records"`
		Count   int              `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp3.Body).Decode(&byPriority))
	require.Equal(t, 1, byPriority.Count)
	assert.Equal(t, "N3", byPriority.Records[0]["aircraft_id"])

	for _, q := range []string{"priority=SEVERE", "priority=HIGH&aircraft_id=N1"} {
		resp, err := http.Get(srv.URL + "/api/v1/records?" + q)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestHealthIndexAndMetrics(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{}, nil)

	resp, err := http.Get(srv.URL + "/api/v1/health")
	require.NoError(t, err)
	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, false, health["storage"])

	resp, err = http.Get(srv.URL + "/")
	require.NoError(t, err)
	var page bytes.Buffer
	_, err = page.ReadFrom(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, page.String(), "Aircraft Maintenance Log Analyzer")

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIndexDiscardsPartialTranscriptOnFailure(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{}, nil)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	var page bytes.Buffer
	_, err = page.ReadFrom(resp.Body)
	require.NoError(t, err)
	html := page.String()

	errorCase := html[strings.Index(html, "case 'error':"):]
	errorCase = errorCase[:strings.Index(errorCase, "break;")]
	require.Contains(t, errorCase, "results.replaceChildren();")
	assert.Less(t, strings.Index(errorCase, "results.replaceChildren();"), strings.Index(errorCase, "showStatus('error'"),
		"error frame clears rendered lines before showing the banner")

	catchBlock := html[strings.Index(html, "catch (err)"):]
	catchBlock = catchBlock[:strings.Index(catchBlock, "finally")]
	assert.Contains(t, catchBlock, "results.replaceChildren();")

	assert.Contains(t, html, `<img id="preview"`)
	assert.Contains(t, html, "URL.createObjectURL(file)")
	assert.Contains(t, html, "Please upload an aircraft maintenance log image")
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{}, nil)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/analyses", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://ops.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://ops.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestOriginAllowList(t *testing.T) {
	mw := NewMiddleware([]string{"https://ops.example.com"}, logger.NewNop())
	assert.True(t, mw.originAllowed("https://ops.example.com"))
	assert.False(t, mw.originAllowed("https://evil.example.com"))
	assert.False(t, mw.originAllowed(""))

	open := NewMiddleware(nil, logger.NewNop())
	assert.True(t, open.originAllowed(""))
}
