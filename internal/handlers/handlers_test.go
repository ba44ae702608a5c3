package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"photo-gallery/internal/blobstore"
	"photo-gallery/internal/database"
	"photo-gallery/internal/ingest"
	"photo-gallery/internal/progress"
	"photo-gallery/internal/queue"
	"photo-gallery/internal/rendition"
	"photo-gallery/internal/startup"
)

// =============================================================================
// Fixture
// =============================================================================

type testServer struct {
	h      *Handlers
	router *mux.Router
	db     *database.Database
	blobs  *blobstore.LocalStore
	gen    *rendition.Generator
	hub    *progress.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	root := t.TempDir()

	db, err := database.New(ctx, filepath.Join(root, "gallery.db"))
	if err != nil {
		t.Fatalf("database.New() failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	blobs, err := blobstore.NewLocalStore(filepath.Join(root, "blobs"))
	if err != nil {
		t.Fatalf("NewLocalStore() failed: %v", err)
	}
	gen, err := rendition.NewGenerator(blobs, rendition.Options{CacheDir: filepath.Join(root, "renditions")})
	if err != nil {
		t.Fatalf("NewGenerator() failed: %v", err)
	}

	// The queue is never started, so queued work stays pending.
	tasks := queue.New(db, queue.Options{Workers: 1})
	hub := progress.NewHub()
	proc := ingest.NewProcessor(blobs, db, tasks, gen, hub, ingest.Options{})

	h := New(Deps{DB: db, Blobs: blobs, Renditions: gen, Processor: proc, Tasks: tasks, Hub: hub},
		&startup.Config{MaxUploadBytes: 64 << 20})
	router := mux.NewRouter()
	h.RegisterRoutes(router)

	return &testServer{h: h, router: router, db: db, blobs: blobs, gen: gen, hub: hub}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) createAlbum(t *testing.T, name string) *database.Album {
	t.Helper()
	album, err := s.db.CreateAlbum(context.Background(), name)
	if err != nil {
		t.Fatalf("CreateAlbum() failed: %v", err)
	}
	return album
}

func jsonRequest(method, target string, body any) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func encodePNG(t *testing.T, w, h int, shade uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: shade, G: uint8(x), B: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

type upload struct {
	filename string
	data     []byte
}

func multipartRequest(t *testing.T, target string, files []upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename="%s"`, f.filename))
		header.Set("Content-Type", "image/png")
		part, err := mw.CreatePart(header)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(f.data)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func pngUploads(t *testing.T, n int) []upload {
	files := make([]upload, n)
	for i := range files {
		files[i] = upload{filename: fmt.Sprintf("img-%02d.png", i), data: encodePNG(t, 6, 4, uint8(i))}
	}
	return files
}

// =============================================================================
// Albums
// =============================================================================

func TestCreateAlbum(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(jsonRequest(http.MethodPost, "/api/albums", map[string]string{"name": "Summer Trip"}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	album := decode[database.Album](t, rec)
	if album.Slug != "summer-trip" || rec.Header().Get("Location") != "/api/albums/summer-trip" {
		t.Errorf("album = %+v, Location %q", album, rec.Header().Get("Location"))
	}

	rec = s.do(jsonRequest(http.MethodPost, "/api/albums", map[string]string{"name": "  "}))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("blank name status = %d", rec.Code)
	}
	resp := decode[validationResponse](t, rec)
	if len(resp.Reasons) != 1 || resp.Reasons[0] != "name can't be blank" {
		t.Errorf("reasons = %v", resp.Reasons)
	}

	rec = s.do(httptest.NewRequest(http.MethodPost, "/api/albums", strings.NewReader("{")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d", rec.Code)
	}
}

func TestGetAlbumByIDOrSlug(t *testing.T) {
	s := newTestServer(t)
	album := s.createAlbum(t, "Winter")

	for _, ref := range []string{fmt.Sprint(album.ID), album.Slug} {
		rec := s.do(httptest.NewRequest(http.MethodGet, "/api/albums/"+ref, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s status = %d", ref, rec.Code)
		}
		if got := decode[database.Album](t, rec); got.ID != album.ID {
			t.Errorf("GET %s returned album %d", ref, got.ID)
		}
	}

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/albums/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown album status = %d", rec.Code)
	}

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/albums", nil))
	if albums := decode[[]database.Album](t, rec); len(albums) != 1 {
		t.Errorf("ListAlbums returned %d albums", len(albums))
	}
}

// =============================================================================
// Uploads
// =============================================================================

func TestUploadPhotosInline(t *testing.T) {
	s := newTestServer(t)
	album := s.createAlbum(t, "Inline")

	rec := s.do(multipartRequest(t, "/api/albums/inline/photos", pngUploads(t, 2)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	resp := decode[uploadResponse](t, rec)
	if resp.Outcome != ingest.OutcomeComplete || len(resp.Created) != 2 || len(resp.Failed) != 0 {
		t.Errorf("response = %+v", resp)
	}
	if resp.Created[0].ContentType != "image/png" {
		t.Errorf("content type = %q", resp.Created[0].ContentType)
	}

	rec = s.do(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/albums/%d/photos", album.ID), nil))
	if photos := decode[[]database.Photo](t, rec); len(photos) != 2 {
		t.Errorf("album has %d photos, want 2", len(photos))
	}
}

func TestUploadPhotosAllFailed(t *testing.T) {
	s := newTestServer(t)
	s.createAlbum(t, "Broken")

	rec := s.do(multipartRequest(t, "/api/albums/broken/photos", []upload{{filename: "empty.png"}}))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	resp := decode[uploadResponse](t, rec)
	if resp.Outcome != ingest.OutcomeFailed || len(resp.Failed) != 1 || resp.Failed[0].Kind != ingest.KindNoContent {
		t.Errorf("response = %+v", resp)
	}
}

func TestUploadPhotosNoFiles(t *testing.T) {
	s := newTestServer(t)
	s.createAlbum(t, "Empty")

	rec := s.do(multipartRequest(t, "/api/albums/empty/photos", nil))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp := decode[validationResponse](t, rec); resp.Reasons[0] != "Images must be selected" {
		t.Errorf("reasons = %v", resp.Reasons)
	}

	rec = s.do(multipartRequest(t, "/api/albums/missing/photos", pngUploads(t, 1)))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown album status = %d", rec.Code)
	}
}

func TestUploadPhotosLargeBatchIsQueued(t *testing.T) {
	s := newTestServer(t)
	album := s.createAlbum(t, "Big")

	rec := s.do(multipartRequest(t, "/api/albums/big/photos", pngUploads(t, 20)))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	resp := decode[acceptedResponse](t, rec)
	if !resp.Accepted || resp.ItemCount != 20 || resp.TaskID == "" {
		t.Fatalf("response = %+v", resp)
	}

	photos, _ := s.db.ListPhotos(context.Background(), album.ID)
	if len(photos) != 0 {
		t.Errorf("photos created before the task ran: %d", len(photos))
	}

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/tasks/"+resp.TaskID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("task status = %d", rec.Code)
	}
	task := decode[database.Task](t, rec)
	if task.Kind != ingest.TaskIngestBatch || task.Status != database.TaskPending {
		t.Errorf("task = %+v", task)
	}
}

func TestPreUploadThenAsyncUpload(t *testing.T) {
	s := newTestServer(t)
	s.createAlbum(t, "Direct")
	data := encodePNG(t, 5, 5, 9)

	rec := s.do(jsonRequest(http.MethodPost, "/api/blobs", map[string]any{
		"files": []map[string]string{
			{"filename": "direct.png", "contentType": "image/png", "content": base64.StdEncoding.EncodeToString(data)},
			{"filename": "empty.png", "contentType": "image/png"},
		},
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("pre-upload status = %d, body %s", rec.Code, rec.Body)
	}
	results := decode[[]preUploadResult](t, rec)
	if len(results) != 2 || results[0].BlobKey == "" || results[0].ByteSize != int64(len(data)) {
		t.Fatalf("results = %+v", results)
	}
	if results[1].Error != "no content" || results[1].BlobKey != "" {
		t.Errorf("empty file result = %+v", results[1])
	}

	rec = s.do(jsonRequest(http.MethodPost, "/api/albums/direct/photos/async", map[string]any{
		"files": []map[string]string{{"filename": "direct.png", "contentType": "image/png", "blobKey": results[0].BlobKey}},
	}))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("async status = %d, body %s", rec.Code, rec.Body)
	}
	if resp := decode[acceptedResponse](t, rec); resp.ItemCount != 1 || resp.TaskID == "" {
		t.Errorf("response = %+v", resp)
	}

	rec = s.do(jsonRequest(http.MethodPost, "/api/albums/direct/photos/async", map[string]any{"files": []any{}}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty async status = %d", rec.Code)
	}
}

// =============================================================================
// Photos and renditions
// =============================================================================

func (s *testServer) uploadOne(t *testing.T, albumSlug string, data []byte) database.Photo {
	t.Helper()
	rec := s.do(multipartRequest(t, "/api/albums/"+albumSlug+"/photos", []upload{{filename: "one.png", data: data}}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body)
	}
	return decode[uploadResponse](t, rec).Created[0]
}

func TestGetRendition(t *testing.T) {
	s := newTestServer(t)
	s.createAlbum(t, "Renders")
	data := encodePNG(t, 40, 20, 3)
	photo := s.uploadOne(t, "renders", data)
	base := fmt.Sprintf("/api/photos/%d/renditions/", photo.ID)

	rec := s.do(httptest.NewRequest(http.MethodGet, base+"poster", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown profile status = %d", rec.Code)
	}

	rec = s.do(httptest.NewRequest(http.MethodGet, base+"thumbnail", nil))
	if rec.Code != http.StatusOK || rec.Header().Get(FallbackHeader) != "original" {
		t.Fatalf("fallback status = %d, header %q", rec.Code, rec.Header().Get(FallbackHeader))
	}
	if !bytes.Equal(rec.Body.Bytes(), data) || rec.Header().Get("Content-Type") != "image/png" {
		t.Error("fallback should serve the original bytes")
	}

	if report := s.gen.Generate(context.Background(), &photo); !report.OK() {
		t.Fatalf("Generate() failed: %v", report.Err())
	}

	rec = s.do(httptest.NewRequest(http.MethodGet, base+"thumbnail", nil))
	if rec.Code != http.StatusOK || rec.Header().Get(FallbackHeader) != "" {
		t.Fatalf("hit status = %d, header %q", rec.Code, rec.Header().Get(FallbackHeader))
	}
	if rec.Header().Get("Content-Type") != "image/jpeg" {
		t.Errorf("rendition content type = %q", rec.Header().Get("Content-Type"))
	}

	rec = s.do(httptest.NewRequest(http.MethodGet, base+"original", nil))
	if rec.Code != http.StatusOK || !bytes.Equal(rec.Body.Bytes(), data) {
		t.Errorf("original status = %d", rec.Code)
	}

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/photos/999/renditions/thumbnail", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing photo status = %d", rec.Code)
	}
}

func TestDeletePhotoKeepsBlob(t *testing.T) {
	s := newTestServer(t)
	s.createAlbum(t, "Delete")
	photo := s.uploadOne(t, "delete", encodePNG(t, 4, 4, 1))
	target := fmt.Sprintf("/api/photos/%d", photo.ID)

	if rec := s.do(httptest.NewRequest(http.MethodGet, target, nil)); rec.Code != http.StatusOK {
		t.Fatalf("GetPhoto status = %d", rec.Code)
	}
	if rec := s.do(httptest.NewRequest(http.MethodDelete, target, nil)); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := s.do(httptest.NewRequest(http.MethodDelete, target, nil)); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d", rec.Code)
	}
	if _, err := s.blobs.Exists(context.Background(), photo.BlobKey); err != nil {
		t.Errorf("blob should survive photo deletion: %v", err)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/tasks/does-not-exist", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

// =============================================================================
// Progress feed
// =============================================================================

func TestAlbumEventsStream(t *testing.T) {
	s := newTestServer(t)
	album := s.createAlbum(t, "Live")

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/albums/live/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET events failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.hub.Subscribers(album.ID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	s.hub.Publish(album.ID, progress.BatchComplete(2, 1))

	reader := bufio.NewReader(resp.Body)
	var eventLine, dataLine string
	for dataLine == "" {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		switch {
		case strings.HasPrefix(line, "event: "):
			eventLine = strings.TrimSpace(strings.TrimPrefix(line, "event: "))
		case strings.HasPrefix(line, "data: "):
			dataLine = strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		}
	}

	if eventLine != "batch_complete" {
		t.Errorf("event = %q", eventLine)
	}
	var ev progress.Event
	if err := json.Unmarshal([]byte(dataLine), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Batch == nil || ev.Batch.CreatedCount != 2 || ev.Batch.FailedCount != 1 {
		t.Errorf("event = %+v", ev)
	}

	cancel()
	io.Copy(io.Discard, resp.Body)
	deadline = time.Now().Add(2 * time.Second)
	for s.hub.Subscribers(album.ID) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription not closed after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAlbumEventsUnknownAlbum(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/albums/ghost/events", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}
