package churchtools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	perrors "github.com/FocuswithJustin/PsalmSlides/core/errors"
)

// fakeServer imitates the file endpoints of the API with a cookie session.
type fakeServer struct {
	mu       sync.Mutex
	files    []File
	logins   int
	expireAt int // request count at which the session expires once
	requests int
	deleted  []int
	uploads  map[string]string
	fields   map[string]string
	session  string
}

func newFakeServer(files ...File) *fakeServer {
	return &fakeServer{files: files, uploads: map[string]string{}, fields: map[string]string{}}
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path == "/api/login" && r.Method == http.MethodPost {
		var creds map[string]string
		json.NewDecoder(r.Body).Decode(&creds)
		if creds["username"] != "user" || creds["password"] != "secret" {
			http.Error(w, `{"message":"bad credentials"}`, http.StatusUnauthorized)
			return
		}
		f.logins++
		f.session = fmt.Sprintf("s%d", f.logins)
		http.SetCookie(w, &http.Cookie{Name: "ChurchTools", Value: f.session, Path: "/"})
		fmt.Fprint(w, `{"data":{"status":"success"}}`)
		return
	}

	f.requests++
	if f.expireAt != 0 && f.requests == f.expireAt {
		f.session = "expired"
	}
	if c, err := r.Cookie("ChurchTools"); err != nil || c.Value != f.session {
		http.Error(w, `{"message":"Session expired"}`, http.StatusUnauthorized)
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/files/wiki_39/domain":
		json.NewEncoder(w).Encode(map[string]any{"data": f.files})
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/files/"):
		var id int
		fmt.Sscanf(strings.TrimPrefix(r.URL.Path, "/api/files/"), "%d", &id)
		f.deleted = append(f.deleted, id)
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodPost && r.URL.Path == "/api/files/wiki_39/domain":
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, fh := range r.MultipartForm.File["files[]"] {
			rc, _ := fh.Open()
			body, _ := io.ReadAll(rc)
			rc.Close()
			f.uploads[fh.Filename] = string(body)
			f.fields["content-type"] = fh.Header.Get("Content-Type")
		}
		for k, v := range r.MultipartForm.Value {
			f.fields[k] = v[0]
		}
		w.WriteHeader(http.StatusCreated)
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(Options{
		BaseURL:    srv.URL + "/api/",
		DomainType: "wiki_39",
		DomainID:   "domain",
		Username:   "user",
		Password:   "secret",
	})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	return c
}

func TestClientRoundTrip(t *testing.T) {
	fake := newFakeServer(File{ID: 11, Name: "Psalm_001.odp"}, File{ID: 12, Name: "notes.txt"})
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := newTestClient(t, srv)
	ctx := context.Background()

	if err := c.Login(ctx); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	files, err := c.Files(ctx)
	if err != nil {
		t.Fatalf("Files() error: %v", err)
	}
	if len(files) != 2 || files[0].ID != 11 || files[0].Name != "Psalm_001.odp" {
		t.Errorf("Files() = %+v", files)
	}
	if err := c.Delete(ctx, 11); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if err := c.Upload(ctx, "Psalm_001.odp", strings.NewReader("deck")); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.deleted) != 1 || fake.deleted[0] != 11 {
		t.Errorf("deleted = %v", fake.deleted)
	}
	if fake.uploads["Psalm_001.odp"] != "deck" {
		t.Errorf("uploads = %v", fake.uploads)
	}
	if fake.fields["image_options"] != "{}" {
		t.Errorf("image_options = %q", fake.fields["image_options"])
	}
	if _, ok := fake.fields["max_width"]; !ok {
		t.Error("max_width field missing")
	}
	if fake.fields["content-type"] != "application/vnd.oasis.opendocument.presentation" {
		t.Errorf("upload content type = %q", fake.fields["content-type"])
	}
}

func TestClientReloginOnUnauthorized(t *testing.T) {
	fake := newFakeServer(File{ID: 1, Name: "Psalm_001.odp"})
	fake.expireAt = 1
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := newTestClient(t, srv)
	ctx := context.Background()
	if err := c.Login(ctx); err != nil {
		t.Fatal(err)
	}

	files, err := c.Files(ctx)
	if err != nil {
		t.Fatalf("Files() after expiry error: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("Files() = %+v", files)
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.logins != 2 {
		t.Errorf("logins = %d, want 2", fake.logins)
	}
}

func TestClientUnauthorizedTwice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/login" {
			return
		}
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Files(context.Background())

	var he *HTTPError
	if !errors.As(err, &he) || !he.IsUnauthorized() {
		t.Fatalf("Files() error = %v, want 401 HTTPError", err)
	}
	if !strings.Contains(he.Error(), "nope") {
		t.Errorf("HTTPError lacks response body: %v", he)
	}
}

func TestLoginRequiresCredentials(t *testing.T) {
	c, err := NewClient(Options{BaseURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Login(context.Background()); !errors.Is(err, perrors.ErrInvalidInput) {
		t.Errorf("Login() error = %v, want ErrInvalidInput", err)
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"Psalm_001.odp":  "application/vnd.oasis.opendocument.presentation",
		"Psalm_001.PPTX": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"notes":          "application/octet-stream",
	}
	for name, want := range tests {
		if got := contentType(name); got != want {
			t.Errorf("contentType(%q) = %q, want %q", name, got, want)
		}
	}
}

// fakeRemote records calls made by the syncer.
type fakeRemote struct {
	files     []File
	loginErr  error
	deleteErr map[int]error
	deleted   []int
	uploaded  map[string]string
}

func (f *fakeRemote) Login(context.Context) error { return f.loginErr }

func (f *fakeRemote) Files(context.Context) ([]File, error) { return f.files, nil }

func (f *fakeRemote) Delete(_ context.Context, id int) error {
	if err := f.deleteErr[id]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRemote) Upload(_ context.Context, name string, content io.Reader) error {
	b, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	if f.uploaded == nil {
		f.uploaded = map[string]string{}
	}
	f.uploaded[name] = string(b)
	return nil
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("deck "+n), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSyncerRun(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "Psalm_001.odp", "Psalm_002.odp", "Psalm_003.odp")

	remote := &fakeRemote{
		files: []File{
			{ID: 3, Name: "Psalm_003.odp"},
			{ID: 1, Name: "Psalm_001.odp"},
			{ID: 9, Name: "Psalm_009.odp"},
			{ID: 5, Name: "Liedblatt.pdf"},
			{ID: 2, Name: "Psalm_002.odp"},
		},
		deleteErr: map[int]error{2: errors.New("locked")},
	}

	s := &Syncer{Remote: remote, Dir: dir}
	report, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if got := strings.Join(report.Replaced, ","); got != "Psalm_001.odp,Psalm_003.odp" {
		t.Errorf("Replaced = %s", got)
	}
	if got := strings.Join(report.Missing, ","); got != "Psalm_009.odp" {
		t.Errorf("Missing = %s", got)
	}
	if got := strings.Join(report.Failed, ","); got != "Psalm_002.odp" {
		t.Errorf("Failed = %s", got)
	}
	if _, ok := remote.uploaded["Psalm_002.odp"]; ok {
		t.Error("uploaded a file whose delete failed")
	}
	if remote.uploaded["Psalm_001.odp"] != "deck Psalm_001.odp" {
		t.Errorf("uploaded = %v", remote.uploaded)
	}
	if len(remote.deleted) != 2 || remote.deleted[0] != 1 || remote.deleted[1] != 3 {
		t.Errorf("deleted = %v, want [1 3]", remote.deleted)
	}
}

func TestSyncerLoginFailure(t *testing.T) {
	remote := &fakeRemote{loginErr: errors.New("401")}
	s := &Syncer{Remote: remote, Dir: t.TempDir()}
	if _, err := s.Run(context.Background()); err == nil {
		t.Error("Run() succeeded despite login failure")
	}
}

func TestSyncerBadPattern(t *testing.T) {
	s := &Syncer{Remote: &fakeRemote{}, Pattern: "Psalm_[.odp"}
	if _, err := s.Run(context.Background()); !errors.Is(err, perrors.ErrInvalidInput) {
		t.Errorf("Run() error = %v, want ErrInvalidInput", err)
	}
}

func TestSyncerDryRun(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "Psalm_001.odp")
	remote := &fakeRemote{files: []File{{ID: 1, Name: "Psalm_001.odp"}}}

	s := &Syncer{Remote: remote, Dir: dir, DryRun: true}
	report, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Replaced) != 1 || len(remote.deleted) != 0 || len(remote.uploaded) != 0 {
		t.Errorf("dry run touched the remote: report %+v deleted %v", report, remote.deleted)
	}
}

func TestSyncerChangedOnly(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "Psalm_001.odp", "Psalm_002.odp")
	manifestPath := filepath.Join(dir, "state", "manifest.json")
	files := []File{{ID: 1, Name: "Psalm_001.odp"}, {ID: 2, Name: "Psalm_002.odp"}}

	m, err := LoadManifest(manifestPath)
	if err != nil {
		t.Fatal(err)
	}
	first := &fakeRemote{files: files}
	if _, err := (&Syncer{Remote: first, Dir: dir, Manifest: m, ChangedOnly: true}).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(first.uploaded) != 2 {
		t.Fatalf("first run uploaded %d files, want 2", len(first.uploaded))
	}

	if err := os.WriteFile(filepath.Join(dir, "Psalm_002.odp"), []byte("edited"), 0644); err != nil {
		t.Fatal(err)
	}

	m, err = LoadManifest(manifestPath)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(m.Names(), ","); got != "Psalm_001.odp,Psalm_002.odp" {
		t.Errorf("manifest names = %s", got)
	}

	second := &fakeRemote{files: files}
	report, err := (&Syncer{Remote: second, Dir: dir, Manifest: m, ChangedOnly: true}).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(report.Unchanged, ","); got != "Psalm_001.odp" {
		t.Errorf("Unchanged = %s", got)
	}
	if got := strings.Join(report.Replaced, ","); got != "Psalm_002.odp" {
		t.Errorf("Replaced = %s", got)
	}
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	os.WriteFile(a, []byte("same"), 0644)
	os.WriteFile(b, []byte("same"), 0644)

	ha, err := HashFile(a)
	if err != nil {
		t.Fatal(err)
	}
	hb, _ := HashFile(b)
	if ha != hb || len(ha) != 64 {
		t.Errorf("HashFile() = %q / %q", ha, hb)
	}
	if _, err := HashFile(filepath.Join(dir, "missing")); err == nil {
		t.Error("HashFile() of missing file succeeded")
	}
}

func TestLoadManifestCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	os.WriteFile(path, []byte("{not json"), 0644)
	if _, err := LoadManifest(path); err == nil {
		t.Error("LoadManifest() of corrupt file succeeded")
	}
}
