package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/vocos/attendance-go/internal/auth"
	"github.com/vocos/attendance-go/internal/cipher"
	"github.com/vocos/attendance-go/internal/config"
	"github.com/vocos/attendance-go/internal/drive"
	"github.com/vocos/attendance-go/internal/tokenstore"
)

// fakeDrive serves the Drive endpoints the commands use, keeping uploaded
// content in memory.
type fakeDrive struct {
	mu       sync.Mutex
	folderID string
	files    map[string]fakeFile
	order    []string
	uploads  int
}

type fakeFile struct {
	name    string
	content []byte
}

func newFakeDrive(t *testing.T) (*fakeDrive, *httptest.Server) {
	t.Helper()

	fd := &fakeDrive{files: make(map[string]fakeFile)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /drive/v3/files", fd.list)
	mux.HandleFunc("POST /drive/v3/files", fd.create)
	mux.HandleFunc("GET /drive/v3/files/{id}", fd.download)
	mux.HandleFunc("POST /upload/drive/v3/files", fd.upload)
	mux.HandleFunc("GET /drive/v3/about", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"user":{"displayName":"Jane Doe","emailAddress":"jane@example.com"}}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return fd, srv
}

func (fd *fakeDrive) list(w http.ResponseWriter, r *http.Request) {
	fd.mu.Lock()
	defer fd.mu.Unlock()

	q := r.URL.Query().Get("q")

	var items []string

	if strings.Contains(q, drive.FolderMimeType) {
		if fd.folderID != "" {
			items = append(items, fmt.Sprintf(`{"id":%q,"name":"HR_Attendance_Data","mimeType":%q}`,
				fd.folderID, drive.FolderMimeType))
		}
	} else {
		for _, id := range fd.order {
			f := fd.files[id]
			items = append(items, fmt.Sprintf(`{"id":%q,"name":%q,"mimeType":"text/plain","size":"%d"}`,
				id, f.name, len(f.content)))
		}
	}

	fmt.Fprintf(w, `{"files":[%s]}`, strings.Join(items, ","))
}

func (fd *fakeDrive) create(w http.ResponseWriter, _ *http.Request) {
	fd.mu.Lock()
	defer fd.mu.Unlock()

	fd.folderID = "F1"
	fmt.Fprintf(w, `{"id":"F1","name":"HR_Attendance_Data","mimeType":%q}`, drive.FolderMimeType)
}

func (fd *fakeDrive) download(w http.ResponseWriter, r *http.Request) {
	fd.mu.Lock()
	defer fd.mu.Unlock()

	f, ok := fd.files[r.PathValue("id")]
	if !ok {
		http.Error(w, `{"error":{"code":404,"message":"File not found"}}`, http.StatusNotFound)
		return
	}

	_, _ = w.Write(f.content)
}

func (fd *fakeDrive) upload(w http.ResponseWriter, r *http.Request) {
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	mr := multipart.NewReader(r.Body, params["boundary"])

	metaPart, err := mr.NextPart()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var meta drive.FileMetadata
	if err := json.NewDecoder(metaPart).Decode(&meta); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	contentPart, err := mr.NextPart()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	content, _ := io.ReadAll(contentPart)

	fd.mu.Lock()
	defer fd.mu.Unlock()

	fd.uploads++
	id := fmt.Sprintf("X%d", fd.uploads)
	fd.files[id] = fakeFile{name: meta.Name, content: content}
	fd.order = append(fd.order, id)

	fmt.Fprintf(w, `{"id":%q,"name":%q,"mimeType":"text/plain","size":"%d"}`, id, meta.Name, len(content))
}

// setupCLI isolates config and data directories and writes a config file
// pointing the Drive client at srv.
func setupCLI(t *testing.T, srv *httptest.Server) {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, "data"))

	for _, key := range []string{config.EnvConfig, config.EnvClientID, config.EnvClientSecret, config.EnvFolder} {
		t.Setenv(key, "")
	}

	apiURL := "https://www.googleapis.com/drive/v3"
	uploadURL := "https://www.googleapis.com/upload/drive/v3"

	if srv != nil {
		apiURL = srv.URL + "/drive/v3"
		uploadURL = srv.URL + "/upload/drive/v3"
	}

	cfgPath := config.DefaultConfigPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(cfgPath), 0o700))
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(
		"api_base_url = %q\nupload_base_url = %q\nlog_level = \"error\"\n", apiURL, uploadURL,
	)), 0o600))
}

// authorizeCLI persists a valid token as login would.
func authorizeCLI(t *testing.T) {
	t.Helper()

	require.NoError(t, tokenstore.Save(config.DefaultTokenPath(), &tokenstore.File{
		Token: &oauth2.Token{
			AccessToken:  "T1",
			TokenType:    "Bearer",
			RefreshToken: "R1",
			Expiry:       time.Now().Add(time.Hour),
		},
		ClientID: auth.DefaultClientID,
		SavedAt:  time.Now(),
	}))
}

// runCLI executes the root command with args and stdin, returning stdout,
// stderr, and the command error.
func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.ExecuteContext(context.Background())

	return stdout.String(), stderr.String(), err
}

func TestSaveCmd_UploadsEncryptedEntry(t *testing.T) {
	fd, srv := newFakeDrive(t)
	setupCLI(t, srv)
	authorizeCLI(t)

	stdout, stderr, err := runCLI(t, "secret123\n",
		"save", "--json", "--name", "  Jane Doe ", "--shift", "morning", "--hours", "8")
	require.NoError(t, err, stderr)

	assert.Contains(t, stderr, "Encrypting and uploading...")
	assert.Contains(t, stderr, "✓ Saved securely to Google Drive as attendance_entry_")

	var out saveOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "X1", out.FileID)
	assert.Equal(t, "HR_Attendance_Data", out.Folder)
	assert.True(t, strings.HasPrefix(out.Name, "attendance_entry_"))
	assert.True(t, strings.HasSuffix(out.Name, ".vocos"))

	fd.mu.Lock()
	blob := string(fd.files["X1"].content)
	fd.mu.Unlock()

	assert.Equal(t, cipher.SchemeOpenSSL, cipher.SchemeOf(blob))

	plain, err := cipher.Decrypt(blob, "secret123")
	require.NoError(t, err)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2},"Jane Doe","Morning",8\n$`, plain)
}

func TestSaveCmd_ArgonScheme(t *testing.T) {
	fd, srv := newFakeDrive(t)
	setupCLI(t, srv)
	authorizeCLI(t)

	_, stderr, err := runCLI(t, "pw\n",
		"save", "--cipher", "argon2id", "--name", "A", "--shift", "3", "--hours", "1.5")
	require.NoError(t, err, stderr)

	fd.mu.Lock()
	blob := string(fd.files["X1"].content)
	fd.mu.Unlock()

	assert.Equal(t, cipher.SchemeArgon2id, cipher.SchemeOf(blob))

	plain, err := cipher.Decrypt(blob, "pw")
	require.NoError(t, err)
	assert.Contains(t, plain, `"A","Night",1.5`)
}

func TestSaveCmd_ValidationFailsWithoutRequests(t *testing.T) {
	fd, srv := newFakeDrive(t)
	setupCLI(t, srv)
	authorizeCLI(t)

	_, stderr, err := runCLI(t, "", "save", "--name", "Jane")
	require.Error(t, err)

	assert.Contains(t, stderr, "✗ Please fill in all fields")
	assert.Contains(t, stderr, "Shift")
	assert.Contains(t, stderr, "Hours")

	fd.mu.Lock()
	defer fd.mu.Unlock()

	assert.Zero(t, fd.uploads)
	assert.Empty(t, fd.folderID)
}

func TestSaveCmd_RejectsMultilineName(t *testing.T) {
	fd, srv := newFakeDrive(t)
	setupCLI(t, srv)
	authorizeCLI(t)

	_, stderr, err := runCLI(t, "pw\n", "save", "--name", "Jane\nDoe", "--shift", "Night", "--hours", "4")
	require.Error(t, err)
	assert.Contains(t, stderr, "Name must be a single line.")

	fd.mu.Lock()
	defer fd.mu.Unlock()

	assert.Zero(t, fd.uploads)
}

func TestSaveCmd_NotAuthorized(t *testing.T) {
	fd, srv := newFakeDrive(t)
	setupCLI(t, srv)

	_, stderr, err := runCLI(t, "pw\n", "save", "--name", "Jane", "--shift", "Night", "--hours", "4")
	require.Error(t, err)
	assert.Contains(t, stderr, "Please authorize again")

	fd.mu.Lock()
	defer fd.mu.Unlock()

	assert.Zero(t, fd.uploads)
}

func TestSaveCmd_QuietSuppressesStatus(t *testing.T) {
	_, srv := newFakeDrive(t)
	setupCLI(t, srv)
	authorizeCLI(t)

	_, stderr, err := runCLI(t, "pw\n", "-q", "save", "--name", "J", "--shift", "Night", "--hours", "4")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "Saved securely")
}

func TestSaveThenHistoryAndLs(t *testing.T) {
	_, srv := newFakeDrive(t)
	setupCLI(t, srv)
	authorizeCLI(t)

	for _, name := range []string{"First", "Second"} {
		_, stderr, err := runCLI(t, "pw\n", "save", "--name", name, "--shift", "Morning", "--hours", "8")
		require.NoError(t, err, stderr)
	}

	stdout, _, err := runCLI(t, "", "history", "--json")
	require.NoError(t, err)

	var items []historyItem
	require.NoError(t, json.Unmarshal([]byte(stdout), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "X2", items[0].FileID)
	assert.Equal(t, "F1", items[0].FolderID)
	assert.NotEmpty(t, items[0].SaveID)

	stdout, _, err = runCLI(t, "", "ls")
	require.NoError(t, err)
	assert.Contains(t, stdout, "NAME")
	assert.Contains(t, stdout, "X1")
	assert.Contains(t, stdout, "X2")
}

func TestSaveCmd_NoHistory(t *testing.T) {
	_, srv := newFakeDrive(t)
	setupCLI(t, srv)
	authorizeCLI(t)

	_, _, err := runCLI(t, "pw\n", "--no-history", "save", "--name", "J", "--shift", "Night", "--hours", "4")
	require.NoError(t, err)

	_, err = os.Stat(config.DefaultHistoryPath())
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, _, err = runCLI(t, "", "--no-history", "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history is disabled")
}

func TestLsCmd_MissingFolder(t *testing.T) {
	fd, srv := newFakeDrive(t)
	setupCLI(t, srv)
	authorizeCLI(t)

	stdout, _, err := runCLI(t, "", "ls", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", stdout)

	fd.mu.Lock()
	defer fd.mu.Unlock()

	assert.Empty(t, fd.folderID, "ls must not create the folder")
}

func TestLsCmd_NotAuthorized(t *testing.T) {
	_, srv := newFakeDrive(t)
	setupCLI(t, srv)

	_, _, err := runCLI(t, "", "ls")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attendance-go login")
}

func TestDecryptCmd_RemoteAndLocal(t *testing.T) {
	fd, srv := newFakeDrive(t)
	setupCLI(t, srv)
	authorizeCLI(t)

	_, stderr, err := runCLI(t, "secret123\n", "save", "--name", "Jane Doe", "--shift", "Morning", "--hours", "8")
	require.NoError(t, err, stderr)

	stdout, _, err := runCLI(t, "secret123\n", "decrypt", "X1")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"Jane Doe","Morning",8`)

	fd.mu.Lock()
	blob := fd.files["X1"].content
	fd.mu.Unlock()

	local := filepath.Join(t.TempDir(), "entry.vocos")
	require.NoError(t, os.WriteFile(local, blob, 0o600))

	stdout, _, err = runCLI(t, "secret123\n", "decrypt", local)
	require.NoError(t, err)
	assert.Contains(t, stdout, `"Jane Doe","Morning",8`)

	garbage := filepath.Join(t.TempDir(), "garbage.vocos")
	require.NoError(t, os.WriteFile(garbage, []byte("not base64 at all!"), 0o600))

	_, _, err = runCLI(t, "secret123\n", "decrypt", garbage)
	require.ErrorIs(t, err, cipher.ErrMalformed)
}

func TestStatusCmd(t *testing.T) {
	_, srv := newFakeDrive(t)
	setupCLI(t, srv)

	stdout, _, err := runCLI(t, "", "status", "--json")
	require.NoError(t, err)

	var out statusOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "unauthorized", out.State)
	assert.False(t, out.Authorized)
	assert.Empty(t, out.User)

	authorizeCLI(t)

	stdout, _, err = runCLI(t, "", "status", "--json")
	require.NoError(t, err)

	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "authorized", out.State)
	assert.True(t, out.Authorized)
	assert.True(t, out.Refreshable)
	assert.Equal(t, "jane@example.com", out.Email)
	assert.Equal(t, "HR_Attendance_Data", out.Folder)
	assert.Empty(t, out.FolderID)

	stdout, _, err = runCLI(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Account: Jane Doe (jane@example.com)")
	assert.Contains(t, stdout, "not created yet")
}

func TestLogoutCmd_NotLoggedIn(t *testing.T) {
	setupCLI(t, nil)

	_, _, err := runCLI(t, "", "logout")
	require.NoError(t, err)
}

func TestConfigShowCmd(t *testing.T) {
	setupCLI(t, nil)
	t.Setenv(config.EnvFolder, "FromEnv")

	stdout, _, err := runCLI(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, `folder_name     = "FromEnv"`)

	stdout, _, err = runCLI(t, "", "--folder", "FromFlag", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, `folder_name     = "FromFlag"`)
}

func TestConfigShowCmd_JSONMasksSecret(t *testing.T) {
	setupCLI(t, nil)
	t.Setenv(config.EnvClientSecret, "super-secret")

	stdout, _, err := runCLI(t, "", "--json", "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "super-secret")
	assert.Contains(t, stdout, "********")
}

func TestRootCmd_BadConfig(t *testing.T) {
	setupCLI(t, nil)
	require.NoError(t, os.WriteFile(config.DefaultConfigPath(), []byte(`foldr_name = "x"`), 0o600))

	_, _, err := runCLI(t, "", "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
	assert.Contains(t, err.Error(), "did you mean")
}
