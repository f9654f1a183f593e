package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// FolderMimeType is the Drive MIME type that marks a file as a folder.
const FolderMimeType = "application/vnd.google-apps.folder"

// DefaultFileFields is the field mask requested for created and uploaded files.
const DefaultFileFields = "id,name,mimeType,webViewLink,md5Checksum,size"

// File is a Drive file or folder, normalized from the API response.
type File struct {
	ID          string
	Name        string
	MimeType    string
	WebViewLink string
	MD5Checksum string
	Size        int64
}

// IsFolder reports whether f is a folder.
func (f *File) IsFolder() bool {
	return f.MimeType == FolderMimeType
}

// FileMetadata is the resource body for create and upload calls.
type FileMetadata struct {
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType"`
	Parents  []string `json:"parents,omitempty"`
}

// fileResponse mirrors the Drive file JSON. size arrives as a string (int64).
type fileResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MimeType    string `json:"mimeType"`
	WebViewLink string `json:"webViewLink"`
	MD5Checksum string `json:"md5Checksum"`
	Size        string `json:"size"`
}

type fileListResponse struct {
	Files         []fileResponse `json:"files"`
	NextPageToken string         `json:"nextPageToken"`
}

func (r *fileResponse) toFile() File {
	f := File{
		ID:          r.ID,
		Name:        r.Name,
		MimeType:    r.MimeType,
		WebViewLink: r.WebViewLink,
		MD5Checksum: r.MD5Checksum,
	}

	if r.Size != "" {
		if n, err := strconv.ParseInt(r.Size, 10, 64); err == nil {
			f.Size = n
		}
	}

	return f
}

// QuoteQueryValue escapes a string for use inside single quotes in a Drive
// query expression.
func QuoteQueryValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)

	return "'" + s + "'"
}

// List returns the files matching query, following pagination. fields is
// the per-file field mask, e.g. "id,name".
func (c *Client) List(ctx context.Context, query, fields string) ([]File, error) {
	c.logger.Debug("listing files", slog.String("fields", fields))

	var (
		out       []File
		pageToken string
	)

	for {
		params := url.Values{}
		params.Set("q", query)
		params.Set("spaces", "drive")
		params.Set("fields", "nextPageToken,files("+fields+")")

		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		resp, err := c.do(ctx, http.MethodGet, c.apiBaseURL+"/files?"+params.Encode(), "", nil)
		if err != nil {
			return nil, err
		}

		var page fileListResponse
		decErr := json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()

		if decErr != nil {
			return nil, fmt.Errorf("drive: decoding file list: %w", decErr)
		}

		for i := range page.Files {
			out = append(out, page.Files[i].toFile())
		}

		if page.NextPageToken == "" {
			return out, nil
		}

		pageToken = page.NextPageToken
	}
}

// Create creates a metadata-only file (typically a folder) and returns it.
func (c *Client) Create(ctx context.Context, meta FileMetadata, fields string) (*File, error) {
	c.logger.Info("creating file",
		slog.String("name", meta.Name),
		slog.String("mime_type", meta.MimeType),
	)

	body, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("drive: encoding file metadata: %w", err)
	}

	params := url.Values{}
	params.Set("fields", fields)

	resp, err := c.do(ctx, http.MethodPost, c.apiBaseURL+"/files?"+params.Encode(),
		"application/json; charset=UTF-8", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return decodeFile(resp.Body, "create")
}

// Download returns the content of the file with the given ID.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	c.logger.Debug("downloading file", slog.String("file_id", fileID))

	rawURL := c.apiBaseURL + "/files/" + url.PathEscape(fileID) + "?alt=media"

	resp, err := c.do(ctx, http.MethodGet, rawURL, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("drive: reading download body: %w", err)
	}

	return data, nil
}

func decodeFile(r io.Reader, op string) (*File, error) {
	var fr fileResponse
	if err := json.NewDecoder(r).Decode(&fr); err != nil {
		return nil, fmt.Errorf("drive: decoding %s response: %w", op, err)
	}

	if fr.ID == "" {
		return nil, fmt.Errorf("drive: %s response missing file id", op)
	}

	f := fr.toFile()

	return &f, nil
}
