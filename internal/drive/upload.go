package drive

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // Drive reports md5Checksum; used for integrity, not security
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
)

// UploadMultipart creates a file with metadata and content in one request
// (uploadType=multipart). The body is a multipart/related document with a
// JSON metadata part followed by the content part.
func (c *Client) UploadMultipart(ctx context.Context, meta FileMetadata, content []byte) (*File, error) {
	c.logger.Info("multipart upload",
		slog.String("name", meta.Name),
		slog.Int("size", len(content)),
	)

	body, contentType, err := buildMultipartBody(meta, content)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("uploadType", "multipart")
	params.Set("fields", DefaultFileFields)

	resp, err := c.do(ctx, http.MethodPost, c.uploadBaseURL+"/files?"+params.Encode(), contentType, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	f, err := decodeFile(resp.Body, "upload")
	if err != nil {
		return nil, err
	}

	c.verifyChecksum(f, content)

	return f, nil
}

// verifyChecksum compares the server-reported MD5 with the uploaded bytes.
// A mismatch is logged; the file already exists remotely either way.
func (c *Client) verifyChecksum(f *File, content []byte) {
	if f.MD5Checksum == "" {
		return
	}

	sum := md5.Sum(content) //nolint:gosec // integrity check only
	local := hex.EncodeToString(sum[:])

	if local != f.MD5Checksum {
		c.logger.Warn("upload checksum mismatch",
			slog.String("file_id", f.ID),
			slog.String("local_md5", local),
			slog.String("remote_md5", f.MD5Checksum),
		)
	}
}

// buildMultipartBody encodes the metadata and content parts.
func buildMultipartBody(meta FileMetadata, content []byte) (*bytes.Buffer, string, error) {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, "", fmt.Errorf("drive: encoding upload metadata: %w", err)
	}

	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")

	part, err := mw.CreatePart(metaHeader)
	if err != nil {
		return nil, "", fmt.Errorf("drive: creating metadata part: %w", err)
	}

	if _, err := part.Write(metaJSON); err != nil {
		return nil, "", fmt.Errorf("drive: writing metadata part: %w", err)
	}

	mediaType := meta.MimeType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}

	contentHeader := textproto.MIMEHeader{}
	contentHeader.Set("Content-Type", mediaType)

	part, err = mw.CreatePart(contentHeader)
	if err != nil {
		return nil, "", fmt.Errorf("drive: creating content part: %w", err)
	}

	if _, err := part.Write(content); err != nil {
		return nil, "", fmt.Errorf("drive: writing content part: %w", err)
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("drive: closing multipart body: %w", err)
	}

	return &buf, "multipart/related; boundary=" + mw.Boundary(), nil
}
