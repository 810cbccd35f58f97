package veo3

import (
	"context"
	"encoding/base64"
	"net/http"
	"path"
	"strings"

	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/adforge/adforge/internal/httpclient"
	"github.com/h2non/filetype"
)

const defaultImageMimeType = "image/png"

type imageInput struct {
	GCSURI             string `json:"gcsUri,omitempty"`
	BytesBase64Encoded string `json:"bytesBase64Encoded,omitempty"`
	MimeType           string `json:"mimeType"`
}

// mimeTypeFromURI guesses the image type of an object from its extension
func mimeTypeFromURI(uri string) string {
	clean := uri
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(clean)), ".")
	if ext == "" {
		return defaultImageMimeType
	}
	if t := filetype.GetType(ext); t != filetype.Unknown && strings.HasPrefix(t.MIME.Value, "image/") {
		return t.MIME.Value
	}
	return defaultImageMimeType
}

// resolveImage references Cloud Storage objects directly and inlines anything
// else after checking that the downloaded bytes really are an image
func resolveImage(ctx context.Context, client httpclient.Client, uri string) (*imageInput, error) {
	if strings.HasPrefix(uri, "gs://") {
		return &imageInput{
			GCSURI:   uri,
			MimeType: mimeTypeFromURI(uri),
		}, nil
	}

	resp, err := client.Send(ctx, &httpclient.Request{
		Method: http.MethodGet,
		URL:    uri,
	})
	if err != nil {
		return nil, err
	}

	kind, err := filetype.Match(resp.Body)
	if err != nil || kind == filetype.Unknown || !filetype.IsImage(resp.Body) {
		return nil, ierr.NewError("input media is not an image").
			WithHint("Input media must be an image").
			WithReportableDetails(map[string]any{
				"input_media_url": uri,
			}).
			Mark(ierr.ErrValidation)
	}

	return &imageInput{
		BytesBase64Encoded: base64.StdEncoding.EncodeToString(resp.Body),
		MimeType:           kind.MIME.Value,
	}, nil
}
