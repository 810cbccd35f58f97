package veo3

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type media struct {
	GCSURI   string `json:"gcsUri,omitempty"`
	URI      string `json:"uri,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

func (m media) resolvable() string {
	for _, u := range []string{m.GCSURI, m.URI} {
		if isResolvableURI(u) {
			return strings.TrimSpace(u)
		}
	}
	return ""
}

type fileData struct {
	MimeType string `json:"mimeType"`
	FileURI  string `json:"fileUri"`
}

type part struct {
	Text     string    `json:"text,omitempty"`
	FileData *fileData `json:"fileData,omitempty"`
}

type candidate struct {
	Content struct {
		Parts []part `json:"parts"`
	} `json:"content"`
}

type operationStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type videoResponse struct {
	Videos           []media `json:"videos"`
	GeneratedSamples []struct {
		Video media `json:"video"`
	} `json:"generatedSamples"`
	RAIMediaFilteredCount   int      `json:"raiMediaFilteredCount"`
	RAIMediaFilteredReasons []string `json:"raiMediaFilteredReasons"`
}

// operation covers both the long running operation envelope and a plain
// generateContent response, which is how different model versions reply
type operation struct {
	Name       string           `json:"name"`
	Done       bool             `json:"done"`
	Error      *operationStatus `json:"error,omitempty"`
	Response   *videoResponse   `json:"response,omitempty"`
	Videos     []media          `json:"videos,omitempty"`
	Candidates []candidate      `json:"candidates,omitempty"`
}

// firstOutputURI returns the first media part carrying a resolvable URI,
// or an empty string when the provider has not produced media yet
func (o *operation) firstOutputURI() string {
	if o.Response != nil {
		for _, v := range o.Response.Videos {
			if uri := v.resolvable(); uri != "" {
				return uri
			}
		}
		for _, s := range o.Response.GeneratedSamples {
			if uri := s.Video.resolvable(); uri != "" {
				return uri
			}
		}
	}
	for _, v := range o.Videos {
		if uri := v.resolvable(); uri != "" {
			return uri
		}
	}
	for _, c := range o.Candidates {
		for _, p := range c.Content.Parts {
			if p.FileData != nil && isResolvableURI(p.FileData.FileURI) {
				return strings.TrimSpace(p.FileData.FileURI)
			}
		}
	}
	return ""
}

func parseOperation(raw []byte) (*operation, error) {
	var op operation
	if err := json.Unmarshal(raw, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// ExtractOutputURI returns the first resolvable media URI in a provider payload
func ExtractOutputURI(raw []byte) (string, error) {
	op, err := parseOperation(raw)
	if err != nil {
		return "", err
	}
	return op.firstOutputURI(), nil
}

func isResolvableURI(u string) bool {
	u = strings.TrimSpace(u)
	return strings.HasPrefix(u, "gs://") ||
		strings.HasPrefix(u, "https://") ||
		strings.HasPrefix(u, "http://")
}
