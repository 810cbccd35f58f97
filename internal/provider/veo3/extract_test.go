package veo3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractOutputURI(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
		wantErr bool
	}{
		{
			name:    "pending operation",
			payload: `{"name":"operations/1","done":false}`,
			want:    "",
		},
		{
			name:    "long running response videos",
			payload: `{"name":"operations/1","done":true,"response":{"videos":[{"gcsUri":"gs://bucket/out.mp4","mimeType":"video/mp4"}]}}`,
			want:    "gs://bucket/out.mp4",
		},
		{
			name:    "generated samples",
			payload: `{"done":true,"response":{"generatedSamples":[{"video":{"uri":"https://cdn.example.com/v.mp4"}}]}}`,
			want:    "https://cdn.example.com/v.mp4",
		},
		{
			name:    "skips entries without a resolvable uri",
			payload: `{"done":true,"response":{"videos":[{"mimeType":"video/mp4"},{"uri":"data:abc"},{"gcsUri":" gs://bucket/second.mp4 "}]}}`,
			want:    "gs://bucket/second.mp4",
		},
		{
			name:    "top level videos",
			payload: `{"videos":[{"uri":"https://x/y.png"}]}`,
			want:    "https://x/y.png",
		},
		{
			name: "generateContent candidates",
			payload: `{"candidates":[{"content":{"parts":[
				{"text":"here is your ad"},
				{"fileData":{"mimeType":"image/png","fileUri":"gs://bucket/img.png"}}
			]}}]}`,
			want: "gs://bucket/img.png",
		},
		{
			name:    "text only candidate is pending",
			payload: `{"candidates":[{"content":{"parts":[{"text":"working on it"}]}}]}`,
			want:    "",
		},
		{
			name:    "malformed payload",
			payload: `{"done":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractOutputURI([]byte(tt.payload))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMimeTypeFromURI(t *testing.T) {
	assert.Equal(t, "image/jpeg", mimeTypeFromURI("gs://bucket/photo.JPG"))
	assert.Equal(t, "image/webp", mimeTypeFromURI("gs://bucket/photo.webp?generation=3"))
	assert.Equal(t, defaultImageMimeType, mimeTypeFromURI("gs://bucket/photo"))
	assert.Equal(t, defaultImageMimeType, mimeTypeFromURI("gs://bucket/clip.mp4"))
}
