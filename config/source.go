package config

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// maximum settings document size accepted from a remote source
const maxSettingsSize = 1 << 20

// Source produces the raw region -> hex offset mapping.
type Source interface {
	Load(ctx context.Context) (map[string]string, error)
}

// NewSource returns an HTTPSource for http(s) locations and a FileSource otherwise.
func NewSource(location string) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTP(location)
	}
	return &FileSource{Path: location}
}

// FileSource reads settings from a local file.
type FileSource struct {
	Path string
}

func (s *FileSource) Load(ctx context.Context) (map[string]string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	return Decode(data)
}

// HTTPSource fetches settings from a URL.
type HTTPSource struct {
	URL  string
	HTTP *http.Client
}

// NewHTTP creates an HTTPSource using http.DefaultClient.
func NewHTTP(url string) *HTTPSource {
	return &HTTPSource{
		URL:  url,
		HTTP: http.DefaultClient,
	}
}

func (s *HTTPSource) Load(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}

	client := s.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("settings: fetch %s: %w", s.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("settings: fetch %s: %s", s.URL, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSettingsSize))
	if err != nil {
		return nil, fmt.Errorf("settings: read %s: %w", s.URL, err)
	}
	return Decode(data)
}

// StaticSource serves a fixed mapping.
type StaticSource map[string]string

func (s StaticSource) Load(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out, nil
}
