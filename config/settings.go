package config

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"memwatch/offsets"
)

// ErrUnknownFormat is returned for settings that are neither XML nor JSON.
var ErrUnknownFormat = errors.New("settings: unknown format")

// Settings is the XML document published alongside each game patch.
//
//	<Settings>
//	  <AoBOffset>1D6A3C0</AoBOffset>
//	  <CameraOffset>1D6B1A0</CameraOffset>
//	  <GposeOffset>1D6E5F0</GposeOffset>
//	  <GposeEmoteOffset>1D6C2A8</GposeEmoteOffset>
//	</Settings>
type Settings struct {
	XMLName          xml.Name `xml:"Settings"`
	AoBOffset        string   `xml:"AoBOffset"`
	CameraOffset     string   `xml:"CameraOffset"`
	GposeOffset      string   `xml:"GposeOffset"`
	GposeEmoteOffset string   `xml:"GposeEmoteOffset"`
}

// Offsets maps the document fields to region names. Empty fields are left out
// so offsets.Load reports them as missing.
func (s Settings) Offsets() map[string]string {
	out := make(map[string]string, len(offsets.Names()))
	put := func(region, value string) {
		if value = strings.TrimSpace(value); value != "" {
			out[region] = value
		}
	}
	put(offsets.Base, s.AoBOffset)
	put(offsets.Camera, s.CameraOffset)
	put(offsets.Gpose, s.GposeOffset)
	put(offsets.Emote, s.GposeEmoteOffset)
	return out
}

// Decode parses settings data. XML must follow the Settings document; JSON is a
// flat object keyed by region name, e.g. {"base": "1000", "camera": "2000"}.
func Decode(data []byte) (map[string]string, error) {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("settings: empty document: %w", ErrUnknownFormat)
	}

	switch trimmed[0] {
	case '<':
		var s Settings
		if err := xml.Unmarshal(trimmed, &s); err != nil {
			return nil, fmt.Errorf("settings: decode xml: %w", err)
		}
		return s.Offsets(), nil

	case '{':
		var out map[string]string
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, fmt.Errorf("settings: decode json: %w", err)
		}
		return out, nil
	}

	return nil, ErrUnknownFormat
}
