package clop

import (
	"encoding/json"
	"fmt"
	"sort"
)

// OptimisationRequest is the payload sent over the work channel.
type OptimisationRequest struct {
	ID                        string    `json:"id"`
	URLs                      []string  `json:"urls"`
	OriginalURLs              URLMap    `json:"originalUrls"`
	Size                      *CropSize `json:"size,omitempty"`
	DownscaleFactor           *float64  `json:"downscaleFactor,omitempty"`
	ChangePlaybackSpeedFactor *float64  `json:"changePlaybackSpeedFactor,omitempty"`
	HideFloatingResult        bool      `json:"hideFloatingResult"`
	CopyToClipboard           bool      `json:"copyToClipboard"`
	AggressiveOptimisation    bool      `json:"aggressiveOptimisation"`
	Source                    string    `json:"source"`
	Output                    *string   `json:"output,omitempty"`
	RemoveAudio               *bool     `json:"removeAudio,omitempty"`
}

// StopOptimisationRequest is the payload sent over the stop channel.
type StopOptimisationRequest struct {
	IDs    []string `json:"ids"`
	Remove bool     `json:"remove"`
}

// OptimisationResponse describes the result for one input file.
type OptimisationResponse struct {
	Path           string      `json:"path"`
	ForURL         string      `json:"forURL"`
	ConvertedFrom  *string     `json:"convertedFrom,omitempty"`
	OldBytes       int         `json:"oldBytes"`
	NewBytes       int         `json:"newBytes"`
	OldWidthHeight *Dimensions `json:"oldWidthHeight,omitempty"`
	NewWidthHeight *Dimensions `json:"newWidthHeight,omitempty"`
}

// ID identifies the response by its output path.
func (r OptimisationResponse) ID() string { return r.Path }

// SavedBytes returns how many bytes the optimisation removed. It is negative
// when the output grew.
func (r OptimisationResponse) SavedBytes() int { return r.OldBytes - r.NewBytes }

// URLMap maps temporary file URLs to the originals they were copied from.
//
// The peer keys this dictionary by URL, which encodes as a flat array of
// alternating keys and values rather than a JSON object. URLMap writes that
// form and reads both.
type URLMap map[string]string

// MarshalJSON implements json.Marshaler. Keys are sorted so the encoding is
// stable.
func (m URLMap) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	flat := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		flat = append(flat, k, m[k])
	}
	return json.Marshal(flat)
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *URLMap) UnmarshalJSON(data []byte) error {
	var flat []string
	if err := json.Unmarshal(data, &flat); err == nil {
		if len(flat)%2 != 0 {
			return fmt.Errorf("originalUrls: odd number of elements (%d)", len(flat))
		}
		out := make(URLMap, len(flat)/2)
		for i := 0; i < len(flat); i += 2 {
			out[flat[i]] = flat[i+1]
		}
		*m = out
		return nil
	}

	var obj map[string]string
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("originalUrls: %w", err)
	}
	if obj == nil {
		obj = URLMap{}
	}
	*m = obj
	return nil
}

func decodeResponses(data []byte) ([]OptimisationResponse, error) {
	var responses []OptimisationResponse
	if err := json.Unmarshal(data, &responses); err != nil {
		return nil, err
	}
	return responses, nil
}
