package place

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed metadata.json
var metadataJSON []byte

// Metadata is a bundled descriptive record for a known listing. It fills
// fields the API does not return; it never overrides what the API sent.
type Metadata struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Location     string   `json:"location"`
	FullLocation string   `json:"fullLocation"`
	Description  string   `json:"description"`
	Price        float64  `json:"price"`
	Rating       float64  `json:"rating"`
	Reviews      int      `json:"reviews"`
	Guests       int      `json:"guests"`
	Bedrooms     int      `json:"bedrooms"`
	Bathrooms    int      `json:"bathrooms"`
	Image        string   `json:"image"`
	Images       []string `json:"images"`
	Amenities    []string `json:"amenities"`
}

var (
	metaOnce   sync.Once
	metaByName map[string]*Metadata
)

// metadataByName returns the bundled metadata table keyed by lower-cased
// listing name. Built once; the embedded data is validated at first use.
func metadataByName() map[string]*Metadata {
	metaOnce.Do(func() {
		var entries []*Metadata
		if err := json.Unmarshal(metadataJSON, &entries); err != nil {
			panic(fmt.Sprintf("place: invalid embedded metadata: %v", err))
		}
		metaByName = make(map[string]*Metadata, len(entries))
		for _, m := range entries {
			if m.Name == "" {
				continue
			}
			metaByName[strings.ToLower(m.Name)] = m
		}
	})
	return metaByName
}
