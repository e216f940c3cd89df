// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"fmt"
	"sort"
)

// StaticAssetPatterns excludes scripts, stylesheets, images and fonts from a crawl.
var StaticAssetPatterns = []string{
	"*.js", "*.css",
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.svg", "*.ico",
	"*.woff", "*.woff2", "*.ttf", "*.eot",
}

// Preset is a named, preconfigured crawl of a known documentation site.
type Preset struct {
	Name              string
	URL               string
	IncludePatterns   []string
	ExcludePatterns   []string
	MaxPages          int
	GenerateSummaries bool
}

var presets = map[string]Preset{
	"crawl4ai-docs": {
		Name:              "crawl4ai-docs",
		URL:               "https://crawl4ai.com/mkdocs/",
		IncludePatterns:   []string{"https://crawl4ai.com/mkdocs/*"},
		ExcludePatterns:   StaticAssetPatterns,
		MaxPages:          100,
		GenerateSummaries: true,
	},
}

// LookupPreset returns the preset registered under name.
func LookupPreset(name string) (Preset, error) {
	p, ok := presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q (available: %v)", ErrUnknownPreset, name, PresetNames())
	}
	return p, nil
}

// PresetNames lists registered presets in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Request builds a CrawlRequest from the preset. The pattern slices are copies.
func (p Preset) Request() CrawlRequest {
	return CrawlRequest{
		URL:               p.URL,
		MaxPages:          p.MaxPages,
		IncludePatterns:   append([]string(nil), p.IncludePatterns...),
		ExcludePatterns:   append([]string(nil), p.ExcludePatterns...),
		GenerateSummaries: p.GenerateSummaries,
	}
}
