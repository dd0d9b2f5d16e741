// Package config loads the multi-site configuration file. The file is a
// YAML stream with one document per site.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Site is the configuration for one provider site.
type Site struct {
	ID       string `yaml:"id"`
	Provider string `yaml:"provider"`
	URL      string `yaml:"url"`
	// Timezone is the IANA zone the provider publishes local dates in.
	Timezone string `yaml:"tz"`
	// AudioMono selects the mono downmix variant of the join.
	AudioMono bool `yaml:"audio_mono"`
	// QualityTier overrides the marker substituted for the quality
	// placeholder in adaptive stream URLs.
	QualityTier string `yaml:"quality_tier"`
	UserAgent   string `yaml:"user_agent"`
}

// LoadSites reads all site documents from the configuration file.
func LoadSites(path string) ([]Site, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file at %s: %w", path, err)
	}
	defer f.Close()

	var sites []Site
	decoder := yaml.NewDecoder(f)
	for {
		var site Site
		if err := decoder.Decode(&site); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to unmarshal config document: %w", err)
		}
		if site.ID == "" || site.Provider == "" || site.URL == "" {
			return nil, fmt.Errorf("config document missing id, provider or url (id=%q)", site.ID)
		}
		sites = append(sites, site)
	}
	return sites, nil
}

// LoadSite returns the single site document with the given id.
func LoadSite(path, id string) (Site, error) {
	sites, err := LoadSites(path)
	if err != nil {
		return Site{}, err
	}
	for _, site := range sites {
		if site.ID == id {
			return site, nil
		}
	}
	return Site{}, fmt.Errorf("configuration %q not found in %s", id, path)
}
