// Package profile enriches a brand's configured description by fetching its
// website and extracting readable text. The extract is used to seed query
// generation and the semantic index with real product language.
package profile

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
)

const (
	maxExtractLength = 2000
	minExtractLength = 100
)

// Profile is the enriched brand context assembled before a run.
type Profile struct {
	Name        string
	URL         string
	Description string
	Industry    string
	SiteExtract string
}

// Fetcher fetches brand website content via HTTP + readability extraction.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a website fetcher.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// BuildProfile assembles the brand profile. The website fetch is best
// effort: failures leave SiteExtract empty and the configured description
// carries the run alone.
func (f *Fetcher) BuildProfile(ctx context.Context, name, siteURL, description, industry string) *Profile {
	p := &Profile{
		Name:        name,
		URL:         siteURL,
		Description: description,
		Industry:    industry,
	}
	if siteURL == "" {
		return p
	}

	extract, err := f.fetchSiteText(ctx, siteURL)
	if err != nil {
		log.Printf("website fetch failed for %s: %v", siteURL, err)
		return p
	}
	p.SiteExtract = extract
	if extract != "" {
		log.Printf("fetched %d chars of site content from %s", len(extract), siteURL)
	}
	return p
}

// Document joins the profile fields into a single description used for
// query generation context and the brand's index entry.
func (p *Profile) Document() string {
	parts := []string{p.Name}
	if p.Description != "" {
		parts = append(parts, p.Description)
	}
	if p.Industry != "" {
		parts = append(parts, "Industry: "+p.Industry)
	}
	if p.SiteExtract != "" {
		parts = append(parts, p.SiteExtract)
	}
	return strings.Join(parts, " - ")
}

func (f *Fetcher) fetchSiteText(ctx context.Context, siteURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", siteURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "brandscope/1.0 (visibility analyzer)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	parsedURL, _ := url.Parse(siteURL)
	page, err := readability.FromReader(strings.NewReader(string(bodyBytes)), parsedURL)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(page.TextContent)
	if len(text) < minExtractLength {
		return "", nil
	}
	if len(text) > maxExtractLength {
		cut := maxExtractLength
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text, nil
}
