package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Profile is the scraped company description for one symbol, used when
// seeding the sector universe.
type Profile struct {
	Symbol      string
	Name        string
	Sector      string
	Description string
}

// FetchProfile scrapes the symbol's profile page for its name and
// sector. Scraping is best-effort: a page layout change yields an
// error, never a partial bogus profile.
func (c *Client) FetchProfile(ctx context.Context, symbol string) (*Profile, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	fullURL := fmt.Sprintf("%s/%s/profile", c.profileURL, strings.ToUpper(symbol))

	resp, err := c.httpClient.GetWithHeaders(ctx, fullURL, map[string]string{
		"User-Agent": userAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse profile HTML: %w", err)
	}

	profile, err := parseProfileDoc(symbol, doc)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"sector": profile.Sector,
	}).Debug("Fetched symbol profile")

	return profile, nil
}

// parseProfileDoc extracts name and sector from the profile document.
func parseProfileDoc(symbol string, doc *goquery.Document) (*Profile, error) {
	name := strings.TrimSpace(doc.Find("h1").First().Text())
	if name == "" {
		return nil, fmt.Errorf("profile page has no company name for %s", symbol)
	}

	// The sector value is the dd/span following a "Sector" label. Try
	// the labeled layout first, fall back to the data attribute one.
	var sector string
	doc.Find("dt, span").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if strings.EqualFold(strings.TrimSpace(s.Text()), "sector:") ||
			strings.EqualFold(strings.TrimSpace(s.Text()), "sector") {
			sector = strings.TrimSpace(s.Next().Text())
			return false
		}
		return true
	})
	if sector == "" {
		sector = strings.TrimSpace(doc.Find("[data-field=sector]").First().Text())
	}
	if sector == "" {
		return nil, fmt.Errorf("profile page has no sector for %s", symbol)
	}

	return &Profile{
		Symbol:      strings.ToUpper(symbol),
		Name:        name,
		Sector:      sector,
		Description: parseDescription(doc),
	}, nil
}

// parseDescription pulls the business summary paragraph. Missing
// descriptions are fine, the field stays empty.
func parseDescription(doc *goquery.Document) string {
	desc := strings.TrimSpace(doc.Find("[data-field=description]").First().Text())
	if desc != "" {
		return desc
	}

	// Fall back to the longest paragraph on the page. Profile pages put
	// the business summary in a plain <p> on older layouts.
	doc.Find("p").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if len(text) > len(desc) {
			desc = text
		}
	})
	return desc
}
