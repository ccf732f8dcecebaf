package barcode

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/finalquest/itinera/internal/apperr"
	"github.com/finalquest/itinera/internal/models"
)

const lookupUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

var (
	nameRe       = regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`)
	tagStripRe   = regexp.MustCompile(`<[^>]+>`)
	productImgRe = regexp.MustCompile(`(?i)<img[^>]+src="([^"]+)"[^>]*class="[^"]*product[^"]*"`)
	anyImgRe     = regexp.MustCompile(`(?i)<img[^>]+src="([^"]+)"`)
	metaDescRe   = regexp.MustCompile(`(?i)<meta[^>]+name="description"[^>]+content="([^"]+)"`)
)

// Client looks product codes up on go-upc.com by scraping its search page.
// A code the catalog does not know yields Found=false, not an error.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a lookup client with a 10 second timeout.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    "https://go-upc.com",
	}
}

// Lookup implements Looker.
func (c *Client) Lookup(ctx context.Context, code string) (models.Product, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s", c.baseURL, url.QueryEscape(code))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.Product{}, fmt.Errorf("barcode: build request: %w", err)
	}
	req.Header.Set("User-Agent", lookupUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Product{}, fmt.Errorf("barcode: lookup %s: %v: %w", code, err, apperr.ErrTransport)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.Product{}, fmt.Errorf("barcode: lookup %s: status %d: %w", code, resp.StatusCode, apperr.ErrTransport)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Product{}, fmt.Errorf("barcode: read body: %v: %w", err, apperr.ErrTransport)
	}

	return extractProduct(code, string(body)), nil
}

// extractProduct pulls the product name, image, and description out of the
// search result page. The page carries no stable markup contract, so the
// extraction is tolerant: missing pieces stay empty and Found follows the
// name alone.
func extractProduct(code, page string) models.Product {
	p := models.Product{Barcode: code}

	if m := nameRe.FindStringSubmatch(page); m != nil {
		p.Name = strings.TrimSpace(html.UnescapeString(tagStripRe.ReplaceAllString(m[1], "")))
	}
	if m := productImgRe.FindStringSubmatch(page); m != nil {
		p.Image = m[1]
	} else if m := anyImgRe.FindStringSubmatch(page); m != nil {
		p.Image = m[1]
	}
	if m := metaDescRe.FindStringSubmatch(page); m != nil {
		p.Description = strings.TrimSpace(html.UnescapeString(m[1]))
	}

	p.Found = p.Name != ""
	return p
}
