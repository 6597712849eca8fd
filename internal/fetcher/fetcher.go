// Package fetcher retrieves grounding material for a brief's source: local
// files are read directly, URLs are rendered in headless Chrome and the
// article text extracted.
package fetcher

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// Content is the fetched grounding material.
type Content struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	WordCount int    `json:"word_count"`
	Source    string `json:"source"`
}

// Fetcher resolves a brief source into text.
type Fetcher struct {
	timeout time.Duration
}

// New creates a content fetcher.
func New(timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &Fetcher{timeout: timeout}
}

// Fetch reads a URL or local file path and returns its text content.
func (f *Fetcher) Fetch(ctx context.Context, source string) (*Content, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return f.fetchURL(ctx, source)
	}
	return fetchFile(source)
}

// fetchFile reads a local markdown or text file.
func fetchFile(path string) (*Content, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source file: %v", err)
	}

	text := string(data)
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	// A leading markdown H1 is a better title than the filename.
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "# ") {
			title = strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
		}
		break
	}

	return &Content{
		Title:     title,
		Content:   text,
		WordCount: len(strings.Fields(text)),
		Source:    path,
	}, nil
}

// fetchURL renders the page in headless Chrome and extracts title and body text.
func (f *Fetcher) fetchURL(parent context.Context, url string) (*Content, error) {
	ctx, cancel := chromedp.NewContext(parent)
	defer cancel()

	ctx, cancel = context.WithTimeout(ctx, f.timeout)
	defer cancel()

	log.Printf("Fetching source URL: %s", url)

	var title, body string
	err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second), // let client-rendered articles settle
		chromedp.Title(&title),
		chromedp.Evaluate(`
			(() => {
				const el = document.querySelector("article") || document.querySelector("main") || document.body;
				return el.innerText;
			})()
		`, &body, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %v", url, err)
	}

	body = strings.TrimSpace(body)
	return &Content{
		Title:     title,
		Content:   body,
		WordCount: len(strings.Fields(body)),
		Source:    url,
	}, nil
}
