package extract

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/report-agent/internal/model"
)

// boilerplateSelectors lists elements stripped before falling back to the
// page body.
const boilerplateSelectors = "script, style, noscript, nav, header, footer, aside, form, iframe"

// minReadableWords is the readability result size below which the goquery
// fallback is tried.
const minReadableWords = 50

// HTMLExtractor pulls the main text out of a web page.
type HTMLExtractor struct {
	wordsPerPage int
}

// NewHTMLExtractor creates an HTMLExtractor. Page counts are words divided by
// wordsPerPage.
func NewHTMLExtractor(wordsPerPage int) *HTMLExtractor {
	if wordsPerPage <= 0 {
		wordsPerPage = 500
	}
	return &HTMLExtractor{wordsPerPage: wordsPerPage}
}

// Extract decodes raw, extracts the main content and estimates pages.
func (h *HTMLExtractor) Extract(raw []byte, locator string) (Document, error) {
	decoded := DecodeHTML(raw)

	title, text := readable(decoded, locator)
	if len(strings.Fields(text)) < minReadableWords {
		fbTitle, fbText, err := stripBoilerplate(decoded)
		if err != nil {
			return Document{}, unreadable(CategoryMalformed, err)
		}
		if len(strings.Fields(fbText)) > len(strings.Fields(text)) {
			text = fbText
		}
		if title == "" {
			title = fbTitle
		}
	}

	text = normalizeSpace(text)
	return Document{
		Text:   text,
		Pages:  len(strings.Fields(text)) / h.wordsPerPage,
		Format: model.FormatHTML,
		Title:  title,
	}, nil
}

// metaCharset matches both <meta charset> and the http-equiv content form.
var metaCharset = regexp.MustCompile(`(?i)<meta[^>]+charset\s*=\s*["']?\s*([a-z0-9_:.\-]+)`)

// DecodeHTML converts raw to UTF-8 using the charset declared in a meta tag
// within the first 1024 bytes. Undeclared or unknown charsets are read as
// UTF-8; invalid sequences become U+FFFD.
func DecodeHTML(raw []byte) string {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	head := raw[:min(len(raw), 1024)]
	if m := metaCharset.FindSubmatch(head); m != nil {
		name := string(m[1])
		enc, err := htmlindex.Get(name)
		if err != nil {
			zap.L().Debug("extract: unknown charset, using utf-8", zap.String("charset", name))
		} else if canonical, _ := htmlindex.Name(enc); canonical != "utf-8" {
			out, err := enc.NewDecoder().Bytes(raw)
			if err == nil {
				return strings.ToValidUTF8(string(out), "\uFFFD")
			}
			zap.L().Debug("extract: charset decode failed, using utf-8",
				zap.String("charset", name),
				zap.Error(err),
			)
		}
	}
	return strings.ToValidUTF8(string(raw), "\uFFFD")
}

func readable(doc, locator string) (title, text string) {
	pageURL, err := url.Parse(locator)
	if err != nil {
		pageURL = &url.URL{}
	}

	article, err := readability.FromReader(strings.NewReader(doc), pageURL)
	if err != nil {
		zap.L().Debug("extract: readability failed", zap.String("locator", locator), zap.Error(err))
		return "", ""
	}
	return strings.TrimSpace(article.Title), strings.TrimSpace(article.TextContent)
}

func stripBoilerplate(doc string) (title, text string, err error) {
	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return "", "", eris.Wrap(err, "extract: parse html")
	}

	title = strings.TrimSpace(d.Find("title").First().Text())
	if title == "" {
		if og, ok := d.Find("meta[property='og:title']").Attr("content"); ok {
			title = strings.TrimSpace(og)
		}
	}

	root := d.Find("main").First()
	if root.Length() == 0 {
		root = d.Find("body").First()
	}
	if root.Length() == 0 {
		root = d.Selection
	}
	root.Find(boilerplateSelectors).Remove()

	var parts []string
	root.Find("h1, h2, h3, h4, h5, h6, p, li, td, th, pre, blockquote").Each(func(_ int, s *goquery.Selection) {
		if s.Find("p, li, td").Length() > 0 {
			return
		}
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return title, strings.TrimSpace(root.Text()), nil
	}
	return title, strings.Join(parts, "\n"), nil
}

// normalizeSpace collapses runs of blank lines and trims each line.
func normalizeSpace(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.Join(strings.Fields(l), " ")
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
