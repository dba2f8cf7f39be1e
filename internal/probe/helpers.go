package probe

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// pageTitle extracts the trimmed <title> text from an HTML body, or "" when
// the document has none (or isn't HTML at all).
func pageTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// metaContent returns the content attribute of the first <meta> tag whose
// attr equals value, e.g. metaContent(body, "property", "og:description").
func metaContent(body []byte, attr, value string) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	sel := doc.Find(`meta[` + attr + `="` + value + `"]`).First()
	content, _ := sel.Attr("content")
	return strings.TrimSpace(content)
}

// bodyContains is a case-insensitive substring check over the response body.
func bodyContains(body []byte, marker string) bool {
	return strings.Contains(strings.ToLower(string(body)), strings.ToLower(marker))
}
