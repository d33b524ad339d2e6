package client

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

// htmlErrorTitle reduces an HTML error page (a proxy or the framework's
// debug page) to a one-line message.
func htmlErrorTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		log.Debugf("Failed to parse HTML error body: %v", err)
		return ""
	}

	for _, selector := range []string{"title", "h1", "body"} {
		text := collapseSpace(doc.Find(selector).First().Text())
		if text != "" {
			return truncate(text, maxDetailLength)
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
