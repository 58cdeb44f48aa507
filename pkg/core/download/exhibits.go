package download

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Complete submissions are SGML-ish: document sections are delimited by
// <DOCUMENT> markers, each naming its kind in a <TYPE> line and carrying its
// payload inside a <TEXT> block.
var (
	reDocType  = regexp.MustCompile(`<TYPE>(.+)`)
	reDocText  = regexp.MustCompile(`(?is)<TEXT>(.*)</TEXT>`)
	reBlockTag = regexp.MustCompile(`(?i)</(?:p|div|tr|h[1-6]|li)>|<br\s*/?>`)
)

// ExtractExhibits splits a complete submission into document sections and
// writes every EX-99 exhibit as plain text into folder. A repeated exhibit
// type gets _1, _2, ... suffixes. Returns the saved paths in document order.
func ExtractExhibits(text, folder string) ([]string, error) {
	var saved []string
	counter := make(map[string]int)

	for _, doc := range strings.Split(text, "<DOCUMENT>") {
		m := reDocType.FindStringSubmatch(doc)
		if m == nil {
			continue
		}
		docType := strings.ToUpper(strings.TrimSpace(m[1]))
		if !strings.HasPrefix(docType, "EX-99") {
			continue
		}
		tm := reDocText.FindStringSubmatch(doc)
		if tm == nil {
			continue
		}

		name := docType + ".txt"
		if n, dup := counter[docType]; dup {
			counter[docType] = n + 1
			name = fmt.Sprintf("%s_%d.txt", docType, n+1)
		} else {
			counter[docType] = 0
		}

		path := filepath.Join(folder, name)
		if err := writeStaged(path, []byte(stripHTML(tm[1]))); err != nil {
			return saved, err
		}
		saved = append(saved, path)
	}
	return saved, nil
}

// stripHTML reduces exhibit markup to readable text. Closing block tags and
// <br> become newlines first so paragraphs stay separated after tag removal.
func stripHTML(raw string) string {
	raw = reBlockTag.ReplaceAllString(raw, "\n")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(doc.Text())
}
