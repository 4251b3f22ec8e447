package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/nao1215/tenderscan/internal/config"
	"github.com/nao1215/tenderscan/internal/model"
)

// Selectors for the bulletin markup.
const (
	selPageLinks = "#pagelinks"
	selLastPage  = "a:nth-child(2)"
	selRows      = "#bulletion > tbody"
	selSpacer    = "td[colspan]"
	selAnchor    = "a"
	selScript    = "span > script"
)

// Bulletin columns (1-based).
const (
	colCategory  = 2
	colAuthority = 3
	colTitle     = 4
)

// titlePattern matches a call such as pageCode2Img("payload").
var titlePattern = regexp.MustCompile(`[A-Za-z_$][\w$.]*\(\s*"(.+?)"`)

// BulletinParser extracts pagination info and records from results pages.
type BulletinParser struct {
	// origin is prefixed to relative detail links.
	origin string
}

// NewBulletinParser creates a parser that makes links absolute with origin.
func NewBulletinParser(origin string) *BulletinParser {
	return &BulletinParser{origin: strings.TrimSuffix(origin, "/")}
}

// PageParam reads the page selector parameter from the last-page link.
// found is false when the page has no #pagelinks element at all.
func (p *BulletinParser) PageParam(doc *goquery.Document) (param model.PageParam, found bool) {
	links := doc.Find(selPageLinks).First()
	if links.Length() == 0 {
		return model.SinglePage, false
	}

	href, ok := links.Find(selLastPage).First().Attr("href")
	if !ok {
		return model.SinglePage, true
	}
	return ParsePageLink(href), true
}

// ParsePageLink extracts {Name, Count} from a pagination href.
// The fixed search parameters are skipped and the first remaining
// name=digits pair wins, in the order the link lists them.
func ParsePageLink(href string) model.PageParam {
	_, rawQuery, ok := strings.Cut(href, "?")
	if !ok {
		return model.SinglePage
	}
	rawQuery, _, _ = strings.Cut(rawQuery, "#")

	for _, pair := range strings.Split(rawQuery, "&") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" || !isDigits(value) {
			continue
		}
		if unescaped, err := url.QueryUnescape(name); err == nil {
			name = unescaped
		}
		if config.IsFixedParam(name) {
			continue
		}
		count, err := strconv.Atoi(value)
		if err != nil || count < 1 {
			continue
		}
		return model.PageParam{Name: name, Count: count}
	}
	return model.SinglePage
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Rows parses every row of the results table.
func (p *BulletinParser) Rows(doc *goquery.Document) model.PageResult {
	body := doc.Find(selRows).First()
	if body.Length() == 0 {
		return model.PageResult{Outcome: model.OutcomePartial, Err: ErrNoBulletin}
	}

	result := model.PageResult{
		Records: make([]model.TenderRecord, 0),
		Outcome: model.OutcomeComplete,
	}

	body.ChildrenFiltered("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if row.Find(selSpacer).Length() > 0 {
			return false
		}
		record, err := p.Row(row)
		if err != nil {
			result.Outcome = model.OutcomePartial
			result.Err = err
			return false
		}
		result.Records = append(result.Records, record)
		return true
	})

	if result.Outcome == model.OutcomeComplete && len(result.Records) == 0 {
		result.Outcome = model.OutcomeEmpty
	}
	return result
}

// Row parses a single results row.
func (p *BulletinParser) Row(row *goquery.Selection) (model.TenderRecord, error) {
	var record model.TenderRecord

	category := cell(row, colCategory)
	if category.Length() == 0 {
		return record, missing("category cell")
	}
	record.Kind = model.KindOf(clean(category.Text()))

	authority := cell(row, colAuthority)
	if authority.Length() == 0 {
		return record, missing("authority cell")
	}
	record.Authority = clean(authority.Text())

	anchor := cell(row, colTitle).ChildrenFiltered(selAnchor).First()
	if anchor.Length() == 0 {
		return record, missing("title anchor")
	}
	script := anchor.Find(selScript).First()
	if script.Length() == 0 {
		return record, missing("title script")
	}
	record.Title = ExtractTitle(script.Text())

	if href, ok := anchor.Attr("href"); ok {
		record.URL = p.origin + strings.TrimSpace(href)
	}

	date := cell(row, record.Kind.DateColumn())
	if date.Length() == 0 {
		return record, missing("date cell")
	}
	var dateText string
	if record.Kind.DirectTextOnly() {
		dateText = firstDirectText(date.Get(0))
	} else {
		dateText = date.Text()
	}
	record.Date = model.ParseEraDate(dateText)

	return record, nil
}

// ExtractTitle returns the quoted payload of a call-like script body, or ""
// when the text has no such call.
func ExtractTitle(text string) string {
	m := titlePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

func cell(row *goquery.Selection, column int) *goquery.Selection {
	return row.ChildrenFiltered(fmt.Sprintf("td:nth-child(%d)", column)).First()
}

func missing(what string) error {
	return fmt.Errorf("%w: %s", ErrMissingElement, what)
}

// clean trims whitespace and normalises to NFC so equal names compare equal.
func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// firstDirectText returns the first non-blank text node directly under n.
// Award rows append the award amount in nested elements after the date.
func firstDirectText(n *html.Node) string {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) != "" {
			return c.Data
		}
	}
	return ""
}
