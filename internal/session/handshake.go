package session

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/atom"
)

// siteTitle appears in the <title> of every e-procurement page.
const siteTitle = "政府電子採購網"

// Handshake requests the search page once with the demonstration query and
// checks that it is the bulletin we know how to parse. Cookies set by the
// response stay in the session for later requests.
func (s *Session) Handshake(ctx context.Context) error {
	ctx = WithPhase(ctx, PhaseHandshake)

	params := s.site.SearchParams(s.handshakeQuery, s.handshakeYear)
	doc, err := s.Fetch(ctx, http.MethodGet, params)
	if err != nil {
		return fmt.Errorf("handshake failed: %w", err)
	}
	if err := ValidateSearchPage(doc); err != nil {
		return fmt.Errorf("handshake failed: %w", err)
	}

	s.logger.Info("handshake succeeded", "endpoint", s.site.Endpoint, "jar_size", s.CookieCount())
	return nil
}

// ValidateSearchPage checks, in order, the site title, the hidden search
// status marker and the bulletin table.
func ValidateSearchPage(doc *goquery.Document) error {
	if !strings.Contains(doc.Find("title").First().Text(), siteTitle) {
		return ErrUnexpectedSite
	}

	marker := doc.Find("#checkSearchFailure").First()
	if marker.Length() == 0 {
		return ErrNoStatusMarker
	}
	if marker.Get(0).DataAtom != atom.Div {
		return ErrStatusMarkerNotBlock
	}
	style, ok := marker.Attr("style")
	if !ok {
		return ErrStatusMarkerNoStyle
	}
	if !strings.Contains(strings.ToLower(stripSpace(style)), "display:none") {
		return ErrSearchFailed
	}

	bulletin := doc.Find("#bulletion").First()
	if bulletin.Length() == 0 {
		return ErrNoBulletin
	}
	if bulletin.Get(0).DataAtom != atom.Table {
		return ErrBulletinNotTable
	}

	return nil
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
