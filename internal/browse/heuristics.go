// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package browse drives an authenticated browser session through an
// institutional proxy and extracts downloadable artifacts from publisher
// pages via heuristic link detection.
package browse

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page-shape heuristics operate on a static DOM snapshot. Each heuristic is
// an ordered list of candidate matchers evaluated in sequence; the first
// match wins. Institutional patterns come first, generic HTML shapes last.

// loginURLFragments classify a URL as a login/SSO view.
var loginURLFragments = []string{
	"login", "signin", "sign-in", "sso", "shibboleth", "auth", "idp", "openathens",
}

// usernameCandidates locate the username field on a login form.
var usernameCandidates = []string{
	`input[name="j_username"]`,
	`input[name="username"]`,
	`input[id="username"]`,
	`input[name="user"]`,
	`input[name="login"]`,
	`input[type="email"]`,
	`input[type="text"]`,
}

// passwordCandidates locate the password field.
var passwordCandidates = []string{
	`input[name="j_password"]`,
	`input[name="password"]`,
	`input[id="password"]`,
	`input[name="pass"]`,
	`input[type="password"]`,
}

// submitCandidates locate the login submit control. Absence falls back to
// a keyboard submit on the password field.
var submitCandidates = []string{
	`button[type="submit"]`,
	`input[type="submit"]`,
	`button[name="_eventId_proceed"]`,
	`button[id*="login"]`,
	`button[id*="submit"]`,
}

// pdfHrefCandidates match links whose href itself points at a PDF resource.
var pdfHrefCandidates = []string{
	`a[href$=".pdf"]`,
	`a[href*=".pdf?"]`,
	`a[href*="/pdf/"]`,
	`a[href*="pdfft"]`,
	`a[href*="type=printable"]`,
}

// pdfClassCandidates match publisher-specific control classes.
var pdfClassCandidates = []string{
	`a.article-pdfLink`,
	`a.pdf-link`,
	`a.al-link.pdf`,
	`.c-pdf-download a`,
	`a.download-files-pdf`,
	`a[data-track-action="download pdf"]`,
}

// pdfAriaCandidates match controls labelled for assistive tech.
var pdfAriaCandidates = []string{
	`a[aria-label*="PDF"]`,
	`button[aria-label*="PDF"]`,
	`a[aria-label*="pdf"]`,
}

// pdfTextPattern matches link/button text that promises a PDF.
var pdfTextPattern = regexp.MustCompile(`(?i)\b(download|view|full[- ]?text|get)\b.*\bpdf\b|\bpdf\b.*\b(download|full[- ]?text)\b`)

// externalRefFragments mark links that lead away to another resolver rather
// than to an artifact on this page.
var externalRefFragments = []string{
	"doi.org", "linkinghub.elsevier.com", "dx.doi.org", "link.springer.com/article",
}

// IsLoginURL reports whether the URL looks like a login or SSO view.
func IsLoginURL(rawURL string) bool {
	u := strings.ToLower(rawURL)
	for _, frag := range loginURLFragments {
		if strings.Contains(u, frag) {
			return true
		}
	}
	return false
}

// IsLoginPage classifies a page as an authentication challenge. Either
// signal alone suffices: a login-shaped URL, or a password input in the DOM.
func IsLoginPage(rawURL string, doc *goquery.Document) bool {
	if IsLoginURL(rawURL) {
		return true
	}
	return doc.Find(`input[type="password"]`).FilterFunction(visible).Length() > 0
}

// LoginForm holds the selectors located for an authentication attempt.
type LoginForm struct {
	UserSelector   string
	PassSelector   string
	SubmitSelector string // empty means keyboard submit on the password field
}

// FindLoginForm locates username and password fields by evaluating the
// candidate lists in order, taking the first visible match for each. The
// submit control is optional.
func FindLoginForm(doc *goquery.Document) (LoginForm, bool) {
	form := LoginForm{
		UserSelector: firstVisible(doc, usernameCandidates),
		PassSelector: firstVisible(doc, passwordCandidates),
	}
	if form.UserSelector == "" || form.PassSelector == "" {
		return LoginForm{}, false
	}
	form.SubmitSelector = firstVisible(doc, submitCandidates)
	return form, true
}

// PDFControl is a located PDF-yielding control on a publisher page.
type PDFControl struct {
	// Selector addresses the control in the live page.
	Selector string

	// Href is the control's link target, when it has one.
	Href string
}

// FindPDFControl searches the ordered heuristic lists for a PDF-yielding
// control: direct href shapes first, then publisher classes, ARIA labels,
// and finally link/button text.
func FindPDFControl(doc *goquery.Document) (PDFControl, bool) {
	ordered := make([]string, 0, len(pdfHrefCandidates)+len(pdfClassCandidates)+len(pdfAriaCandidates))
	ordered = append(ordered, pdfHrefCandidates...)
	ordered = append(ordered, pdfClassCandidates...)
	ordered = append(ordered, pdfAriaCandidates...)

	for _, sel := range ordered {
		match := doc.Find(sel).FilterFunction(visible).First()
		if match.Length() == 0 {
			continue
		}
		href, _ := match.Attr("href")
		return PDFControl{Selector: sel, Href: href}, true
	}

	// Text-based fallback: no stable selector, so address the control by
	// its href or id.
	var found PDFControl
	var ok bool
	doc.Find("a, button").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !visible(0, s) || !pdfTextPattern.MatchString(strings.TrimSpace(s.Text())) {
			return true
		}
		if sel := addressable(s); sel != "" {
			href, _ := s.Attr("href")
			found = PDFControl{Selector: sel, Href: href}
			ok = true
			return false
		}
		return true
	})
	return found, ok
}

// FindExternalReference reports whether the page offers only an outbound
// resolver link (e.g. "View at publisher"). Distinguished from "no PDF
// link found" in failure reasons.
func FindExternalReference(doc *goquery.Document) bool {
	ref := false
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		for _, frag := range externalRefFragments {
			if strings.Contains(href, frag) {
				ref = true
				return false
			}
		}
		return true
	})
	return ref
}

// IsPDFURL reports whether a URL is PDF-shaped.
func IsPDFURL(rawURL string) bool {
	u := strings.ToLower(rawURL)
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		if strings.HasSuffix(u[:i], ".pdf") {
			return true
		}
	}
	return strings.HasSuffix(u, ".pdf") || strings.Contains(u, "/pdf/") || strings.Contains(u, "pdfft")
}

// firstVisible returns the first candidate selector with a visible match.
func firstVisible(doc *goquery.Document, candidates []string) string {
	for _, sel := range candidates {
		if doc.Find(sel).FilterFunction(visible).Length() > 0 {
			return sel
		}
	}
	return ""
}

// visible approximates element visibility from the static DOM: hidden
// inputs and inline display:none are the signals available without layout.
func visible(_ int, s *goquery.Selection) bool {
	if t, _ := s.Attr("type"); strings.EqualFold(t, "hidden") {
		return false
	}
	if style, ok := s.Attr("style"); ok {
		compact := strings.ReplaceAll(strings.ToLower(style), " ", "")
		if strings.Contains(compact, "display:none") || strings.Contains(compact, "visibility:hidden") {
			return false
		}
	}
	if _, hidden := s.Attr("hidden"); hidden {
		return false
	}
	return true
}

// addressable builds a CSS selector for a selection from its id, href, or
// class list. Returns "" when the element carries none of them.
func addressable(s *goquery.Selection) string {
	if id, ok := s.Attr("id"); ok && id != "" {
		return "#" + id
	}
	if href, ok := s.Attr("href"); ok && href != "" {
		return `a[href="` + href + `"]`
	}
	if class, ok := s.Attr("class"); ok && class != "" {
		fields := strings.Fields(class)
		return goquery.NodeName(s) + "." + strings.Join(fields, ".")
	}
	return ""
}
