package main

import (
	"regexp"
	"strings"
)

var (
	dotUnderscoreRe = regexp.MustCompile(`[._]`)
	dashSpacingRe   = regexp.MustCompile(`\s*-\s*`)
	multiSpaceRe    = regexp.MustCompile(`\s+`)
	orderPrefixRe   = regexp.MustCompile(`(^|\s)[0-9]+([.-][0-9]+)*\s*`)
)

// normalizeTag canonicalizes a raw tag name for matching: lower-case,
// "."/"_" become spaces, whitespace around "-" collapses into a bare dash
// (so "6 - 1" and "6-1" compare equal), runs of whitespace collapse.
func normalizeTag(s string) string {
	s = strings.ToLower(s)
	s = dotUnderscoreRe.ReplaceAllString(s, " ")
	s = dashSpacingRe.ReplaceAllString(s, "-")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// stripOrderingPrefix removes numeric ordering prefixes like "6-1 " or
// "2. " that mailbox tags carry for sort order ("0 Aspire" -> "Aspire").
func stripOrderingPrefix(s string) string {
	return orderPrefixRe.ReplaceAllString(s, "$1")
}

// Stop words skipped by keyword extraction. Short function words only;
// anything under four characters is dropped before this list applies.
var keywordStopWords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "have": true,
	"will": true, "your": true, "about": true, "after": true, "before": true,
	"been": true, "being": true, "into": true, "over": true, "under": true,
	"during": true, "between": true, "without": true, "against": true,
	"please": true, "regarding": true, "within": true, "their": true,
	"there": true, "these": true, "those": true, "what": true, "when": true,
	"where": true, "which": true, "would": true, "should": true, "could": true,
}

// patternKeyword maps any of a set of trigger substrings to one canonical
// learning keyword, so "parcel" and "shipment" land on the same counter.
type patternKeyword struct {
	keyword  string
	triggers []string
}

var patternKeywords = []patternKeyword{
	{"parcel", []string{"parcel", "package", "shipment", "delivery"}},
	{"notification", []string{"notification", "alert", "reminder"}},
	{"promo", []string{"newsletter", "promo", "offer", "unsubscribe", "sale"}},
	{"confirmation", []string{"confirmation", "confirmed", "your order"}},
	{"invoice", []string{"invoice", "receipt", "billing", "payment due"}},
}

// extractKeywords reduces a subject line to the salient tokens used as
// learning dimensions: the first three lower-cased words of at least four
// characters that are not stop words, plus any canonical pattern keyword
// whose trigger occurs anywhere in the subject. Deterministic and total.
func extractKeywords(subject string) []string {
	lower := strings.ToLower(subject)

	var words []string
	for _, w := range strings.Fields(lower) {
		if len(w) < 4 || keywordStopWords[w] {
			continue
		}
		words = append(words, w)
		if len(words) == 3 {
			break
		}
	}

	seen := make(map[string]bool, len(words))
	var out []string
	for _, w := range words {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	for _, p := range patternKeywords {
		for _, trig := range p.triggers {
			if strings.Contains(lower, trig) {
				if !seen[p.keyword] {
					seen[p.keyword] = true
					out = append(out, p.keyword)
				}
				break
			}
		}
	}
	return out
}

// emailDomain extracts the lower-cased domain part of an address, tolerating
// display-name forms like "Jane Doe <jane@acme.com>".
func emailDomain(addr string) string {
	addr = strings.TrimSpace(addr)
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	dom := addr[at+1:]
	if i := strings.IndexAny(dom, ">) "); i >= 0 {
		dom = dom[:i]
	}
	return strings.ToLower(strings.TrimSpace(dom))
}

func emailDomains(addrs []string) []string {
	var out []string
	for _, a := range addrs {
		if d := emailDomain(a); d != "" {
			out = append(out, d)
		}
	}
	return out
}
