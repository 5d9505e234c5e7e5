// Package discover finds the URL a quiz page wants its answer posted to.
package discover

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/quizhook/page"
)

// Target is an absolute submit URL. The empty Target means none was found.
type Target string

// None reports whether no target was found.
func (t Target) None() bool { return t == "" }

var scriptSubmitURL = regexp.MustCompile(`["'](https?://[^"']+/submit[^"']*)["']`)

// Find runs the discovery chain over the raw HTML, first match wins:
//
//  1. the first form with an action attribute, resolved against the page URL
//     (an empty action posts back to the page itself)
//  2. the first anchor whose href mentions "submit" (any case), resolved
//  3. the first quoted absolute URL with "/submit" in its path inside an
//     inline script, used verbatim
//
// It never needs the live page.
func Find(snap *page.Snapshot) Target {
	doc, err := snap.Document()
	if err != nil {
		return ""
	}
	for _, step := range []func(*page.Snapshot, *goquery.Document) Target{
		fromForm, fromAnchor, fromScript,
	} {
		if t := step(snap, doc); !t.None() {
			return t
		}
	}
	return ""
}

func fromForm(snap *page.Snapshot, doc *goquery.Document) Target {
	var t Target
	doc.Find("form[action]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		action, _ := sel.Attr("action")
		if abs, err := snap.Resolve(action); err == nil {
			t = Target(abs)
		}
		return false
	})
	return t
}

func fromAnchor(snap *page.Snapshot, doc *goquery.Document) Target {
	var t Target
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if !strings.Contains(strings.ToLower(href), "submit") {
			return true
		}
		abs, err := snap.Resolve(href)
		if err != nil {
			return true
		}
		t = Target(abs)
		return false
	})
	return t
}

func fromScript(_ *page.Snapshot, doc *goquery.Document) Target {
	var t Target
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if m := scriptSubmitURL.FindStringSubmatch(sel.Text()); m != nil {
			t = Target(m[1])
			return false
		}
		return true
	})
	return t
}
