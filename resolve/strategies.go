package resolve

import (
	"context"
	"encoding/base64"
	"errors"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/quizhook/answer"
	"github.com/use-agent/quizhook/page"
)

// EmbeddedJSON reads the first <pre> block as a JSON object and returns its
// "answer" field.
func EmbeddedJSON(_ context.Context, snap *page.Snapshot) (answer.Value, bool) {
	doc, err := snap.Document()
	if err != nil {
		return answer.Value{}, false
	}
	pre := doc.Find("pre").First()
	if pre.Length() == 0 {
		return answer.Value{}, false
	}
	return answer.FieldFromJSON(strings.TrimSpace(pre.Text()))
}

var atobCall = regexp.MustCompile("atob\\(\\s*[`'\"]([^`'\"]+)[`'\"]\\s*\\)")

// ScriptPayload looks at the first atob("...") call of each inline script.
// The decoded payload yields its "answer" field if it is a JSON object with
// one, or the sum of its number literals if it mentions "sum of". Scripts
// whose payload fails to decode or says neither are skipped.
func ScriptPayload(ctx context.Context, snap *page.Snapshot) (answer.Value, bool) {
	doc, err := snap.Document()
	if err != nil {
		return answer.Value{}, false
	}
	logger := loggerFrom(ctx)

	var (
		result answer.Value
		found  bool
	)
	doc.Find("script").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		m := atobCall.FindStringSubmatch(sel.Text())
		if m == nil {
			return true
		}
		raw, ok := decodeBase64(m[1])
		if !ok {
			logger.Debug("script payload is not base64", "script", i)
			return true
		}
		decoded := strings.ToValidUTF8(string(raw), "")

		if v, ok := answer.FieldFromJSON(decoded); ok {
			result, found = v, true
			return false
		}
		if strings.Contains(strings.ToLower(decoded), "sum of") {
			if sum, ok := answer.SumNumbers(decoded); ok {
				result, found = answer.Number(sum), true
				return false
			}
		}
		return true
	})
	return result, found
}

// decodeBase64 accepts standard or URL-safe alphabets, padded or not.
func decodeBase64(s string) ([]byte, bool) {
	s = strings.Join(strings.Fields(s), "")
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding,
		base64.URLEncoding, base64.RawURLEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, true
		}
	}
	return nil, false
}

// resultSelectors are the containers quiz pages commonly render results into.
var resultSelectors = []string{"#result", "#question", "#content", "#root"}

// DOMScan runs ScanDOM against the snapshot's live DOM.
func DOMScan(ctx context.Context, snap *page.Snapshot) (answer.Value, bool) {
	return ScanDOM(ctx, snap.DOM)
}

// ScanDOM checks each result selector in order. For the first present
// container whose text has numbers it returns their sum; text without numbers
// yields Boolean(true) or Boolean(false) if it says so, otherwise the next
// selector is tried. A nil or closed DOM abstains.
func ScanDOM(ctx context.Context, dom page.DOM) (answer.Value, bool) {
	if dom == nil {
		return answer.Value{}, false
	}
	logger := loggerFrom(ctx)

	for _, selector := range resultSelectors {
		el, present, err := dom.Query(ctx, selector)
		if errors.Is(err, page.ErrSessionClosed) {
			return answer.Value{}, false
		}
		if err != nil {
			logger.Debug("dom query failed", "selector", selector, "error", err)
			continue
		}
		if !present {
			continue
		}

		text, err := el.Text(ctx)
		if errors.Is(err, page.ErrSessionClosed) {
			return answer.Value{}, false
		}
		if err != nil {
			logger.Debug("dom text failed", "selector", selector, "error", err)
			continue
		}

		if sum, ok := answer.SumNumbers(text); ok {
			return answer.Number(sum), true
		}
		lower := strings.ToLower(text)
		if strings.Contains(lower, "true") {
			return answer.Boolean(true), true
		}
		if strings.Contains(lower, "false") {
			return answer.Boolean(false), true
		}
	}
	return answer.Value{}, false
}
