// Package links serves the outbound shop redirect and book cover lookup.
package links

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	amazonBase = "https://www.amazon.co.jp/dp/"
	moshimoURL = "https://af.moshimo.com/af/c/click"
)

var asinRE = regexp.MustCompile(`^[A-Z0-9]{10}$`)

// Affiliate holds the Moshimo click ids for Amazon. Links are only wrapped
// when every id is set.
type Affiliate struct {
	AID  string
	PID  string
	PCID string
	PLID string
}

func (a Affiliate) Configured() bool {
	return a.AID != "" && a.PID != "" && a.PCID != "" && a.PLID != ""
}

// Wrap returns the click URL for target, or target itself when unconfigured.
func (a Affiliate) Wrap(target string) string {
	if !a.Configured() {
		return target
	}
	q := url.Values{}
	q.Set("a_id", a.AID)
	q.Set("p_id", a.PID)
	q.Set("pc_id", a.PCID)
	q.Set("pl_id", a.PLID)
	q.Set("url", target)
	return moshimoURL + "?" + q.Encode()
}

// NormalizeASIN upper-cases asin and reports whether it is well formed.
func NormalizeASIN(asin string) (string, bool) {
	asin = strings.ToUpper(strings.TrimSpace(asin))
	return asin, asinRE.MatchString(asin)
}

// AmazonURL is the product page for a normalized ASIN.
func AmazonURL(asin string) string {
	return amazonBase + asin
}
