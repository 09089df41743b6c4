// Package recovery turns untrusted producer text into a usable document.
//
// Recovery is tiered. Each tier is a pure function from text to an optional
// document; the first tier yielding at least one section wins and lower tiers
// are never attempted:
//
//	direct   slice from the first '{' to the last '}' and parse it
//	repair   find where the sections array closes, keep each well-formed object
//	fields   extract fields one by one from innermost title-bearing objects
//	canned   a fixed two-section document
//
// Recover never fails and never returns a document without sections.
package recovery

import "ebookgen/models"

// Tier identifies the recovery strategy that produced a document.
type Tier int

const (
	TierDirect Tier = iota
	TierRepair
	TierFields
	TierCanned
)

func (t Tier) String() string {
	switch t {
	case TierDirect:
		return "direct"
	case TierRepair:
		return "repair"
	case TierFields:
		return "fields"
	case TierCanned:
		return "canned"
	}
	return "unknown"
}

// Result pairs a recovered document with the tier that produced it.
type Result struct {
	Document models.Document
	Tier     Tier
}

var tiers = []struct {
	tier Tier
	fn   func(string) (models.Document, bool)
}{
	{TierDirect, directExtract},
	{TierRepair, bracketRepair},
	{TierFields, fieldExtract},
}

// Recover returns the best-effort document for raw.
func Recover(raw string) models.Document {
	return Analyze(raw).Document
}

// Analyze is Recover that also reports which tier succeeded.
func Analyze(raw string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Document: Canned(), Tier: TierCanned}
		}
	}()
	for _, t := range tiers {
		if doc, ok := t.fn(raw); ok && len(doc.Sections) > 0 {
			return Result{Document: doc, Tier: t.tier}
		}
	}
	return Result{Document: Canned(), Tier: TierCanned}
}
