package pipeline

import (
	"strings"

	"billparse/internal/domain"
)

// keywordRule assigns an amount type when any of its keywords appears in the
// candidate's context window. percentOnly rules additionally require the raw
// token to carry a percent sign.
type keywordRule struct {
	amountType  domain.AmountType
	keywords    []string
	percentOnly bool
}

// classificationRules is the fixed priority order of the classifier. The
// first matching rule wins: the discount rule must see percent tokens before
// any weaker keyword can absorb them, and "amount due" is claimed as a total
// marker before the due rule can match its "due" substring. The misspelled
// keywords (t0tal, pald, paymeni) cover OCR damage inside prose, which the
// normalizer deliberately leaves untouched.
var classificationRules = []keywordRule{
	{amountType: domain.AmountTypeDiscountPct, keywords: []string{"discount"}, percentOnly: true},
	{amountType: domain.AmountTypeTotalBill, keywords: []string{"total", "t0tal", "grand", "subtotal", "amount due", "bill"}},
	{amountType: domain.AmountTypePaid, keywords: []string{"paid", "pald", "payment", "paymeni", "received", "settled", "cash"}},
	{amountType: domain.AmountTypeDue, keywords: []string{"due", "unpaid", "outstanding", "owed", "balance"}},
	{amountType: domain.AmountTypeTax, keywords: []string{"tax", "gst", "cgst", "sgst", "igst", "vat"}},
	{amountType: domain.AmountTypeChange, keywords: []string{"change", "returned", "overpayment"}},
}

// Classify assigns a semantic type to a candidate from its context window.
// Pure function of the candidate and the rule table; no match means "other",
// which is a first-class output type, not an error.
func Classify(c *domain.Candidate) domain.AmountType {
	window := strings.ToLower(c.ContextWindow)
	for _, rule := range classificationRules {
		if rule.percentOnly && !c.IsPercent() {
			continue
		}
		for _, kw := range rule.keywords {
			if strings.Contains(window, kw) {
				return rule.amountType
			}
		}
	}
	return domain.AmountTypeOther
}
