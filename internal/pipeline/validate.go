package pipeline

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"billparse/internal/domain"
)

// firstOfType returns the value of the first amount with the given type.
func firstOfType(amounts []domain.ClassifiedAmount, t domain.AmountType) (float64, bool) {
	for i := range amounts {
		if amounts[i].Type == t {
			return amounts[i].Value, true
		}
	}
	return 0, false
}

// fmtAmount renders an amount the way the inconsistency message has always
// shown it: shortest decimal form, with integral values keeping a ".0".
func fmtAmount(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// validate cross-checks total against paid + due. With all three roles present
// it returns validation_ok within tolerance, otherwise validation_inconsistent
// with a synthetic validation_error entry appended last. With fewer than three
// roles there is not enough evidence either way: validation_partial.
func (p *Pipeline) validate(amounts []domain.ClassifiedAmount) ([]domain.ClassifiedAmount, domain.ValidationStatus) {
	total, hasTotal := firstOfType(amounts, domain.AmountTypeTotalBill)
	paid, hasPaid := firstOfType(amounts, domain.AmountTypePaid)
	due, hasDue := firstOfType(amounts, domain.AmountTypeDue)

	if !hasTotal || !hasPaid || !hasDue {
		return amounts, domain.ValidationPartial
	}

	if math.Abs(total-(paid+due)) <= p.cfg.Tolerance {
		return amounts, domain.ValidationOK
	}

	return append(amounts, domain.ClassifiedAmount{
		Type:  domain.AmountTypeValidationError,
		Value: 1.0,
		Source: fmt.Sprintf("Inconsistency: Total (%s) != Paid (%s) + Due (%s)",
			fmtAmount(total), fmtAmount(paid), fmtAmount(due)),
	}), domain.ValidationInconsistent
}

// score blends the classification success rate with a penalty for the volume
// of OCR corrections. Both components are monotonic: more unclassified
// candidates or more corrections never raises the score.
func (p *Pipeline) score(classified, candidates, corrections int) float64 {
	if candidates == 0 {
		return 0.0
	}

	ratio := float64(corrections) / float64(candidates)
	if ratio > 1 {
		ratio = 1
	}
	normConf := 1.0 - p.cfg.CorrectionPenalty*ratio
	if normConf < p.cfg.NormalizationFloor {
		normConf = p.cfg.NormalizationFloor
	}

	classConf := float64(classified) / float64(candidates)
	if classConf > p.cfg.ClassificationCap {
		classConf = p.cfg.ClassificationCap
	}

	conf := p.cfg.NormalizationWeight*normConf + p.cfg.ClassificationWeight*classConf
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	// Round the stored value itself to two decimals. Scaling by 100 first can
	// land a ...4999 double exactly on the half boundary and round up, turning
	// a 0.9749... blend into 0.98 instead of 0.97.
	rounded, _ := strconv.ParseFloat(strconv.FormatFloat(conf, 'f', 2, 64), 64)
	return rounded
}
