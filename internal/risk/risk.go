// Package risk holds the verdict model and classification rules shared by
// the asynchronous and synchronous verification providers.
//
// Classification is deliberately binary: a verification either found
// nothing (score 0) or found at least one risk signal (score 100). No
// intermediate bands are computed here — weighting is the upstream
// analysis service's job, not ours.
package risk

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	scoreNone = decimal.Zero
	scoreHigh = decimal.NewFromInt(100)
)

// Verdict is the outcome of one verification.
type Verdict struct {
	InRisk bool            `json:"inRisk"`
	Score  decimal.Decimal `json:"score"`
	Detail string          `json:"detail"`
}

// NoRisk returns the clean verdict.
func NoRisk() Verdict {
	return Verdict{InRisk: false, Score: scoreNone, Detail: ""}
}

// HighRisk returns a flagged verdict carrying the given detail.
func HighRisk(detail string) Verdict {
	return Verdict{InRisk: true, Score: scoreHigh, Detail: detail}
}

// Alert is one flagged finding returned by the analysis service. Field
// names match the provider wire format.
type Alert struct {
	AlertLevel   string          `json:"alertLevel"`
	Category     string          `json:"category"`
	Service      string          `json:"service"`
	ExternalID   string          `json:"externalId"`
	AlertAmount  decimal.Decimal `json:"alertAmount"`
	ExposureType string          `json:"exposureType"`
}

// ClassifyAlerts maps an alert list to a verdict. A nil list and an empty
// list mean the same thing: no risk. Any alert at all means high risk, with
// the triggered categories joined by commas.
func ClassifyAlerts(alerts []Alert) Verdict {
	if len(alerts) == 0 {
		return NoRisk()
	}
	categories := make([]string, 0, len(alerts))
	for _, a := range alerts {
		categories = append(categories, a.Category)
	}
	return HighRisk(strings.Join(categories, ","))
}

// Indicator is one boolean-valued risk signal from an address reputation
// lookup.
type Indicator struct {
	Name    string
	Flagged bool
}

// ClassifyIndicators maps an indicator set to a verdict. One flagged
// indicator is enough for high risk; the verdict is never partially
// weighted. Flagged names are joined with newlines in the detail.
func ClassifyIndicators(indicators []Indicator) Verdict {
	var flagged []string
	for _, ind := range indicators {
		if ind.Flagged && strings.TrimSpace(ind.Name) != "" {
			flagged = append(flagged, ind.Name)
		}
	}
	if len(flagged) == 0 {
		return NoRisk()
	}
	return HighRisk(strings.Join(flagged, "\n"))
}
