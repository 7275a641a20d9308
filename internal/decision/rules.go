package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// Rules is the built-in threshold/keyword rule set. It reproduces the
// stock behavior of the hot-reloadable decision hook: a transfer is risky
// when the amount exceeds the threshold, or when any subject address body
// starts with the configured prefix.
type Rules struct {
	// AmountThreshold flags amounts strictly greater than this value.
	AmountThreshold decimal.Decimal `json:"amountThreshold"`
	// AddressPrefix flags addresses whose hex body starts with this prefix.
	AddressPrefix string `json:"addressPrefix"`
	// BaseDetail is the leading fragment of the risk detail string.
	BaseDetail string `json:"baseDetail"`
}

// DefaultRules returns the stock rule set.
func DefaultRules() Rules {
	return Rules{
		AmountThreshold: decimal.NewFromInt(5000),
		AddressPrefix:   "1",
		BaseDetail:      "money laundry or fraud",
	}
}

// Evaluate applies the rule set to one subject.
func (r Rules) Evaluate(p Params) Outcome {
	amountRisk := !p.TokenAmount.IsZero() && p.TokenAmount.Cmp(r.AmountThreshold) > 0

	addressRisk := false
	riskAddress := ""
	if r.AddressPrefix != "" {
		for _, addr := range p.Addresses() {
			body := stripHexPrefix(addr)
			if strings.HasPrefix(body, r.AddressPrefix) {
				addressRisk = true
				riskAddress = body
				break
			}
		}
	}

	if !amountRisk && !addressRisk {
		return Outcome{}
	}

	detail := r.BaseDetail
	if amountRisk {
		detail += fmt.Sprintf(" - Large amount transaction: %s", p.TokenAmount)
	}
	if addressRisk {
		detail += fmt.Sprintf(" - Suspicious address pattern: %s", riskAddress)
	}
	return Outcome{InRisk: true, Detail: detail}
}

// RuleDecider is the trivial built-in Decider: a fixed rule set, no state.
type RuleDecider struct {
	rules Rules
}

// NewRuleDecider creates a Decider from the given rule set.
func NewRuleDecider(rules Rules) *RuleDecider {
	if rules.BaseDetail == "" {
		rules.BaseDetail = DefaultRules().BaseDetail
	}
	return &RuleDecider{rules: rules}
}

func (d *RuleDecider) Decide(_ context.Context, p Params) (Outcome, error) {
	return d.rules.Evaluate(p), nil
}

// loadRulesFile reads and validates a JSON rule set from disk.
func loadRulesFile(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}
	rules := DefaultRules()
	if err := json.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	if rules.AmountThreshold.IsNegative() {
		return Rules{}, fmt.Errorf("rules file %s: amountThreshold must not be negative", path)
	}
	return rules, nil
}
