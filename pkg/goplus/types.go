// Package goplus implements the synchronous address-security provider. One
// GET returns a full indicator report; there is no registration or polling.
package goplus

import "github.com/wanel/kyxgate/internal/risk"

// Response is the provider's envelope. Code 1 means success.
type Response struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Result  AddressSecurity `json:"result"`
}

// AddressSecurity carries the per-address malicious-behavior indicators.
// Each indicator is "1" (flagged) or "0"; unknown addresses come back with
// every field empty.
type AddressSecurity struct {
	DataSource string `json:"data_source"`

	Cybercrime                        string `json:"cybercrime"`
	MoneyLaundering                   string `json:"money_laundering"`
	NumberOfMaliciousContractsCreated string `json:"number_of_malicious_contracts_created"`
	GasAbuse                          string `json:"gas_abuse"`
	FinancialCrime                    string `json:"financial_crime"`
	DarkwebTransactions               string `json:"darkweb_transactions"`
	Reinit                            string `json:"reinit"`
	PhishingActivities                string `json:"phishing_activities"`
	FakeKYC                           string `json:"fake_kyc"`
	BlacklistDoubt                    string `json:"blacklist_doubt"`
	FakeStandardInterface             string `json:"fake_standard_interface"`
	StealingAttack                    string `json:"stealing_attack"`
	BlackmailActivities               string `json:"blackmail_activities"`
	Sanctioned                        string `json:"sanctioned"`
	MaliciousMiningActivities         string `json:"malicious_mining_activities"`
	Mixer                             string `json:"mixer"`
	HoneypotRelatedAddress            string `json:"honeypot_related_address"`
}

// Indicators converts the raw report into the classifier's indicator list,
// preserving the provider's field order.
func (a AddressSecurity) Indicators() []risk.Indicator {
	fields := []struct {
		name  string
		value string
	}{
		{"cybercrime", a.Cybercrime},
		{"money_laundering", a.MoneyLaundering},
		{"number_of_malicious_contracts_created", a.NumberOfMaliciousContractsCreated},
		{"gas_abuse", a.GasAbuse},
		{"financial_crime", a.FinancialCrime},
		{"darkweb_transactions", a.DarkwebTransactions},
		{"reinit", a.Reinit},
		{"phishing_activities", a.PhishingActivities},
		{"fake_kyc", a.FakeKYC},
		{"blacklist_doubt", a.BlacklistDoubt},
		{"fake_standard_interface", a.FakeStandardInterface},
		{"stealing_attack", a.StealingAttack},
		{"blackmail_activities", a.BlackmailActivities},
		{"sanctioned", a.Sanctioned},
		{"malicious_mining_activities", a.MaliciousMiningActivities},
		{"mixer", a.Mixer},
		{"honeypot_related_address", a.HoneypotRelatedAddress},
	}

	out := make([]risk.Indicator, 0, len(fields))
	for _, f := range fields {
		out = append(out, risk.Indicator{Name: f.name, Flagged: f.value == "1"})
	}
	return out
}
