// Package chainalysis implements the client side of the asynchronous
// three-phase KYA/KYT verification protocol: register an attempt, poll
// until the analysis service reports readiness, then fetch alerts and
// classify them into a risk verdict.
package chainalysis

import (
	"github.com/shopspring/decimal"

	"github.com/wanel/kyxgate/internal/risk"
)

// TokenHeader is the authentication header the real service expects on
// every call.
const TokenHeader = "Token"

// AddressCheck is the input for one address (KYA) verification.
type AddressCheck struct {
	Address string
	Network string
	Asset   string
	Amount  decimal.Decimal
	// Identifier is the caller-supplied idempotency token. A random one is
	// generated when empty.
	Identifier string
}

// TransferCheck is the input for one transfer (KYT) verification.
type TransferCheck struct {
	FromAddress string
	ToAddress   string
	Network     string
	Asset       string
	Amount      decimal.Decimal
	TxHash      string
	Identifier  string
}

// AddressRegisterRequest is the KYA registration payload.
type AddressRegisterRequest struct {
	Address           string          `json:"address" binding:"required"`
	Network           string          `json:"network"`
	Asset             string          `json:"asset"`
	AssetAmount       decimal.Decimal `json:"assetAmount"`
	AttemptTimestamp  string          `json:"attemptTimestamp"`
	AttemptIdentifier string          `json:"attemptIdentifier" binding:"required"`
}

// AddressRegisterResponse echoes the registration and carries the session
// handle. UpdatedAt is present only when analysis completed immediately.
type AddressRegisterResponse struct {
	ExternalID        string          `json:"externalId"`
	Address           string          `json:"address,omitempty"`
	Asset             string          `json:"asset,omitempty"`
	Network           string          `json:"network,omitempty"`
	AssetAmount       decimal.Decimal `json:"assetAmount"`
	AttemptIdentifier string          `json:"attemptIdentifier,omitempty"`
	UpdatedAt         string          `json:"updatedAt,omitempty"`
}

// TransferRegisterRequest is the KYT registration payload.
type TransferRegisterRequest struct {
	FromAddress       string          `json:"fromAddress" binding:"required"`
	ToAddress         string          `json:"toAddress" binding:"required"`
	Network           string          `json:"network"`
	Asset             string          `json:"asset" binding:"required"`
	AssetAmount       decimal.Decimal `json:"assetAmount"`
	TxHash            string          `json:"txHash,omitempty"`
	AttemptTimestamp  string          `json:"attemptTimestamp"`
	AttemptIdentifier string          `json:"attemptIdentifier" binding:"required"`
}

// TransferRegisterResponse echoes the registration and carries the session
// handle.
type TransferRegisterResponse struct {
	ExternalID        string          `json:"externalId"`
	Asset             string          `json:"asset,omitempty"`
	Network           string          `json:"network,omitempty"`
	TransferReference string          `json:"transferReference,omitempty"`
	Tx                string          `json:"tx,omitempty"`
	UsdAmount         decimal.Decimal `json:"usdAmount"`
	AssetAmount       decimal.Decimal `json:"assetAmount"`
	Timestamp         string          `json:"timestamp,omitempty"`
	OutputAddress     string          `json:"outputAddress,omitempty"`
	UpdatedAt         string          `json:"updatedAt,omitempty"`
}

// StatusResponse is the readiness-poll result. UpdatedAt stays empty until
// analysis completes; once set it never changes.
type StatusResponse struct {
	ExternalID string `json:"externalId"`
	UpdatedAt  string `json:"updatedAt,omitempty"`
}

// AlertsResponse is the per-session alert list. An empty list means no
// risk was found.
type AlertsResponse struct {
	Alerts []risk.Alert `json:"alerts"`
}

// MonitorAlert is one entry of the cross-session monitoring feed.
type MonitorAlert struct {
	AlertAmountUsd     decimal.Decimal `json:"alertAmountUsd"`
	Category           string          `json:"category"`
	TransactionHash    string          `json:"transactionHash"`
	TransferReference  string          `json:"transferReference"`
	ExposureType       string          `json:"exposureType"`
	TransferReportedAt string          `json:"transferReportedAt"`
	AlertIdentifier    string          `json:"alertIdentifier"`
	Direction          string          `json:"direction"`
}

// MonitorResponse is the paginated monitoring feed.
type MonitorResponse struct {
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
	Total  int            `json:"total"`
	Data   []MonitorAlert `json:"data"`
}
