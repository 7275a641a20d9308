// Package simulator implements a reference verification service that speaks
// the same wire protocol as the real analysis providers. It exists so
// integrations can be exercised end to end without a paid upstream: sessions
// complete after a configurable random delay, and risk comes from the
// pluggable decision function instead of chain analysis.
package simulator

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wanel/kyxgate/internal/decision"
	"github.com/wanel/kyxgate/internal/logging"
	"github.com/wanel/kyxgate/internal/metrics"
	"github.com/wanel/kyxgate/internal/risk"
	"github.com/wanel/kyxgate/internal/session"
	"github.com/wanel/kyxgate/pkg/chainalysis"
	"github.com/wanel/kyxgate/pkg/goplus"
)

// Options configures the simulated completion behavior.
type Options struct {
	// DelayMinSeconds and DelayMaxSeconds bound the per-registration
	// completion delay, drawn uniformly. A drawn delay of zero makes the
	// session ready at registration.
	DelayMinSeconds int
	DelayMaxSeconds int

	// SessionTTL is how long a registration stays fetchable before the
	// sweeper may remove it.
	SessionTTL time.Duration
}

// Service holds the simulator state and rules.
type Service struct {
	store   session.Store
	decider decision.Decider
	opts    Options

	// now is swappable for tests.
	now func() time.Time
}

// NewService creates a simulator backed by the given store and decision
// function.
func NewService(store session.Store, decider decision.Decider, opts Options) *Service {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = time.Hour
	}
	if opts.DelayMaxSeconds < opts.DelayMinSeconds {
		opts.DelayMaxSeconds = opts.DelayMinSeconds
	}
	return &Service{
		store:   store,
		decider: decider,
		opts:    opts,
		now:     time.Now,
	}
}

// completionDelay draws the per-registration delay in seconds.
func (s *Service) completionDelay() int {
	span := s.opts.DelayMaxSeconds - s.opts.DelayMinSeconds
	if span <= 0 {
		return s.opts.DelayMinSeconds
	}
	return s.opts.DelayMinSeconds + rand.Intn(span+1)
}

// register creates the session shared by both registration kinds.
// No risk evaluation happens here; the decision function runs when alerts
// are fetched.
func (s *Service) register(ctx context.Context, kind session.Kind, params decision.Params) (*session.Session, error) {
	now := s.now()
	sess := &session.Session{
		ExternalID:   uuid.NewString(),
		Kind:         kind,
		Params:       params,
		RegisteredAt: now,
		ExpiresAt:    now.Add(s.opts.SessionTTL),
	}

	if delay := s.completionDelay(); delay == 0 {
		sess.UpdatedAt = session.Timestamp(now)
	} else {
		sess.CompletesAt = now.Unix() + int64(delay)
	}

	if err := s.store.Create(ctx, sess); err != nil {
		return nil, err
	}
	metrics.SessionsRegisteredTotal.WithLabelValues(string(kind)).Inc()

	logging.L(ctx).Info("verification registered",
		"external_id", sess.ExternalID,
		"kind", kind,
		"ready", sess.Ready(),
	)
	return sess, nil
}

// RegisterAddress handles one KYA registration.
func (s *Service) RegisterAddress(ctx context.Context, req chainalysis.AddressRegisterRequest) (chainalysis.AddressRegisterResponse, error) {
	params := decision.Params{
		RequestType:   "kya",
		TargetAddress: req.Address,
		TokenName:     req.Asset,
		Network:       req.Network,
	}

	sess, err := s.register(ctx, session.KindAddress, params)
	if err != nil {
		return chainalysis.AddressRegisterResponse{}, err
	}

	return chainalysis.AddressRegisterResponse{
		ExternalID:        sess.ExternalID,
		Address:           req.Address,
		Asset:             req.Asset,
		Network:           req.Network,
		AssetAmount:       req.AssetAmount,
		AttemptIdentifier: req.AttemptIdentifier,
		UpdatedAt:         sess.UpdatedAt,
	}, nil
}

// RegisterTransfer handles one KYT registration.
func (s *Service) RegisterTransfer(ctx context.Context, req chainalysis.TransferRegisterRequest) (chainalysis.TransferRegisterResponse, error) {
	params := decision.Params{
		RequestType: "kyt",
		FromAddress: req.FromAddress,
		ToAddress:   req.ToAddress,
		TokenName:   req.Asset,
		TokenAmount: req.AssetAmount,
		Network:     req.Network,
		TxHash:      req.TxHash,
	}

	sess, err := s.register(ctx, session.KindTransfer, params)
	if err != nil {
		return chainalysis.TransferRegisterResponse{}, err
	}

	return chainalysis.TransferRegisterResponse{
		ExternalID:        sess.ExternalID,
		Asset:             req.Asset,
		Network:           req.Network,
		TransferReference: "tx:" + req.ToAddress,
		Tx:                req.TxHash,
		AssetAmount:       req.AssetAmount,
		Timestamp:         session.Timestamp(sess.RegisteredAt),
		OutputAddress:     req.ToAddress,
		UpdatedAt:         sess.UpdatedAt,
	}, nil
}

// Status handles one readiness poll. The readiness transition is applied
// here: once the completion deadline passes, the first poll stamps
// UpdatedAt and every later poll returns the same value.
func (s *Service) Status(ctx context.Context, kind session.Kind, externalID string) (chainalysis.StatusResponse, error) {
	sess, err := s.checkReady(ctx, kind, externalID)
	if err != nil {
		return chainalysis.StatusResponse{}, err
	}
	return chainalysis.StatusResponse{
		ExternalID: sess.ExternalID,
		UpdatedAt:  sess.UpdatedAt,
	}, nil
}

// Alerts handles one alert fetch. This is the only place the decision
// function runs for a session, so a rules change between registration and
// fetch changes the answer.
func (s *Service) Alerts(ctx context.Context, kind session.Kind, externalID string) (chainalysis.AlertsResponse, error) {
	sess, err := s.checkReady(ctx, kind, externalID)
	if err != nil {
		return chainalysis.AlertsResponse{}, err
	}

	outcome := s.decide(ctx, sess.Params)
	if !outcome.InRisk {
		return chainalysis.AlertsResponse{Alerts: []risk.Alert{}}, nil
	}
	return chainalysis.AlertsResponse{Alerts: []risk.Alert{s.alertFor(sess, outcome)}}, nil
}

// MonitorAlerts builds the cross-session alert feed: every stored session
// whose subject the decision function currently flags, filtered to the
// given registration window and paginated. Readiness is irrelevant here;
// the feed sees pending sessions too.
func (s *Service) MonitorAlerts(ctx context.Context, since, until time.Time, limit, offset int) (chainalysis.MonitorResponse, error) {
	sessions, err := s.store.List(ctx)
	if err != nil {
		return chainalysis.MonitorResponse{}, err
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].RegisteredAt.Before(sessions[j].RegisteredAt)
	})

	var all []chainalysis.MonitorAlert
	for _, sess := range sessions {
		if !since.IsZero() && sess.RegisteredAt.Before(since) {
			continue
		}
		if !until.IsZero() && sess.RegisteredAt.After(until) {
			continue
		}
		outcome := s.decide(ctx, sess.Params)
		if !outcome.InRisk {
			continue
		}
		all = append(all, chainalysis.MonitorAlert{
			AlertAmountUsd:     sess.Params.TokenAmount,
			Category:           outcome.Detail,
			TransactionHash:    sess.Params.TxHash,
			TransferReference:  "tx:" + firstAddress(sess.Params),
			ExposureType:       "DIRECT",
			TransferReportedAt: sess.UpdatedAt,
			AlertIdentifier:    sess.ExternalID,
			Direction:          "SENT",
		})
	}

	if limit <= 0 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	page := all[offset:end]
	if page == nil {
		page = []chainalysis.MonitorAlert{}
	}
	return chainalysis.MonitorResponse{
		Limit:  limit,
		Offset: offset,
		Total:  total,
		Data:   page,
	}, nil
}

// CheckNow evaluates the decision function synchronously, bypassing the
// session lifecycle. Kept for callers of the pre-protocol check endpoint.
func (s *Service) CheckNow(ctx context.Context, params decision.Params) risk.Verdict {
	outcome := s.decide(ctx, params)
	if !outcome.InRisk {
		return risk.NoRisk()
	}
	return risk.HighRisk(outcome.Detail)
}

// AddressReport produces an indicator-style report for one address in the
// synchronous provider's format. The decision outcome maps onto the
// money-laundering indicator; everything else reads clean.
func (s *Service) AddressReport(ctx context.Context, address string) goplus.Response {
	outcome := s.decide(ctx, decision.Params{
		RequestType:   "kya",
		TargetAddress: address,
	})

	sec := goplus.AddressSecurity{DataSource: "kyxgate-simulator"}
	flag := func(b bool) string {
		if b {
			return "1"
		}
		return "0"
	}
	sec.Cybercrime = flag(false)
	sec.MoneyLaundering = flag(outcome.InRisk)
	sec.NumberOfMaliciousContractsCreated = "0"
	sec.GasAbuse = "0"
	sec.FinancialCrime = "0"
	sec.DarkwebTransactions = "0"
	sec.Reinit = "0"
	sec.PhishingActivities = "0"
	sec.FakeKYC = "0"
	sec.BlacklistDoubt = "0"
	sec.FakeStandardInterface = "0"
	sec.StealingAttack = "0"
	sec.BlackmailActivities = "0"
	sec.Sanctioned = "0"
	sec.MaliciousMiningActivities = "0"
	sec.Mixer = "0"
	sec.HoneypotRelatedAddress = "0"

	return goplus.Response{Code: 1, Message: "ok", Result: sec}
}

// checkReady loads a session, applies the readiness transition, and
// enforces that the external ID belongs to the requested resource kind.
func (s *Service) checkReady(ctx context.Context, kind session.Kind, externalID string) (*session.Session, error) {
	sess, err := s.store.CheckReady(ctx, externalID, s.now())
	if err != nil {
		return nil, err
	}
	if sess.Kind != kind {
		return nil, session.ErrNotFound
	}
	return sess, nil
}

// decide runs the decision function. A failing decider degrades to a clean
// outcome rather than failing the protocol call: a broken rules file must
// not block withdrawals.
func (s *Service) decide(ctx context.Context, params decision.Params) decision.Outcome {
	outcome, err := s.decider.Decide(ctx, params)
	if err != nil {
		metrics.DecisionEvaluationsTotal.WithLabelValues("error").Inc()
		logging.L(ctx).Error("risk decision failed, treating as clean",
			"request_type", params.RequestType,
			"error", err,
		)
		return decision.Outcome{}
	}
	if outcome.InRisk {
		metrics.DecisionEvaluationsTotal.WithLabelValues("risky").Inc()
	} else {
		metrics.DecisionEvaluationsTotal.WithLabelValues("clean").Inc()
	}
	return outcome
}

// alertFor builds the single alert a risky session reports.
func (s *Service) alertFor(sess *session.Session, outcome decision.Outcome) risk.Alert {
	return risk.Alert{
		AlertLevel:   "HIGH",
		Category:     outcome.Detail,
		Service:      "kyxgate-simulator",
		ExternalID:   sess.ExternalID,
		AlertAmount:  sess.Params.TokenAmount,
		ExposureType: "DIRECT",
	}
}

func firstAddress(p decision.Params) string {
	addrs := p.Addresses()
	if len(addrs) == 0 {
		return ""
	}
	return addrs[0]
}
