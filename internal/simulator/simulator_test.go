package simulator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wanel/kyxgate/internal/decision"
	"github.com/wanel/kyxgate/internal/session"
	"github.com/wanel/kyxgate/pkg/chainalysis"
)

func cleanDecider() decision.Decider {
	return decision.DeciderFunc(func(ctx context.Context, p decision.Params) (decision.Outcome, error) {
		return decision.Outcome{}, nil
	})
}

func riskyDecider(detail string) decision.Decider {
	return decision.DeciderFunc(func(ctx context.Context, p decision.Params) (decision.Outcome, error) {
		return decision.Outcome{InRisk: true, Detail: detail}, nil
	})
}

func newService(decider decision.Decider, opts Options) (*Service, *time.Time) {
	svc := NewService(session.NewMemoryStore(), decider, opts)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	clock := &now
	svc.now = func() time.Time { return *clock }
	return svc, clock
}

func TestRegisterAddress_ImmediatelyReady(t *testing.T) {
	svc, _ := newService(cleanDecider(), Options{DelayMinSeconds: 0, DelayMaxSeconds: 0})

	resp, err := svc.RegisterAddress(context.Background(), chainalysis.AddressRegisterRequest{
		Address:           "0xabc",
		Asset:             "ETH",
		AttemptIdentifier: "attempt-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.ExternalID == "" {
		t.Fatal("expected an external ID")
	}
	if resp.UpdatedAt == "" {
		t.Error("zero delay should make the session ready at registration")
	}
	if resp.Address != "0xabc" || resp.AttemptIdentifier != "attempt-1" {
		t.Errorf("registration not echoed: %+v", resp)
	}
}

func TestStatus_TransitionsAtDeadline(t *testing.T) {
	svc, clock := newService(cleanDecider(), Options{DelayMinSeconds: 30, DelayMaxSeconds: 30})

	reg, err := svc.RegisterTransfer(context.Background(), chainalysis.TransferRegisterRequest{
		FromAddress:       "0xfrom",
		ToAddress:         "0xto",
		Asset:             "USDC",
		AttemptIdentifier: "attempt-2",
	})
	if err != nil {
		t.Fatal(err)
	}
	if reg.UpdatedAt != "" {
		t.Fatal("expected pending registration")
	}

	status, err := svc.Status(context.Background(), session.KindTransfer, reg.ExternalID)
	if err != nil {
		t.Fatal(err)
	}
	if status.UpdatedAt != "" {
		t.Error("expected pending status before the deadline")
	}

	*clock = clock.Add(31 * time.Second)

	status, err = svc.Status(context.Background(), session.KindTransfer, reg.ExternalID)
	if err != nil {
		t.Fatal(err)
	}
	if status.UpdatedAt == "" {
		t.Fatal("expected ready status after the deadline")
	}

	again, err := svc.Status(context.Background(), session.KindTransfer, reg.ExternalID)
	if err != nil {
		t.Fatal(err)
	}
	if again.UpdatedAt != status.UpdatedAt {
		t.Errorf("readiness timestamp changed between polls: %q vs %q", status.UpdatedAt, again.UpdatedAt)
	}
}

func TestStatus_KindMismatchIsNotFound(t *testing.T) {
	svc, _ := newService(cleanDecider(), Options{})

	reg, err := svc.RegisterAddress(context.Background(), chainalysis.AddressRegisterRequest{
		Address:           "0xabc",
		AttemptIdentifier: "attempt-3",
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.Status(context.Background(), session.KindTransfer, reg.ExternalID)
	if !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for wrong resource kind, got %v", err)
	}
}

func TestStatus_UnknownID(t *testing.T) {
	svc, _ := newService(cleanDecider(), Options{})
	_, err := svc.Status(context.Background(), session.KindAddress, "nope")
	if !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAlerts_LazyEvaluation(t *testing.T) {
	risky := false
	decider := decision.DeciderFunc(func(ctx context.Context, p decision.Params) (decision.Outcome, error) {
		if risky {
			return decision.Outcome{InRisk: true, Detail: "flagged late"}, nil
		}
		return decision.Outcome{}, nil
	})
	svc, _ := newService(decider, Options{})

	reg, err := svc.RegisterTransfer(context.Background(), chainalysis.TransferRegisterRequest{
		FromAddress:       "0xfrom",
		ToAddress:         "0xto",
		Asset:             "USDC",
		AssetAmount:       decimal.NewFromInt(9000),
		AttemptIdentifier: "attempt-4",
	})
	if err != nil {
		t.Fatal(err)
	}

	// Rules changed after registration. The fetch must see the new answer.
	risky = true

	alerts, err := svc.Alerts(context.Background(), session.KindTransfer, reg.ExternalID)
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts.Alerts) != 1 {
		t.Fatalf("expected one alert, got %d", len(alerts.Alerts))
	}
	a := alerts.Alerts[0]
	if a.Category != "flagged late" {
		t.Errorf("got category %q", a.Category)
	}
	if a.ExternalID != reg.ExternalID {
		t.Errorf("alert not tied to session: %q", a.ExternalID)
	}
	if !a.AlertAmount.Equal(decimal.NewFromInt(9000)) {
		t.Errorf("got alert amount %s", a.AlertAmount)
	}
}

func TestAlerts_CleanSessionReturnsEmptyList(t *testing.T) {
	svc, _ := newService(cleanDecider(), Options{})

	reg, err := svc.RegisterAddress(context.Background(), chainalysis.AddressRegisterRequest{
		Address:           "0xabc",
		AttemptIdentifier: "attempt-5",
	})
	if err != nil {
		t.Fatal(err)
	}

	alerts, err := svc.Alerts(context.Background(), session.KindAddress, reg.ExternalID)
	if err != nil {
		t.Fatal(err)
	}
	if alerts.Alerts == nil {
		t.Error("expected empty list, not null")
	}
	if len(alerts.Alerts) != 0 {
		t.Errorf("expected no alerts, got %d", len(alerts.Alerts))
	}
}

func TestAlerts_DeciderFailureDegradesToClean(t *testing.T) {
	decider := decision.DeciderFunc(func(ctx context.Context, p decision.Params) (decision.Outcome, error) {
		return decision.Outcome{}, errors.New("rules backend down")
	})
	svc, _ := newService(decider, Options{})

	reg, err := svc.RegisterAddress(context.Background(), chainalysis.AddressRegisterRequest{
		Address:           "0xabc",
		AttemptIdentifier: "attempt-6",
	})
	if err != nil {
		t.Fatal(err)
	}

	alerts, err := svc.Alerts(context.Background(), session.KindAddress, reg.ExternalID)
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts.Alerts) != 0 {
		t.Error("a failing decider must not produce alerts")
	}
}

func TestMonitorAlerts_WindowAndPagination(t *testing.T) {
	svc, clock := newService(riskyDecider("suspicious"), Options{})
	ctx := context.Background()

	base := *clock
	var ids []string
	for i := 0; i < 3; i++ {
		*clock = base.Add(time.Duration(i) * time.Hour)
		reg, err := svc.RegisterTransfer(ctx, chainalysis.TransferRegisterRequest{
			FromAddress:       "0xfrom",
			ToAddress:         "0xto",
			Asset:             "USDC",
			AttemptIdentifier: "attempt",
		})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, reg.ExternalID)
	}

	resp, err := svc.MonitorAlerts(ctx, time.Time{}, time.Time{}, 25, 0)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 3 {
		t.Fatalf("expected 3 alerts, got %d", resp.Total)
	}
	if resp.Data[0].AlertIdentifier != ids[0] {
		t.Error("expected registration-time ordering")
	}

	// Window excludes the first registration.
	resp, err = svc.MonitorAlerts(ctx, base.Add(30*time.Minute), time.Time{}, 25, 0)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 {
		t.Errorf("expected 2 alerts in window, got %d", resp.Total)
	}

	// Pagination past the end returns an empty page, not an error.
	resp, err = svc.MonitorAlerts(ctx, time.Time{}, time.Time{}, 2, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Data) != 0 || resp.Total != 3 {
		t.Errorf("unexpected page: %+v", resp)
	}
}

func TestMonitorAlerts_IncludesPendingSessions(t *testing.T) {
	svc, _ := newService(riskyDecider("suspicious"), Options{DelayMinSeconds: 60, DelayMaxSeconds: 60})

	reg, err := svc.RegisterTransfer(context.Background(), chainalysis.TransferRegisterRequest{
		FromAddress:       "0xfrom",
		ToAddress:         "0xto",
		Asset:             "USDC",
		AttemptIdentifier: "attempt",
	})
	if err != nil {
		t.Fatal(err)
	}

	// The feed evaluates every stored session, ready or not. A risky
	// registration whose completion delay has not elapsed still shows up.
	resp, err := svc.MonitorAlerts(context.Background(), time.Time{}, time.Time{}, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 {
		t.Fatalf("expected pending risky session in the feed, got total %d", resp.Total)
	}
	if resp.Data[0].AlertIdentifier != reg.ExternalID {
		t.Errorf("got alert for %q, want %q", resp.Data[0].AlertIdentifier, reg.ExternalID)
	}
}

func TestCheckNow(t *testing.T) {
	svc, _ := newService(riskyDecider("money laundry or fraud - Suspicious address pattern: 1abc"), Options{})

	verdict := svc.CheckNow(context.Background(), decision.Params{
		RequestType:   "kya",
		TargetAddress: "1abc",
	})
	if !verdict.InRisk {
		t.Fatal("expected risky verdict")
	}
	if verdict.Score.String() != "100" {
		t.Errorf("got score %s", verdict.Score)
	}

	clean, _ := newService(cleanDecider(), Options{})
	verdict = clean.CheckNow(context.Background(), decision.Params{RequestType: "kya", TargetAddress: "0xok"})
	if verdict.InRisk || !verdict.Score.IsZero() {
		t.Errorf("expected clean verdict, got %+v", verdict)
	}
}

func TestAddressReport(t *testing.T) {
	svc, _ := newService(riskyDecider("bad"), Options{})

	resp := svc.AddressReport(context.Background(), "0xbad")
	if resp.Code != 1 {
		t.Fatalf("got code %d", resp.Code)
	}
	if resp.Result.MoneyLaundering != "1" {
		t.Error("expected money_laundering flag for risky address")
	}
	if resp.Result.Sanctioned != "0" {
		t.Error("expected other indicators clean")
	}

	clean, _ := newService(cleanDecider(), Options{})
	resp = clean.AddressReport(context.Background(), "0xok")
	if resp.Result.MoneyLaundering != "0" {
		t.Error("expected clean report")
	}
}

func TestCompletionDelay_Range(t *testing.T) {
	svc := NewService(session.NewMemoryStore(), cleanDecider(), Options{DelayMinSeconds: 2, DelayMaxSeconds: 5})
	for i := 0; i < 100; i++ {
		d := svc.completionDelay()
		if d < 2 || d > 5 {
			t.Fatalf("delay %d outside [2,5]", d)
		}
	}
}
