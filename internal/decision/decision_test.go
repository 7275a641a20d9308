package decision

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestRuleDecider_LargeAmount(t *testing.T) {
	d := NewRuleDecider(DefaultRules())

	out, err := d.Decide(context.Background(), Params{
		RequestType: "kyt",
		FromAddress: "0xabc",
		ToAddress:   "0xdef",
		TokenAmount: decimal.NewFromInt(5001),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.InRisk {
		t.Fatal("expected risk for amount over threshold")
	}
	if !strings.Contains(out.Detail, "Large amount transaction: 5001") {
		t.Errorf("detail = %q", out.Detail)
	}
}

func TestRuleDecider_AmountAtThresholdIsClean(t *testing.T) {
	d := NewRuleDecider(DefaultRules())

	out, err := d.Decide(context.Background(), Params{
		RequestType: "kyt",
		FromAddress: "0xabc",
		ToAddress:   "0xdef",
		TokenAmount: decimal.NewFromInt(5000),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.InRisk {
		t.Errorf("amount equal to threshold should not be risky, got %q", out.Detail)
	}
}

func TestRuleDecider_SuspiciousAddressPrefix(t *testing.T) {
	d := NewRuleDecider(DefaultRules())

	out, err := d.Decide(context.Background(), Params{
		RequestType:   "kya",
		TargetAddress: "0x1badc0de",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.InRisk {
		t.Fatal("expected risk for address body starting with 1")
	}
	if !strings.Contains(out.Detail, "Suspicious address pattern: 1badc0de") {
		t.Errorf("detail = %q", out.Detail)
	}
	if !strings.HasPrefix(out.Detail, "money laundry or fraud") {
		t.Errorf("detail should lead with base detail, got %q", out.Detail)
	}
}

func TestRuleDecider_CleanSubject(t *testing.T) {
	d := NewRuleDecider(DefaultRules())

	out, err := d.Decide(context.Background(), Params{
		RequestType:   "kya",
		TargetAddress: "0xabc123",
		TokenAmount:   decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.InRisk {
		t.Errorf("expected clean outcome, got %q", out.Detail)
	}
	if out.Detail != "" {
		t.Errorf("clean outcome must carry empty detail, got %q", out.Detail)
	}
}

func TestParams_Addresses(t *testing.T) {
	p := Params{
		FromAddress:   "0xaaa",
		ToAddress:     "0xbbb",
		TargetAddress: "0xaaa", // duplicate of from
	}
	got := p.Addresses()
	if len(got) != 2 || got[0] != "0xaaa" || got[1] != "0xbbb" {
		t.Errorf("Addresses() = %v", got)
	}

	if got := (Params{}).Addresses(); len(got) != 0 {
		t.Errorf("empty params Addresses() = %v", got)
	}
}

func writeRules(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "rules.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	return path
}

func TestFileDecider_LoadsRulesFromFile(t *testing.T) {
	path := writeRules(t, t.TempDir(), `{"amountThreshold":"100","addressPrefix":"f"}`)

	d, err := NewFileDecider(path, slog.Default())
	if err != nil {
		t.Fatalf("NewFileDecider: %v", err)
	}

	out, _ := d.Decide(context.Background(), Params{TokenAmount: decimal.NewFromInt(101)})
	if !out.InRisk {
		t.Error("expected risk with lowered threshold")
	}

	out, _ = d.Decide(context.Background(), Params{TargetAddress: "0xfeed"})
	if !out.InRisk {
		t.Error("expected risk with addressPrefix f")
	}
}

func TestFileDecider_InitialLoadFailure(t *testing.T) {
	if _, err := NewFileDecider(filepath.Join(t.TempDir(), "missing.json"), slog.Default()); err == nil {
		t.Fatal("expected error for missing rules file")
	}
}

func TestFileDecider_ReloadSwapsRules(t *testing.T) {
	dir := t.TempDir()
	path := writeRules(t, dir, `{"amountThreshold":"5000","addressPrefix":"1"}`)

	d, err := NewFileDecider(path, slog.Default())
	if err != nil {
		t.Fatalf("NewFileDecider: %v", err)
	}

	p := Params{TokenAmount: decimal.NewFromInt(200)}
	if out, _ := d.Decide(context.Background(), p); out.InRisk {
		t.Fatal("200 should be clean under threshold 5000")
	}

	writeRules(t, dir, `{"amountThreshold":"100","addressPrefix":"1"}`)
	if err := d.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if out, _ := d.Decide(context.Background(), p); !out.InRisk {
		t.Error("200 should be risky under threshold 100")
	}
}

func TestFileDecider_BrokenReloadKeepsPreviousRules(t *testing.T) {
	dir := t.TempDir()
	path := writeRules(t, dir, `{"amountThreshold":"100","addressPrefix":"1"}`)

	d, err := NewFileDecider(path, slog.Default())
	if err != nil {
		t.Fatalf("NewFileDecider: %v", err)
	}

	writeRules(t, dir, `{not json`)
	if err := d.Reload(); err == nil {
		t.Fatal("expected reload error for broken file")
	}

	// Previous rules still in effect.
	out, _ := d.Decide(context.Background(), Params{TokenAmount: decimal.NewFromInt(200)})
	if !out.InRisk {
		t.Error("previous rules should survive a broken reload")
	}
}
