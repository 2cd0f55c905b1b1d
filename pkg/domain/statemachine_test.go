package domain

import (
	"errors"
	"testing"
)

func TestLineTransitions(t *testing.T) {
	cases := []struct {
		from, to LineStatus
		ok       bool
	}{
		{LineInstalling, LineRunning, true},
		{LineConverting, LineRunning, true},
		{LineRunning, LineIdle, true},
		{LineRunning, LineStopped, true},
		{LineIdle, LineConverting, true},
		{LineStopped, LineRunning, true},
		{LineRunning, LineRunning, true},
		{LineInstalling, LineIdle, false},
		{LineSelling, LineRunning, false},
		{LineRunning, LineConverting, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.ok {
			t.Errorf("%s -> %s: got %v want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestTransitionHelpers(t *testing.T) {
	line := ProductionLine{Status: LineInstalling}
	if err := line.Transition(LineRunning); err != nil || line.Status != LineRunning {
		t.Fatalf("expected running line, got %s (%v)", line.Status, err)
	}
	err := line.Transition(LineSelling)
	var illegal ErrIllegalTransition
	if !errors.As(err, &illegal) || illegal.Entity != EntityProductionLine || line.Status != LineRunning {
		t.Fatalf("expected illegal transition, got %v status %s", err, line.Status)
	}

	market := Market{Status: MarketUnavailable}
	if err := market.Transition(MarketAvailable); err == nil {
		t.Fatalf("market must develop before becoming available")
	}
	if err := market.Transition(MarketDeveloping); err != nil {
		t.Fatalf("develop market: %v", err)
	}
	if err := market.Transition(MarketAvailable); err != nil {
		t.Fatalf("open market: %v", err)
	}

	cert := ISOCertification{Status: ISOCertified}
	if err := cert.Transition(ISOUncertified); err == nil {
		t.Fatalf("certified status is terminal")
	}
}
