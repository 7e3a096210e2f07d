package membership

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"gangway/pkg/logging"
	"gangway/pkg/models"
)

type fakeProvider struct {
	cents int
	err   error
	calls int
}

func (f *fakeProvider) EntitledCents(ctx context.Context, accessToken string) (int, error) {
	f.calls++
	return f.cents, f.err
}

func quietLogger() logging.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testAccount(token string) *models.Account {
	return &models.Account{ID: "acct-1", PatreonToken: token}
}

func TestIsPaidAtThreshold(t *testing.T) {
	cases := []struct {
		name  string
		cents int
		want  bool
	}{
		{"below threshold", 199, false},
		{"at threshold", 200, true},
		{"above threshold", 500, true},
		{"zero", 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider := &fakeProvider{cents: tc.cents}
			v := NewVerifier(provider, NewMemoryStore(0), quietLogger(), Metrics{})

			if got := v.IsPaid(context.Background(), testAccount("tok")); got != tc.want {
				t.Fatalf("IsPaid with %d cents = %v, want %v", tc.cents, got, tc.want)
			}
		})
	}
}

func TestIsPaidCachesJudgment(t *testing.T) {
	provider := &fakeProvider{cents: 500}
	v := NewVerifier(provider, NewMemoryStore(0), quietLogger(), Metrics{})
	acct := testAccount("tok")

	for i := 0; i < 5; i++ {
		if !v.IsPaid(context.Background(), acct) {
			t.Fatalf("expected paid on call %d", i)
		}
	}
	if provider.calls != 1 {
		t.Fatalf("expected 1 provider call, got %d", provider.calls)
	}
}

func TestIsPaidCachedJudgmentSurvivesPledgeChange(t *testing.T) {
	provider := &fakeProvider{cents: 500}
	v := NewVerifier(provider, NewMemoryStore(0), quietLogger(), Metrics{})
	acct := testAccount("tok")

	if !v.IsPaid(context.Background(), acct) {
		t.Fatal("expected paid")
	}

	// Pledge lapses upstream; the cached positive still admits until expiry
	provider.cents = 0
	if !v.IsPaid(context.Background(), acct) {
		t.Fatal("expected cached positive within TTL")
	}
}

func TestIsPaidFailsClosedAndNeverCachesFailures(t *testing.T) {
	provider := &fakeProvider{err: errors.New("provider down")}
	v := NewVerifier(provider, NewMemoryStore(0), quietLogger(), Metrics{})
	acct := testAccount("tok")

	if v.IsPaid(context.Background(), acct) {
		t.Fatal("expected not paid while provider is down")
	}

	// Recovery must be observed immediately, not after a TTL
	provider.err = nil
	provider.cents = 300
	if !v.IsPaid(context.Background(), acct) {
		t.Fatal("expected paid once provider recovered")
	}
	if provider.calls != 2 {
		t.Fatalf("expected failure not to be cached, got %d calls", provider.calls)
	}
}

func TestIsPaidWithoutCredentialIsUnpaid(t *testing.T) {
	provider := &fakeProvider{cents: 500}
	v := NewVerifier(provider, NewMemoryStore(0), quietLogger(), Metrics{})

	if v.IsPaid(context.Background(), testAccount("")) {
		t.Fatal("account without a provider credential must not be paid")
	}
	if provider.calls != 0 {
		t.Fatalf("expected no provider call without a credential, got %d", provider.calls)
	}
}

func TestSeedPrewarmsCache(t *testing.T) {
	provider := &fakeProvider{cents: 0}
	v := NewVerifier(provider, NewMemoryStore(0), quietLogger(), Metrics{})
	acct := testAccount("tok")

	v.Seed(context.Background(), acct.ID, true)
	if !v.IsPaid(context.Background(), acct) {
		t.Fatal("expected seeded positive")
	}
	if provider.calls != 0 {
		t.Fatalf("expected seeded judgment to skip the provider, got %d calls", provider.calls)
	}
}

func TestMemoryStoreStoresNegatives(t *testing.T) {
	s := NewMemoryStore(0)
	if err := s.SetBool(context.Background(), "k", false, DefaultTTL); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	val, ok, err := s.GetBool(context.Background(), "k")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if val {
		t.Fatal("expected stored false")
	}
}
