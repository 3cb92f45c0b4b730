package pool

import (
	"errors"
	"testing"
)

func testAccounts(names ...string) []*Account {
	accounts := make([]*Account, 0, len(names))
	for _, name := range names {
		accounts = append(accounts, &Account{
			State: State{ID: name, Enabled: true},
			Email: name + "@example.com",
		})
	}
	return accounts
}

func mustPool(t *testing.T, accounts []*Account, quota int) *Pool[*Account] {
	t.Helper()
	p, err := New(accounts, quota, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestNew_MissingIdentity(t *testing.T) {
	accounts := testAccounts("a", "b")
	accounts[1].ID = ""

	_, err := New(accounts, 10, nil)
	if !errors.Is(err, ErrMissingIdentity) {
		t.Fatalf("expected ErrMissingIdentity, got %v", err)
	}
}

func TestNext_RoundRobinFairness(t *testing.T) {
	p := mustPool(t, testAccounts("a", "b", "c"), 100)

	// Offset the cursor so fairness does not depend on starting at zero.
	p.cursor = 1

	want := []string{"b", "c", "a"}
	for i, expected := range want {
		r, ok := p.Next()
		if !ok {
			t.Fatalf("call %d: expected a resource", i)
		}
		if r.ID != expected {
			t.Errorf("call %d: got %s, want %s", i, r.ID, expected)
		}
	}
}

func TestNext_EachResourceOncePerCycle(t *testing.T) {
	p := mustPool(t, testAccounts("a", "b", "c", "d"), 100)

	seen := map[string]int{}
	for i := 0; i < 4; i++ {
		r, ok := p.Next()
		if !ok {
			t.Fatalf("call %d: expected a resource", i)
		}
		seen[r.ID]++
	}
	for _, name := range []string{"a", "b", "c", "d"} {
		if seen[name] != 1 {
			t.Errorf("resource %s selected %d times in one cycle", name, seen[name])
		}
	}
}

func TestNext_SkipsIneligible(t *testing.T) {
	tests := []struct {
		name  string
		mutate func(*Account)
	}{
		{"disabled", func(a *Account) { a.Enabled = false }},
		{"over quota", func(a *Account) { a.UsageCount = 5 }},
		{"error budget spent", func(a *Account) { a.ErrorCount = MaxErrors }},
		{"auth rejected", func(a *Account) { a.Auth = AuthRejected }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := testAccounts("bad", "good")
			tt.mutate(accounts[0])
			p := mustPool(t, accounts, 5)

			r, ok := p.Next()
			if !ok {
				t.Fatal("expected a resource")
			}
			if r.ID != "good" {
				t.Errorf("got %s, want good", r.ID)
			}
		})
	}
}

func TestNext_BoundedScanWhenExhausted(t *testing.T) {
	t.Run("all ineligible", func(t *testing.T) {
		accounts := testAccounts("a", "b", "c")
		for _, a := range accounts {
			a.UsageCount = 1
		}
		p := mustPool(t, accounts, 1)

		if _, ok := p.Next(); ok {
			t.Fatal("expected no resource from an exhausted pool")
		}
		// The scan must not spin: the cursor moved exactly one full cycle.
		if p.cursor != 0 {
			t.Errorf("cursor = %d after full-cycle scan, want 0", p.cursor)
		}
	})

	t.Run("empty pool", func(t *testing.T) {
		p := mustPool(t, nil, 1)
		if _, ok := p.Next(); ok {
			t.Fatal("expected no resource from an empty pool")
		}
	})
}

func TestNext_QuotaEnforced(t *testing.T) {
	p := mustPool(t, testAccounts("a"), 2)

	for i := 0; i < 2; i++ {
		r, ok := p.Next()
		if !ok {
			t.Fatalf("call %d: expected a resource", i)
		}
		p.MarkUsed(r.ID, 1)
	}
	if _, ok := p.Next(); ok {
		t.Fatal("resource at quota must never be selected")
	}
}

func TestMarkUsed(t *testing.T) {
	p := mustPool(t, testAccounts("a"), 10)

	p.MarkUsed("a", 1)
	p.MarkUsed("a", 3)

	a, _ := p.ByID("a")
	if a.UsageCount != 4 {
		t.Errorf("UsageCount = %d, want 4", a.UsageCount)
	}
	if a.LastUsed.IsZero() {
		t.Error("LastUsed not stamped")
	}

	// Unknown ids are ignored: a caller may race with a rotation elsewhere.
	p.MarkUsed("ghost", 1)
}

func TestMarkError(t *testing.T) {
	p := mustPool(t, testAccounts("a", "b"), 10)

	for i := 0; i < MaxErrors; i++ {
		p.MarkError("a", "generation failed")
	}

	a, _ := p.ByID("a")
	if a.ErrorCount != MaxErrors {
		t.Errorf("ErrorCount = %d, want %d", a.ErrorCount, MaxErrors)
	}
	if p.Usable(&a.State) {
		t.Error("resource at error budget must not be usable")
	}

	p.MarkError("ghost", "ignored")
}

func TestMarkAuth(t *testing.T) {
	p := mustPool(t, testAccounts("a"), 10)

	p.MarkAuth("a", false)
	a, _ := p.ByID("a")
	if a.Auth != AuthRejected {
		t.Errorf("Auth = %v, want rejected", a.Auth)
	}
	if _, ok := p.Next(); ok {
		t.Fatal("auth-rejected resource must never be selected")
	}

	p.MarkAuth("a", true)
	if a.Auth != AuthOK {
		t.Errorf("Auth = %v, want ok", a.Auth)
	}
}

func TestResetSession(t *testing.T) {
	p := mustPool(t, testAccounts("a", "b"), 10)
	p.MarkUsed("a", 5)
	p.MarkError("b", "boom")
	p.MarkAuth("b", false)
	p.Next()

	p.ResetSession()

	for _, id := range []string{"a", "b"} {
		r, _ := p.ByID(id)
		if r.UsageCount != 0 || r.ErrorCount != 0 || r.Auth != AuthUnknown {
			t.Errorf("resource %s not reset: %+v", id, r.State)
		}
	}
	if p.cursor != 0 {
		t.Errorf("cursor = %d, want 0", p.cursor)
	}
}

func TestSummary(t *testing.T) {
	accounts := testAccounts("a", "b", "c", "d")
	accounts[1].Enabled = false
	p := mustPool(t, accounts, 10)

	p.MarkUsed("a", 3)
	p.MarkUsed("c", 2)
	p.MarkError("c", "flaky")
	p.MarkAuth("d", false)

	got := p.Summary()
	want := Summary{
		Total:        4,
		Enabled:      3,
		Usable:       2, // a and c; b disabled, d rejected
		TotalUsage:   5,
		WithErrors:   1,
		AuthRejected: 1,
	}
	if got != want {
		t.Errorf("Summary = %+v, want %+v", got, want)
	}
}
