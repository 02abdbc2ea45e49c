package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/reelapp/reel-backend/models"
)

func TestCreditCreatesLedger(t *testing.T) {
	svc, _, db := newTestKarma(t)
	ctx := context.Background()

	if _, err := svc.GetBalance(ctx, 1); !errors.Is(err, ErrLedgerNotFound) {
		t.Fatalf("expected ErrLedgerNotFound before any credit, got %v", err)
	}

	ledger, err := svc.Credit(ctx, 1, 35, models.TxAdReward)
	if err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if ledger.Points != 35 {
		t.Fatalf("points: got %d want 35", ledger.Points)
	}

	got, err := svc.GetBalance(ctx, 1)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if got.Points != 35 || got.CurrentStreakDay != 0 {
		t.Fatalf("stored ledger: %+v", got)
	}

	var n int64
	db.Model(&models.KarmaLedger{}).Where("user_id = ?", 1).Count(&n)
	if n != 1 {
		t.Fatalf("ledger rows: got %d want 1", n)
	}
}

func TestCreditAccumulatesWithoutCap(t *testing.T) {
	svc, _, _ := newTestKarma(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := svc.Credit(ctx, 2, 1_000_000, models.TxManualCredit); err != nil {
			t.Fatalf("Credit #%d: %v", i, err)
		}
	}
	got, err := svc.GetBalance(ctx, 2)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if got.Points != 5_000_000 {
		t.Fatalf("points: got %d", got.Points)
	}
}

func TestCreditRejectsNonPositiveAmount(t *testing.T) {
	svc, _, _ := newTestKarma(t)
	for _, amount := range []int64{0, -5} {
		if _, err := svc.Credit(context.Background(), 3, amount, models.TxManualCredit); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestDebitRequiresLedgerAndIsUnconditional(t *testing.T) {
	svc, _, _ := newTestKarma(t)
	ctx := context.Background()

	if _, err := svc.Debit(ctx, 4, 10); !errors.Is(err, ErrLedgerNotFound) {
		t.Fatalf("expected ErrLedgerNotFound, got %v", err)
	}

	seedBalance(t, svc, 4, 30)
	ledger, err := svc.Debit(ctx, 4, 50)
	if err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if ledger.Points != -20 {
		t.Fatalf("points after overdraw: got %d want -20", ledger.Points)
	}
}

func TestCreditAdRewardUsesAdPointValue(t *testing.T) {
	svc, _, db := newTestKarma(t)
	ctx := context.Background()

	ad := &models.Advertisement{Title: "Sneakers", VideoURL: "https://cdn.example/ad.mp4", Point: 15, Active: true}
	if err := db.Create(ad).Error; err != nil {
		t.Fatalf("seed ad: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, _, err := svc.CreditAdReward(ctx, 5, ad.ID); err != nil {
			t.Fatalf("CreditAdReward #%d: %v", i, err)
		}
	}
	got, _ := svc.GetBalance(ctx, 5)
	if got.Points != 45 {
		t.Fatalf("repeat views must all be credited: got %d want 45", got.Points)
	}

	if _, _, err := svc.CreditAdReward(ctx, 5, ad.ID+100); !errors.Is(err, ErrAdNotFound) {
		t.Fatalf("expected ErrAdNotFound, got %v", err)
	}
	db.Model(ad).Update("active", false)
	if _, _, err := svc.CreditAdReward(ctx, 5, ad.ID); !errors.Is(err, ErrAdNotFound) {
		t.Fatalf("inactive ad: expected ErrAdNotFound, got %v", err)
	}

	items, total, err := svc.History(ctx, 5, 1, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if total != 3 || items[0].Kind != models.TxAdReward || items[0].AdID == nil || *items[0].AdID != ad.ID {
		t.Fatalf("history: total=%d first=%+v", total, items[0])
	}
}

func TestClaimDailyTwiceSameDay(t *testing.T) {
	svc, clock, _ := newTestKarma(t)
	ctx := context.Background()

	first, err := svc.ClaimDaily(ctx, 6)
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if first.Points != 10 || first.StreakDay != 1 || first.PriorState != NeverClaimed {
		t.Fatalf("first claim result: %+v", first)
	}

	clock.now = clock.now.Add(10 * time.Hour) // 19:30, same calendar day
	_, err = svc.ClaimDaily(ctx, 6)
	if !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
	var claimErr *ClaimError
	if !errors.As(err, &claimErr) || claimErr.StreakDay != 1 {
		t.Fatalf("claim error should carry unchanged streak day 1, got %v", err)
	}

	ledger, _ := svc.GetBalance(ctx, 6)
	if ledger.Points != 10 || ledger.CurrentStreakDay != 1 {
		t.Fatalf("ledger changed by rejected claim: %+v", ledger)
	}
}

func TestConcurrentClaimsCreditOnce(t *testing.T) {
	svc, _, _ := newTestKarma(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ClaimDaily(ctx, 13)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, rejected int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadyClaimed):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || rejected != 3 {
		t.Fatalf("ok=%d rejected=%d, want 1 and 3", ok, rejected)
	}
	ledger, err := svc.GetBalance(ctx, 13)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if ledger.Points != 10 || ledger.CurrentStreakDay != 1 {
		t.Fatalf("ledger after concurrent claims: %+v", ledger)
	}
}

func TestClaimDailyStreakProgression(t *testing.T) {
	svc, clock, _ := newTestKarma(t)
	ctx := context.Background()
	claim := func() *ClaimResult {
		t.Helper()
		res, err := svc.ClaimDaily(ctx, 7)
		if err != nil {
			t.Fatalf("claim on %s: %v", clock.now.Format("2006-01-02"), err)
		}
		return res
	}

	if got := claim().StreakDay; got != 1 {
		t.Fatalf("day 1: got %d", got)
	}
	clock.AddDays(1)
	if got := claim().StreakDay; got != 2 {
		t.Fatalf("consecutive day: got %d want 2", got)
	}

	clock.AddDays(3) // two calendar days skipped
	res := claim()
	if res.StreakDay != 1 || res.PriorState != StreakBroken {
		t.Fatalf("after gap: got day %d state %s", res.StreakDay, res.PriorState)
	}

	for want := 2; want <= 6; want++ {
		clock.AddDays(1)
		if got := claim().StreakDay; got != want {
			t.Fatalf("consecutive claim: got %d want %d", got, want)
		}
	}
	clock.AddDays(1)
	res = claim()
	if res.StreakDay != 1 {
		t.Fatalf("seventh consecutive claim must wrap to 1, got %d", res.StreakDay)
	}
	if res.Points != 9*10 {
		t.Fatalf("balance after 9 claims: got %d want 90", res.Points)
	}
}

func TestClaimDailyAfterAdCreditKeepsBalance(t *testing.T) {
	svc, _, _ := newTestKarma(t)
	ctx := context.Background()
	seedBalance(t, svc, 8, 40)

	res, err := svc.ClaimDaily(ctx, 8)
	if err != nil {
		t.Fatalf("ClaimDaily: %v", err)
	}
	if res.Points != 50 || res.StreakDay != 1 {
		t.Fatalf("claim result: %+v", res)
	}
}

func TestSummaryDerivesClaimedTodayFlag(t *testing.T) {
	svc, clock, _ := newTestKarma(t)
	ctx := context.Background()

	if _, err := svc.ClaimDaily(ctx, 9); err != nil {
		t.Fatalf("ClaimDaily: %v", err)
	}
	ledger, _ := svc.GetBalance(ctx, 9)
	sum := svc.Summary(ledger)
	if !sum.DailyPointsClaimedToday || sum.NextStreakDay != 0 || sum.CurrentStreakDay != 1 {
		t.Fatalf("same-day summary: %+v", sum)
	}

	clock.AddDays(1)
	sum = svc.Summary(ledger)
	if sum.DailyPointsClaimedToday || sum.NextStreakDay != 2 {
		t.Fatalf("next-day summary: %+v", sum)
	}

	clock.AddDays(2)
	if sum = svc.Summary(ledger); sum.NextStreakDay != 1 {
		t.Fatalf("broken streak summary: %+v", sum)
	}
}

func TestDeleteLedger(t *testing.T) {
	svc, _, _ := newTestKarma(t)
	ctx := context.Background()

	if err := svc.Delete(ctx, 10); !errors.Is(err, ErrLedgerNotFound) {
		t.Fatalf("expected ErrLedgerNotFound, got %v", err)
	}
	seedBalance(t, svc, 10, 5)
	if err := svc.Delete(ctx, 10); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.GetBalance(ctx, 10); !errors.Is(err, ErrLedgerNotFound) {
		t.Fatalf("ledger should be gone, got %v", err)
	}
}

func TestHistoryPagination(t *testing.T) {
	svc, _, _ := newTestKarma(t)
	ctx := context.Background()
	for i := int64(1); i <= 5; i++ {
		seedBalance(t, svc, 11, i)
	}

	items, total, err := svc.History(ctx, 11, 2, 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if total != 5 || len(items) != 2 {
		t.Fatalf("total=%d len=%d", total, len(items))
	}
	// newest first: page 2 holds the 3rd and 2nd credits
	if items[0].Delta != 3 || items[1].Delta != 2 {
		t.Fatalf("page 2 deltas: %d, %d", items[0].Delta, items[1].Delta)
	}
	if items[0].BalanceAfter != 6 {
		t.Fatalf("balance after third credit: got %d want 6", items[0].BalanceAfter)
	}
}
