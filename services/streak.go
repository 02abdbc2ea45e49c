package services

import "time"

// ClaimState classifies a ledger against today's calendar date.
type ClaimState int

const (
	// NeverClaimed: the user has no prior daily claim.
	NeverClaimed ClaimState = iota
	// ClaimedToday: the last claim happened today; another claim is rejected.
	ClaimedToday
	// EligibleToday: the last claim was yesterday; claiming continues the streak.
	EligibleToday
	// StreakBroken: the last claim was before yesterday; claiming restarts at day 1.
	StreakBroken
)

func (s ClaimState) String() string {
	switch s {
	case NeverClaimed:
		return "never_claimed"
	case ClaimedToday:
		return "claimed_today"
	case EligibleToday:
		return "eligible_today"
	case StreakBroken:
		return "streak_broken"
	default:
		return "unknown"
	}
}

// ClaimDecision is the outcome of evaluating a daily claim.
// StreakDay is the day reached by claiming now, or the unchanged day when State is ClaimedToday.
type ClaimDecision struct {
	State     ClaimState
	Today     time.Time
	StreakDay int
}

// Allowed reports whether the claim may proceed.
func (d ClaimDecision) Allowed() bool { return d.State != ClaimedToday }

// StreakPolicy defines calendar days and the length of the reward cycle.
type StreakPolicy struct {
	CycleDays int
	Location  *time.Location
}

// Today normalizes now to midnight of its calendar day in the policy location.
func (p StreakPolicy) Today(now time.Time) time.Time {
	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	t := now.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Classify places the last claim date relative to today.
// Days are compared by calendar date, not by instant: where DST skips midnight
// the start of a day is 01:00 and differs from the stored date's wall clock.
// A last claim dated after today (clock or timezone moved backwards) counts as claimed today.
func (p StreakPolicy) Classify(lastClaim *time.Time, today time.Time) ClaimState {
	if lastClaim == nil || lastClaim.IsZero() {
		return NeverClaimed
	}
	last := p.day(*lastClaim)
	cur := p.day(today)
	switch {
	case last >= cur:
		return ClaimedToday
	case last == p.day(today.AddDate(0, 0, -1)):
		return EligibleToday
	default:
		return StreakBroken
	}
}

// day packs the calendar date of t in the policy location as yyyymmdd.
func (p StreakPolicy) day(t time.Time) int {
	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return y*10000 + int(m)*100 + d
}

// Evaluate is the single transition function of the daily check-in.
func (p StreakPolicy) Evaluate(lastClaim *time.Time, currentStreakDay int, now time.Time) ClaimDecision {
	today := p.Today(now)
	state := p.Classify(lastClaim, today)
	d := ClaimDecision{State: state, Today: today, StreakDay: 1}
	switch state {
	case ClaimedToday:
		d.StreakDay = currentStreakDay
	case EligibleToday:
		if currentStreakDay >= 1 && currentStreakDay < p.cycle() {
			d.StreakDay = currentStreakDay + 1
		}
	}
	return d
}

func (p StreakPolicy) cycle() int {
	if p.CycleDays <= 0 {
		return 6
	}
	return p.CycleDays
}
