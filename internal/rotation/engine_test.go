package rotation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/bulatfbi/coffee-bot/internal/domain"
	"github.com/bulatfbi/coffee-bot/internal/store"
	"github.com/bulatfbi/coffee-bot/internal/testfixtures"
)

type sentMessage struct {
	chatID int64
	text   string
}

// fakeSender records messages and fails for chat ids listed in fail.
type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	fail map[int64]bool
}

func (f *fakeSender) SendMessage(chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[chatID] {
		return errors.New("blocked by user")
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func (f *fakeSender) recipients() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.sent))
	for _, m := range f.sent {
		ids = append(ids, m.chatID)
	}
	return ids
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *store.SQLiteRepo, *fakeSender) {
	t.Helper()
	repo := testfixtures.NewRepo(t)
	sender := &fakeSender{}
	return New(repo, sender, zap.NewNop(), opts...), repo, sender
}

func onDutyIDs(t *testing.T, repo store.Repo) []int64 {
	t.Helper()
	users, err := repo.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	var ids []int64
	for _, u := range users {
		if u.IsOnDuty {
			ids = append(ids, u.ID)
		}
	}
	return ids
}

func TestAccrueScore_SkipsAwayAndOccasional(t *testing.T) {
	e, repo, _ := newTestEngine(t)
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 1, Frequency: domain.FrequencyDaily})
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 2, Frequency: domain.FrequencyDaily, IsAway: true, Score: 3})
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 3, Frequency: domain.FrequencyOccasional})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := e.AccrueScore(ctx); err != nil {
			t.Fatalf("AccrueScore failed: %v", err)
		}
	}

	if got := testfixtures.MustGet(t, repo, 1).Score; got != 3 {
		t.Fatalf("daily user: expected 3, got %d", got)
	}
	if got := testfixtures.MustGet(t, repo, 2).Score; got != 3 {
		t.Fatalf("away daily user changed: %d", got)
	}
	if got := testfixtures.MustGet(t, repo, 3).Score; got != 0 {
		t.Fatalf("occasional user accrued: %d", got)
	}
}

func TestAccrueScore_MonotonicUntilSettled(t *testing.T) {
	e, repo, _ := newTestEngine(t, WithIntn(func(int) int { return 0 }))
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 1, Frequency: domain.FrequencyDaily})

	ctx := context.Background()
	prev := 0
	for i := 0; i < 5; i++ {
		if err := e.AccrueScore(ctx); err != nil {
			t.Fatalf("AccrueScore failed: %v", err)
		}
		if _, err := e.SelectDuty(ctx); err != nil {
			t.Fatalf("SelectDuty failed: %v", err)
		}
		got := testfixtures.MustGet(t, repo, 1).Score
		if got < prev {
			t.Fatalf("score decreased without settlement: %d -> %d", prev, got)
		}
		prev = got
	}

	if err := e.SettleDuty(ctx); err != nil {
		t.Fatalf("SettleDuty failed: %v", err)
	}
	if got := testfixtures.MustGet(t, repo, 1).Score; got != 0 {
		t.Fatalf("expected score reset to 0, got %d", got)
	}
}

func TestSelectDuty_NeverPicksIneligible(t *testing.T) {
	e, repo, _ := newTestEngine(t)
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 1, Score: 9, IsAway: true})
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 2, Score: 9, DeclinedDuty: true})
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 3, Score: 1})

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		u, err := e.SelectDuty(ctx)
		if err != nil {
			t.Fatalf("SelectDuty failed: %v", err)
		}
		if u == nil || u.ID != 3 {
			t.Fatalf("expected user 3, got %+v", u)
		}
	}
	if ids := onDutyIDs(t, repo); len(ids) != 1 || ids[0] != 3 {
		t.Fatalf("expected only user 3 on duty, got %v", ids)
	}
}

func TestSelectDuty_NobodyWhenMaxIsZero(t *testing.T) {
	e, repo, _ := newTestEngine(t)
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 1})
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 2, Score: 4, IsAway: true})

	u, err := e.SelectDuty(context.Background())
	if err != nil {
		t.Fatalf("SelectDuty failed: %v", err)
	}
	if u != nil {
		t.Fatalf("expected nobody, got %+v", u)
	}
	if ids := onDutyIDs(t, repo); len(ids) != 0 {
		t.Fatalf("expected no holder, got %v", ids)
	}
}

func TestSelectDuty_NobodyWhenNoUsers(t *testing.T) {
	e, _, _ := newTestEngine(t)

	u, err := e.SelectDuty(context.Background())
	if err != nil || u != nil {
		t.Fatalf("expected nil, nil; got %+v, %v", u, err)
	}
}

func TestSelectDuty_ExactlyOneHolderAfterSelection(t *testing.T) {
	e, repo, _ := newTestEngine(t)
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 1, Score: 1, IsOnDuty: true})
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 2, Score: 6})

	u, err := e.SelectDuty(context.Background())
	if err != nil {
		t.Fatalf("SelectDuty failed: %v", err)
	}
	if u == nil || u.ID != 2 {
		t.Fatalf("expected user 2, got %+v", u)
	}
	if ids := onDutyIDs(t, repo); len(ids) != 1 || ids[0] != 2 {
		t.Fatalf("expected exactly one holder (2), got %v", ids)
	}
}

func TestSelectDuty_TieBreakIsUniform(t *testing.T) {
	e, repo, _ := newTestEngine(t)
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 1, Name: "A", Score: 2})
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 2, Name: "B", Score: 2})
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 3, Name: "C", Score: 1})

	const trials = 400
	counts := map[int64]int{}
	ctx := context.Background()
	for i := 0; i < trials; i++ {
		u, err := e.SelectDuty(ctx)
		if err != nil {
			t.Fatalf("SelectDuty failed: %v", err)
		}
		if u == nil {
			t.Fatal("expected a holder")
		}
		counts[u.ID]++
	}

	if counts[3] != 0 {
		t.Fatalf("lower score user picked %d times", counts[3])
	}
	// Binomial(400, 0.5): 140..260 is more than 6 standard deviations wide.
	for _, id := range []int64{1, 2} {
		if counts[id] < 140 || counts[id] > 260 {
			t.Fatalf("user %d picked %d/%d times, tie break looks biased", id, counts[id], trials)
		}
	}
}

func TestSelectDuty_UsesInjectedRandom(t *testing.T) {
	var gotN int
	e, repo, _ := newTestEngine(t, WithIntn(func(n int) int {
		gotN = n
		return n - 1
	}))
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 10, Score: 5})
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 20, Score: 5})
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 30, Score: 5})

	u, err := e.SelectDuty(context.Background())
	if err != nil {
		t.Fatalf("SelectDuty failed: %v", err)
	}
	if gotN != 3 {
		t.Fatalf("expected tie set of 3, got %d", gotN)
	}
	if u == nil || u.ID != 30 {
		t.Fatalf("expected last tie member (30), got %+v", u)
	}
}

func TestClearDecline_AllowsReselection(t *testing.T) {
	e, repo, _ := newTestEngine(t)
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 1, Score: 5, DeclinedDuty: true})

	ctx := context.Background()
	if u, _ := e.SelectDuty(ctx); u != nil {
		t.Fatalf("declined user selected: %+v", u)
	}
	if err := e.ClearDecline(ctx); err != nil {
		t.Fatalf("ClearDecline failed: %v", err)
	}
	u, err := e.SelectDuty(ctx)
	if err != nil {
		t.Fatalf("SelectDuty failed: %v", err)
	}
	if u == nil || u.ID != 1 {
		t.Fatalf("expected user 1 after decline was cleared, got %+v", u)
	}
}

func TestSettleDuty_Idempotent(t *testing.T) {
	e, repo, _ := newTestEngine(t)
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 1, Score: 4, IsOnDuty: true})
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 2, Score: 3})

	ctx := context.Background()
	if err := e.SettleDuty(ctx); err != nil {
		t.Fatalf("SettleDuty failed: %v", err)
	}
	first, err := repo.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if err := e.SettleDuty(ctx); err != nil {
		t.Fatalf("second SettleDuty failed: %v", err)
	}
	second, err := repo.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}

	for i := range first {
		a, b := first[i], second[i]
		if a.Score != b.Score || a.IsOnDuty != b.IsOnDuty {
			t.Fatalf("second settle changed user %d: %+v -> %+v", a.ID, a, b)
		}
	}
	if first[0].Score != 0 || first[0].IsOnDuty {
		t.Fatalf("holder not settled: %+v", first[0])
	}
	if first[1].Score != 3 {
		t.Fatalf("non-holder score changed: %+v", first[1])
	}
}

func TestSendHome_OnlyPresentOccasional(t *testing.T) {
	e, repo, _ := newTestEngine(t)
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 1, Frequency: domain.FrequencyOccasional})
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 2, Frequency: domain.FrequencyDaily})

	if err := e.SendHome(context.Background()); err != nil {
		t.Fatalf("SendHome failed: %v", err)
	}
	if !testfixtures.MustGet(t, repo, 1).IsAway {
		t.Fatal("occasional user should be away")
	}
	if testfixtures.MustGet(t, repo, 2).IsAway {
		t.Fatal("daily user should stay present")
	}
}

func TestNotifyDuty_FanOutSkipsAwayAndDeclined(t *testing.T) {
	e, repo, sender := newTestEngine(t)
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 1, Name: "Alice", IsOnDuty: true})
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 2})
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 3, IsAway: true})
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 4, DeclinedDuty: true})

	n, err := e.NotifyDuty(context.Background())
	if err != nil {
		t.Fatalf("NotifyDuty failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deliveries, got %d", n)
	}
	got := sender.recipients()
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected recipients %v", got)
	}
	if sender.sent[0].text != DutyAnnouncement(&domain.User{Name: "Alice"}) {
		t.Fatalf("unexpected text %q", sender.sent[0].text)
	}
}

func TestNotifyDuty_FailureDoesNotStopFanOut(t *testing.T) {
	e, repo, sender := newTestEngine(t)
	sender.fail = map[int64]bool{2: true}
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 1, IsOnDuty: true})
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 2})
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 3})

	n, err := e.NotifyDuty(context.Background())
	if err != nil {
		t.Fatalf("NotifyDuty failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deliveries, got %d", n)
	}
	got := sender.recipients()
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("unexpected recipients %v", got)
	}
}

func TestNotifyDuty_NoHolderSendsNothing(t *testing.T) {
	e, repo, sender := newTestEngine(t)
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 1})

	n, err := e.NotifyDuty(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("expected 0, nil; got %d, %v", n, err)
	}
	if len(sender.recipients()) != 0 {
		t.Fatal("nothing should be sent without a holder")
	}
}

func TestReassign_AfterDecline(t *testing.T) {
	e, repo, sender := newTestEngine(t)
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 1, Name: "Alice", Score: 5, IsOnDuty: true})
	testfixtures.SeedUser(t, repo, testfixtures.Seed{ID: 2, Name: "Bob", Score: 4})

	ctx := context.Background()
	if _, err := repo.UpdateUser(ctx, 1, store.UserPatch{
		DeclinedDuty: store.Ptr(true),
		IsOnDuty:     store.Ptr(false),
	}); err != nil {
		t.Fatalf("decline failed: %v", err)
	}

	holder, err := e.Reassign(ctx)
	if err != nil {
		t.Fatalf("Reassign failed: %v", err)
	}
	if holder == nil || holder.ID != 2 {
		t.Fatalf("expected Bob, got %+v", holder)
	}
	alice := testfixtures.MustGet(t, repo, 1)
	if alice.IsOnDuty || !alice.DeclinedDuty {
		t.Fatalf("decliner state wrong: %+v", alice)
	}
	// Only Bob is eligible to hear about it.
	if got := sender.recipients(); len(got) != 1 || got[0] != 2 {
		t.Fatalf("unexpected recipients %v", got)
	}
}

func TestTopScorers(t *testing.T) {
	users := []domain.User{{ID: 1, Score: 2}, {ID: 2, Score: 2}, {ID: 3, Score: 1}}
	ties := TopScorers(users)
	if len(ties) != 2 || ties[0].ID != 1 || ties[1].ID != 2 {
		t.Fatalf("unexpected ties %+v", ties)
	}
	if TopScorers([]domain.User{{ID: 1}}) != nil {
		t.Fatal("zero scores must yield no candidates")
	}
}
