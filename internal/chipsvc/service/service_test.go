package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/tapchip-services/internal/chipsvc/models"
	"github.com/avvvet/tapchip-services/internal/chipsvc/router"
	"github.com/avvvet/tapchip-services/internal/chipsvc/scanlog"
	"github.com/avvvet/tapchip-services/internal/chipsvc/store/lite"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *lite.DB {
	t.Helper()

	db, err := lite.Open(context.Background(), filepath.Join(t.TempDir(), "chips.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func str(s string) *string { return &s }

type fixture struct {
	db     *lite.DB
	events chan models.ScanEvent
	logger *scanlog.Logger
	taps   *TapService
}

func newFixture(t *testing.T, extra ...scanlog.Sink) *fixture {
	t.Helper()
	f := &fixture{db: setupTestDB(t), events: make(chan models.ScanEvent, 16)}
	capture := scanlog.SinkFunc(func(ctx context.Context, ev models.ScanEvent) error {
		f.events <- ev
		return nil
	})
	f.logger = scanlog.NewLogger(time.Second, append([]scanlog.Sink{capture, f.db.Scans}, extra...)...)
	f.taps = NewTapService(f.db.Chips, f.logger)
	f.taps.now = func() time.Time { return fixedNow }
	return f
}

// chip creates an unassigned chip and applies patch to it.
func (f *fixture) chip(t *testing.T, uid string, patch models.ChipPatch) *models.Chip {
	t.Helper()
	ctx := context.Background()
	_, err := f.db.Chips.CreateUnassigned(ctx, []string{uid})
	require.NoError(t, err)
	c, err := f.db.Chips.Get(ctx, uid)
	require.NoError(t, err)
	if !patch.Empty() {
		c, err = f.db.Chips.Update(ctx, c.ID, patch)
		require.NoError(t, err)
	}
	return c
}

func (f *fixture) user(t *testing.T, u models.User) *models.User {
	t.Helper()
	require.NoError(t, f.db.Users.Create(context.Background(), &u))
	return &u
}

type recordingNotifier struct {
	mu      sync.Mutex
	claimed []string
	leads   []string
	err     error
}

func (n *recordingNotifier) ChipClaimed(ctx context.Context, chip *models.Chip) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.claimed = append(n.claimed, chip.ID)
	return n.err
}

func (n *recordingNotifier) LeadCaptured(ctx context.Context, lead *models.Lead) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.leads = append(n.leads, lead.ID)
	return n.err
}

func TestResolveRoutes(t *testing.T) {
	f := newFixture(t)
	f.user(t, models.User{ID: "u-1", AuthSubject: "auth|1", Name: "Jane", Slug: str("jane")})
	f.user(t, models.User{ID: "u-123", AuthSubject: "auth|123", Name: "No Slug"})
	expired := fixedNow.Add(-time.Hour)
	f.user(t, models.User{ID: "u-ghost", AuthSubject: "auth|g", Slug: str("ghosty"), GhostMode: true, GhostModeUntil: &expired})
	require.NoError(t, f.db.Companies.Create(context.Background(), &models.Company{ID: "c-9", Name: "Bistro"}))

	f.chip(t, "0001", models.ChipPatch{AssignedUserID: str("u-1"), ActiveMode: str("corporate")})
	f.chip(t, "0002", models.ChipPatch{AssignedUserID: str("u-123"), ActiveMode: str("corporate")})
	f.chip(t, "0003", models.ChipPatch{ActiveMode: str("hospitality"), CompanyID: str("c-9"), MenuData: json.RawMessage(`{"url":"https://menu.example"}`)})
	f.chip(t, "0004", models.ChipPatch{ActiveMode: str("hospitality"), CompanyID: str("c-9")})
	f.chip(t, "0005", models.ChipPatch{ActiveMode: str("campaign"), CompanyID: str("c-9")})
	f.chip(t, "0006", models.ChipPatch{ActiveMode: str("retail")})
	f.chip(t, "0007", models.ChipPatch{AssignedUserID: str("u-ghost"), ActiveMode: str("corporate")})
	f.chip(t, "0008", models.ChipPatch{TargetURL: str("https://landing.example")})

	tests := []struct {
		uid  string
		want router.Decision
	}{
		{"0001", router.Decision{Kind: router.KindProfile, Target: "jane", By: router.BySlug}},
		{"0002", router.Decision{Kind: router.KindProfile, Target: "u-123", By: router.ByID}},
		{"0003", router.Decision{Kind: router.KindExternalRedirect, Target: "https://menu.example"}},
		{"0004", router.Decision{Kind: router.KindReview, Target: "c-9"}},
		{"0005", router.Decision{Kind: router.KindCampaign, Target: "c-9"}},
		{"0006", router.Fail(router.ReasonUnknownMode, "retail")},
		{"0007", router.Decision{Kind: router.KindProfile, Target: "ghosty", By: router.BySlug}},
		{"0008", router.Decision{Kind: router.KindExternalRedirect, Target: "https://landing.example"}},
	}
	for _, tt := range tests {
		t.Run(tt.uid, func(t *testing.T) {
			d, err := f.taps.Resolve(context.Background(), tt.uid, scanlog.Request{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}
}

func TestResolveUIDVariantsHitSameChip(t *testing.T) {
	f := newFixture(t)
	c := f.chip(t, "04A1B2", models.ChipPatch{TargetURL: str("https://landing.example")})

	for _, raw := range []string{"04:a1:b2", "04-A1-B2", " 04 a1 b2 ", "04a1b2"} {
		d, err := f.taps.Resolve(context.Background(), raw, scanlog.Request{})
		require.NoError(t, err)
		assert.Equal(t, router.KindExternalRedirect, d.Kind, raw)
	}
	f.logger.Wait()

	events, err := f.db.Scans.ListByChip(context.Background(), c.ID, 10)
	require.NoError(t, err)
	assert.Len(t, events, 4)
}

func TestResolveUnknownChipLogsNothing(t *testing.T) {
	f := newFixture(t)

	d, err := f.taps.Resolve(context.Background(), "de:ad:be:ef", scanlog.Request{UserAgent: "Mozilla/5.0 (iPhone)"})
	require.NoError(t, err)
	assert.Equal(t, router.Fail(router.ReasonChipNotRecognized, "de:ad:be:ef"), d)

	d, err = f.taps.Resolve(context.Background(), " :: ", scanlog.Request{})
	require.NoError(t, err)
	assert.Equal(t, router.ReasonChipNotRecognized, d.Reason)

	f.logger.Wait()
	assert.Empty(t, f.events)
}

func TestResolveRecordsScan(t *testing.T) {
	f := newFixture(t)
	f.user(t, models.User{ID: "u-1", AuthSubject: "auth|1", Slug: str("jane")})
	c := f.chip(t, "04A1B2", models.ChipPatch{AssignedUserID: str("u-1"), ActiveMode: str("corporate")})

	ua := "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile/15E148"
	_, err := f.taps.Resolve(context.Background(), "04a1b2", scanlog.Request{IP: "203.0.113.7", UserAgent: ua})
	require.NoError(t, err)
	f.logger.Wait()

	require.Len(t, f.events, 1)
	ev := <-f.events
	assert.Equal(t, c.ID, ev.ChipID)
	require.NotNil(t, ev.OwnerID)
	assert.Equal(t, "u-1", *ev.OwnerID)
	assert.Equal(t, "Mobile", ev.Device)
	assert.Equal(t, "203.0.113.7", ev.IP)
}

func TestResolveSurvivesSinkFailure(t *testing.T) {
	var calls atomic.Int32
	broken := scanlog.SinkFunc(func(ctx context.Context, ev models.ScanEvent) error {
		calls.Add(1)
		return errors.New("scan store unavailable")
	})
	f := newFixture(t, broken)
	f.user(t, models.User{ID: "u-1", AuthSubject: "auth|1", Slug: str("jane")})
	f.chip(t, "04A1B2", models.ChipPatch{AssignedUserID: str("u-1"), ActiveMode: str("corporate")})

	d, err := f.taps.Resolve(context.Background(), "04A1B2", scanlog.Request{})
	require.NoError(t, err)
	assert.Equal(t, router.Decision{Kind: router.KindProfile, Target: "jane", By: router.BySlug}, d)

	f.logger.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestClaim(t *testing.T) {
	f := newFixture(t)
	f.user(t, models.User{ID: "u-1", AuthSubject: "auth|1"})
	f.user(t, models.User{ID: "u-2", AuthSubject: "auth|2"})
	require.NoError(t, f.db.Companies.Create(context.Background(), &models.Company{ID: "c-1", Name: "Acme"}))
	f.chip(t, "04A1B2", models.ChipPatch{CompanyID: str("c-1"), ActiveMode: str("campaign")})

	n := &recordingNotifier{err: errors.New("broker down")}
	claims := NewClaimService(f.db.Chips, f.db.Users, n)

	c, err := claims.Claim(context.Background(), Identity{Subject: "auth|1"}, "04:a1:b2")
	require.NoError(t, err)
	assert.Equal(t, "u-1", *c.AssignedUserID)
	assert.Equal(t, "corporate", c.ActiveMode)
	assert.Nil(t, c.CompanyID)
	assert.Equal(t, []string{c.ID}, n.claimed)

	_, err = claims.Claim(context.Background(), Identity{Subject: "auth|2"}, "04A1B2")
	assert.ErrorIs(t, err, ErrAlreadyClaimed)

	_, err = claims.Claim(context.Background(), Identity{Subject: "auth|1"}, "FFFF")
	assert.ErrorIs(t, err, ErrChipNotRecognized)

	_, err = claims.Claim(context.Background(), Identity{Subject: "auth|1"}, "--")
	assert.ErrorIs(t, err, ErrChipNotRecognized)
}

func TestClaimUnauthenticated(t *testing.T) {
	f := newFixture(t)
	f.chip(t, "04A1B2", models.ChipPatch{})
	claims := NewClaimService(f.db.Chips, f.db.Users, nil)

	_, err := claims.Claim(context.Background(), Identity{}, "04A1B2")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = claims.Claim(context.Background(), Identity{Subject: "auth|stranger"}, "04A1B2")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	c, err := f.db.Chips.Get(context.Background(), "04A1B2")
	require.NoError(t, err)
	assert.True(t, c.Claimable())
}

func TestClaimConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	f.chip(t, "04A1B2", models.ChipPatch{})
	const claimers = 10
	for i := 0; i < claimers; i++ {
		f.user(t, models.User{ID: fmt.Sprintf("u-%d", i), AuthSubject: fmt.Sprintf("auth|%d", i)})
	}
	claims := NewClaimService(f.db.Chips, f.db.Users, nil)

	var (
		wg        sync.WaitGroup
		wins      atomic.Int32
		conflicts atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func(sub string) {
			defer wg.Done()
			<-start
			_, err := claims.Claim(context.Background(), Identity{Subject: sub}, "04A1B2")
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrAlreadyClaimed):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(fmt.Sprintf("auth|%d", i))
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(claimers-1), conflicts.Load())
}

func TestChipServicePermissions(t *testing.T) {
	f := newFixture(t)
	f.user(t, models.User{ID: "u-1", AuthSubject: "auth|owner"})
	f.user(t, models.User{ID: "u-2", AuthSubject: "auth|other"})
	f.user(t, models.User{ID: "u-admin", AuthSubject: "auth|admin", IsAdmin: true})
	c := f.chip(t, "04A1B2", models.ChipPatch{AssignedUserID: str("u-1"), ActiveMode: str("corporate")})

	chips, err := NewChipService(f.db.Chips, f.db.Users, f.db.Scans)
	require.NoError(t, err)
	ctx := context.Background()
	owner, other, admin := Identity{Subject: "auth|owner"}, Identity{Subject: "auth|other"}, Identity{Subject: "auth|admin"}

	got, err := chips.Get(ctx, owner, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.UID, got.UID)

	_, err = chips.Get(ctx, other, c.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = chips.Get(ctx, Identity{}, c.ID)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = chips.Get(ctx, owner, "missing")
	assert.ErrorIs(t, err, ErrChipNotFound)

	_, err = chips.Update(ctx, owner, c.ID, models.ChipPatch{AssignedUserID: str("u-2")})
	assert.ErrorIs(t, err, ErrForbidden)

	moved, err := chips.Update(ctx, admin, c.ID, models.ChipPatch{AssignedUserID: str("u-2")})
	require.NoError(t, err)
	assert.Equal(t, "u-2", *moved.AssignedUserID)

	list, err := chips.ListOwned(ctx, other)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, c.ID, list[0].ID)
}

func TestChipServiceValidatesPatch(t *testing.T) {
	f := newFixture(t)
	f.user(t, models.User{ID: "u-1", AuthSubject: "auth|owner"})
	c := f.chip(t, "04A1B2", models.ChipPatch{AssignedUserID: str("u-1"), ActiveMode: str("corporate")})
	chips, err := NewChipService(f.db.Chips, f.db.Users, f.db.Scans)
	require.NoError(t, err)
	owner := Identity{Subject: "auth|owner"}

	bad := []models.ChipPatch{
		{},
		{ActiveMode: str("retail")},
		{TargetURL: str("ftp://files.example")},
		{TargetURL: str("/relative")},
		{MenuData: json.RawMessage(`[1,2]`)},
		{MenuData: json.RawMessage(`{"items":[{"price":3}]}`)},
		{MenuData: json.RawMessage(`{"url":`)},
		{CompanyID: str("no-such-company")},
	}
	for i, p := range bad {
		_, err := chips.Update(context.Background(), owner, c.ID, p)
		assert.ErrorIs(t, err, ErrInvalidInput, "patch %d", i)
	}

	updated, err := chips.Update(context.Background(), owner, c.ID, models.ChipPatch{
		ActiveMode: str("hospitality"),
		MenuData:   json.RawMessage(`{"url":"https://menu.example","items":[{"name":"Soup","price":"4.50"}]}`),
		TargetURL:  str(""),
	})
	require.NoError(t, err)
	assert.Equal(t, "hospitality", updated.ActiveMode)
	assert.Equal(t, "https://menu.example", updated.MenuURL())
}

func TestChipServiceReassignAndHistory(t *testing.T) {
	f := newFixture(t)
	f.user(t, models.User{ID: "u-1", AuthSubject: "auth|owner"})
	c := f.chip(t, "04A1B2", models.ChipPatch{AssignedUserID: str("u-1"), ActiveMode: str("corporate")})
	chips, err := NewChipService(f.db.Chips, f.db.Users, f.db.Scans)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = f.taps.Resolve(ctx, "04A1B2", scanlog.Request{})
	require.NoError(t, err)
	f.logger.Wait()

	history, err := chips.ScanHistory(ctx, Identity{Subject: "auth|owner"}, c.ID, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	released, err := chips.Reassign(ctx, "04:a1:b2", "")
	require.NoError(t, err)
	assert.True(t, released.Claimable())
	assert.Equal(t, "unset", released.ActiveMode)

	_, err = chips.Reassign(ctx, "04A1B2", "nobody")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = chips.Reassign(ctx, "FFFF", "u-1")
	assert.ErrorIs(t, err, ErrChipNotRecognized)
}

func TestLeadCapture(t *testing.T) {
	f := newFixture(t)
	f.user(t, models.User{ID: "u-1", AuthSubject: "auth|1"})
	c := f.chip(t, "04A1B2", models.ChipPatch{AssignedUserID: str("u-1"), ActiveMode: str("corporate")})
	n := &recordingNotifier{}
	leads := NewLeadService(f.db.Chips, f.db.Leads, n)
	ctx := context.Background()

	lead, err := leads.Capture(ctx, "04:a1:b2", LeadInput{Name: " Sam ", Email: "sam@example.com", Notes: str("  "), Sentiment: str("positive")})
	require.NoError(t, err)
	assert.Equal(t, "Sam", lead.Name)
	assert.Equal(t, c.ID, lead.ChipID)
	assert.Equal(t, "u-1", *lead.OwnerID)
	assert.Nil(t, lead.Notes)
	assert.Equal(t, []string{lead.ID}, n.leads)

	phoneOnly, err := leads.Capture(ctx, "04A1B2", LeadInput{Name: "Kim", LeadPhone: str("+15550100")})
	require.NoError(t, err)
	assert.Empty(t, phoneOnly.Email)

	stored, err := f.db.Leads.ListByChip(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	invalid := []LeadInput{
		{Email: "sam@example.com"},
		{Name: "Sam"},
		{Name: "Sam", Email: "not-an-address"},
		{Name: "Sam", Email: "sam@example.com", Sentiment: str("ecstatic")},
	}
	for i, in := range invalid {
		_, err := leads.Capture(ctx, "04A1B2", in)
		assert.ErrorIs(t, err, ErrInvalidInput, "input %d", i)
	}

	_, err = leads.Capture(ctx, "FFFF", LeadInput{Name: "Sam", Email: "sam@example.com"})
	assert.ErrorIs(t, err, ErrChipNotRecognized)
}
