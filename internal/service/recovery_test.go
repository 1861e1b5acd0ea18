package service

import (
	"context"
	"testing"
	"time"

	"github.com/custodix/recoveryd/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRecoveryRepo is an in-memory RecoveryRepository for state-machine tests.
type fakeRecoveryRepo struct {
	owners    map[string]string
	guardians map[string][]models.Guardian
	hashes    map[string]string
	requests  map[string]*models.RecoveryRequest // account id -> most recent request
	approvals map[string]map[string]bool         // request id -> distinct guardians
	checkIns  map[string]time.Time
}

func newFakeRecoveryRepo() *fakeRecoveryRepo {
	return &fakeRecoveryRepo{
		owners:    make(map[string]string),
		guardians: make(map[string][]models.Guardian),
		hashes:    make(map[string]string),
		requests:  make(map[string]*models.RecoveryRequest),
		approvals: make(map[string]map[string]bool),
		checkIns:  make(map[string]time.Time),
	}
}

func (f *fakeRecoveryRepo) GetOwner(_ context.Context, accountID string) (string, error) {
	owner, ok := f.owners[accountID]
	if !ok {
		return "", models.ErrAccountNotFound
	}
	return owner, nil
}

func (f *fakeRecoveryRepo) GetGuardians(_ context.Context, accountID string) ([]models.Guardian, error) {
	return f.guardians[accountID], nil
}

func (f *fakeRecoveryRepo) GetBiometricHash(_ context.Context, accountID string) (string, error) {
	if _, ok := f.owners[accountID]; !ok {
		return "", models.ErrAccountNotFound
	}
	return f.hashes[accountID], nil
}

func (f *fakeRecoveryRepo) GetCurrentRequest(_ context.Context, accountID string) (*models.RecoveryRequest, error) {
	req, ok := f.requests[accountID]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (f *fakeRecoveryRepo) CreateRequest(_ context.Context, req models.RecoveryRequest) error {
	cp := req
	f.requests[req.AccountID] = &cp
	f.approvals[req.ID] = map[string]bool{req.Initiator: true}
	return nil
}

func (f *fakeRecoveryRepo) RecordApproval(_ context.Context, requestID, guardian string, _ time.Time) error {
	if f.approvals[requestID] == nil {
		f.approvals[requestID] = make(map[string]bool)
	}
	f.approvals[requestID][guardian] = true
	return nil
}

func (f *fakeRecoveryRepo) CountApprovals(_ context.Context, requestID string) (int, error) {
	return len(f.approvals[requestID]), nil
}

func (f *fakeRecoveryRepo) CloseRequest(_ context.Context, requestID string, state models.RequestState) error {
	for _, req := range f.requests {
		if req.ID == requestID {
			req.State = state
		}
	}
	return nil
}

func (f *fakeRecoveryRepo) ExecuteRequest(_ context.Context, requestID, accountID, newOwner string) error {
	f.owners[accountID] = newOwner
	f.requests[accountID].State = models.RequestExecuted
	delete(f.approvals, requestID)
	return nil
}

func (f *fakeRecoveryRepo) CheckIn(_ context.Context, accountID string, at time.Time) (string, error) {
	f.checkIns[accountID] = at
	req, ok := f.requests[accountID]
	if ok && req.State == models.RequestInitiated {
		req.State = models.RequestExpired
		return req.ID, nil
	}
	return "", nil
}

// recoveryFixture wires a RecoveryService over the fake repo with a
// controllable clock and one enrolled account.
type recoveryFixture struct {
	svc  *RecoveryService
	repo *fakeRecoveryRepo
	now  time.Time
}

const (
	testAccount  = "0xacc0001"
	testOwner    = "0xowner"
	testG1       = "0xguardian1"
	testG2       = "0xguardian2"
	testNewOwner = "0xnewowner"
)

func newRecoveryFixture(t *testing.T, cfg RecoveryConfig) *recoveryFixture {
	t.Helper()

	repo := newFakeRecoveryRepo()
	repo.owners[testAccount] = testOwner
	repo.guardians[testAccount] = []models.Guardian{
		{AccountID: testAccount, Address: testG1, Handle: "g1_farcaster"},
		{AccountID: testAccount, Address: testG2, Handle: "g2_farcaster"},
	}

	f := &recoveryFixture{
		svc:  NewRecoveryService(repo, cfg, zap.NewNop()),
		repo: repo,
		now:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc.now = func() time.Time { return f.now }
	return f
}

func defaultConfig() RecoveryConfig {
	return RecoveryConfig{
		Threshold:     1,
		Timelock:      86400 * time.Second,
		MaxRequestAge: 604800 * time.Second,
	}
}

func (f *recoveryFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func TestInitiate_RequiresGuardian(t *testing.T) {
	f := newRecoveryFixture(t, defaultConfig())

	_, err := f.svc.Initiate(context.Background(), "0xstranger", testAccount, testNewOwner, true)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestInitiate_OwnerMayNotSelfInitiate(t *testing.T) {
	f := newRecoveryFixture(t, defaultConfig())
	// even an owner enrolled as guardian may not open their own recovery
	f.repo.guardians[testAccount] = append(f.repo.guardians[testAccount],
		models.Guardian{AccountID: testAccount, Address: testOwner})

	_, err := f.svc.Initiate(context.Background(), testOwner, testAccount, testNewOwner, true)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestInitiate_CommitmentRequiresUnreachableAssertion(t *testing.T) {
	f := newRecoveryFixture(t, defaultConfig())
	f.repo.hashes[testAccount] = "aa"

	_, err := f.svc.Initiate(context.Background(), testG1, testAccount, testNewOwner, false)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = f.svc.Initiate(context.Background(), testG1, testAccount, testNewOwner, true)
	assert.NoError(t, err)
}

func TestInitiate_SecondRequestRejectedWhileLive(t *testing.T) {
	f := newRecoveryFixture(t, defaultConfig())
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, testG1, testAccount, testNewOwner, true)
	require.NoError(t, err)

	_, err = f.svc.Initiate(ctx, testG2, testAccount, "0xother", true)
	assert.ErrorIs(t, err, models.ErrRecoveryAlreadyLive)
}

func TestInitiate_UnknownAccount(t *testing.T) {
	f := newRecoveryFixture(t, defaultConfig())

	_, err := f.svc.Initiate(context.Background(), testG1, "0xmissing", testNewOwner, true)
	assert.ErrorIs(t, err, models.ErrAccountNotFound)
}

// TestExecute_EndToEnd covers the full happy path: initiate at t0, execute
// one second before the timelock fails, at exactly the timelock succeeds,
// ownership changes, and a second execute finds no live request.
func TestExecute_EndToEnd(t *testing.T) {
	f := newRecoveryFixture(t, defaultConfig())
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, testG1, testAccount, testNewOwner, true)
	require.NoError(t, err)

	f.advance(86399 * time.Second)
	err = f.svc.Execute(ctx, testG1, testAccount, testNewOwner)
	assert.ErrorIs(t, err, models.ErrTimelockNotElapsed)

	f.advance(1 * time.Second)
	err = f.svc.Execute(ctx, testG1, testAccount, testNewOwner)
	require.NoError(t, err)

	owner, err := f.repo.GetOwner(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, testNewOwner, owner)

	status, err := f.svc.Status(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, models.RequestExecuted, status.State)

	err = f.svc.Execute(ctx, testG1, testAccount, testNewOwner)
	assert.ErrorIs(t, err, models.ErrRecoveryNotFound)
}

func TestExecute_ThresholdTwo(t *testing.T) {
	cfg := defaultConfig()
	cfg.Threshold = 2
	f := newRecoveryFixture(t, cfg)
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, testG1, testAccount, testNewOwner, true)
	require.NoError(t, err)

	f.advance(2 * 86400 * time.Second)

	// only the initiator's concurrence is recorded so far
	err = f.svc.Execute(ctx, testG2, testAccount, testNewOwner)
	assert.ErrorIs(t, err, models.ErrThresholdNotMet)

	require.NoError(t, f.svc.Approve(ctx, testG2, testAccount, testNewOwner))

	err = f.svc.Execute(ctx, testG2, testAccount, testNewOwner)
	require.NoError(t, err)

	owner, _ := f.repo.GetOwner(ctx, testAccount)
	assert.Equal(t, testNewOwner, owner)
}

func TestApprove_DuplicateConcurrenceStaysDistinct(t *testing.T) {
	cfg := defaultConfig()
	cfg.Threshold = 2
	f := newRecoveryFixture(t, cfg)
	ctx := context.Background()

	req, err := f.svc.Initiate(ctx, testG1, testAccount, testNewOwner, true)
	require.NoError(t, err)

	// initiator re-approving must not count twice
	require.NoError(t, f.svc.Approve(ctx, testG1, testAccount, testNewOwner))

	count, err := f.repo.CountApprovals(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestApprove_MismatchedProposal(t *testing.T) {
	f := newRecoveryFixture(t, defaultConfig())
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, testG1, testAccount, testNewOwner, true)
	require.NoError(t, err)

	err = f.svc.Approve(ctx, testG2, testAccount, "0xdifferent")
	assert.ErrorIs(t, err, models.ErrRecoveryNotFound)
}

func TestCheckIn_ExpiresLiveRequest(t *testing.T) {
	f := newRecoveryFixture(t, defaultConfig())
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, testG1, testAccount, testNewOwner, true)
	require.NoError(t, err)

	f.advance(time.Hour)
	require.NoError(t, f.svc.CheckIn(ctx, testOwner, testAccount))

	assert.Equal(t, f.now, f.repo.checkIns[testAccount])

	f.advance(2 * 86400 * time.Second)
	err = f.svc.Execute(ctx, testG1, testAccount, testNewOwner)
	assert.ErrorIs(t, err, models.ErrRequestExpired)
}

func TestCheckIn_OwnerOnly(t *testing.T) {
	f := newRecoveryFixture(t, defaultConfig())

	err := f.svc.CheckIn(context.Background(), testG1, testAccount)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestExecute_AgeCeilingExpiresRequest(t *testing.T) {
	f := newRecoveryFixture(t, defaultConfig())
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, testG1, testAccount, testNewOwner, true)
	require.NoError(t, err)

	f.advance(604800 * time.Second)
	err = f.svc.Execute(ctx, testG1, testAccount, testNewOwner)
	assert.ErrorIs(t, err, models.ErrRequestExpired)

	status, err := f.svc.Status(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, models.RequestExpired, status.State)
}

func TestCancel_OwnerDismissesRequest(t *testing.T) {
	f := newRecoveryFixture(t, defaultConfig())
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, testG1, testAccount, testNewOwner, true)
	require.NoError(t, err)

	err = f.svc.Cancel(ctx, testG1, testAccount)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	require.NoError(t, f.svc.Cancel(ctx, testOwner, testAccount))

	f.advance(2 * 86400 * time.Second)
	err = f.svc.Execute(ctx, testG1, testAccount, testNewOwner)
	assert.ErrorIs(t, err, models.ErrRecoveryNotFound)
}

func TestCancel_NoLiveRequest(t *testing.T) {
	f := newRecoveryFixture(t, defaultConfig())

	err := f.svc.Cancel(context.Background(), testOwner, testAccount)
	assert.ErrorIs(t, err, models.ErrRecoveryNotFound)
}

// TestExecute_InitiatorRemovalNonRetroactive documents the chosen policy:
// removing the guardian who initiated a request does not invalidate the
// already-open request, but the removed guardian may no longer act on it.
func TestExecute_InitiatorRemovalNonRetroactive(t *testing.T) {
	f := newRecoveryFixture(t, defaultConfig())
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, testG1, testAccount, testNewOwner, true)
	require.NoError(t, err)

	// drop the initiator from the guardian set
	f.repo.guardians[testAccount] = []models.Guardian{
		{AccountID: testAccount, Address: testG2, Handle: "g2_farcaster"},
	}

	f.advance(86400 * time.Second)

	err = f.svc.Execute(ctx, testG1, testAccount, testNewOwner)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	// the request itself stays valid; the remaining guardian executes it
	err = f.svc.Execute(ctx, testG2, testAccount, testNewOwner)
	require.NoError(t, err)

	owner, _ := f.repo.GetOwner(ctx, testAccount)
	assert.Equal(t, testNewOwner, owner)
}

func TestStatus_NoRequestEver(t *testing.T) {
	f := newRecoveryFixture(t, defaultConfig())

	_, err := f.svc.Status(context.Background(), testAccount)
	assert.ErrorIs(t, err, models.ErrRecoveryNotFound)
}

// TestAtMostOneLiveRequest drives the machine through several lifecycles and
// checks that at no point two live requests coexist on the same account.
func TestAtMostOneLiveRequest(t *testing.T) {
	f := newRecoveryFixture(t, defaultConfig())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.svc.Initiate(ctx, testG1, testAccount, testNewOwner, true)
		require.NoError(t, err)

		_, err = f.svc.Initiate(ctx, testG2, testAccount, testNewOwner, true)
		assert.ErrorIs(t, err, models.ErrRecoveryAlreadyLive)

		require.NoError(t, f.svc.Cancel(ctx, testOwner, testAccount))
	}
}
