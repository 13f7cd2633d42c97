package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runash/turnauth/adapters/signer"
	"github.com/runash/turnauth/adapters/store"
	"github.com/runash/turnauth/core"
	"github.com/runash/turnauth/ports"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	events []core.IssuedEvent
	err    error
}

func (p *recordingPublisher) PublishIssued(_ context.Context, e core.IssuedEvent) error {
	p.events = append(p.events, e)
	return p.err
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}

func validateMAC(t *testing.T, secret, username, credential string) {
	t.Helper()

	mac := hmac.New(sha1.New, []byte(secret))
	_, err := mac.Write([]byte(username))
	require.NoError(t, err)

	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	assert.Equal(t, expected, credential)
}

func newTestService(secret string, clock ports.Clock) *CredentialService {
	return NewCredentialService(Config{CredentialTTL: DefaultCredentialTTL}, signer.NewHMACSigner(secret), clock, nil, nil)
}

func TestIssueCredential_FrozenClock(t *testing.T) {
	clock := &fixedClock{now: time.Unix(1700000000, 0)}
	s := newTestService("test-secret", clock)

	cred, err := s.IssueCredential(context.Background(), "user-42")
	require.NoError(t, err)

	assert.Equal(t, "1700043200", cred.Username)
	assert.Equal(t, "Qz+aL4ylZphLpFuw9EctJOl6WhM=", cred.Credential)
	validateMAC(t, "test-secret", "1700043200", cred.Credential)
	assert.Equal(t, 43200*time.Second, cred.TTL)
	assert.True(t, cred.IssuedAt.Equal(clock.now))
}

func TestIssueCredential_ValidityWindow(t *testing.T) {
	s := newTestService("test-secret", ports.SystemClock{})

	cred, err := s.IssueCredential(context.Background(), "user-42")
	require.NoError(t, err)

	expiry, err := strconv.ParseInt(cred.Username, 10, 64)
	require.NoError(t, err)

	want := cred.IssuedAt.Add(cred.TTL).Unix()
	assert.InDelta(t, want, expiry, 1)
	assert.Greater(t, expiry, cred.IssuedAt.Unix())
}

func TestIssueCredential_Freshness(t *testing.T) {
	clock := &fixedClock{now: time.Unix(1700000000, 0)}
	s := newTestService("test-secret", clock)

	first, err := s.IssueCredential(context.Background(), "user-42")
	require.NoError(t, err)

	clock.Advance(time.Second)

	second, err := s.IssueCredential(context.Background(), "user-42")
	require.NoError(t, err)

	assert.NotEqual(t, first.Username, second.Username)
	assert.NotEqual(t, first.Credential, second.Credential)
}

func TestIssueCredential_FailsClosedWithoutSecret(t *testing.T) {
	s := newTestService("", &fixedClock{now: time.Unix(1700000000, 0)})

	cred, err := s.IssueCredential(context.Background(), "user-42")
	require.ErrorIs(t, err, core.ErrSecretNotConfigured)
	assert.Nil(t, cred)
	assert.True(t, IsConfigurationError(err))
}

func TestIssueCredential_ClockUnavailable(t *testing.T) {
	s := newTestService("test-secret", &fixedClock{})

	cred, err := s.IssueCredential(context.Background(), "user-42")
	require.ErrorIs(t, err, core.ErrClockUnavailable)
	assert.Nil(t, cred)
	assert.True(t, IsConfigurationError(err))
}

func TestIssueCredential_DefaultTTL(t *testing.T) {
	s := NewCredentialService(Config{}, signer.NewHMACSigner("test-secret"), ports.SystemClock{}, nil, nil)
	assert.Equal(t, 12*time.Hour, s.TTL())
}

func TestIssueCredential_URIs(t *testing.T) {
	uris := []string{"turn:turn.runash.in:3478?transport=udp"}
	s := NewCredentialService(Config{URIs: uris}, signer.NewHMACSigner("test-secret"), ports.SystemClock{}, nil, nil)

	cred, err := s.IssueCredential(context.Background(), "user-42")
	require.NoError(t, err)
	assert.Equal(t, uris, cred.URIs)
}

func TestIssueCredential_PublishesEvent(t *testing.T) {
	clock := &fixedClock{now: time.Unix(1700000000, 0)}
	pub := &recordingPublisher{}
	s := NewCredentialService(Config{}, signer.NewHMACSigner("test-secret"), clock, nil, pub)

	_, err := s.IssueCredential(context.Background(), "user-42")
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "user-42", pub.events[0].Subject)
	assert.Equal(t, "1700043200", pub.events[0].Username)
	assert.Equal(t, int64(1700043200), pub.events[0].ExpiresAt.Unix())
}

func TestIssueCredential_PublishFailureDoesNotFail(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	s := NewCredentialService(Config{}, signer.NewHMACSigner("test-secret"), ports.SystemClock{}, nil, pub)

	cred, err := s.IssueCredential(context.Background(), "user-42")
	require.NoError(t, err)
	assert.NotEmpty(t, cred.Credential)
}

func TestIssueCredential_NoEventOnFailure(t *testing.T) {
	pub := &recordingPublisher{}
	s := NewCredentialService(Config{}, signer.NewHMACSigner(""), ports.SystemClock{}, nil, pub)

	_, err := s.IssueCredential(context.Background(), "user-42")
	require.Error(t, err)
	assert.Empty(t, pub.events)
}

func TestIssueCredential_RateLimited(t *testing.T) {
	cfg := Config{RateLimit: 2, RateWindow: time.Minute}
	s := NewCredentialService(cfg, signer.NewHMACSigner("test-secret"), ports.SystemClock{}, store.NewMemoryStore(), nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := s.IssueCredential(ctx, "user-42")
		require.NoError(t, err)
	}

	_, err := s.IssueCredential(ctx, "user-42")
	assert.ErrorIs(t, err, core.ErrRateLimited)

	_, err = s.IssueCredential(ctx, "user-43")
	assert.NoError(t, err)
}

func TestIssueCredential_LimiterErrorAllows(t *testing.T) {
	cfg := Config{RateLimit: 1, RateWindow: time.Minute}
	s := NewCredentialService(cfg, signer.NewHMACSigner("test-secret"), ports.SystemClock{}, brokenLimiter{}, nil)

	_, err := s.IssueCredential(context.Background(), "user-42")
	assert.NoError(t, err)
}

func TestIssueCredential_Concurrent(t *testing.T) {
	clock := &fixedClock{now: time.Unix(1700000000, 0)}
	s := newTestService("test-secret", clock)

	var wg sync.WaitGroup
	results := make([]*core.TurnCredential, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cred, err := s.IssueCredential(context.Background(), "user-42")
			assert.NoError(t, err)
			results[i] = cred
		}(i)
	}
	wg.Wait()

	for _, cred := range results {
		require.NotNil(t, cred)
		assert.Equal(t, results[0].Credential, cred.Credential)
	}
}

func TestVerify(t *testing.T) {
	clock := &fixedClock{now: time.Unix(1700000000, 0)}
	s := newTestService("test-secret", clock)

	cred, err := s.IssueCredential(context.Background(), "user-42")
	require.NoError(t, err)

	assert.NoError(t, s.Verify(cred.Username, cred.Credential))

	clock.Advance(12 * time.Hour)
	assert.NoError(t, s.Verify(cred.Username, cred.Credential), "valid up to and including the expiry second")

	clock.Advance(time.Second)
	assert.ErrorIs(t, s.Verify(cred.Username, cred.Credential), core.ErrCredentialExpired)
}

func TestVerify_TamperRejection(t *testing.T) {
	clock := &fixedClock{now: time.Unix(1700000000, 0)}
	s := newTestService("test-secret", clock)

	cred, err := s.IssueCredential(context.Background(), "user-42")
	require.NoError(t, err)

	for i := range cred.Credential {
		tampered := []byte(cred.Credential)
		if tampered[i] == 'A' {
			tampered[i] = 'B'
		} else {
			tampered[i] = 'A'
		}
		assert.ErrorIs(t, s.Verify(cred.Username, string(tampered)), core.ErrInvalidCredential, "position %d", i)
	}

	// a later expiry does not verify against the old credential
	assert.ErrorIs(t, s.Verify("1700043201", cred.Credential), core.ErrInvalidCredential)

	other := newTestService("other-secret", clock)
	assert.ErrorIs(t, other.Verify(cred.Username, cred.Credential), core.ErrInvalidCredential)
}

func TestVerify_MalformedUsername(t *testing.T) {
	s := newTestService("test-secret", ports.SystemClock{})
	assert.ErrorIs(t, s.Verify("alice", "whatever"), core.ErrMalformedUsername)
}
