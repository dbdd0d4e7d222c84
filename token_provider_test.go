package identity_test

import (
	"encoding/base64"
	"sync"
	"testing"
	"time"

	identity "github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	secret             string
	secretBase64       string
	validity           int
	validityRememberMe int
	issuer             string
	audience           []string
}

func (c testConfig) GetSigningSecret() string                    { return c.secret }
func (c testConfig) GetSigningSecretBase64() string              { return c.secretBase64 }
func (c testConfig) GetTokenValidityInSeconds() int              { return c.validity }
func (c testConfig) GetTokenValidityInSecondsForRememberMe() int { return c.validityRememberMe }
func (c testConfig) GetIssuer() string                           { return c.issuer }
func (c testConfig) GetAudience() []string                       { return c.audience }

type recordingLogger struct {
	mu       sync.Mutex
	warnings []string
}

func (l *recordingLogger) Debug(format string, args ...any) {}
func (l *recordingLogger) Info(format string, args ...any)  {}
func (l *recordingLogger) Error(format string, args ...any) {}
func (l *recordingLogger) Warn(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, format)
}

// testClock is a controllable wall clock for expiry scenarios.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNewTokenProvider(t *testing.T) {
	t.Run("fails without any signing secret", func(t *testing.T) {
		_, err := identity.NewTokenProvider(testConfig{validity: 60, validityRememberMe: 300})

		assert.ErrorIs(t, err, identity.ErrSigningKeyMissing)
	})

	t.Run("raw secret is accepted with a lower-security warning", func(t *testing.T) {
		logger := &recordingLogger{}

		provider, err := identity.NewTokenProvider(testConfig{
			secret:             "test-signing-key",
			validity:           60,
			validityRememberMe: 300,
		}, identity.WithLogger(logger))

		require.NoError(t, err)
		assert.NotNil(t, provider)
		assert.Len(t, logger.warnings, 1)
	})

	t.Run("base64 secret is decoded to raw bytes", func(t *testing.T) {
		logger := &recordingLogger{}
		encoded := base64.StdEncoding.EncodeToString([]byte("test-signing-key"))

		provider, err := identity.NewTokenProvider(testConfig{
			secretBase64:       encoded,
			validity:           60,
			validityRememberMe: 300,
		}, identity.WithLogger(logger))

		require.NoError(t, err)
		assert.NotNil(t, provider)
		assert.Empty(t, logger.warnings)
	})

	t.Run("invalid base64 secret is a configuration error", func(t *testing.T) {
		_, err := identity.NewTokenProvider(testConfig{
			secretBase64: "%%%not-base64%%%",
			validity:     60,
		})

		assert.Error(t, err)
	})

	t.Run("raw and base64 secrets produce interchangeable keys", func(t *testing.T) {
		raw, err := identity.NewTokenProvider(testConfig{
			secret:   "test-signing-key",
			validity: 60,
		})
		require.NoError(t, err)

		decoded, err := identity.NewTokenProvider(testConfig{
			secretBase64: base64.StdEncoding.EncodeToString([]byte("test-signing-key")),
			validity:     60,
		})
		require.NoError(t, err)

		principal := &identity.Principal{Name: "admin", Roles: []string{"ROLE_ADMIN"}}
		token, err := raw.CreateToken(principal, false)
		require.NoError(t, err)

		_, err = decoded.Validate(token)
		assert.NoError(t, err)
	})
}

func TestTokenProvider_RoundTrip(t *testing.T) {
	provider, err := identity.NewTokenProvider(testConfig{
		secret:             "test-signing-key",
		validity:           60,
		validityRememberMe: 2592000,
		issuer:             "go-identity",
	})
	require.NoError(t, err)

	for _, rememberMe := range []bool{false, true} {
		principal := &identity.Principal{
			Name:  "admin",
			Roles: []string{"ROLE_ADMIN", "ROLE_USER"},
		}

		token, err := provider.CreateToken(principal, rememberMe)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		verified, err := provider.VerifyPrincipal(token)
		require.NoError(t, err)
		assert.Equal(t, principal.Name, verified.Name)
		assert.ElementsMatch(t, principal.Roles, verified.Roles)
	}
}

func TestTokenProvider_RoundTripWithoutRoles(t *testing.T) {
	provider, err := identity.NewTokenProvider(testConfig{
		secret:   "test-signing-key",
		validity: 60,
	})
	require.NoError(t, err)

	token, err := provider.CreateToken(&identity.Principal{Name: "anonymous"}, false)
	require.NoError(t, err)

	verified, err := provider.VerifyPrincipal(token)
	require.NoError(t, err)
	assert.Equal(t, "anonymous", verified.Name)
	assert.Empty(t, verified.Roles)
}

func TestTokenProvider_Expiry(t *testing.T) {
	clock := newTestClock()

	provider, err := identity.NewTokenProvider(testConfig{
		secret:             "test-signing-key",
		validity:           60,
		validityRememberMe: 300,
	}, identity.WithTimeFunc(clock.Now))
	require.NoError(t, err)

	principal := &identity.Principal{Name: "admin", Roles: []string{"ROLE_ADMIN", "ROLE_USER"}}

	t.Run("short window verifies before expiry and fails after", func(t *testing.T) {
		token, err := provider.CreateToken(principal, false)
		require.NoError(t, err)

		clock.Advance(30 * time.Second)
		verified, err := provider.VerifyPrincipal(token)
		require.NoError(t, err)
		assert.True(t, verified.HasRole("ROLE_ADMIN"))
		assert.True(t, verified.HasRole("ROLE_USER"))

		clock.Advance(60 * time.Second)
		_, err = provider.Validate(token)
		assert.ErrorIs(t, err, identity.ErrTokenExpired)
		assert.True(t, identity.IsTokenExpiredError(err))
	})

	t.Run("remember me selects the longer window", func(t *testing.T) {
		token, err := provider.CreateToken(principal, true)
		require.NoError(t, err)

		clock.Advance(90 * time.Second)
		_, err = provider.Validate(token)
		require.NoError(t, err)

		clock.Advance(300 * time.Second)
		_, err = provider.Validate(token)
		assert.ErrorIs(t, err, identity.ErrTokenExpired)
	})
}

func TestTokenProvider_Validate(t *testing.T) {
	provider, err := identity.NewTokenProvider(testConfig{
		secret:   "test-signing-key",
		validity: 60,
	})
	require.NoError(t, err)

	t.Run("rejects tokens signed with a different key", func(t *testing.T) {
		other, err := identity.NewTokenProvider(testConfig{
			secret:   "another-signing-key",
			validity: 60,
		})
		require.NoError(t, err)

		token, err := other.CreateToken(&identity.Principal{Name: "admin"}, false)
		require.NoError(t, err)

		_, err = provider.Validate(token)
		assert.ErrorIs(t, err, identity.ErrTokenInvalidSignature)
	})

	t.Run("rejects garbage input as malformed", func(t *testing.T) {
		_, err := provider.Validate("not-a-token")

		assert.True(t, identity.IsMalformedError(err))
	})

	t.Run("rejects an empty token", func(t *testing.T) {
		_, err := provider.Validate("")
		assert.Error(t, err)
	})

	t.Run("enforces issuer when configured", func(t *testing.T) {
		issuing, err := identity.NewTokenProvider(testConfig{
			secret:   "test-signing-key",
			validity: 60,
			issuer:   "someone-else",
		})
		require.NoError(t, err)

		verifying, err := identity.NewTokenProvider(testConfig{
			secret:   "test-signing-key",
			validity: 60,
			issuer:   "go-identity",
		})
		require.NoError(t, err)

		token, err := issuing.CreateToken(&identity.Principal{Name: "admin"}, false)
		require.NoError(t, err)

		_, err = verifying.Validate(token)
		assert.Error(t, err)
	})
}

func TestTokenProvider_ConcurrentUse(t *testing.T) {
	provider, err := identity.NewTokenProvider(testConfig{
		secret:   "test-signing-key",
		validity: 60,
	})
	require.NoError(t, err)

	principal := &identity.Principal{Name: "admin", Roles: []string{"ROLE_ADMIN"}}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := provider.CreateToken(principal, false)
			assert.NoError(t, err)

			verified, err := provider.VerifyPrincipal(token)
			assert.NoError(t, err)
			assert.Equal(t, "admin", verified.Name)
		}()
	}
	wg.Wait()
}
