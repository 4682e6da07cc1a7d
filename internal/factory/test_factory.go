package factory

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/EliasAN1/Stacktictoe/internal/dependencies/mocks"
	"github.com/EliasAN1/Stacktictoe/internal/services/liveness"
	"github.com/EliasAN1/Stacktictoe/internal/services/lobby"
	"github.com/EliasAN1/Stacktictoe/internal/storage/memory"
	"github.com/EliasAN1/Stacktictoe/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock    *mocks.MockClock
	MockRandom   *mocks.MockRandom
	MockNotifier *mocks.Notifier
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	mockNotifier := mocks.NewNotifier()

	cfg := Config{
		LobbyConfig:    lobby.Config{PasswordCost: bcrypt.MinCost},
		LivenessConfig: liveness.Config{SessionIdleTimeout: 10 * time.Minute},
	}
	app := newWithDependencies(store, mockNotifier, mockClock, mockRandom, cfg, testutil.NopLogger())

	return &TestApp{
		App:          app,
		MockClock:    mockClock,
		MockRandom:   mockRandom,
		MockNotifier: mockNotifier,
	}
}
