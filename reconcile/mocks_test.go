package reconcile

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

type MockGuildRoles struct {
	mock.Mock
}

func (m *MockGuildRoles) AddRole(ctx context.Context, discordID int64, roleName string) error {
	args := m.Called(ctx, discordID, roleName)
	return args.Error(0)
}

func (m *MockGuildRoles) RemoveRole(ctx context.Context, discordID int64, roleName string) error {
	args := m.Called(ctx, discordID, roleName)
	return args.Error(0)
}

func (m *MockGuildRoles) SetNickname(ctx context.Context, discordID int64, nickname string) error {
	args := m.Called(ctx, discordID, nickname)
	return args.Error(0)
}

func (m *MockGuildRoles) FindMemberByNickname(ctx context.Context, nickname string) (*MemberSnapshot, error) {
	args := m.Called(ctx, nickname)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MemberSnapshot), args.Error(1)
}

// recordingNotifier keeps every message it is asked to send
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Send(_ context.Context, _ string, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return nil
}

func (n *recordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}
