package conversation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func roleMessages(roles ...Role) []Message {
	out := make([]Message, 0, len(roles))
	for _, role := range roles {
		out = append(out, Message{Role: role, Content: string(role) + "-content"})
	}
	return out
}

func roles(messages []Message) []Role {
	out := make([]Role, 0, len(messages))
	for _, msg := range messages {
		out = append(out, msg.Role)
	}
	return out
}

func TestTruncateMovesStartToNextUserWithinWindow(t *testing.T) {
	dialog := roleMessages(RoleUser, RoleAssistant, RoleUser, RoleAssistant, RoleTool, RoleUser, RoleAssistant)

	got := TruncateForHistory(dialog, 4)

	require.Equal(t, []Role{RoleUser, RoleAssistant}, roles(got))
}

func TestTruncateFallsBackToPreviousUser(t *testing.T) {
	dialog := roleMessages(RoleUser, RoleAssistant, RoleUser, RoleAssistant, RoleTool)

	got := TruncateForHistory(dialog, 2)

	require.Equal(t, []Role{RoleUser, RoleAssistant, RoleTool}, roles(got))
}

func TestTruncateReturnsEmptyWithoutUser(t *testing.T) {
	dialog := roleMessages(RoleAssistant, RoleTool, RoleAssistant)

	require.Empty(t, TruncateForHistory(dialog, 3))
}

func TestTruncateKeepsShortHistory(t *testing.T) {
	dialog := roleMessages(RoleUser, RoleAssistant)

	require.Equal(t, dialog, TruncateForHistory(dialog, 20))
	require.Empty(t, TruncateForHistory(dialog, 0))
}

func TestWithoutSystem(t *testing.T) {
	got := WithoutSystem(roleMessages(RoleSystem, RoleUser, RoleSystem, RoleAssistant))

	require.Equal(t, []Role{RoleUser, RoleAssistant}, roles(got))
}
