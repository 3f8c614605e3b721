package domain

import (
	"fmt"
	"testing"

	staffdomain "github.com/imaginearsclub/backstage/internal/staff/domain"
	"github.com/stretchr/testify/require"
)

func TestParseNormalizesTargets(t *testing.T) {
	req, err := Parse(RawRequest{
		Operation: KindChangeRole,
		NewRole:   "moderator",
		Users:     []string{"A@Example.com ", "b@example.com"},
	}, 100)
	require.NoError(t, err)

	require.Equal(t, []string{"a@example.com", "b@example.com"}, req.Users)
	op, ok := req.Op.(ChangeRoleOp)
	require.True(t, ok)
	require.Equal(t, staffdomain.RoleModerator, op.NewRole)
}

func TestParseRejectsDuplicateTargets(t *testing.T) {
	// Case and whitespace variants of the same address count as one
	// target; a request listing it twice must fail validation, so a
	// two-element users list can never come back with total=1.
	_, err := Parse(RawRequest{
		Operation: KindSuspend,
		Users:     []string{"a@example.com", "A@Example.com "},
	}, 100)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 1)
	require.Equal(t, "users[1]", verr.Fields[0].Field)
	require.Equal(t, "duplicate", verr.Fields[0].Code)
}

func TestParseEnforcesTargetCap(t *testing.T) {
	users := make([]string, 101)
	for i := range users {
		users[i] = fmt.Sprintf("user%d@example.com", i)
	}

	_, err := Parse(RawRequest{Operation: KindSuspend, Users: users}, 100)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "users", verr.Fields[0].Field)
	require.Equal(t, "too_many", verr.Fields[0].Code)
}

func TestParseRequiresUsers(t *testing.T) {
	_, err := Parse(RawRequest{Operation: KindActivate}, 100)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "required", verr.Fields[0].Code)
}

func TestParseChangeRoleRequiresKnownRole(t *testing.T) {
	_, err := Parse(RawRequest{
		Operation: KindChangeRole,
		NewRole:   "SUPERUSER",
		Users:     []string{"a@example.com"},
	}, 100)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "newRole", verr.Fields[0].Field)
}

func TestParseSubjectBounds(t *testing.T) {
	long := make([]byte, 201)
	for i := range long {
		long[i] = 'x'
	}

	_, err := Parse(RawRequest{
		Operation:    KindSendEmail,
		EmailSubject: string(long),
		EmailBody:    "hello",
		Users:        []string{"a@example.com"},
	}, 100)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "too_long", verr.Fields[0].Code)
}
