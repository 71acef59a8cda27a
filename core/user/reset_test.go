package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sims-edu/sims/core"
	"github.com/sims-edu/sims/core/user"
	"github.com/sims-edu/sims/storage/database/dummy"
	"github.com/sims-edu/sims/tests"
)

type mailRecorder struct {
	sent []*core.EmailMessage
}

func (m *mailRecorder) SendMessages(messages ...*core.EmailMessage) {
	m.sent = append(m.sent, messages...)
}

func newResetter(t *testing.T) (*user.Resetter, user.Repository, *mailRecorder) {
	user.LoadCommonPasswords(testutil.NopLogger{})
	repo := dummydb.NewUserRepository(dummydb.Open())
	mails := new(mailRecorder)
	conf := &core.Config{SecretKey: "secret", PasswordResetTimeoutDelta: 72 * time.Hour}
	return user.NewResetter(repo, mails, conf, testutil.NopLogger{}), repo, mails
}

func fieldOf(t *testing.T, err error) string {
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "got %v", err)
	require.Len(t, vErr.Fields, 1)
	return vErr.Fields[0].Field
}

func TestResetter_Request(t *testing.T) {
	r, repo, mails := newResetter(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, repo, "jane@test.cd", "Sup3r$ecret!", true, false)
	testutil.CreateUser(t, repo, "gone@test.cd", "Sup3r$ecret!", false, false)

	assert.Equal(t, user.ErrNotFound, errors.Cause(r.Request(ctx, "nobody@test.cd")))
	assert.NoError(t, r.Request(ctx, "gone@test.cd"))
	assert.Empty(t, mails.sent)

	require.NoError(t, r.Request(ctx, " JANE@test.cd "))
	require.Len(t, mails.sent, 1)
	msg := mails.sent[0]
	assert.Equal(t, "password_reset", msg.TemplateName)
	assert.Equal(t, usr.Email, msg.To[0].Address)
	assert.Equal(t, "Password reset", msg.Subject)
}

func TestResetter_Confirm(t *testing.T) {
	r, repo, _ := newResetter(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, repo, "jane@test.cd", "Sup3r$ecret!", true, false)
	gone := testutil.CreateUser(t, repo, "gone@test.cd", "Sup3r$ecret!", false, false)
	uid := user.EncodeUID(usr)
	token, err := r.MakeToken(usr)
	require.NoError(t, err)
	goneToken, err := r.MakeToken(gone)
	require.NoError(t, err)

	user.NowFunc = func() time.Time { return time.Now().Add(-96 * time.Hour) }
	expired, err := r.MakeToken(usr)
	user.NowFunc = time.Now
	require.NoError(t, err)

	reset := func(uid, token, pwd string) user.ResetUserPassword {
		return user.ResetUserPassword{UID: uid, Token: token, Password: pwd, PasswordConfirm: pwd}
	}

	tests := []struct {
		name  string
		rp    user.ResetUserPassword
		field string
	}{
		{name: "malformed uid", rp: reset("%%%", token, "N3w$ecret!x"), field: "uid"},
		{name: "uid is not a user id", rp: reset("bG9s", token, "N3w$ecret!x"), field: "uid"},
		{name: "unknown user", rp: reset(user.EncodeUID(user.User{ID: uuid.NewString()}), token, "N3w$ecret!x"), field: "uid"},
		{name: "inactive user", rp: reset(user.EncodeUID(gone), goneToken, "N3w$ecret!x"), field: "uid"},
		{name: "token of another user", rp: reset(uid, goneToken, "N3w$ecret!x"), field: "token"},
		{name: "garbage token", rp: reset(uid, "nope", "N3w$ecret!x"), field: "token"},
		{name: "tampered token", rp: reset(uid, token+"x", "N3w$ecret!x"), field: "token"},
		{name: "expired token", rp: reset(uid, expired, "N3w$ecret!x"), field: "token"},
		{name: "password similar to the email", rp: reset(uid, token, "Jane@test1"), field: "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.field, fieldOf(t, r.Confirm(ctx, tt.rp)))
		})
	}

	t.Run("reset", func(t *testing.T) {
		require.NoError(t, r.Confirm(ctx, reset(uid, token, "N3w$ecret!x")))

		got, err := repo.GetUserByID(ctx, usr.ID)
		require.NoError(t, err)
		assert.NoError(t, got.CheckPassword("N3w$ecret!x"))

		// single use
		assert.Equal(t, "token", fieldOf(t, r.Confirm(ctx, reset(uid, token, "An0ther$ecret"))))
	})

	t.Run("a login voids the token", func(t *testing.T) {
		fresh, err := repo.GetUserByID(ctx, usr.ID)
		require.NoError(t, err)
		token, err := r.MakeToken(fresh)
		require.NoError(t, err)

		now := time.Now().UTC()
		fresh.LastLogin = &now
		_, err = repo.UpdateUser(ctx, fresh)
		require.NoError(t, err)

		assert.Equal(t, "token", fieldOf(t, r.Confirm(ctx, reset(uid, token, "An0ther$ecret"))))
	})
}
