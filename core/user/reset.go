package user

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"math"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/sims-edu/sims/core"
)

const (
	passwordResetTemplate = "password_reset"
	invalidValueText      = "invalid value"
)

var (
	salt = []byte("sims.core.user.reset")
	b32  = base32.StdEncoding.WithPadding(base32.NoPadding)

	// errors
	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// Resetter issues and redeems single-use password reset tokens.
// A token stops working once the password or the last login changes, or after the timeout.
type Resetter struct {
	repo      Repository
	mailSvc   core.EmailService
	logger    core.Logger
	secretKey string
	timeout   time.Duration
}

func NewResetter(repo Repository, mailSvc core.EmailService, conf *core.Config, logger core.Logger) *Resetter {
	return &Resetter{
		repo:      repo,
		mailSvc:   mailSvc,
		logger:    logger,
		secretKey: conf.SecretKey,
		timeout:   conf.PasswordResetTimeoutDelta,
	}
}

type passwordResetData struct {
	Name  string
	UID   string
	Token string
}

// Request mails a reset link to an active user. Unknown emails return ErrNotFound;
// inactive users are skipped silently.
func (r *Resetter) Request(ctx context.Context, email string) error {
	usr, err := r.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if !usr.IsActive {
		r.logger.Info(fmt.Sprintf("password reset requested for inactive user %s", usr.ID))
		return nil
	}

	token, err := r.MakeToken(usr)
	if err != nil {
		return errors.Wrap(err, "making reset token")
	}
	name := usr.FullName()
	if name == "" {
		name = usr.Email
	}
	r.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
		Subject:      "Password reset",
		TemplateName: passwordResetTemplate,
		TemplateData: passwordResetData{Name: name, UID: EncodeUID(usr), Token: token},
	})
	return nil
}

// Confirm sets a new password if the uid & token pair is valid.
func (r *Resetter) Confirm(ctx context.Context, rp ResetUserPassword) error {
	id, err := decodeUID(rp.UID)
	if err == nil {
		_, err = uuid.Parse(id)
	}
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "uid", Error: invalidValueText})
	}
	usr, err := r.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "uid", Error: invalidValueText})
		}
		return errors.Wrap(err, "finding user")
	}
	if !usr.IsActive {
		return core.NewValidationError(ErrAccountDeactivated, core.FieldError{Field: "uid", Error: invalidValueText})
	}
	if err = r.verifyToken(usr, rp.Token); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "token", Error: invalidValueText})
	}
	if tag := CheckPasswordPolicy(rp.Password, usr.FirstName, usr.LastName, usr.Email); tag != "" {
		return core.NewValidationError(nil, core.FieldError{Field: "password", Error: PasswordPolicyText(tag)})
	}

	if err = usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = NowFunc().UTC()
	_, err = r.repo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "updating user")
}

// EncodeUID base64 encodes the User ID for use in reset links.
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

func decodeUID(uid string) (string, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(idBytes), nil
}

// MakeToken generates a password reset token for usr, dated NowFunc.
func (r *Resetter) MakeToken(usr User) (string, error) {
	return r.makeTokenWithTimestamp(usr, numDaysSince2001(NowFunc()))
}

func (r *Resetter) verifyToken(usr User, token string) error {
	if token == "" {
		return errInvalidToken
	}
	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return errInvalidToken
	}

	data, err := b32.DecodeString(parts[0])
	if err != nil {
		return errInvalidToken
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return errInvalidToken
	}

	// check that the token has not been tampered with
	want, err := r.makeTokenWithTimestamp(usr, ts)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(token)) == 0 {
		return errInvalidToken
	}

	if numDaysSince2001(NowFunc())-ts > int(r.timeout/(24*time.Hour)) {
		return errTokenExpired
	}
	return nil
}

func (r *Resetter) makeTokenWithTimestamp(usr User, ts int) (string, error) {
	sig, err := r.sign(hashValue(usr, ts))
	if err != nil {
		return "", err
	}
	return b32.EncodeToString([]byte(strconv.Itoa(ts))) + "-" + sig, nil
}

func (r *Resetter) sign(val []byte) (string, error) {
	key := sha256.Sum256(append(append([]byte{}, salt...), r.secretKey...))
	h := hmac.New(sha256.New, key[:])
	if _, err := h.Write(val); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

// hashValue covers the fields a successful reset or login changes.
func hashValue(usr User, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(usr.ID)
	val.Write(usr.PasswordHash)
	if usr.LastLogin != nil {
		val.WriteString(usr.LastLogin.UTC().Truncate(time.Microsecond).Format(time.RFC3339Nano))
	}
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}

func numDaysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}
