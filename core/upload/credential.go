package upload

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/sims-edu/sims/core"
	"github.com/sims-edu/sims/core/metrics"
)

const minUploadSize = 1

// ErrCredentialUnavailable is the message of the upstream error returned when signing fails.
var ErrCredentialUnavailable = errors.New("upload credential unavailable")

type (
	// PostPolicy is everything a presigned POST must be restricted to.
	PostPolicy struct {
		Bucket      string
		Key         string
		ContentType string
		ACL         string
		MinSize     int64
		MaxSize     int64
		Expires     time.Duration
	}

	PresignedPost struct {
		URL    string
		Fields map[string]string
	}

	// Presigner signs POST policies against an object store.
	Presigner interface {
		PresignPost(ctx context.Context, policy PostPolicy) (PresignedPost, error)
	}

	// Credential lets a client write exactly one object straight to the store.
	Credential struct {
		URL       string            `json:"url"`
		Fields    map[string]string `json:"fields"`
		MinSize   int64             `json:"min_size"`
		MaxSize   int64             `json:"max_size"`
		ExpiresAt time.Time         `json:"expires_at"`
	}

	Issuer struct {
		conf      core.StorageConfig
		presigner Presigner
	}
)

// NewIssuer validates the storage settings once, so a misconfiguration stops the process at start.
func NewIssuer(conf core.StorageConfig, presigner Presigner) (*Issuer, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if presigner == nil {
		return nil, errors.New("upload: nil presigner")
	}
	return &Issuer{conf: conf, presigner: presigner}, nil
}

// Issue signs a policy scoped to key and contentType.
func (iss *Issuer) Issue(ctx context.Context, key, contentType string) (Credential, error) {
	now := NowFunc().UTC()
	policy := PostPolicy{
		Bucket:      iss.conf.Bucket,
		Key:         key,
		ContentType: contentType,
		ACL:         iss.conf.DefaultACL,
		MinSize:     minUploadSize,
		MaxSize:     iss.conf.MaxSize,
		Expires:     iss.conf.PresignedExpiry,
	}

	post, err := iss.presigner.PresignPost(ctx, policy)
	if err != nil {
		metrics.CredentialFailures.Inc()
		return Credential{}, core.NewUpstreamError(ErrCredentialUnavailable.Error(), err)
	}
	return Credential{
		URL:       post.URL,
		Fields:    post.Fields,
		MinSize:   policy.MinSize,
		MaxSize:   policy.MaxSize,
		ExpiresAt: now.Add(policy.Expires),
	}, nil
}
