package storagesvc

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"github.com/sims-edu/sims/core"
	"github.com/sims-edu/sims/core/upload"
)

// S3Presigner signs browser POST policies against an S3 compatible bucket.
// Signing is local: no request reaches the store.
type S3Presigner struct {
	client *s3.PresignClient
}

var _ upload.Presigner = (*S3Presigner)(nil) // interface compliance check

func NewS3Presigner(conf core.StorageConfig) *S3Presigner {
	opts := s3.Options{
		Region:      conf.Region,
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(conf.AccessKeyID, conf.SecretAccessKey, "")),
	}
	if conf.Endpoint != "" {
		opts.BaseEndpoint = aws.String(conf.Endpoint)
		opts.UsePathStyle = true
	}
	return &S3Presigner{client: s3.NewPresignClient(s3.New(opts))}
}

func (p *S3Presigner) PresignPost(ctx context.Context, policy upload.PostPolicy) (upload.PresignedPost, error) {
	req, err := p.client.PresignPostObject(ctx,
		&s3.PutObjectInput{
			Bucket: aws.String(policy.Bucket),
			Key:    aws.String(policy.Key),
		},
		func(o *s3.PresignPostOptions) {
			o.Expires = policy.Expires
			o.Conditions = []interface{}{
				map[string]string{"acl": policy.ACL},
				map[string]string{"Content-Type": policy.ContentType},
				[]interface{}{"content-length-range", policy.MinSize, policy.MaxSize},
			}
		},
	)
	if err != nil {
		return upload.PresignedPost{}, errors.Wrap(err, "presigning post")
	}

	fields := make(map[string]string, len(req.Values)+2)
	for k, v := range req.Values {
		fields[k] = v
	}
	fields["acl"] = policy.ACL
	fields["Content-Type"] = policy.ContentType
	return upload.PresignedPost{URL: req.URL, Fields: fields}, nil
}
