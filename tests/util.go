package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sims-edu/sims/core"
	"github.com/sims-edu/sims/core/classroom"
	"github.com/sims-edu/sims/core/upload"
	"github.com/sims-edu/sims/core/user"
)

// NopLogger discards everything.
type NopLogger struct{}

var _ core.Logger = NopLogger{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}

// FakePresigner signs nothing; it echoes the policy back as form fields.
type FakePresigner struct {
	Err      error
	Policies []upload.PostPolicy
}

var _ upload.Presigner = (*FakePresigner)(nil)

func (p *FakePresigner) PresignPost(_ context.Context, policy upload.PostPolicy) (upload.PresignedPost, error) {
	p.Policies = append(p.Policies, policy)
	if p.Err != nil {
		return upload.PresignedPost{}, p.Err
	}
	return upload.PresignedPost{
		URL: fmt.Sprintf("https://%s.s3.test", policy.Bucket),
		Fields: map[string]string{
			"key":          policy.Key,
			"acl":          policy.ACL,
			"Content-Type": policy.ContentType,
			"policy":       "e30=",
		},
	}, nil
}

// StorageConfig is a complete storage configuration pointing nowhere.
func StorageConfig() core.StorageConfig {
	return core.StorageConfig{
		AccessKeyID:     "AKIDTEST",
		SecretAccessKey: "secret",
		Region:          "us-east-1",
		Bucket:          "sims-test",
		DefaultACL:      "private",
		PresignedExpiry: time.Hour,
		MaxSize:         10 << 20,
	}
}

func CreateClassroom(t *testing.T, repo classroom.Repository, name string) classroom.Classroom {
	now := time.Now().UTC()
	cr, err := repo.CreateClassroom(context.Background(), classroom.Classroom{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateClassroom() failed: %v", err)
	}
	return cr
}

func CreateUser(t *testing.T, repo user.Repository, email, pwd string, isActive, isSuperuser bool) user.User {
	now := time.Now().UTC()
	usr := user.User{
		ID:          uuid.NewString(),
		Email:       email,
		FirstName:   "Test",
		LastName:    "User",
		IsActive:    isActive,
		IsSuperuser: isSuperuser,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateAdmin(t *testing.T, repo user.Repository, email, pwd string, isSuperuser bool) user.Actor {
	return user.Actor{User: CreateUser(t, repo, email, pwd, true, isSuperuser)}
}

func CreateStudent(t *testing.T, repo user.Repository, email, pwd, classroomID string, classRep bool) user.Actor {
	usr := CreateUser(t, repo, email, pwd, true, false)
	st, err := repo.CreateStudent(context.Background(), user.Student{
		ID:                  uuid.NewString(),
		UserID:              usr.ID,
		ClassroomID:         classroomID,
		ClassRepresentative: classRep,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return user.Actor{User: usr, Profile: st}
}

func CreateInstructor(t *testing.T, repo user.Repository, email, pwd string) user.Actor {
	usr := CreateUser(t, repo, email, pwd, true, false)
	in, err := repo.CreateInstructor(context.Background(), user.Instructor{ID: uuid.NewString(), UserID: usr.ID})
	if err != nil {
		t.Fatalf("CreateInstructor() failed: %v", err)
	}
	return user.Actor{User: usr, Profile: in}
}
