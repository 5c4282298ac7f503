package service

import (
	"context"

	"github.com/noah-isme/mooc-credit-api/internal/models"
)

type profileReader interface {
	Profile(ctx context.Context, id int64) (*models.StudentProfile, error)
}

// ProfileService exposes the calling student's own record.
type ProfileService struct {
	students profileReader
	guard    *AccessGuard
}

// NewProfileService constructs the service.
func NewProfileService(students profileReader, guard *AccessGuard) *ProfileService {
	return &ProfileService{students: students, guard: guard}
}

// StudentProfile returns the caller's profile with department name.
func (s *ProfileService) StudentProfile(ctx context.Context, claims *models.JWTClaims) (*models.StudentProfile, error) {
	student, err := s.guard.Student(ctx, claims)
	if err != nil {
		return nil, err
	}
	profile, err := s.students.Profile(ctx, student.ID)
	if err != nil {
		return nil, storeError(err, "student")
	}
	return profile, nil
}
