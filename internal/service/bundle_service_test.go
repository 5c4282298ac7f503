package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mooc-credit-api/internal/dto"
	"github.com/noah-isme/mooc-credit-api/internal/models"
	appErrors "github.com/noah-isme/mooc-credit-api/pkg/errors"
)

func TestBundlePolicyRequiredHours(t *testing.T) {
	policy := BundlePolicy{HoursPerCredit: 10, Tolerance: 0.2}
	assert.InDelta(t, 24.0, policy.RequiredHours(3), 1e-9)
	assert.InDelta(t, 0.0, policy.RequiredHours(0), 1e-9)
	assert.InDelta(t, 30.0, BundlePolicy{HoursPerCredit: 10}.RequiredHours(3), 1e-9)
}

func TestBundleLifecycleWalkthrough(t *testing.T) {
	ctx := context.Background()
	c := newCampus(t)

	enrolled, err := c.enrollment.Enroll(ctx, c.studentClaims, dto.EnrollRequest{CourseID: c.courseID})
	require.NoError(t, err)
	assert.False(t, enrolled.Waiting)

	_, err = c.bundles.CreateBundle(ctx, c.studentClaims, c.courseID, dto.CreateBundleRequest{MoocIDs: []int64{c.moocShort}})
	requireKind(t, err, appErrors.ErrPolicyViolation)

	created, err := c.bundles.CreateBundle(ctx, c.studentClaims, c.courseID, dto.CreateBundleRequest{MoocIDs: []int64{c.moocShort, c.moocTiny}, Comment: " first try "})
	require.NoError(t, err)
	assert.Equal(t, models.BundleWaitingBundle, created.Status)
	assert.Len(t, created.Details, 2)
	assert.InDelta(t, 30.0, created.TotalHours, 1e-9)
	require.NotNil(t, created.Comment)
	assert.Equal(t, "first try", *created.Comment)

	err = c.bundles.ApproveBundle(ctx, c.otherCoordClaim, c.courseID, created.ID)
	requireKind(t, err, appErrors.ErrForbidden)
	assert.Equal(t, models.BundleWaitingBundle, c.status(t, created.ID))

	require.NoError(t, c.bundles.ApproveBundle(ctx, c.coordClaims, c.courseID, created.ID))
	assert.Equal(t, models.BundleWaitingCertificates, c.status(t, created.ID))
	err = c.bundles.ApproveBundle(ctx, c.coordClaims, c.courseID, created.ID)
	requireKind(t, err, appErrors.ErrInvalidState)

	for _, detailID := range c.detailIDs(created.ID) {
		require.NoError(t, c.bundles.SubmitCertificate(ctx, c.studentClaims, c.courseID, created.ID, dto.SubmitCertificateRequest{
			BundleDetailID: detailID,
			CertificateURL: "https://certs.example/" + strings.Repeat("x", 4),
		}))
	}
	require.NoError(t, c.bundles.CompleteBundle(ctx, c.studentClaims, c.courseID, created.ID, dto.CompleteBundleRequest{}))
	assert.Equal(t, models.BundleWaitingApproval, c.status(t, created.ID))

	clone, err := c.bundles.RejectCertificate(ctx, c.coordClaims, c.courseID, created.ID, dto.RejectRequest{Reason: "blurry scan"})
	require.NoError(t, err)
	assert.Equal(t, models.BundleRejectedCertificates, c.status(t, created.ID))
	assert.Equal(t, models.BundleWaitingCertificates, clone.Status)
	assert.NotEqual(t, created.ID, clone.ID)

	original, err := c.bundles.GetStudentBundle(ctx, c.studentClaims, c.courseID, created.ID)
	require.NoError(t, err)
	require.NotNil(t, original.RejectReason)
	assert.Equal(t, "blurry scan", *original.RejectReason)

	reopened, err := c.bundles.GetStudentBundle(ctx, c.studentClaims, c.courseID, clone.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, moocIDs(original.Details), moocIDs(reopened.Details))
	for _, d := range reopened.Details {
		assert.Nil(t, d.CertificateURL)
	}

	assert.Equal(t, []string{"MEF MOOC Bundle Approved", "MEF MOOC Certificates Rejected"}, c.notifier.subjects())
}

func TestBundleTransitionsRequireExactSourceStatus(t *testing.T) {
	statuses := []models.BundleStatus{
		models.BundleWaitingBundle,
		models.BundleRejectedBundle,
		models.BundleWaitingCertificates,
		models.BundleWaitingApproval,
		models.BundleRejectedCertificates,
		models.BundleAcceptedCertificates,
	}
	ops := []struct {
		name string
		from models.BundleStatus
		to   models.BundleStatus
		run  func(c *campus, bundleID int64) error
	}{
		{"approve bundle", models.BundleWaitingBundle, models.BundleWaitingCertificates, func(c *campus, id int64) error {
			return c.bundles.ApproveBundle(context.Background(), c.coordClaims, c.courseID, id)
		}},
		{"reject bundle", models.BundleWaitingBundle, models.BundleRejectedBundle, func(c *campus, id int64) error {
			return c.bundles.RejectBundle(context.Background(), c.coordClaims, c.courseID, id, dto.RejectRequest{Reason: "too short"})
		}},
		{"complete", models.BundleWaitingCertificates, models.BundleWaitingApproval, func(c *campus, id int64) error {
			return c.bundles.CompleteBundle(context.Background(), c.studentClaims, c.courseID, id, dto.CompleteBundleRequest{})
		}},
		{"approve certificate", models.BundleWaitingApproval, models.BundleAcceptedCertificates, func(c *campus, id int64) error {
			return c.bundles.ApproveCertificate(context.Background(), c.coordClaims, c.courseID, id)
		}},
		{"reject certificate", models.BundleWaitingApproval, models.BundleRejectedCertificates, func(c *campus, id int64) error {
			_, err := c.bundles.RejectCertificate(context.Background(), c.coordClaims, c.courseID, id, dto.RejectRequest{Reason: "unreadable"})
			return err
		}},
	}

	for _, op := range ops {
		for _, status := range statuses {
			op, status := op, status
			t.Run(op.name+" from "+string(status), func(t *testing.T) {
				c := newCampus(t)
				bundleID := c.bundleIn(t, c.enroll(t), status, true, c.moocShort, c.moocTiny)

				err := op.run(c, bundleID)
				if status == op.from {
					require.NoError(t, err)
					assert.Equal(t, op.to, c.status(t, bundleID))
					return
				}
				requireKind(t, err, appErrors.ErrInvalidState)
				assert.Equal(t, status, c.status(t, bundleID))
				assert.Empty(t, c.notifier.subjects())
			})
		}
	}
}

func TestCompleteBundleRequiresEveryCertificate(t *testing.T) {
	ctx := context.Background()
	c := newCampus(t)
	bundleID := c.bundleIn(t, c.enroll(t), models.BundleWaitingCertificates, false, c.moocShort, c.moocTiny)
	details := c.detailIDs(bundleID)

	require.NoError(t, c.bundles.SubmitCertificate(ctx, c.studentClaims, c.courseID, bundleID, dto.SubmitCertificateRequest{
		BundleDetailID: details[0],
		CertificateURL: "https://certs.example/one",
	}))
	err := c.bundles.CompleteBundle(ctx, c.studentClaims, c.courseID, bundleID, dto.CompleteBundleRequest{})
	requireKind(t, err, appErrors.ErrPolicyViolation)
	assert.Equal(t, models.BundleWaitingCertificates, c.status(t, bundleID))

	require.NoError(t, c.bundles.SubmitCertificate(ctx, c.studentClaims, c.courseID, bundleID, dto.SubmitCertificateRequest{
		BundleDetailID: details[1],
		CertificateURL: "https://certs.example/two",
	}))
	require.NoError(t, c.bundles.CompleteBundle(ctx, c.studentClaims, c.courseID, bundleID, dto.CompleteBundleRequest{Comment: "done"}))
	assert.Equal(t, models.BundleWaitingApproval, c.status(t, bundleID))
}

func TestSubmitCertificateRejectsForeignDetail(t *testing.T) {
	ctx := context.Background()
	c := newCampus(t)
	enrollmentID := c.enroll(t)
	bundleID := c.bundleIn(t, enrollmentID, models.BundleWaitingCertificates, false, c.moocShort)
	otherID := c.bundleIn(t, enrollmentID, models.BundleRejectedBundle, false, c.moocTiny)

	err := c.bundles.SubmitCertificate(ctx, c.studentClaims, c.courseID, bundleID, dto.SubmitCertificateRequest{
		BundleDetailID: c.detailIDs(otherID)[0],
		CertificateURL: "https://certs.example/x",
	})
	requireKind(t, err, appErrors.ErrNotFound)

	err = c.bundles.SubmitCertificate(ctx, c.studentClaims, c.courseID, otherID, dto.SubmitCertificateRequest{
		BundleDetailID: c.detailIDs(otherID)[0],
		CertificateURL: "https://certs.example/x",
	})
	requireKind(t, err, appErrors.ErrInvalidState)
}

func TestApproveCertificatePassesEnrollment(t *testing.T) {
	ctx := context.Background()
	c := newCampus(t)
	enrollmentID := c.enroll(t)
	bundleID := c.bundleIn(t, enrollmentID, models.BundleWaitingApproval, true, c.moocMedium)

	require.NoError(t, c.bundles.ApproveCertificate(ctx, c.coordClaims, c.courseID, bundleID))

	enrollment := c.store.enrollments[enrollmentID]
	require.NotNil(t, enrollment.Passed)
	assert.True(t, *enrollment.Passed)
	require.NotNil(t, enrollment.PassDate)
	assert.Equal(t, c.now, *enrollment.PassDate)
	assert.Equal(t, []string{"MEF MOOC Certificates Approved"}, c.notifier.subjects())
	assert.Equal(t, "ali@mef.edu.tr", c.notifier.sent[0].Email)
	assert.Contains(t, c.notifier.sent[0].Body, "Hello Ali Yilmaz")

	_, err := c.bundles.CreateBundle(ctx, c.studentClaims, c.courseID, dto.CreateBundleRequest{MoocIDs: []int64{c.moocLong}})
	requireKind(t, err, appErrors.ErrConflict)
}

func TestCreateBundleValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate moocs", func(t *testing.T) {
		c := newCampus(t)
		c.enroll(t)
		_, err := c.bundles.CreateBundle(ctx, c.studentClaims, c.courseID, dto.CreateBundleRequest{MoocIDs: []int64{c.moocLong, c.moocLong}})
		requireKind(t, err, appErrors.ErrInvalidInput)
	})

	t.Run("inactive mooc", func(t *testing.T) {
		c := newCampus(t)
		c.enroll(t)
		_, err := c.bundles.CreateBundle(ctx, c.studentClaims, c.courseID, dto.CreateBundleRequest{MoocIDs: []int64{c.moocInactive}})
		requireKind(t, err, appErrors.ErrInvalidInput)
	})

	t.Run("empty selection", func(t *testing.T) {
		c := newCampus(t)
		c.enroll(t)
		_, err := c.bundles.CreateBundle(ctx, c.studentClaims, c.courseID, dto.CreateBundleRequest{})
		requireKind(t, err, appErrors.ErrInvalidInput)
	})

	t.Run("not enrolled", func(t *testing.T) {
		c := newCampus(t)
		_, err := c.bundles.CreateBundle(ctx, c.studentClaims, c.courseID, dto.CreateBundleRequest{MoocIDs: []int64{c.moocLong}})
		requireKind(t, err, appErrors.ErrNotFound)
	})

	t.Run("waiting enrollment", func(t *testing.T) {
		c := newCampus(t)
		c.enroll(t)
		c.store.enrollmentFor(c.studentID, c.courseID).Waiting = true
		_, err := c.bundles.CreateBundle(ctx, c.studentClaims, c.courseID, dto.CreateBundleRequest{MoocIDs: []int64{c.moocLong}})
		requireKind(t, err, appErrors.ErrNotFound)
	})

	t.Run("inactive course", func(t *testing.T) {
		c := newCampus(t)
		c.enroll(t)
		c.store.courses[c.courseID].Active = false
		_, err := c.bundles.CreateBundle(ctx, c.studentClaims, c.courseID, dto.CreateBundleRequest{MoocIDs: []int64{c.moocLong}})
		requireKind(t, err, appErrors.ErrNotFound)
	})

	t.Run("coordinator token", func(t *testing.T) {
		c := newCampus(t)
		_, err := c.bundles.CreateBundle(ctx, c.coordClaims, c.courseID, dto.CreateBundleRequest{MoocIDs: []int64{c.moocLong}})
		requireKind(t, err, appErrors.ErrForbidden)
	})
}

func TestCreateBundleBlockedByOpenBundle(t *testing.T) {
	ctx := context.Background()
	c := newCampus(t)
	c.enroll(t)

	first, err := c.bundles.CreateBundle(ctx, c.studentClaims, c.courseID, dto.CreateBundleRequest{MoocIDs: []int64{c.moocLong}})
	require.NoError(t, err)

	_, err = c.bundles.CreateBundle(ctx, c.studentClaims, c.courseID, dto.CreateBundleRequest{MoocIDs: []int64{c.moocMedium}})
	requireKind(t, err, appErrors.ErrConflict)

	require.NoError(t, c.bundles.RejectBundle(ctx, c.coordClaims, c.courseID, first.ID, dto.RejectRequest{Reason: "pick harder courses"}))
	assert.Equal(t, []string{"MEF MOOC Bundle Rejected"}, c.notifier.subjects())
	assert.Contains(t, c.notifier.sent[0].Body, "pick harder courses")

	second, err := c.bundles.CreateBundle(ctx, c.studentClaims, c.courseID, dto.CreateBundleRequest{MoocIDs: []int64{c.moocMedium}})
	require.NoError(t, err)

	listed, err := c.bundles.ListStudentBundles(ctx, c.studentClaims, c.courseID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, second.ID, listed[0].ID)
	assert.Equal(t, models.BundleRejectedBundle, listed[1].Status)
}

func TestBundleDetailEditing(t *testing.T) {
	ctx := context.Background()
	c := newCampus(t)
	bundleID := c.bundleIn(t, c.enroll(t), models.BundleWaitingBundle, false, c.moocShort)

	detail, err := c.bundles.AddMooc(ctx, c.studentClaims, c.courseID, bundleID, dto.BundleMoocRequest{MoocID: c.moocTiny})
	require.NoError(t, err)
	assert.Equal(t, c.moocTiny, detail.MoocID)

	_, err = c.bundles.AddMooc(ctx, c.studentClaims, c.courseID, bundleID, dto.BundleMoocRequest{MoocID: c.moocTiny})
	requireKind(t, err, appErrors.ErrConflict)
	_, err = c.bundles.AddMooc(ctx, c.studentClaims, c.courseID, bundleID, dto.BundleMoocRequest{MoocID: c.moocInactive})
	requireKind(t, err, appErrors.ErrInvalidInput)

	require.NoError(t, c.bundles.UpdateDetail(ctx, c.studentClaims, c.courseID, bundleID, dto.UpdateBundleDetailRequest{BundleDetailID: detail.ID, MoocID: c.moocLong}))
	assert.Equal(t, c.moocLong, c.store.details[detail.ID].MoocID)

	details := c.detailIDs(bundleID)
	require.Len(t, details, 2)
	require.NoError(t, c.bundles.DeleteDetail(ctx, c.studentClaims, c.courseID, bundleID, dto.DeleteBundleDetailRequest{BundleDetailID: details[0]}))

	err = c.bundles.DeleteDetail(ctx, c.studentClaims, c.courseID, bundleID, dto.DeleteBundleDetailRequest{BundleDetailID: details[1]})
	requireKind(t, err, appErrors.ErrPolicyViolation)
	assert.Len(t, c.detailIDs(bundleID), 1)
}

func TestBundleDetailsLockedOnceSubmitted(t *testing.T) {
	ctx := context.Background()
	c := newCampus(t)
	bundleID := c.bundleIn(t, c.enroll(t), models.BundleWaitingApproval, true, c.moocShort, c.moocTiny)

	_, err := c.bundles.AddMooc(ctx, c.studentClaims, c.courseID, bundleID, dto.BundleMoocRequest{MoocID: c.moocLong})
	requireKind(t, err, appErrors.ErrInvalidState)

	err = c.bundles.DeleteDetail(ctx, c.studentClaims, c.courseID, bundleID, dto.DeleteBundleDetailRequest{BundleDetailID: c.detailIDs(bundleID)[0]})
	requireKind(t, err, appErrors.ErrInvalidState)
	assert.Len(t, c.detailIDs(bundleID), 2)
}

func TestStudentCannotReachAnotherStudentsBundle(t *testing.T) {
	ctx := context.Background()
	c := newCampus(t)
	bundleID := c.bundleIn(t, c.enroll(t), models.BundleWaitingCertificates, false, c.moocShort)

	c.store.students[101] = &models.Student{ID: 101, Name: "Zeynep", Email: "zeynep@mef.edu.tr", DepartmentID: c.departmentID}
	intruder := &models.JWTClaims{PrincipalID: 101, Role: models.RoleStudent}

	_, err := c.bundles.GetStudentBundle(ctx, intruder, c.courseID, bundleID)
	requireKind(t, err, appErrors.ErrNotFound)

	err = c.bundles.SubmitCertificate(ctx, intruder, c.courseID, bundleID, dto.SubmitCertificateRequest{
		BundleDetailID: c.detailIDs(bundleID)[0],
		CertificateURL: "https://certs.example/forged",
	})
	requireKind(t, err, appErrors.ErrNotFound)

	_, err = c.bundles.GetStudentBundle(ctx, c.studentClaims, c.otherCourseID, bundleID)
	requireKind(t, err, appErrors.ErrNotFound)
}

func TestCoordinatorGuardOnBundles(t *testing.T) {
	ctx := context.Background()
	c := newCampus(t)
	bundleID := c.bundleIn(t, c.enroll(t), models.BundleWaitingBundle, false, c.moocLong)

	// Own course in the URL but the bundle belongs to another department.
	err := c.bundles.ApproveBundle(ctx, c.otherCoordClaim, c.otherCourseID, bundleID)
	requireKind(t, err, appErrors.ErrForbidden)

	c.store.coordinators[c.coordinatorID].Active = false
	err = c.bundles.ApproveBundle(ctx, c.coordClaims, c.courseID, bundleID)
	requireKind(t, err, appErrors.ErrNotFound)
	c.store.coordinators[c.coordinatorID].Active = true

	err = c.bundles.ApproveBundle(ctx, c.studentClaims, c.courseID, bundleID)
	requireKind(t, err, appErrors.ErrForbidden)
	err = c.bundles.ApproveBundle(ctx, nil, c.courseID, bundleID)
	requireKind(t, err, appErrors.ErrUnauthorized)

	assert.Equal(t, models.BundleWaitingBundle, c.status(t, bundleID))
}

func TestListAndExportCourseBundles(t *testing.T) {
	ctx := context.Background()
	c := newCampus(t)
	c.bundleIn(t, c.enroll(t), models.BundleWaitingBundle, false, c.moocShort, c.moocTiny)

	rows, err := c.bundles.ListCourseBundles(ctx, c.coordClaims, c.courseID, "waiting-bundles")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "041901001", rows[0].StudentNo)

	empty, err := c.bundles.ListCourseBundles(ctx, c.coordClaims, c.courseID, "waiting-approval")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = c.bundles.ListCourseBundles(ctx, c.coordClaims, c.courseID, "pending")
	requireKind(t, err, appErrors.ErrInvalidInput)
	_, err = c.bundles.ListCourseBundles(ctx, c.otherCoordClaim, c.courseID, "waiting-bundles")
	requireKind(t, err, appErrors.ErrForbidden)

	file, err := c.bundles.ExportCourseBundles(ctx, c.coordClaims, c.courseID, "waiting-bundles", "csv")
	require.NoError(t, err)
	assert.Equal(t, "COMP101-waiting-bundles.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)
	assert.Contains(t, string(file.Data), "Python Basics")
	assert.Contains(t, string(file.Data), "ali@mef.edu.tr")

	_, err = c.bundles.ExportCourseBundles(ctx, c.coordClaims, c.courseID, "waiting-bundles", "xlsx")
	requireKind(t, err, appErrors.ErrInvalidInput)
}

func moocIDs(details []models.BundleDetailView) []int64 {
	out := make([]int64, len(details))
	for i, d := range details {
		out[i] = d.MoocID
	}
	return out
}

func TestRejectionsRequireNonBlankReason(t *testing.T) {
	ctx := context.Background()
	c := newCampus(t)
	enrollmentID := c.enroll(t)
	waitingBundle := c.bundleIn(t, enrollmentID, models.BundleWaitingBundle, false, c.moocShort, c.moocTiny)

	for _, reason := range []string{"", "   ", "\t\n"} {
		err := c.bundles.RejectBundle(ctx, c.coordClaims, c.courseID, waitingBundle, dto.RejectRequest{Reason: reason})
		requireKind(t, err, appErrors.ErrInvalidInput)
	}
	assert.Equal(t, models.BundleWaitingBundle, c.status(t, waitingBundle))

	require.NoError(t, c.bundles.RejectBundle(ctx, c.coordClaims, c.courseID, waitingBundle, dto.RejectRequest{Reason: "  too short  "}))
	rejected, err := c.bundles.GetStudentBundle(ctx, c.studentClaims, c.courseID, waitingBundle)
	require.NoError(t, err)
	require.NotNil(t, rejected.RejectReason)
	assert.Equal(t, "too short", *rejected.RejectReason)
	require.Len(t, c.notifier.sent, 1)
	assert.True(t, strings.HasSuffix(c.notifier.sent[0].Body, "Reason: too short"))

	c2 := newCampus(t)
	approval := c2.bundleIn(t, c2.enroll(t), models.BundleWaitingApproval, true, c2.moocShort, c2.moocTiny)
	_, err = c2.bundles.RejectCertificate(ctx, c2.coordClaims, c2.courseID, approval, dto.RejectRequest{Reason: "    "})
	requireKind(t, err, appErrors.ErrInvalidInput)
	assert.Equal(t, models.BundleWaitingApproval, c2.status(t, approval))
	assert.Empty(t, c2.notifier.subjects())
}
