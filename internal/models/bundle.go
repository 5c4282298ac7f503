package models

import "time"

// BundleStatus is the persisted lifecycle state of a bundle.
type BundleStatus string

// Bundle statuses. The literals are stored verbatim.
const (
	BundleWaitingBundle        BundleStatus = "Waiting Bundle"
	BundleRejectedBundle       BundleStatus = "Rejected Bundle"
	BundleWaitingCertificates  BundleStatus = "Waiting Certificates"
	BundleWaitingApproval      BundleStatus = "Waiting Approval"
	BundleRejectedCertificates BundleStatus = "Rejected Certificates"
	BundleAcceptedCertificates BundleStatus = "Accepted Certificates"
)

var bundleStatusSlugs = map[string]BundleStatus{
	"waiting-bundles":       BundleWaitingBundle,
	"rejected-bundles":      BundleRejectedBundle,
	"waiting-certificates":  BundleWaitingCertificates,
	"waiting-approval":      BundleWaitingApproval,
	"rejected-certificates": BundleRejectedCertificates,
	"accepted-certificates": BundleAcceptedCertificates,
}

// BundleStatusFromSlug resolves a URL slug such as "waiting-approval".
func BundleStatusFromSlug(slug string) (BundleStatus, bool) {
	status, ok := bundleStatusSlugs[slug]
	return status, ok
}

// Slug returns the URL slug of the status.
func (s BundleStatus) Slug() string {
	for slug, status := range bundleStatusSlugs {
		if status == s {
			return slug
		}
	}
	return ""
}

// Valid reports whether s is a known status.
func (s BundleStatus) Valid() bool {
	return s.Slug() != ""
}

// Open reports whether the bundle still blocks a new one for its enrollment.
func (s BundleStatus) Open() bool {
	switch s {
	case BundleWaitingBundle, BundleWaitingCertificates, BundleWaitingApproval:
		return true
	}
	return false
}

// DetailsEditable reports whether the detail set may change in this status.
func (s BundleStatus) DetailsEditable() bool {
	return s == BundleWaitingBundle || s == BundleWaitingCertificates
}

// OpenBundleStatuses lists the statuses that block bundle creation, together
// with an accepted bundle.
var OpenBundleStatuses = []BundleStatus{
	BundleWaitingBundle,
	BundleWaitingCertificates,
	BundleWaitingApproval,
}

// Bundle is a student's set of MOOC selections for one enrollment.
type Bundle struct {
	ID                       int64        `db:"id" json:"id"`
	EnrollmentID             int64        `db:"enrollment_id" json:"enrollment_id"`
	Status                   BundleStatus `db:"status" json:"status"`
	Comment                  *string      `db:"comment" json:"comment,omitempty"`
	RejectReason             *string      `db:"reject_reason" json:"reject_reason,omitempty"`
	BundleCoordinatorID      *int64       `db:"bundle_coordinator_id" json:"bundle_coordinator_id,omitempty"`
	BundleDecidedAt          *time.Time   `db:"bundle_decided_at" json:"bundle_decided_at,omitempty"`
	CertificateCoordinatorID *int64       `db:"certificate_coordinator_id" json:"certificate_coordinator_id,omitempty"`
	CertificateDecidedAt     *time.Time   `db:"certificate_decided_at" json:"certificate_decided_at,omitempty"`
	CompleteDate             *time.Time   `db:"complete_date" json:"complete_date,omitempty"`
	CreatedAt                time.Time    `db:"created_at" json:"created_at"`
}

// BundleDetail is one MOOC membership row within a bundle.
type BundleDetail struct {
	ID             int64     `db:"id" json:"id"`
	BundleID       int64     `db:"bundle_id" json:"bundle_id"`
	MoocID         int64     `db:"mooc_id" json:"mooc_id"`
	CertificateURL *string   `db:"certificate_url" json:"certificate_url"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Certified reports whether the detail carries a certificate URL.
func (d BundleDetail) Certified() bool {
	return d.CertificateURL != nil && *d.CertificateURL != ""
}

// BundleDetailView is a detail joined with its MOOC.
type BundleDetailView struct {
	BundleDetail
	MoocName     string  `db:"mooc_name" json:"mooc_name"`
	MoocURL      string  `db:"mooc_url" json:"mooc_url"`
	AverageHours float64 `db:"average_hours" json:"average_hours"`
}

// BundleScope is the ownership chain of a bundle, used for authorization and
// notifications.
type BundleScope struct {
	BundleID         int64        `db:"bundle_id"`
	Status           BundleStatus `db:"status"`
	EnrollmentID     int64        `db:"enrollment_id"`
	StudentID        int64        `db:"student_id"`
	StudentEmail     string       `db:"student_email"`
	StudentName      string       `db:"student_name"`
	CourseID         int64        `db:"course_id"`
	CourseCode       string       `db:"course_code"`
	CourseName       string       `db:"course_name"`
	CourseActive     bool         `db:"course_active"`
	CourseDepartment int64        `db:"department_id"`
}

// BundleWithDetails groups a bundle and its MOOC rows.
type BundleWithDetails struct {
	Bundle
	Details    []BundleDetailView `json:"details"`
	TotalHours float64            `json:"total_hours"`
}

// CourseBundleRow is one detail line of a course's bundle listing.
type CourseBundleRow struct {
	BundleID        int64        `db:"bundle_id" json:"bundle_id"`
	Status          BundleStatus `db:"status" json:"status"`
	BundleCreatedAt time.Time    `db:"bundle_created_at" json:"bundle_created_at"`
	Comment         *string      `db:"comment" json:"comment,omitempty"`
	RejectReason    *string      `db:"reject_reason" json:"reject_reason,omitempty"`
	StudentID       int64        `db:"student_id" json:"student_id"`
	StudentNo       string       `db:"student_no" json:"student_no"`
	StudentName     string       `db:"student_name" json:"student_name"`
	StudentSurname  string       `db:"student_surname" json:"student_surname"`
	StudentEmail    string       `db:"student_email" json:"student_email"`
	PassDate        *time.Time   `db:"pass_date" json:"pass_date,omitempty"`
	BundleDetailID  int64        `db:"bundle_detail_id" json:"bundle_detail_id"`
	MoocName        string       `db:"mooc_name" json:"mooc_name"`
	MoocURL         string       `db:"mooc_url" json:"mooc_url"`
	AverageHours    float64      `db:"average_hours" json:"average_hours"`
	CertificateURL  *string      `db:"certificate_url" json:"certificate_url"`
	CoordinatorName *string      `db:"coordinator_name" json:"coordinator_name"`
}

// BundleDecision records who moved a bundle and why.
type BundleDecision struct {
	BundleID      int64
	CoordinatorID int64
	Reason        string
	DecidedAt     time.Time
}
