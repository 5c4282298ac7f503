package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/mooc-credit-api/internal/models"
	"github.com/noah-isme/mooc-credit-api/pkg/database"
)

// BundleRepository persists bundles and their details. Every status change is
// a conditional update on the expected source status; a miss is reported as
// ErrStatusMismatch and writes nothing.
type BundleRepository struct {
	db *sqlx.DB
}

// NewBundleRepository constructs the repository.
func NewBundleRepository(db *sqlx.DB) *BundleRepository {
	return &BundleRepository{db: db}
}

const bundleColumns = `id, enrollment_id, status, comment, reject_reason, bundle_coordinator_id, bundle_decided_at,
       certificate_coordinator_id, certificate_decided_at, complete_date, created_at`

// FindByID fetches a bundle.
func (r *BundleRepository) FindByID(ctx context.Context, id int64) (*models.Bundle, error) {
	var b models.Bundle
	query := `SELECT ` + bundleColumns + ` FROM bundle WHERE id = $1`
	if err := r.db.GetContext(ctx, &b, query, id); err != nil {
		return nil, err
	}
	return &b, nil
}

// Scope loads the ownership chain of a bundle.
func (r *BundleRepository) Scope(ctx context.Context, id int64) (*models.BundleScope, error) {
	const query = `SELECT b.id AS bundle_id, b.status, b.enrollment_id,
       s.id AS student_id, s.email AS student_email, CONCAT(s.name, ' ', s.surname) AS student_name,
       c.id AS course_id, c.course_code, c.name AS course_name, c.is_active AS course_active, c.department_id
	FROM bundle b
	JOIN enrollment e ON e.id = b.enrollment_id
	JOIN student s ON s.id = e.student_id
	JOIN mefcourse c ON c.id = e.course_id
	WHERE b.id = $1`
	var scope models.BundleScope
	if err := r.db.GetContext(ctx, &scope, query, id); err != nil {
		return nil, err
	}
	return &scope, nil
}

// ListByEnrollment returns the enrollment's bundles, newest first.
func (r *BundleRepository) ListByEnrollment(ctx context.Context, enrollmentID int64) ([]models.Bundle, error) {
	query := `SELECT ` + bundleColumns + ` FROM bundle WHERE enrollment_id = $1 ORDER BY created_at DESC, id DESC`
	var items []models.Bundle
	if err := r.db.SelectContext(ctx, &items, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list bundles: %w", err)
	}
	return items, nil
}

// Details returns the bundle's details joined with their MOOC.
func (r *BundleRepository) Details(ctx context.Context, bundleID int64) ([]models.BundleDetailView, error) {
	const query = `SELECT bd.id, bd.bundle_id, bd.mooc_id, bd.certificate_url, bd.created_at,
       m.name AS mooc_name, COALESCE(m.url, '') AS mooc_url, m.average_hours
	FROM bundle_detail bd
	JOIN mooc m ON m.id = bd.mooc_id
	WHERE bd.bundle_id = $1
	ORDER BY bd.id`
	var items []models.BundleDetailView
	if err := r.db.SelectContext(ctx, &items, query, bundleID); err != nil {
		return nil, fmt.Errorf("list bundle details: %w", err)
	}
	return items, nil
}

// DetailsByBundles returns the details of several bundles keyed by bundle ID.
func (r *BundleRepository) DetailsByBundles(ctx context.Context, bundleIDs []int64) (map[int64][]models.BundleDetailView, error) {
	out := make(map[int64][]models.BundleDetailView, len(bundleIDs))
	if len(bundleIDs) == 0 {
		return out, nil
	}
	const query = `SELECT bd.id, bd.bundle_id, bd.mooc_id, bd.certificate_url, bd.created_at,
       m.name AS mooc_name, COALESCE(m.url, '') AS mooc_url, m.average_hours
	FROM bundle_detail bd
	JOIN mooc m ON m.id = bd.mooc_id
	WHERE bd.bundle_id = ANY($1)
	ORDER BY bd.bundle_id, bd.id`
	var items []models.BundleDetailView
	if err := r.db.SelectContext(ctx, &items, query, pq.Array(bundleIDs)); err != nil {
		return nil, fmt.Errorf("list bundle details: %w", err)
	}
	for _, item := range items {
		out[item.BundleID] = append(out[item.BundleID], item)
	}
	return out, nil
}

// HasBlocking reports whether the enrollment has an open or accepted bundle.
func (r *BundleRepository) HasBlocking(ctx context.Context, enrollmentID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM bundle WHERE enrollment_id = $1 AND status = ANY($2))`
	statuses := make([]string, 0, len(models.OpenBundleStatuses)+1)
	for _, s := range models.OpenBundleStatuses {
		statuses = append(statuses, string(s))
	}
	statuses = append(statuses, string(models.BundleAcceptedCertificates))

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, enrollmentID, pq.Array(statuses)); err != nil {
		return false, fmt.Errorf("check blocking bundle: %w", err)
	}
	return exists, nil
}

// Create inserts a Waiting Bundle header and one detail per MOOC in a single
// transaction. A concurrent open bundle for the enrollment or a duplicate
// MOOC surfaces as ErrUniqueViolation.
func (r *BundleRepository) Create(ctx context.Context, enrollmentID int64, comment *string, moocIDs []int64) (*models.Bundle, error) {
	b := &models.Bundle{EnrollmentID: enrollmentID, Status: models.BundleWaitingBundle, Comment: comment}
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const header = `INSERT INTO bundle (enrollment_id, status, comment) VALUES ($1, $2, $3) RETURNING id, created_at`
		if err := tx.QueryRowxContext(ctx, header, enrollmentID, b.Status, comment).Scan(&b.ID, &b.CreatedAt); err != nil {
			return fmt.Errorf("insert bundle: %w", translate(err))
		}
		stmt, err := tx.PreparexContext(ctx, `INSERT INTO bundle_detail (bundle_id, mooc_id) VALUES ($1, $2)`)
		if err != nil {
			return fmt.Errorf("prepare bundle detail insert: %w", err)
		}
		defer stmt.Close()
		for _, moocID := range moocIDs {
			if _, err := stmt.ExecContext(ctx, b.ID, moocID); err != nil {
				return fmt.Errorf("insert bundle detail: %w", translate(err))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// DecideBundle moves a Waiting Bundle to approved (Waiting Certificates) or
// rejected, recording the coordinator, time and reason.
func (r *BundleRepository) DecideBundle(ctx context.Context, to models.BundleStatus, d models.BundleDecision) error {
	const query = `UPDATE bundle
	SET status = $2, bundle_coordinator_id = $3, bundle_decided_at = $4, reject_reason = NULLIF($5, '')
	WHERE id = $1 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, d.BundleID, to, d.CoordinatorID, d.DecidedAt, d.Reason, models.BundleWaitingBundle)
	return conditional(res, err, "decide bundle")
}

// lockBundle takes the row lock every detail write and Complete serialise on
// and returns the bundle's current status.
func lockBundle(ctx context.Context, tx *sqlx.Tx, bundleID int64) (models.BundleStatus, error) {
	var status models.BundleStatus
	if err := tx.GetContext(ctx, &status, `SELECT status FROM bundle WHERE id = $1 FOR UPDATE`, bundleID); err != nil {
		return "", err
	}
	return status, nil
}

// SetCertificate stores a detail's certificate URL while the bundle waits for
// certificates. sql.ErrNoRows means the detail is not part of the bundle.
func (r *BundleRepository) SetCertificate(ctx context.Context, bundleID, detailID int64, url string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		status, err := lockBundle(ctx, tx, bundleID)
		if err != nil {
			return err
		}
		if status != models.BundleWaitingCertificates {
			return r.explainDetailMiss(ctx, tx, bundleID, detailID)
		}
		const query = `UPDATE bundle_detail SET certificate_url = $3 WHERE id = $2 AND bundle_id = $1`
		res, err := tx.ExecContext(ctx, query, bundleID, detailID, url)
		if err = conditional(res, err, "set certificate"); errors.Is(err, ErrStatusMismatch) {
			return sql.ErrNoRows
		}
		return err
	})
}

// Complete moves a fully certified Waiting Certificates bundle to Waiting
// Approval. ErrMissingCertificate means the status matched but a detail has
// no certificate URL.
func (r *BundleRepository) Complete(ctx context.Context, bundleID int64, comment *string, at time.Time) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		status, err := lockBundle(ctx, tx, bundleID)
		if err != nil {
			return err
		}
		if status != models.BundleWaitingCertificates {
			return ErrStatusMismatch
		}

		var missing bool
		const check = `SELECT EXISTS (SELECT 1 FROM bundle_detail WHERE bundle_id = $1 AND COALESCE(certificate_url, '') = '')`
		if err := tx.GetContext(ctx, &missing, check, bundleID); err != nil {
			return fmt.Errorf("check certificates: %w", err)
		}
		if missing {
			return ErrMissingCertificate
		}

		const query = `UPDATE bundle SET status = $2, comment = $3, complete_date = $4 WHERE id = $1 AND status = $5`
		res, err := tx.ExecContext(ctx, query, bundleID, models.BundleWaitingApproval, comment, at, models.BundleWaitingCertificates)
		return conditional(res, err, "complete bundle")
	})
}

// ApproveCertificate accepts a Waiting Approval bundle and marks its
// enrollment passed, atomically.
func (r *BundleRepository) ApproveCertificate(ctx context.Context, d models.BundleDecision) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var enrollmentID int64
		const update = `UPDATE bundle SET status = $2, certificate_coordinator_id = $3, certificate_decided_at = $4
		WHERE id = $1 AND status = $5
		RETURNING enrollment_id`
		err := tx.GetContext(ctx, &enrollmentID, update, d.BundleID, models.BundleAcceptedCertificates, d.CoordinatorID, d.DecidedAt, models.BundleWaitingApproval)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrStatusMismatch
		}
		if err != nil {
			return fmt.Errorf("accept certificates: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE enrollment SET is_pass = TRUE, pass_date = $2 WHERE id = $1`, enrollmentID, d.DecidedAt); err != nil {
			return fmt.Errorf("mark enrollment passed: %w", err)
		}
		return nil
	})
}

// RejectCertificate rejects a Waiting Approval bundle and, in the same
// transaction, opens a Waiting Certificates copy for the same enrollment with
// the same MOOCs. Certificate URLs are copied only when keepCertificates is set.
func (r *BundleRepository) RejectCertificate(ctx context.Context, d models.BundleDecision, keepCertificates bool) (*models.Bundle, error) {
	var clone models.Bundle
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var enrollmentID int64
		const update = `UPDATE bundle
		SET status = $2, certificate_coordinator_id = $3, certificate_decided_at = $4, reject_reason = NULLIF($5, '')
		WHERE id = $1 AND status = $6
		RETURNING enrollment_id`
		err := tx.GetContext(ctx, &enrollmentID, update, d.BundleID, models.BundleRejectedCertificates, d.CoordinatorID, d.DecidedAt, d.Reason, models.BundleWaitingApproval)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrStatusMismatch
		}
		if err != nil {
			return fmt.Errorf("reject certificates: %w", err)
		}

		const insert = `INSERT INTO bundle (enrollment_id, status, comment, bundle_coordinator_id, bundle_decided_at)
		SELECT enrollment_id, $2::varchar, comment, bundle_coordinator_id, bundle_decided_at FROM bundle WHERE id = $1
		RETURNING ` + bundleColumns
		if err := tx.GetContext(ctx, &clone, insert, d.BundleID, models.BundleWaitingCertificates); err != nil {
			return fmt.Errorf("reopen bundle: %w", translate(err))
		}

		const copyDetails = `INSERT INTO bundle_detail (bundle_id, mooc_id, certificate_url)
		SELECT $2::bigint, mooc_id, CASE WHEN $3::boolean THEN certificate_url END FROM bundle_detail WHERE bundle_id = $1 ORDER BY id`
		if _, err := tx.ExecContext(ctx, copyDetails, d.BundleID, clone.ID, keepCertificates); err != nil {
			return fmt.Errorf("copy bundle details: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &clone, nil
}

// AddDetail appends a MOOC to an editable bundle.
func (r *BundleRepository) AddDetail(ctx context.Context, bundleID, moocID int64) (*models.BundleDetail, error) {
	var detail models.BundleDetail
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		status, err := lockBundle(ctx, tx, bundleID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrStatusMismatch
		}
		if err != nil {
			return err
		}
		if !status.DetailsEditable() {
			return ErrStatusMismatch
		}
		const query = `INSERT INTO bundle_detail (bundle_id, mooc_id) VALUES ($1, $2)
		RETURNING id, bundle_id, mooc_id, certificate_url, created_at`
		if err := tx.GetContext(ctx, &detail, query, bundleID, moocID); err != nil {
			return fmt.Errorf("add bundle detail: %w", translate(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// ReplaceDetailMooc swaps the MOOC of a detail in an editable bundle and
// clears its certificate.
func (r *BundleRepository) ReplaceDetailMooc(ctx context.Context, bundleID, detailID, moocID int64) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		status, err := lockBundle(ctx, tx, bundleID)
		if err != nil {
			return err
		}
		if !status.DetailsEditable() {
			return r.explainDetailMiss(ctx, tx, bundleID, detailID)
		}
		const query = `UPDATE bundle_detail SET mooc_id = $3, certificate_url = NULL WHERE id = $2 AND bundle_id = $1`
		res, err := tx.ExecContext(ctx, query, bundleID, detailID, moocID)
		if err != nil {
			return fmt.Errorf("replace bundle detail: %w", translate(err))
		}
		if err = conditional(res, nil, "replace bundle detail"); errors.Is(err, ErrStatusMismatch) {
			return sql.ErrNoRows
		}
		return err
	})
}

// DeleteDetail removes a detail from an editable bundle, refusing to remove
// the last one.
func (r *BundleRepository) DeleteDetail(ctx context.Context, bundleID, detailID int64) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		status, err := lockBundle(ctx, tx, bundleID)
		if err != nil {
			return err
		}
		if !status.DetailsEditable() {
			return ErrStatusMismatch
		}

		var count int
		var present bool
		const counts = `SELECT COUNT(*), COALESCE(BOOL_OR(id = $2), FALSE) FROM bundle_detail WHERE bundle_id = $1`
		if err := tx.QueryRowxContext(ctx, counts, bundleID, detailID).Scan(&count, &present); err != nil {
			return fmt.Errorf("count bundle details: %w", err)
		}
		if !present {
			return sql.ErrNoRows
		}
		if count <= 1 {
			return ErrLastDetail
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM bundle_detail WHERE id = $1 AND bundle_id = $2`, detailID, bundleID); err != nil {
			return fmt.Errorf("delete bundle detail: %w", err)
		}
		return nil
	})
}

// ListByCourseStatus returns one row per detail of the course's bundles in
// the given status, newest bundles first.
func (r *BundleRepository) ListByCourseStatus(ctx context.Context, courseID int64, status models.BundleStatus) ([]models.CourseBundleRow, error) {
	const query = `SELECT b.id AS bundle_id, b.status, b.created_at AS bundle_created_at, b.comment, b.reject_reason,
       s.id AS student_id, s.student_no, s.name AS student_name, s.surname AS student_surname, s.email AS student_email,
       e.pass_date, bd.id AS bundle_detail_id, m.name AS mooc_name, COALESCE(m.url, '') AS mooc_url, m.average_hours,
       bd.certificate_url, CASE WHEN c.id IS NULL THEN NULL ELSE CONCAT(c.name, ' ', c.surname) END AS coordinator_name
	FROM bundle b
	JOIN enrollment e ON e.id = b.enrollment_id
	JOIN student s ON s.id = e.student_id
	JOIN bundle_detail bd ON bd.bundle_id = b.id
	JOIN mooc m ON m.id = bd.mooc_id
	LEFT JOIN coordinator c ON c.id = COALESCE(b.certificate_coordinator_id, b.bundle_coordinator_id)
	WHERE e.course_id = $1 AND b.status = $2
	ORDER BY b.created_at DESC, b.id DESC, bd.id`
	var rows []models.CourseBundleRow
	if err := r.db.SelectContext(ctx, &rows, query, courseID, status); err != nil {
		return nil, fmt.Errorf("list course bundles: %w", err)
	}
	return rows, nil
}

// explainDetailMiss tells apart a detail outside the bundle (sql.ErrNoRows)
// from a bundle in the wrong status (ErrStatusMismatch).
func (r *BundleRepository) explainDetailMiss(ctx context.Context, q sqlx.QueryerContext, bundleID, detailID int64) error {
	var present bool
	const query = `SELECT EXISTS (SELECT 1 FROM bundle_detail WHERE id = $2 AND bundle_id = $1)`
	if err := sqlx.GetContext(ctx, q, &present, query, bundleID, detailID); err != nil {
		return fmt.Errorf("check bundle detail: %w", err)
	}
	if !present {
		return sql.ErrNoRows
	}
	return ErrStatusMismatch
}

func conditional(res sql.Result, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if rows == 0 {
		return ErrStatusMismatch
	}
	return nil
}
