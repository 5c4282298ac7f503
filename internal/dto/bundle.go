package dto

// CreateBundleRequest selects the MOOCs of a new bundle.
type CreateBundleRequest struct {
	MoocIDs []int64 `json:"mooc_ids" validate:"required,min=1,dive,gt=0"`
	Comment string  `json:"comment" validate:"max=2047"`
}

// SubmitCertificateRequest attaches a certificate URL to one detail.
type SubmitCertificateRequest struct {
	BundleDetailID int64  `json:"bundle_detail_id" validate:"required,gt=0"`
	CertificateURL string `json:"certificate_url" validate:"required,url,max=2048"`
}

// CompleteBundleRequest moves a certified bundle to approval.
type CompleteBundleRequest struct {
	Comment string `json:"comment" validate:"max=2047"`
}

// BundleMoocRequest adds a MOOC to a bundle.
type BundleMoocRequest struct {
	MoocID int64 `json:"mooc_id" validate:"required,gt=0"`
}

// UpdateBundleDetailRequest swaps the MOOC of a detail.
type UpdateBundleDetailRequest struct {
	BundleDetailID int64 `json:"bundle_detail_id" validate:"required,gt=0"`
	MoocID         int64 `json:"mooc_id" validate:"required,gt=0"`
}

// DeleteBundleDetailRequest removes one detail from a bundle.
type DeleteBundleDetailRequest struct {
	BundleDetailID int64 `json:"bundle_detail_id" validate:"required,gt=0"`
}

// RejectRequest carries a coordinator's rejection reason.
type RejectRequest struct {
	Reason string `json:"reason" validate:"required,max=2047"`
}
