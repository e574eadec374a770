package entities

import (
	"io"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// IdentityDocument is an uploaded id-card image held in memory.
type IdentityDocument struct {
	Filename    string
	ContentType string
	Content     []byte
}

// DocumentStatus is the review state of an Upload or ContractFile.
type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "pending"
	DocumentApproved DocumentStatus = "approved"
	DocumentRejected DocumentStatus = "rejected"
	DocumentDone     DocumentStatus = "done"
)

var documentTransitions = map[DocumentStatus][]DocumentStatus{
	DocumentPending:  {DocumentApproved, DocumentRejected, DocumentDone},
	DocumentDone:     {DocumentPending, DocumentApproved, DocumentRejected},
	DocumentRejected: {DocumentPending, DocumentApproved},
	DocumentApproved: {DocumentPending, DocumentRejected},
}

func (s DocumentStatus) Valid() bool {
	_, ok := documentTransitions[s]
	return ok
}

func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	return contains(documentTransitions[s], next)
}

// ToggleReview flips pending and done; other states go back to done.
func (s DocumentStatus) ToggleReview() DocumentStatus {
	if s == DocumentDone {
		return DocumentPending
	}
	return DocumentDone
}

// Category groups uploads, contracts and payments by service line.
type Category string

const (
	CategoryRent    Category = "rent"
	CategoryGoods   Category = "goods"
	CategorySalary  Category = "salary"
	CategoryGeneral Category = "general"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryRent, CategoryGoods, CategorySalary, CategoryGeneral:
		return true
	}
	return false
}

// Payable reports whether payments may be created for the category.
func (c Category) Payable() bool {
	return c == CategoryRent || c == CategoryGoods || c == CategorySalary
}

// Upload is a user document not tied to a contract.
type Upload struct {
	ID           uuid.UUID      `json:"id"`
	UserID       uuid.UUID      `json:"userId"`
	OriginalName string         `json:"originalName"`
	Mime         string         `json:"mime"`
	Size         int64          `json:"size"`
	SavedName    string         `json:"savedName"`
	Category     Category       `json:"category"`
	DocType      null.String    `json:"docType"`
	Status       DocumentStatus `json:"status"`
	AdminNote    null.String    `json:"adminNote"`
	ReviewerID   uuid.NullUUID  `json:"reviewerId"`
	ReviewedAt   null.Time      `json:"reviewedAt"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// ContractFile is a document attached to a contract.
type ContractFile struct {
	ID           uuid.UUID      `json:"id"`
	ContractID   uuid.UUID      `json:"contractId"`
	UserID       uuid.UUID      `json:"userId"`
	OriginalName string         `json:"originalName"`
	Mime         string         `json:"mime"`
	Size         int64          `json:"size"`
	SavedName    string         `json:"savedName"`
	DocType      null.String    `json:"docType"`
	Status       DocumentStatus `json:"status"`
	AdminNote    null.String    `json:"adminNote"`
	ReviewerID   uuid.NullUUID  `json:"reviewerId"`
	ReviewedAt   null.Time      `json:"reviewedAt"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// DocumentReview is an admin decision applied to a document.
type DocumentReview struct {
	Status     DocumentStatus
	Note       null.String
	ReviewerID uuid.NullUUID
	ReviewedAt time.Time
}

// ReviewInput is the body of the review toggle endpoint.
type ReviewInput struct {
	Note *string `json:"note"`
}

// DecisionInput is the body of approve/reject endpoints.
type DecisionInput struct {
	Note   string `json:"note"`
	Reason string `json:"reason"`
}

// UploadFilter narrows admin upload listings.
type UploadFilter struct {
	UserID   uuid.NullUUID
	Category Category
	Status   DocumentStatus
	Limit    int
	Offset   int
}

// StoredFile is what the file store returns after a write.
type StoredFile struct {
	SavedName string
	Path      string
	Size      int64
}

// documentTypes are the content types accepted for uploads and rendered
// inline on preview.
var documentTypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/webp":      {},
	"image/gif":       {},
	"application/pdf": {},
}

// DocumentType reduces a Content-Type to its lowercase media type and
// reports whether it is an accepted document type.
func DocumentType(contentType string) (string, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	_, ok := documentTypes[mediaType]
	return mediaType, ok
}

// IncomingFile is an uploaded file that has not been stored yet.
type IncomingFile struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Actor is the caller a document access check is made for.
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// CanAccess reports whether the actor may read a file owned by ownerID.
func (a Actor) CanAccess(ownerID uuid.UUID) bool {
	return a.IsAdmin || (a.UserID != uuid.Nil && a.UserID == ownerID)
}
