package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	DocumentID      string     `json:"documentId"`
	ApplicationID   string     `json:"applicationId,omitempty"`
	DocType         string     `json:"docType"`
	FileName        string     `json:"fileName"`
	MimeType        string     `json:"mimeType"`
	SizeBytes       int64      `json:"sizeBytes"`
	Status          string     `json:"status"`
	UploadedAt      time.Time  `json:"uploadedAt"`
	SubmittedAt     *time.Time `json:"submittedAt,omitempty"`
	ProcessedAt     *time.Time `json:"processedAt,omitempty"`
	ConfidenceScore *float64   `json:"confidenceScore,omitempty"`
}

func ToResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		DocumentID:      doc.ID,
		ApplicationID:   doc.ApplicationID,
		DocType:         string(doc.DocType),
		FileName:        doc.FileName,
		MimeType:        doc.MimeType,
		SizeBytes:       doc.SizeBytes,
		Status:          string(doc.Status),
		UploadedAt:      doc.UploadedAt,
		SubmittedAt:     doc.SubmittedAt,
		ProcessedAt:     doc.ProcessedAt,
		ConfidenceScore: doc.ConfidenceScore,
	}
}
