package documents

import (
	"encoding/json"
	"time"
)

// Document represents an uploaded benefits document owned by a user and
// scoped to an application. Artifacts (OCRText, AnalysisResult,
// ConfidenceScore) are populated by the processing pipeline and are always
// cleared together with ProcessedAt on reset or replace.
type Document struct {
	ID            string
	UserID        string
	ApplicationID string
	DocType       DocType
	FileName      string
	StorageKey    string
	SizeBytes     int64
	MimeType      string
	Status        Status
	UploadedAt    time.Time
	SubmittedAt   *time.Time
	ProcessedAt   *time.Time

	OCRText         *string
	AnalysisResult  json.RawMessage
	ConfidenceScore *float64
}
