package documents

import "fmt"

// Status is the closed set of document processing states.
type Status string

const (
	StatusUploaded   Status = "UPLOADED"
	StatusSubmitted  Status = "SUBMITTED"
	StatusProcessing Status = "PROCESSING"
	StatusProcessed  Status = "PROCESSED"
	StatusError      Status = "ERROR"
	StatusReset      Status = "RESET"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusUploaded, StatusSubmitted, StatusProcessing, StatusProcessed, StatusError, StatusReset:
		return true
	}
	return false
}

// PastSubmission reports whether the document has already entered the
// submission pipeline. Submit is monotonic: records past this point are
// never regressed back to SUBMITTED.
func (s Status) PastSubmission() bool {
	switch s {
	case StatusSubmitted, StatusProcessing, StatusProcessed, StatusError:
		return true
	}
	return false
}

// ParseStatus converts a raw string into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, raw)
	}
	return s, nil
}

// DocType is the closed set of accepted document categories.
type DocType string

const (
	TypeIdentityDocument DocType = "identity_document"
	TypeBankStatement    DocType = "bank_statement"
)

// Valid reports whether t is a known document type.
func (t DocType) Valid() bool {
	switch t {
	case TypeIdentityDocument, TypeBankStatement:
		return true
	}
	return false
}

// ParseDocType converts a raw string into a DocType.
func ParseDocType(raw string) (DocType, error) {
	t := DocType(raw)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown document type %q", ErrInvalidInput, raw)
	}
	return t, nil
}

// RequiredTypes lists the document types an application must provide before
// submission. New types added here flow through gating and aggregation
// without further changes.
func RequiredTypes() []DocType {
	return []DocType{TypeIdentityDocument, TypeBankStatement}
}
