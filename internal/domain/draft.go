package domain

import "time"

type RecordID string
type DraftID string

// DefaultPageContext labels drafts produced by the case detail surface.
const DefaultPageContext = "CaseDetail"

type DraftRecord struct {
	ID          DraftID
	CaseID      RecordID
	CaseNumber  string
	CaseSubject string
	PageContext string
	DraftData   string
	LastSaved   time.Time
}

type SaveRequest struct {
	CaseID      RecordID
	DraftData   string
	PageContext string
}

type SaveResult struct {
	Success   bool
	DraftID   DraftID
	Timestamp time.Time
}

type DraftSnapshot struct {
	Success   bool
	DraftData string
	LastSaved time.Time
}

// Fields decodes the snapshot payload back into a field map.
func (s DraftSnapshot) Fields() (map[string]string, error) {
	return DecodeFields(s.DraftData)
}
