package domain

import "time"

type ToastVariant string

const (
	ToastInfo    ToastVariant = "info"
	ToastSuccess ToastVariant = "success"
	ToastWarning ToastVariant = "warning"
	ToastError   ToastVariant = "error"
)

type ToastMode string

const (
	ToastDismissible ToastMode = "dismissible"
	ToastSticky      ToastMode = "sticky"
)

type Toast struct {
	Title   string
	Message string
	Variant ToastVariant
	Mode    ToastMode
}

func (t Toast) Sticky() bool {
	return t.Mode == ToastSticky
}

type Navigation struct {
	RecordID      RecordID
	ObjectAPIName string
	Action        string
}

func CaseRecordPage(id RecordID) Navigation {
	return Navigation{RecordID: id, ObjectAPIName: "Case", Action: "view"}
}

type EventName string

const (
	EventAutoSaveSucceeded EventName = "autosavesuccess"
	EventDraftFound        EventName = "draftfound"
)

type AutoSaveEvent struct {
	Timestamp time.Time
	DraftID   DraftID
}

type DraftFoundEvent struct {
	DraftData string
	LastSaved time.Time
}
