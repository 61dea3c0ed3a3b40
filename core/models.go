package core

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

type AdmissionStatus string

// Admission statuses
const (
	AdmissionPending    AdmissionStatus = "PENDING"
	AdmissionApproved   AdmissionStatus = "APPROVED"
	AdmissionRejected   AdmissionStatus = "REJECTED"
	AdmissionWaitlisted AdmissionStatus = "WAITLISTED"
	AdmissionCancelled  AdmissionStatus = "CANCELLED"
)

func (s AdmissionStatus) IsValid() bool {
	switch s {
	case AdmissionPending, AdmissionApproved, AdmissionRejected, AdmissionWaitlisted, AdmissionCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether s is a review outcome.
func (s AdmissionStatus) IsTerminal() bool {
	return s.IsValid() && s != AdmissionPending
}

type EmergencyContact struct {
	Name     string `json:"name" validate:"required"`
	Relation string `json:"relation" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
}

func (ec *EmergencyContact) Clean() {
	ec.Name = CleanString(ec.Name)
	ec.Relation = CleanString(ec.Relation)
	ec.Phone = CleanString(ec.Phone)
}
