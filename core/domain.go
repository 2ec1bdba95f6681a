package core

import (
	"encoding/json"
	"strings"
	"time"
)

// Action is the closed set of operations the bridge can proxy. Anything
// outside this set is answered with a transport-level success whose payload
// flags the failure and enumerates the valid names.
type Action string

const (
	ActionTestConnection Action = "test_connection"
	ActionGetUserInfo    Action = "get_user_info"
	ActionSearchStudent  Action = "search_student"
	ActionGetAllStudents Action = "get_all_students"
	ActionGetModels      Action = "get_models"
	ActionGetModelFields Action = "get_model_fields"
	ActionGetModelData   Action = "get_model_data"
)

func Actions() []Action {
	return []Action{
		ActionTestConnection,
		ActionGetUserInfo,
		ActionSearchStudent,
		ActionGetAllStudents,
		ActionGetModels,
		ActionGetModelFields,
		ActionGetModelData,
	}
}

func ActionNames() []string {
	actions := Actions()
	names := make([]string, 0, len(actions))
	for _, action := range actions {
		names = append(names, string(action))
	}
	return names
}

func ParseAction(value string) (Action, bool) {
	action := Action(strings.TrimSpace(strings.ToLower(value)))
	for _, known := range Actions() {
		if action == known {
			return action, true
		}
	}
	return action, false
}

// DispatchRequest is the inbound payload carried by the single proxy route.
type DispatchRequest struct {
	Action string `json:"action"`
	Email  string `json:"email,omitempty"`
	Model  string `json:"model,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// OperationResult is the only shape ever returned to the caller. Payload
// fields are handler specific and marshal flat alongside the fixed fields.
type OperationResult struct {
	Success   bool
	Message   string
	Timestamp time.Time
	Payload   map[string]any
}

func (r OperationResult) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Payload)+3)
	for key, value := range r.Payload {
		if strings.TrimSpace(key) == "" {
			continue
		}
		out[key] = value
	}
	out["success"] = r.Success
	if strings.TrimSpace(r.Message) != "" {
		out["message"] = r.Message
	}
	out["timestamp"] = r.Timestamp.UTC().Format(time.RFC3339)
	return json.Marshal(out)
}

// StudentRecord is the normalized academic-record entity assembled from the
// remote schema. RegistrationNumber carries the "API-<uid>" sentinel when the
// record is the degraded service-account fallback.
type StudentRecord struct {
	RecordID           int64  `json:"record_id"`
	DisplayName        string `json:"display_name"`
	EmailAddress       string `json:"email_address,omitempty"`
	PhoneNumber        string `json:"phone_number,omitempty"`
	RegistrationNumber string `json:"registration_number,omitempty"`
	FirstName          string `json:"first_name,omitempty"`
	MiddleName         string `json:"middle_name,omitempty"`
	LastName           string `json:"last_name,omitempty"`
	BirthDate          string `json:"birth_date,omitempty"`
	Gender             string `json:"gender,omitempty"`
	IsActive           bool   `json:"is_active"`
	PartnerID          int64  `json:"partner_id,omitempty"`
	UserID             int64  `json:"user_id,omitempty"`
	IsAPIUser          bool   `json:"is_api_user,omitempty"`
}

// ResolvedIdentity is the intermediate record a directory-user lookup yields.
// Both fields absent means resolution falls through to the next strategy.
type ResolvedIdentity struct {
	UserID    int64
	PartnerID int64
}

// StudentResolution is the resolver outcome: the normalized record plus the
// raw remote record kept for diagnostics, and the strategy that produced it.
type StudentResolution struct {
	Record   StudentRecord
	Raw      map[string]any
	Strategy string
}

// ComposeDisplayName prefers the remote full name and otherwise joins the
// non-empty name parts with single spaces.
func ComposeDisplayName(fullName string, parts ...string) string {
	if trimmed := strings.TrimSpace(fullName); trimmed != "" {
		return trimmed
	}
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, " ")
}
