package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/fundwit/go-commons/types"
)

// OwnerStrategy decides who owns a work item after a transition commits.
type OwnerStrategy string

const (
	OwnerKeep           OwnerStrategy = "KEEP"
	OwnerToCreator      OwnerStrategy = "TO_CREATOR"
	OwnerToSpecificUser OwnerStrategy = "TO_SPECIFIC_USER"
)

// FieldTargetOwnerID is the form field TO_SPECIFIC_USER rules read the new
// owner from. Rules with that strategy must declare it in RequiredFields.
const FieldTargetOwnerID = "target_owner_id"

type WorkType struct {
	Code      string `json:"code" gorm:"primary_key"`
	Name      string `json:"name"`
	RootState string `json:"rootState"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

type WorkflowState struct {
	Code  string `json:"code" gorm:"primary_key"`
	Name  string `json:"name"`
	IsEnd bool   `json:"isEnd"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

// TransitionRule is one row of the declarative rule table: at most one rule
// exists per (type, from state, action) triple.
type TransitionRule struct {
	ID types.ID `json:"id"`

	TypeCode  string `json:"typeCode" gorm:"unique_index:uni_type_state_action"`
	FromState string `json:"fromState" gorm:"unique_index:uni_type_state_action"`
	Action    string `json:"action" gorm:"unique_index:uni_type_state_action"`

	ToState             string        `json:"toState"`
	TargetOwnerStrategy OwnerStrategy `json:"targetOwnerStrategy"`
	RequiredFields      FieldList     `json:"requiredFields" sql:"type:TEXT"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

// FieldList is an ordered set of form field names, stored as a JSON array.
type FieldList []string

func (l FieldList) Value() (driver.Value, error) {
	jsonBytes, err := json.Marshal(&l)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (l *FieldList) Scan(v interface{}) error {
	jsonString, ok := v.(string)
	if !ok {
		jsonBytes, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("type is neither string nor []byte: %T %v", v, v)
		}
		jsonString = string(jsonBytes)
	}
	return json.Unmarshal([]byte(jsonString), l)
}

// FirstMissing returns the first declared field that is absent or empty in
// the submitted form data, or "" when all required fields are present.
func (l FieldList) FirstMissing(form FormData) string {
	for _, field := range l {
		value, found := form[field]
		if !found || value == nil {
			return field
		}
		if s, ok := value.(string); ok && s == "" {
			return field
		}
	}
	return ""
}
