package flow

import "flowtrack/domain"

// DefaultRegistryConfig ships the requirement and test case workflows the
// tracker client is built around.
var DefaultRegistryConfig = RegistryConfig{
	Types: []domain.WorkType{
		{Code: "REQUIREMENT", Name: "Requirement", RootState: "DRAFT"},
		{Code: "TEST_CASE", Name: "Test Case", RootState: "DRAFT"},
	},
	States: []domain.WorkflowState{
		{Code: "DRAFT", Name: "Draft"},
		{Code: "PENDING_REVIEW", Name: "Pending Review"},
		{Code: "PENDING_DEVELOP", Name: "Pending Develop"},
		{Code: "DEVELOPING", Name: "Developing"},
		{Code: "PENDING_TEST", Name: "Pending Test"},
		{Code: "PENDING_RELEASE", Name: "Pending Release"},
		{Code: "RELEASED", Name: "Released", IsEnd: true},
		{Code: "DONE", Name: "Done", IsEnd: true},
		{Code: "REJECTED", Name: "Rejected", IsEnd: true},
	},
	Rules: []domain.TransitionRule{
		{TypeCode: "REQUIREMENT", FromState: "DRAFT", Action: "SUBMIT", ToState: "PENDING_REVIEW",
			TargetOwnerStrategy: domain.OwnerToSpecificUser, RequiredFields: domain.FieldList{"priority", "target_owner_id"}},
		{TypeCode: "REQUIREMENT", FromState: "PENDING_REVIEW", Action: "APPROVE", ToState: "PENDING_DEVELOP",
			TargetOwnerStrategy: domain.OwnerToCreator, RequiredFields: domain.FieldList{"comment"}},
		{TypeCode: "REQUIREMENT", FromState: "PENDING_REVIEW", Action: "REJECT", ToState: "REJECTED",
			TargetOwnerStrategy: domain.OwnerToCreator, RequiredFields: domain.FieldList{"comment"}},
		{TypeCode: "REQUIREMENT", FromState: "PENDING_DEVELOP", Action: "START_DEVELOP", ToState: "DEVELOPING",
			TargetOwnerStrategy: domain.OwnerKeep, RequiredFields: domain.FieldList{}},
		{TypeCode: "REQUIREMENT", FromState: "DEVELOPING", Action: "FINISH_DEVELOP", ToState: "PENDING_TEST",
			TargetOwnerStrategy: domain.OwnerToSpecificUser, RequiredFields: domain.FieldList{"target_owner_id"}},
		{TypeCode: "REQUIREMENT", FromState: "PENDING_TEST", Action: "PASS_TEST", ToState: "PENDING_RELEASE",
			TargetOwnerStrategy: domain.OwnerToCreator, RequiredFields: domain.FieldList{"comment"}},
		{TypeCode: "REQUIREMENT", FromState: "PENDING_TEST", Action: "FAIL_TEST", ToState: "DEVELOPING",
			TargetOwnerStrategy: domain.OwnerToSpecificUser, RequiredFields: domain.FieldList{"target_owner_id", "comment"}},
		{TypeCode: "REQUIREMENT", FromState: "PENDING_RELEASE", Action: "RELEASE", ToState: "RELEASED",
			TargetOwnerStrategy: domain.OwnerKeep, RequiredFields: domain.FieldList{}},

		{TypeCode: "TEST_CASE", FromState: "DRAFT", Action: "ASSIGN", ToState: "PENDING_DEVELOP",
			TargetOwnerStrategy: domain.OwnerToSpecificUser, RequiredFields: domain.FieldList{"target_owner_id"}},
		{TypeCode: "TEST_CASE", FromState: "PENDING_DEVELOP", Action: "START_DEVELOP", ToState: "DEVELOPING",
			TargetOwnerStrategy: domain.OwnerKeep, RequiredFields: domain.FieldList{}},
		{TypeCode: "TEST_CASE", FromState: "DEVELOPING", Action: "FINISH_DEVELOP", ToState: "PENDING_REVIEW",
			TargetOwnerStrategy: domain.OwnerToSpecificUser, RequiredFields: domain.FieldList{"target_owner_id"}},
		{TypeCode: "TEST_CASE", FromState: "PENDING_REVIEW", Action: "APPROVE", ToState: "DONE",
			TargetOwnerStrategy: domain.OwnerKeep, RequiredFields: domain.FieldList{"comment"}},
		{TypeCode: "TEST_CASE", FromState: "PENDING_REVIEW", Action: "REJECT", ToState: "DEVELOPING",
			TargetOwnerStrategy: domain.OwnerToCreator, RequiredFields: domain.FieldList{"comment"}},
	},
}
