package work

import (
	"context"
	"flowtrack/account"
	"flowtrack/bizerror"
	"flowtrack/domain"
	"flowtrack/domain/flow"
	"flowtrack/flowlog"
	"flowtrack/persistence"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

// ReassignAction marks owner-only changes in the transition log. Entries
// carrying it keep fromState equal to toState.
const ReassignAction = "REASSIGN"

const maxTransitionAttempts = 3

var (
	ExecuteTransitionFunc    = ExecuteTransition
	AvailableTransitionsFunc = AvailableTransitions
	ReassignWorkItemFunc     = ReassignWorkItem
)

type TransitionRequest struct {
	Action     string          `json:"action" binding:"required"`
	OperatorID types.ID        `json:"operatorId" binding:"required"`
	FormData   domain.FormData `json:"formData"`
}

type TransitionResult struct {
	WorkItem domain.WorkItem `json:"workItem"`

	FromState  string   `json:"fromState"`
	ToState    string   `json:"toState"`
	Action     string   `json:"action"`
	NewOwnerID types.ID `json:"newOwnerId"`
}

type TransitionOption struct {
	Action              string               `json:"action"`
	ToState             string               `json:"toState"`
	TargetOwnerStrategy domain.OwnerStrategy `json:"targetOwnerStrategy"`
	RequiredFields      domain.FieldList     `json:"requiredFields"`
}

type TransitionOptions struct {
	WorkItemID   types.ID           `json:"workItemId"`
	CurrentState string             `json:"currentState"`
	Transitions  []TransitionOption `json:"transitions"`
}

type ReassignRequest struct {
	OperatorID    types.ID `json:"operatorId" binding:"required"`
	TargetOwnerID types.ID `json:"targetOwnerId" binding:"required"`
	Remark        string   `json:"remark"`
}

// ExecuteTransition applies an action to an item: resolve the rule for the
// item's live state, validate required fields, compute the next owner, then
// commit the state change and its log entry in one transaction guarded by the
// item's version. A lost version race rereads the item and retries; after
// maxTransitionAttempts the caller gets ErrConflict.
func ExecuteTransition(ctx context.Context, itemID types.ID, req *TransitionRequest) (*TransitionResult, error) {
	registry, err := flow.RegistryFunc(ctx)
	if err != nil {
		return nil, err
	}

	conflicted := false
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		item, err := DetailWorkItemFunc(ctx, itemID)
		if err != nil {
			return nil, err
		}

		rule, found := registry.ResolveRule(item.TypeCode, item.CurrentState, req.Action)
		if !found {
			// the action may have been legal in the state we lost the race
			// from; report the race rather than a configuration problem
			if conflicted {
				return nil, &bizerror.ErrConflict{Attempts: attempt}
			}
			return nil, &bizerror.ErrInvalidTransition{State: item.CurrentState, Action: req.Action}
		}
		if missing := rule.RequiredFields.FirstMissing(req.FormData); missing != "" {
			return nil, &bizerror.ErrMissingRequiredField{Field: missing}
		}

		newOwnerID, err := resolveTargetOwner(ctx, item, &rule, req.FormData)
		if err != nil {
			return nil, err
		}

		db := persistence.ActiveDataSourceManager.GormDB(ctx)
		err = db.Transaction(func(tx *gorm.DB) error {
			changes := map[string]interface{}{
				"current_state":    rule.ToState,
				"current_owner_id": newOwnerID,
			}
			if err := CasUpdateWorkItemFunc(tx, item.ID, item.Version, changes); err != nil {
				return err
			}
			return flowlog.AppendTransitionLogFunc(&flowlog.TransitionLog{
				WorkItemID: item.ID,
				FromState:  item.CurrentState,
				ToState:    rule.ToState,
				Action:     rule.Action,
				OperatorID: req.OperatorID,
				Payload:    req.FormData,
			}, tx)
		})
		if err == bizerror.ErrVersionConflict {
			conflicted = true
			continue
		}
		if err != nil {
			return nil, err
		}

		updated, err := DetailWorkItemFunc(ctx, itemID)
		if err != nil {
			return nil, err
		}
		return &TransitionResult{
			WorkItem:   *updated,
			FromState:  item.CurrentState,
			ToState:    rule.ToState,
			Action:     rule.Action,
			NewOwnerID: newOwnerID,
		}, nil
	}
	return nil, &bizerror.ErrConflict{Attempts: maxTransitionAttempts}
}

func resolveTargetOwner(ctx context.Context, item *domain.WorkItem, rule *domain.TransitionRule,
	form domain.FormData) (types.ID, error) {

	switch rule.TargetOwnerStrategy {
	case domain.OwnerKeep:
		return item.CurrentOwnerID, nil
	case domain.OwnerToCreator:
		return item.CreatorID, nil
	case domain.OwnerToSpecificUser:
		targetID, ok := form.IDValue(domain.FieldTargetOwnerID)
		if !ok || targetID == 0 {
			return 0, &bizerror.ErrMissingRequiredField{Field: domain.FieldTargetOwnerID}
		}
		exists, err := account.ExistsUserFunc(ctx, targetID)
		if err != nil {
			return 0, err
		}
		if !exists {
			return 0, &bizerror.ErrInvalidOwner{UserID: targetID}
		}
		return targetID, nil
	}
	return 0, &bizerror.ErrBadParam{}
}

// AvailableTransitions lists the actions legal from the item's current state.
// Terminal states yield an empty list.
func AvailableTransitions(ctx context.Context, itemID types.ID) (*TransitionOptions, error) {
	item, err := DetailWorkItemFunc(ctx, itemID)
	if err != nil {
		return nil, err
	}
	registry, err := flow.RegistryFunc(ctx)
	if err != nil {
		return nil, err
	}

	options := []TransitionOption{}
	for _, rule := range registry.RulesFor(item.TypeCode, item.CurrentState) {
		options = append(options, TransitionOption{
			Action:              rule.Action,
			ToState:             rule.ToState,
			TargetOwnerStrategy: rule.TargetOwnerStrategy,
			RequiredFields:      rule.RequiredFields,
		})
	}
	return &TransitionOptions{
		WorkItemID:   item.ID,
		CurrentState: item.CurrentState,
		Transitions:  options,
	}, nil
}

// ReassignWorkItem changes the owner without moving the state. The change is
// logged with the reassign action and an unchanged from/to state pair, and is
// refused once the item reached a terminal state.
func ReassignWorkItem(ctx context.Context, itemID types.ID, req *ReassignRequest) (*domain.WorkItem, error) {
	registry, err := flow.RegistryFunc(ctx)
	if err != nil {
		return nil, err
	}

	conflicted := false
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		item, err := DetailWorkItemFunc(ctx, itemID)
		if err != nil {
			return nil, err
		}
		if registry.IsEndState(item.CurrentState) {
			if conflicted {
				return nil, &bizerror.ErrConflict{Attempts: attempt}
			}
			return nil, &bizerror.ErrTerminalState{State: item.CurrentState}
		}

		exists, err := account.ExistsUserFunc(ctx, req.TargetOwnerID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, &bizerror.ErrInvalidOwner{UserID: req.TargetOwnerID}
		}

		db := persistence.ActiveDataSourceManager.GormDB(ctx)
		err = db.Transaction(func(tx *gorm.DB) error {
			changes := map[string]interface{}{
				"current_owner_id": req.TargetOwnerID,
			}
			if err := CasUpdateWorkItemFunc(tx, item.ID, item.Version, changes); err != nil {
				return err
			}
			payload := domain.FormData{domain.FieldTargetOwnerID: req.TargetOwnerID.String()}
			if req.Remark != "" {
				payload["remark"] = req.Remark
			}
			return flowlog.AppendTransitionLogFunc(&flowlog.TransitionLog{
				WorkItemID: item.ID,
				FromState:  item.CurrentState,
				ToState:    item.CurrentState,
				Action:     ReassignAction,
				OperatorID: req.OperatorID,
				Payload:    payload,
			}, tx)
		})
		if err == bizerror.ErrVersionConflict {
			conflicted = true
			continue
		}
		if err != nil {
			return nil, err
		}
		return DetailWorkItemFunc(ctx, itemID)
	}
	return nil, &bizerror.ErrConflict{Attempts: maxTransitionAttempts}
}
