package work

import (
	"context"
	"flowtrack/bizerror"
	"flowtrack/domain"
	"flowtrack/domain/flow"
	"flowtrack/flowlog"
	"flowtrack/persistence"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var (
	FlowOfWorkItemFunc     = FlowOfWorkItem
	ChildrenOfWorkItemFunc = ChildrenOfWorkItem
	ParentOfWorkItemFunc   = ParentOfWorkItem
)

type WorkItemFlow struct {
	WorkItemID types.ID `json:"workItemId"`
	StateFlow  []string `json:"stateFlow"`
}

// FlowOfWorkItem rebuilds the state sequence the item has gone through: the
// type's root state, then the target state of every state-changing log entry
// in occurrence order. Reassignments leave the state untouched and are
// skipped. If logs were purged or the item diverged, the live state still
// closes the sequence.
func FlowOfWorkItem(ctx context.Context, itemID types.ID) (*WorkItemFlow, error) {
	item, err := DetailWorkItemFunc(ctx, itemID)
	if err != nil {
		return nil, err
	}
	registry, err := flow.RegistryFunc(ctx)
	if err != nil {
		return nil, err
	}
	workType, found := registry.TypeOf(item.TypeCode)
	if !found {
		return nil, &bizerror.ErrInvalidType{TypeCode: item.TypeCode}
	}

	logs, err := flowlog.LogsOfWorkItemFunc(ctx, itemID)
	if err != nil {
		return nil, err
	}

	states := []string{workType.RootState}
	for _, l := range logs {
		if l.FromState == l.ToState {
			continue
		}
		states = append(states, l.ToState)
	}
	if states[len(states)-1] != item.CurrentState {
		states = append(states, item.CurrentState)
	}
	return &WorkItemFlow{WorkItemID: item.ID, StateFlow: states}, nil
}

func ChildrenOfWorkItem(ctx context.Context, itemID types.ID) ([]domain.WorkItem, error) {
	children := []domain.WorkItem{}
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	if err := db.Where("parent_id = ?", itemID).
		Order("create_time DESC, id DESC").Find(&children).Error; err != nil {
		return nil, err
	}
	return children, nil
}

// ParentOfWorkItem returns nil without error when the item has no parent or
// the parent was deleted.
func ParentOfWorkItem(ctx context.Context, itemID types.ID) (*domain.WorkItem, error) {
	item, err := DetailWorkItemFunc(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.ParentID == 0 {
		return nil, nil
	}
	parent, err := DetailWorkItemFunc(ctx, item.ParentID)
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return parent, nil
}
