package flowlog

import (
	"context"
	"flowtrack/domain"
	"flowtrack/idgen"
	"flowtrack/persistence"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

// TransitionLog is one committed transition or reassignment. Entries are
// append-only and never edited while their item exists.
type TransitionLog struct {
	ID         types.ID `json:"id"`
	WorkItemID types.ID `json:"workItemId" gorm:"index:idx_work_item"`

	FromState string `json:"fromState"`
	ToState   string `json:"toState"`
	Action    string `json:"action"`

	OperatorID types.ID        `json:"operatorId"`
	Payload    domain.FormData `json:"payload" sql:"type:TEXT"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

func (l *TransitionLog) TableName() string {
	return "transition_logs"
}

var (
	logIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	AppendTransitionLogFunc  = AppendTransitionLog
	LogsOfWorkItemFunc       = LogsOfWorkItem
	BatchLogsOfWorkItemsFunc = BatchLogsOfWorkItems
	PurgeLogsOfWorkItemFunc  = PurgeLogsOfWorkItem
)

// AppendTransitionLog writes one entry inside the caller's transaction so the
// entry commits or aborts together with the item mutation.
func AppendTransitionLog(record *TransitionLog, tx *gorm.DB) error {
	if record.ID == 0 {
		record.ID = idgen.NextID(logIdWorker)
	}
	if record.CreateTime.IsZero() {
		record.CreateTime = types.CurrentTimestamp()
	}
	return tx.Create(record).Error
}

// LogsOfWorkItem returns an item's entries in occurrence order, id as the
// tie-break for entries sharing a timestamp.
func LogsOfWorkItem(ctx context.Context, workItemID types.ID) ([]TransitionLog, error) {
	logs := []TransitionLog{}
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	if err := db.Where(&TransitionLog{WorkItemID: workItemID}).
		Order("create_time ASC, id ASC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// BatchLogsOfWorkItems returns the most recent limitPerItem entries of every
// requested item, newest first, keyed by item id.
func BatchLogsOfWorkItems(ctx context.Context, workItemIDs []types.ID, limitPerItem int) (map[types.ID][]TransitionLog, error) {
	result := map[types.ID][]TransitionLog{}
	if len(workItemIDs) == 0 {
		return result, nil
	}
	if limitPerItem <= 0 {
		limitPerItem = 20
	}

	logs := []TransitionLog{}
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	if err := db.Where("work_item_id in (?)", workItemIDs).
		Order("create_time DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, err
	}

	for _, id := range workItemIDs {
		result[id] = []TransitionLog{}
	}
	for _, l := range logs {
		group := result[l.WorkItemID]
		if len(group) >= limitPerItem {
			continue
		}
		result[l.WorkItemID] = append(group, l)
	}
	return result, nil
}

// PurgeLogsOfWorkItem removes an item's entries inside the caller's
// transaction. Only the item delete path may call this.
func PurgeLogsOfWorkItem(workItemID types.ID, tx *gorm.DB) error {
	return tx.Delete(TransitionLog{}, "work_item_id = ?", workItemID).Error
}
