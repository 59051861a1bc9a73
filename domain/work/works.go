package work

import (
	"context"
	"errors"
	"flowtrack/bizerror"
	"flowtrack/domain"
	"flowtrack/domain/flow"
	"flowtrack/flowlog"
	"flowtrack/idgen"
	"flowtrack/persistence"
	"strings"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	workItemIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateWorkItemFunc = CreateWorkItem
	DetailWorkItemFunc = DetailWorkItem
	QueryWorkItemsFunc = QueryWorkItems
	DeleteWorkItemFunc = DeleteWorkItem

	CasUpdateWorkItemFunc = CasUpdateWorkItem
)

var orderByColumns = map[string]string{
	domain.OrderByCreatedAt: "create_time",
	domain.OrderByUpdatedAt: "update_time",
	domain.OrderByTitle:     "title",
}

const (
	defaultQueryLimit = 20
	maxQueryLimit     = 100
)

// CreateWorkItem initializes an item in its type's root state, owned by its
// creator, at version 0.
func CreateWorkItem(ctx context.Context, c *domain.WorkItemCreation) (*domain.WorkItem, error) {
	registry, err := flow.RegistryFunc(ctx)
	if err != nil {
		return nil, err
	}
	workType, found := registry.TypeOf(c.TypeCode)
	if !found {
		return nil, &bizerror.ErrInvalidType{TypeCode: c.TypeCode}
	}

	now := types.CurrentTimestamp()
	item := &domain.WorkItem{
		ID:       idgen.NextID(workItemIdWorker),
		TypeCode: workType.Code,
		Title:    c.Title,
		Content:  c.Content,

		CurrentState:   workType.RootState,
		CurrentOwnerID: c.CreatorID,
		CreatorID:      c.CreatorID,
		ParentID:       c.ParentID,

		CreateTime: now,
		UpdateTime: now,
		Version:    0,
	}

	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	if err := db.Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func DetailWorkItem(ctx context.Context, id types.ID) (*domain.WorkItem, error) {
	item := domain.WorkItem{}
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	if err := db.Where(&domain.WorkItem{ID: id}).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// QueryWorkItems serves filtered listing, sorted listing and keyword search
// over one code path. Keyword matches are case-insensitive substrings of
// title or content. Default order is creation time descending.
func QueryWorkItems(ctx context.Context, q *domain.WorkItemQuery) ([]domain.WorkItem, error) {
	db := persistence.ActiveDataSourceManager.GormDB(ctx)

	query := db.Model(&domain.WorkItem{})
	if q.TypeCode != "" {
		query = query.Where("type_code = ?", q.TypeCode)
	}
	if q.State != "" {
		query = query.Where("current_state = ?", q.State)
	}
	if q.OwnerID != 0 {
		query = query.Where("current_owner_id = ?", q.OwnerID)
	}
	if q.CreatorID != 0 {
		query = query.Where("creator_id = ?", q.CreatorID)
	}
	if q.Keyword != "" {
		pattern := "%" + strings.ToLower(q.Keyword) + "%"
		query = query.Where("(LOWER(title) LIKE ? OR LOWER(content) LIKE ?)", pattern, pattern)
	}

	column, direction, err := resolveOrder(q)
	if err != nil {
		return nil, err
	}
	query = query.Order(column + " " + direction)

	limit := q.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	items := []domain.WorkItem{}
	if err := query.Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func resolveOrder(q *domain.WorkItemQuery) (string, string, error) {
	column := "create_time"
	if q.OrderBy != "" {
		mapped, found := orderByColumns[q.OrderBy]
		if !found {
			return "", "", &bizerror.ErrBadParam{Cause: errors.New("unsupported order_by '" + q.OrderBy + "'")}
		}
		column = mapped
	}

	direction := "DESC"
	switch q.Direction {
	case "":
		// title sorts ascending unless asked otherwise
		if q.OrderBy == domain.OrderByTitle {
			direction = "ASC"
		}
	case domain.DirectionAsc:
		direction = "ASC"
	case domain.DirectionDesc:
		direction = "DESC"
	default:
		return "", "", &bizerror.ErrBadParam{Cause: errors.New("unsupported direction '" + q.Direction + "'")}
	}
	return column, direction, nil
}

// CasUpdateWorkItem is the only mutation path for stored items: the update
// applies and the version increments only when expectedVersion still matches,
// otherwise ErrVersionConflict without side effects.
func CasUpdateWorkItem(tx *gorm.DB, id types.ID, expectedVersion int64, changes map[string]interface{}) error {
	changes["version"] = expectedVersion + 1
	changes["update_time"] = types.CurrentTimestamp()

	query := tx.Model(&domain.WorkItem{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(changes)
	if query.Error != nil {
		return query.Error
	}
	if query.RowsAffected != 1 {
		return bizerror.ErrVersionConflict
	}
	return nil
}

// DeleteWorkItem removes the item and its logs in one transaction. Children
// keep their dangling parent reference.
func DeleteWorkItem(ctx context.Context, id types.ID) error {
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	return db.Transaction(func(tx *gorm.DB) error {
		item := domain.WorkItem{}
		if err := tx.Where(&domain.WorkItem{ID: id}).First(&item).Error; err != nil {
			return err
		}
		if err := tx.Delete(domain.WorkItem{}, "id = ?", id).Error; err != nil {
			return err
		}
		return flowlog.PurgeLogsOfWorkItemFunc(id, tx)
	})
}
