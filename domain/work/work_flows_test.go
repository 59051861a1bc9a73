package work_test

import (
	"context"
	"flowtrack/domain"
	"flowtrack/domain/work"
	"testing"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	. "github.com/onsi/gomega"
)

func TestFlowOfWorkItem(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should start with the root state for fresh items", func(t *testing.T) {
		setup(t)
		defer teardown(t)
		item := createDraftRequirement(1)

		stateFlow, err := work.FlowOfWorkItem(context.Background(), item.ID)
		Expect(err).To(BeNil())
		Expect(stateFlow.WorkItemID).To(Equal(item.ID))
		Expect(stateFlow.StateFlow).To(Equal([]string{"DRAFT"}))
	})

	t.Run("should replay committed transitions in order, ignoring reassignments", func(t *testing.T) {
		setup(t)
		defer teardown(t)
		item := createDraftRequirement(1)

		for _, step := range []work.TransitionRequest{
			{Action: "SUBMIT", OperatorID: 1, FormData: domain.FormData{"priority": "HIGH", "target_owner_id": "4"}},
			{Action: "APPROVE", OperatorID: 4, FormData: domain.FormData{"comment": "ok"}},
			{Action: "START_DEVELOP", OperatorID: 1},
		} {
			_, err := work.ExecuteTransition(context.Background(), item.ID, &step)
			Expect(err).To(BeNil())
		}
		_, err := work.ReassignWorkItem(context.Background(), item.ID,
			&work.ReassignRequest{OperatorID: 1, TargetOwnerID: 2})
		Expect(err).To(BeNil())

		stateFlow, err := work.FlowOfWorkItem(context.Background(), item.ID)
		Expect(err).To(BeNil())
		Expect(stateFlow.StateFlow).To(Equal([]string{"DRAFT", "PENDING_REVIEW", "PENDING_DEVELOP", "DEVELOPING"}))
	})

	t.Run("should close with the live state when logs are incomplete", func(t *testing.T) {
		setup(t)
		defer teardown(t)

		db := testDatabase.DS.GormDB(context.Background())
		now := types.CurrentTimestamp()
		Expect(db.Create(&domain.WorkItem{ID: 77, TypeCode: "REQUIREMENT", Title: "imported",
			CurrentState: "DEVELOPING", CreatorID: 1, CreateTime: now, UpdateTime: now}).Error).To(BeNil())

		stateFlow, err := work.FlowOfWorkItem(context.Background(), 77)
		Expect(err).To(BeNil())
		Expect(stateFlow.StateFlow).To(Equal([]string{"DRAFT", "DEVELOPING"}))
	})
}

func TestChildrenOfWorkItem(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should list direct children newest first", func(t *testing.T) {
		setup(t)
		defer teardown(t)

		db := testDatabase.DS.GormDB(context.Background())
		seed := []domain.WorkItem{
			{ID: 1, TypeCode: "REQUIREMENT", Title: "parent", CurrentState: "DRAFT", CreatorID: 1,
				CreateTime: types.TimestampOfDate(2026, 1, 1, 9, 0, 0, 0, time.Local)},
			{ID: 2, TypeCode: "TEST_CASE", Title: "case 1", CurrentState: "DRAFT", CreatorID: 3, ParentID: 1,
				CreateTime: types.TimestampOfDate(2026, 1, 2, 9, 0, 0, 0, time.Local)},
			{ID: 3, TypeCode: "TEST_CASE", Title: "case 2", CurrentState: "DRAFT", CreatorID: 3, ParentID: 1,
				CreateTime: types.TimestampOfDate(2026, 1, 3, 9, 0, 0, 0, time.Local)},
			{ID: 4, TypeCode: "TEST_CASE", Title: "unrelated", CurrentState: "DRAFT", CreatorID: 3,
				CreateTime: types.TimestampOfDate(2026, 1, 4, 9, 0, 0, 0, time.Local)},
		}
		for i := range seed {
			seed[i].UpdateTime = seed[i].CreateTime
			Expect(db.Create(&seed[i]).Error).To(BeNil())
		}

		children, err := work.ChildrenOfWorkItem(context.Background(), 1)
		Expect(err).To(BeNil())
		Expect(len(children)).To(Equal(2))
		Expect(children[0].ID).To(Equal(types.ID(3)))
		Expect(children[1].ID).To(Equal(types.ID(2)))

		children, err = work.ChildrenOfWorkItem(context.Background(), 4)
		Expect(err).To(BeNil())
		Expect(children).To(BeEmpty())
	})
}

func TestParentOfWorkItem(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should resolve the parent and tolerate absent or deleted ones", func(t *testing.T) {
		setup(t)
		defer teardown(t)

		parent := createDraftRequirement(1)
		child, err := work.CreateWorkItem(context.Background(),
			&domain.WorkItemCreation{TypeCode: "TEST_CASE", Title: "child", CreatorID: 3, ParentID: parent.ID})
		Expect(err).To(BeNil())

		resolved, err := work.ParentOfWorkItem(context.Background(), child.ID)
		Expect(err).To(BeNil())
		Expect(resolved.ID).To(Equal(parent.ID))

		orphan, err := work.ParentOfWorkItem(context.Background(), parent.ID)
		Expect(err).To(BeNil())
		Expect(orphan).To(BeNil())

		Expect(work.DeleteWorkItem(context.Background(), parent.ID)).To(BeNil())
		dangling, err := work.ParentOfWorkItem(context.Background(), child.ID)
		Expect(err).To(BeNil())
		Expect(dangling).To(BeNil())
	})

	t.Run("should report record not found for unknown items", func(t *testing.T) {
		setup(t)
		defer teardown(t)

		_, err := work.ParentOfWorkItem(context.Background(), 404404)
		Expect(err).To(Equal(gorm.ErrRecordNotFound))
	})
}
