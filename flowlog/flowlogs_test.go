package flowlog

import (
	"context"
	"flowtrack/domain"
	"flowtrack/persistence"
	"flowtrack/testinfra"
	"testing"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
)

var (
	testDatabase *testinfra.TestDatabase
)

func setup(t *testing.T) {
	testDatabase = testinfra.StartMysqlTestDatabase("flowtrack")
	assert.Nil(t, testDatabase.DS.GormDB(context.Background()).AutoMigrate(&TransitionLog{}).Error)
	persistence.ActiveDataSourceManager = testDatabase.DS
}
func teardown(t *testing.T) {
	if testDatabase != nil {
		testinfra.StopMysqlTestDatabase(testDatabase)
	}
}

func TestAppendTransitionLog(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should fill id and timestamp when absent", func(t *testing.T) {
		setup(t)
		defer teardown(t)

		record := TransitionLog{WorkItemID: 100, FromState: "DRAFT", ToState: "PENDING_REVIEW",
			Action: "SUBMIT", OperatorID: 1, Payload: domain.FormData{"priority": "HIGH"}}
		Expect(AppendTransitionLog(&record, testDatabase.DS.GormDB(context.Background()))).To(BeNil())
		Expect(record.ID).ToNot(BeZero())
		Expect(record.CreateTime.IsZero()).To(BeFalse())

		stored := []TransitionLog{}
		Expect(testDatabase.DS.GormDB(context.Background()).Find(&stored).Error).To(BeNil())
		Expect(len(stored)).To(Equal(1))
		Expect(stored[0].ID).To(Equal(record.ID))
		Expect(stored[0].Payload).To(Equal(domain.FormData{"priority": "HIGH"}))
	})

	t.Run("should roll back together with the enclosing transaction", func(t *testing.T) {
		setup(t)
		defer teardown(t)

		db := testDatabase.DS.GormDB(context.Background())
		err := db.Transaction(func(tx *gorm.DB) error {
			record := TransitionLog{WorkItemID: 100, FromState: "DRAFT", ToState: "PENDING_REVIEW",
				Action: "SUBMIT", OperatorID: 1}
			if err := AppendTransitionLog(&record, tx); err != nil {
				return err
			}
			return gorm.ErrInvalidTransaction
		})
		Expect(err).To(Equal(gorm.ErrInvalidTransaction))

		stored := []TransitionLog{}
		Expect(db.Find(&stored).Error).To(BeNil())
		Expect(stored).To(BeEmpty())
	})
}

func TestLogsOfWorkItem(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should return entries of one item in occurrence order", func(t *testing.T) {
		setup(t)
		defer teardown(t)

		db := testDatabase.DS.GormDB(context.Background())
		entries := []TransitionLog{
			{ID: 3, WorkItemID: 100, FromState: "PENDING_REVIEW", ToState: "PENDING_DEVELOP", Action: "APPROVE",
				CreateTime: types.TimestampOfDate(2026, 1, 2, 10, 0, 0, 0, time.Local)},
			{ID: 1, WorkItemID: 100, FromState: "DRAFT", ToState: "PENDING_REVIEW", Action: "SUBMIT",
				CreateTime: types.TimestampOfDate(2026, 1, 1, 10, 0, 0, 0, time.Local)},
			{ID: 2, WorkItemID: 200, FromState: "DRAFT", ToState: "PENDING_DEVELOP", Action: "ASSIGN",
				CreateTime: types.TimestampOfDate(2026, 1, 1, 12, 0, 0, 0, time.Local)},
		}
		for i := range entries {
			Expect(db.Create(&entries[i]).Error).To(BeNil())
		}

		logs, err := LogsOfWorkItem(context.Background(), 100)
		Expect(err).To(BeNil())
		Expect(len(logs)).To(Equal(2))
		Expect(logs[0].Action).To(Equal("SUBMIT"))
		Expect(logs[1].Action).To(Equal("APPROVE"))
	})
}

func TestBatchLogsOfWorkItems(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should group newest-first entries per item, truncated to the limit", func(t *testing.T) {
		setup(t)
		defer teardown(t)

		db := testDatabase.DS.GormDB(context.Background())
		for i := 1; i <= 5; i++ {
			entry := TransitionLog{ID: types.ID(i), WorkItemID: 100, FromState: "A", ToState: "B", Action: "GO",
				CreateTime: types.TimestampOfDate(2026, 1, i, 10, 0, 0, 0, time.Local)}
			Expect(db.Create(&entry).Error).To(BeNil())
		}
		other := TransitionLog{ID: 6, WorkItemID: 200, FromState: "A", ToState: "B", Action: "GO",
			CreateTime: types.TimestampOfDate(2026, 1, 1, 10, 0, 0, 0, time.Local)}
		Expect(db.Create(&other).Error).To(BeNil())

		groups, err := BatchLogsOfWorkItems(context.Background(), []types.ID{100, 200, 300}, 2)
		Expect(err).To(BeNil())
		Expect(len(groups)).To(Equal(3))
		Expect(len(groups[100])).To(Equal(2))
		Expect(groups[100][0].ID).To(Equal(types.ID(5)))
		Expect(groups[100][1].ID).To(Equal(types.ID(4)))
		Expect(len(groups[200])).To(Equal(1))
		Expect(groups[300]).To(BeEmpty())
	})

	t.Run("should return empty map for an empty id list", func(t *testing.T) {
		setup(t)
		defer teardown(t)

		groups, err := BatchLogsOfWorkItems(context.Background(), []types.ID{}, 10)
		Expect(err).To(BeNil())
		Expect(groups).To(BeEmpty())
	})
}

func TestPurgeLogsOfWorkItem(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should remove only the entries of the given item", func(t *testing.T) {
		setup(t)
		defer teardown(t)

		db := testDatabase.DS.GormDB(context.Background())
		entries := []TransitionLog{
			{ID: 1, WorkItemID: 100, FromState: "A", ToState: "B", Action: "GO",
				CreateTime: types.CurrentTimestamp()},
			{ID: 2, WorkItemID: 200, FromState: "A", ToState: "B", Action: "GO",
				CreateTime: types.CurrentTimestamp()},
		}
		for i := range entries {
			Expect(db.Create(&entries[i]).Error).To(BeNil())
		}

		Expect(PurgeLogsOfWorkItem(100, db)).To(BeNil())

		remaining := []TransitionLog{}
		Expect(db.Find(&remaining).Error).To(BeNil())
		Expect(len(remaining)).To(Equal(1))
		Expect(remaining[0].WorkItemID).To(Equal(types.ID(200)))
	})
}
