package account

import (
	"context"
	"errors"
	"flowtrack/persistence"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/patrickmn/go-cache"
)

// User mirrors one entry of the external identity directory. The engine only
// ever stores ids; name and role are lookup data for presentation.
type User struct {
	ID   types.ID `json:"id" gorm:"primary_key"`
	Name string   `json:"name" gorm:"unique_index:uni_user_name"`
	Role string   `json:"role"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

var (
	usersCache = cache.New(5*time.Minute, 1*time.Minute)

	QueryUsersFunc = QueryUsers
	DetailUserFunc = DetailUser
	ExistsUserFunc = ExistsUser
)

// DefaultUsers seeds a small directory matching the client's user switcher.
var DefaultUsers = []User{
	{ID: 1, Name: "alice", Role: "Product Manager"},
	{ID: 2, Name: "bob", Role: "Developer"},
	{ID: 3, Name: "carol", Role: "Tester"},
	{ID: 4, Name: "david", Role: "Project Manager"},
}

func QueryUsers(ctx context.Context) ([]User, error) {
	users := []User{}
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	if err := db.Order("ID ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func DetailUser(ctx context.Context, id types.ID) (*User, error) {
	if cached, found := usersCache.Get(id.String()); found {
		user := cached.(User)
		return &user, nil
	}

	user := User{}
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	if err := db.Where(&User{ID: id}).First(&user).Error; err != nil {
		return nil, err
	}
	usersCache.Set(id.String(), user, cache.DefaultExpiration)
	return &user, nil
}

func ExistsUser(ctx context.Context, id types.ID) (bool, error) {
	if _, found := usersCache.Get(id.String()); found {
		return true, nil
	}
	_, err := DetailUserFunc(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// SyncDefaultUsers upserts the default directory. Idempotent, run at boot.
func SyncDefaultUsers(ctx context.Context) error {
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	return db.Transaction(func(tx *gorm.DB) error {
		for _, user := range DefaultUsers {
			existing := User{}
			err := tx.Where(&User{ID: user.ID}).First(&existing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				user.CreateTime = types.CurrentTimestamp()
				if err := tx.Create(&user).Error; err != nil {
					return err
				}
				continue
			}
			if err != nil {
				return err
			}
			if existing.Name != user.Name || existing.Role != user.Role {
				if err := tx.Model(&User{}).Where("id = ?", user.ID).
					Updates(map[string]interface{}{"name": user.Name, "role": user.Role}).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}
