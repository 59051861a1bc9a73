package flow

import (
	"context"
	"errors"
	"flowtrack/domain"
	"flowtrack/idgen"
	"flowtrack/persistence"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
	"github.com/sony/sonyflake"
)

var (
	ruleIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	SyncRegistryFunc = SyncRegistry
)

// RegistryConfig is the declarative rule table a deployment ships with.
// Workflows change by editing this data, never by changing engine code.
type RegistryConfig struct {
	Types  []domain.WorkType
	States []domain.WorkflowState
	Rules  []domain.TransitionRule
}

// ValidateRegistryConfig enforces the registry invariants before anything is
// written: every referenced state and type is declared, rule keys are unique,
// TO_SPECIFIC_USER rules require the target owner field, and end states have
// no outgoing rules.
func ValidateRegistryConfig(c *RegistryConfig) error {
	typeCodes := map[string]bool{}
	for _, t := range c.Types {
		if typeCodes[t.Code] {
			return errors.New("duplicate work type " + t.Code)
		}
		typeCodes[t.Code] = true
	}
	states := map[string]domain.WorkflowState{}
	for _, s := range c.States {
		if _, dup := states[s.Code]; dup {
			return errors.New("duplicate state " + s.Code)
		}
		states[s.Code] = s
	}
	for _, t := range c.Types {
		if _, found := states[t.RootState]; !found {
			return errors.New("unknown root state " + t.RootState + " of type " + t.Code)
		}
	}

	ruleKeys := map[ruleKey]bool{}
	for _, r := range c.Rules {
		if !typeCodes[r.TypeCode] {
			return errors.New("rule references unknown type " + r.TypeCode)
		}
		fromState, found := states[r.FromState]
		if !found {
			return errors.New("rule references unknown state " + r.FromState)
		}
		if _, found := states[r.ToState]; !found {
			return errors.New("rule references unknown state " + r.ToState)
		}
		if fromState.IsEnd {
			return errors.New("end state " + r.FromState + " must not have outgoing rule " + r.Action)
		}

		key := ruleKey{TypeCode: r.TypeCode, FromState: r.FromState, Action: r.Action}
		if ruleKeys[key] {
			return errors.New("duplicate rule (" + r.TypeCode + ", " + r.FromState + ", " + r.Action + ")")
		}
		ruleKeys[key] = true

		switch r.TargetOwnerStrategy {
		case domain.OwnerKeep, domain.OwnerToCreator:
		case domain.OwnerToSpecificUser:
			if !containsField(r.RequiredFields, domain.FieldTargetOwnerID) {
				return errors.New("rule (" + r.TypeCode + ", " + r.FromState + ", " + r.Action +
					") requires " + domain.FieldTargetOwnerID + " in required fields")
			}
		default:
			return errors.New("unknown owner strategy " + string(r.TargetOwnerStrategy))
		}
	}
	return nil
}

func containsField(fields domain.FieldList, name string) bool {
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}

// SyncRegistry upserts the configured rule table and removes rows the config
// no longer declares, then invalidates the cached snapshot. Idempotent.
func SyncRegistry(ctx context.Context, c *RegistryConfig) error {
	if err := ValidateRegistryConfig(c); err != nil {
		return err
	}

	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := syncWorkTypes(tx, c.Types); err != nil {
			return err
		}
		if err := syncStates(tx, c.States); err != nil {
			return err
		}
		return syncRules(tx, c.Rules)
	})
	if err != nil {
		return err
	}

	InvalidateRegistry()
	return nil
}

func syncWorkTypes(tx *gorm.DB, workTypes []domain.WorkType) error {
	wanted := map[string]bool{}
	for _, t := range workTypes {
		wanted[t.Code] = true
		existing := domain.WorkType{}
		err := tx.Where(&domain.WorkType{Code: t.Code}).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			t.CreateTime = types.CurrentTimestamp()
			if err := tx.Create(&t).Error; err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		if existing.Name != t.Name || existing.RootState != t.RootState {
			if err := tx.Model(&domain.WorkType{}).Where("code = ?", t.Code).
				Updates(map[string]interface{}{"name": t.Name, "root_state": t.RootState}).Error; err != nil {
				return err
			}
		}
	}

	all := []domain.WorkType{}
	if err := tx.Find(&all).Error; err != nil {
		return err
	}
	for _, t := range all {
		if !wanted[t.Code] {
			logrus.Infof("removing retired work type %s", t.Code)
			if err := tx.Delete(domain.WorkType{}, "code = ?", t.Code).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func syncStates(tx *gorm.DB, states []domain.WorkflowState) error {
	wanted := map[string]bool{}
	for _, s := range states {
		wanted[s.Code] = true
		existing := domain.WorkflowState{}
		err := tx.Where(&domain.WorkflowState{Code: s.Code}).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.CreateTime = types.CurrentTimestamp()
			if err := tx.Create(&s).Error; err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		if existing.Name != s.Name || existing.IsEnd != s.IsEnd {
			if err := tx.Model(&domain.WorkflowState{}).Where("code = ?", s.Code).
				Updates(map[string]interface{}{"name": s.Name, "is_end": s.IsEnd}).Error; err != nil {
				return err
			}
		}
	}

	all := []domain.WorkflowState{}
	if err := tx.Find(&all).Error; err != nil {
		return err
	}
	for _, s := range all {
		if !wanted[s.Code] {
			logrus.Infof("removing retired workflow state %s", s.Code)
			if err := tx.Delete(domain.WorkflowState{}, "code = ?", s.Code).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func syncRules(tx *gorm.DB, rules []domain.TransitionRule) error {
	wanted := map[ruleKey]bool{}
	for _, r := range rules {
		key := ruleKey{TypeCode: r.TypeCode, FromState: r.FromState, Action: r.Action}
		wanted[key] = true

		existing := domain.TransitionRule{}
		err := tx.Where("type_code = ? AND from_state = ? AND action = ?",
			r.TypeCode, r.FromState, r.Action).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.ID = idgen.NextID(ruleIdWorker)
			r.CreateTime = types.CurrentTimestamp()
			if err := tx.Create(&r).Error; err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		if err := tx.Model(&domain.TransitionRule{}).Where("id = ?", existing.ID).
			Updates(map[string]interface{}{
				"to_state":              r.ToState,
				"target_owner_strategy": r.TargetOwnerStrategy,
				"required_fields":       r.RequiredFields,
			}).Error; err != nil {
			return err
		}
	}

	all := []domain.TransitionRule{}
	if err := tx.Find(&all).Error; err != nil {
		return err
	}
	for _, r := range all {
		key := ruleKey{TypeCode: r.TypeCode, FromState: r.FromState, Action: r.Action}
		if !wanted[key] {
			logrus.Infof("removing retired rule (%s, %s, %s)", r.TypeCode, r.FromState, r.Action)
			if err := tx.Delete(domain.TransitionRule{}, "id = ?", r.ID).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
