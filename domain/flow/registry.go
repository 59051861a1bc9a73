package flow

import (
	"context"
	"flowtrack/domain"
	"flowtrack/persistence"
	"sort"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RegistrySnapshot is an immutable view of the rule table. Transitions that
// started validating against one snapshot are unaffected by later registry
// updates.
type RegistrySnapshot struct {
	types  map[string]domain.WorkType
	states map[string]domain.WorkflowState

	rules    map[ruleKey]domain.TransitionRule
	outgoing map[stateKey][]domain.TransitionRule
}

type ruleKey struct {
	TypeCode  string
	FromState string
	Action    string
}

type stateKey struct {
	TypeCode  string
	FromState string
}

var (
	registryCache atomic.Value // holds *RegistrySnapshot

	// refresh at most once per interval, serve the cached snapshot otherwise
	registryRefreshLimiter = rate.NewLimiter(rate.Every(10*time.Second), 1)

	LoadRegistryFunc = LoadRegistry
	RegistryFunc     = Registry
)

// Registry returns the active snapshot, reloading from the database when the
// refresh limiter permits. A failed refresh keeps serving the last snapshot.
func Registry(ctx context.Context) (*RegistrySnapshot, error) {
	cached, _ := registryCache.Load().(*RegistrySnapshot)
	if cached != nil && !registryRefreshLimiter.Allow() {
		return cached, nil
	}

	snapshot, err := LoadRegistryFunc(ctx)
	if err != nil {
		if cached != nil {
			logrus.Warnf("registry refresh failed, serving stale snapshot: %v", err)
			return cached, nil
		}
		return nil, err
	}
	registryCache.Store(snapshot)
	return snapshot, nil
}

// InvalidateRegistry drops the cached snapshot so the next read reloads.
func InvalidateRegistry() {
	registryCache.Store((*RegistrySnapshot)(nil))
}

// LoadRegistry reads the whole rule table into a fresh snapshot.
func LoadRegistry(ctx context.Context) (*RegistrySnapshot, error) {
	db := persistence.ActiveDataSourceManager.GormDB(ctx)

	workTypes := []domain.WorkType{}
	if err := db.Find(&workTypes).Error; err != nil {
		return nil, err
	}
	states := []domain.WorkflowState{}
	if err := db.Find(&states).Error; err != nil {
		return nil, err
	}
	rules := []domain.TransitionRule{}
	if err := db.Find(&rules).Error; err != nil {
		return nil, err
	}

	return buildSnapshot(workTypes, states, rules), nil
}

func buildSnapshot(workTypes []domain.WorkType, states []domain.WorkflowState,
	rules []domain.TransitionRule) *RegistrySnapshot {

	snapshot := &RegistrySnapshot{
		types:    map[string]domain.WorkType{},
		states:   map[string]domain.WorkflowState{},
		rules:    map[ruleKey]domain.TransitionRule{},
		outgoing: map[stateKey][]domain.TransitionRule{},
	}
	for _, t := range workTypes {
		snapshot.types[t.Code] = t
	}
	for _, s := range states {
		snapshot.states[s.Code] = s
	}
	for _, r := range rules {
		snapshot.rules[ruleKey{TypeCode: r.TypeCode, FromState: r.FromState, Action: r.Action}] = r
		k := stateKey{TypeCode: r.TypeCode, FromState: r.FromState}
		snapshot.outgoing[k] = append(snapshot.outgoing[k], r)
	}
	for _, list := range snapshot.outgoing {
		sort.Slice(list, func(i, j int) bool { return list[i].Action < list[j].Action })
	}
	return snapshot
}

// RulesFor returns every rule matching (type, from state), empty when the
// state has no legal action (terminal or unconfigured).
func (s *RegistrySnapshot) RulesFor(typeCode, fromState string) []domain.TransitionRule {
	rules := s.outgoing[stateKey{TypeCode: typeCode, FromState: fromState}]
	result := make([]domain.TransitionRule, len(rules))
	copy(result, rules)
	return result
}

func (s *RegistrySnapshot) ResolveRule(typeCode, fromState, action string) (domain.TransitionRule, bool) {
	rule, found := s.rules[ruleKey{TypeCode: typeCode, FromState: fromState, Action: action}]
	return rule, found
}

func (s *RegistrySnapshot) TypeOf(code string) (domain.WorkType, bool) {
	t, found := s.types[code]
	return t, found
}

func (s *RegistrySnapshot) StateOf(code string) (domain.WorkflowState, bool) {
	state, found := s.states[code]
	return state, found
}

func (s *RegistrySnapshot) IsEndState(code string) bool {
	state, found := s.states[code]
	return found && state.IsEnd
}

func (s *RegistrySnapshot) WorkTypes() []domain.WorkType {
	result := make([]domain.WorkType, 0, len(s.types))
	for _, t := range s.types {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result
}

func (s *RegistrySnapshot) States() []domain.WorkflowState {
	result := make([]domain.WorkflowState, 0, len(s.states))
	for _, state := range s.states {
		result = append(result, state)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result
}

func (s *RegistrySnapshot) RulesOfType(typeCode string) []domain.TransitionRule {
	result := []domain.TransitionRule{}
	for _, rule := range s.rules {
		if rule.TypeCode == typeCode {
			result = append(result, rule)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].FromState != result[j].FromState {
			return result[i].FromState < result[j].FromState
		}
		return result[i].Action < result[j].Action
	})
	return result
}
