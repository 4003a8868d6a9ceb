package domain

import (
	"fmt"
	"time"
)

// Action is the pending or last-performed sync action for a tracking row.
type Action string

const (
	ActionNone   Action = "no_action"
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// EntityType is the coarse classification of a tracked target.
type EntityType string

const (
	EntityTypeProduct   EntityType = "product"
	EntityTypeAttribute EntityType = "attribute"
)

// Subtype is the fine-grained role a tracked target plays. The same physical
// item can own one row per role.
type Subtype string

const (
	SubtypeSimple              Subtype = "simple"
	SubtypeConfigurable        Subtype = "configurable"
	SubtypeConfigurableVariant Subtype = "configurable_variant"
	SubtypeGrouped             Subtype = "grouped"
	SubtypeBundle              Subtype = "bundle"
)

// Snapshot holds the last observed value per drift criterion, keyed by
// criterion ID. A missing key means the criterion has never been baselined
// for this row.
type Snapshot map[string]any

// Baseline returns the stored value for a criterion and whether one exists.
func (s Snapshot) Baseline(criterionID string) (any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s[criterionID]
	return v, ok
}

// SetBaseline records the observed value for a criterion.
func (s Snapshot) SetBaseline(criterionID string, value any) {
	s[criterionID] = value
}

// TrackingRow is one sync-tracking record. A row is uniquely identified by
// (tenant key, target id, target parent id, subtype); the same target id can
// own several rows with different parent contexts.
type TrackingRow struct {
	ID             int64
	TenantKey      string
	TargetID       int64
	TargetParentID *int64
	EntityType     EntityType
	Subtype        Subtype
	IsIndexable    bool
	NextAction     Action
	LastAction     Action
	LastActionAt   *time.Time
	RequiresUpdate bool
	Snapshot       Snapshot
	UpdatedAt      time.Time
}

// Key returns the composite identity of the row as a stable string, suitable
// for log lines and map keys.
func (r *TrackingRow) Key() string {
	parent := int64(0)
	if r.TargetParentID != nil {
		parent = *r.TargetParentID
	}
	return fmt.Sprintf("%s/%d/%d/%s", r.TenantKey, r.TargetID, parent, r.Subtype)
}

// MarkDirty flags the row for re-extraction and refreshes the criterion's
// baseline to the just-observed value. The two always change together.
func (r *TrackingRow) MarkDirty(criterionID string, observed any) {
	if r.Snapshot == nil {
		r.Snapshot = make(Snapshot, 1)
	}
	r.Snapshot.SetBaseline(criterionID, observed)
	r.RequiresUpdate = true
}
