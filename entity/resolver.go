package entity

import (
	"context"

	"github.com/teranos/entorm/errors"
	"github.com/teranos/entorm/logger"
	"github.com/teranos/entorm/query"
)

// ResolutionStatus tells apart a relation that was never looked up from one
// that was looked up and found nothing.
type ResolutionStatus int

const (
	Unresolved ResolutionStatus = iota
	ResolvedPresent
	ResolvedAbsent
)

func (s ResolutionStatus) String() string {
	switch s {
	case ResolvedPresent:
		return "present"
	case ResolvedAbsent:
		return "absent"
	}
	return "unresolved"
}

// relation is the per-entity state of one relation field.
// value is *Entity (belongs-to, has-one) or *Collection (has-many).
// loaded marks a value that was fetched or assigned, as opposed to an
// absence inferred from a NULL foreign key. Reload only refreshes loaded relations.
type relation struct {
	status ResolutionStatus
	value  any
	fk     int64
	hasFK  bool
	loaded bool
}

func (r *relation) materialized() any {
	switch v := r.value.(type) {
	case *Entity:
		if v == nil {
			return nil
		}
	case *Collection:
		if v == nil {
			return nil
		}
	}
	return r.value
}

// foreignKey is the belongs-to id to write. A referenced entity that was
// saved after assignment wins over the cached key.
func (r *relation) foreignKey() (int64, bool) {
	if ref, ok := r.value.(*Entity); ok && ref != nil && ref.hasID {
		return ref.id, true
	}
	return r.fk, r.hasFK
}

func (r *relation) present(v any) {
	r.status, r.value, r.loaded = ResolvedPresent, v, true
}

func (r *relation) absent() {
	r.status, r.value = ResolvedAbsent, nil
}

func (r *relation) reset() {
	r.status, r.value, r.loaded = Unresolved, nil, false
}

// resolver performs relation fetches and the back-reference writes that
// link both sides of a has-many or has-one.
type resolver struct {
	reg *Registry
}

// attach points child's back-reference at parent.
func (res *resolver) attach(parent *Entity, f *Field, child *Entity) {
	if f.BackRef == "" || child == nil {
		return
	}
	back, ok := child.relations[f.BackRef]
	if !ok {
		return
	}
	back.present(parent)
	back.fk, back.hasFK = parent.id, parent.hasID
}

// detach clears child's back-reference.
func (res *resolver) detach(child *Entity, backRef string) {
	if backRef == "" || child == nil {
		return
	}
	back, ok := child.relations[backRef]
	if !ok {
		return
	}
	back.absent()
	back.fk, back.hasFK = 0, false
}

// resolve loads f for e when it has not been resolved yet, or when refresh is set.
func (res *resolver) resolve(ctx context.Context, e *Entity, f *Field, refresh bool) (any, error) {
	rel := e.relations[f.Name]
	if rel.status != Unresolved && !refresh {
		return rel.materialized(), nil
	}
	var (
		v   any
		err error
	)
	switch f.Type {
	case TypeBelongsTo:
		v, err = res.loadBelongsTo(ctx, e, f, rel)
	case TypeHasMany:
		v, err = res.loadHasMany(ctx, e, f, rel)
	case TypeHasOne:
		v, err = res.loadHasOne(ctx, e, f, rel)
	default:
		return nil, errors.AssertionFailedf("%s.%s is not a relation", e.schema.Type, f.Name)
	}
	if err != nil {
		return nil, err
	}
	rel.loaded = true
	return v, nil
}

func (res *resolver) loadBelongsTo(ctx context.Context, e *Entity, f *Field, rel *relation) (any, error) {
	if !rel.hasFK {
		if rel.status == Unresolved {
			rel.absent()
		}
		return rel.materialized(), nil
	}
	res.observe(e, f)
	target, err := res.reg.GetByID(ctx, f.Target, rel.fk)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s.%s", e.schema.Type, f.Name)
	}
	if target == nil {
		rel.absent()
		return nil, nil
	}
	rel.present(target)
	return target, nil
}

func (res *resolver) loadHasMany(ctx context.Context, e *Entity, f *Field, rel *relation) (any, error) {
	if !e.hasID {
		return NewCollection(nil), nil
	}
	res.observe(e, f)
	children, err := res.reg.NewQuery(f.Target).Where(f.ForeignKey, query.OpEq, e.id).All(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s.%s", e.schema.Type, f.Name)
	}
	for _, child := range children.entities {
		res.attach(e, f, child)
	}
	rel.present(children)
	return children, nil
}

func (res *resolver) loadHasOne(ctx context.Context, e *Entity, f *Field, rel *relation) (any, error) {
	if !e.hasID {
		return nil, nil
	}
	res.observe(e, f)
	child, err := res.reg.NewQuery(f.Target).Where(f.ForeignKey, query.OpEq, e.id).One(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s.%s", e.schema.Type, f.Name)
	}
	if child == nil {
		rel.absent()
		return nil, nil
	}
	res.attach(e, f, child)
	rel.present(child)
	return child, nil
}

func (res *resolver) observe(e *Entity, f *Field) {
	relationLoads.WithLabelValues(e.schema.Type, f.Name, f.Type.String()).Inc()
	res.reg.logger.Debugw("Loading relation",
		logger.FieldEntityType, e.schema.Type,
		logger.FieldEntityID, e.idValue(),
		logger.FieldRelation, f.Type.String(),
		logger.FieldField, f.Name)
}

// setBelongsTo accepts an entity of the target type, a numeric id or nil.
// An id alone clears any materialized value so the next read fetches it.
func (e *Entity) setBelongsTo(f *Field, v any) {
	rel := e.relations[f.Name]
	if ref, ok := v.(*Entity); ok {
		if ref == nil {
			v = nil
		} else {
			if ref.schema.Type != f.Target {
				e.dropped(f, v)
				return
			}
			rel.present(ref)
			rel.fk, rel.hasFK = ref.id, ref.hasID
			return
		}
	}
	id, ok := CoerceInt(v)
	if !ok {
		e.dropped(f, v)
		return
	}
	if id == nil {
		rel.absent()
		rel.fk, rel.hasFK = 0, false
		return
	}
	rel.reset()
	rel.fk, rel.hasFK = id.(int64), true
}

// setHasMany accepts a list of target entities or a collection; nil forgets
// the current value so the next read loads it again.
func (e *Entity) setHasMany(f *Field, v any) {
	rel := e.relations[f.Name]
	var members []*Entity
	switch list := v.(type) {
	case nil:
		rel.reset()
		return
	case *Collection:
		if list == nil {
			rel.reset()
			return
		}
		members = list.entities
	case []*Entity:
		members = list
	case []any:
		members = make([]*Entity, 0, len(list))
		for _, item := range list {
			child, ok := item.(*Entity)
			if !ok {
				e.dropped(f, v)
				return
			}
			members = append(members, child)
		}
	default:
		e.dropped(f, v)
		return
	}
	for _, child := range members {
		if child == nil || child.schema.Type != f.Target {
			e.dropped(f, v)
			return
		}
	}
	c := NewCollection(members)
	for _, child := range c.entities {
		e.reg.resolver.attach(e, f, child)
	}
	rel.present(c)
}

// setHasOne accepts a target entity, a numeric id (fetched immediately) or
// nil, which also clears the old target's back-reference.
func (e *Entity) setHasOne(ctx context.Context, f *Field, v any) error {
	rel := e.relations[f.Name]
	res := e.reg.resolver
	if child, ok := v.(*Entity); ok && child != nil {
		if child.schema.Type != f.Target {
			e.dropped(f, v)
			return nil
		}
		res.attach(e, f, child)
		rel.present(child)
		return nil
	} else if ok {
		v = nil
	}
	if v == nil {
		if old, ok := rel.value.(*Entity); ok {
			res.detach(old, f.BackRef)
		}
		rel.absent()
		return nil
	}
	id, ok := CoerceInt(v)
	if !ok || id == nil {
		e.dropped(f, v)
		return nil
	}
	child, err := e.reg.GetByID(ctx, f.Target, id.(int64))
	if err != nil {
		return errors.Wrapf(err, "load %s.%s", e.schema.Type, f.Name)
	}
	if child == nil {
		e.reg.logger.Debugw("Has-one target not found",
			logger.FieldEntityType, e.schema.Type,
			logger.FieldField, f.Name,
			logger.FieldEntityID, id)
		return nil
	}
	res.attach(e, f, child)
	rel.present(child)
	return nil
}

// anyRelation matches every relation type in relationField
const anyRelation FieldType = -1

func (e *Entity) relationField(key string, want FieldType) (*Field, error) {
	f, ok := e.schema.field(key)
	if !ok {
		return nil, errors.NewUnknownFieldError(e.schema.Type, key)
	}
	if want != f.Type && !(want == anyRelation && f.Type.IsRelation()) {
		return nil, errors.Newf("%s.%s is a %s field", e.schema.Type, key, f.Type)
	}
	return f, nil
}

// Resolve returns relation key, loading it if it was never resolved or when
// refresh is set. The result is *Entity, *Collection or nil.
func (e *Entity) Resolve(ctx context.Context, key string, refresh bool) (any, error) {
	f, err := e.relationField(key, anyRelation)
	if err != nil {
		return nil, err
	}
	return e.reg.resolver.resolve(ctx, e, f, refresh)
}

// BelongsTo returns the entity a belongs-to field refers to, fetching it on first read.
func (e *Entity) BelongsTo(ctx context.Context, key string) (*Entity, error) {
	f, err := e.relationField(key, TypeBelongsTo)
	if err != nil {
		return nil, err
	}
	v, err := e.reg.resolver.resolve(ctx, e, f, false)
	ref, _ := v.(*Entity)
	return ref, err
}

// HasMany returns a has-many field's collection, fetching it on first read.
// An unsaved entity has an empty collection.
func (e *Entity) HasMany(ctx context.Context, key string) (*Collection, error) {
	f, err := e.relationField(key, TypeHasMany)
	if err != nil {
		return nil, err
	}
	v, err := e.reg.resolver.resolve(ctx, e, f, false)
	if err != nil {
		return nil, err
	}
	if c, ok := v.(*Collection); ok {
		return c, nil
	}
	return NewCollection(nil), nil
}

// HasOne returns a has-one field's entity, fetching it on first read.
func (e *Entity) HasOne(ctx context.Context, key string) (*Entity, error) {
	f, err := e.relationField(key, TypeHasOne)
	if err != nil {
		return nil, err
	}
	v, err := e.reg.resolver.resolve(ctx, e, f, false)
	child, _ := v.(*Entity)
	return child, err
}

// Status reports the resolution status of a relation field. Non-relation
// keys are always Unresolved.
func (e *Entity) Status(key string) ResolutionStatus {
	if rel, ok := e.relations[key]; ok {
		return rel.status
	}
	return Unresolved
}

// ForeignKey returns the id a belongs-to field refers to.
func (e *Entity) ForeignKey(key string) (int64, bool) {
	f, ok := e.schema.field(key)
	if !ok || f.Type != TypeBelongsTo {
		return 0, false
	}
	return e.relations[key].foreignKey()
}
