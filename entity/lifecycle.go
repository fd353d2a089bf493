package entity

import (
	"context"

	"github.com/teranos/entorm/errors"
	"github.com/teranos/entorm/logger"
	"github.com/teranos/entorm/query"
)

// NewQuery starts a query over the entity's type.
func (e *Entity) NewQuery() *Query {
	return newQuery(e.reg, e.schema)
}

// byID is a query narrowed to this entity's row
func (e *Entity) byID() *Query {
	return e.NewQuery().Where(IDField, query.OpEq, e.id)
}

// Save writes the entity. A persisted entity is updated by id and the result
// reports whether a row matched; a zero-row update keeps the identifier. An
// unsaved entity is inserted and takes the id the store returned. Saving a
// deleted entity does nothing.
func (e *Entity) Save(ctx context.Context) (bool, error) {
	if e.deleted {
		return false, nil
	}
	log := logger.WithContext(ctx, e.reg.logger).With(logger.FieldEntityType, e.schema.Type)

	if e.hasID {
		affected, err := e.byID().Update(ctx, e.ValuesToSave())
		if err != nil {
			return false, errors.Wrapf(err, "save %s %d", e.schema.Type, e.id)
		}
		if affected == 0 {
			log.Debugw("Update matched no row", logger.FieldEntityID, e.id)
		}
		return affected > 0, nil
	}

	id, err := e.NewQuery().Insert(ctx, e.ValuesToSave())
	if err != nil {
		return false, errors.Wrapf(err, "save new %s", e.schema.Type)
	}
	if id <= 0 {
		log.Warnw("Insert returned no identifier")
		return false, nil
	}
	e.setID(id)
	e.relinkChildren()
	log.Debugw("Inserted entity", logger.FieldEntityID, id)
	return true, nil
}

// relinkChildren refreshes the back-references of materialized children so
// their cached foreign key carries the id assigned by an insert.
func (e *Entity) relinkChildren() {
	for i := range e.schema.Fields {
		f := &e.schema.Fields[i]
		rel := e.relations[f.Name]
		switch v := rel.value.(type) {
		case *Collection:
			for _, child := range v.entities {
				e.reg.resolver.attach(e, f, child)
			}
		case *Entity:
			if f.Type == TypeHasOne {
				e.reg.resolver.attach(e, f, v)
			}
		}
	}
}

// Delete removes the entity's row. It reports true once a row was removed;
// later calls return true without touching the store.
func (e *Entity) Delete(ctx context.Context) (bool, error) {
	if e.deleted {
		return true, nil
	}
	if !e.hasID {
		return false, nil
	}
	affected, err := e.byID().Delete(ctx)
	if err != nil {
		return false, errors.Wrapf(err, "delete %s %d", e.schema.Type, e.id)
	}
	e.deleted = affected > 0
	return e.deleted, nil
}

// Reload re-reads the entity's row. Relations that had been fetched or
// assigned are fetched again; the rest stay lazy. When the row is gone the entity
// loses its identifier.
func (e *Entity) Reload(ctx context.Context) error {
	if !e.hasID || e.deleted {
		return nil
	}
	result, _, err := e.byID().Limit(1).fetch(ctx)
	if err != nil {
		return errors.Wrapf(err, "reload %s %d", e.schema.Type, e.id)
	}
	row := result.First()
	if row == nil {
		e.reg.logger.Debugw("Reload found no row, detaching",
			logger.FieldEntityType, e.schema.Type,
			logger.FieldEntityID, e.id)
		e.clearID()
		return nil
	}

	var resolved []*Field
	for i := range e.schema.Fields {
		f := &e.schema.Fields[i]
		if f.Type.IsRelation() && e.relations[f.Name].loaded {
			resolved = append(resolved, f)
		}
	}
	if err := e.setValues(ctx, row, true); err != nil {
		return err
	}
	for _, f := range resolved {
		if _, err := e.reg.resolver.resolve(ctx, e, f, true); err != nil {
			return err
		}
	}
	return nil
}
