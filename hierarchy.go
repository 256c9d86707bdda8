package slicer

import (
	"context"
	"fmt"
)

// repairHierarchy resolves the supertype graph of every internal declared
// type not yet checked and admits each ancestor the type needs in order to
// compile. It returns how many entities were admitted; the caller drains
// the worklist again when that is non-zero.
func (r *run) repairHierarchy(ctx context.Context) (int, error) {
	added := 0
	for _, e := range r.slice.InternalEntities() {
		if !e.Kind.IsDeclaredType() || r.checked[e.ID] {
			continue
		}
		r.checked[e.ID] = true
		if err := r.resolveType(ctx, e.ID); err != nil {
			return added, err
		}
		for _, id := range r.requiredAncestors(e.ID) {
			if r.slice.Contains(id) {
				continue
			}
			anc, err := r.fetch(ctx, id)
			if err != nil {
				return added, err
			}
			if anc != nil && r.queue.push(anc) {
				r.logger.Debug("forced ancestor into slice", "type", e.ID, "ancestor", id)
				added++
			}
		}
	}
	return added, nil
}

// resolveType builds ModeledType nodes for root and all of its ancestors,
// memoized in the slice. Supertypes that have no entity record are dropped.
func (r *run) resolveType(ctx context.Context, root int64) error {
	stack := []int64{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if r.slice.Type(id) != nil {
			continue
		}

		t := &ModeledType{EntityID: id}
		supers, err := r.db.RelationTargetsBySource(ctx, RelExtends, id)
		if err != nil {
			return fmt.Errorf("supertypes of %d: %w", id, err)
		}
		if len(supers) > 1 {
			r.logger.Error("multiple supertypes", "type", id, "supertypes", supers)
		}
		if len(supers) > 0 {
			ok, err := r.exists(ctx, supers[0])
			if err != nil {
				return err
			}
			if ok {
				t.Superclass = supers[0]
				stack = append(stack, supers[0])
			} else {
				r.logger.Error("dangling supertype", "type", id, "supertype", supers[0])
			}
		}

		ifaces, err := r.db.RelationTargetsBySource(ctx, RelImplements, id)
		if err != nil {
			return fmt.Errorf("super-interfaces of %d: %w", id, err)
		}
		for _, iface := range ifaces {
			ok, err := r.exists(ctx, iface)
			if err != nil {
				return err
			}
			if !ok {
				r.logger.Error("dangling super-interface", "type", id, "interface", iface)
				continue
			}
			t.SuperInterfaces = append(t.SuperInterfaces, iface)
			stack = append(stack, iface)
		}
		r.slice.AddType(t)
	}
	return nil
}

func (r *run) exists(ctx context.Context, id int64) (bool, error) {
	if r.slice.Contains(id) {
		return true, nil
	}
	e, err := r.fetch(ctx, id)
	if err != nil {
		return false, err
	}
	return e != nil, nil
}

// requiredAncestors walks up from root and returns every ancestor that must
// be visible for root to compile: each super-interface, and each superclass
// that is not itself a root type (java.lang.Object). A node reached twice
// is not walked again.
func (r *run) requiredAncestors(root int64) []int64 {
	visited := map[int64]bool{root: true}
	stack := []int64{root}
	var required []int64
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t := r.slice.Type(id)
		if t == nil {
			continue
		}
		if sc := t.Superclass; sc != 0 && !visited[sc] {
			visited[sc] = true
			if st := r.slice.Type(sc); st != nil && !st.IsRoot() {
				required = append(required, sc)
				stack = append(stack, sc)
			}
		}
		for _, iface := range t.SuperInterfaces {
			if visited[iface] {
				continue
			}
			visited[iface] = true
			required = append(required, iface)
			stack = append(stack, iface)
		}
	}
	return required
}
