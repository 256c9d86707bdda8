package runtime

import (
	"context"

	"github.com/risor-io/risor/object"
)

// seedCollector gathers the IDs a script passes to seed().
type seedCollector struct {
	ids  []int64
	seen map[int64]bool
}

func newSeedCollector() *seedCollector {
	return &seedCollector{seen: make(map[int64]bool)}
}

func (c *seedCollector) add(id int64) {
	if c.seen[id] {
		return
	}
	c.seen[id] = true
	c.ids = append(c.ids, id)
}

// collect accepts an id, an entity map (its "id" key) or a list of either.
func (c *seedCollector) collect(obj object.Object) *object.Error {
	switch v := obj.(type) {
	case *object.Int:
		c.add(v.Value())
	case *object.Float:
		c.add(int64(v.Value()))
	case *object.Map:
		idObj, ok := v.Value()["id"]
		if !ok {
			return object.Errorf("seed: map has no id")
		}
		return c.collect(idObj)
	case *object.List:
		for _, item := range v.Value() {
			if err := c.collect(item); err != nil {
				return err
			}
		}
	case *object.NilType:
	default:
		return object.Errorf("seed: expected id, entity or list, got %s", obj.Type())
	}
	return nil
}

// builtin returns seed(...). It takes any number of arguments and returns
// the number of distinct seeds collected so far.
func (c *seedCollector) builtin() *object.Builtin {
	return object.NewBuiltin("seed", func(ctx context.Context, args ...object.Object) object.Object {
		for _, arg := range args {
			if err := c.collect(arg); err != nil {
				return err
			}
		}
		return object.NewInt(int64(len(c.ids)))
	})
}
