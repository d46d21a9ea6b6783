package docstore

import "fmt"

// Change is the final state of one document after a batch. Deleted changes
// carry no data.
type Change struct {
	Path    Path
	Data    Document
	Deleted bool
}

// ReadFunc loads the committed state of a document inside a backend
// transaction.
type ReadFunc func(p Path) (Document, bool, error)

// Plan resolves ops against the committed state returned by read and yields
// one Change per touched document, in first-touch order. Later ops in the
// batch see the effects of earlier ones. Backends write the returned changes
// in a single transaction.
func Plan(ops []Op, read ReadFunc) ([]Change, error) {
	type staged struct {
		data   Document
		exists bool
	}

	state := make(map[Path]*staged, len(ops))
	order := make([]Path, 0, len(ops))

	current := func(p Path) (*staged, error) {
		if s, ok := state[p]; ok {
			return s, nil
		}
		data, exists, err := read(p)
		if err != nil {
			return nil, err
		}
		s := &staged{data: data, exists: exists}
		state[p] = s
		order = append(order, p)
		return s, nil
	}

	for _, op := range ops {
		if err := op.Path.Validate(); err != nil {
			return nil, err
		}
		data, err := Normalize(op.Data)
		if err != nil {
			return nil, err
		}
		s, err := current(op.Path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", op.Path, err)
		}

		switch op.Kind {
		case OpSet:
			s.data, s.exists = data, true
		case OpUpdate:
			if !s.exists {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, op.Path)
			}
			s.data = mergeTop(s.data, data)
		case OpMerge:
			if s.exists {
				s.data = mergeTop(s.data, data)
			} else {
				s.data, s.exists = data, true
			}
		case OpDelete:
			s.data, s.exists = nil, false
		default:
			return nil, fmt.Errorf("unknown op kind %s", op.Kind)
		}
	}

	changes := make([]Change, 0, len(order))
	for _, p := range order {
		s := state[p]
		if s.exists {
			changes = append(changes, Change{Path: p, Data: s.data})
		} else {
			changes = append(changes, Change{Path: p, Deleted: true})
		}
	}
	return changes, nil
}

func mergeTop(base, patch Document) Document {
	out := make(Document, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}
