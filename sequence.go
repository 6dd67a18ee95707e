package argv

import (
	"strings"
)

// A Sequence is an immutable ordered container. It is the substrate the rest
// of the package is built on: the token stream handed to parsers is a
// Sequence[string], and the bindings a parser accumulates are a
// Sequence[KeyValue].
//
// Concat is associative and the empty Sequence is its identity, so Sequence
// forms a monoid. All operations return new values; a Sequence is never
// mutated after construction.
type Sequence[T any] struct {
	items []T
}

// NewSequence constructs a Sequence from the given items.
func NewSequence[T any](items ...T) Sequence[T] {
	if len(items) == 0 {
		return Sequence[T]{}
	}
	out := make([]T, len(items))
	copy(out, items)
	return Sequence[T]{items: out}
}

// Len returns the number of elements.
func (s Sequence[T]) Len() int { return len(s.items) }

// At returns the element at index i.
func (s Sequence[T]) At(i int) T { return s.items[i] }

// Slice returns the sub-sequence [i, j).
func (s Sequence[T]) Slice(i, j int) Sequence[T] {
	return Sequence[T]{items: s.items[i:j]}
}

// Head splits the sequence into its first element and the remainder.
// ok is false on an empty sequence.
func (s Sequence[T]) Head() (head T, tail Sequence[T], ok bool) {
	if len(s.items) == 0 {
		return head, s, false
	}
	return s.items[0], Sequence[T]{items: s.items[1:]}, true
}

// Concat appends other to s, returning a new Sequence.
func (s Sequence[T]) Concat(other Sequence[T]) Sequence[T] {
	if len(s.items) == 0 {
		return other
	}
	if len(other.items) == 0 {
		return s
	}
	out := make([]T, 0, len(s.items)+len(other.items))
	out = append(out, s.items...)
	out = append(out, other.items...)
	return Sequence[T]{items: out}
}

// Items returns a copy of the underlying elements, in order.
func (s Sequence[T]) Items() []T {
	if len(s.items) == 0 {
		return nil
	}
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// MapSeq applies f to every element, preserving order.
func MapSeq[A, B any](s Sequence[A], f func(A) B) Sequence[B] {
	if len(s.items) == 0 {
		return Sequence[B]{}
	}
	out := make([]B, len(s.items))
	for i, a := range s.items {
		out[i] = f(a)
	}
	return Sequence[B]{items: out}
}

// BindSeq flat-maps f over s, concatenating the produced sub-sequences in
// order.
func BindSeq[A, B any](s Sequence[A], f func(A) Sequence[B]) Sequence[B] {
	var out []B
	for _, a := range s.items {
		out = append(out, f(a).items...)
	}
	return Sequence[B]{items: out}
}

// A KeyValue is one bound variable: a destination name and the value parsed
// for it. The same key may occur more than once; ToMap coalesces collisions
// into ordered lists.
type KeyValue struct {
	Key   string
	Value any
}

// Output is the binding container produced by every Parser in this package.
type Output = Sequence[KeyValue]

// Bindings constructs an Output from the given key-value pairs.
func Bindings(kvs ...KeyValue) Output { return NewSequence(kvs...) }

// treePath is the representation of a dotted destination such as "a.b.c"
// after Nesting has split it: the remaining parent keys and the leaf value.
// ToMap expands treePaths into nested maps.
type treePath struct {
	parents []string // non-empty
	leaf    any
}

// ToMap converts accumulated bindings into a map. Values bound more than
// once under the same key become a list, in order of occurrence. Dotted keys
// previously split by Nesting are expanded into nested maps; when the same
// key holds both plain values and nested paths the plain values come first,
// followed by the merged nested map.
func ToMap(out Output) map[string]any {
	type slot struct {
		values   []any
		collided bool
	}
	var order []string
	slots := map[string]*slot{}
	for _, kv := range out.items {
		if sl, ok := slots[kv.Key]; ok {
			sl.values = append(sl.values, kv.Value)
			sl.collided = true
		} else {
			slots[kv.Key] = &slot{values: []any{kv.Value}}
			order = append(order, kv.Key)
		}
	}
	m := make(map[string]any, len(order))
	for _, k := range order {
		sl := slots[k]
		if !sl.collided {
			if tp, ok := sl.values[0].(treePath); ok {
				m[k] = mergePaths(tp)
			} else {
				m[k] = sl.values[0]
			}
			continue
		}
		var plain []any
		var paths []treePath
		for _, v := range sl.values {
			if tp, ok := v.(treePath); ok {
				paths = append(paths, tp)
			} else {
				plain = append(plain, v)
			}
		}
		merged := mergePaths(paths...)
		switch {
		case len(merged) > 0 && len(plain) > 0:
			m[k] = append(plain, merged)
		case len(plain) > 0:
			m[k] = plain
		default:
			m[k] = merged
		}
	}
	return m
}

// mergePaths merges tree paths one level at a time, recursing through ToMap
// so collisions at every depth resolve by the same rules.
func mergePaths(paths ...treePath) map[string]any {
	if len(paths) == 0 {
		return nil
	}
	kvs := make([]KeyValue, 0, len(paths))
	for _, p := range paths {
		var v any
		if len(p.parents) > 1 {
			v = treePath{parents: p.parents[1:], leaf: p.leaf}
		} else {
			v = p.leaf
		}
		kvs = append(kvs, KeyValue{Key: p.parents[0], Value: v})
	}
	return ToMap(NewSequence(kvs...))
}

// splitKey rewrites the last binding of out, splitting a dotted key into a
// treePath. Bindings without a dot are left alone.
func splitKey(out Output) Output {
	n := out.Len()
	kv := out.At(n - 1)
	if !strings.Contains(kv.Key, ".") {
		return out
	}
	parts := strings.Split(kv.Key, ".")
	kv = KeyValue{Key: parts[0], Value: treePath{parents: parts[1:], leaf: kv.Value}}
	return out.Slice(0, n-1).Concat(Bindings(kv))
}
