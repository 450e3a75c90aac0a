package statecore

import "reflect"

// Cloner lets a host Context produce a real deep clone for snapshots. When
// a context does not implement Cloner, cloneContext falls back to a
// shallow reflect-based copy, which is documented as weaker than a true
// deep clone — hosts holding pointer-shaped context should implement this.
type Cloner interface {
	Clone() any
}

// Equaler lets a host Context compare itself for cache/dedup purposes.
// Falls back to reflect.DeepEqual when absent.
type Equaler interface {
	Equal(other any) bool
}

func cloneContext(c any) any {
	if c == nil {
		return nil
	}
	if cl, ok := c.(Cloner); ok {
		return cl.Clone()
	}
	v := reflect.ValueOf(c)
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return c
		}
		nv := reflect.New(v.Elem().Type())
		nv.Elem().Set(v.Elem())
		return nv.Interface()
	case reflect.Map:
		nv := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			nv.SetMapIndex(iter.Key(), iter.Value())
		}
		return nv.Interface()
	case reflect.Slice:
		nv := reflect.MakeSlice(v.Type(), v.Len(), v.Cap())
		reflect.Copy(nv, v)
		return nv.Interface()
	default:
		return c
	}
}

func contextsEqual(a, b any) bool {
	if eq, ok := a.(Equaler); ok {
		return eq.Equal(b)
	}
	return reflect.DeepEqual(a, b)
}
