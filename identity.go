package statecore

import (
	"fmt"
	"reflect"
)

// Same reports whether a and b are the same state value by reference.
//
// Maps, pointers, channels, and funcs are the same when they point at the
// same object; slices additionally need equal length. Distinct zero-length
// slices may share the runtime's zero-size base pointer and then count as
// the same, which is safe for change detection since neither holds data. Other comparable values
// compare with ==. Values that are neither (structs holding slices, for
// example) are never the same, so a reducer returning one always counts as a
// change.
//
// Listeners can use Same to skip work after a no-op dispatch.
func Same(a, b State) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}

	if va.Comparable() && vb.Comparable() {
		return va.Equal(vb)
	}
	return false
}

// typeName describes a state value for log records and warnings.
func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
