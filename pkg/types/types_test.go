package types

import "testing"

func TestScalarPredicates(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		pred func(Type) bool
	}{
		{"void", Void(), IsVoid},
		{"int", Int32(), IsInt},
		{"bool", Bool(), IsBool},
		{"pointer", Pointer(Int32()), IsPointer},
		{"array", Array(Int32(), []int32{2, 3}), IsArray},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if !tc.pred(tc.typ) {
				t.Errorf("predicate failed for %s", tc.typ.String())
			}
		})
	}
}

func TestInterning(t *testing.T) {
	if Pointer(Int32()) != Pointer(Int32()) {
		t.Error("pointer types not interned")
	}
	// Array types hold a slice and cannot be compared with ==; interned
	// ones share the same dimension storage
	a := Array(Int32(), []int32{2, 3}).(Tarray)
	b := Array(Int32(), []int32{2, 3}).(Tarray)
	c := Array(Int32(), []int32{3, 2}).(Tarray)
	if &a.Dims[0] != &b.Dims[0] {
		t.Error("array types not interned")
	}
	if &a.Dims[0] == &c.Dims[0] {
		t.Error("arrays with different dimensions interned together")
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Type
		want bool
	}{
		{"int int", Int32(), Int32(), true},
		{"int bool", Int32(), Bool(), false},
		{"ptr ptr", Pointer(Int32()), Pointer(Int32()), true},
		{"array same", Array(Int32(), []int32{4}), Array(Int32(), []int32{4}), true},
		{"array dims differ", Array(Int32(), []int32{4}), Array(Int32(), []int32{5}), false},
		{"array rank differs", Array(Int32(), []int32{4}), Array(Int32(), []int32{4, 1}), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Equal(tc.a, tc.b); got != tc.want {
				t.Errorf("Equal(%s, %s) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestDimensionMultiplier(t *testing.T) {
	dims := []int32{2, 3, 4}
	tests := []struct {
		dim  int
		want int32
	}{
		{0, 12}, // 3*4
		{1, 4},
		{2, 1},
	}
	for _, tc := range tests {
		if got := DimensionMultiplier(dims, tc.dim); got != tc.want {
			t.Errorf("DimensionMultiplier(%v, %d) = %d, want %d", dims, tc.dim, got, tc.want)
		}
	}
}

func TestSizeOf(t *testing.T) {
	if got := SizeOf(Int32()); got != 4 {
		t.Errorf("SizeOf(int) = %d, want 4", got)
	}
	if got := SizeOf(Array(Int32(), []int32{2, 3})); got != 24 {
		t.Errorf("SizeOf(int[2][3]) = %d, want 24", got)
	}
	// Unknown first extent contributes no size
	if got := SizeOf(Array(Int32(), []int32{0, 3})); got != 12 {
		t.Errorf("SizeOf(int[][3]) = %d, want 12", got)
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{Int32(), "i32"},
		{Bool(), "i1"},
		{Void(), "void"},
		{Pointer(Int32()), "i32*"},
		{Array(Int32(), []int32{0, 3}), "i32[][3]"},
	}
	for _, tc := range tests {
		if got := tc.typ.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}
