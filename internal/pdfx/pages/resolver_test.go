package pages

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dmogilev/docmill/internal/common"
)

func TestResolve_Valid(t *testing.T) {
	tests := []struct {
		expr string
		want []int
	}{
		{"1-3,5,7-9", []int{0, 1, 2, 4, 6, 7, 8}},
		{"1", []int{0}},
		{"3,1,2", []int{0, 1, 2}},
		{"1-3,2-4", []int{0, 1, 2, 3}},
		{" 2 , 4 ", []int{1, 3}},
		{"5-5", []int{4}},
	}

	for _, tc := range tests {
		got, err := Resolve(tc.expr)
		if err != nil {
			t.Fatalf("Resolve(%q) error: %v", tc.expr, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Resolve(%q) = %v, want %v", tc.expr, got, tc.want)
		}
	}
}

func TestResolve_Invalid(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"3-1",
		"a",
		"1,,3",
		"1-",
		"-3",
		"0",
		"1-x",
	}

	for _, expr := range tests {
		_, err := Resolve(expr)
		if err == nil {
			t.Fatalf("Resolve(%q) expected error", expr)
		}
		if !errors.Is(err, common.ErrValidation) {
			t.Fatalf("Resolve(%q) error %v, want ErrValidation", expr, err)
		}
	}
}

func TestResolve_IdempotentViaFormat(t *testing.T) {
	exprs := []string{"1-3,5,7-9", "2,4,6", "1-10", "9,1,5-7"}

	for _, expr := range exprs {
		first, err := Resolve(expr)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", expr, err)
		}
		second, err := Resolve(Format(first))
		if err != nil {
			t.Fatalf("Resolve(Format(%q)): %v", expr, err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("round trip of %q changed selection: %v != %v", expr, first, second)
		}
	}
}

func TestFormat_CollapsesRuns(t *testing.T) {
	got := Format([]int{0, 1, 2, 4, 6, 7, 8})
	if got != "1-3,5,7-9" {
		t.Fatalf("Format = %q, want %q", got, "1-3,5,7-9")
	}
	if Format(nil) != "" {
		t.Fatalf("Format(nil) must be empty")
	}
}

func TestClamp_DropsOutOfBounds(t *testing.T) {
	got := Clamp([]int{0, 3, 9, 12}, 10)
	want := []int{0, 3, 9}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Clamp = %v, want %v", got, want)
	}
	if len(Clamp([]int{5, 6}, 0)) != 0 {
		t.Fatalf("Clamp with zero pages must drop everything")
	}
}
