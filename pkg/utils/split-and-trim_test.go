package utils

import (
	"reflect"
	"testing"
)

func TestSplitAndTrim(t *testing.T) {
	cases := []struct {
		input    string
		expected []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b ", []string{"a", "b"}},
		{"a,,b", []string{"a", "b"}},
		{"", []string{}},
		{" , ", []string{}},
		{"single", []string{"single"}},
	}

	for _, c := range cases {
		got := SplitAndTrim(c.input)
		if !reflect.DeepEqual(got, c.expected) {
			t.Errorf("SplitAndTrim(%q) = %v, expected %v", c.input, got, c.expected)
		}
	}
}
