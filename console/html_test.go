package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/net/html"
)

func TestListItemValue(t *testing.T) {
	testCases := []struct {
		raw      string
		hasValue bool
		expected int
	}{
		{"", false, 0},
		{"0", true, 0},
		{"1", true, 1},
		{" 12", true, 12},
		{"3px", true, 3},
		{"-2", true, -2},
		{"wan", true, 0},
		{"", true, 0},
	}
	for _, testCase := range testCases {
		item := &html.Node{Type: html.ElementNode, Data: "li"}
		if testCase.hasValue {
			item.Attr = []html.Attribute{{Key: "value", Val: testCase.raw}}
		}
		assert.Equal(t, testCase.expected, listItemValue(item), "%q", testCase.raw)
	}
}

func TestHasAttributeOnMissingNode(t *testing.T) {
	assert.False(t, hasAttribute(nil, "data-confirm"))
}
