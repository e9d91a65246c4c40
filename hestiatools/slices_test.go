package hestiatools_test

import (
	"strings"
	"testing"

	"github.com/lunagic/hestia/hestiatools"
	"gotest.tools/v3/assert"
)

func TestMap(t *testing.T) {
	t.Parallel()

	assert.DeepEqual(t,
		hestiatools.Map([]string{"mysql", "pgsql"}, strings.ToUpper),
		[]string{"MYSQL", "PGSQL"},
	)

	assert.DeepEqual(t,
		hestiatools.Map([]string{}, func(s string) int { return len(s) }),
		[]int{},
	)
}

func TestFilter(t *testing.T) {
	t.Parallel()

	input := []string{"status=1", "", "role=admin", ""}
	nonBlank := func(s string) bool { return s != "" }

	assert.DeepEqual(t, hestiatools.Filter(input, nonBlank), []string{"status=1", "role=admin"})

	{ // The input is left untouched
		assert.DeepEqual(t, input, []string{"status=1", "", "role=admin", ""})
	}
}

func TestSortedKeys(t *testing.T) {
	t.Parallel()

	assert.DeepEqual(t,
		hestiatools.SortedKeys(map[string]int{"replica": 2, "main": 1, "audit": 3}),
		[]string{"audit", "main", "replica"},
	)
	assert.Equal(t, len(hestiatools.SortedKeys(map[string]int{})), 0)
}
