package tuner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlowTracker_UpdateRecordsHistory(t *testing.T) {
	tr := NewFlowTracker(0.001, 8)
	tr.Update(0.0001, map[string]map[string]int64{"128": {"f1": 10, "f2": 3}})
	tr.Update(0.0002, map[string]map[string]int64{"128": {"f1": 20}, "129": {"f9": 1}})

	assert.Equal(t, 3, tr.Len())
	assert.Equal(t, []string{"128", "129"}, tr.Switches())

	rec, ok := tr.Flow("128", "f1")
	require.True(t, ok)
	assert.Equal(t, []int64{10, 20}, rec.History())
	assert.Equal(t, int64(30), rec.Total)
	assert.Equal(t, 0.0002, rec.LastSeen)
	assert.True(t, rec.Active)
}

func TestFlowTracker_ExpiresSilentFlows(t *testing.T) {
	// GIVEN a flow last seen at t=0.001 with a reset interval of 1ms
	tr := NewFlowTracker(0.001, 8)
	tr.Update(0.001, map[string]map[string]int64{"128": {"f1": 10}})

	// WHEN rounds pass without the flow reporting
	tr.Update(0.0014, map[string]map[string]int64{"128": {"f2": 1}})
	rec, _ := tr.Flow("128", "f1")
	assert.True(t, rec.Active, "within half a reset interval the flow stays live")

	tr.Update(0.0016, map[string]map[string]int64{"128": {"f2": 1}})

	// THEN it is marked inactive but kept
	rec, ok := tr.Flow("128", "f1")
	require.True(t, ok)
	assert.False(t, rec.Active)

	// AND it revives when it reports again
	tr.Update(0.0017, map[string]map[string]int64{"128": {"f1": 5}})
	rec, _ = tr.Flow("128", "f1")
	assert.True(t, rec.Active)
	assert.Equal(t, int64(15), rec.Total)
}

func TestFlowRecord_HistoryIsBoundedButTotalIsNot(t *testing.T) {
	tr := NewFlowTracker(1, 3)
	for i := 1; i <= 5; i++ {
		tr.Update(float64(i)*0.1, map[string]map[string]int64{"s": {"f": int64(i)}})
	}
	rec, ok := tr.Flow("s", "f")
	require.True(t, ok)
	assert.Equal(t, []int64{3, 4, 5}, rec.History())
	assert.Equal(t, int64(15), rec.Total)
}

func TestFlowTracker_FlowReturnsCopy(t *testing.T) {
	tr := NewFlowTracker(1, 4)
	tr.Update(0.1, map[string]map[string]int64{"s": {"f": 1}})
	rec, _ := tr.Flow("s", "f")
	rec.ring[0] = 99

	again, _ := tr.Flow("s", "f")
	assert.Equal(t, []int64{1}, again.History())

	_, ok := tr.Flow("s", "missing")
	assert.False(t, ok)
}

func TestFlowTracker_FlowsSortedByID(t *testing.T) {
	tr := NewFlowTracker(1, 4)
	tr.Update(0.1, map[string]map[string]int64{"s": {"c": 1, "a": 2, "b": 3}})

	flows := tr.Flows("s")
	require.Len(t, flows, 3)
	assert.Equal(t, "a", flows[0].FlowID)
	assert.Equal(t, "b", flows[1].FlowID)
	assert.Equal(t, "c", flows[2].FlowID)
	assert.Empty(t, tr.Flows("unknown"))
}
