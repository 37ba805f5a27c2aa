package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAll_SortedByName(t *testing.T) {
	all := All()
	require.Len(t, all, len(regions))
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].Name, all[i].Name)
	}
}

func TestLookupAndFromName(t *testing.T) {
	r, err := Lookup("kyiv")
	require.NoError(t, err)
	assert.Equal(t, FormatSubqueue, r.Format)

	r, err = FromName("Київська область")
	require.NoError(t, err)
	assert.Equal(t, "kyivska-oblast", r.Slug)

	r, err = FromName("odeska-oblast")
	require.NoError(t, err)
	assert.Equal(t, "Одеська область", r.Name)

	_, err = Lookup("atlantis")
	assert.ErrorIs(t, err, ErrUnknownRegion)
}

func TestValidateQueue(t *testing.T) {
	tests := []struct {
		region string
		queue  string
		valid  bool
	}{
		{"kyiv", "1.1", true},
		{"kyiv", "6.2", true},
		{"kyiv", "7.1", false},
		{"kyiv", "1.3", false},
		{"kyiv", "3", false},
		{"kyiv", "a.b", false},
		{"zaporizka-oblast", "6", true},
		{"zaporizka-oblast", "7", false},
		{"zaporizka-oblast", "1.1", false},
		{"chernivetska-oblast", "18", true},
		{"chernivetska-oblast", "19", false},
		{"ternopilska-oblast", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.region+"/"+tt.queue, func(t *testing.T) {
			err := ValidateQueue(tt.region, tt.queue)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidQueue)
			}
		})
	}

	assert.ErrorIs(t, ValidateQueue("nowhere", "1"), ErrUnknownRegion)
}

func TestQueues(t *testing.T) {
	kyiv, _ := Lookup("kyiv")
	queues := kyiv.Queues()
	assert.Len(t, queues, 12)
	assert.Equal(t, "1.1", queues[0])
	assert.Equal(t, "6.2", queues[11])
	assert.Equal(t, DefaultQueue, kyiv.DefaultQueue())

	cv, _ := Lookup("chernivetska-oblast")
	assert.Len(t, cv.Queues(), 18)
	assert.Equal(t, "1", cv.DefaultQueue())

	for _, r := range All() {
		for _, q := range r.Queues() {
			assert.NoError(t, r.ValidateQueue(q), "%s %s", r.Slug, q)
		}
	}
}

func TestIntervals(t *testing.T) {
	assert.Equal(t, 900, IntervalSeconds(DefaultIntervalLabel))
	assert.Equal(t, 3600, IntervalSeconds("1 год"))
	assert.Equal(t, 900, IntervalSeconds("2 роки"))

	assert.Equal(t, "30 хв", IntervalLabel(1800))
	assert.Equal(t, DefaultIntervalLabel, IntervalLabel(42))

	for _, p := range Intervals() {
		assert.Equal(t, p.Label, IntervalLabel(IntervalSeconds(p.Label)))
	}
}
