package action

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/andresuchdata/marketlens/backend-go/internal/portal"
)

func intPtr(v int) *int { return &v }

func TestMomentum(t *testing.T) {
	assert.Equal(t, 1.0, Momentum(3, 0))
	assert.Equal(t, 0.0, Momentum(0, 0))
	assert.Equal(t, 0.5, Momentum(15, 10))
	assert.Equal(t, -1.0, Momentum(0, 4))
}

func TestClassify(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		name    string
		signals Signals
		want    Tag
		why     string
	}{
		{
			name:    "high returns mostly RTO",
			signals: Signals{Orders30d: 10, ReturnUnits30d: 5, RTOUnits30d: 4},
			want:    TagStop,
			why:     "High returns, RTO heavy",
		},
		{
			name:    "high returns after delivery",
			signals: Signals{Orders30d: 10, ReturnUnits30d: 4, RTOUnits30d: 1},
			want:    TagStop,
			why:     "High returns, post-delivery returns",
		},
		{
			name:    "returns exactly at threshold stop",
			signals: Signals{Orders30d: 20, ReturnUnits30d: 7},
			want:    TagStop,
		},
		{
			name:    "healthy seller scales",
			signals: Signals{Orders30d: 10, ReturnUnits30d: 1, OrdersPrev30d: 50},
			want:    TagScale,
		},
		{
			name: "flat single order falls through",
			signals: Signals{
				Portal:          portal.Myntra,
				Orders30d:       1,
				OrdersPrev30d:   1,
				AgeDays:         intPtr(200),
				OrdersSinceLive: 1,
			},
			want: TagWatch,
		},
		{
			name: "new style without impressions",
			signals: Signals{
				Portal:             portal.Myntra,
				HasTrafficSnapshot: true,
				AgeDays:            intPtr(10),
			},
			want: TagNewDiscovery,
		},
		{
			name: "new style without a traffic snapshot is not judged on impressions",
			signals: Signals{
				Portal:  portal.Myntra,
				AgeDays: intPtr(10),
			},
			want: TagWatch,
		},
		{
			name: "flipkart never gets new discovery",
			signals: Signals{
				Portal:             portal.Flipkart,
				HasTrafficSnapshot: true,
				AgeDays:            intPtr(10),
			},
			want: TagWatch,
		},
		{
			name: "old style that never sold",
			signals: Signals{
				Portal:  portal.Flipkart,
				AgeDays: intPtr(90),
			},
			want: TagZeroSale,
		},
		{
			name:    "unknown age",
			signals: Signals{Portal: portal.Myntra},
			want:    TagWatch,
			why:     "Monitor performance",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag, why := Classify(tt.signals, th)
			assert.Equal(t, tt.want, tag)
			if tt.why != "" {
				assert.Equal(t, tt.why, why)
			}
		})
	}
}

func TestClassifyTrending(t *testing.T) {
	th := DefaultThresholds()

	tag, why := Classify(Signals{Orders30d: 1, OrdersPrev30d: 0}, th)
	assert.Equal(t, TagTrending, tag)
	assert.Equal(t, "Momentum up and demand building", why)

	tag, _ = Classify(Signals{Orders30d: 1, OrdersPrev30d: 5}, th)
	assert.Equal(t, TagWatch, tag, "falling demand does not trend")

	tag, _ = Classify(Signals{Orders30d: 0, OrdersPrev30d: 0, AgeDays: intPtr(10)}, th)
	assert.NotEqual(t, TagTrending, tag, "no orders never trends")

	// enough orders are judged on returns first
	tag, _ = Classify(Signals{Orders30d: 5, OrdersPrev30d: 2}, th)
	assert.Equal(t, TagScale, tag)
}

func TestTrendingIsReachable(t *testing.T) {
	th := DefaultThresholds()
	seen := map[Tag]bool{}
	for orders := int64(0); orders < 50; orders++ {
		for prev := int64(0); prev < 50; prev++ {
			for returns := int64(0); returns <= orders; returns++ {
				tag, _ := Classify(Signals{Orders30d: orders, OrdersPrev30d: prev, ReturnUnits30d: returns}, th)
				seen[tag] = true
			}
		}
	}
	for _, tag := range []Tag{TagStop, TagScale, TagTrending, TagWatch} {
		assert.True(t, seen[tag], tag)
	}
}

func TestReturnPctAndShare(t *testing.T) {
	s := Signals{Orders30d: 8, ReturnUnits30d: 2, RTOUnits30d: 1}
	if assert.NotNil(t, s.ReturnPct30d()) {
		assert.Equal(t, 25.0, *s.ReturnPct30d())
	}
	if assert.NotNil(t, s.RTOShare()) {
		assert.Equal(t, 0.5, *s.RTOShare())
	}
	assert.Nil(t, Signals{}.ReturnPct30d())
	assert.Nil(t, Signals{Orders30d: 3}.RTOShare())
}

func TestSort(t *testing.T) {
	type row struct {
		key    string
		tag    Tag
		orders int64
	}
	rows := []row{
		{"c", TagWatch, 1},
		{"b", TagStop, 3},
		{"a", TagStop, 3},
		{"d", TagStop, 9},
		{"e", TagScale, 20},
	}
	Sort(rows, func(r row) (Tag, int64, string) { return r.tag, r.orders, r.key })

	keys := make([]string, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, r.key)
	}
	assert.Equal(t, []string{"d", "a", "b", "e", "c"}, keys)
	assert.Equal(t, 99, Tag("bogus").Rank())
}
