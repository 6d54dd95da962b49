// Package kprof renders thread snapshots as pprof profiles: one sample per
// live thread, located at its user entry function, with the thread's user
// and system time as values.
package kprof

import "time"

import "github.com/google/pprof/profile"

import "kthreads/src/tinfo"

/// Mkprofile builds a profile from thread notes taken at time now.
func Mkprofile(notes []*tinfo.Tnote_t, now time.Time) *profile.Profile {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "threads", Unit: "count"},
			{Type: "user", Unit: "nanoseconds"},
			{Type: "sys", Unit: "nanoseconds"},
		},
		PeriodType: &profile.ValueType{Type: "threads", Unit: "count"},
		Period:     1,
		TimeNanos:  now.UnixNano(),
	}
	funcs := make(map[string]*profile.Function)
	locs := make(map[uint64]*profile.Location)
	for _, n := range notes {
		loc, ok := locs[uint64(n.Entry)]
		if !ok {
			f, ok := funcs[n.Func]
			if !ok {
				f = &profile.Function{
					ID:         uint64(len(p.Function) + 1),
					Name:       n.Func,
					SystemName: n.Func,
				}
				funcs[n.Func] = f
				p.Function = append(p.Function, f)
			}
			loc = &profile.Location{
				ID:      uint64(len(p.Location) + 1),
				Address: uint64(n.Entry),
				Line:    []profile.Line{{Function: f}},
			}
			locs[uint64(n.Entry)] = loc
			p.Location = append(p.Location, loc)
		}
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{1, n.Userns, n.Sysns},
			Label: map[string][]string{
				"state": {n.State},
			},
			NumLabel: map[string][]int64{
				"pid":  {int64(n.Pid)},
				"tid":  {int64(n.Tid)},
				"slot": {int64(n.Slot)},
			},
		})
	}
	return p
}
