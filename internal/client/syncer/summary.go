package syncer

import "time"

// RegionSummary counts what one pass did for one region.
type RegionSummary struct {
	Region            string
	Pushed            int
	PulledSites       int
	PulledInspections int
	Uploaded          int
	Downloaded        int
	Failed            int
	Orphans           int
}

// Summary is the result of one sync pass.
type Summary struct {
	Regions  []RegionSummary
	Started  time.Time
	Finished time.Time
}

// Totals adds up all regions.
func (s *Summary) Totals() RegionSummary {
	var t RegionSummary
	for _, r := range s.Regions {
		t.Pushed += r.Pushed
		t.PulledSites += r.PulledSites
		t.PulledInspections += r.PulledInspections
		t.Uploaded += r.Uploaded
		t.Downloaded += r.Downloaded
		t.Failed += r.Failed
		t.Orphans += r.Orphans
	}
	return t
}

func (s *Summary) region(name string) *RegionSummary {
	for i := range s.Regions {
		if s.Regions[i].Region == name {
			return &s.Regions[i]
		}
	}
	s.Regions = append(s.Regions, RegionSummary{Region: name})
	return &s.Regions[len(s.Regions)-1]
}

// Phase names the part of a pass a progress report belongs to.
type Phase string

const (
	PhasePush    Phase = "push"
	PhaseRebuild Phase = "rebuild"
)

// Progress is reported after every processed item.
type Progress struct {
	Phase  Phase
	Region string
	Done   int
	Total  int
}

// Fraction is Done/Total, or 1 for an empty phase.
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Done) / float64(p.Total)
}

// ProgressFunc receives progress reports; it must not block.
type ProgressFunc func(Progress)
