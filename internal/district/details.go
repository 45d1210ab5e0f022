package district

import "math"

// Details is the content of a school's popup. Absent values are left empty.
type Details struct {
	Name        string `json:"name"`
	Type        string `json:"type" doc:"Long type name"`
	Address     string `json:"address,omitempty"`
	Region      string `json:"region,omitempty"`
	Program     string `json:"program,omitempty"`
	Calendar    string `json:"calendar,omitempty"`
	Grades      string `json:"grades,omitempty"`
	ISP         *int   `json:"isp,omitempty" doc:"Identified student percentage"`
	Capacity    *int   `json:"capacity,omitempty"`
	Enrollment  *int   `json:"enrollment,omitempty"`
	Utilization *int   `json:"utilization,omitempty" doc:"Enrollment over capacity, rounded percent"`
	CTE         string `json:"cte,omitempty"`
}

// Details returns the popup content for s.
func (s *School) Details() Details {
	d := Details{
		Name:       s.Name,
		Type:       s.Type.Title(),
		Address:    s.Address,
		Region:     s.Region,
		Program:    s.Program,
		Calendar:   s.Calendar,
		Grades:     s.Grades,
		ISP:        rounded(s.ISP),
		Capacity:   rounded(s.Capacity),
		Enrollment: rounded(s.Enrollment),
	}
	if u, ok := s.Utilization(); ok {
		p := int(math.Round(u * 100))
		d.Utilization = &p
	}
	if s.Type == High {
		d.CTE = s.CTE
	}
	return d
}

func rounded(v *float64) *int {
	if v == nil {
		return nil
	}
	n := int(math.Round(*v))
	return &n
}
