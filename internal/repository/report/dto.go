package report

import (
	"time"

	"github.com/kailas-cloud/marketlens/internal/domain"
)

// reportDTO is the stored shape. Sections keep stage order explicitly.
type reportDTO struct {
	TraceID   string       `json:"trace_id"`
	CreatedAt time.Time    `json:"created_at"`
	Sections  []sectionDTO `json:"sections"`
}

type sectionDTO struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

func toDTO(r domain.Report, at time.Time) reportDTO {
	dto := reportDTO{TraceID: r.TraceID, CreatedAt: at.UTC(), Sections: make([]sectionDTO, 0, len(r.Sections))}
	for _, s := range r.Sections {
		dto.Sections = append(dto.Sections, sectionDTO(s))
	}
	return dto
}

func fromDTO(dto reportDTO) domain.Report {
	r := domain.Report{TraceID: dto.TraceID, Sections: make([]domain.Section, 0, len(dto.Sections))}
	for _, s := range dto.Sections {
		r.Sections = append(r.Sections, domain.Section(s))
	}
	return r
}
